// Package hypertune is the public client API. It wires an objective, an
// algorithm and a store into a study, runs the search loop, and answers
// queries about persisted studies. The ctl binary is a thin shell over it.
package hypertune

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sort"

	"hypertune/internal/algo"
	"hypertune/internal/objective"
	"hypertune/internal/param"
	"hypertune/internal/storage"
	"hypertune/internal/study"
	"hypertune/internal/table"
)

const defaultDBPath = "hypertune.db"

type Options struct {
	StoreKind string
	DBPath    string
	Logger    *slog.Logger
}

type Client struct {
	store  storage.Store
	logger *slog.Logger
}

type RunRequest struct {
	Objective string
	Algorithm string
	ResumeID  string

	MaxTrials  int
	Iterations int
	Seed       int64

	// Per-algorithm knobs; ignored by algorithms that do not use them.
	// A nil MutationRate selects the genetic algorithm's default; zero
	// selects pure crossover.
	GridPoints     int
	PopulationSize int
	MutationRate   *float64
	Repeat         int

	// Configurations is the explicit list evaluated by the iterate
	// algorithm. Keys must match the objective's parameter names.
	Configurations []map[string]any

	MedianStop    bool
	MinIterations int
	MinTrials     int
}

type RunSummary struct {
	StudyID        string
	Objective      string
	Algorithm      string
	NumTrials      int
	StoppedEarly   int
	BestObjective  float64
	BestParameters map[string]any
}

type BestRequest struct {
	StudyID string
}

type BestSummary struct {
	StudyID       string
	Algorithm     string
	LowerIsBetter bool
	NumTrials     int
	Objective     float64
	Parameters    map[string]any
}

type TrialsRequest struct {
	StudyID string
	Limit   int
}

type TrialItem struct {
	TrialID    int
	Status     string
	Iteration  int
	Objective  float64
	Parameters map[string]any
}

type LineageRequest struct {
	StudyID string
	TrialID int
}

type LineageItem struct {
	TrialID    int
	Generation int
	LoadFrom   string
	SaveTo     string
	Objective  float64
}

func New(opts Options) (*Client, error) {
	dbPath := opts.DBPath
	if dbPath == "" {
		dbPath = defaultDBPath
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	store, err := storage.NewStore(opts.StoreKind, dbPath)
	if err != nil {
		return nil, err
	}
	return &Client{store: store, logger: logger}, nil
}

func (c *Client) Close() error {
	return storage.CloseIfSupported(c.store)
}

func (c *Client) Init(ctx context.Context) error {
	return c.store.Init(ctx)
}

// Run executes one study to completion: it pulls trials from the algorithm,
// evaluates the objective for the requested number of iterations per trial,
// feeds observations back, and applies the median stopping rule when asked.
func (c *Client) Run(ctx context.Context, req RunRequest) (RunSummary, error) {
	if req.Objective == "" {
		req.Objective = "sphere"
	}
	if req.Algorithm == "" {
		req.Algorithm = "random_search"
	}
	if req.MaxTrials <= 0 {
		req.MaxTrials = 20
	}
	if req.Iterations <= 0 {
		req.Iterations = 5
	}

	obj, err := objective.ByName(req.Objective, req.Seed)
	if err != nil {
		return RunSummary{}, err
	}
	alg, err := algorithmFromRequest(req, obj.Parameters)
	if err != nil {
		return RunSummary{}, err
	}

	var rule algo.StoppingRule
	if req.MedianStop {
		rule = algo.NewMedianStoppingRule(algo.MedianStoppingRuleConfig{
			MinIterations: req.MinIterations,
			MinTrials:     req.MinTrials,
			Logger:        c.logger,
		})
	}

	cfg := study.Config{
		Parameters:    obj.Parameters,
		Algorithm:     alg,
		StoppingRule:  rule,
		LowerIsBetter: obj.LowerIsBetter,
		Store:         c.store,
		Logger:        c.logger,
	}

	var s *study.Study
	if req.ResumeID != "" {
		s, err = study.Resume(ctx, cfg, req.ResumeID)
	} else {
		s, err = study.New(cfg)
	}
	if err != nil {
		return RunSummary{}, err
	}

	stoppedEarly := 0
	for issued := 0; issued < req.MaxTrials; issued++ {
		trial, err := s.GetSuggestion(ctx)
		if errors.Is(err, study.ErrSearchExhausted) {
			break
		}
		if err != nil {
			return RunSummary{}, err
		}

		stopped := false
		for it := 0; it < req.Iterations; it++ {
			value := obj.Eval(trial.Parameters, it)
			if err := s.AddObservation(ctx, trial.ID, it, value); err != nil {
				return RunSummary{}, err
			}
			if s.ShouldTrialStop(trial.ID) {
				stopped = true
				break
			}
		}

		status := table.StatusCompleted
		if stopped {
			status = table.StatusStopped
			stoppedEarly++
		}
		if err := s.FinalizeTrial(ctx, trial.ID, status); err != nil {
			return RunSummary{}, err
		}
	}

	best := s.BestResult()
	return RunSummary{
		StudyID:        s.ID(),
		Objective:      req.Objective,
		Algorithm:      alg.Name(),
		NumTrials:      s.NumTrials(),
		StoppedEarly:   stoppedEarly,
		BestObjective:  best.Objective(),
		BestParameters: parameterCells(best),
	}, nil
}

// Best reads a persisted study and returns its best completed result.
func (c *Client) Best(ctx context.Context, req BestRequest) (BestSummary, error) {
	record, results, err := c.loadStudy(ctx, req.StudyID)
	if err != nil {
		return BestSummary{}, err
	}

	best := algo.BestResult(c.logger, results, record.LowerIsBetter)
	return BestSummary{
		StudyID:       record.ID,
		Algorithm:     record.Algorithm,
		LowerIsBetter: record.LowerIsBetter,
		NumTrials:     record.NumTrials,
		Objective:     best.Objective(),
		Parameters:    parameterCells(best),
	}, nil
}

// Trials lists a persisted study's terminal trial rows in trial order.
func (c *Client) Trials(ctx context.Context, req TrialsRequest) ([]TrialItem, error) {
	_, results, err := c.loadStudy(ctx, req.StudyID)
	if err != nil {
		return nil, err
	}

	terminal := results.Filter(func(row table.Row) bool {
		return row.Status() != table.StatusIntermediate
	})
	items := make([]TrialItem, 0, terminal.Len())
	for _, row := range terminal.Rows() {
		items = append(items, TrialItem{
			TrialID:    row.TrialID(),
			Status:     row.Status(),
			Iteration:  row.Iteration(),
			Objective:  row.Objective(),
			Parameters: parameterCells(row),
		})
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].TrialID < items[j].TrialID })
	if req.Limit > 0 && len(items) > req.Limit {
		items = items[:req.Limit]
	}
	return items, nil
}

// Lineage walks a trial's checkpoint ancestry for studies run with
// population based training, newest first.
func (c *Client) Lineage(ctx context.Context, req LineageRequest) ([]LineageItem, error) {
	_, results, err := c.loadStudy(ctx, req.StudyID)
	if err != nil {
		return nil, err
	}

	row := terminalRow(results, req.TrialID)
	if row == nil {
		return nil, fmt.Errorf("trial %d has no terminal result in study %s", req.TrialID, req.StudyID)
	}
	if _, ok := row[table.ColSaveTo]; !ok {
		return nil, fmt.Errorf("study %s carries no lineage bookkeeping", req.StudyID)
	}

	var chain []LineageItem
	for row != nil {
		chain = append(chain, LineageItem{
			TrialID:    row.TrialID(),
			Generation: intCell(row, table.ColGeneration),
			LoadFrom:   row.Str(table.ColLoadFrom),
			SaveTo:     row.Str(table.ColSaveTo),
			Objective:  row.Objective(),
		})
		loadFrom := row.Str(table.ColLoadFrom)
		if loadFrom == "" {
			break
		}
		row = rowBySaveTo(results, loadFrom)
	}
	return chain, nil
}

func (c *Client) loadStudy(ctx context.Context, id string) (storage.StudyRecord, *table.Table, error) {
	if id == "" {
		return storage.StudyRecord{}, nil, errors.New("study id is required")
	}
	record, ok, err := c.store.GetStudy(ctx, id)
	if err != nil {
		return storage.StudyRecord{}, nil, err
	}
	if !ok {
		return storage.StudyRecord{}, nil, fmt.Errorf("study %s not found", id)
	}
	rows, err := c.store.Observations(ctx, id)
	if err != nil {
		return storage.StudyRecord{}, nil, err
	}
	return record, table.FromRows(rows), nil
}

func algorithmFromRequest(req RunRequest, parameters []param.Parameter) (algo.Algorithm, error) {
	var alg algo.Algorithm
	switch req.Algorithm {
	case "random_search":
		alg = algo.NewRandomSearch(algo.RandomSearchConfig{
			MaxNumTrials: req.MaxTrials,
			Seed:         req.Seed,
		})
	case "grid_search":
		alg = algo.NewGridSearch(algo.GridSearchConfig{NumGridPoints: req.GridPoints})
	case "iterate":
		it, err := algo.NewIterate(req.Configurations)
		if err != nil {
			return nil, err
		}
		alg = it
	case "local_search":
		rng := rand.New(rand.NewSource(req.Seed))
		seedConfig := make(map[string]any, len(parameters))
		for _, p := range parameters {
			seedConfig[p.Name] = p.Sample(rng)
		}
		ls, err := algo.NewLocalSearch(algo.LocalSearchConfig{
			SeedConfiguration: seedConfig,
			Seed:              req.Seed,
		})
		if err != nil {
			return nil, err
		}
		alg = ls
	case "population_based_training":
		pbt, err := algo.NewPopulationBasedTraining(algo.PopulationBasedTrainingConfig{
			PopulationSize: req.PopulationSize,
			Seed:           req.Seed,
		})
		if err != nil {
			return nil, err
		}
		alg = pbt
	case "genetic":
		alg = algo.NewGenetic(algo.GeneticConfig{
			MutationRate: req.MutationRate,
			MaxNumTrials: req.MaxTrials,
			Seed:         req.Seed,
		})
	default:
		return nil, fmt.Errorf("unknown algorithm: %s", req.Algorithm)
	}

	if req.Repeat > 1 {
		wrapped, err := algo.NewRepeat(algo.RepeatConfig{Algorithm: alg, NumTimes: req.Repeat})
		if err != nil {
			return nil, err
		}
		alg = wrapped
	}
	return alg, nil
}

// parameterCells strips the reserved result columns, leaving the trial's
// parameter and bookkeeping values.
func parameterCells(row table.Row) map[string]any {
	out := make(map[string]any)
	for k, v := range row {
		switch k {
		case table.ColTrialID, table.ColStatus, table.ColIteration, table.ColObjective:
		default:
			out[k] = v
		}
	}
	return out
}

func terminalRow(results *table.Table, trialID int) table.Row {
	for _, row := range results.TrialRows(trialID).Rows() {
		if row.Status() != table.StatusIntermediate {
			return row
		}
	}
	return nil
}

func rowBySaveTo(results *table.Table, saveTo string) table.Row {
	for _, row := range results.Rows() {
		if row.Status() == table.StatusIntermediate {
			continue
		}
		if row.Str(table.ColSaveTo) == saveTo {
			return row
		}
	}
	return nil
}

func intCell(row table.Row, key string) int {
	v, _ := row.Int(key)
	return v
}
