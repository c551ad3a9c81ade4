// Package study runs a hyperparameter search end to end. A Study owns the
// results table, hands out trials from its algorithm, collects observations,
// and optionally writes everything through a storage backend so the search
// can be resumed after a crash.
package study

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/google/uuid"

	"hypertune/internal/algo"
	"hypertune/internal/param"
	"hypertune/internal/storage"
	"hypertune/internal/table"
)

var (
	// ErrSearchExhausted is returned by GetSuggestion once the algorithm
	// has no further configurations to propose.
	ErrSearchExhausted = errors.New("search exhausted")

	// ErrNotReady is returned by GetSuggestion when the algorithm needs
	// running trials to finish before it can propose more.
	ErrNotReady = errors.New("algorithm is waiting for running trials")
)

// Trial is one parameter configuration to evaluate. Parameters holds the
// hyperparameter values plus any bookkeeping the algorithm attached, such
// as checkpoint identifiers for population based training.
type Trial struct {
	ID         int
	Parameters map[string]any
}

type Config struct {
	Parameters    []param.Parameter
	Algorithm     algo.Algorithm
	StoppingRule  algo.StoppingRule
	LowerIsBetter bool

	// Store is optional. When set, the study header and every observation
	// are written through so Resume can rebuild the search.
	Store storage.Store

	Logger *slog.Logger
}

type Study struct {
	id     string
	cfg    Config
	logger *slog.Logger

	results   *table.Table
	numTrials int
	trials    map[int]map[string]any
}

func New(cfg Config) (*Study, error) {
	if cfg.Algorithm == nil {
		return nil, errors.New("study requires an algorithm")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Study{
		id:      uuid.NewString(),
		cfg:     cfg,
		logger:  logger,
		results: table.New(),
		trials:  make(map[int]map[string]any),
	}, nil
}

// Resume rebuilds a study from its persisted header and observations. The
// caller supplies the same configuration the study was created with; the
// stored header is checked against it.
func Resume(ctx context.Context, cfg Config, id string) (*Study, error) {
	if cfg.Store == nil {
		return nil, errors.New("resume requires a store")
	}
	s, err := New(cfg)
	if err != nil {
		return nil, err
	}

	record, ok, err := cfg.Store.GetStudy(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("study %s not found", id)
	}
	if record.Algorithm != cfg.Algorithm.Name() {
		return nil, fmt.Errorf("study %s was run with algorithm %s, not %s",
			id, record.Algorithm, cfg.Algorithm.Name())
	}
	if record.LowerIsBetter != cfg.LowerIsBetter {
		return nil, fmt.Errorf("study %s has a different optimization direction", id)
	}

	rows, err := cfg.Store.Observations(ctx, id)
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		s.results.Append(row)
		tid := row.TrialID()
		if _, seen := s.trials[tid]; !seen {
			s.trials[tid] = trialParameters(row)
		}
	}

	s.id = id
	s.numTrials = record.NumTrials
	cfg.Algorithm.Load(record.NumTrials)
	return s, nil
}

func (s *Study) ID() string { return s.id }

func (s *Study) NumTrials() int { return s.numTrials }

func (s *Study) Results() *table.Table { return s.results }

// GetSuggestion asks the algorithm for the next trial. It returns
// ErrSearchExhausted when the search is over and ErrNotReady when the
// algorithm needs outstanding trials to complete first.
func (s *Study) GetSuggestion(ctx context.Context) (Trial, error) {
	sug, err := s.cfg.Algorithm.GetSuggestion(s.cfg.Parameters, s.results, s.cfg.LowerIsBetter)
	if err != nil {
		return Trial{}, err
	}
	if sug.IsStop() {
		return Trial{}, ErrSearchExhausted
	}
	if sug.IsWait() {
		return Trial{}, ErrNotReady
	}

	s.numTrials++
	trial := Trial{ID: s.numTrials, Parameters: sug.Values}
	s.trials[trial.ID] = sug.Values

	if s.cfg.Store != nil {
		record := storage.StudyRecord{
			SchemaVersion: storage.CurrentSchemaVersion,
			ID:            s.id,
			Algorithm:     s.cfg.Algorithm.Name(),
			LowerIsBetter: s.cfg.LowerIsBetter,
			NumTrials:     s.numTrials,
		}
		if err := s.cfg.Store.SaveStudy(ctx, record); err != nil {
			return Trial{}, fmt.Errorf("persist study header: %w", err)
		}
	}
	return trial, nil
}

// AddObservation records an intermediate objective value for a running
// trial. Iterations are expected to arrive in increasing order per trial.
func (s *Study) AddObservation(ctx context.Context, trialID, iteration int, objective float64) error {
	params, ok := s.trials[trialID]
	if !ok {
		return fmt.Errorf("unknown trial %d", trialID)
	}

	row := table.Row{
		table.ColTrialID:   trialID,
		table.ColStatus:    table.StatusIntermediate,
		table.ColIteration: iteration,
		table.ColObjective: objective,
	}
	for k, v := range params {
		row[k] = v
	}
	return s.appendRow(ctx, row)
}

// FinalizeTrial closes a trial with a terminal status. The final objective
// is the one from the trial's last observation; a trial finalized without
// any observation records a NaN objective.
func (s *Study) FinalizeTrial(ctx context.Context, trialID int, status string) error {
	switch status {
	case table.StatusCompleted, table.StatusFailed, table.StatusStopped:
	default:
		return fmt.Errorf("invalid terminal status %q", status)
	}
	params, ok := s.trials[trialID]
	if !ok {
		return fmt.Errorf("unknown trial %d", trialID)
	}

	observed := s.results.TrialRows(trialID).Rows()
	row := table.Row{
		table.ColTrialID:   trialID,
		table.ColStatus:    status,
		table.ColIteration: 0,
		table.ColObjective: math.NaN(),
	}
	if len(observed) > 0 {
		last := observed[len(observed)-1]
		row[table.ColIteration] = last.Iteration()
		row[table.ColObjective] = last.Objective()
	}
	for k, v := range params {
		row[k] = v
	}
	return s.appendRow(ctx, row)
}

// ShouldTrialStop reports whether the configured stopping rule wants the
// trial ended early. Without a stopping rule it is always false.
func (s *Study) ShouldTrialStop(trialID int) bool {
	if s.cfg.StoppingRule == nil {
		return false
	}
	return s.cfg.StoppingRule.ShouldTrialStop(trialID, s.results, s.cfg.LowerIsBetter)
}

// BestResult returns the row with the best finite objective across all
// observations, intermediate ones included.
func (s *Study) BestResult() table.Row {
	return algo.BestResult(s.logger, s.results, s.cfg.LowerIsBetter)
}

func (s *Study) appendRow(ctx context.Context, row table.Row) error {
	s.results.Append(row)
	if s.cfg.Store != nil {
		if err := s.cfg.Store.AppendObservation(ctx, s.id, row); err != nil {
			return fmt.Errorf("persist observation: %w", err)
		}
	}
	return nil
}

// trialParameters strips the result bookkeeping columns from a stored row,
// leaving the trial's parameter values.
func trialParameters(row table.Row) map[string]any {
	params := make(map[string]any, len(row))
	for k, v := range row {
		switch k {
		case table.ColTrialID, table.ColStatus, table.ColIteration, table.ColObjective:
		default:
			params[k] = v
		}
	}
	return params
}
