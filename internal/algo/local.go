package algo

import (
	"fmt"
	"log/slog"
	"math/rand"
	"reflect"

	"hypertune/internal/param"
	"hypertune/internal/table"
)

// LocalSearchConfig configures a LocalSearch instance.
type LocalSearchConfig struct {
	// SeedConfiguration is the starting configuration, expected to already
	// be good.
	SeedConfiguration map[string]any
	// PerturbationFactors are the decrease and increase multipliers
	// applied to numeric parameters. Zero value means {0.8, 1.2}.
	PerturbationFactors [2]float64
	// RepeatTrials repeats each configuration to average out random
	// fluctuations. Zero means once.
	RepeatTrials int
	Seed         int64
	Logger       *slog.Logger
}

// LocalSearch is a hill climb around a seed configuration. It re-seeds from
// the best completed trial, then perturbs one parameter at a time in
// randomized order, skipping configurations it has already submitted. When
// every parameter and direction from the current seed has been tried it
// returns Stop.
type LocalSearch struct {
	rng          *rand.Rand
	seedConfig   map[string]any
	factors      [2]float64
	repeatTrials int
	logger       *slog.Logger

	count     int
	submitted []map[string]any
	pending   []Suggestion
}

func NewLocalSearch(cfg LocalSearchConfig) (*LocalSearch, error) {
	if len(cfg.SeedConfiguration) == 0 {
		return nil, fmt.Errorf("seed configuration is required")
	}
	factors := cfg.PerturbationFactors
	if factors == [2]float64{} {
		factors = [2]float64{0.8, 1.2}
	}
	if factors[0] <= 0 || factors[1] <= 0 {
		return nil, fmt.Errorf("perturbation factors must be positive, got %v", factors)
	}
	repeatTrials := cfg.RepeatTrials
	if repeatTrials <= 0 {
		repeatTrials = 1
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &LocalSearch{
		rng:          rand.New(rand.NewSource(cfg.Seed)),
		seedConfig:   cloneValues(cfg.SeedConfiguration),
		factors:      factors,
		repeatTrials: repeatTrials,
		logger:       logger,
	}, nil
}

func (a *LocalSearch) Name() string { return "local_search" }

func (a *LocalSearch) GetSuggestion(parameters []param.Parameter, results *table.Table, lowerIsBetter bool) (Suggestion, error) {
	if len(a.pending) == 0 {
		batch, err := a.nextTrials(parameters, results, lowerIsBetter)
		if err != nil {
			return Suggestion{}, err
		}
		a.pending = batch
	}
	next := a.pending[len(a.pending)-1]
	a.pending = a.pending[:len(a.pending)-1]
	return next, nil
}

func (a *LocalSearch) Load(int) {}

func (a *LocalSearch) nextTrials(parameters []param.Parameter, results *table.Table, lowerIsBetter bool) ([]Suggestion, error) {
	a.count++
	if a.count == 1 {
		a.submitted = append(a.submitted, a.seedConfig)
		return repeatSuggestion(NewSuggestion(a.seedConfig), a.repeatTrials), nil
	}

	// Re-seed from the best completed trial so the climb always starts
	// from the best configuration observed so far.
	if results.Len() > 0 {
		completed := results.Completed()
		if idx := completed.BestRowIndex(lowerIsBetter); idx >= 0 {
			best := completed.Row(idx)
			seed := make(map[string]any, len(parameters))
			for _, p := range parameters {
				seed[p.Name] = best[p.Name]
			}
			a.seedConfig = seed
		}
	}

	for _, pi := range a.rng.Perm(len(parameters)) {
		p := parameters[pi]
		if p.Kind == param.Choice {
			for _, vi := range a.rng.Perm(len(p.Values)) {
				candidate := cloneValues(a.seedConfig)
				candidate[p.Name] = p.Values[vi]
				if a.trySubmit(candidate) {
					return repeatSuggestion(NewSuggestion(candidate), a.repeatTrials), nil
				}
			}
			continue
		}
		for _, increase := range shuffledDirections(a.rng) {
			candidate, err := a.perturb(cloneValues(a.seedConfig), p, increase)
			if err != nil {
				return nil, err
			}
			if a.trySubmit(candidate) {
				return repeatSuggestion(NewSuggestion(candidate), a.repeatTrials), nil
			}
		}
	}

	a.logger.Info("all local perturbations have been exhausted and no better local optimum was found")
	return repeatSuggestion(Stop, a.repeatTrials), nil
}

func (a *LocalSearch) trySubmit(candidate map[string]any) bool {
	for _, prev := range a.submitted {
		if reflect.DeepEqual(prev, candidate) {
			return false
		}
	}
	a.submitted = append(a.submitted, candidate)
	return true
}

func (a *LocalSearch) perturb(candidate map[string]any, p param.Parameter, increase bool) (map[string]any, error) {
	switch p.Kind {
	case param.Ordinal:
		idx := param.IndexOf(p.Values, candidate[p.Name])
		if idx < 0 {
			return nil, fmt.Errorf("ordinal parameter %s: value %v not in declared range", p.Name, candidate[p.Name])
		}
		if increase {
			idx++
		} else {
			idx--
		}
		idx = clampIndex(idx, len(p.Values))
		candidate[p.Name] = p.Values[idx]
		return candidate, nil
	case param.Continuous, param.Discrete:
		v, ok := param.AsFloat(candidate[p.Name])
		if !ok {
			return nil, fmt.Errorf("parameter %s: non-numeric value %v cannot be perturbed", p.Name, candidate[p.Name])
		}
		factor := a.factors[0]
		if increase {
			factor = a.factors[1]
		}
		candidate[p.Name] = p.Clamp(v * factor)
		return candidate, nil
	default:
		return nil, fmt.Errorf("unrecognized parameter kind %v for %s", p.Kind, p.Name)
	}
}

func clampIndex(idx, length int) int {
	if idx < 0 {
		return 0
	}
	if idx >= length {
		return length - 1
	}
	return idx
}

func shuffledDirections(rng *rand.Rand) [2]bool {
	if rng.Intn(2) == 0 {
		return [2]bool{true, false}
	}
	return [2]bool{false, true}
}

func repeatSuggestion(s Suggestion, n int) []Suggestion {
	out := make([]Suggestion, n)
	for i := range out {
		out[i] = s
	}
	return out
}
