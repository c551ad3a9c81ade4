package algo

import (
	"math/rand"

	"hypertune/internal/param"
	"hypertune/internal/table"
)

// GeneticConfig configures a Genetic instance.
type GeneticConfig struct {
	// MutationRate is the per-parameter probability of resampling fresh
	// instead of inheriting from a parent. Nil means the default 0.1;
	// pointing at 0 selects pure crossover.
	MutationRate *float64
	// MaxNumTrials caps the number of suggestions. Zero means unlimited.
	MaxNumTrials int
	// MinCandidates is the population size below which parents are
	// replaced by fresh samples. Zero means ten.
	MinCandidates int
	Seed          int64
}

// Genetic produces each suggestion by two-parent crossover with mutation.
// Parents are drawn uniformly from the top third of the non-intermediate
// population; while the population is smaller than MinCandidates, fresh
// samples stand in for parents.
type Genetic struct {
	rng           *rand.Rand
	mutationRate  float64
	maxNumTrials  int
	minCandidates int

	count int
}

func NewGenetic(cfg GeneticConfig) *Genetic {
	mutationRate := 0.1
	if cfg.MutationRate != nil {
		mutationRate = *cfg.MutationRate
	}
	if mutationRate < 0 {
		mutationRate = 0
	}
	if mutationRate > 1 {
		mutationRate = 1
	}
	minCandidates := cfg.MinCandidates
	if minCandidates <= 0 {
		minCandidates = 10
	}
	return &Genetic{
		rng:           rand.New(rand.NewSource(cfg.Seed)),
		mutationRate:  mutationRate,
		maxNumTrials:  cfg.MaxNumTrials,
		minCandidates: minCandidates,
	}
}

func (a *Genetic) Name() string { return "genetic" }

func (a *Genetic) GetSuggestion(parameters []param.Parameter, results *table.Table, lowerIsBetter bool) (Suggestion, error) {
	if a.maxNumTrials > 0 && a.count >= a.maxNumTrials {
		return Stop, nil
	}

	parentA := a.candidate(parameters, results, lowerIsBetter)
	parentB := a.candidate(parameters, results, lowerIsBetter)

	values := make(map[string]any, len(parameters))
	for _, p := range parameters {
		// The unit interval splits into mutation mass and two equal
		// inheritance halves; each parameter draws independently.
		u := a.rng.Float64()
		switch {
		case u < a.mutationRate:
			values[p.Name] = p.Sample(a.rng)
		case u < a.mutationRate+(1-a.mutationRate)/2:
			values[p.Name] = parentA[p.Name]
		default:
			values[p.Name] = parentB[p.Name]
		}
	}
	a.count++
	return NewSuggestion(values), nil
}

// Load derives the suggestion counter from the number of previously issued
// suggestions.
func (a *Genetic) Load(numTrials int) {
	a.count = numTrials
}

// candidate draws one parent uniformly from the top third of the sorted
// non-intermediate population, or samples fresh below MinCandidates.
func (a *Genetic) candidate(parameters []param.Parameter, results *table.Table, lowerIsBetter bool) map[string]any {
	population := results.Filter(func(r table.Row) bool {
		return r.Status() != table.StatusIntermediate
	})
	if population.Len() < a.minCandidates {
		values := make(map[string]any, len(parameters))
		for _, p := range parameters {
			values[p.Name] = p.Sample(a.rng)
		}
		return values
	}

	sorted := population.SortByObjective(lowerIsBetter)
	topThird := sorted.Len() / 3
	if topThird < 1 {
		topThird = 1
	}
	row := sorted.Row(a.rng.Intn(topThird))
	values := make(map[string]any, len(parameters))
	for _, p := range parameters {
		values[p.Name] = row[p.Name]
	}
	return values
}
