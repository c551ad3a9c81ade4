package algo

import (
	"fmt"
	"math/rand"
	"strconv"

	"hypertune/internal/param"
	"hypertune/internal/table"
)

// PopulationBasedTrainingConfig configures a PopulationBasedTraining
// instance.
type PopulationBasedTrainingConfig struct {
	// PopulationSize is the number of trials per generation. Zero means
	// twenty; the minimum is five so the explore fraction is non-empty.
	PopulationSize int
	// ParameterRanges optionally narrows the range beyond which a
	// parameter cannot be perturbed, keyed by parameter name. For numeric
	// parameters the slice carries the bounds, for ordinals the allowed
	// values.
	ParameterRanges map[string][]any
	// PerturbationFactors are the multipliers applied to numeric
	// parameters on exploration; one is drawn uniformly per parameter.
	// Nil means {0.8, 1.0, 1.2}.
	PerturbationFactors []float64
	Seed                int64
}

// PopulationBasedTraining implements PBT as introduced by Jaderberg et al.
// Generation one is sampled randomly; later generations continue the top
// 80% of the previous generation's completed trials verbatim and regenerate
// the rest by perturbing uniformly drawn members of the top 20%. Every
// suggestion carries generation, lineage, load_from and save_to bookkeeping
// so the orchestrator can chain checkpoints.
type PopulationBasedTraining struct {
	rng            *rand.Rand
	populationSize int
	ranges         map[string][]any
	factors        []float64
	sampler        *RandomSearch

	count int
}

func NewPopulationBasedTraining(cfg PopulationBasedTrainingConfig) (*PopulationBasedTraining, error) {
	populationSize := cfg.PopulationSize
	if populationSize == 0 {
		populationSize = 20
	}
	if populationSize < 5 {
		return nil, fmt.Errorf("population size must be at least 5, got %d", populationSize)
	}
	factors := cfg.PerturbationFactors
	if len(factors) == 0 {
		factors = []float64{0.8, 1.0, 1.2}
	}
	// Each instance owns its override map; a shared default would leak
	// overrides between instances.
	ranges := make(map[string][]any, len(cfg.ParameterRanges))
	for name, bounds := range cfg.ParameterRanges {
		ranges[name] = append([]any(nil), bounds...)
	}
	return &PopulationBasedTraining{
		rng:            rand.New(rand.NewSource(cfg.Seed)),
		populationSize: populationSize,
		ranges:         ranges,
		factors:        append([]float64(nil), factors...),
		sampler:        NewRandomSearch(RandomSearchConfig{Seed: cfg.Seed}),
	}, nil
}

func (a *PopulationBasedTraining) Name() string { return "population_based_training" }

func (a *PopulationBasedTraining) GetSuggestion(parameters []param.Parameter, results *table.Table, lowerIsBetter bool) (Suggestion, error) {
	a.count++
	generation := (a.count-1)/a.populationSize + 1

	var values map[string]any
	if generation == 1 {
		suggestion, err := a.sampler.GetSuggestion(parameters, results, lowerIsBetter)
		if err != nil {
			return Suggestion{}, err
		}
		values = suggestion.Values
		values[table.ColLineage] = ""
		values[table.ColLoadFrom] = ""
		values[table.ColSaveTo] = strconv.Itoa(a.count)
	} else {
		selected, err := a.truncationSelection(parameters, results, generation, lowerIsBetter)
		if err != nil {
			return Suggestion{}, err
		}
		values = selected
		loadFrom := normalizeID(values[table.ColSaveTo])
		values[table.ColLoadFrom] = loadFrom
		values[table.ColSaveTo] = strconv.Itoa(a.count)
		values[table.ColLineage] = values[table.ColLineage].(string) + loadFrom + ","
	}
	values[table.ColGeneration] = generation
	return NewSuggestion(values), nil
}

// Load derives the submission counter from the number of previously issued
// suggestions.
func (a *PopulationBasedTraining) Load(numTrials int) {
	a.count = numTrials
	a.sampler.Load(numTrials)
}

// truncationSelection continues the top 80% of the previous generation and
// resamples the rest from its top 20%, perturbed.
func (a *PopulationBasedTraining) truncationSelection(parameters []param.Parameter, results *table.Table, generation int, lowerIsBetter bool) (map[string]any, error) {
	prev := results.Completed().
		Filter(func(r table.Row) bool {
			g, ok := r.Int(table.ColGeneration)
			return ok && g == generation-1
		}).
		SortByObjective(lowerIsBetter)

	slot := (a.count - 1) % a.populationSize
	var selected table.Row
	if float64(slot)/float64(a.populationSize) < 0.8 {
		if slot >= prev.Len() {
			return nil, fmt.Errorf("generation %d has %d completed trials, need at least %d for slot %d",
				generation-1, prev.Len(), slot+1, slot)
		}
		selected = prev.Row(slot).Clone()
	} else {
		topFifth := a.populationSize / 5
		if prev.Len() < topFifth {
			return nil, fmt.Errorf("generation %d has %d completed trials, need at least %d to explore",
				generation-1, prev.Len(), topFifth)
		}
		selected = prev.Row(a.rng.Intn(topFifth)).Clone()
		if err := a.perturb(selected, parameters); err != nil {
			return nil, err
		}
	}

	values := make(map[string]any, len(parameters)+3)
	for _, p := range parameters {
		values[p.Name] = selected[p.Name]
	}
	values[table.ColLoadFrom] = selected.Str(table.ColLoadFrom)
	values[table.ColSaveTo] = selected.Str(table.ColSaveTo)
	values[table.ColLineage] = selected.Str(table.ColLineage)
	return values, nil
}

// perturb shifts every parameter of the candidate in place: numeric
// parameters are multiplied by a uniformly drawn perturbation factor and
// clamped to the override range (falling back to the declared range),
// ordinals shift by at most one rank, categoricals are resampled.
func (a *PopulationBasedTraining) perturb(candidate table.Row, parameters []param.Parameter) error {
	for _, p := range parameters {
		switch p.Kind {
		case param.Continuous, param.Discrete:
			v, ok := param.AsFloat(candidate[p.Name])
			if !ok {
				return fmt.Errorf("parameter %s: non-numeric value %v cannot be perturbed", p.Name, candidate[p.Name])
			}
			v *= a.factors[a.rng.Intn(len(a.factors))]
			if p.Kind == param.Discrete {
				v = float64(int(v))
			}
			lo, hi, err := a.boundsFor(p)
			if err != nil {
				return err
			}
			if v < lo {
				v = lo
			}
			if v > hi {
				v = hi
			}
			if p.Kind == param.Discrete {
				candidate[p.Name] = int(v)
			} else {
				candidate[p.Name] = v
			}
		case param.Ordinal:
			values := p.Values
			if override, ok := a.ranges[p.Name]; ok {
				values = override
			}
			idx := param.IndexOf(values, candidate[p.Name])
			if idx < 0 {
				return fmt.Errorf("ordinal parameter %s: value %v not in allowed range", p.Name, candidate[p.Name])
			}
			idx = clampIndex(idx+a.rng.Intn(3)-1, len(values))
			candidate[p.Name] = values[idx]
		case param.Choice:
			candidate[p.Name] = p.Sample(a.rng)
		default:
			return fmt.Errorf("unrecognized parameter kind %v for %s", p.Kind, p.Name)
		}
	}
	return nil
}

// boundsFor resolves the clamping bounds for a numeric parameter,
// preferring the per-instance override range.
func (a *PopulationBasedTraining) boundsFor(p param.Parameter) (float64, float64, error) {
	override, ok := a.ranges[p.Name]
	if !ok || len(override) == 0 {
		return p.Min, p.Max, nil
	}
	lo, hi := 0.0, 0.0
	for i, raw := range override {
		v, ok := param.AsFloat(raw)
		if !ok {
			return 0, 0, fmt.Errorf("parameter %s: non-numeric override bound %v", p.Name, raw)
		}
		if i == 0 || v < lo {
			lo = v
		}
		if i == 0 || v > hi {
			hi = v
		}
	}
	return lo, hi, nil
}

// normalizeID renders a checkpoint identifier cell as the canonical integer
// string, tolerating float-typed cells read back from the results table.
func normalizeID(v any) string {
	switch id := v.(type) {
	case string:
		if f, err := strconv.ParseFloat(id, 64); err == nil {
			return strconv.Itoa(int(f))
		}
		return id
	case int:
		return strconv.Itoa(id)
	case int64:
		return strconv.FormatInt(id, 10)
	case float64:
		return strconv.Itoa(int(id))
	default:
		return fmt.Sprintf("%v", v)
	}
}
