package algo

import (
	"fmt"

	"hypertune/internal/param"
	"hypertune/internal/table"
)

// RepeatConfig configures a Repeat wrapper.
type RepeatConfig struct {
	// Algorithm is the wrapped suggestion source.
	Algorithm Algorithm
	// NumTimes repeats every inner suggestion this many times. Zero means
	// five.
	NumTimes int
	// WaitForCompletion makes the wrapper return Wait until all
	// repetitions of the previous configuration have completed, so the
	// inner algorithm always sees fully aggregated groups.
	WaitForCompletion bool
}

// Repeat wraps another algorithm and repeats every inner suggestion
// NumTimes consecutively. When a new inner suggestion is due, completed
// results are grouped by configuration and averaged, so the inner algorithm
// reasons over de-duplicated configurations with mean objectives and the
// variance of the mean.
type Repeat struct {
	inner             Algorithm
	numTimes          int
	waitForCompletion bool

	prevCompleted int
	remaining     int
	current       Suggestion
}

func NewRepeat(cfg RepeatConfig) (*Repeat, error) {
	if cfg.Algorithm == nil {
		return nil, fmt.Errorf("inner algorithm is required")
	}
	numTimes := cfg.NumTimes
	if numTimes <= 0 {
		numTimes = 5
	}
	return &Repeat{
		inner:             cfg.Algorithm,
		numTimes:          numTimes,
		waitForCompletion: cfg.WaitForCompletion,
	}, nil
}

func (a *Repeat) Name() string { return "repeat(" + a.inner.Name() + ")" }

func (a *Repeat) GetSuggestion(parameters []param.Parameter, results *table.Table, lowerIsBetter bool) (Suggestion, error) {
	if a.remaining == 0 {
		aggregated := table.New()
		if results.Len() > 0 {
			completed := results.Completed()
			if a.waitForCompletion && completed.Len() < a.prevCompleted+a.numTimes {
				return Wait, nil
			}
			a.prevCompleted += a.numTimes
			aggregated = a.aggregate(completed, parameters)
		}
		suggestion, err := a.inner.GetSuggestion(parameters, aggregated, lowerIsBetter)
		if err != nil {
			return Suggestion{}, err
		}
		a.current = suggestion
		a.remaining = a.numTimes
	}
	a.remaining--
	return a.current, nil
}

// Load resets the repetition window; the inner algorithm is positioned at
// the number of distinct configurations it issued.
func (a *Repeat) Load(numTrials int) {
	a.remaining = 0
	a.current = Suggestion{}
	a.prevCompleted = numTrials - a.numTimes
	if a.prevCompleted < 0 {
		a.prevCompleted = 0
	}
	a.inner.Load(numTrials / a.numTimes)
}

// aggregate groups completed rows by parameter-value tuple and keeps only
// the fully repeated groups, emitting one row per group with the mean
// objective and the variance of the mean.
func (a *Repeat) aggregate(completed *table.Table, parameters []param.Parameter) *table.Table {
	keys := append(param.Names(parameters), table.ColStatus)
	out := table.New()
	for _, group := range completed.GroupByValues(keys) {
		if group.Count < a.numTimes {
			continue
		}
		row := group.Key.Clone()
		row[table.ColObjective] = group.Mean
		row["varObjective"] = group.VarOfMean
		out.Append(row)
	}
	return out
}
