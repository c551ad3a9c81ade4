package algo

import (
	"hypertune/internal/param"
	"hypertune/internal/table"
)

// SampleStudy returns a canonical (parameters, results, lowerIsBetter)
// triple for algorithm development and testing. Losses follow
//
//	loss = a / (iteration + 1) * b
//
// over a categorical parameter a in {1, 2, 3} and a continuous parameter b
// in [0, 1]. Six trials are included, each with three intermediate
// observations and one completed row.
func SampleStudy() ([]param.Parameter, *table.Table, bool) {
	a, err := param.NewChoice("param_a", []any{1, 2, 3})
	if err != nil {
		panic(err)
	}
	b, err := param.NewContinuous("param_b", 0, 1, param.ScaleLinear)
	if err != nil {
		panic(err)
	}
	parameters := []param.Parameter{a, b}

	results := table.New()
	for trial := 1; trial <= 6; trial++ {
		va := (trial-1)%3 + 1
		vb := 0.1 * float64(trial)
		var loss float64
		for iter := 0; iter <= 2; iter++ {
			loss = float64(va) / float64(iter+1) * vb
			results.Append(table.Row{
				table.ColTrialID:   trial,
				table.ColStatus:    table.StatusIntermediate,
				table.ColIteration: iter,
				table.ColObjective: loss,
				"param_a":          va,
				"param_b":          vb,
			})
		}
		results.Append(table.Row{
			table.ColTrialID:   trial,
			table.ColStatus:    table.StatusCompleted,
			table.ColIteration: 2,
			table.ColObjective: loss,
			"param_a":          va,
			"param_b":          vb,
		})
	}
	return parameters, results, true
}
