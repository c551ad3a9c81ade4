package algo

import (
	"testing"

	"hypertune/internal/param"
	"hypertune/internal/table"
)

func topThirdValues(results *table.Table, name string, lowerIsBetter bool) map[any]struct{} {
	sorted := results.SortByObjective(lowerIsBetter)
	top := sorted.Len() / 3
	values := make(map[any]struct{})
	for i := 0; i < top; i++ {
		values[sorted.Row(i)[name]] = struct{}{}
	}
	return values
}

func geneticPopulation(n int) *table.Table {
	results := table.New()
	for i := 1; i <= n; i++ {
		results.Append(completedRow(i, float64(i), map[string]any{"lr": 0.01 * float64(i)}))
	}
	return results
}

func floatPtr(v float64) *float64 { return &v }

func TestGeneticZeroMutationInheritsFromParents(t *testing.T) {
	parameters := []param.Parameter{mustContinuous(t, "lr", 0.001, 1)}
	results := geneticPopulation(12)
	elite := topThirdValues(results, "lr", true)

	genetic := NewGenetic(GeneticConfig{MutationRate: floatPtr(0), Seed: 5})
	for i := 0; i < 100; i++ {
		s, err := genetic.GetSuggestion(parameters, results, true)
		if err != nil {
			t.Fatalf("get suggestion: %v", err)
		}
		if _, ok := elite[s.Values["lr"]]; !ok {
			t.Fatalf("draw %d: value %v is not a parent value", i, s.Values["lr"])
		}
	}
}

func TestGeneticMutationRateDefaults(t *testing.T) {
	if got := NewGenetic(GeneticConfig{}).mutationRate; got != 0.1 {
		t.Fatalf("nil rate: got %v, want the 0.1 default", got)
	}
	if got := NewGenetic(GeneticConfig{MutationRate: floatPtr(0)}).mutationRate; got != 0 {
		t.Fatalf("explicit zero rate: got %v, want 0", got)
	}
	if got := NewGenetic(GeneticConfig{MutationRate: floatPtr(1.5)}).mutationRate; got != 1 {
		t.Fatalf("rate above one: got %v, want clamp to 1", got)
	}
}

func TestGeneticColdStartSamplesFresh(t *testing.T) {
	parameters := []param.Parameter{mustContinuous(t, "lr", 0.001, 1)}
	// Nine non-intermediate rows is below the default minimum of ten.
	results := geneticPopulation(9)

	genetic := NewGenetic(GeneticConfig{Seed: 5})
	s, err := genetic.GetSuggestion(parameters, results, true)
	if err != nil {
		t.Fatalf("get suggestion: %v", err)
	}
	lr := s.Values["lr"].(float64)
	if lr < 0.001 || lr > 1 {
		t.Fatalf("fresh sample %v out of range", lr)
	}
}

func TestGeneticIgnoresIntermediateRows(t *testing.T) {
	parameters := []param.Parameter{mustContinuous(t, "lr", 0.001, 1)}
	results := geneticPopulation(12)
	for i := 13; i <= 20; i++ {
		results.Append(table.Row{
			table.ColTrialID:   i,
			table.ColStatus:    table.StatusIntermediate,
			table.ColIteration: 0,
			table.ColObjective: 0.0001,
			"lr":               0.99,
		})
	}
	elite := topThirdValues(results.Filter(func(r table.Row) bool {
		return r.Status() != table.StatusIntermediate
	}), "lr", true)

	genetic := NewGenetic(GeneticConfig{MutationRate: floatPtr(0), Seed: 5})
	for i := 0; i < 50; i++ {
		s, err := genetic.GetSuggestion(parameters, results, true)
		if err != nil {
			t.Fatalf("get suggestion: %v", err)
		}
		if s.Values["lr"] == 0.99 {
			t.Fatal("intermediate rows must not become parents")
		}
		if _, ok := elite[s.Values["lr"]]; !ok {
			t.Fatalf("value %v is not from the completed top third", s.Values["lr"])
		}
	}
}

func TestGeneticTrialCap(t *testing.T) {
	parameters := []param.Parameter{mustContinuous(t, "lr", 0.001, 1)}
	genetic := NewGenetic(GeneticConfig{MaxNumTrials: 3, Seed: 5})

	for i := 0; i < 3; i++ {
		s, err := genetic.GetSuggestion(parameters, table.New(), true)
		if err != nil {
			t.Fatalf("get suggestion: %v", err)
		}
		if s.IsStop() {
			t.Fatalf("premature stop at call %d", i)
		}
	}
	s, err := genetic.GetSuggestion(parameters, table.New(), true)
	if err != nil {
		t.Fatalf("get suggestion: %v", err)
	}
	if !s.IsStop() {
		t.Fatal("expected stop at the trial cap")
	}
}

func TestGeneticLoadResumesCount(t *testing.T) {
	parameters := []param.Parameter{mustContinuous(t, "lr", 0.001, 1)}
	genetic := NewGenetic(GeneticConfig{MaxNumTrials: 3, Seed: 5})
	genetic.Load(3)

	s, err := genetic.GetSuggestion(parameters, table.New(), true)
	if err != nil {
		t.Fatalf("get suggestion: %v", err)
	}
	if !s.IsStop() {
		t.Fatal("resumed instance should already be at the cap")
	}
}
