package algo

import (
	"math"
	"testing"

	"hypertune/internal/table"
)

func observation(trial, iter int, obj float64) table.Row {
	return table.Row{
		table.ColTrialID:   trial,
		table.ColStatus:    table.StatusIntermediate,
		table.ColIteration: iter,
		table.ColObjective: obj,
	}
}

func TestMedianStoppingRuleComparesToMedian(t *testing.T) {
	rule := NewMedianStoppingRule(MedianStoppingRuleConfig{MinIterations: 0, MinTrials: 1})

	// Trial 1 at 5.0 against comparisons {3, 10}: median 6.5, not worse.
	results := table.FromRows([]table.Row{
		observation(1, 1, 5.0),
		observation(2, 1, 3.0),
		observation(3, 1, 10.0),
	})
	if rule.ShouldTrialStop(1, results, true) {
		t.Fatal("5.0 <= median 6.5 should not stop")
	}

	// Against comparisons {1, 2}: median 1.5, strictly worse.
	results = table.FromRows([]table.Row{
		observation(1, 1, 5.0),
		observation(2, 1, 1.0),
		observation(3, 1, 2.0),
	})
	if !rule.ShouldTrialStop(1, results, true) {
		t.Fatal("5.0 > median 1.5 should stop")
	}

	// With higher-is-better the direction flips.
	if rule.ShouldTrialStop(1, results, false) {
		t.Fatal("5.0 is above the median when maximizing")
	}
}

func TestMedianStoppingRuleUsesBestSoFar(t *testing.T) {
	rule := NewMedianStoppingRule(MedianStoppingRuleConfig{MinTrials: 1})
	results := table.FromRows([]table.Row{
		observation(1, 0, 9.0),
		observation(1, 1, 1.0), // best-so-far 1.0 despite a bad start
		observation(2, 1, 2.0),
		observation(3, 1, 3.0),
	})
	if rule.ShouldTrialStop(1, results, true) {
		t.Fatal("best-so-far 1.0 beats median 2.5")
	}
}

func TestMedianStoppingRuleEmptyResults(t *testing.T) {
	rule := NewMedianStoppingRule(MedianStoppingRuleConfig{})
	if rule.ShouldTrialStop(1, table.New(), true) {
		t.Fatal("empty results should never stop")
	}
}

func TestMedianStoppingRuleMinIterationsGate(t *testing.T) {
	rule := NewMedianStoppingRule(MedianStoppingRuleConfig{MinIterations: 5, MinTrials: 1})
	results := table.FromRows([]table.Row{
		observation(1, 2, 100.0),
		observation(2, 6, 1.0),
		observation(3, 6, 2.0),
	})
	if rule.ShouldTrialStop(1, results, true) {
		t.Fatal("trial below min iterations should not stop")
	}

	// Comparison trials below min iterations do not qualify either.
	results = table.FromRows([]table.Row{
		observation(1, 6, 100.0),
		observation(2, 2, 1.0),
		observation(3, 2, 2.0),
	})
	if rule.ShouldTrialStop(1, results, true) {
		t.Fatal("no qualifying comparison trials, should not stop")
	}
}

func TestMedianStoppingRuleMinTrialsGate(t *testing.T) {
	rule := NewMedianStoppingRule(MedianStoppingRuleConfig{MinTrials: 3})
	results := table.FromRows([]table.Row{
		observation(1, 1, 100.0),
		observation(2, 1, 1.0),
		observation(3, 1, 2.0),
	})
	if rule.ShouldTrialStop(1, results, true) {
		t.Fatal("two comparison trials below min_trials of three")
	}
}

func TestMedianStoppingRuleNaNTrialStops(t *testing.T) {
	rule := NewMedianStoppingRule(MedianStoppingRuleConfig{MinTrials: 1})
	results := table.FromRows([]table.Row{
		observation(1, 1, math.NaN()),
		observation(2, 1, 1.0),
	})
	if !rule.ShouldTrialStop(1, results, true) {
		t.Fatal("all-NaN trial should stop")
	}
}

func TestMedianStoppingRuleNaNComparisonsIgnored(t *testing.T) {
	rule := NewMedianStoppingRule(MedianStoppingRuleConfig{MinTrials: 1})
	results := table.FromRows([]table.Row{
		observation(1, 1, 5.0),
		observation(2, 1, math.NaN()),
		observation(3, 1, 1.0),
	})
	// The NaN comparison is ignored by the median; 5.0 > 1.0 stops.
	if !rule.ShouldTrialStop(1, results, true) {
		t.Fatal("expected stop against median of finite comparisons")
	}
}
