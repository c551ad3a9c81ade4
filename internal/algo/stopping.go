package algo

import (
	"log/slog"
	"math"

	"hypertune/internal/table"
)

// MedianStoppingRuleConfig configures a MedianStoppingRule.
type MedianStoppingRuleConfig struct {
	// MinIterations is the number of iterations a trial must reach before
	// it is considered for stopping.
	MinIterations int
	// MinTrials is the number of comparison trials required before any
	// trial is stopped. Zero means one.
	MinTrials int
	Logger    *slog.Logger
}

// MedianStoppingRule stops a trial whose best-so-far objective is worse
// than the median of the best-so-far objectives of all other qualifying
// trials, after Golovin et al., "Google Vizier: A Service for Black-Box
// Optimization".
type MedianStoppingRule struct {
	minIterations int
	minTrials     int
	logger        *slog.Logger
}

func NewMedianStoppingRule(cfg MedianStoppingRuleConfig) *MedianStoppingRule {
	minTrials := cfg.MinTrials
	if minTrials <= 0 {
		minTrials = 1
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &MedianStoppingRule{
		minIterations: cfg.MinIterations,
		minTrials:     minTrials,
		logger:        logger,
	}
}

func (r *MedianStoppingRule) ShouldTrialStop(trialID int, results *table.Table, lowerIsBetter bool) bool {
	if results.Len() == 0 {
		return false
	}

	trialRows := results.TrialRows(trialID)
	if trialRows.MaxIteration() < r.minIterations {
		return false
	}

	trialBest := trialRows.BestObjective(lowerIsBetter)
	if math.IsNaN(trialBest) && trialRows.Len() > 0 {
		// Nothing measurable after min iterations: treat as the worst
		// possible outcome and stop.
		r.logger.Debug("trial objective is NaN, stopping", "trial_id", trialID)
		return true
	}

	var comparison []float64
	for _, otherID := range results.TrialIDs() {
		if otherID == trialID {
			continue
		}
		otherRows := results.TrialRows(otherID)
		if otherRows.MaxIteration() < r.minIterations {
			continue
		}
		comparison = append(comparison, otherRows.BestObjective(lowerIsBetter))
	}
	if len(comparison) < r.minTrials {
		return false
	}

	median := table.NaNMedian(comparison)
	if lowerIsBetter {
		return trialBest > median
	}
	return trialBest < median
}
