// Package algo implements the suggestion-algorithm framework: the Algorithm
// contract, the concrete search strategies, and the stopping rules that
// decide early termination. Every strategy derives its next decision from
// the accumulated results table plus private in-memory state; none of them
// perform I/O.
package algo

import (
	"log/slog"

	"hypertune/internal/param"
	"hypertune/internal/table"
)

type suggestionKind int

const (
	suggestionValues suggestionKind = iota
	suggestionStop
	suggestionWait
)

// Suggestion is either a parameter-value mapping to run as a trial, or one
// of two control sentinels: Stop (the search is exhausted) and Wait (no
// suggestion is available yet; retry with updated results).
type Suggestion struct {
	Values map[string]any
	kind   suggestionKind
}

var (
	// Stop signals that no further suggestions will ever be produced.
	Stop = Suggestion{kind: suggestionStop}
	// Wait signals that the caller should retry later without allocating
	// a new trial.
	Wait = Suggestion{kind: suggestionWait}
)

// NewSuggestion wraps a parameter-value mapping.
func NewSuggestion(values map[string]any) Suggestion {
	return Suggestion{Values: values}
}

func (s Suggestion) IsStop() bool { return s.kind == suggestionStop }
func (s Suggestion) IsWait() bool { return s.kind == suggestionWait }

// Algorithm produces parameter configurations to evaluate. Implementations
// keep private state across calls and must be called from a single
// goroutine; the results table is read-only to them.
type Algorithm interface {
	Name() string

	// GetSuggestion returns the next configuration, or a sentinel. results
	// may be empty. Calls are deterministic given identical inputs, prior
	// call history, and seed.
	GetSuggestion(parameters []param.Parameter, results *table.Table, lowerIsBetter bool) (Suggestion, error)

	// Load re-synchronizes internal counters after a resume so that state
	// matches having issued numTrials suggestions. It must be idempotent.
	Load(numTrials int)
}

// StoppingRule decides whether a still-running trial should be stopped
// early given all results so far.
type StoppingRule interface {
	ShouldTrialStop(trialID int, results *table.Table, lowerIsBetter bool) bool
}

// BestResult returns the row achieving the best finite objective, with the
// Status column removed. When no finite-objective row exists it logs a
// warning and returns an empty row instead of failing.
func BestResult(logger *slog.Logger, results *table.Table, lowerIsBetter bool) table.Row {
	if logger == nil {
		logger = slog.Default()
	}
	idx := results.BestRowIndex(lowerIsBetter)
	if idx < 0 {
		logger.Warn("no finite objective values in results, returning empty result")
		return table.Row{}
	}
	row := results.Row(idx).Clone()
	delete(row, table.ColStatus)
	return row
}

func cloneValues(values map[string]any) map[string]any {
	out := make(map[string]any, len(values))
	for k, v := range values {
		out[k] = v
	}
	return out
}
