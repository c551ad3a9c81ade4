package study

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"testing"

	"hypertune/internal/algo"
	"hypertune/internal/storage"
	"hypertune/internal/table"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func iterateStudy(t *testing.T, store storage.Store) (*Study, Config) {
	t.Helper()

	alg, err := algo.NewIterate([]map[string]any{
		{"act": "relu", "units": 32},
		{"act": "tanh", "units": 64},
		{"act": "relu", "units": 64},
	})
	if err != nil {
		t.Fatalf("NewIterate failed: %v", err)
	}
	params, err := alg.Parameters()
	if err != nil {
		t.Fatalf("Parameters failed: %v", err)
	}

	cfg := Config{
		Parameters:    params,
		Algorithm:     alg,
		LowerIsBetter: true,
		Store:         store,
		Logger:        discardLogger(),
	}
	s, err := New(cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return s, cfg
}

func TestStudyRunsToExhaustion(t *testing.T) {
	ctx := context.Background()
	s, _ := iterateStudy(t, nil)

	losses := []float64{0.9, 0.2, 0.5}
	for i := 0; i < 3; i++ {
		trial, err := s.GetSuggestion(ctx)
		if err != nil {
			t.Fatalf("GetSuggestion %d failed: %v", i, err)
		}
		if trial.ID != i+1 {
			t.Fatalf("trial id = %d, want %d", trial.ID, i+1)
		}
		if err := s.AddObservation(ctx, trial.ID, 0, losses[i]+1); err != nil {
			t.Fatalf("AddObservation failed: %v", err)
		}
		if err := s.AddObservation(ctx, trial.ID, 1, losses[i]); err != nil {
			t.Fatalf("AddObservation failed: %v", err)
		}
		if err := s.FinalizeTrial(ctx, trial.ID, table.StatusCompleted); err != nil {
			t.Fatalf("FinalizeTrial failed: %v", err)
		}
	}

	if _, err := s.GetSuggestion(ctx); !errors.Is(err, ErrSearchExhausted) {
		t.Fatalf("expected ErrSearchExhausted, got %v", err)
	}

	best := s.BestResult()
	if best.Objective() != 0.2 {
		t.Fatalf("best objective = %v, want 0.2", best.Objective())
	}
	if best["act"] != "tanh" || best["units"] != 64 {
		t.Fatalf("best parameters = %v", best)
	}
	if s.NumTrials() != 3 {
		t.Fatalf("NumTrials = %d, want 3", s.NumTrials())
	}
}

func TestFinalizeUsesLastObservation(t *testing.T) {
	ctx := context.Background()
	s, _ := iterateStudy(t, nil)

	trial, err := s.GetSuggestion(ctx)
	if err != nil {
		t.Fatalf("GetSuggestion failed: %v", err)
	}
	if err := s.AddObservation(ctx, trial.ID, 0, 3.0); err != nil {
		t.Fatalf("AddObservation failed: %v", err)
	}
	if err := s.AddObservation(ctx, trial.ID, 1, 1.5); err != nil {
		t.Fatalf("AddObservation failed: %v", err)
	}
	if err := s.FinalizeTrial(ctx, trial.ID, table.StatusCompleted); err != nil {
		t.Fatalf("FinalizeTrial failed: %v", err)
	}

	rows := s.Results().Completed().Rows()
	if len(rows) != 1 {
		t.Fatalf("expected 1 completed row, got %d", len(rows))
	}
	if rows[0].Objective() != 1.5 || rows[0].Iteration() != 1 {
		t.Fatalf("final row = %v", rows[0])
	}
}

func TestFinalizeWithoutObservationRecordsNaN(t *testing.T) {
	ctx := context.Background()
	s, _ := iterateStudy(t, nil)

	trial, err := s.GetSuggestion(ctx)
	if err != nil {
		t.Fatalf("GetSuggestion failed: %v", err)
	}
	if err := s.FinalizeTrial(ctx, trial.ID, table.StatusFailed); err != nil {
		t.Fatalf("FinalizeTrial failed: %v", err)
	}

	rows := s.Results().Rows()
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	if !math.IsNaN(rows[0].Objective()) {
		t.Fatalf("objective = %v, want NaN", rows[0].Objective())
	}
	if rows[0].Status() != table.StatusFailed {
		t.Fatalf("status = %s", rows[0].Status())
	}
}

func TestStudyRejectsBadInput(t *testing.T) {
	ctx := context.Background()

	if _, err := New(Config{}); err == nil {
		t.Fatalf("expected error for missing algorithm")
	}

	s, _ := iterateStudy(t, nil)
	if err := s.AddObservation(ctx, 42, 0, 1.0); err == nil {
		t.Fatalf("expected error for unknown trial")
	}
	if err := s.FinalizeTrial(ctx, 42, table.StatusCompleted); err == nil {
		t.Fatalf("expected error for unknown trial")
	}

	trial, err := s.GetSuggestion(ctx)
	if err != nil {
		t.Fatalf("GetSuggestion failed: %v", err)
	}
	if err := s.FinalizeTrial(ctx, trial.ID, table.StatusIntermediate); err == nil {
		t.Fatalf("expected error for non-terminal status")
	}
}

func TestShouldTrialStopWithoutRule(t *testing.T) {
	s, _ := iterateStudy(t, nil)
	if s.ShouldTrialStop(1) {
		t.Fatalf("no stopping rule configured, ShouldTrialStop must be false")
	}
}

func TestStudyResume(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	s, _ := iterateStudy(t, store)
	for i := 0; i < 2; i++ {
		trial, err := s.GetSuggestion(ctx)
		if err != nil {
			t.Fatalf("GetSuggestion failed: %v", err)
		}
		if err := s.AddObservation(ctx, trial.ID, 0, float64(i)+0.5); err != nil {
			t.Fatalf("AddObservation failed: %v", err)
		}
		if err := s.FinalizeTrial(ctx, trial.ID, table.StatusCompleted); err != nil {
			t.Fatalf("FinalizeTrial failed: %v", err)
		}
	}

	// Fresh algorithm instance, as after a process restart.
	_, cfg := iterateStudy(t, store)
	resumed, err := Resume(ctx, cfg, s.ID())
	if err != nil {
		t.Fatalf("Resume failed: %v", err)
	}
	if resumed.ID() != s.ID() {
		t.Fatalf("resumed id = %s, want %s", resumed.ID(), s.ID())
	}
	if resumed.NumTrials() != 2 {
		t.Fatalf("resumed NumTrials = %d, want 2", resumed.NumTrials())
	}
	if resumed.Results().Len() != 4 {
		t.Fatalf("resumed table has %d rows, want 4", resumed.Results().Len())
	}

	// The iterate cursor continues with the third configuration.
	trial, err := resumed.GetSuggestion(ctx)
	if err != nil {
		t.Fatalf("GetSuggestion after resume failed: %v", err)
	}
	if trial.ID != 3 {
		t.Fatalf("trial id after resume = %d, want 3", trial.ID)
	}
	if trial.Parameters["act"] != "relu" || trial.Parameters["units"] != 64 {
		t.Fatalf("trial after resume = %v", trial.Parameters)
	}
	if _, err := resumed.GetSuggestion(ctx); !errors.Is(err, ErrSearchExhausted) {
		t.Fatalf("expected ErrSearchExhausted, got %v", err)
	}

	best := resumed.BestResult()
	if best.Objective() != 0.5 {
		t.Fatalf("best objective after resume = %v, want 0.5", best.Objective())
	}
}

func TestResumeChecksHeader(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	s, cfg := iterateStudy(t, store)
	if _, err := s.GetSuggestion(ctx); err != nil {
		t.Fatalf("GetSuggestion failed: %v", err)
	}

	if _, err := Resume(ctx, cfg, "no-such-study"); err == nil {
		t.Fatalf("expected error for unknown study id")
	}

	flipped := cfg
	flipped.LowerIsBetter = false
	if _, err := Resume(ctx, flipped, s.ID()); err == nil {
		t.Fatalf("expected error for mismatched optimization direction")
	}

	other := cfg
	other.Algorithm = algo.NewRandomSearch(algo.RandomSearchConfig{Seed: 1})
	if _, err := Resume(ctx, other, s.ID()); err == nil {
		t.Fatalf("expected error for mismatched algorithm")
	}
}
