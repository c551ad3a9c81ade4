//go:build sqlite

package storage

import (
	"context"
	"path/filepath"
	"testing"

	"hypertune/internal/table"
)

func TestSQLiteStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "studies.db")

	s := NewSQLiteStore(path)
	if err := s.Init(ctx); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	defer func() {
		if err := s.Close(); err != nil {
			t.Fatalf("Close failed: %v", err)
		}
	}()

	record := StudyRecord{
		SchemaVersion: CurrentSchemaVersion,
		ID:            "study-1",
		Algorithm:     "grid-search",
		LowerIsBetter: true,
		NumTrials:     2,
	}
	if err := s.SaveStudy(ctx, record); err != nil {
		t.Fatalf("SaveStudy failed: %v", err)
	}
	record.NumTrials = 3
	if err := s.SaveStudy(ctx, record); err != nil {
		t.Fatalf("SaveStudy upsert failed: %v", err)
	}

	got, ok, err := s.GetStudy(ctx, "study-1")
	if err != nil {
		t.Fatalf("GetStudy failed: %v", err)
	}
	if !ok {
		t.Fatalf("expected study to exist")
	}
	if got != record {
		t.Fatalf("round trip mismatch: got %+v want %+v", got, record)
	}

	for i := 0; i < 3; i++ {
		row := table.Row{
			table.ColTrialID:   i + 1,
			table.ColStatus:    table.StatusCompleted,
			table.ColObjective: float64(i) / 2,
			"units":            32 * (i + 1),
		}
		if err := s.AppendObservation(ctx, "study-1", row); err != nil {
			t.Fatalf("AppendObservation failed: %v", err)
		}
	}

	obs, err := s.Observations(ctx, "study-1")
	if err != nil {
		t.Fatalf("Observations failed: %v", err)
	}
	if len(obs) != 3 {
		t.Fatalf("expected 3 observations, got %d", len(obs))
	}
	for i, row := range obs {
		if row.TrialID() != i+1 {
			t.Fatalf("observation %d has trial id %d", i, row.TrialID())
		}
	}

	if _, ok, err := s.GetStudy(ctx, "missing"); err != nil || ok {
		t.Fatalf("missing study: ok=%v err=%v", ok, err)
	}
}

func TestSQLiteStoreRequiresInit(t *testing.T) {
	s := NewSQLiteStore(filepath.Join(t.TempDir(), "x.db"))
	if _, err := s.Observations(context.Background(), "s"); err == nil {
		t.Fatalf("expected error before Init")
	}
}
