// Package storage persists study metadata and trial observations so an
// interrupted search can resume. The engine itself never touches a store;
// the study layer writes through it and replays it on resume.
package storage

import (
	"context"

	"hypertune/internal/table"
)

// StudyRecord is the persisted study header. NumTrials counts the
// suggestions issued so far and drives Algorithm.Load on resume.
type StudyRecord struct {
	SchemaVersion int    `json:"schema_version"`
	ID            string `json:"id"`
	Algorithm     string `json:"algorithm"`
	LowerIsBetter bool   `json:"lower_is_better"`
	NumTrials     int    `json:"num_trials"`
}

// Store defines the persistence operations the study layer relies on.
// Observations are append-only and replayed in insertion order.
type Store interface {
	Init(ctx context.Context) error
	SaveStudy(ctx context.Context, record StudyRecord) error
	GetStudy(ctx context.Context, id string) (StudyRecord, bool, error)
	AppendObservation(ctx context.Context, studyID string, row table.Row) error
	Observations(ctx context.Context, studyID string) ([]table.Row, error)
}
