//go:build sqlite

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"hypertune/internal/table"

	_ "modernc.org/sqlite"
)

type SQLiteStore struct {
	path string

	mu sync.RWMutex
	db *sql.DB
}

func NewSQLiteStore(path string) *SQLiteStore {
	return &SQLiteStore{path: path}
}

func (s *SQLiteStore) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == "" {
		return errors.New("sqlite path is required")
	}
	if s.db != nil {
		return nil
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return err
	}
	if err := createTables(ctx, db); err != nil {
		_ = db.Close()
		return err
	}

	s.db = db
	return nil
}

func (s *SQLiteStore) SaveStudy(ctx context.Context, record StudyRecord) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}

	payload, err := EncodeStudy(record)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO studies (id, schema_version, payload)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			schema_version = excluded.schema_version,
			payload = excluded.payload
	`, record.ID, record.SchemaVersion, payload)
	return err
}

func (s *SQLiteStore) GetStudy(ctx context.Context, id string) (StudyRecord, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return StudyRecord{}, false, err
	}

	var payload []byte
	err = db.QueryRowContext(ctx, `SELECT payload FROM studies WHERE id = ?`, id).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return StudyRecord{}, false, nil
		}
		return StudyRecord{}, false, err
	}

	record, err := DecodeStudy(payload)
	if err != nil {
		return StudyRecord{}, false, fmt.Errorf("decode study %s: %w", id, err)
	}
	return record, true, nil
}

func (s *SQLiteStore) AppendObservation(ctx context.Context, studyID string, row table.Row) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}

	payload, err := EncodeObservation(row)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO observations (study_id, payload)
		VALUES (?, ?)
	`, studyID, payload)
	return err
}

func (s *SQLiteStore) Observations(ctx context.Context, studyID string) ([]table.Row, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT payload FROM observations
		WHERE study_id = ?
		ORDER BY seq ASC
	`, studyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []table.Row
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		row, err := DecodeObservation(payload)
		if err != nil {
			return nil, fmt.Errorf("decode observation for study %s: %w", studyID, err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *SQLiteStore) getDB() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, errors.New("store is not initialized")
	}
	return s.db, nil
}

func createTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS studies (
			id TEXT PRIMARY KEY,
			schema_version INTEGER NOT NULL,
			payload BLOB NOT NULL
		);
		CREATE TABLE IF NOT EXISTS observations (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			study_id TEXT NOT NULL,
			payload BLOB NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_observations_study ON observations(study_id);
	`)
	return err
}

func newSQLiteStore(path string) (Store, error) {
	return NewSQLiteStore(path), nil
}
