package storage

import (
	"context"
	"sync"

	"hypertune/internal/table"
)

type MemoryStore struct {
	mu           sync.RWMutex
	initialized  bool
	studies      map[string]StudyRecord
	observations map[string][]table.Row
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.initialized = true
	s.studies = make(map[string]StudyRecord)
	s.observations = make(map[string][]table.Row)
	return nil
}

func (s *MemoryStore) SaveStudy(_ context.Context, record StudyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.studies[record.ID] = record
	return nil
}

func (s *MemoryStore) GetStudy(_ context.Context, id string) (StudyRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.studies[id]
	return record, ok, nil
}

func (s *MemoryStore) AppendObservation(_ context.Context, studyID string, row table.Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.observations[studyID] = append(s.observations[studyID], row.Clone())
	return nil
}

func (s *MemoryStore) Observations(_ context.Context, studyID string) ([]table.Row, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored := s.observations[studyID]
	out := make([]table.Row, len(stored))
	for i, row := range stored {
		out[i] = row.Clone()
	}
	return out, nil
}
