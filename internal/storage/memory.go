package storage

import (
	"context"
	"errors"
	"sync"

	"baqec/internal/model"
)

type MemoryStore struct {
	mu          sync.RWMutex
	initialized bool
	sweeps      map[string]model.SweepRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.initialized = true
	if s.sweeps == nil {
		s.sweeps = make(map[string]model.SweepRecord)
	}
	return nil
}

func (s *MemoryStore) SaveSweep(_ context.Context, record model.SweepRecord) error {
	if record.ID == "" {
		return errors.New("sweep id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return errors.New("store is not initialized")
	}
	s.sweeps[record.ID] = cloneSweep(record)
	return nil
}

func (s *MemoryStore) GetSweep(_ context.Context, id string) (model.SweepRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.sweeps[id]
	if !ok {
		return model.SweepRecord{}, false, nil
	}
	return cloneSweep(record), true, nil
}

func (s *MemoryStore) ListSweeps(_ context.Context) ([]model.SweepRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make([]model.SweepRecord, 0, len(s.sweeps))
	for _, record := range s.sweeps {
		records = append(records, cloneSweep(record))
	}
	sortNewestFirst(records)
	return records, nil
}

func (s *MemoryStore) DeleteSweep(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sweeps, id)
	return nil
}
