package ledger

import (
	"context"
	"encoding/json"
	"sync"
)

// MemStore is an in-memory Store used in tests and for ephemeral deployments.
// It keeps the same whole-document save semantics as the file store.
type MemStore struct {
	mu      sync.Mutex
	records map[string]json.RawMessage
	saves   int
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{records: map[string]json.RawMessage{}}
}

// Seed replaces the stored records, for constructing load-time fixtures.
func (s *MemStore) Seed(records map[string]json.RawMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = records
}

// Saves reports how many whole-document rewrites have happened.
func (s *MemStore) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

func (s *MemStore) Load(ctx context.Context) (map[string]json.RawMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]json.RawMessage, len(s.records))
	for k, v := range s.records {
		out[k] = v
	}
	return out, nil
}

func (s *MemStore) Save(ctx context.Context, records map[string]json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]json.RawMessage, len(records))
	for k, v := range records {
		out[k] = v
	}
	s.records = out
	s.saves++
	return nil
}
