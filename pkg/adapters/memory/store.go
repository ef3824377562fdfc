// Package memory provides an in-memory history store for tests and
// ephemeral sessions.
package memory

import (
	"context"
	"sync"

	"github.com/scriptdeck/scriptdeck/pkg/domain"
)

// Store implements ports.HistoryStore in memory. Safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	history map[string][]domain.RunRecord
}

// New creates an empty Store.
func New() *Store {
	return &Store{history: map[string][]domain.RunRecord{}}
}

// Load returns a deep copy of the stored history.
func (s *Store) Load(ctx context.Context) (map[string][]domain.RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string][]domain.RunRecord, len(s.history))
	for name, list := range s.history {
		cp := make([]domain.RunRecord, len(list))
		copy(cp, list)
		out[name] = cp
	}
	return out, nil
}

// Save replaces the stored history with a deep copy of the argument.
func (s *Store) Save(ctx context.Context, history map[string][]domain.RunRecord) error {
	cp := make(map[string][]domain.RunRecord, len(history))
	for name, list := range history {
		l := make([]domain.RunRecord, len(list))
		copy(l, list)
		cp[name] = l
	}

	s.mu.Lock()
	s.history = cp
	s.mu.Unlock()
	return nil
}
