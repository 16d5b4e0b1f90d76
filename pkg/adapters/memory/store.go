package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/aretw0/rules/pkg/domain"
)

// Store implements ports.VariableStore in memory.
// Safe for concurrent use.
type Store struct {
	data map[string]domain.Variable
	mu   sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[string]domain.Variable),
	}
}

// Save keeps the variable, replacing any previous value of the same name.
func (s *Store) Save(ctx context.Context, v domain.Variable) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[v.Name] = v
	return nil
}

// Load retrieves a variable.
func (s *Store) Load(ctx context.Context, name string) (domain.Variable, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.data[name]
	if !ok {
		return domain.Variable{}, domain.ErrVariableNotFound
	}
	return v, nil
}

// Delete removes a variable.
func (s *Store) Delete(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, name)
	return nil
}

// List returns the stored names in sorted order.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.data))
	for name := range s.data {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Snapshot returns a copy of every stored variable.
func (s *Store) Snapshot() map[string]domain.Variable {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]domain.Variable, len(s.data))
	for k, v := range s.data {
		out[k] = v
	}
	return out
}
