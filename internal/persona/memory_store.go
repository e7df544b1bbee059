package persona

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore is an in-memory persona store for development and tests.
type MemoryStore struct {
	mu       sync.RWMutex
	personas map[string]*Persona
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{personas: make(map[string]*Persona)}
}

func (s *MemoryStore) Create(_ context.Context, p *Persona) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.personas[p.ID] = copyPersona(p)
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*Persona, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.personas[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyPersona(p), nil
}

func (s *MemoryStore) ListByUser(_ context.Context, userID string) ([]*Persona, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Persona
	for _, p := range s.personas {
		if p.UserID == userID {
			out = append(out, copyPersona(p))
		}
	}
	sortNewestFirst(out)
	return out, nil
}

func (s *MemoryStore) Update(_ context.Context, p *Persona) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.personas[p.ID]; !ok {
		return ErrNotFound
	}
	s.personas[p.ID] = copyPersona(p)
	return nil
}

func copyPersona(p *Persona) *Persona {
	cp := *p
	return &cp
}

func sortNewestFirst(list []*Persona) {
	sort.Slice(list, func(i, j int) bool {
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
}
