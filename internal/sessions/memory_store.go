package sessions

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-memory implementation of Store for demo/test use.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session // by ID
}

// NewMemoryStore creates an in-memory session store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]*Session)}
}

func (s *MemoryStore) Create(ctx context.Context, sess *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sessions[sess.ID]; exists {
		return errors.New("session already exists")
	}
	s.sessions[sess.ID] = copySession(sess)
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, exists := s.sessions[id]
	if !exists {
		return nil, ErrNotFound
	}
	return copySession(sess), nil
}

func (s *MemoryStore) RecentActive(ctx context.Context, userID string, since time.Time, limit int) ([]*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*Session
	for _, sess := range s.sessions {
		if sess.UserID == userID && sess.Status == StatusActive && sess.CreatedAt.After(since) {
			result = append(result, copySession(sess))
		}
	}
	sortNewestFirst(result)
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *MemoryStore) ActiveByUser(ctx context.Context, userID string) ([]*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*Session
	for _, sess := range s.sessions {
		if sess.UserID == userID && sess.Status == StatusActive {
			result = append(result, copySession(sess))
		}
	}
	sortNewestFirst(result)
	return result, nil
}

func (s *MemoryStore) Update(ctx context.Context, sess *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sessions[sess.ID]; !exists {
		return ErrNotFound
	}
	s.sessions[sess.ID] = copySession(sess)
	return nil
}

func copySession(s *Session) *Session {
	c := *s
	if s.AnomalyReasons != nil {
		c.AnomalyReasons = append([]AnomalyReason(nil), s.AnomalyReasons...)
	}
	return &c
}

func sortNewestFirst(sessions []*Session) {
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].CreatedAt.After(sessions[j].CreatedAt)
	})
}
