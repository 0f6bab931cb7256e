// memory based implementation for testing purposes
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/calmirror/calmirror/event"
	"github.com/calmirror/calmirror/storage"
)

type uidMapping struct {
	uid        string
	calendarID int64
	createdAt  time.Time
}

// Store implements storage.Storage using in-memory maps
type Store struct {
	mu       sync.RWMutex
	events   map[int64]*event.Record
	mappings map[int64]uidMapping
}

// New creates a new in-memory storage
func New() *Store {
	return &Store{
		events:   make(map[int64]*event.Record),
		mappings: make(map[int64]uidMapping),
	}
}

func (s *Store) FetchEvent(_ context.Context, id int64) (*event.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ev, ok := s.events[id]
	if !ok {
		return nil, storage.ErrNotFound
	}

	clone := ev.Clone()
	return &clone, nil
}

func (s *Store) PersistEvent(_ context.Context, ev *event.Record) error {
	if ev == nil || ev.ID == 0 {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	clone := ev.Clone()
	s.events[ev.ID] = &clone
	return nil
}

func (s *Store) FetchUIDMapping(_ context.Context, localID int64) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.mappings[localID]
	if !ok {
		return "", storage.ErrNotFound
	}
	return m.uid, nil
}

func (s *Store) StoreUIDMapping(_ context.Context, localID int64, uid string, calendarID int64) error {
	if localID == 0 || uid == "" || calendarID == 0 {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.mappings[localID]; exists {
		return storage.ErrAlreadyExists
	}

	s.mappings[localID] = uidMapping{
		uid:        uid,
		calendarID: calendarID,
		createdAt:  time.Now(),
	}
	return nil
}

// MappingCount reports how many uid mappings are stored; used by tests
// asserting at-most-one-winner allocation.
func (s *Store) MappingCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.mappings)
}
