// Package memory is the in-process storage backend. It honors the same
// optimistic-concurrency contract as the postgres adapters and supports the
// snapshot protocol of uow.MemoryManager, which makes it the backend for
// service tests and for running the server without a database.
package memory

import (
	"sync"

	"github.com/felixzhu97/orderflow/pkg/apperr"
)

type Config[T any] struct {
	ID         func(T) string
	Version    func(T) int
	SetVersion func(T, int) T
	Clone      func(T) T
}

// Store is a versioned map of entities. Save inserts at version 0 and
// otherwise performs a compare-and-swap on the version counter.
type Store[T any] struct {
	mu    sync.RWMutex
	name  string
	cfg   Config[T]
	items map[string]T
}

func NewStore[T any](name string, cfg Config[T]) *Store[T] {
	return &Store[T]{name: name, cfg: cfg, items: make(map[string]T)}
}

func (s *Store[T]) Get(id string) (T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.items[id]
	if !ok {
		var zero T
		return zero, apperr.Newf(apperr.CodeNotFound, "%s %s not found", s.name, id)
	}
	return s.cfg.Clone(item), nil
}

func (s *Store[T]) Save(e T) (T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var zero T
	id := s.cfg.ID(e)
	current, exists := s.items[id]

	if s.cfg.Version(e) == 0 {
		if exists {
			return zero, apperr.Newf(apperr.CodeConflict, "%s %s already exists", s.name, id)
		}
		e = s.cfg.SetVersion(e, 1)
		s.items[id] = s.cfg.Clone(e)
		return e, nil
	}

	if !exists {
		return zero, apperr.Newf(apperr.CodeNotFound, "%s %s not found", s.name, id)
	}
	if s.cfg.Version(current) != s.cfg.Version(e) {
		return zero, apperr.Newf(apperr.CodeConcurrentModification,
			"%s %s was modified concurrently (expected version %d, stored %d)",
			s.name, id, s.cfg.Version(e), s.cfg.Version(current))
	}

	e = s.cfg.SetVersion(e, s.cfg.Version(e)+1)
	s.items[id] = s.cfg.Clone(e)
	return e, nil
}

func (s *Store[T]) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[id]; !ok {
		return apperr.Newf(apperr.CodeNotFound, "%s %s not found", s.name, id)
	}
	delete(s.items, id)
	return nil
}

func (s *Store[T]) Exists(id string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.items[id]
	return ok, nil
}

func (s *Store[T]) All() []T {
	return s.Filter(func(T) bool { return true })
}

func (s *Store[T]) Filter(keep func(T) bool) []T {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []T
	for _, item := range s.items {
		if keep(item) {
			out = append(out, s.cfg.Clone(item))
		}
	}
	return out
}

// Snapshot implements uow.Snapshotter.
func (s *Store[T]) Snapshot() func() {
	s.mu.RLock()
	saved := make(map[string]T, len(s.items))
	for k, v := range s.items {
		saved[k] = s.cfg.Clone(v)
	}
	s.mu.RUnlock()

	return func() {
		s.mu.Lock()
		s.items = saved
		s.mu.Unlock()
	}
}
