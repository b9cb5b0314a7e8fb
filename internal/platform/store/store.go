// Package store provides the cached state container every domain service
// is built on: a collection mirrored from the remote data service, an
// advisory loading flag, the last error message and an optional selection.
//
// The mutex only protects memory. Remote calls run outside it, so two
// concurrent operations on the same store are not serialized and the last
// one to write the cache wins.
package store

import (
	"context"
	"sync"
	"time"

	"github.com/ehr/ward/internal/platform/telemetry"
)

// DefaultErrorMessage is recorded when a fault carries no message.
const DefaultErrorMessage = "An error occurred"

// State is a point-in-time copy of a store.
type State[T any] struct {
	Items    []T    `json:"items"`
	Loading  bool   `json:"loading"`
	Error    string `json:"error,omitempty"`
	Selected *T     `json:"selected"`
}

type Store[T any, K comparable] struct {
	name    string
	key     func(T) K
	metrics *telemetry.Metrics

	mu       sync.RWMutex
	items    []T
	loading  bool
	err      string
	selected *T
}

// New creates an empty store. key identifies an item for upserts, removal
// and selection refresh.
func New[T any, K comparable](name string, key func(T) K) *Store[T, K] {
	return &Store[T, K]{name: name, key: key}
}

// SetMetrics attaches an optional metrics recorder.
func (s *Store[T, K]) SetMetrics(m *telemetry.Metrics) {
	s.metrics = m
}

func (s *Store[T, K]) Name() string { return s.name }

func (s *Store[T, K]) begin() time.Time {
	s.mu.Lock()
	s.loading = true
	s.err = ""
	s.mu.Unlock()
	return time.Now()
}

func (s *Store[T, K]) finish(op string, start time.Time, err error) {
	s.mu.Lock()
	s.loading = false
	if err != nil {
		s.err = message(err)
	}
	s.mu.Unlock()
	s.metrics.ObserveStore(s.name, op, start, err)
}

func message(err error) string {
	if msg := err.Error(); msg != "" {
		return msg
	}
	return DefaultErrorMessage
}

// Fetch replaces the cached collection with the result of load. A failure is
// recorded in Err and the previous collection is kept; it is not returned.
func (s *Store[T, K]) Fetch(ctx context.Context, load func(ctx context.Context) ([]T, error)) {
	start := s.begin()
	items, err := load(ctx)
	if err == nil {
		s.mu.Lock()
		s.items = items
		s.mu.Unlock()
	}
	s.finish("fetch", start, err)
}

// Mutate performs a remote write and merges the canonical row it returns
// into the cache. Errors are recorded and returned.
func (s *Store[T, K]) Mutate(ctx context.Context, op string, write func(ctx context.Context) (T, error)) (T, error) {
	start := s.begin()
	item, err := write(ctx)
	if err == nil {
		s.upsert(item)
	}
	s.finish(op, start, err)
	return item, err
}

// Remove performs a remote delete and drops the item from the cache,
// clearing the selection when it pointed at the same item.
func (s *Store[T, K]) Remove(ctx context.Context, op string, key K, del func(ctx context.Context) error) error {
	start := s.begin()
	err := del(ctx)
	if err == nil {
		s.mu.Lock()
		kept := s.items[:0:0]
		for _, it := range s.items {
			if s.key(it) != key {
				kept = append(kept, it)
			}
		}
		s.items = kept
		if s.selected != nil && s.key(*s.selected) == key {
			s.selected = nil
		}
		s.mu.Unlock()
	}
	s.finish(op, start, err)
	return err
}

// Run wraps a multi-step operation with the same loading and error
// bookkeeping as Mutate. It leaves an error recorded by a nested Fetch in
// place when fn itself succeeds.
func (s *Store[T, K]) Run(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	start := s.begin()
	err := fn(ctx)
	s.finish(op, start, err)
	return err
}

func (s *Store[T, K]) upsert(item T) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := s.key(item)
	replaced := false
	for i := range s.items {
		if s.key(s.items[i]) == k {
			s.items[i] = item
			replaced = true
			break
		}
	}
	if !replaced {
		s.items = append([]T{item}, s.items...)
	}
	if s.selected != nil && s.key(*s.selected) == k {
		cp := item
		s.selected = &cp
	}
}

// SetSelected hands a single record to another workflow. It never calls the
// remote data service. Pass nil to clear.
func (s *Store[T, K]) SetSelected(item *T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if item == nil {
		s.selected = nil
		return
	}
	cp := *item
	s.selected = &cp
}

// Selected returns a copy of the selection, or nil.
func (s *Store[T, K]) Selected() *T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.selected == nil {
		return nil
	}
	cp := *s.selected
	return &cp
}

// Find looks an item up in the cache.
func (s *Store[T, K]) Find(key K) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, it := range s.items {
		if s.key(it) == key {
			return it, true
		}
	}
	var zero T
	return zero, false
}

// Items returns a copy of the cached collection.
func (s *Store[T, K]) Items() []T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]T, len(s.items))
	copy(out, s.items)
	return out
}

func (s *Store[T, K]) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// Err returns the message of the last failed operation, or "".
func (s *Store[T, K]) Err() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

// Snapshot copies the whole state under one lock.
func (s *Store[T, K]) Snapshot() State[T] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := State[T]{
		Items:   make([]T, len(s.items)),
		Loading: s.loading,
		Error:   s.err,
	}
	copy(st.Items, s.items)
	if s.selected != nil {
		cp := *s.selected
		st.Selected = &cp
	}
	return st
}
