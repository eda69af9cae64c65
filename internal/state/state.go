package state

import (
	"context"
	"sync"

	"github.com/zeebo/errs"

	"launchsync/internal/model"
)

// Error is the class of all storage failures (reads, writes and scans).
var Error = errs.Class("state")

// Store abstracts the launches table keyed by launch_id.
type Store interface {
	// Get returns the stored launch, found=false when the key is absent.
	Get(ctx context.Context, launchID string) (model.Launch, bool, error)
	// Put replaces the whole item stored under l.LaunchID.
	Put(ctx context.Context, l model.Launch) error
	// Range visits every stored item in backend order.
	Range(ctx context.Context, fn func(l model.Launch) error) error
}

// InMemoryStore is a simple thread-safe map store.
type InMemoryStore struct {
	mu   sync.RWMutex
	data map[string]model.Launch
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{data: make(map[string]model.Launch)}
}

func (s *InMemoryStore) Get(_ context.Context, launchID string) (model.Launch, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.data[launchID]
	return l, ok, nil
}

func (s *InMemoryStore) Put(_ context.Context, l model.Launch) error {
	if l.LaunchID == "" {
		return Error.New("empty launch_id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[l.LaunchID] = l
	return nil
}

func (s *InMemoryStore) Range(_ context.Context, fn func(l model.Launch) error) error {
	s.mu.RLock()
	items := make([]model.Launch, 0, len(s.data))
	for _, v := range s.data {
		items = append(items, v)
	}
	s.mu.RUnlock()
	for _, v := range items {
		if err := fn(v); err != nil {
			return Error.Wrap(err)
		}
	}
	return nil
}

// Len reports the number of stored items.
func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}
