// Package memory provides an in-memory Store implementation for unit
// testing.
package memory

import (
	"context"
	"sort"
	"sync"

	hooks "github.com/VersatilVC/organize-prime-sub010"
	"github.com/VersatilVC/organize-prime-sub010/delivery"
	"github.com/VersatilVC/organize-prime-sub010/endpoint"
	"github.com/VersatilVC/organize-prime-sub010/id"
	hookstore "github.com/VersatilVC/organize-prime-sub010/store"
)

// compile-time interface check.
var _ hookstore.Store = (*Store)(nil)

// Store is an in-memory implementation of store.Store for testing.
type Store struct {
	mu sync.RWMutex

	endpoints map[string]*endpoint.Endpoint // keyed by ID string
	events    []*delivery.Event             // append order

	closed bool
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		endpoints: make(map[string]*endpoint.Endpoint),
	}
}

// Migrate is a no-op for the in-memory store.
func (s *Store) Migrate(_ context.Context) error { return nil }

// Ping reports whether the store is still open.
func (s *Store) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return hooks.ErrStoreClosed
	}
	return nil
}

// Close marks the store as closed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// CreateEndpoint persists a new endpoint.
func (s *Store) CreateEndpoint(_ context.Context, ep *endpoint.Endpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.endpoints[ep.ID.String()] = ep
	return nil
}

// GetEndpoint returns an endpoint by ID.
func (s *Store) GetEndpoint(_ context.Context, epID id.ID) (*endpoint.Endpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ep, ok := s.endpoints[epID.String()]
	if !ok {
		return nil, hooks.ErrEndpointNotFound
	}
	return ep, nil
}

// UpdateEndpoint modifies an existing endpoint.
func (s *Store) UpdateEndpoint(_ context.Context, ep *endpoint.Endpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.endpoints[ep.ID.String()]; !ok {
		return hooks.ErrEndpointNotFound
	}
	s.endpoints[ep.ID.String()] = ep
	return nil
}

// DeleteEndpoint removes an endpoint.
func (s *Store) DeleteEndpoint(_ context.Context, epID id.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.endpoints[epID.String()]; !ok {
		return hooks.ErrEndpointNotFound
	}
	delete(s.endpoints, epID.String())
	return nil
}

// ListEndpoints returns endpoints, optionally filtered, ordered by
// creation time.
func (s *Store) ListEndpoints(_ context.Context, opts endpoint.ListOpts) ([]*endpoint.Endpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*endpoint.Endpoint, 0, len(s.endpoints))
	for _, ep := range s.endpoints {
		if opts.IsActive != nil && ep.IsActive != *opts.IsActive {
			continue
		}
		result = append(result, ep)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID.String() < result[j].ID.String()
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})

	return applyPagination(result, opts.Offset, opts.Limit), nil
}

// SetActive activates or deactivates an endpoint.
func (s *Store) SetActive(_ context.Context, epID id.ID, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ep, ok := s.endpoints[epID.String()]
	if !ok {
		return hooks.ErrEndpointNotFound
	}
	ep.IsActive = active
	ep.Touch()
	return nil
}

// AppendEvent persists a new delivery event. Events are immutable once
// appended; the stored copy is detached from the caller's.
func (s *Store) AppendEvent(_ context.Context, evt *delivery.Event) (id.ID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *evt
	if stored.ID.IsNil() {
		stored.ID = id.NewEventID()
	}
	s.events = append(s.events, &stored)
	return stored.ID, nil
}

// GetEvent returns one event by ID.
func (s *Store) GetEvent(_ context.Context, evtID id.ID) (*delivery.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, evt := range s.events {
		if evt.ID == evtID {
			cp := *evt
			return &cp, nil
		}
	}
	return nil, hooks.ErrEventNotFound
}

// QueryEvents returns events matching the filter, ordered by TriggeredAt
// descending.
func (s *Store) QueryEvents(_ context.Context, f delivery.Filter) ([]*delivery.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*delivery.Event
	for _, evt := range s.events {
		if f.Matches(evt) {
			cp := *evt
			result = append(result, &cp)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].TriggeredAt.After(result[j].TriggeredAt)
	})

	if f.Limit > 0 && f.Limit < len(result) {
		result = result[:f.Limit]
	}
	return result, nil
}

// CountEvents returns the number of events matching the filter.
func (s *Store) CountEvents(_ context.Context, f delivery.Filter) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for _, evt := range s.events {
		if f.Matches(evt) {
			n++
		}
	}
	return n, nil
}

// applyPagination applies offset and limit to a slice.
func applyPagination[T any](items []*T, offset, limit int) []*T {
	if offset >= len(items) {
		return nil
	}
	if offset > 0 {
		items = items[offset:]
	}
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
