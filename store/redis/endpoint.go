package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	goredis "github.com/redis/go-redis/v9"

	hooks "github.com/VersatilVC/organize-prime-sub010"
	"github.com/VersatilVC/organize-prime-sub010/endpoint"
	"github.com/VersatilVC/organize-prime-sub010/id"
	"github.com/VersatilVC/organize-prime-sub010/internal/entity"
)

// endpointModel is the JSON representation stored in Redis.
type endpointModel struct {
	ID            string            `json:"id"`
	Name          string            `json:"name"`
	URL           string            `json:"url"`
	Secret        string            `json:"secret"`
	IsActive      bool              `json:"is_active"`
	Headers       map[string]string `json:"headers,omitempty"`
	PayloadSchema json.RawMessage   `json:"payload_schema,omitempty"`
	TestRateLimit int               `json:"test_rate_limit"`
	Metadata      map[string]string `json:"metadata,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

func toEndpointModel(ep *endpoint.Endpoint) *endpointModel {
	return &endpointModel{
		ID:            ep.ID.String(),
		Name:          ep.Name,
		URL:           ep.URL,
		Secret:        ep.Secret,
		IsActive:      ep.IsActive,
		Headers:       ep.Headers,
		PayloadSchema: ep.PayloadSchema,
		TestRateLimit: ep.TestRateLimit,
		Metadata:      ep.Metadata,
		CreatedAt:     ep.CreatedAt,
		UpdatedAt:     ep.UpdatedAt,
	}
}

func fromEndpointModel(m *endpointModel) (*endpoint.Endpoint, error) {
	epID, err := id.ParseWebhookID(m.ID)
	if err != nil {
		return nil, fmt.Errorf("parse webhook ID %q: %w", m.ID, err)
	}
	return &endpoint.Endpoint{
		Entity: entity.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:            epID,
		Name:          m.Name,
		URL:           m.URL,
		Secret:        m.Secret,
		IsActive:      m.IsActive,
		Headers:       m.Headers,
		PayloadSchema: m.PayloadSchema,
		TestRateLimit: m.TestRateLimit,
		Metadata:      m.Metadata,
	}, nil
}

func (s *Store) CreateEndpoint(ctx context.Context, ep *endpoint.Endpoint) error {
	m := toEndpointModel(ep)
	key := entityKey(prefixEndpoint, m.ID)

	if err := s.setEntity(ctx, key, m); err != nil {
		return fmt.Errorf("hooks/redis: create endpoint: %w", err)
	}

	err := s.rdb.ZAdd(ctx, zEndpointAll, goredis.Z{
		Score:  scoreFromTime(m.CreatedAt),
		Member: m.ID,
	}).Err()
	if err != nil {
		return fmt.Errorf("hooks/redis: create endpoint index: %w", err)
	}
	return nil
}

func (s *Store) GetEndpoint(ctx context.Context, epID id.ID) (*endpoint.Endpoint, error) {
	var m endpointModel
	if err := s.getEntity(ctx, entityKey(prefixEndpoint, epID.String()), &m); err != nil {
		if isRedisNil(err) {
			return nil, hooks.ErrEndpointNotFound
		}
		return nil, fmt.Errorf("hooks/redis: get endpoint: %w", err)
	}
	return fromEndpointModel(&m)
}

func (s *Store) UpdateEndpoint(ctx context.Context, ep *endpoint.Endpoint) error {
	key := entityKey(prefixEndpoint, ep.ID.String())

	var existing endpointModel
	if err := s.getEntity(ctx, key, &existing); err != nil {
		if isRedisNil(err) {
			return hooks.ErrEndpointNotFound
		}
		return fmt.Errorf("hooks/redis: update endpoint get: %w", err)
	}

	m := toEndpointModel(ep)
	m.UpdatedAt = now()

	if err := s.setEntity(ctx, key, m); err != nil {
		return fmt.Errorf("hooks/redis: update endpoint: %w", err)
	}
	return nil
}

func (s *Store) DeleteEndpoint(ctx context.Context, epID id.ID) error {
	key := entityKey(prefixEndpoint, epID.String())

	var m endpointModel
	if err := s.getEntity(ctx, key, &m); err != nil {
		if isRedisNil(err) {
			return hooks.ErrEndpointNotFound
		}
		return fmt.Errorf("hooks/redis: delete endpoint get: %w", err)
	}

	pipe := s.rdb.Pipeline()
	pipe.Del(ctx, key)
	pipe.ZRem(ctx, zEndpointAll, m.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("hooks/redis: delete endpoint: %w", err)
	}
	return nil
}

func (s *Store) ListEndpoints(ctx context.Context, opts endpoint.ListOpts) ([]*endpoint.Endpoint, error) {
	ids, err := s.rdb.ZRange(ctx, zEndpointAll, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("hooks/redis: list endpoints: %w", err)
	}

	result := make([]*endpoint.Endpoint, 0, len(ids))
	for _, entryID := range ids {
		var m endpointModel
		if err := s.getEntity(ctx, entityKey(prefixEndpoint, entryID), &m); err != nil {
			if isRedisNil(err) {
				continue
			}
			return nil, err
		}
		if opts.IsActive != nil && m.IsActive != *opts.IsActive {
			continue
		}
		ep, err := fromEndpointModel(&m)
		if err != nil {
			return nil, err
		}
		result = append(result, ep)
	}

	// The index is scored by creation time; break score ties by ID for a
	// stable order.
	sort.SliceStable(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID.String() < result[j].ID.String()
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})

	return applyPagination(result, opts.Offset, opts.Limit), nil
}

func (s *Store) SetActive(ctx context.Context, epID id.ID, active bool) error {
	key := entityKey(prefixEndpoint, epID.String())

	var m endpointModel
	if err := s.getEntity(ctx, key, &m); err != nil {
		if isRedisNil(err) {
			return hooks.ErrEndpointNotFound
		}
		return fmt.Errorf("hooks/redis: set active get: %w", err)
	}

	m.IsActive = active
	m.UpdatedAt = now()

	if err := s.setEntity(ctx, key, &m); err != nil {
		return fmt.Errorf("hooks/redis: set active: %w", err)
	}
	return nil
}
