package redis

import (
	"context"
	"fmt"
	"math"
	"time"

	goredis "github.com/redis/go-redis/v9"

	hooks "github.com/VersatilVC/organize-prime-sub010"
	"github.com/VersatilVC/organize-prime-sub010/delivery"
	"github.com/VersatilVC/organize-prime-sub010/id"
)

// eventModel is the JSON representation stored in Redis.
type eventModel struct {
	ID             string    `json:"id"`
	WebhookID      string    `json:"webhook_id"`
	EventType      string    `json:"event_type"`
	Status         string    `json:"status"`
	ResponseTimeMs int       `json:"response_time_ms"`
	TriggeredAt    time.Time `json:"triggered_at"`
	ErrorMessage   string    `json:"error_message,omitempty"`
	RetryCount     int       `json:"retry_count"`
	PayloadSize    int       `json:"payload_size"`
}

func toEventModel(evt *delivery.Event) *eventModel {
	return &eventModel{
		ID:             evt.ID.String(),
		WebhookID:      evt.WebhookID.String(),
		EventType:      evt.EventType,
		Status:         string(evt.Status),
		ResponseTimeMs: evt.ResponseTimeMs,
		TriggeredAt:    evt.TriggeredAt,
		ErrorMessage:   evt.ErrorMessage,
		RetryCount:     evt.RetryCount,
		PayloadSize:    evt.PayloadSize,
	}
}

func fromEventModel(m *eventModel) (*delivery.Event, error) {
	evtID, err := id.ParseEventID(m.ID)
	if err != nil {
		return nil, fmt.Errorf("parse event ID %q: %w", m.ID, err)
	}
	whID, err := id.ParseWebhookID(m.WebhookID)
	if err != nil {
		return nil, fmt.Errorf("parse webhook ID %q: %w", m.WebhookID, err)
	}
	return &delivery.Event{
		ID:             evtID,
		WebhookID:      whID,
		EventType:      m.EventType,
		Status:         delivery.Status(m.Status),
		ResponseTimeMs: m.ResponseTimeMs,
		TriggeredAt:    m.TriggeredAt,
		ErrorMessage:   m.ErrorMessage,
		RetryCount:     m.RetryCount,
		PayloadSize:    m.PayloadSize,
	}, nil
}

func (s *Store) AppendEvent(ctx context.Context, evt *delivery.Event) (id.ID, error) {
	stored := *evt
	if stored.ID.IsNil() {
		stored.ID = id.NewEventID()
	}

	m := toEventModel(&stored)
	if err := s.setEntity(ctx, entityKey(prefixEvent, m.ID), m); err != nil {
		return id.Nil, fmt.Errorf("hooks/redis: append event: %w", err)
	}

	score := scoreFromTime(m.TriggeredAt)
	pipe := s.rdb.Pipeline()
	pipe.ZAdd(ctx, zEventAll, goredis.Z{Score: score, Member: m.ID})
	pipe.ZAdd(ctx, zEventWebhook+m.WebhookID, goredis.Z{Score: score, Member: m.ID})
	if _, err := pipe.Exec(ctx); err != nil {
		return id.Nil, fmt.Errorf("hooks/redis: append event indexes: %w", err)
	}
	return stored.ID, nil
}

func (s *Store) GetEvent(ctx context.Context, evtID id.ID) (*delivery.Event, error) {
	var m eventModel
	if err := s.getEntity(ctx, entityKey(prefixEvent, evtID.String()), &m); err != nil {
		if isRedisNil(err) {
			return nil, hooks.ErrEventNotFound
		}
		return nil, fmt.Errorf("hooks/redis: get event: %w", err)
	}
	return fromEventModel(&m)
}

func (s *Store) QueryEvents(ctx context.Context, f delivery.Filter) ([]*delivery.Event, error) {
	events, err := s.queryEvents(ctx, f, f.Limit)
	if err != nil {
		return nil, fmt.Errorf("hooks/redis: query events: %w", err)
	}
	return events, nil
}

func (s *Store) CountEvents(ctx context.Context, f delivery.Filter) (int64, error) {
	// Without a status filter, the sorted set alone answers the count.
	if len(f.Statuses) == 0 {
		n, err := s.rdb.ZCount(ctx, s.eventIndexKey(f), rangeMin(f), rangeMax(f)).Result()
		if err != nil {
			return 0, fmt.Errorf("hooks/redis: count events: %w", err)
		}
		return n, nil
	}

	events, err := s.queryEvents(ctx, f, 0)
	if err != nil {
		return 0, fmt.Errorf("hooks/redis: count events: %w", err)
	}
	return int64(len(events)), nil
}

// queryEvents walks the time index newest-first, loading and filtering
// events until limit is reached (0 means no cap).
func (s *Store) queryEvents(ctx context.Context, f delivery.Filter, limit int) ([]*delivery.Event, error) {
	ids, err := s.rdb.ZRevRangeByScore(ctx, s.eventIndexKey(f), &goredis.ZRangeBy{
		Min: rangeMin(f),
		Max: rangeMax(f),
	}).Result()
	if err != nil {
		return nil, err
	}

	var result []*delivery.Event
	for _, entryID := range ids {
		var m eventModel
		if err := s.getEntity(ctx, entityKey(prefixEvent, entryID), &m); err != nil {
			if isRedisNil(err) {
				continue
			}
			return nil, err
		}
		if !statusMatches(f.Statuses, delivery.Status(m.Status)) {
			continue
		}
		evt, err := fromEventModel(&m)
		if err != nil {
			return nil, err
		}
		result = append(result, evt)
		if limit > 0 && len(result) == limit {
			break
		}
	}
	return result, nil
}

func (s *Store) eventIndexKey(f delivery.Filter) string {
	if f.WebhookID.IsNil() {
		return zEventAll
	}
	return zEventWebhook + f.WebhookID.String()
}

func rangeMin(f delivery.Filter) string {
	if f.From == nil {
		return formatScore(math.Inf(-1), false)
	}
	return formatScore(scoreFromTime(*f.From), false)
}

func rangeMax(f delivery.Filter) string {
	if f.To == nil {
		return formatScore(math.Inf(1), false)
	}
	// The upper bound is exclusive.
	return formatScore(scoreFromTime(*f.To), true)
}

func statusMatches(statuses []delivery.Status, st delivery.Status) bool {
	if len(statuses) == 0 {
		return true
	}
	for _, want := range statuses {
		if st == want {
			return true
		}
	}
	return false
}
