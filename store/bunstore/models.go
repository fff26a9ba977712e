package bunstore

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"github.com/VersatilVC/organize-prime-sub010/delivery"
	"github.com/VersatilVC/organize-prime-sub010/endpoint"
	"github.com/VersatilVC/organize-prime-sub010/id"
	"github.com/VersatilVC/organize-prime-sub010/internal/entity"
)

// JSON-valued fields are stored as serialized text columns so the same
// models work on both the Postgres and SQLite dialects.
type endpointModel struct {
	bun.BaseModel `bun:"table:hooks_endpoints,alias:ep"`

	ID            string    `bun:"id,pk"`
	Name          string    `bun:"name,notnull"`
	URL           string    `bun:"url,notnull"`
	Secret        string    `bun:"secret"`
	IsActive      bool      `bun:"is_active,notnull"`
	Headers       string    `bun:"headers"`
	PayloadSchema string    `bun:"payload_schema"`
	TestRateLimit int       `bun:"test_rate_limit"`
	Metadata      string    `bun:"metadata"`
	CreatedAt     time.Time `bun:"created_at,notnull"`
	UpdatedAt     time.Time `bun:"updated_at,notnull"`
}

type eventModel struct {
	bun.BaseModel `bun:"table:hooks_events,alias:evt"`

	ID             string    `bun:"id,pk"`
	WebhookID      string    `bun:"webhook_id,notnull"`
	EventType      string    `bun:"event_type"`
	Status         string    `bun:"status,notnull"`
	ResponseTimeMs int       `bun:"response_time_ms"`
	TriggeredAt    time.Time `bun:"triggered_at,notnull"`
	ErrorMessage   string    `bun:"error_message"`
	RetryCount     int       `bun:"retry_count"`
	PayloadSize    int       `bun:"payload_size"`
}

func toEndpointModel(ep *endpoint.Endpoint) (*endpointModel, error) {
	headers, err := marshalMap(ep.Headers)
	if err != nil {
		return nil, fmt.Errorf("marshal headers: %w", err)
	}
	metadata, err := marshalMap(ep.Metadata)
	if err != nil {
		return nil, fmt.Errorf("marshal metadata: %w", err)
	}
	return &endpointModel{
		ID:            ep.ID.String(),
		Name:          ep.Name,
		URL:           ep.URL,
		Secret:        ep.Secret,
		IsActive:      ep.IsActive,
		Headers:       headers,
		PayloadSchema: string(ep.PayloadSchema),
		TestRateLimit: ep.TestRateLimit,
		Metadata:      metadata,
		CreatedAt:     ep.CreatedAt,
		UpdatedAt:     ep.UpdatedAt,
	}, nil
}

func fromEndpointModel(m *endpointModel) (*endpoint.Endpoint, error) {
	epID, err := id.ParseWebhookID(m.ID)
	if err != nil {
		return nil, fmt.Errorf("parse webhook ID %q: %w", m.ID, err)
	}
	headers, err := unmarshalMap(m.Headers)
	if err != nil {
		return nil, fmt.Errorf("unmarshal headers: %w", err)
	}
	metadata, err := unmarshalMap(m.Metadata)
	if err != nil {
		return nil, fmt.Errorf("unmarshal metadata: %w", err)
	}

	var schema json.RawMessage
	if m.PayloadSchema != "" {
		schema = json.RawMessage(m.PayloadSchema)
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
		Headers:       headers,
		PayloadSchema: schema,
		TestRateLimit: m.TestRateLimit,
		Metadata:      metadata,
	}, nil
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

func marshalMap(m map[string]string) (string, error) {
	if len(m) == 0 {
		return "", nil
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func unmarshalMap(s string) (map[string]string, error) {
	if s == "" {
		return nil, nil
	}
	var m map[string]string
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		return nil, err
	}
	return m, nil
}
