package mongo

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/VersatilVC/organize-prime-sub010/delivery"
	"github.com/VersatilVC/organize-prime-sub010/endpoint"
	"github.com/VersatilVC/organize-prime-sub010/id"
	"github.com/VersatilVC/organize-prime-sub010/internal/entity"
)

// endpointModel is the BSON document stored in the endpoints collection.
type endpointModel struct {
	ID            string            `bson:"_id"`
	Name          string            `bson:"name"`
	URL           string            `bson:"url"`
	Secret        string            `bson:"secret"`
	IsActive      bool              `bson:"is_active"`
	Headers       map[string]string `bson:"headers,omitempty"`
	PayloadSchema string            `bson:"payload_schema,omitempty"`
	TestRateLimit int               `bson:"test_rate_limit"`
	Metadata      map[string]string `bson:"metadata,omitempty"`
	CreatedAt     time.Time         `bson:"created_at"`
	UpdatedAt     time.Time         `bson:"updated_at"`
}

// eventModel is the BSON document stored in the events collection.
type eventModel struct {
	ID             string    `bson:"_id"`
	WebhookID      string    `bson:"webhook_id"`
	EventType      string    `bson:"event_type"`
	Status         string    `bson:"status"`
	ResponseTimeMs int       `bson:"response_time_ms"`
	TriggeredAt    time.Time `bson:"triggered_at"`
	ErrorMessage   string    `bson:"error_message,omitempty"`
	RetryCount     int       `bson:"retry_count"`
	PayloadSize    int       `bson:"payload_size"`
}

func toEndpointModel(ep *endpoint.Endpoint) *endpointModel {
	return &endpointModel{
		ID:            ep.ID.String(),
		Name:          ep.Name,
		URL:           ep.URL,
		Secret:        ep.Secret,
		IsActive:      ep.IsActive,
		Headers:       ep.Headers,
		PayloadSchema: string(ep.PayloadSchema),
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
		Headers:       m.Headers,
		PayloadSchema: schema,
		TestRateLimit: m.TestRateLimit,
		Metadata:      m.Metadata,
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
