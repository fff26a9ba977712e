// Package delivery implements the outbound webhook call protocol and the
// append-only delivery log it reports into: signed single-attempt calls
// under hard deadlines, a bounded retry combinator, and the log-store
// query surface the stats layer aggregates over.
package delivery

import (
	"time"

	"github.com/VersatilVC/organize-prime-sub010/id"
)

// Status classifies the outcome of one delivery attempt.
type Status string

const (
	// StatusSuccess indicates the endpoint answered with a 2xx code.
	StatusSuccess Status = "success"

	// StatusFailed indicates a non-2xx response or a network failure.
	StatusFailed Status = "failed"

	// StatusTimeout indicates the attempt was cancelled at its deadline.
	StatusTimeout Status = "timeout"
)

// Event is one recorded attempt to deliver a payload to an endpoint.
// Events are write-once: they are appended to the log and never updated.
type Event struct {
	// ID is the unique TypeID for this event, assigned on append.
	ID id.ID `json:"id"`

	// WebhookID references the target endpoint.
	WebhookID id.ID `json:"webhook_id"`

	// EventType is the logical event name carried in the payload.
	EventType string `json:"event_type"`

	// Status is the classified outcome of the attempt.
	Status Status `json:"status"`

	// ResponseTimeMs is the observed latency in milliseconds.
	ResponseTimeMs int `json:"response_time_ms"`

	// TriggeredAt is when the attempt was made.
	TriggeredAt time.Time `json:"triggered_at"`

	// ErrorMessage describes the failure, if any. Sanitized before storage.
	ErrorMessage string `json:"error_message,omitempty"`

	// RetryCount is how many retries preceded this attempt.
	RetryCount int `json:"retry_count"`

	// PayloadSize is the serialized payload length in bytes.
	PayloadSize int `json:"payload_size"`
}

// Filter selects delivery events from the log store. Zero-valued fields
// are ignored. Results are always ordered by TriggeredAt descending.
type Filter struct {
	// WebhookID restricts results to one endpoint. Nil ID means all.
	WebhookID id.ID

	// Statuses restricts results to the given outcome classes.
	Statuses []Status

	// From is an inclusive lower bound on TriggeredAt.
	From *time.Time

	// To is an exclusive upper bound on TriggeredAt.
	To *time.Time

	// Limit caps the number of returned events. 0 means no cap.
	Limit int
}

// Matches reports whether evt satisfies the filter. Backends without a
// native query language (memory) evaluate filters with this; SQL/Redis
// backends translate them instead.
func (f Filter) Matches(evt *Event) bool {
	if !f.WebhookID.IsNil() && evt.WebhookID != f.WebhookID {
		return false
	}
	if len(f.Statuses) > 0 {
		ok := false
		for _, st := range f.Statuses {
			if evt.Status == st {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	if f.From != nil && evt.TriggeredAt.Before(*f.From) {
		return false
	}
	if f.To != nil && !evt.TriggeredAt.Before(*f.To) {
		return false
	}
	return true
}
