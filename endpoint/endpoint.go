// Package endpoint defines webhook endpoints and their management service.
package endpoint

import (
	"encoding/json"

	"github.com/VersatilVC/organize-prime-sub010/id"
	"github.com/VersatilVC/organize-prime-sub010/internal/entity"
)

// Endpoint represents a registered webhook delivery target.
type Endpoint struct {
	entity.Entity

	// ID is the unique TypeID for this endpoint.
	ID id.ID `json:"id"`

	// Name is a human-readable label for this endpoint.
	Name string `json:"name"`

	// URL is the webhook delivery URL.
	URL string `json:"url"`

	// Secret is the shared HMAC signing key. Empty means deliveries to this
	// endpoint are unsigned. Never serialized.
	Secret string `json:"-"`

	// IsActive indicates whether the endpoint is live. Inactive endpoints
	// are never called and carry a fixed health-score deduction.
	IsActive bool `json:"is_active"`

	// Headers are custom HTTP headers sent with each delivery.
	Headers map[string]string `json:"headers,omitempty"`

	// PayloadSchema is an optional JSON Schema applied to outbound payload
	// data before any network call.
	PayloadSchema json.RawMessage `json:"payload_schema,omitempty"`

	// TestRateLimit is the maximum interactive test calls per second.
	// 0 means unlimited.
	TestRateLimit int `json:"test_rate_limit"`

	// Metadata holds user-defined key-value pairs.
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Signed reports whether deliveries to this endpoint carry a signature.
func (e *Endpoint) Signed() bool {
	return e.Secret != ""
}
