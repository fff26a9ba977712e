package endpoint

import "encoding/json"

// Input is the creation/update payload for endpoints.
type Input struct {
	// Name is a human-readable label. Required on create.
	Name string `json:"name"`

	// URL is the webhook delivery URL. Required on create.
	URL string `json:"url"`

	// Secret is the shared HMAC signing key. Empty leaves the endpoint
	// unsigned; use RotateSecret to generate one.
	Secret string `json:"secret"`

	// Headers are custom HTTP headers sent with each delivery.
	Headers map[string]string `json:"headers,omitempty"`

	// PayloadSchema is an optional JSON Schema for outbound payload data.
	PayloadSchema json.RawMessage `json:"payload_schema,omitempty"`

	// TestRateLimit is the maximum interactive test calls per second.
	TestRateLimit int `json:"test_rate_limit"`

	// Metadata holds user-defined key-value pairs.
	Metadata map[string]string `json:"metadata,omitempty"`
}

// ListOpts configures filtering and pagination for endpoint listing.
type ListOpts struct {
	Offset   int
	Limit    int
	IsActive *bool
}

// ValidationError describes a rejected endpoint input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return "endpoint: invalid " + e.Field + ": " + e.Message
}
