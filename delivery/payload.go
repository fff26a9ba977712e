package delivery

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/VersatilVC/organize-prime-sub010/id"
)

// Payload is the structured body of an outbound webhook call.
type Payload struct {
	// EventType is the logical event name (e.g. "feedback.created").
	EventType string `json:"event_type"`

	// WebhookID identifies the target endpoint. Filled in by the caller.
	WebhookID id.ID `json:"webhook_id"`

	// Timestamp is when the call was issued, ISO-8601 UTC. Filled in by
	// the caller.
	Timestamp string `json:"timestamp"`

	// OrganizationID optionally scopes the event to an organization.
	OrganizationID string `json:"organization_id,omitempty"`

	// UserID optionally scopes the event to a user.
	UserID string `json:"user_id,omitempty"`

	// Data is the event body delivered to the receiver.
	Data map[string]any `json:"data"`
}

// stamp fills in the per-call fields and serializes the payload.
func (p Payload) stamp(webhookID id.ID, now time.Time) ([]byte, error) {
	p.WebhookID = webhookID
	p.Timestamp = now.UTC().Format(time.RFC3339)
	if p.Data == nil {
		p.Data = map[string]any{}
	}
	return json.Marshal(p)
}

// ValidationError describes a payload rejected before any network call.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return "delivery: invalid payload: " + e.Message
}

// Validator checks payload data against per-endpoint JSON Schemas.
// Compiled schemas are cached by content; Validator is safe for
// concurrent use.
type Validator struct {
	mu    sync.RWMutex
	cache map[string]*jsonschema.Schema // keyed by schema JSON content
}

// NewValidator creates a new payload validator.
func NewValidator() *Validator {
	return &Validator{
		cache: make(map[string]*jsonschema.Schema),
	}
}

// Validate checks data against the raw JSON Schema. A nil or empty schema
// skips validation. Schema violations are returned as *ValidationError.
func (v *Validator) Validate(schema json.RawMessage, data map[string]any) error {
	if len(schema) == 0 {
		return nil
	}

	compiled, err := v.compile(schema)
	if err != nil {
		return fmt.Errorf("delivery: schema compilation error: %w", err)
	}

	// jsonschema validates decoded JSON values; map[string]any is already one.
	var doc any = data
	if data == nil {
		doc = map[string]any{}
	}
	if err := compiled.Validate(doc); err != nil {
		return &ValidationError{Message: err.Error()}
	}
	return nil
}

// compile returns a compiled schema, using the cache for previously-seen
// schemas.
func (v *Validator) compile(schema json.RawMessage) (*jsonschema.Schema, error) {
	key := string(schema)

	v.mu.RLock()
	if cached, ok := v.cache[key]; ok {
		v.mu.RUnlock()
		return cached, nil
	}
	v.mu.RUnlock()

	var doc any
	if err := json.Unmarshal(schema, &doc); err != nil {
		return nil, fmt.Errorf("unmarshal schema: %w", err)
	}

	// Use a unique URL as the schema resource identifier.
	url := "hooks://schema/" + sanitizeKey(key)

	c := jsonschema.NewCompiler()
	if err := c.AddResource(url, doc); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}

	compiled, err := c.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}

	v.mu.Lock()
	v.cache[key] = compiled
	v.mu.Unlock()

	return compiled, nil
}

// sanitizeKey creates a safe URL path segment from a schema key.
func sanitizeKey(key string) string {
	r := strings.NewReplacer(
		`"`, "",
		`{`, "",
		`}`, "",
		` `, "_",
		`:`, "",
	)
	s := r.Replace(key)
	if len(s) > 64 {
		s = s[:64]
	}
	return s
}
