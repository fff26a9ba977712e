package endpoint

import (
	"context"
	"log/slog"
	"net/url"

	"github.com/VersatilVC/organize-prime-sub010/id"
	"github.com/VersatilVC/organize-prime-sub010/internal/entity"
	"github.com/VersatilVC/organize-prime-sub010/signature"
)

// Service provides endpoint management operations.
type Service struct {
	store  Store
	logger *slog.Logger
}

// NewService creates a new endpoint service.
func NewService(store Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:  store,
		logger: logger,
	}
}

// Create registers a new webhook endpoint. Endpoints start active.
func (svc *Service) Create(ctx context.Context, in Input) (*Endpoint, error) {
	if in.Name == "" {
		return nil, &ValidationError{Field: "name", Message: "required"}
	}
	if err := validateURL(in.URL); err != nil {
		return nil, err
	}

	ep := &Endpoint{
		Entity:        entity.New(),
		ID:            id.NewWebhookID(),
		Name:          in.Name,
		URL:           in.URL,
		Secret:        in.Secret,
		IsActive:      true,
		Headers:       in.Headers,
		PayloadSchema: in.PayloadSchema,
		TestRateLimit: in.TestRateLimit,
		Metadata:      in.Metadata,
	}

	if err := svc.store.CreateEndpoint(ctx, ep); err != nil {
		return nil, err
	}

	svc.logger.DebugContext(ctx, "endpoint created", "webhook_id", ep.ID, "name", ep.Name)
	return ep, nil
}

// Get returns an endpoint by ID.
func (svc *Service) Get(ctx context.Context, epID id.ID) (*Endpoint, error) {
	return svc.store.GetEndpoint(ctx, epID)
}

// Update modifies an existing endpoint. Zero-valued input fields are left
// untouched.
func (svc *Service) Update(ctx context.Context, epID id.ID, in Input) (*Endpoint, error) {
	ep, err := svc.store.GetEndpoint(ctx, epID)
	if err != nil {
		return nil, err
	}

	if in.URL != "" {
		if err := validateURL(in.URL); err != nil {
			return nil, err
		}
		ep.URL = in.URL
	}
	if in.Name != "" {
		ep.Name = in.Name
	}
	if in.Secret != "" {
		ep.Secret = in.Secret
	}
	if in.Headers != nil {
		ep.Headers = in.Headers
	}
	if in.PayloadSchema != nil {
		ep.PayloadSchema = in.PayloadSchema
	}
	if in.TestRateLimit > 0 {
		ep.TestRateLimit = in.TestRateLimit
	}
	if in.Metadata != nil {
		ep.Metadata = in.Metadata
	}
	ep.Touch()

	if err := svc.store.UpdateEndpoint(ctx, ep); err != nil {
		return nil, err
	}

	return ep, nil
}

// Delete removes an endpoint.
func (svc *Service) Delete(ctx context.Context, epID id.ID) error {
	return svc.store.DeleteEndpoint(ctx, epID)
}

// List returns endpoints matching the given options.
func (svc *Service) List(ctx context.Context, opts ListOpts) ([]*Endpoint, error) {
	return svc.store.ListEndpoints(ctx, opts)
}

// SetActive activates or deactivates an endpoint.
func (svc *Service) SetActive(ctx context.Context, epID id.ID, active bool) error {
	return svc.store.SetActive(ctx, epID, active)
}

// RotateSecret replaces the endpoint's signing secret with a freshly
// generated one and returns the updated endpoint.
func (svc *Service) RotateSecret(ctx context.Context, epID id.ID) (*Endpoint, error) {
	ep, err := svc.store.GetEndpoint(ctx, epID)
	if err != nil {
		return nil, err
	}

	ep.Secret = signature.GenerateSecret()
	ep.Touch()

	if err := svc.store.UpdateEndpoint(ctx, ep); err != nil {
		return nil, err
	}

	svc.logger.InfoContext(ctx, "endpoint secret rotated", "webhook_id", ep.ID)
	return ep, nil
}

// validateURL rejects malformed or non-HTTP delivery URLs before any
// network call is attempted.
func validateURL(raw string) error {
	if raw == "" {
		return &ValidationError{Field: "url", Message: "required"}
	}
	u, err := url.ParseRequestURI(raw)
	if err != nil {
		return &ValidationError{Field: "url", Message: "invalid URL"}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return &ValidationError{Field: "url", Message: "scheme must be http or https"}
	}
	if u.Host == "" {
		return &ValidationError{Field: "url", Message: "missing host"}
	}
	return nil
}
