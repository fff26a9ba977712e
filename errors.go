package hooks

import "errors"

// Sentinel errors returned by Monitor operations.
var (
	// ErrNoStore is returned when a Monitor is created without a store.
	ErrNoStore = errors.New("hooks: store is required")

	// ErrEndpointNotFound is returned when an endpoint cannot be found.
	ErrEndpointNotFound = errors.New("hooks: endpoint not found")

	// ErrEndpointInactive is returned when testing a deactivated endpoint.
	ErrEndpointInactive = errors.New("hooks: endpoint is inactive")

	// ErrEventNotFound is returned when a delivery event cannot be found.
	ErrEventNotFound = errors.New("hooks: delivery event not found")

	// ErrRateLimited is returned when an interactive test call exceeds the
	// endpoint's configured test-call rate.
	ErrRateLimited = errors.New("hooks: endpoint test rate exceeded")

	// ErrStoreClosed is returned when a store operation is attempted after
	// the store is closed.
	ErrStoreClosed = errors.New("hooks: store is closed")

	// ErrMigrationFailed is returned when a database migration fails.
	ErrMigrationFailed = errors.New("hooks: migration failed")
)
