// Package store defines the composite Store interface for all engine
// persistence.
//
// Each subsystem defines its own store interface (endpoints and the
// append-only delivery log) and the aggregate Store composes them, so
// any storage engine may sit behind the engine.
package store

import (
	"context"

	"github.com/VersatilVC/organize-prime-sub010/delivery"
	"github.com/VersatilVC/organize-prime-sub010/endpoint"
)

// Store is the aggregate persistence interface.
type Store interface {
	endpoint.Store
	delivery.Store

	// Migrate runs all schema migrations.
	Migrate(ctx context.Context) error

	// Ping checks backend connectivity.
	Ping(ctx context.Context) error

	// Close closes the store connection.
	Close() error
}
