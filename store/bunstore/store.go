// Package bunstore implements store.Store on SQL databases through the
// Bun ORM, supporting the Postgres and SQLite dialects.
package bunstore

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/uptrace/bun"

	hooks "github.com/VersatilVC/organize-prime-sub010"
	"github.com/VersatilVC/organize-prime-sub010/delivery"
	"github.com/VersatilVC/organize-prime-sub010/endpoint"
	"github.com/VersatilVC/organize-prime-sub010/id"
	hookstore "github.com/VersatilVC/organize-prime-sub010/store"
)

// compile-time interface check
var _ hookstore.Store = (*Store)(nil)

// Store implements store.Store using the Bun ORM.
type Store struct {
	db *bun.DB
}

// New creates a Bun-backed store.
func New(db *bun.DB) *Store {
	return &Store{db: db}
}

// DB returns the underlying Bun database for direct access.
func (s *Store) DB() *bun.DB { return s.db }

// Migrate creates the required tables and indexes.
func (s *Store) Migrate(ctx context.Context) error {
	models := []any{
		(*endpointModel)(nil),
		(*eventModel)(nil),
	}
	for _, model := range models {
		if _, err := s.db.NewCreateTable().
			Model(model).
			IfNotExists().
			Exec(ctx); err != nil {
			return errors.Join(hooks.ErrMigrationFailed, err)
		}
	}

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_hooks_events_webhook_time ON hooks_events (webhook_id, triggered_at)",
		"CREATE INDEX IF NOT EXISTS idx_hooks_events_time ON hooks_events (triggered_at)",
		"CREATE INDEX IF NOT EXISTS idx_hooks_endpoints_active ON hooks_endpoints (is_active)",
	}
	for _, ddl := range indexes {
		if _, err := s.db.ExecContext(ctx, ddl); err != nil {
			return errors.Join(hooks.ErrMigrationFailed, err)
		}
	}

	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ==================== Endpoint Store ====================

func (s *Store) CreateEndpoint(ctx context.Context, ep *endpoint.Endpoint) error {
	m, err := toEndpointModel(ep)
	if err != nil {
		return err
	}
	_, err = s.db.NewInsert().Model(m).Exec(ctx)
	return err
}

func (s *Store) GetEndpoint(ctx context.Context, epID id.ID) (*endpoint.Endpoint, error) {
	m := new(endpointModel)
	err := s.db.NewSelect().
		Model(m).
		Where("id = ?", epID.String()).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, hooks.ErrEndpointNotFound
		}
		return nil, err
	}
	return fromEndpointModel(m)
}

func (s *Store) UpdateEndpoint(ctx context.Context, ep *endpoint.Endpoint) error {
	m, err := toEndpointModel(ep)
	if err != nil {
		return err
	}
	m.UpdatedAt = time.Now().UTC()
	res, err := s.db.NewUpdate().
		Model(m).
		WherePK().
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return hooks.ErrEndpointNotFound
	}
	return nil
}

func (s *Store) DeleteEndpoint(ctx context.Context, epID id.ID) error {
	res, err := s.db.NewDelete().
		Model((*endpointModel)(nil)).
		Where("id = ?", epID.String()).
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return hooks.ErrEndpointNotFound
	}
	return nil
}

func (s *Store) ListEndpoints(ctx context.Context, opts endpoint.ListOpts) ([]*endpoint.Endpoint, error) {
	var models []endpointModel
	q := s.db.NewSelect().Model(&models)

	if opts.IsActive != nil {
		q = q.Where("is_active = ?", *opts.IsActive)
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.Order("created_at ASC", "id ASC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}

	result := make([]*endpoint.Endpoint, len(models))
	for i := range models {
		ep, err := fromEndpointModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = ep
	}
	return result, nil
}

func (s *Store) SetActive(ctx context.Context, epID id.ID, active bool) error {
	res, err := s.db.NewUpdate().
		Model((*endpointModel)(nil)).
		Set("is_active = ?", active).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", epID.String()).
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return hooks.ErrEndpointNotFound
	}
	return nil
}

// ==================== Delivery Log Store ====================

func (s *Store) AppendEvent(ctx context.Context, evt *delivery.Event) (id.ID, error) {
	stored := *evt
	if stored.ID.IsNil() {
		stored.ID = id.NewEventID()
	}
	m := toEventModel(&stored)
	if _, err := s.db.NewInsert().Model(m).Exec(ctx); err != nil {
		return id.Nil, err
	}
	return stored.ID, nil
}

func (s *Store) GetEvent(ctx context.Context, evtID id.ID) (*delivery.Event, error) {
	m := new(eventModel)
	err := s.db.NewSelect().
		Model(m).
		Where("id = ?", evtID.String()).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, hooks.ErrEventNotFound
		}
		return nil, err
	}
	return fromEventModel(m)
}

func (s *Store) QueryEvents(ctx context.Context, f delivery.Filter) ([]*delivery.Event, error) {
	var models []eventModel
	q := s.eventQuery(s.db.NewSelect().Model(&models), f)
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	q = q.Order("triggered_at DESC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}

	result := make([]*delivery.Event, len(models))
	for i := range models {
		evt, err := fromEventModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = evt
	}
	return result, nil
}

func (s *Store) CountEvents(ctx context.Context, f delivery.Filter) (int64, error) {
	count, err := s.eventQuery(s.db.NewSelect().Model((*eventModel)(nil)), f).Count(ctx)
	return int64(count), err
}

// eventQuery translates a delivery.Filter into WHERE clauses.
func (s *Store) eventQuery(q *bun.SelectQuery, f delivery.Filter) *bun.SelectQuery {
	if !f.WebhookID.IsNil() {
		q = q.Where("webhook_id = ?", f.WebhookID.String())
	}
	if len(f.Statuses) > 0 {
		statuses := make([]string, len(f.Statuses))
		for i, st := range f.Statuses {
			statuses[i] = string(st)
		}
		q = q.Where("status IN (?)", bun.In(statuses))
	}
	if f.From != nil {
		q = q.Where("triggered_at >= ?", *f.From)
	}
	if f.To != nil {
		q = q.Where("triggered_at < ?", *f.To)
	}
	return q
}
