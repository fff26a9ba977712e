// Package mongo implements store.Store on MongoDB.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	hooks "github.com/VersatilVC/organize-prime-sub010"
	"github.com/VersatilVC/organize-prime-sub010/delivery"
	"github.com/VersatilVC/organize-prime-sub010/endpoint"
	"github.com/VersatilVC/organize-prime-sub010/id"
	hookstore "github.com/VersatilVC/organize-prime-sub010/store"
)

// Collection name constants.
const (
	colEndpoints = "hooks_endpoints"
	colEvents    = "hooks_events"
)

// Compile-time interface check.
var _ hookstore.Store = (*Store)(nil)

// Store implements store.Store using MongoDB.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

// New creates a MongoDB store over an existing client.
func New(client *mongo.Client, database string) *Store {
	return &Store{
		client: client,
		db:     client.Database(database),
	}
}

// Open connects to MongoDB and returns a store over the given database.
func Open(uri, database string) (*Store, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("hooks/mongo: connect: %w", err)
	}
	return New(client, database), nil
}

// Migrate creates the collection indexes.
func (s *Store) Migrate(ctx context.Context) error {
	indexes := map[string][]mongo.IndexModel{
		colEndpoints: {
			{Keys: bson.D{{Key: "is_active", Value: 1}}},
			{Keys: bson.D{{Key: "created_at", Value: 1}}},
		},
		colEvents: {
			{Keys: bson.D{{Key: "webhook_id", Value: 1}, {Key: "triggered_at", Value: -1}}},
			{Keys: bson.D{{Key: "triggered_at", Value: -1}}},
		},
	}

	for col, models := range indexes {
		if _, err := s.db.Collection(col).Indexes().CreateMany(ctx, models); err != nil {
			return errors.Join(hooks.ErrMigrationFailed,
				fmt.Errorf("hooks/mongo: migrate %s indexes: %w", col, err))
		}
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

// Close disconnects the client.
func (s *Store) Close() error {
	return s.client.Disconnect(context.Background())
}

// now returns the current UTC time.
func now() time.Time {
	return time.Now().UTC()
}

// ==================== Endpoint Store ====================

func (s *Store) CreateEndpoint(ctx context.Context, ep *endpoint.Endpoint) error {
	if _, err := s.db.Collection(colEndpoints).InsertOne(ctx, toEndpointModel(ep)); err != nil {
		return fmt.Errorf("hooks/mongo: create endpoint: %w", err)
	}
	return nil
}

func (s *Store) GetEndpoint(ctx context.Context, epID id.ID) (*endpoint.Endpoint, error) {
	var m endpointModel
	err := s.db.Collection(colEndpoints).
		FindOne(ctx, bson.M{"_id": epID.String()}).
		Decode(&m)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, hooks.ErrEndpointNotFound
		}
		return nil, fmt.Errorf("hooks/mongo: get endpoint: %w", err)
	}
	return fromEndpointModel(&m)
}

func (s *Store) UpdateEndpoint(ctx context.Context, ep *endpoint.Endpoint) error {
	m := toEndpointModel(ep)
	m.UpdatedAt = now()

	res, err := s.db.Collection(colEndpoints).
		ReplaceOne(ctx, bson.M{"_id": m.ID}, m)
	if err != nil {
		return fmt.Errorf("hooks/mongo: update endpoint: %w", err)
	}
	if res.MatchedCount == 0 {
		return hooks.ErrEndpointNotFound
	}
	return nil
}

func (s *Store) DeleteEndpoint(ctx context.Context, epID id.ID) error {
	res, err := s.db.Collection(colEndpoints).
		DeleteOne(ctx, bson.M{"_id": epID.String()})
	if err != nil {
		return fmt.Errorf("hooks/mongo: delete endpoint: %w", err)
	}
	if res.DeletedCount == 0 {
		return hooks.ErrEndpointNotFound
	}
	return nil
}

func (s *Store) ListEndpoints(ctx context.Context, opts endpoint.ListOpts) ([]*endpoint.Endpoint, error) {
	filter := bson.M{}
	if opts.IsActive != nil {
		filter["is_active"] = *opts.IsActive
	}

	findOpts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	if opts.Limit > 0 {
		findOpts = findOpts.SetLimit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		findOpts = findOpts.SetSkip(int64(opts.Offset))
	}

	cursor, err := s.db.Collection(colEndpoints).Find(ctx, filter, findOpts)
	if err != nil {
		return nil, fmt.Errorf("hooks/mongo: list endpoints: %w", err)
	}
	defer cursor.Close(ctx)

	var models []endpointModel
	if err := cursor.All(ctx, &models); err != nil {
		return nil, fmt.Errorf("hooks/mongo: list endpoints decode: %w", err)
	}

	result := make([]*endpoint.Endpoint, 0, len(models))
	for i := range models {
		ep, err := fromEndpointModel(&models[i])
		if err != nil {
			return nil, err
		}
		result = append(result, ep)
	}
	return result, nil
}

func (s *Store) SetActive(ctx context.Context, epID id.ID, active bool) error {
	res, err := s.db.Collection(colEndpoints).UpdateOne(ctx,
		bson.M{"_id": epID.String()},
		bson.M{"$set": bson.M{"is_active": active, "updated_at": now()}},
	)
	if err != nil {
		return fmt.Errorf("hooks/mongo: set active: %w", err)
	}
	if res.MatchedCount == 0 {
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

	if _, err := s.db.Collection(colEvents).InsertOne(ctx, toEventModel(&stored)); err != nil {
		return id.Nil, fmt.Errorf("hooks/mongo: append event: %w", err)
	}
	return stored.ID, nil
}

func (s *Store) GetEvent(ctx context.Context, evtID id.ID) (*delivery.Event, error) {
	var m eventModel
	err := s.db.Collection(colEvents).
		FindOne(ctx, bson.M{"_id": evtID.String()}).
		Decode(&m)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, hooks.ErrEventNotFound
		}
		return nil, fmt.Errorf("hooks/mongo: get event: %w", err)
	}
	return fromEventModel(&m)
}

func (s *Store) QueryEvents(ctx context.Context, f delivery.Filter) ([]*delivery.Event, error) {
	findOpts := options.Find().
		SetSort(bson.D{{Key: "triggered_at", Value: -1}})
	if f.Limit > 0 {
		findOpts = findOpts.SetLimit(int64(f.Limit))
	}

	cursor, err := s.db.Collection(colEvents).Find(ctx, eventFilter(f), findOpts)
	if err != nil {
		return nil, fmt.Errorf("hooks/mongo: query events: %w", err)
	}
	defer cursor.Close(ctx)

	var models []eventModel
	if err := cursor.All(ctx, &models); err != nil {
		return nil, fmt.Errorf("hooks/mongo: query events decode: %w", err)
	}

	result := make([]*delivery.Event, 0, len(models))
	for i := range models {
		evt, err := fromEventModel(&models[i])
		if err != nil {
			return nil, err
		}
		result = append(result, evt)
	}
	return result, nil
}

func (s *Store) CountEvents(ctx context.Context, f delivery.Filter) (int64, error) {
	n, err := s.db.Collection(colEvents).CountDocuments(ctx, eventFilter(f))
	if err != nil {
		return 0, fmt.Errorf("hooks/mongo: count events: %w", err)
	}
	return n, nil
}

// eventFilter translates a delivery.Filter into a BSON query.
func eventFilter(f delivery.Filter) bson.M {
	filter := bson.M{}
	if !f.WebhookID.IsNil() {
		filter["webhook_id"] = f.WebhookID.String()
	}
	if len(f.Statuses) > 0 {
		statuses := make([]string, len(f.Statuses))
		for i, st := range f.Statuses {
			statuses[i] = string(st)
		}
		filter["status"] = bson.M{"$in": statuses}
	}
	if f.From != nil || f.To != nil {
		bounds := bson.M{}
		if f.From != nil {
			bounds["$gte"] = *f.From
		}
		if f.To != nil {
			bounds["$lt"] = *f.To
		}
		filter["triggered_at"] = bounds
	}
	return filter
}
