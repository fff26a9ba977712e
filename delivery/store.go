package delivery

import (
	"context"

	"github.com/VersatilVC/organize-prime-sub010/id"
)

// Store is the append-only delivery log contract. Any storage engine may
// sit behind it; the stats and health layers depend on nothing else.
type Store interface {
	// AppendEvent persists a new delivery event and returns its assigned ID.
	// Events are immutable once appended.
	AppendEvent(ctx context.Context, evt *Event) (id.ID, error)

	// GetEvent returns one event by ID.
	GetEvent(ctx context.Context, evtID id.ID) (*Event, error)

	// QueryEvents returns events matching the filter, ordered by
	// TriggeredAt descending.
	QueryEvents(ctx context.Context, f Filter) ([]*Event, error)

	// CountEvents returns the number of events matching the filter.
	CountEvents(ctx context.Context, f Filter) (int64, error)
}
