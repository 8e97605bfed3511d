package event

import (
	"context"
	"time"
)

// Query narrows a store scan. The zero value selects everything in
// insertion order. Filtering and ordering use the store's raw ingest
// timestamp; aggregations re-filter on the normalized OccurredAt.
type Query struct {
	From     *time.Time
	SortDesc bool
	Limit    int
}

// Store is the queryable event collection this service reads from.
// It is append-only from this service's perspective; events are never
// mutated or deleted here.
type Store interface {
	Events(ctx context.Context, q Query) ([]Event, error)
}
