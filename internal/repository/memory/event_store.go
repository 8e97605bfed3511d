package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"prismatics/internal/domain/event"
)

// Compile-time check
var _ event.Store = (*EventStore)(nil)

// EventStore is an in-memory event.Store. It backs tests and local
// development; documents go through the same Normalize boundary as the
// production store so loose payloads behave identically.
type EventStore struct {
	mu       sync.RWMutex
	raw      []event.Raw
	onChange func()
}

// NewEventStore creates an empty in-memory store.
func NewEventStore() *EventStore {
	return &EventStore{}
}

// OnChange registers a hook fired after every append. The notifier
// wires its Publish here so writes produce a change signal just like
// the ingestion side does in production.
func (s *EventStore) OnChange(fn func()) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

// Append adds raw documents to the store and fires the change hook.
func (s *EventStore) Append(docs ...event.Raw) {
	s.mu.Lock()
	s.raw = append(s.raw, docs...)
	fn := s.onChange
	s.mu.Unlock()

	if fn != nil {
		fn()
	}
}

// Events implements event.Store.
func (s *EventStore) Events(ctx context.Context, q event.Query) ([]event.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	events := make([]event.Event, 0, len(s.raw))
	for _, doc := range s.raw {
		events = append(events, event.Normalize(doc))
	}
	s.mu.RUnlock()

	if q.From != nil {
		filtered := events[:0]
		for _, e := range events {
			if e.OccurredAt != nil && !e.OccurredAt.Before(*q.From) {
				filtered = append(filtered, e)
			}
		}
		events = filtered
	}

	if q.SortDesc {
		sort.SliceStable(events, func(i, j int) bool {
			return occurred(events[i]).After(occurred(events[j]))
		})
	}

	if q.Limit > 0 && len(events) > q.Limit {
		events = events[:q.Limit]
	}
	return events, nil
}

func occurred(e event.Event) time.Time {
	if e.OccurredAt != nil {
		return *e.OccurredAt
	}
	return time.Time{}
}
