package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prismatics/internal/domain/event"
)

func TestEventStore_NormalizesOnRead(t *testing.T) {
	store := NewEventStore()
	store.Append(event.Raw{
		"id":         "evt-1",
		"query_time": "2026-08-10 12:00:00",
		"user_type":  []any{float64(1)},
		"status":     "success",
	})

	events, err := store.Events(context.Background(), event.Query{})
	require.NoError(t, err)
	require.Len(t, events, 1)

	e := events[0]
	assert.Equal(t, "evt-1", e.ID)
	assert.Equal(t, event.CategoryNew, e.Category)
	assert.True(t, e.Succeeded)
	require.NotNil(t, e.OccurredAt)
}

func TestEventStore_FromFilterAndLimit(t *testing.T) {
	store := NewEventStore()
	base := time.Date(2026, 8, 10, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		store.Append(event.Raw{
			"id":         string(rune('a' + i)),
			"query_time": base.Add(time.Duration(i) * time.Hour).Format(time.RFC3339),
		})
	}
	// Unparseable timestamps drop out of From-filtered queries.
	store.Append(event.Raw{"id": "z", "query_time": "garbage"})

	from := base.Add(2 * time.Hour)
	events, err := store.Events(context.Background(), event.Query{From: &from})
	require.NoError(t, err)
	assert.Len(t, events, 3)

	events, err = store.Events(context.Background(), event.Query{SortDesc: true, Limit: 2})
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "e", events[0].ID)
	assert.Equal(t, "d", events[1].ID)
}

func TestEventStore_OnChangeHook(t *testing.T) {
	store := NewEventStore()

	fired := 0
	store.OnChange(func() { fired++ })

	store.Append(event.Raw{"id": "evt-1"})
	store.Append(event.Raw{"id": "evt-2"}, event.Raw{"id": "evt-3"})

	assert.Equal(t, 2, fired, "one signal per append, not per document")
}
