package clickhouse

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"prismatics/internal/domain/event"
	"prismatics/pkg/errors"
	"prismatics/pkg/logger"
)

// Compile-time check
var _ event.Store = (*EventStore)(nil)

// EventStore implements event.Store over a ClickHouse table of raw
// agent-log documents:
//
//	CREATE TABLE agent_events (
//	    id          String,
//	    ingested_at DateTime64(3),
//	    payload     String  -- original JSON document, untouched
//	) ENGINE = MergeTree ORDER BY ingested_at
//
// The payload column is the document as the agent system wrote it;
// ingested_at is a server-side timestamp used only for ordering and
// range pushdown. All field-level interpretation happens in
// event.Normalize so the defensive parsing lives in one place.
type EventStore struct {
	conn  driver.Conn
	table string
	log   *logger.Logger
}

// NewEventStore creates an event store over the given table.
func NewEventStore(conn driver.Conn, table string, log *logger.Logger) *EventStore {
	return &EventStore{
		conn:  conn,
		table: table,
		log:   log.With("component", "event_store"),
	}
}

// Events implements event.Store.
func (s *EventStore) Events(ctx context.Context, q event.Query) ([]event.Event, error) {
	query := fmt.Sprintf("SELECT id, payload FROM %s", s.table)
	var args []interface{}

	if q.From != nil {
		query += " WHERE ingested_at >= ?"
		args = append(args, *q.From)
	}
	if q.SortDesc {
		query += " ORDER BY ingested_at DESC"
	} else {
		query += " ORDER BY ingested_at ASC"
	}
	if q.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, q.Limit)
	}

	start := time.Now()
	rows, err := s.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "query events")
	}
	defer rows.Close()

	var events []event.Event
	skipped := 0
	for rows.Next() {
		var id, payload string
		if err := rows.Scan(&id, &payload); err != nil {
			return nil, errors.Wrap(err, "scan event row")
		}

		var raw event.Raw
		if err := json.Unmarshal([]byte(payload), &raw); err != nil {
			// Corrupt payloads are dropped, not fatal: one bad write
			// must not take down every dashboard view.
			skipped++
			continue
		}

		e := event.Normalize(raw)
		if e.ID == "" {
			e.ID = id
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate event rows")
	}

	if skipped > 0 {
		s.log.Warnf("skipped %d undecodable event payloads", skipped)
	}
	s.log.Debugf("fetched %d events in %v", len(events), time.Since(start))

	return events, nil
}
