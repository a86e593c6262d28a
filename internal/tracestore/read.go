package tracestore

import (
	"context"
	"fmt"

	"github.com/uptree-dev/uptree/trace"
)

// ReadPass returns every event of a resolution pass in deterministic
// order: seq ASC, event_id ASC COLLATE BINARY.
//
// Returns an empty slice (not nil) when the pass is unknown.
func (s *Store) ReadPass(ctx context.Context, pass string) ([]trace.Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT pass, seq, kind, dependent, provider, req_type, depth
		FROM events
		WHERE pass = ?
		ORDER BY seq ASC, event_id COLLATE BINARY ASC
	`, pass)
	if err != nil {
		return nil, fmt.Errorf("query pass events: %w", err)
	}
	defer rows.Close()

	events := []trace.Event{}
	for rows.Next() {
		var ev trace.Event
		var kind string
		if err := rows.Scan(&ev.Pass, &ev.Seq, &kind, &ev.Dependent, &ev.Provider, &ev.Type, &ev.Depth); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		ev.Kind = trace.Kind(kind)
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}

	return events, nil
}

// Passes returns the distinct pass tokens in the log. UUIDv7 tokens are
// time-sortable, so lexicographic order is creation order.
func (s *Store) Passes(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT pass FROM events ORDER BY pass COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query passes: %w", err)
	}
	defer rows.Close()

	passes := []string{}
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("scan pass: %w", err)
		}
		passes = append(passes, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate passes: %w", err)
	}

	return passes, nil
}
