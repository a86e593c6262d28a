package tracestore

import (
	"context"
	"fmt"

	"github.com/uptree-dev/uptree/internal/ident"
	"github.com/uptree-dev/uptree/trace"
)

// WriteEvent appends a trace event to the log.
// Returns the row ID and whether a new record was inserted.
//
// Uses ON CONFLICT(event_id) DO NOTHING for idempotency: re-recording a
// pass (replay, crash recovery) silently skips events already present and
// returns the existing row's ID with inserted=false.
func (s *Store) WriteEvent(ctx context.Context, ev trace.Event) (id int64, inserted bool, err error) {
	eventID, err := EventID(ev)
	if err != nil {
		return 0, false, fmt.Errorf("write event: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO events
		(event_id, pass, seq, kind, dependent, provider, req_type, depth)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(event_id) DO NOTHING
	`,
		eventID,
		ev.Pass,
		ev.Seq,
		string(ev.Kind),
		ev.Dependent,
		ev.Provider,
		ev.Type,
		ev.Depth,
	)
	if err != nil {
		return 0, false, fmt.Errorf("write event: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, false, fmt.Errorf("write event: rows affected: %w", err)
	}

	if affected > 0 {
		id, err = res.LastInsertId()
		if err != nil {
			return 0, false, fmt.Errorf("write event: last insert id: %w", err)
		}
		return id, true, nil
	}

	// Already present: look up the existing row.
	err = s.db.QueryRowContext(ctx,
		`SELECT id FROM events WHERE event_id = ?`, eventID,
	).Scan(&id)
	if err != nil {
		return 0, false, fmt.Errorf("write event: lookup existing: %w", err)
	}
	return id, false, nil
}

// EventID computes the content-addressed identity of a trace event.
// Stable across processes: the same logical event always maps to the
// same ID, which is what makes WriteEvent idempotent.
func EventID(ev trace.Event) (string, error) {
	return ident.HashEvent(map[string]any{
		"pass":      ev.Pass,
		"seq":       ev.Seq,
		"kind":      string(ev.Kind),
		"dependent": ev.Dependent,
		"provider":  ev.Provider,
		"req_type":  ev.Type,
		"depth":     ev.Depth,
	})
}
