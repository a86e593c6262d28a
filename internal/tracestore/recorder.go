package tracestore

import (
	"context"

	"github.com/uptree-dev/uptree/trace"
)

// Recorder adapts a Store to the trace.Recorder interface so the engine
// can record straight into the durable log.
//
// The engine's Recorder contract has no error channel; write failures are
// reported through the onErr callback (nil to ignore them).
type Recorder struct {
	store *Store
	onErr func(error)
}

// NewRecorder creates a Recorder over store.
func NewRecorder(store *Store, onErr func(error)) *Recorder {
	return &Recorder{store: store, onErr: onErr}
}

// Record implements trace.Recorder.
func (r *Recorder) Record(ev trace.Event) {
	if _, _, err := r.store.WriteEvent(context.Background(), ev); err != nil && r.onErr != nil {
		r.onErr(err)
	}
}
