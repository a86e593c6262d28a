package resolve

import (
	"github.com/uptree-dev/uptree/tree"
)

// providerState is the per-provider readiness record, created lazily on
// first use and keyed by node identity in the Registry side table.
//
// INVARIANT: provided is monotonic. Once true it never reverts.
type providerState struct {
	provided  bool
	listeners []*listenerEntry
}

// listenerEntry is one registered readiness listener.
//
// fired and removed are sticky flags: dispatch runs over a snapshot of the
// listener list, so an entry removed (or fired) mid-dispatch must be
// skippable without disturbing delivery to the rest of the snapshot.
type listenerEntry struct {
	fn      func(tree.Node)
	fired   bool
	removed bool
}

// Subscription is a revocable handle to a readiness listener. A listener
// may cancel its own subscription from inside its invocation.
type Subscription struct {
	state *providerState
	entry *listenerEntry
}

// Cancel detaches the listener. Safe to call more than once, and safe to
// call during dispatch of the event the listener is being invoked for.
func (s *Subscription) Cancel() {
	s.entry.removed = true
}

// Registry tracks provider readiness state. State lives in a side table
// keyed by node identity, never in a field injected into the node type;
// hosts that destroy nodes call Forget to reclaim the entry.
//
// All operations are plumbing invoked by the engine and by provider-facing
// code; none of them return errors.
//
// Thread-safety: none. The resolution model is single-threaded and
// event-driven (see package doc), so the registry is not locked. Listener
// list mutation during dispatch is still tolerated via snapshotting.
type Registry struct {
	states map[tree.Node]*providerState
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{states: make(map[tree.Node]*providerState)}
}

func (r *Registry) state(n tree.Node) *providerState {
	st, ok := r.states[n]
	if !ok {
		st = &providerState{}
		r.states[n] = st
	}
	return st
}

// MarkProvided records that n has finished producing its value(s) and
// synchronously invokes every currently registered listener with n, in
// registration order.
//
// Idempotent: a second call never re-fires an already-fired listener, but
// listeners registered between calls are fired exactly as a single call
// would fire them.
func (r *Registry) MarkProvided(n tree.Node) {
	st := r.state(n)
	st.provided = true

	// Snapshot before dispatch: a listener may cancel itself (or others)
	// while the same event cycle is still being delivered.
	snapshot := make([]*listenerEntry, len(st.listeners))
	copy(snapshot, st.listeners)

	for _, entry := range snapshot {
		if entry.fired || entry.removed {
			continue
		}
		entry.fired = true
		entry.fn(n)
	}

	// Compact: fired and cancelled entries are done for good.
	kept := st.listeners[:0]
	for _, entry := range st.listeners {
		if !entry.fired && !entry.removed {
			kept = append(kept, entry)
		}
	}
	st.listeners = kept
}

// IsProvided reports whether n has signaled readiness. Pure query, no
// side effects; nodes never seen by the registry are not provided.
func (r *Registry) IsProvided(n tree.Node) bool {
	st, ok := r.states[n]
	return ok && st.provided
}

// Subscribe registers a one-shot listener for n's provided signal and
// returns its revocation handle.
//
// If n is already provided the listener is NOT invoked retroactively; it
// fires on the next (idempotent) MarkProvided call. The engine checks
// IsProvided before subscribing, so it never arms a listener late.
func (r *Registry) Subscribe(n tree.Node, fn func(tree.Node)) *Subscription {
	st := r.state(n)
	entry := &listenerEntry{fn: fn}
	st.listeners = append(st.listeners, entry)
	return &Subscription{state: st, entry: entry}
}

// Forget drops all registry state for n. Hosts call this from their node
// teardown hook so the side table never outlives the node.
func (r *Registry) Forget(n tree.Node) {
	delete(r.states, n)
}
