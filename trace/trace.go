// Package trace defines the instrumentation surface of the resolution
// engine: typed events describing each step of a resolution pass, a
// Recorder sink interface, and pass-token generators.
//
// Events carry string labels and logical sequence numbers only. Provider
// values never enter a trace, so recording is safe regardless of what the
// tree supplies.
package trace

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// Kind identifies the step of a resolution pass an event describes.
type Kind string

const (
	// KindWalkStep records the engine visiting one ancestor.
	KindWalkStep Kind = "walk_step"

	// KindMatch records an ancestor matching a requested type.
	KindMatch Kind = "match"

	// KindAwait records a listener being armed on an unready provider.
	KindAwait Kind = "await"

	// KindReady records a requested type being satisfied, either
	// synchronously (provider already ready) or on readiness signal.
	KindReady Kind = "ready"

	// KindFallback records a default provider being synthesized.
	KindFallback Kind = "fallback"

	// KindComplete records the dependent's completion callback firing.
	KindComplete Kind = "complete"
)

// Event is one step of a resolution pass.
//
// All ordering uses Seq (logical clock), never wall time: replaying a pass
// from a durable log reproduces the original order exactly.
type Event struct {
	// Pass correlates every event of one Resolve call.
	Pass string `json:"pass"`

	// Seq is the event's position within the pass, starting at 1.
	Seq int64 `json:"seq"`

	// Kind is the step being recorded.
	Kind Kind `json:"kind"`

	// Dependent labels the resolving node.
	Dependent string `json:"dependent"`

	// Provider labels the matched or visited provider, when applicable.
	Provider string `json:"provider,omitempty"`

	// Type names the requested type, when applicable.
	Type string `json:"type,omitempty"`

	// Depth is the ancestor distance from the dependent (parent = 1).
	// Zero when the event is not tied to a tree position.
	Depth int `json:"depth,omitempty"`
}

// Recorder receives resolution events. Implementations must not retain the
// event past the call; the engine may reuse label strings across events.
//
// Recorders are invoked synchronously from inside the engine, in Seq order
// within a pass.
type Recorder interface {
	Record(ev Event)
}

// Nop discards every event. The engine's default recorder.
type Nop struct{}

// Record implements Recorder.
func (Nop) Record(Event) {}

// Memory accumulates events in order. Intended for tests that probe engine
// behavior, such as counting walk steps.
//
// Thread-safety: all methods are safe for concurrent use, though the engine
// itself records from a single goroutine.
type Memory struct {
	mu     sync.Mutex
	events []Event
}

// Record implements Recorder.
func (m *Memory) Record(ev Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, ev)
}

// Events returns a copy of the recorded events in record order.
func (m *Memory) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Event, len(m.events))
	copy(out, m.events)
	return out
}

// OfKind returns the recorded events of one kind, in record order.
func (m *Memory) OfKind(k Kind) []Event {
	var out []Event
	for _, ev := range m.Events() {
		if ev.Kind == k {
			out = append(out, ev)
		}
	}
	return out
}

// Reset discards all recorded events.
func (m *Memory) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = nil
}

// Clock is a monotonic logical clock stamping events within a pass.
//
// All event ordering uses seq numbers from this clock, never timestamps,
// so a recorded pass is deterministic regardless of wall time.
//
// Thread-safety: safe for concurrent use (atomic operations), though the
// single-threaded engine only ever advances it from one goroutine.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a clock starting at 0; the first Next returns 1.
func NewClock() *Clock {
	return &Clock{}
}

// Next returns the next sequence number and advances the clock.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the clock's position without advancing it.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}

// TokenGenerator produces unique pass tokens for event correlation.
// Implemented by UUIDv7Generator (production) and FixedGenerator (tests).
type TokenGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 pass tokens.
//
// UUIDv7 embeds a timestamp in the most significant bits, making tokens
// sortable by creation time, which keeps durable trace logs readable.
//
// Thread-safety: stateless, safe for concurrent use.
type UUIDv7Generator struct{}

// Generate returns a new hyphenated UUIDv7 string.
// Panics if UUID generation fails (should never happen in practice).
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// FixedGenerator returns predetermined pass tokens for testing.
// This enables deterministic traces and golden-file comparison.
type FixedGenerator struct {
	mu     sync.Mutex
	tokens []string
	idx    int
}

// NewFixedGenerator creates a generator that returns tokens in order.
// Generate panics once all tokens are consumed, to fail fast on test
// misconfiguration.
func NewFixedGenerator(tokens ...string) *FixedGenerator {
	return &FixedGenerator{tokens: tokens}
}

// Generate returns the next predetermined token.
func (g *FixedGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.idx >= len(g.tokens) {
		panic("trace: FixedGenerator exhausted")
	}
	tok := g.tokens[g.idx]
	g.idx++
	return tok
}

// Label names a node for trace output. fmt.Stringer implementations label
// themselves; anything else falls back to its dynamic type.
func Label(v any) string {
	if v == nil {
		return "<nil>"
	}
	if s, ok := v.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%T", v)
}
