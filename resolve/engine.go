package resolve

import (
	"io"
	"log/slog"
	"reflect"
	"sort"

	"github.com/uptree-dev/uptree/trace"
	"github.com/uptree-dev/uptree/tree"
)

// Engine resolves dependents against their ancestors.
//
// All auxiliary state (provider readiness, dependency tables, armed
// listeners) lives in side tables keyed by node identity. The engine never
// stores anything on host nodes and never walks downward.
//
// Concurrency model: single-threaded and event-driven. A resolution either
// completes synchronously inside Resolve (all matched providers already
// ready, or nothing requested) or later, synchronously from inside the
// MarkProvided call that supplies the last outstanding value. There is no
// timer, no polling, and no background goroutine, so no locking either.
type Engine struct {
	registry *Registry
	tables   map[tree.Node]*depTable
	subs     map[tree.Node][]*Subscription
	log      *slog.Logger
	rec      trace.Recorder
	tokens   trace.TokenGenerator
}

// Option configures an Engine at construction.
type Option func(*Engine)

// WithLogger sets the engine's structured logger.
// The default logger discards everything.
func WithLogger(log *slog.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// WithRecorder sets the trace recorder resolution events are sent to.
// The default recorder discards everything.
func WithRecorder(rec trace.Recorder) Option {
	return func(e *Engine) { e.rec = rec }
}

// WithTokens sets the pass token generator.
// The default generates UUIDv7 tokens.
func WithTokens(gen trace.TokenGenerator) Option {
	return func(e *Engine) { e.tokens = gen }
}

// New creates an Engine.
func New(opts ...Option) *Engine {
	e := &Engine{
		registry: NewRegistry(),
		tables:   make(map[tree.Node]*depTable),
		subs:     make(map[tree.Node][]*Subscription),
		log:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		rec:      trace.Nop{},
		tokens:   trace.UUIDv7Generator{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Registry exposes the readiness registry for provider-facing code that
// needs listener-level access. Most providers only need MarkProvided.
func (e *Engine) Registry() *Registry {
	return e.registry
}

// MarkProvided signals that provider n has finished producing its
// value(s). Idempotent; see Registry.MarkProvided.
func (e *Engine) MarkProvided(n tree.Node) {
	e.registry.MarkProvided(n)
}

// IsProvided reports whether n has signaled readiness.
func (e *Engine) IsProvided(n tree.Node) bool {
	return e.registry.IsProvided(n)
}

// Forget drops every piece of engine state keyed to n: readiness record,
// dependency table, and any still-armed listeners. Hosts call this from
// their node teardown hook; it is the explicit counterpart of the
// weak-reference reclamation the side tables cannot do on their own.
func (e *Engine) Forget(n tree.Node) {
	e.registry.Forget(n)
	delete(e.tables, n)
	e.dropSubscriptions(n)
}

// ── Resolution options ──

type resolveConfig struct {
	fallbacks  map[reflect.Type]func() any
	onComplete func()
}

// ResolveOption configures one Resolve call. Fallbacks and the completion
// callback are per-call state, never ambient engine configuration.
type ResolveOption func(*resolveConfig)

// OnComplete sets the callback invoked with no arguments exactly once,
// when — and only when — every requested type has been resolved and its
// provider has signaled readiness.
func OnComplete(fn func()) ResolveOption {
	return func(c *resolveConfig) { c.onComplete = fn }
}

// WithFallback supplies a default-value factory for type T, consulted only
// for types no ancestor provides. The factory is invoked at most once per
// Resolve call; the synthesized provider is always already ready.
func WithFallback[T any](factory func() T) ResolveOption {
	return WithFallbackFor(reflect.TypeFor[T](), func() any { return factory() })
}

// WithFallbackFor is the non-generic form of WithFallback.
func WithFallbackFor(typ reflect.Type, factory func() any) ResolveOption {
	return func(c *resolveConfig) {
		if c.fallbacks == nil {
			c.fallbacks = make(map[reflect.Type]func() any)
		}
		c.fallbacks[typ] = factory
	}
}

// ── Resolution ──

// Resolve matches every type in required to the nearest qualifying
// ancestor provider of dep, rebuilding dep's dependency table from
// scratch. Duplicate entries in required are ignored.
//
// Providers that have already signaled readiness satisfy their type
// synchronously; the rest get a one-shot listener that satisfies the type
// when the provider calls MarkProvided. The OnComplete callback fires
// exactly once, after the last outstanding type is satisfied, in the same
// logical turn as the provider call that supplied it.
//
// The ancestor walk starts at dep's immediate parent, checks nearer
// ancestors before farther ones (so the nearest provider always wins), and
// stops as soon as every requested type has a matched provider. Types
// still unmatched after the walk are satisfied from fallback factories
// when supplied, otherwise Resolve fails with one NOT_FOUND error naming
// all of them.
//
// An empty required set is a no-op: no walk, no error, and no OnComplete
// call. Callers with zero dependencies must not wait for the callback.
//
// Calling Resolve again for the same dependent discards the prior pass
// entirely — table and still-armed listeners — and restarts. That is the
// supported way to re-resolve after the dependent moves in the tree.
func (e *Engine) Resolve(dep tree.Node, required []reflect.Type, opts ...ResolveOption) error {
	if dep == nil {
		return &ResolveError{
			Code:      ErrCodeNotInTree,
			Message:   "dependent is not a member of the host tree",
			Dependent: "<nil>",
		}
	}

	var cfg resolveConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	// Supersede any prior pass before anything else: its listeners must
	// never fire into the state of this one.
	e.dropSubscriptions(dep)
	tbl := newDepTable()
	e.tables[dep] = tbl

	remaining := dedupe(required)
	if len(remaining) == 0 {
		return nil
	}

	depLabel := label(dep)
	pass := e.tokens.Generate()
	clock := trace.NewClock()
	record := func(kind trace.Kind, provider, typ string, depth int) {
		e.rec.Record(trace.Event{
			Pass:      pass,
			Seq:       clock.Next(),
			Kind:      kind,
			Dependent: depLabel,
			Provider:  provider,
			Type:      typ,
			Depth:     depth,
		})
	}

	e.log.Debug("resolution started",
		"pass", pass,
		"dependent", depLabel,
		"required", len(remaining))

	// Shared completion counter: each satisfied type decrements it, the
	// zero crossing fires OnComplete. done guards against any spurious
	// re-trigger — the callback runs at most once per pass.
	outstanding := len(remaining)
	done := false
	satisfied := func(b binding) {
		record(trace.KindReady, b.label(), b.cap.Type.String(), 0)
		outstanding--
		if outstanding > 0 || done {
			return
		}
		done = true
		record(trace.KindComplete, "", "", 0)
		e.log.Debug("resolution complete", "pass", pass, "dependent", depLabel)
		if cfg.onComplete != nil {
			cfg.onComplete()
		}
	}

	depth := 0
	for anc := dep.Parent(); anc != nil && len(remaining) > 0; anc = anc.Parent() {
		depth++
		record(trace.KindWalkStep, label(anc), "", depth)

		var next []reflect.Type
		for _, typ := range remaining {
			cap, ok, err := matchCapability(anc, typ, depLabel)
			if err != nil {
				// Mismatch aborts the whole pass; the dependent cannot
				// safely use a partial table, so none is left behind.
				e.abandonPass(dep)
				e.log.Debug("resolution aborted",
					"pass", pass, "dependent", depLabel, "error", err)
				return err
			}
			if !ok {
				next = append(next, typ)
				continue
			}

			b := binding{provider: anc, cap: cap}
			tbl.entries[typ] = b
			record(trace.KindMatch, b.label(), typ.String(), depth)

			if e.registry.IsProvided(anc) {
				satisfied(b)
				continue
			}

			// Not ready yet: arm a one-shot listener that detaches
			// itself before satisfying the type.
			record(trace.KindAwait, b.label(), typ.String(), depth)
			var sub *Subscription
			sub = e.registry.Subscribe(anc, func(tree.Node) {
				sub.Cancel()
				satisfied(b)
			})
			e.subs[dep] = append(e.subs[dep], sub)
		}
		remaining = next
	}

	// Fallback pass: synthesize an always-ready default provider for each
	// leftover type that has a factory. Each factory runs exactly once.
	if len(remaining) > 0 && cfg.fallbacks != nil {
		var next []reflect.Type
		for _, typ := range remaining {
			factory, ok := cfg.fallbacks[typ]
			if !ok {
				next = append(next, typ)
				continue
			}
			val := factory()
			b := binding{
				cap:       Capability{Type: typ, Get: func() any { return val }},
				isDefault: true,
			}
			tbl.entries[typ] = b
			record(trace.KindFallback, b.label(), typ.String(), 0)
			satisfied(b)
		}
		remaining = next
	}

	if len(remaining) > 0 {
		missing := make([]string, len(remaining))
		for i, typ := range remaining {
			missing[i] = typ.String()
		}
		sort.Strings(missing)
		e.abandonPass(dep)
		e.log.Debug("resolution failed",
			"pass", pass, "dependent", depLabel, "missing", missing)
		return &ResolveError{
			Code:      ErrCodeNotFound,
			Message:   "no provider found for requested type(s)",
			Dependent: depLabel,
			Missing:   missing,
		}
	}

	return nil
}

// Dependency returns the resolved value for typ.
//
// Fails with NOT_FOUND when dep's table has no entry for typ (resolution
// was never run, or failed before reaching it) and with NOT_READY when the
// matched provider has not yet signaled readiness.
func (e *Engine) Dependency(dep tree.Node, typ reflect.Type) (any, error) {
	tbl := e.tables[dep]
	if tbl == nil {
		return nil, e.readNotFound(dep, typ)
	}
	b, ok := tbl.entries[typ]
	if !ok {
		return nil, e.readNotFound(dep, typ)
	}
	if !b.isDefault && !e.registry.IsProvided(b.provider) {
		return nil, &ResolveError{
			Code:      ErrCodeNotReady,
			Message:   "matched provider has not signaled readiness",
			Dependent: label(dep),
			Requested: typ.String(),
		}
	}
	return b.cap.Get(), nil
}

// Read returns dep's resolved value for type T.
func Read[T any](e *Engine, dep tree.Node) (T, error) {
	v, err := e.Dependency(dep, reflect.TypeFor[T]())
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}

func (e *Engine) readNotFound(dep tree.Node, typ reflect.Type) error {
	return &ResolveError{
		Code:      ErrCodeNotFound,
		Message:   "no provider bound for requested type",
		Dependent: label(dep),
		Missing:   []string{typ.String()},
	}
}

// abandonPass tears down a failed pass: the table entry goes away entirely
// and every listener armed during the pass is detached.
func (e *Engine) abandonPass(dep tree.Node) {
	delete(e.tables, dep)
	e.dropSubscriptions(dep)
}

func (e *Engine) dropSubscriptions(dep tree.Node) {
	for _, sub := range e.subs[dep] {
		sub.Cancel()
	}
	delete(e.subs, dep)
}

// dedupe preserves first-occurrence order.
func dedupe(types []reflect.Type) []reflect.Type {
	seen := make(map[reflect.Type]struct{}, len(types))
	var out []reflect.Type
	for _, typ := range types {
		if _, ok := seen[typ]; ok {
			continue
		}
		seen[typ] = struct{}{}
		out = append(out, typ)
	}
	return out
}
