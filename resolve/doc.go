// Package resolve implements ancestor-scoped dependency resolution for a
// tree of hierarchical nodes.
//
// Nodes higher in a host tree provide typed values; nodes lower in the
// tree depend on those values by type, without any intermediate node
// knowing about or forwarding them. For each requested type the engine
// finds the nearest qualifying ancestor provider, waits — asynchronously,
// without blocking — until the provider signals its value is ready, and
// notifies the dependent exactly once, when every requested type has been
// resolved.
//
// # Providers
//
// A provider node implements [Provider], advertising one [Capability] per
// supplied type, and calls [Engine.MarkProvided] once its values are safe
// to read:
//
//	type ConfigNode struct {
//		*tree.Member
//		cfg *Config
//	}
//
//	func (n *ConfigNode) Provided() []resolve.Capability {
//		return []resolve.Capability{
//			resolve.Value(func() *Config { return n.cfg }),
//		}
//	}
//
//	// after n.cfg is initialized:
//	engine.MarkProvided(n)
//
// # Dependents
//
// A dependent declares the set of types it needs — typically computed once
// at registration time by a code-generation or static-analysis step, not
// discovered reflectively at runtime — and resolves against its ancestors:
//
//	err := engine.Resolve(leaf,
//		[]reflect.Type{reflect.TypeFor[*Config](), reflect.TypeFor[*sql.DB]()},
//		resolve.OnComplete(func() { leaf.start() }),
//		resolve.WithFallback(func() *Config { return DefaultConfig() }),
//	)
//
//	cfg, err := resolve.Read[*Config](engine, leaf)
//
// Matching is by exact type identity. An ancestor advertising a strict
// supertype or subtype of a requested type is a wiring bug and aborts the
// resolution with a TYPE_MISMATCH error rather than being skipped.
//
// # Concurrency
//
// The engine is single-threaded, event-driven, and non-blocking: there is
// no suspension point, no timer, and no background goroutine. Completion
// fires either synchronously inside Resolve or synchronously from inside
// the MarkProvided call that supplies the last outstanding value. A
// pending resolution whose provider never signals readiness never
// completes; the engine does not detect or time out such deadlocks.
//
// # Errors
//
// All failures are [ResolveError] values with structured codes; see
// IsNotInTree, IsMismatch, IsNotFound, and IsNotReady. They indicate
// configuration and wiring bugs, not runtime conditions to handle.
package resolve
