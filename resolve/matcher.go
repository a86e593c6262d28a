package resolve

import (
	"reflect"

	"github.com/uptree-dev/uptree/trace"
	"github.com/uptree-dev/uptree/tree"
)

// matchCapability checks whether candidate satisfies a request for typ.
//
// The match is determined by:
//  1. The candidate must implement Provider; other nodes never match.
//  2. An advertised type identical to typ is an exact match.
//  3. An advertised type in a strict supertype or subtype relation to typ
//     is a usage error: the whole resolution aborts, it is NOT skipped.
//
// Rationale for (3): silently walking past a supertype/subtype hit hides a
// likely programmer mistake (requesting a concrete type when only the
// interface is registered, or vice versa). Failing at resolution time
// surfaces the wiring bug immediately instead of producing a confusing
// missing-provider error later.
//
// Returns the matching capability when ok is true.
func matchCapability(candidate tree.Node, typ reflect.Type, dependent string) (Capability, bool, error) {
	p, isProvider := candidate.(Provider)
	if !isProvider {
		return Capability{}, false, nil
	}

	for _, cap := range p.Provided() {
		if cap.Type == typ {
			return cap, true, nil
		}
		if related(cap.Type, typ) {
			return Capability{}, false, &ResolveError{
				Code:       ErrCodeTypeMismatch,
				Message:    "provider advertises a strict supertype or subtype of the requested type",
				Dependent:  dependent,
				Requested:  typ.String(),
				Advertised: cap.Type.String(),
			}
		}
	}

	return Capability{}, false, nil
}

// related reports whether distinct types a and b stand in a subtype/
// supertype relation. In Go that relation is interface satisfaction:
// either side being an interface the other implements (or a narrower
// interface assignable to it) qualifies.
func related(a, b reflect.Type) bool {
	if a == b {
		return false
	}
	if a.Kind() == reflect.Interface && b.Implements(a) {
		return true
	}
	if b.Kind() == reflect.Interface && a.Implements(b) {
		return true
	}
	return false
}

// label names a node for errors and traces.
func label(n tree.Node) string {
	return trace.Label(n)
}
