package resolve

import "reflect"

// Capability advertises one typed value a provider node supplies.
//
// Get is a pure accessor: it must not fail once the provider has signaled
// readiness via Engine.MarkProvided. Before readiness it may return a
// stale or zero value, so the engine never calls it until the provider is
// ready and neither should application code.
type Capability struct {
	// Type is the advertised value type. Matching is by type identity,
	// not structural shape.
	Type reflect.Type

	// Get returns the current value. No side effects are required of it.
	Get func() any
}

// Value builds a Capability for type T from a typed accessor.
//
//	func (n *DBNode) Provided() []resolve.Capability {
//		return []resolve.Capability{
//			resolve.Value(func() *sql.DB { return n.db }),
//		}
//	}
func Value[T any](get func() T) Capability {
	return Capability{
		Type: reflect.TypeFor[T](),
		Get:  func() any { return get() },
	}
}

// Provider is implemented by tree nodes that supply typed values to their
// descendants. A single node may advertise several distinct types; each
// requested type is matched independently against the advertised set.
type Provider interface {
	Provided() []Capability
}
