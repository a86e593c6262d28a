package resolve

import (
	"reflect"

	"github.com/uptree-dev/uptree/tree"
)

// binding records the provider matched to one requested type: either a
// real tree node or a synthesized default. To the dependent the two are
// indistinguishable, except that a default is always already ready.
type binding struct {
	provider  tree.Node // nil for a synthesized default
	cap       Capability
	isDefault bool
}

// label names the binding's provider for traces and errors.
func (b binding) label() string {
	if b.isDefault {
		return "default(" + b.cap.Type.String() + ")"
	}
	return label(b.provider)
}

// depTable is one dependent's mapping from requested type to binding.
// Rebuilt in full on every resolution pass, never merged incrementally.
//
// INVARIANT: after a successful pass the table holds exactly one entry per
// requested type. After a failed pass it is empty — a partial set is never
// left readable.
type depTable struct {
	entries map[reflect.Type]binding
}

func newDepTable() *depTable {
	return &depTable{entries: make(map[reflect.Type]binding)}
}
