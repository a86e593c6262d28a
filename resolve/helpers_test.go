package resolve

import (
	"fmt"

	"github.com/uptree-dev/uptree/tree"
)

// testNode is a provider-capable node with direct parent wiring, standing
// in for an external host tree.
type testNode struct {
	name   string
	parent tree.Node
	caps   []Capability
}

func (n *testNode) Parent() tree.Node      { return n.parent }
func (n *testNode) String() string         { return n.name }
func (n *testNode) Provided() []Capability { return n.caps }

// node creates a testNode under parent (nil for a root).
func node(name string, parent tree.Node, caps ...Capability) *testNode {
	return &testNode{name: name, parent: parent, caps: caps}
}

// plainNode does not implement Provider at all.
type plainNode struct {
	parent tree.Node
}

func (n *plainNode) Parent() tree.Node { return n.parent }

// Animal / Dog model the supertype/subtype mismatch cases.
type Animal interface {
	Sound() string
}

type Dog struct{}

func (Dog) Sound() string { return "woof" }

var _ Animal = Dog{}

// chain builds a root-to-leaf chain of n plain provider-capable nodes and
// returns them root first.
func chain(n int) []*testNode {
	nodes := make([]*testNode, n)
	var parent tree.Node
	for i := range nodes {
		nodes[i] = node(fmt.Sprintf("n%d", i), parent)
		parent = nodes[i]
	}
	return nodes
}
