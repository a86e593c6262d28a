// Package tree defines the minimal contract the resolver needs from a host
// tree, plus a small reference node used by the CLI and tests.
//
// The host tree is an external collaborator: uptree never creates, moves,
// or destroys host nodes. The only traversal primitive consumed is upward
// parent access.
package tree

// Node is a member of a host tree. Nodes are compared by reference
// identity; the resolver keys all auxiliary state on that identity.
//
// Parent returns the node's parent, or nil for a root (or detached) node.
type Node interface {
	Parent() Node
}

// Member is a reference Node implementation: a named node with an optional
// parent and ordered children. Host applications with their own scene
// graph do not need it; the CLI and the test suites do.
//
// Member is embeddable. A wrapper type embedding *Member must call SetSelf
// so traversal surfaces the wrapper instead of the inner Member:
//
//	type ConfigNode struct {
//		*tree.Member
//		cfg *Config
//	}
//
//	n := &ConfigNode{Member: tree.NewMember("config")}
//	n.SetSelf(n)
type Member struct {
	name     string
	self     Node
	parent   *Member
	children []*Member
}

// NewMember creates a detached node with the given name.
func NewMember(name string) *Member {
	m := &Member{name: name}
	m.self = m
	return m
}

// SetSelf declares the outermost node embedding m. Parent and Children
// calls anywhere in the tree then yield n rather than the embedded Member.
func (m *Member) SetSelf(n Node) { m.self = n }

// Self returns the node this Member stands for: the wrapper registered
// via SetSelf, or m itself when it is not embedded.
func (m *Member) Self() Node { return m.self }

// Name returns the node's name.
func (m *Member) Name() string { return m.name }

// String returns the node's name, so Members label themselves in traces.
func (m *Member) String() string { return m.name }

// Parent implements Node. Returns nil (not a typed nil) for a root.
func (m *Member) Parent() Node {
	if m.parent == nil {
		return nil
	}
	return m.parent.self
}

// Attach makes m a child of parent, detaching it from any previous parent.
func (m *Member) Attach(parent *Member) {
	m.Detach()
	m.parent = parent
	parent.children = append(parent.children, m)
}

// Detach removes m from its parent, turning it into a root.
func (m *Member) Detach() {
	p := m.parent
	if p == nil {
		return
	}
	for i, c := range p.children {
		if c == m {
			p.children = append(p.children[:i], p.children[i+1:]...)
			break
		}
	}
	m.parent = nil
}

// Children returns the node's children in attach order, as the nodes they
// stand for (wrappers where SetSelf was called).
func (m *Member) Children() []Node {
	out := make([]Node, len(m.children))
	for i, c := range m.children {
		out[i] = c.self
	}
	return out
}

// Depth returns the number of ancestors above n (0 for a root).
func Depth(n Node) int {
	d := 0
	for p := n.Parent(); p != nil; p = p.Parent() {
		d++
	}
	return d
}
