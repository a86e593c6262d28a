package treespec

import (
	"fmt"
	"reflect"

	"github.com/uptree-dev/uptree/resolve"
	"github.com/uptree-dev/uptree/tree"
)

var kindTypes = map[string]reflect.Type{
	"string": reflect.TypeFor[string](),
	"int":    reflect.TypeFor[int](),
	"bool":   reflect.TypeFor[bool](),
}

// KindType maps a document kind name to its Go type.
func KindType(kind string) (reflect.Type, error) {
	typ, ok := kindTypes[kind]
	if !ok {
		return nil, fmt.Errorf("unknown kind %q", kind)
	}
	return typ, nil
}

// coerce converts a decoded YAML value to the declared kind. The schema
// already constrains values, so failures here indicate kind/value
// combinations the schema cannot see (e.g. an int value for a string
// provide).
func coerce(kind string, v any) (any, error) {
	switch kind {
	case "string":
		if s, ok := v.(string); ok {
			return s, nil
		}
	case "int":
		switch n := v.(type) {
		case int:
			return n, nil
		case int64:
			return int(n), nil
		}
	case "bool":
		if b, ok := v.(bool); ok {
			return b, nil
		}
	}
	return nil, fmt.Errorf("value %v (%T) is not a %s", v, v, kind)
}

// Node is a materialized document node: a tree.Member that advertises the
// document's provides as resolver capabilities.
type Node struct {
	*tree.Member

	// Needs lists the types this node resolves against its ancestors.
	Needs []reflect.Type

	// Defaults holds the node's fallback factories, keyed by type.
	Defaults map[reflect.Type]func() any

	caps []resolve.Capability
}

// Provided implements resolve.Provider.
func (n *Node) Provided() []resolve.Capability { return n.caps }

// Tree is a materialized document: the host tree the CLI resolves
// against.
type Tree struct {
	Root *Node

	// Nodes indexes every node by its unique document name.
	Nodes map[string]*Node

	// Order lists nodes in document order (pre-order traversal).
	Order []*Node

	// Providers and Dependents are the document-order subsets of Order
	// that provide values and declare needs, respectively.
	Providers  []*Node
	Dependents []*Node
}

// Build materializes a loaded document into a resolver-ready tree.
// Node names must be unique across the whole document.
func Build(doc *Doc) (*Tree, error) {
	t := &Tree{Nodes: make(map[string]*Node)}
	root, err := t.build(&doc.Root, nil)
	if err != nil {
		return nil, err
	}
	t.Root = root
	return t, nil
}

func (t *Tree) build(spec *NodeSpec, parent *Node) (*Node, error) {
	if _, dup := t.Nodes[spec.Name]; dup {
		return nil, &DocError{
			Code:    ErrCodeDuplicateName,
			Message: "node names must be unique within a document",
			Node:    spec.Name,
		}
	}

	n := &Node{Member: tree.NewMember(spec.Name)}
	n.SetSelf(n)
	if parent != nil {
		n.Member.Attach(parent.Member)
	}

	for _, p := range spec.Provides {
		typ, err := KindType(p.Type)
		if err != nil {
			return nil, &DocError{Code: ErrCodeBadValue, Message: err.Error(), Node: spec.Name}
		}
		val, err := coerce(p.Type, p.Value)
		if err != nil {
			return nil, &DocError{Code: ErrCodeBadValue, Message: err.Error(), Node: spec.Name}
		}
		v := val
		n.caps = append(n.caps, resolve.Capability{Type: typ, Get: func() any { return v }})
	}

	for _, kind := range spec.Needs {
		typ, err := KindType(kind)
		if err != nil {
			return nil, &DocError{Code: ErrCodeBadValue, Message: err.Error(), Node: spec.Name}
		}
		n.Needs = append(n.Needs, typ)
	}

	if len(spec.Defaults) > 0 {
		n.Defaults = make(map[reflect.Type]func() any, len(spec.Defaults))
		for kind, raw := range spec.Defaults {
			typ, err := KindType(kind)
			if err != nil {
				return nil, &DocError{Code: ErrCodeBadValue, Message: err.Error(), Node: spec.Name}
			}
			val, err := coerce(kind, raw)
			if err != nil {
				return nil, &DocError{Code: ErrCodeBadValue, Message: err.Error(), Node: spec.Name}
			}
			v := val
			n.Defaults[typ] = func() any { return v }
		}
	}

	t.Nodes[spec.Name] = n
	t.Order = append(t.Order, n)
	if len(n.caps) > 0 {
		t.Providers = append(t.Providers, n)
	}
	if len(n.Needs) > 0 {
		t.Dependents = append(t.Dependents, n)
	}

	for i := range spec.Children {
		if _, err := t.build(&spec.Children[i], n); err != nil {
			return nil, err
		}
	}

	return n, nil
}
