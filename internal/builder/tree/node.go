package tree

import "sort"

// Kind identifies a requirement node type.
type Kind string

const (
	// KindAny is an OR group: at least one child must pass.
	KindAny Kind = "any"
	// KindAll is an AND group: every child must pass.
	KindAll Kind = "all"
	// KindTrait checks a named trait against a numeric range.
	KindTrait Kind = "trait"
	// KindHas checks that a named entry exists in a character field.
	KindHas Kind = "has"
	// KindCountTag checks that enough entries carry a tag.
	KindCountTag Kind = "count_tag"
)

// Container reports whether the kind holds an ordered child list.
func (k Kind) Container() bool {
	return k == KindAny || k == KindAll
}

// Valid reports whether the kind names a known requirement type.
func (k Kind) Valid() bool {
	switch k {
	case KindAny, KindAll, KindTrait, KindHas, KindCountTag:
		return true
	}
	return false
}

// Payload holds the data of a leaf requirement. Values follow JSON typing:
// strings for names and fields, float64 for numeric bounds.
type Payload map[string]any

// Clone returns a deep copy of the payload.
func (p Payload) Clone() Payload {
	if p == nil {
		return nil
	}
	copied := make(Payload, len(p))
	for key, value := range p {
		copied[key] = value
	}
	return copied
}

// Equal reports whether two payloads hold the same keys and values.
func (p Payload) Equal(other Payload) bool {
	if len(p) != len(other) {
		return false
	}
	for key, value := range p {
		otherValue, ok := other[key]
		if !ok || otherValue != value {
			return false
		}
	}
	return true
}

// Keys returns the payload keys in sorted order.
func (p Payload) Keys() []string {
	keys := make([]string, 0, len(p))
	for key := range p {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Data is the editable content of a node: its kind plus, for leaves, the
// payload. Edits swap Data in place without touching child identity.
type Data struct {
	Kind    Kind
	Payload Payload
}

// Clone returns a deep copy of the data.
func (d Data) Clone() Data {
	return Data{Kind: d.Kind, Payload: d.Payload.Clone()}
}

// Node is a single requirement in the tree. A node is owned by at most one
// parent at any time; ownership transfers only through Tree operations.
type Node struct {
	id       string
	kind     Kind
	payload  Payload
	children []*Node
	parent   *Node
}

// ID returns the process-unique node identifier. Identifiers are stable
// across moves and survive undo/redo of a delete.
func (n *Node) ID() string {
	return n.id
}

// Kind returns the requirement type of the node.
func (n *Node) Kind() Kind {
	return n.kind
}

// Payload returns a copy of the leaf payload. Containers return nil.
func (n *Node) Payload() Payload {
	return n.payload.Clone()
}

// Data returns a copy of the node's editable content.
func (n *Node) Data() Data {
	return Data{Kind: n.kind, Payload: n.payload.Clone()}
}

// Parent returns the owning container, or nil for the root and for nodes
// detached by a delete.
func (n *Node) Parent() *Node {
	return n.parent
}

// Children returns a copy of the ordered child list.
func (n *Node) Children() []*Node {
	if len(n.children) == 0 {
		return nil
	}
	out := make([]*Node, len(n.children))
	copy(out, n.children)
	return out
}

// Len returns the number of children.
func (n *Node) Len() int {
	return len(n.children)
}

// Child returns the child at index, or nil when out of range.
func (n *Node) Child(index int) *Node {
	if index < 0 || index >= len(n.children) {
		return nil
	}
	return n.children[index]
}

// IndexOf returns the position of child in the node's child list, or -1.
func (n *Node) IndexOf(child *Node) int {
	for i, candidate := range n.children {
		if candidate == child {
			return i
		}
	}
	return -1
}

// Contains reports whether other is n itself or a descendant of n.
func (n *Node) Contains(other *Node) bool {
	for current := other; current != nil; current = current.parent {
		if current == n {
			return true
		}
	}
	return false
}

// Walk visits n and every descendant depth-first in sibling order. Returning
// false from visit stops the walk.
func (n *Node) Walk(visit func(*Node) bool) bool {
	if n == nil {
		return true
	}
	if !visit(n) {
		return false
	}
	for _, child := range n.children {
		if !child.Walk(visit) {
			return false
		}
	}
	return true
}
