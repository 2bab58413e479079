// Package tree implements the requirement tree model: nested trait, has, and
// count_tag checks grouped under any/all containers. The tree is pure data;
// rendering and persistence live elsewhere and talk to it through structural
// operations and serialization.
package tree

import (
	"errors"
	"fmt"

	apperrors "github.com/louisbranch/threshold.games/internal/platform/errors"
	"github.com/louisbranch/threshold.games/internal/platform/id"
)

var (
	// ErrLeafParent indicates an attempt to give a leaf requirement children.
	ErrLeafParent = errors.New("leaf requirement cannot hold children")
	// ErrCycle indicates an insert that would place a node inside its own subtree.
	ErrCycle = errors.New("requirement cannot be placed inside its own subtree")
	// ErrNotFound indicates the operand does not belong to this tree.
	ErrNotFound = errors.New("requirement is not part of this tree")
	// ErrAttached indicates an insert of a node that already has a parent.
	ErrAttached = errors.New("requirement is already attached")
	// ErrKindMismatch indicates an edit that would switch a node between
	// container and leaf, which would orphan or invent children.
	ErrKindMismatch = errors.New("requirement kind change would alter structure")
	// ErrUnknownKind indicates an unrecognized requirement type.
	ErrUnknownKind = errors.New("unknown requirement kind")
)

// Tree owns a requirement document. The root is itself a container so that
// "detached from the document" and "child of root" need no special casing.
// Trees are not goroutine safe; a single editing session owns each document.
type Tree struct {
	root  *Node
	nodes map[string]*Node
	newID func() (string, error)
}

// New creates an empty tree whose root is an implicit OR group.
func New() (*Tree, error) {
	t := &Tree{
		nodes: make(map[string]*Node),
		newID: id.NewID,
	}
	root, err := t.allocate(KindAny, nil)
	if err != nil {
		return nil, err
	}
	t.root = root
	return t, nil
}

// Root returns the document root container.
func (t *Tree) Root() *Node {
	return t.root
}

// Find returns the node with the given identifier, or nil. Detached nodes
// held by pending history entries remain findable so undo can reattach them.
func (t *Tree) Find(nodeID string) *Node {
	return t.nodes[nodeID]
}

// NewNode allocates a fresh node with a new unique identifier and a deep copy
// of the template payload. The node starts detached; attach it with Insert.
func (t *Tree) NewNode(kind Kind, template Payload) (*Node, error) {
	if !kind.Valid() {
		return nil, apperrors.WithMetadata(apperrors.CodeRequirementUnknownKind,
			fmt.Sprintf("unknown requirement kind %q", kind),
			map[string]string{"kind": string(kind)})
	}
	return t.allocate(kind, template)
}

func (t *Tree) allocate(kind Kind, template Payload) (*Node, error) {
	nodeID, err := t.newID()
	if err != nil {
		return nil, fmt.Errorf("generate requirement id: %w", err)
	}
	node := &Node{id: nodeID, kind: kind}
	if !kind.Container() {
		node.payload = template.Clone()
		if node.payload == nil {
			node.payload = Payload{}
		}
	}
	t.nodes[nodeID] = node
	return node, nil
}

// Insert attaches node as a child of parent at index. Indexes outside the
// child list are clamped to its bounds. Insert fails when parent is a leaf,
// when node is already attached, or when parent sits inside node's subtree.
func (t *Tree) Insert(node, parent *Node, index int) error {
	if node == nil || parent == nil {
		return ErrNotFound
	}
	if t.nodes[node.id] != node || t.nodes[parent.id] != parent {
		return ErrNotFound
	}
	if !parent.kind.Container() {
		return apperrors.Wrap(apperrors.CodeRequirementLeafChildren,
			"insert under leaf requirement", ErrLeafParent)
	}
	if node.parent != nil {
		return ErrAttached
	}
	if node.Contains(parent) {
		return apperrors.Wrap(apperrors.CodeRequirementCycle,
			"insert inside own subtree", ErrCycle)
	}
	if index < 0 {
		index = 0
	}
	if index > len(parent.children) {
		index = len(parent.children)
	}
	parent.children = append(parent.children, nil)
	copy(parent.children[index+1:], parent.children[index:])
	parent.children[index] = node
	node.parent = parent
	return nil
}

// Remove detaches node from its parent and returns the parent and the index
// the node occupied, enough to reinsert it at the same position. The root
// cannot be removed.
func (t *Tree) Remove(node *Node) (*Node, int, error) {
	if node == nil || t.nodes[node.id] != node {
		return nil, 0, ErrNotFound
	}
	parent := node.parent
	if parent == nil {
		return nil, 0, apperrors.Wrap(apperrors.CodeRequirementNotFound,
			"remove detached requirement", ErrNotFound)
	}
	index := parent.IndexOf(node)
	if index < 0 {
		return nil, 0, apperrors.Wrap(apperrors.CodeRequirementNotFound,
			"requirement missing from parent child list", ErrNotFound)
	}
	parent.children = append(parent.children[:index], parent.children[index+1:]...)
	node.parent = nil
	return parent, index, nil
}

// Move detaches node and reattaches it under newParent at newIndex, which is
// interpreted against the tree after the removal. When the insert fails the
// removal is rolled back, so no partial mutation is ever observable.
func (t *Tree) Move(node, newParent *Node, newIndex int) error {
	oldParent, oldIndex, err := t.Remove(node)
	if err != nil {
		return err
	}
	if err := t.Insert(node, newParent, newIndex); err != nil {
		if restoreErr := t.Insert(node, oldParent, oldIndex); restoreErr != nil {
			// Reinserting at the original position cannot fail: the slot was
			// just vacated and the parent accepted this node before.
			return fmt.Errorf("restore after failed move: %w", restoreErr)
		}
		return err
	}
	return nil
}

// ReplaceData swaps a node's editable content in place: a leaf's payload, or
// a container's grouping kind. Switching between container and leaf kinds is
// rejected because it would change structure, not content.
func (t *Tree) ReplaceData(node *Node, data Data) error {
	if node == nil || t.nodes[node.id] != node {
		return ErrNotFound
	}
	if !data.Kind.Valid() {
		return apperrors.WithMetadata(apperrors.CodeRequirementUnknownKind,
			fmt.Sprintf("unknown requirement kind %q", data.Kind),
			map[string]string{"kind": string(data.Kind)})
	}
	if data.Kind.Container() != node.kind.Container() {
		return apperrors.Wrap(apperrors.CodeRequirementKindMismatch,
			"edit would switch between group and single requirement", ErrKindMismatch)
	}
	node.kind = data.Kind
	if !node.kind.Container() {
		node.payload = data.Payload.Clone()
		if node.payload == nil {
			node.payload = Payload{}
		}
	}
	return nil
}

// Size returns the number of nodes attached to the document, root included.
func (t *Tree) Size() int {
	count := 0
	t.root.Walk(func(*Node) bool {
		count++
		return true
	})
	return count
}
