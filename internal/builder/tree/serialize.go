package tree

import (
	"encoding/json"
	"fmt"
)

// Serialize renders the document as the wire format consumed by rule
// definitions: a JSON array of requirement objects, depth first, one key per
// object naming the kind. Key order inside payloads is alphabetical, so equal
// trees always serialize to equal bytes.
func Serialize(t *Tree) ([]byte, error) {
	if t == nil || t.root == nil {
		return []byte("[]"), nil
	}
	shaped := make([]map[string]any, 0, len(t.root.children))
	for _, child := range t.root.children {
		entry, err := marshalNode(child)
		if err != nil {
			return nil, err
		}
		shaped = append(shaped, entry)
	}
	return json.Marshal(shaped)
}

func marshalNode(n *Node) (map[string]any, error) {
	if n.kind.Container() {
		children := make([]map[string]any, 0, len(n.children))
		for _, child := range n.children {
			entry, err := marshalNode(child)
			if err != nil {
				return nil, err
			}
			children = append(children, entry)
		}
		return map[string]any{string(n.kind): children}, nil
	}
	payload := n.payload
	if payload == nil {
		payload = Payload{}
	}
	return map[string]any{string(n.kind): map[string]any(payload)}, nil
}

// Deserialize parses the wire format back into a tree. Fresh identifiers are
// allocated for every node; identifiers are session-local and never persisted.
func Deserialize(data []byte) (*Tree, error) {
	t, err := New()
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return t, nil
	}
	var entries []json.RawMessage
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse requirement list: %w", err)
	}
	for _, entry := range entries {
		node, err := t.unmarshalNode(entry)
		if err != nil {
			return nil, err
		}
		if err := t.Insert(node, t.root, t.root.Len()); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func (t *Tree) unmarshalNode(raw json.RawMessage) (*Node, error) {
	var entry map[string]json.RawMessage
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, fmt.Errorf("parse requirement object: %w", err)
	}
	if len(entry) != 1 {
		return nil, fmt.Errorf("requirement object must have exactly one kind key, got %d", len(entry))
	}
	for key, value := range entry {
		kind := Kind(key)
		if !kind.Valid() {
			return nil, fmt.Errorf("%w: %q", ErrUnknownKind, key)
		}
		if kind.Container() {
			return t.unmarshalContainer(kind, value)
		}
		return t.unmarshalLeaf(kind, value)
	}
	return nil, fmt.Errorf("requirement object is empty")
}

func (t *Tree) unmarshalContainer(kind Kind, raw json.RawMessage) (*Node, error) {
	var entries []json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("parse %s group children: %w", kind, err)
	}
	node, err := t.allocate(kind, nil)
	if err != nil {
		return nil, err
	}
	for _, entry := range entries {
		child, err := t.unmarshalNode(entry)
		if err != nil {
			return nil, err
		}
		if err := t.Insert(child, node, node.Len()); err != nil {
			return nil, err
		}
	}
	return node, nil
}

func (t *Tree) unmarshalLeaf(kind Kind, raw json.RawMessage) (*Node, error) {
	var payload Payload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("parse %s payload: %w", kind, err)
	}
	return t.allocate(kind, payload)
}

// Equal reports whether two trees serialize to the same document. Identifiers
// are ignored; only kinds, payloads, and child order matter.
func Equal(a, b *Tree) bool {
	left, err := Serialize(a)
	if err != nil {
		return false
	}
	right, err := Serialize(b)
	if err != nil {
		return false
	}
	return string(left) == string(right)
}
