package tree

import (
	"errors"
	"testing"
)

func mustTree(t *testing.T) *Tree {
	t.Helper()
	tr, err := New()
	if err != nil {
		t.Fatalf("new tree: %v", err)
	}
	return tr
}

func mustNode(t *testing.T, tr *Tree, kind Kind, template Payload) *Node {
	t.Helper()
	node, err := tr.NewNode(kind, template)
	if err != nil {
		t.Fatalf("new %s node: %v", kind, err)
	}
	return node
}

func mustInsert(t *testing.T, tr *Tree, node, parent *Node, index int) {
	t.Helper()
	if err := tr.Insert(node, parent, index); err != nil {
		t.Fatalf("insert: %v", err)
	}
}

func TestNewNodeAssignsUniqueIDs(t *testing.T) {
	tr := mustTree(t)
	seen := map[string]struct{}{tr.Root().ID(): {}}
	for i := 0; i < 50; i++ {
		node := mustNode(t, tr, KindTrait, Payload{"name": "strength"})
		if _, ok := seen[node.ID()]; ok {
			t.Fatalf("duplicate node id %q", node.ID())
		}
		seen[node.ID()] = struct{}{}
	}
}

func TestNewNodeRejectsUnknownKind(t *testing.T) {
	tr := mustTree(t)
	if _, err := tr.NewNode(Kind("sometimes"), nil); err == nil {
		t.Fatal("expected error for unknown kind")
	}
}

func TestNewNodeCopiesTemplate(t *testing.T) {
	tr := mustTree(t)
	template := Payload{"name": "strength", "min": float64(3)}
	node := mustNode(t, tr, KindTrait, template)

	template["name"] = "mutated"
	if got := node.Payload()["name"]; got != "strength" {
		t.Errorf("template mutation leaked into node payload: %v", got)
	}
}

func TestInsertOrderAndClamping(t *testing.T) {
	tr := mustTree(t)
	first := mustNode(t, tr, KindTrait, Payload{"name": "a"})
	second := mustNode(t, tr, KindTrait, Payload{"name": "b"})
	third := mustNode(t, tr, KindTrait, Payload{"name": "c"})

	mustInsert(t, tr, first, tr.Root(), 0)
	mustInsert(t, tr, second, tr.Root(), 99) // clamped to append
	mustInsert(t, tr, third, tr.Root(), -5)  // clamped to prepend

	want := []*Node{third, first, second}
	got := tr.Root().Children()
	if len(got) != len(want) {
		t.Fatalf("expected %d children, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("child %d: expected %q, got %q", i, want[i].Payload()["name"], got[i].Payload()["name"])
		}
	}
}

func TestInsertUnderLeafFails(t *testing.T) {
	tr := mustTree(t)
	leaf := mustNode(t, tr, KindTrait, Payload{"name": "a"})
	mustInsert(t, tr, leaf, tr.Root(), 0)
	other := mustNode(t, tr, KindHas, Payload{"field": "items", "name": "rope"})

	if err := tr.Insert(other, leaf, 0); !errors.Is(err, ErrLeafParent) {
		t.Fatalf("expected ErrLeafParent, got %v", err)
	}
	if other.Parent() != nil {
		t.Error("failed insert must leave node detached")
	}
}

func TestInsertAttachedNodeFails(t *testing.T) {
	tr := mustTree(t)
	node := mustNode(t, tr, KindTrait, nil)
	mustInsert(t, tr, node, tr.Root(), 0)

	if err := tr.Insert(node, tr.Root(), 1); !errors.Is(err, ErrAttached) {
		t.Fatalf("expected ErrAttached, got %v", err)
	}
}

func TestInsertForeignNodeFails(t *testing.T) {
	tr := mustTree(t)
	other := mustTree(t)
	foreign := mustNode(t, other, KindTrait, nil)

	if err := tr.Insert(foreign, tr.Root(), 0); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRemoveReturnsPosition(t *testing.T) {
	tr := mustTree(t)
	first := mustNode(t, tr, KindTrait, Payload{"name": "a"})
	second := mustNode(t, tr, KindTrait, Payload{"name": "b"})
	mustInsert(t, tr, first, tr.Root(), 0)
	mustInsert(t, tr, second, tr.Root(), 1)

	parent, index, err := tr.Remove(second)
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if parent != tr.Root() || index != 1 {
		t.Fatalf("expected root/1, got %v/%d", parent, index)
	}
	if second.Parent() != nil {
		t.Error("removed node must be detached")
	}
	if tr.Root().Len() != 1 {
		t.Errorf("expected 1 remaining child, got %d", tr.Root().Len())
	}

	// Reinserting at the returned position restores the original order.
	mustInsert(t, tr, second, parent, index)
	if tr.Root().Child(1) != second {
		t.Error("reinsert did not restore original position")
	}
}

func TestRemoveDetachedFails(t *testing.T) {
	tr := mustTree(t)
	node := mustNode(t, tr, KindTrait, nil)

	if _, _, err := tr.Remove(node); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMoveBetweenContainers(t *testing.T) {
	tr := mustTree(t)
	groupA := mustNode(t, tr, KindAll, nil)
	groupB := mustNode(t, tr, KindAny, nil)
	leaf := mustNode(t, tr, KindTrait, Payload{"name": "agility"})
	mustInsert(t, tr, groupA, tr.Root(), 0)
	mustInsert(t, tr, groupB, tr.Root(), 1)
	mustInsert(t, tr, leaf, groupA, 0)

	if err := tr.Move(leaf, groupB, 0); err != nil {
		t.Fatalf("move: %v", err)
	}
	if groupA.Len() != 0 {
		t.Errorf("expected empty source group, got %d children", groupA.Len())
	}
	if groupB.Child(0) != leaf {
		t.Error("expected leaf in destination group")
	}
	if leaf.Parent() != groupB {
		t.Error("expected leaf parent updated")
	}
}

func TestMoveIntoOwnSubtreeRollsBack(t *testing.T) {
	tr := mustTree(t)
	outer := mustNode(t, tr, KindAny, nil)
	inner := mustNode(t, tr, KindAll, nil)
	mustInsert(t, tr, outer, tr.Root(), 0)
	mustInsert(t, tr, inner, outer, 0)

	before, err := Serialize(tr)
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}

	if err := tr.Move(outer, inner, 0); !errors.Is(err, ErrCycle) {
		t.Fatalf("expected ErrCycle, got %v", err)
	}

	after, err := Serialize(tr)
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	if string(before) != string(after) {
		t.Errorf("failed move mutated the tree:\nbefore %s\nafter  %s", before, after)
	}
	if outer.Parent() != tr.Root() {
		t.Error("expected outer group restored under root")
	}
}

func TestMoveOntoLeafRollsBack(t *testing.T) {
	tr := mustTree(t)
	leaf := mustNode(t, tr, KindTrait, Payload{"name": "a"})
	moved := mustNode(t, tr, KindHas, Payload{"field": "items", "name": "rope"})
	mustInsert(t, tr, leaf, tr.Root(), 0)
	mustInsert(t, tr, moved, tr.Root(), 1)

	if err := tr.Move(moved, leaf, 0); !errors.Is(err, ErrLeafParent) {
		t.Fatalf("expected ErrLeafParent, got %v", err)
	}
	if tr.Root().Child(1) != moved {
		t.Error("expected moved node restored at original index")
	}
}

func TestMoveReorderWithinParent(t *testing.T) {
	tr := mustTree(t)
	nodes := make([]*Node, 3)
	for i, name := range []string{"a", "b", "c"} {
		nodes[i] = mustNode(t, tr, KindTrait, Payload{"name": name})
		mustInsert(t, tr, nodes[i], tr.Root(), i)
	}

	// Index is interpreted after removal: moving c to 0 yields c,a,b.
	if err := tr.Move(nodes[2], tr.Root(), 0); err != nil {
		t.Fatalf("move: %v", err)
	}
	want := []string{"c", "a", "b"}
	for i, name := range want {
		if got := tr.Root().Child(i).Payload()["name"]; got != name {
			t.Errorf("child %d: expected %q, got %v", i, name, got)
		}
	}
}

func TestReplaceData(t *testing.T) {
	tr := mustTree(t)
	group := mustNode(t, tr, KindAny, nil)
	leaf := mustNode(t, tr, KindTrait, Payload{"name": "strength", "min": float64(2)})
	mustInsert(t, tr, group, tr.Root(), 0)
	mustInsert(t, tr, leaf, group, 0)

	if err := tr.ReplaceData(group, Data{Kind: KindAll}); err != nil {
		t.Fatalf("replace group kind: %v", err)
	}
	if group.Kind() != KindAll {
		t.Errorf("expected all group, got %s", group.Kind())
	}
	if group.Child(0) != leaf {
		t.Error("kind change must not touch children")
	}

	newPayload := Payload{"name": "strength", "min": float64(4)}
	if err := tr.ReplaceData(leaf, Data{Kind: KindTrait, Payload: newPayload}); err != nil {
		t.Fatalf("replace leaf payload: %v", err)
	}
	if got := leaf.Payload()["min"]; got != float64(4) {
		t.Errorf("expected min 4, got %v", got)
	}
}

func TestReplaceDataKindMismatch(t *testing.T) {
	tr := mustTree(t)
	group := mustNode(t, tr, KindAny, nil)
	leaf := mustNode(t, tr, KindTrait, nil)
	mustInsert(t, tr, group, tr.Root(), 0)
	mustInsert(t, tr, leaf, group, 0)

	if err := tr.ReplaceData(group, Data{Kind: KindTrait}); !errors.Is(err, ErrKindMismatch) {
		t.Fatalf("expected ErrKindMismatch for group, got %v", err)
	}
	if err := tr.ReplaceData(leaf, Data{Kind: KindAll}); !errors.Is(err, ErrKindMismatch) {
		t.Fatalf("expected ErrKindMismatch for leaf, got %v", err)
	}
}

func TestFind(t *testing.T) {
	tr := mustTree(t)
	leaf := mustNode(t, tr, KindTrait, nil)
	mustInsert(t, tr, leaf, tr.Root(), 0)

	if got := tr.Find(leaf.ID()); got != leaf {
		t.Error("expected Find to return attached node")
	}
	if got := tr.Find("missing"); got != nil {
		t.Errorf("expected nil for unknown id, got %v", got)
	}

	// Detached nodes stay findable so history can reattach them.
	if _, _, err := tr.Remove(leaf); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if got := tr.Find(leaf.ID()); got != leaf {
		t.Error("expected Find to return detached node")
	}
}

func TestContains(t *testing.T) {
	tr := mustTree(t)
	outer := mustNode(t, tr, KindAny, nil)
	inner := mustNode(t, tr, KindAll, nil)
	leaf := mustNode(t, tr, KindTrait, nil)
	sibling := mustNode(t, tr, KindTrait, nil)
	mustInsert(t, tr, outer, tr.Root(), 0)
	mustInsert(t, tr, inner, outer, 0)
	mustInsert(t, tr, leaf, inner, 0)
	mustInsert(t, tr, sibling, tr.Root(), 1)

	tests := []struct {
		name  string
		node  *Node
		other *Node
		want  bool
	}{
		{"self", outer, outer, true},
		{"direct child", outer, inner, true},
		{"grandchild", outer, leaf, true},
		{"sibling", outer, sibling, false},
		{"ancestor is not descendant", inner, outer, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.node.Contains(tt.other); got != tt.want {
				t.Errorf("Contains = %v, want %v", got, tt.want)
			}
		})
	}
}
