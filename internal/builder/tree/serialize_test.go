package tree

import (
	"strings"
	"testing"
)

func TestSerializeEmptyTree(t *testing.T) {
	tr := mustTree(t)
	data, err := Serialize(tr)
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	if string(data) != "[]" {
		t.Errorf("expected empty list, got %s", data)
	}
}

func TestSerializeSingleLeaf(t *testing.T) {
	tr := mustTree(t)
	leaf := mustNode(t, tr, KindTrait, Payload{"name": "", "min": float64(1)})
	mustInsert(t, tr, leaf, tr.Root(), 0)

	data, err := Serialize(tr)
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	want := `[{"trait":{"min":1,"name":""}}]`
	if string(data) != want {
		t.Errorf("expected %s, got %s", want, data)
	}
}

func TestSerializeNestedGroups(t *testing.T) {
	tr := mustTree(t)
	all := mustNode(t, tr, KindAll, nil)
	anyGroup := mustNode(t, tr, KindAny, nil)
	trait := mustNode(t, tr, KindTrait, Payload{"name": "strength", "min": float64(3), "max": float64(5)})
	has := mustNode(t, tr, KindHas, Payload{"field": "items", "name": "rope"})
	count := mustNode(t, tr, KindCountTag, Payload{"tag": "combat", "min": float64(2)})

	mustInsert(t, tr, all, tr.Root(), 0)
	mustInsert(t, tr, trait, all, 0)
	mustInsert(t, tr, anyGroup, all, 1)
	mustInsert(t, tr, has, anyGroup, 0)
	mustInsert(t, tr, count, anyGroup, 1)

	data, err := Serialize(tr)
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	want := `[{"all":[{"trait":{"max":5,"min":3,"name":"strength"}},` +
		`{"any":[{"has":{"field":"items","name":"rope"}},{"count_tag":{"min":2,"tag":"combat"}}]}]}]`
	if string(data) != want {
		t.Errorf("serialize mismatch:\nwant %s\ngot  %s", want, data)
	}
}

func TestRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"empty", `[]`},
		{"single trait", `[{"trait":{"min":1,"name":"strength"}}]`},
		{"empty group", `[{"any":[]}]`},
		{"nested", `[{"all":[{"has":{"field":"skills","name":"archery"}},{"any":[{"count_tag":{"min":2,"tag":"noble"}},{"trait":{"max":4,"min":1,"name":"wits"}}]}]}]`},
		{"sibling order", `[{"trait":{"name":"a"}},{"trait":{"name":"b"}},{"trait":{"name":"c"}}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr, err := Deserialize([]byte(tt.doc))
			if err != nil {
				t.Fatalf("deserialize: %v", err)
			}
			data, err := Serialize(tr)
			if err != nil {
				t.Fatalf("serialize: %v", err)
			}
			if string(data) != tt.doc {
				t.Errorf("round trip mismatch:\nwant %s\ngot  %s", tt.doc, data)
			}
		})
	}
}

func TestDeserializeRejectsMalformedDocuments(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"not a list", `{"trait":{}}`, "parse requirement list"},
		{"unknown kind", `[{"sometimes":{}}]`, "unknown requirement kind"},
		{"two kind keys", `[{"trait":{},"has":{}}]`, "exactly one kind"},
		{"container with object", `[{"any":{"name":"x"}}]`, "group children"},
		{"leaf with list", `[{"trait":[1,2]}]`, "payload"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Deserialize([]byte(tt.doc))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestDeserializeAllocatesFreshIDs(t *testing.T) {
	doc := `[{"any":[{"trait":{"name":"a"}}]}]`
	first, err := Deserialize([]byte(doc))
	if err != nil {
		t.Fatalf("deserialize: %v", err)
	}
	second, err := Deserialize([]byte(doc))
	if err != nil {
		t.Fatalf("deserialize: %v", err)
	}

	ids := map[string]struct{}{}
	first.Root().Walk(func(n *Node) bool {
		ids[n.ID()] = struct{}{}
		return true
	})
	second.Root().Walk(func(n *Node) bool {
		if _, ok := ids[n.ID()]; ok {
			t.Errorf("id %q reused across documents", n.ID())
		}
		return true
	})
}

func TestEqual(t *testing.T) {
	doc := `[{"all":[{"trait":{"name":"a"}}]}]`
	a, err := Deserialize([]byte(doc))
	if err != nil {
		t.Fatalf("deserialize: %v", err)
	}
	b, err := Deserialize([]byte(doc))
	if err != nil {
		t.Fatalf("deserialize: %v", err)
	}
	if !Equal(a, b) {
		t.Error("expected structurally equal trees")
	}

	extra := mustNode(t, b, KindTrait, Payload{"name": "b"})
	mustInsert(t, b, extra, b.Root(), 1)
	if Equal(a, b) {
		t.Error("expected inequality after mutation")
	}
}
