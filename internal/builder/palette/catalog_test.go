package palette

import (
	"testing"

	"github.com/louisbranch/threshold.games/internal/builder/tree"
)

func TestSearch(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  []tree.Kind
	}{
		{"empty query returns all", "", []tree.Kind{tree.KindTrait, tree.KindHas, tree.KindCountTag, tree.KindAny, tree.KindAll}},
		{"name match", "trait", []tree.Kind{tree.KindTrait}},
		{"case insensitive", "TAG", []tree.Kind{tree.KindCountTag}},
		{"description match", "nested requirement", []tree.Kind{tree.KindAny, tree.KindAll}},
		{"whitespace trimmed", "  trait  ", []tree.Kind{tree.KindTrait}},
		{"no match", "teleport", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Search(tt.query)
			if len(got) != len(tt.want) {
				t.Fatalf("expected %d items, got %d", len(tt.want), len(got))
			}
			for i, kind := range tt.want {
				if got[i].Type != kind {
					t.Errorf("item %d: expected %s, got %s", i, kind, got[i].Type)
				}
			}
		})
	}
}

func TestLookup(t *testing.T) {
	item, ok := Lookup(tree.KindTrait)
	if !ok {
		t.Fatal("expected trait item")
	}
	if item.DisplayName != "Trait Check" {
		t.Errorf("unexpected display name %q", item.DisplayName)
	}
	if _, ok := Lookup(tree.Kind("teleport")); ok {
		t.Error("expected lookup miss for unknown kind")
	}
}

func TestTraitTemplateDefaults(t *testing.T) {
	item, ok := Lookup(tree.KindTrait)
	if !ok {
		t.Fatal("expected trait item")
	}
	if item.Template["name"] != "" {
		t.Errorf("expected empty default name, got %v", item.Template["name"])
	}
	if item.Template["min"] != float64(1) {
		t.Errorf("expected default min 1, got %v", item.Template["min"])
	}
}

func TestNewCreationRequestCopiesTemplate(t *testing.T) {
	item, ok := Lookup(tree.KindCountTag)
	if !ok {
		t.Fatal("expected count_tag item")
	}
	request, err := item.NewCreationRequest()
	if err != nil {
		t.Fatalf("new creation request: %v", err)
	}
	if request.ProvisionalID == "" {
		t.Error("expected provisional id")
	}

	request.Template["tag"] = "mutated"
	fresh, ok := Lookup(tree.KindCountTag)
	if !ok {
		t.Fatal("expected count_tag item")
	}
	if fresh.Template["tag"] != "" {
		t.Error("mutating a creation request must not touch the catalog")
	}
}

func TestCategoriesAreStable(t *testing.T) {
	first := Categories()
	first[0].Items[0].DisplayName = "mutated"

	second := Categories()
	if second[0].Items[0].DisplayName != "Trait Check" {
		t.Error("mutating a returned category must not touch the catalog")
	}
}
