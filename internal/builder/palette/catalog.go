// Package palette exposes the static catalog of creatable requirement types.
// Catalog entries are immutable templates; dragging one never mutates the
// catalog, it only produces a transient creation request that the canvas
// adapter turns into a real node once the drop is confirmed.
package palette

import (
	"fmt"
	"strings"

	"github.com/louisbranch/threshold.games/internal/builder/tree"
	"github.com/louisbranch/threshold.games/internal/platform/id"
)

// Item is one creatable requirement type. Template holds the default payload
// used to instantiate a new node; callers always receive copies.
type Item struct {
	Type        tree.Kind
	DisplayName string
	Description string
	Template    tree.Payload
}

// Category groups related palette items under a heading. Collapse state is a
// presentation concern and lives with the caller; search filters items but
// never expands or collapses categories.
type Category struct {
	Name  string
	Items []Item
}

// CreationRequest is the transient output of dragging a palette item. The
// provisional identifier tracks the drag gesture; the real node identifier is
// allocated only when the drop is confirmed valid.
type CreationRequest struct {
	Type          tree.Kind
	Template      tree.Payload
	ProvisionalID string
}

var categories = []Category{
	{
		Name: "Checks",
		Items: []Item{
			{
				Type:        tree.KindTrait,
				DisplayName: "Trait Check",
				Description: "Requires a character trait within a numeric range",
				Template:    tree.Payload{"name": "", "min": float64(1)},
			},
			{
				Type:        tree.KindHas,
				DisplayName: "Has Entry",
				Description: "Requires a named entry in a character field",
				Template:    tree.Payload{"field": "", "name": ""},
			},
			{
				Type:        tree.KindCountTag,
				DisplayName: "Tag Count",
				Description: "Requires a minimum number of entries carrying a tag",
				Template:    tree.Payload{"tag": "", "min": float64(1)},
			},
		},
	},
	{
		Name: "Groups",
		Items: []Item{
			{
				Type:        tree.KindAny,
				DisplayName: "Any Of",
				Description: "Passes when at least one nested requirement passes",
			},
			{
				Type:        tree.KindAll,
				DisplayName: "All Of",
				Description: "Passes only when every nested requirement passes",
			},
		},
	},
}

// Categories returns the static catalog. The returned slices are copies;
// item templates are cloned on instantiation, not here.
func Categories() []Category {
	out := make([]Category, len(categories))
	for i, category := range categories {
		items := make([]Item, len(category.Items))
		copy(items, category.Items)
		out[i] = Category{Name: category.Name, Items: items}
	}
	return out
}

// Lookup returns the catalog item for a requirement kind.
func Lookup(kind tree.Kind) (Item, bool) {
	for _, category := range categories {
		for _, item := range category.Items {
			if item.Type == kind {
				return item, true
			}
		}
	}
	return Item{}, false
}

// Search returns the items whose display name or description contains the
// query, case-insensitively. An empty query returns every item. Results keep
// catalog order.
func Search(query string) []Item {
	query = strings.ToLower(strings.TrimSpace(query))
	var out []Item
	for _, category := range categories {
		for _, item := range category.Items {
			if query == "" ||
				strings.Contains(strings.ToLower(item.DisplayName), query) ||
				strings.Contains(strings.ToLower(item.Description), query) {
				out = append(out, item)
			}
		}
	}
	return out
}

// NewCreationRequest starts a palette drag for the item: a copy of the
// template plus a provisional identifier for the gesture.
func (i Item) NewCreationRequest() (CreationRequest, error) {
	provisional, err := id.NewID()
	if err != nil {
		return CreationRequest{}, fmt.Errorf("generate provisional id: %w", err)
	}
	return CreationRequest{
		Type:          i.Type,
		Template:      i.Template.Clone(),
		ProvisionalID: provisional,
	}, nil
}
