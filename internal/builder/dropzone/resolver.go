// Package dropzone computes the valid drop locations for a dragged
// requirement. The resolver is stateless: every query walks the current tree,
// so targets always reflect the latest structural edits regardless of whether
// they came from pointer or keyboard gestures.
package dropzone

import (
	"github.com/louisbranch/threshold.games/internal/builder/tree"
)

// TargetKind identifies a drop location category.
type TargetKind string

const (
	// TargetRoot appends at the end of the top-level requirement list.
	TargetRoot TargetKind = "root"
	// TargetContainer appends at the end of a group's child list.
	TargetContainer TargetKind = "container"
	// TargetInsertion drops between two siblings at a precise index.
	TargetInsertion TargetKind = "insertion"
)

// Target is one drop location. Container is the owning group (the root
// container for TargetRoot) and Index is the insertion position for
// TargetInsertion; append targets carry the list length at resolve time.
type Target struct {
	Kind      TargetKind
	Container *tree.Node
	Index     int
	Reason    string
}

// ValidTargets returns every location in the tree that accepts the dragged
// node, depth first in document order. A nil dragged node stands for a
// palette drag, which every location accepts.
func ValidTargets(t *tree.Tree, dragged *tree.Node) []Target {
	if t == nil || t.Root() == nil {
		return nil
	}
	var targets []Target
	root := t.Root()

	targets = append(targets, Target{
		Kind:      TargetRoot,
		Container: root,
		Index:     root.Len(),
		Reason:    "top-level requirements accept any type",
	})
	targets = appendInsertionTargets(targets, root)

	var descend func(container *tree.Node)
	descend = func(container *tree.Node) {
		for _, child := range container.Children() {
			if !child.Kind().Container() {
				continue
			}
			// Locations inside the dragged subtree would create a cycle.
			if dragged != nil && dragged.Contains(child) {
				continue
			}
			targets = append(targets, Target{
				Kind:      TargetContainer,
				Container: child,
				Index:     child.Len(),
				Reason:    "groups accept both single requirements and nested groups",
			})
			targets = appendInsertionTargets(targets, child)
			descend(child)
		}
	}
	descend(root)
	return targets
}

func appendInsertionTargets(targets []Target, container *tree.Node) []Target {
	// Insertion points exist between and around existing siblings, so a list
	// of n children exposes n+1 slots. The trailing slot duplicates the
	// append target but keeps indexes contiguous for keyboard traversal.
	for index := 0; index <= container.Len(); index++ {
		targets = append(targets, Target{
			Kind:      TargetInsertion,
			Container: container,
			Index:     index,
			Reason:    "sibling order is explicit; drops between siblings reorder",
		})
	}
	return targets
}

// IsValidDrop reports whether the target accepts the dragged node. A nil
// dragged node (palette drag) is accepted everywhere. Drops onto the dragged
// node itself or any of its descendants are rejected to keep the tree
// acyclic. No-op drops are valid; detecting and skipping them is the canvas
// adapter's concern.
func IsValidDrop(dragged *tree.Node, target Target) bool {
	if target.Container == nil || !target.Container.Kind().Container() {
		return false
	}
	if dragged == nil {
		return true
	}
	return !dragged.Contains(target.Container)
}
