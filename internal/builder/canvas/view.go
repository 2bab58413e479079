package canvas

import (
	"fmt"
	"strconv"

	"github.com/louisbranch/threshold.games/internal/builder/dropzone"
	"github.com/louisbranch/threshold.games/internal/builder/tree"
	apperrors "github.com/louisbranch/threshold.games/internal/platform/errors"
	"github.com/louisbranch/threshold.games/internal/platform/errors/i18n"
)

// NodeView is one row of the flat render projection, depth first in document
// order. Depth is 0 for top-level requirements.
type NodeView struct {
	ID      string
	Kind    tree.Kind
	Label   string
	Depth   int
	Index   int
	Payload tree.Payload
	Invalid bool
}

// Issue is one advisory validation finding, localized for display.
type Issue struct {
	NodeID  string
	Code    apperrors.Code
	Message string
}

// project flattens the tree into render rows. The root container itself is
// not rendered; its children are the top-level rows.
func project(t *tree.Tree) []NodeView {
	var rows []NodeView
	var descend func(container *tree.Node, depth int)
	descend = func(container *tree.Node, depth int) {
		for index, child := range container.Children() {
			rows = append(rows, NodeView{
				ID:      child.ID(),
				Kind:    child.Kind(),
				Label:   describe(child),
				Depth:   depth,
				Index:   index,
				Payload: child.Payload(),
			})
			if child.Kind().Container() {
				descend(child, depth+1)
			}
		}
	}
	descend(t.Root(), 0)
	return rows
}

// validate reports structural problems. The only structural rule today is
// that groups need at least one member to be decidable.
func validate(t *tree.Tree, catalog *i18n.Catalog) []Issue {
	var issues []Issue
	t.Root().Walk(func(node *tree.Node) bool {
		if node == t.Root() {
			return true
		}
		if node.Kind().Container() && node.Len() == 0 {
			metadata := map[string]string{"kind": describeKind(node.Kind())}
			issues = append(issues, Issue{
				NodeID:  node.ID(),
				Code:    apperrors.CodeRequirementGroupEmpty,
				Message: catalog.Message(i18n.CodeRequirementGroupEmpty, metadata),
			})
		}
		return true
	})
	return issues
}

func hasIssue(issues []Issue, nodeID string) bool {
	for _, issue := range issues {
		if issue.NodeID == nodeID {
			return true
		}
	}
	return false
}

// describe builds a short human label for announcements and render rows.
func describe(node *tree.Node) string {
	payload := node.Payload()
	switch node.Kind() {
	case tree.KindAny:
		return fmt.Sprintf("Any Of group (%d members)", node.Len())
	case tree.KindAll:
		return fmt.Sprintf("All Of group (%d members)", node.Len())
	case tree.KindTrait:
		name := payloadString(payload, "name")
		if name == "" {
			name = "unnamed trait"
		}
		return fmt.Sprintf("Trait check %s at least %s", name, payloadNumber(payload, "min"))
	case tree.KindHas:
		name := payloadString(payload, "name")
		if name == "" {
			name = "unnamed entry"
		}
		field := payloadString(payload, "field")
		if field == "" {
			return fmt.Sprintf("Has entry %s", name)
		}
		return fmt.Sprintf("Has entry %s in %s", name, field)
	case tree.KindCountTag:
		tag := payloadString(payload, "tag")
		if tag == "" {
			tag = "untagged"
		}
		return fmt.Sprintf("At least %s tagged %s", payloadNumber(payload, "min"), tag)
	default:
		return string(node.Kind())
	}
}

// DescribeTarget builds a spoken label for a drop location, used when
// keyboard focus lands on it.
func DescribeTarget(t *tree.Tree, target dropzone.Target) string {
	switch target.Kind {
	case dropzone.TargetRoot:
		return "end of top level"
	case dropzone.TargetContainer:
		return fmt.Sprintf("inside %s", describe(target.Container))
	case dropzone.TargetInsertion:
		return fmt.Sprintf("position %d in %s", target.Index+1, describeContainer(t, target.Container))
	default:
		return string(target.Kind)
	}
}

func describeContainer(t *tree.Tree, container *tree.Node) string {
	if container == t.Root() {
		return "top level"
	}
	return describe(container)
}

func describeKind(kind tree.Kind) string {
	switch kind {
	case tree.KindAny:
		return "Any Of"
	case tree.KindAll:
		return "All Of"
	default:
		return string(kind)
	}
}

func payloadString(payload tree.Payload, key string) string {
	if s, ok := payload[key].(string); ok {
		return s
	}
	return ""
}

// payloadNumber renders a numeric payload value. JSON round-trips store
// numbers as float64; templates and fresh payloads may carry int.
func payloadNumber(payload tree.Payload, key string) string {
	switch v := payload[key].(type) {
	case int:
		return strconv.Itoa(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return "0"
	}
}
