// Package canvas owns the live projection of a requirement tree: a flat
// render model, the current drop zones, and the structural validation report.
// It is the single funnel for gestures: pointer and keyboard drops, edits,
// deletes, undo and redo all pass through here, so the history recorder sees
// one operation vocabulary regardless of input modality.
package canvas

import (
	"fmt"

	"github.com/louisbranch/threshold.games/internal/builder/announce"
	"github.com/louisbranch/threshold.games/internal/builder/dropzone"
	"github.com/louisbranch/threshold.games/internal/builder/history"
	"github.com/louisbranch/threshold.games/internal/builder/tree"
	apperrors "github.com/louisbranch/threshold.games/internal/platform/errors"
	"github.com/louisbranch/threshold.games/internal/platform/errors/i18n"
)

// DragSource identifies where a drag gesture originated.
type DragSource string

const (
	// SourcePalette creates a new node from a catalog template.
	SourcePalette DragSource = "palette"
	// SourceCanvas moves an existing node.
	SourceCanvas DragSource = "canvas"
)

// DragData is the parsed drag transfer payload. Template is present only for
// palette-sourced drags; ID names the dragged node for canvas drags and the
// provisional gesture for palette drags.
type DragData struct {
	Source   DragSource
	Type     tree.Kind
	Template tree.Payload
	ID       string
}

// Adapter projects one requirement tree for rendering and routes every
// mutation through the drop-zone resolver and the history recorder. After
// each successful mutation it recomputes, in fixed order: drop zones, the
// structural overview, and the validation report.
type Adapter struct {
	tree      *tree.Tree
	recorder  *history.Recorder
	announcer announce.Announcer
	catalog   *i18n.Catalog

	zones  []dropzone.Target
	view   []NodeView
	issues []Issue
}

// Option adjusts adapter construction.
type Option func(*Adapter)

// WithAnnouncer overrides the announcement sink.
func WithAnnouncer(a announce.Announcer) Option {
	return func(adapter *Adapter) {
		if a != nil {
			adapter.announcer = a
		}
	}
}

// WithLocale selects the locale for validation and announcement messages.
func WithLocale(locale string) Option {
	return func(adapter *Adapter) {
		adapter.catalog = i18n.GetCatalog(locale)
	}
}

// WithHistoryLimit overrides the undo history cap.
func WithHistoryLimit(limit int) Option {
	return func(adapter *Adapter) {
		adapter.recorder = history.NewRecorder(adapter.tree, history.WithLimit(limit))
	}
}

// New creates an adapter over the tree, wiring a fresh history recorder so
// every record, undo, and redo refreshes the projection.
func New(t *tree.Tree, opts ...Option) *Adapter {
	adapter := &Adapter{
		tree:      t,
		recorder:  history.NewRecorder(t),
		announcer: announce.Logger{},
		catalog:   i18n.GetCatalog(""),
	}
	for _, opt := range opts {
		opt(adapter)
	}
	adapter.recorder.SetOnChange(adapter.refresh)
	adapter.refresh()
	return adapter
}

// Tree returns the underlying document.
func (a *Adapter) Tree() *tree.Tree {
	return a.tree
}

// Recorder returns the history recorder bound to this adapter.
func (a *Adapter) Recorder() *history.Recorder {
	return a.recorder
}

// Zones returns the drop zones computed after the last mutation, resolved
// for palette drags. Keyboard moves of existing nodes query the resolver
// directly so cycle exclusions apply to the held node.
func (a *Adapter) Zones() []dropzone.Target {
	return a.zones
}

// View returns the flat render projection in document order.
func (a *Adapter) View() []NodeView {
	return a.view
}

// Validation returns the current structural validation report. Issues are
// advisory: a document with issues still serializes and saves.
func (a *Adapter) Validation() []Issue {
	return a.issues
}

// Serialize renders the document in the rule-definition wire format.
func (a *Adapter) Serialize() ([]byte, error) {
	return tree.Serialize(a.tree)
}

// PerformDrop executes a confirmed drop gesture. Palette drags create a node
// from the template; canvas drags move the dragged node. Invalid drops are
// rejected up front with no tree mutation and no recorded operation. Drops
// that would not change position are valid no-ops and record nothing.
func (a *Adapter) PerformDrop(drag DragData, target dropzone.Target) error {
	switch drag.Source {
	case SourcePalette:
		return a.dropFromPalette(drag, target)
	case SourceCanvas:
		return a.dropFromCanvas(drag, target)
	default:
		return apperrors.WithMetadata(apperrors.CodeDragPayloadInvalid,
			fmt.Sprintf("unknown drag source %q", drag.Source),
			map[string]string{"source": string(drag.Source)})
	}
}

func (a *Adapter) dropFromPalette(drag DragData, target dropzone.Target) error {
	if !dropzone.IsValidDrop(nil, target) {
		return a.reject(apperrors.New(apperrors.CodeDropRejected, "target does not accept new requirements"))
	}
	node, err := a.tree.NewNode(drag.Type, drag.Template)
	if err != nil {
		return err
	}
	index := resolveIndex(target)
	if err := a.tree.Insert(node, target.Container, index); err != nil {
		return err
	}
	op := history.Operation{Kind: history.OpCreate, Element: node, Parent: target.Container, Index: index}
	if err := a.recorder.Record(op); err != nil {
		return err
	}
	a.say(a.catalog.Message(i18n.MsgNodeAdded, map[string]string{"node": describe(node)}), announce.PriorityPolite)
	return nil
}

func (a *Adapter) dropFromCanvas(drag DragData, target dropzone.Target) error {
	node := a.tree.Find(drag.ID)
	if node == nil || node.Parent() == nil && node != a.tree.Root() {
		return apperrors.WithMetadata(apperrors.CodeRequirementNotFound,
			fmt.Sprintf("dragged requirement %q not in tree", drag.ID),
			map[string]string{"id": drag.ID})
	}
	if !dropzone.IsValidDrop(node, target) {
		return a.reject(apperrors.New(apperrors.CodeDropRejected, "target is the dragged requirement or inside it"))
	}

	oldParent := node.Parent()
	oldIndex := oldParent.IndexOf(node)
	newParent := target.Container
	newIndex := resolveIndex(target)
	if newParent == oldParent {
		// Insertion indexes are resolved against the pre-move sibling list;
		// compensate for the slot vacated by the removal.
		if newIndex > oldIndex {
			newIndex--
		}
		if newIndex == oldIndex {
			return nil
		}
	}

	if err := a.tree.Move(node, newParent, newIndex); err != nil {
		return err
	}
	op := history.Operation{
		Kind:    history.OpMove,
		Element: node,
		From:    history.Position{Parent: oldParent, Index: oldIndex},
		To:      history.Position{Parent: newParent, Index: newIndex},
	}
	if err := a.recorder.Record(op); err != nil {
		return err
	}
	a.say(a.catalog.Message(i18n.MsgNodeMoved, map[string]string{"node": describe(node), "container": describeContainer(a.tree, newParent)}), announce.PriorityPolite)
	return nil
}

// EditNode swaps a node's editable content and records the edit.
func (a *Adapter) EditNode(nodeID string, data tree.Data) error {
	node := a.tree.Find(nodeID)
	if node == nil {
		return apperrors.WithMetadata(apperrors.CodeRequirementNotFound,
			fmt.Sprintf("requirement %q not in tree", nodeID),
			map[string]string{"id": nodeID})
	}
	oldData := node.Data()
	if err := a.tree.ReplaceData(node, data); err != nil {
		return err
	}
	op := history.Operation{Kind: history.OpEdit, Element: node, OldData: oldData, NewData: data.Clone()}
	if err := a.recorder.Record(op); err != nil {
		return err
	}
	a.say(a.catalog.Message(i18n.MsgNodeUpdated, map[string]string{"node": describe(node)}), announce.PriorityPolite)
	return nil
}

// DeleteNode detaches a node with its whole subtree and records the delete.
// The detached subtree stays captured by the operation so undo restores it
// with identifiers and payloads intact.
func (a *Adapter) DeleteNode(nodeID string) error {
	node := a.tree.Find(nodeID)
	if node == nil || node == a.tree.Root() {
		return apperrors.WithMetadata(apperrors.CodeRequirementNotFound,
			fmt.Sprintf("requirement %q not in tree", nodeID),
			map[string]string{"id": nodeID})
	}
	label := describe(node)
	parent, index, err := a.tree.Remove(node)
	if err != nil {
		return err
	}
	op := history.Operation{Kind: history.OpDelete, Element: node, Parent: parent, Index: index}
	if err := a.recorder.Record(op); err != nil {
		return err
	}
	a.say(a.catalog.Message(i18n.MsgNodeDeleted, map[string]string{"node": label}), announce.PriorityPolite)
	return nil
}

// Undo reverses the most recent operation. Failures are announced and leave
// the document and cursor unchanged.
func (a *Adapter) Undo() bool {
	if !a.recorder.Undo() {
		a.say(a.catalog.Message(i18n.CodeHistoryUndoFailed, nil), announce.PriorityAssertive)
		return false
	}
	a.say(a.catalog.Message(i18n.MsgChangeUndone, nil), announce.PriorityPolite)
	return true
}

// Redo re-applies the most recently undone operation.
func (a *Adapter) Redo() bool {
	if !a.recorder.Redo() {
		a.say(a.catalog.Message(i18n.CodeHistoryRedoFailed, nil), announce.PriorityAssertive)
		return false
	}
	a.say(a.catalog.Message(i18n.MsgChangeRedone, nil), announce.PriorityPolite)
	return true
}

// refresh recomputes the projection after a mutation: drop zones first, then
// the structural overview, then validation, which must see the final tree.
func (a *Adapter) refresh() {
	a.zones = dropzone.ValidTargets(a.tree, nil)
	a.view = project(a.tree)
	a.issues = validate(a.tree, a.catalog)
	for i := range a.view {
		a.view[i].Invalid = hasIssue(a.issues, a.view[i].ID)
	}
}

func (a *Adapter) reject(err *apperrors.Error) error {
	a.say(a.catalog.Message(string(err.Code), err.Metadata), announce.PriorityAssertive)
	return err
}

func (a *Adapter) say(message string, priority announce.Priority) {
	if a.announcer != nil {
		a.announcer.Announce(message, priority)
	}
}

func resolveIndex(target dropzone.Target) int {
	if target.Kind == dropzone.TargetInsertion {
		return target.Index
	}
	// Root and container targets append; the live length wins over the
	// length captured when the target was resolved.
	return target.Container.Len()
}
