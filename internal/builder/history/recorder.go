// Package history records structural and content mutations of a requirement
// tree as reversible operations, providing linear undo/redo with truncation
// on divergence and a bounded history size.
package history

import (
	"fmt"

	"github.com/louisbranch/threshold.games/internal/builder/tree"
	apperrors "github.com/louisbranch/threshold.games/internal/platform/errors"
)

// DefaultLimit caps how many operations the recorder retains. When the cap
// is exceeded the oldest operation is evicted and becomes non-undoable.
const DefaultLimit = 50

// OpKind identifies a recorded operation type.
type OpKind string

const (
	// OpMove relocates an existing node between positions.
	OpMove OpKind = "move"
	// OpCreate attaches a freshly allocated node.
	OpCreate OpKind = "create"
	// OpDelete detaches a node; the operation holds the detached subtree so
	// an undo can reattach it with identifiers and payloads intact.
	OpDelete OpKind = "delete"
	// OpEdit swaps a node's editable content.
	OpEdit OpKind = "edit"
)

// Position addresses a slot in a container's child list. Indexes are
// interpreted against the tree state in which the operation applies, so a
// remove followed by an insert at the same Position is an exact inverse.
type Position struct {
	Parent *tree.Node
	Index  int
}

// Operation is one recorded, reversible mutation. Move uses From/To; create
// and delete use Parent/Index; edit uses OldData/NewData. Element always
// names the affected node. For delete it doubles as the captured subtree,
// which keeps child identifiers stable across undo and redo.
type Operation struct {
	Kind    OpKind
	Element *tree.Node
	From    Position
	To      Position
	Parent  *tree.Node
	Index   int
	OldData tree.Data
	NewData tree.Data
}

// Recorder is a linear undo/redo history over one tree. The cursor points at
// the last applied operation; -1 means nothing is undoable.
type Recorder struct {
	tree     *tree.Tree
	ops      []Operation
	cursor   int
	limit    int
	onChange func()
}

// Option adjusts recorder construction.
type Option func(*Recorder)

// WithLimit overrides the history cap. Non-positive values fall back to
// DefaultLimit.
func WithLimit(limit int) Option {
	return func(r *Recorder) {
		if limit > 0 {
			r.limit = limit
		}
	}
}

// NewRecorder creates an empty history bound to the given tree.
func NewRecorder(t *tree.Tree, opts ...Option) *Recorder {
	r := &Recorder{tree: t, cursor: -1, limit: DefaultLimit}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SetOnChange registers a hook fired after every successful record, undo, and
// redo. The canvas adapter uses it to re-render and re-validate; history
// operations are only meaningful in terms of their effect on the rendered
// tree, so the coupling is mandatory.
func (r *Recorder) SetOnChange(fn func()) {
	r.onChange = fn
}

// Len returns the number of retained operations.
func (r *Recorder) Len() int {
	return len(r.ops)
}

// CanUndo reports whether an operation is available to reverse.
func (r *Recorder) CanUndo() bool {
	return r.cursor >= 0
}

// CanRedo reports whether a reversed operation is available to re-apply.
func (r *Recorder) CanRedo() bool {
	return r.cursor < len(r.ops)-1
}

// Record validates and appends an operation that the caller has already
// applied to the tree. Entries beyond the cursor are discarded first, so a
// new edit after an undo forks history irrevocably. Exceeding the cap evicts
// the oldest entry and shifts the cursor so it still points at the same
// logical operation.
func (r *Recorder) Record(op Operation) error {
	if err := validate(op); err != nil {
		return err
	}
	r.ops = append(r.ops[:r.cursor+1], op)
	r.cursor++
	if len(r.ops) > r.limit {
		overflow := len(r.ops) - r.limit
		r.ops = append([]Operation(nil), r.ops[overflow:]...)
		r.cursor -= overflow
	}
	r.fireChange()
	return nil
}

func validate(op Operation) error {
	if op.Element == nil {
		return apperrors.New(apperrors.CodeHistoryInvalidOperation, "operation element is required")
	}
	switch op.Kind {
	case OpMove:
		if op.From.Parent == nil || op.To.Parent == nil {
			return apperrors.New(apperrors.CodeHistoryInvalidOperation, "move operation requires both positions")
		}
		if op.From.Index < 0 || op.To.Index < 0 {
			return apperrors.New(apperrors.CodeHistoryInvalidOperation, "move operation index must not be negative")
		}
	case OpCreate, OpDelete:
		if op.Parent == nil {
			return apperrors.New(apperrors.CodeHistoryInvalidOperation,
				fmt.Sprintf("%s operation requires a parent", op.Kind))
		}
		if op.Index < 0 {
			return apperrors.New(apperrors.CodeHistoryInvalidOperation,
				fmt.Sprintf("%s operation index must not be negative", op.Kind))
		}
	case OpEdit:
		if !op.OldData.Kind.Valid() || !op.NewData.Kind.Valid() {
			return apperrors.New(apperrors.CodeHistoryInvalidOperation, "edit operation requires old and new data")
		}
	default:
		return apperrors.WithMetadata(apperrors.CodeHistoryInvalidOperation,
			fmt.Sprintf("unknown operation kind %q", op.Kind),
			map[string]string{"kind": string(op.Kind)})
	}
	return nil
}

// Undo reverses the operation at the cursor. It returns false when there is
// nothing to undo or the inverse fails to apply; on failure the cursor is
// left unchanged so no partial state is silently kept.
func (r *Recorder) Undo() bool {
	if r.cursor < 0 {
		return false
	}
	op := r.ops[r.cursor]
	if err := r.applyInverse(op); err != nil {
		return false
	}
	r.cursor--
	r.fireChange()
	return true
}

// Redo re-applies the operation after the cursor, mirroring the forward
// direction of each operation type. It returns false when history holds
// nothing to redo or the application fails.
func (r *Recorder) Redo() bool {
	if r.cursor >= len(r.ops)-1 {
		return false
	}
	op := r.ops[r.cursor+1]
	if err := r.applyForward(op); err != nil {
		return false
	}
	r.cursor++
	r.fireChange()
	return true
}

func (r *Recorder) applyInverse(op Operation) error {
	switch op.Kind {
	case OpMove:
		return r.tree.Move(op.Element, op.From.Parent, op.From.Index)
	case OpCreate:
		_, _, err := r.tree.Remove(op.Element)
		return err
	case OpDelete:
		return r.tree.Insert(op.Element, op.Parent, op.Index)
	case OpEdit:
		return r.tree.ReplaceData(op.Element, op.OldData)
	}
	return apperrors.New(apperrors.CodeHistoryInvalidOperation, "unknown operation kind")
}

func (r *Recorder) applyForward(op Operation) error {
	switch op.Kind {
	case OpMove:
		return r.tree.Move(op.Element, op.To.Parent, op.To.Index)
	case OpCreate:
		return r.tree.Insert(op.Element, op.Parent, op.Index)
	case OpDelete:
		_, _, err := r.tree.Remove(op.Element)
		return err
	case OpEdit:
		return r.tree.ReplaceData(op.Element, op.NewData)
	}
	return apperrors.New(apperrors.CodeHistoryInvalidOperation, "unknown operation kind")
}

func (r *Recorder) fireChange() {
	if r.onChange != nil {
		r.onChange()
	}
}
