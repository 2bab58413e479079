// Package interaction arbitrates between pointer drags and keyboard-simulated
// drags. Both modalities funnel into the canvas adapter's drop path, so the
// history recorder sees one operation vocabulary regardless of input device.
package interaction

import (
	"encoding/json"
	"fmt"

	"github.com/louisbranch/threshold.games/internal/builder/announce"
	"github.com/louisbranch/threshold.games/internal/builder/canvas"
	"github.com/louisbranch/threshold.games/internal/builder/dropzone"
	"github.com/louisbranch/threshold.games/internal/builder/tree"
	apperrors "github.com/louisbranch/threshold.games/internal/platform/errors"
)

// Mode is the interaction state.
type Mode string

const (
	// ModeIdle means no keyboard drag is in progress.
	ModeIdle Mode = "idle"
	// ModeKeyboardDrag means a node or palette item is held and directional
	// input moves focus among valid drop targets.
	ModeKeyboardDrag Mode = "keyboard_drag"
)

// Controller drives keyboard drag mode and normalizes pointer drops. It is
// bound to one adapter and, like the rest of the engine, is not safe for
// concurrent use.
type Controller struct {
	adapter   *canvas.Adapter
	announcer announce.Announcer

	mode    Mode
	held    canvas.DragData
	targets []dropzone.Target
	focus   int
	// origin is the node to refocus when the drag is cancelled.
	origin string
}

// Option adjusts controller construction.
type Option func(*Controller)

// WithAnnouncer overrides the announcement sink. Pass the same sink as the
// adapter's so messages interleave in gesture order.
func WithAnnouncer(a announce.Announcer) Option {
	return func(c *Controller) {
		if a != nil {
			c.announcer = a
		}
	}
}

// NewController creates an idle controller over the adapter.
func NewController(adapter *canvas.Adapter, opts ...Option) *Controller {
	c := &Controller{
		adapter:   adapter,
		announcer: announce.Logger{},
		mode:      ModeIdle,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Mode returns the current interaction state.
func (c *Controller) Mode() Mode {
	return c.mode
}

// Targets returns the drop targets of the drag in progress, empty when idle.
func (c *Controller) Targets() []dropzone.Target {
	return c.targets
}

// FocusIndex returns the focused target index, -1 when idle.
func (c *Controller) FocusIndex() int {
	if c.mode != ModeKeyboardDrag {
		return -1
	}
	return c.focus
}

// FocusedTarget returns the currently focused drop target.
func (c *Controller) FocusedTarget() (dropzone.Target, bool) {
	if c.mode != ModeKeyboardDrag || len(c.targets) == 0 {
		return dropzone.Target{}, false
	}
	return c.targets[c.focus], true
}

// GrabNode enters keyboard drag mode holding an existing node. Targets are
// resolved against the held node so locations inside its subtree are absent.
func (c *Controller) GrabNode(nodeID string) error {
	if c.mode != ModeIdle {
		return apperrors.New(apperrors.CodeSessionWrongMode, "a drag is already in progress")
	}
	doc := c.adapter.Tree()
	node := doc.Find(nodeID)
	if node == nil || node == doc.Root() || node.Parent() == nil {
		return apperrors.WithMetadata(apperrors.CodeRequirementNotFound,
			fmt.Sprintf("requirement %q not in tree", nodeID),
			map[string]string{"id": nodeID})
	}
	targets := dropzone.ValidTargets(doc, node)
	if len(targets) == 0 {
		return apperrors.New(apperrors.CodeDropRejected, "no valid drop targets")
	}
	c.mode = ModeKeyboardDrag
	c.held = canvas.DragData{Source: canvas.SourceCanvas, Type: node.Kind(), ID: nodeID}
	c.targets = targets
	c.focus = 0
	c.origin = nodeID
	c.say(fmt.Sprintf("Grabbed. %s", canvas.DescribeTarget(doc, targets[0])), announce.PriorityAssertive)
	return nil
}

// GrabPaletteItem enters keyboard drag mode holding a new node template.
func (c *Controller) GrabPaletteItem(drag canvas.DragData) error {
	if c.mode != ModeIdle {
		return apperrors.New(apperrors.CodeSessionWrongMode, "a drag is already in progress")
	}
	if drag.Source != canvas.SourcePalette || !drag.Type.Valid() {
		return apperrors.WithMetadata(apperrors.CodeDragPayloadInvalid,
			fmt.Sprintf("not a palette drag: %q/%q", drag.Source, drag.Type),
			map[string]string{"source": string(drag.Source), "kind": string(drag.Type)})
	}
	doc := c.adapter.Tree()
	targets := dropzone.ValidTargets(doc, nil)
	c.mode = ModeKeyboardDrag
	c.held = drag
	c.targets = targets
	c.focus = 0
	c.origin = ""
	c.say(fmt.Sprintf("Grabbed. %s", canvas.DescribeTarget(doc, targets[0])), announce.PriorityAssertive)
	return nil
}

// MoveFocus shifts target focus by delta, clamped at the list bounds; there
// is no wrap-around. Each landing target is announced.
func (c *Controller) MoveFocus(delta int) {
	if c.mode != ModeKeyboardDrag || len(c.targets) == 0 {
		return
	}
	next := c.focus + delta
	if next < 0 {
		next = 0
	}
	if next > len(c.targets)-1 {
		next = len(c.targets) - 1
	}
	c.focus = next
	c.say(canvas.DescribeTarget(c.adapter.Tree(), c.targets[c.focus]), announce.PriorityPolite)
}

// Confirm drops the held item at the focused target through the same path a
// pointer drop takes. On success the controller returns to idle; on failure
// it stays in drag mode so the user can pick another target or cancel.
func (c *Controller) Confirm() error {
	if c.mode != ModeKeyboardDrag {
		return apperrors.New(apperrors.CodeSessionWrongMode, "no drag in progress")
	}
	target, ok := c.FocusedTarget()
	if !ok {
		return apperrors.New(apperrors.CodeDropRejected, "no focused target")
	}
	if err := c.adapter.PerformDrop(c.held, target); err != nil {
		return err
	}
	c.reset()
	return nil
}

// Cancel aborts the drag without mutating the tree and returns the id of the
// element that should regain focus (empty for palette drags).
func (c *Controller) Cancel() string {
	if c.mode != ModeKeyboardDrag {
		return ""
	}
	origin := c.origin
	c.reset()
	c.say("Drag cancelled", announce.PriorityAssertive)
	return origin
}

// PointerDrop executes a native drag-and-drop gesture: the raw transfer
// payload is parsed and validated, then dropped through the shared path.
func (c *Controller) PointerDrop(payload []byte, target dropzone.Target) error {
	drag, err := ParseDragPayload(payload)
	if err != nil {
		return err
	}
	return c.adapter.PerformDrop(drag, target)
}

func (c *Controller) reset() {
	c.mode = ModeIdle
	c.held = canvas.DragData{}
	c.targets = nil
	c.focus = 0
	c.origin = ""
}

func (c *Controller) say(message string, priority announce.Priority) {
	if c.announcer != nil {
		c.announcer.Announce(message, priority)
	}
}

// dragPayload is the wire shape of the drag transfer payload.
type dragPayload struct {
	Type     string          `json:"type"`
	Source   string          `json:"source"`
	Template json.RawMessage `json:"template,omitempty"`
	ID       string          `json:"id"`
}

// ParseDragPayload validates a raw drag transfer payload into DragData.
// Unknown types and sources are rejected here, before they can reach node
// creation. Template is only honored for palette drags.
func ParseDragPayload(raw []byte) (canvas.DragData, error) {
	var payload dragPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return canvas.DragData{}, apperrors.Wrap(apperrors.CodeDragPayloadInvalid, "malformed drag payload", err)
	}

	kind := tree.Kind(payload.Type)
	if !kind.Valid() {
		return canvas.DragData{}, apperrors.WithMetadata(apperrors.CodeDragPayloadInvalid,
			fmt.Sprintf("unknown requirement type %q", payload.Type),
			map[string]string{"kind": payload.Type})
	}

	switch canvas.DragSource(payload.Source) {
	case canvas.SourcePalette:
		var template tree.Payload
		if len(payload.Template) > 0 {
			if err := json.Unmarshal(payload.Template, &template); err != nil {
				return canvas.DragData{}, apperrors.Wrap(apperrors.CodeDragPayloadInvalid, "malformed drag template", err)
			}
		}
		return canvas.DragData{
			Source:   canvas.SourcePalette,
			Type:     kind,
			Template: template,
			ID:       payload.ID,
		}, nil
	case canvas.SourceCanvas:
		if payload.ID == "" {
			return canvas.DragData{}, apperrors.New(apperrors.CodeDragPayloadInvalid, "canvas drag without node id")
		}
		return canvas.DragData{Source: canvas.SourceCanvas, Type: kind, ID: payload.ID}, nil
	default:
		return canvas.DragData{}, apperrors.WithMetadata(apperrors.CodeDragPayloadInvalid,
			fmt.Sprintf("unknown drag source %q", payload.Source),
			map[string]string{"source": payload.Source})
	}
}
