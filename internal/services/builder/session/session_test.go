package session

import (
	"strings"
	"testing"

	"github.com/louisbranch/threshold.games/internal/builder/interaction"
	apperrors "github.com/louisbranch/threshold.games/internal/platform/errors"
)

func openSession(t *testing.T, treeJSON string) (*Manager, *Session) {
	t.Helper()
	manager := NewManager()
	s, err := manager.Open("def-1", []byte(treeJSON), "en-US")
	if err != nil {
		t.Fatalf("open session: %v", err)
	}
	return manager, s
}

func TestOpenEmptyDefinition(t *testing.T) {
	_, s := openSession(t, "")

	state := s.Snapshot()
	if len(state.Nodes) != 0 {
		t.Fatalf("nodes = %d, want 0", len(state.Nodes))
	}
	if state.DefinitionID != "def-1" {
		t.Fatalf("definition = %q", state.DefinitionID)
	}
	if state.Mode != interaction.ModeIdle {
		t.Fatalf("mode = %s, want idle", state.Mode)
	}
	// Root append target plus its single insertion slot.
	if len(state.Targets) != 2 {
		t.Fatalf("targets = %d, want 2", len(state.Targets))
	}
}

func TestOpenRejectsMalformedTree(t *testing.T) {
	manager := NewManager()
	if _, err := manager.Open("def-1", []byte(`{"trait":`), "en-US"); err == nil {
		t.Fatal("expected deserialize error")
	}
}

func TestDropFromPaletteAndSerialize(t *testing.T) {
	_, s := openSession(t, "[]")

	payload := []byte(`{"type":"trait","source":"palette","template":{"name":"strength","min":3},"id":"prov"}`)
	state, err := s.Drop(payload, TargetRef{Kind: "root"})
	if err != nil {
		t.Fatalf("drop: %v", err)
	}
	if len(state.Nodes) != 1 {
		t.Fatalf("nodes = %d, want 1", len(state.Nodes))
	}
	if !state.CanUndo {
		t.Error("drop not recorded")
	}
	if len(state.Announcement) == 0 {
		t.Error("drop produced no announcement")
	}

	serialized, err := s.Serialize()
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	if want := `[{"trait":{"min":3,"name":"strength"}}]`; string(serialized) != want {
		t.Fatalf("serialized = %s, want %s", serialized, want)
	}
}

func TestDropIntoNamedContainer(t *testing.T) {
	_, s := openSession(t, `[{"all":[]}]`)
	state := s.Snapshot()
	groupID := state.Nodes[0].ID

	payload := []byte(`{"type":"trait","source":"palette","template":{"name":"x","min":1},"id":"p"}`)
	state, err := s.Drop(payload, TargetRef{Kind: "container", ContainerID: groupID})
	if err != nil {
		t.Fatalf("drop: %v", err)
	}
	if len(state.Nodes) != 2 || state.Nodes[1].Depth != 1 {
		t.Fatalf("nodes = %+v, want nested trait", state.Nodes)
	}
	// The group is populated now, so validation is clean.
	if len(state.Issues) != 0 {
		t.Fatalf("issues = %+v, want none", state.Issues)
	}
}

func TestDropTargetResolutionFailures(t *testing.T) {
	_, s := openSession(t, "[]")
	payload := []byte(`{"type":"trait","source":"palette","id":"p"}`)

	tests := []struct {
		name string
		ref  TargetRef
		want apperrors.Code
	}{
		{name: "unknown kind", ref: TargetRef{Kind: "ceiling"}, want: apperrors.CodeDropRejected},
		{name: "missing container", ref: TargetRef{Kind: "container", ContainerID: "nope"}, want: apperrors.CodeSessionNodeMissing},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := s.Drop(payload, tc.ref)
			if got := apperrors.GetCode(err); got != tc.want {
				t.Fatalf("code = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestEditDeleteUndoRedoFlow(t *testing.T) {
	_, s := openSession(t, `[{"trait":{"min":1,"name":"strength"}}]`)
	nodeID := s.Snapshot().Nodes[0].ID

	state, err := s.Edit(nodeID, "trait", map[string]any{"name": "agility", "min": 4})
	if err != nil {
		t.Fatalf("edit: %v", err)
	}
	if !strings.Contains(state.Nodes[0].Label, "agility") {
		t.Fatalf("label = %q after edit", state.Nodes[0].Label)
	}

	state, err = s.Delete(nodeID)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(state.Nodes) != 0 {
		t.Fatalf("nodes = %d after delete, want 0", len(state.Nodes))
	}

	state, ok := s.Undo()
	if !ok || len(state.Nodes) != 1 {
		t.Fatalf("undo delete failed: ok=%v nodes=%d", ok, len(state.Nodes))
	}
	if state.Nodes[0].ID != nodeID {
		t.Fatalf("restored id = %s, want %s", state.Nodes[0].ID, nodeID)
	}

	state, ok = s.Redo()
	if !ok || len(state.Nodes) != 0 {
		t.Fatalf("redo delete failed: ok=%v nodes=%d", ok, len(state.Nodes))
	}
}

func TestKeyboardDragFlow(t *testing.T) {
	_, s := openSession(t, `[{"trait":{"min":1,"name":"a"}},{"trait":{"min":1,"name":"b"}}]`)
	first := s.Snapshot().Nodes[0].ID

	state, err := s.Grab(first)
	if err != nil {
		t.Fatalf("grab: %v", err)
	}
	if state.Mode != interaction.ModeKeyboardDrag {
		t.Fatalf("mode = %s, want keyboard drag", state.Mode)
	}
	if state.FocusIndex != 0 || len(state.Targets) == 0 {
		t.Fatalf("state = %+v, want focused targets", state)
	}

	state, err = s.MoveFocus(len(state.Targets) - 1)
	if err != nil {
		t.Fatalf("move focus: %v", err)
	}
	state, err = s.Confirm()
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if state.Mode != interaction.ModeIdle {
		t.Fatalf("mode = %s after confirm, want idle", state.Mode)
	}
	if state.Nodes[1].ID != first {
		t.Fatalf("nodes = %+v, want grabbed node last", state.Nodes)
	}
}

func TestKeyboardCancelRestoresOrigin(t *testing.T) {
	_, s := openSession(t, `[{"trait":{"min":1,"name":"a"}}]`)
	nodeID := s.Snapshot().Nodes[0].ID

	if _, err := s.Grab(nodeID); err != nil {
		t.Fatalf("grab: %v", err)
	}
	state, origin := s.Cancel()
	if origin != nodeID {
		t.Fatalf("origin = %q, want %q", origin, nodeID)
	}
	if state.Mode != interaction.ModeIdle {
		t.Fatalf("mode = %s, want idle", state.Mode)
	}
}

func TestMoveFocusWhileIdle(t *testing.T) {
	_, s := openSession(t, "[]")
	_, err := s.MoveFocus(1)
	if got := apperrors.GetCode(err); got != apperrors.CodeSessionWrongMode {
		t.Fatalf("code = %v, want %v", got, apperrors.CodeSessionWrongMode)
	}
}

func TestSnapshotDrainsAnnouncements(t *testing.T) {
	_, s := openSession(t, "[]")
	payload := []byte(`{"type":"any","source":"palette","id":"p"}`)
	if _, err := s.Drop(payload, TargetRef{Kind: "root"}); err != nil {
		t.Fatalf("drop: %v", err)
	}

	state := s.Snapshot()
	if len(state.Announcement) != 0 {
		t.Fatalf("second snapshot still carries announcements: %+v", state.Announcement)
	}
}

func TestManagerLifecycle(t *testing.T) {
	manager, s := openSession(t, "[]")

	got, err := manager.Get(s.ID())
	if err != nil || got != s {
		t.Fatalf("get session: %v", err)
	}
	if manager.Len() != 1 {
		t.Fatalf("len = %d, want 1", manager.Len())
	}

	if err := manager.Close(s.ID()); err != nil {
		t.Fatalf("close session: %v", err)
	}
	if _, err := manager.Get(s.ID()); apperrors.GetCode(err) != apperrors.CodeSessionNotFound {
		t.Fatalf("expected session not found, got %v", err)
	}
	if err := manager.Close(s.ID()); apperrors.GetCode(err) != apperrors.CodeSessionNotFound {
		t.Fatalf("expected session not found on double close, got %v", err)
	}
}
