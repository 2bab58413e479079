// Package session manages server-side editing sessions for rule definitions.
// Each session owns one requirement tree plus its adapter, history, and
// interaction controller; transports address mutations by node id and target
// reference, so the wire never carries pointers into the tree.
package session

import (
	"fmt"
	"sync"

	"github.com/louisbranch/threshold.games/internal/builder/announce"
	"github.com/louisbranch/threshold.games/internal/builder/canvas"
	"github.com/louisbranch/threshold.games/internal/builder/dropzone"
	"github.com/louisbranch/threshold.games/internal/builder/interaction"
	"github.com/louisbranch/threshold.games/internal/builder/tree"
	apperrors "github.com/louisbranch/threshold.games/internal/platform/errors"
	"github.com/louisbranch/threshold.games/internal/platform/id"
)

// TargetRef addresses a drop location over the wire. ContainerID is ignored
// for root targets.
type TargetRef struct {
	Kind        string `json:"kind"`
	ContainerID string `json:"container_id,omitempty"`
	Index       int    `json:"index"`
}

// TargetView is a resolved drop location in transport shape.
type TargetView struct {
	Kind        string `json:"kind"`
	ContainerID string `json:"container_id"`
	Index       int    `json:"index"`
	Label       string `json:"label"`
}

// State is a point-in-time snapshot of a session for rendering. Announcements
// are drained: each snapshot returns only messages produced since the last.
type State struct {
	SessionID    string
	DefinitionID string
	Nodes        []canvas.NodeView
	Issues       []canvas.Issue
	Targets      []TargetView
	CanUndo      bool
	CanRedo      bool
	Mode         interaction.Mode
	FocusIndex   int
	Announcement []announce.Message
}

// Session is one live editing session. All operations serialize on an
// internal mutex; within one session the engine still sees strictly
// sequential gestures.
type Session struct {
	mu sync.Mutex

	id           string
	definitionID string
	doc          *tree.Tree
	adapter      *canvas.Adapter
	controller   *interaction.Controller
	buffer       *announce.Buffer
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// DefinitionID returns the rule definition under edit.
func (s *Session) DefinitionID() string {
	return s.definitionID
}

// Snapshot returns the current render state and drains pending announcements.
func (s *Session) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() State {
	state := State{
		SessionID:    s.id,
		DefinitionID: s.definitionID,
		Nodes:        s.adapter.View(),
		Issues:       s.adapter.Validation(),
		CanUndo:      s.adapter.Recorder().CanUndo(),
		CanRedo:      s.adapter.Recorder().CanRedo(),
		Mode:         s.controller.Mode(),
		FocusIndex:   s.controller.FocusIndex(),
		Announcement: s.buffer.Drain(),
	}
	targets := s.adapter.Zones()
	if s.controller.Mode() == interaction.ModeKeyboardDrag {
		targets = s.controller.Targets()
	}
	state.Targets = make([]TargetView, 0, len(targets))
	for _, target := range targets {
		state.Targets = append(state.Targets, TargetView{
			Kind:        string(target.Kind),
			ContainerID: target.Container.ID(),
			Index:       target.Index,
			Label:       canvas.DescribeTarget(s.doc, target),
		})
	}
	return state
}

// Drop executes a pointer drop from a raw drag transfer payload.
func (s *Session) Drop(payload []byte, ref TargetRef) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	target, err := s.resolveTarget(ref)
	if err != nil {
		return s.snapshotLocked(), err
	}
	if err := s.controller.PointerDrop(payload, target); err != nil {
		return s.snapshotLocked(), err
	}
	return s.snapshotLocked(), nil
}

// Edit replaces a node's kind and payload.
func (s *Session) Edit(nodeID string, kind string, payload map[string]any) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data := tree.Data{Kind: tree.Kind(kind), Payload: tree.Payload(payload)}
	if err := s.adapter.EditNode(nodeID, data); err != nil {
		return s.snapshotLocked(), err
	}
	return s.snapshotLocked(), nil
}

// Delete detaches a node and its subtree.
func (s *Session) Delete(nodeID string) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.adapter.DeleteNode(nodeID); err != nil {
		return s.snapshotLocked(), err
	}
	return s.snapshotLocked(), nil
}

// Undo reverses the most recent operation.
func (s *Session) Undo() (State, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ok := s.adapter.Undo()
	return s.snapshotLocked(), ok
}

// Redo re-applies the most recently undone operation.
func (s *Session) Redo() (State, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ok := s.adapter.Redo()
	return s.snapshotLocked(), ok
}

// Grab starts a keyboard drag of an existing node.
func (s *Session) Grab(nodeID string) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.controller.GrabNode(nodeID); err != nil {
		return s.snapshotLocked(), err
	}
	return s.snapshotLocked(), nil
}

// GrabFromPalette starts a keyboard drag of a new node template.
func (s *Session) GrabFromPalette(kind string, template map[string]any) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	drag := canvas.DragData{
		Source:   canvas.SourcePalette,
		Type:     tree.Kind(kind),
		Template: tree.Payload(template),
	}
	if err := s.controller.GrabPaletteItem(drag); err != nil {
		return s.snapshotLocked(), err
	}
	return s.snapshotLocked(), nil
}

// MoveFocus shifts keyboard drop-target focus by delta.
func (s *Session) MoveFocus(delta int) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.controller.Mode() != interaction.ModeKeyboardDrag {
		return s.snapshotLocked(), apperrors.New(apperrors.CodeSessionWrongMode, "no drag in progress")
	}
	s.controller.MoveFocus(delta)
	return s.snapshotLocked(), nil
}

// Confirm drops the held item at the focused target.
func (s *Session) Confirm() (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.controller.Confirm(); err != nil {
		return s.snapshotLocked(), err
	}
	return s.snapshotLocked(), nil
}

// Cancel aborts the keyboard drag, returning the node id to refocus.
func (s *Session) Cancel() (State, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	origin := s.controller.Cancel()
	return s.snapshotLocked(), origin
}

// Serialize renders the session's tree in the rule-definition wire format.
func (s *Session) Serialize() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.adapter.Serialize()
}

func (s *Session) resolveTarget(ref TargetRef) (dropzone.Target, error) {
	kind := dropzone.TargetKind(ref.Kind)
	switch kind {
	case dropzone.TargetRoot:
		root := s.doc.Root()
		return dropzone.Target{Kind: kind, Container: root, Index: root.Len()}, nil
	case dropzone.TargetContainer, dropzone.TargetInsertion:
		container := s.doc.Find(ref.ContainerID)
		if container == nil {
			return dropzone.Target{}, apperrors.WithMetadata(apperrors.CodeSessionNodeMissing,
				fmt.Sprintf("container %q not in tree", ref.ContainerID),
				map[string]string{"id": ref.ContainerID})
		}
		index := ref.Index
		if kind == dropzone.TargetContainer {
			index = container.Len()
		}
		return dropzone.Target{Kind: kind, Container: container, Index: index}, nil
	default:
		return dropzone.Target{}, apperrors.WithMetadata(apperrors.CodeDropRejected,
			fmt.Sprintf("unknown target kind %q", ref.Kind),
			map[string]string{"kind": ref.Kind})
	}
}

// Manager tracks live sessions by id. It is safe for concurrent use; the
// per-session mutex keeps each document single-writer.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session
	newID    func() (string, error)
}

// NewManager creates an empty session manager.
func NewManager() *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
		newID:    id.NewID,
	}
}

// Open creates a session over a definition's serialized tree. An empty
// document is allowed and yields a tree with no requirements.
func (m *Manager) Open(definitionID string, treeJSON []byte, locale string) (*Session, error) {
	if len(treeJSON) == 0 {
		treeJSON = []byte("[]")
	}
	doc, err := tree.Deserialize(treeJSON)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	sessionID, err := m.newID()
	if err != nil {
		return nil, fmt.Errorf("allocate session id: %w", err)
	}
	buffer := &announce.Buffer{}
	adapter := canvas.New(doc, canvas.WithAnnouncer(buffer), canvas.WithLocale(locale))
	s := &Session{
		id:           sessionID,
		definitionID: definitionID,
		doc:          doc,
		adapter:      adapter,
		controller:   interaction.NewController(adapter, interaction.WithAnnouncer(buffer)),
		buffer:       buffer,
	}
	m.sessions[sessionID] = s
	return s, nil
}

// Get returns a live session by id.
func (m *Manager) Get(sessionID string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return nil, apperrors.WithMetadata(apperrors.CodeSessionNotFound,
			fmt.Sprintf("session %q not found", sessionID),
			map[string]string{"id": sessionID})
	}
	return s, nil
}

// Close discards a session. Unsaved edits are lost.
func (m *Manager) Close(sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[sessionID]; !ok {
		return apperrors.WithMetadata(apperrors.CodeSessionNotFound,
			fmt.Sprintf("session %q not found", sessionID),
			map[string]string{"id": sessionID})
	}
	delete(m.sessions, sessionID)
	return nil
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
