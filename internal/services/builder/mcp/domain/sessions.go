package domain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/louisbranch/threshold.games/internal/builder/canvas"
	"github.com/louisbranch/threshold.games/internal/builder/tree"
	"github.com/louisbranch/threshold.games/internal/services/builder/session"
	"github.com/louisbranch/threshold.games/internal/services/builder/storage"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// NodeSummary is one rendered requirement row.
type NodeSummary struct {
	ID      string         `json:"id" jsonschema:"node identifier"`
	Kind    string         `json:"kind" jsonschema:"requirement kind"`
	Label   string         `json:"label" jsonschema:"human readable label"`
	Depth   int            `json:"depth" jsonschema:"nesting depth, zero for top level"`
	Index   int            `json:"index" jsonschema:"position among siblings"`
	Payload map[string]any `json:"payload,omitempty" jsonschema:"node payload"`
	Invalid bool           `json:"invalid" jsonschema:"true when validation flagged this node"`
}

// IssueSummary is one validation finding.
type IssueSummary struct {
	NodeID  string `json:"node_id" jsonschema:"flagged node identifier"`
	Code    string `json:"code" jsonschema:"machine readable issue code"`
	Message string `json:"message" jsonschema:"localized issue message"`
}

// TargetSummary is one resolved drop location.
type TargetSummary struct {
	Kind        string `json:"kind" jsonschema:"target kind: root, container, or insertion"`
	ContainerID string `json:"container_id" jsonschema:"container node identifier"`
	Index       int    `json:"index" jsonschema:"insertion index within the container"`
	Label       string `json:"label" jsonschema:"human readable target description"`
}

// SessionState is the transport shape of a session snapshot.
type SessionState struct {
	SessionID     string          `json:"session_id" jsonschema:"session identifier"`
	DefinitionID  string          `json:"definition_id" jsonschema:"rule definition under edit"`
	Nodes         []NodeSummary   `json:"nodes" jsonschema:"rendered requirement rows in document order"`
	Issues        []IssueSummary  `json:"issues,omitempty" jsonschema:"current validation findings"`
	Targets       []TargetSummary `json:"targets" jsonschema:"valid drop locations for the current state"`
	CanUndo       bool            `json:"can_undo" jsonschema:"true when history has an operation to undo"`
	CanRedo       bool            `json:"can_redo" jsonschema:"true when history has an operation to redo"`
	Announcements []string        `json:"announcements,omitempty" jsonschema:"screen reader messages produced since the last snapshot"`
}

func summarizeState(state session.State) SessionState {
	out := SessionState{
		SessionID:    state.SessionID,
		DefinitionID: state.DefinitionID,
		Nodes:        make([]NodeSummary, 0, len(state.Nodes)),
		Targets:      make([]TargetSummary, 0, len(state.Targets)),
		CanUndo:      state.CanUndo,
		CanRedo:      state.CanRedo,
	}
	for _, node := range state.Nodes {
		out.Nodes = append(out.Nodes, NodeSummary{
			ID:      node.ID,
			Kind:    string(node.Kind),
			Label:   node.Label,
			Depth:   node.Depth,
			Index:   node.Index,
			Payload: node.Payload,
			Invalid: node.Invalid,
		})
	}
	for _, issue := range state.Issues {
		out.Issues = append(out.Issues, IssueSummary{
			NodeID:  issue.NodeID,
			Code:    string(issue.Code),
			Message: issue.Message,
		})
	}
	for _, target := range state.Targets {
		out.Targets = append(out.Targets, TargetSummary{
			Kind:        target.Kind,
			ContainerID: target.ContainerID,
			Index:       target.Index,
			Label:       target.Label,
		})
	}
	for _, message := range state.Announcement {
		out.Announcements = append(out.Announcements, message.Text)
	}
	return out
}

// TreeValidateInput holds the tree_validate tool parameters.
type TreeValidateInput struct {
	Tree   string `json:"tree" jsonschema:"serialized requirement tree JSON"`
	Locale string `json:"locale,omitempty" jsonschema:"BCP 47 locale for issue messages, defaults to en-US"`
}

// TreeValidateResult holds the tree_validate tool output.
type TreeValidateResult struct {
	Valid  bool           `json:"valid" jsonschema:"true when the tree has no validation findings"`
	Issues []IssueSummary `json:"issues,omitempty" jsonschema:"validation findings"`
}

// TreeValidateTool describes the tree_validate MCP tool.
func TreeValidateTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "tree_validate",
		Description: "Parse a serialized requirement tree and report validation findings.",
	}
}

// TreeValidateHandler returns the tree_validate tool handler.
func TreeValidateHandler() mcp.ToolHandlerFor[TreeValidateInput, TreeValidateResult] {
	return func(_ context.Context, _ *mcp.CallToolRequest, input TreeValidateInput) (*mcp.CallToolResult, TreeValidateResult, error) {
		doc, err := tree.Deserialize([]byte(input.Tree))
		if err != nil {
			return nil, TreeValidateResult{}, fmt.Errorf("parse tree: %w", err)
		}
		adapter := canvas.New(doc, canvas.WithLocale(input.Locale))
		issues := adapter.Validation()
		result := TreeValidateResult{Valid: len(issues) == 0}
		for _, issue := range issues {
			result.Issues = append(result.Issues, IssueSummary{
				NodeID:  issue.NodeID,
				Code:    string(issue.Code),
				Message: issue.Message,
			})
		}
		return nil, result, nil
	}
}

// SessionOpenInput holds the session_open tool parameters.
type SessionOpenInput struct {
	DefinitionID string `json:"definition_id" jsonschema:"rule definition to edit"`
	Locale       string `json:"locale,omitempty" jsonschema:"BCP 47 locale for announcements, defaults to en-US"`
}

// SessionOpenResult holds the session_open tool output.
type SessionOpenResult struct {
	State SessionState `json:"state" jsonschema:"initial session snapshot"`
}

// SessionOpenTool describes the session_open MCP tool.
func SessionOpenTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "session_open",
		Description: "Open an editing session on a stored rule definition.",
	}
}

// SessionOpenHandler returns the session_open tool handler.
func SessionOpenHandler(store storage.RuleDefinitionStore, sessions *session.Manager) mcp.ToolHandlerFor[SessionOpenInput, SessionOpenResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input SessionOpenInput) (*mcp.CallToolResult, SessionOpenResult, error) {
		definition, err := store.GetRuleDefinition(ctx, input.DefinitionID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return nil, SessionOpenResult{}, fmt.Errorf("definition %s not found", input.DefinitionID)
			}
			return nil, SessionOpenResult{}, fmt.Errorf("load definition: %w", err)
		}
		sess, err := sessions.Open(definition.ID, definition.Tree, input.Locale)
		if err != nil {
			return nil, SessionOpenResult{}, fmt.Errorf("open session: %w", err)
		}
		return nil, SessionOpenResult{State: summarizeState(sess.Snapshot())}, nil
	}
}

// DropTarget addresses a drop location by container identifier.
type DropTarget struct {
	Kind        string `json:"kind" jsonschema:"target kind: root, container, or insertion"`
	ContainerID string `json:"container_id,omitempty" jsonschema:"container node identifier, omitted for root"`
	Index       int    `json:"index,omitempty" jsonschema:"insertion index, used for insertion targets"`
}

// SessionDropInput holds the session_drop tool parameters.
type SessionDropInput struct {
	SessionID string         `json:"session_id" jsonschema:"session identifier"`
	Source    string         `json:"source" jsonschema:"drag source: palette or canvas"`
	Kind      string         `json:"kind,omitempty" jsonschema:"requirement kind for palette drops"`
	Template  map[string]any `json:"template,omitempty" jsonschema:"payload template for palette drops"`
	NodeID    string         `json:"node_id,omitempty" jsonschema:"node identifier for canvas drops"`
	Target    DropTarget     `json:"target" jsonschema:"drop location"`
}

// SessionDropResult holds the session_drop tool output.
type SessionDropResult struct {
	State SessionState `json:"state" jsonschema:"session snapshot after the drop"`
}

// SessionDropTool describes the session_drop MCP tool.
func SessionDropTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "session_drop",
		Description: "Drop a palette item or move an existing node to a target location.",
	}
}

// SessionDropHandler returns the session_drop tool handler.
func SessionDropHandler(sessions *session.Manager) mcp.ToolHandlerFor[SessionDropInput, SessionDropResult] {
	return func(_ context.Context, _ *mcp.CallToolRequest, input SessionDropInput) (*mcp.CallToolResult, SessionDropResult, error) {
		sess, err := sessions.Get(input.SessionID)
		if err != nil {
			return nil, SessionDropResult{}, err
		}
		payload, err := json.Marshal(struct {
			Type     string         `json:"type"`
			Source   string         `json:"source"`
			Template map[string]any `json:"template,omitempty"`
			ID       string         `json:"id,omitempty"`
		}{
			Type:     input.Kind,
			Source:   input.Source,
			Template: input.Template,
			ID:       input.NodeID,
		})
		if err != nil {
			return nil, SessionDropResult{}, fmt.Errorf("encode drag payload: %w", err)
		}
		state, err := sess.Drop(payload, session.TargetRef{
			Kind:        input.Target.Kind,
			ContainerID: input.Target.ContainerID,
			Index:       input.Target.Index,
		})
		if err != nil {
			return nil, SessionDropResult{}, err
		}
		return nil, SessionDropResult{State: summarizeState(state)}, nil
	}
}

// SessionEditInput holds the session_edit tool parameters.
type SessionEditInput struct {
	SessionID string         `json:"session_id" jsonschema:"session identifier"`
	NodeID    string         `json:"node_id" jsonschema:"node to edit"`
	Kind      string         `json:"kind" jsonschema:"requirement kind of the node"`
	Payload   map[string]any `json:"payload" jsonschema:"replacement payload"`
}

// SessionEditResult holds the session_edit tool output.
type SessionEditResult struct {
	State SessionState `json:"state" jsonschema:"session snapshot after the edit"`
}

// SessionEditTool describes the session_edit MCP tool.
func SessionEditTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "session_edit",
		Description: "Replace the payload of a requirement node.",
	}
}

// SessionEditHandler returns the session_edit tool handler.
func SessionEditHandler(sessions *session.Manager) mcp.ToolHandlerFor[SessionEditInput, SessionEditResult] {
	return func(_ context.Context, _ *mcp.CallToolRequest, input SessionEditInput) (*mcp.CallToolResult, SessionEditResult, error) {
		sess, err := sessions.Get(input.SessionID)
		if err != nil {
			return nil, SessionEditResult{}, err
		}
		state, err := sess.Edit(input.NodeID, input.Kind, input.Payload)
		if err != nil {
			return nil, SessionEditResult{}, err
		}
		return nil, SessionEditResult{State: summarizeState(state)}, nil
	}
}

// SessionDeleteInput holds the session_delete tool parameters.
type SessionDeleteInput struct {
	SessionID string `json:"session_id" jsonschema:"session identifier"`
	NodeID    string `json:"node_id" jsonschema:"node to delete"`
}

// SessionDeleteResult holds the session_delete tool output.
type SessionDeleteResult struct {
	State SessionState `json:"state" jsonschema:"session snapshot after the delete"`
}

// SessionDeleteTool describes the session_delete MCP tool.
func SessionDeleteTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "session_delete",
		Description: "Delete a requirement node and its subtree.",
	}
}

// SessionDeleteHandler returns the session_delete tool handler.
func SessionDeleteHandler(sessions *session.Manager) mcp.ToolHandlerFor[SessionDeleteInput, SessionDeleteResult] {
	return func(_ context.Context, _ *mcp.CallToolRequest, input SessionDeleteInput) (*mcp.CallToolResult, SessionDeleteResult, error) {
		sess, err := sessions.Get(input.SessionID)
		if err != nil {
			return nil, SessionDeleteResult{}, err
		}
		state, err := sess.Delete(input.NodeID)
		if err != nil {
			return nil, SessionDeleteResult{}, err
		}
		return nil, SessionDeleteResult{State: summarizeState(state)}, nil
	}
}

// SessionHistoryInput holds the session_undo and session_redo tool parameters.
type SessionHistoryInput struct {
	SessionID string `json:"session_id" jsonschema:"session identifier"`
}

// SessionHistoryResult holds the session_undo and session_redo tool output.
type SessionHistoryResult struct {
	Applied bool         `json:"applied" jsonschema:"true when an operation was reversed or reapplied"`
	State   SessionState `json:"state" jsonschema:"session snapshot after the history step"`
}

// SessionUndoTool describes the session_undo MCP tool.
func SessionUndoTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "session_undo",
		Description: "Undo the most recent operation in a session.",
	}
}

// SessionUndoHandler returns the session_undo tool handler.
func SessionUndoHandler(sessions *session.Manager) mcp.ToolHandlerFor[SessionHistoryInput, SessionHistoryResult] {
	return func(_ context.Context, _ *mcp.CallToolRequest, input SessionHistoryInput) (*mcp.CallToolResult, SessionHistoryResult, error) {
		sess, err := sessions.Get(input.SessionID)
		if err != nil {
			return nil, SessionHistoryResult{}, err
		}
		state, applied := sess.Undo()
		return nil, SessionHistoryResult{Applied: applied, State: summarizeState(state)}, nil
	}
}

// SessionRedoTool describes the session_redo MCP tool.
func SessionRedoTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "session_redo",
		Description: "Redo the most recently undone operation in a session.",
	}
}

// SessionRedoHandler returns the session_redo tool handler.
func SessionRedoHandler(sessions *session.Manager) mcp.ToolHandlerFor[SessionHistoryInput, SessionHistoryResult] {
	return func(_ context.Context, _ *mcp.CallToolRequest, input SessionHistoryInput) (*mcp.CallToolResult, SessionHistoryResult, error) {
		sess, err := sessions.Get(input.SessionID)
		if err != nil {
			return nil, SessionHistoryResult{}, err
		}
		state, applied := sess.Redo()
		return nil, SessionHistoryResult{Applied: applied, State: summarizeState(state)}, nil
	}
}

// SessionSaveInput holds the session_save tool parameters.
type SessionSaveInput struct {
	SessionID string `json:"session_id" jsonschema:"session identifier"`
}

// SessionSaveResult holds the session_save tool output.
type SessionSaveResult struct {
	Definition DefinitionSummary `json:"definition" jsonschema:"definition with the saved tree"`
}

// SessionSaveTool describes the session_save MCP tool.
func SessionSaveTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "session_save",
		Description: "Persist a session's current tree back to its rule definition.",
	}
}

// SessionSaveHandler returns the session_save tool handler.
func SessionSaveHandler(store storage.RuleDefinitionStore, sessions *session.Manager) mcp.ToolHandlerFor[SessionSaveInput, SessionSaveResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input SessionSaveInput) (*mcp.CallToolResult, SessionSaveResult, error) {
		sess, err := sessions.Get(input.SessionID)
		if err != nil {
			return nil, SessionSaveResult{}, err
		}
		treeJSON, err := sess.Serialize()
		if err != nil {
			return nil, SessionSaveResult{}, fmt.Errorf("serialize tree: %w", err)
		}
		definition, err := store.GetRuleDefinition(ctx, sess.DefinitionID())
		if err != nil {
			return nil, SessionSaveResult{}, fmt.Errorf("load definition: %w", err)
		}
		definition.Tree = treeJSON
		if err := store.UpdateRuleDefinition(ctx, definition); err != nil {
			return nil, SessionSaveResult{}, fmt.Errorf("save definition: %w", err)
		}
		stored, err := store.GetRuleDefinition(ctx, definition.ID)
		if err != nil {
			return nil, SessionSaveResult{}, fmt.Errorf("load definition: %w", err)
		}
		return nil, SessionSaveResult{Definition: summarize(stored)}, nil
	}
}

// SessionCloseInput holds the session_close tool parameters.
type SessionCloseInput struct {
	SessionID string `json:"session_id" jsonschema:"session identifier"`
}

// SessionCloseResult holds the session_close tool output.
type SessionCloseResult struct {
	Closed bool `json:"closed" jsonschema:"true when the session was discarded"`
}

// SessionCloseTool describes the session_close MCP tool.
func SessionCloseTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "session_close",
		Description: "Close an editing session, discarding unsaved changes.",
	}
}

// SessionCloseHandler returns the session_close tool handler.
func SessionCloseHandler(sessions *session.Manager) mcp.ToolHandlerFor[SessionCloseInput, SessionCloseResult] {
	return func(_ context.Context, _ *mcp.CallToolRequest, input SessionCloseInput) (*mcp.CallToolResult, SessionCloseResult, error) {
		if err := sessions.Close(input.SessionID); err != nil {
			return nil, SessionCloseResult{}, err
		}
		return nil, SessionCloseResult{Closed: true}, nil
	}
}
