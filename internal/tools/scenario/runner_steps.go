package scenario

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// scenarioState tracks the live session and the last observed server state.
type scenarioState struct {
	definitionID  string
	sessionID     string
	last          stateView
	announcements []string
}

type stateView struct {
	SessionID    string         `json:"session_id"`
	DefinitionID string         `json:"definition_id"`
	Nodes        []nodeView     `json:"nodes"`
	Issues       []issueView    `json:"issues"`
	Targets      []targetView   `json:"targets"`
	CanUndo      bool           `json:"can_undo"`
	CanRedo      bool           `json:"can_redo"`
	Mode         string         `json:"mode"`
	FocusIndex   int            `json:"focus_index"`
	Announce     []announceView `json:"announcements"`
}

type nodeView struct {
	ID      string         `json:"id"`
	Kind    string         `json:"kind"`
	Label   string         `json:"label"`
	Depth   int            `json:"depth"`
	Index   int            `json:"index"`
	Payload map[string]any `json:"payload"`
	Invalid bool           `json:"invalid"`
}

type issueView struct {
	NodeID  string `json:"node_id"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type targetView struct {
	Kind        string `json:"kind"`
	ContainerID string `json:"container_id"`
	Index       int    `json:"index"`
	Label       string `json:"label"`
}

type announceView struct {
	Text     string `json:"text"`
	Priority string `json:"priority"`
}

type stateEnvelope struct {
	State stateView `json:"state"`
}

// definitionView mirrors the definition endpoints, which write the view at
// the top level of the response body.
type definitionView struct {
	ID string `json:"id"`
}

func (r *Runner) openScenarioSession(ctx context.Context, name string) (*scenarioState, error) {
	var created definitionView
	err := r.postJSON(ctx, "/api/definitions", map[string]any{
		"campaign_id": r.campaignID,
		"name":        name,
	}, &created)
	if err != nil {
		return nil, fmt.Errorf("create scratch definition: %w", err)
	}
	if created.ID == "" {
		return nil, fmt.Errorf("create scratch definition: response carried no id")
	}

	state := &scenarioState{definitionID: created.ID}
	var opened stateEnvelope
	if err := r.postJSON(ctx, "/api/definitions/"+state.definitionID+"/sessions", nil, &opened); err != nil {
		return nil, fmt.Errorf("open session: %w", err)
	}
	state.recordState(opened.State)
	state.sessionID = opened.State.SessionID
	return state, nil
}

func (r *Runner) teardown(state *scenarioState) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	if state.sessionID != "" {
		if err := r.do(ctx, http.MethodDelete, "/api/sessions/"+state.sessionID, nil, nil); err != nil {
			r.logf("close session: %v", err)
		}
	}
	if state.definitionID != "" {
		if err := r.do(ctx, http.MethodDelete, "/api/definitions/"+state.definitionID, nil, nil); err != nil {
			r.logf("delete scratch definition: %v", err)
		}
	}
}

func (s *scenarioState) recordState(view stateView) {
	s.last = view
	for _, message := range view.Announce {
		s.announcements = append(s.announcements, message.Text)
	}
}

func (r *Runner) runStep(ctx context.Context, state *scenarioState, step Step) error {
	switch step.Kind {
	case "drop":
		return r.runDropStep(ctx, state, step)
	case "move":
		return r.runMoveStep(ctx, state, step)
	case "edit":
		return r.runEditStep(ctx, state, step)
	case "delete":
		return r.runDeleteStep(ctx, state, step)
	case "undo":
		return r.runSessionAction(ctx, state, "undo", nil)
	case "redo":
		return r.runSessionAction(ctx, state, "redo", nil)
	case "save":
		return r.postJSON(ctx, "/api/sessions/"+state.sessionID+"/save", nil, nil)
	case "grab":
		return r.runGrabStep(ctx, state, step)
	case "focus":
		return r.runSessionAction(ctx, state, "focus", map[string]any{"delta": intArg(step.Args, "delta", 0)})
	case "confirm":
		return r.runSessionAction(ctx, state, "confirm", nil)
	case "cancel":
		return r.runSessionAction(ctx, state, "cancel", nil)
	case "expect_rows":
		return r.expectCount(len(state.last.Nodes), step, "rows")
	case "expect_row":
		return r.runExpectRowStep(state, step)
	case "expect_issues":
		return r.expectCount(len(state.last.Issues), step, "issues")
	case "expect_targets":
		return r.expectCount(len(state.last.Targets), step, "targets")
	case "expect_announcement":
		return r.runExpectAnnouncementStep(state, step)
	case "expect_tree":
		return r.runExpectTreeStep(state, step)
	case "expect_history":
		return r.runExpectHistoryStep(state, step)
	default:
		return fmt.Errorf("unknown step kind %q", step.Kind)
	}
}

func (r *Runner) runDropStep(ctx context.Context, state *scenarioState, step Step) error {
	kind := stringArg(step.Args, "kind", "")
	if kind == "" {
		return fmt.Errorf("drop kind is required")
	}
	target, err := resolveTargetArg(state, step.Args)
	if err != nil {
		return err
	}
	payload := map[string]any{"type": kind, "source": "palette"}
	if template, ok := step.Args["payload"].(map[string]any); ok {
		payload["template"] = template
	}
	return r.runSessionAction(ctx, state, "drop", map[string]any{
		"payload": payload,
		"target":  target,
	})
}

func (r *Runner) runMoveStep(ctx context.Context, state *scenarioState, step Step) error {
	node, err := rowNode(state, step.Args)
	if err != nil {
		return err
	}
	target, err := resolveTargetArg(state, step.Args)
	if err != nil {
		return err
	}
	return r.runSessionAction(ctx, state, "drop", map[string]any{
		"payload": map[string]any{"type": node.Kind, "source": "canvas", "id": node.ID},
		"target":  target,
	})
}

func (r *Runner) runEditStep(ctx context.Context, state *scenarioState, step Step) error {
	node, err := rowNode(state, step.Args)
	if err != nil {
		return err
	}
	payload, _ := step.Args["payload"].(map[string]any)
	return r.runSessionAction(ctx, state, "edit", map[string]any{
		"node_id": node.ID,
		"kind":    node.Kind,
		"payload": payload,
	})
}

func (r *Runner) runDeleteStep(ctx context.Context, state *scenarioState, step Step) error {
	node, err := rowNode(state, step.Args)
	if err != nil {
		return err
	}
	return r.runSessionAction(ctx, state, "delete", map[string]any{"node_id": node.ID})
}

func (r *Runner) runGrabStep(ctx context.Context, state *scenarioState, step Step) error {
	if _, ok := step.Args["row"]; ok {
		node, err := rowNode(state, step.Args)
		if err != nil {
			return err
		}
		return r.runSessionAction(ctx, state, "grab", map[string]any{"node_id": node.ID})
	}
	kind := stringArg(step.Args, "kind", "")
	if kind == "" {
		return fmt.Errorf("grab needs a row or a palette kind")
	}
	body := map[string]any{"kind": kind}
	if template, ok := step.Args["payload"].(map[string]any); ok {
		body["template"] = template
	}
	return r.runSessionAction(ctx, state, "grab", body)
}

// runSessionAction posts a session endpoint and records the returned state.
func (r *Runner) runSessionAction(ctx context.Context, state *scenarioState, action string, body map[string]any) error {
	var envelope stateEnvelope
	err := r.postJSON(ctx, "/api/sessions/"+state.sessionID+"/"+action, body, &envelope)
	if err != nil {
		return err
	}
	state.recordState(envelope.State)
	return nil
}

func (r *Runner) expectCount(got int, step Step, what string) error {
	want := intArg(step.Args, "count", -1)
	if got != want {
		return r.assertions.failf("expected %d %s, got %d", want, what, got)
	}
	return nil
}

func (r *Runner) runExpectRowStep(state *scenarioState, step Step) error {
	node, err := rowNode(state, step.Args)
	if err != nil {
		return err
	}
	if kind := stringArg(step.Args, "kind", ""); kind != "" && node.Kind != kind {
		return r.assertions.failf("row %d kind = %q, want %q", intArg(step.Args, "row", -1), node.Kind, kind)
	}
	if depth, ok := step.Args["depth"]; ok {
		if want := toInt(depth); node.Depth != want {
			return r.assertions.failf("row %d depth = %d, want %d", intArg(step.Args, "row", -1), node.Depth, want)
		}
	}
	if substr := stringArg(step.Args, "label", ""); substr != "" && !strings.Contains(node.Label, substr) {
		return r.assertions.failf("row %d label %q does not contain %q", intArg(step.Args, "row", -1), node.Label, substr)
	}
	if invalid, ok := step.Args["invalid"].(bool); ok && node.Invalid != invalid {
		return r.assertions.failf("row %d invalid = %t, want %t", intArg(step.Args, "row", -1), node.Invalid, invalid)
	}
	return nil
}

func (r *Runner) runExpectAnnouncementStep(state *scenarioState, step Step) error {
	want := stringArg(step.Args, "text", "")
	for _, text := range state.announcements {
		if strings.Contains(text, want) {
			return nil
		}
	}
	return r.assertions.failf("no announcement contains %q (saw %v)", want, state.announcements)
}

func (r *Runner) runExpectTreeStep(state *scenarioState, step Step) error {
	want := stringArg(step.Args, "tree", "")
	var wantValue any
	if err := json.Unmarshal([]byte(want), &wantValue); err != nil {
		return fmt.Errorf("expected tree is not valid JSON: %w", err)
	}
	gotValue := treeFromRows(state.last.Nodes)
	wantNorm, _ := json.Marshal(wantValue)
	gotNorm, _ := json.Marshal(gotValue)
	if !bytes.Equal(wantNorm, gotNorm) {
		return r.assertions.failf("tree = %s, want %s", gotNorm, wantNorm)
	}
	return nil
}

// treeFromRows rebuilds the serialized tree shape from the flattened row
// list: leaves marshal as {"kind": payload}, containers as {"kind": [...]}.
func treeFromRows(rows []nodeView) []any {
	top := []any{}
	type frame struct {
		depth    int
		children *[]any
	}
	stack := []frame{{depth: -1, children: &top}}
	for _, row := range rows {
		for len(stack) > 1 && stack[len(stack)-1].depth >= row.Depth {
			stack = stack[:len(stack)-1]
		}
		parent := stack[len(stack)-1].children
		if row.Kind == "any" || row.Kind == "all" {
			children := []any{}
			*parent = append(*parent, map[string]any{row.Kind: &children})
			stack = append(stack, frame{depth: row.Depth, children: &children})
			continue
		}
		payload := row.Payload
		if payload == nil {
			payload = map[string]any{}
		}
		*parent = append(*parent, map[string]any{row.Kind: payload})
	}
	return top
}

func (r *Runner) runExpectHistoryStep(state *scenarioState, step Step) error {
	if want, ok := step.Args["can_undo"].(bool); ok && state.last.CanUndo != want {
		return r.assertions.failf("can_undo = %t, want %t", state.last.CanUndo, want)
	}
	if want, ok := step.Args["can_redo"].(bool); ok && state.last.CanRedo != want {
		return r.assertions.failf("can_redo = %t, want %t", state.last.CanRedo, want)
	}
	return nil
}

// resolveTargetArg maps a Lua target table onto a wire target reference.
// Targets can name a slot in the last observed target list, the root, or a
// container row.
func resolveTargetArg(state *scenarioState, args map[string]any) (map[string]any, error) {
	target, ok := args["target"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("target table is required")
	}
	if slot, ok := target["slot"]; ok {
		index := toInt(slot)
		if index < 0 || index >= len(state.last.Targets) {
			return nil, fmt.Errorf("target slot %d out of range (%d targets)", index, len(state.last.Targets))
		}
		resolved := state.last.Targets[index]
		return map[string]any{
			"kind":         resolved.Kind,
			"container_id": resolved.ContainerID,
			"index":        resolved.Index,
		}, nil
	}
	kind := stringArg(target, "kind", "")
	switch kind {
	case "root":
		return map[string]any{"kind": "root"}, nil
	case "container", "insertion":
		node, err := rowNode(state, target)
		if err != nil {
			return nil, err
		}
		return map[string]any{
			"kind":         kind,
			"container_id": node.ID,
			"index":        intArg(target, "index", 0),
		}, nil
	default:
		return nil, fmt.Errorf("unknown target kind %q", kind)
	}
}

// rowNode resolves a "row" argument against the last observed node list.
func rowNode(state *scenarioState, args map[string]any) (nodeView, error) {
	raw, ok := args["row"]
	if !ok {
		return nodeView{}, fmt.Errorf("row is required")
	}
	row := toInt(raw)
	if row < 0 || row >= len(state.last.Nodes) {
		return nodeView{}, fmt.Errorf("row %d out of range (%d rows)", row, len(state.last.Nodes))
	}
	return state.last.Nodes[row], nil
}

func stringArg(args map[string]any, key, fallback string) string {
	if value, ok := args[key].(string); ok {
		return value
	}
	return fallback
}

func intArg(args map[string]any, key string, fallback int) int {
	if value, ok := args[key]; ok {
		return toInt(value)
	}
	return fallback
}

func toInt(value any) int {
	switch v := value.(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return 0
	}
}

func (r *Runner) postJSON(ctx context.Context, path string, body map[string]any, out any) error {
	return r.do(ctx, http.MethodPost, path, body, out)
}

func (r *Runner) do(ctx context.Context, method, path string, body map[string]any, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}
	request, err := http.NewRequestWithContext(ctx, method, r.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		request.Header.Set("Content-Type", "application/json")
	}
	response, err := r.client.Do(request)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer response.Body.Close()

	raw, err := io.ReadAll(response.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if response.StatusCode >= 400 {
		return fmt.Errorf("%s %s: status %d: %s", method, path, response.StatusCode, bytes.TrimSpace(raw))
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
