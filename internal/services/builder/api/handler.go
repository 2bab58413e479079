package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/louisbranch/threshold.games/internal/builder/palette"
	"github.com/louisbranch/threshold.games/internal/builder/tree"
	apperrors "github.com/louisbranch/threshold.games/internal/platform/errors"
	"github.com/louisbranch/threshold.games/internal/platform/id"
	"github.com/louisbranch/threshold.games/internal/services/builder/platform/httpx"
	"github.com/louisbranch/threshold.games/internal/services/builder/session"
	"github.com/louisbranch/threshold.games/internal/services/builder/storage"
	"github.com/louisbranch/threshold.games/internal/telemetry"
)

const defaultPageSize = 20

type handler struct {
	store    storage.Store
	sessions *session.Manager
	emitter  *telemetry.Emitter
}

// NewHandler builds the builder API routes.
func NewHandler(deps Dependencies) http.Handler {
	h := &handler{
		store:    deps.Store,
		sessions: deps.Sessions,
		emitter:  deps.Emitter,
	}

	mux := http.NewServeMux()
	mux.HandleFunc(http.MethodGet+" /healthz", h.handleHealthz)
	mux.HandleFunc(http.MethodGet+" /api/palette", h.handlePalette)

	mux.HandleFunc(http.MethodPost+" /api/definitions", h.handleCreateDefinition)
	mux.HandleFunc(http.MethodGet+" /api/definitions", h.handleListDefinitions)
	mux.HandleFunc(http.MethodGet+" /api/definitions/{id}", h.handleGetDefinition)
	mux.HandleFunc(http.MethodPut+" /api/definitions/{id}", h.handleUpdateDefinition)
	mux.HandleFunc(http.MethodDelete+" /api/definitions/{id}", h.handleDeleteDefinition)
	mux.HandleFunc(http.MethodPost+" /api/definitions/{id}/sessions", h.handleOpenSession)

	mux.HandleFunc(http.MethodGet+" /api/sessions/{id}", h.handleSessionState)
	mux.HandleFunc(http.MethodDelete+" /api/sessions/{id}", h.handleCloseSession)
	mux.HandleFunc(http.MethodPost+" /api/sessions/{id}/drop", h.handleDrop)
	mux.HandleFunc(http.MethodPost+" /api/sessions/{id}/edit", h.handleEdit)
	mux.HandleFunc(http.MethodPost+" /api/sessions/{id}/delete", h.handleDeleteNode)
	mux.HandleFunc(http.MethodPost+" /api/sessions/{id}/grab", h.handleGrab)
	mux.HandleFunc(http.MethodPost+" /api/sessions/{id}/focus", h.handleMoveFocus)
	mux.HandleFunc(http.MethodPost+" /api/sessions/{id}/confirm", h.handleConfirm)
	mux.HandleFunc(http.MethodPost+" /api/sessions/{id}/cancel", h.handleCancel)
	mux.HandleFunc(http.MethodPost+" /api/sessions/{id}/undo", h.handleUndo)
	mux.HandleFunc(http.MethodPost+" /api/sessions/{id}/redo", h.handleRedo)
	mux.HandleFunc(http.MethodPost+" /api/sessions/{id}/save", h.handleSave)

	return httpx.Chain(mux, httpx.RecoverPanic(), httpx.RequestID())
}

func (h *handler) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	_ = httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// paletteItemView is the transport shape of one catalog entry.
type paletteItemView struct {
	Type        string         `json:"type"`
	DisplayName string         `json:"display_name"`
	Description string         `json:"description"`
	Template    map[string]any `json:"template"`
}

func (h *handler) handlePalette(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	var items []palette.Item
	if query == "" {
		for _, category := range palette.Categories() {
			items = append(items, category.Items...)
		}
	} else {
		items = palette.Search(query)
	}

	views := make([]paletteItemView, 0, len(items))
	for _, item := range items {
		views = append(views, paletteItemView{
			Type:        string(item.Type),
			DisplayName: item.DisplayName,
			Description: item.Description,
			Template:    item.Template,
		})
	}
	_ = httpx.WriteJSON(w, http.StatusOK, map[string]any{"items": views})
}

// definitionView is the transport shape of a rule definition.
type definitionView struct {
	ID          string          `json:"id"`
	CampaignID  string          `json:"campaign_id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Tree        json.RawMessage `json:"tree"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func toDefinitionView(definition storage.RuleDefinition) definitionView {
	tree := definition.Tree
	if len(tree) == 0 {
		tree = []byte("[]")
	}
	return definitionView{
		ID:          definition.ID,
		CampaignID:  definition.CampaignID,
		Name:        definition.Name,
		Description: definition.Description,
		Tree:        json.RawMessage(tree),
		CreatedAt:   definition.CreatedAt,
		UpdatedAt:   definition.UpdatedAt,
	}
}

type definitionRequest struct {
	CampaignID  string          `json:"campaign_id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Tree        json.RawMessage `json:"tree"`
}

func (h *handler) handleCreateDefinition(w http.ResponseWriter, r *http.Request) {
	var req definitionRequest
	if err := decodeJSON(r, &req); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	if strings.TrimSpace(req.CampaignID) == "" {
		httpx.WriteError(w, r, apperrors.New(apperrors.CodeDefinitionEmptyCampaignID, "campaign id is required"))
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		httpx.WriteError(w, r, apperrors.New(apperrors.CodeDefinitionNameEmpty, "name is required"))
		return
	}
	if err := validateTree(req.Tree); err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	definitionID, err := id.NewID()
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	definition := storage.RuleDefinition{
		ID:          definitionID,
		CampaignID:  strings.TrimSpace(req.CampaignID),
		Name:        strings.TrimSpace(req.Name),
		Description: strings.TrimSpace(req.Description),
		Tree:        req.Tree,
	}
	ctx := httpx.RequestContext(r)
	if err := h.store.CreateRuleDefinition(ctx, definition); err != nil {
		httpx.WriteError(w, r, mapStorageErr(err))
		return
	}

	h.emit(ctx, r, telemetry.DefinitionSaved(definition.ID, ""))
	stored, err := h.store.GetRuleDefinition(ctx, definition.ID)
	if err != nil {
		httpx.WriteError(w, r, mapStorageErr(err))
		return
	}
	_ = httpx.WriteJSON(w, http.StatusCreated, toDefinitionView(stored))
}

func (h *handler) handleGetDefinition(w http.ResponseWriter, r *http.Request) {
	definition, err := h.store.GetRuleDefinition(httpx.RequestContext(r), r.PathValue("id"))
	if err != nil {
		httpx.WriteError(w, r, mapStorageErr(err))
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, toDefinitionView(definition))
}

func (h *handler) handleListDefinitions(w http.ResponseWriter, r *http.Request) {
	campaignID := strings.TrimSpace(r.URL.Query().Get("campaign_id"))
	if campaignID == "" {
		httpx.WriteError(w, r, apperrors.New(apperrors.CodeDefinitionEmptyCampaignID, "campaign id is required"))
		return
	}
	pageSize := defaultPageSize
	if raw := strings.TrimSpace(r.URL.Query().Get("page_size")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			httpx.WriteError(w, r, apperrors.New(apperrors.CodeUnknown, "page size must be a positive integer"))
			return
		}
		pageSize = parsed
	}

	page, err := h.store.ListRuleDefinitions(httpx.RequestContext(r), campaignID, pageSize, r.URL.Query().Get("page_token"))
	if err != nil {
		httpx.WriteError(w, r, mapStorageErr(err))
		return
	}
	views := make([]definitionView, 0, len(page.Definitions))
	for _, definition := range page.Definitions {
		views = append(views, toDefinitionView(definition))
	}
	_ = httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"definitions":     views,
		"next_page_token": page.NextPageToken,
	})
}

func (h *handler) handleUpdateDefinition(w http.ResponseWriter, r *http.Request) {
	var req definitionRequest
	if err := decodeJSON(r, &req); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		httpx.WriteError(w, r, apperrors.New(apperrors.CodeDefinitionNameEmpty, "name is required"))
		return
	}
	if err := validateTree(req.Tree); err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	ctx := httpx.RequestContext(r)
	definition := storage.RuleDefinition{
		ID:          r.PathValue("id"),
		Name:        strings.TrimSpace(req.Name),
		Description: strings.TrimSpace(req.Description),
		Tree:        req.Tree,
	}
	if err := h.store.UpdateRuleDefinition(ctx, definition); err != nil {
		httpx.WriteError(w, r, mapStorageErr(err))
		return
	}
	h.emit(ctx, r, telemetry.DefinitionSaved(definition.ID, ""))

	stored, err := h.store.GetRuleDefinition(ctx, definition.ID)
	if err != nil {
		httpx.WriteError(w, r, mapStorageErr(err))
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, toDefinitionView(stored))
}

func (h *handler) handleDeleteDefinition(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DeleteRuleDefinition(httpx.RequestContext(r), r.PathValue("id")); err != nil {
		httpx.WriteError(w, r, mapStorageErr(err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type openSessionRequest struct {
	Locale string `json:"locale"`
}

func (h *handler) handleOpenSession(w http.ResponseWriter, r *http.Request) {
	var req openSessionRequest
	if r.ContentLength > 0 {
		if err := decodeJSON(r, &req); err != nil {
			httpx.WriteError(w, r, err)
			return
		}
	}

	ctx := httpx.RequestContext(r)
	definition, err := h.store.GetRuleDefinition(ctx, r.PathValue("id"))
	if err != nil {
		httpx.WriteError(w, r, mapStorageErr(err))
		return
	}
	locale := req.Locale
	if locale == "" {
		locale = r.Header.Get("Accept-Language")
	}
	s, err := h.sessions.Open(definition.ID, definition.Tree, locale)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	h.emit(ctx, r, telemetry.SessionOpened(definition.ID, s.ID()))
	h.writeState(w, http.StatusCreated, s.Snapshot())
}

func (h *handler) handleSessionState(w http.ResponseWriter, r *http.Request) {
	s, err := h.sessions.Get(r.PathValue("id"))
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	h.writeState(w, http.StatusOK, s.Snapshot())
}

func (h *handler) handleCloseSession(w http.ResponseWriter, r *http.Request) {
	s, err := h.sessions.Get(r.PathValue("id"))
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	if err := h.sessions.Close(s.ID()); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	h.emit(httpx.RequestContext(r), r, telemetry.SessionClosed(s.DefinitionID(), s.ID()))
	w.WriteHeader(http.StatusNoContent)
}

type dropRequest struct {
	Payload json.RawMessage   `json:"payload"`
	Target  session.TargetRef `json:"target"`
}

func (h *handler) handleDrop(w http.ResponseWriter, r *http.Request) {
	s, err := h.sessions.Get(r.PathValue("id"))
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	var req dropRequest
	if err := decodeJSON(r, &req); err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	ctx := httpx.RequestContext(r)
	state, err := s.Drop(req.Payload, req.Target)
	if err != nil {
		h.emit(ctx, r, telemetry.DropRejected(s.DefinitionID(), s.ID()))
		httpx.WriteError(w, r, err)
		return
	}
	h.emit(ctx, r, telemetry.DropPerformed(s.DefinitionID(), s.ID()))
	h.writeState(w, http.StatusOK, state)
}

type editRequest struct {
	NodeID  string         `json:"node_id"`
	Kind    string         `json:"kind"`
	Payload map[string]any `json:"payload"`
}

func (h *handler) handleEdit(w http.ResponseWriter, r *http.Request) {
	s, err := h.sessions.Get(r.PathValue("id"))
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	var req editRequest
	if err := decodeJSON(r, &req); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	state, err := s.Edit(req.NodeID, req.Kind, req.Payload)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	h.writeState(w, http.StatusOK, state)
}

type nodeRequest struct {
	NodeID string `json:"node_id"`
}

func (h *handler) handleDeleteNode(w http.ResponseWriter, r *http.Request) {
	s, err := h.sessions.Get(r.PathValue("id"))
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	var req nodeRequest
	if err := decodeJSON(r, &req); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	state, err := s.Delete(req.NodeID)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	h.writeState(w, http.StatusOK, state)
}

type grabRequest struct {
	NodeID   string         `json:"node_id"`
	Kind     string         `json:"kind"`
	Template map[string]any `json:"template"`
}

func (h *handler) handleGrab(w http.ResponseWriter, r *http.Request) {
	s, err := h.sessions.Get(r.PathValue("id"))
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	var req grabRequest
	if err := decodeJSON(r, &req); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	var state session.State
	if req.NodeID != "" {
		state, err = s.Grab(req.NodeID)
	} else {
		state, err = s.GrabFromPalette(req.Kind, req.Template)
	}
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	h.writeState(w, http.StatusOK, state)
}

type focusRequest struct {
	Delta int `json:"delta"`
}

func (h *handler) handleMoveFocus(w http.ResponseWriter, r *http.Request) {
	s, err := h.sessions.Get(r.PathValue("id"))
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	var req focusRequest
	if err := decodeJSON(r, &req); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	state, err := s.MoveFocus(req.Delta)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	h.writeState(w, http.StatusOK, state)
}

func (h *handler) handleConfirm(w http.ResponseWriter, r *http.Request) {
	s, err := h.sessions.Get(r.PathValue("id"))
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	state, err := s.Confirm()
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	h.emit(httpx.RequestContext(r), r, telemetry.DropPerformed(s.DefinitionID(), s.ID()))
	h.writeState(w, http.StatusOK, state)
}

func (h *handler) handleCancel(w http.ResponseWriter, r *http.Request) {
	s, err := h.sessions.Get(r.PathValue("id"))
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	state, origin := s.Cancel()
	h.writeStateWith(w, http.StatusOK, state, map[string]any{"refocus": origin})
}

func (h *handler) handleUndo(w http.ResponseWriter, r *http.Request) {
	s, err := h.sessions.Get(r.PathValue("id"))
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	state, ok := s.Undo()
	if ok {
		h.emit(httpx.RequestContext(r), r, telemetry.HistoryUndone(s.DefinitionID(), s.ID()))
	}
	h.writeStateWith(w, http.StatusOK, state, map[string]any{"undone": ok})
}

func (h *handler) handleRedo(w http.ResponseWriter, r *http.Request) {
	s, err := h.sessions.Get(r.PathValue("id"))
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	state, ok := s.Redo()
	if ok {
		h.emit(httpx.RequestContext(r), r, telemetry.HistoryRedone(s.DefinitionID(), s.ID()))
	}
	h.writeStateWith(w, http.StatusOK, state, map[string]any{"redone": ok})
}

func (h *handler) handleSave(w http.ResponseWriter, r *http.Request) {
	s, err := h.sessions.Get(r.PathValue("id"))
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	serialized, err := s.Serialize()
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	ctx := httpx.RequestContext(r)
	definition, err := h.store.GetRuleDefinition(ctx, s.DefinitionID())
	if err != nil {
		httpx.WriteError(w, r, mapStorageErr(err))
		return
	}
	definition.Tree = serialized
	if err := h.store.UpdateRuleDefinition(ctx, definition); err != nil {
		httpx.WriteError(w, r, mapStorageErr(err))
		return
	}
	h.emit(ctx, r, telemetry.DefinitionSaved(definition.ID, s.ID()))
	_ = httpx.WriteJSON(w, http.StatusOK, map[string]any{"tree": json.RawMessage(serialized)})
}

// stateView is the transport shape of a session snapshot.
type stateView struct {
	SessionID    string               `json:"session_id"`
	DefinitionID string               `json:"definition_id"`
	Nodes        []nodeView           `json:"nodes"`
	Issues       []issueView          `json:"issues"`
	Targets      []session.TargetView `json:"targets"`
	CanUndo      bool                 `json:"can_undo"`
	CanRedo      bool                 `json:"can_redo"`
	Mode         string               `json:"mode"`
	FocusIndex   int                  `json:"focus_index"`
	Announce     []announceView       `json:"announcements"`
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

type announceView struct {
	Text     string `json:"text"`
	Priority string `json:"priority"`
}

func toStateView(state session.State) stateView {
	view := stateView{
		SessionID:    state.SessionID,
		DefinitionID: state.DefinitionID,
		Nodes:        make([]nodeView, 0, len(state.Nodes)),
		Issues:       make([]issueView, 0, len(state.Issues)),
		Targets:      state.Targets,
		CanUndo:      state.CanUndo,
		CanRedo:      state.CanRedo,
		Mode:         string(state.Mode),
		FocusIndex:   state.FocusIndex,
		Announce:     make([]announceView, 0, len(state.Announcement)),
	}
	for _, node := range state.Nodes {
		view.Nodes = append(view.Nodes, nodeView{
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
		view.Issues = append(view.Issues, issueView{
			NodeID:  issue.NodeID,
			Code:    string(issue.Code),
			Message: issue.Message,
		})
	}
	for _, message := range state.Announcement {
		view.Announce = append(view.Announce, announceView{
			Text:     message.Text,
			Priority: string(message.Priority),
		})
	}
	return view
}

func (h *handler) writeState(w http.ResponseWriter, status int, state session.State) {
	_ = httpx.WriteJSON(w, status, map[string]any{"state": toStateView(state)})
}

func (h *handler) writeStateWith(w http.ResponseWriter, status int, state session.State, extra map[string]any) {
	body := map[string]any{"state": toStateView(state)}
	for key, value := range extra {
		body[key] = value
	}
	_ = httpx.WriteJSON(w, status, body)
}

func (h *handler) emit(ctx context.Context, r *http.Request, evt telemetry.BuilderEvent) {
	if h.emitter == nil {
		return
	}
	if r != nil {
		evt.RequestID = r.Header.Get("X-Request-ID")
	}
	_ = h.emitter.Record(ctx, evt)
}

func decodeJSON(r *http.Request, target any) error {
	if r == nil || r.Body == nil {
		return apperrors.New(apperrors.CodeUnknown, "request body is required")
	}
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(target); err != nil {
		return apperrors.Wrap(apperrors.CodeUnknown, "malformed request body", err)
	}
	return nil
}

// validateTree checks that a definition tree round-trips through the engine
// before it is persisted.
func validateTree(raw json.RawMessage) error {
	if len(raw) == 0 {
		return nil
	}
	if _, err := tree.Deserialize(raw); err != nil {
		return apperrors.Wrap(apperrors.CodeRequirementInvalidPayload, "malformed requirement tree", err)
	}
	return nil
}

func mapStorageErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, storage.ErrNotFound) {
		return apperrors.Wrap(apperrors.CodeDefinitionNotFound, "rule definition not found", err)
	}
	return err
}
