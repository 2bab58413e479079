package sqlite

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/louisbranch/threshold.games/internal/services/builder/storage"
)

func openTempStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "builder.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("close store: %v", err)
		}
	})
	return store
}

func TestOpenRequiresPath(t *testing.T) {
	t.Parallel()

	if _, err := Open(""); err == nil {
		t.Fatal("expected empty path error")
	}
}

func TestCreateGetRuleDefinitionRoundTrip(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	now := time.Date(2026, time.August, 20, 10, 30, 0, 0, time.UTC)
	input := storage.RuleDefinition{
		ID:          "def-1",
		CampaignID:  "camp-1",
		Name:        "Veteran gate",
		Description: "Requirements for the veteran storyline",
		Tree:        []byte(`[{"trait":{"min":3,"name":"strength"}}]`),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := store.CreateRuleDefinition(context.Background(), input); err != nil {
		t.Fatalf("create rule definition: %v", err)
	}

	got, err := store.GetRuleDefinition(context.Background(), "def-1")
	if err != nil {
		t.Fatalf("get rule definition: %v", err)
	}
	if got.CampaignID != input.CampaignID {
		t.Fatalf("campaign_id = %q, want %q", got.CampaignID, input.CampaignID)
	}
	if got.Name != input.Name {
		t.Fatalf("name = %q, want %q", got.Name, input.Name)
	}
	if string(got.Tree) != string(input.Tree) {
		t.Fatalf("tree = %s, want %s", got.Tree, input.Tree)
	}
	if !got.CreatedAt.Equal(now) || !got.UpdatedAt.Equal(now) {
		t.Fatalf("timestamps = %v/%v, want %v", got.CreatedAt, got.UpdatedAt, now)
	}
}

func TestCreateRuleDefinitionDefaultsEmptyTree(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	input := storage.RuleDefinition{ID: "def-1", CampaignID: "camp-1", Name: "Empty"}
	if err := store.CreateRuleDefinition(context.Background(), input); err != nil {
		t.Fatalf("create rule definition: %v", err)
	}

	got, err := store.GetRuleDefinition(context.Background(), "def-1")
	if err != nil {
		t.Fatalf("get rule definition: %v", err)
	}
	if string(got.Tree) != "[]" {
		t.Fatalf("tree = %s, want []", got.Tree)
	}
}

func TestCreateRuleDefinitionReturnsAlreadyExistsOnDuplicate(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	input := storage.RuleDefinition{ID: "def-1", CampaignID: "camp-1", Name: "First"}
	if err := store.CreateRuleDefinition(context.Background(), input); err != nil {
		t.Fatalf("create rule definition: %v", err)
	}

	err := store.CreateRuleDefinition(context.Background(), input)
	if !errors.Is(err, storage.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
}

func TestCreateRuleDefinitionValidation(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	tests := []struct {
		name  string
		input storage.RuleDefinition
	}{
		{name: "missing id", input: storage.RuleDefinition{CampaignID: "c", Name: "n"}},
		{name: "missing campaign", input: storage.RuleDefinition{ID: "d", Name: "n"}},
		{name: "missing name", input: storage.RuleDefinition{ID: "d", CampaignID: "c"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if err := store.CreateRuleDefinition(context.Background(), tc.input); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestGetRuleDefinitionNotFound(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	_, err := store.GetRuleDefinition(context.Background(), "missing")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListRuleDefinitionsPaging(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	for i := 0; i < 5; i++ {
		input := storage.RuleDefinition{
			ID:         fmt.Sprintf("def-%d", i),
			CampaignID: "camp-1",
			Name:       fmt.Sprintf("Rule %d", i),
		}
		if err := store.CreateRuleDefinition(context.Background(), input); err != nil {
			t.Fatalf("create rule definition %d: %v", i, err)
		}
	}
	other := storage.RuleDefinition{ID: "other", CampaignID: "camp-2", Name: "Other"}
	if err := store.CreateRuleDefinition(context.Background(), other); err != nil {
		t.Fatalf("create other definition: %v", err)
	}

	page, err := store.ListRuleDefinitions(context.Background(), "camp-1", 3, "")
	if err != nil {
		t.Fatalf("list first page: %v", err)
	}
	if len(page.Definitions) != 3 {
		t.Fatalf("first page size = %d, want 3", len(page.Definitions))
	}
	if page.NextPageToken == "" {
		t.Fatal("expected next page token")
	}

	page, err = store.ListRuleDefinitions(context.Background(), "camp-1", 3, page.NextPageToken)
	if err != nil {
		t.Fatalf("list second page: %v", err)
	}
	if len(page.Definitions) != 2 {
		t.Fatalf("second page size = %d, want 2", len(page.Definitions))
	}
	if page.NextPageToken != "" {
		t.Fatalf("unexpected next page token %q", page.NextPageToken)
	}
	for _, definition := range page.Definitions {
		if definition.CampaignID != "camp-1" {
			t.Fatalf("leaked definition from campaign %q", definition.CampaignID)
		}
	}
}

func TestUpdateRuleDefinition(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	input := storage.RuleDefinition{ID: "def-1", CampaignID: "camp-1", Name: "Before"}
	if err := store.CreateRuleDefinition(context.Background(), input); err != nil {
		t.Fatalf("create rule definition: %v", err)
	}

	input.Name = "After"
	input.Tree = []byte(`[{"any":[]}]`)
	if err := store.UpdateRuleDefinition(context.Background(), input); err != nil {
		t.Fatalf("update rule definition: %v", err)
	}

	got, err := store.GetRuleDefinition(context.Background(), "def-1")
	if err != nil {
		t.Fatalf("get rule definition: %v", err)
	}
	if got.Name != "After" {
		t.Fatalf("name = %q, want After", got.Name)
	}
	if string(got.Tree) != `[{"any":[]}]` {
		t.Fatalf("tree = %s", got.Tree)
	}

	missing := storage.RuleDefinition{ID: "missing", Name: "x"}
	if err := store.UpdateRuleDefinition(context.Background(), missing); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteRuleDefinition(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	input := storage.RuleDefinition{ID: "def-1", CampaignID: "camp-1", Name: "Doomed"}
	if err := store.CreateRuleDefinition(context.Background(), input); err != nil {
		t.Fatalf("create rule definition: %v", err)
	}

	if err := store.DeleteRuleDefinition(context.Background(), "def-1"); err != nil {
		t.Fatalf("delete rule definition: %v", err)
	}
	if _, err := store.GetRuleDefinition(context.Background(), "def-1"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := store.DeleteRuleDefinition(context.Background(), "def-1"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on double delete, got %v", err)
	}
}

func TestAppendTelemetryEvent(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	evt := storage.TelemetryEvent{
		EventName:    "builder.drop.performed",
		Severity:     "INFO",
		DefinitionID: "def-1",
		SessionID:    "sess-1",
		Attributes:   map[string]any{"kind": "trait"},
	}
	if err := store.AppendTelemetryEvent(context.Background(), evt); err != nil {
		t.Fatalf("append telemetry event: %v", err)
	}

	if err := store.AppendTelemetryEvent(context.Background(), storage.TelemetryEvent{Severity: "INFO"}); err == nil {
		t.Fatal("expected missing event name error")
	}
}
