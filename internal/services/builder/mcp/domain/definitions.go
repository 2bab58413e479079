package domain

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/louisbranch/threshold.games/internal/builder/tree"
	"github.com/louisbranch/threshold.games/internal/platform/id"
	"github.com/louisbranch/threshold.games/internal/services/builder/storage"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// DefinitionSummary is the transport shape for a stored rule definition.
type DefinitionSummary struct {
	ID          string `json:"id" jsonschema:"rule definition identifier"`
	CampaignID  string `json:"campaign_id" jsonschema:"owning campaign identifier"`
	Name        string `json:"name" jsonschema:"definition name"`
	Description string `json:"description,omitempty" jsonschema:"definition description"`
	Tree        string `json:"tree" jsonschema:"serialized requirement tree JSON"`
	CreatedAt   string `json:"created_at" jsonschema:"creation time in RFC 3339"`
	UpdatedAt   string `json:"updated_at" jsonschema:"last update time in RFC 3339"`
}

func summarize(definition storage.RuleDefinition) DefinitionSummary {
	return DefinitionSummary{
		ID:          definition.ID,
		CampaignID:  definition.CampaignID,
		Name:        definition.Name,
		Description: definition.Description,
		Tree:        string(definition.Tree),
		CreatedAt:   definition.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:   definition.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

// DefinitionCreateInput holds the definition_create tool parameters.
type DefinitionCreateInput struct {
	CampaignID  string `json:"campaign_id" jsonschema:"owning campaign identifier"`
	Name        string `json:"name" jsonschema:"definition name"`
	Description string `json:"description,omitempty" jsonschema:"optional description"`
	Tree        string `json:"tree,omitempty" jsonschema:"optional serialized requirement tree JSON, defaults to an empty tree"`
}

// DefinitionCreateResult holds the definition_create tool output.
type DefinitionCreateResult struct {
	Definition DefinitionSummary `json:"definition" jsonschema:"stored rule definition"`
}

// DefinitionCreateTool describes the definition_create MCP tool.
func DefinitionCreateTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "definition_create",
		Description: "Create a rule definition for a campaign, optionally seeded with a requirement tree.",
	}
}

// DefinitionCreateHandler returns the definition_create tool handler.
func DefinitionCreateHandler(store storage.RuleDefinitionStore) mcp.ToolHandlerFor[DefinitionCreateInput, DefinitionCreateResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input DefinitionCreateInput) (*mcp.CallToolResult, DefinitionCreateResult, error) {
		treeJSON := strings.TrimSpace(input.Tree)
		if treeJSON == "" {
			treeJSON = "[]"
		}
		if _, err := tree.Deserialize([]byte(treeJSON)); err != nil {
			return nil, DefinitionCreateResult{}, fmt.Errorf("parse tree: %w", err)
		}
		definitionID, err := id.NewID()
		if err != nil {
			return nil, DefinitionCreateResult{}, fmt.Errorf("generate definition id: %w", err)
		}
		definition := storage.RuleDefinition{
			ID:          definitionID,
			CampaignID:  input.CampaignID,
			Name:        input.Name,
			Description: input.Description,
			Tree:        []byte(treeJSON),
		}
		if err := store.CreateRuleDefinition(ctx, definition); err != nil {
			return nil, DefinitionCreateResult{}, fmt.Errorf("create definition: %w", err)
		}
		stored, err := store.GetRuleDefinition(ctx, definitionID)
		if err != nil {
			return nil, DefinitionCreateResult{}, fmt.Errorf("load definition: %w", err)
		}
		return nil, DefinitionCreateResult{Definition: summarize(stored)}, nil
	}
}

// DefinitionGetInput holds the definition_get tool parameters.
type DefinitionGetInput struct {
	ID string `json:"id" jsonschema:"rule definition identifier"`
}

// DefinitionGetResult holds the definition_get tool output.
type DefinitionGetResult struct {
	Definition DefinitionSummary `json:"definition" jsonschema:"stored rule definition"`
}

// DefinitionGetTool describes the definition_get MCP tool.
func DefinitionGetTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "definition_get",
		Description: "Fetch a rule definition by identifier.",
	}
}

// DefinitionGetHandler returns the definition_get tool handler.
func DefinitionGetHandler(store storage.RuleDefinitionStore) mcp.ToolHandlerFor[DefinitionGetInput, DefinitionGetResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input DefinitionGetInput) (*mcp.CallToolResult, DefinitionGetResult, error) {
		definition, err := store.GetRuleDefinition(ctx, input.ID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return nil, DefinitionGetResult{}, fmt.Errorf("definition %s not found", input.ID)
			}
			return nil, DefinitionGetResult{}, fmt.Errorf("load definition: %w", err)
		}
		return nil, DefinitionGetResult{Definition: summarize(definition)}, nil
	}
}

// DefinitionListInput holds the definition_list tool parameters.
type DefinitionListInput struct {
	CampaignID string `json:"campaign_id" jsonschema:"campaign whose definitions to list"`
	PageSize   int    `json:"page_size,omitempty" jsonschema:"maximum definitions per page"`
	PageToken  string `json:"page_token,omitempty" jsonschema:"token from a previous page"`
}

// DefinitionListResult holds the definition_list tool output.
type DefinitionListResult struct {
	Definitions   []DefinitionSummary `json:"definitions" jsonschema:"definitions for the campaign"`
	NextPageToken string              `json:"next_page_token,omitempty" jsonschema:"token for the next page, empty when exhausted"`
}

// DefinitionListTool describes the definition_list MCP tool.
func DefinitionListTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "definition_list",
		Description: "List rule definitions for a campaign with keyset pagination.",
	}
}

// DefinitionListHandler returns the definition_list tool handler.
func DefinitionListHandler(store storage.RuleDefinitionStore) mcp.ToolHandlerFor[DefinitionListInput, DefinitionListResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input DefinitionListInput) (*mcp.CallToolResult, DefinitionListResult, error) {
		page, err := store.ListRuleDefinitions(ctx, input.CampaignID, input.PageSize, input.PageToken)
		if err != nil {
			return nil, DefinitionListResult{}, fmt.Errorf("list definitions: %w", err)
		}
		result := DefinitionListResult{
			Definitions:   make([]DefinitionSummary, 0, len(page.Definitions)),
			NextPageToken: page.NextPageToken,
		}
		for _, definition := range page.Definitions {
			result.Definitions = append(result.Definitions, summarize(definition))
		}
		return nil, result, nil
	}
}

// DefinitionUpdateInput holds the definition_update tool parameters.
type DefinitionUpdateInput struct {
	ID          string `json:"id" jsonschema:"rule definition identifier"`
	Name        string `json:"name" jsonschema:"new definition name"`
	Description string `json:"description,omitempty" jsonschema:"new description"`
	Tree        string `json:"tree,omitempty" jsonschema:"new serialized requirement tree JSON, empty keeps the stored tree"`
}

// DefinitionUpdateResult holds the definition_update tool output.
type DefinitionUpdateResult struct {
	Definition DefinitionSummary `json:"definition" jsonschema:"updated rule definition"`
}

// DefinitionUpdateTool describes the definition_update MCP tool.
func DefinitionUpdateTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "definition_update",
		Description: "Update a rule definition's name, description, or requirement tree.",
	}
}

// DefinitionUpdateHandler returns the definition_update tool handler.
func DefinitionUpdateHandler(store storage.RuleDefinitionStore) mcp.ToolHandlerFor[DefinitionUpdateInput, DefinitionUpdateResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input DefinitionUpdateInput) (*mcp.CallToolResult, DefinitionUpdateResult, error) {
		definition, err := store.GetRuleDefinition(ctx, input.ID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return nil, DefinitionUpdateResult{}, fmt.Errorf("definition %s not found", input.ID)
			}
			return nil, DefinitionUpdateResult{}, fmt.Errorf("load definition: %w", err)
		}
		definition.Name = input.Name
		definition.Description = input.Description
		if treeJSON := strings.TrimSpace(input.Tree); treeJSON != "" {
			if _, err := tree.Deserialize([]byte(treeJSON)); err != nil {
				return nil, DefinitionUpdateResult{}, fmt.Errorf("parse tree: %w", err)
			}
			definition.Tree = []byte(treeJSON)
		}
		if err := store.UpdateRuleDefinition(ctx, definition); err != nil {
			return nil, DefinitionUpdateResult{}, fmt.Errorf("update definition: %w", err)
		}
		stored, err := store.GetRuleDefinition(ctx, input.ID)
		if err != nil {
			return nil, DefinitionUpdateResult{}, fmt.Errorf("load definition: %w", err)
		}
		return nil, DefinitionUpdateResult{Definition: summarize(stored)}, nil
	}
}

// DefinitionDeleteInput holds the definition_delete tool parameters.
type DefinitionDeleteInput struct {
	ID string `json:"id" jsonschema:"rule definition identifier"`
}

// DefinitionDeleteResult holds the definition_delete tool output.
type DefinitionDeleteResult struct {
	Deleted bool `json:"deleted" jsonschema:"true when the definition was removed"`
}

// DefinitionDeleteTool describes the definition_delete MCP tool.
func DefinitionDeleteTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "definition_delete",
		Description: "Delete a rule definition.",
	}
}

// DefinitionDeleteHandler returns the definition_delete tool handler.
func DefinitionDeleteHandler(store storage.RuleDefinitionStore) mcp.ToolHandlerFor[DefinitionDeleteInput, DefinitionDeleteResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input DefinitionDeleteInput) (*mcp.CallToolResult, DefinitionDeleteResult, error) {
		if err := store.DeleteRuleDefinition(ctx, input.ID); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return nil, DefinitionDeleteResult{}, fmt.Errorf("definition %s not found", input.ID)
			}
			return nil, DefinitionDeleteResult{}, fmt.Errorf("delete definition: %w", err)
		}
		return nil, DefinitionDeleteResult{Deleted: true}, nil
	}
}
