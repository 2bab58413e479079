package domain

import (
	"context"

	"github.com/louisbranch/threshold.games/internal/builder/palette"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// PaletteSearchInput holds the palette_search tool parameters.
type PaletteSearchInput struct {
	Query string `json:"query,omitempty" jsonschema:"optional case-insensitive filter over item names and descriptions"`
}

// PaletteEntry describes one draggable requirement kind.
type PaletteEntry struct {
	Kind        string         `json:"kind" jsonschema:"requirement kind identifier"`
	DisplayName string         `json:"display_name" jsonschema:"human readable name"`
	Description string         `json:"description" jsonschema:"short description of the requirement"`
	Template    map[string]any `json:"template,omitempty" jsonschema:"default payload for new nodes of this kind"`
}

// PaletteSearchResult holds the palette_search tool output.
type PaletteSearchResult struct {
	Items []PaletteEntry `json:"items" jsonschema:"matching palette items in catalog order"`
}

// PaletteSearchTool describes the palette_search MCP tool.
func PaletteSearchTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "palette_search",
		Description: "Search the requirement palette for draggable item kinds.",
	}
}

// PaletteSearchHandler returns the palette_search tool handler.
func PaletteSearchHandler() mcp.ToolHandlerFor[PaletteSearchInput, PaletteSearchResult] {
	return func(_ context.Context, _ *mcp.CallToolRequest, input PaletteSearchInput) (*mcp.CallToolResult, PaletteSearchResult, error) {
		items := palette.Search(input.Query)
		result := PaletteSearchResult{Items: make([]PaletteEntry, 0, len(items))}
		for _, item := range items {
			result.Items = append(result.Items, PaletteEntry{
				Kind:        string(item.Type),
				DisplayName: item.DisplayName,
				Description: item.Description,
				Template:    item.Template.Clone(),
			})
		}
		return nil, result, nil
	}
}
