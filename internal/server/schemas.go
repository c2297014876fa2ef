package server

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// searchSymbolsTool returns the tool definition for search_symbols
func searchSymbolsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "search_symbols",
		Description: "Search indexed symbols (classes, functions, methods) by name with glob patterns",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"pattern": map[string]interface{}{
					"type":        "string",
					"description": "Glob pattern over symbol names (e.g. 'parse_*', '*Config*'). A bare string matches as a substring",
				},
				"kind": map[string]interface{}{
					"type":        "string",
					"description": "Restrict to one symbol kind",
					"enum":        []string{"class", "function", "method"},
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of results to return (1-500)",
					"default":     50,
					"minimum":     1,
					"maximum":     500,
				},
			},
			Required: []string{"pattern"},
		},
	}
}

// getFileSymbolsTool returns the tool definition for get_file_symbols
func getFileSymbolsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_file_symbols",
		Description: "List every symbol defined in one source file, in line order",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"file_path": map[string]interface{}{
					"type":        "string",
					"description": "Repository-relative path of the file (e.g. 'src/app/main.py')",
				},
			},
			Required: []string{"file_path"},
		},
	}
}

// getSymbolContentTool returns the tool definition for get_symbol_content
func getSymbolContentTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_symbol_content",
		Description: "Fetch the source code of a symbol by name. Use 'Parent.method' to address a method",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"name": map[string]interface{}{
					"type":        "string",
					"description": "Symbol name, optionally qualified as 'ClassName.method_name'",
				},
				"kind": map[string]interface{}{
					"type":        "string",
					"description": "Disambiguate when multiple symbols share the name",
					"enum":        []string{"class", "function", "method"},
				},
			},
			Required: []string{"name"},
		},
	}
}

// listFilesTool returns the tool definition for list_files
func listFilesTool() mcp.Tool {
	return mcp.Tool{
		Name:        "list_files",
		Description: "List indexed source files, optionally filtered by a path glob",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"pattern": map[string]interface{}{
					"type":        "string",
					"description": "Glob over repository-relative paths (e.g. 'src/**/*.py')",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of paths to return",
					"default":     200,
					"minimum":     1,
				},
			},
		},
	}
}

// searchTextTool returns the tool definition for search_text
func searchTextTool() mcp.Tool {
	return mcp.Tool{
		Name:        "search_text",
		Description: "Full-text search over docstrings and documentation comments",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Full-text query (FTS5 syntax: words, phrases in quotes, AND/OR)",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of results to return",
					"default":     50,
					"minimum":     1,
				},
			},
			Required: []string{"query"},
		},
	}
}

// statusTool returns the tool definition for repo_map_status
func statusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "repo_map_status",
		Description: "Report index health: status, symbol count, staleness, and live progress",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}

// reindexTool returns the tool definition for reindex_repo_map
func reindexTool() mcp.Tool {
	return mcp.Tool{
		Name:        "reindex_repo_map",
		Description: "Start a background reindex of the repository",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"force": map[string]interface{}{
					"type":        "boolean",
					"description": "Start even when the index looks fresh",
					"default":     false,
				},
			},
		},
	}
}

// waitForIndexTool returns the tool definition for wait_for_index
func waitForIndexTool() mcp.Tool {
	return mcp.Tool{
		Name:        "wait_for_index",
		Description: "Block until the current indexing run finishes or a timeout elapses",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"timeout_seconds": map[string]interface{}{
					"type":        "integer",
					"description": "How long to wait before giving up",
					"default":     60,
					"minimum":     1,
					"maximum":     600,
				},
			},
		},
	}
}
