package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/codemap/repomap-mcp/internal/config"
	"github.com/codemap/repomap-mcp/internal/staleness"
	"github.com/codemap/repomap-mcp/internal/storage"
	"github.com/codemap/repomap-mcp/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams      = -32602 // Invalid method parameters
	ErrorCodeInternalError      = -32603 // Internal JSON-RPC error
	ErrorCodeIndexingInProgress = -32002 // An indexing operation is running
	ErrorCodeNotIndexed         = -32003 // Repository not indexed yet
	ErrorCodeSymbolNotFound     = -32004 // No symbol matches the request
)

// readyPollInterval is how often auto-waiting queries recheck the status.
const readyPollInterval = 250 * time.Millisecond

// handleSearchSymbols handles the search_symbols tool invocation
func (s *Server) handleSearchSymbols(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}
	pattern, ok := args["pattern"].(string)
	if !ok || pattern == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "pattern parameter is required", map[string]interface{}{
			"param":  "pattern",
			"reason": "missing or empty",
		})
	}
	kind := getStringDefault(args, "kind", "")
	limit := getIntDefault(args, "limit", 50)
	if limit < 1 || limit > 500 {
		return nil, newMCPError(ErrorCodeInvalidParams, "limit must be between 1 and 500", map[string]interface{}{
			"param": "limit",
			"value": limit,
		})
	}

	store, busy, err := s.ensureReady(ctx)
	if busy != nil || err != nil {
		return busy, err
	}

	symbols, err := store.SearchSymbols(ctx, pattern, kind, limit)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "search failed", map[string]interface{}{"error": err.Error()})
	}

	results := make([]interface{}, 0, len(symbols))
	for _, sym := range symbols {
		results = append(results, symbolMap(sym))
	}
	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"pattern": pattern,
		"count":   len(results),
		"results": results,
	})), nil
}

// handleGetFileSymbols handles the get_file_symbols tool invocation
func (s *Server) handleGetFileSymbols(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}
	filePath, ok := args["file_path"].(string)
	if !ok || filePath == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "file_path parameter is required", map[string]interface{}{
			"param":  "file_path",
			"reason": "missing or empty",
		})
	}

	store, busy, err := s.ensureReady(ctx)
	if busy != nil || err != nil {
		return busy, err
	}

	symbols, err := store.GetFileSymbols(ctx, filepath.ToSlash(filePath))
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "lookup failed", map[string]interface{}{"error": err.Error()})
	}

	results := make([]interface{}, 0, len(symbols))
	for _, sym := range symbols {
		results = append(results, symbolMap(sym))
	}
	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"file_path": filePath,
		"count":     len(results),
		"symbols":   results,
	})), nil
}

// handleGetSymbolContent handles the get_symbol_content tool invocation
func (s *Server) handleGetSymbolContent(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}
	name, ok := args["name"].(string)
	if !ok || name == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "name parameter is required", map[string]interface{}{
			"param":  "name",
			"reason": "missing or empty",
		})
	}
	kind := getStringDefault(args, "kind", "")

	store, busy, err := s.ensureReady(ctx)
	if busy != nil || err != nil {
		return busy, err
	}

	// 'Parent.method' addresses a method inside its class.
	var symbols []types.Symbol
	var lookupErr error
	if parent, method, qualified := strings.Cut(name, "."); qualified {
		symbols, lookupErr = store.LookupSymbol(ctx, method, parent, kind)
	} else {
		symbols, lookupErr = store.LookupSymbol(ctx, name, "", kind)
	}
	if errors.Is(lookupErr, storage.ErrNotFound) {
		return nil, newMCPError(ErrorCodeSymbolNotFound, fmt.Sprintf("symbol %q not found", name), nil)
	}
	if lookupErr != nil {
		return nil, newMCPError(ErrorCodeInternalError, "lookup failed", map[string]interface{}{"error": lookupErr.Error()})
	}

	if len(symbols) > 1 {
		candidates := make([]interface{}, 0, len(symbols))
		for _, sym := range symbols {
			candidates = append(candidates, symbolMap(sym))
		}
		return mcp.NewToolResultText(formatJSON(map[string]interface{}{
			"multiple_matches": true,
			"name":             name,
			"candidates":       candidates,
			"hint":             "narrow with the kind parameter or a qualified 'Parent.method' name",
		})), nil
	}

	sym := symbols[0]
	content, err := s.readSymbolSource(sym)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "read source failed", map[string]interface{}{"error": err.Error()})
	}

	response := symbolMap(sym)
	response["content"] = content
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// readSymbolSource slices the symbol's line span out of its file. Symbols
// without a recorded end line get a fixed window after their start.
func (s *Server) readSymbolSource(sym types.Symbol) (string, error) {
	data, err := os.ReadFile(filepath.Join(s.root, filepath.FromSlash(sym.FilePath)))
	if err != nil {
		return "", err
	}
	lines := strings.Split(string(data), "\n")

	start := sym.LineStart
	if start < 1 {
		start = 1
	}
	end := sym.LineEnd
	if end < start {
		end = start + 20
	}
	if end > len(lines) {
		end = len(lines)
	}
	if start > len(lines) {
		return "", fmt.Errorf("%s: line %d beyond end of file", sym.FilePath, start)
	}
	return strings.Join(lines[start-1:end], "\n"), nil
}

// handleListFiles handles the list_files tool invocation
func (s *Server) handleListFiles(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := request.Params.Arguments.(map[string]interface{})
	pattern := getStringDefault(args, "pattern", "")
	limit := getIntDefault(args, "limit", 200)

	store, busy, err := s.ensureReady(ctx)
	if busy != nil || err != nil {
		return busy, err
	}

	files, err := store.ListFiles(ctx, pattern, limit)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "list failed", map[string]interface{}{"error": err.Error()})
	}
	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"count": len(files),
		"files": files,
	})), nil
}

// handleSearchText handles the search_text tool invocation
func (s *Server) handleSearchText(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}
	query, ok := args["query"].(string)
	if !ok || strings.TrimSpace(query) == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "query parameter is required", map[string]interface{}{
			"param":  "query",
			"reason": "missing or empty",
		})
	}
	limit := getIntDefault(args, "limit", 50)

	store, busy, err := s.ensureReady(ctx)
	if busy != nil || err != nil {
		return busy, err
	}

	hits, err := store.SearchText(ctx, query, limit)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "text search failed", map[string]interface{}{"error": err.Error()})
	}

	results := make([]interface{}, 0, len(hits))
	for _, el := range hits {
		results = append(results, map[string]interface{}{
			"file_path":    el.FilePath,
			"line_number":  el.LineNumber,
			"element_type": el.ElementType,
			"symbol_name":  el.SymbolName,
			"content":      el.Content,
		})
	}
	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"query":   query,
		"count":   len(results),
		"results": results,
	})), nil
}

// handleStatus handles the repo_map_status tool invocation. It never
// blocks on indexing; its whole point is observing it.
func (s *Server) handleStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	response := map[string]interface{}{
		"root":   s.root,
		"driver": storage.DriverName,
	}

	store, err := s.getStore()
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "open index failed", map[string]interface{}{"error": err.Error()})
	}
	if store == nil {
		response["status"] = "not_indexed"
		response["indexer_running"] = s.sup.Running()
		return mcp.NewToolResultText(formatJSON(response)), nil
	}

	meta, err := store.GetAllMeta(ctx)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "read metadata failed", map[string]interface{}{"error": err.Error()})
	}
	status := meta[types.MetaStatus]
	response["status"] = status
	if v := meta[types.MetaLastIndexed]; v != "" {
		response["last_indexed"] = v
	}
	if v := meta[types.MetaSymbolCount]; v != "" {
		response["symbol_count"] = v
	}
	if v := meta[types.MetaErrorMessage]; v != "" {
		response["error_message"] = v
	}

	if status == string(types.StatusIndexing) {
		if start, parseErr := time.Parse(time.RFC3339, meta[types.MetaIndexStartTime]); parseErr == nil {
			response["indexing_elapsed_seconds"] = int(time.Since(start).Seconds())
		}
		if progress := s.readProgress(); progress != nil {
			response["progress"] = progress
		}
	}
	response["indexer_running"] = s.sup.Running()

	if stale, reason := staleness.Check(s.root); stale {
		response["stale"] = true
		response["stale_reason"] = reason
	} else {
		response["stale"] = false
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleReindex handles the reindex_repo_map tool invocation
func (s *Server) handleReindex(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := request.Params.Arguments.(map[string]interface{})
	force := getBoolDefault(args, "force", false)

	if s.sup.Running() {
		return mcp.NewToolResultText(formatJSON(map[string]interface{}{
			"started":         false,
			"already_running": true,
			"progress":        s.readProgress(),
		})), nil
	}

	if !force {
		if stale, _ := staleness.Check(s.root); !stale {
			return mcp.NewToolResultText(formatJSON(map[string]interface{}{
				"started": false,
				"reason":  "index is fresh; pass force=true to rebuild anyway",
			})), nil
		}
	}

	started := s.triggerReindex()
	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"started":         started,
		"already_running": !started,
	})), nil
}

// handleWaitForIndex handles the wait_for_index tool invocation
func (s *Server) handleWaitForIndex(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := request.Params.Arguments.(map[string]interface{})
	timeout := getIntDefault(args, "timeout_seconds", 60)
	if timeout < 1 || timeout > 600 {
		return nil, newMCPError(ErrorCodeInvalidParams, "timeout_seconds must be between 1 and 600", map[string]interface{}{
			"param": "timeout_seconds",
			"value": timeout,
		})
	}

	deadline := time.Now().Add(time.Duration(timeout) * time.Second)
	for {
		if done, status := s.indexSettled(ctx); done {
			return mcp.NewToolResultText(formatJSON(map[string]interface{}{
				"completed": status == string(types.StatusCompleted),
				"status":    status,
			})), nil
		}
		if time.Now().After(deadline) {
			return mcp.NewToolResultText(formatJSON(map[string]interface{}{
				"completed": false,
				"status":    string(types.StatusIndexing),
				"timed_out": true,
				"progress":  s.readProgress(),
			})), nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(readyPollInterval):
		}
	}
}

// indexSettled reports whether indexing has reached a terminal state, and
// which.
func (s *Server) indexSettled(ctx context.Context) (bool, string) {
	store, err := s.getStore()
	if err != nil || store == nil {
		return false, ""
	}
	status, err := store.GetMeta(ctx, types.MetaStatus)
	if err != nil {
		return false, ""
	}
	if status == string(types.StatusIndexing) && s.sup.Running() {
		return false, status
	}
	if status == string(types.StatusIndexing) {
		// Status claims indexing but nothing is running; the watchdog will
		// reconcile. Report unsettled until it does.
		return false, status
	}
	return true, status
}

// ensureReady gates query tools on index availability. A missing index
// kicks off a build; an in-flight build is waited on briefly before the
// caller gets a structured in-progress response instead of data.
func (s *Server) ensureReady(ctx context.Context) (*storage.Store, *mcp.CallToolResult, error) {
	store, err := s.getStore()
	if err != nil {
		return nil, nil, newMCPError(ErrorCodeInternalError, "open index failed", map[string]interface{}{"error": err.Error()})
	}
	if store == nil {
		s.triggerReindex()
		return nil, s.indexingResult(), nil
	}

	status, err := store.GetMeta(ctx, types.MetaStatus)
	if errors.Is(err, storage.ErrNotFound) {
		s.triggerReindex()
		return nil, s.indexingResult(), nil
	}
	if err != nil {
		return nil, nil, newMCPError(ErrorCodeInternalError, "read status failed", map[string]interface{}{"error": err.Error()})
	}

	if status != string(types.StatusIndexing) {
		// Completed serves normally. Failed also serves: the last good
		// index stays queryable and the failure shows in repo_map_status.
		return store, nil, nil
	}

	// Auto-wait a short grace period; most incremental runs finish fast.
	deadline := time.Now().Add(s.cfg.QueryWait())
	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return nil, nil, ctx.Err()
		case <-time.After(readyPollInterval):
		}
		status, err = store.GetMeta(ctx, types.MetaStatus)
		if err == nil && status != string(types.StatusIndexing) {
			return store, nil, nil
		}
	}
	return nil, s.indexingResult(), nil
}

// indexingResult is the structured "come back later" response for queries
// that arrive mid-build.
func (s *Server) indexingResult() *mcp.CallToolResult {
	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"status":              "indexing_in_progress",
		"partial_results":     []interface{}{},
		"retry_after_seconds": s.cfg.QueryWaitSeconds,
		"progress":            s.readProgress(),
	}))
}

// readProgress loads the live progress artifact, nil when unavailable.
func (s *Server) readProgress() map[string]interface{} {
	data, err := os.ReadFile(config.ProgressPath(s.root))
	if err != nil {
		return nil
	}
	var progress map[string]interface{}
	if err := json.Unmarshal(data, &progress); err != nil {
		return nil
	}
	if toParse, ok := progress["files_to_parse"].(float64); ok {
		if parsed, ok := progress["files_parsed"].(float64); ok && toParse > parsed {
			// Rough forecast assuming ~50ms per file.
			progress["eta_seconds"] = int((toParse - parsed) * 0.05)
		}
	}
	return progress
}

func symbolMap(sym types.Symbol) map[string]interface{} {
	m := map[string]interface{}{
		"name":      sym.Name,
		"kind":      string(sym.Kind),
		"signature": sym.Signature,
		"location":  sym.Location(),
		"file_path": sym.FilePath,
		"line":      sym.LineStart,
	}
	if sym.LineEnd > 0 {
		m["end_line"] = sym.LineEnd
	}
	if sym.Parent != "" {
		m["parent"] = sym.Parent
	}
	if sym.Docstring != "" {
		m["docstring"] = sym.Docstring
	}
	return m
}

// newMCPError builds a protocol-level error; the framework handles encoding
func newMCPError(code int, message string, data interface{}) error {
	return &MCPError{Code: code, Message: message, Data: data}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getBoolDefault extracts a boolean parameter with a default value
func getBoolDefault(args map[string]interface{}, key string, defaultValue bool) bool {
	if val, ok := args[key].(bool); ok {
		return val
	}
	return defaultValue
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}

// getStringDefault extracts a string parameter with a default value
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok && val != "" {
		return val
	}
	return defaultValue
}
