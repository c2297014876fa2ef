package server

import (
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codemap/repomap-mcp/internal/config"
	"github.com/codemap/repomap-mcp/internal/pipeline"
)

func callReq(args map[string]interface{}) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func resultJSON(t *testing.T, res *mcp.CallToolResult) map[string]interface{} {
	t.Helper()
	require.NotNil(t, res)
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content")

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(text.Text), &decoded))
	return decoded
}

// indexedServer builds a small repository, indexes it synchronously, and
// returns a server over it.
func indexedServer(t *testing.T) *Server {
	t.Helper()
	root := t.TempDir()

	files := map[string]string{
		"svc/users.py": `class UserService:
    """Manages user accounts."""

    def create(self, name):
        """Create a new user."""
        return name

    def delete(self, name):
        return name
`,
		"util/config.py": `def parse_config(path):
    """Reads the TOML configuration file."""
    return path
`,
	}
	for rel, content := range files {
		path := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}

	cfg := config.Default()
	_, err := pipeline.New(root, cfg).Run(context.Background())
	require.NoError(t, err)

	s, err := NewServer(root, cfg)
	require.NoError(t, err)
	t.Cleanup(func() {
		s.mu.Lock()
		if s.store != nil {
			_ = s.store.Close()
			s.store = nil
		}
		s.mu.Unlock()
	})
	return s
}

func TestSearchSymbolsTool(t *testing.T) {
	s := indexedServer(t)

	res, err := s.handleSearchSymbols(context.Background(), callReq(map[string]interface{}{
		"pattern": "parse_*",
	}))
	require.NoError(t, err)

	decoded := resultJSON(t, res)
	assert.EqualValues(t, 1, decoded["count"])
	results := decoded["results"].([]interface{})
	first := results[0].(map[string]interface{})
	assert.Equal(t, "parse_config", first["name"])
	assert.Equal(t, "function", first["kind"])
}

func TestSearchSymbolsRequiresPattern(t *testing.T) {
	s := indexedServer(t)

	_, err := s.handleSearchSymbols(context.Background(), callReq(map[string]interface{}{}))
	require.Error(t, err)
	var mcpErr *MCPError
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, ErrorCodeInvalidParams, mcpErr.Code)
}

func TestGetFileSymbolsTool(t *testing.T) {
	s := indexedServer(t)

	res, err := s.handleGetFileSymbols(context.Background(), callReq(map[string]interface{}{
		"file_path": "svc/users.py",
	}))
	require.NoError(t, err)

	decoded := resultJSON(t, res)
	assert.EqualValues(t, 3, decoded["count"])
	symbols := decoded["symbols"].([]interface{})
	first := symbols[0].(map[string]interface{})
	assert.Equal(t, "UserService", first["name"])
	assert.Equal(t, "class", first["kind"])
}

func TestGetSymbolContentQualified(t *testing.T) {
	s := indexedServer(t)

	res, err := s.handleGetSymbolContent(context.Background(), callReq(map[string]interface{}{
		"name": "UserService.create",
	}))
	require.NoError(t, err)

	decoded := resultJSON(t, res)
	assert.Equal(t, "create", decoded["name"])
	assert.Equal(t, "UserService", decoded["parent"])
	assert.Contains(t, decoded["content"], "def create(self, name):")
}

func TestGetSymbolContentNotFound(t *testing.T) {
	s := indexedServer(t)

	_, err := s.handleGetSymbolContent(context.Background(), callReq(map[string]interface{}{
		"name": "does_not_exist",
	}))
	require.Error(t, err)
	var mcpErr *MCPError
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, ErrorCodeSymbolNotFound, mcpErr.Code)
}

func TestListFilesTool(t *testing.T) {
	s := indexedServer(t)

	res, err := s.handleListFiles(context.Background(), callReq(map[string]interface{}{
		"pattern": "util/*",
	}))
	require.NoError(t, err)

	decoded := resultJSON(t, res)
	assert.EqualValues(t, 1, decoded["count"])
	assert.Equal(t, []interface{}{"util/config.py"}, decoded["files"])
}

func TestSearchTextTool(t *testing.T) {
	s := indexedServer(t)

	res, err := s.handleSearchText(context.Background(), callReq(map[string]interface{}{
		"query": "configuration",
	}))
	require.NoError(t, err)

	decoded := resultJSON(t, res)
	assert.EqualValues(t, 1, decoded["count"])
	results := decoded["results"].([]interface{})
	first := results[0].(map[string]interface{})
	assert.Equal(t, "parse_config", first["symbol_name"])
}

func TestStatusToolOnFreshIndex(t *testing.T) {
	s := indexedServer(t)

	res, err := s.handleStatus(context.Background(), callReq(nil))
	require.NoError(t, err)

	decoded := resultJSON(t, res)
	assert.Equal(t, "completed", decoded["status"])
	assert.Equal(t, false, decoded["stale"])
	assert.Equal(t, false, decoded["indexer_running"])
	assert.Equal(t, "4", decoded["symbol_count"])
}

func TestStatusToolWithoutIndex(t *testing.T) {
	s, err := NewServer(t.TempDir(), config.Default())
	require.NoError(t, err)

	res, err := s.handleStatus(context.Background(), callReq(nil))
	require.NoError(t, err)

	decoded := resultJSON(t, res)
	assert.Equal(t, "not_indexed", decoded["status"])
}

func TestQueryTriggersIndexingResponseWhenUnindexed(t *testing.T) {
	s, err := NewServer(t.TempDir(), config.Default())
	require.NoError(t, err)
	s.sup.SetCommand(func() (*exec.Cmd, error) {
		return exec.Command("sleep", "5"), nil
	})

	res, err := s.handleSearchSymbols(context.Background(), callReq(map[string]interface{}{
		"pattern": "anything",
	}))
	require.NoError(t, err)

	decoded := resultJSON(t, res)
	assert.Equal(t, "indexing_in_progress", decoded["status"])
	partial, ok := decoded["partial_results"].([]interface{})
	require.True(t, ok)
	assert.Empty(t, partial)
	assert.True(t, s.sup.Running())
}

func TestReindexToolReportsFreshIndex(t *testing.T) {
	s := indexedServer(t)

	res, err := s.handleReindex(context.Background(), callReq(map[string]interface{}{}))
	require.NoError(t, err)

	decoded := resultJSON(t, res)
	assert.Equal(t, false, decoded["started"])
	assert.Contains(t, decoded["reason"], "fresh")
}

func TestWaitForIndexReturnsImmediatelyWhenSettled(t *testing.T) {
	s := indexedServer(t)

	res, err := s.handleWaitForIndex(context.Background(), callReq(map[string]interface{}{
		"timeout_seconds": 5,
	}))
	require.NoError(t, err)

	decoded := resultJSON(t, res)
	assert.Equal(t, true, decoded["completed"])
	assert.Equal(t, "completed", decoded["status"])
}
