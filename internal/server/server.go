package server

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/server"

	"github.com/codemap/repomap-mcp/internal/config"
	"github.com/codemap/repomap-mcp/internal/staleness"
	"github.com/codemap/repomap-mcp/internal/storage"
	"github.com/codemap/repomap-mcp/internal/supervisor"
)

const (
	// ServerName is the MCP server name
	ServerName = "repomap-mcp"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
)

// Server wraps the MCP server with the index store and the indexer
// supervisor. All logging goes to stderr; stdout carries the protocol.
type Server struct {
	root   string
	cfg    *config.Config
	mcp    *server.MCPServer
	sup    *supervisor.Supervisor
	logger *log.Logger

	mu    sync.Mutex
	store *storage.Store
}

// NewServer creates a new MCP server instance for the repository at root.
func NewServer(root string, cfg *config.Config) (*Server, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("repository root %s is not a directory", abs)
	}

	s := &Server{
		root:   abs,
		cfg:    cfg,
		mcp:    server.NewMCPServer(ServerName, ServerVersion),
		sup:    supervisor.New(abs, cfg),
		logger: log.New(os.Stderr, "[server] ", log.LstdFlags),
	}
	s.registerTools()
	return s, nil
}

// registerTools registers all MCP tools
func (s *Server) registerTools() {
	s.mcp.AddTool(searchSymbolsTool(), s.handleSearchSymbols)
	s.mcp.AddTool(getFileSymbolsTool(), s.handleGetFileSymbols)
	s.mcp.AddTool(getSymbolContentTool(), s.handleGetSymbolContent)
	s.mcp.AddTool(listFilesTool(), s.handleListFiles)
	s.mcp.AddTool(searchTextTool(), s.handleSearchText)
	s.mcp.AddTool(statusTool(), s.handleStatus)
	s.mcp.AddTool(reindexTool(), s.handleReindex)
	s.mcp.AddTool(waitForIndexTool(), s.handleWaitForIndex)
}

// Serve starts the MCP server on stdio and blocks until shutdown. A stale
// or missing index triggers a background reindex immediately so early
// queries have something to wait for.
func (s *Server) Serve(ctx context.Context) error {
	if stale, reason := staleness.Check(s.root); stale {
		s.logger.Printf("index stale at startup: %s", reason)
		s.triggerReindex()
	}

	go s.backgroundLoop(ctx)

	defer func() {
		s.mu.Lock()
		if s.store != nil {
			_ = s.store.Close()
			s.store = nil
		}
		s.mu.Unlock()
	}()

	s.logger.Printf("MCP server ready, listening on stdio...")
	return server.ServeStdio(s.mcp)
}

// backgroundLoop periodically rechecks staleness and runs the watchdog.
func (s *Server) backgroundLoop(ctx context.Context) {
	staleTicker := time.NewTicker(s.cfg.StalenessInterval())
	defer staleTicker.Stop()
	watchdogTicker := time.NewTicker(s.cfg.WatchdogTick())
	defer watchdogTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-watchdogTicker.C:
			store, _ := s.getStore()
			s.sup.CheckWatchdog(ctx, store)
		case <-staleTicker.C:
			if s.sup.Running() {
				continue
			}
			if stale, reason := staleness.Check(s.root); stale {
				s.logger.Printf("index stale: %s", reason)
				s.triggerReindex()
			}
		}
	}
}

// triggerReindex starts a background index run if none is in flight.
func (s *Server) triggerReindex() bool {
	started, err := s.sup.Start()
	if err != nil {
		s.logger.Printf("reindex: %v", err)
		return false
	}
	return started
}

// getStore lazily opens the index database, caching the handle. Returns
// (nil, nil) when the database does not exist yet.
func (s *Server) getStore() (*storage.Store, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.store != nil {
		return s.store, nil
	}
	dbPath := config.DBPath(s.root)
	if _, err := os.Stat(dbPath); err != nil {
		return nil, nil
	}
	store, err := storage.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}
	s.store = store
	return store, nil
}
