package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/codemap/repomap-mcp/internal/config"
	"github.com/codemap/repomap-mcp/internal/server"
	"github.com/codemap/repomap-mcp/internal/storage"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the MCP query server on stdio",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	// Log to stderr; stdout is reserved for the MCP protocol.
	log.SetOutput(os.Stderr)
	log.Printf("repomap v%s starting (mode %s, driver %s)", version, storage.BuildMode, storage.DriverName)

	cfg, err := config.Load(flagRoot)
	if err != nil {
		return err
	}

	srv, err := server.NewServer(flagRoot, cfg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Serve(ctx)
	}()

	select {
	case sig := <-sigChan:
		log.Printf("Received signal %v, shutting down gracefully...", sig)
		cancel()
		return nil
	case err := <-errChan:
		return err
	}
}
