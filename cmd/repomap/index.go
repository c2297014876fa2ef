package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/codemap/repomap-mcp/internal/config"
	"github.com/codemap/repomap-mcp/internal/pipeline"
	"github.com/codemap/repomap-mcp/internal/supervisor"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Run one index pass over the repository and exit",
	Long:  "Discovers source files, extracts symbols with tree-sitter, and replaces the SQLite index atomically. The serve command spawns this as a subprocess so runaway repositories can be resource-limited and killed cleanly.",
	RunE:  runIndexCmd,
}

func runIndexCmd(cmd *cobra.Command, args []string) error {
	log.SetOutput(os.Stderr)

	cfg, err := config.Load(flagRoot)
	if err != nil {
		return err
	}

	// Cap our own memory and CPU before touching the repository.
	if err := supervisor.ApplyResourceLimits(cfg); err != nil {
		log.Printf("resource limits: %v", err)
	}

	stats, err := pipeline.New(flagRoot, cfg).Run(context.Background())
	if err != nil {
		return err
	}

	fmt.Printf("Indexed %d symbols from %d files in %s (%d parsed, %d cached)\n",
		stats.SymbolsFound, stats.FilesTotal, stats.Duration.Round(10*time.Millisecond),
		stats.FilesParsed, stats.FilesCached)
	for lang, n := range stats.Languages {
		fmt.Printf("  %s: %d files\n", lang, n)
	}
	if stats.SimilarClasses > 0 || stats.SimilarFunctions > 0 {
		fmt.Printf("Found %d similar class pairs and %d similar function pairs\n",
			stats.SimilarClasses, stats.SimilarFunctions)
	}
	return nil
}
