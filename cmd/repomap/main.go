package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/codemap/repomap-mcp/internal/storage"
)

var (
	version   = "1.0.0"
	buildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "repomap",
	Short:         "Repository symbol index with an MCP query server",
	Long:          "repomap keeps a symbol map of a source tree in SQLite, built with tree-sitter, and serves it to coding agents over the Model Context Protocol.",
	SilenceErrors: true,
	SilenceUsage:  true,
}

var flagRoot string

func init() {
	rootCmd.PersistentFlags().StringVar(&flagRoot, "root", ".", "repository root to index and serve")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version and build information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("repomap %s\n", version)
		fmt.Printf("Build Time: %s\n", buildTime)
		fmt.Printf("Build Mode: %s\n", storage.BuildMode)
		fmt.Printf("SQLite Driver: %s\n", storage.DriverName)
	},
}
