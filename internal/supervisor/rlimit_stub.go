//go:build !linux && !darwin

package supervisor

import "github.com/codemap/repomap-mcp/internal/config"

// ApplyResourceLimits is a no-op on platforms without setrlimit.
func ApplyResourceLimits(cfg *config.Config) error {
	return nil
}
