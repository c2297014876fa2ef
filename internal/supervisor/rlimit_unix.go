//go:build linux || darwin

package supervisor

import (
	"fmt"
	"syscall"

	"github.com/codemap/repomap-mcp/internal/config"
)

// ApplyResourceLimits caps the current process's address space and CPU
// time. The indexer calls this at startup so a degenerate repository hits
// a hard kernel limit instead of starving the host. Limits of zero or
// below are treated as disabled.
func ApplyResourceLimits(cfg *config.Config) error {
	if cfg.MemoryLimitMB > 0 {
		limit := uint64(cfg.MemoryLimitMB) * 1024 * 1024
		rl := syscall.Rlimit{Cur: limit, Max: limit}
		if err := syscall.Setrlimit(syscall.RLIMIT_AS, &rl); err != nil {
			return fmt.Errorf("set memory limit: %w", err)
		}
	}
	if cfg.CPUTimeLimitSeconds > 0 {
		limit := uint64(cfg.CPUTimeLimitSeconds)
		rl := syscall.Rlimit{Cur: limit, Max: limit}
		if err := syscall.Setrlimit(syscall.RLIMIT_CPU, &rl); err != nil {
			return fmt.Errorf("set cpu limit: %w", err)
		}
	}
	return nil
}
