// Package supervisor launches and polices the indexer subprocess.
//
// Indexing runs in a separate process so a pathological repository can be
// resource-limited and killed without taking the query server down with
// it. The supervisor enforces single-flight via an atomic lock and a
// watchdog that kills runs exceeding a wall-clock ceiling.
package supervisor

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/codemap/repomap-mcp/internal/config"
	"github.com/codemap/repomap-mcp/internal/storage"
	"github.com/codemap/repomap-mcp/pkg/types"
)

// Supervisor owns the lifecycle of at most one indexer subprocess.
type Supervisor struct {
	root   string
	cfg    *config.Config
	logger *log.Logger

	// command produces the subprocess to run. Overridable in tests.
	command func() (*exec.Cmd, error)

	lock    runLock
	mu      sync.Mutex
	cmd     *exec.Cmd
	started time.Time
}

// New builds a supervisor that reindexes root by re-invoking the current
// binary with the index subcommand.
func New(root string, cfg *config.Config) *Supervisor {
	s := &Supervisor{
		root:   root,
		cfg:    cfg,
		logger: log.New(os.Stderr, "[supervisor] ", log.LstdFlags),
	}
	s.command = func() (*exec.Cmd, error) {
		exe, err := os.Executable()
		if err != nil {
			return nil, fmt.Errorf("locate executable: %w", err)
		}
		cmd := exec.Command(exe, "index", "--root", root)
		cmd.Stdout = os.Stderr
		cmd.Stderr = os.Stderr
		return cmd, nil
	}
	return s
}

// SetCommand replaces the subprocess factory. Tests use it to substitute
// a stub for the real indexer invocation.
func (s *Supervisor) SetCommand(fn func() (*exec.Cmd, error)) {
	s.command = fn
}

// Start launches an indexer subprocess unless one is already running.
// The second return is false when a run was already in flight.
func (s *Supervisor) Start() (bool, error) {
	if !s.lock.TryAcquire() {
		return false, nil
	}

	cmd, err := s.command()
	if err != nil {
		s.lock.Release()
		return false, err
	}
	if err := cmd.Start(); err != nil {
		s.lock.Release()
		return false, fmt.Errorf("start indexer: %w", err)
	}

	s.mu.Lock()
	s.cmd = cmd
	s.started = time.Now()
	s.mu.Unlock()

	s.logger.Printf("indexer started (pid %d)", cmd.Process.Pid)
	go s.reap(cmd)
	return true, nil
}

// reap waits for the subprocess and releases the run lock when it exits.
func (s *Supervisor) reap(cmd *exec.Cmd) {
	err := cmd.Wait()
	if err != nil {
		s.logger.Printf("indexer exited: %v", err)
	} else {
		s.logger.Printf("indexer finished")
	}

	s.mu.Lock()
	if s.cmd == cmd {
		s.cmd = nil
	}
	s.mu.Unlock()
	s.lock.Release()
}

// Running reports whether an indexer subprocess is currently in flight.
func (s *Supervisor) Running() bool {
	return s.lock.Held()
}

// Elapsed returns how long the current run has been going, zero when idle.
func (s *Supervisor) Elapsed() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cmd == nil {
		return 0
	}
	return time.Since(s.started)
}

// CheckWatchdog kills a run that has exceeded the wall-clock ceiling and
// records the failure so queries surface it instead of waiting forever.
func (s *Supervisor) CheckWatchdog(ctx context.Context, store *storage.Store) {
	s.mu.Lock()
	cmd := s.cmd
	elapsed := time.Since(s.started)
	s.mu.Unlock()

	if cmd == nil {
		s.checkOrphan(ctx, store)
		return
	}
	if elapsed < s.cfg.WatchdogCeiling() {
		return
	}

	s.logger.Printf("watchdog: killing indexer after %s", elapsed.Round(time.Second))
	if cmd.Process != nil {
		_ = cmd.Process.Kill()
	}
	if store != nil {
		reason := fmt.Sprintf("watchdog killed hung indexer after %ds", int(elapsed.Seconds()))
		if err := store.MarkFailed(ctx, reason); err != nil {
			s.logger.Printf("watchdog: record failure: %v", err)
		}
	}
}

// checkOrphan clears an "indexing" status left behind by an indexer that
// died without cleanup, once its recorded start time exceeds the ceiling.
func (s *Supervisor) checkOrphan(ctx context.Context, store *storage.Store) {
	if store == nil {
		return
	}
	status, err := store.GetMeta(ctx, types.MetaStatus)
	if err != nil || status != string(types.StatusIndexing) {
		return
	}
	startStr, err := store.GetMeta(ctx, types.MetaIndexStartTime)
	if err != nil {
		return
	}
	started, err := time.Parse(time.RFC3339, startStr)
	if err != nil {
		return
	}
	if elapsed := time.Since(started); elapsed >= s.cfg.WatchdogCeiling() {
		s.logger.Printf("watchdog: clearing orphaned indexing state after %s", elapsed.Round(time.Second))
		reason := fmt.Sprintf("watchdog killed hung indexer after %ds", int(elapsed.Seconds()))
		if err := store.MarkFailed(ctx, reason); err != nil {
			s.logger.Printf("watchdog: record failure: %v", err)
		}
	}
}

// Healthy reports whether stored indexing state is consistent with an
// actual run. A database claiming "indexing" with no live subprocess means
// a previous indexer died without cleanup.
func (s *Supervisor) Healthy(ctx context.Context, store *storage.Store) bool {
	status, err := store.GetMeta(ctx, types.MetaStatus)
	if err != nil || status != string(types.StatusIndexing) {
		return true
	}
	return s.Running()
}
