// Package config loads runtime configuration for the indexer and query
// server from an optional TOML file under the project's data directory.
// Missing files and missing keys fall back to defaults.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// DataDirName is the per-project directory holding all index artifacts.
const DataDirName = ".repomap"

// EnvDataDir overrides the data directory location when set.
const EnvDataDir = "REPOMAP_DATA_DIR"

// Config holds all tunables. The similarity thresholds and watchdog ceiling
// are heuristics; the defaults are conservative and not worth over-tuning.
type Config struct {
	// Worker pool sizing for parallel extraction.
	WorkersPercent int `toml:"workers_percent"` // percent of CPU cores, default 50
	MaxWorkers     int `toml:"max_workers"`     // hard cap, default 8

	// Similarity detection.
	NameThreshold float64 `toml:"name_similarity_threshold"` // default 0.75
	DocThreshold  float64 `toml:"doc_similarity_threshold"`  // default 0.65

	// Supervision.
	WatchdogCeilingSeconds   int `toml:"watchdog_ceiling_seconds"`   // default 600
	WatchdogTickSeconds      int `toml:"watchdog_tick_seconds"`      // default 60
	StalenessIntervalSeconds int `toml:"staleness_interval_seconds"` // default 60
	QueryWaitSeconds         int `toml:"query_wait_seconds"`         // default 15

	// Resource ceilings applied by the index subprocess to itself.
	MemoryLimitMB       int `toml:"memory_limit_mb"`        // default 4096
	CPUTimeLimitSeconds int `toml:"cpu_time_limit_seconds"` // default 1200
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		WorkersPercent:           50,
		MaxWorkers:               8,
		NameThreshold:            0.75,
		DocThreshold:             0.65,
		WatchdogCeilingSeconds:   600,
		WatchdogTickSeconds:      60,
		StalenessIntervalSeconds: 60,
		QueryWaitSeconds:         15,
		MemoryLimitMB:            4096,
		CPUTimeLimitSeconds:      1200,
	}
}

// Load reads the project's config.toml, overlaying it on the defaults.
// A missing file is not an error.
func Load(root string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(filepath.Join(DataDir(root), "config.toml"))
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, cfg.validate()
}

func (c *Config) validate() error {
	if c.WorkersPercent < 1 || c.WorkersPercent > 100 {
		return errors.New("workers_percent must be between 1 and 100")
	}
	if c.MaxWorkers < 1 {
		return errors.New("max_workers must be >= 1")
	}
	if c.NameThreshold < 0 || c.NameThreshold > 1 || c.DocThreshold < 0 || c.DocThreshold > 1 {
		return errors.New("similarity thresholds must be between 0 and 1")
	}
	if c.WatchdogCeilingSeconds < 1 {
		return errors.New("watchdog_ceiling_seconds must be >= 1")
	}
	return nil
}

// WatchdogCeiling returns the hard wall-clock limit for one indexing run.
func (c *Config) WatchdogCeiling() time.Duration {
	return time.Duration(c.WatchdogCeilingSeconds) * time.Second
}

// WatchdogTick returns the interval between watchdog checks.
func (c *Config) WatchdogTick() time.Duration {
	return time.Duration(c.WatchdogTickSeconds) * time.Second
}

// StalenessInterval returns the interval between background staleness checks.
func (c *Config) StalenessInterval() time.Duration {
	return time.Duration(c.StalenessIntervalSeconds) * time.Second
}

// QueryWait returns how long a query waits for an in-flight indexing run
// before answering with a progress snapshot.
func (c *Config) QueryWait() time.Duration {
	return time.Duration(c.QueryWaitSeconds) * time.Second
}

// DataDir returns the artifact directory for a project root.
func DataDir(root string) string {
	if dir := os.Getenv(EnvDataDir); dir != "" {
		return dir
	}
	return filepath.Join(root, DataDirName)
}

// DBPath returns the symbol store location for a project root.
func DBPath(root string) string {
	return filepath.Join(DataDir(root), "repo-map.db")
}

// CachePath returns the file cache location for a project root.
func CachePath(root string) string {
	return filepath.Join(DataDir(root), "repo-map-cache.json")
}

// ProgressPath returns the progress snapshot location for a project root.
func ProgressPath(root string) string {
	return filepath.Join(DataDir(root), "repo-map-progress.json")
}

// ReportPath returns the markdown repo map location for a project root.
func ReportPath(root string) string {
	return filepath.Join(DataDir(root), "repo-map.md")
}
