package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tidwall/jsonc"
)

// DisableSweepEnv is the kill switch for the orphan workspace sweep.
// Only its presence matters; the value is ignored.
const DisableSweepEnv = "DISABLE_WORKTREE_CLEANUP"

// Config holds the treeline settings. Zero values mean "use default".
type Config struct {
	// WorkspaceBaseDir is the directory under which workspace
	// directories are created. Defaults to DefaultWorkspaceBaseDir().
	WorkspaceBaseDir string `json:"workspaceBaseDir"`

	// DBPath is the registry SQLite file. Defaults to
	// <data dir>/treeline/workspaces.db.
	DBPath string `json:"dbPath"`

	// DisableOrphanSweep skips the orphan workspace sweep entirely.
	// Also forced on when DISABLE_WORKTREE_CLEANUP is set in the
	// environment.
	DisableOrphanSweep bool `json:"disableOrphanSweep"`

	// Log configures file logging.
	Log LogConfig `json:"log"`
}

// LogConfig holds the rotated-file logging settings.
type LogConfig struct {
	// File is the log file path. Defaults to <data dir>/treeline/treeline.log.
	File string `json:"file"`

	// Level is the minimum level: debug, info, warn, error. Defaults
	// to info.
	Level string `json:"level"`

	// MaxSizeMB is the rotation threshold. Defaults to 10.
	MaxSizeMB int `json:"maxSizeMB"`

	// MaxBackups is the number of rotated files kept. Defaults to 3.
	MaxBackups int `json:"maxBackups"`
}

// DefaultPath returns the default configuration file location,
// ~/.config/treeline/config.json (per os.UserConfigDir).
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(".", "treeline.json")
	}
	return filepath.Join(dir, "treeline", "config.json")
}

// DefaultWorkspaceBaseDir returns the built-in workspace base
// directory, <user cache dir>/treeline/workspaces, falling back to the
// system temp directory when no cache dir is resolvable.
func DefaultWorkspaceBaseDir() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "treeline", "workspaces")
}

func defaultDataDir() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "treeline")
}

// Load reads the configuration from path. An empty path means
// DefaultPath(); a missing file yields the defaults. The environment
// kill switch is applied after parsing.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath()
	}

	cfg := &Config{}

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// No config file: run on defaults.
	case err != nil:
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	default:
		if err := json.Unmarshal(jsonc.ToJSON(data), cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}

	cfg.applyDefaults()

	if _, present := os.LookupEnv(DisableSweepEnv); present {
		cfg.DisableOrphanSweep = true
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.WorkspaceBaseDir == "" {
		c.WorkspaceBaseDir = DefaultWorkspaceBaseDir()
	}
	if c.DBPath == "" {
		c.DBPath = filepath.Join(defaultDataDir(), "workspaces.db")
	}
	if c.Log.File == "" {
		c.Log.File = filepath.Join(defaultDataDir(), "treeline.log")
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.MaxSizeMB == 0 {
		c.Log.MaxSizeMB = 10
	}
	if c.Log.MaxBackups == 0 {
		c.Log.MaxBackups = 3
	}
}

// SweepBaseDirs returns the base directories the orphan sweep scans:
// the built-in default plus the configured base directory when it
// differs.
func (c *Config) SweepBaseDirs() []string {
	dirs := []string{DefaultWorkspaceBaseDir()}
	if c.WorkspaceBaseDir != dirs[0] {
		dirs = append(dirs, c.WorkspaceBaseDir)
	}
	return dirs
}
