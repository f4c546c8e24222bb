// Package config loads the treeline configuration file.
//
// The file is JSONC (JSON with Comments): github.com/tidwall/jsonc
// strips comments and trailing commas before parsing with the standard
// encoding/json library. A missing file yields the defaults — treeline
// runs without any configuration at all.
//
// The DISABLE_WORKTREE_CLEANUP environment variable (presence checked,
// value ignored) is folded into DisableOrphanSweep at load time so the
// orphan sweep itself receives an explicit flag instead of reading the
// process environment.
package config
