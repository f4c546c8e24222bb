// Package main is the entry point for the treeline CLI.
//
// treeline orchestrates multi-repository workspaces backed by git
// worktrees. All functionality lives in internal/cli, which defines the
// cobra commands; main only injects build-time version information.
package main

import (
	"github.com/mmr-tortoise/treeline/internal/cli"
)

// version, commit, and date are set at build time via ldflags. During
// development they default to "dev", "none", and "unknown".
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	cli.Version = version
	cli.Commit = commit
	cli.Date = date

	rootCmd := cli.NewRootCommand()
	cli.Execute(rootCmd)
}
