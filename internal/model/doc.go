// Package model defines the domain types and value objects for the
// treeline workspace orchestrator.
//
// This package contains pure data structures with no dependencies
// beyond uuid. A workspace is one directory containing one checked-out
// git worktree per repository, all sharing a single branch name; the
// types here describe the inputs to workspace creation, the resulting
// worktree container, and per-repository merge results.
//
// The package also defines exit codes (ExitCode) and the closed set of
// workspace error kinds (WorkspaceError) that the CLI layer translates
// into OS process exit codes.
package model
