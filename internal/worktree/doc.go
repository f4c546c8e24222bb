// Package worktree implements the single-repository version-control
// primitives the workspace orchestrator is built on: creating, moving
// and removing one git worktree, deleting a branch, computing a merge
// base, and merging one branch into another inside the canonical
// repository without touching its checked-out tree.
//
// All git operations are performed via os/exec calls to the git binary
// rather than a Git library. Worktree administration (the
// .git/worktrees records, prune/move semantics) and merge-tree are only
// fully available through the CLI, and shelling out keeps behavior
// identical to what a user sees in their terminal. Requires git >= 2.38
// (merge-tree --write-tree).
package worktree
