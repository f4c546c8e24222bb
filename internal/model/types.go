package model

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Repo identifies a single version-controlled project registered with
// the orchestrator. Only canonical (non-worktree) clones are referenced
// here; worktrees derived from a Repo live inside workspace directories.
type Repo struct {
	// ID is the stable identifier the registry uses for this repository.
	ID uuid.UUID `json:"id" yaml:"id"`

	// Name is the display name, also used as the worktree subdirectory
	// name inside a workspace. Must be unique within a workspace's repo
	// set and must be a valid single path element (see ValidateRepoName).
	Name string `json:"name" yaml:"name"`

	// Path is the absolute filesystem path to the canonical clone.
	Path string `json:"path" yaml:"path"`
}

// ValidateRepoName checks that a repository name can be used as a
// worktree subdirectory name. Names must be a single path element:
// non-empty, no separators, and not "." or "..".
func ValidateRepoName(name string) error {
	if name == "" {
		return fmt.Errorf("repository name must not be empty")
	}
	if name == "." || name == ".." {
		return fmt.Errorf("invalid repository name %q", name)
	}
	if strings.ContainsAny(name, `/\`) || name != filepath.Base(name) {
		return fmt.Errorf("invalid repository name %q: must not contain path separators", name)
	}
	return nil
}

// CreateInput describes one repository's participation in a new
// workspace.
type CreateInput struct {
	Repo Repo `json:"repo" yaml:"repo"`

	// TargetBranch is the branch the workspace branch is created from
	// and eventually merged back into.
	TargetBranch string `json:"targetBranch" yaml:"targetBranch"`

	// StartFromRef optionally overrides TargetBranch's tip as the
	// starting point of the worktree (a commit, tag, or branch).
	StartFromRef string `json:"startFromRef,omitempty" yaml:"startFromRef,omitempty"`
}

// MergeInput pairs a repository with the branch its workspace branch
// merges into when a workspace closes with the merge strategy.
type MergeInput struct {
	Repo         Repo   `json:"repo"`
	TargetBranch string `json:"targetBranch"`
}

// RepoWorktree records a created worktree for one repository inside a
// workspace. WorktreePath is always the workspace directory joined with
// the repository name.
type RepoWorktree struct {
	RepoID         uuid.UUID `json:"repoId"`
	RepoName       string    `json:"repoName"`
	SourceRepoPath string    `json:"sourceRepoPath"`
	WorktreePath   string    `json:"worktreePath"`
}

// WorktreeContainer is the aggregate result of successfully creating a
// workspace: the workspace directory plus one RepoWorktree per input
// repository, in input order. The caller owns its eventual cleanup.
type WorktreeContainer struct {
	WorkspaceDir string         `json:"workspaceDir"`
	Worktrees    []RepoWorktree `json:"worktrees"`
}

// RepoMergeResult is the outcome of merging one repository's workspace
// branch into its target branch. Produced only on merge success for
// that repository.
type RepoMergeResult struct {
	RepoID       uuid.UUID `json:"repoId"`
	RepoName     string    `json:"repoName"`
	MergeCommit  string    `json:"mergeCommit"`
	TargetBranch string    `json:"targetBranch"`
}

// ExitCode defines the process exit codes the CLI maps errors onto.
// Scripts and CI systems use these to determine the outcome of a
// command without parsing error text.
type ExitCode int

const (
	// ExitSuccess indicates the command completed successfully.
	ExitSuccess ExitCode = 0

	// ExitGeneralError indicates an unspecified error occurred.
	ExitGeneralError ExitCode = 1

	// ExitConfigError indicates the configuration or manifest could not
	// be loaded or validated.
	ExitConfigError ExitCode = 2

	// ExitGitError indicates an underlying git operation failed.
	ExitGitError ExitCode = 3

	// ExitMergeConflicts indicates a workspace close stopped on merge
	// conflicts in one of its repositories.
	ExitMergeConflicts ExitCode = 4

	// ExitPartialCreation indicates workspace creation failed partway
	// and was rolled back.
	ExitPartialCreation ExitCode = 5

	// ExitNotFound indicates the referenced workspace does not exist in
	// the registry.
	ExitNotFound ExitCode = 6
)
