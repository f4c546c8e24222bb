package worktree

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"go.uber.org/zap"
)

// ConflictError reports that a merge could not be completed because of
// content or tree conflicts. Files lists the conflicted paths as
// reported by git merge-tree.
type ConflictError struct {
	Files []string
}

// Error satisfies the error interface.
func (e *ConflictError) Error() string {
	if len(e.Files) == 0 {
		return "merge conflicts"
	}
	return fmt.Sprintf("merge conflicts in: %s", strings.Join(e.Files, ", "))
}

// Description returns the human-readable conflict summary surfaced to
// workspace callers.
func (e *ConflictError) Description() string {
	return e.Error()
}

// MergeIntoBranch merges sourceBranch into targetBranch inside the
// canonical repository at repoPath and returns the merge commit id.
// The merge never touches any checked-out tree: the merged tree is
// computed with `merge-tree --write-tree`, committed with two parents
// via commit-tree, and the target ref is advanced with a
// compare-and-swap update-ref against the tip read at the start. This
// allows the workspace worktree to be discarded immediately afterward.
//
// Conflicts return a *ConflictError naming the conflicted paths; the
// target branch is left unchanged.
func (s *Service) MergeIntoBranch(ctx context.Context, repoPath, targetBranch, sourceBranch, message string) (string, error) {
	targetSha, err := s.resolveBranch(ctx, repoPath, targetBranch)
	if err != nil {
		return "", err
	}
	sourceSha, err := s.resolveBranch(ctx, repoPath, sourceBranch)
	if err != nil {
		return "", err
	}

	tree, conflicts, err := s.mergeTree(ctx, repoPath, targetSha, sourceSha)
	if err != nil {
		return "", err
	}
	if len(conflicts) > 0 {
		return "", &ConflictError{Files: conflicts}
	}

	out, err := s.runGit(ctx, repoPath,
		"commit-tree", tree, "-p", targetSha, "-p", sourceSha, "-m", message)
	if err != nil {
		return "", err
	}
	mergeCommit := strings.TrimSpace(out)

	// Advance the target ref only if nothing else moved it since we
	// read its tip; a concurrent commit makes update-ref fail instead
	// of silently discarding it.
	if _, err := s.runGit(ctx, repoPath,
		"update-ref", "refs/heads/"+targetBranch, mergeCommit, targetSha); err != nil {
		return "", err
	}

	s.logger.Debug("merged branch",
		zap.String("repo", repoPath),
		zap.String("target", targetBranch),
		zap.String("source", sourceBranch),
		zap.String("commit", mergeCommit))

	return mergeCommit, nil
}

// resolveBranch resolves a local branch name to its commit id.
func (s *Service) resolveBranch(ctx context.Context, repoPath, branch string) (string, error) {
	out, err := s.runGit(ctx, repoPath, "rev-parse", "--verify", "refs/heads/"+branch)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// mergeTree runs `git merge-tree --write-tree` for two commits and
// returns the resulting tree id, or the list of conflicted paths when
// the merge is not clean.
//
// merge-tree exits 0 on a clean merge and 1 on conflicts, writing the
// tree id on the first output line either way; conflicted file names
// follow on subsequent lines up to a blank line. Exit codes above 1 are
// real failures. runGit cannot be used here because it folds the
// conflict exit code into a generic error and drops stdout.
func (s *Service) mergeTree(ctx context.Context, repoPath, targetSha, sourceSha string) (tree string, conflicts []string, err error) {
	args := []string{"-C", repoPath, "merge-tree", "--write-tree", "--name-only", targetSha, sourceSha}
	cmd := exec.CommandContext(ctx, "git", args...)

	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	lines := strings.Split(strings.TrimRight(stdout.String(), "\n"), "\n")

	if runErr != nil {
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) && exitErr.ExitCode() == 1 && len(lines) > 0 && lines[0] != "" {
			// Conflicted merge: collect file names until the blank line
			// separating them from the informational messages.
			for _, line := range lines[1:] {
				if line == "" {
					break
				}
				conflicts = append(conflicts, line)
			}
			if len(conflicts) == 0 {
				conflicts = []string{"(unknown paths)"}
			}
			return "", conflicts, nil
		}
		return "", nil, &GitError{
			Op:     "merge-tree --write-tree",
			Stderr: strings.TrimSpace(stderr.String()),
			Err:    runErr,
		}
	}

	if len(lines) == 0 || lines[0] == "" {
		return "", nil, &GitError{Op: "merge-tree --write-tree", Stderr: "empty output"}
	}
	return lines[0], nil, nil
}
