package worktree

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// Service provides git worktree and branch primitives by invoking the
// git CLI. All methods take the repository path explicitly; the Service
// itself holds no per-repository state, only the injected logger.
//
// Every method is safe to call concurrently for different repositories.
// Concurrent calls against the same repository rely on git's own
// index/ref locking.
type Service struct {
	logger *zap.Logger
}

// NewService creates a worktree Service. A nil logger is replaced with
// a no-op logger.
func NewService(logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{logger: logger}
}

// GitError describes a failed git invocation. It carries the
// subcommand and git's stderr so callers can surface actionable
// messages without re-running the command.
type GitError struct {
	// Op is the git subcommand line that failed (without the -C prefix).
	Op string

	// Stderr is git's trimmed stderr output.
	Stderr string

	// Err is the underlying exec error.
	Err error
}

// Error satisfies the error interface.
func (e *GitError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("git %s failed: %s", e.Op, e.Stderr)
	}
	return fmt.Sprintf("git %s failed: %v", e.Op, e.Err)
}

// Unwrap returns the underlying exec error.
func (e *GitError) Unwrap() error {
	return e.Err
}

// CreateWorktree creates a worktree at path checked out on a newly
// created branch. The branch starts from startRef when non-empty,
// otherwise from baseBranch, otherwise from HEAD. If branch already
// exists it is checked out into the worktree as-is.
//
// When track is true and the branch was newly created from baseBranch,
// the branch's upstream is pointed at baseBranch. Upstream failures are
// logged and ignored; tracking is a convenience, not part of the
// creation contract.
func (s *Service) CreateWorktree(ctx context.Context, repoPath, branch, path, baseBranch string, track bool, startRef string) error {
	if s.BranchExists(ctx, repoPath, branch) {
		// Branch already exists: -b would fail, check it out directly.
		_, err := s.runGit(ctx, repoPath, "worktree", "add", path, branch)
		return err
	}

	start := startRef
	if start == "" {
		start = baseBranch
	}

	args := []string{"worktree", "add", "-b", branch, path}
	if start != "" {
		args = append(args, start)
	}
	if _, err := s.runGit(ctx, repoPath, args...); err != nil {
		return err
	}

	if track && baseBranch != "" {
		if _, err := s.runGit(ctx, repoPath, "branch", "--set-upstream-to="+baseBranch, branch); err != nil {
			s.logger.Debug("could not set upstream for workspace branch",
				zap.String("repo", repoPath),
				zap.String("branch", branch),
				zap.String("base", baseBranch),
				zap.Error(err))
		}
	}
	return nil
}

// EnsureWorktree makes sure a worktree for branch exists at path. It is
// a no-op when path is already a worktree. Otherwise stale worktree
// records for the repository are pruned and the worktree is added,
// creating the branch from HEAD if it does not exist yet.
func (s *Service) EnsureWorktree(ctx context.Context, repoPath, branch, path string) error {
	if s.IsWorktree(path) {
		return nil
	}

	// The directory may have been removed out from under git; prune the
	// stale administrative record so the add below does not collide.
	if _, err := s.runGit(ctx, repoPath, "worktree", "prune"); err != nil {
		s.logger.Debug("worktree prune failed", zap.String("repo", repoPath), zap.Error(err))
	}

	if s.BranchExists(ctx, repoPath, branch) {
		_, err := s.runGit(ctx, repoPath, "worktree", "add", path, branch)
		return err
	}
	_, err := s.runGit(ctx, repoPath, "worktree", "add", "-b", branch, path)
	return err
}

// MoveWorktree relocates a worktree from oldPath to newPath via
// `git worktree move`, which rewrites the worktree's administrative
// records. A bare filesystem rename would leave the repository pointing
// at the old location.
func (s *Service) MoveWorktree(ctx context.Context, repoPath, oldPath, newPath string) error {
	_, err := s.runGit(ctx, repoPath, "worktree", "move", oldPath, newPath)
	return err
}

// DeleteBranch force-deletes a branch from the canonical repository.
func (s *Service) DeleteBranch(ctx context.Context, repoPath, branch string) error {
	_, err := s.runGit(ctx, repoPath, "branch", "-D", branch)
	return err
}

// BaseCommit returns the merge base of two refs.
func (s *Service) BaseCommit(ctx context.Context, repoPath, refA, refB string) (string, error) {
	out, err := s.runGit(ctx, repoPath, "merge-base", refA, refB)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// BranchExists reports whether branch resolves to a ref in the
// repository. Only the exit code of rev-parse matters here.
func (s *Service) BranchExists(ctx context.Context, repoPath, branch string) bool {
	_, err := s.runGit(ctx, repoPath, "rev-parse", "--verify", "--quiet", branch)
	return err == nil
}

// IsWorktree reports whether path is a git worktree, as opposed to a
// canonical clone or an unrelated directory. Worktrees carry a .git
// FILE containing a "gitdir:" pointer into the main repository's
// .git/worktrees area; canonical clones have a .git directory.
func (s *Service) IsWorktree(path string) bool {
	gitPath := filepath.Join(path, ".git")

	info, err := os.Lstat(gitPath)
	if err != nil || info.IsDir() {
		return false
	}

	content, err := os.ReadFile(gitPath)
	if err != nil {
		return false
	}
	return strings.HasPrefix(string(content), "gitdir:")
}

// runGit executes a git command with the given arguments against the
// repository at repoPath. The path is passed via `git -C` so the
// process working directory never changes, which matters when many
// workspace operations run concurrently.
//
// On success it returns stdout. On failure it returns a *GitError with
// git's stderr attached.
func (s *Service) runGit(ctx context.Context, repoPath string, args ...string) (string, error) {
	fullArgs := append([]string{"-C", repoPath}, args...)

	cmd := exec.CommandContext(ctx, "git", fullArgs...)

	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", &GitError{
			Op:     strings.Join(args, " "),
			Stderr: strings.TrimSpace(stderr.String()),
			Err:    err,
		}
	}
	return stdout.String(), nil
}
