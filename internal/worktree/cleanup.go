package worktree

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// Cleanup describes one worktree to remove: the worktree path and,
// when known, the canonical repository it belongs to. SourceRepoPath
// may be empty for directories discovered during orphan sweeps.
type Cleanup struct {
	// Path is the worktree directory to remove.
	Path string

	// SourceRepoPath is the canonical clone the worktree belongs to.
	// When set, removal goes through `git worktree remove` so the
	// repository's administrative records are updated too.
	SourceRepoPath string
}

// CleanupWorktree removes a single worktree. With a known source
// repository it runs `git worktree remove --force` followed by a prune
// of stale records; if git no longer knows the worktree (or no source
// repository is known) the directory is removed directly.
func (s *Service) CleanupWorktree(ctx context.Context, c Cleanup) error {
	if c.SourceRepoPath != "" {
		_, err := s.runGit(ctx, c.SourceRepoPath, "worktree", "remove", "--force", c.Path)
		if err == nil {
			return nil
		}
		s.logger.Debug("git worktree remove failed, falling back to direct removal",
			zap.String("worktree", c.Path),
			zap.String("repo", c.SourceRepoPath),
			zap.Error(err))
	}

	if err := os.RemoveAll(c.Path); err != nil {
		return err
	}

	// The directory is gone; drop the stale administrative record so
	// the branch can be checked out into a new worktree later.
	if c.SourceRepoPath != "" {
		if _, err := s.runGit(ctx, c.SourceRepoPath, "worktree", "prune"); err != nil {
			s.logger.Debug("worktree prune failed",
				zap.String("repo", c.SourceRepoPath), zap.Error(err))
		}
	}
	return nil
}

// BatchCleanupWorktrees removes a set of worktrees, one by one.
// Per-item failures are logged and do not abort the batch; the first
// failure is returned after every item has been attempted.
func (s *Service) BatchCleanupWorktrees(ctx context.Context, cleanups []Cleanup) error {
	var firstErr error
	for _, c := range cleanups {
		if err := s.CleanupWorktree(ctx, c); err != nil {
			s.logger.Warn("failed to clean up worktree",
				zap.String("worktree", c.Path), zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// CleanupSuspectedWorktree removes a directory that may or may not be a
// real worktree. If it is one, the owning repository is located through
// the .git file's gitdir pointer and the worktree is removed properly;
// anything else (including worktrees whose repository is gone) is
// removed directly.
func (s *Service) CleanupSuspectedWorktree(ctx context.Context, path string) error {
	if s.IsWorktree(path) {
		if repoPath, ok := s.resolveOwningRepo(path); ok {
			return s.CleanupWorktree(ctx, Cleanup{Path: path, SourceRepoPath: repoPath})
		}
		s.logger.Debug("worktree has no resolvable owning repository, removing directly",
			zap.String("path", path))
	}
	return os.RemoveAll(path)
}

// resolveOwningRepo derives the canonical repository path from a
// worktree's .git file, which contains a line of the form
//
//	gitdir: /path/to/repo/.git/worktrees/<name>
func (s *Service) resolveOwningRepo(worktreePath string) (string, bool) {
	content, err := os.ReadFile(filepath.Join(worktreePath, ".git"))
	if err != nil {
		return "", false
	}

	gitdir := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(string(content)), "gitdir:"))
	if gitdir == "" {
		return "", false
	}
	if !filepath.IsAbs(gitdir) {
		gitdir = filepath.Join(worktreePath, gitdir)
	}

	// gitdir points inside <repo>/.git/worktrees/<name>.
	marker := string(filepath.Separator) + ".git" + string(filepath.Separator) + "worktrees" + string(filepath.Separator)
	idx := strings.Index(gitdir, marker)
	if idx < 0 {
		return "", false
	}

	repoPath := gitdir[:idx]
	if info, err := os.Stat(repoPath); err != nil || !info.IsDir() {
		return "", false
	}
	return repoPath, true
}
