package workspace

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/mmr-tortoise/treeline/internal/model"
	"github.com/mmr-tortoise/treeline/internal/worktree"
)

// GitService is the version-control primitive surface the orchestrator
// drives, one call per repository. *worktree.Service satisfies it; the
// orchestration tests substitute a recording fake.
type GitService interface {
	CreateWorktree(ctx context.Context, repoPath, branch, path, baseBranch string, track bool, startRef string) error
	EnsureWorktree(ctx context.Context, repoPath, branch, path string) error
	MoveWorktree(ctx context.Context, repoPath, oldPath, newPath string) error
	CleanupWorktree(ctx context.Context, c worktree.Cleanup) error
	BatchCleanupWorktrees(ctx context.Context, cleanups []worktree.Cleanup) error
	CleanupSuspectedWorktree(ctx context.Context, path string) error
	DeleteBranch(ctx context.Context, repoPath, branch string) error
	MergeIntoBranch(ctx context.Context, repoPath, targetBranch, sourceBranch, message string) (string, error)
}

// Manager orchestrates workspace lifecycle operations across all
// repositories belonging to one workspace. It owns the directories and
// worktrees it creates until cleanup or hand-off of the resulting
// WorktreeContainer to the caller; repository records themselves are
// read-only references supplied per call.
type Manager struct {
	git    GitService
	logger *zap.Logger
}

// NewManager creates a workspace Manager on top of the given primitive
// service. A nil logger is replaced with a no-op logger.
func NewManager(git GitService, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{git: git, logger: logger}
}

// Create builds a workspace at workspaceDir with one worktree per
// input repository, each checked out on branch under
// workspaceDir/<repo name>. Repositories are processed sequentially in
// input order. If any repository fails, every worktree created so far
// in this call is rolled back (best-effort, failures logged), the
// workspace directory is removed if empty, and the call fails with a
// PartialCreation error naming the failing repository.
//
// An empty input list fails with NoRepositories before touching the
// filesystem.
func (m *Manager) Create(ctx context.Context, workspaceDir string, inputs []model.CreateInput, branch string) (*model.WorktreeContainer, error) {
	if len(inputs) == 0 {
		return nil, model.NewNoRepositories()
	}

	m.logger.Info("creating workspace",
		zap.String("dir", workspaceDir),
		zap.String("branch", branch),
		zap.Int("repos", len(inputs)))

	if err := os.MkdirAll(workspaceDir, 0o755); err != nil {
		return nil, model.NewIOError("creating workspace directory", err)
	}

	var created []model.RepoWorktree
	for _, input := range inputs {
		worktreePath := filepath.Join(workspaceDir, input.Repo.Name)

		m.logger.Debug("creating worktree",
			zap.String("repo", input.Repo.Name),
			zap.String("path", worktreePath))

		err := m.git.CreateWorktree(ctx, input.Repo.Path, branch, worktreePath,
			input.TargetBranch, true, input.StartFromRef)
		if err != nil {
			m.logger.Error("worktree creation failed, rolling back",
				zap.String("repo", input.Repo.Name),
				zap.Error(err))

			m.rollbackWorktrees(ctx, created)

			// Only an empty directory is removed here: a non-empty one
			// still holds worktrees whose rollback failed, and deleting
			// those bypasses git's administrative records.
			if rmErr := os.Remove(workspaceDir); rmErr != nil {
				m.logger.Debug("could not remove workspace dir during rollback",
					zap.String("dir", workspaceDir), zap.Error(rmErr))
			}

			return nil, model.NewPartialCreation(input.Repo.Name,
				fmt.Errorf("creating worktree: %w", err))
		}

		created = append(created, model.RepoWorktree{
			RepoID:         input.Repo.ID,
			RepoName:       input.Repo.Name,
			SourceRepoPath: input.Repo.Path,
			WorktreePath:   worktreePath,
		})
	}

	m.logger.Info("workspace created",
		zap.String("dir", workspaceDir),
		zap.Int("worktrees", len(created)))

	return &model.WorktreeContainer{
		WorkspaceDir: workspaceDir,
		Worktrees:    created,
	}, nil
}

// Ensure makes the on-disk state of a known workspace consistent with
// "one worktree per repository, on branch", erroring only on real
// failures — everything already existing is a no-op. It supports
// recovering workspace state after the orchestrating process restarts
// mid-session.
//
// Single-repository workspaces first go through legacy layout
// migration; if the migration performed work, the workspace is already
// in its final shape.
func (m *Manager) Ensure(ctx context.Context, workspaceDir string, repos []model.Repo, branch string) error {
	if len(repos) == 0 {
		return model.NewNoRepositories()
	}

	if len(repos) == 1 {
		migrated, err := m.MigrateLegacy(ctx, workspaceDir, repos[0])
		if err != nil {
			return err
		}
		if migrated {
			return nil
		}
	}

	if _, err := os.Stat(workspaceDir); os.IsNotExist(err) {
		if err := os.MkdirAll(workspaceDir, 0o755); err != nil {
			return model.NewIOError("creating workspace directory", err)
		}
	}

	for _, repo := range repos {
		worktreePath := filepath.Join(workspaceDir, repo.Name)

		m.logger.Debug("ensuring worktree exists",
			zap.String("repo", repo.Name),
			zap.String("path", worktreePath))

		if err := m.git.EnsureWorktree(ctx, repo.Path, branch, worktreePath); err != nil {
			return model.NewGitError(
				fmt.Sprintf("ensuring worktree for repo %q", repo.Name), err)
		}
	}
	return nil
}

// MigrateLegacy upgrades the legacy single-repository layout, where the
// workspace directory itself was the worktree, to the nested layout
// workspaceDir/<repo name>. It reports whether a migration was
// performed.
//
// Detection requires all of: the workspace directory exists, a .git
// plain file (the worktree marker — canonical clones have a .git
// directory) sits directly inside it, and the nested worktree path does
// not exist yet. Anything else is "no migration needed".
//
// A worktree cannot be moved into a subdirectory of itself, so the move
// is two-phase: relocate to a sibling "<name>-migrating" directory,
// recreate the workspace directory, then move into the nested path.
// Both moves go through git so the worktree administrative records
// follow. A failure partway is not rolled back; re-running Ensure picks
// the migration back up from the temp directory's state.
func (m *Manager) MigrateLegacy(ctx context.Context, workspaceDir string, repo model.Repo) (bool, error) {
	nestedPath := filepath.Join(workspaceDir, repo.Name)
	gitFile := filepath.Join(workspaceDir, ".git")

	gitInfo, err := os.Lstat(gitFile)
	isLegacy := err == nil && !gitInfo.IsDir() && !pathExists(nestedPath)
	if !isLegacy {
		return false, nil
	}

	m.logger.Info("migrating legacy worktree layout",
		zap.String("dir", workspaceDir),
		zap.String("repo", repo.Name))

	tempPath := workspaceDir + "-migrating"

	if err := m.git.MoveWorktree(ctx, repo.Path, workspaceDir, tempPath); err != nil {
		return false, model.NewGitError("moving legacy worktree to temporary location", err)
	}

	if err := os.MkdirAll(workspaceDir, 0o755); err != nil {
		return false, model.NewIOError("recreating workspace directory", err)
	}

	if err := m.git.MoveWorktree(ctx, repo.Path, tempPath, nestedPath); err != nil {
		return false, model.NewGitError("moving worktree into nested layout", err)
	}

	if pathExists(tempPath) {
		if err := os.RemoveAll(tempPath); err != nil {
			m.logger.Debug("could not remove migration temp directory",
				zap.String("dir", tempPath), zap.Error(err))
		}
	}

	m.logger.Info("legacy worktree migrated", zap.String("worktree", nestedPath))
	return true, nil
}

// Cleanup removes every repository's worktree under workspaceDir, then
// the workspace directory itself. Per-repository removal is delegated
// as a batch to the primitive service; directory removal failure is
// logged, not propagated, since cleanup commonly runs on shutdown and
// error paths where a secondary failure would mask the primary one.
func (m *Manager) Cleanup(ctx context.Context, workspaceDir string, repos []model.Repo) error {
	m.logger.Info("cleaning up workspace", zap.String("dir", workspaceDir))

	cleanups := make([]worktree.Cleanup, 0, len(repos))
	for _, repo := range repos {
		cleanups = append(cleanups, worktree.Cleanup{
			Path:           filepath.Join(workspaceDir, repo.Name),
			SourceRepoPath: repo.Path,
		})
	}

	if err := m.git.BatchCleanupWorktrees(ctx, cleanups); err != nil {
		m.logger.Warn("some worktrees could not be cleaned up",
			zap.String("dir", workspaceDir), zap.Error(err))
	}

	if pathExists(workspaceDir) {
		if err := os.RemoveAll(workspaceDir); err != nil {
			m.logger.Debug("could not remove workspace directory",
				zap.String("dir", workspaceDir), zap.Error(err))
		}
	}
	return nil
}

// rollbackWorktrees removes the worktrees created so far in a failed
// Create call, in creation order. Each failure is logged and skipped so
// one bad rollback does not block the rest.
func (m *Manager) rollbackWorktrees(ctx context.Context, created []model.RepoWorktree) {
	for _, wt := range created {
		c := worktree.Cleanup{Path: wt.WorktreePath, SourceRepoPath: wt.SourceRepoPath}
		if err := m.git.CleanupWorktree(ctx, c); err != nil {
			m.logger.Error("failed to roll back worktree",
				zap.String("repo", wt.RepoName),
				zap.String("path", wt.WorktreePath),
				zap.Error(err))
		}
	}
}

func pathExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
