package workspace

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/mmr-tortoise/treeline/internal/model"
	"github.com/mmr-tortoise/treeline/internal/worktree"
)

// CloseDiscard permanently abandons a workspace's changes: a full
// Cleanup, followed by deletion of the workspace branch
// from every repository's canonical clone. Branch deletion failures are
// logged and swallowed per repository — a branch that was never created
// or is already gone must not fail the discard.
func (m *Manager) CloseDiscard(ctx context.Context, workspaceDir string, repos []model.Repo, branch string) error {
	m.logger.Info("closing workspace (discard)",
		zap.String("dir", workspaceDir),
		zap.String("branch", branch))

	if err := m.Cleanup(ctx, workspaceDir, repos); err != nil {
		return err
	}

	for _, repo := range repos {
		m.logger.Debug("deleting workspace branch",
			zap.String("repo", repo.Name),
			zap.String("branch", branch))

		if err := m.git.DeleteBranch(ctx, repo.Path, branch); err != nil {
			m.logger.Warn("could not delete workspace branch",
				zap.String("repo", repo.Name),
				zap.String("branch", branch),
				zap.Error(err))
		}
	}

	m.logger.Info("workspace closed (discard)", zap.String("dir", workspaceDir))
	return nil
}

// CloseMerge merges the workspace branch into each repository's target
// branch, operating on the canonical repositories — the worktrees may
// be discarded immediately afterward. Repositories are processed
// sequentially; each success is recorded and logged before the next
// repository starts.
//
// A conflict stops the call with a MergeConflicts error naming the
// repository and the conflicted paths. Repositories merged before the
// conflicting one keep their merge commits — there is no compensating
// rollback. The results accumulated up to the stopping point are
// returned alongside the error so the caller can reconcile the partial
// state. Any other failure stops with a Git error.
//
// CloseMerge performs no cleanup. Callers are expected to durably
// record the returned merge results and then run CloseDiscard, so a
// crash between merge and cleanup leaves recoverable state.
func (m *Manager) CloseMerge(ctx context.Context, inputs []model.MergeInput, workspaceBranch, commitMessage string) ([]model.RepoMergeResult, error) {
	if len(inputs) == 0 {
		return nil, model.NewNoRepositories()
	}

	m.logger.Info("merging workspace branch",
		zap.String("branch", workspaceBranch),
		zap.Int("repos", len(inputs)))

	var results []model.RepoMergeResult
	for _, input := range inputs {
		m.logger.Debug("merging into target branch",
			zap.String("repo", input.Repo.Name),
			zap.String("target", input.TargetBranch))

		mergeCommit, err := m.git.MergeIntoBranch(ctx, input.Repo.Path,
			input.TargetBranch, workspaceBranch, commitMessage)
		if err != nil {
			var conflict *worktree.ConflictError
			if errors.As(err, &conflict) {
				m.logger.Warn("merge stopped on conflicts",
					zap.String("repo", input.Repo.Name),
					zap.Strings("files", conflict.Files),
					zap.Int("merged_before_conflict", len(results)))
				return results, model.NewMergeConflicts(input.Repo.Name, conflict.Description())
			}
			return results, model.NewGitError(
				fmt.Sprintf("merge failed in repo %q", input.Repo.Name), err)
		}

		m.logger.Info("merged workspace branch",
			zap.String("repo", input.Repo.Name),
			zap.String("target", input.TargetBranch),
			zap.String("commit", mergeCommit))

		results = append(results, model.RepoMergeResult{
			RepoID:       input.Repo.ID,
			RepoName:     input.Repo.Name,
			MergeCommit:  mergeCommit,
			TargetBranch: input.TargetBranch,
		})
	}

	m.logger.Info("workspace branch merged into all repos", zap.Int("repos", len(results)))
	return results, nil
}
