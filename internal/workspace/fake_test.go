package workspace

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/mmr-tortoise/treeline/internal/worktree"
)

// fakeGit is a recording GitService for orchestration tests. It mimics
// the filesystem effects that matter to the Manager (worktree creation
// makes the directory appear, cleanup makes it disappear) without
// touching git, and records every call in order.
//
// Failures are injected per repository path or per worktree path.
type fakeGit struct {
	mu    sync.Mutex
	calls []string

	// failCreateFor makes CreateWorktree fail for the given repo path.
	failCreateFor map[string]error

	// failMergeFor makes MergeIntoBranch fail for the given repo path.
	failMergeFor map[string]error

	// failCleanupFor makes CleanupWorktree fail for the given worktree path.
	failCleanupFor map[string]error

	// failDeleteBranchFor makes DeleteBranch fail for the given repo path.
	failDeleteBranchFor map[string]error

	// mergeCommits returns a fixed commit id per repo path; repos without
	// an entry get a generated one.
	mergeCommits map[string]string

	mergeSeq int
}

func newFakeGit() *fakeGit {
	return &fakeGit{
		failCreateFor:       map[string]error{},
		failMergeFor:        map[string]error{},
		failCleanupFor:      map[string]error{},
		failDeleteBranchFor: map[string]error{},
		mergeCommits:        map[string]string{},
	}
}

func (f *fakeGit) record(format string, args ...any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, fmt.Sprintf(format, args...))
}

func (f *fakeGit) recorded() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	copy(out, f.calls)
	return out
}

func (f *fakeGit) CreateWorktree(ctx context.Context, repoPath, branch, path, baseBranch string, track bool, startRef string) error {
	f.record("create %s -> %s", repoPath, path)
	if err := f.failCreateFor[repoPath]; err != nil {
		return err
	}
	return os.MkdirAll(path, 0o755)
}

func (f *fakeGit) EnsureWorktree(ctx context.Context, repoPath, branch, path string) error {
	f.record("ensure %s -> %s", repoPath, path)
	return os.MkdirAll(path, 0o755)
}

func (f *fakeGit) MoveWorktree(ctx context.Context, repoPath, oldPath, newPath string) error {
	f.record("move %s -> %s", oldPath, newPath)
	return os.Rename(oldPath, newPath)
}

func (f *fakeGit) CleanupWorktree(ctx context.Context, c worktree.Cleanup) error {
	f.record("cleanup %s", c.Path)
	if err := f.failCleanupFor[c.Path]; err != nil {
		return err
	}
	return os.RemoveAll(c.Path)
}

func (f *fakeGit) BatchCleanupWorktrees(ctx context.Context, cleanups []worktree.Cleanup) error {
	var firstErr error
	for _, c := range cleanups {
		if err := f.CleanupWorktree(ctx, c); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (f *fakeGit) CleanupSuspectedWorktree(ctx context.Context, path string) error {
	f.record("cleanup-suspected %s", path)
	return os.RemoveAll(path)
}

func (f *fakeGit) DeleteBranch(ctx context.Context, repoPath, branch string) error {
	f.record("delete-branch %s %s", repoPath, branch)
	if err := f.failDeleteBranchFor[repoPath]; err != nil {
		return err
	}
	return nil
}

func (f *fakeGit) MergeIntoBranch(ctx context.Context, repoPath, targetBranch, sourceBranch, message string) (string, error) {
	f.record("merge %s %s <- %s", repoPath, targetBranch, sourceBranch)
	if err := f.failMergeFor[repoPath]; err != nil {
		return "", err
	}
	if sha, ok := f.mergeCommits[repoPath]; ok {
		return sha, nil
	}
	f.mu.Lock()
	f.mergeSeq++
	sha := fmt.Sprintf("%040d", f.mergeSeq)
	f.mu.Unlock()
	return sha, nil
}
