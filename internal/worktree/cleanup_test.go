package worktree

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestCleanupWorktreeWithSource verifies the git-aware removal path:
// the directory disappears and the repository no longer lists the
// worktree, so the branch can be checked out again.
func TestCleanupWorktreeWithSource(t *testing.T) {
	repo := setupTestRepo(t)
	s := NewService(nil)
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "wt")
	require.NoError(t, s.CreateWorktree(ctx, repo, "cleanup-me", path, "main", false, ""))

	require.NoError(t, s.CleanupWorktree(ctx, Cleanup{Path: path, SourceRepoPath: repo}))

	assert.NoDirExists(t, path)

	listing := runTestGit(t, repo, "worktree", "list")
	assert.NotContains(t, listing, path)

	// The branch is free again: checking it out into a new worktree works.
	fresh := filepath.Join(t.TempDir(), "fresh")
	require.NoError(t, s.CreateWorktree(ctx, repo, "cleanup-me", fresh, "main", false, ""))
}

// TestCleanupWorktreeFallback verifies direct removal when git no
// longer knows the worktree: the records were pruned beforehand, so
// `worktree remove` fails and the fallback deletes the directory.
func TestCleanupWorktreeFallback(t *testing.T) {
	repo := setupTestRepo(t)
	s := NewService(nil)
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "stale")
	require.NoError(t, s.CreateWorktree(ctx, repo, "stale-branch", path, "main", false, ""))

	// Detach git's knowledge of the worktree without touching the
	// directory itself.
	runTestGit(t, repo, "worktree", "list") // sanity
	require.NoError(t, os.RemoveAll(filepath.Join(repo, ".git", "worktrees")))

	require.NoError(t, s.CleanupWorktree(ctx, Cleanup{Path: path, SourceRepoPath: repo}))
	assert.NoDirExists(t, path)
}

// TestCleanupWorktreeNoSource verifies plain directory removal when no
// owning repository is known.
func TestCleanupWorktreeNoSource(t *testing.T) {
	s := NewService(nil)

	dir := filepath.Join(t.TempDir(), "plain")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "nested"), 0o755))

	require.NoError(t, s.CleanupWorktree(context.Background(), Cleanup{Path: dir}))
	assert.NoDirExists(t, dir)
}

// TestBatchCleanupWorktreesContinuesOnFailure verifies that one bad
// entry does not stop the rest of the batch from being removed, and
// that the failure is still reported.
func TestBatchCleanupWorktreesContinuesOnFailure(t *testing.T) {
	repo := setupTestRepo(t)
	s := NewService(nil)
	ctx := context.Background()

	first := filepath.Join(t.TempDir(), "first")
	second := filepath.Join(t.TempDir(), "second")
	require.NoError(t, s.CreateWorktree(ctx, repo, "batch-a", first, "main", false, ""))
	require.NoError(t, s.CreateWorktree(ctx, repo, "batch-b", second, "main", false, ""))

	// A path that cannot be removed: a file where RemoveAll of its
	// parent is never attempted because Path names a child of a file.
	blocked := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocked, []byte("x"), 0o644))
	badPath := filepath.Join(blocked, "child")

	err := s.BatchCleanupWorktrees(ctx, []Cleanup{
		{Path: first, SourceRepoPath: repo},
		{Path: badPath},
		{Path: second, SourceRepoPath: repo},
	})
	require.Error(t, err)

	assert.NoDirExists(t, first)
	assert.NoDirExists(t, second)
}

// TestCleanupSuspectedWorktree verifies the orphan-sweep removal path:
// a real worktree is unregistered from its owning repository, while an
// unrelated directory is simply deleted.
func TestCleanupSuspectedWorktree(t *testing.T) {
	repo := setupTestRepo(t)
	s := NewService(nil)
	ctx := context.Background()

	wt := filepath.Join(t.TempDir(), "suspect")
	require.NoError(t, s.CreateWorktree(ctx, repo, "suspect-branch", wt, "main", false, ""))

	require.NoError(t, s.CleanupSuspectedWorktree(ctx, wt))
	assert.NoDirExists(t, wt)

	listing := runTestGit(t, repo, "worktree", "list")
	assert.NotContains(t, listing, wt)

	plain := filepath.Join(t.TempDir(), "not-a-worktree")
	require.NoError(t, os.MkdirAll(plain, 0o755))
	require.NoError(t, s.CleanupSuspectedWorktree(ctx, plain))
	assert.NoDirExists(t, plain)
}

// TestResolveOwningRepo verifies gitdir pointer parsing against a real
// worktree's .git file. Paths are symlink-resolved because git records
// the resolved temp path on some platforms.
func TestResolveOwningRepo(t *testing.T) {
	repo := setupTestRepo(t)
	s := NewService(nil)

	wt := filepath.Join(t.TempDir(), "resolve-me")
	require.NoError(t, s.CreateWorktree(context.Background(), repo, "resolve-branch", wt, "main", false, ""))

	owner, ok := s.resolveOwningRepo(wt)
	require.True(t, ok)

	wantRepo, err := filepath.EvalSymlinks(repo)
	require.NoError(t, err)
	gotRepo, err := filepath.EvalSymlinks(owner)
	require.NoError(t, err)
	assert.Equal(t, wantRepo, gotRepo)

	// Garbage .git files do not resolve.
	fake := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(fake, ".git"), []byte("gitdir: /nonexistent/.git/worktrees/x\n"), 0o644))
	_, ok = s.resolveOwningRepo(fake)
	assert.False(t, ok)

	// A gitdir outside any .git/worktrees area does not resolve either.
	require.NoError(t, os.WriteFile(filepath.Join(fake, ".git"), []byte("gitdir: /tmp/elsewhere\n"), 0o644))
	_, ok = s.resolveOwningRepo(fake)
	assert.False(t, ok)
}
