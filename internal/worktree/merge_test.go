package worktree

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestMergeIntoBranchClean merges a non-conflicting feature branch and
// verifies the target branch advances to a two-parent merge commit
// containing both sides' files.
func TestMergeIntoBranchClean(t *testing.T) {
	repo := setupTestRepo(t)
	s := NewService(nil)
	ctx := context.Background()

	runTestGit(t, repo, "checkout", "-b", "feature")
	commitTestFile(t, repo, "feature.txt", "feature\n", "feature work")
	runTestGit(t, repo, "checkout", "main")
	commitTestFile(t, repo, "main.txt", "main\n", "main work")

	oldMain := strings.TrimSpace(runTestGit(t, repo, "rev-parse", "main"))
	featureSha := strings.TrimSpace(runTestGit(t, repo, "rev-parse", "feature"))

	commit, err := s.MergeIntoBranch(ctx, repo, "main", "feature", "merge feature into main")
	require.NoError(t, err)
	require.NotEmpty(t, commit)

	newMain := strings.TrimSpace(runTestGit(t, repo, "rev-parse", "main"))
	assert.Equal(t, commit, newMain)

	parents := strings.Fields(runTestGit(t, repo, "rev-parse", "main^1", "main^2"))
	require.Len(t, parents, 2)
	assert.Equal(t, oldMain, parents[0])
	assert.Equal(t, featureSha, parents[1])

	files := runTestGit(t, repo, "ls-tree", "--name-only", "main")
	assert.Contains(t, files, "feature.txt")
	assert.Contains(t, files, "main.txt")
}

// TestMergeIntoBranchDoesNotTouchCheckout verifies the no-checkout
// property: main is checked out but its working tree stays on the
// pre-merge content after the merge lands.
func TestMergeIntoBranchDoesNotTouchCheckout(t *testing.T) {
	repo := setupTestRepo(t)
	s := NewService(nil)
	ctx := context.Background()

	runTestGit(t, repo, "checkout", "-b", "feature")
	commitTestFile(t, repo, "feature.txt", "feature\n", "feature work")
	runTestGit(t, repo, "checkout", "main")

	_, err := s.MergeIntoBranch(ctx, repo, "main", "feature", "merge")
	require.NoError(t, err)

	// The ref moved but nothing checked out feature.txt into the tree.
	assert.NoFileExists(t, repo+"/feature.txt")

	status := runTestGit(t, repo, "status", "--porcelain")
	assert.Contains(t, status, "feature.txt", "deletion pending in the stale checkout is expected")
}

// TestMergeIntoBranchConflict verifies that overlapping edits surface a
// ConflictError naming the file and leave the target ref untouched.
func TestMergeIntoBranchConflict(t *testing.T) {
	repo := setupTestRepo(t)
	s := NewService(nil)
	ctx := context.Background()

	commitTestFile(t, repo, "shared.txt", "base\n", "add shared")

	runTestGit(t, repo, "checkout", "-b", "feature")
	commitTestFile(t, repo, "shared.txt", "feature version\n", "feature edit")
	runTestGit(t, repo, "checkout", "main")
	commitTestFile(t, repo, "shared.txt", "main version\n", "main edit")

	oldMain := strings.TrimSpace(runTestGit(t, repo, "rev-parse", "main"))

	_, err := s.MergeIntoBranch(ctx, repo, "main", "feature", "merge")
	require.Error(t, err)

	var conflictErr *ConflictError
	require.ErrorAs(t, err, &conflictErr)
	assert.Contains(t, conflictErr.Files, "shared.txt")
	assert.Contains(t, conflictErr.Description(), "shared.txt")

	newMain := strings.TrimSpace(runTestGit(t, repo, "rev-parse", "main"))
	assert.Equal(t, oldMain, newMain, "conflicted merge must not move the target branch")
}

// TestMergeIntoBranchMissingSource verifies that a nonexistent source
// branch fails with a git error rather than a conflict.
func TestMergeIntoBranchMissingSource(t *testing.T) {
	repo := setupTestRepo(t)
	s := NewService(nil)

	_, err := s.MergeIntoBranch(context.Background(), repo, "main", "no-such-branch", "merge")
	require.Error(t, err)

	var gitErr *GitError
	assert.ErrorAs(t, err, &gitErr)
}

// TestMergeIntoBranchFromWorktree exercises the intended workflow: work
// committed on a workspace branch inside a worktree merges back into
// main through the canonical repository.
func TestMergeIntoBranchFromWorktree(t *testing.T) {
	repo := setupTestRepo(t)
	s := NewService(nil)
	ctx := context.Background()

	wt := t.TempDir() + "/ws-repo"
	require.NoError(t, s.CreateWorktree(ctx, repo, "workspace-x", wt, "main", false, ""))

	runTestGit(t, wt, "config", "user.email", "test@example.com")
	runTestGit(t, wt, "config", "user.name", "Test User")
	commitTestFile(t, wt, "work.txt", "done\n", "workspace work")

	commit, err := s.MergeIntoBranch(ctx, repo, "main", "workspace-x", "merge workspace")
	require.NoError(t, err)

	newMain := strings.TrimSpace(runTestGit(t, repo, "rev-parse", "main"))
	assert.Equal(t, commit, newMain)

	files := runTestGit(t, repo, "ls-tree", "--name-only", "main")
	assert.Contains(t, files, "work.txt")
}
