package workspace

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeOracle is a map-backed RefOracle.
type fakeOracle struct {
	refs map[string]bool
	err  error
}

func (o *fakeOracle) ContainerRefExists(ctx context.Context, path string) (bool, error) {
	if o.err != nil {
		return false, o.err
	}
	return o.refs[path], nil
}

func mkWorkspaceDir(t *testing.T, base, name string, children ...string) string {
	t.Helper()
	dir := filepath.Join(base, name)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	for _, c := range children {
		require.NoError(t, os.MkdirAll(filepath.Join(dir, c), 0o755))
	}
	return dir
}

// TestSweepOrphansRemovesUnregistered verifies the core reconciliation:
// registered workspaces survive, unregistered ones are removed with
// each child cleaned up as a suspected worktree first.
func TestSweepOrphansRemovesUnregistered(t *testing.T) {
	git := newFakeGit()
	m := NewManager(git, nil)
	base := t.TempDir()

	registered := mkWorkspaceDir(t, base, "ws-live", "backend")
	orphan := mkWorkspaceDir(t, base, "ws-dead", "backend", "frontend")

	// A stray file at the base level is not a workspace and is ignored.
	require.NoError(t, os.WriteFile(filepath.Join(base, "notes.txt"), []byte("x"), 0o644))

	oracle := &fakeOracle{refs: map[string]bool{registered: true}}
	m.SweepOrphans(context.Background(), oracle, SweepOptions{BaseDirs: []string{base}})

	assert.DirExists(t, registered)
	assert.NoDirExists(t, orphan)
	assert.FileExists(t, filepath.Join(base, "notes.txt"))

	calls := git.recorded()
	assert.Contains(t, calls, "cleanup-suspected "+filepath.Join(orphan, "backend"))
	assert.Contains(t, calls, "cleanup-suspected "+filepath.Join(orphan, "frontend"))
	assert.NotContains(t, calls, "cleanup-suspected "+filepath.Join(registered, "backend"))
}

// TestSweepOrphansDisabled verifies the kill switch: nothing is touched
// and no registry lookups happen.
func TestSweepOrphansDisabled(t *testing.T) {
	git := newFakeGit()
	m := NewManager(git, nil)
	base := t.TempDir()

	orphan := mkWorkspaceDir(t, base, "ws-dead", "backend")

	oracle := &fakeOracle{refs: map[string]bool{}}
	m.SweepOrphans(context.Background(), oracle, SweepOptions{Disabled: true, BaseDirs: []string{base}})

	assert.DirExists(t, orphan)
	assert.Empty(t, git.recorded())
}

// TestSweepOrphansMissingBaseDir verifies that a nonexistent base
// directory is skipped silently.
func TestSweepOrphansMissingBaseDir(t *testing.T) {
	m := NewManager(newFakeGit(), nil)
	oracle := &fakeOracle{refs: map[string]bool{}}

	m.SweepOrphans(context.Background(), oracle,
		SweepOptions{BaseDirs: []string{filepath.Join(t.TempDir(), "nope")}})
}

// TestSweepOrphansRegistryErrorSkipsDir verifies fail-safe behavior: a
// registry lookup failure leaves the directory alone rather than
// treating it as an orphan.
func TestSweepOrphansRegistryErrorSkipsDir(t *testing.T) {
	git := newFakeGit()
	m := NewManager(git, nil)
	base := t.TempDir()

	dir := mkWorkspaceDir(t, base, "ws-unknown", "backend")

	oracle := &fakeOracle{err: errors.New("database is locked")}
	m.SweepOrphans(context.Background(), oracle, SweepOptions{BaseDirs: []string{base}})

	assert.DirExists(t, dir)
	assert.Empty(t, git.recorded())
}

// TestSweepOrphansMultipleBaseDirs verifies that every configured base
// directory is scanned.
func TestSweepOrphansMultipleBaseDirs(t *testing.T) {
	git := newFakeGit()
	m := NewManager(git, nil)

	baseA := t.TempDir()
	baseB := t.TempDir()
	orphanA := mkWorkspaceDir(t, baseA, "ws-a")
	orphanB := mkWorkspaceDir(t, baseB, "ws-b")

	oracle := &fakeOracle{refs: map[string]bool{}}
	m.SweepOrphans(context.Background(), oracle, SweepOptions{BaseDirs: []string{baseA, baseB}})

	assert.NoDirExists(t, orphanA)
	assert.NoDirExists(t, orphanB)
}
