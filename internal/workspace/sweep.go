package workspace

import (
	"context"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// RefOracle answers whether a directory path is currently recorded as
// a live workspace's container reference. The registry implements it;
// the sweep only ever reads.
type RefOracle interface {
	ContainerRefExists(ctx context.Context, path string) (bool, error)
}

// SweepOptions controls an orphan sweep.
type SweepOptions struct {
	// Disabled skips the entire sweep. It is an explicit flag rather
	// than an ambient environment lookup so the sweep stays testable;
	// config loading maps the kill-switch environment variable onto it.
	Disabled bool

	// BaseDirs are the workspace base directories to scan, already
	// deduplicated by the caller (the default base directory plus the
	// configured one when distinct).
	BaseDirs []string
}

// SweepOrphans deletes any immediate subdirectory of the base
// directories whose absolute path is not recorded as a live workspace's
// container reference. Orphans arise from crashes between worktree
// creation and registry write, or between registry clear and directory
// removal; the sweep is a self-healing reconciliation pass and never
// aborts on a single bad directory — every step is best-effort and
// independently logged. It returns nothing to fail with.
func (m *Manager) SweepOrphans(ctx context.Context, reg RefOracle, opts SweepOptions) {
	if opts.Disabled {
		m.logger.Info("orphan workspace sweep is disabled")
		return
	}

	for _, baseDir := range opts.BaseDirs {
		m.sweepBaseDir(ctx, reg, baseDir)
	}
}

func (m *Manager) sweepBaseDir(ctx context.Context, reg RefOracle, baseDir string) {
	if !pathExists(baseDir) {
		m.logger.Debug("workspace base directory does not exist, skipping sweep",
			zap.String("dir", baseDir))
		return
	}

	entries, err := os.ReadDir(baseDir)
	if err != nil {
		m.logger.Error("failed to read workspace base directory",
			zap.String("dir", baseDir), zap.Error(err))
		return
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		path := filepath.Join(baseDir, entry.Name())

		// Membership is an exact path-string match against the
		// registry's container references.
		exists, err := reg.ContainerRefExists(ctx, path)
		if err != nil {
			m.logger.Warn("registry lookup failed during sweep",
				zap.String("path", path), zap.Error(err))
			continue
		}
		if exists {
			continue
		}

		m.logger.Info("found orphaned workspace", zap.String("path", path))
		m.reclaimOrphan(ctx, path)
	}
}

// reclaimOrphan removes one orphaned workspace directory. Each child
// directory is treated as a suspected worktree and cleaned up through
// the primitive service so owning repositories drop their records; the
// orphan directory itself is then removed. If the children cannot even
// be listed, the whole directory is removed recursively.
func (m *Manager) reclaimOrphan(ctx context.Context, orphanDir string) {
	entries, err := os.ReadDir(orphanDir)
	if err != nil {
		m.logger.Debug("cannot list orphan directory, removing directly",
			zap.String("dir", orphanDir), zap.Error(err))
		if err := os.RemoveAll(orphanDir); err != nil {
			m.logger.Error("failed to remove orphaned workspace",
				zap.String("dir", orphanDir), zap.Error(err))
		}
		return
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		child := filepath.Join(orphanDir, entry.Name())
		if err := m.git.CleanupSuspectedWorktree(ctx, child); err != nil {
			m.logger.Warn("failed to clean up suspected worktree",
				zap.String("path", child), zap.Error(err))
		}
	}

	if pathExists(orphanDir) {
		if err := os.RemoveAll(orphanDir); err != nil {
			m.logger.Error("failed to remove orphaned workspace",
				zap.String("dir", orphanDir), zap.Error(err))
			return
		}
	}
	m.logger.Info("removed orphaned workspace", zap.String("path", orphanDir))
}
