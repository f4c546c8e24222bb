// Package cli — sweep.go implements the "treeline sweep" command: the
// orphan workspace reconciliation pass. Any immediate subdirectory of a
// workspace base directory that is not a registered container reference
// is reclaimed. The sweep is fully best-effort and honors the
// DISABLE_WORKTREE_CLEANUP kill switch (and the equivalent config
// flag).
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mmr-tortoise/treeline/internal/workspace"
)

// NewSweepCommand creates the "sweep" cobra command.
func NewSweepCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Remove orphaned workspace directories",
		Long: `Scan the workspace base directories (the default location plus the
configured one, when different) and remove any subdirectory that is not
recorded as a live workspace in the registry. Orphans are left behind by
crashes between worktree creation and registry write, or between registry
clear and directory removal.

Setting the ` + "`DISABLE_WORKTREE_CLEANUP`" + ` environment variable (any value)
disables the sweep entirely.`,

		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			opts := workspace.SweepOptions{
				Disabled: a.cfg.DisableOrphanSweep,
				BaseDirs: a.cfg.SweepBaseDirs(),
			}
			a.manager.SweepOrphans(cmd.Context(), a.registry, opts)

			if jsonOutput {
				return printJSON(map[string]any{
					"disabled": opts.Disabled,
					"baseDirs": opts.BaseDirs,
				})
			}
			if opts.Disabled {
				fmt.Println("Orphan sweep is disabled")
			} else {
				fmt.Println("Orphan sweep complete")
			}
			return nil
		},
	}
}
