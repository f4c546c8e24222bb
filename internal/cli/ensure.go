// Package cli — ensure.go implements the "treeline ensure" command,
// which reconciles a workspace's on-disk state after a process restart:
// every manifest repository ends up with a worktree on the workspace
// branch, and the legacy single-repository layout is migrated to the
// nested layout when detected. Running it against a healthy workspace
// is a no-op.
package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mmr-tortoise/treeline/internal/manifest"
)

// ensureFlags holds the flag values for the ensure command.
type ensureFlags struct {
	manifestPath string
	dir          string
}

// NewEnsureCommand creates the "ensure" cobra command.
func NewEnsureCommand() *cobra.Command {
	flags := &ensureFlags{}

	cmd := &cobra.Command{
		Use:   "ensure <branch-name>",
		Short: "Ensure a workspace's worktrees exist (idempotent)",
		Long: `Ensure every manifest repository has a worktree on the workspace branch
inside the workspace directory, recreating anything missing. Safe to run
repeatedly; an intact workspace is left untouched.

When the workspace directory is omitted, it is resolved from the
registry record for the branch, falling back to the default location
under the workspace base directory.

Examples:
  treeline ensure feature-auth
  treeline ensure --dir /tmp/ws-auth feature-auth`,

		Args: cobra.ExactArgs(1),

		RunE: func(cmd *cobra.Command, args []string) error {
			return runEnsure(cmd, args[0], flags)
		},
	}

	cmd.Flags().StringVar(&flags.manifestPath, "manifest", "treeline.yaml", "Workspace manifest file")
	cmd.Flags().StringVar(&flags.dir, "dir", "", "Workspace directory (default: from registry, then <base>/<branch>)")

	return cmd
}

func runEnsure(cmd *cobra.Command, branch string, flags *ensureFlags) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	inputs, err := manifest.Load(flags.manifestPath)
	if err != nil {
		return err
	}

	ctx := cmd.Context()

	workspaceDir := flags.dir
	if workspaceDir == "" {
		if ws, err := a.registry.FindByBranch(ctx, branch); err != nil {
			return err
		} else if ws != nil && ws.ContainerRef != "" {
			workspaceDir = ws.ContainerRef
		} else {
			workspaceDir = filepath.Join(a.cfg.WorkspaceBaseDir, workspaceDirName(branch))
		}
	}
	workspaceDir, err = filepath.Abs(workspaceDir)
	if err != nil {
		return err
	}

	if err := a.manager.Ensure(ctx, workspaceDir, manifest.Repos(inputs), branch); err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(map[string]any{
			"branch":       branch,
			"workspaceDir": workspaceDir,
			"repos":        len(inputs),
		})
	}
	fmt.Printf("Workspace for branch %q is in place at %s\n", branch, workspaceDir)
	return nil
}
