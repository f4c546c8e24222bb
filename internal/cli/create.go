// Package cli — create.go implements the "treeline create" command.
//
// Steps:
//  1. Load the workspace manifest (the repositories the workspace spans)
//  2. Create one worktree per repository under the workspace directory,
//     transactionally (a failure rolls back the worktrees created so far)
//  3. Record the workspace and its container reference in the registry
package cli

import (
	"fmt"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/mmr-tortoise/treeline/internal/manifest"
	"github.com/mmr-tortoise/treeline/internal/registry"
)

// createFlags holds the flag values for the create command.
type createFlags struct {
	manifestPath string // --manifest: workspace manifest file
	dir          string // --dir: explicit workspace directory
	name         string // --name: workspace display name
}

// NewCreateCommand creates the "create" cobra command.
func NewCreateCommand() *cobra.Command {
	flags := &createFlags{}

	cmd := &cobra.Command{
		Use:   "create <branch-name>",
		Short: "Create a workspace with one worktree per repository",
		Long: `Create a workspace: a directory with one git worktree per manifest
repository, each checked out on the given branch, branched from the
repository's target branch (or an explicit starting ref).

Creation is transactional across repositories: if any repository fails,
the worktrees already created are rolled back and the command fails.

Examples:
  treeline create feature-auth
  treeline create --manifest ./workspace.yaml feature-auth
  treeline create --dir /tmp/ws-auth feature-auth`,

		Args: cobra.ExactArgs(1),

		RunE: func(cmd *cobra.Command, args []string) error {
			return runCreate(cmd, args[0], flags)
		},
	}

	cmd.Flags().StringVar(&flags.manifestPath, "manifest", "treeline.yaml", "Workspace manifest file")
	cmd.Flags().StringVar(&flags.dir, "dir", "", "Workspace directory (default: <base>/<branch>)")
	cmd.Flags().StringVar(&flags.name, "name", "", "Workspace name (default: branch name)")

	return cmd
}

func runCreate(cmd *cobra.Command, branch string, flags *createFlags) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	inputs, err := manifest.Load(flags.manifestPath)
	if err != nil {
		return err
	}

	workspaceDir := flags.dir
	if workspaceDir == "" {
		workspaceDir = filepath.Join(a.cfg.WorkspaceBaseDir, workspaceDirName(branch))
	}
	workspaceDir, err = filepath.Abs(workspaceDir)
	if err != nil {
		return err
	}

	ctx := cmd.Context()

	container, err := a.manager.Create(ctx, workspaceDir, inputs, branch)
	if err != nil {
		return err
	}

	name := flags.name
	if name == "" {
		name = branch
	}

	// The registry write happens after the worktrees exist. A crash in
	// between leaves an unregistered directory that the orphan sweep
	// reclaims on the next run.
	ws := registry.Workspace{
		ID:           uuid.New(),
		Name:         name,
		Branch:       branch,
		ContainerRef: container.WorkspaceDir,
	}
	if err := a.registry.Create(ctx, ws); err != nil {
		return fmt.Errorf("recording workspace: %w", err)
	}

	if jsonOutput {
		return printJSON(map[string]any{
			"workspaceId": ws.ID.String(),
			"branch":      branch,
			"container":   container,
		})
	}

	fmt.Printf("Created workspace %s on branch %q\n", ws.ID, branch)
	for _, wt := range container.Worktrees {
		fmt.Printf("  %-20s %s\n", wt.RepoName, wt.WorktreePath)
	}
	return nil
}
