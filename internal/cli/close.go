// Package cli — close.go implements the "treeline close" command.
//
// Closing follows the merge-then-discard sequencing: with the merge
// strategy the workspace branch is merged into each repository's target
// branch first and the merge commits are reported before any cleanup
// runs, so a crash in between leaves recoverable state (merge commits
// exist, worktrees can be re-discarded later). The discard strategy
// skips straight to cleanup and branch deletion.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mmr-tortoise/treeline/internal/manifest"
	"github.com/mmr-tortoise/treeline/internal/model"
	"github.com/mmr-tortoise/treeline/internal/registry"
)

// closeFlags holds the flag values for the close command.
type closeFlags struct {
	manifestPath string
	dir          string
	strategy     string // merge | discard
	message      string // merge commit message
}

// NewCloseCommand creates the "close" cobra command.
func NewCloseCommand() *cobra.Command {
	flags := &closeFlags{}

	cmd := &cobra.Command{
		Use:   "close <branch-name>",
		Short: "Close a workspace, merging or discarding its changes",
		Long: `Close a workspace. With --strategy merge, the workspace branch is merged
into each repository's target branch (operating on the canonical clones,
sequentially, stopping on the first conflict), then the worktrees and the
workspace branch are discarded. With --strategy discard, the changes are
abandoned without merging.

A merge conflict aborts the close before any cleanup: repositories merged
before the conflicting one keep their merge commits, and the command
reports which repository conflicted.

Examples:
  treeline close --strategy merge feature-auth
  treeline close --strategy discard feature-auth`,

		Args: cobra.ExactArgs(1),

		RunE: func(cmd *cobra.Command, args []string) error {
			return runClose(cmd, args[0], flags)
		},
	}

	cmd.Flags().StringVar(&flags.manifestPath, "manifest", "treeline.yaml", "Workspace manifest file")
	cmd.Flags().StringVar(&flags.dir, "dir", "", "Workspace directory (default: from registry)")
	cmd.Flags().StringVar(&flags.strategy, "strategy", "discard", "Close strategy: merge or discard")
	cmd.Flags().StringVar(&flags.message, "message", "", "Merge commit message (default: generated)")

	return cmd
}

func runClose(cmd *cobra.Command, branch string, flags *closeFlags) error {
	if flags.strategy != "merge" && flags.strategy != "discard" {
		return fmt.Errorf("invalid strategy %q (valid: merge, discard)", flags.strategy)
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	inputs, err := manifest.Load(flags.manifestPath)
	if err != nil {
		return err
	}
	repos := manifest.Repos(inputs)

	ctx := cmd.Context()

	// Resolve the workspace record; close works without one (the
	// directory may predate the registry) but archives it when found.
	var ws *registry.Workspace
	if ws, err = a.registry.FindByBranch(ctx, branch); err != nil {
		return err
	}

	workspaceDir := flags.dir
	if workspaceDir == "" {
		if ws == nil || ws.ContainerRef == "" {
			return &model.WorkspaceError{
				Kind:    model.KindIO,
				Message: fmt.Sprintf("no registered workspace for branch %q; pass --dir", branch),
			}
		}
		workspaceDir = ws.ContainerRef
	}

	var mergeResults []model.RepoMergeResult
	if flags.strategy == "merge" {
		message := flags.message
		if message == "" {
			message = fmt.Sprintf("Merge workspace branch '%s' via close", branch)
		}

		mergeResults, err = a.manager.CloseMerge(ctx, manifest.MergeInputs(inputs), branch, message)
		if err != nil {
			reportPartialMerges(mergeResults)
			return err
		}
	}

	if err := a.manager.CloseDiscard(ctx, workspaceDir, repos, branch); err != nil {
		return err
	}

	if ws != nil {
		if err := a.registry.SetArchived(ctx, ws.ID, true); err != nil {
			return err
		}
		if err := a.registry.ClearContainerRef(ctx, ws.ID); err != nil {
			return err
		}
	}

	if jsonOutput {
		out := map[string]any{
			"branch":   branch,
			"strategy": flags.strategy,
		}
		if len(mergeResults) > 0 {
			out["merges"] = mergeResults
		}
		return printJSON(out)
	}

	if flags.strategy == "merge" {
		fmt.Printf("Merged workspace branch %q into %d repo(s):\n", branch, len(mergeResults))
		for _, r := range mergeResults {
			fmt.Printf("  %-20s %s -> %s\n", r.RepoName, r.MergeCommit, r.TargetBranch)
		}
	}
	fmt.Printf("Closed workspace for branch %q (%s)\n", branch, flags.strategy)
	return nil
}

// reportPartialMerges tells the user which repositories were already
// merged when a later repository stopped the close. Those merge commits
// are kept; the close must be retried after resolving the conflict.
func reportPartialMerges(results []model.RepoMergeResult) {
	if len(results) == 0 {
		return
	}
	fmt.Fprintln(os.Stderr, "Merged before the failure (merge commits kept):")
	for _, r := range results {
		fmt.Fprintf(os.Stderr, "  %-20s %s -> %s\n", r.RepoName, r.MergeCommit, r.TargetBranch)
	}
}
