// Package cli implements the cobra-based CLI commands for treeline.
//
// Each subcommand (create, ensure, close, sweep, list) is defined in
// its own file within this package. This file defines the root command,
// global flags, shared command setup (config, logger, registry,
// orchestrator), and the translation of workspace error kinds into
// process exit codes.
package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mmr-tortoise/treeline/internal/config"
	"github.com/mmr-tortoise/treeline/internal/logging"
	"github.com/mmr-tortoise/treeline/internal/model"
	"github.com/mmr-tortoise/treeline/internal/registry"
	"github.com/mmr-tortoise/treeline/internal/workspace"
	"github.com/mmr-tortoise/treeline/internal/worktree"
)

// Global flag variables bound to cobra persistent flags on the root
// command, available to every subcommand.
var (
	// jsonOutput switches command output to JSON for machine consumption.
	jsonOutput bool

	// verbose mirrors log output to stderr.
	verbose bool

	// configPath overrides the default config file location.
	configPath string
)

// Version, Commit, and Date are set at build time via ldflags and
// injected from the main package.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// NewRootCommand creates and configures the root cobra command. The
// root command itself performs no action; functionality lives in the
// subcommands.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "treeline",
		Short: "Multi-repository worktree workspace orchestrator",
		Long: `treeline manages workspaces: isolated multi-repository working copies
backed by git worktrees, all sharing one workspace branch. A workspace is
created transactionally across its repositories, survives process restarts,
and closes by either merging the workspace branch into each repository's
target branch or discarding it.`,

		// Errors are formatted by Execute (text or JSON), not by cobra.
		SilenceUsage:  true,
		SilenceErrors: true,

		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, Date),
	}

	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Mirror logs to stderr")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file path (default: "+config.DefaultPath()+")")

	rootCmd.AddCommand(NewCreateCommand())
	rootCmd.AddCommand(NewEnsureCommand())
	rootCmd.AddCommand(NewCloseCommand())
	rootCmd.AddCommand(NewSweepCommand())
	rootCmd.AddCommand(NewListCommand())

	return rootCmd
}

// Execute runs the root command and translates errors into exit codes.
func Execute(rootCmd *cobra.Command) {
	if err := rootCmd.Execute(); err != nil {
		printError(err)
		os.Exit(int(exitCodeFor(err)))
	}
}

// exitCodeFor maps an error chain onto a process exit code. Workspace
// error kinds take precedence; bare git failures from the primitive
// layer map to the git exit code.
func exitCodeFor(err error) model.ExitCode {
	if kind := model.KindOf(err); kind != "" {
		return model.ExitCodeFor(err)
	}
	var gitErr *worktree.GitError
	if errors.As(err, &gitErr) {
		return model.ExitGitError
	}
	return model.ExitGeneralError
}

// printError outputs an error in the format selected by --json. Errors
// go to stderr in both modes; stdout is reserved for command output.
func printError(err error) {
	if jsonOutput {
		obj := map[string]any{
			"error": map[string]any{
				"message": err.Error(),
				"kind":    string(model.KindOf(err)),
			},
		}
		data, _ := json.MarshalIndent(obj, "", "  ")
		fmt.Fprintln(os.Stderr, string(data))
		return
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
}

// app bundles the dependencies every subcommand needs. Built once per
// command invocation and closed when the command finishes.
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	registry *registry.Registry
	git      *worktree.Service
	manager  *workspace.Manager
}

// newApp loads configuration, builds the logger, opens the registry,
// and wires the orchestrator.
func newApp() (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(logging.Options{
		File:       cfg.Log.File,
		Level:      cfg.Log.Level,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		Console:    verbose,
	})
	if err != nil {
		return nil, err
	}

	reg, err := registry.Open(cfg.DBPath, logger.Named("registry"))
	if err != nil {
		return nil, err
	}

	git := worktree.NewService(logger.Named("git"))
	return &app{
		cfg:      cfg,
		logger:   logger,
		registry: reg,
		git:      git,
		manager:  workspace.NewManager(git, logger.Named("workspace")),
	}, nil
}

// close flushes the logger and closes the registry.
func (a *app) close() {
	_ = a.logger.Sync()
	if err := a.registry.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: closing registry: %v\n", err)
	}
}

// workspaceDirName derives a filesystem-friendly directory name from a
// branch name: path separators become hyphens.
func workspaceDirName(branch string) string {
	return strings.ReplaceAll(branch, "/", "-")
}

// printJSON writes v to stdout as indented JSON.
func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
