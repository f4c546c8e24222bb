package cli

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mmr-tortoise/treeline/internal/model"
	"github.com/mmr-tortoise/treeline/internal/worktree"
)

func TestExitCodeFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want model.ExitCode
	}{
		{"no repositories", model.NewNoRepositories(), model.ExitConfigError},
		{"partial creation", model.NewPartialCreation("backend", errors.New("boom")), model.ExitPartialCreation},
		{"merge conflicts", model.NewMergeConflicts("backend", "conflicts in: a.txt"), model.ExitMergeConflicts},
		{"workspace git error", model.NewGitError("merging", errors.New("boom")), model.ExitGitError},
		{"bare git error", &worktree.GitError{Op: "worktree add", Stderr: "fatal"}, model.ExitGitError},
		{"wrapped git error", fmt.Errorf("context: %w", &worktree.GitError{Op: "merge-base"}), model.ExitGitError},
		{"plain error", errors.New("boom"), model.ExitGeneralError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exitCodeFor(tt.err))
		})
	}
}

func TestWorkspaceDirName(t *testing.T) {
	assert.Equal(t, "feature-login", workspaceDirName("feature/login"))
	assert.Equal(t, "main", workspaceDirName("main"))
	assert.Equal(t, "a-b-c", workspaceDirName("a/b/c"))
}

func TestRootCommandWiring(t *testing.T) {
	root := NewRootCommand()

	var names []string
	for _, cmd := range root.Commands() {
		names = append(names, cmd.Name())
	}
	assert.Contains(t, names, "create")
	assert.Contains(t, names, "ensure")
	assert.Contains(t, names, "close")
	assert.Contains(t, names, "sweep")
	assert.Contains(t, names, "list")
}
