// Package manifest loads the YAML workspace manifest: the list of
// repositories (name, canonical clone path, target branch, optional
// starting ref) a workspace spans. The manifest is what the CLI feeds
// to the orchestrator as creation inputs.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/mmr-tortoise/treeline/internal/model"
)

// Entry is one repository line in the manifest file.
type Entry struct {
	// Name is the worktree subdirectory name. Defaults to the base
	// name of Path.
	Name string `yaml:"name"`

	// Path is the canonical clone. Relative paths are resolved against
	// the manifest file's directory.
	Path string `yaml:"path"`

	// TargetBranch is the branch the workspace branch starts from and
	// merges back into. Defaults to "main".
	TargetBranch string `yaml:"targetBranch"`

	// StartFromRef optionally overrides TargetBranch's tip as the
	// worktree starting point.
	StartFromRef string `yaml:"startFromRef"`
}

// Manifest is the parsed workspace manifest.
type Manifest struct {
	Repos []Entry `yaml:"repos"`
}

// Load reads and validates a manifest file and resolves it into
// creation inputs. Repository IDs are derived deterministically from
// the canonical clone path (UUIDv5 in the URL namespace) so repeated
// loads of the same manifest agree on identities.
func Load(path string) ([]model.CreateInput, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest %s: %w", path, err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest %s: %w", path, err)
	}
	if len(m.Repos) == 0 {
		return nil, fmt.Errorf("manifest %s lists no repositories", path)
	}

	baseDir := filepath.Dir(path)
	seen := make(map[string]bool, len(m.Repos))

	inputs := make([]model.CreateInput, 0, len(m.Repos))
	for i, entry := range m.Repos {
		if entry.Path == "" {
			return nil, fmt.Errorf("manifest %s: repos[%d] has no path", path, i)
		}

		repoPath := entry.Path
		if !filepath.IsAbs(repoPath) {
			repoPath = filepath.Join(baseDir, repoPath)
		}
		repoPath = filepath.Clean(repoPath)

		name := entry.Name
		if name == "" {
			name = filepath.Base(repoPath)
		}
		if err := model.ValidateRepoName(name); err != nil {
			return nil, fmt.Errorf("manifest %s: repos[%d]: %w", path, i, err)
		}
		if seen[name] {
			return nil, fmt.Errorf("manifest %s: duplicate repository name %q", path, name)
		}
		seen[name] = true

		target := entry.TargetBranch
		if target == "" {
			target = "main"
		}

		inputs = append(inputs, model.CreateInput{
			Repo: model.Repo{
				ID:   uuid.NewSHA1(uuid.NameSpaceURL, []byte("file://"+repoPath)),
				Name: name,
				Path: repoPath,
			},
			TargetBranch: target,
			StartFromRef: entry.StartFromRef,
		})
	}
	return inputs, nil
}

// Repos extracts the plain repository list from creation inputs, for
// operations (ensure, close) that do not need per-repo branch targets.
func Repos(inputs []model.CreateInput) []model.Repo {
	repos := make([]model.Repo, 0, len(inputs))
	for _, in := range inputs {
		repos = append(repos, in.Repo)
	}
	return repos
}

// MergeInputs pairs each manifest repository with its target branch for
// the merge close strategy.
func MergeInputs(inputs []model.CreateInput) []model.MergeInput {
	out := make([]model.MergeInput, 0, len(inputs))
	for _, in := range inputs {
		out = append(out, model.MergeInput{Repo: in.Repo, TargetBranch: in.TargetBranch})
	}
	return out
}
