package main

import (
	"context"
	"fmt"

	"github.com/nlowe/arbor/internal/config"
	"github.com/nlowe/arbor/internal/git"
)

// resolveTopology determines the repository topology from the current
// working directory and applies the parent directory override: flag
// beats config, config beats the default (parent of the main
// worktree).
func resolveTopology(ctx context.Context, dirFlag string) (git.Topology, error) {
	topo, err := git.ResolveTopology(ctx, workDir)
	if err != nil {
		return git.Topology{}, err
	}

	override := dirFlag
	if override == "" {
		override = cfg.ParentDir
	}
	if override != "" {
		expanded, err := config.ExpandPath(override)
		if err != nil {
			return git.Topology{}, fmt.Errorf("resolve parent directory: %w", err)
		}
		topo.ParentDir = expanded
	}
	return topo, nil
}
