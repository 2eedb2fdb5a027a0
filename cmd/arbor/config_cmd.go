package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nlowe/arbor/internal/config"
	"github.com/nlowe/arbor/internal/output"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "config",
		Short:   "Manage configuration",
		Aliases: []string{"cfg"},
		GroupID: GroupConfig,
		Long: `Manage arbor configuration.

The config file lives at ~/.config/arbor/config.toml.`,
		Example: `  arbor config init   # Create default config
  arbor config show   # Show effective config`,
	}

	cmd.AddCommand(newConfigInitCmd())
	cmd.AddCommand(newConfigShowCmd())

	return cmd
}

func newConfigInitCmd() *cobra.Command {
	var (
		force  bool
		stdout bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create default config file",
		Args:  cobra.NoArgs,
		Example: `  arbor config init      # Create config if missing
  arbor config init -f   # Overwrite existing config
  arbor config init -s   # Print default config to stdout`,
		RunE: func(cmd *cobra.Command, args []string) error {
			content := defaultConfigTOML()

			if stdout {
				fmt.Print(content)
				return nil
			}

			configPath, err := config.Path()
			if err != nil {
				return err
			}

			if !force {
				if _, err := os.Stat(configPath); err == nil {
					return fmt.Errorf("config file already exists: %s (use -f to overwrite)", configPath)
				}
			}

			if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
				return err
			}
			if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
				return err
			}

			fmt.Printf("Created config file: %s\n", configPath)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite existing config")
	cmd.Flags().BoolVarP(&stdout, "stdout", "s", false, "Print config to stdout")

	return cmd
}

func newConfigShowCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := output.FromContext(cmd.Context())

			if asJSON {
				return out.JSON(cfg)
			}

			configPath, err := config.Path()
			if err == nil {
				out.Printf("# %s\n", configPath)
			}
			out.Printf("parent_dir      = %q\n", cfg.ParentDir)
			out.Printf("worktree_format = %q\n", cfg.WorktreeFormat)
			out.Printf("dirty_policy    = %q\n", cfg.DirtyPolicy)
			out.Printf("fetch_timeout   = %q\n", cfg.FetchTimeout.Duration)
			out.Printf("cache_file      = %q\n", cfg.CacheFile)

			names := make([]string, 0, len(cfg.Hooks))
			for name := range cfg.Hooks {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				hook := cfg.Hooks[name]
				out.Printf("\n[hooks.%s]\n", name)
				out.Printf("command = %q\n", hook.Command)
				if len(hook.On) > 0 {
					out.Printf("on = [%q]\n", strings.Join(hook.On, `", "`))
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")

	return cmd
}

// defaultConfigTOML is the commented config template written by
// `arbor config init`.
func defaultConfigTOML() string {
	return `# arbor configuration

# Where sibling worktrees are created.
# Default: the parent directory of the main checkout.
# parent_dir = "~/src/worktrees"

# Directory name template for new worktrees.
# Placeholders: {project}, {branch}
worktree_format = "` + config.DefaultWorktreeFormat + `"

# How 'archive' treats worktrees with uncommitted changes:
# skip, stash, force or prompt.
dirty_policy = "prompt"

# Remote fetch timeout for 'clean'.
fetch_timeout = "30s"

# Include-pattern file (gitignore subset) read from the main checkout
# to seed new worktrees with build caches.
cache_file = "` + config.DefaultCacheFile + `"

# Hooks run after commands. Placeholders: {{path}}, {{branch}},
# {{main}}, {{project}}, {{trigger}}.
# [hooks.ide]
# command = "code {{path}}"
# on = ["new"]
`
}
