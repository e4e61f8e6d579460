package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/amanchunk/configs"
	"github.com/Aman-CERP/amanchunk/internal/config"
	amerrors "github.com/Aman-CERP/amanchunk/internal/errors"
	"github.com/Aman-CERP/amanchunk/internal/logging"
	"github.com/Aman-CERP/amanchunk/internal/output"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
		Long: `Inspect and create amanchunk configuration files.

Configuration precedence (lowest to highest):
  1. Hardcoded defaults
  2. User config (~/.config/amanchunk/config.yaml)
  3. Project config (.amanchunk.yaml)
  4. Environment variables (AMANCHUNK_*)
  5. Command-line flags`,
		Example: `  # Create a project config in the current directory
  amanchunk config init

  # Show effective configuration (merged from all sources)
  amanchunk config show

  # Print config and log file paths
  amanchunk config path`,
	}

	cmd.AddCommand(newConfigInitCmd())
	cmd.AddCommand(newConfigShowCmd())
	cmd.AddCommand(newConfigPathCmd())

	return cmd
}

func newConfigInitCmd() *cobra.Command {
	var (
		force bool
		user  bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a commented configuration file with the defaults",
		Long: `Write a commented configuration template holding the defaults to
.amanchunk.yaml in the current directory, or to the user config file
with --user.`,
		Example: `  # Create project config
  amanchunk config init

  # Create user config, replacing an existing one
  amanchunk config init --user --force`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, template := config.ProjectConfigYAML, configs.ProjectConfigTemplate
			if user {
				path, template = config.GetUserConfigPath(), configs.UserConfigTemplate
			}
			return runConfigInit(cmd, path, template, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing configuration")
	cmd.Flags().BoolVar(&user, "user", false, "Write the user config instead of the project config")

	return cmd
}

func runConfigInit(cmd *cobra.Command, path, template string, force bool) error {
	out := output.New(cmd.OutOrStdout())

	if _, err := os.Stat(path); err == nil && !force {
		return amerrors.New(amerrors.ErrCodeConfigExists, "configuration already exists", nil).
			WithDetail("file", path).
			WithSuggestion("use --force to overwrite it")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return amerrors.New(amerrors.ErrCodeConfigPermission, "failed to create config directory", err).
			WithDetail("file", path)
	}
	if err := os.WriteFile(path, []byte(template), 0o644); err != nil {
		return amerrors.New(amerrors.ErrCodeConfigPermission, "failed to write config file", err).
			WithDetail("file", path)
	}

	out.Success("Created configuration")
	out.Statusf("📁", "Location: %s", path)
	out.Status("💡", "Run 'amanchunk config show' to verify")
	return nil
}

func newConfigShowCmd() *cobra.Command {
	var (
		jsonOutput bool
		defaults   bool
	)

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show effective configuration",
		Long: `Show the configuration after merging defaults, the user config,
the project config and environment variables.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.NewConfig()
			if !defaults {
				var err error
				if cfg, err = loadConfig(); err != nil {
					return err
				}
			}

			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(cfg)
			}

			data, err := cfg.YAML()
			if err != nil {
				return amerrors.InternalError("failed to render config", err)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().BoolVar(&defaults, "defaults", false, "Show built-in defaults only")

	return cmd
}

func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print configuration and log file paths",
		RunE: func(cmd *cobra.Command, _ []string) error {
			root, err := config.FindProjectRoot(".")
			if err != nil {
				return amerrors.ConfigError("failed to locate project root", err)
			}
			project, ok := config.ProjectConfigPath(root)
			if !ok {
				project = fmt.Sprintf("%s (not found)", filepath.Join(root, config.ProjectConfigYAML))
			}
			user := config.GetUserConfigPath()
			if !config.UserConfigExists() {
				user += " (not found)"
			}

			output.New(cmd.OutOrStdout()).Table([][2]string{
				{"user", user},
				{"project", project},
				{"log", logging.DefaultLogPath()},
			})
			return nil
		},
	}
}
