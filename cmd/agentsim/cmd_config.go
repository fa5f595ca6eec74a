package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/semih-duru/agent-capabilities-simulator/internal/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage agentsim configuration",
		Long: `View and modify agentsim configuration settings.

Configuration is stored in ~/.agentsim/config.yaml unless --config is given.
Environment variables (AGENTSIM_*, provider API keys) and a .env file in the
working directory override the file.

Examples:
  agentsim config list                            # Show effective settings
  agentsim config get game.initial_budget         # Get a specific setting
  agentsim config set llm.provider anthropic      # Set a setting
  agentsim config set scenarios.backend sqlite`,
	}

	cmd.AddCommand(
		newConfigListCmd(),
		newConfigGetCmd(),
		newConfigSetCmd(),
	)

	return cmd
}

func newConfigListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all configuration settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				values := make(map[string]any, len(config.Keys()))
				for _, key := range config.Keys() {
					values[key], _ = cfg.Get(key)
				}
				return json.NewEncoder(cmd.OutOrStdout()).Encode(values)
			}

			for _, key := range config.Keys() {
				value, _ := cfg.Get(key)
				fmt.Fprintf(cmd.OutOrStdout(), "  %-34s %s\n", key+":", valueOrDefault(value))
			}
			return nil
		},
	}
}

func newConfigGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Get a configuration value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			value, found := cfg.Get(key)
			if !found {
				return fmt.Errorf("unknown configuration key: %s", key)
			}

			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]any{
					"key":   key,
					"value": value,
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s = %v\n", key, value)
			return nil
		},
	}
}

func newConfigSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Long: `Set a configuration value in the config file. Only the file is edited;
environment overrides are not written back.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, value := args[0], args[1]

			path, err := configPath(cmd)
			if err != nil {
				return err
			}
			cfg, err := config.LoadFileOrDefault(path)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if err := cfg.Set(key, value); err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid value for %s: %w", key, err)
			}
			if err := cfg.Save(path); err != nil {
				return err
			}

			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				stored, _ := cfg.Get(key)
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]any{
					"key":   key,
					"value": stored,
					"path":  path,
				})
			}
			stored, _ := cfg.Get(key)
			fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %v\n", key, stored)
			return nil
		},
	}
}

// valueOrDefault renders unset values as "(not set)".
func valueOrDefault(v any) string {
	if s := fmt.Sprintf("%v", v); s != "" {
		return s
	}
	return "(not set)"
}
