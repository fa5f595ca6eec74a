package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/dustin/go-humanize/english"
	"github.com/spf13/cobra"

	"github.com/semih-duru/agent-capabilities-simulator/internal/backup"
	"github.com/semih-duru/agent-capabilities-simulator/internal/constants"
	"github.com/semih-duru/agent-capabilities-simulator/internal/models"
	"github.com/semih-duru/agent-capabilities-simulator/internal/pathutil"
	"github.com/semih-duru/agent-capabilities-simulator/internal/render"
	"github.com/semih-duru/agent-capabilities-simulator/internal/sanitize"
	"github.com/semih-duru/agent-capabilities-simulator/internal/scenario"
	"github.com/semih-duru/agent-capabilities-simulator/internal/schema"
)

func newScenariosCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scenarios",
		Short: "Manage the scenario library",
		Long: `List, add, import, export and restore the scenarios offered during play.

The library backend is set by scenarios.backend (memory, file or sqlite).

Examples:
  agentsim scenarios list                    # Every scenario
  agentsim scenarios list --week 8           # Scenarios available by week 8
  agentsim scenarios show dev_framework_choice
  agentsim scenarios add my-scenario.yaml    # Add from YAML or JSON
  agentsim scenarios import playbook.md      # Extract scenarios from a document
  agentsim scenarios export                  # Compressed backup with retention
  agentsim scenarios restore backup.bak      # Add scenarios from a backup
  agentsim scenarios backups                 # List backups`,
	}

	cmd.AddCommand(
		newScenariosListCmd(),
		newScenariosShowCmd(),
		newScenariosAddCmd(),
		newScenariosImportCmd(),
		newScenariosExportCmd(),
		newScenariosRestoreCmd(),
		newScenariosBackupsCmd(),
	)
	return cmd
}

func newScenariosListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List scenarios",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			var list []models.Decision
			if cmd.Flags().Changed("week") {
				week, _ := cmd.Flags().GetInt("week")
				list, err = a.lib.ForWeek(cmd.Context(), week)
			} else {
				list, err = a.lib.All(cmd.Context())
			}
			if err != nil {
				return fmt.Errorf("failed to list scenarios: %w", err)
			}

			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]any{
					"scenarios": list,
					"count":     len(list),
				})
			}
			if len(list) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No scenarios.")
				return nil
			}
			render.Scenarios(cmd.OutOrStdout(), list)
			return nil
		},
	}
	cmd.Flags().Int("week", 0, "Only scenarios available by this week")
	return cmd
}

func newScenariosShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one scenario",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			d, err := a.lib.Get(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("scenario %s: %w", args[0], err)
			}
			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(d)
			}
			render.Scenario(cmd.OutOrStdout(), d)
			return nil
		},
	}
}

// readScenarioFile decodes a scenario file. JSON holds a single scenario
// and is checked against the decision schema; YAML may hold one or a list.
func readScenarioFile(path string) ([]models.Decision, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if strings.EqualFold(filepath.Ext(path), ".json") {
		d, err := schema.DecodeDecision(data)
		if err != nil {
			return nil, err
		}
		return []models.Decision{d}, nil
	}
	return scenario.ParseYAML(data)
}

func newScenariosAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <file>",
		Short: "Add scenarios from a YAML or JSON file",
		Long: `Add scenarios from a file. A JSON file holds one scenario; a YAML file
holds one scenario or a list. Scenarios whose id already exists are skipped.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			decisions, err := readScenarioFile(args[0])
			if err != nil {
				return err
			}
			for i := range decisions {
				sanitize.Decision(&decisions[i])
				scenario.AssignIDs(&decisions[i])
			}

			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			a.warnIfEphemeral(cmd)

			res, err := scenario.Import(cmd.Context(), a.lib, decisions)
			if err != nil {
				return fmt.Errorf("failed to add scenarios: %w", err)
			}
			return printImport(cmd, res, nil)
		},
	}
}

func newScenariosImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <document>",
		Short: "Extract scenarios from a text document with the content generator",
		Long: `Read a plain-text or Markdown document describing an agentic platform
and ask the configured content generator to turn it into scenarios.

Needs llm.enabled and a provider.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", args[0], err)
			}
			document := sanitize.Document(string(data))
			if document == "" {
				return fmt.Errorf("%s has no usable text", args[0])
			}

			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			if !a.gen.Available() {
				return fmt.Errorf("scenario import needs a content generator (set llm.enabled and llm.provider)")
			}
			a.warnIfEphemeral(cmd)

			ctx := cmd.Context()
			if a.cfg.LLM.Timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, a.cfg.LLM.Timeout)
				defer cancel()
			}
			extracted, err := a.gen.ExtractScenarios(ctx, document)
			if err != nil {
				return fmt.Errorf("scenario extraction failed: %w", err)
			}
			for i := range extracted {
				sanitize.Decision(&extracted[i])
				scenario.AssignIDs(&extracted[i])
			}

			res, err := scenario.ImportDistinct(cmd.Context(), a.lib, extracted, constants.DuplicateScenarioThreshold)
			if err != nil {
				return fmt.Errorf("failed to import scenarios: %w", err)
			}
			return printImport(cmd, res, extracted)
		},
	}
}

func printImport(cmd *cobra.Command, res scenario.ImportResult, scenarios []models.Decision) error {
	jsonOut, _ := cmd.Flags().GetBool("json")
	if jsonOut {
		out := map[string]any{
			"added":   res.Added,
			"skipped": res.Skipped,
			"message": fmt.Sprintf("Successfully added %d scenarios", len(res.Added)),
		}
		if scenarios != nil {
			out["scenarios"] = scenarios
		}
		return json.NewEncoder(cmd.OutOrStdout()).Encode(out)
	}
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Added %s\n", english.Plural(len(res.Added), "scenario", "scenarios"))
	for _, id := range res.Added {
		fmt.Fprintf(w, "  + %s\n", id)
	}
	for _, id := range res.Skipped {
		fmt.Fprintf(w, "  = %s (already exists)\n", id)
	}
	return nil
}

// backupDir returns backup.dir, defaulting to the data directory.
func (a *app) backupDir() string {
	if a.cfg.Backup.Dir != "" {
		return a.cfg.Backup.Dir
	}
	return backup.DefaultBackupDir(a.dataDir)
}

func newScenariosExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export [file]",
		Short: "Back up the scenario library",
		Long: `Write every scenario to a backup file. The default is a zstd-compressed
file in backup.dir; old backups there are pruned by backup.keep,
backup.max_age and backup.max_size. An explicit file must lie inside
backup.dir or the data directory.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			plain, _ := cmd.Flags().GetBool("no-compress")
			path := backup.GenerateBackupPath(a.backupDir())
			if plain {
				path = strings.TrimSuffix(path, ".bak") + ".json"
			}
			if len(args) == 1 {
				path, err = pathutil.Confine(args[0], []string{a.backupDir(), a.dataDir})
				if err != nil {
					return fmt.Errorf("backup path rejected: %w", err)
				}
			}

			count := 0
			if plain {
				if err := backup.WriteV1(cmd.Context(), a.lib, path); err != nil {
					return fmt.Errorf("backup failed: %w", err)
				}
				all, _ := a.lib.All(cmd.Context())
				count = len(all)
			} else {
				header, err := backup.Export(cmd.Context(), a.lib, path)
				if err != nil {
					return fmt.Errorf("backup failed: %w", err)
				}
				count = header.ScenarioCount
			}

			var pruned []string
			policy, err := backup.Policy(a.cfg.Backup.Keep, a.cfg.Backup.MaxAge, a.cfg.Backup.MaxSize)
			if err != nil {
				return fmt.Errorf("invalid backup retention: %w", err)
			}
			if policy != nil {
				pruned, err = backup.ApplyRetention(filepath.Dir(path), policy)
				if err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "warning: failed to apply retention: %v\n", err)
				}
			}

			var size int64
			if info, err := os.Stat(path); err == nil {
				size = info.Size()
			}
			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]any{
					"path":           path,
					"scenario_count": count,
					"compressed":     !plain,
					"size_bytes":     size,
					"pruned":         pruned,
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Backed up %s to %s (%s)\n",
				english.Plural(count, "scenario", "scenarios"), path, humanize.Bytes(uint64(size)))
			if len(pruned) > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "Pruned %s\n", english.Plural(len(pruned), "old backup", "old backups"))
			}
			return nil
		},
	}
	cmd.Flags().Bool("no-compress", false, "Write a plain JSON backup")
	return cmd
}

func newScenariosRestoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "restore <file>",
		Short: "Add scenarios from a backup file",
		Long:  `Add every scenario in a backup to the library. Existing ids are kept.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			a.warnIfEphemeral(cmd)

			res, err := backup.Restore(cmd.Context(), a.lib, args[0])
			if err != nil {
				return fmt.Errorf("restore failed: %w", err)
			}
			return printImport(cmd, res, nil)
		},
	}
}

func newScenariosBackupsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "backups",
		Short: "List scenario backups",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			list, err := backup.List(a.backupDir())
			if err != nil {
				return fmt.Errorf("failed to list backups: %w", err)
			}
			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]any{
					"backups": list,
					"count":   len(list),
				})
			}
			if len(list) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No backups.")
				return nil
			}
			for _, b := range list {
				fmt.Fprintf(cmd.OutOrStdout(), "%s  v%d  %8s  %s\n",
					filepath.Base(b.Path), b.Version, humanize.Bytes(uint64(b.Size)), humanize.Time(b.CreatedAt))
			}
			return nil
		},
	}
}
