package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/agentarena/agentarena/internal/bedrock"
	"github.com/agentarena/agentarena/internal/compare"
	"github.com/agentarena/agentarena/internal/config"
	"github.com/agentarena/agentarena/internal/store"
)

func newCompareCmd() *cobra.Command {
	var (
		region     string
		exportPath string
		asJSON     bool
		noHistory  bool
	)

	cmd := &cobra.Command{
		Use:   "compare <prompt>",
		Short: "Send one prompt to every configured agent and compare the responses",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if region != "" {
				cfg.Region = region
			}
			if len(cfg.Agents) == 0 {
				return fmt.Errorf("no agents configured; add agents to %s", paths.Config)
			}

			prompt := strings.Join(args, " ")

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			client := bedrock.NewClient(cfg.Region, log)
			comparer := compare.New(client, log,
				compare.WithMaxWorkers(cfg.Compare.MaxWorkers),
				compare.WithOnResult(func(agent string, r compare.Result) {
					status := "ok"
					if !r.Success {
						status = "failed"
					}
					log.Info().Str("agent", agent).Str("status", status).Msg("agent finished")
				}),
			)

			batch, err := comparer.Run(ctx, prompt, agentConfigs(cfg.Agents))
			if err != nil {
				return err
			}

			if !noHistory && cfg.History.Enabled {
				if err := saveToHistory(cfg, batch); err != nil {
					log.Warn().Err(err).Msg("saving history failed")
				}
			}

			if exportPath != "" {
				target, err := resolveExportPath(exportPath, batch.StartedAt)
				if err != nil {
					return err
				}
				if err := batch.WriteExport(target); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Exported to %s\n", target)
			}

			if asJSON {
				data, err := json.MarshalIndent(batch, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return nil
			}

			printBatch(cmd, batch, agentNames(cfg.Agents))
			return nil
		},
	}

	cmd.Flags().StringVar(&region, "region", "", "override the configured AWS region")
	cmd.Flags().StringVarP(&exportPath, "export", "o", "", "write the result JSON to a file or directory")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full batch as JSON")
	cmd.Flags().BoolVar(&noHistory, "no-history", false, "skip saving this run to history")

	return cmd
}

// resolveExportPath turns a directory target into a timestamped file inside it.
func resolveExportPath(path string, startedAt time.Time) (string, error) {
	info, err := os.Stat(path)
	if err == nil && info.IsDir() {
		return filepath.Join(path, compare.ExportFilename(startedAt)), nil
	}
	if err != nil && !os.IsNotExist(err) {
		return "", err
	}
	return path, nil
}

func saveToHistory(cfg config.Config, batch *compare.Batch) error {
	if err := paths.EnsureDirs(); err != nil {
		return err
	}
	db, err := store.Open(paths.HistoryDBPath(cfg.History), log)
	if err != nil {
		return err
	}
	defer db.Close()
	return store.NewHistoryStore(db).SaveBatch(batch)
}

// printBatch renders responses and a summary table in config order.
func printBatch(cmd *cobra.Command, batch *compare.Batch, order []string) {
	out := cmd.OutOrStdout()

	for _, name := range order {
		r, ok := batch.Results[name]
		if !ok {
			continue
		}
		fmt.Fprintf(out, "=== %s ===\n", name)
		if r.Success {
			fmt.Fprintln(out, r.Response)
		} else {
			fmt.Fprintf(out, "ERROR: %s\n", r.Error)
		}
		fmt.Fprintln(out)
	}

	fmt.Fprintln(out, "Summary:")
	for _, row := range batch.Summary(order) {
		status := "✅"
		if !row.Success {
			status = "❌"
		}
		fmt.Fprintf(out, "  %s %-20s %6d chars  %s\n", status, row.Model, row.ResponseLength, row.Timestamp)
	}
	fmt.Fprintf(out, "Batch %s finished in %s\n", batch.ID, batch.Duration.Round(time.Millisecond))
}

func agentConfigs(entries []config.AgentEntry) []compare.AgentConfig {
	agents := make([]compare.AgentConfig, len(entries))
	for i, e := range entries {
		agents[i] = compare.AgentConfig{
			Name:         e.Name,
			AgentID:      e.AgentID,
			AgentAliasID: e.AgentAliasID,
			SessionID:    e.SessionID,
		}
	}
	return agents
}

func agentNames(entries []config.AgentEntry) []string {
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name
	}
	return names
}
