package cli

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/agentarena/agentarena/internal/compare"
	"github.com/agentarena/agentarena/internal/store"
)

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect stored comparison batches",
	}

	cmd.AddCommand(newHistoryListCmd())
	cmd.AddCommand(newHistoryShowCmd())
	cmd.AddCommand(newHistoryExportCmd())
	cmd.AddCommand(newHistoryClearCmd())

	return cmd
}

// openHistory opens the history database for the current config.
func openHistory() (*store.HistoryStore, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	if !cfg.History.Enabled {
		return nil, nil, fmt.Errorf("history is disabled in %s", paths.Config)
	}

	db, err := store.Open(paths.HistoryDBPath(cfg.History), log)
	if err != nil {
		return nil, nil, err
	}
	return store.NewHistoryStore(db), func() { db.Close() }, nil
}

func newHistoryListCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent comparison batches",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			hs, closeDB, err := openHistory()
			if err != nil {
				return err
			}
			defer closeDB()

			summaries, err := hs.ListBatches(limit)
			if err != nil {
				return err
			}
			if len(summaries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No batches stored.")
				return nil
			}

			for _, s := range summaries {
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %s  agents=%d failures=%d  %s\n",
					s.ID, s.StartedAt.Local().Format("2006-01-02 15:04:05"),
					s.Agents, s.Failures, truncate(s.Prompt, 60))
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of batches to list")
	return cmd
}

func newHistoryShowCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show <batch-id>",
		Short: "Show one stored batch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hs, closeDB, err := openHistory()
			if err != nil {
				return err
			}
			defer closeDB()

			batch, err := hs.GetBatch(args[0])
			if err != nil {
				return err
			}

			if asJSON {
				data, err := json.MarshalIndent(batch, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return nil
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Prompt: %s\n\n", batch.Prompt)
			printBatch(cmd, batch, nil)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the batch as JSON")
	return cmd
}

func newHistoryExportCmd() *cobra.Command {
	var outPath string

	cmd := &cobra.Command{
		Use:   "export <batch-id>",
		Short: "Write a stored batch as an export JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hs, closeDB, err := openHistory()
			if err != nil {
				return err
			}
			defer closeDB()

			batch, err := hs.GetBatch(args[0])
			if err != nil {
				return err
			}

			target := outPath
			if target == "" {
				if err := paths.EnsureDirs(); err != nil {
					return err
				}
				target = filepath.Join(paths.Exports, compare.ExportFilename(batch.StartedAt))
			}

			if err := batch.WriteExport(target); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported to %s\n", target)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outPath, "out", "o", "", "output file (default under the exports directory)")
	return cmd
}

func newHistoryClearCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete all stored batches",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("refusing to clear history without --yes")
			}

			hs, closeDB, err := openHistory()
			if err != nil {
				return err
			}
			defer closeDB()

			if err := hs.Clear(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "History cleared.")
			return nil
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "confirm deletion")
	return cmd
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}
