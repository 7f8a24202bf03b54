package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/agentarena/agentarena/internal/bedrock"
	"github.com/agentarena/agentarena/internal/logging"
	"github.com/agentarena/agentarena/internal/metrics"
	"github.com/agentarena/agentarena/internal/server"
	"github.com/agentarena/agentarena/internal/store"
)

func newServeCmd() *cobra.Command {
	var (
		port int
		bind string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP/WebSocket API server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if port != 0 {
				cfg.Server.Port = port
			}
			if bind != "" {
				cfg.Server.Bind = bind
			}

			// The server honors the configured style; the root flag only
			// overrides the level.
			level := logLevel
			if level == "" {
				level = cfg.Logging.Level
			}
			log = logging.NewStyled(level, cfg.Logging.Style)

			if err := paths.EnsureDirs(); err != nil {
				return err
			}

			opts := []server.Option{server.WithMetrics(metrics.New())}
			if cfg.History.Enabled {
				db, err := store.Open(paths.HistoryDBPath(cfg.History), log)
				if err != nil {
					return err
				}
				defer db.Close()
				opts = append(opts, server.WithHistory(store.NewHistoryStore(db)))
			}

			client := bedrock.NewClient(cfg.Region, log)
			srv := server.New(cfg, client, log, opts...)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return srv.Start(ctx)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "listen port (overrides config)")
	cmd.Flags().StringVar(&bind, "bind", "", "bind mode: loopback or lan (overrides config)")

	return cmd
}
