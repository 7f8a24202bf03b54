// Package cli implements the agentarena command-line interface.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/agentarena/agentarena/internal/config"
	"github.com/agentarena/agentarena/internal/logging"
)

var (
	cfgFile  string
	logLevel string

	// loaded at init time
	paths config.Paths
	log   *logging.Logger
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agentarena",
		Short: "Agentarena — compare Bedrock agents side by side",
		Long:  "Agentarena sends one prompt to several Amazon Bedrock agents in parallel and lines the responses up for comparison.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			paths, err = config.ResolvePaths()
			if err != nil {
				return err
			}
			if cfgFile != "" {
				paths.Config = cfgFile
			}
			level := logLevel
			if level == "" {
				level = "info"
			}
			log = logging.New(nil, level)
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.agentarena/config.yaml)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (trace, debug, info, warn, error, fatal, silent)")

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newCompareCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newHistoryCmd())
	cmd.AddCommand(newConfigCmd())

	return cmd
}

// loadConfig reads the resolved config file and reports validation issues.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(paths.Config)
	if err != nil {
		return cfg, err
	}
	if issues := config.Validate(&cfg); len(issues) > 0 {
		return cfg, &config.ConfigError{Message: "invalid configuration: " + issues[0].String()}
	}
	return cfg, nil
}

// Execute runs the root command.
func Execute() error {
	return newRootCmd().Execute()
}
