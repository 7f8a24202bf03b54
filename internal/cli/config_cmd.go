package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/agentarena/agentarena/internal/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and manage configuration",
	}

	cmd.AddCommand(newConfigPathCmd())
	cmd.AddCommand(newConfigShowCmd())
	cmd.AddCommand(newConfigValidateCmd())
	cmd.AddCommand(newConfigInitCmd())

	return cmd
}

func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the config file path",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(paths.Config)
		},
	}
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(paths.Config)
			if err != nil {
				return err
			}

			// Never echo resolved secrets.
			if cfg.Server.Auth.Token != "" {
				cfg.Server.Auth.Token = "(set)"
			}

			data, err := yaml.Marshal(cfg)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), string(data))
			return nil
		},
	}
}

func newConfigValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the config file for problems",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(paths.Config)
			if err != nil {
				return err
			}

			issues := config.Validate(&cfg)
			if len(issues) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Configuration is valid.")
				return nil
			}

			for _, issue := range issues {
				fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", issue)
			}
			return fmt.Errorf("%d configuration issue(s) found", len(issues))
		},
	}
}

func newConfigInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a starter config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(paths.Config); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", paths.Config)
			}

			if err := paths.EnsureDirs(); err != nil {
				return err
			}

			cfg := config.Defaults()
			cfg.Agents = []config.AgentEntry{
				{Name: "Agent 1", AgentID: "YOUR_AGENT_ID", AgentAliasID: "YOUR_ALIAS_ID"},
				{Name: "Agent 2", AgentID: "YOUR_AGENT_ID", AgentAliasID: "YOUR_ALIAS_ID"},
			}

			if err := config.Save(paths.Config, cfg); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", paths.Config)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config file")
	return cmd
}
