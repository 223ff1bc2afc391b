package root

import (
	"fmt"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"

	"github.com/docker/mdattach/pkg/configfile"
)

func newConfigCmd(rf *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage user configuration",
		Long:  "View and change the configuration stored in ~/.mdattach/config.yaml",
		Example: `  # Show the current configuration
  mdattach config show

  # Upload to a server instead of the local store
  mdattach config set endpoint https://files.example.com/api/attachments`,
		GroupID: "advanced",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConfigShowCommand(cmd, rf)
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the current configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConfigShowCommand(cmd, rf)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show the path to the config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := rf.configManager()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), m.Path())
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:       "get <key>",
		Short:     "Print one configuration value",
		Args:      cobra.ExactArgs(1),
		ValidArgs: configfile.Keys(),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := rf.configManager()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			value, err := m.Get(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), value)
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:       "set <key> <value>",
		Short:     "Change one configuration value",
		Long:      "Change one configuration value. Keys: " + strings.Join(configfile.Keys(), ", "),
		Args:      cobra.ExactArgs(2),
		ValidArgs: configfile.Keys(),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := rf.configManager()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if err := m.Set(args[0], args[1]); err != nil {
				return err
			}
			return m.Save()
		},
	})

	return cmd
}

func runConfigShowCommand(cmd *cobra.Command, rf *rootFlags) error {
	cfg, err := rf.loadConfig()
	if err != nil {
		return err
	}

	data, err := yaml.MarshalWithOptions(cfg, yaml.IndentSequence(true), yaml.UseSingleQuote(false))
	if err != nil {
		return fmt.Errorf("failed to format config: %w", err)
	}

	fmt.Fprint(cmd.OutOrStdout(), string(data))
	return nil
}
