// Package config implements the command that prints the effective configuration.
package config

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Samuel-Bradshaw/wcmc-solution/internal/conf"
)

// Command creates the config command.
func Command(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Long:  "Print the merged defaults, config file and environment settings as YAML. Credentials are redacted.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := settings.YAML()
			if err != nil {
				return fmt.Errorf("failed to render configuration: %w", err)
			}
			if used := conf.ConfigFileUsed(); used != "" {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "# loaded from %s\n", used)
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
}
