// Package report implements the command that prints the per-phylum report
// from a running survey API.
package report

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Samuel-Bradshaw/wcmc-solution/internal/conf"
	"github.com/Samuel-Bradshaw/wcmc-solution/internal/logger"
	"github.com/Samuel-Bradshaw/wcmc-solution/internal/observability"
	"github.com/Samuel-Bradshaw/wcmc-solution/internal/reportclient"
)

// Command creates the report command.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print the most observed species of every phylum",
		Long: `Fetch every species and its observation locations from the survey API and
print, per phylum, the species observed at the most locations.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := observability.NewMetrics()
			if err != nil {
				return err
			}

			client, err := reportclient.NewFromSettings(&settings.Report,
				reportclient.WithLogger(logger.Global().Module("report")),
				reportclient.WithRecorder(m.Report))
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintln(cmd.ErrOrStderr(), "Fetching species data from", settings.Report.BaseURL)
			summary, err := client.Run(cmd.Context())
			if err != nil {
				return err
			}
			return reportclient.WriteTable(cmd.OutOrStdout(), summary)
		},
	}

	if err := setupFlags(cmd); err != nil {
		panic(err)
	}
	return cmd
}

// setupFlags configures flags specific to the report command.
func setupFlags(cmd *cobra.Command) error {
	cmd.Flags().String("base-url", "http://localhost:8000", "Base URL of the survey API")
	cmd.Flags().Int("concurrency", 4, "Maximum concurrent location requests")
	cmd.Flags().Float64("rate-limit", 0, "Maximum requests per second (0 = unlimited)")

	for key, flag := range map[string]string{
		"report.base_url":    "base-url",
		"report.concurrency": "concurrency",
		"report.rate_limit":  "rate-limit",
	} {
		if err := viper.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
			return fmt.Errorf("error binding flags: %w", err)
		}
	}
	return nil
}
