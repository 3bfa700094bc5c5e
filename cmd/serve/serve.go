// Package serve implements the command that runs the survey HTTP API.
package serve

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Samuel-Bradshaw/wcmc-solution/internal/api"
	"github.com/Samuel-Bradshaw/wcmc-solution/internal/app"
	"github.com/Samuel-Bradshaw/wcmc-solution/internal/buildinfo"
	"github.com/Samuel-Bradshaw/wcmc-solution/internal/conf"
	"github.com/Samuel-Bradshaw/wcmc-solution/internal/logger"
)

// Command creates the serve command.
func Command(settings *conf.Settings, build *buildinfo.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the survey HTTP API",
		Long:  "Serve the species survey API until interrupted. Observation events are published to MQTT when enabled.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return run(ctx, settings, build)
		},
	}

	if err := setupFlags(cmd); err != nil {
		panic(err)
	}
	return cmd
}

func run(ctx context.Context, settings *conf.Settings, build *buildinfo.Context) error {
	log := logger.Global().Module("main")

	a, err := app.Open(ctx, settings, build)
	if err != nil {
		return fmt.Errorf("failed to open datastore: %w", err)
	}
	defer func() { _ = a.Close() }()

	stopEvents := a.StartEvents(ctx)
	defer stopEvents()

	server, err := api.New(settings, a.Service,
		api.WithLogger(logger.Global().Module("api")),
		api.WithMetrics(a.Metrics),
		api.WithHealthCheck(a.Store))
	if err != nil {
		return err
	}

	log.Info("survey service starting",
		logger.String("version", build.Version()),
		logger.String("listen", settings.WebServer.Listen))

	return server.Start(ctx)
}

// setupFlags configures flags specific to the serve command.
func setupFlags(cmd *cobra.Command) error {
	cmd.Flags().String("listen", conf.DefaultListen, "Listen address of the HTTP API")
	cmd.Flags().Bool("mqtt", false, "Publish observation events to MQTT")

	// Bind flags to the viper settings
	for key, flag := range map[string]string{
		"webserver.listen": "listen",
		"mqtt.enabled":     "mqtt",
	} {
		if err := viper.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
			return fmt.Errorf("error binding flags: %w", err)
		}
	}
	return nil
}
