package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Samuel-Bradshaw/wcmc-solution/cmd/config"
	"github.com/Samuel-Bradshaw/wcmc-solution/cmd/importcsv"
	"github.com/Samuel-Bradshaw/wcmc-solution/cmd/report"
	"github.com/Samuel-Bradshaw/wcmc-solution/cmd/serve"
	"github.com/Samuel-Bradshaw/wcmc-solution/internal/buildinfo"
	"github.com/Samuel-Bradshaw/wcmc-solution/internal/conf"
	"github.com/Samuel-Bradshaw/wcmc-solution/internal/logger"
	"github.com/Samuel-Bradshaw/wcmc-solution/internal/telemetry"
)

// RootCommand creates and returns the root command. settings is filled in
// before any subcommand runs.
func RootCommand(settings *conf.Settings, build *buildinfo.Context) *cobra.Command {
	var configFile string

	rootCmd := &cobra.Command{
		Use:          "wcmc-survey",
		Short:        "Species observation survey service",
		Version:      build.String(),
		SilenceUsage: true,
	}

	// Set up the global flags for the root command.
	if err := setupFlags(rootCmd, &configFile); err != nil {
		panic(err)
	}

	rootCmd.AddCommand(
		serve.Command(settings, build),
		importcsv.Command(settings, build),
		report.Command(settings),
		config.Command(settings),
	)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return initialize(settings, build, configFile)
	}
	rootCmd.PersistentPostRun = func(cmd *cobra.Command, args []string) {
		telemetry.Shutdown()
		_ = logger.Global().Flush()
	}

	return rootCmd
}

// initialize loads configuration, sets up logging and error telemetry.
// Flags bound to viper take precedence over the file and environment.
func initialize(settings *conf.Settings, build *buildinfo.Context, configFile string) error {
	loaded, err := conf.Load(configFile)
	if err != nil {
		return err
	}
	*settings = *loaded

	if settings.Debug {
		settings.Logging.DefaultLevel = "debug"
		if settings.Logging.Console != nil {
			settings.Logging.Console.Level = "debug"
		}
	}

	central, err := logger.NewCentralLogger(&settings.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	logger.SetGlobal(central)

	if _, err := telemetry.Init(settings, build.Version()); err != nil {
		logger.Global().Module("main").Warn("error telemetry disabled", logger.Error(err))
	}

	logger.Global().Module("main").Debug("configuration loaded",
		logger.String("config_file", conf.ConfigFileUsed()),
		logger.String("version", build.Version()),
		logger.Time("started", time.Now()))
	return nil
}

// setupFlags defines flags that are global to the command line interface.
func setupFlags(rootCmd *cobra.Command, configFile *string) error {
	rootCmd.PersistentFlags().StringVarP(configFile, "config", "c", "", "Path to config.yaml (default: search ., ~/.config/wcmc-survey, /etc/wcmc-survey)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug output")

	if err := viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug")); err != nil {
		return fmt.Errorf("error binding flags: %w", err)
	}
	return nil
}
