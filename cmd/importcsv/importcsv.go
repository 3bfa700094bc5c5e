// Package importcsv implements the command that bulk imports survey CSV files.
package importcsv

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Samuel-Bradshaw/wcmc-solution/internal/app"
	"github.com/Samuel-Bradshaw/wcmc-solution/internal/buildinfo"
	"github.com/Samuel-Bradshaw/wcmc-solution/internal/conf"
	"github.com/Samuel-Bradshaw/wcmc-solution/internal/importer"
	"github.com/Samuel-Bradshaw/wcmc-solution/internal/logger"
)

type options struct {
	watchDir string
}

// Command creates the import command.
func Command(settings *conf.Settings, build *buildinfo.Context) *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "import [file.csv | s3://bucket/key ...]",
		Short: "Import survey CSV files",
		Long: `Import species observations from CSV files. Each file is imported in a
single transaction: a malformed row rolls the whole file back.

With --watch, every *.csv file created in the directory is imported once it
stops changing.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && opts.watchDir == "" {
				return fmt.Errorf("nothing to import: give at least one source or --watch DIR")
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return run(ctx, cmd, settings, build, opts, args)
		},
	}

	if err := setupFlags(cmd, opts); err != nil {
		panic(err)
	}
	return cmd
}

func run(ctx context.Context, cmd *cobra.Command, settings *conf.Settings, build *buildinfo.Context, opts *options, sources []string) error {
	a, err := app.Open(ctx, settings, build)
	if err != nil {
		return fmt.Errorf("failed to open datastore: %w", err)
	}
	defer func() { _ = a.Close() }()

	im := importer.New(a.Service,
		importer.WithLogger(logger.Global().Module("importer")),
		importer.WithRecorder(a.Metrics.Import))
	opener := &importer.Sources{Settings: &settings.Import.S3}

	// Each source commits on its own, so a failure leaves earlier sources in place.
	for i, source := range sources {
		result, err := im.ImportFrom(ctx, opener, source)
		if err != nil {
			return fmt.Errorf("import of %s failed and was rolled back, %d earlier source(s) stay committed: %w", source, i, err)
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s: %d rows, %d species, %d locations in %s\n",
			source, result.Rows, result.Species, result.Locations, result.Duration.Round(time.Millisecond))
	}

	if opts.watchDir == "" {
		return nil
	}

	watcher := im.NewWatcher(opts.watchDir, settings.Import.WatchDebounce, func(path string, result *importer.Result, err error) {
		if err != nil {
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "%s: import failed: %v\n", path, err)
			return
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s: %d rows\n", path, result.Rows)
	})
	return watcher.Run(ctx)
}

// setupFlags configures flags specific to the import command.
func setupFlags(cmd *cobra.Command, opts *options) error {
	cmd.Flags().StringVarP(&opts.watchDir, "watch", "w", "", "Watch a directory and import new CSV files")
	cmd.Flags().Duration("debounce", importer.DefaultWatchDebounce, "Quiet period before a watched file is imported")
	cmd.Flags().String("s3-endpoint", "", "S3 compatible endpoint for s3:// sources")

	for key, flag := range map[string]string{
		"import.watch_debounce": "debounce",
		"import.s3.endpoint":    "s3-endpoint",
	} {
		if err := viper.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
			return fmt.Errorf("error binding flags: %w", err)
		}
	}
	return nil
}
