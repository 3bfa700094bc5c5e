// Package app assembles the long-lived application state shared by the
// command line entry points.
package app

import (
	"context"
	"time"

	"github.com/Samuel-Bradshaw/wcmc-solution/internal/buildinfo"
	"github.com/Samuel-Bradshaw/wcmc-solution/internal/conf"
	"github.com/Samuel-Bradshaw/wcmc-solution/internal/datastore"
	"github.com/Samuel-Bradshaw/wcmc-solution/internal/logger"
	"github.com/Samuel-Bradshaw/wcmc-solution/internal/observability"
	"github.com/Samuel-Bradshaw/wcmc-solution/internal/survey"
)

// connectionMonitorInterval is how often pool statistics are published.
const connectionMonitorInterval = 15 * time.Second

// Context holds the overall application state: settings, the database and
// the survey service built on it.
type Context struct {
	Settings *conf.Settings
	Build    *buildinfo.Context
	Metrics  *observability.Metrics

	Manager datastore.Manager
	Store   *datastore.Store
	Service *survey.Service

	log    logger.Logger
	cancel context.CancelFunc
}

// Open connects to the configured database, migrates the schema and builds
// the survey service.
func Open(ctx context.Context, settings *conf.Settings, build *buildinfo.Context) (*Context, error) {
	log := logger.Global().Module("app")

	m, err := observability.NewMetrics()
	if err != nil {
		return nil, err
	}

	mgr, err := datastore.Open(&settings.Database, logger.Global().Module("datastore"))
	if err != nil {
		return nil, err
	}
	if err := mgr.Initialize(ctx); err != nil {
		_ = mgr.Close()
		return nil, err
	}

	store := datastore.NewStore(mgr.DB(), datastore.WithMetrics(m.Datastore))

	monitorCtx, cancel := context.WithCancel(context.Background())
	go datastore.MonitorConnections(monitorCtx, mgr, m.Datastore, connectionMonitorInterval)

	log.Info("datastore ready",
		logger.String("type", settings.Database.Type),
		logger.String("path", mgr.Path()),
		logger.String("version", build.Version()))

	return &Context{
		Settings: settings,
		Build:    build,
		Metrics:  m,
		Manager:  mgr,
		Store:    store,
		Service:  newService(store),
		log:      log,
		cancel:   cancel,
	}, nil
}

func newService(store *datastore.Store, opts ...survey.Option) *survey.Service {
	return survey.NewService(store, append([]survey.Option{survey.WithLogger(logger.Global().Module("survey"))}, opts...)...)
}

// Close stops background monitoring and closes the database.
func (c *Context) Close() error {
	if c.cancel != nil {
		c.cancel()
	}
	if c.Manager == nil {
		return nil
	}
	if err := c.Manager.Close(); err != nil {
		c.log.Warn("failed to close datastore", logger.Error(err))
		return err
	}
	return nil
}
