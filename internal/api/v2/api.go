// Package api implements the species survey JSON endpoints.
package api

import (
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/patrickmn/go-cache"

	"github.com/Samuel-Bradshaw/wcmc-solution/internal/conf"
	"github.com/Samuel-Bradshaw/wcmc-solution/internal/errors"
	"github.com/Samuel-Bradshaw/wcmc-solution/internal/logger"
	"github.com/Samuel-Bradshaw/wcmc-solution/internal/observability/metrics"
	"github.com/Samuel-Bradshaw/wcmc-solution/internal/survey"
)

// Controller manages the API routes and handlers
type Controller struct {
	Echo     *echo.Echo
	Group    *echo.Group
	Service  *survey.Service
	Settings *conf.Settings

	logger           logger.Logger
	metrics          *metrics.HTTPMetrics
	idempotencyCache *cache.Cache // replayed POST responses keyed by path and Idempotency-Key

	sweepStop chan struct{}
	sweepDone chan struct{}
	stopOnce  sync.Once
}

// Option is a functional option for configuring the Controller.
type Option func(*Controller)

// WithLogger overrides the controller logger.
func WithLogger(log logger.Logger) Option {
	return func(c *Controller) {
		if log != nil {
			c.logger = log
		}
	}
}

// WithMetrics records idempotent replays on m.
func WithMetrics(m *metrics.HTTPMetrics) Option {
	return func(c *Controller) {
		c.metrics = m
	}
}

// WithIdempotencyCache replaces the replay cache, mainly for tests.
func WithIdempotencyCache(store *cache.Cache) Option {
	return func(c *Controller) {
		c.idempotencyCache = store
	}
}

// New creates the API controller and registers its routes on e.
func New(e *echo.Echo, svc *survey.Service, settings *conf.Settings, opts ...Option) (*Controller, error) {
	if e == nil || svc == nil || settings == nil {
		return nil, errors.Newf("api controller requires echo, service and settings").
			Component(componentAPI).
			Category(errors.CategoryConfiguration).
			Build()
	}

	c := &Controller{
		Echo:     e,
		Group:    e.Group(""),
		Service:  svc,
		Settings: settings,
		logger:   logger.Global().Module("api"),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.idempotencyCache == nil {
		if ttl := settings.WebServer.IdempotencyTTL; ttl > 0 {
			// No go-cache janitor: it cannot be stopped. Expired entries
			// are swept by a loop that Shutdown ends.
			c.idempotencyCache = cache.New(ttl, 0)
			c.startSweeper(2 * ttl)
		}
	}

	c.initRoutes()
	return c, nil
}

// initRoutes registers all API endpoints
func (c *Controller) initRoutes() {
	c.initLocationRoutes()
	c.initSpeciesRoutes()
}

// Shutdown stops the replay cache sweeper and empties the cache. It is safe
// to call more than once.
func (c *Controller) Shutdown() {
	c.stopOnce.Do(func() {
		if c.sweepStop != nil {
			close(c.sweepStop)
			<-c.sweepDone
		}
		if c.idempotencyCache != nil {
			c.idempotencyCache.Flush()
		}
	})
}

func (c *Controller) startSweeper(interval time.Duration) {
	c.sweepStop = make(chan struct{})
	c.sweepDone = make(chan struct{})
	go func() {
		defer close(c.sweepDone)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-c.sweepStop:
				return
			case <-ticker.C:
				c.idempotencyCache.DeleteExpired()
			}
		}
	}()
}

func (c *Controller) recordReplay() {
	if c.metrics != nil {
		c.metrics.RecordIdempotentReplay()
	}
}
