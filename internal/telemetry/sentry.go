// Package telemetry provides opt-in, privacy-filtered error reporting to Sentry.
package telemetry

import (
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/Samuel-Bradshaw/wcmc-solution/internal/conf"
	"github.com/Samuel-Bradshaw/wcmc-solution/internal/errors"
	"github.com/Samuel-Bradshaw/wcmc-solution/internal/logger"
)

// DefaultFlushTimeout bounds how long Flush waits for queued events on exit.
const DefaultFlushTimeout = 2 * time.Second

var initialized atomic.Bool

// Option adjusts the Sentry client options before initialisation.
type Option func(*sentry.ClientOptions)

// WithTransport replaces the event transport.
func WithTransport(t sentry.Transport) Option {
	return func(o *sentry.ClientOptions) {
		o.Transport = t
	}
}

// Init initialises Sentry when it is enabled in settings and routes built
// errors of reportable categories to it. It returns false when telemetry
// stays off.
func Init(settings *conf.Settings, release string, opts ...Option) (bool, error) {
	log := logger.Global().Module("telemetry")

	if !settings.Sentry.Enabled {
		log.Debug("sentry telemetry is disabled")
		errors.SetTelemetryReporter(nil)
		return false, nil
	}
	if settings.Sentry.DSN == "" {
		return false, errors.Newf("sentry is enabled but no DSN is configured").
			Component("telemetry").
			Category(errors.CategoryConfiguration).
			Build()
	}

	sampleRate := settings.Sentry.SampleRate
	if sampleRate <= 0 || sampleRate > 1 {
		sampleRate = 1.0
	}

	options := sentry.ClientOptions{
		Dsn:              settings.Sentry.DSN,
		Environment:      settings.Sentry.Environment,
		Release:          fmt.Sprintf("wcmc-survey@%s", release),
		SampleRate:       sampleRate,
		AttachStacktrace: false,
		ServerName:       "", // hostname must not leave the machine
		BeforeSend:       applyPrivacyFilters,
	}
	for _, opt := range opts {
		opt(&options)
	}

	if err := sentry.Init(options); err != nil {
		return false, fmt.Errorf("sentry initialization failed: %w", err)
	}

	sentry.ConfigureScope(func(scope *sentry.Scope) {
		scope.SetTag("instance", settings.Main.Name)
		scope.SetTag("os", runtime.GOOS)
		scope.SetTag("arch", runtime.GOARCH)
		scope.SetTag("database", settings.Database.Type)
	})

	errors.SetTelemetryReporter(errors.NewSentryReporter(true))
	initialized.Store(true)

	log.Info("sentry telemetry initialized",
		logger.String("environment", settings.Sentry.Environment),
		logger.Float64("sample_rate", sampleRate))
	return true, nil
}

// Flush waits up to timeout for queued events to be delivered.
func Flush(timeout time.Duration) bool {
	if !initialized.Load() {
		return true
	}
	return sentry.Flush(timeout)
}

// Shutdown flushes pending events and detaches error reporting.
func Shutdown() {
	if !initialized.Load() {
		return
	}
	errors.SetTelemetryReporter(nil)
	sentry.Flush(DefaultFlushTimeout)
	initialized.Store(false)
}

// applyPrivacyFilters strips host and user identifying data from every event.
func applyPrivacyFilters(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
	event.User = sentry.User{}
	event.ServerName = ""
	event.Request = nil

	if event.Contexts != nil {
		delete(event.Contexts, "device")
		delete(event.Contexts, "os")
		delete(event.Contexts, "runtime")
	}
	if event.Tags != nil {
		delete(event.Tags, "server_name")
		delete(event.Tags, "hostname")
	}
	return event
}
