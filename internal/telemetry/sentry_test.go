package telemetry

import (
	"fmt"
	"testing"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Samuel-Bradshaw/wcmc-solution/internal/conf"
	"github.com/Samuel-Bradshaw/wcmc-solution/internal/errors"
)

// These tests share the global Sentry hub and error reporter, so none run in parallel.

func enabledSettings() *conf.Settings {
	settings := &conf.Settings{}
	settings.Main.Name = "survey-test"
	settings.Database.Type = "sqlite"
	settings.Sentry.Enabled = true
	settings.Sentry.DSN = "https://public@sentry.example.com/1"
	settings.Sentry.Environment = "test"
	return settings
}

func TestInitDisabled(t *testing.T) {
	enabled, err := Init(&conf.Settings{}, "dev")
	require.NoError(t, err)
	assert.False(t, enabled)
	assert.Nil(t, errors.GetTelemetryReporter())
	assert.True(t, Flush(time.Millisecond))
}

func TestInitRequiresDSN(t *testing.T) {
	settings := enabledSettings()
	settings.Sentry.DSN = ""

	enabled, err := Init(settings, "dev")
	require.Error(t, err)
	assert.False(t, enabled)
	assert.Equal(t, errors.CategoryConfiguration, errors.CategoryFor(err))
}

func TestReportableErrorsReachSentry(t *testing.T) {
	transport := NewMockTransport()
	enabled, err := Init(enabledSettings(), "1.2.3", WithTransport(transport))
	require.NoError(t, err)
	require.True(t, enabled)
	t.Cleanup(Shutdown)

	_ = errors.New(fmt.Errorf("connect to mysql://survey:hunter2@db:3306 failed")).
		Component("datastore").
		Category(errors.CategoryDatabase).
		Build()
	_ = errors.Newf("species 42 not found").
		Component("survey").
		Category(errors.CategoryNotFound).
		Build()

	require.True(t, transport.WaitForEventCount(1, 2*time.Second))
	time.Sleep(50 * time.Millisecond)

	events := transport.Events()
	require.Len(t, events, 1, "not-found errors are not reported")

	event := events[0]
	assert.Equal(t, sentry.LevelError, event.Level)
	assert.Equal(t, "database", event.Tags["category"])
	assert.Equal(t, "datastore", event.Tags["component"])
	assert.Equal(t, "survey-test", event.Tags["instance"])
	assert.NotContains(t, event.Message, "hunter2")
	assert.Empty(t, event.ServerName)
	assert.Equal(t, "wcmc-survey@1.2.3", event.Release)
}

func TestApplyPrivacyFilters(t *testing.T) {
	event := &sentry.Event{
		ServerName: "survey-host",
		User:       sentry.User{ID: "someone", IPAddress: "10.0.0.1"},
		Contexts:   map[string]sentry.Context{"os": {"name": "linux"}, "trace": {}},
		Tags:       map[string]string{"hostname": "survey-host", "category": "database"},
	}

	filtered := applyPrivacyFilters(event, nil)
	assert.Empty(t, filtered.ServerName)
	assert.True(t, filtered.User.IsEmpty())
	assert.NotContains(t, filtered.Contexts, "os")
	assert.Contains(t, filtered.Contexts, "trace")
	assert.NotContains(t, filtered.Tags, "hostname")
	assert.Equal(t, "database", filtered.Tags["category"])
}
