// conf/validate.go

package conf

import (
	"fmt"
	"strings"
)

// Supported database backends.
const (
	DatabaseSQLite = "sqlite"
	DatabaseMySQL  = "mysql"
)

// ValidationError represents a collection of validation errors
type ValidationError struct {
	Errors []string
}

// Error returns a string representation of the validation errors
func (ve ValidationError) Error() string {
	return fmt.Sprintf("Validation errors: %v", ve.Errors)
}

// ValidateSettings validates the entire Settings struct
func ValidateSettings(settings *Settings) error {
	ve := ValidationError{}

	validators := []func(*Settings) error{
		validateDatabaseSettings,
		validateWebServerSettings,
		validateMQTTSettings,
		validateSentrySettings,
		validateReportSettings,
	}
	for _, validate := range validators {
		if err := validate(settings); err != nil {
			ve.Errors = append(ve.Errors, err.Error())
		}
	}

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

func validateDatabaseSettings(settings *Settings) error {
	db := &settings.Database
	db.Type = strings.ToLower(strings.TrimSpace(db.Type))

	switch db.Type {
	case DatabaseSQLite:
		if db.SQLite.Path == "" {
			return fmt.Errorf("database.sqlite.path is required for the sqlite backend")
		}
	case DatabaseMySQL:
		var missing []string
		if db.MySQL.Host == "" {
			missing = append(missing, "host")
		}
		if db.MySQL.Username == "" {
			missing = append(missing, "username")
		}
		if db.MySQL.Database == "" {
			missing = append(missing, "database")
		}
		if len(missing) > 0 {
			return fmt.Errorf("database.mysql is missing: %s", strings.Join(missing, ", "))
		}
		if db.MySQL.Port < 1 || db.MySQL.Port > 65535 {
			return fmt.Errorf("database.mysql.port must be between 1 and 65535, got %d", db.MySQL.Port)
		}
	default:
		return fmt.Errorf("database.type must be %q or %q, got %q", DatabaseSQLite, DatabaseMySQL, db.Type)
	}

	if db.SlowThreshold < 0 {
		return fmt.Errorf("database.slow_threshold must not be negative")
	}
	return nil
}

func validateWebServerSettings(settings *Settings) error {
	if settings.WebServer.Listen == "" {
		return fmt.Errorf("webserver.listen is required")
	}
	if settings.WebServer.IdempotencyTTL < 0 {
		return fmt.Errorf("webserver.idempotency_ttl must not be negative")
	}
	return nil
}

func validateMQTTSettings(settings *Settings) error {
	mqtt := &settings.MQTT
	if !mqtt.Enabled {
		return nil
	}
	if mqtt.Broker == "" {
		return fmt.Errorf("mqtt.broker is required when MQTT is enabled")
	}
	if mqtt.Topic == "" {
		return fmt.Errorf("mqtt.topic is required when MQTT is enabled")
	}
	if strings.ContainsAny(mqtt.Topic, "+#") {
		return fmt.Errorf("mqtt.topic must not contain wildcards, got %q", mqtt.Topic)
	}
	if mqtt.QueueSize <= 0 {
		return fmt.Errorf("mqtt.queue_size must be positive, got %d", mqtt.QueueSize)
	}
	return nil
}

func validateSentrySettings(settings *Settings) error {
	if settings.Sentry.Enabled && settings.Sentry.DSN == "" {
		return fmt.Errorf("sentry.dsn is required when Sentry is enabled")
	}
	if settings.Sentry.SampleRate < 0 || settings.Sentry.SampleRate > 1 {
		return fmt.Errorf("sentry.sample_rate must be between 0 and 1, got %g", settings.Sentry.SampleRate)
	}
	return nil
}

func validateReportSettings(settings *Settings) error {
	report := &settings.Report
	if report.PageSize < 1 || report.PageSize > MaxPageSize {
		return fmt.Errorf("report.page_size must be between 1 and %d, got %d", MaxPageSize, report.PageSize)
	}
	if report.Concurrency < 1 {
		return fmt.Errorf("report.concurrency must be at least 1, got %d", report.Concurrency)
	}
	if report.RateLimit < 0 {
		return fmt.Errorf("report.rate_limit must not be negative")
	}
	return nil
}
