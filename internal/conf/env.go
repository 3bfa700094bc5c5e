// env.go - environment variable bindings and validation
package conf

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// envBinding holds metadata for environment variable bindings (internal use)
type envBinding struct {
	ConfigKey string             // Viper config key
	EnvVar    string             // Environment variable name
	Validate  func(string) error // Optional validation function
}

// getEnvBindings returns all environment variable bindings with validation
func getEnvBindings() []envBinding {
	return []envBinding{
		{"debug", "WCMC_DEBUG", validateEnvBool},

		// Database
		{"database.type", "WCMC_DATABASE_TYPE", validateEnvDatabaseType},
		{"database.sqlite.path", "WCMC_SQLITE_PATH", nil},
		{"database.mysql.host", "WCMC_MYSQL_HOST", nil},
		{"database.mysql.port", "WCMC_MYSQL_PORT", validateEnvPort},
		{"database.mysql.username", "WCMC_MYSQL_USERNAME", nil},
		{"database.mysql.password", "WCMC_MYSQL_PASSWORD", nil},
		{"database.mysql.database", "WCMC_MYSQL_DATABASE", nil},

		// Web server
		{"webserver.listen", "WCMC_LISTEN", nil},
		{"webserver.debug", "WCMC_WEBSERVER_DEBUG", validateEnvBool},

		// MQTT
		{"mqtt.enabled", "WCMC_MQTT_ENABLED", validateEnvBool},
		{"mqtt.broker", "WCMC_MQTT_BROKER", validateEnvURL},
		{"mqtt.username", "WCMC_MQTT_USERNAME", nil},
		{"mqtt.password", "WCMC_MQTT_PASSWORD", nil},
		{"mqtt.topic", "WCMC_MQTT_TOPIC", nil},

		// Telemetry
		{"sentry.enabled", "WCMC_SENTRY_ENABLED", validateEnvBool},
		{"sentry.dsn", "WCMC_SENTRY_DSN", validateEnvURL},

		// Logging
		{"logging.default_level", "WCMC_LOG_LEVEL", validateEnvLogLevel},

		// Import
		{"import.s3.region", "WCMC_S3_REGION", nil},
		{"import.s3.endpoint", "WCMC_S3_ENDPOINT", validateEnvURL},
		{"import.s3.access_key_id", "WCMC_S3_ACCESS_KEY_ID", nil},
		{"import.s3.secret_access_key", "WCMC_S3_SECRET_ACCESS_KEY", nil},

		// Report
		{"report.base_url", "WCMC_REPORT_BASE_URL", validateEnvURL},
	}
}

// bindEnvVars sets up environment variable bindings with validation (internal)
func bindEnvVars() error {
	var warnings []string

	for _, binding := range getEnvBindings() {
		if err := viper.BindEnv(binding.ConfigKey, binding.EnvVar); err != nil {
			warnings = append(warnings, fmt.Sprintf("Failed to bind %s: %v", binding.EnvVar, err))
			continue
		}

		if binding.Validate != nil {
			if envValue := os.Getenv(binding.EnvVar); envValue != "" {
				if err := binding.Validate(envValue); err != nil {
					warnings = append(warnings, fmt.Sprintf("Invalid %s value: %v", binding.EnvVar, err))
				}
			}
		}
	}

	if len(warnings) > 0 {
		return fmt.Errorf("environment variable issues:\n  - %s", strings.Join(warnings, "\n  - "))
	}
	return nil
}

func validateEnvBool(value string) error {
	if _, err := strconv.ParseBool(strings.TrimSpace(value)); err != nil {
		return fmt.Errorf("invalid boolean value '%s': must be true/false, 1/0, t/f", value)
	}
	return nil
}

func validateEnvDatabaseType(value string) error {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case DatabaseSQLite, DatabaseMySQL:
		return nil
	default:
		return fmt.Errorf("database type must be %q or %q, got %q", DatabaseSQLite, DatabaseMySQL, value)
	}
}

func validateEnvPort(value string) error {
	port, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fmt.Errorf("invalid port: %w", err)
	}
	if port < 1 || port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", port)
	}
	return nil
}

func validateEnvURL(value string) error {
	u, err := url.Parse(strings.TrimSpace(value))
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("URL must include scheme and host")
	}
	return nil
}

func validateEnvLogLevel(value string) error {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "trace", "debug", "info", "warn", "warning", "error":
		return nil
	default:
		return fmt.Errorf("unknown log level %q", value)
	}
}
