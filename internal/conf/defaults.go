// conf/defaults.go default values for settings
package conf

import (
	"time"

	"github.com/spf13/viper"
)

// Default values shared with other packages.
const (
	DefaultPageSize    = 25
	MaxPageSize        = 100
	DefaultMQTTTopic   = "wcmc/observations"
	DefaultListen      = ":8000"
	DefaultSQLitePath  = "survey.db"
	DefaultMySQLPort   = 3306
	defaultConcurrency = 4
)

// setDefaultConfig sets default values for every configuration key.
func setDefaultConfig() {
	viper.SetDefault("debug", false)
	viper.SetDefault("main.name", "wcmc-survey")

	viper.SetDefault("database.type", "sqlite")
	viper.SetDefault("database.slow_threshold", 200*time.Millisecond)
	viper.SetDefault("database.sqlite.path", DefaultSQLitePath)
	viper.SetDefault("database.mysql.host", "localhost")
	viper.SetDefault("database.mysql.port", DefaultMySQLPort)
	viper.SetDefault("database.mysql.username", "")
	viper.SetDefault("database.mysql.password", "")
	viper.SetDefault("database.mysql.database", "survey")

	viper.SetDefault("webserver.listen", DefaultListen)
	viper.SetDefault("webserver.debug", false)
	viper.SetDefault("webserver.body_limit", "1M")
	viper.SetDefault("webserver.idempotency_ttl", 10*time.Minute)
	viper.SetDefault("webserver.shutdown_timeout", 10*time.Second)

	viper.SetDefault("mqtt.enabled", false)
	viper.SetDefault("mqtt.broker", "tcp://localhost:1883")
	viper.SetDefault("mqtt.client_id", "")
	viper.SetDefault("mqtt.username", "")
	viper.SetDefault("mqtt.password", "")
	viper.SetDefault("mqtt.topic", DefaultMQTTTopic)
	viper.SetDefault("mqtt.retain", false)
	viper.SetDefault("mqtt.queue_size", 256)

	viper.SetDefault("sentry.enabled", false)
	viper.SetDefault("sentry.dsn", "")
	viper.SetDefault("sentry.environment", "production")
	viper.SetDefault("sentry.sample_rate", 1.0)

	viper.SetDefault("logging.default_level", "info")
	viper.SetDefault("logging.timezone", "Local")
	viper.SetDefault("logging.console.enabled", true)
	viper.SetDefault("logging.console.level", "info")
	viper.SetDefault("logging.file_output.enabled", false)
	viper.SetDefault("logging.file_output.path", "logs/survey.log")
	viper.SetDefault("logging.file_output.level", "info")

	viper.SetDefault("import.watch_debounce", 2*time.Second)
	viper.SetDefault("import.s3.region", "us-east-1")
	viper.SetDefault("import.s3.endpoint", "")
	viper.SetDefault("import.s3.path_style", false)
	viper.SetDefault("import.s3.access_key_id", "")
	viper.SetDefault("import.s3.secret_access_key", "")

	viper.SetDefault("report.base_url", "http://localhost:8000")
	viper.SetDefault("report.page_size", MaxPageSize)
	viper.SetDefault("report.concurrency", defaultConcurrency)
	viper.SetDefault("report.rate_limit", 0.0)
	viper.SetDefault("report.timeout", 30*time.Second)
}
