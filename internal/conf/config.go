// Package conf loads and validates application settings from defaults,
// config.yaml and WCMC_* environment variables.
package conf

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/Samuel-Bradshaw/wcmc-solution/internal/logger"
)

// Settings contains all configuration options for the survey service.
type Settings struct {
	Debug bool `yaml:"debug" mapstructure:"debug"`

	Main struct {
		Name string `yaml:"name" mapstructure:"name"` // instance name, used as MQTT client id and Sentry server tag
	} `yaml:"main" mapstructure:"main"`

	Database  DatabaseSettings     `yaml:"database" mapstructure:"database"`
	WebServer WebServerSettings    `yaml:"webserver" mapstructure:"webserver"`
	MQTT      MQTTSettings         `yaml:"mqtt" mapstructure:"mqtt"`
	Sentry    SentrySettings       `yaml:"sentry" mapstructure:"sentry"`
	Logging   logger.LoggingConfig `yaml:"logging" mapstructure:"logging"`
	Import    ImportSettings       `yaml:"import" mapstructure:"import"`
	Report    ReportSettings       `yaml:"report" mapstructure:"report"`
}

// DatabaseSettings selects and configures the storage backend.
type DatabaseSettings struct {
	Type          string         `yaml:"type" mapstructure:"type"` // sqlite or mysql
	SlowThreshold time.Duration  `yaml:"slow_threshold" mapstructure:"slow_threshold"`
	SQLite        SQLiteSettings `yaml:"sqlite" mapstructure:"sqlite"`
	MySQL         MySQLSettings  `yaml:"mysql" mapstructure:"mysql"`
}

// SQLiteSettings contains the SQLite database location.
type SQLiteSettings struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// MySQLSettings contains MySQL connection parameters.
type MySQLSettings struct {
	Host     string `yaml:"host" mapstructure:"host"`
	Port     int    `yaml:"port" mapstructure:"port"`
	Username string `yaml:"username" mapstructure:"username"`
	Password string `yaml:"password" mapstructure:"password"`
	Database string `yaml:"database" mapstructure:"database"`
}

// WebServerSettings configures the HTTP API.
type WebServerSettings struct {
	Listen          string        `yaml:"listen" mapstructure:"listen"`
	Debug           bool          `yaml:"debug" mapstructure:"debug"`
	BodyLimit       string        `yaml:"body_limit" mapstructure:"body_limit"`             // echo body limit, e.g. "1M"
	IdempotencyTTL  time.Duration `yaml:"idempotency_ttl" mapstructure:"idempotency_ttl"`   // replay window for Idempotency-Key
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"` // graceful shutdown budget
}

// MQTTSettings configures observation event publishing.
type MQTTSettings struct {
	Enabled   bool   `yaml:"enabled" mapstructure:"enabled"`
	Broker    string `yaml:"broker" mapstructure:"broker"`
	ClientID  string `yaml:"client_id" mapstructure:"client_id"`
	Username  string `yaml:"username" mapstructure:"username"`
	Password  string `yaml:"password" mapstructure:"password"`
	Topic     string `yaml:"topic" mapstructure:"topic"`
	Retain    bool   `yaml:"retain" mapstructure:"retain"`
	QueueSize int    `yaml:"queue_size" mapstructure:"queue_size"`
}

// SentrySettings configures error telemetry.
type SentrySettings struct {
	Enabled     bool    `yaml:"enabled" mapstructure:"enabled"`
	DSN         string  `yaml:"dsn" mapstructure:"dsn"`
	Environment string  `yaml:"environment" mapstructure:"environment"`
	SampleRate  float64 `yaml:"sample_rate" mapstructure:"sample_rate"`
}

// ImportSettings configures bulk CSV import.
type ImportSettings struct {
	WatchDebounce time.Duration `yaml:"watch_debounce" mapstructure:"watch_debounce"`
	S3            S3Settings    `yaml:"s3" mapstructure:"s3"`
}

// S3Settings configures the object storage client used for s3:// import sources.
type S3Settings struct {
	Region          string `yaml:"region" mapstructure:"region"`
	Endpoint        string `yaml:"endpoint" mapstructure:"endpoint"` // optional, for MinIO and other S3-compatible stores
	PathStyle       bool   `yaml:"path_style" mapstructure:"path_style"`
	AccessKeyID     string `yaml:"access_key_id" mapstructure:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key" mapstructure:"secret_access_key"`
}

// ReportSettings configures the phylum report client.
type ReportSettings struct {
	BaseURL     string        `yaml:"base_url" mapstructure:"base_url"`
	PageSize    int           `yaml:"page_size" mapstructure:"page_size"`
	Concurrency int           `yaml:"concurrency" mapstructure:"concurrency"`
	RateLimit   float64       `yaml:"rate_limit" mapstructure:"rate_limit"` // requests per second, 0 = unlimited
	Timeout     time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

var (
	settingsInstance *Settings
	settingsMutex    sync.RWMutex
)

// Load reads defaults, the configuration file and environment variables into Settings.
// An explicit configFile must exist; otherwise config.yaml is searched in the
// default paths and its absence is not an error.
func Load(configFile string) (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	if err := initViper(configFile); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	settings := &Settings{}
	if err := viper.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("error validating settings: %w", err)
	}

	settingsInstance = settings
	return settingsInstance, nil
}

// initViper initializes viper with default values and reads the configuration file.
func initViper(configFile string) error {
	setDefaultConfig()

	if err := bindEnvVars(); err != nil {
		return err
	}

	if configFile != "" {
		viper.SetConfigFile(configFile)
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("error reading config file %s: %w", configFile, err)
		}
		return nil
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	for _, path := range GetDefaultConfigPaths() {
		viper.AddConfigPath(path)
	}

	if err := viper.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			return nil
		}
		return fmt.Errorf("fatal error reading config file: %w", err)
	}
	return nil
}

// GetDefaultConfigPaths returns the directories searched for config.yaml, in order.
func GetDefaultConfigPaths() []string {
	paths := []string{"."}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "wcmc-survey"))
	}
	return append(paths, "/etc/wcmc-survey")
}

// ConfigFileUsed returns the path of the configuration file that was read, if any.
func ConfigFileUsed() string {
	return viper.ConfigFileUsed()
}

// GetSettings returns the current settings instance
func GetSettings() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

const redacted = "********"

// YAML renders the settings with credentials redacted.
func (s *Settings) YAML() ([]byte, error) {
	masked := *s
	for _, secret := range []*string{
		&masked.Database.MySQL.Password,
		&masked.MQTT.Password,
		&masked.Sentry.DSN,
		&masked.Import.S3.SecretAccessKey,
	} {
		if *secret != "" {
			*secret = redacted
		}
	}
	return yaml.Marshal(&masked)
}
