// Package mqtt publishes observation events to an MQTT broker.
package mqtt

import (
	"context"
	"time"

	"github.com/Samuel-Bradshaw/wcmc-solution/internal/conf"
	"github.com/Samuel-Bradshaw/wcmc-solution/internal/logger"
)

const componentMQTT = "mqtt"

// Client defines the interface for MQTT client operations.
type Client interface {
	// Connect establishes a connection to the MQTT broker.
	Connect(ctx context.Context) error
	// Publish sends a message to the specified topic on the MQTT broker.
	Publish(ctx context.Context, topic string, payload []byte) error
	// IsConnected returns true if the client is currently connected to the MQTT broker.
	IsConnected() bool
	// Disconnect closes the connection to the MQTT broker.
	Disconnect()
}

// Config holds the configuration for the MQTT client.
type Config struct {
	Broker            string
	ClientID          string
	Username          string
	Password          string
	Retain            bool
	ReconnectCooldown time.Duration // Minimum time between manual connection attempts
	ConnectTimeout    time.Duration // Timeout for the initial connection
	PublishTimeout    time.Duration // Timeout for a single publish
	DisconnectTimeout time.Duration // Time to let in-flight work finish on disconnect
}

// DefaultConfig returns a Config with reasonable default values
func DefaultConfig() Config {
	return Config{
		ReconnectCooldown: 5 * time.Second,
		ConnectTimeout:    30 * time.Second,
		PublishTimeout:    10 * time.Second,
		DisconnectTimeout: 250 * time.Millisecond,
	}
}

// ConfigFromSettings builds a client Config from application settings.
// The instance name is used as the client id when none is configured.
func ConfigFromSettings(settings *conf.Settings) Config {
	cfg := DefaultConfig()
	cfg.Broker = settings.MQTT.Broker
	cfg.ClientID = settings.MQTT.ClientID
	if cfg.ClientID == "" {
		cfg.ClientID = settings.Main.Name
	}
	cfg.Username = settings.MQTT.Username
	cfg.Password = settings.MQTT.Password
	cfg.Retain = settings.MQTT.Retain
	return cfg
}

func moduleLogger() logger.Logger {
	return logger.Global().Module(componentMQTT)
}
