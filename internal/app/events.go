package app

import (
	"context"

	"github.com/Samuel-Bradshaw/wcmc-solution/internal/logger"
	"github.com/Samuel-Bradshaw/wcmc-solution/internal/mqtt"
	"github.com/Samuel-Bradshaw/wcmc-solution/internal/survey"
)

// StartEvents connects to the MQTT broker when publishing is enabled and
// rebuilds the service so committed observation reports are published.
// A broker that is unreachable at startup is logged, not fatal; the client
// keeps retrying in the background. The returned stop function drains the
// queue and disconnects.
func (c *Context) StartEvents(ctx context.Context) func() {
	if !c.Settings.MQTT.Enabled {
		return func() {}
	}

	client := mqtt.NewClient(mqtt.ConfigFromSettings(c.Settings), c.Metrics.MQTT)
	if err := client.Connect(ctx); err != nil {
		c.log.Warn("MQTT broker unavailable, events will be dropped until it connects",
			logger.String("broker", c.Settings.MQTT.Broker),
			logger.Error(err))
	}

	publisher := mqtt.NewPublisher(client, c.Settings.MQTT.Topic, c.Settings.MQTT.QueueSize,
		mqtt.WithPublisherMetrics(c.Metrics.MQTT))
	publisher.Start(ctx)
	c.Service = newService(c.Store, survey.WithObservationSink(publisher))

	c.log.Info("observation events enabled",
		logger.String("broker", c.Settings.MQTT.Broker),
		logger.String("topic", c.Settings.MQTT.Topic))

	return func() {
		publisher.Stop()
		client.Disconnect()
		if dropped := publisher.Dropped(); dropped > 0 {
			c.log.Warn("observation events were dropped", logger.Int64("count", int64(dropped)))
		}
	}
}
