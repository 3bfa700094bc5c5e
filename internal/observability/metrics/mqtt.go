package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// MQTTMetrics tracks the broker connection and the observation event stream.
type MQTTMetrics struct {
	ConnectionStatus prometheus.Gauge
	ConnectionEvents *prometheus.CounterVec // event: lost, reconnecting
	Publishes        *prometheus.CounterVec // status: success, error
	PublishLatency   prometheus.Histogram
	EventsDropped    *prometheus.CounterVec // reason
	QueueDepth       prometheus.Gauge
}

// NewMQTTMetrics creates the MQTT metrics and registers them on registry.
func NewMQTTMetrics(registry *prometheus.Registry) (*MQTTMetrics, error) {
	m := &MQTTMetrics{
		ConnectionStatus: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mqtt_connection_status",
			Help: "Current MQTT connection status (1 for connected, 0 for disconnected)",
		}),
		ConnectionEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mqtt_connection_events_total",
			Help: "Broker connection losses and reconnection attempts",
		}, []string{"event"}),
		Publishes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mqtt_publishes_total",
			Help: "Observation event publishes by outcome",
		}, []string{"status"}),
		PublishLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "mqtt_publish_latency_seconds",
			Help:    "Time until the broker acknowledged a publish",
			Buckets: prometheus.ExponentialBuckets(BucketStart1ms, BucketFactor2, BucketCount10),
		}),
		EventsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mqtt_events_dropped_total",
			Help: "Observation events that were never published, by reason",
		}, []string{"reason"}),
		QueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mqtt_event_queue_depth",
			Help: "Observation events waiting to be published",
		}),
	}

	for _, c := range []prometheus.Collector{
		m.ConnectionStatus, m.ConnectionEvents, m.Publishes,
		m.PublishLatency, m.EventsDropped, m.QueueDepth,
	} {
		if err := registry.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register MQTT metrics: %w", err)
		}
	}
	return m, nil
}

// UpdateConnectionStatus sets the connection gauge.
func (m *MQTTMetrics) UpdateConnectionStatus(connected bool) {
	if connected {
		m.ConnectionStatus.Set(1)
	} else {
		m.ConnectionStatus.Set(0)
	}
}

// RecordConnectionEvent counts a connection loss or reconnection attempt.
func (m *MQTTMetrics) RecordConnectionEvent(event string) {
	m.ConnectionEvents.WithLabelValues(event).Inc()
}

// RecordPublish counts a publish and, when it succeeded, its latency.
func (m *MQTTMetrics) RecordPublish(status string, seconds float64) {
	m.Publishes.WithLabelValues(status).Inc()
	if status == StatusSuccess {
		m.PublishLatency.Observe(seconds)
	}
}

// RecordEventDropped counts an event that will not be published.
func (m *MQTTMetrics) RecordEventDropped(reason string) {
	m.EventsDropped.WithLabelValues(reason).Inc()
}

// SetQueueDepth records the number of pending events.
func (m *MQTTMetrics) SetQueueDepth(depth int) {
	m.QueueDepth.Set(float64(depth))
}
