package observability

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Samuel-Bradshaw/wcmc-solution/internal/logger"
	"github.com/Samuel-Bradshaw/wcmc-solution/internal/observability/metrics"
)

// Metrics holds all the metric collectors for the application.
type Metrics struct {
	registry  *prometheus.Registry
	Datastore *metrics.DatastoreMetrics
	HTTP      *metrics.HTTPMetrics
	MQTT      *metrics.MQTTMetrics
	Import    *metrics.OperationMetrics
	Report    *metrics.OperationMetrics
}

// NewMetrics creates a registry with runtime collectors and every component's
// metrics. Each call returns an independent registry.
func NewMetrics() (*Metrics, error) {
	registry := prometheus.NewRegistry()

	if err := registry.Register(collectors.NewGoCollector()); err != nil {
		return nil, fmt.Errorf("failed to register Go collector: %w", err)
	}
	if err := registry.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{})); err != nil {
		return nil, fmt.Errorf("failed to register process collector: %w", err)
	}

	datastoreMetrics, err := metrics.NewDatastoreMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create Datastore metrics: %w", err)
	}

	httpMetrics, err := metrics.NewHTTPMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP metrics: %w", err)
	}

	mqttMetrics, err := metrics.NewMQTTMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create MQTT metrics: %w", err)
	}

	importMetrics, err := metrics.NewOperationMetrics(registry, "import")
	if err != nil {
		return nil, fmt.Errorf("failed to create Import metrics: %w", err)
	}

	reportMetrics, err := metrics.NewOperationMetrics(registry, "report")
	if err != nil {
		return nil, fmt.Errorf("failed to create Report metrics: %w", err)
	}

	return &Metrics{
		registry:  registry,
		Datastore: datastoreMetrics,
		HTTP:      httpMetrics,
		MQTT:      mqttMetrics,
		Import:    importMetrics,
		Report:    reportMetrics,
	}, nil
}

// Registry returns the underlying Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		ErrorLog:      promLogger{log: logger.Global().Module("observability")},
		ErrorHandling: promhttp.HTTPErrorOnError,
	})
}
