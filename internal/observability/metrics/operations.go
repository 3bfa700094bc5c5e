package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// OperationMetrics implements Recorder on Prometheus collectors for batch
// work such as imports and the report client.
type OperationMetrics struct {
	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	errorsTotal       *prometheus.CounterVec
}

// NewOperationMetrics creates operation metrics named <subsystem>_operations_total etc.
func NewOperationMetrics(registry *prometheus.Registry, subsystem string) (*OperationMetrics, error) {
	m := &OperationMetrics{
		operationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Subsystem: subsystem,
				Name:      "operations_total",
				Help:      "Total number of operations by outcome",
			},
			[]string{"operation", "status"},
		),
		operationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Subsystem: subsystem,
				Name:      "operation_duration_seconds",
				Help:      "Time taken for operations",
				Buckets:   prometheus.ExponentialBuckets(BucketStart1ms, BucketFactor2, BucketCount15),
			},
			[]string{"operation"},
		),
		errorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Subsystem: subsystem,
				Name:      "errors_total",
				Help:      "Total number of operation errors by type",
			},
			[]string{"operation", "error_type"},
		),
	}
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

// Describe implements the Collector interface
func (m *OperationMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.operationsTotal.Describe(ch)
	m.operationDuration.Describe(ch)
	m.errorsTotal.Describe(ch)
}

// Collect implements the Collector interface
func (m *OperationMetrics) Collect(ch chan<- prometheus.Metric) {
	m.operationsTotal.Collect(ch)
	m.operationDuration.Collect(ch)
	m.errorsTotal.Collect(ch)
}

// RecordOperation implements Recorder.
func (m *OperationMetrics) RecordOperation(operation, status string) {
	m.operationsTotal.WithLabelValues(operation, status).Inc()
}

// RecordDuration implements Recorder.
func (m *OperationMetrics) RecordDuration(operation string, seconds float64) {
	m.operationDuration.WithLabelValues(operation).Observe(seconds)
}

// RecordError implements Recorder.
func (m *OperationMetrics) RecordError(operation, errorType string) {
	m.errorsTotal.WithLabelValues(operation, errorType).Inc()
}
