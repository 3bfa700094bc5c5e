package observability

import (
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNewMetricsConcurrency verifies that NewMetrics can be called concurrently
// without registration races between independent registries.
func TestNewMetricsConcurrency(t *testing.T) {
	t.Parallel()
	const numGoroutines = 20

	var wg sync.WaitGroup
	for range numGoroutines {
		wg.Go(func() {
			m, err := NewMetrics()
			if !assert.NoError(t, err) {
				return
			}
			assert.NotNil(t, m.Registry())
			assert.NotNil(t, m.Datastore)
			assert.NotNil(t, m.HTTP)
			assert.NotNil(t, m.MQTT)
			assert.NotNil(t, m.Import)
		})
	}
	wg.Wait()
}

func TestMetricsHandler(t *testing.T) {
	t.Parallel()

	m, err := NewMetrics()
	require.NoError(t, err)
	m.Datastore.RecordDbOperation("get", "species", "success")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))

	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `datastore_db_operations_total{operation="get",status="success",table="species"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}
