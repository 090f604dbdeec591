package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}

func TestObserveOperationCountsByStatus(t *testing.T) {
	m := NewMetrics()

	m.ObserveOperation("create", time.Now(), nil)
	m.ObserveOperation("create", time.Now(), nil)
	m.ObserveOperation("create", time.Now(), errors.New("boom"))

	assert.Equal(t, 2.0, counterValue(t, m.OperationsTotal.WithLabelValues("create", "success")))
	assert.Equal(t, 1.0, counterValue(t, m.OperationsTotal.WithLabelValues("create", "error")))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveOperation("get", time.Now(), nil)
		m.ObserveSearch(3)
		m.CleanupFailed("file")
		m.EventPublished("conversation.created", nil)
	})
}

func TestInstancesDoNotShareRegistry(t *testing.T) {
	a := NewMetrics()
	b := NewMetrics()

	a.CleanupFailed("vector_index")
	assert.Equal(t, 1.0, counterValue(t, a.CleanupFailures.WithLabelValues("vector_index")))
	assert.Equal(t, 0.0, counterValue(t, b.CleanupFailures.WithLabelValues("vector_index")))
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := NewMetrics()
	m.ObserveOperation("search", time.Now(), nil)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "conversation_store_operations_total")
}
