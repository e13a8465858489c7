package metrics

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunCounters(t *testing.T) {
	m := New()
	m.Run("fibonacci", OutcomeOK, 9)
	m.Run("fibonacci", OutcomeOK, 15)
	m.Run("factorial", OutcomeInvalid, 0)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.runsTotal.WithLabelValues("fibonacci", OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runsTotal.WithLabelValues("factorial", OutcomeInvalid)))
	// Invalid runs do not observe a call count.
	assert.Equal(t, 1, testutil.CollectAndCount(m.callsPerRun))
}

func TestSessionsGauge(t *testing.T) {
	m := New()
	m.SessionOpened()
	m.SessionOpened()
	m.SessionClosed()
	m.Evicted(3)
	m.Evicted(0)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.activeSessions))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.evictedTotal))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.Run("hanoi", OutcomeOK, 7)
		m.LayoutTimer("hanoi")()
		m.Step("manual")
		m.SessionOpened()
		m.SessionClosed()
		m.Evicted(1)
	})
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New()
	m.Step("autoplay")
	m.LayoutTimer("hanoi")()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `recviz_steps_total{source="autoplay"} 1`)
	assert.Contains(t, string(body), "recviz_layout_duration_seconds_count")
}
