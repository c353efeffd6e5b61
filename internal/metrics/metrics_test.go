package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/StabilityNexus/Fate/internal/domain"
)

func TestRecorder(t *testing.T) {
	m := New(nil, "test")

	m.ObserveDiscovery("events", 4)
	m.ObserveDiscovery("transactions", 2)
	m.ObserveEnrichment(3, 1)
	m.ObserveTx(domain.ActionBuy, domain.StateFailed, domain.KindOracleUnavailable, time.Second)
	m.ObserveTx(domain.ActionBuy, domain.StateSucceeded, "", 2*time.Second)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.DiscoveryRuns.WithLabelValues("events")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.DiscoveredPools))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.PoolsMapped))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PoolsDropped))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TxTotal.WithLabelValues("buy", "failed", "oracle_unavailable")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TxTotal.WithLabelValues("buy", "succeeded", "")))
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New(nil, "fate")
	m.ObserveHTTP(http.MethodGet, "/api/pools", 200, 10*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `fate_http_requests_total{method="GET",route="/api/pools",status="200"} 1`)
}
