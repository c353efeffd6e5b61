// Package metrics holds the Prometheus instruments of the fate service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/StabilityNexus/Fate/internal/domain"
)

// Metrics implements service.Recorder and exposes HTTP and WebSocket gauges
// for the server package.
type Metrics struct {
	reg prometheus.Gatherer

	DiscoveryRuns   *prometheus.CounterVec
	DiscoveredPools prometheus.Gauge
	PoolsMapped     prometheus.Counter
	PoolsDropped    prometheus.Counter

	TxTotal    *prometheus.CounterVec
	TxDuration *prometheus.HistogramVec

	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
	WSClients    prometheus.Gauge
}

// New registers every instrument on reg under namespace. A nil reg uses a
// fresh registry.
func New(reg *prometheus.Registry, namespace string) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	if namespace == "" {
		namespace = "fate"
	}
	f := promauto.With(reg)

	return &Metrics{
		reg: reg,

		DiscoveryRuns: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "discovery",
			Name:      "runs_total",
			Help:      "Discovery runs by the source that produced the pool ids.",
		}, []string{"source"}),
		DiscoveredPools: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "discovery",
			Name:      "pools",
			Help:      "Pool ids returned by the last discovery run.",
		}),
		PoolsMapped: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "enrichment",
			Name:      "pools_mapped_total",
			Help:      "Pool objects successfully mapped to snapshots.",
		}),
		PoolsDropped: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "enrichment",
			Name:      "pools_dropped_total",
			Help:      "Discovered pools dropped because fetching or mapping failed.",
		}),

		TxTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tx",
			Name:      "runs_total",
			Help:      "Finished orchestrator runs by action, terminal state and error kind.",
		}, []string{"action", "state", "kind"}),
		TxDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "tx",
			Name:      "duration_seconds",
			Help:      "Wall time of orchestrator runs.",
			Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 30},
		}, []string{"action"}),

		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "status"}),
		HTTPDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		WSClients: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ws",
			Name:      "clients",
			Help:      "Connected WebSocket clients.",
		}),
	}
}

// ObserveDiscovery records one discovery run.
func (m *Metrics) ObserveDiscovery(source string, pools int) {
	m.DiscoveryRuns.WithLabelValues(source).Inc()
	m.DiscoveredPools.Set(float64(pools))
}

// ObserveEnrichment records the outcome of one enrichment batch.
func (m *Metrics) ObserveEnrichment(mapped, dropped int) {
	m.PoolsMapped.Add(float64(mapped))
	m.PoolsDropped.Add(float64(dropped))
}

// ObserveTx records a finished orchestrator run.
func (m *Metrics) ObserveTx(action domain.TxAction, state domain.TxState, kind domain.ErrorKind, elapsed time.Duration) {
	m.TxTotal.WithLabelValues(string(action), string(state), string(kind)).Inc()
	m.TxDuration.WithLabelValues(string(action)).Observe(elapsed.Seconds())
}

// ObserveHTTP records a served request.
func (m *Metrics) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}
