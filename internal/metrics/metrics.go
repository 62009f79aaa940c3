package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a private registry so tests and multiple servers in one
// process never collide on registration. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	reg          *prometheus.Registry
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
	remotePages  *prometheus.CounterVec
	cacheLookups *prometheus.CounterVec
	rowsLoaded   prometheus.Counter
}

// New registers the service collectors plus the Go and process collectors.
func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "idr",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code.",
		}, []string{"route", "code"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "idr",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		remotePages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "idr",
			Name:      "fetch_pages_total",
			Help:      "Pages requested from the table backend.",
		}, []string{"table"}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "idr",
			Name:      "cache_lookups_total",
			Help:      "Dashboard cache lookups by result (hit or miss).",
		}, []string{"result"}),
		rowsLoaded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "idr",
			Name:      "rows_loaded_total",
			Help:      "Dispute rows copied into the local store.",
		}),
	}
	m.reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequests,
		m.httpDuration,
		m.remotePages,
		m.cacheLookups,
		m.rowsLoaded,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

// ObserveRequest records one served HTTP request.
func (m *Metrics) ObserveRequest(route string, code int, d time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
	m.httpDuration.WithLabelValues(route).Observe(d.Seconds())
}

// PageFetched counts one page read from table.
func (m *Metrics) PageFetched(table string) {
	if m == nil {
		return
	}
	m.remotePages.WithLabelValues(table).Inc()
}

// CacheLookup counts a cache hit or miss.
func (m *Metrics) CacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

// RowsLoaded adds n copied rows.
func (m *Metrics) RowsLoaded(n int64) {
	if m == nil {
		return
	}
	m.rowsLoaded.Add(float64(n))
}
