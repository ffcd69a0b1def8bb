// Package metrics holds the Prometheus collectors for the web surface.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is a set of collectors registered on a private registry, so
// several servers (and tests) can coexist in one process.
type Metrics struct {
	reg *prometheus.Registry

	Requests     *prometheus.CounterVec
	Latency      *prometheus.HistogramVec
	Previews     *prometheus.CounterVec
	Saves        *prometheus.CounterVec
	Stale        prometheus.Counter
	Regenerated  *prometheus.CounterVec
	OpenSessions prometheus.Gauge
}

// New creates and registers the collectors.
func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cellrev_http_requests_total",
			Help: "HTTP requests by route and status code.",
		}, []string{"route", "code"}),
		Latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cellrev_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		Previews: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cellrev_previews_total",
			Help: "Diff previews by outcome.",
		}, []string{"result"}),
		Saves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cellrev_saves_total",
			Help: "Cell saves by outcome.",
		}, []string{"result"}),
		Stale: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cellrev_stale_responses_total",
			Help: "Preview and save responses discarded as superseded.",
		}),
		Regenerated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cellrev_regenerations_total",
			Help: "Generator calls by variant and outcome.",
		}, []string{"variant", "result"}),
		OpenSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "cellrev_open_sessions",
			Help: "Editing sessions currently open.",
		}),
	}
	m.reg.MustRegister(m.Requests, m.Latency, m.Previews, m.Saves, m.Stale, m.Regenerated, m.OpenSessions)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// Result maps an error to an outcome label.
func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// Observe records one request.
func (m *Metrics) Observe(route string, code int, d time.Duration) {
	m.Requests.WithLabelValues(route, strconv.Itoa(code)).Inc()
	m.Latency.WithLabelValues(route).Observe(d.Seconds())
}
