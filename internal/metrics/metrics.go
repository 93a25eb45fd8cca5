// Package metrics holds the calendar store daemon's Prometheus collectors.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	rpcCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "calstore_rpc_calls_total",
		Help: "Total number of RPC calls handled, by method and status.",
	}, []string{"method", "status"})

	rpcDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "calstore_rpc_duration_seconds",
		Help:    "Histogram of RPC handling latencies.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method"})

	connections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "calstore_connections",
		Help: "Number of open client connections.",
	})

	changeVersion = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "calstore_change_version",
		Help: "Latest committed change version.",
	})

	remindersPublished = promauto.NewCounter(prometheus.CounterOpts{
		Name: "calstore_reminders_published_total",
		Help: "Total number of reminder broadcasts.",
	})
)

// Handler exposes the Prometheus metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveRPC records one handled call.
func ObserveRPC(method, status string, start time.Time) {
	rpcCallsTotal.WithLabelValues(method, status).Inc()
	rpcDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
}

// ConnectionOpened and ConnectionClosed track open client connections.
func ConnectionOpened() { connections.Inc() }

func ConnectionClosed() { connections.Dec() }

// SetChangeVersion records the latest committed version.
func SetChangeVersion(v int64) { changeVersion.Set(float64(v)) }

// ReminderPublished counts one reminder broadcast.
func ReminderPublished() { remindersPublished.Inc() }
