// Package metrics exposes Prometheus collectors for the cloud variable
// server. Adapted and trimmed from the teacher's monitoring metrics set: the
// worker-pool and per-channel broadcast metrics are dropped (there is no
// worker pool in the single-goroutine engine), and room/variable/session
// gauges are added in their place.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// SessionsActive is the current number of live sessions (any state).
	SessionsActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cloudvar_sessions_active",
		Help: "Current number of open sessions, handshaking or joined",
	})

	// SessionsTotal counts every session ever established.
	SessionsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cloudvar_sessions_total",
		Help: "Total number of sessions established",
	})

	// RoomsActive is the current number of rooms in the registry.
	RoomsActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cloudvar_rooms_active",
		Help: "Current number of active rooms",
	})

	// VariablesTotal is the current number of variables across all rooms.
	VariablesTotal = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cloudvar_variables_total",
		Help: "Current number of variables across all rooms",
	})

	// MessagesTotal counts protocol messages by direction ("rx"/"tx") and
	// method. The engine only records the "set" method.
	MessagesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cloudvar_messages_total",
		Help: "Total protocol messages processed, by direction and method",
	}, []string{"direction", "method"})

	// ClosesTotal counts session closures by close code.
	ClosesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cloudvar_closes_total",
		Help: "Total session closures by close code",
	}, []string{"code"})

	// ConnectionsRejected counts connections turned away before handshake by
	// reason ("rate_limited", "ip_rate_limited", "cpu_overload",
	// "header_screen").
	ConnectionsRejected = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cloudvar_connections_rejected_total",
		Help: "Total connections rejected before handshake, by reason",
	}, []string{"reason"})

	// CPUPercent mirrors the resource guard's last CPU sample.
	CPUPercent = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cloudvar_cpu_usage_percent",
		Help: "Last sampled process CPU usage percentage",
	})

	// RSSBytes mirrors the resource guard's last RSS sample.
	RSSBytes = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cloudvar_rss_bytes",
		Help: "Last sampled process resident set size in bytes",
	})
)

func init() {
	prometheus.MustRegister(
		SessionsActive,
		SessionsTotal,
		RoomsActive,
		VariablesTotal,
		MessagesTotal,
		ClosesTotal,
		ConnectionsRejected,
		CPUPercent,
		RSSBytes,
	)
}

// Handler returns the HTTP handler that serves the Prometheus exposition
// format, meant to be mounted on the metrics listener.
func Handler() http.Handler {
	return promhttp.Handler()
}
