// Package metrics exposes the agent's Prometheus instrumentation. Metrics
// is a plain set of collectors with no methods; its users check for a nil
// *Metrics before recording, so passing nil disables collection.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds every counter, gauge, and histogram the agent records
// across the acceptor and per-connection lifecycle.
type Metrics struct {
	ConnectionsAccepted   prometheus.Counter
	ConnectionsClosed     prometheus.Counter
	ConnectionsForceClosed prometheus.Counter
	ActiveConnections     prometheus.Gauge

	FramesRead    *prometheus.CounterVec
	FramesWritten *prometheus.CounterVec
	WriteLatency  prometheus.Histogram

	ServiceInvocations *prometheus.CounterVec
	ServiceLatency     prometheus.Histogram
	ReassemblyEntries  prometheus.Gauge
}

// New registers and returns a fresh set of agent metrics against reg. reg
// must not be nil; callers that want metrics disabled should keep the
// *Metrics nil instead of calling New.
func New(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		ConnectionsAccepted: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "spoagent_connections_accepted_total",
			Help: "Total number of SPOP connections accepted.",
		}),
		ConnectionsClosed: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "spoagent_connections_closed_total",
			Help: "Total number of SPOP connections closed, cleanly or otherwise.",
		}),
		ConnectionsForceClosed: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "spoagent_connections_force_closed_total",
			Help: "Total number of connections forcibly closed after the shutdown grace period elapsed.",
		}),
		ActiveConnections: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "spoagent_active_connections",
			Help: "Current number of accepted, not-yet-closed SPOP connections.",
		}),
		FramesRead: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "spoagent_frames_read_total",
			Help: "Total number of frames read, by frame type.",
		}, []string{"frame_type"}),
		FramesWritten: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "spoagent_frames_written_total",
			Help: "Total number of frames written, by frame type.",
		}, []string{"frame_type"}),
		WriteLatency: promauto.With(reg).NewHistogram(prometheus.HistogramOpts{
			Name:    "spoagent_frame_write_latency_seconds",
			Help:    "Latency of a single frame write, including encoding.",
			Buckets: prometheus.DefBuckets,
		}),
		ServiceInvocations: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "spoagent_service_invocations_total",
			Help: "Total number of service invocations, by outcome.",
		}, []string{"outcome"}),
		ServiceLatency: promauto.With(reg).NewHistogram(prometheus.HistogramOpts{
			Name:    "spoagent_service_invocation_latency_seconds",
			Help:    "Latency of a service invocation, from dispatch to reply or timeout.",
			Buckets: prometheus.DefBuckets,
		}),
		ReassemblyEntries: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "spoagent_reassembly_entries",
			Help: "Current number of in-progress fragment reassemblies across all connections.",
		}),
	}
}
