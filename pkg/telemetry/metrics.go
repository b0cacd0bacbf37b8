// Package telemetry exposes the core's counters/gauges/histograms
// through Prometheus, on an isolated registry per instance so a process
// embedding multiple mesh nodes (as the demo CLI and tests both do)
// never collides collector registrations.
package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every custom collector the mesh core reports through.
// The telemetry log sink itself (where these numbers end up) is an
// external collaborator; this package only defines what gets measured.
type Metrics struct {
	Registry *prometheus.Registry

	PacketsDroppedTotal    *prometheus.CounterVec // reason: ttl, no_route, send_error, malformed, no_listener
	PacketsForwardedTotal  prometheus.Counter
	PacketsDeliveredLocal  prometheus.Counter
	RebroadcastsTotal      prometheus.Counter
	RebroadcastsSuppressed prometheus.Counter

	PingRTTSeconds prometheus.Histogram
	NeighborCount  prometheus.Gauge

	RoleTransitionsTotal *prometheus.CounterVec // role, transition: add|remove
	ActiveRoles          *prometheus.GaugeVec   // role

	MeshActiveGateways prometheus.Gauge
	MeshActiveStorage  prometheus.Gauge
	MeshActiveCompute  prometheus.Gauge
	MeshTotalNodes     prometheus.Gauge

	BuildInfo *prometheus.GaugeVec
}

// NewMetrics creates a Metrics instance with every collector registered
// on a fresh, isolated registry.
func NewMetrics(version, goVersion string) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewGoCollector())
	reg.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))

	m := &Metrics{
		Registry: reg,

		PacketsDroppedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "meshcore_packets_dropped_total",
				Help: "Total packets dropped by the router, labeled by reason.",
			},
			[]string{"reason"},
		),
		PacketsForwardedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "meshcore_packets_forwarded_total",
			Help: "Total packets forwarded to a next hop.",
		}),
		PacketsDeliveredLocal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "meshcore_packets_delivered_local_total",
			Help: "Total packets delivered to a local socket listener.",
		}),
		RebroadcastsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "meshcore_rebroadcasts_total",
			Help: "Total originator messages rebroadcast to neighbors.",
		}),
		RebroadcastsSuppressed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "meshcore_rebroadcasts_suppressed_total",
			Help: "Total rebroadcasts suppressed as duplicates of one already sent.",
		}),
		PingRTTSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "meshcore_ping_rtt_seconds",
			Help:    "Measured neighbor ping round-trip time.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~2s
		}),
		NeighborCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "meshcore_neighbor_count",
			Help: "Current number of direct neighbors.",
		}),
		RoleTransitionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "meshcore_role_transitions_total",
				Help: "Total role transitions applied, labeled by role and direction.",
			},
			[]string{"role", "transition"},
		),
		ActiveRoles: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "meshcore_active_roles",
				Help: "Whether this node currently holds a given role (1) or not (0).",
			},
			[]string{"role"},
		),
		MeshActiveGateways: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "meshcore_mesh_active_gateways",
			Help: "Aggregated mesh intelligence: count of active gateway nodes.",
		}),
		MeshActiveStorage: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "meshcore_mesh_active_storage_nodes",
			Help: "Aggregated mesh intelligence: count of active storage nodes.",
		}),
		MeshActiveCompute: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "meshcore_mesh_active_compute_nodes",
			Help: "Aggregated mesh intelligence: count of active compute nodes.",
		}),
		MeshTotalNodes: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "meshcore_mesh_total_nodes",
			Help: "Aggregated mesh intelligence: total known nodes.",
		}),
		BuildInfo: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "meshcore_info",
				Help: "Build information for the running mesh core instance.",
			},
			[]string{"version", "go_version"},
		),
	}

	reg.MustRegister(
		m.PacketsDroppedTotal,
		m.PacketsForwardedTotal,
		m.PacketsDeliveredLocal,
		m.RebroadcastsTotal,
		m.RebroadcastsSuppressed,
		m.PingRTTSeconds,
		m.NeighborCount,
		m.RoleTransitionsTotal,
		m.ActiveRoles,
		m.MeshActiveGateways,
		m.MeshActiveStorage,
		m.MeshActiveCompute,
		m.MeshTotalNodes,
		m.BuildInfo,
	)
	m.BuildInfo.WithLabelValues(version, goVersion).Set(1)

	return m
}

// Handler serves the Prometheus exposition format for this instance's
// isolated registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// Drop reason labels for PacketsDroppedTotal.
const (
	ReasonTTL         = "ttl"
	ReasonNoRoute     = "no_route"
	ReasonSendError   = "send_error"
	ReasonMalformed   = "malformed"
	ReasonNoListener  = "no_listener"
)

// Role transition direction labels for RoleTransitionsTotal.
const (
	TransitionAdd    = "add"
	TransitionRemove = "remove"
)
