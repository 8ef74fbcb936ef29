// Package telemetry holds the prometheus collectors of the simulation and the
// handler that exposes them.
package telemetry

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	Registry = prometheus.NewRegistry()

	MessagesReceived = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "voronoi",
			Name:      "messages_received_total",
			Help:      "Messages drained from inbound channels.",
		},
		[]string{"kind"},
	)

	MessagesSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "voronoi",
			Name:      "messages_sent_total",
			Help:      "Messages queued on outbound channels, by how they were sent.",
		},
		[]string{"kind", "mode"},
	)

	MessagesDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "voronoi",
			Name:      "messages_dropped_total",
			Help:      "Messages not retransmitted.",
		},
		[]string{"reason"},
	)

	News = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "voronoi",
			Name:      "news_total",
			Help:      "Messages accepted as news by a history.",
		},
		[]string{"kind"},
	)

	SitesPruned = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "voronoi",
			Name:      "sites_pruned_total",
			Help:      "Remote sites removed by irrelevant-site cleanup.",
		},
	)

	InvariantViolations = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "voronoi",
			Name:      "invariant_violations_total",
			Help:      "Nodes stopped by a triangulation invariant violation.",
		},
	)

	TrackedSites = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "voronoi",
			Name:      "tracked_sites",
			Help:      "Remote sites in the local diagram of a node.",
		},
		[]string{"node"},
	)

	buildInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "voronoi",
			Name:      "build_info",
			Help:      "Build info (constant 1, labeled by version).",
		},
		[]string{"version"},
	)

	startTime = time.Now()
	uptime    = prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: "voronoi",
			Name:      "uptime_seconds",
			Help:      "Process uptime in seconds.",
		},
		func() float64 { return time.Since(startTime).Seconds() },
	)
)

func init() {
	Registry.MustRegister(
		MessagesReceived,
		MessagesSent,
		MessagesDropped,
		News,
		SitesPruned,
		InvariantViolations,
		TrackedSites,
		buildInfo,
		uptime,
	)
}

// MetricsHandler exposes /metrics.
func MetricsHandler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// SetBuildInfo should be called once at startup.
func SetBuildInfo(version string) {
	buildInfo.WithLabelValues(version).Set(1)
}

// SetTrackedSites records the size of the local diagram of a node.
func SetTrackedSites(node uint32, n int) {
	TrackedSites.WithLabelValues(strconv.FormatUint(uint64(node), 10)).Set(float64(n))
}
