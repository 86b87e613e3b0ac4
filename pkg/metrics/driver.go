package metrics

import (
	"runtime"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcomes of a port binding attempt
const (
	BindBound             = "bound"
	BindUnsupportedVNIC   = "unsupported_vnic"
	BindNoChassis         = "no_chassis"
	BindNoSegment         = "no_segment"
	ProvisioningCompleted = "completed"
	ProvisioningBlocked   = "blocked"
)

// MetricPortBindings counts the port binding attempts by outcome
var MetricPortBindings = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: MetricNamespace,
	Subsystem: MetricSubsystemDriver,
	Name:      "port_bindings_total",
	Help:      "The number of port binding attempts by outcome"},
	[]string{
		"outcome",
	},
)

// MetricProvisioningEvents counts the provisioning blocks added and removed
var MetricProvisioningEvents = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: MetricNamespace,
	Subsystem: MetricSubsystemDriver,
	Name:      "provisioning_events_total",
	Help:      "The number of L2 provisioning blocks added and completed"},
	[]string{
		"event",
	},
)

// MetricOperationLatency is the time taken by a driver operation
var MetricOperationLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: MetricNamespace,
	Subsystem: MetricSubsystemDriver,
	Name:      "operation_duration_seconds",
	Help:      "The latency of driver operations",
	Buckets:   prometheus.ExponentialBuckets(.001, 2, 15)},
	// labels
	[]string{"operation"},
)

// MetricAPIRequests counts the orchestrator API requests by route and
// response code
var MetricAPIRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: MetricNamespace,
	Subsystem: MetricSubsystemDriver,
	Name:      "api_requests_total",
	Help:      "The number of orchestrator API requests by method, route and response code"},
	[]string{
		"method",
		"route",
		"code",
	},
)

// Build information, set at link time
var (
	Commit  = "unknown"
	Branch  = "unknown"
	Version = "0.0"
)

var registerDriverMetricsOnce sync.Once

// RegisterDriverMetrics registers the driver metrics with the Prometheus
// registry
func RegisterDriverMetrics() {
	registerDriverMetricsOnce.Do(func() {
		prometheus.MustRegister(MetricPortBindings)
		prometheus.MustRegister(MetricProvisioningEvents)
		prometheus.MustRegister(MetricOperationLatency)
		prometheus.MustRegister(MetricAPIRequests)
		prometheus.MustRegister(prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Namespace: MetricNamespace,
				Subsystem: MetricSubsystemDriver,
				Name:      "build_info",
				Help: "A metric with a constant '1' value labeled by version, revision, branch, " +
					"and go version from which the driver was built",
				ConstLabels: prometheus.Labels{
					"version":   Version,
					"revision":  Commit,
					"branch":    Branch,
					"goversion": runtime.Version(),
				},
			},
			func() float64 { return 1 },
		))
	})
}
