package metrics

import (
	"sync"

	libovsdbclient "github.com/ovn-kubernetes/libovsdb/client"
	"github.com/prometheus/client_golang/prometheus"
)

// Outcomes of a transaction commit
const (
	TransactionCommitted = "committed"
	TransactionAborted   = "aborted"
	TransactionFailed    = "failed"
)

// MetricTransactions counts the transactions sent to the northbound
// database by outcome. An aborted transaction failed one of its verifies.
var MetricTransactions = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: MetricNamespace,
	Subsystem: MetricSubsystemDB,
	Name:      "transactions_total",
	Help:      "The number of transactions sent to the OVN northbound database by result"},
	[]string{
		"result",
	},
)

// MetricTransactionDuration is the time taken by a transact round trip
var MetricTransactionDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
	Namespace: MetricNamespace,
	Subsystem: MetricSubsystemDB,
	Name:      "transaction_duration_seconds",
	Help:      "The latency of a transaction against the OVN northbound database",
	Buckets:   prometheus.ExponentialBuckets(.001, 2, 15),
})

// MetricCommandsStaged counts the commands staged into transactions by kind
var MetricCommandsStaged = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: MetricNamespace,
	Subsystem: MetricSubsystemDB,
	Name:      "commands_staged_total",
	Help:      "The number of commands staged into northbound transactions by command"},
	[]string{
		"command",
	},
)

var registerDBMetricsOnce sync.Once

// RegisterDBMetrics registers the database metrics with the Prometheus
// registry. The connection state of the given clients is exported as well.
func RegisterDBMetrics(nbClient, sbClient libovsdbclient.Client) {
	registerDBMetricsOnce.Do(func() {
		prometheus.MustRegister(MetricTransactions)
		prometheus.MustRegister(MetricTransactionDuration)
		prometheus.MustRegister(MetricCommandsStaged)
		for name, c := range map[string]libovsdbclient.Client{"OVN_Northbound": nbClient, "OVN_Southbound": sbClient} {
			if c == nil {
				continue
			}
			c := c
			prometheus.MustRegister(prometheus.NewGaugeFunc(
				prometheus.GaugeOpts{
					Namespace:   MetricNamespace,
					Subsystem:   MetricSubsystemDB,
					Name:        "connected",
					Help:        "Whether the client is connected to the database (1) or not (0)",
					ConstLabels: prometheus.Labels{"db_name": name},
				}, func() float64 {
					if c.Connected() {
						return 1
					}
					return 0
				}))
		}
	})
}
