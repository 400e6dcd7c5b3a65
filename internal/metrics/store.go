// SPDX-License-Identifier: MIT
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	storeOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "settingsd_store_operations_total",
		Help: "Configuration store operations by outcome",
	}, []string{"op", "outcome"}) // op=load|save|reload, outcome=success|default|read_error|parse_error|write_error|directory_error

	storeOperationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "settingsd_store_operation_duration_seconds",
		Help:    "Configuration store operation latency in seconds",
		Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 1},
	}, []string{"op"})

	storeDocumentKeys = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "settingsd_store_document_keys",
		Help: "Number of top-level keys in the last loaded or saved document",
	})

	storeListenerDrops = promauto.NewCounter(prometheus.CounterOpts{
		Name: "settingsd_store_listener_drops_total",
		Help: "Change notifications skipped because a listener channel was full",
	})

	invocations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "settingsd_invocations_total",
		Help: "Front-end command invocations by outcome",
	}, []string{"command", "outcome"}) // outcome=success|<failure kind>

	invocationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "settingsd_invocation_duration_seconds",
		Help:    "Front-end command invocation latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"command"})
)

// RecordStoreOperation records the outcome and latency of one store operation.
func RecordStoreOperation(op, outcome string, elapsed time.Duration) {
	storeOperations.WithLabelValues(op, outcome).Inc()
	storeOperationDuration.WithLabelValues(op).Observe(elapsed.Seconds())
}

// SetDocumentKeys records the size of the current document.
func SetDocumentKeys(n int) {
	storeDocumentKeys.Set(float64(n))
}

// IncListenerDrop counts a change notification that could not be delivered.
func IncListenerDrop() {
	storeListenerDrops.Inc()
}

// RecordInvocation records the outcome and latency of one command invocation.
func RecordInvocation(command, outcome string, elapsed time.Duration) {
	invocations.WithLabelValues(command, outcome).Inc()
	invocationDuration.WithLabelValues(command).Observe(elapsed.Seconds())
}
