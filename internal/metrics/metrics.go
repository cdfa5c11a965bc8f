package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// OutcomeSuccess labels successful analyses and ticket actions.
	OutcomeSuccess = "success"
	// OutcomeError labels failed analyses and ticket actions.
	OutcomeError = "error"

	// CapabilitySearch labels failures of the log search capability.
	CapabilitySearch = "search"
	// CapabilityAggregation labels failures of the analytical aggregation capability.
	CapabilityAggregation = "aggregation"

	// FailureUnsupported marks a backend that does not support the resource.
	FailureUnsupported = "unsupported"
	// FailureTransport marks connectivity, timeout, and backend-error failures.
	FailureTransport = "transport"
)

var (
	analysesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "opsleuth",
			Name:      "analyses_total",
			Help:      "Total number of analyses handled, partitioned by outcome.",
		},
		[]string{"outcome"},
	)

	analysisDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "opsleuth",
			Name:      "analysis_seconds",
			Help:      "Analysis latency in seconds.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 3, 4, 5, 6, 8, 10},
		},
	)

	retrievalFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "opsleuth",
			Name:      "retrieval_failures_total",
			Help:      "Retrieval step failures, partitioned by capability and failure kind.",
		},
		[]string{"capability", "kind"},
	)

	ticketActionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "opsleuth",
			Name:      "ticket_actions_total",
			Help:      "Ticket creation attempts, partitioned by outcome.",
		},
		[]string{"outcome"},
	)
)

// Register attaches opsleuth collectors to the supplied Prometheus registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		analysesTotal,
		analysisDurationSeconds,
		retrievalFailuresTotal,
		ticketActionsTotal,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveAnalysis records an analysis duration and outcome label.
func ObserveAnalysis(duration time.Duration, outcome string) {
	label := outcome
	if label != OutcomeError {
		label = OutcomeSuccess
	}
	analysesTotal.WithLabelValues(label).Inc()
	if duration < 0 {
		duration = 0
	}
	analysisDurationSeconds.Observe(duration.Seconds())
}

// ObserveRetrievalFailure counts a failed retrieval step.
func ObserveRetrievalFailure(capability, kind string) {
	retrievalFailuresTotal.WithLabelValues(capability, kind).Inc()
}

// ObserveTicketAction counts a ticket creation attempt by outcome.
func ObserveTicketAction(outcome string) {
	label := outcome
	if label != OutcomeError {
		label = OutcomeSuccess
	}
	ticketActionsTotal.WithLabelValues(label).Inc()
}
