package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors for the ledger core.
type Metrics struct {
	TransactionsPosted   prometheus.Counter
	TransactionsReversed prometheus.Counter
	TransactionsRejected *prometheus.CounterVec
	VersionsRecorded     prometheus.Counter
	VersionsCorrected    prometheus.Counter
	CorrectionConflicts  prometheus.Counter
}

// New creates and registers all collectors on the default registry.
func New() *Metrics {
	return &Metrics{
		TransactionsPosted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "ledgercore_transactions_posted_total",
			Help: "Total number of transactions committed to the ledger",
		}),
		TransactionsReversed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "ledgercore_transactions_reversed_total",
			Help: "Total number of reversing transactions posted",
		}),
		TransactionsRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "ledgercore_transactions_rejected_total",
			Help: "Transactions rejected before commit, by reason",
		}, []string{"reason"}),
		VersionsRecorded: promauto.NewCounter(prometheus.CounterOpts{
			Name: "ledgercore_versions_recorded_total",
			Help: "Total number of first versions recorded",
		}),
		VersionsCorrected: promauto.NewCounter(prometheus.CounterOpts{
			Name: "ledgercore_versions_corrected_total",
			Help: "Total number of bi-temporal corrections applied",
		}),
		CorrectionConflicts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "ledgercore_correction_conflicts_total",
			Help: "Corrections that lost an optimistic-concurrency race",
		}),
	}
}

// IncPosted increments the posted-transactions counter.
func (m *Metrics) IncPosted() {
	if m != nil {
		m.TransactionsPosted.Inc()
	}
}

// IncReversed increments the reversed-transactions counter.
func (m *Metrics) IncReversed() {
	if m != nil {
		m.TransactionsReversed.Inc()
	}
}

// IncRejected increments the rejected counter for the given reason label.
func (m *Metrics) IncRejected(reason string) {
	if m != nil {
		m.TransactionsRejected.WithLabelValues(reason).Inc()
	}
}

// IncRecorded increments the recorded-versions counter.
func (m *Metrics) IncRecorded() {
	if m != nil {
		m.VersionsRecorded.Inc()
	}
}

// IncCorrected increments the corrected-versions counter.
func (m *Metrics) IncCorrected() {
	if m != nil {
		m.VersionsCorrected.Inc()
	}
}

// IncCorrectionConflict increments the optimistic-conflict counter.
func (m *Metrics) IncCorrectionConflict() {
	if m != nil {
		m.CorrectionConflicts.Inc()
	}
}
