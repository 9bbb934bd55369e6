package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// GateEvaluationsTotal counts gate evaluations by mode and result
	GateEvaluationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gate_evaluations_total",
			Help: "Total number of gate evaluations",
		},
		[]string{"mode", "result"},
	)

	// GateEvaluationDuration tracks gate evaluation time
	GateEvaluationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gate_evaluation_duration_seconds",
			Help:    "Gate evaluation duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"mode"},
	)

	// AuthAttemptsTotal counts verification attempts by outcome
	AuthAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gate_auth_attempts_total",
			Help: "Total number of wallet verification attempts",
		},
		[]string{"outcome"},
	)

	// NoncesIssuedTotal counts issued challenge nonces
	NoncesIssuedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gate_nonces_issued_total",
			Help: "Total number of challenge nonces issued",
		},
	)

	// PriceFetchesTotal counts upstream price fetches by mode and status
	PriceFetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gate_price_fetches_total",
			Help: "Total number of upstream price fetches",
		},
		[]string{"mode", "status"},
	)

	// PriceCacheTotal counts price cache lookups by result
	PriceCacheTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gate_price_cache_total",
			Help: "Total number of price cache lookups",
		},
		[]string{"result"},
	)
)
