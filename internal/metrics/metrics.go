// Package metrics exposes prometheus counters for the creation gate and the
// identity merge path.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/fx"
)

type Metrics struct {
	GateDecisions   *prometheus.CounterVec
	CreditsConsumed prometheus.Counter
	ConsumeConflict prometheus.Counter
	MergesCompleted prometheus.Counter
	SongsReassigned prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		GateDecisions: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "songsmith",
			Name:      "gate_decisions_total",
			Help:      "Creation gate decisions by reason.",
		}, []string{"reason"}),
		CreditsConsumed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "songsmith",
			Name:      "credits_consumed_total",
			Help:      "Purchased credits consumed.",
		}),
		ConsumeConflict: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "songsmith",
			Name:      "credit_consume_conflicts_total",
			Help:      "Credit decrements that lost to a concurrent request.",
		}),
		MergesCompleted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "songsmith",
			Name:      "identity_merges_total",
			Help:      "Completed identity merges.",
		}),
		SongsReassigned: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "songsmith",
			Name:      "songs_reassigned_total",
			Help:      "Guest songs reassigned to accounts during merges.",
		}),
	}
}

var Module = fx.Module("metrics",
	fx.Provide(New),
)
