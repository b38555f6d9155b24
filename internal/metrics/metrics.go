package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
)

// Metrics exposes application-level counters served on /metrics.
type Metrics struct {
	RelayTransitions     *prometheus.CounterVec
	HookVetoes           *prometheus.CounterVec
	SettlementsFinalized prometheus.Counter
	SettlementConflicts  prometheus.Counter
}

// New builds the counters without registering them, so tests can hold
// isolated instances.
func New() *Metrics {
	return &Metrics{
		RelayTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "relaygrid_order_transitions_total",
			Help: "Order relay transitions by from/to status.",
		}, []string{"from", "to"}),
		HookVetoes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "relaygrid_hook_vetoes_total",
			Help: "Operations vetoed by a before hook, by extension.",
		}, []string{"extension"}),
		SettlementsFinalized: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "relaygrid_settlements_finalized_total",
			Help: "Settlements finalized.",
		}),
		SettlementConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "relaygrid_settlement_conflicts_total",
			Help: "Finalize attempts lost to a concurrent settlement.",
		}),
	}
}

// Register attaches the counters to the given registerer.
func (m *Metrics) Register(reg prometheus.Registerer) {
	reg.MustRegister(
		m.RelayTransitions,
		m.HookVetoes,
		m.SettlementsFinalized,
		m.SettlementConflicts,
	)
}

var Module = fx.Module("metrics",
	fx.Provide(New),
	fx.Invoke(func(m *Metrics) {
		m.Register(prometheus.DefaultRegisterer)
	}),
)
