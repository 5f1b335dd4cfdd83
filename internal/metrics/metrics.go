package metrics

import (
	"flowdeck/internal/core/ports"

	"github.com/prometheus/client_golang/prometheus"
)

// Retention tracks what the retention engine removes from the hot path.
type Retention struct {
	RunsDeleted      prometheus.Counter
	DeletionFailures prometheus.Counter
	RowsDeleted      *prometheus.CounterVec
}

func NewRetention(reg prometheus.Registerer) *Retention {
	m := &Retention{
		RunsDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "flowdeck_retention_runs_deleted_total",
			Help: "Workflow runs removed from the hot path by the retention engine.",
		}),
		DeletionFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "flowdeck_retention_deletion_failures_total",
			Help: "Per-run deletion attempts that failed.",
		}),
		RowsDeleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "flowdeck_retention_rows_deleted_total",
			Help: "Dependent rows removed alongside runs, by record family.",
		}, []string{"family"}),
	}
	reg.MustRegister(m.RunsDeleted, m.DeletionFailures, m.RowsDeleted)
	return m
}

// Observe records one successful cascade deletion tally.
func (m *Retention) Observe(counts ports.RelatedCounts) {
	m.RunsDeleted.Add(float64(counts.Runs))
	m.RowsDeleted.WithLabelValues("node_executions").Add(float64(counts.NodeExecutions))
	m.RowsDeleted.WithLabelValues("offloads").Add(float64(counts.Offloads))
	m.RowsDeleted.WithLabelValues("trigger_logs").Add(float64(counts.TriggerLogs))
	m.RowsDeleted.WithLabelValues("app_logs").Add(float64(counts.AppLogs))
	m.RowsDeleted.WithLabelValues("pauses").Add(float64(counts.Pauses))
	m.RowsDeleted.WithLabelValues("pause_reasons").Add(float64(counts.PauseReasons))
}
