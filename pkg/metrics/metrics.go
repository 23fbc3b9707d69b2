package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/taskmesh/tasksync/pkg/types"
)

var (
	CyclesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tasksync_cycles_total",
			Help: "Total number of reconciliation cycles run, by outcome",
		},
		[]string{"outcome"},
	)

	CycleDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tasksync_cycle_duration_seconds",
			Help:    "Duration of a full reconciliation cycle",
			Buckets: prometheus.DefBuckets,
		},
	)

	MappingsTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "tasksync_mappings_total",
			Help: "Number of active canonical task mappings after the last cycle",
		},
	)

	TombstonesTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "tasksync_tombstones_total",
			Help: "Number of live tombstones after the last cycle",
		},
	)

	ActionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tasksync_actions_total",
			Help: "Actions reported by the fan-out writer and deletion resolver, by kind",
		},
		[]string{"kind"},
	)

	ConflictsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tasksync_conflicts_total",
			Help: "Same-field conflicts resolved by last-write-wins, by field",
		},
		[]string{"field"},
	)

	ErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tasksync_errors_total",
			Help: "Non-fatal per-provider errors observed during a cycle, by stage",
		},
		[]string{"stage", "provider"},
	)
)

func init() {
	prometheus.MustRegister(CyclesTotal)
	prometheus.MustRegister(CycleDuration)
	prometheus.MustRegister(MappingsTotal)
	prometheus.MustRegister(TombstonesTotal)
	prometheus.MustRegister(ActionsTotal)
	prometheus.MustRegister(ConflictsTotal)
	prometheus.MustRegister(ErrorsTotal)
}

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Record folds one cycle's SyncReport into the package's metrics, plus the
// post-cycle mapping/tombstone gauges (which the report itself does not
// carry, since they describe state rather than the cycle's work).
func Record(report types.SyncReport, mappings, tombstones int) {
	outcome := "ok"
	if len(report.Errors) > 0 {
		outcome = "degraded"
	}
	CyclesTotal.WithLabelValues(outcome).Inc()
	CycleDuration.Observe(report.Duration.Seconds())

	MappingsTotal.Set(float64(mappings))
	TombstonesTotal.Set(float64(tombstones))

	for kind, count := range report.CountByKind() {
		ActionsTotal.WithLabelValues(string(kind)).Add(float64(count))
	}
	for _, c := range report.Conflicts {
		ConflictsTotal.WithLabelValues(string(c.Field)).Inc()
	}
	for _, e := range report.Errors {
		ErrorsTotal.WithLabelValues(string(e.Stage), string(e.Provider)).Inc()
	}
}
