package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Cleaning metrics
var (
	// RowsInterpolated counts missing values filled per source table
	RowsInterpolated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "conso_rows_interpolated_total",
			Help: "Missing values filled by interpolation, per source table",
		},
		[]string{"table"},
	)

	// RowsRepaired counts out-of-range values replaced per source table
	RowsRepaired = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "conso_rows_repaired_total",
			Help: "Out-of-range values replaced by the column median, per source table",
		},
		[]string{"table"},
	)

	// RowsDeduplicated counts duplicate timestamps dropped per source table
	RowsDeduplicated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "conso_rows_deduplicated_total",
			Help: "Duplicate-timestamp rows dropped, per source table",
		},
		[]string{"table"},
	)
)

// Fusion and persistence metrics
var (
	// RowsDropped counts fused rows discarded for unusable values
	RowsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "conso_fusion_rows_dropped_total",
			Help: "Rows discarded during fusion for holding unusable values",
		},
	)

	// RowsPersisted counts rows written per table
	RowsPersisted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "conso_rows_persisted_total",
			Help: "Rows written to storage, per table",
		},
		[]string{"table"},
	)

	// StageDuration tracks how long each pipeline stage takes
	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "conso_stage_duration_seconds",
			Help:    "Duration of pipeline stages in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"stage"},
	)

	// PipelineRuns counts complete pipeline runs by outcome
	PipelineRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "conso_pipeline_runs_total",
			Help: "Complete pipeline runs, by outcome",
		},
		[]string{"status"},
	)
)

// ObserveStage records the duration of one pipeline stage
func ObserveStage(stage string, start time.Time) {
	StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

// RecordCleaning feeds the cleaning counters for one source table
func RecordCleaning(table string, interpolated, repaired, duplicates int) {
	RowsInterpolated.WithLabelValues(table).Add(float64(interpolated))
	RowsRepaired.WithLabelValues(table).Add(float64(repaired))
	RowsDeduplicated.WithLabelValues(table).Add(float64(duplicates))
}
