package prometheus

import (
	"time"

	"github.com/turtacn/OpportunityRadar/internal/application/pipeline"
)

// Default buckets.
var (
	DefaultRunDurationBuckets  = []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120}
	DefaultHTTPDurationBuckets = []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5}
)

// RadarMetrics holds the pipeline and API metrics.  It implements
// pipeline.Metrics.
type RadarMetrics struct {
	RunsTotal            CounterVec
	RunDuration          HistogramVec
	StageRows            GaugeVec
	Categories           GaugeVec
	PublisherErrorsTotal CounterVec
	LastSuccessTimestamp GaugeVec

	HTTPRequestsTotal   CounterVec
	HTTPRequestDuration HistogramVec
	SnapshotReloads     CounterVec
}

var _ pipeline.Metrics = (*RadarMetrics)(nil)

// NewRadarMetrics registers every metric on collector.
func NewRadarMetrics(collector MetricsCollector) *RadarMetrics {
	return &RadarMetrics{
		RunsTotal:            collector.RegisterCounter("pipeline_runs_total", "Pipeline runs by outcome", "status"),
		RunDuration:          collector.RegisterHistogram("pipeline_run_duration_seconds", "Pipeline run wall time", DefaultRunDurationBuckets, "status"),
		StageRows:            collector.RegisterGauge("pipeline_stage_rows", "Rows produced by each stage in the last run", "stage"),
		Categories:           collector.RegisterGauge("pipeline_categories", "Categories ranked in the last successful run"),
		PublisherErrorsTotal: collector.RegisterCounter("publisher_errors_total", "Failed publisher deliveries", "publisher"),
		LastSuccessTimestamp: collector.RegisterGauge("pipeline_last_success_timestamp_seconds", "Unix time of the last successful run"),

		HTTPRequestsTotal:   collector.RegisterCounter("http_requests_total", "Total HTTP requests", "method", "path", "status_code"),
		HTTPRequestDuration: collector.RegisterHistogram("http_request_duration_seconds", "HTTP request duration", DefaultHTTPDurationBuckets, "method", "path"),
		SnapshotReloads:     collector.RegisterCounter("snapshot_reloads_total", "Opportunity snapshot reloads by outcome", "status"),
	}
}

// ObserveRun records one run.
func (m *RadarMetrics) ObserveRun(status string, d time.Duration) {
	m.RunsTotal.WithLabelValues(status).Inc()
	m.RunDuration.WithLabelValues(status).Observe(d.Seconds())
	if status == pipeline.StatusSuccess {
		m.LastSuccessTimestamp.WithLabelValues().Set(float64(time.Now().Unix()))
	}
}

// SetStageRows records the output size of one stage.
func (m *RadarMetrics) SetStageRows(stage string, rows int) {
	m.StageRows.WithLabelValues(stage).Set(float64(rows))
}

// SetCategories records the number of ranked categories.
func (m *RadarMetrics) SetCategories(n int) {
	m.Categories.WithLabelValues().Set(float64(n))
}

// IncPublisherError counts a failed publisher.
func (m *RadarMetrics) IncPublisherError(publisher string) {
	m.PublisherErrorsTotal.WithLabelValues(publisher).Inc()
}

// ObserveSnapshotReload counts a snapshot reload attempt.
func (m *RadarMetrics) ObserveSnapshotReload(err error) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	m.SnapshotReloads.WithLabelValues(status).Inc()
}
