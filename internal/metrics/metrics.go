// Package metrics provides the Prometheus collectors for submission
// evaluation.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Worker fault kinds.
const (
	FaultTimeout   = "timeout"
	FaultCrash     = "crash"
	FaultLingering = "lingering"
)

// Metrics contains all Prometheus metrics for the hunt. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	EvaluationsTotal *prometheus.CounterVec // Evaluations by outcome status
	PipelineDuration prometheus.Histogram   // Wall time of completed pipeline runs
	WorkerFaults     *prometheus.CounterVec // Timeouts, crashes and lingering workers
	PointsAwarded    prometheus.Counter     // Sum of all points awarded
}

// New creates the hunt metrics and registers them with registerer.
func New(registerer prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{}
	m.initMetrics()
	if err := registerer.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register hunt metrics: %w", err)
	}
	return m, nil
}

func (m *Metrics) initMetrics() {
	m.EvaluationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qrhunt_evaluations_total",
			Help: "Total number of evaluated submissions by outcome status",
		},
		[]string{"status"},
	)

	m.PipelineDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "qrhunt_pipeline_duration_seconds",
			Help:    "Time taken by the detection pipeline for one submission",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30}, // 50ms to the default timeout
		},
	)

	m.WorkerFaults = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qrhunt_worker_faults_total",
			Help: "Total number of worker faults by kind",
		},
		[]string{"kind"}, // kind: timeout, crash, lingering
	)

	m.PointsAwarded = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "qrhunt_points_awarded_total",
			Help: "Total number of points awarded to all users",
		},
	)
}

// RecordEvaluation counts one finished evaluation.
func (m *Metrics) RecordEvaluation(status string) {
	if m == nil {
		return
	}
	m.EvaluationsTotal.WithLabelValues(status).Inc()
}

// RecordPipeline observes the duration of a completed pipeline run.
func (m *Metrics) RecordPipeline(d time.Duration) {
	if m == nil {
		return
	}
	m.PipelineDuration.Observe(d.Seconds())
}

// RecordWorkerFault counts a worker fault of the given kind.
func (m *Metrics) RecordWorkerFault(kind string) {
	if m == nil {
		return
	}
	m.WorkerFaults.WithLabelValues(kind).Inc()
}

// RecordPoints adds awarded points.
func (m *Metrics) RecordPoints(points int64) {
	if m == nil || points <= 0 {
		return
	}
	m.PointsAwarded.Add(float64(points))
}

// Collect implements the prometheus.Collector interface.
func (m *Metrics) Collect(ch chan<- prometheus.Metric) {
	m.EvaluationsTotal.Collect(ch)
	m.PipelineDuration.Collect(ch)
	m.WorkerFaults.Collect(ch)
	m.PointsAwarded.Collect(ch)
}

// Describe implements the prometheus.Collector interface.
func (m *Metrics) Describe(ch chan<- *prometheus.Desc) {
	m.EvaluationsTotal.Describe(ch)
	m.PipelineDuration.Describe(ch)
	m.WorkerFaults.Describe(ch)
	m.PointsAwarded.Describe(ch)
}
