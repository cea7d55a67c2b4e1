package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Registers(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := New(reg)
	require.NoError(t, err)

	m.RecordEvaluation("SCORED")
	m.RecordEvaluation("SCORED")
	m.RecordEvaluation("DUPLICATE")
	m.RecordWorkerFault(FaultTimeout)
	m.RecordPoints(7)
	m.RecordPoints(0)
	m.RecordPipeline(150 * time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.EvaluationsTotal.WithLabelValues("SCORED")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EvaluationsTotal.WithLabelValues("DUPLICATE")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.WorkerFaults.WithLabelValues(FaultTimeout)))
	assert.Equal(t, 7.0, testutil.ToFloat64(m.PointsAwarded))

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	for _, want := range []string{
		"qrhunt_evaluations_total",
		"qrhunt_pipeline_duration_seconds",
		"qrhunt_worker_faults_total",
		"qrhunt_points_awarded_total",
	} {
		assert.True(t, names[want], "missing %s", want)
	}
}

func TestNew_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := New(reg)
	require.NoError(t, err)

	_, err = New(reg)
	assert.Error(t, err)
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordEvaluation("SCORED")
		m.RecordPipeline(time.Second)
		m.RecordWorkerFault(FaultCrash)
		m.RecordPoints(3)
	})
}
