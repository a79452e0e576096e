package metrics

import (
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func TestNoopRecorderIsSafe(t *testing.T) {
	var r Recorder = NoopRecorder{}
	r.ObserveStageDuration("build", time.Second)
	r.ObserveRunDuration(time.Second)
	r.IncStageResult("build", ResultSuccess)
	r.IncRunOutcome("success")
}

func TestPrometheusRecorderRegistersAndCounts(t *testing.T) {
	reg := prom.NewRegistry()
	r := NewPrometheusRecorder(reg)

	r.ObserveStageDuration("deploy", 2*time.Second)
	r.ObserveRunDuration(5 * time.Second)
	r.IncStageResult("deploy", ResultFatal)
	r.IncRunOutcome("failed")
	r.IncRunOutcome("failed")

	families, err := reg.Gather()
	require.NoError(t, err)

	byName := map[string]bool{}
	for _, f := range families {
		byName[f.GetName()] = true
		if f.GetName() == "wasmship_run_outcomes_total" {
			require.Len(t, f.GetMetric(), 1)
			require.Equal(t, float64(2), f.GetMetric()[0].GetCounter().GetValue())
		}
	}
	require.True(t, byName["wasmship_stage_duration_seconds"])
	require.True(t, byName["wasmship_run_duration_seconds"])
	require.True(t, byName["wasmship_stage_results_total"])
	require.True(t, byName["wasmship_run_outcomes_total"])
}

func TestPrometheusRecorderNilSafe(t *testing.T) {
	var r *PrometheusRecorder
	r.ObserveStageDuration("build", time.Second)
	r.IncRunOutcome("success")
}
