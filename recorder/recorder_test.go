package recorder_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pywr-go/pywr/metric"
	"github.com/pywr-go/pywr/recorder"
)

func TestMetricSetSampleAppendsRow(t *testing.T) {
	ms := recorder.NewMetricSet("demand", metric.Constant(4), metric.Constant(9))
	var series recorder.Series
	require.NoError(t, ms.Sample(nil, &series))
	require.NoError(t, ms.Sample(nil, &series))
	require.Equal(t, 2, series.Len())
	require.Equal(t, []float64{4, 9}, series.Row(0))
	require.Equal(t, []float64{4, 4}, series.Column(0))
}

func TestRegistryRejectsDuplicateNames(t *testing.T) {
	reg := recorder.NewRegistry()
	require.NoError(t, reg.AddMetricSet(recorder.NewMetricSet("a", metric.Constant(1))))
	require.ErrorIs(t, reg.AddMetricSet(recorder.NewMetricSet("a", metric.Constant(2))), recorder.ErrDuplicateName)

	require.NoError(t, reg.AddRecorder(recorder.NewMemoryRecorder("mem", "a")))
	require.ErrorIs(t, reg.AddRecorder(recorder.NewMemoryRecorder("mem", "a")), recorder.ErrDuplicateName)
}

func TestScenarioSinkSamplesAndFinalises(t *testing.T) {
	reg := recorder.NewRegistry()
	require.NoError(t, reg.AddMetricSet(recorder.NewMetricSet("demand", metric.Constant(10))))
	require.NoError(t, reg.AddRecorder(recorder.NewMemoryRecorder("raw", "demand")))
	require.NoError(t, reg.AddRecorder(recorder.NewStatsRecorder("summary", "demand", 0)))

	sink, err := recorder.NewScenarioSink(reg, 0)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		require.NoError(t, sink.Sample(nil))
	}

	results, err := sink.Finalise()
	require.NoError(t, err)

	raw := results["raw"].([][]float64)
	require.Len(t, raw, 3)
	require.Equal(t, []float64{10}, raw[0])

	summary := results["summary"].(recorder.Stats)
	require.InDelta(t, 10.0, summary.Mean, 1e-9)
	require.InDelta(t, 0.0, summary.StdDev, 1e-9)
	require.Equal(t, 3, summary.N)
}

func TestScenarioSinkGivesEachScenarioIsolatedRecorderState(t *testing.T) {
	reg := recorder.NewRegistry()
	require.NoError(t, reg.AddMetricSet(recorder.NewMetricSet("demand", metric.Constant(10))))
	require.NoError(t, reg.AddRecorder(recorder.NewMemoryRecorder("raw", "demand")))

	sinkA, err := recorder.NewScenarioSink(reg, 0)
	require.NoError(t, err)
	sinkB, err := recorder.NewScenarioSink(reg, 1)
	require.NoError(t, err)

	require.NoError(t, sinkA.Sample(nil))
	require.NoError(t, sinkA.Sample(nil))
	require.NoError(t, sinkB.Sample(nil))

	resultsA, err := sinkA.Finalise()
	require.NoError(t, err)
	resultsB, err := sinkB.Finalise()
	require.NoError(t, err)

	require.Len(t, resultsA["raw"].([][]float64), 2)
	require.Len(t, resultsB["raw"].([][]float64), 1)
}

func TestStatsRecorderRejectsNaN(t *testing.T) {
	reg := recorder.NewRegistry()
	require.NoError(t, reg.AddMetricSet(recorder.NewMetricSet("bad", nanMetric{})))
	require.NoError(t, reg.AddRecorder(recorder.NewStatsRecorder("stats", "bad", 0)))

	sink, err := recorder.NewScenarioSink(reg, 0)
	require.NoError(t, err)

	err = sink.Sample(nil)
	require.Error(t, err)
}

type nanMetric struct{}

func (nanMetric) Value(metric.Context) (float64, error) {
	return nanValue(), nil
}

func nanValue() float64 {
	var zero float64
	return zero / zero
}
