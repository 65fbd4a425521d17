package model_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pywr-go/pywr/metric"
	"github.com/pywr-go/pywr/model"
	"github.com/pywr-go/pywr/network"
	"github.com/pywr-go/pywr/recorder"
	"github.com/pywr-go/pywr/scenario"
	"github.com/pywr-go/pywr/scheduler"
	"github.com/pywr-go/pywr/solver"
	"github.com/pywr-go/pywr/solver/reference"
	"github.com/pywr-go/pywr/timestep"
)

func threeNodeChain(t *testing.T) *network.Network {
	t.Helper()
	net := network.NewNetwork()
	in, err := net.AddInput("supply", "")
	require.NoError(t, err)
	link, err := net.AddLink("channel", "")
	require.NoError(t, err)
	out, err := net.AddOutput("demand", "")
	require.NoError(t, err)
	_, err = net.Connect(in, link)
	require.NoError(t, err)
	_, err = net.Connect(link, out)
	require.NoError(t, err)
	require.NoError(t, net.SetMaxFlow(in, metric.Constant(8)))
	require.NoError(t, net.SetMaxFlow(out, metric.Constant(8)))
	require.NoError(t, net.SetCost(out, metric.Constant(-1)))
	return net
}

func TestModelRunReturnsPerScenarioRecorderResults(t *testing.T) {
	net := threeNodeChain(t)
	times, err := timestep.NewDomain(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), 3, 1)
	require.NoError(t, err)
	scenarios, err := scenario.NewDomain(scenario.Group{Name: "inflow", Size: 2})
	require.NoError(t, err)

	reg := recorder.NewRegistry()
	require.NoError(t, reg.AddMetricSet(recorder.NewMetricSet("demand-flow", metric.EdgeFlow{Edge: 1})))
	require.NoError(t, reg.AddRecorder(recorder.NewStatsRecorder("demand-stats", "demand-flow", 0)))

	m := model.New(net, times, scenarios, reg, scheduler.NewRunSettings())
	results, err := m.Run(reference.NewSetup(), solver.NewSettings())
	require.NoError(t, err)
	require.Len(t, results, 2)

	for s := 0; s < 2; s++ {
		stats := results[s]["demand-stats"].(recorder.Stats)
		require.InDelta(t, 8.0, stats.Mean, 1e-6)
		require.Equal(t, 3, stats.N)
	}
}

func TestModelRunWithStateAdvancesOneStepAtATime(t *testing.T) {
	net := threeNodeChain(t)
	times, err := timestep.NewDomain(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), 2, 1)
	require.NoError(t, err)

	m := model.New(net, times, nil, nil, scheduler.NewRunSettings())
	rs, err := m.RunWithState(reference.NewSetup(), solver.NewSettings())
	require.NoError(t, err)

	require.False(t, rs.Done())
	require.NoError(t, rs.Step())
	require.False(t, rs.Done())
	require.NoError(t, rs.Step())
	require.True(t, rs.Done())
	require.ErrorIs(t, rs.Step(), model.ErrStepPastEnd)

	_, err = rs.Finalise()
	require.NoError(t, err)
}
