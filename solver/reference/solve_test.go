package reference_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pywr-go/pywr/ids"
	"github.com/pywr-go/pywr/lp"
	"github.com/pywr-go/pywr/metric"
	"github.com/pywr-go/pywr/network"
	"github.com/pywr-go/pywr/solver"
	"github.com/pywr-go/pywr/solver/reference"
	"github.com/pywr-go/pywr/state"
	"github.com/pywr-go/pywr/timestep"
)

func dailyStep(index int) timestep.Timestep {
	return timestep.Timestep{Date: time.Date(2026, 1, 1+index, 0, 0, 0, 0, time.UTC), Index: index, DurationDays: 1}
}

func threeNodeChain(t *testing.T) (*network.Network, ids.NodeIndex, ids.NodeIndex, ids.NodeIndex) {
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
	return net, in, link, out
}

func TestSolverSatisfiesDemandWithinSupplyLimit(t *testing.T) {
	net, in, _, out := threeNodeChain(t)
	require.NoError(t, net.SetMaxFlow(in, metric.Constant(10)))
	require.NoError(t, net.SetMaxFlow(out, metric.Constant(10)))
	require.NoError(t, net.SetMinFlow(out, metric.Constant(4)))
	require.NoError(t, net.SetCost(in, metric.Constant(1)))
	require.NoError(t, net.SetCost(out, metric.Constant(-10)))

	problem, err := lp.Build(net)
	require.NoError(t, err)

	st := state.NewBuilder(net, 0).Build()

	setup := reference.NewSetup()
	s, err := setup(net, problem, solver.NewSettings())
	require.NoError(t, err)

	timings, err := s.Solve(problem, net, dailyStep(0), st)
	require.NoError(t, err)
	require.Greater(t, timings.Solve, time.Duration(0))

	flow, err := st.EdgeFlow(0)
	require.NoError(t, err)
	require.InDelta(t, 10.0, flow, 1e-6, "maximizing the negative-cost demand edge should drive flow to its upper bound")
}

func TestSolverRejectsInfeasibleBounds(t *testing.T) {
	net, in, _, out := threeNodeChain(t)
	require.NoError(t, net.SetMinFlow(in, metric.Constant(5)))
	require.NoError(t, net.SetMaxFlow(out, metric.Constant(1)))

	problem, err := lp.Build(net)
	require.NoError(t, err)

	st := state.NewBuilder(net, 0).Build()
	setup := reference.NewSetup()
	s, err := setup(net, problem, solver.NewSettings())
	require.NoError(t, err)

	_, err = s.Solve(problem, net, dailyStep(0), st)
	require.ErrorIs(t, err, solver.ErrSolveFailed)
}

func TestSolverFeaturesCoverAggregatedAndVirtualStorage(t *testing.T) {
	setup := reference.NewSetup()
	net := network.NewNetwork()
	problem, err := lp.Build(net)
	require.NoError(t, err)
	s, err := setup(net, problem, solver.NewSettings())
	require.NoError(t, err)

	features := s.Features()
	require.Contains(t, features, network.AggregatedNodeFeature)
	require.Contains(t, features, network.VirtualStorageFeature)
	require.NotContains(t, features, network.AggregatedNodeDynamicFactorsFeature)
	require.NotContains(t, features, network.MutualExclusivityFeature)
}
