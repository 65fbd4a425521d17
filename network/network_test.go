package network_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pywr-go/pywr/ids"
	"github.com/pywr-go/pywr/metric"
	"github.com/pywr-go/pywr/network"
)

func TestAddNodeRejectsDuplicateNames(t *testing.T) {
	net := network.NewNetwork()
	_, err := net.AddInput("supply", "")
	require.NoError(t, err)
	_, err = net.AddLink("supply", "")
	require.ErrorIs(t, err, network.ErrDuplicateName)
}

func TestConnectRejectsSelfLoopsAndWrongEndpointKinds(t *testing.T) {
	net := network.NewNetwork()
	in, err := net.AddInput("supply", "")
	require.NoError(t, err)
	out, err := net.AddOutput("demand", "")
	require.NoError(t, err)

	_, err = net.Connect(in, in)
	require.ErrorIs(t, err, network.ErrSelfConnection)

	_, err = net.Connect(out, in)
	require.ErrorIs(t, err, network.ErrInvalidEndpointKind)

	_, err = net.Connect(in, out)
	require.NoError(t, err)
}

func TestSetFlowVolumeSettersRejectWrongNodeKind(t *testing.T) {
	net := network.NewNetwork()
	link, err := net.AddLink("channel", "")
	require.NoError(t, err)
	storage, err := net.AddStorage("reservoir", "")
	require.NoError(t, err)

	require.ErrorIs(t, net.SetMinFlow(storage, metric.Constant(1)), network.ErrWrongSetterForKind)
	require.ErrorIs(t, net.SetMaxFlow(storage, metric.Constant(1)), network.ErrWrongSetterForKind)
	require.ErrorIs(t, net.SetMinVolume(link, metric.Constant(1)), network.ErrWrongSetterForKind)
	require.ErrorIs(t, net.SetMaxVolume(link, metric.Constant(1)), network.ErrWrongSetterForKind)
	require.ErrorIs(t, net.SetInitialVolume(link, network.Absolute(1)), network.ErrWrongSetterForKind)

	require.NoError(t, net.SetMaxFlow(link, metric.Constant(5)))
	require.NoError(t, net.SetMaxVolume(storage, metric.Constant(100)))
	require.NoError(t, net.SetCost(link, metric.Constant(-1)))
	require.NoError(t, net.SetCost(storage, metric.Constant(-1)))
}

func TestValidateRejectsTooFewNodesOrNoEdges(t *testing.T) {
	net := network.NewNetwork()
	require.ErrorIs(t, net.Validate(), network.ErrSingleNode)

	in, err := net.AddInput("supply", "")
	require.NoError(t, err)
	out, err := net.AddOutput("demand", "")
	require.NoError(t, err)
	require.ErrorIs(t, net.Validate(), network.ErrEmptyEdgeSet)

	_, err = net.Connect(in, out)
	require.NoError(t, err)
	require.NoError(t, net.Validate())
}

func TestRequiredFeaturesReflectsDeclaredRelationships(t *testing.T) {
	net := network.NewNetwork()
	in, err := net.AddInput("supply", "")
	require.NoError(t, err)
	l0, err := net.AddLink("branch0", "")
	require.NoError(t, err)
	l1, err := net.AddLink("branch1", "")
	require.NoError(t, err)
	_, err = net.Connect(in, l0)
	require.NoError(t, err)
	_, err = net.Connect(in, l1)
	require.NoError(t, err)

	_, err = net.AddAggregatedNode("branches", "", []ids.NodeIndex{l0, l1}, network.WithMutualExclusivity(1, 1))
	require.NoError(t, err)

	features := net.RequiredFeatures()
	_, hasAgg := features[network.AggregatedNodeFeature]
	_, hasMutex := features[network.MutualExclusivityFeature]
	require.True(t, hasAgg)
	require.True(t, hasMutex)
	_, hasVS := features[network.VirtualStorageFeature]
	require.False(t, hasVS)
}
