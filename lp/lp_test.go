package lp_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pywr-go/pywr/ids"
	"github.com/pywr-go/pywr/lp"
	"github.com/pywr-go/pywr/metric"
	"github.com/pywr-go/pywr/network"
)

// fixedContext is a metric.Context stub for lp tests: every accessor but
// NodeVolume panics, since Update on these test networks only needs node
// volumes plus whatever a node's own Metric contracts resolve against
// Constant (no test that calls Update builds a virtual storage).
type fixedContext struct {
	nodeVolume map[ids.NodeIndex]float64
}

func (c fixedContext) NodeInflow(ids.NodeIndex) (float64, error)   { panic("unused") }
func (c fixedContext) NodeOutflow(ids.NodeIndex) (float64, error)  { panic("unused") }
func (c fixedContext) NodeVolume(idx ids.NodeIndex) (float64, error) {
	return c.nodeVolume[idx], nil
}
func (c fixedContext) EdgeFlow(ids.EdgeIndex) (float64, error) { panic("unused") }
func (c fixedContext) AggregatedNodeInflow(ids.AggregatedNodeIndex) (float64, error) {
	panic("unused")
}
func (c fixedContext) AggregatedNodeOutflow(ids.AggregatedNodeIndex) (float64, error) {
	panic("unused")
}
func (c fixedContext) AggregatedNodeVolume(ids.AggregatedStorageNodeIndex) (float64, error) {
	panic("unused")
}
func (c fixedContext) VirtualStorageVolume(ids.VirtualStorageIndex) (float64, error) {
	panic("unused")
}
func (c fixedContext) DerivedMetricValue(ids.DerivedMetricIndex) (float64, error) { panic("unused") }
func (c fixedContext) ParameterF64(ids.ParameterIndex) (float64, error)          { panic("unused") }
func (c fixedContext) ParameterMultiF64(ids.ParameterIndex, string) (float64, error) {
	panic("unused")
}
func (c fixedContext) InterNetworkValue(ids.InterNetworkIndex) (float64, error) { panic("unused") }

var _ metric.Context = fixedContext{}

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

func TestBuildCollapsesTrivialLinkColumn(t *testing.T) {
	net, _, _, _ := threeNodeChain(t)
	p, err := lp.Build(net)
	require.NoError(t, err)
	require.Equal(t, 1, p.NumColumns(), "the link's single in/out pair should collapse to one column")

	for _, row := range p.Rows {
		require.NotEqual(t, lp.MassBalanceRow, row.Kind, "a 1-in-1-out link needs no mass-balance row")
	}
}

func TestBuildDedupesIdenticalNodeBoundRows(t *testing.T) {
	net, _, _, _ := threeNodeChain(t)

	p, err := lp.Build(net)
	require.NoError(t, err)

	boundRows := 0
	for _, row := range p.Rows {
		if row.Kind == lp.NodeBoundRow {
			boundRows++
		}
	}
	require.Equal(t, 1, boundRows, "supply/channel/demand share one coefficient pattern on a single edge chain")
}

func TestUpdateTightensSharedNodeBoundRow(t *testing.T) {
	net, in, _, out := threeNodeChain(t)
	require.NoError(t, net.SetMaxFlow(in, metric.Constant(10)))
	require.NoError(t, net.SetMaxFlow(out, metric.Constant(7)))

	p, err := lp.Build(net)
	require.NoError(t, err)

	ctx := fixedContext{nodeVolume: map[ids.NodeIndex]float64{}}
	_, err = p.Update(net, ctx, 1.0)
	require.NoError(t, err)

	var bound lp.Row
	for _, row := range p.Rows {
		if row.Kind == lp.NodeBoundRow {
			bound = row
		}
	}
	require.Equal(t, float64(lp.FMIN), bound.LB)
	require.Equal(t, 7.0, bound.UB, "the tighter of the two max-flow contracts should win")
}

func TestUpdateAppliesObjectiveCosts(t *testing.T) {
	net, in, _, out := threeNodeChain(t)
	require.NoError(t, net.SetCost(in, metric.Constant(2)))
	require.NoError(t, net.SetCost(out, metric.Constant(3)))

	p, err := lp.Build(net)
	require.NoError(t, err)

	ctx := fixedContext{nodeVolume: map[ids.NodeIndex]float64{}}
	_, err = p.Update(net, ctx, 1.0)
	require.NoError(t, err)
	require.Equal(t, []float64{5}, p.Objective)
}

// fiveNodeChainOutOfOrder builds supply -> L1 -> L2 -> L3 -> L4 -> demand,
// five trivially-collapsible edges over four Link nodes, but registers the
// Link nodes with the network in the order L2, L4, L1, L3. Since buildColumns
// walks net.Nodes() in registration order, this forces the L2 merge (e1, e2)
// and the L4 merge (e3, e4) to happen before L1 and L3 ever run, so each of
// those two merges starts from a pair of still-solo columns. L1's merge (e0,
// e1) and L3's merge (e2, e3) then each pull a fresh edge into an
// already-merged, multi-edge column, and L3's in particular unions the {e0,
// e1, e2} group with the {e3, e4} group built up independently on the other
// side of the chain.
func fiveNodeChainOutOfOrder(t *testing.T) (net *network.Network, edges []ids.EdgeIndex) {
	t.Helper()
	net = network.NewNetwork()

	in, err := net.AddInput("supply", "")
	require.NoError(t, err)
	l2, err := net.AddLink("l2", "")
	require.NoError(t, err)
	l4, err := net.AddLink("l4", "")
	require.NoError(t, err)
	l1, err := net.AddLink("l1", "")
	require.NoError(t, err)
	l3, err := net.AddLink("l3", "")
	require.NoError(t, err)
	out, err := net.AddOutput("demand", "")
	require.NoError(t, err)

	e0, err := net.Connect(in, l1)
	require.NoError(t, err)
	e1, err := net.Connect(l1, l2)
	require.NoError(t, err)
	e2, err := net.Connect(l2, l3)
	require.NoError(t, err)
	e3, err := net.Connect(l3, l4)
	require.NoError(t, err)
	e4, err := net.Connect(l4, out)
	require.NoError(t, err)

	return net, []ids.EdgeIndex{e0, e1, e2, e3, e4}
}

func TestBuildMergesColumnGroupsAcrossOutOfOrderLinkChain(t *testing.T) {
	net, edges := fiveNodeChainOutOfOrder(t)

	p, err := lp.Build(net)
	require.NoError(t, err)
	require.Equal(t, 1, p.NumColumns(), "the whole chain's edges share one physically-constrained flow")

	want, err := p.Columns.ColumnForEdge(edges[0])
	require.NoError(t, err)
	for _, e := range edges[1:] {
		got, err := p.Columns.ColumnForEdge(e)
		require.NoError(t, err)
		require.Equal(t, want, got, "every edge in the chain must share the same column")
	}

	for _, row := range p.Rows {
		require.NotEqual(t, lp.MassBalanceRow, row.Kind, "a chain of 1-in-1-out links needs no mass-balance rows")
	}
}

func TestBuildAddsVirtualStorageBoundRowPair(t *testing.T) {
	net, in, _, _ := threeNodeChain(t)
	_, err := net.AddVirtualStorage(
		"account", "",
		[]network.Member{{Node: int(in), Factor: 1}},
		network.Absolute(5), metric.Constant(0), metric.Constant(10),
	)
	require.NoError(t, err)

	p, err := lp.Build(net)
	require.NoError(t, err)

	vsRows := 0
	for _, row := range p.Rows {
		if row.Kind == lp.VirtualStorageBoundRow {
			vsRows++
		}
	}
	require.Equal(t, 2, vsRows)
}
