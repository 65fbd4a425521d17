package lp

import (
	"github.com/pywr-go/pywr/ids"
	"github.com/pywr-go/pywr/network"
)

// Build constructs a Problem from net's current topology: the column map
// (§4.H.1), then the fixed and variable rows in the order §4.H.2 lists them.
// Variable rows start at [FMIN, FMAX] and the objective at zero; the first
// Update call populates them before the first solve.
func Build(net *network.Network) (*Problem, error) {
	cols, err := buildColumns(net)
	if err != nil {
		return nil, err
	}

	p := &Problem{
		Columns:       cols,
		Objective:     make([]float64, cols.NumColumns()),
		nodeRow:       make(map[ids.NodeIndex]int),
		rowKeyToIndex: make(map[string]int),
		aggTotalRow:   make(map[ids.AggregatedNodeIndex]int),
		aggFactorRows: make(map[ids.AggregatedNodeIndex][]int),
		vsRows:        make(map[ids.VirtualStorageIndex][2]int),
	}

	if err := p.addMassBalanceRows(net); err != nil {
		return nil, err
	}
	if err := p.addNodeBoundRows(net); err != nil {
		return nil, err
	}
	if err := p.addAggregatedRows(net); err != nil {
		return nil, err
	}
	if err := p.addVirtualStorageRows(net); err != nil {
		return nil, err
	}
	return p, nil
}

// buildColumns walks every edge onto its own column, then collapses the
// incoming/outgoing pair of any Link node with exactly one of each (§4.H.1).
func buildColumns(net *network.Network) (*ColumnEdgeMap, error) {
	b := newColumnEdgeMapBuilder()
	edges := net.Edges()
	for _, e := range edges {
		b.addSimpleEdge(ids.EdgeIndex(e.Index))
	}
	for _, n := range net.Nodes() {
		if n.Kind == network.Link && len(n.Incoming) == 1 && len(n.Outgoing) == 1 {
			b.addEqualEdges(ids.EdgeIndex(n.Incoming[0]), ids.EdgeIndex(n.Outgoing[0]))
		}
	}
	return b.build(len(edges)), nil
}

// nodeFlowCoeffs is the §4.H.2 "Node bound" coefficient pattern: outgoing sum
// for Input/Link, incoming sum for Output, incoming-minus-outgoing for
// Storage. Aggregated-node total/factor rows reuse the same rule per member,
// since a member's contribution to a group is "the flow through it" in the
// same sense a plain node bound measures its own flow.
func nodeFlowCoeffs(n *network.Node, cols *ColumnEdgeMap) (map[int]float64, error) {
	coeffs := make(map[int]float64)
	switch n.Kind {
	case network.Output:
		for _, e := range n.Incoming {
			col, err := cols.ColumnForEdge(ids.EdgeIndex(e))
			if err != nil {
				return nil, err
			}
			mergeInto(coeffs, col, 1)
		}
	case network.Storage:
		for _, e := range n.Incoming {
			col, err := cols.ColumnForEdge(ids.EdgeIndex(e))
			if err != nil {
				return nil, err
			}
			mergeInto(coeffs, col, 1)
		}
		for _, e := range n.Outgoing {
			col, err := cols.ColumnForEdge(ids.EdgeIndex(e))
			if err != nil {
				return nil, err
			}
			mergeInto(coeffs, col, -1)
		}
	default: // Input, Link
		for _, e := range n.Outgoing {
			col, err := cols.ColumnForEdge(ids.EdgeIndex(e))
			if err != nil {
				return nil, err
			}
			mergeInto(coeffs, col, 1)
		}
	}
	return coeffs, nil
}

// addMassBalanceRows adds one fixed equality row per Link node carrying more
// than one incoming or outgoing edge (§4.H.2 kind 1).
func (p *Problem) addMassBalanceRows(net *network.Network) error {
	for _, n := range net.Nodes() {
		if n.Kind != network.Link {
			continue
		}
		if len(n.Incoming) <= 1 && len(n.Outgoing) <= 1 {
			continue // trivially collapsed onto one column; no row needed
		}
		coeffs := make(map[int]float64)
		for _, e := range n.Incoming {
			col, err := p.Columns.ColumnForEdge(ids.EdgeIndex(e))
			if err != nil {
				return err
			}
			mergeInto(coeffs, col, 1)
		}
		for _, e := range n.Outgoing {
			col, err := p.Columns.ColumnForEdge(ids.EdgeIndex(e))
			if err != nil {
				return err
			}
			mergeInto(coeffs, col, -1)
		}
		p.Rows = append(p.Rows, Row{Kind: MassBalanceRow, Coeffs: coeffs, LB: 0, UB: 0})
	}
	return nil
}

// addNodeBoundRows adds one variable row per node, deduplicated by
// coefficient pattern (§4.H.2 kind 2).
func (p *Problem) addNodeBoundRows(net *network.Network) error {
	for _, n := range net.Nodes() {
		coeffs, err := nodeFlowCoeffs(n, p.Columns)
		if err != nil {
			return err
		}
		key := coeffKey(coeffs)
		if idx, ok := p.rowKeyToIndex[key]; ok {
			p.nodeRow[ids.NodeIndex(n.Index)] = idx
			continue
		}
		idx := len(p.Rows)
		p.Rows = append(p.Rows, Row{Kind: NodeBoundRow, Coeffs: coeffs, LB: FMIN, UB: FMAX, Variable: true})
		p.rowKeyToIndex[key] = idx
		p.nodeRow[ids.NodeIndex(n.Index)] = idx
	}
	return nil
}

// addAggregatedRows adds the aggregated-node total row and, for
// factor-relationship groups, the per-member factor rows (§4.H.2 kinds 3-4).
func (p *Problem) addAggregatedRows(net *network.Network) error {
	for _, a := range net.AggregatedNodes() {
		total := make(map[int]float64)
		memberCoeffs := make([]map[int]float64, len(a.Members))
		for i, m := range a.Members {
			node, err := net.Node(ids.NodeIndex(m))
			if err != nil {
				return err
			}
			c, err := nodeFlowCoeffs(node, p.Columns)
			if err != nil {
				return err
			}
			memberCoeffs[i] = c
			for col, v := range c {
				mergeInto(total, col, v)
			}
		}
		idx := len(p.Rows)
		p.Rows = append(p.Rows, Row{Kind: AggregatedTotalRow, Coeffs: total, LB: FMIN, UB: FMAX, Variable: true})
		p.aggTotalRow[ids.AggregatedNodeIndex(a.Index)] = idx

		if a.Relationship != network.FactorsRelationship {
			continue
		}
		dynamic := a.HasDynamicFactors()
		rowIdxs := make([]int, 0, len(a.Members)-1)
		for j := 1; j < len(a.Members); j++ {
			ratio := 1.0
			if !dynamic {
				// Every factor here is a metric.Constant, which ignores its
				// Context argument, so a nil Context is safe at build time.
				v0, err := a.Factors[0].Value.Value(nil)
				if err != nil {
					return err
				}
				vj, err := a.Factors[j].Value.Value(nil)
				if err != nil {
					return err
				}
				ratio = vj / v0
			}
			coeffs := make(map[int]float64)
			for col, v := range memberCoeffs[j] {
				mergeInto(coeffs, col, v)
			}
			for col, v := range memberCoeffs[0] {
				mergeInto(coeffs, col, -ratio*v)
			}
			rowIdx := len(p.Rows)
			p.Rows = append(p.Rows, Row{Kind: AggregatedFactorRow, Coeffs: coeffs, LB: 0, UB: 0, Variable: dynamic})
			rowIdxs = append(rowIdxs, rowIdx)
		}
		p.aggFactorRows[ids.AggregatedNodeIndex(a.Index)] = rowIdxs
	}
	return nil
}

// virtualStorageMemberCoeffs mirrors state.applyVirtualStorageDraw's member
// flow selection: an Input member contributes its outgoing flow, every other
// kind its incoming flow, each scaled by the member's factor.
func virtualStorageMemberCoeffs(net *network.Network, members []network.Member, cols *ColumnEdgeMap) (map[int]float64, error) {
	coeffs := make(map[int]float64)
	for _, m := range members {
		node, err := net.Node(ids.NodeIndex(m.Node))
		if err != nil {
			return nil, err
		}
		var edges []int
		sign := 1.0
		if node.Kind == network.Input {
			edges = node.Outgoing
		} else {
			edges = node.Incoming
		}
		for _, e := range edges {
			col, err := cols.ColumnForEdge(ids.EdgeIndex(e))
			if err != nil {
				return nil, err
			}
			mergeInto(coeffs, col, sign*m.Factor)
		}
	}
	return coeffs, nil
}

// addVirtualStorageRows adds the opposing lower/upper bound row pair per
// virtual storage account (§4.H.2 kind 5, §4.E).
func (p *Problem) addVirtualStorageRows(net *network.Network) error {
	for _, vs := range net.VirtualStorages() {
		coeffs, err := virtualStorageMemberCoeffs(net, vs.Members, p.Columns)
		if err != nil {
			return err
		}
		lowerCoeffs := make(map[int]float64, len(coeffs))
		upperCoeffs := make(map[int]float64, len(coeffs))
		for col, v := range coeffs {
			lowerCoeffs[col] = v
			upperCoeffs[col] = v
		}
		lower := len(p.Rows)
		p.Rows = append(p.Rows, Row{Kind: VirtualStorageBoundRow, Coeffs: lowerCoeffs, LB: FMIN, UB: FMAX, Variable: true})
		upper := len(p.Rows)
		p.Rows = append(p.Rows, Row{Kind: VirtualStorageBoundRow, Coeffs: upperCoeffs, LB: FMIN, UB: FMAX, Variable: true})
		p.vsRows[ids.VirtualStorageIndex(vs.Index)] = [2]int{lower, upper}
	}
	return nil
}
