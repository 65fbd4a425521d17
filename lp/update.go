package lp

import (
	"gonum.org/v1/gonum/floats"

	"github.com/pywr-go/pywr/ids"
	"github.com/pywr-go/pywr/metric"
	"github.com/pywr-go/pywr/network"
)

// Update runs the full §4.H.4 per-step refresh (objective, then row bounds
// and coefficients) in one call; solver adapters that want separate
// update_objective/update_constraints timings (§4.I) call UpdateObjective and
// UpdateConstraints individually instead.
func (p *Problem) Update(net *network.Network, ctx metric.Context, dt float64) ([]CoeffUpdate, error) {
	if err := p.UpdateObjective(net, ctx); err != nil {
		return nil, err
	}
	return p.UpdateConstraints(net, ctx, dt)
}

// UpdateConstraints runs §4.H.4 steps 3-6: variable-row bound
// reset-then-tighten and dynamic aggregated-factor coefficient re-emission.
// It returns the coefficient changes a solver adapter must apply if it cannot
// rebuild the matrix from scratch; an adapter that cannot patch coefficients
// after setup must fail the step when this list is non-empty
// (ErrMissingCoefficientCapability).
func (p *Problem) UpdateConstraints(net *network.Network, ctx metric.Context, dt float64) ([]CoeffUpdate, error) {
	for idx := range p.Rows {
		if p.Rows[idx].Kind == NodeBoundRow && p.Rows[idx].Variable {
			p.Rows[idx].LB, p.Rows[idx].UB = FMIN, FMAX
		}
	}
	if err := p.tightenNodeBoundRows(net, ctx, dt); err != nil {
		return nil, err
	}

	updates, err := p.updateDynamicFactorRows(net, ctx)
	if err != nil {
		return nil, err
	}

	if err := p.updateAggregatedTotalRows(net, ctx); err != nil {
		return nil, err
	}
	if err := p.updateVirtualStorageRows(net, ctx, dt); err != nil {
		return nil, err
	}
	return updates, nil
}

// UpdateObjective recomputes each edge's cost(from)+cost(to) and accumulates
// it into the edge's column, then adds each virtual storage's cost once to
// the columns its members contribute through (SPEC_FULL Open Question:
// "storage endpoint cost convention"). §4.H.4 steps 1-2.
func (p *Problem) UpdateObjective(net *network.Network, ctx metric.Context) error {
	for i := range p.Objective {
		p.Objective[i] = 0
	}
	for _, e := range net.Edges() {
		from, err := net.Node(ids.NodeIndex(e.From))
		if err != nil {
			return err
		}
		to, err := net.Node(ids.NodeIndex(e.To))
		if err != nil {
			return err
		}
		fromCost, err := from.CurrentCost(ctx)
		if err != nil {
			return err
		}
		toCost, err := to.CurrentCost(ctx)
		if err != nil {
			return err
		}
		col, err := p.Columns.ColumnForEdge(ids.EdgeIndex(e.Index))
		if err != nil {
			return err
		}
		p.Objective[col] += fromCost + toCost
	}

	for _, vs := range net.VirtualStorages() {
		if vs.Cost == nil {
			continue
		}
		cost, err := vs.Cost.Value(ctx)
		if err != nil {
			return err
		}
		if floats.EqualWithinAbs(cost, 0, 1e-12) {
			continue
		}
		coeffs, err := virtualStorageMemberCoeffs(net, vs.Members, p.Columns)
		if err != nil {
			return err
		}
		for col := range coeffs {
			p.Objective[col] += cost
		}
	}
	return nil
}

// tightenNodeBoundRows computes each node's current flow/volume bounds and
// tightens its (possibly shared) row: lb = max(lb, new_lb), ub = min(ub, new_ub).
func (p *Problem) tightenNodeBoundRows(net *network.Network, ctx metric.Context, dt float64) error {
	for _, n := range net.Nodes() {
		var lb, ub float64
		var err error
		if n.Kind == network.Storage {
			vol, verr := ctx.NodeVolume(ids.NodeIndex(n.Index))
			if verr != nil {
				return verr
			}
			lb, ub, err = n.CurrentVolumeBounds(ctx, vol, dt)
		} else {
			lb, ub, err = n.CurrentFlowBounds(ctx, FMIN, FMAX)
		}
		if err != nil {
			return err
		}
		idx := p.nodeRow[ids.NodeIndex(n.Index)]
		row := &p.Rows[idx]
		row.LB = floats.Max([]float64{row.LB, lb})
		row.UB = floats.Min([]float64{row.UB, ub})
	}
	return nil
}

// updateDynamicFactorRows re-emits coefficients for aggregated-node factor
// rows whose ratio is not constant (§4.H.4 step 5).
func (p *Problem) updateDynamicFactorRows(net *network.Network, ctx metric.Context) ([]CoeffUpdate, error) {
	var updates []CoeffUpdate
	for _, a := range net.AggregatedNodes() {
		if a.Relationship != network.FactorsRelationship || !a.HasDynamicFactors() {
			continue
		}
		memberCoeffs := make([]map[int]float64, len(a.Members))
		for i, m := range a.Members {
			node, err := net.Node(ids.NodeIndex(m))
			if err != nil {
				return nil, err
			}
			c, err := nodeFlowCoeffs(node, p.Columns)
			if err != nil {
				return nil, err
			}
			memberCoeffs[i] = c
		}
		v0, err := a.Factors[0].Value.Value(ctx)
		if err != nil {
			return nil, err
		}
		rowIdxs := p.aggFactorRows[ids.AggregatedNodeIndex(a.Index)]
		for j, rowIdx := range rowIdxs {
			vj, err := a.Factors[j+1].Value.Value(ctx)
			if err != nil {
				return nil, err
			}
			ratio := vj / v0
			coeffs := make(map[int]float64)
			for col, v := range memberCoeffs[j+1] {
				mergeInto(coeffs, col, v)
			}
			for col, v := range memberCoeffs[0] {
				mergeInto(coeffs, col, -ratio*v)
			}
			p.Rows[rowIdx].Coeffs = coeffs
			for col, v := range coeffs {
				updates = append(updates, CoeffUpdate{Row: rowIdx, Col: col, Value: v})
			}
		}
	}
	return updates, nil
}

// updateAggregatedTotalRows applies each aggregated node's MinFlow/MaxFlow
// bounds, defaulting to [FMIN, FMAX] when unset (§4.H.2 kind 3).
func (p *Problem) updateAggregatedTotalRows(net *network.Network, ctx metric.Context) error {
	for _, a := range net.AggregatedNodes() {
		lb, ub := FMIN, FMAX
		var err error
		if a.MinFlow != nil {
			if lb, err = a.MinFlow.Value(ctx); err != nil {
				return err
			}
		}
		if a.MaxFlow != nil {
			if ub, err = a.MaxFlow.Value(ctx); err != nil {
				return err
			}
		}
		idx := p.aggTotalRow[ids.AggregatedNodeIndex(a.Index)]
		p.Rows[idx].LB, p.Rows[idx].UB = lb, ub
	}
	return nil
}

// updateVirtualStorageRows computes each account's current per-step draw
// bound and assigns it to the opposing lower/upper row pair (§4.H.2 kind 5).
func (p *Problem) updateVirtualStorageRows(net *network.Network, ctx metric.Context, dt float64) error {
	for _, vs := range net.VirtualStorages() {
		vol, err := ctx.VirtualStorageVolume(ids.VirtualStorageIndex(vs.Index))
		if err != nil {
			return err
		}
		lb, ub, err := vs.CurrentVolumeBounds(ctx, vol, dt)
		if err != nil {
			return err
		}
		rows := p.vsRows[ids.VirtualStorageIndex(vs.Index)]
		p.Rows[rows[0]].LB, p.Rows[rows[0]].UB = lb, FMAX
		p.Rows[rows[1]].LB, p.Rows[rows[1]].UB = FMIN, ub
	}
	return nil
}
