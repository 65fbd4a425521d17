package scheduler

import (
	"github.com/pywr-go/pywr/ids"
	"github.com/pywr-go/pywr/network"
	"github.com/pywr-go/pywr/solver"
	"github.com/pywr-go/pywr/timestep"
)

// Step runs one scenario through exactly one time-step, per §4.J.1:
//  1. compute_simple over every Simple parameter.
//  2. resolve-order walk, before-phase: Node/VirtualStorage before,
//     General parameter compute, derived metric before.
//  3. State.Reset of the per-step flow accumulators, then solver.Solve.
//  4. resolve-order walk, after-phase: General parameter after, derived
//     metric compute (always writes).
//  5. after_simple over every Simple parameter.
//  6. sample, if non-nil.
//  7. State.Complete.
func Step(net *network.Network, sc *Scenario, ts timestep.Timestep, sample func(*Scenario) error) (solver.Timings, error) {
	if err := computeSimpleParameters(net, sc.State, sc.Params); err != nil {
		return solver.Timings{}, err
	}

	if err := sc.State.BeforeStep(ts); err != nil {
		return solver.Timings{}, err
	}
	if err := walkResolveOrderBefore(net, sc); err != nil {
		return solver.Timings{}, err
	}

	sc.State.Reset()
	timings, err := sc.Solver.Solve(sc.Problem, net, ts, sc.State)
	if err != nil {
		return timings, err
	}

	if err := walkResolveOrderAfter(net, sc); err != nil {
		return timings, err
	}

	if err := afterSimpleParameters(net, sc.State, sc.Params); err != nil {
		return timings, err
	}

	if sample != nil {
		if err := sample(sc); err != nil {
			return timings, err
		}
	}

	if err := sc.State.Complete(ts); err != nil {
		return timings, err
	}
	return timings, nil
}

// walkResolveOrderBefore visits the General-parameter and derived-metric
// entries of the resolve order (Node/VirtualStorage entries were already
// handled by State.BeforeStep), in append order.
func walkResolveOrderBefore(net *network.Network, sc *Scenario) error {
	derivedMetrics := net.DerivedMetrics()
	for _, entry := range net.ResolveOrder() {
		switch entry.Kind {
		case network.ResolveParameter:
			p, err := net.Parameters().Get(entry.Param)
			if err != nil {
				return err
			}
			if err := generalParameterBefore(p, entry.Param, sc.State, sc.Params); err != nil {
				return err
			}
		case network.ResolveDerivedMetric:
			dm := derivedMetrics[entry.Index]
			v, ok, err := dm.Before(sc.State)
			if err != nil {
				return err
			}
			if ok {
				if err := sc.State.SetDerivedMetricValue(ids.DerivedMetricIndex(entry.Index), v); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// walkResolveOrderAfter visits the General-parameter and derived-metric
// entries of the resolve order for the post-solve pass.
func walkResolveOrderAfter(net *network.Network, sc *Scenario) error {
	derivedMetrics := net.DerivedMetrics()
	for _, entry := range net.ResolveOrder() {
		switch entry.Kind {
		case network.ResolveParameter:
			p, err := net.Parameters().Get(entry.Param)
			if err != nil {
				return err
			}
			if err := generalParameterAfter(p, entry.Param, sc.State, sc.Params); err != nil {
				return err
			}
		case network.ResolveDerivedMetric:
			dm := derivedMetrics[entry.Index]
			v, err := dm.Compute(sc.State)
			if err != nil {
				return err
			}
			if err := sc.State.SetDerivedMetricValue(ids.DerivedMetricIndex(entry.Index), v); err != nil {
				return err
			}
		}
	}
	return nil
}
