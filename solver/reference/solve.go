// Package reference implements a self-contained Big-M dense-tableau simplex
// as the default solver.Solver (§4.I), so the core can run end-to-end
// without an external LP backend. It declares the aggregated-node and
// virtual-storage features but not AggregatedNodeDynamicFactorsFeature or
// MutualExclusivityFeature: it rebuilds the tableau from scratch every step
// rather than patching coefficients in place, and it has no integer/SOS
// variable support.
package reference

import (
	"math"
	"time"

	"github.com/pywr-go/pywr/ids"
	"github.com/pywr-go/pywr/lp"
	"github.com/pywr-go/pywr/network"
	"github.com/pywr-go/pywr/solver"
	"github.com/pywr-go/pywr/state"
	"github.com/pywr-go/pywr/timestep"
)

// Solver is a solver.Solver backed by a from-scratch Big-M simplex solve on
// every step.
type Solver struct {
	settings solver.Settings
}

// NewSetup returns a solver.Setup that checks net's required features against
// this solver's declared set before constructing a Solver.
func NewSetup() solver.Setup {
	return func(net *network.Network, problem *lp.Problem, settings solver.Settings) (solver.Solver, error) {
		s := &Solver{settings: settings}
		if err := solver.CheckFeatures(net, s.Features(), settings); err != nil {
			return nil, err
		}
		return s, nil
	}
}

// Features reports the feature set this solver supports.
func (s *Solver) Features() solver.FeatureSet {
	return solver.FeatureSet{
		network.AggregatedNodeFeature:        struct{}{},
		network.AggregatedNodeFactorsFeature: struct{}{},
		network.VirtualStorageFeature:        struct{}{},
	}
}

// Solve updates problem for ts, rebuilds and runs a fresh simplex tableau,
// and writes the resulting per-edge flows into st.
func (s *Solver) Solve(problem *lp.Problem, net *network.Network, ts timestep.Timestep, st *state.State) (solver.Timings, error) {
	var timings solver.Timings
	dt := ts.DurationDays

	t0 := time.Now()
	if err := problem.UpdateObjective(net, st); err != nil {
		return timings, err
	}
	timings.UpdateObjective = time.Since(t0)

	t1 := time.Now()
	// The returned CoeffUpdate list is for adapters that patch coefficients
	// into a persistent solver state; this solver rebuilds the tableau from
	// problem.Rows every step, so it already reflects the update.
	if _, err := problem.UpdateConstraints(net, st, dt); err != nil {
		return timings, err
	}
	timings.UpdateConstraints = time.Since(t1)

	t2 := time.Now()
	rows := normalizeRows(problem)
	tab := buildTableau(rows, problem.NumColumns(), problem.Objective)
	if err := tab.run(); err != nil {
		return timings, &solveError{cause: err}
	}
	flows := tab.solution()
	timings.Solve = time.Since(t2)

	t3 := time.Now()
	if err := saveSolution(problem, net, flows, dt, st); err != nil {
		return timings, err
	}
	timings.SaveSolution = time.Since(t3)

	return timings, nil
}

// solveError maps the reference engine's internal error taxonomy (ErrInfeasible,
// ErrUnbounded, errIterationLimit) onto the contract-level solver.ErrSolveFailed,
// per §7 Error Handling, while keeping the underlying cause unwrappable.
type solveError struct{ cause error }

func (e *solveError) Error() string { return solver.ErrSolveFailed.Error() + ": " + e.cause.Error() }
func (e *solveError) Unwrap() []error { return []error{solver.ErrSolveFailed, e.cause} }

// saveSolution writes each column's solved flow to every edge sharing that
// column (trivial Link collapses mean more than one edge can share a column)
// via state.NetworkState.AddFlow, and rejects any non-finite solved value.
func saveSolution(problem *lp.Problem, net *network.Network, flows []float64, dt float64, st *state.State) error {
	for col, flow := range flows {
		if math.IsNaN(flow) || math.IsInf(flow, 0) {
			return solver.ErrNonFiniteFlow
		}
		edges, err := problem.Columns.EdgesForColumn(col)
		if err != nil {
			return err
		}
		for _, edgeIdx := range edges {
			e := net.Edges()[edgeIdx]
			fromNode, err := net.Node(ids.NodeIndex(e.From))
			if err != nil {
				return err
			}
			toNode, err := net.Node(ids.NodeIndex(e.To))
			if err != nil {
				return err
			}
			fromIsStorage := fromNode.Kind == network.Storage
			toIsStorage := toNode.Kind == network.Storage
			if err := st.Flows().AddFlow(e.From, e.To, int(edgeIdx), dt, flow, fromIsStorage, toIsStorage); err != nil {
				return err
			}
		}
	}
	return nil
}
