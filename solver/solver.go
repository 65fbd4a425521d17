// Package solver declares the adapter contract between the LP builder
// (package lp) and a concrete linear-program backend (§4.I). The core ships
// no production solver of its own — adapters to Clp, CBC, HiGHS, MicroLP, a
// SIMD interior-point, or an OpenCL interior-point all implement this
// contract externally; package solver/reference provides one concrete
// in-process implementation used by tests and as a default.
package solver

import (
	"errors"
	"time"

	"github.com/pywr-go/pywr/lp"
	"github.com/pywr-go/pywr/network"
	"github.com/pywr-go/pywr/state"
	"github.com/pywr-go/pywr/timestep"
)

// Sentinel errors, per spec §7 "Solver errors".
var (
	// ErrMissingFeature indicates a network requires a SolverFeatures entry
	// the solver's Features() does not declare, and the Settings'
	// IgnoreFeatureRequirements was not set.
	ErrMissingFeature = errors.New("solver: network requires a feature this solver does not declare")
	// ErrSetupFailed indicates Setup could not build a usable solver instance.
	ErrSetupFailed = errors.New("solver: setup failed")
	// ErrSolveFailed indicates the underlying LP solve reported infeasible,
	// unbounded, or another non-optimal status.
	ErrSolveFailed = errors.New("solver: solve failed")
	// ErrNonFiniteFlow indicates a solved column value was NaN or +/-Inf.
	ErrNonFiniteFlow = errors.New("solver: non-finite flow in solution")
)

// Feature re-exports network.Feature under the name solver adapters declare
// support for — the same taxonomy the network computes as its requirement
// set (§4.H.5), so no separate enum is needed on either side of the contract.
type Feature = network.Feature

// FeatureSet is the set of features a solver declares support for.
type FeatureSet map[Feature]struct{}

// Covers reports whether fs contains every feature in required.
func (fs FeatureSet) Covers(required map[Feature]struct{}) bool {
	for f := range required {
		if _, ok := fs[f]; !ok {
			return false
		}
	}
	return true
}

// Settings configures a solver instance, built via SolverOption funcs
// mirroring the teacher pack's functional-options builders
// (builder.BuilderOption, dijkstra.Option).
type Settings struct {
	Threads                  int
	IgnoreFeatureRequirements bool
}

// SolverOption configures Settings at construction time.
type SolverOption func(*Settings)

// WithThreads sets the solver's internal thread count (meaningful only to
// adapters that parallelize within a single solve; 0 leaves it unspecified).
func WithThreads(n int) SolverOption {
	return func(s *Settings) { s.Threads = n }
}

// WithIgnoreFeatureRequirements bypasses the network/solver feature check at
// setup time, for adapters the caller knows are compatible despite an
// incomplete declared feature set.
func WithIgnoreFeatureRequirements() SolverOption {
	return func(s *Settings) { s.IgnoreFeatureRequirements = true }
}

// NewSettings applies opts over the zero value.
func NewSettings(opts ...SolverOption) Settings {
	var s Settings
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// Timings accumulates the per-phase wall-clock cost of one solve call
// (§4.I "Timings are accumulated per phase").
type Timings struct {
	UpdateObjective   time.Duration
	UpdateConstraints time.Duration
	Solve             time.Duration
	SaveSolution      time.Duration
}

// Add accumulates other's durations into t.
func (t *Timings) Add(other Timings) {
	t.UpdateObjective += other.UpdateObjective
	t.UpdateConstraints += other.UpdateConstraints
	t.Solve += other.Solve
	t.SaveSolution += other.SaveSolution
}

// Solver is the single-state adapter contract: one instance solves one
// scenario's LP, step after step, reusing whatever internal structures the
// backend needs between solves.
type Solver interface {
	// Features reports the capabilities this solver declares.
	Features() FeatureSet
	// Solve refreshes problem for this timestep (UpdateObjective and
	// UpdateConstraints; the caller does not), solves it, and writes the
	// resulting column flows into st via state.NetworkState.AddFlow for
	// every edge sharing each column.
	Solve(problem *lp.Problem, net *network.Network, ts timestep.Timestep, st *state.State) (Timings, error)
}

// Setup builds a Solver for a single scenario against net, validating net's
// required features against settings before handing back to the caller.
type Setup func(net *network.Network, problem *lp.Problem, settings Settings) (Solver, error)

// CheckFeatures returns ErrMissingFeature if declared doesn't cover net's
// RequiredFeatures and settings doesn't waive the check.
func CheckFeatures(net *network.Network, declared FeatureSet, settings Settings) error {
	if settings.IgnoreFeatureRequirements {
		return nil
	}
	if !declared.Covers(net.RequiredFeatures()) {
		return ErrMissingFeature
	}
	return nil
}

// MultiSolver is the multi-state adapter contract: one instance solves a
// batch of scenarios sharing LP structure but with stacked bounds/objective
// vectors, one lane per scenario (§4.I). Multi-state solvers do not
// generally support coefficient updates or integer variables, so their
// feature set is narrower by construction — adapters simply omit
// AggregatedNodeDynamicFactorsFeature/MutualExclusivityFeature from Features().
type MultiSolver interface {
	Features() FeatureSet
	// Solve runs one step's batched LP across every scenario's (problem,
	// state) pair, applying the same ts to all lanes.
	Solve(problems []*lp.Problem, net *network.Network, ts timestep.Timestep, states []*state.State) (Timings, error)
}
