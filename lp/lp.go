// Package lp builds and maintains the per-network linear program: one column
// per edge (minus trivial collapses, §4.H.1), a fixed/variable row set
// covering mass balance, node bounds, aggregated-node totals and factors, and
// virtual-storage bounds (§4.H.2), and a per-step objective (§4.H.3).
//
// lp never solves anything — package solver consumes a *Problem through the
// Solver interface. Keeping the two separate lets a solver adapter decide how
// (or whether) to translate the sparse row/column model into whatever its
// backend needs.
package lp

import "errors"

// FMIN and FMAX are the default flow bounds a node uses when it carries no
// MinFlow/MaxFlow contract of its own (§4.C, §4.H.4 step 3).
const (
	FMIN = -1e9
	FMAX = 1e9
)

// Sentinel errors, per spec §7 (rows/columns are an internal LP concern, not
// the topology errors network already declares).
var (
	// ErrEdgeNotInColumnMap indicates an EdgeIndex was never assigned a column.
	ErrEdgeNotInColumnMap = errors.New("lp: edge not found in column map")
	// ErrColumnOutOfRange indicates a column index outside [0, NumColumns).
	ErrColumnOutOfRange = errors.New("lp: column index out of range")
	// ErrRowOutOfRange indicates a row index outside [0, len(Rows)).
	ErrRowOutOfRange = errors.New("lp: row index out of range")
	// ErrMissingCoefficientCapability indicates the per-step update produced
	// coefficient changes (dynamic aggregated-node factors) but the solver
	// adapter cannot apply them after setup (§4.H.4, §4.H.5).
	ErrMissingCoefficientCapability = errors.New("lp: solver cannot update coefficients after setup")
)
