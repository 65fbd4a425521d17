package lp

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pywr-go/pywr/ids"
)

// RowKind names which §4.H.2 row family a Row belongs to.
type RowKind int

const (
	MassBalanceRow RowKind = iota
	NodeBoundRow
	AggregatedTotalRow
	AggregatedFactorRow
	VirtualStorageBoundRow
)

func (k RowKind) String() string {
	switch k {
	case MassBalanceRow:
		return "mass_balance"
	case NodeBoundRow:
		return "node_bound"
	case AggregatedTotalRow:
		return "aggregated_total"
	case AggregatedFactorRow:
		return "aggregated_factor"
	case VirtualStorageBoundRow:
		return "virtual_storage_bound"
	default:
		return fmt.Sprintf("row_kind(%d)", int(k))
	}
}

// Row is one constraint: a sparse column->coefficient map plus a two-sided
// bound. Equality rows set LB == UB.
type Row struct {
	Kind     RowKind
	Coeffs   map[int]float64
	LB, UB   float64
	Variable bool // bounds (and, for AggregatedFactorRow, coefficients) are refreshed by Update
}

// CoeffUpdate is one (row, column) coefficient change produced by Update,
// consumed by solver adapters that can patch a live matrix in place (§4.H.4).
type CoeffUpdate struct {
	Row   int
	Col   int
	Value float64
}

// Problem is the built LP: columns, rows, and the per-column objective, plus
// the bookkeeping Update needs to find and refresh the rows that change every
// step without rebuilding the matrix from scratch.
type Problem struct {
	Columns   *ColumnEdgeMap
	Rows      []Row
	Objective []float64

	nodeRow       map[ids.NodeIndex]int
	rowKeyToIndex map[string]int

	aggTotalRow   map[ids.AggregatedNodeIndex]int
	aggFactorRows map[ids.AggregatedNodeIndex][]int // parallel to Members[1:]

	vsRows map[ids.VirtualStorageIndex][2]int // [lower, upper]
}

// NumColumns returns the number of LP columns (edges, after collapse).
func (p *Problem) NumColumns() int { return p.Columns.NumColumns() }

// coeffKey renders a coefficient map as a stable string for node-bound row
// deduplication (§4.H.2 "duplicate node-bound rows are deduplicated by
// coefficient pattern").
func coeffKey(coeffs map[int]float64) string {
	cols := make([]int, 0, len(coeffs))
	for c := range coeffs {
		cols = append(cols, c)
	}
	sort.Ints(cols)
	var b strings.Builder
	for _, c := range cols {
		fmt.Fprintf(&b, "%d:%g;", c, coeffs[c])
	}
	return b.String()
}

func mergeInto(dst map[int]float64, col int, v float64) {
	dst[col] += v
}
