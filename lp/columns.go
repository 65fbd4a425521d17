package lp

import (
	"fmt"

	"github.com/pywr-go/pywr/ids"
)

// ColumnEdgeMap records edge_index -> column and each column's edge set
// (§4.H.1). A single column may represent more than one edge: at a Link node
// with exactly one incoming and one outgoing edge, the mass-balance
// constraint would force their flows equal anyway, so the two edges collapse
// onto one LP column instead of spending a row on it.
//
// Grounded closely on the original's ColumnEdgeMapBuilder (col_edge_map.rs):
// same incremental add_simple_edge/add_equal_edges construction, built here
// with ordinary Go maps and error returns instead of a panicking accessor.
type ColumnEdgeMap struct {
	edgeToCol  []int
	colToEdges [][]ids.EdgeIndex
}

// NumColumns returns the number of distinct LP columns.
func (m *ColumnEdgeMap) NumColumns() int { return len(m.colToEdges) }

// ColumnForEdge returns the column edge belongs to.
func (m *ColumnEdgeMap) ColumnForEdge(edge ids.EdgeIndex) (int, error) {
	i := int(edge)
	if i < 0 || i >= len(m.edgeToCol) {
		return 0, fmt.Errorf("%w: %d", ErrEdgeNotInColumnMap, edge)
	}
	return m.edgeToCol[i], nil
}

// EdgesForColumn returns every edge sharing col, in insertion order.
func (m *ColumnEdgeMap) EdgesForColumn(col int) ([]ids.EdgeIndex, error) {
	if col < 0 || col >= len(m.colToEdges) {
		return nil, fmt.Errorf("%w: %d", ErrColumnOutOfRange, col)
	}
	return m.colToEdges[col], nil
}

// columnEdgeMapBuilder accumulates edge/column associations before the final
// edge_to_col vector is known in full (an edge's column is only fixed once
// every add_equal_edges call that touches it has been applied).
type columnEdgeMapBuilder struct {
	colToEdges [][]ids.EdgeIndex
	edgeToCol  map[ids.EdgeIndex]int
}

func newColumnEdgeMapBuilder() *columnEdgeMapBuilder {
	return &columnEdgeMapBuilder{edgeToCol: make(map[ids.EdgeIndex]int)}
}

// addSimpleEdge assigns idx its own column, if it doesn't have one yet.
func (b *columnEdgeMapBuilder) addSimpleEdge(idx ids.EdgeIndex) {
	if _, ok := b.edgeToCol[idx]; ok {
		return
	}
	col := len(b.colToEdges)
	b.colToEdges = append(b.colToEdges, []ids.EdgeIndex{idx})
	b.edgeToCol[idx] = col
}

// addEqualEdges merges idx1 and idx2 onto the same column, creating one if
// neither has been assigned yet.
func (b *columnEdgeMapBuilder) addEqualEdges(idx1, idx2 ids.EdgeIndex) {
	col1, ok1 := b.edgeToCol[idx1]
	col2, ok2 := b.edgeToCol[idx2]

	switch {
	case ok1 && ok2:
		b.mergeColumns(col1, col2)
	case ok1 && !ok2:
		b.colToEdges[col1] = append(b.colToEdges[col1], idx2)
		b.edgeToCol[idx2] = col1
	case !ok1 && ok2:
		b.colToEdges[col2] = append(b.colToEdges[col2], idx1)
		b.edgeToCol[idx1] = col2
	default:
		col := len(b.colToEdges)
		b.colToEdges = append(b.colToEdges, []ids.EdgeIndex{idx1, idx2})
		b.edgeToCol[idx1] = col
		b.edgeToCol[idx2] = col
	}
}

// mergeColumns unions the edges of the higher-indexed of the two columns
// into the lower-indexed one (whichever argument order is given), repointing
// every edge that belonged to the higher column and compacting it out of
// colToEdges so column indices stay dense. A no-op if the two columns are
// already the same.
func (b *columnEdgeMapBuilder) mergeColumns(into, from int) {
	if into == from {
		return
	}
	if into > from {
		into, from = from, into
	}
	b.colToEdges[into] = append(b.colToEdges[into], b.colToEdges[from]...)
	for _, e := range b.colToEdges[from] {
		b.edgeToCol[e] = into
	}
	b.colToEdges = append(b.colToEdges[:from], b.colToEdges[from+1:]...)
	for e, c := range b.edgeToCol {
		if c > from {
			b.edgeToCol[e] = c - 1
		}
	}
}

// build finalizes the edge_to_col vector, indexed by EdgeIndex.
func (b *columnEdgeMapBuilder) build(numEdges int) *ColumnEdgeMap {
	edgeToCol := make([]int, numEdges)
	for i := 0; i < numEdges; i++ {
		edgeToCol[i] = b.edgeToCol[ids.EdgeIndex(i)]
	}
	return &ColumnEdgeMap{edgeToCol: edgeToCol, colToEdges: b.colToEdges}
}
