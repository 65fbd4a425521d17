package reference

import "github.com/pywr-go/pywr/lp"

// relation names which direction a normalized row enforces.
type relation int

const (
	le relation = iota
	ge
	eq
)

// normalizedRow is one lp.Row rewritten as a single-direction inequality (or
// equality) ready for standard-form tableau construction: every
// two-sided-bound lp.Row becomes two normalizedRows (one `<= UB`, one
// `>= LB`); an equality lp.Row (LB == UB) becomes one.
type normalizedRow struct {
	coeffs    map[int]float64
	rel       relation
	bound     float64
	sourceRow int // index into the originating lp.Problem.Rows, for diagnostics
}

// normalizeRows expands problem's rows into the single-direction form the
// tableau builder consumes.
func normalizeRows(problem *lp.Problem) []normalizedRow {
	out := make([]normalizedRow, 0, len(problem.Rows)*2)
	for i, row := range problem.Rows {
		if row.LB == row.UB {
			out = append(out, normalizedRow{coeffs: row.Coeffs, rel: eq, bound: row.LB, sourceRow: i})
			continue
		}
		out = append(out, normalizedRow{coeffs: row.Coeffs, rel: le, bound: row.UB, sourceRow: i})
		out = append(out, normalizedRow{coeffs: row.Coeffs, rel: ge, bound: row.LB, sourceRow: i})
	}
	return out
}
