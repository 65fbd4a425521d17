package reference

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// ErrInfeasible indicates the Big-M simplex terminated with a positive
// artificial variable still in the basis: no point satisfies every row.
var ErrInfeasible = errors.New("reference: problem is infeasible")

// ErrUnbounded indicates an entering column had no positive entry to pivot
// against: the objective can be driven arbitrarily low.
var ErrUnbounded = errors.New("reference: problem is unbounded")

// errIterationLimit guards against an implementation bug causing the
// Bland's-rule simplex to fail to terminate; a correct run on these small,
// non-degenerate-by-construction networks never approaches this.
var errIterationLimit = errors.New("reference: simplex iteration limit exceeded")

const (
	bigM          = 1e7
	simplexEps    = 1e-7
	maxIterations = 20000
)

// tableau is a dense Big-M simplex tableau: rows 0..numRows-1 are the
// normalized constraints (each `Σ a_ij x_j (+/-) slack_i + artificial_i =
// |bound_i|`, every row pre-scaled so its RHS is non-negative), row numRows
// is the current reduced-cost row (z_j - c_j, maximized-to-zero convention),
// and the last column is RHS / current objective value.
//
// Every row gets its own artificial variable, always, even where a slack
// alone would already be feasible: one uniform construction is far easier to
// get right than deciding per-row whether an artificial is needed, and the
// handful of extra columns cost nothing a reference solver over small
// fixture networks needs to care about.
type tableau struct {
	numRows, numCols int // numCols excludes the RHS column
	numStructural     int
	artificialStart   int // first column index that is an artificial variable
	data              *mat.Dense // (numRows+1) x (numCols+1)
	basis             []int     // basis[i] = column index basic in row i
}

// buildTableau lowers normalized rows (over numStructural real columns) plus
// a per-column objective into a Big-M tableau with an all-artificial initial
// basis.
func buildTableau(rows []normalizedRow, numStructural int, objective []float64) *tableau {
	numSlack := 0
	for _, r := range rows {
		if r.rel != eq {
			numSlack++
		}
	}
	numArtificial := len(rows)
	numCols := numStructural + numSlack + numArtificial
	numRows := len(rows)

	data := mat.NewDense(numRows+1, numCols+1, nil)
	basis := make([]int, numRows)
	artificialStart := numStructural + numSlack

	slackCol := numStructural
	artCol := artificialStart
	for i, r := range rows {
		sign := 1.0
		if r.bound < 0 {
			sign = -1.0
		}
		for col, v := range r.coeffs {
			data.Set(i, col, sign*v)
		}
		switch r.rel {
		case le:
			data.Set(i, slackCol, sign*1.0)
			slackCol++
		case ge:
			data.Set(i, slackCol, sign*-1.0)
			slackCol++
		case eq:
			// no slack column
		}
		data.Set(i, artCol, 1.0)
		data.Set(i, numCols, sign*r.bound)
		basis[i] = artCol
		artCol++
	}

	t := &tableau{
		numRows: numRows, numCols: numCols, numStructural: numStructural,
		artificialStart: artificialStart, data: data, basis: basis,
	}
	t.initObjectiveRow(objective)
	return t
}

// initObjectiveRow sets row numRows to z_j - c_j for the all-artificial
// basis: c_j is `objective[j]` for structural columns, 0 for slacks, bigM
// for artificials; z_j = Σ_i c_Bi * a_ij = bigM * colSum(j) since every basic
// variable currently costs bigM.
func (t *tableau) initObjectiveRow(objective []float64) {
	obj := t.numRows
	for j := 0; j < t.numCols; j++ {
		colSum := 0.0
		for i := 0; i < t.numRows; i++ {
			colSum += t.data.At(i, j)
		}
		c := 0.0
		if j < t.numStructural {
			c = objective[j]
		} else if t.isArtificial(j) {
			c = bigM
		}
		t.data.Set(obj, j, bigM*colSum-c)
	}
	rhsSum := 0.0
	for i := 0; i < t.numRows; i++ {
		rhsSum += t.data.At(i, t.numCols)
	}
	t.data.Set(obj, t.numCols, bigM*rhsSum)
}

func (t *tableau) isArtificial(col int) bool {
	return col >= t.artificialStart
}

// run pivots to optimality using Bland's rule (smallest-index entering and
// leaving variable among ties) so the simplex is guaranteed to terminate.
func (t *tableau) run() error {
	obj := t.numRows
	for iter := 0; iter < maxIterations; iter++ {
		enter := -1
		for j := 0; j < t.numCols; j++ {
			if t.data.At(obj, j) > simplexEps {
				enter = j
				break
			}
		}
		if enter == -1 {
			return t.checkFeasible()
		}

		leave := -1
		bestRatio := math.Inf(1)
		for i := 0; i < t.numRows; i++ {
			a := t.data.At(i, enter)
			if a <= simplexEps {
				continue
			}
			ratio := t.data.At(i, t.numCols) / a
			if ratio < bestRatio-simplexEps || (ratio < bestRatio+simplexEps && (leave == -1 || t.basis[i] < t.basis[leave])) {
				bestRatio = ratio
				leave = i
			}
		}
		if leave == -1 {
			return ErrUnbounded
		}
		t.pivot(leave, enter)
	}
	return errIterationLimit
}

// pivot performs Gauss-Jordan elimination around (row, col), normalizing the
// pivot row with floats.Scale and eliminating col from every other row
// (including the objective row).
func (t *tableau) pivot(row, col int) {
	pivotVal := t.data.At(row, col)
	pivotRow := mat.Row(nil, row, t.data)
	floats.Scale(1/pivotVal, pivotRow)
	t.data.SetRow(row, pivotRow)

	for i := 0; i <= t.numRows; i++ {
		if i == row {
			continue
		}
		factor := t.data.At(i, col)
		if factor == 0 {
			continue
		}
		r := mat.Row(nil, i, t.data)
		floats.AddScaled(r, -factor, pivotRow)
		t.data.SetRow(i, r)
	}
	t.basis[row] = col
}

// checkFeasible reports ErrInfeasible if any artificial variable remains
// basic with a non-negligible value once the simplex has reached optimality.
func (t *tableau) checkFeasible() error {
	for i, b := range t.basis {
		if !t.isArtificial(b) {
			continue
		}
		if t.data.At(i, t.numCols) > simplexEps {
			return ErrInfeasible
		}
	}
	return nil
}

// solution returns the value of each structural column at the current basis.
func (t *tableau) solution() []float64 {
	x := make([]float64, t.numStructural)
	for i, b := range t.basis {
		if b < t.numStructural {
			x[b] = t.data.At(i, t.numCols)
		}
	}
	return x
}
