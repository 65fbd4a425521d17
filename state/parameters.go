package state

import (
	"fmt"
	"math"

	"github.com/pywr-go/pywr/ids"
	"github.com/pywr-go/pywr/parameter"
)

// ParameterValues is one before/after snapshot of every registered
// parameter's value, grouped the same way parameter.Collection groups
// parameters: [tier][kind] -> ordered slice, addressed by ids.ParameterIndex.
// A `set` flag per slot distinguishes "never written" from "written to 0",
// used by State's BeforeOrElseAfter/AfterOrElseBefore fallbacks.
type ParameterValues struct {
	f64    [3][]float64
	u64    [3][]uint64
	multi  [3][]parameter.MultiValue
	setF64 [3][]bool
	setU64 [3][]bool
	setMul [3][]bool
}

// ParameterCounts gives the number of registered parameters per (tier,
// kind), as reported by parameter.Collection.Count — the shape a
// ParameterValues must be built to.
type ParameterCounts [3][3]int

// NewParameterValues allocates zero-valued, unset vectors of the given shape.
func NewParameterValues(counts ParameterCounts) *ParameterValues {
	pv := &ParameterValues{}
	for t := 0; t < 3; t++ {
		pv.f64[t] = make([]float64, counts[t][ids.F64Kind])
		pv.setF64[t] = make([]bool, counts[t][ids.F64Kind])
		pv.u64[t] = make([]uint64, counts[t][ids.U64Kind])
		pv.setU64[t] = make([]bool, counts[t][ids.U64Kind])
		pv.multi[t] = make([]parameter.MultiValue, counts[t][ids.MultiKind])
		pv.setMul[t] = make([]bool, counts[t][ids.MultiKind])
	}
	return pv
}

// F64 returns the stored value at idx and whether it has ever been set.
func (pv *ParameterValues) F64(idx ids.ParameterIndex) (float64, bool, error) {
	if idx.Kind != ids.F64Kind {
		return 0, false, fmt.Errorf("%w: %s is not f64", ErrParameterKindMismatch, idx)
	}
	if idx.Inner < 0 || idx.Inner >= len(pv.f64[idx.Tier]) {
		return 0, false, fmt.Errorf("%w: %s", ErrParameterIndexNotFound, idx)
	}
	return pv.f64[idx.Tier][idx.Inner], pv.setF64[idx.Tier][idx.Inner], nil
}

// SetF64 writes idx's value. Rejects NaN.
func (pv *ParameterValues) SetF64(idx ids.ParameterIndex, v float64) error {
	if math.IsNaN(v) {
		return fmt.Errorf("%w: parameter %s", ErrNaN, idx)
	}
	if idx.Kind != ids.F64Kind {
		return fmt.Errorf("%w: %s is not f64", ErrParameterKindMismatch, idx)
	}
	if idx.Inner < 0 || idx.Inner >= len(pv.f64[idx.Tier]) {
		return fmt.Errorf("%w: %s", ErrParameterIndexNotFound, idx)
	}
	pv.f64[idx.Tier][idx.Inner] = v
	pv.setF64[idx.Tier][idx.Inner] = true
	return nil
}

// U64 returns the stored value at idx and whether it has ever been set.
func (pv *ParameterValues) U64(idx ids.ParameterIndex) (uint64, bool, error) {
	if idx.Kind != ids.U64Kind {
		return 0, false, fmt.Errorf("%w: %s is not u64", ErrParameterKindMismatch, idx)
	}
	if idx.Inner < 0 || idx.Inner >= len(pv.u64[idx.Tier]) {
		return 0, false, fmt.Errorf("%w: %s", ErrParameterIndexNotFound, idx)
	}
	return pv.u64[idx.Tier][idx.Inner], pv.setU64[idx.Tier][idx.Inner], nil
}

// SetU64 writes idx's value.
func (pv *ParameterValues) SetU64(idx ids.ParameterIndex, v uint64) error {
	if idx.Kind != ids.U64Kind {
		return fmt.Errorf("%w: %s is not u64", ErrParameterKindMismatch, idx)
	}
	if idx.Inner < 0 || idx.Inner >= len(pv.u64[idx.Tier]) {
		return fmt.Errorf("%w: %s", ErrParameterIndexNotFound, idx)
	}
	pv.u64[idx.Tier][idx.Inner] = v
	pv.setU64[idx.Tier][idx.Inner] = true
	return nil
}

// Multi returns the named float within idx's MultiValue.
func (pv *ParameterValues) Multi(idx ids.ParameterIndex, key string) (float64, bool, error) {
	if idx.Kind != ids.MultiKind {
		return 0, false, fmt.Errorf("%w: %s is not multi", ErrParameterKindMismatch, idx)
	}
	if idx.Inner < 0 || idx.Inner >= len(pv.multi[idx.Tier]) {
		return 0, false, fmt.Errorf("%w: %s", ErrParameterIndexNotFound, idx)
	}
	set := pv.setMul[idx.Tier][idx.Inner]
	if !set {
		return 0, false, nil
	}
	v, err := pv.multi[idx.Tier][idx.Inner].Float(key)
	if err != nil {
		return 0, false, fmt.Errorf("%w: %s key %q", ErrMultiValueKeyMissing, idx, key)
	}
	return v, true, nil
}

// rawMulti returns idx's full MultiValue and whether it has ever been set.
func (pv *ParameterValues) rawMulti(idx ids.ParameterIndex) (parameter.MultiValue, bool, error) {
	if idx.Kind != ids.MultiKind {
		return parameter.MultiValue{}, false, fmt.Errorf("%w: %s is not multi", ErrParameterKindMismatch, idx)
	}
	if idx.Inner < 0 || idx.Inner >= len(pv.multi[idx.Tier]) {
		return parameter.MultiValue{}, false, fmt.Errorf("%w: %s", ErrParameterIndexNotFound, idx)
	}
	return pv.multi[idx.Tier][idx.Inner], pv.setMul[idx.Tier][idx.Inner], nil
}

// SetMulti writes idx's MultiValue. Rejects any NaN float member.
func (pv *ParameterValues) SetMulti(idx ids.ParameterIndex, v parameter.MultiValue) error {
	if idx.Kind != ids.MultiKind {
		return fmt.Errorf("%w: %s is not multi", ErrParameterKindMismatch, idx)
	}
	if idx.Inner < 0 || idx.Inner >= len(pv.multi[idx.Tier]) {
		return fmt.Errorf("%w: %s", ErrParameterIndexNotFound, idx)
	}
	for k, f := range v.Floats {
		if math.IsNaN(f) {
			return fmt.Errorf("%w: parameter %s key %q", ErrNaN, idx, k)
		}
	}
	pv.multi[idx.Tier][idx.Inner] = v
	pv.setMul[idx.Tier][idx.Inner] = true
	return nil
}
