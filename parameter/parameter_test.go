package parameter_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pywr-go/pywr/ids"
	"github.com/pywr-go/pywr/parameter"
)

// constF64 is the simplest possible Parameter: a fixed value at a chosen tier.
type constF64 struct {
	name string
	tier ids.Tier
	v    float64
}

func (c constF64) Name() string           { return c.name }
func (c constF64) Tier() ids.Tier         { return c.tier }
func (constF64) Kind() ids.ValueKind      { return ids.F64Kind }
func (constF64) Setup(int) (any, error)   { return nil, nil }
func (c constF64) Compute(parameter.Context, any) (parameter.Value, error) {
	return parameter.F64Value(c.v)
}
func (constF64) After(parameter.Context, any) error { return nil }

func TestF64ValueRejectsNaN(t *testing.T) {
	_, err := parameter.F64Value(1.0)
	require.NoError(t, err)

	var zero float64
	_, err = parameter.F64Value(zero / zero)
	require.ErrorIs(t, err, parameter.ErrNaN)
}

func TestMultiValueOfRejectsNaNMember(t *testing.T) {
	mv := parameter.NewMultiValue()
	mv.Floats["a"] = 1
	_, err := parameter.MultiValueOf(mv)
	require.NoError(t, err)

	var zero float64
	mv.Floats["b"] = zero / zero
	_, err = parameter.MultiValueOf(mv)
	require.ErrorIs(t, err, parameter.ErrNaN)
}

func TestMultiValueMissingKeyErrors(t *testing.T) {
	mv := parameter.NewMultiValue()
	mv.Floats["a"] = 1
	_, err := mv.Float("missing")
	require.ErrorIs(t, err, parameter.ErrMultiKeyMissing)
	_, err = mv.Index("missing")
	require.ErrorIs(t, err, parameter.ErrMultiKeyMissing)
}

func TestCollectionAddRejectsDuplicateNames(t *testing.T) {
	c := parameter.NewCollection()
	_, err := c.Add(constF64{name: "a", tier: ids.Const, v: 1})
	require.NoError(t, err)
	_, err = c.Add(constF64{name: "a", tier: ids.Simple, v: 2})
	require.ErrorIs(t, err, parameter.ErrDuplicateName)
}

func TestCollectionGroupsByTierAndKindInDeclarationOrder(t *testing.T) {
	c := parameter.NewCollection()
	idx0, err := c.Add(constF64{name: "const-0", tier: ids.Const, v: 1})
	require.NoError(t, err)
	idx1, err := c.Add(constF64{name: "const-1", tier: ids.Const, v: 2})
	require.NoError(t, err)
	_, err = c.Add(constF64{name: "simple-0", tier: ids.Simple, v: 3})
	require.NoError(t, err)

	require.Equal(t, 0, idx0.Inner)
	require.Equal(t, 1, idx1.Inner)
	require.Equal(t, 2, c.Count(ids.Const, ids.F64Kind))
	require.Equal(t, 1, c.Count(ids.Simple, ids.F64Kind))
	require.Equal(t, 3, c.Len())

	tierParams := c.Tier(ids.Const, ids.F64Kind)
	require.Len(t, tierParams, 2)
	require.Equal(t, "const-0", tierParams[0].Name())
	require.Equal(t, "const-1", tierParams[1].Name())

	p, err := c.Get(idx0)
	require.NoError(t, err)
	require.Equal(t, "const-0", p.Name())

	_, ok := c.Lookup("const-1")
	require.True(t, ok)
	_, ok = c.Lookup("missing")
	require.False(t, ok)

	_, err = c.Get(ids.ParameterIndex{Tier: ids.Const, Kind: ids.F64Kind, Inner: 99})
	require.ErrorIs(t, err, parameter.ErrNotFound)
}

func TestAsVariableReportsFalseForNonVariableParameter(t *testing.T) {
	_, ok := parameter.AsVariable(constF64{name: "a", tier: ids.Const, v: 1})
	require.False(t, ok)
}
