// Package parameter defines the tiered parameter contract (§3, §4.D): every
// parameter belongs to exactly one of Const/Simple/General and produces an
// f64, u64, or MultiValue. The Collection maintains one vector per tier for
// each value-kind (three per kind), as spec §4.D describes, and hands out
// ids.ParameterIndex handles rather than exposing its internal slices.
//
// Parameter.Compute receives a single Context interface regardless of tier;
// the tier (Parameter.Tier) controls *when* the scheduler calls it and *what
// has already been computed*, not which methods are legal to call — exactly
// as spec §4.D's "may only read ..." language describes a data-flow
// convention, not a type-level firewall. Implementations MUST honor it:
// a Simple parameter that calls a node/edge accessor violates the "Simple
// parameter is independent of node/edge state" invariant (§8) even though
// nothing stops it at compile time.
package parameter

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/pywr-go/pywr/ids"
	"github.com/pywr-go/pywr/metric"
	"github.com/pywr-go/pywr/timestep"
)

// Sentinel errors, per spec §7 "Parameter errors".
var (
	// ErrDuplicateName indicates Add was called with a name already registered.
	ErrDuplicateName = errors.New("parameter: duplicate name")
	// ErrNotFound indicates a ParameterIndex does not resolve to a registered parameter.
	ErrNotFound = errors.New("parameter: not found")
	// ErrNaN indicates a parameter attempted to emit NaN.
	ErrNaN = errors.New("parameter: computed value is NaN")
	// ErrKindMismatch indicates a parameter's declared Kind doesn't match the requested accessor.
	ErrKindMismatch = errors.New("parameter: value kind mismatch")
	// ErrNotVariable indicates a SetVariables/GetVariables call on a non-variable-capable parameter.
	ErrNotVariable = errors.New("parameter: not variable-capable")
	// ErrMultiKeyMissing indicates a requested MultiValue key does not exist.
	ErrMultiKeyMissing = errors.New("parameter: multi-value key missing")
)

// MultiValue is a composite parameter output: named floats and named indices.
type MultiValue struct {
	Floats  map[string]float64
	Indices map[string]uint64
}

// NewMultiValue returns an empty, ready-to-populate MultiValue.
func NewMultiValue() MultiValue {
	return MultiValue{Floats: make(map[string]float64), Indices: make(map[string]uint64)}
}

// Float returns the named float, or ErrMultiKeyMissing.
func (m MultiValue) Float(key string) (float64, error) {
	v, ok := m.Floats[key]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrMultiKeyMissing, key)
	}
	return v, nil
}

// Index returns the named index, or ErrMultiKeyMissing.
func (m MultiValue) Index(key string) (uint64, error) {
	v, ok := m.Indices[key]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrMultiKeyMissing, key)
	}
	return v, nil
}

// Value is a tagged union of the three value kinds a Parameter can produce.
type Value struct {
	Kind  ids.ValueKind
	F64   float64
	U64   uint64
	Multi MultiValue
}

// F64Value wraps a float64 as a Value, rejecting NaN per spec §4.D "Failure semantics".
func F64Value(f float64) (Value, error) {
	if math.IsNaN(f) {
		return Value{}, ErrNaN
	}
	return Value{Kind: ids.F64Kind, F64: f}, nil
}

// U64Value wraps a uint64 as a Value.
func U64Value(u uint64) Value { return Value{Kind: ids.U64Kind, U64: u} }

// MultiValueOf wraps a MultiValue as a Value, rejecting any NaN float member.
func MultiValueOf(mv MultiValue) (Value, error) {
	for k, v := range mv.Floats {
		if math.IsNaN(v) {
			return Value{}, fmt.Errorf("%w: key %q", ErrNaN, k)
		}
	}
	return Value{Kind: ids.MultiKind, Multi: mv}, nil
}

// Context is what a Parameter's Compute/After is handed: the current step
// and scenario, plus (for General parameters, by convention) node/edge/
// parameter access via the embedded metric.Context.
type Context interface {
	metric.Context
	Time() timestep.Timestep
	ScenarioIndex() int
}

// Parameter is the shared contract every parameter kind implements (§3, §6
// "Parameter contract").
type Parameter interface {
	Name() string
	Tier() ids.Tier
	Kind() ids.ValueKind

	// Setup computes this parameter's initial internal state for one scenario.
	Setup(scenarioIndex int) (internal any, err error)
	// Compute produces this step's value given ctx and the parameter's own
	// internal state (as returned by Setup, and as mutated in-place by prior
	// Compute/After calls this scenario).
	Compute(ctx Context, internal any) (Value, error)
	// After runs once per step after Compute (and, for General parameters,
	// after solve); implementations that have nothing to do may no-op.
	After(ctx Context, internal any) error
}

// Variable is implemented by parameters that expose a flat vector of scalars
// for external optimization harnesses (§3).
type Variable interface {
	Parameter
	Size() int
	GetVariables() []float64
	SetVariables([]float64) error
}

// AsVariable type-asserts p to Variable, reporting ok=false (not
// ErrNotVariable) when the parameter does not support it — callers that need
// the error form should use ErrNotVariable themselves.
func AsVariable(p Parameter) (Variable, bool) {
	v, ok := p.(Variable)
	return v, ok
}

// Collection maintains one vector per tier for each value-kind (three per
// kind), as spec §4.D describes. Insertion fails on duplicate names.
type Collection struct {
	mu    sync.RWMutex
	names map[string]ids.ParameterIndex
	byTK  [3][3][]Parameter // [tier][kind] -> ordered parameters
}

// NewCollection returns an empty Collection.
func NewCollection() *Collection {
	return &Collection{names: make(map[string]ids.ParameterIndex)}
}

// Add registers p, returning its tagged ParameterIndex, or ErrDuplicateName.
func (c *Collection) Add(p Parameter) (ids.ParameterIndex, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	name := p.Name()
	if _, dup := c.names[name]; dup {
		return ids.ParameterIndex{}, fmt.Errorf("%w: %q", ErrDuplicateName, name)
	}
	tier, kind := p.Tier(), p.Kind()
	inner := len(c.byTK[tier][kind])
	c.byTK[tier][kind] = append(c.byTK[tier][kind], p)
	idx := ids.ParameterIndex{Tier: tier, Kind: kind, Inner: inner}
	c.names[name] = idx
	return idx, nil
}

// Lookup returns the ParameterIndex registered under name.
func (c *Collection) Lookup(name string) (ids.ParameterIndex, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	idx, ok := c.names[name]
	return idx, ok
}

// Get returns the parameter registered at idx, or ErrNotFound.
func (c *Collection) Get(idx ids.ParameterIndex) (Parameter, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	vec := c.byTK[idx.Tier][idx.Kind]
	if idx.Inner < 0 || idx.Inner >= len(vec) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, idx)
	}
	return vec[idx.Inner], nil
}

// Tier returns the ordered parameters registered for (tier, kind).
func (c *Collection) Tier(tier ids.Tier, kind ids.ValueKind) []Parameter {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Parameter, len(c.byTK[tier][kind]))
	copy(out, c.byTK[tier][kind])
	return out
}

// Count returns the number of parameters registered for (tier, kind).
func (c *Collection) Count(tier ids.Tier, kind ids.ValueKind) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.byTK[tier][kind])
}

// Len returns the total number of registered parameters across all tiers and kinds.
func (c *Collection) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	n := 0
	for t := 0; t < 3; t++ {
		for k := 0; k < 3; k++ {
			n += len(c.byTK[t][k])
		}
	}
	return n
}
