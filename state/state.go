package state

import (
	"fmt"
	"math"

	"github.com/pywr-go/pywr/ids"
	"github.com/pywr-go/pywr/network"
	"github.com/pywr-go/pywr/parameter"
	"github.com/pywr-go/pywr/timestep"
)

// State is one scenario's complete mutable simulation state (§4.G): node and
// edge flows, storage and virtual-storage volumes, the tiered parameter
// before/after vectors, derived metrics, and inter-network transfer values.
// It holds a reference to the (immutable, shared) Network it belongs to so it
// can implement metric.Context directly, without a separate adapter type.
type State struct {
	net *network.Network

	flows *NetworkState

	parametersBefore *ParameterValues
	parametersAfter  *ParameterValues

	derivedMetrics []float64
	interNetwork   []float64

	scenarioIndex int
	currentStep   timestep.Timestep
}

// Builder accumulates the construction inputs spec §4.G describes (initial
// node states, edge count, initial virtual-storage states, parameter
// collection sizes, derived-metric count, inter-network-transfer count)
// before producing a State, mirroring the teacher pack's builder-option
// construction style.
type Builder struct {
	net                 *network.Network
	scenarioIndex       int
	initialNodeVolumes  []float64
	initialVS           []VirtualStorageState
	parameterCounts     ParameterCounts
	numDerivedMetrics   int
	numInterNetworkVals int
}

// NewBuilder starts a Builder for net, scoped to one scenario.
func NewBuilder(net *network.Network, scenarioIndex int) *Builder {
	return &Builder{
		net:                net,
		scenarioIndex:      scenarioIndex,
		initialNodeVolumes: make([]float64, net.NumNodes()),
	}
}

// WithInitialNodeVolume seeds a Storage node's starting volume.
func (b *Builder) WithInitialNodeVolume(idx ids.NodeIndex, volume float64) *Builder {
	b.initialNodeVolumes[idx] = volume
	return b
}

// WithVirtualStorageStates sets the initial virtual-storage account states,
// in VirtualStorageIndex order.
func (b *Builder) WithVirtualStorageStates(states []VirtualStorageState) *Builder {
	b.initialVS = states
	return b
}

// WithParameterCounts sets the (tier, kind) parameter counts the State's
// value vectors must be sized to, as reported by parameter.Collection.
func (b *Builder) WithParameterCounts(counts ParameterCounts) *Builder {
	b.parameterCounts = counts
	return b
}

// WithDerivedMetricCount sets the number of derived-metric slots.
func (b *Builder) WithDerivedMetricCount(n int) *Builder {
	b.numDerivedMetrics = n
	return b
}

// WithInterNetworkValueCount sets the number of inter-network transfer slots.
func (b *Builder) WithInterNetworkValueCount(n int) *Builder {
	b.numInterNetworkVals = n
	return b
}

// Build produces the State.
func (b *Builder) Build() *State {
	return &State{
		net:              b.net,
		flows:            NewNetworkState(b.initialNodeVolumes, b.net.NumEdges(), b.initialVS),
		parametersBefore: NewParameterValues(b.parameterCounts),
		parametersAfter:  NewParameterValues(b.parameterCounts),
		derivedMetrics:   make([]float64, b.numDerivedMetrics),
		interNetwork:     make([]float64, b.numInterNetworkVals),
		scenarioIndex:    b.scenarioIndex,
	}
}

// ScenarioIndex implements parameter.Context / derived.Context.
func (s *State) ScenarioIndex() int { return s.scenarioIndex }

// Time implements parameter.Context / derived.Context.
func (s *State) Time() timestep.Timestep { return s.currentStep }

// SetTimestep is called by the scheduler at the start of every step.
func (s *State) SetTimestep(ts timestep.Timestep) { s.currentStep = ts }

// Reset zeroes all per-step flow accumulators ahead of a new step's solve.
func (s *State) Reset() { s.flows.Reset() }

// Flows exposes the raw NetworkState for the scheduler/solver adapter to
// write solved flows into via AddFlow.
func (s *State) Flows() *NetworkState { return s.flows }

// --- metric.Context -----------------------------------------------------

// NodeInflow implements metric.Context.
func (s *State) NodeInflow(idx ids.NodeIndex) (float64, error) { return s.flows.NodeInflow(idx) }

// NodeOutflow implements metric.Context.
func (s *State) NodeOutflow(idx ids.NodeIndex) (float64, error) { return s.flows.NodeOutflow(idx) }

// NodeVolume implements metric.Context.
func (s *State) NodeVolume(idx ids.NodeIndex) (float64, error) { return s.flows.NodeVolume(idx) }

// EdgeFlow implements metric.Context.
func (s *State) EdgeFlow(idx ids.EdgeIndex) (float64, error) { return s.flows.EdgeFlow(idx) }

// AggregatedNodeInflow sums member NodeInflow values.
func (s *State) AggregatedNodeInflow(idx ids.AggregatedNodeIndex) (float64, error) {
	a, err := s.net.AggregatedNode(idx)
	if err != nil {
		return 0, err
	}
	total := 0.0
	for _, m := range a.Members {
		v, err := s.flows.NodeInflow(ids.NodeIndex(m))
		if err != nil {
			return 0, err
		}
		total += v
	}
	return total, nil
}

// AggregatedNodeOutflow sums member NodeOutflow values.
func (s *State) AggregatedNodeOutflow(idx ids.AggregatedNodeIndex) (float64, error) {
	a, err := s.net.AggregatedNode(idx)
	if err != nil {
		return 0, err
	}
	total := 0.0
	for _, m := range a.Members {
		v, err := s.flows.NodeOutflow(ids.NodeIndex(m))
		if err != nil {
			return 0, err
		}
		total += v
	}
	return total, nil
}

// AggregatedNodeVolume sums member Storage node volumes.
func (s *State) AggregatedNodeVolume(idx ids.AggregatedStorageNodeIndex) (float64, error) {
	a, err := s.net.AggregatedStorageNode(idx)
	if err != nil {
		return 0, err
	}
	total := 0.0
	for _, m := range a.Members {
		v, err := s.flows.NodeVolume(ids.NodeIndex(m))
		if err != nil {
			return 0, err
		}
		total += v
	}
	return total, nil
}

// VirtualStorageVolume implements metric.Context.
func (s *State) VirtualStorageVolume(idx ids.VirtualStorageIndex) (float64, error) {
	return s.flows.VirtualStorageVolume(idx)
}

// DerivedMetricValue implements metric.Context.
func (s *State) DerivedMetricValue(idx ids.DerivedMetricIndex) (float64, error) {
	if int(idx) < 0 || int(idx) >= len(s.derivedMetrics) {
		return 0, fmt.Errorf("%w: %d", ErrDerivedMetricIndexNotFound, idx)
	}
	return s.derivedMetrics[idx], nil
}

// SetDerivedMetricValue writes a derived metric's current value. Rejects NaN.
func (s *State) SetDerivedMetricValue(idx ids.DerivedMetricIndex, v float64) error {
	if math.IsNaN(v) {
		return fmt.Errorf("%w: derived metric %d", ErrNaN, idx)
	}
	if int(idx) < 0 || int(idx) >= len(s.derivedMetrics) {
		return fmt.Errorf("%w: %d", ErrDerivedMetricIndexNotFound, idx)
	}
	s.derivedMetrics[idx] = v
	return nil
}

// ParameterF64 implements metric.Context via the BeforeOrElseAfter fallback
// (§4.G): the step's own computed value if one has landed in `before` yet,
// else whatever `after` last held.
func (s *State) ParameterF64(idx ids.ParameterIndex) (float64, error) {
	return s.ParameterF64BeforeOrElseAfter(idx)
}

// ParameterMultiF64 implements metric.Context via the BeforeOrElseAfter fallback.
func (s *State) ParameterMultiF64(idx ids.ParameterIndex, key string) (float64, error) {
	return s.ParameterMultiF64BeforeOrElseAfter(idx, key)
}

// --- Parameter before/after accessors -----------------------------------

func (s *State) paramF64(pv *ParameterValues, idx ids.ParameterIndex) (float64, bool, error) {
	if idx.Kind == ids.U64Kind {
		u, set, err := pv.U64(idx)
		return float64(u), set, err
	}
	return pv.F64(idx)
}

// ParameterF64Before returns idx's value as last written by compute (General)
// or compute_simple (Simple), without falling back to `after`.
func (s *State) ParameterF64Before(idx ids.ParameterIndex) (float64, error) {
	v, _, err := s.paramF64(s.parametersBefore, idx)
	return v, err
}

// ParameterF64After returns idx's value as last committed by After/after_simple.
func (s *State) ParameterF64After(idx ids.ParameterIndex) (float64, error) {
	v, _, err := s.paramF64(s.parametersAfter, idx)
	return v, err
}

// ParameterF64BeforeOrElseAfter prefers `before`, falling back to `after`
// only if `before` has never been written this scenario.
func (s *State) ParameterF64BeforeOrElseAfter(idx ids.ParameterIndex) (float64, error) {
	v, set, err := s.paramF64(s.parametersBefore, idx)
	if err != nil {
		return 0, err
	}
	if set {
		return v, nil
	}
	return s.ParameterF64After(idx)
}

// ParameterF64AfterOrElseBefore prefers `after`, falling back to `before`
// only if `after` has never been written this scenario.
func (s *State) ParameterF64AfterOrElseBefore(idx ids.ParameterIndex) (float64, error) {
	v, set, err := s.paramF64(s.parametersAfter, idx)
	if err != nil {
		return 0, err
	}
	if set {
		return v, nil
	}
	return s.ParameterF64Before(idx)
}

// SetParameterF64Before writes idx's before-phase value.
func (s *State) SetParameterF64Before(idx ids.ParameterIndex, v float64) error {
	if idx.Kind == ids.U64Kind {
		return s.parametersBefore.SetU64(idx, uint64(v))
	}
	return s.parametersBefore.SetF64(idx, v)
}

// SetParameterValueBefore writes idx's before-phase value from a tagged
// parameter.Value, dispatching on its Kind.
func (s *State) SetParameterValueBefore(idx ids.ParameterIndex, v parameter.Value) error {
	switch v.Kind {
	case ids.F64Kind:
		return s.parametersBefore.SetF64(idx, v.F64)
	case ids.U64Kind:
		return s.parametersBefore.SetU64(idx, v.U64)
	case ids.MultiKind:
		return s.parametersBefore.SetMulti(idx, v.Multi)
	default:
		return fmt.Errorf("%w: %s", ErrParameterKindMismatch, idx)
	}
}

// CommitParameterAfter copies idx's current before-phase value into the
// after vector. Called once per parameter per step, after its After hook (or
// after_simple, for Simple-tier parameters) has run: the Parameter contract
// gives After no way to alter the emitted numeric value (it exists only to
// mutate the parameter's own internal state for next step), so the after
// snapshot is always exactly the before snapshot at commit time.
func (s *State) CommitParameterAfter(idx ids.ParameterIndex) error {
	switch idx.Kind {
	case ids.F64Kind:
		v, _, err := s.parametersBefore.F64(idx)
		if err != nil {
			return err
		}
		return s.parametersAfter.SetF64(idx, v)
	case ids.U64Kind:
		v, _, err := s.parametersBefore.U64(idx)
		if err != nil {
			return err
		}
		return s.parametersAfter.SetU64(idx, v)
	case ids.MultiKind:
		v, set, err := s.parametersBefore.rawMulti(idx)
		if err != nil {
			return err
		}
		if !set {
			return nil
		}
		return s.parametersAfter.SetMulti(idx, v)
	default:
		return fmt.Errorf("%w: %s", ErrParameterKindMismatch, idx)
	}
}

// ParameterMultiF64Before returns the named float from idx's before-phase
// MultiValue, without falling back to `after`.
func (s *State) ParameterMultiF64Before(idx ids.ParameterIndex, key string) (float64, error) {
	v, _, err := s.parametersBefore.Multi(idx, key)
	return v, err
}

// ParameterMultiF64After returns the named float from idx's after-phase MultiValue.
func (s *State) ParameterMultiF64After(idx ids.ParameterIndex, key string) (float64, error) {
	v, _, err := s.parametersAfter.Multi(idx, key)
	return v, err
}

// ParameterMultiF64BeforeOrElseAfter prefers `before`, falling back to
// `after` only if `before` has never been written this scenario.
func (s *State) ParameterMultiF64BeforeOrElseAfter(idx ids.ParameterIndex, key string) (float64, error) {
	v, set, err := s.parametersBefore.Multi(idx, key)
	if err != nil {
		return 0, err
	}
	if set {
		return v, nil
	}
	return s.ParameterMultiF64After(idx, key)
}

// InterNetworkValue returns a transfer slot's current value.
func (s *State) InterNetworkValue(idx ids.InterNetworkIndex) (float64, error) {
	if int(idx) < 0 || int(idx) >= len(s.interNetwork) {
		return 0, fmt.Errorf("%w: %d", ErrInterNetworkIndexNotFound, idx)
	}
	return s.interNetwork[idx], nil
}

// SetInterNetworkValue writes a transfer slot's value. Rejects NaN.
func (s *State) SetInterNetworkValue(idx ids.InterNetworkIndex, v float64) error {
	if math.IsNaN(v) {
		return fmt.Errorf("%w: inter-network value %d", ErrNaN, idx)
	}
	if int(idx) < 0 || int(idx) >= len(s.interNetwork) {
		return fmt.Errorf("%w: %d", ErrInterNetworkIndexNotFound, idx)
	}
	s.interNetwork[idx] = v
	return nil
}
