// Package ids defines the small, dependency-free index and enum types shared
// across every layer of the simulator: node/edge/aggregated-node/virtual-storage
// indices, parameter tiers and value kinds, and the tagged ParameterIndex that
// the parameter collection (see package parameter) hands out.
//
// Keeping these types in their own leaf package lets network, state, metric,
// and parameter all reference the same identifiers without importing each
// other: network describes topology, state describes values, metric describes
// how to read a value out of (network, state), and parameter produces values —
// none of them needs the others' concrete types, only these small integers.
package ids

import "fmt"

// NodeIndex identifies a Node within a Network's NodeVec. Indices are assigned
// in append order starting at 0 and are never reused.
type NodeIndex int

// EdgeIndex identifies an Edge within a Network's EdgeVec.
type EdgeIndex int

// AggregatedNodeIndex identifies an AggregatedNode.
type AggregatedNodeIndex int

// AggregatedStorageNodeIndex identifies an AggregatedStorageNode.
type AggregatedStorageNodeIndex int

// VirtualStorageIndex identifies a VirtualStorage account.
type VirtualStorageIndex int

// DerivedMetricIndex identifies a derived metric slot in State.DerivedMetrics.
type DerivedMetricIndex int

// InterNetworkIndex identifies a transfer slot in State.InterNetworkValues.
type InterNetworkIndex int

// Tier orders when and with what visibility a Parameter computes.
type Tier int

const (
	// Const parameters are computed once at scenario setup.
	Const Tier = iota
	// Simple parameters are resolved at the top of every step; may read Const
	// and previously-computed Simple values plus their own per-scenario state.
	Simple
	// General parameters are resolved inline during the scheduler's resolve-order
	// walk; may additionally read node/edge state and other General parameters.
	General
)

// String renders the tier name for error messages and logs.
func (t Tier) String() string {
	switch t {
	case Const:
		return "const"
	case Simple:
		return "simple"
	case General:
		return "general"
	default:
		return fmt.Sprintf("tier(%d)", int(t))
	}
}

// ValueKind is the value shape a Parameter produces.
type ValueKind int

const (
	// F64Kind parameters produce a single float64.
	F64Kind ValueKind = iota
	// U64Kind parameters produce a single uint64 (typically an index/control-curve level).
	U64Kind
	// MultiKind parameters produce a MultiValue (named floats + named indices).
	MultiKind
)

// String renders the value-kind name for error messages and logs.
func (k ValueKind) String() string {
	switch k {
	case F64Kind:
		return "f64"
	case U64Kind:
		return "u64"
	case MultiKind:
		return "multi"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ParameterIndex is a tagged (tier, kind, inner_index) triple identifying a
// parameter within the parameter collection's per-tier vectors for each
// value-kind. It is the only handle other packages need to read a parameter's
// value back out of State; they never need the parameter collection itself.
type ParameterIndex struct {
	Tier  Tier
	Kind  ValueKind
	Inner int
}

// String implements fmt.Stringer for debugging and error messages.
func (p ParameterIndex) String() string {
	return fmt.Sprintf("%s/%s[%d]", p.Tier, p.Kind, p.Inner)
}
