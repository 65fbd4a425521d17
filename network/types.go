// Package network declares the node/edge graph (§4.C), aggregated and
// virtual storage groups (§4.E), and the Network type that owns them plus the
// append-only resolve order the scheduler walks every step.
//
// Network never touches *state.State directly — bound and cost contracts are
// held as metric.Metric values, resolved later against whatever satisfies
// metric.Context (a network+state bundle assembled one layer up). network
// imports only ids, metric, derived and parameter, so state, lp, solver and
// scheduler can all depend on it without a cycle.
package network

import (
	"errors"
	"fmt"

	"github.com/pywr-go/pywr/ids"
)

// Sentinel errors for topology construction, per spec §7 "Topology errors".
var (
	// ErrDuplicateName indicates a (name, sub_name) pair already exists.
	ErrDuplicateName = errors.New("network: duplicate (name, sub_name)")
	// ErrNodeNotFound indicates a referenced node index or name does not exist.
	ErrNodeNotFound = errors.New("network: node not found")
	// ErrEdgeNotFound indicates a referenced edge index does not exist.
	ErrEdgeNotFound = errors.New("network: edge not found")
	// ErrSelfConnection indicates Connect was called with from == to.
	ErrSelfConnection = errors.New("network: self-connection not allowed")
	// ErrInvalidEndpointKind indicates Connect was called with an Output as
	// from, or an Input as to.
	ErrInvalidEndpointKind = errors.New("network: invalid endpoint kind for edge")
	// ErrWrongSetterForKind indicates a flow setter was used on a Storage node,
	// or a volume setter was used on a flow node.
	ErrWrongSetterForKind = errors.New("network: setter does not apply to this node kind")
	// ErrEmptyEdgeSet indicates a network has no edges at setup time.
	ErrEmptyEdgeSet = errors.New("network: empty edge set")
	// ErrSingleNode indicates a network has fewer than two nodes at setup time.
	ErrSingleNode = errors.New("network: fewer than two nodes")
	// ErrIncompatibleRelationship indicates an aggregated node was asked to
	// carry both Factors and MutualExclusivity.
	ErrIncompatibleRelationship = errors.New("network: factors and mutual-exclusivity are mutually exclusive")
	// ErrEmptyMemberSet indicates an aggregated node or virtual storage has no members.
	ErrEmptyMemberSet = errors.New("network: empty member set")
	// ErrFactorCountMismatch indicates the factor slice length doesn't match the member count.
	ErrFactorCountMismatch = errors.New("network: factor count does not match member count")
	// ErrDuplicateNetworkName indicates two networks share a name. The
	// multi-network coordinator (package model) returns its own
	// model.ErrDuplicateNetworkName, not this value.
	ErrDuplicateNetworkName = errors.New("network: duplicate network name")
)

// Kind is the variant of a Node.
type Kind int

const (
	// Input is a source: flow only leaves it, never enters.
	Input Kind = iota
	// Output is a sink: flow only enters it, never leaves.
	Output
	// Link passes flow through; may collapse trivially in the LP (§4.H.1).
	Link
	// Storage holds a volume bounded by [MinVolume, MaxVolume].
	Storage
)

// String renders the node kind for error messages and logs.
func (k Kind) String() string {
	switch k {
	case Input:
		return "Input"
	case Output:
		return "Output"
	case Link:
		return "Link"
	case Storage:
		return "Storage"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// VolumeAssignment selects how a storage node's InitialVolume is interpreted:
// an absolute volume, or a proportion (0..1) of MaxVolume evaluated at setup.
type VolumeAssignment struct {
	Proportional bool
	Value        float64
}

// Absolute constructs a VolumeAssignment naming an absolute initial volume.
func Absolute(v float64) VolumeAssignment { return VolumeAssignment{Value: v} }

// Proportional constructs a VolumeAssignment naming a fraction of MaxVolume.
func Proportional(p float64) VolumeAssignment { return VolumeAssignment{Proportional: true, Value: p} }

// ResolveKind tags what a ResolveEntry refers to, so the scheduler's walk
// (§4.J.1) can dispatch without a type switch over concrete pointers.
type ResolveKind int

const (
	ResolveNode ResolveKind = iota
	ResolveVirtualStorage
	ResolveParameter
	ResolveDerivedMetric
)

// ResolveEntry is one element of the append-only resolve order (§3
// "Lifecycles"): Node | VirtualStorage | Parameter | DerivedMetric, in the
// order builder calls added them.
type ResolveEntry struct {
	Kind  ResolveKind
	Index int // meaning depends on Kind: NodeIndex, VirtualStorageIndex, ParameterIndex.Inner (tier-qualified separately), or DerivedMetricIndex
	Param ids.ParameterIndex // populated only when Kind == ResolveParameter
}
