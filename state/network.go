package state

import (
	"fmt"
	"math"

	"github.com/pywr-go/pywr/ids"
)

// NetworkState holds the raw per-step flow/volume state of a network's
// nodes, edges, and virtual storage accounts. It knows nothing of the
// network's topology or contracts; State wraps it with the network-aware
// operations (before-phase, complete) that need both.
type NetworkState struct {
	nodes           []NodeState
	edges           []EdgeState
	virtualStorage  []VirtualStorageState
}

// NewNetworkState returns a NetworkState sized for the given initial node
// volumes (0 for flow nodes), edge count, and initial virtual storage states.
func NewNetworkState(initialNodeVolumes []float64, numEdges int, initialVS []VirtualStorageState) *NetworkState {
	nodes := make([]NodeState, len(initialNodeVolumes))
	for i, v := range initialNodeVolumes {
		nodes[i].Volume = v
	}
	return &NetworkState{
		nodes:          nodes,
		edges:          make([]EdgeState, numEdges),
		virtualStorage: append([]VirtualStorageState(nil), initialVS...),
	}
}

// Reset zeroes all per-step flow accumulators. Volume (node and virtual
// storage) is retained across the call; flows are added back in via AddFlow.
func (s *NetworkState) Reset() {
	for i := range s.nodes {
		s.nodes[i].reset()
	}
	for i := range s.edges {
		s.edges[i].reset()
	}
	for i := range s.virtualStorage {
		s.virtualStorage[i].reset()
	}
}

// AddFlow records a solved edge flow: the `from` node's outflow, the `to`
// node's inflow, and the edge's own flow. fromIsStorage/toIsStorage select
// whether the endpoint also integrates volume (flow*dt).
func (s *NetworkState) AddFlow(fromIdx, toIdx, edgeIdx int, dt, flow float64, fromIsStorage, toIsStorage bool) error {
	if math.IsNaN(flow) {
		return ErrNaN
	}
	if fromIdx < 0 || fromIdx >= len(s.nodes) {
		return fmt.Errorf("%w: %d", ErrNodeIndexNotFound, fromIdx)
	}
	if toIdx < 0 || toIdx >= len(s.nodes) {
		return fmt.Errorf("%w: %d", ErrNodeIndexNotFound, toIdx)
	}
	if edgeIdx < 0 || edgeIdx >= len(s.edges) {
		return fmt.Errorf("%w: %d", ErrEdgeIndexNotFound, edgeIdx)
	}
	s.nodes[fromIdx].addOutFlow(flow, dt, fromIsStorage)
	s.nodes[toIdx].addInFlow(flow, dt, toIsStorage)
	s.edges[edgeIdx].Flow += flow
	return nil
}

func (s *NetworkState) nodeState(idx ids.NodeIndex) (*NodeState, error) {
	i := int(idx)
	if i < 0 || i >= len(s.nodes) {
		return nil, fmt.Errorf("%w: %d", ErrNodeIndexNotFound, idx)
	}
	return &s.nodes[i], nil
}

// NodeInflow returns the node's accumulated inflow this step.
func (s *NetworkState) NodeInflow(idx ids.NodeIndex) (float64, error) {
	n, err := s.nodeState(idx)
	if err != nil {
		return 0, err
	}
	return n.InFlow, nil
}

// NodeOutflow returns the node's accumulated outflow this step.
func (s *NetworkState) NodeOutflow(idx ids.NodeIndex) (float64, error) {
	n, err := s.nodeState(idx)
	if err != nil {
		return 0, err
	}
	return n.OutFlow, nil
}

// NodeVolume returns a Storage node's current volume.
func (s *NetworkState) NodeVolume(idx ids.NodeIndex) (float64, error) {
	n, err := s.nodeState(idx)
	if err != nil {
		return 0, err
	}
	return n.Volume, nil
}

// SetNodeVolume overwrites a Storage node's volume directly (used for
// initial-volume seeding and end-of-step clamping). Rejects NaN.
func (s *NetworkState) SetNodeVolume(idx ids.NodeIndex, volume float64) error {
	if math.IsNaN(volume) {
		return ErrNaN
	}
	n, err := s.nodeState(idx)
	if err != nil {
		return err
	}
	n.Volume = volume
	return nil
}

// EdgeFlow returns the edge's accumulated flow this step.
func (s *NetworkState) EdgeFlow(idx ids.EdgeIndex) (float64, error) {
	i := int(idx)
	if i < 0 || i >= len(s.edges) {
		return 0, fmt.Errorf("%w: %d", ErrEdgeIndexNotFound, idx)
	}
	return s.edges[i].Flow, nil
}

func (s *NetworkState) vsState(idx ids.VirtualStorageIndex) (*VirtualStorageState, error) {
	i := int(idx)
	if i < 0 || i >= len(s.virtualStorage) {
		return nil, fmt.Errorf("%w: %d", ErrVirtualStorageIndexNotFound, idx)
	}
	return &s.virtualStorage[i], nil
}

// VirtualStorageVolume returns the account's current volume.
func (s *NetworkState) VirtualStorageVolume(idx ids.VirtualStorageIndex) (float64, error) {
	v, err := s.vsState(idx)
	if err != nil {
		return 0, err
	}
	return v.Volume, nil
}

// SetVirtualStorageVolume overwrites an account's volume directly (used for
// reset and end-of-step clamping). Rejects NaN.
func (s *NetworkState) SetVirtualStorageVolume(idx ids.VirtualStorageIndex, volume float64) error {
	if math.IsNaN(volume) {
		return ErrNaN
	}
	v, err := s.vsState(idx)
	if err != nil {
		return err
	}
	v.Volume = volume
	return nil
}

// VirtualStorage returns the account's mutable state for scheduler use
// (reset, history credit, draw application).
func (s *NetworkState) VirtualStorage(idx ids.VirtualStorageIndex) (*VirtualStorageState, error) {
	return s.vsState(idx)
}
