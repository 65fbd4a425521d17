package network

import (
	"fmt"

	"github.com/pywr-go/pywr/ids"
	"github.com/pywr-go/pywr/metric"
)

// AddAggregatedNode registers a group of member nodes with no relationship
// beyond a shared aggregated bound row. Use WithFactors/WithMutualExclusivity
// to attach a relationship at construction time.
func (n *Network) AddAggregatedNode(name, subName string, members []ids.NodeIndex, opts ...AggregatedNodeOption) (ids.AggregatedNodeIndex, error) {
	if len(members) == 0 {
		return 0, ErrEmptyMemberSet
	}
	n.muTopology.Lock()
	defer n.muTopology.Unlock()

	memberInts := make([]int, len(members))
	for i, m := range members {
		if int(m) < 0 || int(m) >= len(n.nodes) {
			return 0, fmt.Errorf("%w: member %d", ErrNodeNotFound, m)
		}
		memberInts[i] = int(m)
	}

	idx := len(n.aggregated)
	a := &AggregatedNode{Index: idx, Name: name, SubName: subName, Members: memberInts}
	for _, opt := range opts {
		opt(a)
	}
	if a.Relationship == -1 {
		return 0, ErrIncompatibleRelationship
	}
	if a.Relationship == FactorsRelationship && len(a.Factors) != len(a.Members) {
		return 0, fmt.Errorf("%w: %d factors for %d members", ErrFactorCountMismatch, len(a.Factors), len(a.Members))
	}
	n.aggregated = append(n.aggregated, a)
	return ids.AggregatedNodeIndex(idx), nil
}

// AggregatedNodeOption configures an AggregatedNode at construction time,
// mirroring the teacher pack's functional-options builder pattern.
type AggregatedNodeOption func(*AggregatedNode)

// WithFactors attaches a Factors relationship. Passing both WithFactors and
// WithMutualExclusivity to the same AddAggregatedNode call is a construction
// error (ErrIncompatibleRelationship), checked when the options are applied.
func WithFactors(factors []Factor) AggregatedNodeOption {
	return func(a *AggregatedNode) {
		if a.Relationship == MutualExclusivityRelationship {
			a.Relationship = -1 // marks an invalid combination; rejected by AddAggregatedNode
			return
		}
		a.Relationship = FactorsRelationship
		a.Factors = factors
	}
}

// WithMutualExclusivity attaches a MutualExclusivity relationship with the
// given active-member-count window.
func WithMutualExclusivity(minActive, maxActive int) AggregatedNodeOption {
	return func(a *AggregatedNode) {
		if a.Relationship == FactorsRelationship {
			a.Relationship = -1
			return
		}
		a.Relationship = MutualExclusivityRelationship
		a.MinActive, a.MaxActive = minActive, maxActive
	}
}

// WithAggregatedBounds attaches min/max flow contracts to the aggregated total row.
func WithAggregatedBounds(minFlow, maxFlow metric.Metric) AggregatedNodeOption {
	return func(a *AggregatedNode) {
		a.MinFlow, a.MaxFlow = minFlow, maxFlow
	}
}

// AggregatedNode returns the aggregated node at idx. AddAggregatedNode
// already rejects an invalid combination of WithFactors/WithMutualExclusivity
// (Relationship == -1); the check here reports such a node, should one exist,
// as ErrIncompatibleRelationship.
func (n *Network) AggregatedNode(idx ids.AggregatedNodeIndex) (*AggregatedNode, error) {
	n.muTopology.RLock()
	defer n.muTopology.RUnlock()
	if int(idx) < 0 || int(idx) >= len(n.aggregated) {
		return nil, fmt.Errorf("%w: aggregated node %d", ErrNodeNotFound, idx)
	}
	a := n.aggregated[idx]
	if a.Relationship == -1 {
		return nil, ErrIncompatibleRelationship
	}
	return a, nil
}

// NumAggregatedNodes returns the number of registered aggregated nodes.
func (n *Network) NumAggregatedNodes() int {
	n.muTopology.RLock()
	defer n.muTopology.RUnlock()
	return len(n.aggregated)
}

// AggregatedNodes returns a snapshot of all aggregated nodes.
func (n *Network) AggregatedNodes() []*AggregatedNode {
	n.muTopology.RLock()
	defer n.muTopology.RUnlock()
	out := make([]*AggregatedNode, len(n.aggregated))
	copy(out, n.aggregated)
	return out
}

// AddAggregatedStorageNode registers a group of storage nodes whose aggregate
// volume is reported as a single derived metric.
func (n *Network) AddAggregatedStorageNode(name, subName string, members []ids.NodeIndex) (ids.AggregatedStorageNodeIndex, error) {
	if len(members) == 0 {
		return 0, ErrEmptyMemberSet
	}
	n.muTopology.Lock()
	defer n.muTopology.Unlock()

	memberInts := make([]int, len(members))
	for i, m := range members {
		if int(m) < 0 || int(m) >= len(n.nodes) {
			return 0, fmt.Errorf("%w: member %d", ErrNodeNotFound, m)
		}
		if n.nodes[m].Kind != Storage {
			return 0, fmt.Errorf("%w: member %d is not Storage", ErrWrongSetterForKind, m)
		}
		memberInts[i] = int(m)
	}
	idx := len(n.aggregatedStorage)
	n.aggregatedStorage = append(n.aggregatedStorage, &AggregatedStorageNode{Index: idx, Name: name, SubName: subName, Members: memberInts})
	return ids.AggregatedStorageNodeIndex(idx), nil
}

// AggregatedStorageNode returns the aggregated storage node at idx.
func (n *Network) AggregatedStorageNode(idx ids.AggregatedStorageNodeIndex) (*AggregatedStorageNode, error) {
	n.muTopology.RLock()
	defer n.muTopology.RUnlock()
	if int(idx) < 0 || int(idx) >= len(n.aggregatedStorage) {
		return nil, fmt.Errorf("%w: aggregated storage node %d", ErrNodeNotFound, idx)
	}
	return n.aggregatedStorage[idx], nil
}

// NumAggregatedStorageNodes returns the number of registered aggregated
// storage nodes.
func (n *Network) NumAggregatedStorageNodes() int {
	n.muTopology.RLock()
	defer n.muTopology.RUnlock()
	return len(n.aggregatedStorage)
}

// AggregatedStorageNodes returns a snapshot of all aggregated storage nodes.
func (n *Network) AggregatedStorageNodes() []*AggregatedStorageNode {
	n.muTopology.RLock()
	defer n.muTopology.RUnlock()
	out := make([]*AggregatedStorageNode, len(n.aggregatedStorage))
	copy(out, n.aggregatedStorage)
	return out
}

// VirtualStorageOption configures a VirtualStorage at construction time.
type VirtualStorageOption func(*VirtualStorage)

// WithHistorySize sets the rolling-horizon length in steps (§4.E).
func WithHistorySize(h int) VirtualStorageOption {
	return func(v *VirtualStorage) { v.HistorySize = h }
}

// WithResetPolicy sets the reset policy.
func WithResetPolicy(r Reset) VirtualStorageOption {
	return func(v *VirtualStorage) { v.Reset = r }
}

// WithVirtualStorageCost sets the per-step cost contract.
func WithVirtualStorageCost(m metric.Metric) VirtualStorageOption {
	return func(v *VirtualStorage) { v.Cost = m }
}

// AddVirtualStorage registers a virtual storage account consumed by flow
// through the given member nodes with per-node factors.
func (n *Network) AddVirtualStorage(name, subName string, members []Member, initial VolumeAssignment, minVolume, maxVolume metric.Metric, opts ...VirtualStorageOption) (ids.VirtualStorageIndex, error) {
	if len(members) == 0 {
		return 0, ErrEmptyMemberSet
	}
	n.muTopology.Lock()

	for _, m := range members {
		if m.Node < 0 || m.Node >= len(n.nodes) {
			n.muTopology.Unlock()
			return 0, fmt.Errorf("%w: member %d", ErrNodeNotFound, m.Node)
		}
	}
	idx := len(n.virtualStorage)
	v := &VirtualStorage{
		Index: idx, Name: name, SubName: subName, Members: members,
		InitialVolume: initial, MinVolume: minVolume, MaxVolume: maxVolume,
	}
	for _, opt := range opts {
		opt(v)
	}
	n.virtualStorage = append(n.virtualStorage, v)
	n.muTopology.Unlock()

	n.muResolve.Lock()
	n.resolveOrder = append(n.resolveOrder, ResolveEntry{Kind: ResolveVirtualStorage, Index: idx})
	n.muResolve.Unlock()

	return ids.VirtualStorageIndex(idx), nil
}

// VirtualStorage returns the virtual storage account at idx.
func (n *Network) VirtualStorage(idx ids.VirtualStorageIndex) (*VirtualStorage, error) {
	n.muTopology.RLock()
	defer n.muTopology.RUnlock()
	if int(idx) < 0 || int(idx) >= len(n.virtualStorage) {
		return nil, fmt.Errorf("%w: virtual storage %d", ErrNodeNotFound, idx)
	}
	return n.virtualStorage[idx], nil
}

// NumVirtualStorage returns the number of registered virtual storage accounts.
func (n *Network) NumVirtualStorage() int {
	n.muTopology.RLock()
	defer n.muTopology.RUnlock()
	return len(n.virtualStorage)
}

// VirtualStorages returns a snapshot of all virtual storage accounts.
func (n *Network) VirtualStorages() []*VirtualStorage {
	n.muTopology.RLock()
	defer n.muTopology.RUnlock()
	out := make([]*VirtualStorage, len(n.virtualStorage))
	copy(out, n.virtualStorage)
	return out
}
