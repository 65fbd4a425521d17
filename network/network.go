package network

import (
	"fmt"
	"sync"

	"github.com/pywr-go/pywr/derived"
	"github.com/pywr-go/pywr/ids"
	"github.com/pywr-go/pywr/metric"
	"github.com/pywr-go/pywr/parameter"
)

// nameKey uniquely identifies a (name, sub_name) pair across all node kinds.
type nameKey struct{ name, subName string }

// Feature names a capability a Network's construction requires of a solver
// (§4.H.5).
type Feature int

const (
	AggregatedNodeFeature Feature = iota
	AggregatedNodeFactorsFeature
	AggregatedNodeDynamicFactorsFeature
	MutualExclusivityFeature
	VirtualStorageFeature
)

// Network owns NodeVec, EdgeVec, the aggregated/virtual-storage vectors, and
// the parameter collection (§3 "Ownership"), plus the append-only resolve
// order the scheduler walks every step.
//
// muTopology guards nodes/edges/aggregated vectors; muResolve guards the
// resolve order and derived-metric vector, kept separate so that the
// scheduler's sequential walk (which only ever runs on one goroutine per
// scenario, but shares this *Network read-only across scenario goroutines)
// never contends with build-time mutation, mirroring core.Graph's two-lock
// split between vertices and edges/adjacency.
type Network struct {
	muTopology sync.RWMutex
	muResolve  sync.RWMutex

	nodes   []*Node
	edges   []*Edge
	byName  map[nameKey]int // -> NodeIndex

	aggregated        []*AggregatedNode
	aggregatedStorage []*AggregatedStorageNode
	virtualStorage    []*VirtualStorage

	params  *parameter.Collection
	derivedMetrics []derived.Metric

	resolveOrder []ResolveEntry
}

// NewNetwork returns an empty Network ready for builder calls.
func NewNetwork() *Network {
	return &Network{
		byName: make(map[nameKey]int),
		params: parameter.NewCollection(),
	}
}

// Parameters returns the Network's owned parameter collection.
func (n *Network) Parameters() *parameter.Collection { return n.params }

func (n *Network) addNode(name, subName string, kind Kind) (ids.NodeIndex, error) {
	n.muTopology.Lock()
	defer n.muTopology.Unlock()

	key := nameKey{name, subName}
	if _, dup := n.byName[key]; dup {
		return 0, fmt.Errorf("%w: %v", ErrDuplicateName, key)
	}
	idx := len(n.nodes)
	node := &Node{Index: idx, Name: name, SubName: subName, Kind: kind}
	n.nodes = append(n.nodes, node)
	n.byName[key] = idx

	n.muResolve.Lock()
	n.resolveOrder = append(n.resolveOrder, ResolveEntry{Kind: ResolveNode, Index: idx})
	n.muResolve.Unlock()

	return ids.NodeIndex(idx), nil
}

// AddInput adds a source node.
func (n *Network) AddInput(name, subName string) (ids.NodeIndex, error) {
	return n.addNode(name, subName, Input)
}

// AddOutput adds a sink node.
func (n *Network) AddOutput(name, subName string) (ids.NodeIndex, error) {
	return n.addNode(name, subName, Output)
}

// AddLink adds a pass-through node.
func (n *Network) AddLink(name, subName string) (ids.NodeIndex, error) {
	return n.addNode(name, subName, Link)
}

// AddStorage adds a storage node.
func (n *Network) AddStorage(name, subName string) (ids.NodeIndex, error) {
	return n.addNode(name, subName, Storage)
}

// NodeByName resolves a (name, sub_name) pair to its index.
func (n *Network) NodeByName(name, subName string) (ids.NodeIndex, error) {
	n.muTopology.RLock()
	defer n.muTopology.RUnlock()
	idx, ok := n.byName[nameKey{name, subName}]
	if !ok {
		return 0, fmt.Errorf("%w: %s/%s", ErrNodeNotFound, name, subName)
	}
	return ids.NodeIndex(idx), nil
}

// Node returns the node at idx.
func (n *Network) Node(idx ids.NodeIndex) (*Node, error) {
	n.muTopology.RLock()
	defer n.muTopology.RUnlock()
	if int(idx) < 0 || int(idx) >= len(n.nodes) {
		return nil, fmt.Errorf("%w: %d", ErrNodeNotFound, idx)
	}
	return n.nodes[idx], nil
}

// NumNodes returns the number of registered nodes.
func (n *Network) NumNodes() int {
	n.muTopology.RLock()
	defer n.muTopology.RUnlock()
	return len(n.nodes)
}

// Nodes returns a snapshot slice of all nodes, indexed by NodeIndex.
func (n *Network) Nodes() []*Node {
	n.muTopology.RLock()
	defer n.muTopology.RUnlock()
	out := make([]*Node, len(n.nodes))
	copy(out, n.nodes)
	return out
}

// Connect adds a directed edge from -> to. Fails on self-loop, an Output as
// `from`, or an Input as `to` (§3 Invariant, §4.C).
func (n *Network) Connect(from, to ids.NodeIndex) (ids.EdgeIndex, error) {
	n.muTopology.Lock()
	defer n.muTopology.Unlock()

	if from == to {
		return 0, ErrSelfConnection
	}
	if int(from) < 0 || int(from) >= len(n.nodes) {
		return 0, fmt.Errorf("%w: from=%d", ErrNodeNotFound, from)
	}
	if int(to) < 0 || int(to) >= len(n.nodes) {
		return 0, fmt.Errorf("%w: to=%d", ErrNodeNotFound, to)
	}
	fromNode, toNode := n.nodes[from], n.nodes[to]
	if fromNode.Kind == Output {
		return 0, fmt.Errorf("%w: edge from Output %s", ErrInvalidEndpointKind, fromNode.FullName())
	}
	if toNode.Kind == Input {
		return 0, fmt.Errorf("%w: edge into Input %s", ErrInvalidEndpointKind, toNode.FullName())
	}

	idx := len(n.edges)
	e := &Edge{Index: idx, From: int(from), To: int(to)}
	n.edges = append(n.edges, e)
	fromNode.Outgoing = append(fromNode.Outgoing, idx)
	toNode.Incoming = append(toNode.Incoming, idx)
	return ids.EdgeIndex(idx), nil
}

// Edge returns the edge at idx.
func (n *Network) Edge(idx ids.EdgeIndex) (*Edge, error) {
	n.muTopology.RLock()
	defer n.muTopology.RUnlock()
	if int(idx) < 0 || int(idx) >= len(n.edges) {
		return nil, fmt.Errorf("%w: %d", ErrEdgeNotFound, idx)
	}
	return n.edges[idx], nil
}

// NumEdges returns the number of registered edges.
func (n *Network) NumEdges() int {
	n.muTopology.RLock()
	defer n.muTopology.RUnlock()
	return len(n.edges)
}

// Edges returns a snapshot slice of all edges, indexed by EdgeIndex.
func (n *Network) Edges() []*Edge {
	n.muTopology.RLock()
	defer n.muTopology.RUnlock()
	out := make([]*Edge, len(n.edges))
	copy(out, n.edges)
	return out
}

// --- Flow/volume/cost setters -------------------------------------------------

// SetMinFlow sets a flow node's minimum-flow contract. Rejects Storage nodes.
func (n *Network) SetMinFlow(idx ids.NodeIndex, m metric.Metric) error {
	node, err := n.Node(idx)
	if err != nil {
		return err
	}
	if node.Kind == Storage {
		return fmt.Errorf("%w: SetMinFlow on Storage %s", ErrWrongSetterForKind, node.FullName())
	}
	node.MinFlow = m
	return nil
}

// SetMaxFlow sets a flow node's maximum-flow contract. Rejects Storage nodes.
func (n *Network) SetMaxFlow(idx ids.NodeIndex, m metric.Metric) error {
	node, err := n.Node(idx)
	if err != nil {
		return err
	}
	if node.Kind == Storage {
		return fmt.Errorf("%w: SetMaxFlow on Storage %s", ErrWrongSetterForKind, node.FullName())
	}
	node.MaxFlow = m
	return nil
}

// SetCost sets any node's per-step cost contract.
func (n *Network) SetCost(idx ids.NodeIndex, m metric.Metric) error {
	node, err := n.Node(idx)
	if err != nil {
		return err
	}
	node.Cost = m
	return nil
}

// SetMinVolume sets a Storage node's minimum-volume contract. Rejects flow nodes.
func (n *Network) SetMinVolume(idx ids.NodeIndex, m metric.Metric) error {
	node, err := n.Node(idx)
	if err != nil {
		return err
	}
	if node.Kind != Storage {
		return fmt.Errorf("%w: SetMinVolume on %s %s", ErrWrongSetterForKind, node.Kind, node.FullName())
	}
	node.MinVolume = m
	return nil
}

// SetMaxVolume sets a Storage node's maximum-volume contract. Rejects flow nodes.
func (n *Network) SetMaxVolume(idx ids.NodeIndex, m metric.Metric) error {
	node, err := n.Node(idx)
	if err != nil {
		return err
	}
	if node.Kind != Storage {
		return fmt.Errorf("%w: SetMaxVolume on %s %s", ErrWrongSetterForKind, node.Kind, node.FullName())
	}
	node.MaxVolume = m
	return nil
}

// SetInitialVolume sets a Storage node's initial-volume assignment (absolute
// or proportional). Rejects flow nodes.
func (n *Network) SetInitialVolume(idx ids.NodeIndex, va VolumeAssignment) error {
	node, err := n.Node(idx)
	if err != nil {
		return err
	}
	if node.Kind != Storage {
		return fmt.Errorf("%w: SetInitialVolume on %s %s", ErrWrongSetterForKind, node.Kind, node.FullName())
	}
	node.InitialVolume = va
	return nil
}

// --- Parameters & derived metrics ---------------------------------------------

// AddParameter registers p in the Network's parameter collection. General
// parameters are additionally appended to the resolve order (§3 "Lifecycles");
// Const and Simple parameters are not, since the scheduler visits them as
// whole tiers rather than individually.
func (n *Network) AddParameter(p parameter.Parameter) (ids.ParameterIndex, error) {
	idx, err := n.params.Add(p)
	if err != nil {
		return ids.ParameterIndex{}, err
	}
	if p.Tier() == ids.General {
		n.muResolve.Lock()
		n.resolveOrder = append(n.resolveOrder, ResolveEntry{Kind: ResolveParameter, Param: idx})
		n.muResolve.Unlock()
	}
	return idx, nil
}

// AddDerivedMetric registers dm, appending it to the resolve order, and
// returns its slot index into State.DerivedMetrics.
func (n *Network) AddDerivedMetric(dm derived.Metric) ids.DerivedMetricIndex {
	n.muResolve.Lock()
	defer n.muResolve.Unlock()
	idx := len(n.derivedMetrics)
	n.derivedMetrics = append(n.derivedMetrics, dm)
	n.resolveOrder = append(n.resolveOrder, ResolveEntry{Kind: ResolveDerivedMetric, Index: idx})
	return ids.DerivedMetricIndex(idx)
}

// DerivedMetrics returns the registered derived metrics, indexed by DerivedMetricIndex.
func (n *Network) DerivedMetrics() []derived.Metric {
	n.muResolve.RLock()
	defer n.muResolve.RUnlock()
	out := make([]derived.Metric, len(n.derivedMetrics))
	copy(out, n.derivedMetrics)
	return out
}

// ResolveOrder returns the append-only resolve order the scheduler walks
// every step (§3 "Lifecycles", §4.J.1).
func (n *Network) ResolveOrder() []ResolveEntry {
	n.muResolve.RLock()
	defer n.muResolve.RUnlock()
	out := make([]ResolveEntry, len(n.resolveOrder))
	copy(out, n.resolveOrder)
	return out
}

// NumDerivedMetrics returns the number of registered derived metrics.
func (n *Network) NumDerivedMetrics() int {
	n.muResolve.RLock()
	defer n.muResolve.RUnlock()
	return len(n.derivedMetrics)
}

// Validate checks the boundary invariants spec §8 requires before a run can
// start: a non-empty edge set and at least two nodes.
func (n *Network) Validate() error {
	n.muTopology.RLock()
	defer n.muTopology.RUnlock()
	if len(n.nodes) < 2 {
		return ErrSingleNode
	}
	if len(n.edges) == 0 {
		return ErrEmptyEdgeSet
	}
	return nil
}

// RequiredFeatures computes the SolverFeatures set a solver must declare to
// run this network (§4.H.5), based on which aggregated/virtual-storage
// relationships it actually uses.
func (n *Network) RequiredFeatures() map[Feature]struct{} {
	n.muTopology.RLock()
	defer n.muTopology.RUnlock()

	out := make(map[Feature]struct{})
	for _, a := range n.aggregated {
		out[AggregatedNodeFeature] = struct{}{}
		switch a.Relationship {
		case FactorsRelationship:
			out[AggregatedNodeFactorsFeature] = struct{}{}
			if a.HasDynamicFactors() {
				out[AggregatedNodeDynamicFactorsFeature] = struct{}{}
			}
		case MutualExclusivityRelationship:
			out[MutualExclusivityFeature] = struct{}{}
		}
	}
	if len(n.virtualStorage) > 0 {
		out[VirtualStorageFeature] = struct{}{}
	}
	return out
}
