package network

import "github.com/pywr-go/pywr/metric"

// RelationshipKind distinguishes an AggregatedNode's optional relationship.
type RelationshipKind int

const (
	// NoRelationship means the group only contributes an aggregated bound row.
	NoRelationship RelationshipKind = iota
	// FactorsRelationship enforces proportional sharing between members (§3,§4.E).
	FactorsRelationship
	// MutualExclusivityRelationship enforces an active-member-count window (§3,§4.E).
	MutualExclusivityRelationship
)

// Factor pairs a member node with its (possibly parameter-driven) share.
// Factors are compared pairwise against Members[0]: flow(j) == (f_j/f_0)*flow(0).
type Factor struct {
	Value metric.Metric
}

// IsConstant reports whether f is a plain metric.Constant, which determines
// whether the LP builder adds its ratio row as fixed or variable (§4.E).
func (f Factor) IsConstant() bool {
	_, ok := f.Value.(metric.Constant)
	return ok
}

// AggregatedNode groups node indices under an optional relationship.
type AggregatedNode struct {
	Index   int // ids.AggregatedNodeIndex
	Name    string
	SubName string
	Members []int // ids.NodeIndex

	Relationship RelationshipKind
	Factors      []Factor // len == len(Members) when Relationship == FactorsRelationship
	MinActive    int      // when Relationship == MutualExclusivityRelationship
	MaxActive    int

	// Aggregated bound contracts, independent of Relationship.
	MinFlow metric.Metric
	MaxFlow metric.Metric
}

// FullName renders "Name" or "Name/SubName".
func (a *AggregatedNode) FullName() string {
	if a.SubName == "" {
		return a.Name
	}
	return a.Name + "/" + a.SubName
}

// HasDynamicFactors reports whether any factor is non-constant, which marks
// the LP builder's ratio rows as variable (§4.E, §4.H.5 AggregatedNodeDynamicFactors).
func (a *AggregatedNode) HasDynamicFactors() bool {
	for _, f := range a.Factors {
		if !f.IsConstant() {
			return true
		}
	}
	return false
}

// AggregatedStorageNode groups storage node indices whose aggregate volume is
// reported as a single derived metric (§3).
type AggregatedStorageNode struct {
	Index   int // ids.AggregatedStorageNodeIndex
	Name    string
	SubName string
	Members []int // ids.NodeIndex, must all name Storage nodes
}

// FullName renders "Name" or "Name/SubName".
func (a *AggregatedStorageNode) FullName() string {
	if a.SubName == "" {
		return a.Name
	}
	return a.Name + "/" + a.SubName
}
