package network

import "github.com/pywr-go/pywr/metric"

// Node is a participant in the network: Input, Output, Link, or Storage.
// The (Name, SubName) pair is unique across all nodes of any kind (§3
// Invariant). Incoming/Outgoing hold edge indices in insertion order.
type Node struct {
	Index   int // ids.NodeIndex, stored as int to avoid an import of ids in hot paths; converted at the API boundary
	Name    string
	SubName string
	Kind    Kind

	Incoming []int // ids.EdgeIndex values
	Outgoing []int

	// Flow contracts (Input, Output, Link). Nil means "use the FMIN/FMAX default".
	MinFlow metric.Metric
	MaxFlow metric.Metric
	Cost    metric.Metric

	// Storage-only contracts.
	MinVolume     metric.Metric
	MaxVolume     metric.Metric
	InitialVolume VolumeAssignment
}

// FullName renders "Name" or "Name/SubName" for error messages and recorder labels.
func (n *Node) FullName() string {
	if n.SubName == "" {
		return n.Name
	}
	return n.Name + "/" + n.SubName
}

// IsFlowNode reports whether n carries flow bounds (Input, Output, Link).
func (n *Node) IsFlowNode() bool { return n.Kind != Storage }

// CurrentFlowBounds evaluates MinFlow/MaxFlow against ctx, defaulting to
// [FMIN, FMAX] (see lp.FMIN/lp.FMAX) when unset. Storage nodes have no flow
// bounds of their own; callers must use CurrentVolumeBounds instead.
func (n *Node) CurrentFlowBounds(ctx metric.Context, fmin, fmax float64) (lb, ub float64, err error) {
	lb, ub = fmin, fmax
	if n.MinFlow != nil {
		if lb, err = n.MinFlow.Value(ctx); err != nil {
			return 0, 0, err
		}
	}
	if n.MaxFlow != nil {
		if ub, err = n.MaxFlow.Value(ctx); err != nil {
			return 0, 0, err
		}
	}
	return lb, ub, nil
}

// CurrentVolumeBounds converts a Storage node's [MinVolume, MaxVolume] window
// at the current volume `vol` into a per-step flow bound
// (-available/dt, missing/dt), per spec §4.H.2 "Node bound" row kind.
func (n *Node) CurrentVolumeBounds(ctx metric.Context, vol, dt float64) (lb, ub float64, err error) {
	minVol, maxVol := 0.0, 0.0
	if n.MinVolume != nil {
		if minVol, err = n.MinVolume.Value(ctx); err != nil {
			return 0, 0, err
		}
	}
	if n.MaxVolume != nil {
		if maxVol, err = n.MaxVolume.Value(ctx); err != nil {
			return 0, 0, err
		}
	}
	available := vol - minVol
	missing := maxVol - vol
	return -available / dt, missing / dt, nil
}

// CurrentCost evaluates the node's Cost contract against ctx, defaulting to 0.
func (n *Node) CurrentCost(ctx metric.Context) (float64, error) {
	if n.Cost == nil {
		return 0, nil
	}
	return n.Cost.Value(ctx)
}

// ResolveInitialVolume evaluates the node's InitialVolume against its
// MaxVolume (for proportional assignments), given the max volume already
// resolved at ctx.
func (n *Node) ResolveInitialVolume(maxVol float64) float64 {
	if n.InitialVolume.Proportional {
		return n.InitialVolume.Value * maxVol
	}
	return n.InitialVolume.Value
}
