package network

import (
	"github.com/pywr-go/pywr/derived"
	"github.com/pywr-go/pywr/ids"
	"github.com/pywr-go/pywr/metric"
)

// proportional clamps (v-min)/(max-min) to [0,1], returning 0 when the
// window has zero width (a fully pinned storage).
func proportional(v, min, max float64) float64 {
	span := max - min
	if span <= 0 {
		return 0
	}
	p := (v - min) / span
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}

// NewNodeProportionalVolume returns a derived metric reporting a Storage
// node's proportional volume: Before reports the volume as it stood at the
// start of the step (prior step's final volume, or InitialVolume on the
// first step); Compute reports the end-of-step volume after solve (the
// solved flows are already integrated into the volume by
// NetworkState.AddFlow), clamped to the volume window as State.Complete
// clamps it (§4.F, §8 "Storage dynamics").
func NewNodeProportionalVolume(node *Node) derived.Metric {
	return derived.Func{
		NameValue: node.FullName() + "/proportional_volume",
		BeforeFn: func(ctx derived.Context) (float64, bool, error) {
			vol, err := ctx.NodeVolume(ids.NodeIndex(node.Index))
			if err != nil {
				return 0, false, err
			}
			minVol, maxVol, err := node.ResolvedVolumeBounds(ctx)
			if err != nil {
				return 0, false, err
			}
			return proportional(vol, minVol, maxVol), true, nil
		},
		ComputeFn: func(ctx derived.Context) (float64, error) {
			vol, err := ctx.NodeVolume(ids.NodeIndex(node.Index))
			if err != nil {
				return 0, err
			}
			minVol, maxVol, err := node.ResolvedVolumeBounds(ctx)
			if err != nil {
				return 0, err
			}
			preview := vol
			if preview < minVol {
				preview = minVol
			}
			if preview > maxVol {
				preview = maxVol
			}
			return proportional(preview, minVol, maxVol), nil
		},
	}
}

// NewAggregatedStorageVolume returns a derived metric reporting an aggregated
// storage node's summed member volume (§3 "Aggregated Storage Node").
func NewAggregatedStorageVolume(group *AggregatedStorageNode, members []*Node) derived.Metric {
	return derived.Func{
		NameValue: group.FullName() + "/aggregated_volume",
		ComputeFn: func(ctx derived.Context) (float64, error) {
			total := 0.0
			for _, m := range members {
				v, err := ctx.NodeVolume(ids.NodeIndex(m.Index))
				if err != nil {
					return 0, err
				}
				total += v
			}
			return total, nil
		},
	}
}

// NewAggregatedStorageProportionalVolume returns a derived metric reporting
// an aggregated storage node's proportional volume relative to the summed
// min/max volume window of its members.
func NewAggregatedStorageProportionalVolume(group *AggregatedStorageNode, members []*Node) derived.Metric {
	return derived.Func{
		NameValue: group.FullName() + "/aggregated_proportional_volume",
		ComputeFn: func(ctx derived.Context) (float64, error) {
			var vol, minVol, maxVol float64
			for _, m := range members {
				v, err := ctx.NodeVolume(ids.NodeIndex(m.Index))
				if err != nil {
					return 0, err
				}
				lo, hi, err := m.ResolvedVolumeBounds(ctx)
				if err != nil {
					return 0, err
				}
				vol += v
				minVol += lo
				maxVol += hi
			}
			return proportional(vol, minVol, maxVol), nil
		},
	}
}

// NewVirtualStorageProportionalVolume returns a derived metric reporting a
// virtual storage account's proportional volume.
func NewVirtualStorageProportionalVolume(vs *VirtualStorage) derived.Metric {
	return derived.Func{
		NameValue: vs.FullName() + "/proportional_volume",
		ComputeFn: func(ctx derived.Context) (float64, error) {
			vol, err := ctx.VirtualStorageVolume(ids.VirtualStorageIndex(vs.Index))
			if err != nil {
				return 0, err
			}
			lo, hi, err := vs.ResolvedVolumeBounds(ctx)
			if err != nil {
				return 0, err
			}
			return proportional(vol, lo, hi), nil
		},
	}
}

// ResolvedVolumeBounds evaluates the node's volume contracts against ctx.
// Exported so State.Complete can also call it while clamping end-of-step
// volumes.
func (n *Node) ResolvedVolumeBounds(ctx metric.Context) (minVol, maxVol float64, err error) {
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
	return minVol, maxVol, nil
}

// ResolvedVolumeBounds evaluates the virtual storage's volume contracts
// against ctx.
func (v *VirtualStorage) ResolvedVolumeBounds(ctx metric.Context) (minVol, maxVol float64, err error) {
	if v.MinVolume != nil {
		if minVol, err = v.MinVolume.Value(ctx); err != nil {
			return 0, 0, err
		}
	}
	if v.MaxVolume != nil {
		if maxVol, err = v.MaxVolume.Value(ctx); err != nil {
			return 0, 0, err
		}
	}
	return minVol, maxVol, nil
}
