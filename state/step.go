package state

import (
	"fmt"

	"github.com/pywr-go/pywr/ids"
	"github.com/pywr-go/pywr/network"
	"github.com/pywr-go/pywr/timestep"
)

// BeforeStep runs the before-phase node/virtual-storage hooks (§4.J.1 step 2
// "Node/VirtualStorage: call before(...)"): seeds Storage node initial
// volumes on the first step, and evaluates each virtual storage's reset
// policy plus its rolling-history credit (§4.E).
func (s *State) BeforeStep(ts timestep.Timestep) error {
	s.SetTimestep(ts)

	if ts.IsFirst() {
		for _, n := range s.net.Nodes() {
			if n.Kind != network.Storage {
				continue
			}
			if err := s.seedInitialVolume(n); err != nil {
				return err
			}
		}
	}

	for _, vs := range s.net.VirtualStorages() {
		if err := s.beforeVirtualStorage(vs, ts); err != nil {
			return err
		}
	}
	return nil
}

func (s *State) seedInitialVolume(n *network.Node) error {
	_, maxVol, err := n.ResolvedVolumeBounds(s)
	if err != nil {
		return fmt.Errorf("node %s: %w", n.FullName(), err)
	}
	return s.flows.SetNodeVolume(ids.NodeIndex(n.Index), n.ResolveInitialVolume(maxVol))
}

func (s *State) beforeVirtualStorage(vs *network.VirtualStorage, ts timestep.Timestep) error {
	idx := ids.VirtualStorageIndex(vs.Index)
	vstate, err := s.flows.VirtualStorage(idx)
	if err != nil {
		return err
	}

	if s.virtualStorageShouldReset(vs, vstate, ts) {
		_, maxVol, err := vs.ResolvedVolumeBounds(s)
		if err != nil {
			return fmt.Errorf("virtual storage %s: %w", vs.FullName(), err)
		}
		vstate.resetVolume(vs.ResolveInitialVolume(maxVol), ts)
		vstate.resetHistory()
	}

	vstate.creditHistory(ts.DurationDays)
	return nil
}

func (s *State) virtualStorageShouldReset(vs *network.VirtualStorage, vstate *VirtualStorageState, ts timestep.Timestep) bool {
	if ts.IsFirst() {
		return true
	}
	if vstate.LastReset == nil {
		return vs.Reset.Kind != network.Never
	}
	day, month := ts.Date.Day(), int(ts.Date.Month())
	monthsSince := monthsBetween(*vstate.LastReset, ts)
	return vs.Reset.ShouldReset(false, day, month, monthsSince)
}

func monthsBetween(from, to timestep.Timestep) int {
	y1, m1, _ := from.Date.Date()
	y2, m2, _ := to.Date.Date()
	return (y2-y1)*12 + int(m2-m1)
}

// Complete runs the end-of-step bookkeeping spec §4.G assigns to
// State.complete: clamp storage volumes to [min, max], draw each virtual
// storage account from its member-node flows, then clamp virtual-storage
// volumes too.
func (s *State) Complete(ts timestep.Timestep) error {
	for _, n := range s.net.Nodes() {
		if n.Kind != network.Storage {
			continue
		}
		if err := s.clampNodeVolume(n); err != nil {
			return err
		}
	}

	for _, vs := range s.net.VirtualStorages() {
		if err := s.applyVirtualStorageDraw(vs, ts.DurationDays); err != nil {
			return err
		}
		if err := s.clampVirtualStorageVolume(vs); err != nil {
			return err
		}
	}
	return nil
}

func (s *State) clampNodeVolume(n *network.Node) error {
	idx := ids.NodeIndex(n.Index)
	vol, err := s.flows.NodeVolume(idx)
	if err != nil {
		return err
	}
	minVol, maxVol, err := n.ResolvedVolumeBounds(s)
	if err != nil {
		return err
	}
	return s.flows.SetNodeVolume(idx, clamp(vol, minVol, maxVol))
}

// applyVirtualStorageDraw sums each member node's factor-weighted flow (an
// Input's outflow is what it contributes to the network; every other kind's
// inflow is) and debits the account by that total, pushing it onto the
// rolling history in the same motion (§4.E).
func (s *State) applyVirtualStorageDraw(vs *network.VirtualStorage, dt float64) error {
	total := 0.0
	for _, m := range vs.Members {
		node, err := s.net.Node(ids.NodeIndex(m.Node))
		if err != nil {
			return err
		}
		var flow float64
		if node.Kind == network.Input {
			flow, err = s.flows.NodeOutflow(ids.NodeIndex(m.Node))
		} else {
			flow, err = s.flows.NodeInflow(ids.NodeIndex(m.Node))
		}
		if err != nil {
			return err
		}
		total += m.Factor * flow
	}

	vstate, err := s.flows.VirtualStorage(ids.VirtualStorageIndex(vs.Index))
	if err != nil {
		return err
	}
	vstate.addOutFlow(total, dt)
	return nil
}

func (s *State) clampVirtualStorageVolume(vs *network.VirtualStorage) error {
	idx := ids.VirtualStorageIndex(vs.Index)
	vol, err := s.flows.VirtualStorageVolume(idx)
	if err != nil {
		return err
	}
	minVol, maxVol, err := vs.ResolvedVolumeBounds(s)
	if err != nil {
		return err
	}
	return s.flows.SetVirtualStorageVolume(idx, clamp(vol, minVol, maxVol))
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
