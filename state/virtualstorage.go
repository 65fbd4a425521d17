package state

import "github.com/pywr-go/pywr/timestep"

// virtualStorageHistory is a fixed-size FIFO of past outflows, consumed on
// the before-phase of each step to credit the oldest entry back into the
// account's volume (§4.E "Virtual storage" rolling window).
type virtualStorageHistory struct {
	flows []float64
	size  int
}

func newVirtualStorageHistory(size int, initial float64) *virtualStorageHistory {
	if size <= 0 {
		return nil
	}
	flows := make([]float64, size)
	for i := range flows {
		flows[i] = initial
	}
	return &virtualStorageHistory{flows: flows, size: size}
}

func (h *virtualStorageHistory) reset(initial float64) {
	for i := range h.flows {
		h.flows[i] = initial
	}
}

func (h *virtualStorageHistory) push(flow float64) {
	h.flows = append(h.flows, flow)
	if len(h.flows) > h.size {
		h.flows = h.flows[1:]
	}
}

// pop removes and returns the oldest entry once the history is at capacity;
// it returns ok=false while the window is still filling.
func (h *virtualStorageHistory) pop() (float64, bool) {
	if len(h.flows) < h.size {
		return 0, false
	}
	oldest := h.flows[0]
	h.flows = h.flows[1:]
	return oldest, true
}

// VirtualStorageState is a virtual storage account's running volume plus
// optional rolling outflow history and last-reset bookkeeping.
type VirtualStorageState struct {
	Volume    float64
	InFlow    float64
	OutFlow   float64
	LastReset *timestep.Timestep
	history   *virtualStorageHistory
}

// NewVirtualStorageState returns a state seeded at initialVolume, with a
// rolling history of historySize entries if historySize > 0.
func NewVirtualStorageState(initialVolume float64, historySize int) VirtualStorageState {
	return VirtualStorageState{
		Volume:  initialVolume,
		history: newVirtualStorageHistory(historySize, 0),
	}
}

func (s *VirtualStorageState) reset() {
	s.InFlow = 0
	s.OutFlow = 0
}

func (s *VirtualStorageState) resetVolume(volume float64, ts timestep.Timestep) {
	s.Volume = volume
	t := ts
	s.LastReset = &t
}

func (s *VirtualStorageState) resetHistory() {
	if s.history != nil {
		s.history.reset(0)
	}
}

// creditHistory pops the oldest flow (once the window is full) and adds it
// back into the volume, implementing the rolling-window credit (§4.E).
func (s *VirtualStorageState) creditHistory(dt float64) {
	if s.history == nil {
		return
	}
	if oldest, ok := s.history.pop(); ok {
		s.Volume += oldest * dt
	}
}

func (s *VirtualStorageState) addOutFlow(flow, dt float64) {
	s.OutFlow += flow
	s.Volume -= flow * dt
	if s.history != nil {
		s.history.push(flow)
	}
}
