package state

// NodeState holds a node's per-step flow accumulators and, for Storage
// nodes, its running volume. Flow-node volume is always zero and ignored.
type NodeState struct {
	InFlow  float64
	OutFlow float64
	Volume  float64
}

func (s *NodeState) reset() {
	s.InFlow = 0
	s.OutFlow = 0
}

func (s *NodeState) addInFlow(flow, dt float64, isStorage bool) {
	s.InFlow += flow
	if isStorage {
		s.Volume += flow * dt
	}
}

func (s *NodeState) addOutFlow(flow, dt float64, isStorage bool) {
	s.OutFlow += flow
	if isStorage {
		s.Volume -= flow * dt
	}
}

// EdgeState holds an edge's per-step flow.
type EdgeState struct {
	Flow float64
}

func (s *EdgeState) reset() { s.Flow = 0 }
