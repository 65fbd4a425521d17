package scheduler

import (
	"github.com/pywr-go/pywr/ids"
	"github.com/pywr-go/pywr/network"
	"github.com/pywr-go/pywr/parameter"
	"github.com/pywr-go/pywr/state"
)

// ParameterState holds the per-scenario internal state every registered
// parameter's Setup call produced, shaped like parameter.Collection's own
// [tier][kind] grid so a ids.ParameterIndex addresses both directly.
type ParameterState struct {
	internal [3][3][]any
}

// NewParameterState calls Setup(scenarioIndex) on every parameter registered
// in net, in collection order.
func NewParameterState(net *network.Network, scenarioIndex int) (*ParameterState, error) {
	ps := &ParameterState{}
	for t := ids.Const; t <= ids.General; t++ {
		for k := ids.F64Kind; k <= ids.MultiKind; k++ {
			params := net.Parameters().Tier(t, k)
			internal := make([]any, len(params))
			for i, p := range params {
				in, err := p.Setup(scenarioIndex)
				if err != nil {
					return nil, err
				}
				internal[i] = in
			}
			ps.internal[t][k] = internal
		}
	}
	return ps, nil
}

func (ps *ParameterState) get(idx ids.ParameterIndex) any {
	return ps.internal[idx.Tier][idx.Kind][idx.Inner]
}

func (ps *ParameterState) set(idx ids.ParameterIndex, v any) {
	ps.internal[idx.Tier][idx.Kind][idx.Inner] = v
}

// parameterCounts computes the state.ParameterCounts shape a ParameterValues
// must be allocated to for net's registered parameters.
func parameterCounts(net *network.Network) state.ParameterCounts {
	var c state.ParameterCounts
	for t := ids.Const; t <= ids.General; t++ {
		for k := ids.F64Kind; k <= ids.MultiKind; k++ {
			c[t][k] = net.Parameters().Count(t, k)
		}
	}
	return c
}

// computeConstParameters evaluates every Const-tier parameter exactly once
// (§3 "Lifecycles": "Constant parameters are evaluated once at scenario
// setup") and commits the result to both the before and after snapshots,
// since a Const parameter's value never changes for the life of the scenario.
func computeConstParameters(net *network.Network, st *state.State, ps *ParameterState) error {
	return computeTier(net, st, ps, ids.Const)
}

// computeSimpleParameters runs compute_simple (§4.J.1 step 1): every Simple
// parameter may read Const and previously-computed Simple values plus its
// own internal state, never node/edge state.
func computeSimpleParameters(net *network.Network, st *state.State, ps *ParameterState) error {
	return computeTier(net, st, ps, ids.Simple)
}

func computeTier(net *network.Network, st *state.State, ps *ParameterState, tier ids.Tier) error {
	for k := ids.F64Kind; k <= ids.MultiKind; k++ {
		params := net.Parameters().Tier(tier, k)
		for i, p := range params {
			idx := ids.ParameterIndex{Tier: tier, Kind: k, Inner: i}
			internal := ps.get(idx)
			v, err := p.Compute(st, internal)
			if err != nil {
				return err
			}
			if err := st.SetParameterValueBefore(idx, v); err != nil {
				return err
			}
			if err := st.CommitParameterAfter(idx); err != nil {
				return err
			}
		}
	}
	return nil
}

// afterSimpleParameters runs after_simple (§4.J.1 step 5): After on every
// Simple-tier parameter, letting it mutate its own internal state for the
// next step. The emitted value was already committed by computeTier.
func afterSimpleParameters(net *network.Network, st *state.State, ps *ParameterState) error {
	for k := ids.F64Kind; k <= ids.MultiKind; k++ {
		params := net.Parameters().Tier(ids.Simple, k)
		for i, p := range params {
			idx := ids.ParameterIndex{Tier: ids.Simple, Kind: k, Inner: i}
			internal := ps.get(idx)
			if err := p.After(st, internal); err != nil {
				return err
			}
			ps.set(idx, internal)
		}
	}
	return nil
}

// generalParameterBefore computes one General parameter's before-phase
// value during the resolve-order walk (§4.J.1 step 2).
func generalParameterBefore(p parameter.Parameter, idx ids.ParameterIndex, st *state.State, ps *ParameterState) error {
	internal := ps.get(idx)
	v, err := p.Compute(st, internal)
	if err != nil {
		return err
	}
	ps.set(idx, internal)
	return st.SetParameterValueBefore(idx, v)
}

// generalParameterAfter runs one General parameter's after-phase hook
// (§4.J.1 step 4) and commits the before snapshot into the after vector.
func generalParameterAfter(p parameter.Parameter, idx ids.ParameterIndex, st *state.State, ps *ParameterState) error {
	internal := ps.get(idx)
	if err := p.After(st, internal); err != nil {
		return err
	}
	ps.set(idx, internal)
	return st.CommitParameterAfter(idx)
}
