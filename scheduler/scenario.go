package scheduler

import (
	"github.com/pywr-go/pywr/lp"
	"github.com/pywr-go/pywr/network"
	"github.com/pywr-go/pywr/solver"
	"github.com/pywr-go/pywr/state"
)

// Scenario bundles one scenario's LP problem, solver instance, mutable
// state, and parameter internal-state store. Scenarios never share mutable
// state with one another (§5); each is exclusively owned by whichever
// goroutine is stepping it.
type Scenario struct {
	Index   int
	State   *state.State
	Problem *lp.Problem
	Solver  solver.Solver
	Params  *ParameterState
}

// NewScenario builds a Scenario for net at scenarioIndex: an LP problem, a
// solver instance via setup (which validates net's required features), a
// State sized to net's registered parameters/derived metrics/virtual
// storage, and a ParameterState with every parameter's Setup already run.
// Const-tier parameters are evaluated immediately, per §3 "Lifecycles".
func NewScenario(net *network.Network, scenarioIndex int, setup solver.Setup, settings solver.Settings) (*Scenario, error) {
	return newScenario(net, scenarioIndex, setup, settings, 0)
}

// NewScenarioWithTransfers is NewScenario plus numTransfers inter-network
// value slots, for a network that participates in a MultiModel coordinator
// (§4.K) and therefore needs somewhere to receive transferred metric values.
func NewScenarioWithTransfers(net *network.Network, scenarioIndex int, setup solver.Setup, settings solver.Settings, numTransfers int) (*Scenario, error) {
	return newScenario(net, scenarioIndex, setup, settings, numTransfers)
}

func newScenario(net *network.Network, scenarioIndex int, setup solver.Setup, settings solver.Settings, numTransfers int) (*Scenario, error) {
	problem, err := lp.Build(net)
	if err != nil {
		return nil, err
	}

	slv, err := setup(net, problem, settings)
	if err != nil {
		return nil, err
	}

	vsStates := make([]state.VirtualStorageState, net.NumVirtualStorage())
	for i, vs := range net.VirtualStorages() {
		vsStates[i] = state.NewVirtualStorageState(0, vs.HistorySize)
	}

	st := state.NewBuilder(net, scenarioIndex).
		WithParameterCounts(parameterCounts(net)).
		WithVirtualStorageStates(vsStates).
		WithDerivedMetricCount(net.NumDerivedMetrics()).
		WithInterNetworkValueCount(numTransfers).
		Build()

	params, err := NewParameterState(net, scenarioIndex)
	if err != nil {
		return nil, err
	}

	if err := computeConstParameters(net, st, params); err != nil {
		return nil, err
	}

	return &Scenario{Index: scenarioIndex, State: st, Problem: problem, Solver: slv, Params: params}, nil
}
