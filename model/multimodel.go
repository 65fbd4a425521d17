package model

import (
	"errors"
	"fmt"

	"github.com/pywr-go/pywr/ids"
	"github.com/pywr-go/pywr/metric"
	"github.com/pywr-go/pywr/network"
	"github.com/pywr-go/pywr/recorder"
	"github.com/pywr-go/pywr/scenario"
	"github.com/pywr-go/pywr/scheduler"
	"github.com/pywr-go/pywr/solver"
	"github.com/pywr-go/pywr/timestep"
)

// Sentinel errors for MultiModel construction (§4.K "Invariant: network
// names unique; transfer source index != receiver index").
var (
	ErrDuplicateNetworkName  = errors.New("model: duplicate network name")
	ErrTransferSourceIsSelf  = errors.New("model: transfer source index equals receiver index")
	ErrTransferSourceInvalid = errors.New("model: transfer source index out of range")
)

// Transfer reads a Metric from another network in the same MultiModel and
// deposits it into this network's state under an inter-network value index
// (§4.K, §6 "Inter-network transfer"). Source is the position of the
// supplying network within MultiModel.Networks, not its own position.
type Transfer struct {
	Name    string
	Source  int
	Metric  metric.Metric
	Initial *float64 // if set, supplies this value on the domain's first step
}

// NetworkEntry is one named network participating in a MultiModel, with its
// own solver setup, recorders, and declared inbound transfers.
type NetworkEntry struct {
	Name           string
	Network        *network.Network
	Setup          solver.Setup
	SolverSettings solver.Settings
	Recorders      *recorder.Registry
	Transfers      []Transfer
}

// MultiModel coordinates several named networks sharing one time/scenario
// domain, evaluating each network's inbound transfers before stepping it
// (§4.K). Networks are visited in declaration order every step; a transfer
// whose source comes earlier in that order reads the source's
// already-solved value for the current step ("before" semantics in source
// terms, i.e. the source is after in model terms since k' < k); a transfer
// whose source comes later reads the value the source held after the
// *previous* step, since that network has not yet been stepped this round —
// this produces the "true cycles resolved with one step of lag" behavior
// §4.K describes, with no extra bookkeeping: a State object simply always
// holds "whatever the last Step call left it with" until it is stepped again.
type MultiModel struct {
	Networks  []NetworkEntry
	Times     *timestep.Domain
	Scenarios *scenario.Domain
	Settings  scheduler.RunSettings
}

// NewMultiModel validates names and transfer source indices and returns a
// MultiModel ready to Run.
func NewMultiModel(times *timestep.Domain, scenarios *scenario.Domain, settings scheduler.RunSettings, entries ...NetworkEntry) (*MultiModel, error) {
	seen := make(map[string]struct{}, len(entries))
	for i, e := range entries {
		if _, dup := seen[e.Name]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateNetworkName, e.Name)
		}
		seen[e.Name] = struct{}{}
		for _, tr := range e.Transfers {
			if tr.Source == i {
				return nil, fmt.Errorf("%w: network %q transfer %q", ErrTransferSourceIsSelf, e.Name, tr.Name)
			}
			if tr.Source < 0 || tr.Source >= len(entries) {
				return nil, fmt.Errorf("%w: network %q transfer %q source %d", ErrTransferSourceInvalid, e.Name, tr.Name, tr.Source)
			}
		}
	}
	return &MultiModel{Networks: entries, Times: times, Scenarios: scenarios, Settings: settings}, nil
}

// Run drives every network through the full time domain and returns each
// network's recorder results, keyed by network name.
func (mm *MultiModel) Run() (map[string]Results, error) {
	state, err := mm.newMultiRunState()
	if err != nil {
		return nil, err
	}
	for i := 0; i < mm.Times.Len(); i++ {
		if err := state.step(); err != nil {
			return nil, err
		}
	}
	return state.finalise()
}

type multiRunState struct {
	mm            *MultiModel
	scenarioCount int
	scenarios     [][]*scheduler.Scenario    // [network][scenario]
	sinks         [][]*recorder.ScenarioSink // [network][scenario]
	nextIndex     int
}

func (mm *MultiModel) newMultiRunState() (*multiRunState, error) {
	scenarios := mm.Scenarios
	if scenarios == nil {
		var err error
		scenarios, err = scenario.NewDomain()
		if err != nil {
			return nil, err
		}
	}
	n := scenarios.Len()
	sc := make([][]*scheduler.Scenario, len(mm.Networks))
	sinks := make([][]*recorder.ScenarioSink, len(mm.Networks))
	for k, entry := range mm.Networks {
		sc[k] = make([]*scheduler.Scenario, n)
		sinks[k] = make([]*recorder.ScenarioSink, n)
		recorders := entry.Recorders
		if recorders == nil {
			recorders = recorder.NewRegistry()
		}
		for s := 0; s < n; s++ {
			one, err := scheduler.NewScenarioWithTransfers(entry.Network, s, entry.Setup, entry.SolverSettings, len(entry.Transfers))
			if err != nil {
				return nil, fmt.Errorf("model: network %q scenario %d setup: %w", entry.Name, s, err)
			}
			sc[k][s] = one
			sink, err := recorder.NewScenarioSink(recorders, s)
			if err != nil {
				return nil, fmt.Errorf("model: network %q scenario %d recorder setup: %w", entry.Name, s, err)
			}
			sinks[k][s] = sink
		}
	}
	return &multiRunState{mm: mm, scenarioCount: n, scenarios: sc, sinks: sinks}, nil
}

func (rs *multiRunState) step() error {
	ts, ok := rs.mm.Times.At(rs.nextIndex)
	if !ok {
		return ErrStepPastEnd
	}
	for k, entry := range rs.mm.Networks {
		for s := 0; s < rs.scenarioCount; s++ {
			receiver := rs.scenarios[k][s].State
			for ti, tr := range entry.Transfers {
				v, err := rs.transferValue(tr, s, ts)
				if err != nil {
					return fmt.Errorf("model: network %q transfer %q: %w", entry.Name, tr.Name, err)
				}
				if err := receiver.SetInterNetworkValue(ids.InterNetworkIndex(ti), v); err != nil {
					return fmt.Errorf("model: network %q transfer %q: %w", entry.Name, tr.Name, err)
				}
			}
		}
		sinks := rs.sinks[k]
		_, err := scheduler.StepAll(entry.Network, rs.scenarios[k], ts, rs.mm.Settings, func(sc *scheduler.Scenario) error {
			return sinks[sc.Index].Sample(sc.State)
		})
		if err != nil {
			return fmt.Errorf("model: network %q: %w", entry.Name, err)
		}
	}
	rs.nextIndex++
	return nil
}

func (rs *multiRunState) transferValue(tr Transfer, scenarioIndex int, ts timestep.Timestep) (float64, error) {
	if ts.IsFirst() && tr.Initial != nil {
		return *tr.Initial, nil
	}
	source := rs.scenarios[tr.Source][scenarioIndex].State
	return tr.Metric.Value(source)
}

func (rs *multiRunState) finalise() (map[string]Results, error) {
	out := make(map[string]Results, len(rs.mm.Networks))
	for k, entry := range rs.mm.Networks {
		results := make(Results, rs.scenarioCount)
		for s, sink := range rs.sinks[k] {
			r, err := sink.Finalise()
			if err != nil {
				return nil, fmt.Errorf("model: network %q scenario %d finalise: %w", entry.Name, s, err)
			}
			results[s] = r
		}
		out[entry.Name] = results
	}
	return out, nil
}
