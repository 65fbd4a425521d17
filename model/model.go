// Package model composes a Network with its shared time/scenario Domain and
// a recorder registry into the run loop §6 calls "Model::run" — and, one
// level up, several named networks into the multi-network coordinator of
// §4.K. Everything below this layer (scheduler, lp, solver, state) is
// reusable without it; model is purely the outermost driving loop.
package model

import (
	"errors"
	"fmt"

	"github.com/pywr-go/pywr/network"
	"github.com/pywr-go/pywr/recorder"
	"github.com/pywr-go/pywr/scenario"
	"github.com/pywr-go/pywr/scheduler"
	"github.com/pywr-go/pywr/solver"
	"github.com/pywr-go/pywr/timestep"
)

// ErrStepPastEnd indicates RunWithState was advanced past the end of its
// time domain (§7 "Scheduling errors: step-past-end-of-timesteps").
var ErrStepPastEnd = errors.New("model: step past end of time domain")

// Model owns one Network and the shared time/scenario Domain driving it
// (§3 "Model owns a Network and the shared Domain"). Run executes every
// time-step of Times across every scenario of Scenarios, sampling Recorders
// after each step; RunWithState exposes the same loop one step at a time for
// resumable or embedded drivers (§6 "Model run API").
type Model struct {
	Network   *network.Network
	Times     *timestep.Domain
	Scenarios *scenario.Domain
	Recorders *recorder.Registry
	Settings  scheduler.RunSettings
}

// New builds a Model. A nil Recorders is treated as an empty registry.
func New(net *network.Network, times *timestep.Domain, scenarios *scenario.Domain, recorders *recorder.Registry, settings scheduler.RunSettings) *Model {
	if recorders == nil {
		recorders = recorder.NewRegistry()
	}
	return &Model{Network: net, Times: times, Scenarios: scenarios, Recorders: recorders, Settings: settings}
}

// Results is the name-keyed payload Run returns, gathered from every
// scenario's Finalise call (§4.L, §6 "Optional result payload keyed by
// recorder name"), indexed by scenario simulation id.
type Results map[int]map[string]any

// Run drives the full time domain across every scenario, solving with the
// solver setup returns, and returns the recorders' finalised results. It
// returns the first error encountered, in deterministic per-scenario order
// within the step that failed (§7 "run returns the first error encountered
// in deterministic per-scenario order").
func (m *Model) Run(setup solver.Setup, solverSettings solver.Settings) (Results, error) {
	rs, err := m.newRunState(setup, solverSettings)
	if err != nil {
		return nil, err
	}
	for i := 0; i < m.Times.Len(); i++ {
		if err := rs.step(); err != nil {
			return nil, err
		}
	}
	return rs.finalise()
}

// RunState holds everything RunWithState needs to advance one time-step at a
// time: every scenario's Scenario and ScenarioSink, plus the next step index
// to take. It is the resumable counterpart to Run's all-at-once loop.
type RunState struct {
	model     *Model
	scenarios []*scheduler.Scenario
	sinks     []*recorder.ScenarioSink
	nextIndex int
}

// RunWithState builds a RunState without stepping it, for callers that want
// to drive the time domain one step at a time (§6 "also a run_with_state for
// resumable/embedded drivers").
func (m *Model) RunWithState(setup solver.Setup, solverSettings solver.Settings) (*RunState, error) {
	return m.newRunState(setup, solverSettings)
}

func (m *Model) newRunState(setup solver.Setup, solverSettings solver.Settings) (*RunState, error) {
	scenarios := m.Scenarios
	if scenarios == nil {
		var err error
		scenarios, err = scenario.NewDomain()
		if err != nil {
			return nil, err
		}
	}
	n := scenarios.Len()
	sc := make([]*scheduler.Scenario, n)
	sinks := make([]*recorder.ScenarioSink, n)
	for i := 0; i < n; i++ {
		one, err := scheduler.NewScenario(m.Network, i, setup, solverSettings)
		if err != nil {
			return nil, fmt.Errorf("model: scenario %d setup: %w", i, err)
		}
		sc[i] = one
		sink, err := recorder.NewScenarioSink(m.Recorders, i)
		if err != nil {
			return nil, fmt.Errorf("model: scenario %d recorder setup: %w", i, err)
		}
		sinks[i] = sink
	}
	return &RunState{model: m, scenarios: sc, sinks: sinks}, nil
}

// Done reports whether every step of the time domain has been taken.
func (rs *RunState) Done() bool { return rs.nextIndex >= rs.model.Times.Len() }

// Step advances every scenario through the next time-step (§4.J.3's
// "StepAll" fan-out), sampling recorders via each scenario's ScenarioSink.
// It returns ErrStepPastEnd once Done reports true.
func (rs *RunState) Step() error {
	if rs.Done() {
		return ErrStepPastEnd
	}
	return rs.step()
}

func (rs *RunState) step() error {
	ts, ok := rs.model.Times.At(rs.nextIndex)
	if !ok {
		return ErrStepPastEnd
	}
	_, err := scheduler.StepAll(rs.model.Network, rs.scenarios, ts, rs.model.Settings, func(sc *scheduler.Scenario) error {
		return rs.sinks[sc.Index].Sample(sc.State)
	})
	if err != nil {
		return err
	}
	rs.nextIndex++
	return nil
}

// Finalise calls Finalise on every scenario's recorders and collects the
// results, keyed by scenario simulation id. Callers driving RunWithState
// directly call this once Done reports true.
func (rs *RunState) Finalise() (Results, error) {
	return rs.finalise()
}

func (rs *RunState) finalise() (Results, error) {
	results := make(Results, len(rs.sinks))
	for i, sink := range rs.sinks {
		r, err := sink.Finalise()
		if err != nil {
			return nil, fmt.Errorf("model: scenario %d finalise: %w", i, err)
		}
		results[i] = r
	}
	return results, nil
}
