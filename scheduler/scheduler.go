// Package scheduler drives one network through a single time-step (§4.J):
// the tiered parameter resolution, the resolve-order walk, the solver call,
// and the end-of-step bookkeeping, for one scenario or fanned out across
// many. package model composes this with the time domain and recorders into
// a full run.
package scheduler

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pywr-go/pywr/network"
	"github.com/pywr-go/pywr/solver"
	"github.com/pywr-go/pywr/timestep"
)

// ErrStepFailed wraps whichever scenario's error caused a parallel step to
// abort (§4.J.3 "a failed scenario surfaces as a StepError that aborts the
// run after completing the ongoing batch").
var ErrStepFailed = errors.New("scheduler: step failed")

// RunSettings configures how a step is scheduled across scenarios.
type RunSettings struct {
	Parallel bool
	Threads  int
	Logger   *slog.Logger // nil disables per-step logging entirely
}

// RunOption configures RunSettings at construction time.
type RunOption func(*RunSettings)

// WithParallel enables a worker pool across scenarios within a step.
func WithParallel(threads int) RunOption {
	return func(s *RunSettings) { s.Parallel = true; s.Threads = threads }
}

// WithLogger attaches a logger that emits one structured line per completed
// step (step index, scenario count, elapsed). A nil RunSettings.Logger (the
// zero value) keeps scheduler silent, matching the teacher pack's own
// no-internal-logging convention everywhere but here.
func WithLogger(l *slog.Logger) RunOption {
	return func(s *RunSettings) { s.Logger = l }
}

// NewRunSettings applies opts over the sequential-by-default zero value.
func NewRunSettings(opts ...RunOption) RunSettings {
	var s RunSettings
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// StepAll runs one step for every scenario, in declaration order if
// settings.Parallel is false, or across a worker pool (capped at
// settings.Threads, 0 meaning no limit) if true. Scenarios never share
// mutable state (§5), so the only synchronization needed is collecting
// timings and errors; either way the returned error is that of the
// lowest-indexed failing scenario.
//
// sample is called once per scenario between after_simple and complete
// (§4.J.1 step 6, "for each MetricSet, sample and accumulate"); recorders
// live in package recorder and are driven by the model layer through this
// hook, not by scheduler itself.
func StepAll(net *network.Network, scenarios []*Scenario, ts timestep.Timestep, settings RunSettings, sample func(*Scenario) error) (solver.Timings, error) {
	start := time.Now()
	var total solver.Timings
	var err error

	if !settings.Parallel {
		for _, sc := range scenarios {
			var t solver.Timings
			t, err = Step(net, sc, ts, sample)
			total.Add(t)
			if err != nil {
				err = fmt.Errorf("%w: scenario %d: %v", ErrStepFailed, sc.Index, err)
				break
			}
		}
	} else {
		var g errgroup.Group
		if settings.Threads > 0 {
			g.SetLimit(settings.Threads)
		}
		timings := make([]solver.Timings, len(scenarios))
		errs := make([]error, len(scenarios))
		for i, sc := range scenarios {
			i, sc := i, sc
			g.Go(func() error {
				t, stepErr := Step(net, sc, ts, sample)
				timings[i] = t
				if stepErr != nil {
					errs[i] = fmt.Errorf("%w: scenario %d: %v", ErrStepFailed, sc.Index, stepErr)
					return errs[i]
				}
				return nil
			})
		}
		err = g.Wait()
		for _, e := range errs {
			if e != nil {
				err = e
				break
			}
		}
		for _, t := range timings {
			total.Add(t)
		}
	}

	logStep(settings.Logger, ts, len(scenarios), time.Since(start), err)
	return total, err
}

func logStep(logger *slog.Logger, ts timestep.Timestep, scenarioCount int, elapsed time.Duration, err error) {
	if logger == nil {
		return
	}
	args := []any{"index", ts.Index, "scenarios", scenarioCount, "elapsed", elapsed}
	if err != nil {
		logger.Error("step failed", append(args, "error", err)...)
		return
	}
	logger.Info("step complete", args...)
}
