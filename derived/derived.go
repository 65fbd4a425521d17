// Package derived defines derived metrics (§3, §4.F): pure functions of
// (network, state) computed after solve and written back into
// State.DerivedMetrics. Some also expose a Before hook that seeds a value on
// the first step from initial volume, or from the volume recorded at the end
// of the previous step.
package derived

import (
	"github.com/pywr-go/pywr/metric"
	"github.com/pywr-go/pywr/timestep"
)

// Context is what a DerivedMetric's Before/Compute is handed: the same
// node/edge/aggregated/parameter read surface General parameters get, plus
// the current step (for rolling quantities that need dt).
type Context interface {
	metric.Context
	Time() timestep.Timestep
}

// Metric is the shared contract every derived metric implements.
type Metric interface {
	Name() string
	// Before runs once per step, before solve. ok=false means "nothing to
	// seed this step" (the scheduler leaves the prior value in place).
	Before(ctx Context) (value float64, ok bool, err error)
	// Compute runs once per step, after solve, and always writes.
	Compute(ctx Context) (float64, error)
}

// Func adapts two plain functions into a Metric, for derived metrics with no
// internal state (the common case).
type Func struct {
	NameValue string
	BeforeFn  func(ctx Context) (float64, bool, error)
	ComputeFn func(ctx Context) (float64, error)
}

func (f Func) Name() string { return f.NameValue }

func (f Func) Before(ctx Context) (float64, bool, error) {
	if f.BeforeFn == nil {
		return 0, false, nil
	}
	return f.BeforeFn(ctx)
}

func (f Func) Compute(ctx Context) (float64, error) { return f.ComputeFn(ctx) }
