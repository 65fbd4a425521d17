package recorder

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// MemoryRecorder retains every sampled row of one metric-set for the life of
// the run — the simplest possible recorder, useful for tests and for callers
// that want the raw per-step series rather than an aggregate. Finalise
// returns a [][]float64.
type MemoryRecorder struct {
	name      string
	metricSet string
	rows      [][]float64
}

// NewMemoryRecorder returns a Factory building a recorder that retains every
// row sampled from the named metric-set, for one scenario.
func NewMemoryRecorder(name, metricSet string) Factory {
	return func() Recorder {
		return &MemoryRecorder{name: name, metricSet: metricSet}
	}
}

func (r *MemoryRecorder) Name() string { return r.name }

func (r *MemoryRecorder) Setup(int) error { return nil }

func (r *MemoryRecorder) Save(_ int, sets map[string]*Series) error {
	series, ok := sets[r.metricSet]
	if !ok {
		return fmt.Errorf("%w: metric-set %q", ErrNotFound, r.metricSet)
	}
	if series.Len() == 0 {
		return nil
	}
	latest := series.Row(series.Len() - 1)
	row := make([]float64, len(latest))
	copy(row, latest)
	r.rows = append(r.rows, row)
	return nil
}

func (r *MemoryRecorder) Finalise() (any, error) {
	return r.rows, nil
}

// StatsRecorder aggregates one column of one metric-set's series into a
// mean/standard-deviation/min/max summary (§4.L "emits ... a final
// aggregated result"). It is grounded on the mean/std-dev reduction pattern
// used over an advantage buffer in the teacher pack's reinforcement learning
// agents (vanillapg/gae), generalized from a single flat buffer to one
// column of a time series.
type StatsRecorder struct {
	name      string
	metricSet string
	column    int
	summary   Stats
}

// Stats is the aggregate StatsRecorder.Finalise reports.
type Stats struct {
	Mean   float64
	StdDev float64
	Min    float64
	Max    float64
	N      int
}

// NewStatsRecorder returns a Factory building a recorder that aggregates the
// metric at position column within the named metric-set, for one scenario.
func NewStatsRecorder(name, metricSet string, column int) Factory {
	return func() Recorder {
		return &StatsRecorder{name: name, metricSet: metricSet, column: column}
	}
}

func (r *StatsRecorder) Name() string { return r.name }

func (r *StatsRecorder) Setup(int) error { return nil }

// Save recomputes the aggregate from the full column seen so far. A run's
// per-scenario series is small enough (one row per time-step actually
// taken) that recomputing from scratch is never the cost bottleneck next to
// a solve, and it avoids a second, divergent implementation of the same
// statistics via running moments.
func (r *StatsRecorder) Save(_ int, sets map[string]*Series) error {
	series, ok := sets[r.metricSet]
	if !ok {
		return fmt.Errorf("%w: metric-set %q", ErrNotFound, r.metricSet)
	}
	if r.column < 0 || series.Len() == 0 {
		return nil
	}
	col := series.Column(r.column)
	for _, v := range col {
		if math.IsNaN(v) {
			return fmt.Errorf("%w: recorder %q sampled NaN", ErrNotAggregable, r.name)
		}
	}
	min, max := col[0], col[0]
	for _, v := range col[1:] {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	r.summary = Stats{
		Mean:   stat.Mean(col, nil),
		StdDev: stat.StdDev(col, nil),
		Min:    min,
		Max:    max,
		N:      len(col),
	}
	return nil
}

func (r *StatsRecorder) Finalise() (any, error) {
	return r.summary, nil
}
