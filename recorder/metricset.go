// Package recorder implements §4.L: metric-sets (named lists of Metric
// references sampled once per step) and recorders (consumers of one or more
// metric-sets that accumulate per-scenario samples into an optional final
// result keyed by recorder name).
//
// No persistence format is wired here: spec §6 places recorder output
// formats out of scope, and nothing in this package reads or writes outside
// process memory. The one third-party library used is gonum/stat, for
// StatsRecorder's aggregation — see DESIGN.md.
package recorder

import (
	"errors"
	"fmt"

	"github.com/pywr-go/pywr/metric"
)

// Sentinel errors for metric-set and recorder lifecycle failures (§7
// "Recorder errors").
var (
	// ErrDuplicateName is returned when two metric-sets or two recorders in
	// the same Registry share a name.
	ErrDuplicateName = errors.New("recorder: duplicate name")
	// ErrNotFound is returned when a recorder references a metric-set name
	// the Registry does not hold.
	ErrNotFound = errors.New("recorder: not found")
	// ErrNotAggregable is returned by a recorder's Save when asked to
	// aggregate a sample kind it does not support (§7 "aggregation on
	// non-aggregable output").
	ErrNotAggregable = errors.New("recorder: output not aggregable")
)

// MetricSet is a named list of Metric references. Its per-scenario samples
// accumulate in a Series; every scenario gets its own Series instance (§5
// "Metric-set states ... are owned per-scenario").
type MetricSet struct {
	Name    string
	Metrics []metric.Metric
}

// NewMetricSet builds a MetricSet from a name and an ordered list of metrics.
func NewMetricSet(name string, metrics ...metric.Metric) MetricSet {
	return MetricSet{Name: name, Metrics: metrics}
}

// Sample resolves every metric in the set against ctx and appends the
// resulting row to series. A row's length always equals len(ms.Metrics); a
// resolution error aborts the sample and leaves series unmodified, matching
// §7 "parameter/metric errors ... are never silently swallowed".
func (ms MetricSet) Sample(ctx metric.Context, series *Series) error {
	row := make([]float64, len(ms.Metrics))
	for i, m := range ms.Metrics {
		v, err := m.Value(ctx)
		if err != nil {
			return fmt.Errorf("recorder: metric-set %q: %w", ms.Name, err)
		}
		row[i] = v
	}
	series.rows = append(series.rows, row)
	return nil
}

// Series holds one metric-set's accumulated per-step rows for one scenario.
type Series struct {
	rows [][]float64
}

// Len reports the number of steps sampled so far.
func (s *Series) Len() int { return len(s.rows) }

// Row returns the resolved metric values for the step at index i, in the
// metric-set's declared order.
func (s *Series) Row(i int) []float64 { return s.rows[i] }

// Column returns every sampled value for the metric at position col, across
// all steps sampled so far — the shape a recorder typically aggregates over.
func (s *Series) Column(col int) []float64 {
	out := make([]float64, len(s.rows))
	for i, row := range s.rows {
		out[i] = row[col]
	}
	return out
}
