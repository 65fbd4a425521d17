package recorder

import "github.com/pywr-go/pywr/metric"

// Recorder consumes one or more metric-sets for a single scenario and emits
// either per-step samples or a final aggregated result (§4.L). Setup runs
// once before the run starts; Save runs once per step, after the metric-sets
// it depends on have been sampled; Finalise runs once at the end of the run
// and may return a boxed result.
type Recorder interface {
	Name() string
	Setup(scenarioIndex int) error
	Save(scenarioIndex int, sets map[string]*Series) error
	Finalise() (any, error)
}

// Factory builds a fresh Recorder instance. The Registry holds factories,
// not instances, so that every scenario's ScenarioSink gets its own
// Recorder with no state shared across scenarios — the same factory-function
// shape solver.Setup uses to build one solver instance per scenario. This is
// what satisfies §5 "recorder save may be called concurrently for different
// scenarios; recorders must guarantee their own per-scenario isolation"
// without requiring every concrete Recorder to manage its own locking.
type Factory func() Recorder

// Registry holds the metric-sets and recorder factories declared for a run,
// in declaration order (§4.J.3 "recorders are called in declaration order").
type Registry struct {
	sets          []MetricSet
	setByName     map[string]int
	factories     []Factory
	recorderNames []string
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{setByName: make(map[string]int)}
}

// AddMetricSet registers a metric-set, rejecting a duplicate name.
func (r *Registry) AddMetricSet(ms MetricSet) error {
	if _, ok := r.setByName[ms.Name]; ok {
		return ErrDuplicateName
	}
	r.setByName[ms.Name] = len(r.sets)
	r.sets = append(r.sets, ms)
	return nil
}

// AddRecorder registers a recorder factory, rejecting a name already used by
// another registered recorder. The factory is invoked once here, to read the
// name, and the probe instance is then discarded.
func (r *Registry) AddRecorder(factory Factory) error {
	name := factory().Name()
	for _, existing := range r.recorderNames {
		if existing == name {
			return ErrDuplicateName
		}
	}
	r.recorderNames = append(r.recorderNames, name)
	r.factories = append(r.factories, factory)
	return nil
}

// MetricSets returns the registered metric-sets in declaration order.
func (r *Registry) MetricSets() []MetricSet { return r.sets }

// RecorderNames returns the registered recorders' names in declaration order.
func (r *Registry) RecorderNames() []string { return r.recorderNames }

// ScenarioSink holds one scenario's accumulated Series (one per metric-set)
// and its own Recorder instances, built fresh from the Registry's factories,
// and drives Setup/Save/Finalise across them for that scenario. Its
// isolation from other scenarios' sinks is what lets Save be called
// concurrently (§5).
type ScenarioSink struct {
	registry  *Registry
	index     int
	series    map[string]*Series
	recorders []Recorder
}

// NewScenarioSink builds a sink for one scenario: a fresh Recorder per
// registered factory, with Setup already run on each.
func NewScenarioSink(registry *Registry, scenarioIndex int) (*ScenarioSink, error) {
	series := make(map[string]*Series, len(registry.sets))
	for _, ms := range registry.sets {
		series[ms.Name] = &Series{}
	}
	recorders := make([]Recorder, len(registry.factories))
	for i, f := range registry.factories {
		rec := f()
		if err := rec.Setup(scenarioIndex); err != nil {
			return nil, err
		}
		recorders[i] = rec
	}
	return &ScenarioSink{registry: registry, index: scenarioIndex, series: series, recorders: recorders}, nil
}

// Sample resolves every registered metric-set against ctx, then calls Save on
// every recorder in declaration order (§4.J.1 step 6, §4.J.3 "recorders are
// called in declaration order"). It is the scheduler.Step "sample" hook.
func (s *ScenarioSink) Sample(ctx metric.Context) error {
	for _, ms := range s.registry.sets {
		if err := ms.Sample(ctx, s.series[ms.Name]); err != nil {
			return err
		}
	}
	for _, rec := range s.recorders {
		if err := rec.Save(s.index, s.series); err != nil {
			return err
		}
	}
	return nil
}

// Finalise calls Finalise on every recorder and collects the non-nil results
// into a name-keyed map (§4.L, §6 "Optional result payload keyed by recorder
// name").
func (s *ScenarioSink) Finalise() (map[string]any, error) {
	results := make(map[string]any)
	for _, rec := range s.recorders {
		v, err := rec.Finalise()
		if err != nil {
			return nil, err
		}
		if v != nil {
			results[rec.Name()] = v
		}
	}
	return results, nil
}
