package model_test

import (
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pywr-go/pywr/ids"
	"github.com/pywr-go/pywr/metric"
	"github.com/pywr-go/pywr/model"
	"github.com/pywr-go/pywr/network"
	"github.com/pywr-go/pywr/parameter"
	"github.com/pywr-go/pywr/recorder"
	"github.com/pywr-go/pywr/scenario"
	"github.com/pywr-go/pywr/scheduler"
	"github.com/pywr-go/pywr/solver"
	"github.com/pywr-go/pywr/solver/reference"
	"github.com/pywr-go/pywr/timestep"
)

// The examples below build the six concrete fixture scenarios named in
// spec.md §8, each at a scale small enough to exercise the reference
// solver quickly while still matching the spec's fixture narrative.

// demandCurve is a Simple-tier parameter computing min(1+t+s, 12) for day
// index t and scenario index s, as scenario (1) ("Three-node chain")
// specifies.
type demandCurve struct{}

func (demandCurve) Name() string           { return "demand-curve" }
func (demandCurve) Tier() ids.Tier         { return ids.Simple }
func (demandCurve) Kind() ids.ValueKind    { return ids.F64Kind }
func (demandCurve) Setup(int) (any, error) { return nil, nil }

func (demandCurve) Compute(ctx parameter.Context, _ any) (parameter.Value, error) {
	v := 1 + float64(ctx.Time().Index) + float64(ctx.ScenarioIndex())
	if v > 12 {
		v = 12
	}
	return parameter.F64Value(v)
}

func (demandCurve) After(parameter.Context, any) error { return nil }

func ExampleModel_threeNodeChainDemandCurve() {
	net := network.NewNetwork()
	in, _ := net.AddInput("supply", "")
	link, _ := net.AddLink("channel", "")
	out, _ := net.AddOutput("demand", "")
	_, _ = net.Connect(in, link)
	edge, _ := net.Connect(link, out)

	demandIdx, _ := net.AddParameter(demandCurve{})
	_ = net.SetMinFlow(out, metric.ParameterValue{Index: demandIdx})
	_ = net.SetMaxFlow(out, metric.ParameterValue{Index: demandIdx})
	_ = net.SetCost(out, metric.Constant(-10))

	times, _ := timestep.NewDomain(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), 8, 1)
	scenarios, _ := scenario.NewDomain(scenario.Group{Name: "inflow", Size: 2})

	reg := recorder.NewRegistry()
	_ = reg.AddMetricSet(recorder.NewMetricSet("demand-edge", metric.EdgeFlow{Edge: edge}))
	_ = reg.AddRecorder(recorder.NewMemoryRecorder("raw", "demand-edge"))

	m := model.New(net, times, scenarios, reg, scheduler.NewRunSettings())
	results, err := m.Run(reference.NewSetup(), solver.NewSettings())
	if err != nil {
		panic(err)
	}

	lastDay := len(results[0]["raw"].([][]float64)) - 1
	for s := 0; s < 2; s++ {
		row := results[s]["raw"].([][]float64)[lastDay]
		fmt.Printf("scenario %d day %d flow %.0f\n", s, lastDay, row[0])
	}
	// Output:
	// scenario 0 day 7 flow 8
	// scenario 1 day 7 flow 9
}

func TestThreeNodeChainFollowsDemandCurve(t *testing.T) {
	net := network.NewNetwork()
	in, err := net.AddInput("supply", "")
	require.NoError(t, err)
	link, err := net.AddLink("channel", "")
	require.NoError(t, err)
	out, err := net.AddOutput("demand", "")
	require.NoError(t, err)
	_, err = net.Connect(in, link)
	require.NoError(t, err)
	edge, err := net.Connect(link, out)
	require.NoError(t, err)

	demandIdx, err := net.AddParameter(demandCurve{})
	require.NoError(t, err)
	require.NoError(t, net.SetMinFlow(out, metric.ParameterValue{Index: demandIdx}))
	require.NoError(t, net.SetMaxFlow(out, metric.ParameterValue{Index: demandIdx}))
	require.NoError(t, net.SetCost(out, metric.Constant(-10)))

	const numDays = 20
	const numScenarios = 3
	times, err := timestep.NewDomain(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), numDays, 1)
	require.NoError(t, err)
	scenarios, err := scenario.NewDomain(scenario.Group{Name: "inflow", Size: numScenarios})
	require.NoError(t, err)

	reg := recorder.NewRegistry()
	require.NoError(t, reg.AddMetricSet(recorder.NewMetricSet("demand-edge", metric.EdgeFlow{Edge: edge})))
	require.NoError(t, reg.AddRecorder(recorder.NewMemoryRecorder("raw", "demand-edge")))

	m := model.New(net, times, scenarios, reg, scheduler.NewRunSettings())
	results, err := m.Run(reference.NewSetup(), solver.NewSettings())
	require.NoError(t, err)

	for s := 0; s < numScenarios; s++ {
		raw := results[s]["raw"].([][]float64)
		require.Len(t, raw, numDays)
		for day, row := range raw {
			expected := math.Min(1+float64(day)+float64(s), 12)
			require.InDelta(t, expected, row[0], 1e-6, "scenario %d day %d", s, day)
		}
	}
}

func TestSingleReservoirDrawdown(t *testing.T) {
	net := network.NewNetwork()
	reservoir, err := net.AddStorage("reservoir", "")
	require.NoError(t, err)
	demand, err := net.AddOutput("demand", "")
	require.NoError(t, err)
	edge, err := net.Connect(reservoir, demand)
	require.NoError(t, err)

	require.NoError(t, net.SetMinVolume(reservoir, metric.Constant(0)))
	require.NoError(t, net.SetMaxVolume(reservoir, metric.Constant(100)))
	require.NoError(t, net.SetInitialVolume(reservoir, network.Absolute(100)))

	require.NoError(t, net.SetMaxFlow(demand, metric.Constant(10)))
	require.NoError(t, net.SetCost(demand, metric.Constant(-1000)))

	const numDays = 15
	times, err := timestep.NewDomain(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), numDays, 1)
	require.NoError(t, err)

	reg := recorder.NewRegistry()
	require.NoError(t, reg.AddMetricSet(recorder.NewMetricSet("reservoir", metric.NodeVolume{Node: reservoir}, metric.EdgeFlow{Edge: edge})))
	require.NoError(t, reg.AddRecorder(recorder.NewMemoryRecorder("raw", "reservoir")))

	m := model.New(net, times, nil, reg, scheduler.NewRunSettings())
	results, err := m.Run(reference.NewSetup(), solver.NewSettings())
	require.NoError(t, err)

	raw := results[0]["raw"].([][]float64)
	require.Len(t, raw, numDays)
	for day, row := range raw {
		vol, flow := row[0], row[1]
		expectedVol := math.Max(90-10*float64(day), 0)
		expectedFlow := 10.0
		if day >= 10 {
			expectedFlow = 0
		}
		require.InDelta(t, expectedVol, vol, 1e-6, "day %d volume", day)
		require.InDelta(t, expectedFlow, flow, 1e-6, "day %d flow", day)
	}
}

func TestMutualExclusivityRoutesThroughCheaperBranch(t *testing.T) {
	net := network.NewNetwork()
	supply, err := net.AddInput("supply", "")
	require.NoError(t, err)
	link0, err := net.AddLink("branch0", "")
	require.NoError(t, err)
	link1, err := net.AddLink("branch1", "")
	require.NoError(t, err)
	out0, err := net.AddOutput("out0", "")
	require.NoError(t, err)
	out1, err := net.AddOutput("out1", "")
	require.NoError(t, err)

	_, err = net.Connect(supply, link0)
	require.NoError(t, err)
	edge0, err := net.Connect(link0, out0)
	require.NoError(t, err)
	_, err = net.Connect(supply, link1)
	require.NoError(t, err)
	edge1, err := net.Connect(link1, out1)
	require.NoError(t, err)

	require.NoError(t, net.SetMaxFlow(supply, metric.Constant(100)))
	require.NoError(t, net.SetMaxFlow(out0, metric.Constant(100)))
	require.NoError(t, net.SetMaxFlow(out1, metric.Constant(100)))
	require.NoError(t, net.SetCost(out0, metric.Constant(-10)))
	require.NoError(t, net.SetCost(out1, metric.Constant(-5)))

	_, err = net.AddAggregatedNode("branches", "", []ids.NodeIndex{link0, link1}, network.WithMutualExclusivity(1, 1))
	require.NoError(t, err)

	const numDays = 5
	times, err := timestep.NewDomain(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), numDays, 1)
	require.NoError(t, err)

	reg := recorder.NewRegistry()
	require.NoError(t, reg.AddMetricSet(recorder.NewMetricSet("branches", metric.EdgeFlow{Edge: edge0}, metric.EdgeFlow{Edge: edge1})))
	require.NoError(t, reg.AddRecorder(recorder.NewMemoryRecorder("raw", "branches")))

	m := model.New(net, times, nil, reg, scheduler.NewRunSettings())
	results, err := m.Run(reference.NewSetup(), solver.NewSettings(solver.WithIgnoreFeatureRequirements()))
	require.NoError(t, err)

	raw := results[0]["raw"].([][]float64)
	require.Len(t, raw, numDays)
	for day, row := range raw {
		require.InDelta(t, 100.0, row[0], 1e-6, "day %d branch0 flow", day)
		require.InDelta(t, 0.0, row[1], 1e-6, "day %d branch1 flow", day)
	}
}

func buildTwoBranchVirtualStorageNetwork(t *testing.T, vsOpts ...network.VirtualStorageOption) (*network.Network, ids.NodeIndex, ids.NodeIndex, ids.EdgeIndex, ids.EdgeIndex, ids.VirtualStorageIndex) {
	t.Helper()
	net := network.NewNetwork()
	supply, err := net.AddInput("supply", "")
	require.NoError(t, err)
	link0, err := net.AddLink("branch0", "")
	require.NoError(t, err)
	link1, err := net.AddLink("branch1", "")
	require.NoError(t, err)
	out0, err := net.AddOutput("out0", "")
	require.NoError(t, err)
	out1, err := net.AddOutput("out1", "")
	require.NoError(t, err)

	_, err = net.Connect(supply, link0)
	require.NoError(t, err)
	edge0, err := net.Connect(link0, out0)
	require.NoError(t, err)
	_, err = net.Connect(supply, link1)
	require.NoError(t, err)
	edge1, err := net.Connect(link1, out1)
	require.NoError(t, err)

	require.NoError(t, net.SetMaxFlow(supply, metric.Constant(1000)))
	require.NoError(t, net.SetMaxFlow(out0, metric.Constant(10)))
	require.NoError(t, net.SetMaxFlow(out1, metric.Constant(10)))
	require.NoError(t, net.SetCost(out0, metric.Constant(-1000)))
	require.NoError(t, net.SetCost(out1, metric.Constant(-1000)))

	vs, err := net.AddVirtualStorage(
		"account", "",
		[]network.Member{{Node: int(link0), Factor: 2}, {Node: int(link1), Factor: 1}},
		network.Absolute(100), metric.Constant(0), metric.Constant(100),
		vsOpts...,
	)
	require.NoError(t, err)

	return net, out0, out1, edge0, edge1, vs
}

func TestVirtualStorageWithFactorsDepletesAndStopsFlow(t *testing.T) {
	net, _, _, edge0, edge1, vs := buildTwoBranchVirtualStorageNetwork(t)

	const numDays = 6
	times, err := timestep.NewDomain(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), numDays, 1)
	require.NoError(t, err)

	reg := recorder.NewRegistry()
	require.NoError(t, reg.AddMetricSet(recorder.NewMetricSet("account", metric.VirtualStorageVolume{Storage: vs}, metric.EdgeFlow{Edge: edge0}, metric.EdgeFlow{Edge: edge1})))
	require.NoError(t, reg.AddRecorder(recorder.NewMemoryRecorder("raw", "account")))

	m := model.New(net, times, nil, reg, scheduler.NewRunSettings())
	results, err := m.Run(reference.NewSetup(), solver.NewSettings())
	require.NoError(t, err)

	raw := results[0]["raw"].([][]float64)
	require.Len(t, raw, numDays)

	prevVol := 100.0
	depleted := false
	for day, row := range raw {
		vol, flow0, flow1 := row[0], row[1], row[2]
		require.GreaterOrEqual(t, vol, -1e-6, "day %d volume must never go negative", day)
		require.LessOrEqual(t, vol, prevVol+1e-6, "day %d volume must be non-increasing while draining", day)
		prevVol = vol
		if vol <= 1e-6 {
			depleted = true
		}
		if depleted {
			require.InDelta(t, 0.0, 2*flow0+flow1, 1e-6, "day %d combined draw must be zero once depleted", day)
		}
	}
	require.True(t, depleted, "account should deplete within %d days given a 30/day combined draw against 100", numDays)
}

func TestVirtualStorageMonthlyResetSnapsBackOnFirstOfMonth(t *testing.T) {
	net, _, _, _, _, vs := buildTwoBranchVirtualStorageNetwork(
		t, network.WithResetPolicy(network.Reset{Kind: network.NumberOfMonths, Months: 1}),
	)

	// 31 days of January plus a handful of February days, so the reset
	// boundary (Feb 1) falls inside the run.
	const numDays = 35
	times, err := timestep.NewDomain(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), numDays, 1)
	require.NoError(t, err)

	reg := recorder.NewRegistry()
	require.NoError(t, reg.AddMetricSet(recorder.NewMetricSet("account", metric.VirtualStorageVolume{Storage: vs})))
	require.NoError(t, reg.AddRecorder(recorder.NewMemoryRecorder("raw", "account")))

	m := model.New(net, times, nil, reg, scheduler.NewRunSettings())
	results, err := m.Run(reference.NewSetup(), solver.NewSettings())
	require.NoError(t, err)

	raw := results[0]["raw"].([][]float64)
	require.Len(t, raw, numDays)

	resetDayIndex := -1
	for day, ts := range times.All() {
		if ts.Date.Day() == 1 && int(ts.Date.Month()) == 2 {
			resetDayIndex = day
			break
		}
	}
	require.GreaterOrEqual(t, resetDayIndex, 1, "the 35-day run starting Jan 1 must include Feb 1")

	volBeforeReset := raw[resetDayIndex-1][0]
	volOnResetDay := raw[resetDayIndex][0]
	require.Greater(t, volOnResetDay, volBeforeReset, "volume must jump back up on the reset day rather than keep draining")
}

// controlCurveDraw is a General-tier parameter implementing scenario (3)'s
// two-control-curve drawdown rate: 5/day above the 75% curve, 2/day between
// the 75% and 25% curves, 0/day once the reservoir has drained below the 25%
// curve. It reads the reservoir's proportional-volume derived metric, whose
// Before hook reports the volume as it stood at the start of the step.
type controlCurveDraw struct {
	proportionalVolume ids.DerivedMetricIndex
}

func (controlCurveDraw) Name() string { return "control-curve-draw" }
func (controlCurveDraw) Tier() ids.Tier { return ids.General }
func (controlCurveDraw) Kind() ids.ValueKind { return ids.F64Kind }
func (controlCurveDraw) Setup(int) (any, error) { return nil, nil }
func (controlCurveDraw) After(parameter.Context, any) error { return nil }

func (p controlCurveDraw) Compute(ctx parameter.Context, _ any) (parameter.Value, error) {
	pv, err := ctx.DerivedMetricValue(p.proportionalVolume)
	if err != nil {
		return parameter.Value{}, err
	}
	switch {
	case pv >= 0.75:
		return parameter.F64Value(5)
	case pv >= 0.25:
		return parameter.F64Value(2)
	default:
		return parameter.F64Value(0)
	}
}

func TestPiecewiseStorageTwoControlCurves(t *testing.T) {
	net := network.NewNetwork()
	reservoir, err := net.AddStorage("reservoir", "")
	require.NoError(t, err)
	demand, err := net.AddOutput("demand", "")
	require.NoError(t, err)
	edge, err := net.Connect(reservoir, demand)
	require.NoError(t, err)

	require.NoError(t, net.SetMinVolume(reservoir, metric.Constant(0)))
	require.NoError(t, net.SetMaxVolume(reservoir, metric.Constant(1000)))
	require.NoError(t, net.SetInitialVolume(reservoir, network.Absolute(1000)))
	require.NoError(t, net.SetCost(demand, metric.Constant(-1000)))

	reservoirNode, err := net.Node(reservoir)
	require.NoError(t, err)
	pvIdx := net.AddDerivedMetric(network.NewNodeProportionalVolume(reservoirNode))

	drawIdx, err := net.AddParameter(controlCurveDraw{proportionalVolume: pvIdx})
	require.NoError(t, err)
	require.NoError(t, net.SetMaxFlow(demand, metric.ParameterValue{Index: drawIdx}))

	const numDays = 320
	times, err := timestep.NewDomain(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), numDays, 1)
	require.NoError(t, err)

	reg := recorder.NewRegistry()
	require.NoError(t, reg.AddMetricSet(recorder.NewMetricSet("reservoir", metric.NodeVolume{Node: reservoir}, metric.EdgeFlow{Edge: edge})))
	require.NoError(t, reg.AddRecorder(recorder.NewMemoryRecorder("raw", "reservoir")))

	m := model.New(net, times, nil, reg, scheduler.NewRunSettings())
	results, err := m.Run(reference.NewSetup(), solver.NewSettings())
	require.NoError(t, err)

	raw := results[0]["raw"].([][]float64)
	require.Len(t, raw, numDays)

	prevVol := 1000.0
	for day, row := range raw {
		vol, flow := row[0], row[1]
		require.LessOrEqual(t, vol, prevVol+1e-6, "day %d volume must be non-increasing", day)
		require.GreaterOrEqual(t, vol, -1e-6, "day %d volume must never go negative", day)

		switch {
		case prevVol >= 750-1e-6:
			require.InDelta(t, 5.0, flow, 1e-6, "day %d: above the 75%% curve should draw at 5/day", day)
		case prevVol >= 250+1e-6:
			require.InDelta(t, 2.0, flow, 1e-6, "day %d: between the curves should draw at 2/day", day)
		default:
			require.InDelta(t, 0.0, flow, 1e-6, "day %d: below the 25%% curve should draw nothing", day)
		}
		prevVol = vol
	}

	// The 2/day middle-tier draw need not land exactly on the 25% curve
	// (1000 and the draw rates don't share that divisor), so the reservoir
	// settles within one middle-tier step of it, not necessarily at it.
	require.LessOrEqual(t, prevVol, 250.0+1e-6, "reservoir must have crossed below the 25% curve by the end of the run")
	require.Greater(t, prevVol, 250.0-2-1e-6, "reservoir must not have overshot the 25% curve by more than one middle-tier day's draw")
	lastFlow := raw[len(raw)-1][1]
	require.InDelta(t, 0.0, lastFlow, 1e-6, "once below the 25% curve the reservoir stops drawing")
}
