package network

import "github.com/pywr-go/pywr/metric"

// ResetKind selects a VirtualStorage's reset policy (§4.E).
type ResetKind int

const (
	// Never never resets; volume only moves via member-node flow and history credit.
	Never ResetKind = iota
	// DayOfYear resets when the timestep's date matches (Day, Month).
	DayOfYear
	// NumberOfMonths resets once at least Months months have elapsed since the
	// last reset (or since setup, before any reset has occurred).
	NumberOfMonths
)

// Reset describes a VirtualStorage's reset policy and its parameters.
type Reset struct {
	Kind   ResetKind
	Day    int // 1..31, when Kind == DayOfYear
	Month  int // 1..12, when Kind == DayOfYear
	Months int // >= 1, when Kind == NumberOfMonths
}

// NeverReset is the zero-value Reset policy.
var NeverReset = Reset{Kind: Never}

// Member pairs a flow node with the multiplicative factor its flow consumes
// from the virtual storage's volume.
type Member struct {
	Node   int // ids.NodeIndex
	Factor float64
}

// VirtualStorage is a storage-like account whose volume is consumed by flow
// through a chosen subset of flow nodes with per-node factors (§3, §4.E).
type VirtualStorage struct {
	Index   int // ids.VirtualStorageIndex
	Name    string
	SubName string
	Members []Member

	InitialVolume VolumeAssignment
	MinVolume     metric.Metric
	MaxVolume     metric.Metric
	Cost          metric.Metric

	HistorySize int // 0 disables rolling-history credit
	Reset       Reset
}

// FullName renders "Name" or "Name/SubName".
func (v *VirtualStorage) FullName() string {
	if v.SubName == "" {
		return v.Name
	}
	return v.Name + "/" + v.SubName
}

// CurrentVolumeBounds is the virtual-storage counterpart of
// Node.CurrentVolumeBounds: converts [MinVolume, MaxVolume] at the current
// volume into a per-step bound on the factor-weighted draw,
// (-missing/dt, available/dt), since a draw lowers the account's volume.
func (v *VirtualStorage) CurrentVolumeBounds(ctx metric.Context, vol, dt float64) (lb, ub float64, err error) {
	minVol, maxVol := 0.0, 0.0
	if v.MinVolume != nil {
		if minVol, err = v.MinVolume.Value(ctx); err != nil {
			return 0, 0, err
		}
	}
	if v.MaxVolume != nil {
		if maxVol, err = v.MaxVolume.Value(ctx); err != nil {
			return 0, 0, err
		}
	}
	available := vol - minVol
	missing := maxVol - vol
	return -missing / dt, available / dt, nil
}

// ResolveInitialVolume evaluates InitialVolume against the given resolved max volume.
func (v *VirtualStorage) ResolveInitialVolume(maxVol float64) float64 {
	if v.InitialVolume.Proportional {
		return v.InitialVolume.Value * maxVol
	}
	return v.InitialVolume.Value
}

// ShouldReset reports whether the policy fires on the given (day, month),
// `monthsSinceReset` elapsed since the last reset (or since setup), or on the
// first step of the run.
func (r Reset) ShouldReset(isFirstStep bool, day, month, monthsSinceReset int) bool {
	if isFirstStep {
		return true
	}
	switch r.Kind {
	case DayOfYear:
		return day == r.Day && month == r.Month
	case NumberOfMonths:
		return monthsSinceReset >= r.Months
	default:
		return false
	}
}
