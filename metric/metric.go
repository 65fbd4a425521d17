// Package metric defines Metric, the abstraction over "a scalar or a
// parameter output" used throughout the simulator: node/edge bound and cost
// contracts, aggregated-node factors, and recorder metric-sets all hold a
// Metric rather than a bare float64 so that any of them can instead be driven
// by a parameter's current value.
//
// A Metric never touches the network or state directly; it is handed a
// Context — the thin read-only interface that *network.Network combined with
// *state.State satisfies — so this package stays a leaf with no dependency on
// either of those (avoiding an import cycle, since network embeds Metric
// values in its node/edge/aggregated-node contracts).
package metric

import (
	"errors"
	"fmt"

	"github.com/pywr-go/pywr/ids"
)

// Sentinel errors returned while resolving a Metric.
var (
	// ErrUnresolvedReference indicates a Metric referenced an index the
	// Context does not recognize (stale or out-of-range index).
	ErrUnresolvedReference = errors.New("metric: unresolved reference")

	// ErrMultiValueKeyMissing indicates a MultiParameterMetric asked for a
	// named key the parameter's MultiValue does not contain.
	ErrMultiValueKeyMissing = errors.New("metric: multi-value key missing")
)

// Context is the read-only view a Metric needs to resolve to a scalar. It is
// satisfied by *state.State, which holds a reference to its network.
type Context interface {
	NodeInflow(idx ids.NodeIndex) (float64, error)
	NodeOutflow(idx ids.NodeIndex) (float64, error)
	NodeVolume(idx ids.NodeIndex) (float64, error)
	EdgeFlow(idx ids.EdgeIndex) (float64, error)
	AggregatedNodeInflow(idx ids.AggregatedNodeIndex) (float64, error)
	AggregatedNodeOutflow(idx ids.AggregatedNodeIndex) (float64, error)
	AggregatedNodeVolume(idx ids.AggregatedStorageNodeIndex) (float64, error)
	VirtualStorageVolume(idx ids.VirtualStorageIndex) (float64, error)
	DerivedMetricValue(idx ids.DerivedMetricIndex) (float64, error)
	ParameterF64(idx ids.ParameterIndex) (float64, error)
	ParameterMultiF64(idx ids.ParameterIndex, key string) (float64, error)
	InterNetworkValue(idx ids.InterNetworkIndex) (float64, error)
}

// Metric resolves to a scalar given a Context.
type Metric interface {
	Value(ctx Context) (float64, error)
}

// Constant is a Metric that always resolves to a fixed value. It is the
// default used whenever a builder call is given a plain float64 instead of a
// parameter-backed Metric.
type Constant float64

// Value implements Metric.
func (c Constant) Value(Context) (float64, error) { return float64(c), nil }

// NodeInflow resolves to the total solved inflow of a node for the current step.
type NodeInflow struct{ Node ids.NodeIndex }

func (m NodeInflow) Value(ctx Context) (float64, error) { return ctx.NodeInflow(m.Node) }

// NodeOutflow resolves to the total solved outflow of a node for the current step.
type NodeOutflow struct{ Node ids.NodeIndex }

func (m NodeOutflow) Value(ctx Context) (float64, error) { return ctx.NodeOutflow(m.Node) }

// NodeVolume resolves to a Storage node's current volume.
type NodeVolume struct{ Node ids.NodeIndex }

func (m NodeVolume) Value(ctx Context) (float64, error) { return ctx.NodeVolume(m.Node) }

// EdgeFlow resolves to a solved edge's flow for the current step.
type EdgeFlow struct{ Edge ids.EdgeIndex }

func (m EdgeFlow) Value(ctx Context) (float64, error) { return ctx.EdgeFlow(m.Edge) }

// AggregatedNodeInflow resolves to the summed inflow of an aggregated node's members.
type AggregatedNodeInflow struct{ Node ids.AggregatedNodeIndex }

func (m AggregatedNodeInflow) Value(ctx Context) (float64, error) {
	return ctx.AggregatedNodeInflow(m.Node)
}

// AggregatedNodeOutflow resolves to the summed outflow of an aggregated node's members.
type AggregatedNodeOutflow struct{ Node ids.AggregatedNodeIndex }

func (m AggregatedNodeOutflow) Value(ctx Context) (float64, error) {
	return ctx.AggregatedNodeOutflow(m.Node)
}

// AggregatedStorageVolume resolves to the summed volume of an aggregated
// storage node's members.
type AggregatedStorageVolume struct{ Node ids.AggregatedStorageNodeIndex }

func (m AggregatedStorageVolume) Value(ctx Context) (float64, error) {
	return ctx.AggregatedNodeVolume(m.Node)
}

// VirtualStorageVolume resolves to a virtual storage account's current volume.
type VirtualStorageVolume struct{ Storage ids.VirtualStorageIndex }

func (m VirtualStorageVolume) Value(ctx Context) (float64, error) {
	return ctx.VirtualStorageVolume(m.Storage)
}

// DerivedMetricValue resolves to the current value of a derived metric.
type DerivedMetricValue struct{ Index ids.DerivedMetricIndex }

func (m DerivedMetricValue) Value(ctx Context) (float64, error) {
	return ctx.DerivedMetricValue(m.Index)
}

// ParameterValue resolves to a scalar (f64 or u64-as-float64) parameter's
// current output.
type ParameterValue struct{ Index ids.ParameterIndex }

func (m ParameterValue) Value(ctx Context) (float64, error) {
	return ctx.ParameterF64(m.Index)
}

// MultiParameterValue resolves to one named float under a MultiValue parameter's
// current output.
type MultiParameterValue struct {
	Index ids.ParameterIndex
	Key   string
}

func (m MultiParameterValue) Value(ctx Context) (float64, error) {
	return ctx.ParameterMultiF64(m.Index, m.Key)
}

// InterNetworkValue resolves to a transfer slot deposited by a MultiModel
// coordinator before this network's step (§4.K, §6 "Inter-network transfer").
type InterNetworkValue struct{ Index ids.InterNetworkIndex }

func (m InterNetworkValue) Value(ctx Context) (float64, error) {
	return ctx.InterNetworkValue(m.Index)
}

// errUnresolved wraps ErrUnresolvedReference with the offending index for
// Context implementations to return.
func errUnresolved(kind string, idx fmt.Stringer) error {
	return fmt.Errorf("%w: %s %s", ErrUnresolvedReference, kind, idx)
}

// ErrUnresolved is exported so Context implementations in other packages can
// build a consistent error without re-declaring the sentinel.
func ErrUnresolved(kind string, idx fmt.Stringer) error { return errUnresolved(kind, idx) }
