// Package state holds the per-scenario mutable simulation state (§4.G):
// node/edge flows, storage volumes, virtual-storage accounts with rolling
// history, tiered parameter values split into before/after vectors, derived
// metrics, and inter-network transfer values. State implements metric.Context
// so node/edge/parameter contracts can be evaluated directly against it.
package state

import "errors"

// Sentinel errors, per spec §7 "State errors".
var (
	// ErrNodeIndexNotFound indicates a NodeIndex is out of range.
	ErrNodeIndexNotFound = errors.New("state: node index not found")
	// ErrEdgeIndexNotFound indicates an EdgeIndex is out of range.
	ErrEdgeIndexNotFound = errors.New("state: edge index not found")
	// ErrNotStorage indicates a volume accessor was called on a non-Storage node.
	ErrNotStorage = errors.New("state: node is not a Storage node")
	// ErrVirtualStorageIndexNotFound indicates a VirtualStorageIndex is out of range.
	ErrVirtualStorageIndexNotFound = errors.New("state: virtual storage index not found")
	// ErrAggregatedIndexNotFound indicates an aggregated node/storage index is out of range.
	ErrAggregatedIndexNotFound = errors.New("state: aggregated index not found")
	// ErrDerivedMetricIndexNotFound indicates a DerivedMetricIndex is out of range.
	ErrDerivedMetricIndexNotFound = errors.New("state: derived metric index not found")
	// ErrInterNetworkIndexNotFound indicates an InterNetworkIndex is out of range.
	ErrInterNetworkIndexNotFound = errors.New("state: inter-network transfer index not found")
	// ErrParameterIndexNotFound indicates a ParameterIndex's tier/kind/inner combination is out of range.
	ErrParameterIndexNotFound = errors.New("state: parameter index not found")
	// ErrParameterKindMismatch indicates a ParameterIndex's Kind doesn't match the accessor used.
	ErrParameterKindMismatch = errors.New("state: parameter kind mismatch")
	// ErrMultiValueKeyMissing indicates a requested MultiValue key is absent.
	ErrMultiValueKeyMissing = errors.New("state: multi-value key missing")
	// ErrNaN indicates an attempt to write a NaN value into state.
	ErrNaN = errors.New("state: attempted to set NaN")
)
