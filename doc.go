// Package pywr implements a time-stepped resource-allocation network
// simulator: nodes with flow bounds and costs, edges connecting them,
// aggregated and virtual-storage relationships between nodes, parameters and
// derived metrics computed from the network's own state, and a linear-program
// solve performed once per time-step per scenario.
//
// The packages are organized by concern:
//
//	network/   — Network, Node, Edge and the aggregated/virtual-storage
//	             relationships between nodes; topology is built once and
//	             never mutated during a run
//	state/     — per-scenario State: the mutable values (flows, storage
//	             volumes, resolved parameter/derived-metric outputs) a
//	             solve reads and writes each step
//	metric/    — the Metric/Context abstraction node bounds, costs, and
//	             parameters read values through
//	parameter/ — constant, simple, and general parameters, resolved in
//	             declaration order each step
//	derived/   — derived metrics computed from already-resolved state
//	lp/        — the sparse linear-program representation a Network's
//	             topology and bounds are translated into each step
//	solver/    — the Solver/Setup contract an lp.Problem is handed to, plus
//	             a reference solver implementation
//	scheduler/ — Scenario and StepAll: drives one or many scenarios through
//	             one time-step, sequentially or in parallel
//	recorder/  — metric-sets and recorders that sample and aggregate state
//	             across a run, isolated per scenario
//	model/     — Model and MultiModel: the run API composing the above
//	             across a full time domain, including multi-network
//	             transfer coupling
//	timestep/, scenario/, ids/ — the time domain, scenario domain, and
//	             typed index types shared across every package above
package pywr
