// Package scenario provides the scenario domain (§4.B): the cartesian
// product of named groups, each of declared size, enumerated in row-major
// order with the last-declared group varying fastest.
package scenario

import (
	"errors"
	"fmt"
)

// ErrDuplicateGroupName indicates two groups share a name.
var ErrDuplicateGroupName = errors.New("scenario: duplicate group name")

// ErrInvalidGroupSize indicates a group was declared with size <= 0.
var ErrInvalidGroupSize = errors.New("scenario: group size must be positive")

// ErrGroupNotFound indicates GroupIndex was asked for an unknown name.
var ErrGroupNotFound = errors.New("scenario: group not found")

// ErrScenarioNotFound indicates Scenario was asked for an out-of-range simulation id.
var ErrScenarioNotFound = errors.New("scenario: simulation id out of range")

// Group is one named axis of the scenario domain, with its declared size.
type Group struct {
	Name string
	Size int
}

// Scenario is one combination of group indices drawn from the domain.
type Scenario struct {
	SimulationID int
	Indices      []int // one per declared group, in declaration order
}

// Domain is the enumerated cartesian product of a Domain's groups. When no
// groups are added, the domain yields a single default scenario with index
// vector [0] (§4.B).
type Domain struct {
	groups []Group
}

// NewDomain constructs a Domain from an ordered list of groups. Group names
// must be unique and sizes positive. Zero groups is valid and yields one
// default scenario.
func NewDomain(groups ...Group) (*Domain, error) {
	seen := make(map[string]struct{}, len(groups))
	for _, g := range groups {
		if g.Size <= 0 {
			return nil, fmt.Errorf("%w: %q size=%d", ErrInvalidGroupSize, g.Name, g.Size)
		}
		if _, dup := seen[g.Name]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateGroupName, g.Name)
		}
		seen[g.Name] = struct{}{}
	}
	cp := make([]Group, len(groups))
	copy(cp, groups)
	return &Domain{groups: cp}, nil
}

// Groups returns the declared groups in declaration order.
func (d *Domain) Groups() []Group { return d.groups }

// GroupIndex returns the declaration-order position of the named group, used
// by parameters to find their per-scenario input row.
func (d *Domain) GroupIndex(name string) (int, error) {
	for i, g := range d.groups {
		if g.Name == name {
			return i, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrGroupNotFound, name)
}

// Len returns the total number of scenarios: the product of group sizes, or
// 1 if no groups were declared.
func (d *Domain) Len() int {
	if len(d.groups) == 0 {
		return 1
	}
	n := 1
	for _, g := range d.groups {
		n *= g.Size
	}
	return n
}

// Scenario decodes simulation id k into its per-group index vector, in
// row-major order with the last group varying fastest (§4.B Invariant).
func (d *Domain) Scenario(k int) (Scenario, error) {
	if k < 0 || k >= d.Len() {
		return Scenario{}, fmt.Errorf("%w: %d", ErrScenarioNotFound, k)
	}
	if len(d.groups) == 0 {
		return Scenario{SimulationID: 0, Indices: []int{0}}, nil
	}
	indices := make([]int, len(d.groups))
	rem := k
	for i := len(d.groups) - 1; i >= 0; i-- {
		sz := d.groups[i].Size
		indices[i] = rem % sz
		rem /= sz
	}
	return Scenario{SimulationID: k, Indices: indices}, nil
}

// All enumerates every scenario in the domain, in simulation-id order.
func (d *Domain) All() []Scenario {
	n := d.Len()
	out := make([]Scenario, n)
	for k := 0; k < n; k++ {
		// Scenario(k) cannot fail for k in [0, Len()).
		out[k], _ = d.Scenario(k)
	}
	return out
}
