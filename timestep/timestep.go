// Package timestep provides the time domain (§4.A): an ordered, finite
// sequence of Timestep{date, index, duration} enumerated from a start date,
// a step length in days, and a step count. The first step is tagged so that
// node/virtual-storage "before" hooks and derived metrics can trigger
// initialization behavior (initial volume assignment, virtual-storage reset).
package timestep

import (
	"errors"
	"time"
)

// ErrZeroDuration indicates a zero or negative step length was requested,
// rejected at construction per spec §8 "Zero Δt → rejected at time-domain construction".
var ErrZeroDuration = errors.New("timestep: duration must be positive")

// ErrZeroSteps indicates a domain with no steps was requested.
var ErrZeroSteps = errors.New("timestep: step count must be positive")

// Timestep is one point in the simulated time domain.
type Timestep struct {
	Date         time.Time
	Index        int
	DurationDays float64
}

// IsFirst reports whether this is the first step of the domain.
func (t Timestep) IsFirst() bool { return t.Index == 0 }

// Domain is a finite, ordered sequence of Timestep values.
type Domain struct {
	steps []Timestep
}

// NewDomain builds a Domain of `count` steps of `durationDays` each, starting
// at `start`. Returns ErrZeroDuration or ErrZeroSteps on invalid input.
func NewDomain(start time.Time, count int, durationDays float64) (*Domain, error) {
	if durationDays <= 0 {
		return nil, ErrZeroDuration
	}
	if count <= 0 {
		return nil, ErrZeroSteps
	}
	steps := make([]Timestep, count)
	step := time.Duration(durationDays * 24 * float64(time.Hour))
	for i := 0; i < count; i++ {
		steps[i] = Timestep{
			Date:         start.Add(time.Duration(i) * step),
			Index:        i,
			DurationDays: durationDays,
		}
	}
	return &Domain{steps: steps}, nil
}

// NewDomainFromDates builds a Domain from explicit, already-ordered dates,
// each step's duration computed as the gap to the next date (the last step
// reuses the prior gap). Useful for host time-steppers with irregular calendars.
func NewDomainFromDates(dates []time.Time) (*Domain, error) {
	if len(dates) == 0 {
		return nil, ErrZeroSteps
	}
	steps := make([]Timestep, len(dates))
	for i, d := range dates {
		var days float64
		switch {
		case i+1 < len(dates):
			days = dates[i+1].Sub(d).Hours() / 24
		case len(dates) > 1:
			days = d.Sub(dates[i-1]).Hours() / 24
		default:
			days = 1
		}
		if days <= 0 {
			return nil, ErrZeroDuration
		}
		steps[i] = Timestep{Date: d, Index: i, DurationDays: days}
	}
	return &Domain{steps: steps}, nil
}

// Len returns the number of steps in the domain.
func (d *Domain) Len() int { return len(d.steps) }

// At returns the step at index i, or ok=false if out of range.
func (d *Domain) At(i int) (Timestep, bool) {
	if i < 0 || i >= len(d.steps) {
		return Timestep{}, false
	}
	return d.steps[i], true
}

// All returns the full ordered slice of steps (read-only by convention).
func (d *Domain) All() []Timestep { return d.steps }
