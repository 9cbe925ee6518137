// Package scheduler derives the live timeline of a single resource from its stored
// reservations. Every function is pure: callers pass the reservation set and the
// reference time, nothing is cached between calls.
package scheduler

import (
	"errors"
	"fmt"
	"time"
)

const (
	// GracePeriod is how long an unvalidated reservation stays live after its requested start.
	GracePeriod = 5 * time.Minute
	// DefaultOccupancyHorizon bounds how far ahead a reservation may be pulled forward to now.
	DefaultOccupancyHorizon = time.Hour
)

// ErrDataCorruption is returned when stored reservations violate end > start.
var ErrDataCorruption = errors.New("scheduler: data corruption")

// Reservation is the scheduling view of a stored reservation. Start and End are the
// requested times and are never adjusted.
type Reservation struct {
	ID        string
	Start     time.Time
	End       time.Time
	Validated bool
}

// Duration returns the requested length of the reservation.
func (r Reservation) Duration() time.Duration {
	return r.End.Sub(r.Start)
}

// ValidationDeadline is the last instant at which the reservation may still be validated.
func (r Reservation) ValidationDeadline() time.Time {
	return r.Start.Add(GracePeriod)
}

// Expired reports whether the reservation was never validated and its grace period elapsed.
func (r Reservation) Expired(now time.Time) bool {
	return !r.Validated && now.After(r.ValidationDeadline())
}

// Window is a half-open time interval [Start, End).
type Window struct {
	Start time.Time
	End   time.Time
}

// Overlaps reports whether the two windows share any instant.
func (w Window) Overlaps(other Window) bool {
	return w.Start.Before(other.End) && other.Start.Before(w.End)
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// Policy carries the tunables of the projection.
type Policy struct {
	// OccupancyHorizon limits the cascading pull-forward of the first upcoming
	// reservation. Zero selects DefaultOccupancyHorizon.
	OccupancyHorizon time.Duration
}

// DefaultPolicy returns the policy used by the package level helpers.
func DefaultPolicy() Policy {
	return Policy{OccupancyHorizon: DefaultOccupancyHorizon}
}

func (p Policy) horizon() time.Duration {
	if p.OccupancyHorizon <= 0 {
		return DefaultOccupancyHorizon
	}
	return p.OccupancyHorizon
}

func checkIntegrity(reservations []Reservation) error {
	for _, r := range reservations {
		if !r.End.After(r.Start) {
			return fmt.Errorf("%w: reservation %s ends at or before its start", ErrDataCorruption, r.ID)
		}
	}
	return nil
}

func maxTime(a, b time.Time) time.Time {
	if b.After(a) {
		return b
	}
	return a
}
