package scheduler

import "time"

// NextAvailableStart returns the earliest instant at or after now that lies outside
// the projected timeline and outside every live reservation's requested window.
func NextAvailableStart(reservations []Reservation, now time.Time) (time.Time, error) {
	return DefaultPolicy().NextAvailableStart(reservations, now)
}

// NextAvailableStart is the policy aware variant of the package function.
func (p Policy) NextAvailableStart(reservations []Reservation, now time.Time) (time.Time, error) {
	projections, err := p.Project(reservations, now)
	if err != nil {
		return time.Time{}, err
	}
	return nextAvailable(projections, now), nil
}

// NextAvailableFromProjection computes the next free instant from an existing projection.
func NextAvailableFromProjection(projections []Projection, now time.Time) time.Time {
	return nextAvailable(projections, now)
}

func nextAvailable(projections []Projection, now time.Time) time.Time {
	candidate := now
	rest := projections
	if len(rest) > 0 && rest[0].Occupant {
		candidate = maxTime(candidate, rest[0].Window.End)
		rest = rest[1:]
	}
	for _, projection := range rest {
		if projection.Window.Start.After(candidate) {
			break
		}
		candidate = maxTime(candidate.Add(projection.Reservation.Duration()), projection.Window.End)
	}
	return clearOf(projections, maxTime(candidate, now))
}

// clearOf advances candidate until neither the projected nor the requested window
// of any live reservation contains it, matching what DetectConflicts rejects.
func clearOf(projections []Projection, candidate time.Time) time.Time {
	for moved := true; moved; {
		moved = false
		for _, projection := range projections {
			requested := Window{Start: projection.Reservation.Start, End: projection.Reservation.End}
			for _, window := range [...]Window{projection.Window, requested} {
				if window.Contains(candidate) {
					candidate = window.End
					moved = true
				}
			}
		}
	}
	return candidate
}
