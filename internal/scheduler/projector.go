package scheduler

import (
	"sort"
	"time"
)

// Projection is a live reservation placed on the theoretical timeline.
type Projection struct {
	Reservation Reservation
	Window      Window
	Status      Status
	// Occupant is set on the single reservation that holds the resource at now.
	Occupant bool
}

// Project orders the live reservations of one resource and computes their projected
// windows using the default policy.
func Project(reservations []Reservation, now time.Time) ([]Projection, error) {
	return DefaultPolicy().Project(reservations, now)
}

// Project returns the live reservations in timeline order. Expired and completed
// reservations are omitted. Projected windows never overlap and never start before
// the requested start of a future reservation unless it was pulled forward to now.
func (p Policy) Project(reservations []Reservation, now time.Time) ([]Projection, error) {
	if err := checkIntegrity(reservations); err != nil {
		return nil, err
	}
	order := p.chainOrder(reservations, now)
	projections := make([]Projection, 0, len(order))
	var running time.Time
	for i, r := range order {
		var start time.Time
		occupant := false
		if i == 0 {
			start = r.Start
			if !r.Validated && r.Start.After(now) && r.Start.Sub(now) <= p.horizon() {
				start = now
			}
			occupant = !start.After(now)
		} else if r.Start.After(now) {
			start = maxTime(running, r.Start)
		} else {
			start = maxTime(running, now)
		}
		window := Window{Start: start, End: start.Add(r.Duration())}
		running = window.End
		projections = append(projections, Projection{
			Reservation: r,
			Window:      window,
			Status:      Classify(r, window, now, occupant),
			Occupant:    occupant,
		})
	}
	return projections, nil
}

// Statuses classifies every reservation, including the ones Project omits.
func (p Policy) Statuses(reservations []Reservation, now time.Time) (map[string]Status, error) {
	projections, err := p.Project(reservations, now)
	if err != nil {
		return nil, err
	}
	statuses := make(map[string]Status, len(reservations))
	for _, r := range reservations {
		switch {
		case r.Expired(now):
			statuses[r.ID] = StatusExpired
		case r.Validated:
			statuses[r.ID] = StatusCompleted
		}
	}
	for _, projection := range projections {
		statuses[projection.Reservation.ID] = projection.Status
	}
	return statuses, nil
}

// chainOrder selects the live reservations and puts them in projection order. The
// most recently validated reservation anchors the chain; earlier validated ones have
// handed the console over and are completed. The anchor itself completes once its
// window has passed and another reservation is due.
func (p Policy) chainOrder(reservations []Reservation, now time.Time) []Reservation {
	live := make([]Reservation, 0, len(reservations))
	for _, r := range reservations {
		if r.Expired(now) {
			continue
		}
		live = append(live, r)
	}
	sort.Slice(live, func(i, j int) bool {
		if live[i].Start.Equal(live[j].Start) {
			return live[i].ID < live[j].ID
		}
		return live[i].Start.Before(live[j].Start)
	})

	anchor := -1
	for i, r := range live {
		if r.Validated {
			anchor = i
		}
	}
	if anchor < 0 {
		return live
	}

	pending := make([]Reservation, 0, len(live))
	dueWaiting := false
	for _, r := range live {
		if r.Validated {
			continue
		}
		pending = append(pending, r)
		if !r.Start.After(now) {
			dueWaiting = true
		}
	}
	head := live[anchor]
	if now.After(head.End) && dueWaiting {
		return pending
	}
	return append([]Reservation{head}, pending...)
}
