package scheduler

import (
	"testing"
	"time"
)

func at(hour, minute int) time.Time {
	return time.Date(2025, time.March, 14, hour, minute, 0, 0, time.UTC)
}

func reservation(id string, start time.Time, minutes int) Reservation {
	return Reservation{ID: id, Start: start, End: start.Add(time.Duration(minutes) * time.Minute)}
}

func validated(r Reservation) Reservation {
	r.Validated = true
	return r
}

func mustProject(t *testing.T, reservations []Reservation, now time.Time) []Projection {
	t.Helper()
	projections, err := Project(reservations, now)
	if err != nil {
		t.Fatalf("Project returned error: %v", err)
	}
	return projections
}

func assertWindow(t *testing.T, p Projection, start, end time.Time) {
	t.Helper()
	if !p.Window.Start.Equal(start) || !p.Window.End.Equal(end) {
		t.Fatalf("reservation %s window = [%s, %s), want [%s, %s)", p.Reservation.ID,
			p.Window.Start.Format("15:04"), p.Window.End.Format("15:04"), start.Format("15:04"), end.Format("15:04"))
	}
}
