package scheduler

import "testing"

func TestDetectConflicts(t *testing.T) {
	projections := mustProject(t, []Reservation{
		reservation("a", at(9, 0), 30),
		reservation("far", at(12, 0), 30),
	}, at(9, 2))

	t.Run("overlaps projected window", func(t *testing.T) {
		conflicts := DetectConflicts(projections, Window{Start: at(9, 20), End: at(9, 40)})
		if len(conflicts) != 1 || conflicts[0].ReservationID != "a" || conflicts[0].Type != ConflictTypeProjected {
			t.Fatalf("unexpected conflicts %+v", conflicts)
		}
	})

	t.Run("adjacent windows do not conflict", func(t *testing.T) {
		if conflicts := DetectConflicts(projections, Window{Start: at(9, 30), End: at(10, 0)}); len(conflicts) != 0 {
			t.Fatalf("expected no conflicts, got %+v", conflicts)
		}
	})

	t.Run("overlaps requested window only", func(t *testing.T) {
		pulled := mustProject(t, []Reservation{reservation("b", at(10, 0), 30)}, at(9, 40))
		conflicts := DetectConflicts(pulled, Window{Start: at(10, 15), End: at(10, 45)})
		if len(conflicts) != 1 || conflicts[0].Type != ConflictTypeRequested {
			t.Fatalf("unexpected conflicts %+v", conflicts)
		}
	})
}
