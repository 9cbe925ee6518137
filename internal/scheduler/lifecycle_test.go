package scheduler

import (
	"errors"
	"testing"
)

func TestClassify(t *testing.T) {
	r := reservation("r1", at(9, 0), 30)
	window := Window{Start: at(9, 0), End: at(9, 30)}

	cases := []struct {
		name     string
		r        Reservation
		now      int
		occupant bool
		want     Status
	}{
		{name: "not occupant", r: r, now: 2, occupant: false, want: StatusScheduled},
		{name: "occupant before window", r: r, now: -1, occupant: true, want: StatusScheduled},
		{name: "awaiting validation", r: r, now: 3, occupant: true, want: StatusAwaitingValidation},
		{name: "expired after grace", r: r, now: 6, occupant: true, want: StatusExpired},
		{name: "active", r: validated(r), now: 20, occupant: true, want: StatusActive},
		{name: "active at end", r: validated(r), now: 30, occupant: true, want: StatusActive},
		{name: "overdue", r: validated(r), now: 31, occupant: true, want: StatusOverdue},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			now := at(9, 0).Add(minutes(tc.now))
			if got := Classify(tc.r, window, now, tc.occupant); got != tc.want {
				t.Fatalf("Classify() = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestClassifyGraceBoundary(t *testing.T) {
	r := reservation("r1", at(9, 0), 30)
	window := Window{Start: r.Start, End: r.End}
	if got := Classify(r, window, at(9, 5), true); got != StatusAwaitingValidation {
		t.Fatalf("at deadline status = %s", got)
	}
	if got := Classify(r, window, at(9, 5).Add(1), true); got != StatusExpired {
		t.Fatalf("after deadline status = %s", got)
	}
}

func TestCheckValidation(t *testing.T) {
	r := reservation("r1", at(9, 0), 30)

	if err := CheckValidation(r, at(8, 59)); !errors.Is(err, ErrOutsideValidationWindow) {
		t.Fatalf("early validation err = %v", err)
	}
	if err := CheckValidation(r, at(9, 0)); err != nil {
		t.Fatalf("validation at start err = %v", err)
	}
	if err := CheckValidation(r, at(9, 5)); err != nil {
		t.Fatalf("validation at deadline err = %v", err)
	}
	if err := CheckValidation(r, at(9, 6)); !errors.Is(err, ErrOutsideValidationWindow) {
		t.Fatalf("late validation err = %v", err)
	}
	if err := CheckValidation(validated(r), at(9, 2)); !errors.Is(err, ErrAlreadyValidated) {
		t.Fatalf("double validation err = %v", err)
	}
}

func TestStatusInProgress(t *testing.T) {
	for status, want := range map[Status]bool{
		StatusScheduled:          false,
		StatusAwaitingValidation: true,
		StatusActive:             true,
		StatusOverdue:            false,
		StatusExpired:            false,
	} {
		if got := status.InProgress(); got != want {
			t.Errorf("%s.InProgress() = %v, want %v", status, got, want)
		}
	}
}
