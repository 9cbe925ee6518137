package scheduler

import (
	"errors"
	"time"
)

// Status is the lifecycle state of a reservation at a given instant. It is always
// derived, never stored.
type Status string

const (
	StatusScheduled          Status = "scheduled"
	StatusAwaitingValidation Status = "awaiting_validation"
	StatusActive             Status = "active"
	StatusOverdue            Status = "overdue"
	// StatusCompleted marks a validated reservation whose console has been handed over.
	StatusCompleted Status = "completed"
	StatusExpired   Status = "expired"
)

// InProgress reports whether the reservation currently holds its resource.
func (s Status) InProgress() bool {
	return s == StatusAwaitingValidation || s == StatusActive
}

var (
	// ErrAlreadyValidated is returned when validating a reservation twice.
	ErrAlreadyValidated = errors.New("scheduler: reservation already validated")
	// ErrOutsideValidationWindow is returned when validating before the requested start or after the grace period.
	ErrOutsideValidationWindow = errors.New("scheduler: outside validation window")
)

// Classify maps a reservation, its theoretical window and the occupancy flag to a
// lifecycle status. Only the designated occupant can be awaiting validation, active
// or overdue.
func Classify(r Reservation, window Window, now time.Time, occupant bool) Status {
	if r.Expired(now) {
		return StatusExpired
	}
	if !occupant {
		return StatusScheduled
	}
	if !r.Validated {
		if now.Before(window.Start) {
			return StatusScheduled
		}
		return StatusAwaitingValidation
	}
	if now.After(window.End) {
		return StatusOverdue
	}
	return StatusActive
}

// CheckValidation reports whether r may transition to validated at now.
func CheckValidation(r Reservation, now time.Time) error {
	if r.Validated {
		return ErrAlreadyValidated
	}
	if now.Before(r.Start) || now.After(r.ValidationDeadline()) {
		return ErrOutsideValidationWindow
	}
	return nil
}
