package application

import (
	"errors"
	"fmt"
	"time"

	"github.com/example/console-booking/internal/scheduler"
)

var (
	// ErrUnauthorized is returned when the acting principal lacks permission for an operation.
	ErrUnauthorized = errors.New("application: unauthorized")
	// ErrInvalidToken is returned when an authorization token is malformed or not whitelisted.
	ErrInvalidToken = fmt.Errorf("%w: invalid authorization token", ErrUnauthorized)
	// ErrInvalidPIN is returned when the supplied PIN matches neither the owner PIN nor the admin PIN.
	ErrInvalidPIN = fmt.Errorf("%w: invalid pin", ErrUnauthorized)
	// ErrNotFound is returned when the requested resource does not exist.
	ErrNotFound = errors.New("application: not found")
	// ErrAlreadyExists is returned when a unique attribute is already taken.
	ErrAlreadyExists = errors.New("application: already exists")
	// ErrInvalidDuration is returned when a reservation length is not allowed by its resource.
	ErrInvalidDuration = errors.New("application: invalid duration")
	// ErrInvalidWindow is returned when a reservation ends before it starts or starts too far in the past.
	ErrInvalidWindow = errors.New("application: invalid window")
	// ErrResourceDisabled is returned when reserving a disabled resource.
	ErrResourceDisabled = errors.New("application: resource disabled")
	// ErrResourceInUse is returned when disabling or deleting a resource that is in progress.
	ErrResourceInUse = errors.New("application: resource in use")
	// ErrInvalidTransition is returned when validating twice or outside the validation window.
	ErrInvalidTransition = errors.New("application: invalid transition")
	// ErrSlotConflict is returned when a requested window collides with the live schedule.
	ErrSlotConflict = errors.New("application: slot conflict")
	// ErrBusy is returned when the per-resource lock could not be acquired in time.
	ErrBusy = errors.New("application: busy")
	// ErrDataCorruption is returned when stored reservations violate their invariants.
	ErrDataCorruption = scheduler.ErrDataCorruption
)

// ConflictError reports a slot conflict together with the earliest free start.
type ConflictError struct {
	NextAvailableStart time.Time
	Conflicts          []scheduler.Conflict
}

// Error implements the error interface.
func (e *ConflictError) Error() string {
	return fmt.Sprintf("%v: next available start %s", ErrSlotConflict, e.NextAvailableStart.Format(time.RFC3339))
}

// Unwrap lets errors.Is match ErrSlotConflict.
func (e *ConflictError) Unwrap() error {
	return ErrSlotConflict
}

// ValidationError captures field level validation issues that callers can surface to users.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil || len(v.FieldErrors) == 0 {
		return "validation failed"
	}
	return fmt.Sprintf("validation failed: %d field(s)", len(v.FieldErrors))
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// add records a field level validation error.
func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	v.FieldErrors[field] = message
}

// merge copies entries from another validation error into the receiver.
func (v *ValidationError) merge(other *ValidationError) {
	if other == nil || len(other.FieldErrors) == 0 {
		return
	}
	for field, msg := range other.FieldErrors {
		v.add(field, msg)
	}
}
