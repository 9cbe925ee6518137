package application

import (
	"slices"
	"time"

	"github.com/example/console-booking/internal/scheduler"
)

// Principal represents the caller of a service method. Admin is set when the caller
// presented the administrator PIN.
type Principal struct {
	Admin    bool
	ClientID string
}

// ResourceInput captures caller provided resource fields.
type ResourceInput struct {
	Name             string
	Type             string
	AllowedDurations []time.Duration
}

// Resource represents a bookable console.
type Resource struct {
	ID               string
	Name             string
	Type             string
	Enabled          bool
	AllowedDurations []time.Duration
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// AllowsDuration reports whether d is one of the resource's permitted lengths.
func (r Resource) AllowsDuration(d time.Duration) bool {
	return slices.Contains(r.AllowedDurations, d)
}

// CreateResourceParams wraps the data required to create a resource.
type CreateResourceParams struct {
	Principal Principal
	Input     ResourceInput
}

// UpdateResourceParams wraps the data required to update a resource.
type UpdateResourceParams struct {
	Principal  Principal
	ResourceID string
	Input      ResourceInput
}

// SetResourceEnabledParams wraps the data required to toggle a resource.
type SetResourceEnabledParams struct {
	Principal  Principal
	ResourceID string
	Enabled    bool
}

// Reservation represents a stored booking. OwnerPIN holds a hash or AdminCreatedMarker
// and must never leave the service boundary in clear form.
type Reservation struct {
	ID                 string
	ResourceID         string
	OwnerName          string
	AuthorizationToken string
	OwnerPIN           string
	RequestedStart     time.Time
	RequestedEnd       time.Time
	Validated          bool
	ValidatedAt        *time.Time
	CreatedAt          time.Time
}

// AdminCreated reports whether the reservation was created by an administrator.
func (r Reservation) AdminCreated() bool {
	return r.OwnerPIN == AdminCreatedMarker
}

func (r Reservation) scheduling() scheduler.Reservation {
	return scheduler.Reservation{
		ID:        r.ID,
		Start:     r.RequestedStart,
		End:       r.RequestedEnd,
		Validated: r.Validated,
	}
}

// ReservationInput captures caller provided reservation fields.
type ReservationInput struct {
	ResourceID string
	OwnerName  string
	Start      time.Time
	End        time.Time
}

// CreateReservationParams wraps the data required to create a reservation.
type CreateReservationParams struct {
	Principal          Principal
	AuthorizationToken string
	PIN                string
	Input              ReservationInput
}

// ModifyReservationParams wraps the data required to replace a reservation.
type ModifyReservationParams struct {
	Principal     Principal
	ReservationID string
	PIN           string
	Input         ReservationInput
}

// ReservationActionParams identifies a reservation and the PIN authorizing the action.
type ReservationActionParams struct {
	Principal     Principal
	ReservationID string
	PIN           string
}

// ScheduledReservation is a live reservation placed on the theoretical timeline.
type ScheduledReservation struct {
	Reservation      Reservation
	TheoreticalStart time.Time
	TheoreticalEnd   time.Time
	Status           scheduler.Status
	Occupant         bool
}

// SweepResult summarises one sweeper pass.
type SweepResult struct {
	Expired int
	Purged  int
}
