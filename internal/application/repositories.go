package application

import (
	"context"
	"errors"
	"time"

	"github.com/example/console-booking/internal/persistence"
)

// ResourceRepository captures the resource persistence operations needed by the services.
type ResourceRepository interface {
	CreateResource(ctx context.Context, resource Resource) (Resource, error)
	GetResource(ctx context.Context, id string) (Resource, error)
	UpdateResource(ctx context.Context, resource Resource) (Resource, error)
	DeleteResource(ctx context.Context, id string) error
	ListResources(ctx context.Context) ([]Resource, error)
}

// ReservationFilter narrows reservation listings.
type ReservationFilter struct {
	ResourceID *string
	EndsBefore *time.Time
}

// ReservationRepository captures the reservation persistence operations needed by the services.
type ReservationRepository interface {
	CreateReservation(ctx context.Context, reservation Reservation) (Reservation, error)
	GetReservation(ctx context.Context, id string) (Reservation, error)
	ListReservations(ctx context.Context, filter ReservationFilter) ([]Reservation, error)
	MarkValidated(ctx context.Context, id string, validatedAt time.Time) (Reservation, error)
	ReplaceReservation(ctx context.Context, oldID string, replacement Reservation) (Reservation, error)
	DeleteReservation(ctx context.Context, id string) error
	DeleteReservations(ctx context.Context, ids []string) (int, error)
}

func mapResourceRepoError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, persistence.ErrNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, ErrAlreadyExists) || errors.Is(err, persistence.ErrDuplicate) {
		return ErrAlreadyExists
	}
	if errors.Is(err, persistence.ErrConstraintViolation) {
		vErr := &ValidationError{}
		vErr.add("allowed_durations", "durations must be positive minutes")
		return vErr
	}
	return err
}

func mapReservationRepoError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, persistence.ErrNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, ErrAlreadyExists) || errors.Is(err, persistence.ErrDuplicate) {
		return ErrAlreadyExists
	}
	if errors.Is(err, persistence.ErrConstraintViolation) {
		return ErrInvalidTransition
	}
	return err
}
