package persistence

import (
	"context"
	"time"
)

// ResourceRepository exposes CRUD operations for resources.
type ResourceRepository interface {
	CreateResource(ctx context.Context, resource Resource) error
	UpdateResource(ctx context.Context, resource Resource) error
	GetResource(ctx context.Context, id string) (Resource, error)
	ListResources(ctx context.Context) ([]Resource, error)
	// DeleteResource removes the resource together with its reservations.
	DeleteResource(ctx context.Context, id string) error
}

// ReservationFilter narrows reservation queries.
type ReservationFilter struct {
	ResourceID *string
	EndsBefore *time.Time
}

// ReservationRepository stores reservations.
type ReservationRepository interface {
	CreateReservation(ctx context.Context, reservation Reservation) error
	GetReservation(ctx context.Context, id string) (Reservation, error)
	ListReservations(ctx context.Context, filter ReservationFilter) ([]Reservation, error)
	MarkValidated(ctx context.Context, id string, validatedAt time.Time) error
	// ReplaceReservation deletes oldID and inserts replacement atomically.
	ReplaceReservation(ctx context.Context, oldID string, replacement Reservation) error
	DeleteReservation(ctx context.Context, id string) error
	DeleteReservations(ctx context.Context, ids []string) (int, error)
}

// TokenRepository stores the authorization token whitelist.
type TokenRepository interface {
	AddToken(ctx context.Context, token AuthorizationToken) error
	DeleteToken(ctx context.Context, token string) error
	ListTokens(ctx context.Context) ([]AuthorizationToken, error)
}
