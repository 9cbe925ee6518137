package main

import (
	"context"
	"errors"
	"time"

	"github.com/example/console-booking/internal/application"
	"github.com/example/console-booking/internal/persistence"
)

type resourceRepositoryAdapter struct {
	repo persistence.ResourceRepository
}

func newResourceRepositoryAdapter(repo persistence.ResourceRepository) *resourceRepositoryAdapter {
	return &resourceRepositoryAdapter{repo: repo}
}

func (a *resourceRepositoryAdapter) CreateResource(ctx context.Context, resource application.Resource) (application.Resource, error) {
	if err := a.repo.CreateResource(ctx, toPersistenceResource(resource)); err != nil {
		return application.Resource{}, err
	}
	return a.GetResource(ctx, resource.ID)
}

func (a *resourceRepositoryAdapter) GetResource(ctx context.Context, id string) (application.Resource, error) {
	stored, err := a.repo.GetResource(ctx, id)
	if err != nil {
		return application.Resource{}, err
	}
	return toApplicationResource(stored), nil
}

func (a *resourceRepositoryAdapter) UpdateResource(ctx context.Context, resource application.Resource) (application.Resource, error) {
	if err := a.repo.UpdateResource(ctx, toPersistenceResource(resource)); err != nil {
		return application.Resource{}, err
	}
	return a.GetResource(ctx, resource.ID)
}

func (a *resourceRepositoryAdapter) DeleteResource(ctx context.Context, id string) error {
	return a.repo.DeleteResource(ctx, id)
}

func (a *resourceRepositoryAdapter) ListResources(ctx context.Context) ([]application.Resource, error) {
	models, err := a.repo.ListResources(ctx)
	if err != nil {
		return nil, err
	}
	resources := make([]application.Resource, 0, len(models))
	for _, model := range models {
		resources = append(resources, toApplicationResource(model))
	}
	return resources, nil
}

type reservationRepositoryAdapter struct {
	repo persistence.ReservationRepository
}

func newReservationRepositoryAdapter(repo persistence.ReservationRepository) *reservationRepositoryAdapter {
	return &reservationRepositoryAdapter{repo: repo}
}

func (a *reservationRepositoryAdapter) CreateReservation(ctx context.Context, reservation application.Reservation) (application.Reservation, error) {
	if err := a.repo.CreateReservation(ctx, toPersistenceReservation(reservation)); err != nil {
		return application.Reservation{}, err
	}
	return a.GetReservation(ctx, reservation.ID)
}

func (a *reservationRepositoryAdapter) GetReservation(ctx context.Context, id string) (application.Reservation, error) {
	stored, err := a.repo.GetReservation(ctx, id)
	if err != nil {
		return application.Reservation{}, err
	}
	return toApplicationReservation(stored), nil
}

func (a *reservationRepositoryAdapter) ListReservations(ctx context.Context, filter application.ReservationFilter) ([]application.Reservation, error) {
	models, err := a.repo.ListReservations(ctx, persistence.ReservationFilter{
		ResourceID: filter.ResourceID,
		EndsBefore: filter.EndsBefore,
	})
	if err != nil {
		return nil, err
	}
	reservations := make([]application.Reservation, 0, len(models))
	for _, model := range models {
		reservations = append(reservations, toApplicationReservation(model))
	}
	return reservations, nil
}

func (a *reservationRepositoryAdapter) MarkValidated(ctx context.Context, id string, validatedAt time.Time) (application.Reservation, error) {
	if err := a.repo.MarkValidated(ctx, id, validatedAt); err != nil {
		return application.Reservation{}, err
	}
	return a.GetReservation(ctx, id)
}

func (a *reservationRepositoryAdapter) ReplaceReservation(ctx context.Context, oldID string, replacement application.Reservation) (application.Reservation, error) {
	if err := a.repo.ReplaceReservation(ctx, oldID, toPersistenceReservation(replacement)); err != nil {
		return application.Reservation{}, err
	}
	return a.GetReservation(ctx, replacement.ID)
}

func (a *reservationRepositoryAdapter) DeleteReservation(ctx context.Context, id string) error {
	return a.repo.DeleteReservation(ctx, id)
}

func (a *reservationRepositoryAdapter) DeleteReservations(ctx context.Context, ids []string) (int, error) {
	return a.repo.DeleteReservations(ctx, ids)
}

// tokenRepositoryAdapter translates storage errors because the guard compares
// against application sentinels only.
type tokenRepositoryAdapter struct {
	repo persistence.TokenRepository
}

func newTokenRepositoryAdapter(repo persistence.TokenRepository) *tokenRepositoryAdapter {
	return &tokenRepositoryAdapter{repo: repo}
}

func (a *tokenRepositoryAdapter) AddToken(ctx context.Context, token string, createdAt time.Time) error {
	err := a.repo.AddToken(ctx, persistence.AuthorizationToken{Token: token, CreatedAt: createdAt})
	if errors.Is(err, persistence.ErrDuplicate) {
		return application.ErrAlreadyExists
	}
	return err
}

func (a *tokenRepositoryAdapter) DeleteToken(ctx context.Context, token string) error {
	err := a.repo.DeleteToken(ctx, token)
	if errors.Is(err, persistence.ErrNotFound) {
		return application.ErrNotFound
	}
	return err
}

func (a *tokenRepositoryAdapter) ListTokens(ctx context.Context) ([]string, error) {
	models, err := a.repo.ListTokens(ctx)
	if err != nil {
		return nil, err
	}
	tokens := make([]string, 0, len(models))
	for _, model := range models {
		tokens = append(tokens, model.Token)
	}
	return tokens, nil
}

func toApplicationResource(model persistence.Resource) application.Resource {
	durations := make([]time.Duration, 0, len(model.DurationsMinutes))
	for _, minutes := range model.DurationsMinutes {
		durations = append(durations, time.Duration(minutes)*time.Minute)
	}
	return application.Resource{
		ID:               model.ID,
		Name:             model.Name,
		Type:             model.Type,
		Enabled:          model.Enabled,
		AllowedDurations: durations,
		CreatedAt:        model.CreatedAt,
		UpdatedAt:        model.UpdatedAt,
	}
}

func toPersistenceResource(resource application.Resource) persistence.Resource {
	minutes := make([]int, 0, len(resource.AllowedDurations))
	for _, d := range resource.AllowedDurations {
		minutes = append(minutes, int(d/time.Minute))
	}
	return persistence.Resource{
		ID:               resource.ID,
		Name:             resource.Name,
		Type:             resource.Type,
		Enabled:          resource.Enabled,
		DurationsMinutes: minutes,
		CreatedAt:        resource.CreatedAt,
		UpdatedAt:        resource.UpdatedAt,
	}
}

func toApplicationReservation(model persistence.Reservation) application.Reservation {
	return application.Reservation{
		ID:                 model.ID,
		ResourceID:         model.ResourceID,
		OwnerName:          model.OwnerName,
		AuthorizationToken: model.AuthorizationToken,
		OwnerPIN:           model.OwnerPIN,
		RequestedStart:     model.RequestedStart,
		RequestedEnd:       model.RequestedEnd,
		Validated:          model.Validated,
		ValidatedAt:        cloneTime(model.ValidatedAt),
		CreatedAt:          model.CreatedAt,
	}
}

func toPersistenceReservation(reservation application.Reservation) persistence.Reservation {
	return persistence.Reservation{
		ID:                 reservation.ID,
		ResourceID:         reservation.ResourceID,
		OwnerName:          reservation.OwnerName,
		AuthorizationToken: reservation.AuthorizationToken,
		OwnerPIN:           reservation.OwnerPIN,
		RequestedStart:     reservation.RequestedStart,
		RequestedEnd:       reservation.RequestedEnd,
		Validated:          reservation.Validated,
		ValidatedAt:        cloneTime(reservation.ValidatedAt),
		CreatedAt:          reservation.CreatedAt,
	}
}

func cloneTime(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	cloned := *value
	return &cloned
}
