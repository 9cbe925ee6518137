package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/example/console-booking/internal/metrics"
	"github.com/example/console-booking/internal/scheduler"
)

const (
	// DefaultCreationTolerance is how far in the past a requested start may lie before
	// it is rejected instead of clamped to now.
	DefaultCreationTolerance = time.Minute
	// DefaultRetention is how long finished and expired reservations are kept.
	DefaultRetention = 24 * time.Hour
)

// ReservationServiceDeps groups the collaborators of ReservationService.
type ReservationServiceDeps struct {
	Reservations ReservationRepository
	Resources    ResourceRepository
	Guard        *Guard
	Locks        *ResourceLocks
	Metrics      metrics.Recorder
}

// ReservationServiceConfig tunes the reservation rules.
type ReservationServiceConfig struct {
	CreationTolerance time.Duration
	Retention         time.Duration
	Policy            scheduler.Policy
}

// ReservationService coordinates reservation creation, mutation and the derived schedule.
type ReservationService struct {
	reservations ReservationRepository
	resources    ResourceRepository
	guard        *Guard
	locks        *ResourceLocks
	metrics      metrics.Recorder
	config       ReservationServiceConfig
	idGenerator  func() string
	now          func() time.Time
	logger       *slog.Logger

	reportedMu sync.Mutex
	reported   map[string]struct{}
}

// NewReservationService constructs a reservation service.
func NewReservationService(deps ReservationServiceDeps, config ReservationServiceConfig, idGenerator func() string, now func() time.Time) *ReservationService {
	return NewReservationServiceWithLogger(deps, config, idGenerator, now, nil)
}

// NewReservationServiceWithLogger constructs a reservation service with a specified logger.
func NewReservationServiceWithLogger(deps ReservationServiceDeps, config ReservationServiceConfig, idGenerator func() string, now func() time.Time, logger *slog.Logger) *ReservationService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.NewNoopMetrics()
	}
	if deps.Locks == nil {
		deps.Locks = NewResourceLocks(DefaultLockTimeout, deps.Metrics)
	}
	if config.CreationTolerance <= 0 {
		config.CreationTolerance = DefaultCreationTolerance
	}
	if config.Retention <= 0 {
		config.Retention = DefaultRetention
	}

	return &ReservationService{
		reservations: deps.Reservations,
		resources:    deps.Resources,
		guard:        deps.Guard,
		locks:        deps.Locks,
		metrics:      deps.Metrics,
		config:       config,
		idGenerator:  idGenerator,
		now:          now,
		logger:       defaultLogger(logger),
		reported:     make(map[string]struct{}),
	}
}

func (s *ReservationService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "ReservationService", operation, attrs...)
}

// ListReservations returns stored reservations, optionally limited to one resource,
// ordered by requested start.
func (s *ReservationService) ListReservations(ctx context.Context, resourceID *string) ([]Reservation, error) {
	if s == nil {
		return nil, fmt.Errorf("ReservationService is nil")
	}
	if s.reservations == nil {
		return nil, nil
	}
	reservations, err := s.reservations.ListReservations(ctx, ReservationFilter{ResourceID: resourceID})
	if err != nil {
		return nil, mapReservationRepoError(err)
	}
	return reservations, nil
}

// ProjectSchedule returns the live theoretical schedule of a resource at now. A zero
// now means the service clock.
func (s *ReservationService) ProjectSchedule(ctx context.Context, resourceID string, now time.Time) ([]ScheduledReservation, error) {
	if s == nil {
		return nil, fmt.Errorf("ReservationService is nil")
	}
	if now.IsZero() {
		now = s.now()
	}
	if _, err := s.resource(ctx, resourceID); err != nil {
		return nil, err
	}

	stored, projections, err := s.project(ctx, resourceID, now, "")
	if err != nil {
		s.loggerWith(ctx, "ProjectSchedule", "resource_id", resourceID).
			ErrorContext(ctx, "failed to project schedule", "error", err, "error_kind", ErrorKind(err))
		return nil, err
	}

	byID := make(map[string]Reservation, len(stored))
	for _, r := range stored {
		byID[r.ID] = r
	}

	schedule := make([]ScheduledReservation, 0, len(projections))
	for _, p := range projections {
		schedule = append(schedule, ScheduledReservation{
			Reservation:      byID[p.Reservation.ID],
			TheoreticalStart: p.Window.Start,
			TheoreticalEnd:   p.Window.End,
			Status:           p.Status,
			Occupant:         p.Occupant,
		})
	}
	return schedule, nil
}

// NextAvailableStart returns the earliest conflict-free start on a resource at now.
// A zero now means the service clock.
func (s *ReservationService) NextAvailableStart(ctx context.Context, resourceID string, now time.Time) (time.Time, error) {
	if s == nil {
		return time.Time{}, fmt.Errorf("ReservationService is nil")
	}
	if now.IsZero() {
		now = s.now()
	}
	if _, err := s.resource(ctx, resourceID); err != nil {
		return time.Time{}, err
	}
	_, projections, err := s.project(ctx, resourceID, now, "")
	if err != nil {
		return time.Time{}, err
	}
	return scheduler.NextAvailableFromProjection(projections, now), nil
}

// Create books a resource. Non-admin callers need a whitelisted token and a 4-digit
// PIN; admin callers skip the token check and the reservation can then only be
// changed with the admin PIN.
func (s *ReservationService) Create(ctx context.Context, params CreateReservationParams) (reservation Reservation, err error) {
	if s == nil {
		err = fmt.Errorf("ReservationService is nil")
		return
	}

	logger := s.loggerWith(ctx, "Create",
		"client_id", params.Principal.ClientID,
		"resource_id", params.Input.ResourceID,
		"admin", params.Principal.Admin,
	)
	defer func() {
		s.metrics.RecordReservationMutation("create", mutationResult(err))
		if err != nil {
			logger.ErrorContext(ctx, "failed to create reservation", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("reservation_id", reservation.ID).InfoContext(ctx, "reservation created")
	}()

	if s.reservations == nil || s.resources == nil || s.guard == nil {
		err = fmt.Errorf("reservation service not configured")
		return
	}

	// An unknown token wins over every field error.
	if !params.Principal.Admin {
		if err = s.guard.AuthorizeCreation(params.AuthorizationToken); err != nil {
			return
		}
	}

	vErr := &ValidationError{}
	if strings.TrimSpace(params.Input.OwnerName) == "" {
		vErr.add("owner_name", "owner name is required")
	}
	if strings.TrimSpace(params.Input.ResourceID) == "" {
		vErr.add("resource_id", "resource is required")
	}
	if !params.Principal.Admin && !ValidOwnerPIN(params.PIN) {
		vErr.add("pin", "pin must be 4 digits")
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	now := s.now()
	var window scheduler.Window
	window, err = s.normalizeWindow(params.Input.Start, params.Input.End, now)
	if err != nil {
		return
	}

	ownerPIN := AdminCreatedMarker
	token := params.AuthorizationToken
	if params.Principal.Admin {
		token = ""
	} else {
		ownerPIN, err = s.guard.HashPIN(params.PIN)
		if err != nil {
			return
		}
	}

	// Unknown resources never get a lock entry.
	if _, err = s.resource(ctx, params.Input.ResourceID); err != nil {
		return
	}

	var release func()
	release, err = s.locks.Acquire(ctx, params.Input.ResourceID)
	if err != nil {
		return
	}
	defer release()

	now = s.now()
	if err = s.admit(ctx, params.Input.ResourceID, window, now, ""); err != nil {
		return
	}

	candidate := Reservation{
		ID:                 s.idGenerator(),
		ResourceID:         params.Input.ResourceID,
		OwnerName:          strings.TrimSpace(params.Input.OwnerName),
		AuthorizationToken: token,
		OwnerPIN:           ownerPIN,
		RequestedStart:     window.Start,
		RequestedEnd:       window.End,
		CreatedAt:          now,
	}

	reservation, err = s.reservations.CreateReservation(ctx, candidate)
	if err != nil {
		err = mapReservationRepoError(err)
		return
	}
	return
}

// Modify atomically replaces a reservation with a new window on the same resource. The
// replacement keeps the owner PIN and token, gets a fresh id and starts unvalidated.
func (s *ReservationService) Modify(ctx context.Context, params ModifyReservationParams) (reservation Reservation, err error) {
	if s == nil {
		err = fmt.Errorf("ReservationService is nil")
		return
	}

	logger := s.loggerWith(ctx, "Modify",
		"client_id", params.Principal.ClientID,
		"reservation_id", params.ReservationID,
	)
	defer func() {
		s.metrics.RecordReservationMutation("modify", mutationResult(err))
		if err != nil {
			logger.ErrorContext(ctx, "failed to modify reservation", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("replacement_id", reservation.ID).InfoContext(ctx, "reservation modified")
	}()

	if s.reservations == nil || s.resources == nil || s.guard == nil {
		err = fmt.Errorf("reservation service not configured")
		return
	}

	var existing Reservation
	var release func()
	existing, release, err = s.lockReservation(ctx, params.Principal, params.ReservationID, params.PIN)
	if err != nil {
		return
	}
	defer release()

	if params.Input.ResourceID != "" && params.Input.ResourceID != existing.ResourceID {
		vErr := &ValidationError{}
		vErr.add("resource_id", "a reservation cannot move to another resource")
		err = vErr
		return
	}

	now := s.now()
	var window scheduler.Window
	window, err = s.normalizeWindow(params.Input.Start, params.Input.End, now)
	if err != nil {
		return
	}
	if err = s.admit(ctx, existing.ResourceID, window, now, existing.ID); err != nil {
		return
	}

	ownerName := strings.TrimSpace(params.Input.OwnerName)
	if ownerName == "" {
		ownerName = existing.OwnerName
	}

	replacement := Reservation{
		ID:                 s.idGenerator(),
		ResourceID:         existing.ResourceID,
		OwnerName:          ownerName,
		AuthorizationToken: existing.AuthorizationToken,
		OwnerPIN:           existing.OwnerPIN,
		RequestedStart:     window.Start,
		RequestedEnd:       window.End,
		CreatedAt:          now,
	}

	reservation, err = s.reservations.ReplaceReservation(ctx, existing.ID, replacement)
	if err != nil {
		err = mapReservationRepoError(err)
		return
	}
	return
}

// Cancel deletes a reservation after checking the PIN.
func (s *ReservationService) Cancel(ctx context.Context, params ReservationActionParams) (err error) {
	if s == nil {
		return fmt.Errorf("ReservationService is nil")
	}

	logger := s.loggerWith(ctx, "Cancel",
		"client_id", params.Principal.ClientID,
		"reservation_id", params.ReservationID,
	)
	defer func() {
		s.metrics.RecordReservationMutation("cancel", mutationResult(err))
		if err != nil {
			logger.ErrorContext(ctx, "failed to cancel reservation", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "reservation cancelled")
	}()

	if s.reservations == nil || s.guard == nil {
		return fmt.Errorf("reservation service not configured")
	}

	_, release, err := s.lockReservation(ctx, params.Principal, params.ReservationID, params.PIN)
	if err != nil {
		return err
	}
	defer release()

	if err = s.reservations.DeleteReservation(ctx, params.ReservationID); err != nil {
		return mapReservationRepoError(err)
	}
	return nil
}

// Validate marks a reservation as started. It must happen within the grace period
// after the requested start.
func (s *ReservationService) Validate(ctx context.Context, params ReservationActionParams) (reservation Reservation, err error) {
	if s == nil {
		err = fmt.Errorf("ReservationService is nil")
		return
	}

	logger := s.loggerWith(ctx, "Validate",
		"client_id", params.Principal.ClientID,
		"reservation_id", params.ReservationID,
	)
	defer func() {
		s.metrics.RecordReservationMutation("validate", mutationResult(err))
		if err != nil {
			logger.ErrorContext(ctx, "failed to validate reservation", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "reservation validated")
	}()

	if s.reservations == nil || s.guard == nil {
		err = fmt.Errorf("reservation service not configured")
		return
	}

	var existing Reservation
	var release func()
	existing, release, err = s.lockReservation(ctx, params.Principal, params.ReservationID, params.PIN)
	if err != nil {
		return
	}
	defer release()

	now := s.now()
	if checkErr := scheduler.CheckValidation(existing.scheduling(), now); checkErr != nil {
		err = fmt.Errorf("%w: %w", ErrInvalidTransition, checkErr)
		return
	}

	reservation, err = s.reservations.MarkValidated(ctx, existing.ID, now)
	if err != nil {
		err = mapReservationRepoError(err)
		return
	}
	return
}

// Sweep reclassifies every resource's reservations, reports newly expired ones once
// and purges expired or finished reservations past the retention period. Resources
// whose lock is busy are skipped until the next pass.
func (s *ReservationService) Sweep(ctx context.Context) (result SweepResult, err error) {
	if s == nil {
		err = fmt.Errorf("ReservationService is nil")
		return
	}
	if s.reservations == nil || s.resources == nil {
		return
	}

	logger := s.loggerWith(ctx, "Sweep")
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "sweep failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		if result.Expired > 0 || result.Purged > 0 {
			logger.InfoContext(ctx, "sweep finished", "expired", result.Expired, "purged", result.Purged)
		}
	}()

	var resources []Resource
	resources, err = s.resources.ListResources(ctx)
	if err != nil {
		err = mapResourceRepoError(err)
		return
	}

	for _, resource := range resources {
		if err = ctx.Err(); err != nil {
			return
		}
		var expired, purged int
		expired, purged, err = s.sweepResource(ctx, logger, resource.ID)
		if errors.Is(err, ErrBusy) {
			logger.DebugContext(ctx, "resource busy, sweep deferred", "resource_id", resource.ID)
			err = nil
			continue
		}
		if err != nil {
			return
		}
		result.Expired += expired
		result.Purged += purged
	}

	s.metrics.RecordPurged(result.Purged)
	return
}

func (s *ReservationService) sweepResource(ctx context.Context, logger *slog.Logger, resourceID string) (expired, purged int, err error) {
	release, err := s.locks.Acquire(ctx, resourceID)
	if err != nil {
		return 0, 0, err
	}
	defer release()

	now := s.now()
	stored, err := s.reservations.ListReservations(ctx, ReservationFilter{ResourceID: &resourceID})
	if err != nil {
		return 0, 0, mapReservationRepoError(err)
	}
	statuses, err := s.config.Policy.Statuses(toScheduling(stored), now)
	if err != nil {
		return 0, 0, err
	}

	cutoff := now.Add(-s.config.Retention)
	var stale []string
	for _, r := range stored {
		status := statuses[r.ID]
		if status == scheduler.StatusExpired && s.markReported(r.ID) {
			expired++
			s.metrics.RecordReservationExpired(resourceID)
			logger.InfoContext(ctx, "reservation expired",
				"resource_id", resourceID,
				"reservation_id", r.ID,
				"requested_start", r.RequestedStart,
			)
		}
		switch status {
		case scheduler.StatusExpired, scheduler.StatusCompleted, scheduler.StatusOverdue:
			if r.RequestedEnd.Before(cutoff) {
				stale = append(stale, r.ID)
			}
		}
	}

	if len(stale) == 0 {
		return expired, 0, nil
	}
	purged, err = s.reservations.DeleteReservations(ctx, stale)
	if err != nil {
		return expired, 0, mapReservationRepoError(err)
	}
	s.forget(stale)
	return expired, purged, nil
}

func (s *ReservationService) markReported(id string) bool {
	s.reportedMu.Lock()
	defer s.reportedMu.Unlock()
	if _, ok := s.reported[id]; ok {
		return false
	}
	s.reported[id] = struct{}{}
	return true
}

func (s *ReservationService) forget(ids []string) {
	s.reportedMu.Lock()
	defer s.reportedMu.Unlock()
	for _, id := range ids {
		delete(s.reported, id)
	}
}

// lockReservation loads a reservation, takes its resource lock, reloads it and checks
// the caller may mutate it. The returned release must be called on success.
func (s *ReservationService) lockReservation(ctx context.Context, principal Principal, reservationID, pin string) (Reservation, func(), error) {
	if strings.TrimSpace(reservationID) == "" {
		return Reservation{}, nil, ErrNotFound
	}
	existing, err := s.reservations.GetReservation(ctx, reservationID)
	if err != nil {
		return Reservation{}, nil, mapReservationRepoError(err)
	}

	release, err := s.locks.Acquire(ctx, existing.ResourceID)
	if err != nil {
		return Reservation{}, nil, err
	}

	existing, err = s.reservations.GetReservation(ctx, reservationID)
	if err != nil {
		release()
		return Reservation{}, nil, mapReservationRepoError(err)
	}

	if !principal.Admin {
		if err := s.guard.AuthorizeMutation(existing, pin); err != nil {
			release()
			return Reservation{}, nil, err
		}
	}
	return existing, release, nil
}

// normalizeWindow rejects inverted windows and clamps a start slightly in the past
// to now, keeping the duration.
func (s *ReservationService) normalizeWindow(start, end, now time.Time) (scheduler.Window, error) {
	if start.IsZero() || end.IsZero() || !end.After(start) {
		return scheduler.Window{}, ErrInvalidWindow
	}
	if start.Before(now) {
		if now.Sub(start) > s.config.CreationTolerance {
			return scheduler.Window{}, ErrInvalidWindow
		}
		duration := end.Sub(start)
		start = now
		end = now.Add(duration)
	}
	return scheduler.Window{Start: start, End: end}, nil
}

// admit checks the resource accepts the window and that it collides with nothing on
// the live schedule. excludeID names a reservation being replaced.
func (s *ReservationService) admit(ctx context.Context, resourceID string, window scheduler.Window, now time.Time, excludeID string) error {
	resource, err := s.resource(ctx, resourceID)
	if err != nil {
		return err
	}
	if !resource.AllowsDuration(window.End.Sub(window.Start)) {
		return ErrInvalidDuration
	}
	if !resource.Enabled {
		return ErrResourceDisabled
	}

	_, projections, err := s.project(ctx, resourceID, now, excludeID)
	if err != nil {
		return err
	}
	if conflicts := scheduler.DetectConflicts(projections, window); len(conflicts) > 0 {
		return &ConflictError{
			NextAvailableStart: scheduler.NextAvailableFromProjection(projections, now),
			Conflicts:          conflicts,
		}
	}
	return nil
}

func (s *ReservationService) resource(ctx context.Context, resourceID string) (Resource, error) {
	if s.resources == nil || strings.TrimSpace(resourceID) == "" {
		return Resource{}, ErrNotFound
	}
	resource, err := s.resources.GetResource(ctx, resourceID)
	if err != nil {
		return Resource{}, mapResourceRepoError(err)
	}
	return resource, nil
}

// project loads a resource's reservations, drops excludeID and projects the rest.
func (s *ReservationService) project(ctx context.Context, resourceID string, now time.Time, excludeID string) ([]Reservation, []scheduler.Projection, error) {
	if s.reservations == nil {
		return nil, nil, nil
	}
	stored, err := s.reservations.ListReservations(ctx, ReservationFilter{ResourceID: &resourceID})
	if err != nil {
		return nil, nil, mapReservationRepoError(err)
	}
	if excludeID != "" {
		kept := stored[:0:0]
		for _, r := range stored {
			if r.ID != excludeID {
				kept = append(kept, r)
			}
		}
		stored = kept
	}
	projections, err := s.config.Policy.Project(toScheduling(stored), now)
	if err != nil {
		return nil, nil, err
	}
	return stored, projections, nil
}
