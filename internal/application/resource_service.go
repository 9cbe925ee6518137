package application

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/example/console-booking/internal/scheduler"
)

// ResourceService orchestrates validation, authorization, and persistence for resources.
type ResourceService struct {
	resources    ResourceRepository
	reservations ReservationRepository
	locks        *ResourceLocks
	policy       scheduler.Policy
	idGenerator  func() string
	now          func() time.Time
	logger       *slog.Logger
}

// NewResourceService constructs a resource service with the provided dependencies.
func NewResourceService(resources ResourceRepository, reservations ReservationRepository, locks *ResourceLocks, policy scheduler.Policy, idGenerator func() string, now func() time.Time) *ResourceService {
	return NewResourceServiceWithLogger(resources, reservations, locks, policy, idGenerator, now, nil)
}

// NewResourceServiceWithLogger constructs a resource service with a specified logger.
func NewResourceServiceWithLogger(resources ResourceRepository, reservations ReservationRepository, locks *ResourceLocks, policy scheduler.Policy, idGenerator func() string, now func() time.Time, logger *slog.Logger) *ResourceService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	if locks == nil {
		locks = NewResourceLocks(DefaultLockTimeout, nil)
	}
	return &ResourceService{
		resources:    resources,
		reservations: reservations,
		locks:        locks,
		policy:       policy,
		idGenerator:  idGenerator,
		now:          now,
		logger:       defaultLogger(logger),
	}
}

func (s *ResourceService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "ResourceService", operation, attrs...)
}

// CreateResource validates input and persists a new, enabled resource for administrators.
func (s *ResourceService) CreateResource(ctx context.Context, params CreateResourceParams) (resource Resource, err error) {
	if s == nil {
		err = fmt.Errorf("ResourceService is nil")
		return
	}

	logger := s.loggerWith(ctx, "CreateResource", "client_id", params.Principal.ClientID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create resource", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("resource_id", resource.ID).InfoContext(ctx, "resource created")
	}()

	if !params.Principal.Admin {
		err = ErrUnauthorized
		return
	}

	vErr := validateResourceInput(params.Input)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	resource = Resource{
		ID:               s.idGenerator(),
		Name:             strings.TrimSpace(params.Input.Name),
		Type:             strings.TrimSpace(params.Input.Type),
		Enabled:          true,
		AllowedDurations: normalizeDurations(params.Input.AllowedDurations),
		CreatedAt:        s.now(),
	}
	resource.UpdatedAt = resource.CreatedAt

	if s.resources == nil {
		return
	}

	var persisted Resource
	persisted, err = s.resources.CreateResource(ctx, resource)
	if err != nil {
		err = mapResourceRepoError(err)
		return
	}

	resource = persisted
	return
}

// UpdateResource changes the name, type and duration set of a resource. The enabled
// flag is left untouched; use SetResourceEnabled for that.
func (s *ResourceService) UpdateResource(ctx context.Context, params UpdateResourceParams) (resource Resource, err error) {
	if s == nil {
		err = fmt.Errorf("ResourceService is nil")
		return
	}
	if !params.Principal.Admin {
		err = ErrUnauthorized
		return
	}
	if s.resources == nil {
		err = fmt.Errorf("resource repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "UpdateResource",
		"client_id", params.Principal.ClientID,
		"resource_id", params.ResourceID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update resource", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "resource updated")
	}()

	vErr := validateResourceInput(params.Input)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	var release func()
	release, err = s.locks.Acquire(ctx, params.ResourceID)
	if err != nil {
		return
	}
	defer release()

	var existing Resource
	existing, err = s.resources.GetResource(ctx, params.ResourceID)
	if err != nil {
		err = mapResourceRepoError(err)
		return
	}

	updated := existing
	updated.Name = strings.TrimSpace(params.Input.Name)
	updated.Type = strings.TrimSpace(params.Input.Type)
	updated.AllowedDurations = normalizeDurations(params.Input.AllowedDurations)
	updated.UpdatedAt = s.now()

	resource, err = s.resources.UpdateResource(ctx, updated)
	if err != nil {
		err = mapResourceRepoError(err)
		return
	}
	return
}

// SetResourceEnabled toggles a resource. Disabling fails with ErrResourceInUse while a
// reservation of the resource is awaiting validation or active.
func (s *ResourceService) SetResourceEnabled(ctx context.Context, params SetResourceEnabledParams) (resource Resource, err error) {
	if s == nil {
		err = fmt.Errorf("ResourceService is nil")
		return
	}
	if !params.Principal.Admin {
		err = ErrUnauthorized
		return
	}
	if s.resources == nil {
		err = fmt.Errorf("resource repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "SetResourceEnabled",
		"client_id", params.Principal.ClientID,
		"resource_id", params.ResourceID,
		"enabled", params.Enabled,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to toggle resource", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "resource toggled")
	}()

	var release func()
	release, err = s.locks.Acquire(ctx, params.ResourceID)
	if err != nil {
		return
	}
	defer release()

	var existing Resource
	existing, err = s.resources.GetResource(ctx, params.ResourceID)
	if err != nil {
		err = mapResourceRepoError(err)
		return
	}
	if existing.Enabled == params.Enabled {
		resource = existing
		return
	}

	if !params.Enabled {
		if err = s.ensureIdle(ctx, existing.ID); err != nil {
			return
		}
	}

	existing.Enabled = params.Enabled
	existing.UpdatedAt = s.now()
	resource, err = s.resources.UpdateResource(ctx, existing)
	if err != nil {
		err = mapResourceRepoError(err)
		return
	}
	return
}

// DeleteResource removes a resource and its reservations unless something is in progress.
func (s *ResourceService) DeleteResource(ctx context.Context, principal Principal, resourceID string) error {
	if s == nil {
		return fmt.Errorf("ResourceService is nil")
	}
	if !principal.Admin {
		return ErrUnauthorized
	}
	if s.resources == nil {
		return fmt.Errorf("resource repository not configured")
	}

	logger := s.loggerWith(ctx, "DeleteResource",
		"client_id", principal.ClientID,
		"resource_id", resourceID,
	)

	err := s.deleteResource(ctx, resourceID)
	if err != nil {
		logger.ErrorContext(ctx, "failed to delete resource", "error", err, "error_kind", ErrorKind(err))
		return err
	}

	logger.InfoContext(ctx, "resource deleted")
	return nil
}

func (s *ResourceService) deleteResource(ctx context.Context, resourceID string) error {
	release, err := s.locks.Acquire(ctx, resourceID)
	if err != nil {
		return err
	}
	defer release()

	if _, err := s.resources.GetResource(ctx, resourceID); err != nil {
		return mapResourceRepoError(err)
	}
	if err := s.ensureIdle(ctx, resourceID); err != nil {
		return err
	}
	return mapResourceRepoError(s.resources.DeleteResource(ctx, resourceID))
}

// GetResource returns a single resource.
func (s *ResourceService) GetResource(ctx context.Context, resourceID string) (Resource, error) {
	if s == nil {
		return Resource{}, fmt.Errorf("ResourceService is nil")
	}
	if s.resources == nil {
		return Resource{}, ErrNotFound
	}
	resource, err := s.resources.GetResource(ctx, resourceID)
	if err != nil {
		return Resource{}, mapResourceRepoError(err)
	}
	return resource, nil
}

// ListResources returns every resource ordered by name.
func (s *ResourceService) ListResources(ctx context.Context) (resources []Resource, err error) {
	if s == nil {
		err = fmt.Errorf("ResourceService is nil")
		return
	}
	if s.resources == nil {
		return nil, nil
	}

	logger := s.loggerWith(ctx, "ListResources")
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to list resources", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("result_count", len(resources)).DebugContext(ctx, "resources listed")
	}()

	var raw []Resource
	raw, err = s.resources.ListResources(ctx)
	if err != nil {
		err = mapResourceRepoError(err)
		return
	}

	resources = make([]Resource, len(raw))
	copy(resources, raw)

	sort.Slice(resources, func(i, j int) bool {
		if strings.EqualFold(resources[i].Name, resources[j].Name) {
			return resources[i].ID < resources[j].ID
		}
		return strings.ToLower(resources[i].Name) < strings.ToLower(resources[j].Name)
	})
	return
}

// ensureIdle fails with ErrResourceInUse when a reservation currently holds the resource.
func (s *ResourceService) ensureIdle(ctx context.Context, resourceID string) error {
	if s.reservations == nil {
		return nil
	}
	stored, err := s.reservations.ListReservations(ctx, ReservationFilter{ResourceID: &resourceID})
	if err != nil {
		return mapReservationRepoError(err)
	}
	statuses, err := s.policy.Statuses(toScheduling(stored), s.now())
	if err != nil {
		return err
	}
	for _, status := range statuses {
		if status.InProgress() {
			return ErrResourceInUse
		}
	}
	return nil
}

func validateResourceInput(input ResourceInput) *ValidationError {
	vErr := &ValidationError{}

	if strings.TrimSpace(input.Name) == "" {
		vErr.add("name", "name is required")
	}
	if strings.TrimSpace(input.Type) == "" {
		vErr.add("type", "type is required")
	}
	if len(input.AllowedDurations) == 0 {
		vErr.add("allowed_durations", "at least one duration is required")
	}
	for _, d := range input.AllowedDurations {
		if d <= 0 || d%time.Minute != 0 {
			vErr.add("allowed_durations", "durations must be positive whole minutes")
			break
		}
	}

	return vErr
}

func normalizeDurations(durations []time.Duration) []time.Duration {
	out := slices.Clone(durations)
	slices.Sort(out)
	return slices.Compact(out)
}

func toScheduling(reservations []Reservation) []scheduler.Reservation {
	out := make([]scheduler.Reservation, len(reservations))
	for i, r := range reservations {
		out[i] = r.scheduling()
	}
	return out
}
