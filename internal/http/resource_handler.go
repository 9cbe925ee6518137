package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/console-booking/internal/application"
)

type resourceService interface {
	CreateResource(ctx context.Context, params application.CreateResourceParams) (application.Resource, error)
	UpdateResource(ctx context.Context, params application.UpdateResourceParams) (application.Resource, error)
	SetResourceEnabled(ctx context.Context, params application.SetResourceEnabledParams) (application.Resource, error)
	DeleteResource(ctx context.Context, principal application.Principal, resourceID string) error
	GetResource(ctx context.Context, resourceID string) (application.Resource, error)
	ListResources(ctx context.Context) ([]application.Resource, error)
}

type scheduleService interface {
	ProjectSchedule(ctx context.Context, resourceID string, now time.Time) ([]application.ScheduledReservation, error)
	NextAvailableStart(ctx context.Context, resourceID string, now time.Time) (time.Time, error)
}

type ResourceHandler struct {
	service   resourceService
	schedules scheduleService
	responder responder
	logger    *slog.Logger
}

func NewResourceHandler(service resourceService, schedules scheduleService, logger *slog.Logger) *ResourceHandler {
	base := defaultLogger(logger)
	return &ResourceHandler{service: service, schedules: schedules, responder: newResponder(base), logger: base}
}

func (h *ResourceHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "ResourceHandler", operation, attrs...)
}

func (h *ResourceHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req resourceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Create", "client_id", principal.ClientID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode resource request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Create", "client_id", principal.ClientID)

	resource, err := h.service.CreateResource(r.Context(), application.CreateResourceParams{
		Principal: principal,
		Input:     req.toInput(),
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "resource creation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("resource_id", resource.ID).InfoContext(r.Context(), "resource created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, resourceResponse{Resource: toResourceDTO(resource)})
}

func (h *ResourceHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	resourceID, ok := h.resourceID(w, r, "Get")
	if !ok {
		return
	}

	resource, err := h.service.GetResource(r.Context(), resourceID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, resourceResponse{Resource: toResourceDTO(resource)})
}

func (h *ResourceHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	resourceID, ok := h.resourceID(w, r, "Update")
	if !ok {
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req resourceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Update", "client_id", principal.ClientID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode resource update", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Update", "client_id", principal.ClientID)

	resource, err := h.service.UpdateResource(r.Context(), application.UpdateResourceParams{
		Principal:  principal,
		ResourceID: resourceID,
		Input:      req.toInput(),
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "resource update failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "resource updated")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, resourceResponse{Resource: toResourceDTO(resource)})
}

func (h *ResourceHandler) SetEnabled(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	resourceID, ok := h.resourceID(w, r, "SetEnabled")
	if !ok {
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req enabledRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Enabled == nil {
		h.log(r.Context(), "SetEnabled", "client_id", principal.ClientID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode enabled flag", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "SetEnabled", "client_id", principal.ClientID, "enabled", *req.Enabled)

	resource, err := h.service.SetResourceEnabled(r.Context(), application.SetResourceEnabledParams{
		Principal:  principal,
		ResourceID: resourceID,
		Enabled:    *req.Enabled,
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "resource toggle failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "resource toggled")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, resourceResponse{Resource: toResourceDTO(resource)})
}

func (h *ResourceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	resourceID, ok := h.resourceID(w, r, "Delete")
	if !ok {
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "Delete", "client_id", principal.ClientID)
	if err := h.service.DeleteResource(r.Context(), principal, resourceID); err != nil {
		logger.ErrorContext(r.Context(), "resource delete failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "resource deleted")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *ResourceHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	logger := h.log(r.Context(), "List")
	resources, err := h.service.ListResources(r.Context())
	if err != nil {
		logger.ErrorContext(r.Context(), "resource list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("result_count", len(resources)).DebugContext(r.Context(), "resources listed")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listResourcesResponse{Resources: toResourceDTOs(resources)})
}

// Schedule renders the theoretical schedule at ?at= (RFC 3339), defaulting to now.
func (h *ResourceHandler) Schedule(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.schedules == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	resourceID, ok := h.resourceID(w, r, "Schedule")
	if !ok {
		return
	}
	at, err := parseInstant(r, "at")
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidInstant)
		return
	}

	schedule, err := h.schedules.ProjectSchedule(r.Context(), resourceID, at)
	if err != nil {
		h.log(r.Context(), "Schedule").ErrorContext(r.Context(), "schedule projection failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	entries := make([]scheduleEntryDTO, 0, len(schedule))
	for _, entry := range schedule {
		entries = append(entries, toScheduleEntryDTO(entry))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, scheduleResponse{ResourceID: resourceID, Entries: entries})
}

// NextSlot reports the earliest conflict-free start at ?at=, defaulting to now.
func (h *ResourceHandler) NextSlot(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.schedules == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	resourceID, ok := h.resourceID(w, r, "NextSlot")
	if !ok {
		return
	}
	at, err := parseInstant(r, "at")
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidInstant)
		return
	}

	next, err := h.schedules.NextAvailableStart(r.Context(), resourceID, at)
	if err != nil {
		h.log(r.Context(), "NextSlot").ErrorContext(r.Context(), "next slot lookup failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, nextSlotResponse{
		ResourceID:         resourceID,
		NextAvailableStart: formatInstant(next),
	})
}

func (h *ResourceHandler) resourceID(w http.ResponseWriter, r *http.Request, operation string) (string, bool) {
	resourceID, ok := ResourceIDFromContext(r.Context())
	if !ok || strings.TrimSpace(resourceID) == "" {
		h.log(r.Context(), operation, "error_kind", "bad_request").ErrorContext(r.Context(), "missing resource id")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidResourceID)
		return "", false
	}
	return resourceID, true
}

type resourceRequest struct {
	Name                    string `json:"name"`
	Type                    string `json:"type"`
	AllowedDurationsMinutes []int  `json:"allowed_durations_minutes"`
}

func (r resourceRequest) toInput() application.ResourceInput {
	durations := make([]time.Duration, 0, len(r.AllowedDurationsMinutes))
	for _, minutes := range r.AllowedDurationsMinutes {
		durations = append(durations, time.Duration(minutes)*time.Minute)
	}
	return application.ResourceInput{
		Name:             strings.TrimSpace(r.Name),
		Type:             strings.TrimSpace(r.Type),
		AllowedDurations: durations,
	}
}

type enabledRequest struct {
	Enabled *bool `json:"enabled"`
}

type resourceResponse struct {
	Resource resourceDTO `json:"resource"`
}

type listResourcesResponse struct {
	Resources []resourceDTO `json:"resources"`
}

type resourceDTO struct {
	ID                      string `json:"id"`
	Name                    string `json:"name"`
	Type                    string `json:"type"`
	Enabled                 bool   `json:"enabled"`
	AllowedDurationsMinutes []int  `json:"allowed_durations_minutes"`
	CreatedAt               string `json:"created_at"`
	UpdatedAt               string `json:"updated_at"`
}

func toResourceDTO(resource application.Resource) resourceDTO {
	minutes := make([]int, 0, len(resource.AllowedDurations))
	for _, d := range resource.AllowedDurations {
		minutes = append(minutes, int(d/time.Minute))
	}
	return resourceDTO{
		ID:                      resource.ID,
		Name:                    resource.Name,
		Type:                    resource.Type,
		Enabled:                 resource.Enabled,
		AllowedDurationsMinutes: minutes,
		CreatedAt:               formatInstant(resource.CreatedAt),
		UpdatedAt:               formatInstant(resource.UpdatedAt),
	}
}

func toResourceDTOs(resources []application.Resource) []resourceDTO {
	out := make([]resourceDTO, 0, len(resources))
	for _, resource := range resources {
		out = append(out, toResourceDTO(resource))
	}
	return out
}

type scheduleResponse struct {
	ResourceID string             `json:"resource_id"`
	Entries    []scheduleEntryDTO `json:"entries"`
}

type scheduleEntryDTO struct {
	Reservation      reservationDTO `json:"reservation"`
	TheoreticalStart string         `json:"theoretical_start"`
	TheoreticalEnd   string         `json:"theoretical_end"`
	Status           string         `json:"status"`
	Occupant         bool           `json:"occupant"`
}

func toScheduleEntryDTO(entry application.ScheduledReservation) scheduleEntryDTO {
	return scheduleEntryDTO{
		Reservation:      toReservationDTO(entry.Reservation),
		TheoreticalStart: formatInstant(entry.TheoreticalStart),
		TheoreticalEnd:   formatInstant(entry.TheoreticalEnd),
		Status:           string(entry.Status),
		Occupant:         entry.Occupant,
	}
}

type nextSlotResponse struct {
	ResourceID         string `json:"resource_id"`
	NextAvailableStart string `json:"next_available_start"`
}

func parseInstant(r *http.Request, key string) (time.Time, error) {
	value := strings.TrimSpace(r.URL.Query().Get(key))
	if value == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, value)
}

func formatInstant(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}
