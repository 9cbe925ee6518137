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

type reservationService interface {
	ListReservations(ctx context.Context, resourceID *string) ([]application.Reservation, error)
	Create(ctx context.Context, params application.CreateReservationParams) (application.Reservation, error)
	Modify(ctx context.Context, params application.ModifyReservationParams) (application.Reservation, error)
	Cancel(ctx context.Context, params application.ReservationActionParams) error
	Validate(ctx context.Context, params application.ReservationActionParams) (application.Reservation, error)
}

type ReservationHandler struct {
	service   reservationService
	responder responder
	logger    *slog.Logger
}

func NewReservationHandler(service reservationService, logger *slog.Logger) *ReservationHandler {
	base := defaultLogger(logger)
	return &ReservationHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *ReservationHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "ReservationHandler", operation, attrs...)
}

// List returns stored reservations, optionally filtered with ?resource_id=.
func (h *ReservationHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var filter *string
	if resourceID := strings.TrimSpace(r.URL.Query().Get("resource_id")); resourceID != "" {
		filter = &resourceID
	}

	reservations, err := h.service.ListReservations(r.Context(), filter)
	if err != nil {
		h.log(r.Context(), "List").ErrorContext(r.Context(), "reservation list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	out := make([]reservationDTO, 0, len(reservations))
	for _, reservation := range reservations {
		out = append(out, toReservationDTO(reservation))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listReservationsResponse{Reservations: out})
}

func (h *ReservationHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req createReservationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Create", "client_id", principal.ClientID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode reservation request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	reservation, err := h.service.Create(r.Context(), application.CreateReservationParams{
		Principal:          principal,
		AuthorizationToken: strings.TrimSpace(req.AuthorizationToken),
		PIN:                strings.TrimSpace(req.PIN),
		Input: application.ReservationInput{
			ResourceID: strings.TrimSpace(req.ResourceID),
			OwnerName:  strings.TrimSpace(req.OwnerName),
			Start:      req.Start,
			End:        req.End,
		},
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusCreated, reservationResponse{Reservation: toReservationDTO(reservation)})
}

// Modify replaces the reservation; the response carries the replacement's new id.
func (h *ReservationHandler) Modify(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	reservationID, ok := h.reservationID(w, r, "Modify")
	if !ok {
		return
	}

	var req modifyReservationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Modify", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode reservation update", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	reservation, err := h.service.Modify(r.Context(), application.ModifyReservationParams{
		Principal:     principal,
		ReservationID: reservationID,
		PIN:           reservationPIN(r),
		Input: application.ReservationInput{
			ResourceID: strings.TrimSpace(req.ResourceID),
			OwnerName:  strings.TrimSpace(req.OwnerName),
			Start:      req.Start,
			End:        req.End,
		},
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, reservationResponse{Reservation: toReservationDTO(reservation)})
}

func (h *ReservationHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	reservationID, ok := h.reservationID(w, r, "Cancel")
	if !ok {
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	err := h.service.Cancel(r.Context(), application.ReservationActionParams{
		Principal:     principal,
		ReservationID: reservationID,
		PIN:           reservationPIN(r),
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *ReservationHandler) Validate(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	reservationID, ok := h.reservationID(w, r, "Validate")
	if !ok {
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	reservation, err := h.service.Validate(r.Context(), application.ReservationActionParams{
		Principal:     principal,
		ReservationID: reservationID,
		PIN:           reservationPIN(r),
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, reservationResponse{Reservation: toReservationDTO(reservation)})
}

func (h *ReservationHandler) reservationID(w http.ResponseWriter, r *http.Request, operation string) (string, bool) {
	reservationID, ok := ReservationIDFromContext(r.Context())
	if !ok || strings.TrimSpace(reservationID) == "" {
		h.log(r.Context(), operation, "error_kind", "bad_request").ErrorContext(r.Context(), "missing reservation id")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidReservation)
		return "", false
	}
	return reservationID, true
}

func reservationPIN(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(ReservationPINHeader))
}

type createReservationRequest struct {
	ResourceID         string    `json:"resource_id"`
	OwnerName          string    `json:"owner_name"`
	AuthorizationToken string    `json:"authorization_token"`
	PIN                string    `json:"pin"`
	Start              time.Time `json:"start"`
	End                time.Time `json:"end"`
}

type modifyReservationRequest struct {
	ResourceID string    `json:"resource_id"`
	OwnerName  string    `json:"owner_name"`
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
}

type reservationResponse struct {
	Reservation reservationDTO `json:"reservation"`
}

type listReservationsResponse struct {
	Reservations []reservationDTO `json:"reservations"`
}

// reservationDTO never carries the owner PIN hash or the authorization token.
type reservationDTO struct {
	ID             string `json:"id"`
	ResourceID     string `json:"resource_id"`
	OwnerName      string `json:"owner_name"`
	RequestedStart string `json:"requested_start"`
	RequestedEnd   string `json:"requested_end"`
	Validated      bool   `json:"validated"`
	ValidatedAt    string `json:"validated_at,omitempty"`
	AdminCreated   bool   `json:"admin_created"`
	CreatedAt      string `json:"created_at"`
}

func toReservationDTO(reservation application.Reservation) reservationDTO {
	dto := reservationDTO{
		ID:             reservation.ID,
		ResourceID:     reservation.ResourceID,
		OwnerName:      reservation.OwnerName,
		RequestedStart: formatInstant(reservation.RequestedStart),
		RequestedEnd:   formatInstant(reservation.RequestedEnd),
		Validated:      reservation.Validated,
		AdminCreated:   reservation.AdminCreated(),
		CreatedAt:      formatInstant(reservation.CreatedAt),
	}
	if reservation.ValidatedAt != nil {
		dto.ValidatedAt = formatInstant(*reservation.ValidatedAt)
	}
	return dto
}
