package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/console-booking/internal/application"
	"github.com/example/console-booking/internal/scheduler"
)

func at(hour, minute int) time.Time {
	return time.Date(2025, time.March, 14, hour, minute, 0, 0, time.UTC)
}

type resourceServiceStub struct {
	resources []application.Resource
	created   application.CreateResourceParams
	toggled   application.SetResourceEnabledParams
	deletedID string
	err       error
}

func (s *resourceServiceStub) CreateResource(ctx context.Context, params application.CreateResourceParams) (application.Resource, error) {
	s.created = params
	if s.err != nil {
		return application.Resource{}, s.err
	}
	return application.Resource{
		ID:               "ps5-1",
		Name:             params.Input.Name,
		Type:             params.Input.Type,
		Enabled:          true,
		AllowedDurations: params.Input.AllowedDurations,
		CreatedAt:        at(8, 0),
		UpdatedAt:        at(8, 0),
	}, nil
}

func (s *resourceServiceStub) UpdateResource(ctx context.Context, params application.UpdateResourceParams) (application.Resource, error) {
	return application.Resource{ID: params.ResourceID, Name: params.Input.Name}, s.err
}

func (s *resourceServiceStub) SetResourceEnabled(ctx context.Context, params application.SetResourceEnabledParams) (application.Resource, error) {
	s.toggled = params
	return application.Resource{ID: params.ResourceID, Enabled: params.Enabled}, s.err
}

func (s *resourceServiceStub) DeleteResource(ctx context.Context, principal application.Principal, resourceID string) error {
	s.deletedID = resourceID
	return s.err
}

func (s *resourceServiceStub) GetResource(ctx context.Context, resourceID string) (application.Resource, error) {
	for _, r := range s.resources {
		if r.ID == resourceID {
			return r, nil
		}
	}
	return application.Resource{}, application.ErrNotFound
}

func (s *resourceServiceStub) ListResources(ctx context.Context) ([]application.Resource, error) {
	return s.resources, s.err
}

type scheduleServiceStub struct {
	schedule []application.ScheduledReservation
	next     time.Time
	gotAt    time.Time
	err      error
}

func (s *scheduleServiceStub) ProjectSchedule(ctx context.Context, resourceID string, now time.Time) ([]application.ScheduledReservation, error) {
	s.gotAt = now
	return s.schedule, s.err
}

func (s *scheduleServiceStub) NextAvailableStart(ctx context.Context, resourceID string, now time.Time) (time.Time, error) {
	s.gotAt = now
	return s.next, s.err
}

type reservationServiceStub struct {
	created   application.CreateReservationParams
	modified  application.ModifyReservationParams
	action    application.ReservationActionParams
	listed    *string
	createErr error
	err       error
}

func (s *reservationServiceStub) ListReservations(ctx context.Context, resourceID *string) ([]application.Reservation, error) {
	s.listed = resourceID
	return []application.Reservation{{ID: "r1", ResourceID: "ps5-1", OwnerPIN: "$argon2id$secret", AuthorizationToken: "8000001"}}, s.err
}

func (s *reservationServiceStub) Create(ctx context.Context, params application.CreateReservationParams) (application.Reservation, error) {
	s.created = params
	if s.createErr != nil {
		return application.Reservation{}, s.createErr
	}
	return application.Reservation{
		ID:             "r1",
		ResourceID:     params.Input.ResourceID,
		OwnerName:      params.Input.OwnerName,
		RequestedStart: params.Input.Start,
		RequestedEnd:   params.Input.End,
		CreatedAt:      at(9, 0),
	}, nil
}

func (s *reservationServiceStub) Modify(ctx context.Context, params application.ModifyReservationParams) (application.Reservation, error) {
	s.modified = params
	return application.Reservation{ID: "r2", RequestedStart: params.Input.Start, RequestedEnd: params.Input.End}, s.err
}

func (s *reservationServiceStub) Cancel(ctx context.Context, params application.ReservationActionParams) error {
	s.action = params
	return s.err
}

func (s *reservationServiceStub) Validate(ctx context.Context, params application.ReservationActionParams) (application.Reservation, error) {
	s.action = params
	validatedAt := at(9, 2)
	return application.Reservation{ID: params.ReservationID, Validated: true, ValidatedAt: &validatedAt}, s.err
}

type tokenServiceStub struct {
	tokens []string
	added  string
	err    error
}

func (s *tokenServiceStub) AddToken(ctx context.Context, principal application.Principal, token string) error {
	if !principal.Admin {
		return application.ErrUnauthorized
	}
	s.added = token
	return s.err
}

func (s *tokenServiceStub) RemoveToken(ctx context.Context, principal application.Principal, token string) error {
	if !principal.Admin {
		return application.ErrUnauthorized
	}
	return s.err
}

func (s *tokenServiceStub) Tokens(principal application.Principal) ([]string, error) {
	if !principal.Admin {
		return nil, application.ErrUnauthorized
	}
	return s.tokens, nil
}

type adminPIN string

func (p adminPIN) IsAdminPIN(pin string) bool { return pin == string(p) }

type testAPI struct {
	resources    *resourceServiceStub
	schedules    *scheduleServiceStub
	reservations *reservationServiceStub
	tokens       *tokenServiceStub
	handler      http.Handler
}

func newTestAPI() *testAPI {
	api := &testAPI{
		resources:    &resourceServiceStub{},
		schedules:    &scheduleServiceStub{},
		reservations: &reservationServiceStub{},
		tokens:       &tokenServiceStub{},
	}
	api.handler = NewRouter(RouterConfig{
		Resources:    NewResourceHandler(api.resources, api.schedules, nil),
		Reservations: NewReservationHandler(api.reservations, nil),
		Tokens:       NewTokenHandler(api.tokens, nil),
		Middleware:   []func(http.Handler) http.Handler{ResolvePrincipal(adminPIN("9999"))},
	})
	return api
}

func (api *testAPI) do(t *testing.T, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	api.handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var payload map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	return payload
}

func TestResourceHandlers(t *testing.T) {
	t.Run("create passes the admin principal and minutes", func(t *testing.T) {
		api := newTestAPI()
		rec := api.do(t, http.MethodPost, "/resources",
			`{"name":" PS5-1 ","type":"PS5","allowed_durations_minutes":[10,30]}`,
			map[string]string{AdminPINHeader: "9999"})

		require.Equal(t, http.StatusCreated, rec.Code)
		assert.True(t, api.resources.created.Principal.Admin)
		assert.Equal(t, "PS5-1", api.resources.created.Input.Name)
		assert.Equal(t, []time.Duration{10 * time.Minute, 30 * time.Minute}, api.resources.created.Input.AllowedDurations)

		resource := decode(t, rec)["resource"].(map[string]any)
		assert.Equal(t, []any{float64(10), float64(30)}, resource["allowed_durations_minutes"])
		assert.Equal(t, "2025-03-14T08:00:00Z", resource["created_at"])
	})

	t.Run("wrong admin pin yields an anonymous principal", func(t *testing.T) {
		api := newTestAPI()
		api.do(t, http.MethodPost, "/resources", `{"name":"x","type":"y","allowed_durations_minutes":[10]}`,
			map[string]string{AdminPINHeader: "0000"})
		assert.False(t, api.resources.created.Principal.Admin)
		assert.Equal(t, "192.0.2.1", api.resources.created.Principal.ClientID)
	})

	t.Run("rejects malformed bodies", func(t *testing.T) {
		api := newTestAPI()
		rec := api.do(t, http.MethodPost, "/resources", `{`, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, errBadRequestBody.Error(), decode(t, rec)["message"])
	})

	t.Run("toggle requires an explicit flag", func(t *testing.T) {
		api := newTestAPI()
		rec := api.do(t, http.MethodPost, "/resources/ps5-1/enabled", `{}`, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		rec = api.do(t, http.MethodPost, "/resources/ps5-1/enabled", `{"enabled":false}`, nil)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "ps5-1", api.resources.toggled.ResourceID)
		assert.False(t, api.resources.toggled.Enabled)
	})

	t.Run("delete answers no content", func(t *testing.T) {
		api := newTestAPI()
		rec := api.do(t, http.MethodDelete, "/resources/ps5-1", "", nil)
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, "ps5-1", api.resources.deletedID)
	})

	t.Run("get of an unknown resource", func(t *testing.T) {
		api := newTestAPI()
		rec := api.do(t, http.MethodGet, "/resources/missing", "", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "NOT_FOUND", decode(t, rec)["error_code"])
	})

	t.Run("schedule renders projections", func(t *testing.T) {
		api := newTestAPI()
		api.schedules.schedule = []application.ScheduledReservation{{
			Reservation:      application.Reservation{ID: "r1", ResourceID: "ps5-1", OwnerPIN: "$argon2id$secret"},
			TheoreticalStart: at(9, 31),
			TheoreticalEnd:   at(10, 1),
			Status:           scheduler.StatusAwaitingValidation,
			Occupant:         true,
		}}

		rec := api.do(t, http.MethodGet, "/resources/ps5-1/schedule?at=2025-03-14T09:31:00Z", "", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, api.schedules.gotAt.Equal(at(9, 31)))
		assert.NotContains(t, rec.Body.String(), "argon2id")

		entries := decode(t, rec)["entries"].([]any)
		require.Len(t, entries, 1)
		entry := entries[0].(map[string]any)
		assert.Equal(t, "2025-03-14T09:31:00Z", entry["theoretical_start"])
		assert.Equal(t, "awaiting_validation", entry["status"])
		assert.Equal(t, true, entry["occupant"])
	})

	t.Run("next slot defaults to now and validates the instant", func(t *testing.T) {
		api := newTestAPI()
		api.schedules.next = at(9, 30)

		rec := api.do(t, http.MethodGet, "/resources/ps5-1/next-slot", "", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, api.schedules.gotAt.IsZero())
		assert.Equal(t, "2025-03-14T09:30:00Z", decode(t, rec)["next_available_start"])

		rec = api.do(t, http.MethodGet, "/resources/ps5-1/next-slot?at=yesterday", "", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown actions and methods", func(t *testing.T) {
		api := newTestAPI()
		assert.Equal(t, http.StatusNotFound, api.do(t, http.MethodGet, "/resources/ps5-1/unknown", "", nil).Code)
		rec := api.do(t, http.MethodPatch, "/resources", "", nil)
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
		assert.Equal(t, "GET, POST", rec.Header().Get("Allow"))
	})
}

func TestReservationHandlers(t *testing.T) {
	t.Run("create forwards token, pin and window", func(t *testing.T) {
		api := newTestAPI()
		rec := api.do(t, http.MethodPost, "/reservations",
			`{"resource_id":"ps5-1","owner_name":"Aiko","authorization_token":"8000001","pin":"1234","start":"2025-03-14T09:00:00Z","end":"2025-03-14T09:30:00Z"}`, nil)

		require.Equal(t, http.StatusCreated, rec.Code)
		assert.Equal(t, "8000001", api.reservations.created.AuthorizationToken)
		assert.Equal(t, "1234", api.reservations.created.PIN)
		assert.True(t, api.reservations.created.Input.Start.Equal(at(9, 0)))

		reservation := decode(t, rec)["reservation"].(map[string]any)
		assert.Equal(t, "r1", reservation["id"])
		assert.Equal(t, "2025-03-14T09:30:00Z", reservation["requested_end"])
	})

	t.Run("conflicts carry the next available start", func(t *testing.T) {
		api := newTestAPI()
		api.reservations.createErr = &application.ConflictError{NextAvailableStart: at(9, 30)}
		rec := api.do(t, http.MethodPost, "/reservations", `{"resource_id":"ps5-1"}`, nil)

		assert.Equal(t, http.StatusConflict, rec.Code)
		payload := decode(t, rec)
		assert.Equal(t, "SLOT_CONFLICT", payload["error_code"])
		assert.Equal(t, "2025-03-14T09:30:00Z", payload["next_available_start"])
	})

	t.Run("owner actions read the pin header", func(t *testing.T) {
		api := newTestAPI()
		headers := map[string]string{ReservationPINHeader: " 1234 "}

		rec := api.do(t, http.MethodPost, "/reservations/r1/validate", "", headers)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "1234", api.reservations.action.PIN)
		assert.Equal(t, "r1", api.reservations.action.ReservationID)
		assert.Equal(t, "2025-03-14T09:02:00Z", decode(t, rec)["reservation"].(map[string]any)["validated_at"])

		rec = api.do(t, http.MethodPut, "/reservations/r1",
			`{"start":"2025-03-14T09:10:00Z","end":"2025-03-14T09:40:00Z"}`, headers)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "r1", api.reservations.modified.ReservationID)
		assert.Equal(t, "r2", decode(t, rec)["reservation"].(map[string]any)["id"])

		rec = api.do(t, http.MethodDelete, "/reservations/r1", "", headers)
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("list filters by resource and hides secrets", func(t *testing.T) {
		api := newTestAPI()
		rec := api.do(t, http.MethodGet, "/reservations?resource_id=ps5-1", "", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		require.NotNil(t, api.reservations.listed)
		assert.Equal(t, "ps5-1", *api.reservations.listed)
		assert.NotContains(t, rec.Body.String(), "argon2id")
		assert.NotContains(t, rec.Body.String(), "8000001")
	})
}

func TestTokenHandlers(t *testing.T) {
	api := newTestAPI()
	api.tokens.tokens = []string{"8000001"}

	rec := api.do(t, http.MethodGet, "/tokens", "", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "AUTH_FORBIDDEN", decode(t, rec)["error_code"])

	admin := map[string]string{AdminPINHeader: "9999"}
	rec = api.do(t, http.MethodGet, "/tokens", "", admin)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []any{"8000001"}, decode(t, rec)["tokens"])

	rec = api.do(t, http.MethodPost, "/tokens", `{"token":" 8000002 "}`, admin)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "8000002", api.tokens.added)

	rec = api.do(t, http.MethodDelete, "/tokens/8000002", "", admin)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestHealthz(t *testing.T) {
	handler := NewRouter(RouterConfig{Health: func(ctx context.Context) error { return context.DeadlineExceeded }})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = httptest.NewRecorder()
	NewRouter(RouterConfig{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
