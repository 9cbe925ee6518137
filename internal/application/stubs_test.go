package application

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/example/console-booking/internal/persistence"
)

var testPINParams = Argon2idParams{
	Memory:      64,
	Iterations:  1,
	Parallelism: 1,
	SaltLength:  8,
	KeyLength:   16,
}

func at(hour, minute int) time.Time {
	return time.Date(2025, time.March, 14, hour, minute, 0, 0, time.UTC)
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock(t time.Time) *testClock { return &testClock{now: t} }

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

type sequence struct {
	mu     sync.Mutex
	prefix string
	next   int
}

func (s *sequence) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	return fmt.Sprintf("%s-%d", s.prefix, s.next)
}

type memResources struct {
	mu        sync.Mutex
	items     map[string]Resource
	listErr   error
	createErr error
}

func newMemResources(resources ...Resource) *memResources {
	m := &memResources{items: make(map[string]Resource)}
	for _, r := range resources {
		m.items[r.ID] = r
	}
	return m
}

func (m *memResources) CreateResource(ctx context.Context, resource Resource) (Resource, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return Resource{}, m.createErr
	}
	for _, existing := range m.items {
		if existing.Name == resource.Name {
			return Resource{}, persistence.ErrDuplicate
		}
	}
	m.items[resource.ID] = resource
	return resource, nil
}

func (m *memResources) GetResource(ctx context.Context, id string) (Resource, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	resource, ok := m.items[id]
	if !ok {
		return Resource{}, persistence.ErrNotFound
	}
	return resource, nil
}

func (m *memResources) UpdateResource(ctx context.Context, resource Resource) (Resource, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[resource.ID]; !ok {
		return Resource{}, persistence.ErrNotFound
	}
	m.items[resource.ID] = resource
	return resource, nil
}

func (m *memResources) DeleteResource(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(m.items, id)
	return nil
}

func (m *memResources) ListResources(ctx context.Context) ([]Resource, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := make([]Resource, 0, len(m.items))
	for _, r := range m.items {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type memReservations struct {
	mu    sync.Mutex
	items map[string]Reservation
}

func newMemReservations() *memReservations {
	return &memReservations{items: make(map[string]Reservation)}
}

func (m *memReservations) CreateReservation(ctx context.Context, reservation Reservation) (Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[reservation.ID]; ok {
		return Reservation{}, persistence.ErrDuplicate
	}
	m.items[reservation.ID] = reservation
	return reservation, nil
}

func (m *memReservations) GetReservation(ctx context.Context, id string) (Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.items[id]
	if !ok {
		return Reservation{}, persistence.ErrNotFound
	}
	return r, nil
}

func (m *memReservations) ListReservations(ctx context.Context, filter ReservationFilter) ([]Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Reservation, 0, len(m.items))
	for _, r := range m.items {
		if filter.ResourceID != nil && r.ResourceID != *filter.ResourceID {
			continue
		}
		if filter.EndsBefore != nil && !r.RequestedEnd.Before(*filter.EndsBefore) {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].RequestedStart.Equal(out[j].RequestedStart) {
			return out[i].ID < out[j].ID
		}
		return out[i].RequestedStart.Before(out[j].RequestedStart)
	})
	return out, nil
}

func (m *memReservations) MarkValidated(ctx context.Context, id string, validatedAt time.Time) (Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.items[id]
	if !ok {
		return Reservation{}, persistence.ErrNotFound
	}
	if r.Validated {
		return Reservation{}, persistence.ErrConstraintViolation
	}
	r.Validated = true
	r.ValidatedAt = &validatedAt
	m.items[id] = r
	return r, nil
}

func (m *memReservations) ReplaceReservation(ctx context.Context, oldID string, replacement Reservation) (Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[oldID]; !ok {
		return Reservation{}, persistence.ErrNotFound
	}
	if _, ok := m.items[replacement.ID]; ok && replacement.ID != oldID {
		return Reservation{}, persistence.ErrDuplicate
	}
	delete(m.items, oldID)
	m.items[replacement.ID] = replacement
	return replacement, nil
}

func (m *memReservations) DeleteReservation(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(m.items, id)
	return nil
}

func (m *memReservations) DeleteReservations(ctx context.Context, ids []string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	deleted := 0
	for _, id := range ids {
		if _, ok := m.items[id]; ok {
			delete(m.items, id)
			deleted++
		}
	}
	return deleted, nil
}

func (m *memReservations) ids() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.items))
	for id := range m.items {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

type memTokens struct {
	mu     sync.Mutex
	tokens map[string]time.Time
	addErr error
}

func newMemTokens(tokens ...string) *memTokens {
	m := &memTokens{tokens: make(map[string]time.Time)}
	for _, token := range tokens {
		m.tokens[token] = time.Time{}
	}
	return m
}

func (m *memTokens) AddToken(ctx context.Context, token string, createdAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.addErr != nil {
		return m.addErr
	}
	if _, ok := m.tokens[token]; ok {
		return ErrAlreadyExists
	}
	m.tokens[token] = createdAt
	return nil
}

func (m *memTokens) DeleteToken(ctx context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tokens[token]; !ok {
		return ErrNotFound
	}
	delete(m.tokens, token)
	return nil
}

func (m *memTokens) ListTokens(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.tokens))
	for token := range m.tokens {
		out = append(out, token)
	}
	slices.Sort(out)
	return out, nil
}

const (
	testToken    = "8000001"
	testAdminPIN = "9999"
)

type bookingHarness struct {
	clock        *testClock
	resources    *memResources
	reservations *memReservations
	guard        *Guard
	locks        *ResourceLocks
	service      *ReservationService
	ids          *sequence
}

func ps5() Resource {
	return Resource{
		ID:               "ps5-1",
		Name:             "PS5-1",
		Type:             "PS5",
		Enabled:          true,
		AllowedDurations: []time.Duration{10 * time.Minute, 30 * time.Minute, 60 * time.Minute},
	}
}

func newBookingHarness(t *testing.T, resources ...Resource) *bookingHarness {
	t.Helper()
	if len(resources) == 0 {
		resources = []Resource{ps5()}
	}
	h := &bookingHarness{
		clock:        newTestClock(at(9, 0)),
		resources:    newMemResources(resources...),
		reservations: newMemReservations(),
		ids:          &sequence{prefix: "res"},
	}
	h.guard = NewGuard(GuardConfig{
		AdminPIN:   testAdminPIN,
		SeedTokens: []string{testToken},
		PINParams:  testPINParams,
	}, nil, h.clock.Now)
	h.locks = NewResourceLocks(50*time.Millisecond, nil)
	h.service = NewReservationService(ReservationServiceDeps{
		Reservations: h.reservations,
		Resources:    h.resources,
		Guard:        h.guard,
		Locks:        h.locks,
	}, ReservationServiceConfig{}, h.ids.ID, h.clock.Now)
	return h
}

func (h *bookingHarness) create(t *testing.T, pin string, start time.Time, minutes int) Reservation {
	t.Helper()
	r, err := h.service.Create(context.Background(), CreateReservationParams{
		AuthorizationToken: testToken,
		PIN:                pin,
		Input: ReservationInput{
			ResourceID: "ps5-1",
			OwnerName:  "Aiko",
			Start:      start,
			End:        start.Add(time.Duration(minutes) * time.Minute),
		},
	})
	if err != nil {
		t.Fatalf("create reservation at %s: %v", start.Format("15:04"), err)
	}
	return r
}
