package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/console-booking/internal/application"
	"github.com/example/console-booking/internal/persistence"
	"github.com/example/console-booking/internal/scheduler"
)

var (
	resourceCounter    uint64
	reservationCounter uint64
)

var referenceTime = time.Date(2025, time.March, 14, 9, 0, 0, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// --------------------------- Resource fixtures ---------------------------

// ResourceFixture represents a deterministic console record that can be
// materialised for application or persistence tests.
type ResourceFixture struct {
	ID               string
	Name             string
	Type             string
	Enabled          bool
	DurationsMinutes []int
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// ResourceOption configures the generated resource fixture.
type ResourceOption func(*ResourceFixture)

// NewResourceFixture returns an enabled PS5 offering 10, 30 and 60 minutes.
func NewResourceFixture(opts ...ResourceOption) ResourceFixture {
	idx := atomic.AddUint64(&resourceCounter, 1)
	created := referenceTime.Add(-time.Duration(idx) * time.Hour)
	fixture := ResourceFixture{
		ID:               fmt.Sprintf("resource-%03d", idx),
		Name:             fmt.Sprintf("PS5-%d", idx),
		Type:             "PS5",
		Enabled:          true,
		DurationsMinutes: []int{10, 30, 60},
		CreatedAt:        created,
		UpdatedAt:        created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithResourceID overrides the generated resource ID.
func WithResourceID(id string) ResourceOption {
	return func(f *ResourceFixture) {
		f.ID = id
	}
}

// WithResourceName overrides the generated display name.
func WithResourceName(name string) ResourceOption {
	return func(f *ResourceFixture) {
		f.Name = name
	}
}

// WithResourceType overrides the console type.
func WithResourceType(kind string) ResourceOption {
	return func(f *ResourceFixture) {
		f.Type = kind
	}
}

// WithResourceDurations replaces the allowed durations, in minutes.
func WithResourceDurations(minutes ...int) ResourceOption {
	return func(f *ResourceFixture) {
		f.DurationsMinutes = append([]int(nil), minutes...)
	}
}

// WithResourceDisabled marks the fixture as disabled.
func WithResourceDisabled() ResourceOption {
	return func(f *ResourceFixture) {
		f.Enabled = false
	}
}

// Application returns the fixture as an application.Resource value.
func (f ResourceFixture) Application() application.Resource {
	return application.Resource{
		ID:               f.ID,
		Name:             f.Name,
		Type:             f.Type,
		Enabled:          f.Enabled,
		AllowedDurations: f.durations(),
		CreatedAt:        f.CreatedAt,
		UpdatedAt:        f.UpdatedAt,
	}
}

// Persistence returns the fixture as a persistence.Resource value.
func (f ResourceFixture) Persistence() persistence.Resource {
	return persistence.Resource{
		ID:               f.ID,
		Name:             f.Name,
		Type:             f.Type,
		Enabled:          f.Enabled,
		DurationsMinutes: append([]int(nil), f.DurationsMinutes...),
		CreatedAt:        f.CreatedAt,
		UpdatedAt:        f.UpdatedAt,
	}
}

// Input returns the fixture as an application.ResourceInput.
func (f ResourceFixture) Input() application.ResourceInput {
	return application.ResourceInput{
		Name:             f.Name,
		Type:             f.Type,
		AllowedDurations: f.durations(),
	}
}

func (f ResourceFixture) durations() []time.Duration {
	out := make([]time.Duration, 0, len(f.DurationsMinutes))
	for _, minutes := range f.DurationsMinutes {
		out = append(out, time.Duration(minutes)*time.Minute)
	}
	return out
}

// ------------------------- Reservation fixtures --------------------------

// ReservationFixture represents a deterministic reservation. The default
// window is the 30 minutes following ReferenceTime.
type ReservationFixture struct {
	ID                 string
	ResourceID         string
	OwnerName          string
	AuthorizationToken string
	OwnerPIN           string
	Start              time.Time
	End                time.Time
	ValidatedAt        *time.Time
	CreatedAt          time.Time
}

// ReservationOption configures the generated reservation fixture.
type ReservationOption func(*ReservationFixture)

// NewReservationFixture returns an unvalidated reservation on resourceID.
func NewReservationFixture(resourceID string, opts ...ReservationOption) ReservationFixture {
	idx := atomic.AddUint64(&reservationCounter, 1)
	fixture := ReservationFixture{
		ID:                 fmt.Sprintf("reservation-%03d", idx),
		ResourceID:         resourceID,
		OwnerName:          fmt.Sprintf("Player %03d", idx),
		AuthorizationToken: "8000001",
		OwnerPIN:           "unhashed-fixture-pin",
		Start:              referenceTime,
		End:                referenceTime.Add(30 * time.Minute),
		CreatedAt:          referenceTime.Add(-time.Minute),
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithReservationID overrides the generated reservation ID.
func WithReservationID(id string) ReservationOption {
	return func(f *ReservationFixture) {
		f.ID = id
	}
}

// WithReservationOwner overrides the owner display name.
func WithReservationOwner(name string) ReservationOption {
	return func(f *ReservationFixture) {
		f.OwnerName = name
	}
}

// WithReservationWindow places the reservation at start for the given length.
func WithReservationWindow(start time.Time, length time.Duration) ReservationOption {
	return func(f *ReservationFixture) {
		f.Start = start
		f.End = start.Add(length)
	}
}

// WithReservationPINHash stores hash as the owner PIN.
func WithReservationPINHash(hash string) ReservationOption {
	return func(f *ReservationFixture) {
		f.OwnerPIN = hash
	}
}

// WithReservationAdminCreated marks the reservation as made by an administrator.
func WithReservationAdminCreated() ReservationOption {
	return func(f *ReservationFixture) {
		f.OwnerPIN = application.AdminCreatedMarker
		f.AuthorizationToken = ""
	}
}

// WithReservationValidatedAt marks the reservation as validated at t.
func WithReservationValidatedAt(t time.Time) ReservationOption {
	return func(f *ReservationFixture) {
		f.ValidatedAt = &t
	}
}

// Application returns the fixture as an application.Reservation value.
func (f ReservationFixture) Application() application.Reservation {
	return application.Reservation{
		ID:                 f.ID,
		ResourceID:         f.ResourceID,
		OwnerName:          f.OwnerName,
		AuthorizationToken: f.AuthorizationToken,
		OwnerPIN:           f.OwnerPIN,
		RequestedStart:     f.Start,
		RequestedEnd:       f.End,
		Validated:          f.ValidatedAt != nil,
		ValidatedAt:        copyTimePtr(f.ValidatedAt),
		CreatedAt:          f.CreatedAt,
	}
}

// Persistence returns the fixture as a persistence.Reservation value.
func (f ReservationFixture) Persistence() persistence.Reservation {
	return persistence.Reservation{
		ID:                 f.ID,
		ResourceID:         f.ResourceID,
		OwnerName:          f.OwnerName,
		AuthorizationToken: f.AuthorizationToken,
		OwnerPIN:           f.OwnerPIN,
		RequestedStart:     f.Start,
		RequestedEnd:       f.End,
		Validated:          f.ValidatedAt != nil,
		ValidatedAt:        copyTimePtr(f.ValidatedAt),
		CreatedAt:          f.CreatedAt,
	}
}

// Scheduler returns the fixture as the projection input.
func (f ReservationFixture) Scheduler() scheduler.Reservation {
	return scheduler.Reservation{
		ID:        f.ID,
		Start:     f.Start,
		End:       f.End,
		Validated: f.ValidatedAt != nil,
	}
}

func copyTimePtr(src *time.Time) *time.Time {
	if src == nil {
		return nil
	}
	value := *src
	return &value
}
