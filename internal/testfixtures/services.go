package testfixtures

import (
	"log/slog"
	"time"

	"github.com/example/console-booking/internal/application"
	"github.com/example/console-booking/internal/metrics"
	"github.com/example/console-booking/internal/scheduler"
)

// FastPINParams keeps argon2id hashing cheap enough for tests.
var FastPINParams = application.Argon2idParams{
	Memory:      64,
	Iterations:  1,
	Parallelism: 1,
	SaltLength:  8,
	KeyLength:   16,
}

// ServiceFactory assists tests with constructing application services using
// deterministic identifiers and clocks.
type ServiceFactory struct {
	Clock       *Clock
	IDGenerator *IDGenerator
}

// ServiceFactoryOption configures a ServiceFactory instance.
type ServiceFactoryOption func(*ServiceFactory)

// NewServiceFactory constructs a ServiceFactory with defaults.
func NewServiceFactory(opts ...ServiceFactoryOption) *ServiceFactory {
	factory := &ServiceFactory{
		Clock:       NewClock(time.Time{}),
		IDGenerator: NewIDGenerator("id"),
	}
	for _, opt := range opts {
		opt(factory)
	}
	if factory.Clock == nil {
		factory.Clock = NewClock(time.Time{})
	}
	if factory.IDGenerator == nil {
		factory.IDGenerator = NewIDGenerator("id")
	}
	return factory
}

// WithClock overrides the clock used by the factory.
func WithClock(clock *Clock) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Clock = clock
	}
}

// WithIDGenerator overrides the identifier generator used by the factory.
func WithIDGenerator(generator *IDGenerator) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.IDGenerator = generator
	}
}

// GuardDeps captures dependencies for constructing a guard.
type GuardDeps struct {
	AdminPIN   string
	SeedTokens []string
	Tokens     application.TokenRepository
	PINParams  application.Argon2idParams
	Logger     *slog.Logger
}

// NewGuard builds a guard hashing with FastPINParams unless told otherwise.
func (f *ServiceFactory) NewGuard(deps GuardDeps) *application.Guard {
	params := deps.PINParams
	if params == (application.Argon2idParams{}) {
		params = FastPINParams
	}
	return application.NewGuardWithLogger(application.GuardConfig{
		AdminPIN:   deps.AdminPIN,
		SeedTokens: deps.SeedTokens,
		PINParams:  params,
	}, deps.Tokens, f.Clock.NowFunc(), deps.Logger)
}

// ResourceServiceDeps captures dependencies for constructing a resource service.
type ResourceServiceDeps struct {
	Resources    application.ResourceRepository
	Reservations application.ReservationRepository
	Locks        *application.ResourceLocks
	IDGenerator  func() string
	Now          func() time.Time
	Logger       *slog.Logger
}

// NewResourceService builds a resource service using the supplied dependencies
// combined with the factory defaults.
func (f *ServiceFactory) NewResourceService(deps ResourceServiceDeps) *application.ResourceService {
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = f.IDGenerator.NextFunc()
	}
	now := deps.Now
	if now == nil {
		now = f.Clock.NowFunc()
	}
	return application.NewResourceServiceWithLogger(
		deps.Resources,
		deps.Reservations,
		deps.Locks,
		scheduler.DefaultPolicy(),
		idGen,
		now,
		deps.Logger,
	)
}

// ReservationServiceDeps captures dependencies for constructing a reservation service.
type ReservationServiceDeps struct {
	Reservations application.ReservationRepository
	Resources    application.ResourceRepository
	Guard        *application.Guard
	Locks        *application.ResourceLocks
	Metrics      metrics.Recorder
	Config       application.ReservationServiceConfig
	IDGenerator  func() string
	Now          func() time.Time
	Logger       *slog.Logger
}

// NewReservationService builds a reservation service using the supplied
// dependencies combined with the factory defaults.
func (f *ServiceFactory) NewReservationService(deps ReservationServiceDeps) *application.ReservationService {
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = f.IDGenerator.NextFunc()
	}
	now := deps.Now
	if now == nil {
		now = f.Clock.NowFunc()
	}
	return application.NewReservationServiceWithLogger(
		application.ReservationServiceDeps{
			Reservations: deps.Reservations,
			Resources:    deps.Resources,
			Guard:        deps.Guard,
			Locks:        deps.Locks,
			Metrics:      deps.Metrics,
		},
		deps.Config,
		idGen,
		now,
		deps.Logger,
	)
}
