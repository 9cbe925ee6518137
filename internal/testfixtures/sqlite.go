package testfixtures

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/example/console-booking/internal/persistence"
	"github.com/example/console-booking/internal/persistence/sqlite"
)

// SQLiteHarness provides repository access backed by a temporary SQLite storage
// instance for integration-style tests.
type SQLiteHarness struct {
	Storage      *sqlite.Storage
	Resources    persistence.ResourceRepository
	Reservations persistence.ReservationRepository
	Tokens       persistence.TokenRepository

	cleanup func()
}

// Close releases resources associated with the harness.
func (h *SQLiteHarness) Close() {
	if h != nil && h.cleanup != nil {
		h.cleanup()
		h.cleanup = nil
	}
}

// NewSQLiteHarness constructs a SQLiteHarness using a temporary file that is
// migrated automatically. Callers may optionally invoke Close, but the helper
// will also register a cleanup callback with the provided testing.TB.
func NewSQLiteHarness(tb testing.TB) *SQLiteHarness {
	tb.Helper()

	path := filepath.Join(tb.TempDir(), "booking.db")

	storage, err := sqlite.Open(sqlite.DefaultSQLiteConfig(path), nil)
	if err != nil {
		tb.Fatalf("failed to open storage: %v", err)
	}

	if err := storage.Migrate(context.Background()); err != nil {
		_ = storage.Close()
		tb.Fatalf("failed to migrate storage: %v", err)
	}

	harness := &SQLiteHarness{
		Storage:      storage,
		Resources:    storage.Resources,
		Reservations: storage.Reservations,
		Tokens:       storage.Tokens,
		cleanup: func() {
			_ = storage.Close()
		},
	}

	tb.Cleanup(harness.Close)
	return harness
}

// SeedResource stores fixture and fails the test on error.
func (h *SQLiteHarness) SeedResource(tb testing.TB, fixture ResourceFixture) ResourceFixture {
	tb.Helper()
	if err := h.Resources.CreateResource(context.Background(), fixture.Persistence()); err != nil {
		tb.Fatalf("failed to seed resource %s: %v", fixture.ID, err)
	}
	return fixture
}

// SeedReservation stores fixture and fails the test on error.
func (h *SQLiteHarness) SeedReservation(tb testing.TB, fixture ReservationFixture) ReservationFixture {
	tb.Helper()
	if err := h.Reservations.CreateReservation(context.Background(), fixture.Persistence()); err != nil {
		tb.Fatalf("failed to seed reservation %s: %v", fixture.ID, err)
	}
	return fixture
}
