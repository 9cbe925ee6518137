package sqlite

import (
	"context"
	"log/slog"

	"github.com/example/console-booking/internal/persistence/sqlite/migration"
)

// Storage bundles the SQLite backed repositories sharing one connection pool.
type Storage struct {
	pool   *ConnectionPool
	logger *slog.Logger

	Resources    *ResourceRepository
	Reservations *ReservationRepository
	Tokens       *TokenRepository
}

// Open connects to the database described by config. Call Migrate before use.
func Open(config SQLiteConfig, logger *slog.Logger) (*Storage, error) {
	if logger == nil {
		logger = slog.Default()
	}
	pool, err := NewConnectionPool(config)
	if err != nil {
		return nil, err
	}
	return &Storage{
		pool:         pool,
		logger:       logger,
		Resources:    NewResourceRepository(pool),
		Reservations: NewReservationRepository(pool),
		Tokens:       NewTokenRepository(pool),
	}, nil
}

// Migrate applies the embedded schema migrations.
func (s *Storage) Migrate(ctx context.Context) error {
	return migration.NewRunner(s.pool.DB(), migration.Files(), s.logger.With("component", "migration")).Run(ctx)
}

// Ping verifies that the database is reachable.
func (s *Storage) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the connection pool.
func (s *Storage) Close() error {
	return s.pool.Close()
}
