package migration

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"log/slog"
	"time"
)

// Runner applies pending migrations from a file system to a database.
type Runner struct {
	db     *sql.DB
	fsys   fs.FS
	logger *slog.Logger
	now    func() time.Time
}

// NewRunner constructs a Runner. A nil logger falls back to slog.Default().
func NewRunner(db *sql.DB, fsys fs.FS, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{db: db, fsys: fsys, logger: logger, now: time.Now}
}

// Run executes all pending migrations in version order. Each migration and its
// schema_migrations record are committed in a single transaction.
func (r *Runner) Run(ctx context.Context) error {
	status, err := r.Status(ctx)
	if err != nil {
		return err
	}
	if len(status.Pending) == 0 {
		r.logger.InfoContext(ctx, "schema up to date", "version", status.CurrentVersion)
		return nil
	}

	for _, migration := range status.Pending {
		started := time.Now()
		if err := r.apply(ctx, migration, started); err != nil {
			r.logger.ErrorContext(ctx, "migration failed", "version", migration.Version, "file", migration.FileName, "error", err)
			return err
		}
		r.logger.InfoContext(ctx, "migration applied",
			"version", migration.Version,
			"description", migration.Description,
			"duration_ms", time.Since(started).Milliseconds(),
		)
	}
	return nil
}

// Status reports applied and pending migrations. Applied migrations whose file content
// changed are reported as ErrChecksumMismatch.
func (r *Runner) Status(ctx context.Context) (Status, error) {
	if err := r.initVersionTable(ctx); err != nil {
		return Status{}, err
	}
	available, err := Scan(r.fsys)
	if err != nil {
		return Status{}, err
	}
	applied, err := r.applied(ctx)
	if err != nil {
		return Status{}, err
	}

	byVersion := make(map[int]AppliedMigration, len(applied))
	status := Status{Applied: applied}
	for _, a := range applied {
		byVersion[a.Version] = a
		if a.Version > status.CurrentVersion {
			status.CurrentVersion = a.Version
		}
	}
	for _, m := range available {
		a, ok := byVersion[m.Version]
		if !ok {
			status.Pending = append(status.Pending, m)
			continue
		}
		if a.Checksum != "" && a.Checksum != m.Checksum {
			return Status{}, newMigrationError(m.Version, m.FileName, "verify checksum", ErrChecksumMismatch)
		}
	}
	return status, nil
}

func (r *Runner) initVersionTable(ctx context.Context) error {
	const createTableSQL = `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at TEXT NOT NULL,
			checksum TEXT,
			execution_time_ms INTEGER
		)`
	if _, err := r.db.ExecContext(ctx, createTableSQL); err != nil {
		return newMigrationError(0, "schema_migrations", "create version table", err)
	}
	return nil
}

func (r *Runner) applied(ctx context.Context) ([]AppliedMigration, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT version, applied_at, COALESCE(execution_time_ms, 0), COALESCE(checksum, '')
		FROM schema_migrations
		ORDER BY version ASC`)
	if err != nil {
		return nil, newMigrationError(0, "schema_migrations", "list applied", err)
	}
	defer rows.Close()

	var applied []AppliedMigration
	for rows.Next() {
		var (
			a          AppliedMigration
			appliedAt  string
			durationMs int64
		)
		if err := rows.Scan(&a.Version, &appliedAt, &durationMs, &a.Checksum); err != nil {
			return nil, newMigrationError(0, "schema_migrations", "scan applied", err)
		}
		if a.AppliedAt, err = time.Parse(time.RFC3339Nano, appliedAt); err != nil {
			return nil, newMigrationError(a.Version, "schema_migrations", "parse applied_at", err)
		}
		a.ExecutionTime = time.Duration(durationMs) * time.Millisecond
		applied = append(applied, a)
	}
	if err := rows.Err(); err != nil {
		return nil, newMigrationError(0, "schema_migrations", "iterate applied", err)
	}
	return applied, nil
}

func (r *Runner) apply(ctx context.Context, migration Migration, started time.Time) (err error) {
	statements := splitStatements(migration.SQL)
	if len(statements) == 0 {
		return newMigrationError(migration.Version, migration.FileName, "parse SQL",
			fmt.Errorf("%w: no statements", ErrInvalidMigrationFile))
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return newMigrationError(migration.Version, migration.FileName, "begin transaction", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for i, stmt := range statements {
		if _, err = tx.ExecContext(ctx, stmt); err != nil {
			return newMigrationError(migration.Version, migration.FileName,
				fmt.Sprintf("execute statement %d", i+1), fmt.Errorf("%w: %v", ErrMigrationFailed, err))
		}
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO schema_migrations (version, applied_at, checksum, execution_time_ms) VALUES (?, ?, ?, ?)`,
		migration.Version,
		r.now().UTC().Format(time.RFC3339Nano),
		migration.Checksum,
		time.Since(started).Milliseconds(),
	)
	if err != nil {
		return newMigrationError(migration.Version, migration.FileName, "record migration", err)
	}

	if err = tx.Commit(); err != nil {
		return newMigrationError(migration.Version, migration.FileName, "commit", err)
	}
	return nil
}
