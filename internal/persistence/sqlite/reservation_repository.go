package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/example/console-booking/internal/persistence"
)

const reservationColumns = `id, resource_id, owner_name, authorization_token, owner_pin,
	requested_start, requested_end, validated, validated_at, created_at`

// ReservationRepository implements persistence.ReservationRepository using SQLite
type ReservationRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewReservationRepository creates a new SQLite reservation repository
func NewReservationRepository(pool *ConnectionPool) *ReservationRepository {
	return &ReservationRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

// CreateReservation inserts a new reservation.
func (r *ReservationRepository) CreateReservation(ctx context.Context, reservation persistence.Reservation) error {
	if reservation.ID == "" {
		return persistence.ErrConstraintViolation
	}
	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		return r.insert(ctx, tx, reservation)
	})
}

// GetReservation retrieves a reservation by ID.
func (r *ReservationRepository) GetReservation(ctx context.Context, id string) (persistence.Reservation, error) {
	if id == "" {
		return persistence.Reservation{}, persistence.ErrNotFound
	}
	row := r.helper.QueryRow(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE id = ?`, id)
	reservation, err := scanReservation(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.Reservation{}, persistence.ErrNotFound
		}
		return persistence.Reservation{}, r.mapper.MapError(err)
	}
	return reservation, nil
}

// ListReservations returns reservations ordered by requested start then ID.
func (r *ReservationRepository) ListReservations(ctx context.Context, filter persistence.ReservationFilter) ([]persistence.Reservation, error) {
	var (
		clauses []string
		args    []any
	)
	if filter.ResourceID != nil {
		clauses = append(clauses, "resource_id = ?")
		args = append(args, *filter.ResourceID)
	}
	if filter.EndsBefore != nil {
		clauses = append(clauses, "requested_end < ?")
		args = append(args, formatTime(*filter.EndsBefore))
	}

	query := `SELECT ` + reservationColumns + ` FROM reservations`
	if len(clauses) > 0 {
		query += ` WHERE ` + strings.Join(clauses, " AND ")
	}
	query += ` ORDER BY requested_start ASC, id ASC`

	rows, err := r.helper.Query(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var reservations []persistence.Reservation
	for rows.Next() {
		reservation, err := scanReservation(rows)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		reservations = append(reservations, reservation)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return reservations, nil
}

// MarkValidated flags a reservation as validated. Validating twice is a constraint violation.
func (r *ReservationRepository) MarkValidated(ctx context.Context, id string, validatedAt time.Time) error {
	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx,
			`UPDATE reservations SET validated = 1, validated_at = ? WHERE id = ? AND validated = 0`,
			formatTime(validatedAt), id)
		if err != nil {
			return r.mapper.MapError(err)
		}
		affected, err := rowsAffected(result)
		if err != nil {
			return err
		}
		if affected > 0 {
			return nil
		}

		var exists int
		err = tx.QueryRowContext(ctx, `SELECT 1 FROM reservations WHERE id = ?`, id).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.ErrNotFound
		}
		if err != nil {
			return r.mapper.MapError(err)
		}
		return persistence.ErrConstraintViolation
	})
}

// ReplaceReservation deletes oldID and inserts replacement in one transaction. When
// either step fails the stored set is left untouched.
func (r *ReservationRepository) ReplaceReservation(ctx context.Context, oldID string, replacement persistence.Reservation) error {
	if oldID == "" || replacement.ID == "" {
		return persistence.ErrConstraintViolation
	}
	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `DELETE FROM reservations WHERE id = ?`, oldID)
		if err != nil {
			return r.mapper.MapError(err)
		}
		affected, err := rowsAffected(result)
		if err != nil {
			return err
		}
		if affected == 0 {
			return persistence.ErrNotFound
		}
		return r.insert(ctx, tx, replacement)
	})
}

// DeleteReservation removes a reservation by ID.
func (r *ReservationRepository) DeleteReservation(ctx context.Context, id string) error {
	if id == "" {
		return persistence.ErrNotFound
	}
	result, err := r.helper.Exec(ctx, `DELETE FROM reservations WHERE id = ?`, id)
	if err != nil {
		return r.mapper.MapError(err)
	}
	affected, err := rowsAffected(result)
	if err != nil {
		return err
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

// DeleteReservations removes every listed reservation and reports how many existed.
func (r *ReservationRepository) DeleteReservations(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	deleted := 0
	err := r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		for _, id := range ids {
			result, err := tx.ExecContext(ctx, `DELETE FROM reservations WHERE id = ?`, id)
			if err != nil {
				return r.mapper.MapError(err)
			}
			affected, err := rowsAffected(result)
			if err != nil {
				return err
			}
			deleted += affected
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return deleted, nil
}

func (r *ReservationRepository) insert(ctx context.Context, tx *sql.Tx, reservation persistence.Reservation) error {
	if reservation.CreatedAt.IsZero() {
		reservation.CreatedAt = time.Now().UTC()
	}
	var validatedAt sql.NullString
	if reservation.ValidatedAt != nil {
		validatedAt = sql.NullString{String: formatTime(*reservation.ValidatedAt), Valid: true}
	}

	_, err := tx.ExecContext(ctx, `INSERT INTO reservations (`+reservationColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		reservation.ID,
		reservation.ResourceID,
		reservation.OwnerName,
		reservation.AuthorizationToken,
		reservation.OwnerPIN,
		formatTime(reservation.RequestedStart),
		formatTime(reservation.RequestedEnd),
		boolToInt(reservation.Validated),
		validatedAt,
		formatTime(reservation.CreatedAt),
	)
	if err != nil {
		return r.mapper.MapError(err)
	}
	return nil
}

func scanReservation(row rowScanner) (persistence.Reservation, error) {
	var (
		reservation           persistence.Reservation
		start, end, createdAt string
		validated             int
		validatedAt           sql.NullString
	)
	err := row.Scan(
		&reservation.ID,
		&reservation.ResourceID,
		&reservation.OwnerName,
		&reservation.AuthorizationToken,
		&reservation.OwnerPIN,
		&start,
		&end,
		&validated,
		&validatedAt,
		&createdAt,
	)
	if err != nil {
		return persistence.Reservation{}, err
	}
	reservation.Validated = validated == 1

	if reservation.RequestedStart, err = parseTime("requested_start", start); err != nil {
		return persistence.Reservation{}, err
	}
	if reservation.RequestedEnd, err = parseTime("requested_end", end); err != nil {
		return persistence.Reservation{}, err
	}
	if reservation.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
		return persistence.Reservation{}, err
	}
	if validatedAt.Valid {
		t, err := parseTime("validated_at", validatedAt.String)
		if err != nil {
			return persistence.Reservation{}, err
		}
		reservation.ValidatedAt = &t
	}
	return reservation, nil
}
