package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"time"

	"github.com/example/console-booking/internal/persistence"
)

// ResourceRepository implements persistence.ResourceRepository using SQLite
type ResourceRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewResourceRepository creates a new SQLite resource repository
func NewResourceRepository(pool *ConnectionPool) *ResourceRepository {
	return &ResourceRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

// CreateResource inserts a resource and its allowed durations.
func (r *ResourceRepository) CreateResource(ctx context.Context, resource persistence.Resource) error {
	if resource.ID == "" || len(resource.DurationsMinutes) == 0 {
		return persistence.ErrConstraintViolation
	}
	if resource.CreatedAt.IsZero() {
		resource.CreatedAt = time.Now().UTC()
	}
	if resource.UpdatedAt.IsZero() {
		resource.UpdatedAt = resource.CreatedAt
	}

	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO resources (id, name, type, enabled, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			resource.ID,
			resource.Name,
			resource.Type,
			boolToInt(resource.Enabled),
			formatTime(resource.CreatedAt),
			formatTime(resource.UpdatedAt),
		)
		if err != nil {
			return r.mapper.MapError(err)
		}
		return r.insertDurations(ctx, tx, resource.ID, resource.DurationsMinutes)
	})
}

// UpdateResource replaces the mutable columns and the duration set of a resource.
func (r *ResourceRepository) UpdateResource(ctx context.Context, resource persistence.Resource) error {
	if resource.ID == "" || len(resource.DurationsMinutes) == 0 {
		return persistence.ErrConstraintViolation
	}
	if resource.UpdatedAt.IsZero() {
		resource.UpdatedAt = time.Now().UTC()
	}

	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `
			UPDATE resources
			SET name = ?, type = ?, enabled = ?, updated_at = ?
			WHERE id = ?`,
			resource.Name,
			resource.Type,
			boolToInt(resource.Enabled),
			formatTime(resource.UpdatedAt),
			resource.ID,
		)
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

		if _, err := tx.ExecContext(ctx, `DELETE FROM resource_durations WHERE resource_id = ?`, resource.ID); err != nil {
			return r.mapper.MapError(err)
		}
		return r.insertDurations(ctx, tx, resource.ID, resource.DurationsMinutes)
	})
}

// GetResource retrieves a resource by ID.
func (r *ResourceRepository) GetResource(ctx context.Context, id string) (persistence.Resource, error) {
	if id == "" {
		return persistence.Resource{}, persistence.ErrNotFound
	}

	row := r.helper.QueryRow(ctx, `
		SELECT id, name, type, enabled, created_at, updated_at
		FROM resources
		WHERE id = ?`, id)
	resource, err := scanResource(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.Resource{}, persistence.ErrNotFound
		}
		return persistence.Resource{}, r.mapper.MapError(err)
	}

	durations, err := r.durations(ctx, &id)
	if err != nil {
		return persistence.Resource{}, err
	}
	resource.DurationsMinutes = durations[id]
	return resource, nil
}

// ListResources returns all resources ordered by name then ID.
func (r *ResourceRepository) ListResources(ctx context.Context) ([]persistence.Resource, error) {
	rows, err := r.helper.Query(ctx, `
		SELECT id, name, type, enabled, created_at, updated_at
		FROM resources
		ORDER BY name ASC, id ASC`)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var resources []persistence.Resource
	for rows.Next() {
		resource, err := scanResource(rows)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		resources = append(resources, resource)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	rows.Close()

	durations, err := r.durations(ctx, nil)
	if err != nil {
		return nil, err
	}
	for i := range resources {
		resources[i].DurationsMinutes = durations[resources[i].ID]
	}
	return resources, nil
}

// DeleteResource removes a resource, its durations and its reservations.
func (r *ResourceRepository) DeleteResource(ctx context.Context, id string) error {
	if id == "" {
		return persistence.ErrNotFound
	}

	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM reservations WHERE resource_id = ?`, id); err != nil {
			return r.mapper.MapError(err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM resource_durations WHERE resource_id = ?`, id); err != nil {
			return r.mapper.MapError(err)
		}
		result, err := tx.ExecContext(ctx, `DELETE FROM resources WHERE id = ?`, id)
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
	})
}

func (r *ResourceRepository) insertDurations(ctx context.Context, tx *sql.Tx, resourceID string, minutes []int) error {
	for _, m := range minutes {
		if m <= 0 {
			return persistence.ErrConstraintViolation
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO resource_durations (resource_id, minutes) VALUES (?, ?)`, resourceID, m); err != nil {
			return r.mapper.MapError(err)
		}
	}
	return nil
}

// durations loads duration sets keyed by resource ID, optionally for a single resource.
func (r *ResourceRepository) durations(ctx context.Context, resourceID *string) (map[string][]int, error) {
	query := `SELECT resource_id, minutes FROM resource_durations`
	var args []any
	if resourceID != nil {
		query += ` WHERE resource_id = ?`
		args = append(args, *resourceID)
	}

	rows, err := r.helper.Query(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	result := make(map[string][]int)
	for rows.Next() {
		var id string
		var minutes int
		if err := rows.Scan(&id, &minutes); err != nil {
			return nil, r.mapper.MapError(err)
		}
		result[id] = append(result[id], minutes)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	for id := range result {
		sort.Ints(result[id])
	}
	return result, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanResource(row rowScanner) (persistence.Resource, error) {
	var (
		resource             persistence.Resource
		enabled              int
		createdAt, updatedAt string
	)
	if err := row.Scan(&resource.ID, &resource.Name, &resource.Type, &enabled, &createdAt, &updatedAt); err != nil {
		return persistence.Resource{}, err
	}
	resource.Enabled = enabled == 1

	var err error
	if resource.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
		return persistence.Resource{}, err
	}
	if resource.UpdatedAt, err = parseTime("updated_at", updatedAt); err != nil {
		return persistence.Resource{}, err
	}
	return resource, nil
}
