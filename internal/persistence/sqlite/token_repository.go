package sqlite

import (
	"context"
	"time"

	"github.com/example/console-booking/internal/persistence"
)

// TokenRepository implements persistence.TokenRepository using SQLite
type TokenRepository struct {
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewTokenRepository creates a new SQLite token repository
func NewTokenRepository(pool *ConnectionPool) *TokenRepository {
	return &TokenRepository{
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

// AddToken whitelists a token. Adding an existing token returns ErrDuplicate.
func (r *TokenRepository) AddToken(ctx context.Context, token persistence.AuthorizationToken) error {
	if token.Token == "" {
		return persistence.ErrConstraintViolation
	}
	if token.CreatedAt.IsZero() {
		token.CreatedAt = time.Now().UTC()
	}
	_, err := r.helper.Exec(ctx,
		`INSERT INTO authorization_tokens (token, created_at) VALUES (?, ?)`,
		token.Token, formatTime(token.CreatedAt))
	return r.mapper.MapError(err)
}

// DeleteToken removes a token from the whitelist.
func (r *TokenRepository) DeleteToken(ctx context.Context, token string) error {
	result, err := r.helper.Exec(ctx, `DELETE FROM authorization_tokens WHERE token = ?`, token)
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

// ListTokens returns the whitelist ordered by token.
func (r *TokenRepository) ListTokens(ctx context.Context) ([]persistence.AuthorizationToken, error) {
	rows, err := r.helper.Query(ctx, `SELECT token, created_at FROM authorization_tokens ORDER BY token ASC`)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var tokens []persistence.AuthorizationToken
	for rows.Next() {
		var token persistence.AuthorizationToken
		var createdAt string
		if err := rows.Scan(&token.Token, &createdAt); err != nil {
			return nil, r.mapper.MapError(err)
		}
		if token.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
			return nil, err
		}
		tokens = append(tokens, token)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return tokens, nil
}
