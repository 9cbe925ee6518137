package application

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"sync"
	"time"
)

var tokenPattern = regexp.MustCompile(`^8\d{6}$`)

// ValidTokenFormat reports whether token is seven digits starting with 8.
func ValidTokenFormat(token string) bool {
	return tokenPattern.MatchString(token)
}

// TokenRepository captures the persistence operations needed by the guard.
type TokenRepository interface {
	AddToken(ctx context.Context, token string, createdAt time.Time) error
	DeleteToken(ctx context.Context, token string) error
	ListTokens(ctx context.Context) ([]string, error)
}

// GuardConfig carries the secrets the guard is constructed with.
type GuardConfig struct {
	AdminPIN   string
	SeedTokens []string
	// PINParams tunes owner PIN hashing. Zero value selects DefaultArgon2idParams.
	PINParams Argon2idParams
}

// Guard authorizes reservation creation by token and reservation mutation by PIN.
// The whitelist is held in memory and written through to the repository.
type Guard struct {
	adminPIN string
	seed     []string
	params   Argon2idParams
	tokens   TokenRepository
	now      func() time.Time
	logger   *slog.Logger

	mu        sync.RWMutex
	whitelist map[string]struct{}
}

// NewGuard constructs a guard. Call Load to populate the whitelist.
func NewGuard(cfg GuardConfig, tokens TokenRepository, now func() time.Time) *Guard {
	return NewGuardWithLogger(cfg, tokens, now, nil)
}

// NewGuardWithLogger constructs a guard with a specified logger.
func NewGuardWithLogger(cfg GuardConfig, tokens TokenRepository, now func() time.Time, logger *slog.Logger) *Guard {
	if now == nil {
		now = time.Now
	}
	params := cfg.PINParams
	if params == (Argon2idParams{}) {
		params = DefaultArgon2idParams
	}
	g := &Guard{
		adminPIN:  cfg.AdminPIN,
		seed:      append([]string(nil), cfg.SeedTokens...),
		params:    params,
		tokens:    tokens,
		now:       now,
		logger:    defaultLogger(logger),
		whitelist: make(map[string]struct{}),
	}
	for _, token := range cfg.SeedTokens {
		if ValidTokenFormat(token) {
			g.whitelist[token] = struct{}{}
		}
	}
	return g
}

func (g *Guard) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, g.logger, "Guard", operation, attrs...)
}

// Load merges the stored whitelist with the configured seed tokens and persists
// seed tokens the store does not know yet.
func (g *Guard) Load(ctx context.Context) (err error) {
	logger := g.loggerWith(ctx, "Load")
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to load token whitelist", "error", err, "error_kind", ErrorKind(err))
		}
	}()
	if g.tokens == nil {
		return nil
	}

	stored, err := g.tokens.ListTokens(ctx)
	if err != nil {
		return fmt.Errorf("list tokens: %w", err)
	}
	known := make(map[string]struct{}, len(stored))
	for _, token := range stored {
		known[token] = struct{}{}
	}

	for _, token := range g.seed {
		if !ValidTokenFormat(token) {
			logger.WarnContext(ctx, "ignoring malformed seed token")
			continue
		}
		if _, ok := known[token]; ok {
			continue
		}
		if err = g.tokens.AddToken(ctx, token, g.now()); err != nil && !errors.Is(err, ErrAlreadyExists) {
			return fmt.Errorf("seed token: %w", err)
		}
		err = nil
		known[token] = struct{}{}
	}

	g.mu.Lock()
	g.whitelist = known
	g.mu.Unlock()

	logger.InfoContext(ctx, "token whitelist loaded", "token_count", len(known))
	return nil
}

// AuthorizeCreation succeeds iff token has the expected format and is whitelisted.
func (g *Guard) AuthorizeCreation(token string) error {
	if !ValidTokenFormat(token) {
		return ErrInvalidToken
	}
	g.mu.RLock()
	_, ok := g.whitelist[token]
	g.mu.RUnlock()
	if !ok {
		return ErrInvalidToken
	}
	return nil
}

// AuthorizeMutation succeeds iff pin matches the reservation's owner PIN or the admin PIN.
func (g *Guard) AuthorizeMutation(reservation Reservation, pin string) error {
	if g.IsAdminPIN(pin) {
		return nil
	}
	if pin == "" || reservation.AdminCreated() {
		return ErrInvalidPIN
	}
	if err := VerifyPIN(reservation.OwnerPIN, pin); err != nil {
		if errors.Is(err, ErrInvalidPIN) {
			return ErrInvalidPIN
		}
		return fmt.Errorf("%w: %v", ErrInvalidPIN, err)
	}
	return nil
}

// IsAdminPIN reports whether pin equals the configured administrator PIN.
func (g *Guard) IsAdminPIN(pin string) bool {
	if g == nil || g.adminPIN == "" || pin == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(pin), []byte(g.adminPIN)) == 1
}

// HashPIN hashes an owner PIN for storage.
func (g *Guard) HashPIN(pin string) (string, error) {
	return CreatePINHash(pin, g.params)
}

// AddToken whitelists a token on behalf of an administrator.
func (g *Guard) AddToken(ctx context.Context, principal Principal, token string) (err error) {
	logger := g.loggerWith(ctx, "AddToken", "client_id", principal.ClientID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to add token", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "token added")
	}()

	if !principal.Admin {
		return ErrUnauthorized
	}
	if !ValidTokenFormat(token) {
		vErr := &ValidationError{}
		vErr.add("token", "token must be 7 digits starting with 8")
		return vErr
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.whitelist[token]; ok {
		return ErrAlreadyExists
	}
	if g.tokens != nil {
		if err = g.tokens.AddToken(ctx, token, g.now()); err != nil {
			return err
		}
	}
	g.whitelist[token] = struct{}{}
	return nil
}

// RemoveToken removes a token from the whitelist. Existing reservations keep working.
func (g *Guard) RemoveToken(ctx context.Context, principal Principal, token string) (err error) {
	logger := g.loggerWith(ctx, "RemoveToken", "client_id", principal.ClientID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to remove token", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "token removed")
	}()

	if !principal.Admin {
		return ErrUnauthorized
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.whitelist[token]; !ok {
		return ErrNotFound
	}
	if g.tokens != nil {
		if err = g.tokens.DeleteToken(ctx, token); err != nil && !errors.Is(err, ErrNotFound) {
			return err
		}
		err = nil
	}
	delete(g.whitelist, token)
	return nil
}

// Tokens lists the whitelist for administrators.
func (g *Guard) Tokens(principal Principal) ([]string, error) {
	if !principal.Admin {
		return nil, ErrUnauthorized
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	tokens := make([]string, 0, len(g.whitelist))
	for token := range g.whitelist {
		tokens = append(tokens, token)
	}
	sort.Strings(tokens)
	return tokens, nil
}
