package http

import (
	"context"
	"log/slog"

	"github.com/example/console-booking/internal/logging"
)

func defaultLogger(logger *slog.Logger) *slog.Logger {
	if logger != nil {
		return logger
	}
	return slog.Default()
}

// handlerLogger prefers the request logger, which already carries request_id and
// any path identifiers, and tags it with the handler, the operation and whether the
// caller acted as administrator.
func handlerLogger(ctx context.Context, fallback *slog.Logger, handlerName, operation string, attrs ...any) *slog.Logger {
	logger := logging.FromContextOr(ctx, fallback)

	pairs := []any{"handler", handlerName}
	if operation != "" {
		pairs = append(pairs, "operation", operation)
	}
	if principal, ok := PrincipalFromContext(ctx); ok && principal.Admin {
		pairs = append(pairs, "admin", true)
	}
	pairs = append(pairs, attrs...)
	return logger.With(pairs...)
}
