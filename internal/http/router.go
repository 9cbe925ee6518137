package http

import (
	"context"
	"net/http"
	"strings"
)

// RouterConfig wires handlers and cross-cutting middleware into the router.
type RouterConfig struct {
	Resources    *ResourceHandler
	Reservations *ReservationHandler
	Tokens       *TokenHandler
	// Health reports readiness for GET /healthz. Nil means always healthy.
	Health func(ctx context.Context) error
	// Metrics serves GET /metrics when set.
	Metrics    http.Handler
	Middleware []func(http.Handler) http.Handler
}

func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			methodNotAllowed(w, http.MethodGet)
			return
		}
		status, body := http.StatusOK, map[string]string{"status": "ok"}
		if cfg.Health != nil {
			if err := cfg.Health(r.Context()); err != nil {
				status, body = http.StatusServiceUnavailable, map[string]string{"status": "unavailable"}
			}
		}
		newResponder(nil).writeJSON(r.Context(), w, status, body)
	})

	if cfg.Metrics != nil {
		mux.Handle("/metrics", cfg.Metrics)
	}

	if cfg.Resources != nil {
		mux.HandleFunc("/resources", func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				cfg.Resources.List(w, r)
			case http.MethodPost:
				cfg.Resources.Create(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPost)
			}
		})
		mux.HandleFunc("/resources/", func(w http.ResponseWriter, r *http.Request) {
			id, action, ok := splitIDPath(r.URL.Path, "/resources/")
			if !ok {
				http.NotFound(w, r)
				return
			}
			r = r.WithContext(ContextWithResourceID(r.Context(), id))
			switch action {
			case "":
				switch r.Method {
				case http.MethodGet:
					cfg.Resources.Get(w, r)
				case http.MethodPut:
					cfg.Resources.Update(w, r)
				case http.MethodDelete:
					cfg.Resources.Delete(w, r)
				default:
					methodNotAllowed(w, http.MethodGet, http.MethodPut, http.MethodDelete)
				}
			case "enabled":
				if r.Method != http.MethodPost {
					methodNotAllowed(w, http.MethodPost)
					return
				}
				cfg.Resources.SetEnabled(w, r)
			case "schedule":
				if r.Method != http.MethodGet {
					methodNotAllowed(w, http.MethodGet)
					return
				}
				cfg.Resources.Schedule(w, r)
			case "next-slot":
				if r.Method != http.MethodGet {
					methodNotAllowed(w, http.MethodGet)
					return
				}
				cfg.Resources.NextSlot(w, r)
			default:
				http.NotFound(w, r)
			}
		})
	}

	if cfg.Reservations != nil {
		mux.HandleFunc("/reservations", func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				cfg.Reservations.List(w, r)
			case http.MethodPost:
				cfg.Reservations.Create(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPost)
			}
		})
		mux.HandleFunc("/reservations/", func(w http.ResponseWriter, r *http.Request) {
			id, action, ok := splitIDPath(r.URL.Path, "/reservations/")
			if !ok {
				http.NotFound(w, r)
				return
			}
			r = r.WithContext(ContextWithReservationID(r.Context(), id))
			switch action {
			case "":
				switch r.Method {
				case http.MethodPut:
					cfg.Reservations.Modify(w, r)
				case http.MethodDelete:
					cfg.Reservations.Cancel(w, r)
				default:
					methodNotAllowed(w, http.MethodPut, http.MethodDelete)
				}
			case "validate":
				if r.Method != http.MethodPost {
					methodNotAllowed(w, http.MethodPost)
					return
				}
				cfg.Reservations.Validate(w, r)
			default:
				http.NotFound(w, r)
			}
		})
	}

	if cfg.Tokens != nil {
		mux.HandleFunc("/tokens", func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				cfg.Tokens.List(w, r)
			case http.MethodPost:
				cfg.Tokens.Add(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPost)
			}
		})
		mux.HandleFunc("/tokens/", func(w http.ResponseWriter, r *http.Request) {
			token, action, ok := splitIDPath(r.URL.Path, "/tokens/")
			if !ok || action != "" {
				http.NotFound(w, r)
				return
			}
			if r.Method != http.MethodDelete {
				methodNotAllowed(w, http.MethodDelete)
				return
			}
			cfg.Tokens.Remove(w, r.WithContext(ContextWithToken(r.Context(), token)))
		})
	}

	var handler http.Handler = mux
	if len(cfg.Middleware) > 0 {
		for i := len(cfg.Middleware) - 1; i >= 0; i-- {
			if cfg.Middleware[i] != nil {
				handler = cfg.Middleware[i](handler)
			}
		}
	}

	return handler
}

// splitIDPath turns "/prefix/{id}" or "/prefix/{id}/{action}" into its parts.
func splitIDPath(path, prefix string) (id, action string, ok bool) {
	rest := strings.TrimPrefix(path, prefix)
	parts := strings.Split(rest, "/")
	switch {
	case len(parts) == 1 && parts[0] != "":
		return parts[0], "", true
	case len(parts) == 2 && parts[0] != "" && parts[1] != "":
		return parts[0], parts[1], true
	default:
		return "", "", false
	}
}

// routeLabel collapses identifiers so metrics labels stay bounded.
func routeLabel(path string) string {
	for _, prefix := range []string{"/resources", "/reservations", "/tokens"} {
		if path == prefix {
			return prefix
		}
		if !strings.HasPrefix(path, prefix+"/") {
			continue
		}
		_, action, ok := splitIDPath(path, prefix+"/")
		if !ok {
			return "unknown"
		}
		placeholder := "/{id}"
		if prefix == "/tokens" {
			placeholder = "/{token}"
		}
		switch action {
		case "":
			return prefix + placeholder
		case "enabled", "schedule", "next-slot", "validate":
			return prefix + placeholder + "/" + action
		}
		return "unknown"
	}
	switch path {
	case "/healthz", "/metrics":
		return path
	}
	return "unknown"
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	if len(allowed) > 0 {
		w.Header().Set("Allow", strings.Join(allowed, ", "))
	}
	http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
}
