package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/console-booking/internal/application"
)

type tokenService interface {
	AddToken(ctx context.Context, principal application.Principal, token string) error
	RemoveToken(ctx context.Context, principal application.Principal, token string) error
	Tokens(principal application.Principal) ([]string, error)
}

// TokenHandler exposes whitelist administration to administrators.
type TokenHandler struct {
	service   tokenService
	responder responder
}

func NewTokenHandler(service tokenService, logger *slog.Logger) *TokenHandler {
	return &TokenHandler{service: service, responder: newResponder(logger)}
}

func (h *TokenHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	tokens, err := h.service.Tokens(principal)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, tokensResponse{Tokens: tokens})
}

func (h *TokenHandler) Add(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req tokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	token := strings.TrimSpace(req.Token)
	if err := h.service.AddToken(r.Context(), principal, token); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, tokenRequest{Token: token})
}

func (h *TokenHandler) Remove(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	token, ok := TokenFromContext(r.Context())
	if !ok || strings.TrimSpace(token) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidToken)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	if err := h.service.RemoveToken(r.Context(), principal, token); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

type tokenRequest struct {
	Token string `json:"token"`
}

type tokensResponse struct {
	Tokens []string `json:"tokens"`
}
