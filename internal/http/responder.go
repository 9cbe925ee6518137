package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/console-booking/internal/application"
	"github.com/example/console-booking/internal/logging"
)

var (
	errBadRequestBody      = errors.New("無効なリクエスト形式です。")
	errInvalidResourceID   = errors.New("無効な機器 ID です。")
	errInvalidReservation  = errors.New("無効な予約 ID です。")
	errInvalidToken        = errors.New("無効な認可トークンです。")
	errInvalidInstant      = errors.New("日時は RFC 3339 形式で指定してください。")
	errRateLimited         = errors.New("リクエストが多すぎます。しばらくしてから再試行してください。")
	errMetricsUnauthorized = errors.New("メトリクスの参照には認証が必要です。")
)

type responder struct {
	logger *slog.Logger
}

func newResponder(logger *slog.Logger) responder {
	if logger == nil {
		logger = slog.Default()
	}
	return responder{logger: logger}
}

func (r responder) writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	if w == nil {
		return
	}

	if status == http.StatusNoContent || payload == nil {
		w.WriteHeader(status)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		r.loggerFor(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (r responder) writeError(ctx context.Context, w http.ResponseWriter, status int, err error) {
	message := localizedStatusMessage(status)
	if err != nil {
		if msg := strings.TrimSpace(err.Error()); msg != "" {
			message = msg
		}
		r.loggerFor(ctx).ErrorContext(ctx, "request failed", "status", status, "error", err)
	}

	r.writeJSON(ctx, w, status, errorResponse{Message: message})
}

func (r responder) handleServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		r.writeError(ctx, w, http.StatusInternalServerError, errors.New("unknown error"))
		return
	}

	var conflict *application.ConflictError
	var vErr *application.ValidationError

	switch {
	case errors.Is(err, application.ErrInvalidToken):
		r.writeJSON(ctx, w, http.StatusForbidden, errorResponse{
			ErrorCode: "INVALID_TOKEN",
			Message:   "認可トークンが無効です。",
		})
	case errors.Is(err, application.ErrInvalidPIN):
		r.writeJSON(ctx, w, http.StatusForbidden, errorResponse{
			ErrorCode: "INVALID_PIN",
			Message:   "PIN が正しくありません。",
		})
	case errors.Is(err, application.ErrUnauthorized):
		r.writeJSON(ctx, w, http.StatusForbidden, errorResponse{
			ErrorCode: "AUTH_FORBIDDEN",
			Message:   "この操作を実行する権限がありません。",
		})
	case errors.Is(err, application.ErrNotFound):
		r.writeJSON(ctx, w, http.StatusNotFound, errorResponse{
			ErrorCode: "NOT_FOUND",
			Message:   "指定されたリソースが見つかりません。",
		})
	case errors.Is(err, application.ErrInvalidDuration):
		r.writeJSON(ctx, w, http.StatusUnprocessableEntity, errorResponse{
			ErrorCode: "INVALID_DURATION",
			Message:   "この機器では指定された利用時間を選択できません。",
		})
	case errors.Is(err, application.ErrInvalidWindow):
		r.writeJSON(ctx, w, http.StatusUnprocessableEntity, errorResponse{
			ErrorCode: "INVALID_WINDOW",
			Message:   "予約時間帯が正しくありません。",
		})
	case errors.As(err, &vErr):
		r.writeJSON(ctx, w, http.StatusUnprocessableEntity, errorResponse{
			ErrorCode: "VALIDATION_FAILED",
			Message:   "入力内容に誤りがあります。",
			Errors:    localizeValidationErrors(vErr),
		})
	case errors.As(err, &conflict):
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{
			ErrorCode:          "SLOT_CONFLICT",
			Message:            "指定された時間帯は既に予約されています。",
			NextAvailableStart: conflict.NextAvailableStart.UTC().Format(time.RFC3339),
		})
	case errors.Is(err, application.ErrSlotConflict):
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{
			ErrorCode: "SLOT_CONFLICT",
			Message:   "指定された時間帯は既に予約されています。",
		})
	case errors.Is(err, application.ErrResourceDisabled):
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{
			ErrorCode: "RESOURCE_DISABLED",
			Message:   "この機器は現在利用できません。",
		})
	case errors.Is(err, application.ErrResourceInUse):
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{
			ErrorCode: "RESOURCE_IN_USE",
			Message:   "利用中の予約があるため変更できません。",
		})
	case errors.Is(err, application.ErrInvalidTransition):
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{
			ErrorCode: "INVALID_TRANSITION",
			Message:   "現在の状態ではこの操作を実行できません。",
		})
	case errors.Is(err, application.ErrAlreadyExists):
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{
			ErrorCode: "ALREADY_EXISTS",
			Message:   "同じ内容のデータが既に存在します。",
		})
	case errors.Is(err, application.ErrBusy):
		w.Header().Set("Retry-After", "1")
		r.writeJSON(ctx, w, http.StatusServiceUnavailable, errorResponse{
			ErrorCode: "BUSY",
			Message:   "処理が混み合っています。しばらくしてから再試行してください。",
		})
	case errors.Is(err, application.ErrDataCorruption):
		r.writeJSON(ctx, w, http.StatusInternalServerError, errorResponse{
			ErrorCode: "DATA_CORRUPTION",
			Message:   "保存されている予約データに不整合があります。",
		})
	default:
		r.writeJSON(ctx, w, http.StatusInternalServerError, errorResponse{Message: "サーバー内部でエラーが発生しました。"})
	}
}

func (r responder) loggerFor(ctx context.Context) *slog.Logger {
	return logging.FromContextOr(ctx, r.logger)
}

func localizedStatusMessage(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "リクエスト内容が正しくありません。"
	case http.StatusUnauthorized:
		return "認証が必要です。"
	case http.StatusForbidden:
		return "この操作を実行する権限がありません。"
	case http.StatusNotFound:
		return "指定されたリソースが見つかりません。"
	case http.StatusConflict:
		return "要求はリソースの現在の状態と競合しています。"
	case http.StatusUnprocessableEntity:
		return "入力内容に誤りがあります。"
	case http.StatusTooManyRequests:
		return "リクエストが多すぎます。"
	case http.StatusServiceUnavailable:
		return "サービスを利用できません。"
	default:
		return "サーバー内部でエラーが発生しました。"
	}
}

func localizeValidationErrors(vErr *application.ValidationError) map[string]string {
	if vErr == nil || len(vErr.FieldErrors) == 0 {
		return nil
	}

	translated := make(map[string]string, len(vErr.FieldErrors))
	for field, msg := range vErr.FieldErrors {
		translated[field] = translateValidationMessage(msg)
	}
	return translated
}

func translateValidationMessage(message string) string {
	switch message {
	case "name is required":
		return "機器名は必須です。"
	case "type is required":
		return "機種は必須です。"
	case "at least one duration is required":
		return "利用時間を 1 つ以上指定してください。"
	case "durations must be positive whole minutes", "durations must be positive minutes":
		return "利用時間は正の分単位で指定してください。"
	case "owner name is required":
		return "予約者名は必須です。"
	case "resource is required":
		return "予約する機器を指定してください。"
	case "pin must be 4 digits":
		return "PIN は 4 桁の数字で指定してください。"
	case "a reservation cannot move to another resource":
		return "予約を別の機器へ移動することはできません。"
	case "token must be 7 digits starting with 8":
		return "認可トークンは 8 から始まる 7 桁の数字で指定してください。"
	default:
		return message
	}
}

type errorResponse struct {
	ErrorCode          string            `json:"error_code,omitempty"`
	Message            string            `json:"message"`
	Errors             map[string]string `json:"errors,omitempty"`
	NextAvailableStart string            `json:"next_available_start,omitempty"`
}
