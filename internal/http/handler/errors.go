package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/memberkit/credential-service/internal/http/response"
	"github.com/memberkit/credential-service/internal/service"
)

// writeServiceError maps service errors onto the HTTP error envelope. Unknown
// errors are logged and reported as a generic 500.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var throttled *service.ThrottledError
	var banned *service.BannedError
	switch {
	case errors.As(err, &throttled):
		w.Header().Set("Retry-After", retryAfterSeconds(throttled.RetryAfter))
		response.Error(w, r, http.StatusTooManyRequests, "THROTTLED", "too many attempts, try again later", map[string]any{
			"retry_after_seconds": retryAfterSeconds(throttled.RetryAfter),
		})
	case errors.Is(err, service.ErrLoginThrottled):
		response.Error(w, r, http.StatusTooManyRequests, "THROTTLED", "too many attempts, try again later", nil)
	case errors.As(err, &banned):
		var details any
		if banned.Reason != "" {
			details = map[string]string{"reason": banned.Reason}
		}
		response.Error(w, r, http.StatusForbidden, "ACCOUNT_BANNED", "account is banned", details)
	case errors.Is(err, service.ErrAccountBanned):
		response.Error(w, r, http.StatusForbidden, "ACCOUNT_BANNED", "account is banned", nil)
	case errors.Is(err, service.ErrAccountNotActivated):
		response.Error(w, r, http.StatusForbidden, "ACCOUNT_NOT_ACTIVATED", "account is not activated", nil)
	case errors.Is(err, service.ErrInvalidCredentials):
		response.Error(w, r, http.StatusUnauthorized, "INVALID_CREDENTIALS", "invalid credentials", nil)
	case errors.Is(err, service.ErrInvalidToken):
		response.Error(w, r, http.StatusBadRequest, "INVALID_TOKEN", "token is invalid or expired", nil)
	case errors.Is(err, service.ErrWeakPassword), errors.Is(err, service.ErrPasswordUnchanged):
		response.Error(w, r, http.StatusBadRequest, "WEAK_PASSWORD", err.Error(), nil)
	case errors.Is(err, service.ErrInvalidInput):
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
	case errors.Is(err, service.ErrEmailTaken):
		response.Error(w, r, http.StatusConflict, "CONFLICT", "email is already registered", map[string]string{"field": "email"})
	case errors.Is(err, service.ErrUsernameTaken):
		response.Error(w, r, http.StatusConflict, "CONFLICT", "username is already taken", map[string]string{"field": "username"})
	case errors.Is(err, service.ErrUserNotFound):
		response.Error(w, r, http.StatusNotFound, "NOT_FOUND", "user not found", nil)
	case errors.Is(err, service.ErrProfileSectionNotFound):
		response.Error(w, r, http.StatusNotFound, "NOT_FOUND", "profile section not found", nil)
	default:
		slog.ErrorContext(r.Context(), "request failed", "route", r.URL.Path, "error", err)
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "internal error", nil)
	}
}

// decodeJSON reads a single JSON object from the body. It writes the error
// response itself and reports whether the handler should continue.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			response.Error(w, r, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "request body too large", nil)
			return false
		}
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return false
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return false
	}
	return true
}

func retryAfterSeconds(d time.Duration) string {
	seconds := int((d + time.Second - 1) / time.Second)
	if seconds < 1 {
		seconds = 1
	}
	return strconv.Itoa(seconds)
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	return strings.TrimSpace(r.RemoteAddr)
}
