package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// StructuredRequestLogger writes one "http.request" record per request and
// echoes the request id in X-Request-Id. Request bodies are never logged, so
// passwords and tokens cannot leak through it.
func StructuredRequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		reqID := chimiddleware.GetReqID(r.Context())
		if reqID != "" {
			w.Header().Set("X-Request-Id", reqID)
		}
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		attrs := append(routeAttrs(r),
			slog.Int("status", status),
			slog.Int("bytes", ww.BytesWritten()),
			slog.Float64("duration_ms", float64(time.Since(start).Microseconds())/1000),
			slog.String("request_id", reqID),
			slog.String("client_ip", clientIPKey(r)),
			slog.String("user_agent", r.UserAgent()),
		)
		slog.Default().LogAttrs(r.Context(), levelForStatus(status), "http.request", attrs...)
	})
}

// routeAttrs prefers the matched chi pattern so that member names stay out of
// the route label. The raw path is logged only for unmatched requests.
func routeAttrs(r *http.Request) []slog.Attr {
	pattern := ""
	if rc := chi.RouteContext(r.Context()); rc != nil {
		pattern = rc.RoutePattern()
	}
	attrs := []slog.Attr{slog.String("method", r.Method), slog.String("route", pattern)}
	if pattern == "" {
		attrs = append(attrs, slog.String("path", r.URL.Path))
	}
	return attrs
}

func levelForStatus(status int) slog.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return slog.LevelError
	case status == http.StatusTooManyRequests, status == http.StatusForbidden:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}
