package middleware

import (
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// sensitiveParams are query parameter names that should be filtered from logs
var sensitiveParams = []string{
	"password",
	"token",
	"access_token",
	"refresh_token",
	"secret",
}

func LoggingMiddleware(logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ww := &statusWriter{ResponseWriter: w}
			next.ServeHTTP(ww, r)

			statusCode := ww.statusCode
			if statusCode == 0 {
				statusCode = http.StatusOK
			}

			logLevel := slog.LevelInfo
			if statusCode >= 400 && statusCode < 500 {
				logLevel = slog.LevelWarn
			} else if statusCode >= 500 {
				logLevel = slog.LevelError
			}

			logger.Log(r.Context(), logLevel, "request completed",
				"method", r.Method,
				"path", r.URL.Path,
				"query", filterSensitiveQuery(r.URL.RawQuery),
				"status_code", statusCode,
				"duration_ms", time.Since(start).Milliseconds(),
				"remote_addr", r.RemoteAddr,
			)
		})
	}
}

type statusWriter struct {
	http.ResponseWriter
	statusCode int
}

func (sw *statusWriter) WriteHeader(code int) {
	sw.statusCode = code
	sw.ResponseWriter.WriteHeader(code)
}

func filterSensitiveQuery(rawQuery string) string {
	if rawQuery == "" {
		return ""
	}
	lower := strings.ToLower(rawQuery)
	for _, param := range sensitiveParams {
		if strings.Contains(lower, param) {
			return "[FILTERED]"
		}
	}
	return rawQuery
}
