package middleware

import (
	"net/http"

	"github.com/VivaainNg/finance-tracker/pkg/logger"

	"github.com/google/uuid"
)

const traceHeader = "X-Trace-ID"

// RequestID tags every request with a trace id, honoring one supplied
// by the caller. The id rides the request-scoped logger and is echoed
// back on the response.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID := r.Header.Get(traceHeader)
		if traceID == "" {
			traceID = uuid.NewString()
		}

		ctx := logger.With(r.Context(), "traceID", traceID)
		w.Header().Set(traceHeader, traceID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
