package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/devix/thermoscan/internal/api/response"
)

// Recovery turns handler panics into a 500 response. Writing the response may
// itself fail when the handler already started streaming a body; that error is
// ignored since the connection is unusable at that point anyway.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			slog.Error("panic recovered",
				"panic", rec,
				"method", r.Method,
				"path", r.URL.Path,
				"stack", string(debug.Stack()),
			)
			response.Error(w, http.StatusInternalServerError,
				"INTERNAL_ERROR", "An unexpected error occurred", nil)
		}()
		next.ServeHTTP(w, r)
	})
}
