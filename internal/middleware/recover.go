package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"health-record-portal/internal/platform/apperr"
	"health-record-portal/internal/platform/httpx"
	"health-record-portal/internal/platform/logger"

	chimw "github.com/go-chi/chi/v5/middleware"
)

// Recover turns a panic into a logged 500 with the usual JSON error body.
func Recover(log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				log.Error("panic recovered", map[string]any{
					"request_id": chimw.GetReqID(r.Context()),
					"method":     r.Method,
					"path":       r.URL.Path,
					"panic":      fmt.Sprint(rec),
					"stack":      string(debug.Stack()),
				})
				httpx.WriteError(w, apperr.New(apperr.KindInternal, "panic"))
			}()
			next.ServeHTTP(w, r)
		})
	}
}
