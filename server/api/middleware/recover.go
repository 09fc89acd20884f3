package middleware

import (
	"encoding/json"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/rs/zerolog"
)

// Recover turns a handler panic into a 500 with the API error envelope and
// logs the stack trace. The request ID is read back from the response
// header, so Recover may sit outside RequestID.
func Recover(log zerolog.Logger) func(next http.Handler) http.Handler {
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

				requestID := w.Header().Get(RequestIDHeader)
				log.Error().
					Interface("error", rec).
					Str("request_id", requestID).
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Bytes("stack", debug.Stack()).
					Msg("http_panic")

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				_ = json.NewEncoder(w).Encode(map[string]any{"error": map[string]any{
					"code":       "internal",
					"message":    http.StatusText(http.StatusInternalServerError),
					"request_id": requestID,
					"timestamp":  time.Now().UTC().Format(time.RFC3339),
				}})
			}()
			next.ServeHTTP(w, r)
		})
	}
}
