package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// statusRecorder captures what a handler wrote for the access log.
type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int64
}

func (w *statusRecorder) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusRecorder) Write(b []byte) (int, error) {
	n, err := w.ResponseWriter.Write(b)
	w.bytes += int64(n)
	return n, err
}

type annotationsKey struct{}

// annotations are the fields handlers add to their request's access line.
type annotations struct {
	mu     sync.Mutex
	keys   []string
	values map[string]string
}

// Annotate adds key to the access log line of the request ctx belongs to,
// such as the command a dispatch sent. A repeated key keeps the last value.
// Outside Logger it does nothing.
func Annotate(ctx context.Context, key, value string) {
	a, ok := ctx.Value(annotationsKey{}).(*annotations)
	if !ok {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, seen := a.values[key]; !seen {
		a.keys = append(a.keys, key)
	}
	a.values[key] = value
}

func (a *annotations) apply(evt *zerolog.Event) *zerolog.Event {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, k := range a.keys {
		evt = evt.Str(k, a.values[k])
	}
	return evt
}

// Logger writes one access line per request. Failures log at warn or error,
// health checks at debug.
func Logger(log zerolog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			notes := &annotations{values: make(map[string]string)}
			rw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rw, r.WithContext(context.WithValue(r.Context(), annotationsKey{}, notes)))

			requestID, _ := r.Context().Value(RequestIDKey).(string)
			if requestID == "" {
				requestID = rw.Header().Get(RequestIDHeader)
			}

			var evt *zerolog.Event
			switch {
			case rw.status >= 500:
				evt = log.Error()
			case rw.status >= 400:
				evt = log.Warn()
			case r.URL.Path == "/health" || r.URL.Path == "/metrics":
				evt = log.Debug()
			default:
				evt = log.Info()
			}

			notes.apply(evt.
				Str("request_id", requestID).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Str("remote_addr", r.RemoteAddr).
				Int("status", rw.status).
				Int64("bytes", rw.bytes).
				Dur("latency", time.Since(start))).
				Msg("http_request")
		})
	}
}
