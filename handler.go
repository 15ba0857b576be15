package logos

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/nhalm/canonlog"
)

// HandlerOption configures the Handler middleware.
type HandlerOption func(*config)

type config struct {
	canonlog       bool
	canonlogFields func(*http.Request) map[string]any
	slosEnabled    bool
}

// WithCanonlog emits one canonical log line per request with method, path,
// route, status, duration_ms and any error recorded with SetError.
func WithCanonlog() HandlerOption {
	return func(c *config) {
		c.canonlog = true
	}
}

// WithCanonlogFields adds fields to each canonical log line. fn runs before
// the wrapped handler.
func WithCanonlogFields(fn func(*http.Request) map[string]any) HandlerOption {
	return func(c *config) {
		c.canonlogFields = fn
	}
}

// WithSLOs adds slo_class and slo_status (PASS or FAIL) to the canonical log
// line of requests tagged with SLO. Requires WithCanonlog.
func WithSLOs() HandlerOption {
	return func(c *config) {
		c.slosEnabled = true
	}
}

// Handler returns middleware that owns the response for every request below
// it. It installs the State read by SetResponse and SetError, recovers panics
// as 500s and renders the recorded outcome as JSON. Handlers that write to
// the ResponseWriter themselves, like the landing page, are left untouched.
func Handler(opts ...HandlerOption) func(http.Handler) http.Handler {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			state := &State{}
			ctx := context.WithValue(r.Context(), stateKey, state)
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			var start time.Time
			if cfg.canonlog {
				ctx = canonlog.NewContext(ctx)
				start = time.Now()

				canonlog.InfoAddMany(ctx, map[string]any{
					"method": r.Method,
					"path":   r.URL.Path,
				})

				if cfg.canonlogFields != nil {
					canonlog.InfoAddMany(ctx, cfg.canonlogFields(r))
				}
			}

			r = r.WithContext(ctx)

			defer func() {
				if rec := recover(); rec != nil {
					state.mu.Lock()
					state.err = ErrInternal
					state.mu.Unlock()

					if cfg.canonlog {
						canonlog.ErrorAdd(ctx, fmt.Errorf("panic: %v", rec))
					}
				}

				writeResponse(ww, state)

				if !cfg.canonlog {
					return
				}

				state.mu.Lock()
				if state.err != nil {
					canonlog.ErrorAdd(ctx, state.err)
				}
				state.mu.Unlock()

				duration := time.Since(start)

				route := r.URL.Path
				if rctx := chi.RouteContext(ctx); rctx != nil {
					if pattern := rctx.RoutePattern(); pattern != "" {
						route = pattern
					}
				}

				canonlog.InfoAddMany(ctx, map[string]any{
					"route":       route,
					"status":      ww.Status(),
					"duration_ms": duration.Milliseconds(),
				})

				if cfg.slosEnabled {
					if tier, target, ok := GetSLO(ctx); ok {
						sloStatus := "PASS"
						if duration > target {
							sloStatus = "FAIL"
						}
						canonlog.InfoAdd(ctx, "slo_class", string(tier))
						canonlog.InfoAdd(ctx, "slo_status", sloStatus)
					}
				}

				canonlog.Flush(ctx)
			}()

			next.ServeHTTP(ww, r)
		})
	}
}

func writeResponse(w http.ResponseWriter, state *State) {
	state.mu.Lock()
	defer state.mu.Unlock()

	for key, values := range state.headers {
		for _, value := range values {
			w.Header().Add(key, value)
		}
	}

	if state.err != nil {
		writeJSON(w, state.err.Status, errorResponse{Error: state.err})
		return
	}

	if state.body != nil {
		writeJSON(w, state.status, state.body)
		return
	}

	if state.status != 0 {
		w.WriteHeader(state.status)
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	buf := new(bytes.Buffer)
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(body); err != nil {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("Internal server error"))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(buf.Bytes())
}
