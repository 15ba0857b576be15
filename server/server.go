// Package server wires the quote API, the landing page and operational
// endpoints onto a chi router.
package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/nhalm/logos"
	"github.com/nhalm/logos/metrics"
	"github.com/nhalm/logos/quote"
	"github.com/nhalm/logos/store"
	"github.com/nhalm/logos/web"
)

// Defaults for the API rate limit: 60 requests per client per minute.
const (
	DefaultRateLimit  = 60
	DefaultRateWindow = time.Minute
)

// Server serves one immutable Dataset.
type Server struct {
	ds          *quote.Dataset
	store       store.Store
	limit       int
	window      time.Duration
	corsOrigins []string
	metrics     *metrics.Collector
	now         func() time.Time
}

// Option configures a Server.
type Option func(*Server)

// WithRateLimit overrides the per-client limit and window of the API routes.
func WithRateLimit(limit int, window time.Duration) Option {
	return func(s *Server) {
		s.limit = limit
		s.window = window
	}
}

// WithCORSOrigins sets the origins allowed to call the API from a browser.
func WithCORSOrigins(origins ...string) Option {
	return func(s *Server) {
		s.corsOrigins = origins
	}
}

// WithMetrics instruments every route and serves the collector at /metrics.
func WithMetrics(c *metrics.Collector) Option {
	return func(s *Server) {
		s.metrics = c
	}
}

// WithClock replaces time.Now for daily selection.
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		s.now = now
	}
}

// New returns the HTTP handler for ds. Rate limit counters live in st, which
// the caller owns and closes.
func New(ds *quote.Dataset, st store.Store, opts ...Option) http.Handler {
	s := &Server{
		ds:          ds,
		store:       st,
		limit:       DefaultRateLimit,
		window:      DefaultRateWindow,
		corsOrigins: []string{"*"},
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics != nil {
		s.metrics.DatasetQuotes.Set(float64(ds.Len()))
	}
	return s.routes()
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	if s.metrics != nil {
		r.Use(s.metrics.Instrument)
	}
	r.Use(logos.Handler(
		logos.WithCanonlog(),
		logos.WithCanonlogFields(func(r *http.Request) map[string]any {
			return map[string]any{
				"request_id": middleware.GetReqID(r.Context()),
				"client":     logos.ClientKey(r),
			}
		}),
		logos.WithSLOs(),
	))

	r.NotFound(func(_ http.ResponseWriter, r *http.Request) {
		logos.SetError(r, logos.ErrNotFound)
	})
	r.MethodNotAllowed(func(_ http.ResponseWriter, r *http.Request) {
		logos.SetError(r, logos.ErrMethodNotAllowed)
	})

	r.Group(func(r chi.Router) {
		r.Use(logos.SLO(logos.SLOHighSlow))
		r.Get("/", s.index)
		r.Handle("/static/*", http.StripPrefix("/static/", web.Static()))
	})

	r.Group(func(r chi.Router) {
		r.Use(logos.SLO(logos.SLOLow))
		r.Get("/healthz", s.health)
		if s.metrics != nil {
			r.Handle("/metrics", s.metrics.Handler())
		}
	})

	limiter := logos.NewRateLimiter(s.store, s.limit, s.window,
		logos.RateLimitWithName("api"),
		logos.RateLimitWithOnLimited(func(*http.Request) {
			if s.metrics != nil {
				s.metrics.RateLimited.Inc()
			}
		}),
	)

	r.Route("/api", func(r chi.Router) {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.corsOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodOptions},
			ExposedHeaders: []string{"RateLimit-Limit", "RateLimit-Remaining", "RateLimit-Reset", "Retry-After"},
			MaxAge:         300,
		}))
		r.Use(logos.SLO(logos.SLOHighFast))
		r.Use(limiter.Handler)

		r.Get("/quote", s.getQuote)
		r.Get("/quotes", s.listQuotes)
	})

	return r
}
