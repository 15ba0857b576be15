// Sliding-window rate limiting middleware.
//
// Each client is identified by the first address in X-Forwarded-For, falling
// back to the RemoteAddr host and finally to a shared "anon" key. A client
// may make limit requests in any trailing window; the next one is rejected
// with 429 without reaching the wrapped handler and without being counted.
//
//	st := store.NewMemory()
//	defer st.Close()
//	r.Use(logos.NewRateLimiter(st, 60, time.Minute, logos.RateLimitWithName("api")).Handler)
//
// Every response carries RateLimit-Limit, RateLimit-Remaining and
// RateLimit-Reset; rejected responses add Retry-After.

package logos

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/nhalm/logos/store"
)

// anonClient is the key shared by requests with no usable address.
const anonClient = "anon"

// RateLimiter implements rate limiting middleware.
type RateLimiter struct {
	store     store.Store
	limit     int64
	window    time.Duration
	name      string
	onLimited func(*http.Request)
}

// RateLimitOption configures a RateLimiter.
type RateLimitOption func(*RateLimiter)

// RateLimitWithName prefixes every key, keeping limiters that share a store
// apart.
func RateLimitWithName(name string) RateLimitOption {
	return func(l *RateLimiter) {
		l.name = name
	}
}

// RateLimitWithOnLimited registers fn to run for every rejected request.
func RateLimitWithOnLimited(fn func(*http.Request)) RateLimitOption {
	return func(l *RateLimiter) {
		l.onLimited = fn
	}
}

// NewRateLimiter creates a limiter admitting limit requests per client in any
// trailing window.
func NewRateLimiter(st store.Store, limit int, window time.Duration, opts ...RateLimitOption) *RateLimiter {
	l := &RateLimiter{
		store:  st,
		limit:  int64(limit),
		window: window,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// ClientKey identifies the caller of r.
//
// X-Forwarded-For is trusted as-is, so the service should sit behind a proxy
// that overwrites it.
func ClientKey(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.Index(xff, ","); idx != -1 {
			xff = xff[:idx]
		}
		if ip := strings.TrimSpace(xff); ip != "" {
			return ip
		}
	}
	if r.RemoteAddr != "" {
		ip, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			return r.RemoteAddr
		}
		return ip
	}
	return anonClient
}

func (l *RateLimiter) key(r *http.Request) string {
	client := ClientKey(r)
	if l.name == "" {
		return client
	}
	var sb strings.Builder
	sb.Grow(len(l.name) + 1 + len(client))
	sb.WriteString(l.name)
	sb.WriteByte(':')
	sb.WriteString(client)
	return sb.String()
}

// Handler returns the rate limiting middleware. Store failures yield 500.
func (l *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		useWrapper := HasState(ctx)

		res, err := l.store.Allow(ctx, l.key(r), l.limit, l.window)
		if err != nil {
			if useWrapper {
				SetError(r, ErrInternal.With("Rate limit check failed"))
			} else {
				http.Error(w, "Rate limit check failed", http.StatusInternalServerError)
			}
			return
		}

		headers := map[string]string{
			"RateLimit-Limit":     strconv.FormatInt(l.limit, 10),
			"RateLimit-Remaining": strconv.FormatInt(max(0, l.limit-res.Count), 10),
			"RateLimit-Reset":     strconv.FormatInt(time.Now().Add(res.ResetIn).Unix(), 10),
		}
		if !res.Allowed {
			headers["Retry-After"] = strconv.Itoa(int(math.Ceil(res.ResetIn.Seconds())))
		}
		for k, v := range headers {
			if useWrapper {
				SetHeader(r, k, v)
			} else {
				w.Header().Set(k, v)
			}
		}

		if !res.Allowed {
			if l.onLimited != nil {
				l.onLimited(r)
			}
			if useWrapper {
				SetError(r, ErrRateLimited)
			} else {
				http.Error(w, ErrRateLimited.Message, http.StatusTooManyRequests)
			}
			return
		}

		next.ServeHTTP(w, r)
	})
}
