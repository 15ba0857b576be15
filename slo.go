package logos

import (
	"context"
	"net/http"
	"time"
)

// SLOTier names a latency class logged alongside each request.
type SLOTier string

const (
	// SLOHighFast is for interactive API calls (100ms).
	SLOHighFast SLOTier = "high_fast"

	// SLOHighSlow is for pages that render templates or assets (1000ms).
	SLOHighSlow SLOTier = "high_slow"

	// SLOLow is for operational endpoints such as health and metrics (5000ms).
	SLOLow SLOTier = "low"
)

var sloTargets = map[SLOTier]time.Duration{
	SLOHighFast: 100 * time.Millisecond,
	SLOHighSlow: 1000 * time.Millisecond,
	SLOLow:      5000 * time.Millisecond,
}

type sloContextKey string

const sloConfigKey sloContextKey = "slo_config"

type sloConfig struct {
	tier   SLOTier
	target time.Duration
}

// SLO tags requests with tier so Handler can log PASS or FAIL against the
// tier's latency target.
func SLO(tier SLOTier) func(http.Handler) http.Handler {
	cfg := &sloConfig{tier: tier, target: sloTargets[tier]}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), sloConfigKey, cfg)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetSLO returns the tier and target set by SLO.
func GetSLO(ctx context.Context) (SLOTier, time.Duration, bool) {
	cfg, ok := ctx.Value(sloConfigKey).(*sloConfig)
	if !ok {
		return "", 0, false
	}
	return cfg.tier, cfg.target, true
}
