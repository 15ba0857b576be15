package logos

import (
	"context"
	"net/http"
	"sync"
)

type stateContextKey string

const stateKey stateContextKey = "logos_state"

// State holds the pending response for one request. Handlers and middleware
// may touch it from several goroutines, so every field is guarded by mu.
type State struct {
	mu      sync.Mutex
	err     *APIError
	status  int
	body    any
	headers http.Header
}

// HasState reports whether Handler is active for ctx.
func HasState(ctx context.Context) bool {
	return getState(ctx) != nil
}

func getState(ctx context.Context) *State {
	state, _ := ctx.Value(stateKey).(*State)
	return state
}
