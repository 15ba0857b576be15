package logos

import "net/http"

// SetError records an error response. An error always wins over a body set
// with SetResponse. Without Handler in the chain this is a no-op.
func SetError(r *http.Request, err *APIError) {
	state := getState(r.Context())
	if state == nil {
		return
	}
	state.mu.Lock()
	defer state.mu.Unlock()
	state.err = err
}

// SetResponse records a JSON success response.
// Without Handler in the chain this is a no-op.
func SetResponse(r *http.Request, status int, body any) {
	state := getState(r.Context())
	if state == nil {
		return
	}
	state.mu.Lock()
	defer state.mu.Unlock()
	state.status = status
	state.body = body
}

// SetHeader sets a header on the pending response.
// Without Handler in the chain this is a no-op.
func SetHeader(r *http.Request, key, value string) {
	state := getState(r.Context())
	if state == nil {
		return
	}
	state.mu.Lock()
	defer state.mu.Unlock()
	if state.headers == nil {
		state.headers = make(http.Header)
	}
	state.headers.Set(key, value)
}
