package logos

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/nhalm/canonlog"
)

func serve(h http.Handler, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, http.NoBody)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeAPIError(t *testing.T, rec *httptest.ResponseRecorder) *APIError {
	t.Helper()
	var body map[string]*APIError
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body["error"] == nil {
		t.Fatal("expected error object")
	}
	return body["error"]
}

func TestHandler_SuccessResponse(t *testing.T) {
	handler := Handler()(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		SetResponse(r, http.StatusOK, map[string]string{"text": "Know thyself."})
	}))

	rec := serve(handler, "/")

	if rec.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected Content-Type application/json, got %s", ct)
	}

	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body["text"] != "Know thyself." {
		t.Errorf("expected text 'Know thyself.', got %s", body["text"])
	}
}

func TestHandler_NoHTMLEscaping(t *testing.T) {
	handler := Handler()(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		SetResponse(r, http.StatusOK, map[string]string{"text": "<virtue> & vice"})
	}))

	rec := serve(handler, "/")

	if got := rec.Body.String(); got != "{\"text\":\"<virtue> & vice\"}\n" {
		t.Errorf("expected literal characters, got %s", got)
	}
}

func TestHandler_ErrorResponse(t *testing.T) {
	handler := Handler()(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		SetError(r, ErrNotFound.With("Quote not found"))
	}))

	rec := serve(handler, "/")

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
	}
	apiErr := decodeAPIError(t, rec)
	if apiErr.Type != "not_found" {
		t.Errorf("expected type not_found, got %s", apiErr.Type)
	}
	if apiErr.Message != "Quote not found" {
		t.Errorf("expected message 'Quote not found', got %s", apiErr.Message)
	}
}

func TestHandler_ErrorTakesPrecedence(t *testing.T) {
	handler := Handler()(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		SetResponse(r, http.StatusOK, map[string]string{"status": "ok"})
		SetError(r, ErrRateLimited)
	}))

	rec := serve(handler, "/")

	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("expected status %d, got %d", http.StatusTooManyRequests, rec.Code)
	}
}

func TestHandler_PanicRecovery(t *testing.T) {
	for _, opts := range [][]HandlerOption{nil, {WithCanonlog()}} {
		handler := Handler(opts...)(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
			panic("something went wrong")
		}))

		rec := serve(handler, "/")

		if rec.Code != http.StatusInternalServerError {
			t.Errorf("expected status %d, got %d", http.StatusInternalServerError, rec.Code)
		}
		if apiErr := decodeAPIError(t, rec); apiErr.Type != "internal_error" {
			t.Errorf("expected type internal_error, got %s", apiErr.Type)
		}
	}
}

func TestHandler_CustomHeaders(t *testing.T) {
	handler := Handler()(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		SetHeader(r, "RateLimit-Remaining", "59")
		SetError(r, ErrRateLimited)
	}))

	rec := serve(handler, "/")

	if got := rec.Header().Get("RateLimit-Remaining"); got != "59" {
		t.Errorf("expected RateLimit-Remaining=59 on error responses, got %s", got)
	}
}

func TestHandler_EmptyResponse(t *testing.T) {
	handler := Handler()(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {}))

	rec := serve(handler, "/")

	if rec.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	if rec.Body.Len() != 0 {
		t.Errorf("expected empty body, got %s", rec.Body.String())
	}
}

func TestHandler_StatusOnlyResponse(t *testing.T) {
	handler := Handler()(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		SetResponse(r, http.StatusNoContent, nil)
	}))

	rec := serve(handler, "/")

	if rec.Code != http.StatusNoContent {
		t.Errorf("expected status %d, got %d", http.StatusNoContent, rec.Code)
	}
}

func TestHandler_DirectWritePassesThrough(t *testing.T) {
	handler := Handler(WithCanonlog())(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("<h1>Logos</h1>"))
	}))

	rec := serve(handler, "/")

	if rec.Body.String() != "<h1>Logos</h1>" {
		t.Errorf("expected handler output untouched, got %s", rec.Body.String())
	}
}

func TestHandler_JSONEncodingFailure(t *testing.T) {
	handler := Handler()(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		SetResponse(r, http.StatusOK, map[string]any{"bad": make(chan int)})
	}))

	rec := serve(handler, "/")

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected status %d, got %d", http.StatusInternalServerError, rec.Code)
	}
	if rec.Body.String() != "Internal server error" {
		t.Errorf("expected plain text body, got %s", rec.Body.String())
	}
}

func TestHasState(t *testing.T) {
	if HasState(context.Background()) {
		t.Error("expected no state without Handler")
	}

	var found bool
	handler := Handler()(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		found = HasState(r.Context())
	}))
	serve(handler, "/")

	if !found {
		t.Error("expected state inside Handler")
	}
}

func TestSetters_NoHandler(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)

	SetError(req, ErrInternal)
	SetResponse(req, http.StatusOK, "ignored")
	SetHeader(req, "X-Test", "ignored")
}

func TestAPIError_Is(t *testing.T) {
	custom := ErrNotFound.With("No quotes matched filters")

	if !errors.Is(custom, ErrNotFound) {
		t.Error("expected custom message to still match ErrNotFound")
	}
	if errors.Is(custom, ErrBadRequest) {
		t.Error("expected ErrNotFound not to match ErrBadRequest")
	}
	if !errors.Is(fmt.Errorf("wrapped: %w", ErrRateLimited), ErrRateLimited) {
		t.Error("expected wrapped error to match")
	}
	if custom.Message == ErrNotFound.Message {
		t.Error("expected With to leave the sentinel untouched")
	}
}

func TestAPIError_NilReceiver(t *testing.T) {
	var e *APIError
	if !e.Is(nil) {
		t.Error("expected nil to match nil")
	}
	if e.With("x") != nil {
		t.Error("expected nil from With on nil receiver")
	}
}

func TestValidationError_JSONFormat(t *testing.T) {
	handler := Handler()(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		SetError(r, NewValidationError([]FieldError{
			{Param: "length", Code: "oneof", Message: "must be one of: short long"},
		}))
	}))

	rec := serve(handler, "/")

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
	}
	apiErr := decodeAPIError(t, rec)
	if apiErr.Type != "validation_error" || apiErr.Code != "invalid_request" {
		t.Errorf("unexpected error %+v", apiErr)
	}
	if len(apiErr.Errors) != 1 || apiErr.Errors[0].Param != "length" {
		t.Errorf("unexpected field errors %+v", apiErr.Errors)
	}
}

func TestAllSentinelErrors(t *testing.T) {
	tests := []struct {
		err    *APIError
		status int
	}{
		{ErrBadRequest, http.StatusBadRequest},
		{ErrNotFound, http.StatusNotFound},
		{ErrMethodNotAllowed, http.StatusMethodNotAllowed},
		{ErrRateLimited, http.StatusTooManyRequests},
		{ErrInternal, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Code, func(t *testing.T) {
			handler := Handler()(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
				SetError(r, tt.err)
			}))

			rec := serve(handler, "/")

			if rec.Code != tt.status {
				t.Errorf("expected status %d, got %d", tt.status, rec.Code)
			}
			if apiErr := decodeAPIError(t, rec); apiErr.Message != tt.err.Message {
				t.Errorf("expected message %q, got %q", tt.err.Message, apiErr.Message)
			}
		})
	}
}

func TestHandler_ConcurrentMixedOperations(t *testing.T) {
	handler := Handler()(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		var wg sync.WaitGroup
		for i := range 50 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				SetHeader(r, fmt.Sprintf("X-Header-%d", i), "v")
				SetResponse(r, http.StatusOK, map[string]int{"i": i})
			}()
		}
		wg.Wait()
	}))

	rec := serve(handler, "/")

	if rec.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
}

func TestWithCanonlog_CreatesLogger(t *testing.T) {
	var loggerFound bool

	handler := Handler(WithCanonlog())(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		_, loggerFound = canonlog.TryGetLogger(r.Context())
		SetResponse(r, http.StatusOK, nil)
	}))

	serve(handler, "/api/quote")

	if !loggerFound {
		t.Error("expected canonlog logger to be in context")
	}
}

func TestWithCanonlog_Disabled(t *testing.T) {
	var loggerFound bool

	handler := Handler()(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		_, loggerFound = canonlog.TryGetLogger(r.Context())
	}))

	serve(handler, "/api/quote")

	if loggerFound {
		t.Error("expected canonlog logger to not be in context when disabled")
	}
}

func TestWithCanonlogFields_RunsBeforeHandler(t *testing.T) {
	var calls []string

	handler := Handler(
		WithCanonlog(),
		WithCanonlogFields(func(r *http.Request) map[string]any {
			calls = append(calls, "fields")
			return map[string]any{"client": ClientKey(r)}
		}),
	)(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
		calls = append(calls, "handler")
	}))

	serve(handler, "/api/quotes")

	if len(calls) != 2 || calls[0] != "fields" {
		t.Errorf("expected fields before handler, got %v", calls)
	}
}

func TestWithSLOs_OnChiRoute(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Handler(WithCanonlog(), WithSLOs()))
	r.With(SLO(SLOHighFast)).Get("/api/quote", func(_ http.ResponseWriter, r *http.Request) {
		if tier, _, ok := GetSLO(r.Context()); !ok || tier != SLOHighFast {
			t.Errorf("expected high_fast tier, got %q", tier)
		}
		SetResponse(r, http.StatusOK, nil)
	})

	rec := serve(r, "/api/quote")

	if rec.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
}
