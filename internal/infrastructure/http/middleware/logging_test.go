package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	ctxutil "3tcapital/ms_ewaybill_core/internal/infrastructure/context"
	"3tcapital/ms_ewaybill_core/internal/testutil"
)

func TestRequestLogger(t *testing.T) {
	logger := testutil.NewTestLogger()
	middleware := RequestLogger(logger)

	tests := []struct {
		name         string
		statusCode   int
		setupRequest func() *http.Request
	}{
		{
			name:       "2xx status logs as info",
			statusCode: http.StatusOK,
			setupRequest: func() *http.Request {
				return httptest.NewRequest(http.MethodGet, "/test", nil)
			},
		},
		{
			name:       "3xx status logs as info",
			statusCode: http.StatusMovedPermanently,
			setupRequest: func() *http.Request {
				return httptest.NewRequest(http.MethodGet, "/test", nil)
			},
		},
		{
			name:       "4xx status logs as warn",
			statusCode: http.StatusBadRequest,
			setupRequest: func() *http.Request {
				return httptest.NewRequest(http.MethodGet, "/test", nil)
			},
		},
		{
			name:       "5xx status logs as error",
			statusCode: http.StatusInternalServerError,
			setupRequest: func() *http.Request {
				return httptest.NewRequest(http.MethodGet, "/test", nil)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := tt.setupRequest()
			w := httptest.NewRecorder()

			handler := middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.statusCode)
				w.Write([]byte("test response"))
			}))

			handler.ServeHTTP(w, req)

			if w.Code != tt.statusCode {
				t.Errorf("expected status code %d, got %d", tt.statusCode, w.Code)
			}
		})
	}
}

func TestRequestLogger_WithRequestID(t *testing.T) {
	logger := testutil.NewTestLogger()
	middleware := RequestLogger(logger)

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	rctx := chi.NewRouteContext()
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	req = req.WithContext(context.WithValue(req.Context(), chimw.RequestIDKey, "test-request-id"))

	w := httptest.NewRecorder()

	handler := middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status code %d, got %d", http.StatusOK, w.Code)
	}
	if got := w.Header().Get(chimw.RequestIDHeader); got != "test-request-id" {
		t.Errorf("expected request id echoed, got %q", got)
	}
}

func TestRequestLogger_PropagatesCorrelationID(t *testing.T) {
	logger, buf := testutil.NewCapturingLogger()

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(RequestLogger(logger))

	var correlationID string
	r.Post("/api/v1/ewaybills/{id}/generate", func(w http.ResponseWriter, r *http.Request) {
		correlationID = ctxutil.GetCorrelationID(r.Context())
		w.WriteHeader(http.StatusConflict)
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/ewaybills/9/generate", nil)
	req.Header.Set(chimw.RequestIDHeader, "req-77")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if correlationID != "req-77" {
		t.Errorf("expected correlation id req-77, got %q", correlationID)
	}
	logs := buf.String()
	for _, want := range []string{`"level":"WARN"`, `"route":"/api/v1/ewaybills/{id}/generate"`, `"correlation_id":"req-77"`, `"status":409`} {
		if !strings.Contains(logs, want) {
			t.Errorf("expected log to contain %s, got %s", want, logs)
		}
	}
}

func TestRequestLogger_WithUserAgent(t *testing.T) {
	logger := testutil.NewTestLogger()
	middleware := RequestLogger(logger)

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("User-Agent", "test-agent/1.0")

	w := httptest.NewRecorder()

	handler := middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status code %d, got %d", http.StatusOK, w.Code)
	}
}

func TestStatusRecorder_WriteHeader(t *testing.T) {
	base := httptest.NewRecorder()
	rw := &statusRecorder{ResponseWriter: base, status: http.StatusOK}

	rw.WriteHeader(http.StatusNotFound)

	if rw.status != http.StatusNotFound {
		t.Errorf("expected status code %d, got %d", http.StatusNotFound, rw.status)
	}

	if base.Code != http.StatusNotFound {
		t.Errorf("expected base status code %d, got %d", http.StatusNotFound, base.Code)
	}
}

func TestStatusRecorder_Write(t *testing.T) {
	base := httptest.NewRecorder()
	rw := &statusRecorder{ResponseWriter: base}

	data := []byte("test data")
	n, err := rw.Write(data)

	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	if n != len(data) {
		t.Errorf("expected to write %d bytes, got %d", len(data), n)
	}

	if rw.status != http.StatusOK {
		t.Errorf("expected default status code %d, got %d", http.StatusOK, rw.status)
	}

	if rw.bytes != int64(len(data)) {
		t.Errorf("expected bytesWritten %d, got %d", len(data), rw.bytes)
	}
}

func TestStatusRecorder_Write_AfterWriteHeader(t *testing.T) {
	base := httptest.NewRecorder()
	rw := &statusRecorder{ResponseWriter: base, status: http.StatusCreated}

	data := []byte("test")
	rw.Write(data)

	if rw.status != http.StatusCreated {
		t.Errorf("expected status code to remain %d, got %d", http.StatusCreated, rw.status)
	}
}
