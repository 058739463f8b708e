package handler

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHealth(t *testing.T) {
	tests := []struct {
		name       string
		pingErr    error
		wantStatus int
		wantOK     bool
	}{
		{"healthy", nil, http.StatusOK, true},
		{"database down", errors.New("connection refused"), http.StatusServiceUnavailable, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newTestDeps()
			d.health = stubHealth{err: tt.pingErr}

			w := doRequest(t, d.router(), http.MethodGet, "/health", "", nil)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if env := parseEnvelope(t, w); env.Success != tt.wantOK {
				t.Errorf("success = %v, want %v", env.Success, tt.wantOK)
			}
		})
	}
}

func TestMetricsEndpoint_Public(t *testing.T) {
	d := newTestDeps()
	called := false
	router := NewRouter(&RouterDeps{
		PrincipalResolver: tokenResolver{},
		TrackingService:   d.tracking,
		BillingService:    d.billing,
		CatalogService:    d.catalog,
		AssignmentService: d.assignments,
		MetricsHandler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			called = true
			w.WriteHeader(http.StatusOK)
		}),
	})

	w := doRequest(t, router, http.MethodGet, "/metrics", "", nil)

	if w.Code != http.StatusOK || !called {
		t.Errorf("status = %d, called = %v", w.Code, called)
	}
}

func TestRouter_SecurityHeadersAndRequestID(t *testing.T) {
	d := newTestDeps()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "req-123")
	w := httptest.NewRecorder()

	d.router().ServeHTTP(w, req)

	if got := w.Header().Get("X-Request-ID"); got != "req-123" {
		t.Errorf("X-Request-ID = %q, want req-123", got)
	}
	if got := w.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q, want nosniff", got)
	}
}

func TestRouter_CORSPreflight(t *testing.T) {
	d := newTestDeps()
	req := httptest.NewRequest(http.MethodOptions, "/time-tracking/start", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()

	d.router().ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("Access-Control-Allow-Origin = %q", got)
	}
}

func TestRouter_UnknownRoute(t *testing.T) {
	d := newTestDeps()

	w := doRequest(t, d.router(), http.MethodGet, "/feeds", "admin", nil)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}
