package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestAuthMiddleware(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := AuthMiddleware("s3cret", ok)

	tests := []struct {
		name     string
		path     string
		header   string
		expected int
	}{
		{"no token", "/api/events", "", http.StatusUnauthorized},
		{"wrong token", "/api/events", "Bearer nope", http.StatusUnauthorized},
		{"bearer token", "/api/events", "Bearer s3cret", http.StatusOK},
		{"raw token is not a bearer", "/api/events", "s3cret", http.StatusUnauthorized},
		{"query token", "/api/live?token=s3cret", "", http.StatusOK},
		{"health is public", "/healthz", "", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			if rec.Code != tt.expected {
				t.Errorf("Expected status %d, got %d", tt.expected, rec.Code)
			}
		})
	}
}

func TestAuthMiddleware_Disabled(t *testing.T) {
	called := false
	handler := AuthMiddleware("", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/events", nil))

	if !called {
		t.Error("Expected request to pass through when no token is configured")
	}
}
