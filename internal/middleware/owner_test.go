package middleware

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRequireOwner(t *testing.T) {
	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantOwner  string
	}{
		{"owner header present", "user-1", http.StatusOK, "user-1"},
		{"owner header trimmed", "  user-2 ", http.StatusOK, "user-2"},
		{"owner header missing", "", http.StatusUnauthorized, ""},
		{"owner header blank", "   ", http.StatusUnauthorized, ""},
		{"owner header too long", strings.Repeat("u", maxOwnerIDLength+1), http.StatusUnauthorized, ""},
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var got string
			handler := RequireOwner(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got, _ = OwnerFromContext(r.Context())
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodGet, "/api/v1/pin-codes", nil)
			if tt.header != "" {
				req.Header.Set(OwnerHeader, tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if got != tt.wantOwner {
				t.Errorf("owner = %q, want %q", got, tt.wantOwner)
			}
			if tt.wantStatus == http.StatusUnauthorized && !strings.Contains(rec.Body.String(), CodeUnauthorized) {
				t.Errorf("body = %s, want code %s", rec.Body.String(), CodeUnauthorized)
			}
		})
	}
}

func TestOwnerFromContext_Empty(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if _, ok := OwnerFromContext(req.Context()); ok {
		t.Error("expected no owner in a bare context")
	}
}
