package handlers_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"termchat/internal/auth"
	"termchat/internal/config"
	"termchat/internal/handlers"
	"termchat/internal/models"
	"termchat/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuthService(t *testing.T) (*auth.Service, string) {
	t.Helper()

	cfg := &config.Config{
		JWT: config.JWTConfig{Secret: []byte("test-secret"), ExpiresIn: time.Hour},
	}
	svc := auth.NewService(store.NewMemoryStore(), cfg)

	resp, err := svc.Register(context.Background(), &models.RegisterRequest{
		Email:       "alice@example.com",
		Password:    "hunter22",
		DisplayName: "Alice",
	})
	require.NoError(t, err)
	return svc, resp.Token
}

func TestRequireAuth(t *testing.T) {
	svc, token := newAuthService(t)

	handler := handlers.RequireAuth(svc, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"no header", "", http.StatusUnauthorized},
		{"not bearer", "Basic abc", http.StatusUnauthorized},
		{"garbage token", "Bearer garbage", http.StatusForbidden},
		{"valid token", "Bearer " + token, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/rooms", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestRateLimiterExhaustionAndRefill(t *testing.T) {
	limiter := handlers.NewRateLimiter(3, 300*time.Millisecond)
	handler := limiter.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	do := func(addr string) int {
		req := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, do("10.0.0.1:1234"))
	}
	assert.Equal(t, http.StatusTooManyRequests, do("10.0.0.1:1234"))

	// Other clients are unaffected.
	assert.Equal(t, http.StatusOK, do("10.0.0.2:1234"))

	// Tokens come back as the window elapses.
	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, http.StatusOK, do("10.0.0.1:1234"))
}
