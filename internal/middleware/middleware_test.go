package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foodstand/guestkit/internal/auth"
)

func userEcho() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id, ok := GetUserID(r.Context()); ok {
			_, _ = w.Write([]byte(id))
			return
		}
		_, _ = w.Write([]byte("guest"))
	})
}

func TestOptionalAuth(t *testing.T) {
	tokens := auth.NewTokenService("secret")
	h := OptionalAuth(tokens)(userEcho())

	token, err := tokens.SignAccessToken("user-1")
	require.NoError(t, err)

	cases := []struct {
		name   string
		header string
		status int
		body   string
	}{
		{"no header", "", http.StatusOK, "guest"},
		{"valid token", "Bearer " + token, http.StatusOK, "user-1"},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized, ""},
		{"empty token", "Bearer  ", http.StatusUnauthorized, ""},
		{"bad token", "Bearer nope", http.StatusUnauthorized, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tc.status, rec.Code)
			if tc.body != "" {
				assert.Equal(t, tc.body, rec.Body.String())
			} else {
				assert.Contains(t, rec.Body.String(), `"success":false`)
			}
		})
	}
}

func TestRateLimiter(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rl := NewRateLimiter(ctx, time.Minute, 2)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.Allow("ip:1"))
	assert.True(t, rl.Allow("ip:1"))
	assert.False(t, rl.Allow("ip:1"))
	assert.True(t, rl.Allow("ip:2"), "keys are independent")

	now = now.Add(time.Minute + time.Second)
	assert.True(t, rl.Allow("ip:1"), "window slid past the old requests")
}

func TestFaults(t *testing.T) {
	var f Faults
	h := f.Inject(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	do := func(method string) int {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(method, "/", nil))
		return rec.Code
	}

	f.FailNext(2)
	assert.Equal(t, http.StatusNoContent, do(http.MethodGet), "reads are never failed")
	assert.Equal(t, http.StatusServiceUnavailable, do(http.MethodPost))
	assert.Equal(t, 1, f.Remaining())
	assert.Equal(t, http.StatusServiceUnavailable, do(http.MethodPut))
	assert.Equal(t, http.StatusNoContent, do(http.MethodPost))
	assert.Equal(t, 0, f.Remaining())
}
