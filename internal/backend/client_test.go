package backend

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foodstand/guestkit/internal/model"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c, err := New(Config{BaseURL: srv.URL + "/", Timeout: 2 * time.Second, Logger: zerolog.Nop()})
	require.NoError(t, err)
	return c
}

func writeEnvelope(w http.ResponseWriter, status int, success bool, message string, data any) {
	raw, _ := json.Marshal(data)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(model.Envelope{Success: success, Message: message, Data: raw})
}

func TestNew_validatesBaseURL(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)

	_, err = New(Config{BaseURL: "ftp://example.com"})
	assert.Error(t, err)

	_, err = New(Config{BaseURL: "https://api.example.com/v1"})
	assert.NoError(t, err)
}

func TestRegisterGuestSession_sendsPayloadAndHeaders(t *testing.T) {
	var got model.SessionRegistration
	var headers http.Header
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/guest-sessions", r.URL.Path)
		headers = r.Header.Clone()
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))
		writeEnvelope(w, http.StatusCreated, true, "", map[string]string{"guest_id": got.GuestID})
	})

	reg := model.SessionRegistration{GuestID: "AB1CD2EF3GHIJKLM", Ref: "spring-flyer", DeviceType: "mobile", Browser: "Safari"}
	require.NoError(t, c.RegisterGuestSession(context.Background(), reg))

	assert.Equal(t, reg, got)
	assert.Equal(t, "application/json", headers.Get("Content-Type"))
	assert.Equal(t, "application/json", headers.Get("Accept"))
	assert.NotEmpty(t, headers.Get("X-Request-ID"))
	assert.Empty(t, headers.Get("Authorization"), "anonymous principal must not send a token")
}

func TestTrackPageVisits_authenticated(t *testing.T) {
	var got model.PageVisitsRequest
	var auth string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/guest-sessions/AB1CD2EF3GHIJKLM", r.URL.Path)
		auth = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))
		writeEnvelope(w, http.StatusOK, true, "", nil)
	})
	c.SetPrincipal(model.Principal{GuestID: "AB1CD2EF3GHIJKLM", UserID: "u1", Token: "tok"})

	in := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	visits := []model.PageVisit{{PageName: "home", SectionName: "hero", InTime: in, OutTime: in.Add(time.Second)}}
	require.NoError(t, c.TrackPageVisits(context.Background(), "AB1CD2EF3GHIJKLM", visits))

	assert.Equal(t, "Bearer tok", auth)
	require.Len(t, got.PageVisits, 1)
	assert.Equal(t, "home", got.PageVisits[0].PageName)
	assert.True(t, got.PageVisits[0].InTime.Equal(in))
	assert.True(t, got.PageVisits[0].OutTime.Equal(in.Add(time.Second)))
}

func TestDo_errorEnvelope(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusBadRequest, false, "device_type is required", nil)
	})

	err := c.RegisterGuestSession(context.Background(), model.SessionRegistration{GuestID: "X"})
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "device_type is required", apiErr.Message)
	assert.True(t, IsClientError(err))
}

func TestDo_successFalseWith200(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusOK, false, "nope", nil)
	})

	_, err := c.Do(context.Background(), http.MethodGet, "/anything", nil)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "nope", apiErr.Message)
}

func TestDo_nonJSONErrorBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	})

	_, err := c.Do(context.Background(), http.MethodGet, "/x", nil)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.Status)
	assert.False(t, IsClientError(err))
}

func TestDecode(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusOK, true, "", map[string]string{"token": "abc"})
	})

	data, err := c.Do(context.Background(), http.MethodPost, "/dev/tokens", map[string]string{"user_id": "u1"})
	require.NoError(t, err)

	out, err := Decode[map[string]string](data)
	require.NoError(t, err)
	assert.Equal(t, "abc", out["token"])
}

func TestBreaker_opensAfterServerFailures(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeEnvelope(w, http.StatusInternalServerError, false, "boom", nil)
	})

	for i := 0; i < 5; i++ {
		_, err := c.Do(context.Background(), http.MethodGet, "/x", nil)
		require.Error(t, err)
		assert.False(t, IsUnavailable(err))
	}

	_, err := c.Do(context.Background(), http.MethodGet, "/x", nil)
	require.Error(t, err)
	assert.True(t, IsUnavailable(err))
	assert.Equal(t, int32(5), calls.Load(), "open breaker must not reach the server")
}

func TestBreaker_ignoresClientErrors(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeEnvelope(w, http.StatusNotFound, false, "not found", nil)
	})

	for i := 0; i < 8; i++ {
		_, err := c.Do(context.Background(), http.MethodGet, "/x", nil)
		require.True(t, IsClientError(err))
	}
	assert.Equal(t, int32(8), calls.Load())
}
