package tests

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foodstand/guestkit/internal/backend"
	"github.com/foodstand/guestkit/internal/clock"
	"github.com/foodstand/guestkit/internal/guest"
	"github.com/foodstand/guestkit/internal/registrar"
	"github.com/foodstand/guestkit/internal/repo"
	"github.com/foodstand/guestkit/internal/storage"
)

const (
	uaAndroidPhone = "Mozilla/5.0 (Linux; Android 13; Pixel 7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/115.0.0.0 Mobile Safari/537.36"
	landing        = "https://shop.example.com/?ref=instagram"
)

func newStack(t *testing.T) *Stack {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	s := NewStack(ctx)
	t.Cleanup(func() {
		s.Close()
		cancel()
	})
	return s
}

func mount(t *testing.T, s *Stack, st storage.Store, clk clock.Clock) *guest.Engine {
	t.Helper()
	e, err := s.Engine(st, clk)
	require.NoError(t, err)
	e.Mount(context.Background(), guest.Runtime{UserAgent: uaAndroidPhone, URL: landing})
	return e
}

func session(t *testing.T, s *Stack, guestID string) repo.GuestSession {
	t.Helper()
	sess, err := s.API.Sessions.Get(context.Background(), guestID)
	require.NoError(t, err)
	return sess
}

func TestE2E_registersOnceAcrossPageLoads(t *testing.T) {
	s := newStack(t)
	st := storage.NewMemory()
	clk := clock.NewFake(time.Now())

	first := mount(t, s, st, clk)
	first.Close()
	second := mount(t, s, st, clk)
	second.Close()

	require.Equal(t, first.GuestID(), second.GuestID())
	sess := session(t, s, first.GuestID())
	assert.Equal(t, 1, sess.Registrations)
	assert.Equal(t, "instagram", sess.Ref)
	assert.Equal(t, "mobile", sess.DeviceType)
	assert.Equal(t, "Chrome", sess.Browser)
}

func TestE2E_retriesAfterBackendFailure(t *testing.T) {
	s := newStack(t)
	st := storage.NewMemory()
	clk := clock.NewFake(time.Now())

	s.API.FailNext(1)
	first := mount(t, s, st, clk)
	first.Close()
	assert.Equal(t, registrar.Unregistered, first.RegistrationState())

	_, err := s.API.Sessions.Get(context.Background(), first.GuestID())
	assert.ErrorIs(t, err, repo.ErrNotFound)

	second := mount(t, s, st, clk)
	second.Close()
	assert.Equal(t, registrar.Registered, second.RegistrationState())
	assert.Equal(t, 1, session(t, s, first.GuestID()).Registrations)
}

func TestE2E_visitIntervals(t *testing.T) {
	s := newStack(t)
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clk := clock.NewFake(start)

	e := mount(t, s, storage.NewMemory(), clk)
	// visits can only be appended once the session exists
	e.Settle()

	e.Enter("home", "hero")
	clk.Advance(500 * time.Millisecond)
	clk.Advance(5 * time.Second)
	e.Enter("menu", "pizza")
	clk.Advance(500 * time.Millisecond)
	e.Close()

	visits := session(t, s, e.GuestID()).PageVisits
	require.Len(t, visits, 3)
	byDuration := map[time.Duration]string{}
	for _, v := range visits {
		assert.True(t, v.OutTime.After(v.InTime))
		byDuration[v.OutTime.Sub(v.InTime)] += v.PageName + "-" + v.SectionName + " "
	}
	assert.Equal(t, "home-hero ", byDuration[5500*time.Millisecond])
	assert.Contains(t, byDuration[time.Second], "home-hero")
	assert.Contains(t, byDuration[time.Second], "menu-pizza")
}

func TestE2E_authenticatedGuest(t *testing.T) {
	s := newStack(t)
	client, err := s.Client()
	require.NoError(t, err)

	data, err := client.Do(context.Background(), http.MethodPost, "/dev/tokens", map[string]string{"user_id": "user-42"})
	require.NoError(t, err)
	tok, err := backend.Decode[struct {
		AccessToken string `json:"access_token"`
	}](data)
	require.NoError(t, err)

	e, err := s.Engine(storage.NewMemory(), clock.NewFake(time.Now()))
	require.NoError(t, err)
	p := e.Mount(context.Background(), guest.Runtime{UserAgent: uaAndroidPhone, URL: landing, Token: tok.AccessToken})
	e.Close()

	assert.True(t, p.Authenticated())
	assert.Equal(t, "user-42", p.UserID)
	assert.Equal(t, "user-42", session(t, s, p.GuestID).UserID)
}

func TestE2E_postgresStorage(t *testing.T) {
	ctx := context.Background()
	st, err := OpenPostgresStore(ctx, "e2e")
	require.NoError(t, err)
	if st == nil {
		t.Skip("DATABASE_URL not set; skipping postgres end-to-end test")
	}
	t.Cleanup(func() { st.Close() })

	s := newStack(t)
	clk := clock.NewFake(time.Now())

	first := mount(t, s, st, clk)
	first.Close()
	second := mount(t, s, st, clk)
	second.Close()

	assert.Equal(t, first.GuestID(), second.GuestID())
	assert.Equal(t, 1, session(t, s, first.GuestID()).Registrations)
}
