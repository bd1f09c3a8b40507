package repo

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/foodstand/guestkit/internal/model"
)

// ErrNotFound is returned for an unknown guest id
var ErrNotFound = errors.New("guest session not found")

// GuestSession is a registered guest with the visits reported for it
type GuestSession struct {
	ID            uuid.UUID         `json:"id"`
	GuestID       string            `json:"guest_id"`
	Ref           string            `json:"ref"`
	DeviceType    string            `json:"device_type"`
	Browser       string            `json:"browser"`
	UserID        string            `json:"user_id,omitempty"`
	Registrations int               `json:"registrations"`
	PageVisits    []model.PageVisit `json:"page_visits"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

// GuestSessionRepo defines the operations behind the guest-session endpoints
type GuestSessionRepo interface {
	Register(ctx context.Context, reg model.SessionRegistration, userID string) (GuestSession, error)
	AppendVisits(ctx context.Context, guestID string, visits []model.PageVisit) (GuestSession, error)
	Get(ctx context.Context, guestID string) (GuestSession, error)
	List(ctx context.Context) ([]GuestSession, error)
}

type guestSessionRepo struct {
	mu       sync.RWMutex
	sessions map[string]*GuestSession
	now      func() time.Time
}

// NewGuestSessionRepo creates an in-memory GuestSessionRepo
func NewGuestSessionRepo() GuestSessionRepo {
	return &guestSessionRepo{
		sessions: make(map[string]*GuestSession),
		now:      time.Now,
	}
}

// Register records a registration. Repeated registrations of the same guest
// refresh the device fields and bump the counter so double reports are visible.
func (r *guestSessionRepo) Register(ctx context.Context, reg model.SessionRegistration, userID string) (GuestSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now().UTC()
	s, ok := r.sessions[reg.GuestID]
	if !ok {
		s = &GuestSession{
			ID:         uuid.New(),
			GuestID:    reg.GuestID,
			PageVisits: []model.PageVisit{},
			CreatedAt:  now,
		}
		r.sessions[reg.GuestID] = s
	}
	s.Ref = reg.Ref
	s.DeviceType = string(reg.DeviceType)
	s.Browser = string(reg.Browser)
	if userID != "" {
		s.UserID = userID
	}
	s.Registrations++
	s.UpdatedAt = now

	return clone(s), nil
}

// AppendVisits adds visits to an existing session
func (r *guestSessionRepo) AppendVisits(ctx context.Context, guestID string, visits []model.PageVisit) (GuestSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[guestID]
	if !ok {
		return GuestSession{}, ErrNotFound
	}
	s.PageVisits = append(s.PageVisits, visits...)
	s.UpdatedAt = r.now().UTC()
	return clone(s), nil
}

// Get returns the session of guestID
func (r *guestSessionRepo) Get(ctx context.Context, guestID string) (GuestSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[guestID]
	if !ok {
		return GuestSession{}, ErrNotFound
	}
	return clone(s), nil
}

// List returns every session, oldest first
func (r *guestSessionRepo) List(ctx context.Context) ([]GuestSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]GuestSession, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, clone(s))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func clone(s *GuestSession) GuestSession {
	c := *s
	c.PageVisits = append([]model.PageVisit{}, s.PageVisits...)
	return c
}
