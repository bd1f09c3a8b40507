// Package registrar reports a guest's device, browser and referral to the
// backend at most once per guest id.
package registrar

import (
	"context"
	"net/url"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/foodstand/guestkit/internal/backend"
	"github.com/foodstand/guestkit/internal/logging"
	"github.com/foodstand/guestkit/internal/model"
	"github.com/foodstand/guestkit/internal/storage"
)

const (
	markerPrefix = "visitor_tracked_"
	markerValue  = "true"
	// DefaultRef is reported when the landing URL carries no ref parameter
	DefaultRef = "direct"
)

// State of the registration for the current guest id
type State int

const (
	Unregistered State = iota
	Registering
	Registered
)

func (s State) String() string {
	switch s {
	case Registering:
		return "registering"
	case Registered:
		return "registered"
	default:
		return "unregistered"
	}
}

// SessionAPI is the backend call made by the registrar
type SessionAPI interface {
	RegisterGuestSession(ctx context.Context, reg model.SessionRegistration) error
}

// Inputs are the values the registrar waits on before it can fire
type Inputs struct {
	GuestID string
	Device  model.DeviceClass
	Browser model.BrowserFamily
	PageURL string
}

// Eligible reports whether in is complete enough to register. An unknown
// device class never registers.
func Eligible(in Inputs) bool {
	return in.GuestID != "" &&
		in.Browser != "" &&
		in.Device != "" &&
		in.Device != model.DeviceUnknown
}

// MarkerKey is the storage key recording a successful registration
func MarkerKey(guestID string) string {
	return markerPrefix + guestID
}

// RefFromURL extracts the ref query parameter of pageURL
func RefFromURL(pageURL string) string {
	u, err := url.Parse(strings.TrimSpace(pageURL))
	if err != nil {
		return DefaultRef
	}
	if ref := u.Query().Get("ref"); ref != "" {
		return ref
	}
	return DefaultRef
}

// Registrar fires the registration call when its inputs become eligible
type Registrar struct {
	api     SessionAPI
	storage storage.Store
	logger  zerolog.Logger

	mu       sync.Mutex
	inputs   Inputs
	eligible bool
	inFlight bool
	state    State
	wg       sync.WaitGroup
}

// New creates a Registrar persisting its markers in st
func New(api SessionAPI, st storage.Store, logger zerolog.Logger) *Registrar {
	return &Registrar{
		api:     api,
		storage: st,
		logger:  logging.Component(logger, "registrar"),
	}
}

// Update records the latest inputs. An attempt starts in the background
// when the inputs turn eligible or the guest id changes while eligible;
// any other update is a no-op.
func (r *Registrar) Update(ctx context.Context, in Inputs) {
	r.mu.Lock()
	prev, wasEligible := r.inputs, r.eligible
	r.inputs = in
	r.eligible = Eligible(in)
	fire := r.eligible && (!wasEligible || prev.GuestID != in.GuestID)
	if r.eligible && prev.GuestID != in.GuestID {
		r.state = Unregistered
	}
	if fire {
		r.wg.Add(1)
	}
	r.mu.Unlock()

	if !fire {
		return
	}
	go func() {
		defer r.wg.Done()
		r.Attempt(ctx)
	}()
}

// Attempt registers the current inputs unless a marker already exists or
// another attempt is outstanding. It reports whether the backend accepted
// a registration during this call.
func (r *Registrar) Attempt(ctx context.Context) bool {
	r.mu.Lock()
	in := r.inputs
	if !Eligible(in) || r.inFlight {
		r.mu.Unlock()
		return false
	}
	r.inFlight = true
	r.mu.Unlock()

	final := Unregistered
	defer func() {
		// the guest id changed while this attempt was outstanding
		if r.finish(in.GuestID, final) {
			r.Attempt(ctx)
		}
	}()

	// The marker is read after the flag is taken and written before it clears.
	if r.registered(in.GuestID) {
		final = Registered
		return false
	}
	r.setState(in.GuestID, Registering)

	reg := model.SessionRegistration{
		GuestID:    in.GuestID,
		Ref:        RefFromURL(in.PageURL),
		DeviceType: in.Device,
		Browser:    in.Browser,
	}
	if err := r.api.RegisterGuestSession(context.WithoutCancel(ctx), reg); err != nil {
		if backend.IsUnavailable(err) {
			r.logger.Info().Err(err).Str("guest_id", in.GuestID).Msg("backend unavailable, registration left for the next mount")
			return false
		}
		r.logger.Warn().Err(err).Str("guest_id", in.GuestID).Msg("guest session registration failed")
		return false
	}

	if err := r.storage.Set(MarkerKey(in.GuestID), markerValue); err != nil {
		r.logger.Warn().Err(err).Str("guest_id", in.GuestID).Msg("failed to persist registration marker")
	}
	final = Registered
	r.logger.Info().
		Str("guest_id", in.GuestID).
		Str("ref", reg.Ref).
		Str("device_type", string(reg.DeviceType)).
		Str("browser", string(reg.Browser)).
		Msg("guest session registered")
	return true
}

// State returns the registration state of the current guest id
func (r *Registrar) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Wait blocks until background attempts started by Update have finished
func (r *Registrar) Wait() {
	r.wg.Wait()
}

func (r *Registrar) registered(guestID string) bool {
	v, ok, err := r.storage.Get(MarkerKey(guestID))
	if err != nil {
		r.logger.Warn().Err(err).Str("guest_id", guestID).Msg("failed to read registration marker")
		return false
	}
	return ok && v == markerValue
}

// setState records state if guestID is still the current guest
func (r *Registrar) setState(guestID string, state State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.inputs.GuestID == guestID {
		r.state = state
	}
}

// finish clears the in-flight flag and records the final state. It reports
// whether a different eligible guest id arrived in the meantime.
func (r *Registrar) finish(guestID string, state State) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inFlight = false
	if r.inputs.GuestID == guestID {
		r.state = state
		return false
	}
	return Eligible(r.inputs)
}
