// Package guest wires the identity store, device prober, session registrar
// and visit tracker into one engine per storefront process.
package guest

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/foodstand/guestkit/internal/clock"
	"github.com/foodstand/guestkit/internal/device"
	"github.com/foodstand/guestkit/internal/identity"
	"github.com/foodstand/guestkit/internal/logging"
	"github.com/foodstand/guestkit/internal/model"
	"github.com/foodstand/guestkit/internal/registrar"
	"github.com/foodstand/guestkit/internal/storage"
	"github.com/foodstand/guestkit/internal/visits"
)

// API is the slice of the backend client the engine needs
type API interface {
	registrar.SessionAPI
	visits.VisitAPI
	SetPrincipal(p model.Principal)
}

// Deps are the collaborators of an Engine
type Deps struct {
	Storage     storage.Store
	API         API
	Clock       clock.Clock
	SettleDelay time.Duration
	Logger      zerolog.Logger
	// Generator overrides the crypto-seeded id generator
	Generator *identity.Generator
}

// Runtime describes one page load
type Runtime struct {
	UserAgent string
	URL       string
	// Token is the bearer token of a signed-in user, if any
	Token string
}

// Engine is the guest-facing entry point
type Engine struct {
	identity  *identity.Store
	prober    *device.Prober
	registrar *registrar.Registrar
	tracker   *visits.Tracker
	api       API
	logger    zerolog.Logger

	mu        sync.RWMutex
	principal model.Principal
	runtime   Runtime
	mounted   bool
}

// New builds an Engine over deps
func New(deps Deps) *Engine {
	logger := logging.Component(deps.Logger, "guest")

	opts := []identity.Option{identity.WithLogger(deps.Logger)}
	if deps.Generator != nil {
		opts = append(opts, identity.WithGenerator(deps.Generator))
	}

	e := &Engine{
		identity:  identity.NewStore(deps.Storage, opts...),
		prober:    device.NewProber(),
		registrar: registrar.New(deps.API, deps.Storage, deps.Logger),
		api:       deps.API,
		logger:    logger,
	}
	e.tracker = visits.NewTracker(deps.API, e.guestID, visits.Config{
		Clock:       deps.Clock,
		SettleDelay: deps.SettleDelay,
		Logger:      deps.Logger,
	})
	return e
}

// Mount runs the page-load sequence: resolve the guest id, probe the
// device once and hand both to the registrar. Registration proceeds in the
// background.
func (e *Engine) Mount(ctx context.Context, rt Runtime) model.Principal {
	id := e.identity.GetOrCreate()

	e.mu.Lock()
	e.runtime = rt
	e.mounted = true
	e.mu.Unlock()

	return e.apply(ctx, id, rt)
}

// Regenerate replaces the guest id. Open visit intervals are closed and sent
// for the old id first; a mounted engine then registers the new id.
func (e *Engine) Regenerate(ctx context.Context) string {
	e.tracker.Reset()
	id := e.identity.Regenerate()

	e.mu.RLock()
	rt, mounted := e.runtime, e.mounted
	e.mu.RUnlock()

	if mounted {
		e.apply(ctx, id, rt)
	}
	return id
}

// Enter reports that page/section became visible
func (e *Engine) Enter(page, section string) {
	e.tracker.SignalEnter(page, section)
}

// Principal returns the identity to attach to cart and order calls
func (e *Engine) Principal() model.Principal {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.principal
}

// GuestID returns the current guest id, or "" before Mount
func (e *Engine) GuestID() string {
	return e.guestID()
}

// Device returns the probed device context. It is zero before Mount.
func (e *Engine) Device() model.DeviceContext {
	e.mu.RLock()
	rt, mounted := e.runtime, e.mounted
	e.mu.RUnlock()
	if !mounted {
		return model.DeviceContext{}
	}
	return e.prober.Probe(rt.UserAgent)
}

// RegistrationState reports the registrar's state for the current guest
func (e *Engine) RegistrationState() registrar.State {
	return e.registrar.State()
}

// Settle waits for background registration attempts
func (e *Engine) Settle() {
	e.registrar.Wait()
}

// Close drops pending visit signals and waits for outstanding calls
func (e *Engine) Close() {
	e.tracker.Close()
	e.registrar.Wait()
}

func (e *Engine) apply(ctx context.Context, id string, rt Runtime) model.Principal {
	dc := e.prober.Probe(rt.UserAgent)
	p := identity.Resolve(id, rt.Token)

	e.mu.Lock()
	e.principal = p
	e.mu.Unlock()
	e.api.SetPrincipal(p)

	e.logger.Debug().
		Str("guest_id", id).
		Str("device_type", string(dc.Class)).
		Str("browser", string(dc.Browser)).
		Bool("authenticated", p.Authenticated()).
		Msg("guest mounted")

	e.registrar.Update(ctx, registrar.Inputs{
		GuestID: id,
		Device:  dc.Class,
		Browser: dc.Browser,
		PageURL: rt.URL,
	})
	return p
}

func (e *Engine) guestID() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.principal.GuestID
}
