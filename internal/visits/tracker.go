// Package visits records how long a guest stays on each page section. Enter
// signals are debounced; once one settles the previous interval is closed
// and sent and a new one is opened.
package visits

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/foodstand/guestkit/internal/backend"
	"github.com/foodstand/guestkit/internal/clock"
	"github.com/foodstand/guestkit/internal/logging"
	"github.com/foodstand/guestkit/internal/model"
)

const (
	// DefaultSettleDelay is how long an enter signal must stand alone
	DefaultSettleDelay = 500 * time.Millisecond
	// FirstSightDwell is the length of the interval sent the first time a
	// key is seen
	FirstSightDwell = time.Second
)

// VisitAPI is the backend call made by the tracker
type VisitAPI interface {
	TrackPageVisits(ctx context.Context, guestID string, visits []model.PageVisit) error
}

// GuestIDFunc returns the current guest id, or "" while none is known
type GuestIDFunc func() string

// Config configures a Tracker
type Config struct {
	Clock       clock.Clock
	SettleDelay time.Duration
	Logger      zerolog.Logger
}

type target struct {
	page    string
	section string
}

// interval is the per-key state: closed, or open since start on behalf of
// guestID
type interval struct {
	target
	open    bool
	start   time.Time
	guestID string
}

// outgoing is a finished interval and the guest it belongs to
type outgoing struct {
	guestID string
	visit   model.PageVisit
}

// Tracker turns enter signals into closed visit intervals
type Tracker struct {
	api      VisitAPI
	guestID  GuestIDFunc
	clock    clock.Clock
	logger   zerolog.Logger
	debounce *Debouncer[target]

	mu        sync.Mutex
	intervals map[string]*interval
	closed    bool
	sends     sync.WaitGroup
}

// NewTracker creates a Tracker reporting to api on behalf of guestID
func NewTracker(api VisitAPI, guestID GuestIDFunc, cfg Config) *Tracker {
	if cfg.Clock == nil {
		cfg.Clock = clock.Real()
	}
	if cfg.SettleDelay <= 0 {
		cfg.SettleDelay = DefaultSettleDelay
	}
	t := &Tracker{
		api:       api,
		guestID:   guestID,
		clock:     cfg.Clock,
		logger:    logging.Component(cfg.Logger, "visits"),
		intervals: make(map[string]*interval),
	}
	t.debounce = NewDebouncer(cfg.Clock, cfg.SettleDelay, t.flush)
	return t
}

// SignalEnter reports that page/section became the visible section. Only
// the last signal of a burst is recorded.
func (t *Tracker) SignalEnter(page, section string) {
	if t.guestID() == "" {
		return
	}
	t.debounce.Trigger(target{page: page, section: section})
}

// Reset closes every open interval at the current time and sends each one
// under the guest id it was opened for. Afterwards no key is open or seen,
// so the next settled signal starts with a first-sight interval. A pending
// signal is kept and settles for whichever guest is current by then.
func (t *Tracker) Reset() {
	now := t.clock.Now()

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	var out []outgoing
	for _, iv := range t.intervals {
		if iv.open {
			out = append(out, iv.closeAt(now))
		}
	}
	clear(t.intervals)
	out = t.sendable(out)
	t.sends.Add(len(out))
	t.mu.Unlock()

	for _, o := range out {
		t.send(o)
	}
}

// Close drops a pending signal and waits for sends already started
func (t *Tracker) Close() {
	t.debounce.Close()
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()
	t.sends.Wait()
}

func (t *Tracker) flush(tg target) {
	guestID := t.guestID()
	if guestID == "" {
		return
	}
	now := t.clock.Now()
	key := model.VisitKey(tg.page, tg.section)

	var out []outgoing

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	for k, iv := range t.intervals {
		if !iv.open || (k == key && iv.guestID == guestID) {
			continue
		}
		out = append(out, iv.closeAt(now))
		iv.open = false
	}

	iv, seen := t.intervals[key]
	if seen && iv.open {
		out = append(out, iv.closeAt(now))
	} else {
		out = append(out, outgoing{guestID: guestID, visit: model.PageVisit{
			PageName:    tg.page,
			SectionName: tg.section,
			InTime:      now,
			OutTime:     now.Add(FirstSightDwell),
		}})
	}
	if !seen {
		iv = &interval{target: tg}
		t.intervals[key] = iv
	}
	iv.open = true
	iv.start = now
	iv.guestID = guestID

	out = t.sendable(out)
	t.sends.Add(len(out))
	t.mu.Unlock()

	for _, o := range out {
		t.send(o)
	}
}

// sendable filters out intervals that do not end after they start, which a
// coarse clock produces when two flushes share a timestamp
func (t *Tracker) sendable(out []outgoing) []outgoing {
	valid := out[:0]
	for _, o := range out {
		if !o.visit.OutTime.After(o.visit.InTime) {
			t.logger.Debug().
				Str("guest_id", o.guestID).
				Str("key", model.VisitKey(o.visit.PageName, o.visit.SectionName)).
				Time("in_time", o.visit.InTime).
				Msg("dropping empty page visit")
			continue
		}
		valid = append(valid, o)
	}
	return valid
}

func (iv *interval) closeAt(now time.Time) outgoing {
	return outgoing{guestID: iv.guestID, visit: model.PageVisit{
		PageName:    iv.page,
		SectionName: iv.section,
		InTime:      iv.start,
		OutTime:     now,
	}}
}

// send issues one fire-and-forget write per interval. The caller has
// already counted it in t.sends.
func (t *Tracker) send(o outgoing) {
	go func() {
		defer t.sends.Done()
		err := t.api.TrackPageVisits(context.Background(), o.guestID, []model.PageVisit{o.visit})
		if err == nil {
			return
		}
		event := t.logger.Warn()
		msg := "failed to track page visit"
		if backend.IsUnavailable(err) {
			event = t.logger.Info()
			msg = "backend unavailable, page visit dropped"
		}
		event.
			Err(err).
			Str("guest_id", o.guestID).
			Str("key", model.VisitKey(o.visit.PageName, o.visit.SectionName)).
			Msg(msg)
	}()
}
