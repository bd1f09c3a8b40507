package backend

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/foodstand/guestkit/internal/model"
)

// newBreaker trips after five consecutive transport or 5xx failures and
// probes again after 30 seconds. 4xx answers and caller cancellations do not
// count against the backend.
func newBreaker(host string, logger zerolog.Logger) *gobreaker.CircuitBreaker[*model.Envelope] {
	return gobreaker.NewCircuitBreaker[*model.Envelope](gobreaker.Settings{
		Name:        "backend:" + host,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			return err == nil || IsClientError(err) || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state change")
		},
	})
}

// IsUnavailable reports whether err was produced by an open breaker rather
// than by a request
func IsUnavailable(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}
