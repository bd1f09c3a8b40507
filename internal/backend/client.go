// Package backend is the JSON-over-HTTP client for the storefront API.
// Every resource answers with a {success, message, data} envelope; callers
// only see data when success is true.
package backend

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/foodstand/guestkit/internal/model"
)

const maxResponseBytes = 1 << 20

// APIError is returned when the backend answers with a non-2xx status or
// an envelope whose success flag is false
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend returned status %d", e.Status)
	}
	return fmt.Sprintf("backend returned status %d: %s", e.Status, e.Message)
}

// Config configures a Client
type Config struct {
	BaseURL string
	Timeout time.Duration
	// HTTPClient overrides the default client built from Timeout
	HTTPClient *http.Client
	Logger     zerolog.Logger
}

// Client talks to the storefront backend on behalf of one principal
type Client struct {
	baseURL *url.URL
	http    *http.Client
	breaker *gobreaker.CircuitBreaker[*model.Envelope]
	logger  zerolog.Logger

	mu        sync.RWMutex
	principal model.Principal
}

// New creates a Client for cfg.BaseURL
func New(cfg Config) (*Client, error) {
	base := strings.TrimSpace(cfg.BaseURL)
	if base == "" {
		return nil, fmt.Errorf("backend base URL is required")
	}
	u, err := url.Parse(strings.TrimRight(base, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid backend base URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("backend base URL must be http or https, got %q", u.Scheme)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Client{
		baseURL: u,
		http:    httpClient,
		breaker: newBreaker(u.Host, cfg.Logger),
		logger:  cfg.Logger,
	}, nil
}

// SetPrincipal sets the identity attached to subsequent calls
func (c *Client) SetPrincipal(p model.Principal) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.principal = p
}

// Principal returns the identity attached to calls
func (c *Client) Principal() model.Principal {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.principal
}

// RegisterGuestSession reports a guest's device, browser and referral
func (c *Client) RegisterGuestSession(ctx context.Context, reg model.SessionRegistration) error {
	_, err := c.Do(ctx, http.MethodPost, "/guest-sessions", reg)
	return err
}

// TrackPageVisits appends closed visit intervals to a guest session
func (c *Client) TrackPageVisits(ctx context.Context, guestID string, visits []model.PageVisit) error {
	path := "/guest-sessions/" + url.PathEscape(guestID)
	_, err := c.Do(ctx, http.MethodPut, path, model.PageVisitsRequest{PageVisits: visits})
	return err
}

// Do sends body as JSON to path and returns the envelope data of a
// successful response
func (c *Client) Do(ctx context.Context, method, path string, body any) (json.RawMessage, error) {
	env, err := c.breaker.Execute(func() (*model.Envelope, error) {
		return c.roundTrip(ctx, method, path, body)
	})
	if err != nil {
		return nil, err
	}
	return env.Data, nil
}

// Decode unmarshals the data of a successful call into T
func Decode[T any](data json.RawMessage) (T, error) {
	var out T
	if len(data) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, fmt.Errorf("failed to decode response data: %w", err)
	}
	return out, nil
}

func (c *Client) roundTrip(ctx context.Context, method, path string, body any) (*model.Envelope, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	endpoint := c.baseURL.JoinPath(path)
	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if p := c.Principal(); p.Authenticated() {
		req.Header.Set("Authorization", "Bearer "+p.Token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	c.logger.Debug().
		Str("method", method).
		Str("path", path).
		Str("request_id", requestID).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("backend call")

	var env model.Envelope
	decodeErr := json.Unmarshal(raw, &env)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		if decodeErr == nil {
			apiErr.Message = env.Message
		}
		return nil, apiErr
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("failed to decode response envelope: %w", decodeErr)
	}
	if !env.Success {
		return nil, &APIError{Status: resp.StatusCode, Message: env.Message}
	}
	return &env, nil
}

// IsClientError reports whether err is a 4xx answer from the backend
func IsClientError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status >= 400 && apiErr.Status < 500
}
