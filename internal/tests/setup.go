// Package tests holds end-to-end tests that run the engine against the dev
// backend over real HTTP, optionally on the postgres storage driver.
package tests

import (
	"context"
	"fmt"
	"net/http/httptest"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/foodstand/guestkit/internal/backend"
	"github.com/foodstand/guestkit/internal/clock"
	"github.com/foodstand/guestkit/internal/db"
	"github.com/foodstand/guestkit/internal/guest"
	devapi "github.com/foodstand/guestkit/internal/http"
	"github.com/foodstand/guestkit/internal/storage"
)

// Stack is a dev backend plus the pieces needed to mount engines against it
type Stack struct {
	API    *devapi.DevAPI
	Server *httptest.Server
	Logger zerolog.Logger
}

// NewStack starts the dev backend on a loopback listener. Call Close when done.
func NewStack(ctx context.Context) *Stack {
	logger := zerolog.Nop()
	api := devapi.NewDevAPI(ctx, devapi.Config{JWTSecret: "test-jwt-secret", Logger: logger})
	return &Stack{
		API:    api,
		Server: httptest.NewServer(api),
		Logger: logger,
	}
}

// Close stops the backend
func (s *Stack) Close() {
	s.Server.Close()
}

// Client returns a backend client pointed at the stack
func (s *Stack) Client() (*backend.Client, error) {
	return backend.New(backend.Config{
		BaseURL: s.Server.URL,
		Timeout: 2 * time.Second,
		Logger:  s.Logger,
	})
}

// Engine mounts a fresh engine, as one page load would, over st
func (s *Stack) Engine(st storage.Store, clk clock.Clock) (*guest.Engine, error) {
	client, err := s.Client()
	if err != nil {
		return nil, err
	}
	return guest.New(guest.Deps{
		Storage: st,
		API:     client,
		Clock:   clk,
		Logger:  s.Logger,
	}), nil
}

// OpenPostgresStore returns a migrated, emptied postgres store, or nil when
// DATABASE_URL is unset.
func OpenPostgresStore(ctx context.Context, namespace string) (*storage.Postgres, error) {
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		return nil, nil
	}

	database, err := db.Open(ctx, databaseURL, zerolog.Nop())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Migrate(ctx, database); err != nil {
		database.Close()
		return nil, err
	}
	if err := db.TruncateGuestStorage(ctx, database); err != nil {
		database.Close()
		return nil, err
	}
	return storage.NewPostgres(database, namespace), nil
}
