package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/foodstand/guestkit/internal/backend"
	"github.com/foodstand/guestkit/internal/config"
	"github.com/foodstand/guestkit/internal/logging"
	"github.com/foodstand/guestkit/internal/storage"
)

// app carries what every command needs once configuration is loaded
type app struct {
	cfg    *config.Config
	logger zerolog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "guestkit",
		Short:         "Guest identity and visit attribution for the storefront",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			a.cfg = cfg
			a.logger = logging.New(logging.Config{
				Level:  cfg.LogLevel,
				Format: cfg.LogFormat,
				Output: cmd.ErrOrStderr(),
			})
			return nil
		},
	}

	root.AddCommand(
		newIDCmd(a),
		newRegenerateCmd(a),
		newVisitCmd(a),
		newDevAPICmd(a),
	)
	return root
}

// openStorage opens the configured storage driver
func (a *app) openStorage(ctx context.Context) (storage.Driver, error) {
	return storage.Open(ctx, storage.Config{
		Driver:      a.cfg.Storage,
		Path:        a.cfg.StoragePath,
		Namespace:   a.cfg.Namespace,
		RedisURL:    a.cfg.RedisURL,
		DatabaseURL: a.cfg.DatabaseURL,
		Logger:      a.logger,
	})
}

// newClient builds a backend client for the configured API URL
func (a *app) newClient() (*backend.Client, error) {
	if err := a.cfg.RequireAPIURL(); err != nil {
		return nil, err
	}
	return backend.New(backend.Config{
		BaseURL: a.cfg.APIURL,
		Timeout: a.cfg.RequestTimeout,
		Logger:  logging.Component(a.logger, "backend"),
	})
}
