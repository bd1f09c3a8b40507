package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	devapi "github.com/foodstand/guestkit/internal/http"
	"github.com/foodstand/guestkit/internal/logging"
)

func newDevAPICmd(a *app) *cobra.Command {
	var registerLimit int

	cmd := &cobra.Command{
		Use:   "dev-api",
		Short: "Run the in-memory guest-session backend for local development",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			logger := logging.Component(a.logger, "dev-api")
			api := devapi.NewDevAPI(ctx, devapi.Config{
				JWTSecret:      a.cfg.JWTSecret,
				AllowedOrigins: a.cfg.AllowedOrigins,
				RegisterLimit:  registerLimit,
				Logger:         logger,
			})

			// Create HTTP server with timeouts
			srv := &http.Server{
				Addr:              ":" + a.cfg.Port,
				Handler:           api,
				ReadHeaderTimeout: 5 * time.Second,
				ReadTimeout:       10 * time.Second,
				WriteTimeout:      10 * time.Second,
				IdleTimeout:       120 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				logger.Info().Str("port", a.cfg.Port).Msg("dev API starting")
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				if err != nil {
					return err
				}
			case <-ctx.Done():
			}

			logger.Info().Msg("shutting down dev API")

			// Graceful shutdown with timeout
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return err
			}

			logger.Info().Msg("dev API exited")
			return nil
		},
	}
	cmd.Flags().IntVar(&registerLimit, "register-limit", 0, "max guest registrations per client address per minute (0 = unlimited)")
	return cmd
}
