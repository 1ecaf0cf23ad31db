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

	"github.com/mohans/arqmon/internal/api"
)

const shutdownTimeout = 10 * time.Second

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the job API over HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := bootstrap()
			if err != nil {
				return err
			}
			a, err := newApp(cfg, logger.Logger)
			if err != nil {
				return err
			}
			defer a.close()

			router := api.NewRouter(a.service, api.Options{
				Prefix:      cfg.API.Prefix,
				CORSOrigins: cfg.API.CORSAllowedOrigins,
				RateLimit:   cfg.API.RateLimit,
				RateBurst:   cfg.API.RateBurst,
			}, logger.Logger)
			srv := &http.Server{
				Addr:              cfg.API.Addr(),
				Handler:           router,
				ReadHeaderTimeout: 10 * time.Second,
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				logger.Info("http server listening", "addr", srv.Addr, "store", cfg.Store.Type)
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			case <-ctx.Done():
			}

			logger.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
}
