package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/safar/storefront/internal/api"
	"github.com/safar/storefront/internal/database"
	"github.com/safar/storefront/migrations"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	serveMigrate bool
	serveSeed    bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := bootstrap(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		if serveMigrate {
			applied, err := database.Migrate(ctx, a.db, migrations.FS, database.Up)
			if err != nil {
				return err
			}
			a.log.Info("migrations applied", zap.Strings("files", applied))
		}
		if serveSeed {
			if err := a.svc.Seed(ctx, a.seedAdmin()); err != nil {
				return seedError(err)
			}
		}

		handler := api.NewRouter(api.Config{
			Service:           a.svc,
			Logger:            a.log,
			Metrics:           a.metrics,
			AuthRatePerMinute: a.cfg.Auth.RateLimitPerMinute,
			AuthBurst:         a.cfg.Auth.RateLimitBurst,
			TrustedProxies:    a.cfg.Server.TrustedProxies,
		})

		server := &http.Server{
			Addr:         ":" + a.cfg.Server.Port,
			Handler:      handler,
			ReadTimeout:  a.cfg.Server.ReadTimeout,
			WriteTimeout: a.cfg.Server.WriteTimeout,
		}

		errCh := make(chan error, 1)
		go func() {
			a.log.Info("server starting", zap.String("port", a.cfg.Server.Port), zap.String("env", a.cfg.Env))
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()

		select {
		case err := <-errCh:
			return fmt.Errorf("server error: %w", err)
		case <-ctx.Done():
		}

		a.log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().BoolVar(&serveMigrate, "migrate", true, "apply pending migrations before serving")
	serveCmd.Flags().BoolVar(&serveSeed, "seed", true, "seed default brands and categories before serving")
}
