package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ehr/fhirextract/internal/config"
	"github.com/ehr/fhirextract/internal/domain/flatten"
	"github.com/ehr/fhirextract/internal/domain/record"
	"github.com/ehr/fhirextract/internal/platform/auth"
	"github.com/ehr/fhirextract/internal/platform/db"
	"github.com/ehr/fhirextract/internal/platform/middleware"
)

func serveCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the record query API",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("port") {
				a.cfg.Port, _ = cmd.Flags().GetString("port")
			}
			return runServer(cmd.Context(), a)
		},
	}
	cmd.Flags().String("port", "", "Listen port (overrides PORT)")
	return cmd
}

// newServer builds the echo instance. pool may be nil when no database is
// configured.
func newServer(cfg *config.Config, logger zerolog.Logger, pool *pgxpool.Pool, asOf time.Time) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.BodyLimit(cfg.MaxBundleBytes))

	repo := record.NewMemoryRepository()
	svc := record.NewService(repo, asOf)

	var pinger db.Pinger
	if pool != nil {
		pinger = pool
	}
	e.GET("/health", db.HealthHandler(pinger, repo.Len))

	apiV1 := e.Group("/api/v1")
	if cfg.AuthSigningKey != "" {
		apiV1.Use(auth.JWTMiddleware(auth.JWTConfig{
			SigningKey: []byte(cfg.AuthSigningKey),
			Skipper:    auth.AuthSkipper,
		}))
		apiV1.Use(auth.RequireScopes())
	} else {
		logger.Warn().Msg("AUTH_SIGNING_KEY not set, API is unauthenticated")
	}

	record.NewHandler(svc).RegisterRoutes(apiV1)
	flatten.NewHandler(svc).RegisterRoutes(apiV1)
	return e
}

func runServer(ctx context.Context, a *app) error {
	cfg, logger := a.cfg, a.logger
	if err := cfg.Validate(); err != nil {
		return err
	}
	asOf, err := cfg.ReferenceTime(time.Now())
	if err != nil {
		return err
	}

	var pool *pgxpool.Pool
	if cfg.DatabaseURL != "" {
		pool, err = db.NewPool(ctx, db.PoolConfig{URL: cfg.DatabaseURL, MaxConns: cfg.DBMaxConns, MinConns: cfg.DBMinConns})
		if err != nil {
			return err
		}
		defer pool.Close()
		logger.Info().Msg("connected to database")
	}

	e := newServer(cfg, logger, pool, asOf)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
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

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}
