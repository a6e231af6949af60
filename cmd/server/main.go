// Command server runs the koreamarkers web auth service.
//
// @title                       Korea Markers Auth API
// @version                     1.0
// @description                 JWT session issuance, refresh and registration.
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/koreamarkers/webauth/internal/api"
	"github.com/koreamarkers/webauth/internal/api/view"
	"github.com/koreamarkers/webauth/internal/core/service"
	"github.com/koreamarkers/webauth/internal/infrastructure/config"
	"github.com/koreamarkers/webauth/internal/infrastructure/db"
	"github.com/koreamarkers/webauth/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "server: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// A missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.IsDevelopment(),
		Service: "webauth",
	})

	store, err := db.Open(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := store.Close(closeCtx); err != nil {
			log.Error().Err(err).Msg("closing store")
		}
	}()

	codec, err := service.NewTokenCodec([]byte(cfg.JWT.Secret), time.Now)
	if err != nil {
		return err
	}
	tokens := service.NewTokenPolicy(codec, cfg.JWT.AccessTTL, cfg.JWT.RefreshTTL)

	renderer, err := view.New(cfg.TemplateDir, log)
	if err != nil {
		return err
	}
	if cfg.IsDevelopment() {
		if err := renderer.Watch(ctx); err != nil {
			log.Warn().Err(err).Msg("template reload disabled")
		}
	}

	e := api.NewRouter(api.Dependencies{
		Log:           log,
		Tokens:        tokens,
		Users:         store.Users,
		Login:         service.NewLoginService(store.Users),
		Refresh:       service.NewRefreshService(tokens, store.Users, logger.Component("refresh")),
		Registration:  service.NewRegistrationService(store.Users, logger.Component("registration")),
		Renderer:      renderer,
		SecureCookies: cfg.Cookie.Secure,
		Pingers:       store.Pingers,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Str("storage", cfg.Storage.Driver).Msg("server starting")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return e.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
