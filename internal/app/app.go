package app

import (
	"context"
	"fmt"
	stdhttp "net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/driftchat/driftchat-server/internal/auth"
	"github.com/driftchat/driftchat-server/internal/config"
	"github.com/driftchat/driftchat-server/internal/core"
	"github.com/driftchat/driftchat-server/internal/filter"
	transporthttp "github.com/driftchat/driftchat-server/internal/transport/http"
)

// App wires together core and transport layers.
type App struct {
	server          *stdhttp.Server
	shutdownTimeout time.Duration
	hub             *core.Hub
	log             *zerolog.Logger
}

// New constructs the application with provided configuration.
func New(cfg *config.Config, logger *zerolog.Logger) (*App, error) {
	rejoin, err := auth.NewRejoinService(auth.RejoinConfig{
		Secret: []byte(cfg.RejoinSecret),
		TTL:    cfg.GracePeriod + time.Minute,
	})
	if err != nil {
		return nil, fmt.Errorf("init rejoin tokens: %w", err)
	}

	hub := core.NewHub(core.HubOptions{
		Logger:      logger,
		GracePeriod: cfg.GracePeriod,
		Filter:      filter.New(cfg.ProfanityWords),
		Rejoin:      rejoin,
	})
	server := transporthttp.NewServer(hub, cfg, logger)

	logger.Info().
		Dur("grace_period", cfg.GracePeriod).
		Int("profanity_words", len(cfg.ProfanityWords)).
		Msg("coordinator initialized")

	return &App{
		server:          server,
		shutdownTimeout: cfg.ShutdownTimeout,
		hub:             hub,
		log:             logger,
	}, nil
}

// Run starts the HTTP server and blocks until context cancellation or fatal error.
func (a *App) Run(ctx context.Context) error {
	serverErr := make(chan error, 1)

	go a.hub.Run(ctx)

	go func() {
		if err := a.server.ListenAndServe(); err != nil && err != stdhttp.ErrServerClosed {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
		defer cancel()

		a.log.Info().Msg("shutting down http server")
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return <-serverErr
	}
}
