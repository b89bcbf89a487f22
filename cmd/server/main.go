package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	router "github.com/aakashbhandari1000/Meeting/internal/adapters/http"
	"github.com/aakashbhandari1000/Meeting/internal/adapters/identity"
	"github.com/aakashbhandari1000/Meeting/internal/adapters/store"
	"github.com/aakashbhandari1000/Meeting/internal/app"
	"github.com/aakashbhandari1000/Meeting/internal/config"
	"github.com/aakashbhandari1000/Meeting/internal/domain"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	// Human-friendly output for terminal; in production you may want JSON only.
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Error().Err(err).Msg("failed to load config")
	}

	seed := make(map[string]domain.UserID, len(cfg.DevTokens))
	for token, uid := range cfg.DevTokens {
		seed[token] = domain.UserID(uid)
	}

	docs := store.NewMemory()
	realtime := store.NewRealtime()
	provider := identity.NewStatic(seed)

	coord := app.NewCoordinator(app.NewSessionIndex(), docs, realtime, app.SimplePolicy{})

	r := router.SetupRouter(ctx, cfg, coord, provider)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("Meeting server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited gracefully")
}
