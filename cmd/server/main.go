package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	router "github.com/dkeye/watchroom/internal/adapters/http"
	ws "github.com/dkeye/watchroom/internal/adapters/signal"
	"github.com/dkeye/watchroom/internal/config"
	"github.com/dkeye/watchroom/internal/engine"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if cfg.Mode == "debug" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	transport := ws.NewServer(ws.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		ReadLimit:      cfg.ReadLimit,
		PingPeriod:     cfg.PingPeriod,
		PongWait:       cfg.HeartbeatTimeout,
		SendBuffer:     cfg.SendBuffer,
	})
	eng := engine.New(transport, cfg.Secret,
		engine.WithGraceWindow(cfg.GraceWindow),
		engine.WithHeartbeat(cfg.HeartbeatTimeout, cfg.SweepInterval),
		engine.WithRateLimit(cfg.ControlRateLimit, cfg.ControlRateInterval),
		engine.WithPresenceNotify(cfg.PresenceNotify),
		engine.WithBackpressureStrikes(cfg.BackpressureStrikes),
	)

	r := router.SetupRouter(ctx, cfg, eng, transport)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("watchroom server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
			cancel()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	eng.Destroy()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited gracefully")
}
