package main

import (
	"context"
	"errors"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/lucasmv/wordclash-backend/internal/auth"
	"github.com/lucasmv/wordclash-backend/internal/config"
	"github.com/lucasmv/wordclash-backend/internal/game"
	"github.com/lucasmv/wordclash-backend/internal/server"
	"github.com/lucasmv/wordclash-backend/internal/stats"
	"github.com/lucasmv/wordclash-backend/internal/words"
)

func main() {
	_ = godotenv.Load()

	cfg := &config.Config{}
	cmd := config.NewCommand(cfg, run)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cmd.ExecuteContext(ctx); err != nil {
		log := zerolog.New(os.Stderr).With().Timestamp().Logger()
		log.Fatal().Err(err).Msg("server exited")
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	level := zerolog.InfoLevel
	if cfg.Verbose {
		level = zerolog.DebugLevel
	}
	log := zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()

	dict, err := words.New(rand.New(rand.NewSource(time.Now().UnixNano())))
	if err != nil {
		return err
	}

	var recorder *stats.PostgresRecorder
	var statsRec stats.Recorder = stats.NoopRecorder{}
	if cfg.DatabaseURL != "" {
		recorder, err = stats.NewPostgresRecorder(ctx, cfg.DatabaseURL, log)
		if err != nil {
			return err
		}
		defer recorder.Close()
		statsRec = recorder
		log.Info().Msg("stats persistence enabled")
	} else {
		log.Info().Msg("no database configured, stats persistence disabled")
	}

	registry := game.NewRegistry(dict, statsRec, log)
	registry.IdleTimeout = cfg.RoomIdleTimeout
	registry.SweepInterval = cfg.SweepInterval
	registry.StartSweeper(ctx)

	sessions := auth.NewSessions(cfg.JWTSecret)
	srv := server.New(cfg, registry, sessions, recorder, log)
	httpSrv := srv.HTTPServer()

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", httpSrv.Addr).Msg("listening")
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}
