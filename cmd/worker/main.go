// cmd/worker/main.go
package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/sudharsanSarathi/AI-voice-enhancer/internal/config"
	"github.com/sudharsanSarathi/AI-voice-enhancer/internal/infra"
	"github.com/sudharsanSarathi/AI-voice-enhancer/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		boot := zerolog.New(os.Stderr).With().Timestamp().Logger()
		boot.Fatal().Err(err).Msg("load config")
	}
	log := infra.NewLogger(cfg.AppEnv, cfg.LogLevel).With().Str("cmd", "worker").Logger()

	// workers in their own process only see jobs through a shared queue and store
	if !cfg.Distributed() || cfg.Repository.Backend != "postgres" {
		log.Fatal().
			Str("queue", cfg.Queue.Backend).
			Str("repository", cfg.Repository.Backend).
			Msg("standalone worker needs QUEUE_BACKEND=redis|amqp and REPOSITORY_BACKEND=postgres")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backends, err := infra.OpenBackends(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("open backends")
	}
	defer func() {
		if err := backends.Close(); err != nil {
			log.Error().Err(err).Msg("close backends")
		}
	}()

	if cfg.Queue.Backend == "redis" {
		// claimed jobs of a crashed worker go back to the queue
		go worker.RunReaper(ctx, backends.Queue, 30*time.Second, log)
	}

	workDir := filepath.Join(os.TempDir(), "voice-enhancer-worker")
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		log.Fatal().Err(err).Msg("create work dir")
	}

	processor := worker.NewProcessor(backends.Repo, backends.Store, backends.Enhancer, workDir, log)
	pool := worker.NewPool(backends.Queue, processor, cfg.Workers, log)

	log.Info().
		Int("workers", cfg.Workers).
		Str("queue", cfg.Queue.Backend).
		Str("enhancer", cfg.Enhancer.Backend).
		Str("postgres_dsn", config.RedactDSN(cfg.Repository.PostgresDSN)).
		Msg("worker started")
	pool.Run(ctx)

	log.Info().Msg("worker stopped")
}
