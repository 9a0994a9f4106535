// cmd/server/main.go
package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"

	"github.com/sudharsanSarathi/AI-voice-enhancer/internal/config"
	"github.com/sudharsanSarathi/AI-voice-enhancer/internal/infra"
	"github.com/sudharsanSarathi/AI-voice-enhancer/internal/service"
	httptransport "github.com/sudharsanSarathi/AI-voice-enhancer/internal/transport/http"
	"github.com/sudharsanSarathi/AI-voice-enhancer/internal/worker"
)

// @title Voice Enhancer API
// @version 1.0
// @description Upload audio, enhance it asynchronously and fetch the result.
// @BasePath /
func main() {
	cfg, err := config.Load()
	if err != nil {
		boot := zerolog.New(os.Stderr).With().Timestamp().Logger()
		boot.Fatal().Err(err).Msg("load config")
	}
	log := infra.NewLogger(cfg.AppEnv, cfg.LogLevel).With().Str("cmd", "server").Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backends, err := infra.OpenBackends(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("open backends")
	}

	svc := service.NewJobService(backends.Repo, backends.Queue, backends.Store, service.Options{
		MaxUploadBytes: cfg.MaxUploadBytes,
		JobRetention:   cfg.JobRetention,
		ArtifactTTL:    cfg.ArtifactTTL,
		Logger:         log.With().Str("component", "service").Logger(),
	})

	workDir := filepath.Join(os.TempDir(), "voice-enhancer")
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		log.Fatal().Err(err).Msg("create work dir")
	}
	wlog := log.With().Str("component", "worker").Logger()
	processor := worker.NewProcessor(backends.Repo, backends.Store, backends.Enhancer, workDir, wlog)
	svc.SetCanceller(processor)

	var bg sync.WaitGroup
	bg.Add(2)
	go func() {
		defer bg.Done()
		worker.NewPool(backends.Queue, processor, cfg.Workers, wlog).Run(ctx)
	}()
	go func() {
		defer bg.Done()
		runSweeper(ctx, svc, cfg.SweepInterval, log)
	}()
	// in-memory claims belong to this process; only shared queues need the reaper
	if cfg.Queue.Backend == "redis" {
		bg.Add(1)
		go func() {
			defer bg.Done()
			worker.RunReaper(ctx, backends.Queue, 30*time.Second, wlog)
		}()
	}

	h := httptransport.NewHandler(svc, backends.Store, log.With().Str("component", "http").Logger())
	router := httptransport.Routes(h, httptransport.RouteOptions{Logger: log, StaticDir: cfg.StaticDir})
	server := infra.NewHTTPServer(cfg, router)

	serveErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", server.Addr()).Int("workers", cfg.Workers).Msg("API listening")
		serveErr <- server.Start()
	}()

	var result *multierror.Error
	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			result = multierror.Append(result, err)
		}
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		result = multierror.Append(result, err)
	}
	bg.Wait()
	if err := backends.Close(); err != nil {
		result = multierror.Append(result, err)
	}

	if err := result.ErrorOrNil(); err != nil {
		log.Error().Err(err).Msg("server stopped with errors")
		os.Exit(1)
	}
	log.Info().Msg("server stopped")
}

func runSweeper(ctx context.Context, svc *service.JobService, every time.Duration, log zerolog.Logger) {
	if every <= 0 {
		return
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			res, err := svc.Sweep(ctx)
			if err != nil {
				log.Error().Err(err).Msg("sweep")
			}
			if res.Jobs > 0 || res.Artifacts > 0 {
				log.Info().Int64("jobs", res.Jobs).Int("artifacts", res.Artifacts).Msg("swept expired data")
			}
		}
	}
}
