package infra

import (
	"context"
	"fmt"
	"io"

	"github.com/hashicorp/go-multierror"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/sudharsanSarathi/AI-voice-enhancer/internal/config"
	"github.com/sudharsanSarathi/AI-voice-enhancer/internal/enhancer"
	"github.com/sudharsanSarathi/AI-voice-enhancer/internal/repository/memory"
	"github.com/sudharsanSarathi/AI-voice-enhancer/internal/repository/postgresql"
	"github.com/sudharsanSarathi/AI-voice-enhancer/internal/service"
	"github.com/sudharsanSarathi/AI-voice-enhancer/internal/storage"
)

// Backends are the storage, persistence, queue and model adapters selected
// by configuration.
type Backends struct {
	Repo     service.JobRepository
	Queue    service.Queue
	Store    storage.Store
	Enhancer enhancer.Enhancer

	closers []io.Closer
}

type closeFunc func() error

func (f closeFunc) Close() error { return f() }

// OpenBackends connects every configured adapter. On error everything opened
// so far is closed.
func OpenBackends(ctx context.Context, cfg *config.Config, log zerolog.Logger) (_ *Backends, err error) {
	b := &Backends{}
	defer func() {
		if err != nil {
			_ = b.Close()
		}
	}()

	if b.Repo, err = b.openRepo(ctx, cfg, log); err != nil {
		return nil, err
	}
	if b.Queue, err = b.openQueue(ctx, cfg, log); err != nil {
		return nil, err
	}
	if b.Store, err = openStore(ctx, cfg); err != nil {
		return nil, err
	}
	if b.Enhancer, err = NewEnhancer(cfg.Enhancer); err != nil {
		return nil, err
	}
	log.Info().
		Str("repository", cfg.Repository.Backend).
		Str("queue", cfg.Queue.Backend).
		Str("storage", cfg.Storage.Backend).
		Str("enhancer", cfg.Enhancer.Backend).
		Msg("backends ready")
	return b, nil
}

func (b *Backends) openRepo(ctx context.Context, cfg *config.Config, log zerolog.Logger) (service.JobRepository, error) {
	if cfg.Repository.Backend != "postgres" {
		return memory.NewJobRepository(), nil
	}
	pool, err := postgresql.NewPool(ctx, cfg.Repository.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("pg: %w", err)
	}
	b.closers = append(b.closers, closeFunc(func() error { pool.Close(); return nil }))

	repo := postgresql.NewJobRepository(pool)
	if err := repo.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("pg schema: %w", err)
	}
	log.Info().Str("dsn", config.RedactDSN(cfg.Repository.PostgresDSN)).Msg("postgres connected")
	return repo, nil
}

func (b *Backends) openQueue(ctx context.Context, cfg *config.Config, log zerolog.Logger) (service.Queue, error) {
	switch cfg.Queue.Backend {
	case "redis":
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Queue.RedisAddr})
		b.closers = append(b.closers, rdb)
		if err := rdb.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("redis: %w", err)
		}
		log.Info().Str("addr", cfg.Queue.RedisAddr).Str("queue_key", cfg.Queue.RedisQueueKey).Msg("redis connected")
		keys := service.RedisKeys{Pending: cfg.Queue.RedisQueueKey, Claimed: cfg.Queue.RedisProcessingKey}
		return service.NewRedisQueue(rdb, keys, cfg.Queue.RedisClaimTimeout), nil
	case "amqp":
		conn, err := amqp.Dial(cfg.Queue.AMQPURL)
		if err != nil {
			return nil, fmt.Errorf("amqp: %w", err)
		}
		b.closers = append(b.closers, conn)
		q, err := service.NewAMQPQueue(conn, cfg.Queue.AMQPQueue, cfg.Workers)
		if err != nil {
			return nil, fmt.Errorf("amqp: %w", err)
		}
		log.Info().Str("queue", cfg.Queue.AMQPQueue).Msg("amqp connected")
		return q, nil
	default:
		return service.NewMemoryQueue(), nil
	}
}

func openStore(ctx context.Context, cfg *config.Config) (storage.Store, error) {
	if cfg.Storage.Backend == "minio" {
		m := cfg.Storage.Minio
		return storage.NewMinioStore(ctx, storage.MinioConfig{
			Endpoint:  m.Endpoint,
			AccessKey: m.AccessKey,
			SecretKey: m.SecretKey,
			Bucket:    m.Bucket,
			Secure:    m.Secure,
		})
	}
	return storage.NewFileStore(cfg.Storage.UploadDir, cfg.Storage.ProcessedDir)
}

// NewEnhancer picks the model adapter.
func NewEnhancer(cfg config.Enhancer) (enhancer.Enhancer, error) {
	switch cfg.Backend {
	case "http":
		return enhancer.NewHTTPModel(cfg.URL, cfg.APIKey, cfg.Timeout), nil
	case "command":
		cmd, err := enhancer.ParseCommand(cfg.Command)
		if err != nil {
			return nil, err
		}
		return cmd, nil
	default:
		return enhancer.Passthrough{}, nil
	}
}

// Close releases connections in reverse order of opening.
func (b *Backends) Close() error {
	var result *multierror.Error
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i].Close(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	b.closers = nil
	return result.ErrorOrNil()
}
