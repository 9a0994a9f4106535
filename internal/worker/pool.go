package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/sudharsanSarathi/AI-voice-enhancer/internal/service"
)

type JobProcessor interface {
	Process(ctx context.Context, jobID string) error
}

type Pool struct {
	queue      service.Queue
	processor  JobProcessor
	workers    int
	claimDelay time.Duration
	log        zerolog.Logger
}

func NewPool(queue service.Queue, processor JobProcessor, workers int, log zerolog.Logger) *Pool {
	if workers <= 0 {
		workers = 2
	}
	return &Pool{
		queue:      queue,
		processor:  processor,
		workers:    workers,
		claimDelay: 5 * time.Second,
		log:        log,
	}
}

// Run claims jobs until ctx is done and waits for in-flight jobs to return.
func (p *Pool) Run(ctx context.Context) {
	p.log.Info().Int("workers", p.workers).Msg("worker pool started")

	jobCh := make(chan string)
	var wg sync.WaitGroup

	for i := 0; i < p.workers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for jobID := range jobCh {
				if err := p.processor.Process(ctx, jobID); err != nil {
					p.log.Error().Err(err).Int("worker", n).Str("job_id", jobID).Msg("process job")
				}

				// Always ack: the job is already complete/error in the store, or
				// Process failed before touching it and the reaper brings it back.
				if ackErr := p.queue.Ack(ctx, jobID); ackErr != nil {
					p.log.Error().Err(ackErr).Int("worker", n).Str("job_id", jobID).Msg("ack job")
				}
			}
		}(i + 1)
	}

	defer func() {
		close(jobCh)
		wg.Wait()
		p.log.Info().Msg("worker pool stopped")
	}()

	// Listener: claim from queue -> processing
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		jobID, err := p.queue.ClaimBlocking(ctx, p.claimDelay)
		if err != nil {
			// timeout / ctx cancel are not fatal
			if !errors.Is(err, service.ErrQueueEmpty) && ctx.Err() == nil {
				p.log.Warn().Err(err).Msg("claim job")
				select {
				case <-ctx.Done():
				case <-time.After(time.Second):
				}
			}
			continue
		}
		select {
		case jobCh <- jobID:
		case <-ctx.Done():
			return
		}
	}
}

// RunReaper periodically returns claimed-but-unacked jobs to the queue.
func RunReaper(ctx context.Context, queue service.Queue, every time.Duration, log zerolog.Logger) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := queue.RequeueStale(ctx, 100)
			if err != nil {
				log.Error().Err(err).Msg("requeue stale jobs")
				continue
			}
			if n > 0 {
				log.Info().Int64("requeued", n).Msg("requeued jobs from processing")
			}
		}
	}
}
