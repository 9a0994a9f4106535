package worker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/sudharsanSarathi/AI-voice-enhancer/internal/enhancer"
	"github.com/sudharsanSarathi/AI-voice-enhancer/internal/entity"
	"github.com/sudharsanSarathi/AI-voice-enhancer/internal/storage"
	"github.com/sudharsanSarathi/AI-voice-enhancer/internal/upload"
)

type JobRepo interface {
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Job, error)
	UpdateProgress(ctx context.Context, id uuid.UUID, status entity.JobStatus, progress int, message string) error
	SetResultDone(ctx context.Context, id uuid.UUID, enhancedFile, message string) error
	SetResultError(ctx context.Context, id uuid.UUID, errText string) error
}

// Progress bounds for the enhancer itself; the rest is staging and upload.
const (
	progressPreparing = 20
	progressLoading   = 30
	progressEnhanced  = 90
	progressSaving    = 95
)

type Processor struct {
	repo     JobRepo
	store    storage.Store
	enhancer enhancer.Enhancer
	workDir  string
	log      zerolog.Logger

	mu      sync.Mutex
	running map[uuid.UUID]context.CancelFunc
}

func NewProcessor(repo JobRepo, store storage.Store, enh enhancer.Enhancer, workDir string, log zerolog.Logger) *Processor {
	return &Processor{
		repo:     repo,
		store:    store,
		enhancer: enh,
		workDir:  workDir,
		log:      log,
		running:  make(map[uuid.UUID]context.CancelFunc),
	}
}

// CancelJob stops the enhancer for id if this processor is running it.
func (p *Processor) CancelJob(id uuid.UUID) bool {
	p.mu.Lock()
	cancel, ok := p.running[id]
	p.mu.Unlock()
	if ok {
		cancel()
	}
	return ok
}

func (p *Processor) track(id uuid.UUID, cancel context.CancelFunc) func() {
	p.mu.Lock()
	p.running[id] = cancel
	p.mu.Unlock()
	return func() {
		p.mu.Lock()
		delete(p.running, id)
		p.mu.Unlock()
		cancel()
	}
}

func (p *Processor) Process(ctx context.Context, jobID string) error {
	start := time.Now()

	id, err := uuid.Parse(jobID)
	if err != nil {
		p.log.Error().Str("job_id", jobID).Err(err).Msg("parse job id")
		return err
	}

	job, err := p.repo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get job: %w", err)
	}
	log := p.log.With().Str("job_id", jobID).Str("tier", string(job.Tier)).Logger()

	if job.Status.IsTerminal() {
		log.Info().Str("status", string(job.Status)).Msg("job already finished, skipping")
		return nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer p.track(id, cancel)()

	if err := p.repo.UpdateProgress(ctx, id, entity.StatusProcessing, progressPreparing, "Preparing audio"); err != nil {
		return p.skipIfFinished(log, err)
	}
	log.Info().Str("status", "processing").Str("model", job.Model).Msg("job started")

	enhancedFile, err := p.run(runCtx, ctx, job)
	if err != nil {
		if errors.Is(runCtx.Err(), context.Canceled) && ctx.Err() == nil {
			log.Info().Int64("duration_ms", time.Since(start).Milliseconds()).Msg("job cancelled while running")
			return nil
		}
		if errors.Is(err, entity.ErrJobTerminal) {
			return p.skipIfFinished(log, err)
		}
		msg := "Audio processing failed: " + err.Error()
		if setErr := p.repo.SetResultError(ctx, id, msg); setErr != nil && !errors.Is(setErr, entity.ErrJobTerminal) {
			log.Error().Err(setErr).Msg("set error result")
		}
		log.Error().Str("status", "error").Int64("duration_ms", time.Since(start).Milliseconds()).Err(err).Msg("job failed")
		return err
	}

	if err := p.repo.SetResultDone(ctx, id, enhancedFile, "Enhancement complete"); err != nil {
		return p.skipIfFinished(log, err)
	}
	log.Info().Str("status", "complete").Str("file", enhancedFile).
		Int64("duration_ms", time.Since(start).Milliseconds()).Msg("job done")
	return nil
}

// run stages the upload locally, calls the model and stores its output.
// runCtx governs the model call, ctx the bookkeeping.
func (p *Processor) run(runCtx, ctx context.Context, job *entity.Job) (string, error) {
	dir, err := os.MkdirTemp(p.workDir, "enhance-*")
	if err != nil {
		return "", fmt.Errorf("create work dir: %w", err)
	}
	defer os.RemoveAll(dir)

	inputPath := filepath.Join(dir, job.OriginalFile)
	if err := p.fetchOriginal(runCtx, job.OriginalFile, inputPath); err != nil {
		return "", err
	}

	if err := p.repo.UpdateProgress(ctx, job.ID, entity.StatusProcessing, progressLoading, "Loading "+job.Model); err != nil {
		return "", err
	}

	ext := p.enhancer.OutputExt()
	if ext == "" {
		ext = upload.Extension(job.OriginalFile)
	}
	enhancedFile := entity.EnhancedFilename(job.ID, ext)
	outputPath := filepath.Join(dir, enhancedFile)

	err = p.enhancer.Enhance(runCtx, enhancer.Request{
		InputPath:  inputPath,
		OutputPath: outputPath,
		Tier:       job.Tier,
		Model:      job.Model,
		Progress: func(pct int) {
			scaled := progressLoading + pct*(progressEnhanced-progressLoading)/100
			if err := p.repo.UpdateProgress(ctx, job.ID, entity.StatusProcessing, scaled, "Enhancing audio"); err != nil {
				p.log.Debug().Err(err).Str("job_id", job.ID.String()).Msg("progress update")
			}
		},
	})
	if err != nil {
		return "", err
	}
	if err := runCtx.Err(); err != nil {
		return "", err
	}

	if err := p.repo.UpdateProgress(ctx, job.ID, entity.StatusProcessing, progressSaving, "Saving enhanced audio"); err != nil {
		return "", err
	}
	if err := p.storeEnhanced(ctx, enhancedFile, outputPath); err != nil {
		return "", err
	}
	return enhancedFile, nil
}

func (p *Processor) fetchOriginal(ctx context.Context, name, dst string) error {
	src, _, err := p.store.Open(ctx, entity.KindUploads, name)
	if err != nil {
		return fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	f, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, src); err != nil {
		f.Close()
		return fmt.Errorf("stage upload: %w", err)
	}
	return f.Close()
}

func (p *Processor) storeEnhanced(ctx context.Context, name, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("enhanced audio file not generated: %w", err)
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return err
	}
	if err := p.store.Put(ctx, entity.KindProcessed, name, f, st.Size(), storage.ContentTypeFor(name)); err != nil {
		return fmt.Errorf("store enhanced audio: %w", err)
	}
	return nil
}

func (p *Processor) skipIfFinished(log zerolog.Logger, err error) error {
	if errors.Is(err, entity.ErrJobTerminal) {
		log.Info().Msg("job finished elsewhere, skipping")
		return nil
	}
	return err
}
