package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"

	"github.com/sudharsanSarathi/AI-voice-enhancer/internal/entity"
	"github.com/sudharsanSarathi/AI-voice-enhancer/internal/repository"
	"github.com/sudharsanSarathi/AI-voice-enhancer/internal/storage"
	"github.com/sudharsanSarathi/AI-voice-enhancer/internal/upload"
)

var (
	ErrJobNotComplete = errors.New("job not complete")
	ErrUploadFailed   = errors.New("failed to store upload")
	ErrEnqueueFailed  = errors.New("failed to queue job")
)

// CancelledMessage is recorded on jobs stopped by the client.
const CancelledMessage = "cancelled"

// JobRepository is the job store port (memory.JobRepository, postgresql.JobRepository).
type JobRepository interface {
	Create(ctx context.Context, job *entity.Job) error
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Job, error)
	UpdateProgress(ctx context.Context, id uuid.UUID, status entity.JobStatus, progress int, message string) error
	SetResultDone(ctx context.Context, id uuid.UUID, enhancedFile, message string) error
	SetResultError(ctx context.Context, id uuid.UUID, errText string) error
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteFinishedBefore(ctx context.Context, t time.Time) (int64, error)
}

// Small queue port, only for adding jobs.
type JobQueue interface {
	Enqueue(ctx context.Context, jobID string, priority int) error
}

// Canceller stops an in-flight enhancement; worker.Processor implements it.
type Canceller interface {
	CancelJob(id uuid.UUID) bool
}

type Options struct {
	MaxUploadBytes int64
	JobRetention   time.Duration
	ArtifactTTL    time.Duration
	Logger         zerolog.Logger
}

type JobService struct {
	repo      JobRepository
	queue     JobQueue
	store     storage.Store
	canceller Canceller
	opts      Options
	now       func() time.Time
}

func NewJobService(repo JobRepository, queue JobQueue, store storage.Store, opts Options) *JobService {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = upload.MaxSize
	}
	return &JobService{repo: repo, queue: queue, store: store, opts: opts, now: time.Now}
}

// SetCanceller wires in-process cancellation of running jobs.
func (s *JobService) SetCanceller(c Canceller) {
	s.canceller = c
}

func (s *JobService) MaxUploadBytes() int64 {
	return s.opts.MaxUploadBytes
}

type CreateJobRequest struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
	Intensity   int
}

type CreateJobResult struct {
	Job           *entity.Job
	EstimatedTime time.Duration
}

func (s *JobService) CreateJob(ctx context.Context, req CreateJobRequest) (*CreateJobResult, error) {
	if err := upload.Validate(upload.File{Name: req.Filename, ContentType: req.ContentType, Size: req.Size}, s.opts.MaxUploadBytes); err != nil {
		return nil, err
	}
	if req.Body == nil {
		return nil, &upload.ValidationError{Reason: upload.ReasonMissing, Message: "No audio file provided"}
	}

	intensity := entity.ClampIntensity(req.Intensity)
	tier := entity.TierForIntensity(intensity)
	model := tier.Model()
	id := uuid.New()

	job := &entity.Job{
		ID:           id,
		Intensity:    intensity,
		Tier:         tier,
		Model:        model.Name,
		Status:       entity.StatusUploading,
		Message:      "Uploading audio",
		OriginalName: req.Filename,
		OriginalFile: entity.OriginalFilename(id, upload.Extension(req.Filename)),
		Size:         req.Size,
	}
	if err := s.repo.Create(ctx, job); err != nil {
		return nil, err
	}

	log := s.opts.Logger.With().Str("job_id", id.String()).Str("tier", string(tier)).Logger()

	if err := s.store.Put(ctx, entity.KindUploads, job.OriginalFile, req.Body, req.Size, req.ContentType); err != nil {
		s.failQuietly(ctx, id, "Upload failed")
		return nil, fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}
	log.Info().Str("file", job.OriginalFile).Int64("bytes", req.Size).Msg("upload stored")

	if err := s.repo.UpdateProgress(ctx, id, entity.StatusQueued, 10, "Waiting for a worker"); err != nil {
		s.failQuietly(ctx, id, "Could not queue job")
		s.discardUpload(ctx, job.OriginalFile, log)
		return nil, err
	}
	if err := s.queue.Enqueue(ctx, id.String(), tier.Priority()); err != nil {
		s.failQuietly(ctx, id, "Could not queue job")
		s.discardUpload(ctx, job.OriginalFile, log)
		return nil, fmt.Errorf("%w: %v", ErrEnqueueFailed, err)
	}

	stored, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	log.Info().Int("intensity", intensity).Str("model", model.Name).Msg("job queued")

	return &CreateJobResult{Job: stored, EstimatedTime: EstimateDuration(tier, req.Size)}, nil
}

func (s *JobService) GetJob(ctx context.Context, id uuid.UUID) (*entity.Job, error) {
	return s.repo.GetByID(ctx, id)
}

// GetResult returns a completed job and discards its record; the artifacts
// stay available until they are swept.
func (s *JobService) GetResult(ctx context.Context, id uuid.UUID) (*entity.Job, error) {
	j, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if j.Status != entity.StatusComplete {
		return j, ErrJobNotComplete
	}
	if err := s.repo.Delete(ctx, id); err != nil && !errors.Is(err, repository.ErrNotFound) {
		s.opts.Logger.Warn().Err(err).Str("job_id", id.String()).Msg("discard fetched job")
	}
	return j, nil
}

// Cancel marks an unfinished job as errored and stops it if it runs here.
func (s *JobService) Cancel(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.SetResultError(ctx, id, CancelledMessage); err != nil {
		return err
	}
	running := false
	if s.canceller != nil {
		running = s.canceller.CancelJob(id)
	}
	s.opts.Logger.Info().Str("job_id", id.String()).Bool("running", running).Msg("job cancelled")
	return nil
}

type SweepResult struct {
	Jobs      int64
	Artifacts int
}

// Sweep drops finished jobs older than the retention and artifacts older
// than the artifact TTL. A zero duration disables that half.
func (s *JobService) Sweep(ctx context.Context) (SweepResult, error) {
	var (
		res    SweepResult
		result *multierror.Error
	)
	now := s.now()

	if s.opts.JobRetention > 0 {
		n, err := s.repo.DeleteFinishedBefore(ctx, now.Add(-s.opts.JobRetention))
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("sweep jobs: %w", err))
		}
		res.Jobs = n
	}
	if s.opts.ArtifactTTL > 0 {
		for _, kind := range []entity.ArtifactKind{entity.KindUploads, entity.KindProcessed} {
			n, err := s.store.Sweep(ctx, kind, now.Add(-s.opts.ArtifactTTL))
			if err != nil {
				result = multierror.Append(result, fmt.Errorf("sweep %s: %w", kind, err))
			}
			res.Artifacts += n
		}
	}
	return res, result.ErrorOrNil()
}

func (s *JobService) discardUpload(ctx context.Context, name string, log zerolog.Logger) {
	if err := s.store.Delete(ctx, entity.KindUploads, name); err != nil {
		log.Warn().Err(err).Str("file", name).Msg("discard upload")
	}
}

func (s *JobService) failQuietly(ctx context.Context, id uuid.UUID, msg string) {
	if err := s.repo.SetResultError(ctx, id, msg); err != nil {
		s.opts.Logger.Error().Err(err).Str("job_id", id.String()).Msg("mark job failed")
	}
}

var tierEstimates = map[entity.Tier]struct{ base, perMiB float64 }{
	entity.TierLight:  {base: 5, perMiB: 1},
	entity.TierMedium: {base: 15, perMiB: 3},
	entity.TierStrong: {base: 30, perMiB: 5},
}

// EstimateDuration is a rough processing time for a file of size bytes.
func EstimateDuration(tier entity.Tier, size int64) time.Duration {
	e, ok := tierEstimates[tier]
	if !ok {
		e = tierEstimates[entity.TierMedium]
	}
	mib := float64(size) / float64(1<<20)
	secs := math.Ceil(e.base + e.perMiB*mib)
	return time.Duration(secs) * time.Second
}
