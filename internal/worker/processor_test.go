package worker_test

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/sudharsanSarathi/AI-voice-enhancer/internal/enhancer"
	"github.com/sudharsanSarathi/AI-voice-enhancer/internal/entity"
	"github.com/sudharsanSarathi/AI-voice-enhancer/internal/repository/memory"
	"github.com/sudharsanSarathi/AI-voice-enhancer/internal/service"
	"github.com/sudharsanSarathi/AI-voice-enhancer/internal/storage"
	"github.com/sudharsanSarathi/AI-voice-enhancer/internal/worker"
)

// ---- fakes ----

type failingEnhancer struct{ err error }

func (e failingEnhancer) OutputExt() string { return "wav" }
func (e failingEnhancer) Enhance(ctx context.Context, req enhancer.Request) error {
	return e.err
}

// blockingEnhancer waits until its context ends.
type blockingEnhancer struct{ started chan struct{} }

func (e blockingEnhancer) OutputExt() string { return "wav" }
func (e blockingEnhancer) Enhance(ctx context.Context, req enhancer.Request) error {
	close(e.started)
	<-ctx.Done()
	return ctx.Err()
}

// recordingRepo wraps the memory repo and remembers every progress value.
type recordingRepo struct {
	*memory.JobRepository
	mu       sync.Mutex
	progress []int
}

func (r *recordingRepo) UpdateProgress(ctx context.Context, id uuid.UUID, status entity.JobStatus, progress int, message string) error {
	r.mu.Lock()
	r.progress = append(r.progress, progress)
	r.mu.Unlock()
	return r.JobRepository.UpdateProgress(ctx, id, status, progress, message)
}

// ---- helpers ----

func setup(t *testing.T) (*recordingRepo, *storage.FileStore, *entity.Job) {
	t.Helper()
	root := t.TempDir()
	store, err := storage.NewFileStore(filepath.Join(root, "uploads"), filepath.Join(root, "processed"))
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	repo := &recordingRepo{JobRepository: memory.NewJobRepository()}

	id := uuid.New()
	job := &entity.Job{
		ID:           id,
		Intensity:    5,
		Tier:         entity.TierMedium,
		Model:        entity.TierMedium.Model().Name,
		Status:       entity.StatusQueued,
		Progress:     10,
		OriginalFile: entity.OriginalFilename(id, "wav"),
	}
	if err := repo.Create(context.Background(), job); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := store.Put(context.Background(), entity.KindUploads, job.OriginalFile, strings.NewReader("noisy"), 5, "audio/wav"); err != nil {
		t.Fatalf("put: %v", err)
	}
	return repo, store, job
}

// ---- tests ----

func TestProcessor_CompletesJob(t *testing.T) {
	ctx := context.Background()
	repo, store, job := setup(t)
	p := worker.NewProcessor(repo, store, enhancer.Passthrough{}, t.TempDir(), zerolog.Nop())

	if err := p.Process(ctx, job.ID.String()); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}

	got, err := repo.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != entity.StatusComplete || got.Progress != 100 {
		t.Fatalf("expected complete/100, got %s/%d", got.Status, got.Progress)
	}
	if got.EnhancedFile != job.ID.String()+"_enhanced.wav" {
		t.Fatalf("unexpected enhanced file %q", got.EnhancedFile)
	}

	f, _, err := store.Open(ctx, entity.KindProcessed, got.EnhancedFile)
	if err != nil {
		t.Fatalf("open enhanced: %v", err)
	}
	defer f.Close()
	body, _ := io.ReadAll(f)
	if string(body) != "noisy" {
		t.Fatalf("expected passthrough body, got %q", body)
	}

	for i := 1; i < len(repo.progress); i++ {
		if repo.progress[i] < repo.progress[i-1] {
			t.Fatalf("progress went backwards: %v", repo.progress)
		}
	}
}

func TestProcessor_EnhancerFailureMarksError(t *testing.T) {
	ctx := context.Background()
	repo, store, job := setup(t)
	p := worker.NewProcessor(repo, store, failingEnhancer{err: errors.New("model exploded")}, t.TempDir(), zerolog.Nop())

	if err := p.Process(ctx, job.ID.String()); err == nil {
		t.Fatalf("expected error")
	}

	got, _ := repo.GetByID(ctx, job.ID)
	if got.Status != entity.StatusError {
		t.Fatalf("expected error status, got %s", got.Status)
	}
	if !strings.Contains(got.Message, "model exploded") {
		t.Fatalf("expected cause in message, got %q", got.Message)
	}
}

func TestProcessor_SkipsFinishedJob(t *testing.T) {
	ctx := context.Background()
	repo, store, job := setup(t)
	if err := repo.SetResultError(ctx, job.ID, service.CancelledMessage); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	p := worker.NewProcessor(repo, store, failingEnhancer{err: errors.New("must not run")}, t.TempDir(), zerolog.Nop())

	if err := p.Process(ctx, job.ID.String()); err != nil {
		t.Fatalf("expected skip without error, got %v", err)
	}
	got, _ := repo.GetByID(ctx, job.ID)
	if got.Message != service.CancelledMessage {
		t.Fatalf("expected message to stay %q, got %q", service.CancelledMessage, got.Message)
	}
}

func TestProcessor_CancelJobStopsEnhancer(t *testing.T) {
	ctx := context.Background()
	repo, store, job := setup(t)
	enh := blockingEnhancer{started: make(chan struct{})}
	p := worker.NewProcessor(repo, store, enh, t.TempDir(), zerolog.Nop())

	done := make(chan error, 1)
	go func() { done <- p.Process(ctx, job.ID.String()) }()

	select {
	case <-enh.started:
	case <-time.After(2 * time.Second):
		t.Fatalf("enhancer never started")
	}

	if err := repo.SetResultError(ctx, job.ID, service.CancelledMessage); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if !p.CancelJob(job.ID) {
		t.Fatalf("expected job to be running")
	}

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected nil after cancel, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("process did not return after cancel")
	}

	got, _ := repo.GetByID(ctx, job.ID)
	if got.Status != entity.StatusError || got.Message != service.CancelledMessage {
		t.Fatalf("expected cancelled error, got %s %q", got.Status, got.Message)
	}
	if p.CancelJob(job.ID) {
		t.Fatalf("job should no longer be tracked")
	}
}
