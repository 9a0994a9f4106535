// Package memory keeps jobs in process memory. Nothing survives a restart.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sudharsanSarathi/AI-voice-enhancer/internal/entity"
	"github.com/sudharsanSarathi/AI-voice-enhancer/internal/repository"
)

type JobRepository struct {
	mu   sync.RWMutex
	jobs map[uuid.UUID]*entity.Job
	now  func() time.Time
}

func NewJobRepository() *JobRepository {
	return &JobRepository{
		jobs: make(map[uuid.UUID]*entity.Job),
		now:  time.Now,
	}
}

func (r *JobRepository) Create(ctx context.Context, job *entity.Job) error {
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	now := r.now().UTC()
	if job.CreatedAt.IsZero() {
		job.CreatedAt = now
	}
	job.UpdatedAt = now

	cp := *job
	r.mu.Lock()
	r.jobs[job.ID] = &cp
	r.mu.Unlock()
	return nil
}

func (r *JobRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	j, ok := r.jobs[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *j
	return &cp, nil
}

func (r *JobRepository) UpdateProgress(ctx context.Context, id uuid.UUID, status entity.JobStatus, progress int, message string) error {
	return r.mutate(id, func(j *entity.Job, now time.Time) error {
		return j.Advance(status, progress, message, now)
	})
}

func (r *JobRepository) SetResultDone(ctx context.Context, id uuid.UUID, enhancedFile, message string) error {
	return r.mutate(id, func(j *entity.Job, now time.Time) error {
		return j.Complete(enhancedFile, message, now)
	})
}

func (r *JobRepository) SetResultError(ctx context.Context, id uuid.UUID, errText string) error {
	return r.mutate(id, func(j *entity.Job, now time.Time) error {
		return j.Fail(errText, now)
	})
}

func (r *JobRepository) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.jobs[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.jobs, id)
	return nil
}

// DeleteFinishedBefore drops terminal jobs last touched before t.
func (r *JobRepository) DeleteFinishedBefore(ctx context.Context, t time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for id, j := range r.jobs {
		if j.Status.IsTerminal() && j.UpdatedAt.Before(t) {
			delete(r.jobs, id)
			n++
		}
	}
	return n, nil
}

func (r *JobRepository) mutate(id uuid.UUID, fn func(*entity.Job, time.Time) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	j, ok := r.jobs[id]
	if !ok {
		return repository.ErrNotFound
	}
	cp := *j
	if err := fn(&cp, r.now().UTC()); err != nil {
		return err
	}
	r.jobs[id] = &cp
	return nil
}
