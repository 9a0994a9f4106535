package postgresql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sudharsanSarathi/AI-voice-enhancer/internal/entity"
	"github.com/sudharsanSarathi/AI-voice-enhancer/internal/repository"
)

const createJobsTable = `
CREATE TABLE IF NOT EXISTS enhance_jobs (
	id            UUID PRIMARY KEY,
	intensity     SMALLINT    NOT NULL,
	tier          TEXT        NOT NULL,
	model         TEXT        NOT NULL,
	status        TEXT        NOT NULL,
	progress      SMALLINT    NOT NULL DEFAULT 0,
	message       TEXT        NOT NULL DEFAULT '',
	original_name TEXT        NOT NULL,
	original_file TEXT        NOT NULL,
	enhanced_file TEXT        NOT NULL DEFAULT '',
	size_bytes    BIGINT      NOT NULL,
	error         TEXT,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);`

func NewPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

type JobRepository struct {
	pool *pgxpool.Pool
}

func NewJobRepository(pool *pgxpool.Pool) *JobRepository {
	return &JobRepository{pool: pool}
}

// EnsureSchema creates the jobs table when it does not exist yet.
func (r *JobRepository) EnsureSchema(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, createJobsTable)
	return err
}

func (r *JobRepository) Create(ctx context.Context, job *entity.Job) error {
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}

	const q = `
INSERT INTO enhance_jobs (id, intensity, tier, model, status, progress, message, original_name, original_file, size_bytes)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
RETURNING created_at, updated_at;
`
	return r.pool.QueryRow(ctx, q,
		job.ID, job.Intensity, string(job.Tier), job.Model, string(job.Status),
		job.Progress, job.Message, job.OriginalName, job.OriginalFile, job.Size,
	).Scan(&job.CreatedAt, &job.UpdatedAt)
}

func (r *JobRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Job, error) {
	const q = `
SELECT id, intensity, tier, model, status, progress, message, original_name, original_file,
       enhanced_file, size_bytes, error, created_at, updated_at
FROM enhance_jobs
WHERE id = $1;
`
	var (
		job        entity.Job
		tierText   string
		statusText string
		errText    *string
		createdAt  time.Time
		updatedAt  time.Time
	)

	if err := r.pool.QueryRow(ctx, q, id).Scan(
		&job.ID,
		&job.Intensity,
		&tierText,
		&job.Model,
		&statusText,
		&job.Progress,
		&job.Message,
		&job.OriginalName,
		&job.OriginalFile,
		&job.EnhancedFile,
		&job.Size,
		&errText, // NULL => nil
		&createdAt,
		&updatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	job.Tier = entity.Tier(tierText)
	job.Status = entity.JobStatus(statusText)
	if !job.Status.Valid() {
		return nil, fmt.Errorf("job %s: unknown status %q", id, statusText)
	}
	job.Error = errText
	job.CreatedAt = createdAt
	job.UpdatedAt = updatedAt

	return &job, nil
}

// UpdateProgress keeps progress non-decreasing and never touches a finished job.
func (r *JobRepository) UpdateProgress(ctx context.Context, id uuid.UUID, status entity.JobStatus, progress int, message string) error {
	const q = `
UPDATE enhance_jobs
SET status=$2, progress=GREATEST(progress, LEAST(GREATEST($3::int, 0), 100)), message=$4, updated_at=now()
WHERE id=$1 AND status NOT IN ('complete', 'error');
`
	tag, err := r.pool.Exec(ctx, q, id, string(status), progress, message)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return r.missReason(ctx, id)
	}
	return nil
}

func (r *JobRepository) SetResultDone(ctx context.Context, id uuid.UUID, enhancedFile, message string) error {
	const q = `
UPDATE enhance_jobs
SET status='complete', progress=100, enhanced_file=$2, message=$3, error=NULL, updated_at=now()
WHERE id=$1 AND status NOT IN ('complete', 'error');
`
	tag, err := r.pool.Exec(ctx, q, id, enhancedFile, message)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return r.missReason(ctx, id)
	}
	return nil
}

func (r *JobRepository) SetResultError(ctx context.Context, id uuid.UUID, errText string) error {
	const q = `
UPDATE enhance_jobs
SET status='error', error=$2, message=$2, updated_at=now()
WHERE id=$1 AND status NOT IN ('complete', 'error');
`
	tag, err := r.pool.Exec(ctx, q, id, errText)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return r.missReason(ctx, id)
	}
	return nil
}

func (r *JobRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM enhance_jobs WHERE id=$1;`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *JobRepository) DeleteFinishedBefore(ctx context.Context, t time.Time) (int64, error) {
	const q = `DELETE FROM enhance_jobs WHERE status IN ('complete', 'error') AND updated_at < $1;`
	tag, err := r.pool.Exec(ctx, q, t)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// missReason explains an UPDATE that matched nothing.
func (r *JobRepository) missReason(ctx context.Context, id uuid.UUID) error {
	var status string
	err := r.pool.QueryRow(ctx, `SELECT status FROM enhance_jobs WHERE id=$1;`, id).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return repository.ErrNotFound
		}
		return err
	}
	if entity.JobStatus(status).IsTerminal() {
		return entity.ErrJobTerminal
	}
	return fmt.Errorf("job %s: update matched no rows (status=%s)", id, status)
}
