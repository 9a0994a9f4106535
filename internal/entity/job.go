package entity

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

type JobStatus string

const (
	StatusQueued     JobStatus = "queued"
	StatusUploading  JobStatus = "uploading"
	StatusProcessing JobStatus = "processing"
	StatusComplete   JobStatus = "complete"
	StatusError      JobStatus = "error"
)

// IsTerminal reports whether no further mutation is allowed.
func (s JobStatus) IsTerminal() bool {
	return s == StatusComplete || s == StatusError
}

func (s JobStatus) Valid() bool {
	switch s {
	case StatusQueued, StatusUploading, StatusProcessing, StatusComplete, StatusError:
		return true
	}
	return false
}

var ErrJobTerminal = errors.New("job already finished")

type Job struct {
	ID           uuid.UUID `json:"id"`
	Intensity    int       `json:"intensity"`
	Tier         Tier      `json:"tier"`
	Model        string    `json:"model"`
	Status       JobStatus `json:"status"`
	Progress     int       `json:"progress"`
	Message      string    `json:"message"`
	OriginalName string    `json:"original_name"`
	OriginalFile string    `json:"original_file"`
	EnhancedFile string    `json:"enhanced_file,omitempty"`
	Size         int64     `json:"size"`
	Error        *string   `json:"error,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Advance moves the job to status with the given progress and message.
// Progress never goes backwards: a lower value keeps the current one.
func (j *Job) Advance(status JobStatus, progress int, message string, now time.Time) error {
	if j.Status.IsTerminal() {
		return ErrJobTerminal
	}
	progress = clampProgress(progress)
	if status == StatusComplete {
		progress = 100
	}
	if progress < j.Progress {
		progress = j.Progress
	}
	j.Status = status
	j.Progress = progress
	j.Message = message
	j.UpdatedAt = now
	return nil
}

// Complete marks the job done and records the enhanced artifact.
func (j *Job) Complete(enhancedFile, message string, now time.Time) error {
	if err := j.Advance(StatusComplete, 100, message, now); err != nil {
		return err
	}
	j.EnhancedFile = enhancedFile
	j.Error = nil
	return nil
}

// Fail marks the job as errored. Progress is left where it stopped.
func (j *Job) Fail(errText string, now time.Time) error {
	if err := j.Advance(StatusError, j.Progress, errText, now); err != nil {
		return err
	}
	j.Error = &errText
	return nil
}

func clampProgress(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
