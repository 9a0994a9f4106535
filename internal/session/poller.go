package session

import (
	"context"
	"time"

	"github.com/sudharsanSarathi/AI-voice-enhancer/internal/client"
	"github.com/sudharsanSarathi/AI-voice-enhancer/internal/entity"
)

const (
	DefaultInterval    = time.Second
	DefaultMaxFailures = 10
)

// GenericFailure is shown when polling gives up on an unreachable job.
const GenericFailure = "Processing failed. Please try again."

type Outcome string

const (
	OutcomeComplete  Outcome = "complete"
	OutcomeError     Outcome = "error"
	OutcomeAbandoned Outcome = "abandoned"
	OutcomeCancelled Outcome = "cancelled"
)

// StatusFunc fetches the current status of a job.
type StatusFunc func(ctx context.Context, fileID string) (*client.Status, error)

// Update is a successful poll.
type Update struct {
	Status  client.Status
	Elapsed time.Duration
}

type PollResult struct {
	Outcome Outcome
	Message string
	Last    client.Status
	Polls   int
}

// Poller asks for a job's status once per Interval until the job reaches a
// terminal stage, the context ends, or MaxFailures consecutive polls fail.
// A successful poll resets the failure count.
type Poller struct {
	Interval    time.Duration
	MaxFailures int
}

func (p Poller) withDefaults() Poller {
	if p.Interval <= 0 {
		p.Interval = DefaultInterval
	}
	if p.MaxFailures <= 0 {
		p.MaxFailures = DefaultMaxFailures
	}
	return p
}

func (p Poller) Run(ctx context.Context, fileID string, status StatusFunc, onUpdate func(Update)) PollResult {
	p = p.withDefaults()
	start := time.Now()
	ticker := time.NewTicker(p.Interval)
	defer ticker.Stop()

	var (
		res      PollResult
		failures int
	)
	for {
		select {
		case <-ctx.Done():
			res.Outcome = OutcomeCancelled
			return res
		case <-ticker.C:
		}

		st, err := status(ctx, fileID)
		res.Polls++
		if ctx.Err() != nil {
			res.Outcome = OutcomeCancelled
			return res
		}
		if err != nil {
			failures++
			if failures >= p.MaxFailures {
				res.Outcome = OutcomeAbandoned
				res.Message = GenericFailure
				return res
			}
			continue
		}
		failures = 0
		res.Last = *st

		if onUpdate != nil {
			onUpdate(Update{Status: *st, Elapsed: time.Since(start)})
		}

		switch entity.JobStatus(st.Stage) {
		case entity.StatusComplete:
			res.Outcome = OutcomeComplete
			res.Message = st.Message
			return res
		case entity.StatusError:
			res.Outcome = OutcomeError
			res.Message = st.Message
			if res.Message == "" {
				res.Message = GenericFailure
			}
			return res
		}
	}
}
