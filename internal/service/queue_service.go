package service

import (
	"context"
	"errors"
	"time"
)

// ErrQueueEmpty is returned by ClaimBlocking when nothing arrived in time.
var ErrQueueEmpty = errors.New("queue: nothing to claim")

// Queue hands job ids to workers. A claimed id stays owned by its worker
// until Ack; RequeueStale returns abandoned claims to their lane.
type Queue interface {
	Enqueue(ctx context.Context, jobID string, priority int) error
	ClaimBlocking(ctx context.Context, timeout time.Duration) (string, error)
	Ack(ctx context.Context, jobID string) error
	RequeueStale(ctx context.Context, maxPerLane int64) (int64, error)
}

// Lane priorities. entity.Tier.Priority picks one per job.
const (
	PriorityLow    = 0
	PriorityNormal = 1
	PriorityHigh   = 2
)

var laneNames = [...]string{PriorityLow: "low", PriorityNormal: "normal", PriorityHigh: "high"}

func clampPriority(p int) int {
	if p < PriorityLow {
		return PriorityLow
	}
	if p > PriorityHigh {
		return PriorityHigh
	}
	return p
}
