package service

import (
	"context"
	"sync"
	"time"
)

// memoryQueue is an in-process priority queue for single-binary deployments.
// Claimed ids are held until Ack; RequeueStale puts them back.
type memoryQueue struct {
	mu         sync.Mutex
	lanes      [3][]string
	processing map[string]int
	notify     chan struct{}
}

func NewMemoryQueue() Queue {
	return &memoryQueue{
		processing: make(map[string]int),
		notify:     make(chan struct{}, 1),
	}
}

func (q *memoryQueue) Enqueue(ctx context.Context, jobID string, priority int) error {
	p := clampPriority(priority)
	q.mu.Lock()
	q.lanes[p] = append(q.lanes[p], jobID)
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
	return nil
}

func (q *memoryQueue) tryClaim() (string, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for p := PriorityHigh; p >= PriorityLow; p-- {
		if len(q.lanes[p]) == 0 {
			continue
		}
		id := q.lanes[p][0]
		q.lanes[p] = q.lanes[p][1:]
		q.processing[id] = p
		return id, true
	}
	return "", false
}

func (q *memoryQueue) ClaimBlocking(ctx context.Context, timeout time.Duration) (string, error) {
	var expired <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		expired = t.C
	}

	for {
		if id, ok := q.tryClaim(); ok {
			// more may be waiting for other claimers
			q.wake()
			return id, nil
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-expired:
			return "", ErrQueueEmpty
		case <-q.notify:
		}
	}
}

func (q *memoryQueue) wake() {
	q.mu.Lock()
	pending := len(q.lanes[0]) + len(q.lanes[1]) + len(q.lanes[2])
	q.mu.Unlock()
	if pending == 0 {
		return
	}
	select {
	case q.notify <- struct{}{}:
	default:
	}
}

func (q *memoryQueue) Ack(ctx context.Context, jobID string) error {
	q.mu.Lock()
	delete(q.processing, jobID)
	q.mu.Unlock()
	return nil
}

func (q *memoryQueue) RequeueStale(ctx context.Context, maxPerLane int64) (int64, error) {
	q.mu.Lock()
	var (
		moved   int64
		perLane [3]int64
	)
	for id, p := range q.processing {
		if perLane[p] >= maxPerLane {
			continue
		}
		perLane[p]++
		q.lanes[p] = append(q.lanes[p], id)
		delete(q.processing, id)
		moved++
	}
	q.mu.Unlock()

	if moved > 0 {
		q.wake()
	}
	return moved, nil
}
