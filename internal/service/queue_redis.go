package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisKeys names the redis structures of a queue. Each lane gets a pending
// list "<Pending>:<lane>" and a claimed list "<Claimed>:<lane>"; the hash
// "<Claimed>:at" records lane and claim time per id.
type RedisKeys struct {
	Pending string
	Claimed string
}

func (k RedisKeys) pending(p int) string { return k.Pending + ":" + laneNames[p] }
func (k RedisKeys) claimed(p int) string { return k.Claimed + ":" + laneNames[p] }
func (k RedisKeys) claims() string       { return k.Claimed + ":at" }

// redisQueue is an at-least-once queue on redis lists. Ids are pushed on
// the left and claimed from the right with LMOVE into the lane's claimed
// list. A claim older than claimTimeout is considered abandoned.
type redisQueue struct {
	rdb          redis.Cmdable
	keys         RedisKeys
	claimTimeout time.Duration
	slot         time.Duration
	now          func() time.Time
}

// NewRedisQueue builds a queue on rdb. With claimTimeout <= 0 every recorded
// claim is treated as stale by RequeueStale.
func NewRedisQueue(rdb redis.Cmdable, keys RedisKeys, claimTimeout time.Duration) Queue {
	return &redisQueue{
		rdb:          rdb,
		keys:         keys,
		claimTimeout: claimTimeout,
		slot:         time.Second,
		now:          time.Now,
	}
}

func (q *redisQueue) Enqueue(ctx context.Context, jobID string, priority int) error {
	return q.rdb.LPush(ctx, q.keys.pending(clampPriority(priority)), jobID).Err()
}

// ClaimBlocking sweeps the lanes high to low without blocking, then blocks
// on the high lane for one slot before sweeping again. Lower lanes are
// picked up at most one slot late.
func (q *redisQueue) ClaimBlocking(ctx context.Context, timeout time.Duration) (string, error) {
	var deadline time.Time
	if timeout > 0 {
		deadline = q.now().Add(timeout)
	}

	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		for p := PriorityHigh; p >= PriorityLow; p-- {
			id, err := q.rdb.LMove(ctx, q.keys.pending(p), q.keys.claimed(p), "RIGHT", "LEFT").Result()
			if err == nil {
				return id, q.markClaimed(ctx, id, p)
			}
			if !errors.Is(err, redis.Nil) {
				return "", err
			}
		}

		wait := q.slot
		if !deadline.IsZero() {
			remain := deadline.Sub(q.now())
			if remain <= 0 {
				return "", ErrQueueEmpty
			}
			if remain < wait {
				wait = remain
			}
		}

		id, err := q.rdb.BLMove(ctx, q.keys.pending(PriorityHigh), q.keys.claimed(PriorityHigh), "RIGHT", "LEFT", wait).Result()
		if err == nil {
			return id, q.markClaimed(ctx, id, PriorityHigh)
		}
		if !errors.Is(err, redis.Nil) {
			return "", err
		}
	}
}

func (q *redisQueue) markClaimed(ctx context.Context, id string, lane int) error {
	if err := q.rdb.HSet(ctx, q.keys.claims(), id, formatClaim(lane, q.now())).Err(); err != nil {
		return fmt.Errorf("record claim %s: %w", id, err)
	}
	return nil
}

func (q *redisQueue) Ack(ctx context.Context, jobID string) error {
	v, err := q.rdb.HGet(ctx, q.keys.claims(), jobID).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return err
	}

	_, err = q.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if lane, _, ok := parseClaim(v); ok {
			pipe.LRem(ctx, q.keys.claimed(lane), 1, jobID)
		} else {
			// claim record lost: the id can only be in one of the lists
			for p := range laneNames {
				pipe.LRem(ctx, q.keys.claimed(p), 1, jobID)
			}
		}
		pipe.HDel(ctx, q.keys.claims(), jobID)
		return nil
	})
	return err
}

// RequeueStale inspects up to maxPerLane of the oldest claims per lane and
// moves the abandoned ones to the front of their pending list. An id without
// a claim record is stamped with the current time instead of being moved.
func (q *redisQueue) RequeueStale(ctx context.Context, maxPerLane int64) (int64, error) {
	if maxPerLane <= 0 {
		return 0, nil
	}
	var moved int64
	now := q.now()

	for p := PriorityHigh; p >= PriorityLow; p-- {
		ids, err := q.rdb.LRange(ctx, q.keys.claimed(p), -maxPerLane, -1).Result()
		if err != nil {
			return moved, err
		}
		for _, id := range ids {
			v, err := q.rdb.HGet(ctx, q.keys.claims(), id).Result()
			if err != nil && !errors.Is(err, redis.Nil) {
				return moved, err
			}
			_, at, ok := parseClaim(v)
			if !ok {
				// the claimer may not have recorded the claim yet: stamp it
				// now and judge it on a later pass
				if v == "" {
					err = q.rdb.HSetNX(ctx, q.keys.claims(), id, formatClaim(p, now)).Err()
				} else {
					err = q.rdb.HSet(ctx, q.keys.claims(), id, formatClaim(p, now)).Err()
				}
				if err != nil {
					return moved, err
				}
				continue
			}
			if q.claimTimeout > 0 && now.Sub(at) < q.claimTimeout {
				continue
			}

			_, err = q.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.LRem(ctx, q.keys.claimed(p), 1, id)
				pipe.RPush(ctx, q.keys.pending(p), id)
				pipe.HDel(ctx, q.keys.claims(), id)
				return nil
			})
			if err != nil {
				return moved, err
			}
			moved++
		}
	}
	return moved, nil
}

func formatClaim(lane int, at time.Time) string {
	return strconv.Itoa(lane) + ":" + strconv.FormatInt(at.UnixMilli(), 10)
}

func parseClaim(v string) (lane int, at time.Time, ok bool) {
	l, ms, found := strings.Cut(v, ":")
	if !found {
		return 0, time.Time{}, false
	}
	lane, err := strconv.Atoi(l)
	if err != nil || lane != clampPriority(lane) {
		return 0, time.Time{}, false
	}
	n, err := strconv.ParseInt(ms, 10, 64)
	if err != nil {
		return 0, time.Time{}, false
	}
	return lane, time.UnixMilli(n), true
}
