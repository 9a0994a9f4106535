package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestRedisKeys_PerLane(t *testing.T) {
	k := RedisKeys{Pending: "enhance:queue", Claimed: "enhance:processing"}

	if got := k.pending(PriorityHigh); got != "enhance:queue:high" {
		t.Fatalf("pending high = %q", got)
	}
	if got := k.claimed(PriorityLow); got != "enhance:processing:low" {
		t.Fatalf("claimed low = %q", got)
	}
	if got := k.claims(); got != "enhance:processing:at" {
		t.Fatalf("claims = %q", got)
	}
}

func TestClaimRecord(t *testing.T) {
	at := time.UnixMilli(1_700_000_000_123)

	lane, got, ok := parseClaim(formatClaim(PriorityNormal, at))
	if !ok || lane != PriorityNormal || !got.Equal(at) {
		t.Fatalf("parseClaim = %d, %v, %v", lane, got, ok)
	}

	for _, bad := range []string{"", "1", "x:5", "7:100", "1:abc"} {
		if _, _, ok := parseClaim(bad); ok {
			t.Errorf("parseClaim(%q) should fail", bad)
		}
	}
}

func TestClampPriority(t *testing.T) {
	cases := map[int]int{-3: PriorityLow, 0: PriorityLow, 1: PriorityNormal, 2: PriorityHigh, 9: PriorityHigh}
	for in, want := range cases {
		if got := clampPriority(in); got != want {
			t.Errorf("clampPriority(%d) = %d, want %d", in, got, want)
		}
	}
}

type testClock struct {
	mu sync.Mutex
	at time.Time
}

func (c *testClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.at
}

func (c *testClock) advance(d time.Duration) {
	c.mu.Lock()
	c.at = c.at.Add(d)
	c.mu.Unlock()
}

var testKeys = RedisKeys{Pending: "enhance:queue", Claimed: "enhance:processing"}

func newTestRedisQueue(t *testing.T) (*redisQueue, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	q := NewRedisQueue(rdb, testKeys, 15*time.Minute).(*redisQueue)
	q.slot = 10 * time.Millisecond
	return q, rdb
}

// withClock freezes q's time; claims then need no timeout to return.
func withClock(q *redisQueue) *testClock {
	c := &testClock{at: time.Unix(1_700_000_000, 0)}
	q.now = c.now
	return c
}

func claim(t *testing.T, q *redisQueue) string {
	t.Helper()
	id, err := q.ClaimBlocking(context.Background(), time.Second)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	return id
}

func listed(t *testing.T, rdb *redis.Client, key string) []string {
	t.Helper()
	ids, err := rdb.LRange(context.Background(), key, 0, -1).Result()
	if err != nil {
		t.Fatalf("lrange %s: %v", key, err)
	}
	return ids
}

func TestRedisQueue_ClaimsByPriorityThenFIFO(t *testing.T) {
	ctx := context.Background()
	q, rdb := newTestRedisQueue(t)

	for _, e := range []struct {
		id string
		p  int
	}{{"strong-1", PriorityLow}, {"medium-1", PriorityNormal}, {"light-1", PriorityHigh}, {"light-2", PriorityHigh}} {
		if err := q.Enqueue(ctx, e.id, e.p); err != nil {
			t.Fatalf("enqueue %s: %v", e.id, err)
		}
	}

	want := []string{"light-1", "light-2", "medium-1", "strong-1"}
	for _, w := range want {
		if got := claim(t, q); got != w {
			t.Fatalf("claimed %q, want %q", got, w)
		}
	}

	if got := listed(t, rdb, testKeys.claimed(PriorityHigh)); len(got) != 2 {
		t.Fatalf("high claimed list = %v", got)
	}
	n, err := rdb.HLen(ctx, testKeys.claims()).Result()
	if err != nil || n != 4 {
		t.Fatalf("claim records = %d, %v", n, err)
	}

	if _, err := q.ClaimBlocking(ctx, 30*time.Millisecond); !errors.Is(err, ErrQueueEmpty) {
		t.Fatalf("expected ErrQueueEmpty, got %v", err)
	}
}

func TestRedisQueue_ClaimHonoursContext(t *testing.T) {
	q, _ := newTestRedisQueue(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := q.ClaimBlocking(ctx, 0); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestRedisQueue_AckRemovesClaim(t *testing.T) {
	ctx := context.Background()
	q, rdb := newTestRedisQueue(t)

	_ = q.Enqueue(ctx, "job-1", PriorityNormal)
	id := claim(t, q)
	if err := q.Ack(ctx, id); err != nil {
		t.Fatalf("ack: %v", err)
	}

	if got := listed(t, rdb, testKeys.claimed(PriorityNormal)); len(got) != 0 {
		t.Fatalf("claimed list after ack = %v", got)
	}
	if ok, _ := rdb.HExists(ctx, testKeys.claims(), id).Result(); ok {
		t.Fatal("claim record left after ack")
	}
}

func TestRedisQueue_AckWithoutClaimRecord(t *testing.T) {
	ctx := context.Background()
	q, rdb := newTestRedisQueue(t)

	_ = q.Enqueue(ctx, "job-1", PriorityLow)
	id := claim(t, q)
	rdb.HDel(ctx, testKeys.claims(), id)

	if err := q.Ack(ctx, id); err != nil {
		t.Fatalf("ack: %v", err)
	}
	if got := listed(t, rdb, testKeys.claimed(PriorityLow)); len(got) != 0 {
		t.Fatalf("claimed list after ack = %v", got)
	}
}

func TestRedisQueue_RequeueStaleWaitsForTimeout(t *testing.T) {
	ctx := context.Background()
	q, rdb := newTestRedisQueue(t)
	clock := withClock(q)

	_ = q.Enqueue(ctx, "job-1", PriorityHigh)
	_ = q.Enqueue(ctx, "job-2", PriorityHigh)
	first := claim(t, q)
	clock.advance(10 * time.Minute)
	claim(t, q)

	clock.advance(6 * time.Minute)
	moved, err := q.RequeueStale(ctx, 100)
	if err != nil {
		t.Fatalf("requeue: %v", err)
	}
	if moved != 1 {
		t.Fatalf("moved = %d, want only the claim past the timeout", moved)
	}
	if got := listed(t, rdb, testKeys.pending(PriorityHigh)); len(got) != 1 || got[0] != first {
		t.Fatalf("pending = %v, want [%s]", got, first)
	}
	if got := claim(t, q); got != first {
		t.Fatalf("reclaimed %q, want %q", got, first)
	}
}

func TestRedisQueue_RequeueStaleSparesUnrecordedClaim(t *testing.T) {
	ctx := context.Background()
	q, rdb := newTestRedisQueue(t)
	clock := withClock(q)

	// a worker moved the id but has not written its claim record yet
	_ = q.Enqueue(ctx, "job-1", PriorityNormal)
	if err := rdb.LMove(ctx, testKeys.pending(PriorityNormal), testKeys.claimed(PriorityNormal), "RIGHT", "LEFT").Err(); err != nil {
		t.Fatalf("lmove: %v", err)
	}

	moved, err := q.RequeueStale(ctx, 100)
	if err != nil {
		t.Fatalf("requeue: %v", err)
	}
	if moved != 0 {
		t.Fatalf("moved = %d, a fresh claim must stay with its worker", moved)
	}
	if got := listed(t, rdb, testKeys.pending(PriorityNormal)); len(got) != 0 {
		t.Fatalf("pending = %v", got)
	}
	if ok, _ := rdb.HExists(ctx, testKeys.claims(), "job-1").Result(); !ok {
		t.Fatal("expected a first-seen stamp")
	}

	clock.advance(16 * time.Minute)
	moved, err = q.RequeueStale(ctx, 100)
	if err != nil {
		t.Fatalf("requeue: %v", err)
	}
	if moved != 1 {
		t.Fatalf("moved = %d after the timeout, want 1", moved)
	}
}

func TestRedisQueue_RequeueStaleRestampsBrokenRecord(t *testing.T) {
	ctx := context.Background()
	q, rdb := newTestRedisQueue(t)
	clock := withClock(q)

	_ = q.Enqueue(ctx, "job-1", PriorityLow)
	id := claim(t, q)
	rdb.HSet(ctx, testKeys.claims(), id, "garbage")

	if moved, err := q.RequeueStale(ctx, 100); err != nil || moved != 0 {
		t.Fatalf("first pass moved=%d err=%v", moved, err)
	}
	v, _ := rdb.HGet(ctx, testKeys.claims(), id).Result()
	if _, _, ok := parseClaim(v); !ok {
		t.Fatalf("record not restamped: %q", v)
	}

	clock.advance(16 * time.Minute)
	if moved, err := q.RequeueStale(ctx, 100); err != nil || moved != 1 {
		t.Fatalf("second pass moved=%d err=%v", moved, err)
	}
}
