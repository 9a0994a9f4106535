package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// amqpQueue uses a RabbitMQ priority queue. Unacked deliveries are returned
// by the broker when the channel closes, so RequeueStale has nothing to do.
type amqpQueue struct {
	ch    *amqp.Channel
	queue string

	once       sync.Once
	consumeErr error
	deliveries <-chan amqp.Delivery

	mu       sync.Mutex
	inflight map[string]amqp.Delivery
}

func NewAMQPQueue(conn *amqp.Connection, queue string, prefetch int) (Queue, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to open a channel: %w", err)
	}
	if prefetch <= 0 {
		prefetch = 1
	}
	if err := ch.Qos(prefetch, 0, false); err != nil {
		return nil, fmt.Errorf("failed to set qos: %w", err)
	}
	_, err = ch.QueueDeclare(
		queue, // name
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		amqp.Table{"x-max-priority": int32(2)},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to declare queue %q: %w", queue, err)
	}
	return &amqpQueue{
		ch:       ch,
		queue:    queue,
		inflight: make(map[string]amqp.Delivery),
	}, nil
}

func (q *amqpQueue) Enqueue(ctx context.Context, jobID string, priority int) error {
	return q.ch.PublishWithContext(ctx, "", q.queue, false, false, amqp.Publishing{
		ContentType:  "text/plain",
		DeliveryMode: amqp.Persistent,
		Priority:     uint8(clampPriority(priority)),
		MessageId:    jobID,
		Body:         []byte(jobID),
	})
}

func (q *amqpQueue) consume() error {
	q.once.Do(func() {
		q.deliveries, q.consumeErr = q.ch.Consume(
			q.queue, // queue
			"",      // consumer
			false,   // auto-ack
			false,   // exclusive
			false,   // no-local
			false,   // no-wait
			nil,     // args
		)
	})
	return q.consumeErr
}

func (q *amqpQueue) ClaimBlocking(ctx context.Context, timeout time.Duration) (string, error) {
	if err := q.consume(); err != nil {
		return "", fmt.Errorf("failed to register a consumer: %w", err)
	}

	var expired <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		expired = t.C
	}

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-expired:
		return "", ErrQueueEmpty
	case d, ok := <-q.deliveries:
		if !ok {
			return "", fmt.Errorf("amqp: delivery channel closed")
		}
		id := d.MessageId
		if id == "" {
			id = string(d.Body)
		}
		q.mu.Lock()
		q.inflight[id] = d
		q.mu.Unlock()
		return id, nil
	}
}

func (q *amqpQueue) Ack(ctx context.Context, jobID string) error {
	q.mu.Lock()
	d, ok := q.inflight[jobID]
	delete(q.inflight, jobID)
	q.mu.Unlock()
	if !ok {
		return nil
	}
	return d.Ack(false)
}

func (q *amqpQueue) RequeueStale(ctx context.Context, maxPerLane int64) (int64, error) {
	return 0, nil
}
