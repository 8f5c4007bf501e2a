// Package memory provides a channel-backed queue for tests and
// single-process deployments. It keeps the manual-ack contract but
// offers no durability across restarts.
package memory

import (
	"context"
	"sync"

	"github.com/paceml-cloud/paceml/internal/queue"
)

type Queue struct {
	ch    chan *queue.Delivery
	mu    sync.Mutex
	acked []*queue.Message
}

func New(size int) *Queue {
	if size < 1 {
		size = 64
	}
	return &Queue{ch: make(chan *queue.Delivery, size)}
}

func (q *Queue) Publish(ctx context.Context, msg *queue.Message) error {
	payload, err := msg.Marshal()
	if err != nil {
		return err
	}

	select {
	case q.ch <- &queue.Delivery{Message: msg, Payload: payload}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *Queue) Receive(ctx context.Context) (*queue.Delivery, error) {
	select {
	case d := <-q.ch:
		return d, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (q *Queue) Ack(_ context.Context, d *queue.Delivery) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.acked = append(q.acked, d.Message)
	return nil
}

// Acked returns the messages acknowledged so far, for assertions.
func (q *Queue) Acked() []*queue.Message {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]*queue.Message, len(q.acked))
	copy(out, q.acked)
	return out
}

// Depth returns the number of undelivered messages.
func (q *Queue) Depth() int {
	return len(q.ch)
}
