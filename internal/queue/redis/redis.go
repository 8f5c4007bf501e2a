// Package redis implements the job queue on a redis list pair: a
// shared pending list fed by the dispatcher and a per-node processing
// list holding in-flight deliveries. Receive atomically moves a
// payload from pending to the node's processing list; Ack removes it.
// A worker that dies mid-job leaves its payload on its processing
// list, and Recover moves those payloads back to pending when the
// node restarts.
package redis

import (
	"context"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/paceml-cloud/paceml/internal/queue"
	"github.com/paceml-cloud/paceml/pkg/log"
)

type Queue struct {
	client         *goredis.Client
	pending        string
	processing     string
	receiveTimeout time.Duration
}

type Config struct {
	Addr           string
	Password       string
	DB             int
	Name           string
	Node           string
	ReceiveTimeout time.Duration
}

func New(cfg Config) *Queue {
	if cfg.ReceiveTimeout <= 0 {
		cfg.ReceiveTimeout = 5 * time.Second
	}

	processing := cfg.Name + ":processing"
	if cfg.Node != "" {
		processing += ":" + cfg.Node
	}

	return &Queue{
		client: goredis.NewClient(&goredis.Options{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
		}),
		pending:        cfg.Name,
		processing:     processing,
		receiveTimeout: cfg.ReceiveTimeout,
	}
}

func (q *Queue) Publish(ctx context.Context, msg *queue.Message) error {
	payload, err := msg.Marshal()
	if err != nil {
		return err
	}

	return q.client.LPush(ctx, q.pending, payload).Err()
}

func (q *Queue) Receive(ctx context.Context) (*queue.Delivery, error) {
	for {
		payload, err := q.client.BLMove(
			ctx, q.pending, q.processing, "RIGHT", "LEFT", q.receiveTimeout,
		).Result()
		if errors.Is(err, goredis.Nil) {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			continue
		}
		if err != nil {
			return nil, err
		}

		msg, err := queue.Unmarshal([]byte(payload))
		if err != nil {
			// malformed payloads are dropped from the processing
			// list, otherwise they would be recovered forever
			log.Error("dropping malformed queue payload", "error", err)
			q.client.LRem(ctx, q.processing, 1, payload)
			continue
		}

		return &queue.Delivery{Message: msg, Payload: []byte(payload)}, nil
	}
}

func (q *Queue) Ack(ctx context.Context, d *queue.Delivery) error {
	return q.client.LRem(ctx, q.processing, 1, string(d.Payload)).Err()
}

// Recover moves every in-flight delivery back onto the pending list.
// Call once at worker startup, before consuming.
func (q *Queue) Recover(ctx context.Context) (int, error) {
	moved := 0

	for {
		_, err := q.client.LMove(
			ctx, q.processing, q.pending, "RIGHT", "RIGHT",
		).Result()
		if errors.Is(err, goredis.Nil) {
			return moved, nil
		}
		if err != nil {
			return moved, err
		}
		moved++
	}
}

// Depth returns the number of pending messages.
func (q *Queue) Depth(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, q.pending).Result()
}
