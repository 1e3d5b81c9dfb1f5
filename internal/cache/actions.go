// internal/cache/actions.go
package cache

import (
	"context"
	"fmt"

	"github.com/jason-s-yu/gridclash/internal/models"
	"github.com/redis/go-redis/v9"
)

// Pusher appends to a Redis list. *redis.Client satisfies it.
type Pusher interface {
	RPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
}

// ActionQueue pushes history records onto a Redis list for the historian.
type ActionQueue struct {
	rdb   Pusher
	queue string
}

// NewActionQueue uses DefaultQueueName when queue is empty.
func NewActionQueue(rdb Pusher, queue string) *ActionQueue {
	if queue == "" {
		queue = DefaultQueueName
	}
	return &ActionQueue{rdb: rdb, queue: queue}
}

// Record serializes rec and RPUSHes it. Only a quick network send; no waiting on the consumer.
func (q *ActionQueue) Record(ctx context.Context, rec models.ActionRecord) error {
	data, err := marshal(rec)
	if err != nil {
		return err
	}
	if err := q.rdb.RPush(ctx, q.queue, data).Err(); err != nil {
		return fmt.Errorf("failed to RPush to Redis list '%s': %w", q.queue, err)
	}
	return nil
}
