package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"

	"medremind/internal/entity"
)

// QueueRepository is the outbound-notification queue: one list per channel,
// consumed by the in-app socket gateway and the push relay.
type QueueRepository struct {
	rdb *redis.Client
}

func NewQueueRepository(rdb *redis.Client) *QueueRepository {
	return &QueueRepository{rdb: rdb}
}

func (q *QueueRepository) Push(ctx context.Context, ch entity.Channel, event entity.NotificationEvent) error {
	const op = "repository.QueueRepository.Push"

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("%s: marshal event: %w", op, err)
	}

	if err := q.rdb.RPush(ctx, outboundKey(ch), payload).Err(); err != nil {
		return fmt.Errorf("%s: rpush: %w", op, err)
	}
	return nil
}

// Len reports how many events are waiting for the channel's consumer.
func (q *QueueRepository) Len(ctx context.Context, ch entity.Channel) (int64, error) {
	const op = "repository.QueueRepository.Len"

	n, err := q.rdb.LLen(ctx, outboundKey(ch)).Result()
	if err != nil {
		return 0, fmt.Errorf("%s: llen: %w", op, err)
	}
	return n, nil
}
