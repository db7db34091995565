package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"medremind/internal/entity"
)

// RetryRepository tracks per-reminder failure counters and the dead-letter
// list. Counters carry a TTL so a record for a reminder that stopped failing
// expires on its own.
type RetryRepository struct {
	rdb        *redis.Client
	counterTTL time.Duration
}

func NewRetryRepository(rdb *redis.Client, counterTTL time.Duration) *RetryRepository {
	return &RetryRepository{rdb: rdb, counterTTL: counterTTL}
}

// IncrementAttempts bumps the failure counter for id and returns the new
// attempt count. The TTL is refreshed on every bump.
func (r *RetryRepository) IncrementAttempts(ctx context.Context, id uuid.UUID) (int, error) {
	const op = "repository.RetryRepository.IncrementAttempts"

	var incr *redis.IntCmd
	_, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, retryKey(id))
		pipe.Expire(ctx, retryKey(id), r.counterTTL)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("%s: exec pipeline: %w", op, err)
	}

	return int(incr.Val()), nil
}

func (r *RetryRepository) ClearAttempts(ctx context.Context, id uuid.UUID) error {
	const op = "repository.RetryRepository.ClearAttempts"

	if err := r.rdb.Del(ctx, retryKey(id)).Err(); err != nil {
		return fmt.Errorf("%s: del: %w", op, err)
	}
	return nil
}

// PushDeadLetter appends the entry and deletes the retry counter in one
// pipeline, so a reminder is dead-lettered exactly once.
func (r *RetryRepository) PushDeadLetter(ctx context.Context, entry entity.DeadLetterEntry) error {
	const op = "repository.RetryRepository.PushDeadLetter"

	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("%s: marshal entry: %w", op, err)
	}

	_, err = r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, _deadLetterKey, payload)
		pipe.Del(ctx, retryKey(entry.ReminderID))
		return nil
	})
	if err != nil {
		return fmt.Errorf("%s: exec pipeline: %w", op, err)
	}

	return nil
}

// DeadLetters returns up to limit entries, oldest first.
func (r *RetryRepository) DeadLetters(ctx context.Context, limit int64) ([]entity.DeadLetterEntry, error) {
	const op = "repository.RetryRepository.DeadLetters"

	if limit <= 0 {
		limit = -1 // LRANGE end index: the whole list
	} else {
		limit--
	}

	raw, err := r.rdb.LRange(ctx, _deadLetterKey, 0, limit).Result()
	if err != nil {
		return nil, fmt.Errorf("%s: lrange: %w", op, err)
	}

	entries := make([]entity.DeadLetterEntry, 0, len(raw))
	for _, item := range raw {
		var entry entity.DeadLetterEntry
		if err := json.Unmarshal([]byte(item), &entry); err != nil {
			return nil, fmt.Errorf("%s: unmarshal entry: %w", op, err)
		}
		entries = append(entries, entry)
	}

	return entries, nil
}

func (r *RetryRepository) DeadLetterLen(ctx context.Context) (int64, error) {
	const op = "repository.RetryRepository.DeadLetterLen"

	n, err := r.rdb.LLen(ctx, _deadLetterKey).Result()
	if err != nil {
		return 0, fmt.Errorf("%s: llen: %w", op, err)
	}
	return n, nil
}
