package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// popDueScript removes and returns the ids due at or before ARGV[1] in one
// script invocation. Range and removal must not be two round trips: a second
// concurrent caller (another tick, or another scheduler instance hitting the
// same store) would otherwise read the same ids before the first deletes them
// and dispatch them twice.
var popDueScript = redis.NewScript(`
local due = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', ARGV[1], 'LIMIT', 0, ARGV[2])
if #due > 0 then
    redis.call('ZREM', KEYS[1], unpack(due))
end
return due
`)

// ScheduleIndex is the time-ordered structure mapping due instant to reminder
// id: the single source of truth for what fires next.
type ScheduleIndex struct {
	rdb *redis.Client
}

func NewScheduleIndex(rdb *redis.Client) *ScheduleIndex {
	return &ScheduleIndex{rdb: rdb}
}

// ScheduleAt upserts the entry for id. An already-scheduled id is moved, not
// duplicated.
func (s *ScheduleIndex) ScheduleAt(ctx context.Context, id uuid.UUID, at time.Time) error {
	const op = "repository.ScheduleIndex.ScheduleAt"

	err := s.rdb.ZAdd(ctx, _scheduleKey, &redis.Z{
		Score:  float64(at.UnixMilli()),
		Member: id.String(),
	}).Err()
	if err != nil {
		return fmt.Errorf("%s: zadd: %w", op, err)
	}
	return nil
}

func (s *ScheduleIndex) Unschedule(ctx context.Context, id uuid.UUID) error {
	const op = "repository.ScheduleIndex.Unschedule"

	if err := s.rdb.ZRem(ctx, _scheduleKey, id.String()).Err(); err != nil {
		return fmt.Errorf("%s: zrem: %w", op, err)
	}
	return nil
}

// PopDueBefore atomically removes and returns up to limit ids due at or
// before the given instant, earliest first. A popped id belongs to exactly
// one caller.
func (s *ScheduleIndex) PopDueBefore(ctx context.Context, before time.Time, limit int64) ([]uuid.UUID, error) {
	const op = "repository.ScheduleIndex.PopDueBefore"

	if limit <= 0 {
		return nil, fmt.Errorf("%s: limit must be > 0", op)
	}

	raw, err := popDueScript.Run(ctx, s.rdb,
		[]string{_scheduleKey},
		before.UnixMilli(), limit,
	).Result()
	if err != nil {
		return nil, fmt.Errorf("%s: run script: %w", op, err)
	}

	members, ok := raw.([]interface{})
	if !ok {
		return nil, fmt.Errorf("%s: unexpected script reply %T", op, raw)
	}

	ids := make([]uuid.UUID, 0, len(members))
	for _, m := range members {
		str, ok := m.(string)
		if !ok {
			return nil, fmt.Errorf("%s: unexpected member %T", op, m)
		}
		id, err := uuid.Parse(str)
		if err != nil {
			return nil, fmt.Errorf("%s: parse member %q: %w", op, str, err)
		}
		ids = append(ids, id)
	}

	return ids, nil
}

// Depth returns the number of scheduled entries, for the metrics gauge.
func (s *ScheduleIndex) Depth(ctx context.Context) (int64, error) {
	const op = "repository.ScheduleIndex.Depth"

	n, err := s.rdb.ZCard(ctx, _scheduleKey).Result()
	if err != nil {
		return 0, fmt.Errorf("%s: zcard: %w", op, err)
	}
	return n, nil
}
