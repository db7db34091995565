package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medremind/internal/repository"
)

func newTestClient(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestScheduleIndexPopDueBefore(t *testing.T) {
	ctx := context.Background()
	idx := repository.NewScheduleIndex(newTestClient(t))

	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	early := uuid.New()
	late := uuid.New()
	future := uuid.New()

	require.NoError(t, idx.ScheduleAt(ctx, late, now.Add(-time.Minute)))
	require.NoError(t, idx.ScheduleAt(ctx, early, now.Add(-time.Hour)))
	require.NoError(t, idx.ScheduleAt(ctx, future, now.Add(time.Hour)))

	ids, err := idx.PopDueBefore(ctx, now, 10)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{early, late}, ids, "due ids ordered earliest first")

	// The pop removed the returned ids: a second call sees nothing.
	ids, err = idx.PopDueBefore(ctx, now, 10)
	require.NoError(t, err)
	assert.Empty(t, ids)

	depth, err := idx.Depth(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), depth, "future entry untouched")
}

func TestScheduleIndexPopDueBeforeLimit(t *testing.T) {
	ctx := context.Background()
	idx := repository.NewScheduleIndex(newTestClient(t))

	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		require.NoError(t, idx.ScheduleAt(ctx, uuid.New(), now.Add(-time.Duration(i+1)*time.Minute)))
	}

	first, err := idx.PopDueBefore(ctx, now, 3)
	require.NoError(t, err)
	assert.Len(t, first, 3)

	rest, err := idx.PopDueBefore(ctx, now, 3)
	require.NoError(t, err)
	assert.Len(t, rest, 2)

	for _, id := range first {
		assert.NotContains(t, rest, id, "no id is popped twice")
	}
}

func TestScheduleIndexScheduleAtMoves(t *testing.T) {
	ctx := context.Background()
	idx := repository.NewScheduleIndex(newTestClient(t))

	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	id := uuid.New()

	require.NoError(t, idx.ScheduleAt(ctx, id, now.Add(-time.Minute)))
	require.NoError(t, idx.ScheduleAt(ctx, id, now.Add(time.Hour)))

	depth, err := idx.Depth(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), depth, "re-scheduling moves the entry, no duplicate")

	ids, err := idx.PopDueBefore(ctx, now, 10)
	require.NoError(t, err)
	assert.Empty(t, ids, "entry moved into the future")
}

func TestScheduleIndexUnschedule(t *testing.T) {
	ctx := context.Background()
	idx := repository.NewScheduleIndex(newTestClient(t))

	id := uuid.New()
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, idx.ScheduleAt(ctx, id, now.Add(-time.Minute)))
	require.NoError(t, idx.Unschedule(ctx, id))

	ids, err := idx.PopDueBefore(ctx, now, 10)
	require.NoError(t, err)
	assert.Empty(t, ids)
}
