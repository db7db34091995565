package scheduler_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"medremind/internal/metrics"
	"medremind/internal/scheduler"
	"medremind/internal/worker"
)

type fakeIndex struct {
	mu      sync.Mutex
	due     []uuid.UUID
	requeue []uuid.UUID
}

func (f *fakeIndex) PopDueBefore(_ context.Context, _ time.Time, limit int64) ([]uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	n := int64(len(f.due))
	if n > limit {
		n = limit
	}
	popped := append([]uuid.UUID(nil), f.due[:n]...)
	f.due = f.due[n:]
	return popped, nil
}

func (f *fakeIndex) ScheduleAt(_ context.Context, id uuid.UUID, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requeue = append(f.requeue, id)
	return nil
}

func (f *fakeIndex) requeued() []uuid.UUID {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]uuid.UUID(nil), f.requeue...)
}

type fakePool struct {
	mu      sync.Mutex
	batches [][]uuid.UUID
	errs    []error
}

func (f *fakePool) Submit(_ context.Context, batch []uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		if err != nil {
			return err
		}
	}
	f.batches = append(f.batches, batch)
	return nil
}

func (f *fakePool) submitted() [][]uuid.UUID {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]uuid.UUID(nil), f.batches...)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func newScheduler(index *fakeIndex, pool *fakePool, clk clock.Clock) *scheduler.Scheduler {
	return scheduler.New(index, pool, clk, zap.NewNop().Sugar(), metrics.NopSink{},
		30*time.Second, 10, 2, time.Second)
}

func TestStartStopIdempotent(t *testing.T) {
	clk := clock.NewMock()
	s := newScheduler(&fakeIndex{}, &fakePool{}, clk)

	assert.False(t, s.Running())

	ctx := context.Background()
	s.Start(ctx)
	s.Start(ctx) // second start is a no-op, not an error
	assert.True(t, s.Running())

	s.Stop()
	s.Stop() // second stop is a no-op
	assert.False(t, s.Running())
}

func TestTickSubmitsDueInSubBatches(t *testing.T) {
	clk := clock.NewMock()
	clk.Set(time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC))

	ids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New(), uuid.New(), uuid.New()}
	index := &fakeIndex{due: append([]uuid.UUID(nil), ids...)}
	pool := &fakePool{}
	s := newScheduler(index, pool, clk)

	s.Start(context.Background())
	defer s.Stop()

	// Let the loop register its ticker before advancing the clock.
	time.Sleep(10 * time.Millisecond)
	clk.Add(30 * time.Second)

	waitFor(t, func() bool { return len(pool.submitted()) == 3 })

	batches := pool.submitted()
	assert.Equal(t, ids[0:2], batches[0])
	assert.Equal(t, ids[2:4], batches[1])
	assert.Equal(t, ids[4:5], batches[2])
}

func TestTickEmptyIndexDoesNothing(t *testing.T) {
	clk := clock.NewMock()
	pool := &fakePool{}
	s := newScheduler(&fakeIndex{}, pool, clk)

	s.Start(context.Background())
	defer s.Stop()

	time.Sleep(10 * time.Millisecond)
	clk.Add(30 * time.Second)
	time.Sleep(20 * time.Millisecond)

	assert.Empty(t, pool.submitted())
}

func TestOverflowBatchRequeuedNotDropped(t *testing.T) {
	clk := clock.NewMock()
	clk.Set(time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC))

	ids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New(), uuid.New()}
	index := &fakeIndex{due: append([]uuid.UUID(nil), ids...)}
	// First sub-batch lands, the second finds no free worker.
	pool := &fakePool{errs: []error{nil, worker.ErrNoFreeWorker}}
	s := newScheduler(index, pool, clk)

	s.Start(context.Background())
	defer s.Stop()

	time.Sleep(10 * time.Millisecond)
	clk.Add(30 * time.Second)

	waitFor(t, func() bool { return len(index.requeued()) == 2 })

	require.Len(t, pool.submitted(), 1)
	assert.Equal(t, ids[0:2], pool.submitted()[0])
	assert.Equal(t, ids[2:4], index.requeued(), "overflow went back to the index")
}
