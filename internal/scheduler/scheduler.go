// Package scheduler drives the tick loop: on each tick it atomically pops
// the due reminder ids from the schedule index and hands them to the worker
// pool in sub-batches.
package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"medremind/internal/metrics"
	"medremind/internal/worker"
)

type (
	// DueIndex is the schedule index surface the loop needs: the atomic
	// pop, plus re-insertion for overflow batches.
	DueIndex interface {
		PopDueBefore(ctx context.Context, before time.Time, limit int64) ([]uuid.UUID, error)
		ScheduleAt(ctx context.Context, id uuid.UUID, at time.Time) error
	}

	Submitter interface {
		Submit(ctx context.Context, batch []uuid.UUID) error
	}
)

// Status is the operator-facing view of the loop.
type Status struct {
	Running      bool          `json:"running"`
	TickInterval time.Duration `json:"tick_interval"`
	BatchLimit   int64         `json:"batch_limit"`
	SubBatchSize int           `json:"sub_batch_size"`
}

type Scheduler struct {
	index  DueIndex
	pool   Submitter
	clk    clock.Clock
	log    *zap.SugaredLogger
	events metrics.Sink

	tick         time.Duration
	batchLimit   int64
	subBatchSize int
	requeueDelay time.Duration

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

func New(index DueIndex, pool Submitter, clk clock.Clock, log *zap.SugaredLogger, events metrics.Sink, tick time.Duration, batchLimit int64, subBatchSize int, requeueDelay time.Duration) *Scheduler {
	return &Scheduler{
		index:        index,
		pool:         pool,
		clk:          clk,
		log:          log.With("component", "scheduler"),
		events:       events,
		tick:         tick,
		batchLimit:   batchLimit,
		subBatchSize: subBatchSize,
		requeueDelay: requeueDelay,
	}
}

// Start transitions Stopped -> Running and begins ticking. Starting an
// already-running scheduler is a no-op.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return
	}

	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	s.running = true

	go s.loop(loopCtx)

	s.log.Infow("scheduler started", "tick_interval", s.tick)
	s.events.Publish(metrics.Event{Type: metrics.EventSchedulerStarted})
}

// Stop halts ticking and waits for the loop to exit. Batches already handed
// to the pool finish on their own; no new tick is scheduled. Stopping an
// already-stopped scheduler is a no-op.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}

	s.cancel()
	<-s.done
	s.running = false

	s.log.Info("scheduler stopped")
	s.events.Publish(metrics.Event{Type: metrics.EventSchedulerStopped})
}

func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{
		Running:      s.running,
		TickInterval: s.tick,
		BatchLimit:   s.batchLimit,
		SubBatchSize: s.subBatchSize,
	}
}

func (s *Scheduler) loop(ctx context.Context) {
	defer close(s.done)

	ticker := s.clk.Ticker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runTick(ctx)
		}
	}
}

func (s *Scheduler) runTick(ctx context.Context) {
	const op = "scheduler.Scheduler.runTick"

	now := s.clk.Now()
	ids, err := s.index.PopDueBefore(ctx, now, s.batchLimit)
	if err != nil {
		s.log.Errorw("failed to pop due reminders", "error", err)
		s.events.Publish(metrics.Event{Type: metrics.EventError, Op: op, Err: err})
		return
	}
	if len(ids) == 0 {
		return
	}

	s.log.Infow("tick picked up due reminders", "count", len(ids))

	for _, sub := range partition(ids, s.subBatchSize) {
		if err := s.pool.Submit(ctx, sub); err != nil {
			if errors.Is(err, worker.ErrNoFreeWorker) {
				// Bounded backpressure: the pool refused the batch, so
				// it goes back into the index with a short delay
				// instead of blocking the loop or being dropped.
				s.requeue(ctx, sub, now)
				continue
			}
			s.log.Errorw("failed to submit batch", "error", err)
			s.events.Publish(metrics.Event{Type: metrics.EventError, Op: op, Err: err})
			s.requeue(ctx, sub, now)
			continue
		}
		s.events.Publish(metrics.Event{Type: metrics.EventBatchSubmitted, Count: len(sub)})
	}
}

func (s *Scheduler) requeue(ctx context.Context, ids []uuid.UUID, now time.Time) {
	const op = "scheduler.Scheduler.requeue"

	at := now.Add(s.requeueDelay)
	for _, id := range ids {
		if err := s.index.ScheduleAt(ctx, id, at); err != nil {
			s.log.Errorw("failed to re-schedule overflow reminder",
				"reminder_id", id,
				"error", err,
			)
			s.events.Publish(metrics.Event{Type: metrics.EventError, Op: op, Err: err})
		}
	}
	s.log.Infow("overflow batch re-scheduled", "count", len(ids), "at", at)
	s.events.Publish(metrics.Event{Type: metrics.EventBatchRequeued, Count: len(ids)})
}

func partition(ids []uuid.UUID, size int) [][]uuid.UUID {
	if size <= 0 || len(ids) <= size {
		return [][]uuid.UUID{ids}
	}

	var parts [][]uuid.UUID
	for start := 0; start < len(ids); start += size {
		end := start + size
		if end > len(ids) {
			end = len(ids)
		}
		parts = append(parts, ids[start:end])
	}
	return parts
}
