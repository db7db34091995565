// Package worker runs the fixed pool that processes batches of due reminder
// ids. A worker owns one batch at a time and processes it serially, so
// notifications for one owner keep their due-time order within a batch.
package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"medremind/internal/entity"
)

// ErrNoFreeWorker reports a saturated pool. The caller re-schedules the batch
// with a short delay instead of blocking or dropping it.
var ErrNoFreeWorker = errors.New("no free worker available")

type (
	// Processor fires a single due reminder.
	Processor interface {
		ProcessReminder(ctx context.Context, id uuid.UUID) error
	}

	// Rescheduler puts ids back into the schedule index; used when a stuck
	// worker is reset, since its ids were already popped and would
	// otherwise be lost.
	Rescheduler interface {
		ScheduleAt(ctx context.Context, id uuid.UUID, at time.Time) error
	}
)

// slot is the pool-owned state of one worker. All fields are guarded by the
// pool mutex; worker goroutines touch them only through the pool's accessors.
// generation invalidates a goroutine that outlived a health-check reset.
type slot struct {
	id         int
	generation uint64
	active     bool
	batch      []uuid.UUID
	next       int
	heartbeat  time.Time
	processed  int64
	errored    int64
}

type Pool struct {
	mu    sync.Mutex
	slots []*slot

	proc    Processor
	resched Rescheduler
	clk     clock.Clock
	log     *zap.SugaredLogger

	heartbeatTimeout time.Duration
	healthInterval   time.Duration
	requeueDelay     time.Duration

	wg     sync.WaitGroup
	cancel context.CancelFunc
	done   chan struct{}
}

func NewPool(count int, proc Processor, resched Rescheduler, clk clock.Clock, log *zap.SugaredLogger, heartbeatTimeout, healthInterval, requeueDelay time.Duration) *Pool {
	if count < 1 {
		count = 1
	}

	p := &Pool{
		slots:            make([]*slot, count),
		proc:             proc,
		resched:          resched,
		clk:              clk,
		log:              log.With("component", "worker-pool"),
		heartbeatTimeout: heartbeatTimeout,
		healthInterval:   healthInterval,
		requeueDelay:     requeueDelay,
	}
	now := clk.Now()
	for i := range p.slots {
		p.slots[i] = &slot{id: i, active: true, heartbeat: now}
	}
	return p
}

// Start launches the health checker. Workers themselves are started lazily by
// Submit.
func (p *Pool) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	go p.healthLoop(ctx)
}

// Stop halts the health checker and waits for in-flight batches to finish.
func (p *Pool) Stop() {
	if p.cancel != nil {
		p.cancel()
		<-p.done
	}
	p.wg.Wait()
}

// Submit hands the batch to a free worker. It never blocks: a saturated pool
// returns ErrNoFreeWorker immediately.
func (p *Pool) Submit(ctx context.Context, batch []uuid.UUID) error {
	if len(batch) == 0 {
		return nil
	}

	s, gen := p.claim(batch)
	if s == nil {
		return ErrNoFreeWorker
	}

	p.wg.Add(1)
	go p.run(ctx, s, gen, batch)
	return nil
}

func (p *Pool) claim(batch []uuid.UUID) (*slot, uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, s := range p.slots {
		if s.active && s.batch == nil {
			s.batch = batch
			s.next = 0
			s.heartbeat = p.clk.Now()
			return s, s.generation
		}
	}
	return nil, 0
}

func (p *Pool) run(ctx context.Context, s *slot, gen uint64, batch []uuid.UUID) {
	defer p.wg.Done()

	for i, id := range batch {
		if !p.beat(s, gen, i) {
			// A health-check reset took the batch away; its remainder
			// is already back in the schedule index.
			return
		}

		err := p.proc.ProcessReminder(ctx, id)
		if err != nil {
			p.log.Errorw("reminder processing failed",
				"worker_id", s.id,
				"reminder_id", id,
				"error", err,
			)
		}
		if !p.finish(s, gen, err) {
			return
		}
	}

	p.release(s, gen)
}

// beat marks the start of item i and refreshes the heartbeat. It returns
// false when the slot was reset out from under this goroutine.
func (p *Pool) beat(s *slot, gen uint64, i int) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if s.generation != gen {
		return false
	}
	s.next = i
	s.heartbeat = p.clk.Now()
	return true
}

func (p *Pool) finish(s *slot, gen uint64, err error) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if s.generation != gen {
		return false
	}
	if err != nil {
		s.errored++
	} else {
		s.processed++
	}
	s.heartbeat = p.clk.Now()
	return true
}

func (p *Pool) release(s *slot, gen uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if s.generation != gen {
		return
	}
	s.batch = nil
	s.next = 0
}

func (p *Pool) healthLoop(ctx context.Context) {
	defer close(p.done)

	ticker := p.clk.Ticker(p.healthInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.CheckHealth(ctx)
		}
	}
}

// CheckHealth presumes any worker whose heartbeat is older than the timeout
// to be stuck, resets it, and re-enqueues the unprocessed remainder of its
// batch. Those ids were removed from the schedule index when popped, so
// skipping the re-enqueue would lose them permanently.
func (p *Pool) CheckHealth(ctx context.Context) {
	now := p.clk.Now()

	var orphaned []uuid.UUID
	p.mu.Lock()
	for _, s := range p.slots {
		if s.batch == nil || now.Sub(s.heartbeat) <= p.heartbeatTimeout {
			continue
		}
		remaining := s.batch[s.next:]
		orphaned = append(orphaned, remaining...)
		p.log.Warnw("worker presumed stuck, resetting",
			"worker_id", s.id,
			"stalled_for", now.Sub(s.heartbeat),
			"requeued", len(remaining),
		)
		s.generation++
		s.batch = nil
		s.next = 0
		s.active = true
		s.heartbeat = now
	}
	p.mu.Unlock()

	for _, id := range orphaned {
		if err := p.resched.ScheduleAt(ctx, id, now.Add(p.requeueDelay)); err != nil {
			p.log.Errorw("failed to re-enqueue orphaned reminder",
				"reminder_id", id,
				"error", err,
			)
		}
	}
}

// States snapshots every worker for the operator status surface.
func (p *Pool) States() []entity.WorkerState {
	p.mu.Lock()
	defer p.mu.Unlock()

	states := make([]entity.WorkerState, len(p.slots))
	for i, s := range p.slots {
		var batch []uuid.UUID
		if s.batch != nil {
			batch = append(batch, s.batch...)
		}
		states[i] = entity.WorkerState{
			ID:             s.id,
			IsActive:       s.active,
			LastHeartbeat:  s.heartbeat,
			ProcessedCount: s.processed,
			ErrorCount:     s.errored,
			CurrentBatch:   batch,
		}
	}
	return states
}

// FreeWorkers reports how many workers can accept a batch right now.
func (p *Pool) FreeWorkers() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	free := 0
	for _, s := range p.slots {
		if s.active && s.batch == nil {
			free++
		}
	}
	return free
}
