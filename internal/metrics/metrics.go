// Package metrics consumes typed lifecycle events from the scheduler core
// and exposes them as Prometheus collectors, together with worker health.
package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"medremind/internal/entity"
)

type EventType string

const (
	EventSchedulerStarted EventType = "scheduler_started"
	EventSchedulerStopped EventType = "scheduler_stopped"
	EventBatchSubmitted   EventType = "batch_submitted"
	EventBatchRequeued    EventType = "batch_requeued"
	EventFired            EventType = "fired"
	EventDelivered        EventType = "delivered"
	EventSkippedAll       EventType = "skipped_all"
	EventRetried          EventType = "retried"
	EventDeadLettered     EventType = "dead_lettered"
	EventError            EventType = "error"
)

// Event is one typed lifecycle signal from a core component.
type Event struct {
	Type  EventType
	Count int
	Op    string
	Err   error
}

// Sink is the producer-side interface. Publish never blocks.
type Sink interface {
	Publish(ev Event)
}

// NopSink discards events; used in tests.
type NopSink struct{}

func (NopSink) Publish(Event) {}

type WorkerStater interface {
	States() []entity.WorkerState
	FreeWorkers() int
}

type ScheduleDepther interface {
	Depth(ctx context.Context) (int64, error)
}

type QueueLenner interface {
	Len(ctx context.Context, ch entity.Channel) (int64, error)
}

type DeadLetterCounter interface {
	DeadLetterLen(ctx context.Context) (int64, error)
}

// Recorder owns the Prometheus registry and the bounded event channel. One
// goroutine consumes events; producers only publish.
type Recorder struct {
	events chan Event
	log    *zap.SugaredLogger

	registry *prometheus.Registry

	eventsTotal  *prometheus.CounterVec
	droppedTotal prometheus.Counter
}

func NewRecorder(buffer int, log *zap.SugaredLogger) *Recorder {
	if buffer <= 0 {
		buffer = 256
	}

	r := &Recorder{
		events:   make(chan Event, buffer),
		log:      log.With("component", "metrics"),
		registry: prometheus.NewRegistry(),
	}

	r.eventsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "medremind",
		Name:      "events_total",
		Help:      "Scheduler lifecycle events by type.",
	}, []string{"type"})
	r.droppedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "medremind",
		Name:      "events_dropped_total",
		Help:      "Lifecycle events dropped because the buffer was full.",
	})

	r.registry.MustRegister(r.eventsTotal, r.droppedTotal)
	return r
}

// ObserveWorkers registers the busy-workers gauge. Separate from NewRecorder
// because the pool is constructed after the recorder.
func (r *Recorder) ObserveWorkers(pool WorkerStater) {
	r.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "medremind",
		Name:      "workers_busy",
		Help:      "Workers currently owning a batch.",
	}, func() float64 {
		return float64(len(pool.States()) - pool.FreeWorkers())
	}))
}

// ObserveSchedule registers the schedule-depth gauge.
func (r *Recorder) ObserveSchedule(index ScheduleDepther) {
	r.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "medremind",
		Name:      "schedule_depth",
		Help:      "Entries currently in the schedule index.",
	}, func() float64 {
		n, err := index.Depth(context.Background())
		if err != nil {
			return -1
		}
		return float64(n)
	}))
}

// ObserveQueues registers one outbound-queue depth gauge per queue-backed
// channel. A growing queue means the channel's consumer fell behind.
func (r *Recorder) ObserveQueues(queue QueueLenner, channels []entity.Channel) {
	for _, ch := range channels {
		r.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace:   "medremind",
			Name:        "outbound_queue_depth",
			Help:        "Events waiting in the outbound queue.",
			ConstLabels: prometheus.Labels{"channel": string(ch)},
		}, func() float64 {
			n, err := queue.Len(context.Background(), ch)
			if err != nil {
				return -1
			}
			return float64(n)
		}))
	}
}

// ObserveDeadLetters registers the dead-letter depth gauge.
func (r *Recorder) ObserveDeadLetters(src DeadLetterCounter) {
	r.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "medremind",
		Name:      "deadletter_depth",
		Help:      "Entries currently in the dead-letter list.",
	}, func() float64 {
		n, err := src.DeadLetterLen(context.Background())
		if err != nil {
			return -1
		}
		return float64(n)
	}))
}

// Publish enqueues the event without blocking the producer. A full buffer
// drops the event and counts the drop.
func (r *Recorder) Publish(ev Event) {
	select {
	case r.events <- ev:
	default:
		r.droppedTotal.Inc()
	}
}

// Run consumes events until the context is cancelled.
func (r *Recorder) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-r.events:
			r.consume(ev)
		}
	}
}

func (r *Recorder) consume(ev Event) {
	count := ev.Count
	if count <= 0 {
		count = 1
	}
	r.eventsTotal.WithLabelValues(string(ev.Type)).Add(float64(count))

	if ev.Type == EventError {
		r.log.Errorw("core component error",
			"op", ev.Op,
			"error", ev.Err,
		)
	}
}

// Handler serves the registry on /metrics.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
