package notifier

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"medremind/internal/entity"
)

const _defaultChannelTimeout = 10 * time.Second

// Dispatcher invokes the channel senders concurrently, each under its own
// timeout, so one slow or failing channel never delays the others.
type Dispatcher struct {
	senders map[entity.Channel]Sender
	timeout time.Duration
	log     *zap.SugaredLogger
}

func NewDispatcher(senders map[entity.Channel]Sender, timeout time.Duration, log *zap.SugaredLogger) *Dispatcher {
	if timeout <= 0 {
		timeout = _defaultChannelTimeout
	}
	return &Dispatcher{
		senders: senders,
		timeout: timeout,
		log:     log.With("component", "dispatcher"),
	}
}

// Dispatch fans the event out to every channel it names and returns the
// per-channel outcome. It always returns a result for every channel.
func (d *Dispatcher) Dispatch(ctx context.Context, event entity.NotificationEvent) map[entity.Channel]Result {
	results := make(map[entity.Channel]Result, len(event.Channels))

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for _, ch := range event.Channels {
		snd, ok := d.senders[ch]
		if !ok {
			results[ch] = Result{Status: StatusSkipped, Reason: "no sender configured"}
			continue
		}

		wg.Add(1)
		go func(ch entity.Channel, snd Sender) {
			defer wg.Done()
			res := d.sendOne(ctx, ch, snd, event)
			mu.Lock()
			results[ch] = res
			mu.Unlock()
		}(ch, snd)
	}
	wg.Wait()

	return results
}

func (d *Dispatcher) sendOne(ctx context.Context, ch entity.Channel, snd Sender, event entity.NotificationEvent) Result {
	sctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	// The hard select keeps a sender that ignores its context from holding
	// the dispatch open past the channel timeout.
	done := make(chan error, 1)
	go func() {
		done <- snd.Send(sctx, event)
	}()

	var err error
	select {
	case err = <-done:
	case <-sctx.Done():
		err = sctx.Err()
	}

	switch {
	case err == nil:
		return Result{Status: StatusSent}
	case errors.Is(err, ErrNoRecipient):
		d.log.Debugw("channel skipped",
			"reminder_id", event.ReminderID,
			"channel", ch,
			"reason", err,
		)
		return Result{Status: StatusSkipped, Reason: err.Error()}
	default:
		d.log.Warnw("channel send failed",
			"reminder_id", event.ReminderID,
			"channel", ch,
			"error", err,
		)
		return Result{Status: StatusFailed, Reason: err.Error()}
	}
}
