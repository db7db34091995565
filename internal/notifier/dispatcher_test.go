package notifier_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"medremind/internal/entity"
	"medremind/internal/notifier"
)

type stubSender struct {
	err   error
	delay time.Duration
}

func (s *stubSender) Send(ctx context.Context, _ entity.NotificationEvent) error {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return s.err
}

func event(channels ...entity.Channel) entity.NotificationEvent {
	return entity.NotificationEvent{
		ReminderID: uuid.New(),
		OwnerID:    uuid.New(),
		Title:      "Take aspirin",
		Message:    "Time to take Aspirin (100mg)",
		Channels:   channels,
		Priority:   entity.PriorityHigh,
	}
}

func TestDispatchCollectsPerChannelOutcomes(t *testing.T) {
	d := notifier.NewDispatcher(map[entity.Channel]notifier.Sender{
		entity.ChannelPush:  &stubSender{},
		entity.ChannelEmail: &stubSender{err: errors.New("smtp down")},
		entity.ChannelSMS:   &stubSender{err: notifier.ErrNoRecipient},
	}, time.Second, zap.NewNop().Sugar())

	results := d.Dispatch(context.Background(), event(entity.ChannelPush, entity.ChannelEmail, entity.ChannelSMS, entity.ChannelSocket))

	require.Len(t, results, 4)
	assert.Equal(t, notifier.StatusSent, results[entity.ChannelPush].Status)
	assert.Equal(t, notifier.StatusFailed, results[entity.ChannelEmail].Status)
	assert.Contains(t, results[entity.ChannelEmail].Reason, "smtp down")
	assert.Equal(t, notifier.StatusSkipped, results[entity.ChannelSMS].Status)
	assert.Equal(t, notifier.StatusSkipped, results[entity.ChannelSocket].Status, "unconfigured channel")

	sent, failed, skipped := notifier.Tally(results)
	assert.Equal(t, 1, sent)
	assert.Equal(t, 1, failed)
	assert.Equal(t, 2, skipped)
}

func TestDispatchSlowChannelDoesNotDelayOthers(t *testing.T) {
	d := notifier.NewDispatcher(map[entity.Channel]notifier.Sender{
		entity.ChannelPush:   &stubSender{},
		entity.ChannelSocket: &stubSender{delay: 5 * time.Second},
	}, 50*time.Millisecond, zap.NewNop().Sugar())

	start := time.Now()
	results := d.Dispatch(context.Background(), event(entity.ChannelPush, entity.ChannelSocket))
	elapsed := time.Since(start)

	assert.Less(t, elapsed, time.Second, "dispatch bounded by the channel timeout")
	assert.Equal(t, notifier.StatusSent, results[entity.ChannelPush].Status)
	assert.Equal(t, notifier.StatusFailed, results[entity.ChannelSocket].Status)
}

func TestFailureReasons(t *testing.T) {
	results := map[entity.Channel]notifier.Result{
		entity.ChannelPush:  {Status: notifier.StatusFailed, Reason: "provider 503"},
		entity.ChannelEmail: {Status: notifier.StatusSent},
	}
	assert.Equal(t, "push: provider 503", notifier.FailureReasons(results))
}
