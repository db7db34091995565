package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"medremind/internal/entity"
	"medremind/internal/metrics"
	"medremind/internal/notifier"
	"medremind/internal/recurrence"
	"medremind/internal/retry"
)

// ProcessReminder fires one due reminder: it builds the notification event,
// fans it out over the configured channels and applies the delivery policy.
// At least one sent channel counts as delivered; failures on every channel
// put the reminder on the retry path. A reminder that vanished or was
// deactivated after being popped is skipped without error.
func (s *ReminderService) ProcessReminder(ctx context.Context, id uuid.UUID) error {
	const op = "service.ReminderService.ProcessReminder"

	rem, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, entity.ErrReminderNotFound) {
			s.log.Warnw("due reminder no longer exists, skipping", "reminder_id", id)
			return nil
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	if !rem.IsActive {
		s.log.Debugw("due reminder is inactive, skipping", "reminder_id", id)
		return nil
	}

	event := buildEvent(rem, s.clk.Now().UTC())
	s.events.Publish(metrics.Event{Type: metrics.EventFired})

	results := s.dispatcher.Dispatch(ctx, event)
	sent, failed, skipped := notifier.Tally(results)

	s.log.Infow("reminder dispatched",
		"reminder_id", rem.ID,
		"sent", sent,
		"failed", failed,
		"skipped", skipped,
	)

	if sent == 0 && failed > 0 {
		return s.handleFailure(ctx, rem, errors.New(notifier.FailureReasons(results)))
	}

	// Delivered on at least one channel, or every channel was skipped for
	// lack of a recipient. Either way the occurrence is spent and the retry
	// budget resets.
	if sent == 0 {
		s.log.Warnw("all channels skipped, treating as delivered",
			"reminder_id", rem.ID,
		)
		s.events.Publish(metrics.Event{Type: metrics.EventSkippedAll})
	} else {
		s.events.Publish(metrics.Event{Type: metrics.EventDelivered, Count: sent})
	}

	if err := s.retries.ClearFailures(ctx, rem.ID); err != nil {
		s.log.Errorw("failed to clear retry counter",
			"reminder_id", rem.ID,
			"error", err,
		)
	}

	s.finishOccurrence(rem)
	rem.UpdatedAt = s.clk.Now().UTC()
	if err := s.repo.Update(ctx, rem); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *ReminderService) handleFailure(ctx context.Context, rem *entity.Reminder, cause error) error {
	const op = "service.ReminderService.handleFailure"

	outcome, err := s.retries.RecordFailure(ctx, rem.ID, cause)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	switch outcome {
	case retry.OutcomeRetried:
		s.events.Publish(metrics.Event{Type: metrics.EventRetried})
	case retry.OutcomeDeadLettered:
		s.events.Publish(metrics.Event{Type: metrics.EventDeadLettered})
		// The reminder stays readable but stops firing once dead-lettered.
		rem.IsActive = false
		rem.UpdatedAt = s.clk.Now().UTC()
		if err := s.repo.Update(ctx, rem); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}
	return nil
}

// finishOccurrence spends the current occurrence: non-recurring reminders are
// completed and deactivated, recurring ones move to the next occurrence until
// the series ends.
func (s *ReminderService) finishOccurrence(rem *entity.Reminder) {
	if !rem.IsRecurring || rem.Recurrence == nil {
		rem.IsActive = false
		rem.IsCompleted = true
		return
	}

	next, ok := recurrence.Advance(rem.ScheduledTime, *rem.Recurrence)
	if !ok {
		rem.IsActive = false
		rem.IsCompleted = true
		return
	}
	rem.ScheduledTime = next
}
