// Package retry decides, per delivery failure, between re-scheduling with
// backoff and dead-lettering.
package retry

import (
	"context"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"medremind/internal/entity"
)

type Outcome int

const (
	OutcomeRetried Outcome = iota
	OutcomeDeadLettered
)

type (
	AttemptStore interface {
		IncrementAttempts(ctx context.Context, id uuid.UUID) (int, error)
		ClearAttempts(ctx context.Context, id uuid.UUID) error
		PushDeadLetter(ctx context.Context, entry entity.DeadLetterEntry) error
	}

	Rescheduler interface {
		ScheduleAt(ctx context.Context, id uuid.UUID, at time.Time) error
	}
)

type Manager struct {
	attempts   AttemptStore
	schedule   Rescheduler
	clk        clock.Clock
	log        *zap.SugaredLogger
	maxRetries int
	baseDelay  time.Duration
}

func NewManager(attempts AttemptStore, schedule Rescheduler, clk clock.Clock, log *zap.SugaredLogger, maxRetries int, baseDelay time.Duration) *Manager {
	return &Manager{
		attempts:   attempts,
		schedule:   schedule,
		clk:        clk,
		log:        log.With("component", "retry"),
		maxRetries: maxRetries,
		baseDelay:  baseDelay,
	}
}

// RecordFailure bumps the attempt counter for the reminder. While the count
// stays within the budget the reminder is re-scheduled at
// now + attempts*baseDelay (linearly increasing backoff); the first count
// past the budget moves it to the dead-letter list and nothing is
// re-scheduled.
func (m *Manager) RecordFailure(ctx context.Context, id uuid.UUID, cause error) (Outcome, error) {
	const op = "retry.Manager.RecordFailure"

	count, err := m.attempts.IncrementAttempts(ctx, id)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	if count <= m.maxRetries {
		next := m.clk.Now().Add(time.Duration(count) * m.baseDelay)
		if err := m.schedule.ScheduleAt(ctx, id, next); err != nil {
			return 0, fmt.Errorf("%s: %w", op, err)
		}
		m.log.Infow("delivery failed, retry scheduled",
			"reminder_id", id,
			"attempt", count,
			"next_attempt", next,
			"error", cause,
		)
		return OutcomeRetried, nil
	}

	entry := entity.DeadLetterEntry{
		ReminderID: id,
		Error:      cause.Error(),
		Timestamp:  m.clk.Now().UTC(),
		Attempts:   count,
	}
	if err := m.attempts.PushDeadLetter(ctx, entry); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	m.log.Warnw("retry budget exhausted, reminder dead-lettered",
		"reminder_id", id,
		"attempts", count,
		"error", cause,
	)
	return OutcomeDeadLettered, nil
}

// ClearFailures drops the attempt counter after a successful delivery.
func (m *Manager) ClearFailures(ctx context.Context, id uuid.UUID) error {
	const op = "retry.Manager.ClearFailures"

	if err := m.attempts.ClearAttempts(ctx, id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
