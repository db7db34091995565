package entity

import (
	"time"

	"github.com/google/uuid"
)

// NotificationEvent is constructed from a Reminder at fire time and fanned out
// to the channel senders. It is not persisted beyond the outbound queues.
type NotificationEvent struct {
	ReminderID uuid.UUID         `json:"reminder_id"`
	OwnerID    uuid.UUID         `json:"owner_id"`
	Title      string            `json:"title"`
	Message    string            `json:"message"`
	Channels   []Channel         `json:"channels"`
	Priority   Priority          `json:"priority"`
	Timestamp  time.Time         `json:"timestamp"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// DeadLetterEntry records a reminder that exhausted its retry budget.
type DeadLetterEntry struct {
	ReminderID uuid.UUID `json:"reminder_id"`
	Error      string    `json:"error"`
	Timestamp  time.Time `json:"timestamp"`
	Attempts   int       `json:"attempts"`
}

// WorkerState is a point-in-time snapshot of one pool worker, exposed on the
// operator status surface.
type WorkerState struct {
	ID             int         `json:"id"`
	IsActive       bool        `json:"is_active"`
	LastHeartbeat  time.Time   `json:"last_heartbeat"`
	ProcessedCount int64       `json:"processed_count"`
	ErrorCount     int64       `json:"error_count"`
	CurrentBatch   []uuid.UUID `json:"current_batch,omitempty"`
}
