// Package repository implements persistence on the shared backing store:
// versioned JSON reminder documents, membership sets, the time-ordered
// schedule index, retry counters and the dead-letter / outbound queues.
package repository

import (
	"github.com/google/uuid"

	"medremind/internal/entity"
)

const (
	_scheduleKey   = "schedule"
	_activeKey     = "reminders:active"
	_deadLetterKey = "deadletter"
)

func reminderKey(id uuid.UUID) string {
	return "reminder:" + id.String()
}

func ownerKey(ownerID uuid.UUID) string {
	return "reminders:owner:" + ownerID.String()
}

func typeKey(t entity.ReminderType) string {
	return "reminders:type:" + string(t)
}

func retryKey(id uuid.UUID) string {
	return "retry:" + id.String()
}

func outboundKey(ch entity.Channel) string {
	return "outbound:" + string(ch)
}

func contactKey(ownerID uuid.UUID) string {
	return "contact:" + ownerID.String()
}
