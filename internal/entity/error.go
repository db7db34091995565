package entity

import "errors"

var (
	ErrReminderNotFound  = errors.New("reminder not found")
	ErrNotOwner          = errors.New("reminder belongs to another user")
	ErrInvalidData       = errors.New("invalid data")
	ErrPastSchedule      = errors.New("scheduled time must be in the future")
	ErrReminderInactive  = errors.New("reminder is not active")
	ErrReminderCompleted = errors.New("reminder already completed")
	ErrContactNotFound   = errors.New("contact not found")
	ErrSchemaVersion     = errors.New("unsupported document schema version")
)
