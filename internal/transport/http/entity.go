package httpt

import (
	"time"

	"github.com/google/uuid"

	"medremind/internal/entity"
)

type CreateReminderRequest struct {
	Type          entity.ReminderType        `json:"type"           binding:"required"`
	Title         string                     `json:"title"          binding:"required"`
	Description   string                     `json:"description"`
	ScheduledTime time.Time                  `json:"scheduled_time" binding:"required"`
	Recurrence    *entity.Recurrence         `json:"recurrence"`
	Channels      []entity.Channel           `json:"channels"       binding:"required"`
	Priority      entity.Priority            `json:"priority"`
	Medicine      *entity.MedicinePayload    `json:"medicine"`
	Appointment   *entity.AppointmentPayload `json:"appointment"`
	Test          *entity.TestPayload        `json:"test"`
}

// UpdateReminderRequest carries a partial update; absent fields keep their
// stored value.
type UpdateReminderRequest struct {
	Title         *string            `json:"title"`
	Description   *string            `json:"description"`
	ScheduledTime *time.Time         `json:"scheduled_time"`
	IsActive      *bool              `json:"is_active"`
	Channels      []entity.Channel   `json:"channels"`
	Priority      *entity.Priority   `json:"priority"`
	Recurrence    *entity.Recurrence `json:"recurrence"`
}

type SnoozeRequest struct {
	DurationMinutes int `json:"duration_minutes" binding:"required,gt=0"`
}

type ContactRequest struct {
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	PushToken string `json:"push_token"`
}

// CreateReminderResponse acknowledges a created reminder. NextOccurrence is
// present only for recurring reminders whose series extends past the first
// occurrence.
type CreateReminderResponse struct {
	ReminderID     uuid.UUID  `json:"reminder_id"`
	ScheduledTime  time.Time  `json:"scheduled_time"`
	NextOccurrence *time.Time `json:"next_occurrence,omitempty"`
}

type Pagination struct {
	Total   int  `json:"total"`
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
}

type ListResponse struct {
	Reminders  []entity.Reminder `json:"reminders"`
	Pagination Pagination        `json:"pagination"`
}

type HealthResponse struct {
	Status  string `json:"status"`
	Name    string `json:"name"`
	Version string `json:"version"`
}

type SchedulerStatusResponse struct {
	Running      bool   `json:"running"`
	TickInterval string `json:"tick_interval"`
	BatchLimit   int64  `json:"batch_limit"`
	SubBatchSize int    `json:"sub_batch_size"`
	FreeWorkers  int    `json:"free_workers"`
}

type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

type SuccessResponse struct {
	Message string `json:"message"`
}
