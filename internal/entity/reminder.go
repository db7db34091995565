package entity

import (
	"time"

	"github.com/google/uuid"
)

// SchemaVersion is the current version of the persisted reminder document.
// Bump it whenever the document layout changes; the repository refuses to
// decode documents with a newer version than it knows.
const SchemaVersion = 1

type (
	ReminderType string
	Channel      string
	Priority     string
	Frequency    string
)

const (
	TypeMedicine    ReminderType = "medicine"
	TypeAppointment ReminderType = "appointment"
	TypeTest        ReminderType = "test"
	TypeFollowup    ReminderType = "followup"

	ChannelPush   Channel = "push"
	ChannelSMS    Channel = "sms"
	ChannelEmail  Channel = "email"
	ChannelSocket Channel = "socket"

	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"

	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
)

func (t ReminderType) IsValid() bool {
	switch t {
	case TypeMedicine, TypeAppointment, TypeTest, TypeFollowup:
		return true
	}
	return false
}

func (c Channel) IsValid() bool {
	switch c {
	case ChannelPush, ChannelSMS, ChannelEmail, ChannelSocket:
		return true
	}
	return false
}

func (p Priority) IsValid() bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

func (f Frequency) IsValid() bool {
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly:
		return true
	}
	return false
}

// Recurrence describes how a reminder re-fires after a successful delivery.
type Recurrence struct {
	Frequency Frequency  `json:"frequency"`
	Interval  int        `json:"interval"`
	EndDate   *time.Time `json:"end_date,omitempty"`
}

// MedicinePayload carries dose information, opaque to the scheduler.
type MedicinePayload struct {
	MedicineName string `json:"medicine_name"`
	Dosage       string `json:"dosage"`
	Instructions string `json:"instructions,omitempty"`
}

type AppointmentPayload struct {
	DoctorName string `json:"doctor_name"`
	Location   string `json:"location,omitempty"`
	Notes      string `json:"notes,omitempty"`
}

type TestPayload struct {
	TestName        string `json:"test_name"`
	Lab             string `json:"lab,omitempty"`
	FastingRequired bool   `json:"fasting_required,omitempty"`
}

// Reminder is the persisted reminder document. It is stored as a single
// versioned JSON value and decoded exactly once at the repository boundary.
type Reminder struct {
	Schema        int                 `json:"schema_version"`
	ID            uuid.UUID           `json:"id"`
	Type          ReminderType        `json:"type"`
	Title         string              `json:"title"`
	Description   string              `json:"description,omitempty"`
	OwnerID       uuid.UUID           `json:"owner_id"`
	ScheduledTime time.Time           `json:"scheduled_time"`
	IsRecurring   bool                `json:"is_recurring"`
	Recurrence    *Recurrence         `json:"recurrence,omitempty"`
	IsActive      bool                `json:"is_active"`
	IsCompleted   bool                `json:"is_completed"`
	Channels      []Channel           `json:"channels"`
	Priority      Priority            `json:"priority"`
	Medicine      *MedicinePayload    `json:"medicine,omitempty"`
	Appointment   *AppointmentPayload `json:"appointment,omitempty"`
	Test          *TestPayload        `json:"test,omitempty"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
}

// HasChannel reports whether ch is in the reminder's channel set.
func (r *Reminder) HasChannel(ch Channel) bool {
	for _, c := range r.Channels {
		if c == ch {
			return true
		}
	}
	return false
}

// OwnerContact holds the per-owner delivery addresses. A channel without an
// address on file yields a Skipped outcome at dispatch time.
type OwnerContact struct {
	OwnerID   uuid.UUID `json:"owner_id"`
	Email     string    `json:"email,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	PushToken string    `json:"push_token,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}
