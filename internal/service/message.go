package service

import (
	"fmt"
	"time"

	"medremind/internal/entity"
)

// buildEvent renders the reminder into the wire-level notification event
// carried by every channel. The message is type-specific so a bare push
// payload still tells the owner what to do.
func buildEvent(rem *entity.Reminder, now time.Time) entity.NotificationEvent {
	return entity.NotificationEvent{
		ReminderID: rem.ID,
		OwnerID:    rem.OwnerID,
		Title:      rem.Title,
		Message:    renderMessage(rem),
		Channels:   rem.Channels,
		Priority:   rem.Priority,
		Timestamp:  now,
		Metadata:   renderMetadata(rem),
	}
}

func renderMessage(rem *entity.Reminder) string {
	switch rem.Type {
	case entity.TypeMedicine:
		if m := rem.Medicine; m != nil {
			if m.Dosage != "" {
				return fmt.Sprintf("Time to take %s (%s)", m.MedicineName, m.Dosage)
			}
			return fmt.Sprintf("Time to take %s", m.MedicineName)
		}
	case entity.TypeAppointment:
		if a := rem.Appointment; a != nil {
			if a.Location != "" {
				return fmt.Sprintf("Appointment with %s at %s", a.DoctorName, a.Location)
			}
			return fmt.Sprintf("Appointment with %s", a.DoctorName)
		}
	case entity.TypeTest:
		if t := rem.Test; t != nil {
			if t.FastingRequired {
				return fmt.Sprintf("Upcoming test: %s (fasting required)", t.TestName)
			}
			return fmt.Sprintf("Upcoming test: %s", t.TestName)
		}
	case entity.TypeFollowup:
		if rem.Description != "" {
			return fmt.Sprintf("Follow-up: %s", rem.Description)
		}
		return fmt.Sprintf("Follow-up: %s", rem.Title)
	}

	if rem.Description != "" {
		return rem.Description
	}
	return rem.Title
}

func renderMetadata(rem *entity.Reminder) map[string]string {
	meta := map[string]string{
		"reminder_type": string(rem.Type),
	}
	switch {
	case rem.Medicine != nil:
		meta["medicine_name"] = rem.Medicine.MedicineName
		if rem.Medicine.Instructions != "" {
			meta["instructions"] = rem.Medicine.Instructions
		}
	case rem.Appointment != nil:
		meta["doctor_name"] = rem.Appointment.DoctorName
		if rem.Appointment.Notes != "" {
			meta["notes"] = rem.Appointment.Notes
		}
	case rem.Test != nil:
		meta["test_name"] = rem.Test.TestName
		if rem.Test.Lab != "" {
			meta["lab"] = rem.Test.Lab
		}
	}
	return meta
}
