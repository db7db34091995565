package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"medremind/internal/entity"
)

// StatsOverview aggregates one owner's reminders for the stats endpoint.
type StatsOverview struct {
	Total      int                         `json:"total"`
	Active     int                         `json:"active"`
	Completed  int                         `json:"completed"`
	Overdue    int                         `json:"overdue"`
	DueNext24h int                         `json:"due_next_24h"`
	ByType     map[entity.ReminderType]int `json:"by_type"`
	ByPriority map[entity.Priority]int     `json:"by_priority"`
}

// Stats walks the owner's reminders once and buckets them by status, type
// and due window. Overdue means active with a scheduled time in the past,
// which only happens while a fire or retry is pending.
func (s *ReminderService) Stats(ctx context.Context, ownerID uuid.UUID) (*StatsOverview, error) {
	const op = "service.ReminderService.Stats"

	reminders, err := s.repo.ByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	now := s.clk.Now().UTC()
	horizon := now.Add(24 * time.Hour)

	overview := &StatsOverview{
		ByType:     make(map[entity.ReminderType]int),
		ByPriority: make(map[entity.Priority]int),
	}
	for i := range reminders {
		rem := &reminders[i]

		overview.Total++
		overview.ByType[rem.Type]++
		overview.ByPriority[rem.Priority]++

		if rem.IsCompleted {
			overview.Completed++
		}
		if !rem.IsActive {
			continue
		}
		overview.Active++

		switch {
		case rem.ScheduledTime.Before(now):
			overview.Overdue++
		case !rem.ScheduledTime.After(horizon):
			overview.DueNext24h++
		}
	}
	return overview, nil
}
