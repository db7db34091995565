package recurrence_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medremind/internal/entity"
	"medremind/internal/recurrence"
)

func at(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestAdvance(t *testing.T) {
	tests := []struct {
		name      string
		scheduled time.Time
		rec       entity.Recurrence
		want      time.Time
		done      bool
	}{
		{
			name:      "daily",
			scheduled: at("2026-03-10T08:00:00Z"),
			rec:       entity.Recurrence{Frequency: entity.FrequencyDaily, Interval: 1},
			want:      at("2026-03-11T08:00:00Z"),
		},
		{
			name:      "daily interval 3",
			scheduled: at("2026-03-10T08:00:00Z"),
			rec:       entity.Recurrence{Frequency: entity.FrequencyDaily, Interval: 3},
			want:      at("2026-03-13T08:00:00Z"),
		},
		{
			name:      "weekly",
			scheduled: at("2026-03-10T08:00:00Z"),
			rec:       entity.Recurrence{Frequency: entity.FrequencyWeekly, Interval: 1},
			want:      at("2026-03-17T08:00:00Z"),
		},
		{
			name:      "weekly interval 2",
			scheduled: at("2026-03-10T08:00:00Z"),
			rec:       entity.Recurrence{Frequency: entity.FrequencyWeekly, Interval: 2},
			want:      at("2026-03-24T08:00:00Z"),
		},
		{
			name:      "monthly",
			scheduled: at("2026-03-15T09:30:00Z"),
			rec:       entity.Recurrence{Frequency: entity.FrequencyMonthly, Interval: 1},
			want:      at("2026-04-15T09:30:00Z"),
		},
		{
			name:      "monthly clamps jan 31 to feb 28",
			scheduled: at("2026-01-31T07:00:00Z"),
			rec:       entity.Recurrence{Frequency: entity.FrequencyMonthly, Interval: 1},
			want:      at("2026-02-28T07:00:00Z"),
		},
		{
			name:      "monthly clamps to feb 29 in leap year",
			scheduled: at("2028-01-31T07:00:00Z"),
			rec:       entity.Recurrence{Frequency: entity.FrequencyMonthly, Interval: 1},
			want:      at("2028-02-29T07:00:00Z"),
		},
		{
			name:      "monthly across year boundary",
			scheduled: at("2026-11-30T07:00:00Z"),
			rec:       entity.Recurrence{Frequency: entity.FrequencyMonthly, Interval: 3},
			want:      at("2027-02-28T07:00:00Z"),
		},
		{
			name:      "zero interval treated as one",
			scheduled: at("2026-03-10T08:00:00Z"),
			rec:       entity.Recurrence{Frequency: entity.FrequencyDaily, Interval: 0},
			want:      at("2026-03-11T08:00:00Z"),
		},
		{
			name:      "end date reached",
			scheduled: at("2026-03-10T08:00:00Z"),
			rec: entity.Recurrence{
				Frequency: entity.FrequencyWeekly,
				Interval:  1,
				EndDate:   ptr(at("2026-03-15T00:00:00Z")),
			},
			done: true,
		},
		{
			name:      "next exactly at end date is allowed",
			scheduled: at("2026-03-10T08:00:00Z"),
			rec: entity.Recurrence{
				Frequency: entity.FrequencyDaily,
				Interval:  1,
				EndDate:   ptr(at("2026-03-11T08:00:00Z")),
			},
			want: at("2026-03-11T08:00:00Z"),
		},
		{
			name:      "unknown frequency is done",
			scheduled: at("2026-03-10T08:00:00Z"),
			rec:       entity.Recurrence{Frequency: "hourly", Interval: 1},
			done:      true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, ok := recurrence.Advance(tt.scheduled, tt.rec)
			if tt.done {
				assert.False(t, ok)
				return
			}
			require.True(t, ok)
			assert.Equal(t, tt.want, next)
			assert.True(t, next.After(tt.scheduled), "next occurrence must be strictly later")
		})
	}
}

func TestAdvanceMonotonic(t *testing.T) {
	// Three fire cycles of a weekly series land on T0+7d and T0+14d.
	t0 := at("2026-01-05T10:00:00Z")
	rec := entity.Recurrence{Frequency: entity.FrequencyWeekly, Interval: 1}

	cur := t0
	for i := 1; i <= 3; i++ {
		next, ok := recurrence.Advance(cur, rec)
		require.True(t, ok)
		assert.Equal(t, t0.AddDate(0, 0, 7*i), next)
		cur = next
	}
}

func ptr[T any](v T) *T { return &v }
