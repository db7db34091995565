// Package service holds the reminder business logic: every mutation path
// re-synchronizes the schedule index within the same logical operation, and
// the fire pipeline applies the delivery, retry and recurrence policies.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"medremind/internal/entity"
	"medremind/internal/metrics"
	"medremind/internal/notifier"
	"medremind/internal/repository"
	"medremind/internal/retry"
)

type (
	ReminderRepository interface {
		Create(ctx context.Context, rem *entity.Reminder) error
		Get(ctx context.Context, id uuid.UUID) (*entity.Reminder, error)
		Update(ctx context.Context, rem *entity.Reminder) error
		Delete(ctx context.Context, rem *entity.Reminder) error
		ByOwner(ctx context.Context, ownerID uuid.UUID) ([]entity.Reminder, error)
		ListByOwner(ctx context.Context, ownerID uuid.UUID, filter repository.ListFilter, limit, offset int) (*repository.Page, error)
	}

	RetryManager interface {
		RecordFailure(ctx context.Context, id uuid.UUID, cause error) (retry.Outcome, error)
		ClearFailures(ctx context.Context, id uuid.UUID) error
	}

	Dispatcher interface {
		Dispatch(ctx context.Context, event entity.NotificationEvent) map[entity.Channel]notifier.Result
	}

	DeadLetterSource interface {
		DeadLetters(ctx context.Context, limit int64) ([]entity.DeadLetterEntry, error)
	}

	ContactRepository interface {
		Get(ctx context.Context, ownerID uuid.UUID) (*entity.OwnerContact, error)
		Set(ctx context.Context, contact *entity.OwnerContact) error
	}
)

type ReminderService struct {
	repo        ReminderRepository
	retries     RetryManager
	dispatcher  Dispatcher
	deadLetters DeadLetterSource
	contacts    ContactRepository
	clk         clock.Clock
	log         *zap.SugaredLogger
	events      metrics.Sink

	maxListLimit     int
	defaultListLimit int
}

type CreateReminderRequest struct {
	OwnerID       uuid.UUID
	Type          entity.ReminderType
	Title         string
	Description   string
	ScheduledTime time.Time
	Recurrence    *entity.Recurrence
	Channels      []entity.Channel
	Priority      entity.Priority
	Medicine      *entity.MedicinePayload
	Appointment   *entity.AppointmentPayload
	Test          *entity.TestPayload
}

// UpdateReminderRequest is a partial update; nil fields are left untouched.
type UpdateReminderRequest struct {
	Title         *string
	Description   *string
	ScheduledTime *time.Time
	IsActive      *bool
	Channels      []entity.Channel
	Priority      *entity.Priority
	Recurrence    *entity.Recurrence
}

func NewReminderService(
	repo ReminderRepository,
	retries RetryManager,
	dispatcher Dispatcher,
	deadLetters DeadLetterSource,
	contacts ContactRepository,
	clk clock.Clock,
	log *zap.SugaredLogger,
	events metrics.Sink,
	opts ...Option,
) (*ReminderService, error) {
	s := &ReminderService{
		repo:             repo,
		retries:          retries,
		dispatcher:       dispatcher,
		deadLetters:      deadLetters,
		contacts:         contacts,
		clk:              clk,
		log:              log.With("component", "service"),
		events:           events,
		maxListLimit:     _maxListLimit,
		defaultListLimit: _defaultListLimit,
	}

	for _, opt := range opts {
		opt(s)
	}
	if err := s.validate(); err != nil {
		return nil, fmt.Errorf("service.NewReminderService: %w", err)
	}

	return s, nil
}

// Create validates the request and persists a new active reminder; the
// repository writes the schedule entry in the same pipeline.
func (s *ReminderService) Create(ctx context.Context, req CreateReminderRequest) (*entity.Reminder, error) {
	const op = "service.ReminderService.Create"

	now := s.clk.Now().UTC()
	if err := s.validateCreate(req, now); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("%s: new v7 uuid: %w", op, err)
	}

	priority := req.Priority
	if priority == "" {
		priority = entity.PriorityMedium
	}

	rem := &entity.Reminder{
		ID:            id,
		Type:          req.Type,
		Title:         req.Title,
		Description:   req.Description,
		OwnerID:       req.OwnerID,
		ScheduledTime: req.ScheduledTime.UTC(),
		IsRecurring:   req.Recurrence != nil,
		Recurrence:    normalizeRecurrence(req.Recurrence),
		IsActive:      true,
		Channels:      req.Channels,
		Priority:      priority,
		Medicine:      req.Medicine,
		Appointment:   req.Appointment,
		Test:          req.Test,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.repo.Create(ctx, rem); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Infow("reminder created",
		"reminder_id", rem.ID,
		"owner_id", rem.OwnerID,
		"type", rem.Type,
		"scheduled_time", rem.ScheduledTime,
	)
	return rem, nil
}

func (s *ReminderService) Get(ctx context.Context, ownerID, id uuid.UUID) (*entity.Reminder, error) {
	const op = "service.ReminderService.Get"

	rem, err := s.owned(ctx, ownerID, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return rem, nil
}

// Update applies the partial update. The repository reconciles the schedule
// index in the same pipeline, so a scheduled-time or activity change never
// leaves a stale entry behind.
func (s *ReminderService) Update(ctx context.Context, ownerID, id uuid.UUID, req UpdateReminderRequest) (*entity.Reminder, error) {
	const op = "service.ReminderService.Update"

	rem, err := s.owned(ctx, ownerID, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if req.Title != nil {
		if *req.Title == "" {
			return nil, fmt.Errorf("%s: title is required: %w", op, entity.ErrInvalidData)
		}
		rem.Title = *req.Title
	}
	if req.Description != nil {
		rem.Description = *req.Description
	}
	if req.ScheduledTime != nil {
		if !req.ScheduledTime.After(s.clk.Now()) {
			return nil, fmt.Errorf("%s: %w", op, entity.ErrPastSchedule)
		}
		rem.ScheduledTime = req.ScheduledTime.UTC()
	}
	if req.Channels != nil {
		if err := validateChannels(req.Channels); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		rem.Channels = req.Channels
	}
	if req.Priority != nil {
		if !req.Priority.IsValid() {
			return nil, fmt.Errorf("%s: invalid priority %q: %w", op, *req.Priority, entity.ErrInvalidData)
		}
		rem.Priority = *req.Priority
	}
	if req.Recurrence != nil {
		if err := validateRecurrence(req.Recurrence); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		rem.Recurrence = normalizeRecurrence(req.Recurrence)
		rem.IsRecurring = true
	}
	if req.IsActive != nil {
		rem.IsActive = *req.IsActive
	}
	if rem.IsCompleted && !rem.IsRecurring {
		// A completed non-recurring reminder can never be re-activated.
		rem.IsActive = false
	}
	rem.UpdatedAt = s.clk.Now().UTC()

	if err := s.repo.Update(ctx, rem); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Infow("reminder updated", "reminder_id", rem.ID)
	return rem, nil
}

// Delete removes the reminder and all of its store state (schedule entry,
// retry counter, index memberships) in one repository pipeline.
func (s *ReminderService) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	const op = "service.ReminderService.Delete"

	rem, err := s.owned(ctx, ownerID, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := s.repo.Delete(ctx, rem); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.log.Infow("reminder deleted", "reminder_id", id)
	return nil
}

// Snooze pushes the reminder out by the given duration from now. The schedule
// entry moves with it, so exactly one entry exists afterwards.
func (s *ReminderService) Snooze(ctx context.Context, ownerID, id uuid.UUID, duration time.Duration) (*entity.Reminder, error) {
	const op = "service.ReminderService.Snooze"

	if duration <= 0 {
		return nil, fmt.Errorf("%s: snooze duration must be positive: %w", op, entity.ErrInvalidData)
	}

	rem, err := s.owned(ctx, ownerID, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !rem.IsActive {
		return nil, fmt.Errorf("%s: %w", op, entity.ErrReminderInactive)
	}

	now := s.clk.Now().UTC()
	rem.ScheduledTime = now.Add(duration)
	rem.UpdatedAt = now

	if err := s.repo.Update(ctx, rem); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Infow("reminder snoozed",
		"reminder_id", rem.ID,
		"until", rem.ScheduledTime,
	)
	return rem, nil
}

// Complete marks the reminder done. A non-recurring reminder is deactivated
// and unscheduled; a recurring one advances to its next occurrence, or ends
// the series when the recurrence is exhausted.
func (s *ReminderService) Complete(ctx context.Context, ownerID, id uuid.UUID) (*entity.Reminder, error) {
	const op = "service.ReminderService.Complete"

	rem, err := s.owned(ctx, ownerID, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if rem.IsCompleted && !rem.IsRecurring {
		return nil, fmt.Errorf("%s: %w", op, entity.ErrReminderCompleted)
	}

	s.finishOccurrence(rem)
	rem.UpdatedAt = s.clk.Now().UTC()

	if err := s.repo.Update(ctx, rem); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Infow("reminder completed",
		"reminder_id", rem.ID,
		"recurring", rem.IsRecurring,
		"active", rem.IsActive,
	)
	return rem, nil
}

func (s *ReminderService) List(ctx context.Context, ownerID uuid.UUID, filter repository.ListFilter, limit, offset int) (*repository.Page, error) {
	const op = "service.ReminderService.List"

	if limit <= 0 {
		limit = s.defaultListLimit
	}
	if limit > s.maxListLimit {
		limit = s.maxListLimit
	}
	if offset < 0 {
		offset = 0
	}

	page, err := s.repo.ListByOwner(ctx, ownerID, filter, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return page, nil
}

func (s *ReminderService) DeadLetters(ctx context.Context, limit int64) ([]entity.DeadLetterEntry, error) {
	const op = "service.ReminderService.DeadLetters"

	entries, err := s.deadLetters.DeadLetters(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return entries, nil
}

func (s *ReminderService) Contact(ctx context.Context, ownerID uuid.UUID) (*entity.OwnerContact, error) {
	const op = "service.ReminderService.Contact"

	contact, err := s.contacts.Get(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return contact, nil
}

func (s *ReminderService) UpsertContact(ctx context.Context, contact *entity.OwnerContact) error {
	const op = "service.ReminderService.UpsertContact"

	if contact.OwnerID == uuid.Nil {
		return fmt.Errorf("%s: owner_id is required: %w", op, entity.ErrInvalidData)
	}

	contact.UpdatedAt = s.clk.Now().UTC()
	if err := s.contacts.Set(ctx, contact); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *ReminderService) owned(ctx context.Context, ownerID, id uuid.UUID) (*entity.Reminder, error) {
	rem, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if rem.OwnerID != ownerID {
		return nil, entity.ErrNotOwner
	}
	return rem, nil
}

func (s *ReminderService) validateCreate(req CreateReminderRequest, now time.Time) error {
	if req.OwnerID == uuid.Nil {
		return fmt.Errorf("owner_id is required: %w", entity.ErrInvalidData)
	}
	if !req.Type.IsValid() {
		return fmt.Errorf("invalid reminder type %q: %w", req.Type, entity.ErrInvalidData)
	}
	if req.Title == "" {
		return fmt.Errorf("title is required: %w", entity.ErrInvalidData)
	}
	if !req.ScheduledTime.After(now) {
		return entity.ErrPastSchedule
	}
	if err := validateChannels(req.Channels); err != nil {
		return err
	}
	if req.Priority != "" && !req.Priority.IsValid() {
		return fmt.Errorf("invalid priority %q: %w", req.Priority, entity.ErrInvalidData)
	}
	return validateRecurrence(req.Recurrence)
}

func validateChannels(channels []entity.Channel) error {
	if len(channels) == 0 {
		return fmt.Errorf("at least one channel is required: %w", entity.ErrInvalidData)
	}
	seen := make(map[entity.Channel]struct{}, len(channels))
	for _, ch := range channels {
		if !ch.IsValid() {
			return fmt.Errorf("invalid channel %q: %w", ch, entity.ErrInvalidData)
		}
		if _, dup := seen[ch]; dup {
			return fmt.Errorf("duplicate channel %q: %w", ch, entity.ErrInvalidData)
		}
		seen[ch] = struct{}{}
	}
	return nil
}

func validateRecurrence(rec *entity.Recurrence) error {
	if rec == nil {
		return nil
	}
	if !rec.Frequency.IsValid() {
		return fmt.Errorf("invalid recurrence frequency %q: %w", rec.Frequency, entity.ErrInvalidData)
	}
	if rec.Interval < 0 {
		return fmt.Errorf("recurrence interval must be >= 1: %w", entity.ErrInvalidData)
	}
	return nil
}

func normalizeRecurrence(rec *entity.Recurrence) *entity.Recurrence {
	if rec == nil {
		return nil
	}
	normalized := *rec
	if normalized.Interval < 1 {
		normalized.Interval = 1
	}
	return &normalized
}
