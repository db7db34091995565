package httpt

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"medremind/internal/entity"
	"medremind/internal/recurrence"
	"medremind/internal/repository"
	"medremind/internal/service"
)

const _handlerTimeout = 2 * time.Second

func (h *Handler) createReminder(c *gin.Context) {
	const op = "httpt.Handler.createReminder"

	owner, ok := h.ownerID(c)
	if !ok {
		return
	}

	var req CreateReminderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warnw("malformed create request", "op", op, "error", err)
		h.respondError(c, http.StatusBadRequest, "invalid_body", "Malformed request body")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), _handlerTimeout)
	defer cancel()

	rem, err := h.svc.Create(ctx, service.CreateReminderRequest{
		OwnerID:       owner,
		Type:          req.Type,
		Title:         req.Title,
		Description:   req.Description,
		ScheduledTime: req.ScheduledTime,
		Recurrence:    req.Recurrence,
		Channels:      req.Channels,
		Priority:      req.Priority,
		Medicine:      req.Medicine,
		Appointment:   req.Appointment,
		Test:          req.Test,
	})
	if err != nil {
		h.handleServiceError(c, op, err)
		return
	}

	resp := CreateReminderResponse{
		ReminderID:    rem.ID,
		ScheduledTime: rem.ScheduledTime,
	}
	if rem.IsRecurring && rem.Recurrence != nil {
		if next, ok := recurrence.Advance(rem.ScheduledTime, *rem.Recurrence); ok {
			resp.NextOccurrence = &next
		}
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *Handler) getReminder(c *gin.Context) {
	const op = "httpt.Handler.getReminder"

	owner, ok := h.ownerID(c)
	if !ok {
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.handleInvalidUUID(c, op, c.Param("id"))
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), _handlerTimeout)
	defer cancel()

	rem, err := h.svc.Get(ctx, owner, id)
	if err != nil {
		h.handleServiceError(c, op, err)
		return
	}

	c.JSON(http.StatusOK, rem)
}

func (h *Handler) updateReminder(c *gin.Context) {
	const op = "httpt.Handler.updateReminder"

	owner, ok := h.ownerID(c)
	if !ok {
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.handleInvalidUUID(c, op, c.Param("id"))
		return
	}

	var req UpdateReminderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warnw("malformed update request", "op", op, "error", err)
		h.respondError(c, http.StatusBadRequest, "invalid_body", "Malformed request body")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), _handlerTimeout)
	defer cancel()

	rem, err := h.svc.Update(ctx, owner, id, service.UpdateReminderRequest{
		Title:         req.Title,
		Description:   req.Description,
		ScheduledTime: req.ScheduledTime,
		IsActive:      req.IsActive,
		Channels:      req.Channels,
		Priority:      req.Priority,
		Recurrence:    req.Recurrence,
	})
	if err != nil {
		h.handleServiceError(c, op, err)
		return
	}

	c.JSON(http.StatusOK, rem)
}

func (h *Handler) deleteReminder(c *gin.Context) {
	const op = "httpt.Handler.deleteReminder"

	owner, ok := h.ownerID(c)
	if !ok {
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.handleInvalidUUID(c, op, c.Param("id"))
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), _handlerTimeout)
	defer cancel()

	if err := h.svc.Delete(ctx, owner, id); err != nil {
		h.handleServiceError(c, op, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "Reminder deleted"})
}

func (h *Handler) snoozeReminder(c *gin.Context) {
	const op = "httpt.Handler.snoozeReminder"

	owner, ok := h.ownerID(c)
	if !ok {
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.handleInvalidUUID(c, op, c.Param("id"))
		return
	}

	var req SnoozeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warnw("malformed snooze request", "op", op, "error", err)
		h.respondError(c, http.StatusBadRequest, "invalid_body", "duration_minutes must be a positive integer")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), _handlerTimeout)
	defer cancel()

	rem, err := h.svc.Snooze(ctx, owner, id, time.Duration(req.DurationMinutes)*time.Minute)
	if err != nil {
		h.handleServiceError(c, op, err)
		return
	}

	c.JSON(http.StatusOK, rem)
}

func (h *Handler) completeReminder(c *gin.Context) {
	const op = "httpt.Handler.completeReminder"

	owner, ok := h.ownerID(c)
	if !ok {
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.handleInvalidUUID(c, op, c.Param("id"))
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), _handlerTimeout)
	defer cancel()

	rem, err := h.svc.Complete(ctx, owner, id)
	if err != nil {
		h.handleServiceError(c, op, err)
		return
	}

	c.JSON(http.StatusOK, rem)
}

func (h *Handler) listReminders(c *gin.Context) {
	const op = "httpt.Handler.listReminders"

	owner, ok := h.ownerID(c)
	if !ok {
		return
	}

	filter, limit, offset, err := parseListQuery(c)
	if err != nil {
		h.log.Warnw("malformed list query", "op", op, "error", err)
		h.respondError(c, http.StatusBadRequest, "invalid_query", "Malformed query parameters")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), _handlerTimeout)
	defer cancel()

	page, err := h.svc.List(ctx, owner, filter, limit, offset)
	if err != nil {
		h.handleServiceError(c, op, err)
		return
	}

	items := page.Items
	if items == nil {
		items = []entity.Reminder{}
	}
	c.JSON(http.StatusOK, ListResponse{
		Reminders: items,
		Pagination: Pagination{
			Total:   page.Total,
			Limit:   page.Limit,
			Offset:  page.Offset,
			HasMore: page.HasMore,
		},
	})
}

func (h *Handler) statsOverview(c *gin.Context) {
	const op = "httpt.Handler.statsOverview"

	owner, ok := h.ownerID(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), _handlerTimeout)
	defer cancel()

	stats, err := h.svc.Stats(ctx, owner)
	if err != nil {
		h.handleServiceError(c, op, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

func (h *Handler) deadLetters(c *gin.Context) {
	const op = "httpt.Handler.deadLetters"

	if _, ok := h.ownerID(c); !ok {
		return
	}

	limit := int64(0)
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed < 0 {
			h.respondError(c, http.StatusBadRequest, "invalid_query", "limit must be a non-negative integer")
			return
		}
		limit = parsed
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), _handlerTimeout)
	defer cancel()

	entries, err := h.svc.DeadLetters(ctx, limit)
	if err != nil {
		h.handleServiceError(c, op, err)
		return
	}
	if entries == nil {
		entries = []entity.DeadLetterEntry{}
	}

	c.JSON(http.StatusOK, entries)
}

func (h *Handler) getContact(c *gin.Context) {
	const op = "httpt.Handler.getContact"

	owner, ok := h.ownerID(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), _handlerTimeout)
	defer cancel()

	contact, err := h.svc.Contact(ctx, owner)
	if err != nil {
		h.handleServiceError(c, op, err)
		return
	}

	c.JSON(http.StatusOK, contact)
}

func (h *Handler) upsertContact(c *gin.Context) {
	const op = "httpt.Handler.upsertContact"

	owner, ok := h.ownerID(c)
	if !ok {
		return
	}

	var req ContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warnw("malformed contact request", "op", op, "error", err)
		h.respondError(c, http.StatusBadRequest, "invalid_body", "Malformed request body")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), _handlerTimeout)
	defer cancel()

	contact := &entity.OwnerContact{
		OwnerID:   owner,
		Email:     req.Email,
		Phone:     req.Phone,
		PushToken: req.PushToken,
	}
	if err := h.svc.UpsertContact(ctx, contact); err != nil {
		h.handleServiceError(c, op, err)
		return
	}

	c.JSON(http.StatusOK, contact)
}

func (h *Handler) schedulerStatus(c *gin.Context) {
	status := h.sched.Status()
	c.JSON(http.StatusOK, SchedulerStatusResponse{
		Running:      status.Running,
		TickInterval: status.TickInterval.String(),
		BatchLimit:   status.BatchLimit,
		SubBatchSize: status.SubBatchSize,
		FreeWorkers:  h.workers.FreeWorkers(),
	})
}

func (h *Handler) schedulerStart(c *gin.Context) {
	h.sched.Start(context.Background())
	c.JSON(http.StatusOK, SuccessResponse{Message: "Scheduler started"})
}

func (h *Handler) schedulerStop(c *gin.Context) {
	h.sched.Stop()
	c.JSON(http.StatusOK, SuccessResponse{Message: "Scheduler stopped"})
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:  "ok",
		Name:    h.appName,
		Version: h.appVersion,
	})
}

func parseListQuery(c *gin.Context) (repository.ListFilter, int, int, error) {
	var filter repository.ListFilter

	if raw := c.Query("type"); raw != "" {
		t := entity.ReminderType(raw)
		filter.Type = &t
	}
	if raw := c.Query("is_active"); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			return filter, 0, 0, err
		}
		filter.IsActive = &active
	}
	// from/to are accepted as short aliases of start_date/end_date.
	if raw := queryAlias(c, "start_date", "from"); raw != "" {
		from, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return filter, 0, 0, err
		}
		filter.From = &from
	}
	if raw := queryAlias(c, "end_date", "to"); raw != "" {
		to, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return filter, 0, 0, err
		}
		filter.To = &to
	}

	limit, offset := 0, 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return filter, 0, 0, err
		}
		limit = parsed
	}
	if raw := c.Query("offset"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return filter, 0, 0, err
		}
		offset = parsed
	}

	return filter, limit, offset, nil
}

func queryAlias(c *gin.Context, names ...string) string {
	for _, name := range names {
		if v := c.Query(name); v != "" {
			return v
		}
	}
	return ""
}
