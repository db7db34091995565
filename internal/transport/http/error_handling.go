package httpt

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"medremind/internal/entity"
)

func (h *Handler) handleServiceError(c *gin.Context, op string, err error) {
	switch {
	case errors.Is(err, entity.ErrReminderNotFound):
		h.log.Warnw("reminder not found", "op", op, "error", err)
		h.respondError(c, http.StatusNotFound, "not_found", "Reminder not found")

	case errors.Is(err, entity.ErrNotOwner):
		h.log.Warnw("reminder owned by another user", "op", op, "error", err)
		h.respondError(c, http.StatusForbidden, "forbidden", "Reminder belongs to another user")

	case errors.Is(err, entity.ErrPastSchedule):
		h.log.Warnw("scheduled time in the past", "op", op, "error", err)
		h.respondError(c, http.StatusBadRequest, "past_schedule", "Scheduled time must be in the future")

	case errors.Is(err, entity.ErrReminderInactive):
		h.log.Warnw("reminder inactive", "op", op, "error", err)
		h.respondError(c, http.StatusBadRequest, "inactive", "Reminder is not active")

	case errors.Is(err, entity.ErrReminderCompleted):
		h.log.Warnw("reminder already completed", "op", op, "error", err)
		h.respondError(c, http.StatusConflict, "already_completed", "Reminder is already completed")

	case errors.Is(err, entity.ErrContactNotFound):
		h.log.Warnw("contact not found", "op", op, "error", err)
		h.respondError(c, http.StatusNotFound, "contact_not_found", "No contact on file for this user")

	case errors.Is(err, entity.ErrInvalidData):
		h.log.Warnw("invalid data", "op", op, "error", err)
		h.respondError(c, http.StatusBadRequest, "invalid_data", "Invalid input data")

	default:
		h.log.Errorw("internal server error", "op", op, "error", err)
		h.respondError(c, http.StatusInternalServerError, "internal_error", "Internal server error occurred")
	}
}

func (h *Handler) respondError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, ErrorResponse{Success: false, Error: code, Message: message})
}

func (h *Handler) handleInvalidUUID(c *gin.Context, op, raw string) {
	h.log.Warnw("invalid uuid", "op", op, "value", raw)
	h.respondError(c, http.StatusBadRequest, "invalid_id", "Invalid UUID format")
}
