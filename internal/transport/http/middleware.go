package httpt

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const _userIDHeader = "X-User-ID"

func (h *Handler) requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set("request_id", requestID)
		c.Header("X-Request-ID", requestID)
		c.Next()
	}
}

func (h *Handler) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		h.log.Infow("HTTP request",
			"request_id", c.GetString("request_id"),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
			"client_ip", c.ClientIP(),
		)
	}
}

// ownerID resolves the calling user from the X-User-ID header. There is no
// session layer; the gateway in front is expected to authenticate and set it.
func (h *Handler) ownerID(c *gin.Context) (uuid.UUID, bool) {
	raw := c.GetHeader(_userIDHeader)
	if raw == "" {
		h.respondError(c, http.StatusUnauthorized, "unauthenticated", "Missing "+_userIDHeader+" header")
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		h.respondError(c, http.StatusUnauthorized, "unauthenticated", "Invalid "+_userIDHeader+" header")
		return uuid.Nil, false
	}
	return id, true
}
