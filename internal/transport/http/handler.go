// Package httpt is the gin HTTP surface: reminder CRUD, snooze and complete,
// owner contacts, dead letters and the scheduler control endpoints.
package httpt

import (
	"context"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"medremind/internal/scheduler"
	"medremind/internal/service"
)

type (
	// SchedulerControl is the operator surface of the tick loop.
	SchedulerControl interface {
		Start(ctx context.Context)
		Stop()
		Status() scheduler.Status
	}

	WorkerInspector interface {
		FreeWorkers() int
	}
)

type Handler struct {
	svc     *service.ReminderService
	sched   SchedulerControl
	workers WorkerInspector
	log     *zap.SugaredLogger
	router  *gin.Engine

	appName    string
	appVersion string
}

func NewHandler(
	svc *service.ReminderService,
	sched SchedulerControl,
	workers WorkerInspector,
	log *zap.SugaredLogger,
	appName, appVersion string,
) *Handler {
	h := &Handler{
		svc:        svc,
		sched:      sched,
		workers:    workers,
		log:        log.With("component", "http"),
		appName:    appName,
		appVersion: appVersion,
	}

	router := gin.New()
	router.Use(h.requestIDMiddleware())
	router.Use(h.loggingMiddleware())
	router.Use(gin.Recovery())

	h.router = router
	h.setupRoutes()

	return h
}

func (h *Handler) Engine() *gin.Engine {
	return h.router
}
