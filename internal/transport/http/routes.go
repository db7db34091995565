package httpt

func (h *Handler) setupRoutes() {
	h.router.GET("/health", h.health)

	reminders := h.router.Group("/reminders")
	{
		reminders.POST("", h.createReminder)
		reminders.GET("", h.listReminders)
		reminders.GET("/stats/overview", h.statsOverview)
		reminders.GET("/deadletter", h.deadLetters)
		reminders.GET("/:id", h.getReminder)
		reminders.PUT("/:id", h.updateReminder)
		reminders.DELETE("/:id", h.deleteReminder)
		reminders.POST("/:id/snooze", h.snoozeReminder)
		reminders.POST("/:id/complete", h.completeReminder)
	}

	contacts := h.router.Group("/contacts")
	{
		contacts.GET("", h.getContact)
		contacts.PUT("", h.upsertContact)
	}

	sched := h.router.Group("/scheduler")
	{
		sched.GET("/status", h.schedulerStatus)
		sched.POST("/start", h.schedulerStart)
		sched.POST("/stop", h.schedulerStop)
	}
}
