package health

import (
	"github.com/gin-gonic/gin"
	"github.com/trendjack/core/internal/pkg/cron"
	"github.com/trendjack/core/internal/pkg/response"
)

// listJobs GET /health/cron
func (h *handler) listJobs(c *gin.Context) {
	byName := make(map[string]cron.ListItem)
	for _, item := range h.deps.Scheduler.List() {
		byName[item.Name] = item
	}
	response.OK(c, byName)
}

// runJob POST /health/cron/run/:name
func (h *handler) runJob(c *gin.Context) {
	if err := h.deps.Scheduler.Run(c.Request.Context(), c.Param("name")); err != nil {
		response.NotFoundMsg(c, err.Error())
		return
	}
	response.Accepted(c, gin.H{"message": "job triggered"})
}

// jobState GET /health/cron/task/:name
func (h *handler) jobState(c *gin.Context) {
	state, err := h.deps.Scheduler.GetTask(c.Param("name"))
	if err != nil {
		response.NotFoundMsg(c, err.Error())
		return
	}
	response.OK(c, state)
}
