// Package task exposes the background task queue over HTTP.
package task

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/trendjack/core/internal/pkg/pagination"
	"github.com/trendjack/core/internal/pkg/response"
	"github.com/trendjack/core/internal/pkg/taskqueue"
)

// Retrier re-queues a failed or cancelled task and restarts its work.
type Retrier interface {
	Redispatch(ctx context.Context, taskID string) (*taskqueue.Task, error)
}

type Handler struct {
	tasks   *taskqueue.Service
	retrier Retrier
}

func NewHandler(tasks *taskqueue.Service, retrier Retrier) *Handler {
	return &Handler{tasks: tasks, retrier: retrier}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	g := rg.Group("/tasks", authMW)
	g.GET("", h.list)
	g.DELETE("", h.purge)
	g.GET("/group/:groupKey", h.group)
	g.GET("/:id", h.show)
	g.DELETE("/:id", h.remove)
	g.POST("/:id/cancel", h.cancel)
	g.POST("/:id/retry", h.retry)
}

type listQuery struct {
	Type   string `form:"type"`
	Status string `form:"status"`
}

// GET /tasks?type=&status=&page=&size=
func (h *Handler) list(c *gin.Context) {
	var lq listQuery
	_ = c.ShouldBindQuery(&lq)
	page := pagination.FromContext(c)

	var (
		typ    *string
		status *taskqueue.TaskStatus
	)
	if lq.Type != "" {
		typ = &lq.Type
	}
	if lq.Status != "" {
		s := taskqueue.TaskStatus(lq.Status)
		status = &s
	}
	rows, total, err := h.tasks.List(c.Request.Context(), page.Page, page.Size, typ, status)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Paged(c, rows, response.NewPagination(total, page.Page, page.Size))
}

func (h *Handler) group(c *gin.Context) {
	rows, err := h.tasks.ListByGroup(c.Request.Context(), c.Param("groupKey"))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, rows)
}

func (h *Handler) show(c *gin.Context) {
	t, err := h.tasks.GetByID(c.Request.Context(), c.Param("id"))
	if err == nil && t == nil {
		err = taskqueue.ErrNotFound
	}
	if err != nil {
		writeError(c, err)
		return
	}
	response.OK(c, t)
}

func (h *Handler) cancel(c *gin.Context) {
	if err := h.tasks.Cancel(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	response.NoContent(c)
}

// retry goes through the Retrier when one is set so the work restarts too.
func (h *Handler) retry(c *gin.Context) {
	redo := h.tasks.Retry
	if h.retrier != nil {
		redo = h.retrier.Redispatch
	}
	t, err := redo(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	response.OK(c, t)
}

func (h *Handler) remove(c *gin.Context) {
	if err := h.tasks.DeleteByID(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	response.NoContent(c)
}

// DELETE /tasks?before=<unix_ms> drops finished tasks.
func (h *Handler) purge(c *gin.Context) {
	var q struct {
		Before int64 `form:"before"`
	}
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, "before must be a unix millisecond timestamp")
		return
	}
	n, err := h.tasks.DeleteCompleted(c.Request.Context(), q.Before)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, gin.H{"deleted": n})
}

var errorStatus = []struct {
	target error
	status int
}{
	{taskqueue.ErrNotFound, http.StatusNotFound},
	{taskqueue.ErrNotPending, http.StatusConflict},
	{taskqueue.ErrNotRetry, http.StatusConflict},
	{taskqueue.ErrContention, http.StatusConflict},
}

func writeError(c *gin.Context, err error) {
	for _, e := range errorStatus {
		if errors.Is(err, e.target) {
			response.Error(c, e.status, err.Error())
			return
		}
	}
	response.InternalError(c, err)
}

// CleanupBefore removes finished tasks older than age.
func CleanupBefore(ctx context.Context, tasks *taskqueue.Service, age time.Duration) (int, error) {
	return tasks.DeleteCompleted(ctx, time.Now().Add(-age).UnixMilli())
}
