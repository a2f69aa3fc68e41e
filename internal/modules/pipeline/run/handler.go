package run

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/trendjack/core/internal/models"
	"github.com/trendjack/core/internal/modules/pipeline/history"
	"github.com/trendjack/core/internal/modules/processing/llm"
	"github.com/trendjack/core/internal/modules/processing/markdown"
	"github.com/trendjack/core/internal/modules/processing/refine"
	"github.com/trendjack/core/internal/modules/processing/transcript"
	"github.com/trendjack/core/internal/pkg/pagination"
	"github.com/trendjack/core/internal/pkg/response"
)

const maxUploadBytes = 20 << 20

// Handler serves transcripts, runs and posts.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the pipeline routes onto the given router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	g := rg.Group("", authMW)

	transcripts := g.Group("/transcripts")
	transcripts.POST("", h.createTranscript)
	transcripts.GET("", h.listTranscripts)
	transcripts.GET("/:id", h.getTranscript)
	transcripts.DELETE("/:id", h.deleteTranscript)
	transcripts.POST("/:id/topics", h.extractTopics)
	transcripts.GET("/:id/topics", h.listTopics)

	runs := g.Group("/runs")
	runs.POST("", h.createRun)
	runs.GET("", h.listRuns)
	runs.GET("/:id", h.getRun)
	runs.DELETE("/:id", h.deleteRun)
	runs.GET("/:id/events", h.events)
	runs.POST("/:id/cancel", h.cancelRun)
	runs.GET("/:id/posts", h.runPosts)
	runs.GET("/:id/history", h.runHistory)
	runs.GET("/:id/export", h.export)

	posts := g.Group("/posts")
	posts.GET("/:id", h.getPost)
	posts.POST("/:id/refine", h.refinePost)
	posts.POST("/:id/reset", h.resetPost)
	posts.GET("/:id/history", h.postHistory)
}

type createTranscriptRequest struct {
	Text     string `json:"text"`
	Filename string `json:"filename"`
}

// createTranscript POST /transcripts
func (h *Handler) createTranscript(c *gin.Context) {
	var (
		doc transcript.Document
		err error
	)
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		fh, ferr := c.FormFile("file")
		if ferr != nil {
			response.BadRequest(c, "file is required")
			return
		}
		if fh.Size > maxUploadBytes {
			response.BadRequest(c, "file is too large")
			return
		}
		f, ferr := fh.Open()
		if ferr != nil {
			response.InternalError(c, ferr)
			return
		}
		defer f.Close()
		doc, err = transcript.Extract(fh.Filename, f, fh.Size)
	} else {
		var req createTranscriptRequest
		if berr := c.ShouldBindJSON(&req); berr != nil {
			response.BadRequest(c, berr.Error())
			return
		}
		doc, err = transcript.FromText(req.Filename, req.Text)
	}
	if err != nil {
		switch {
		case errors.Is(err, transcript.ErrUnsupportedFormat), errors.Is(err, transcript.ErrEmptyTranscript):
			response.UnprocessableEntity(c, err.Error())
		default:
			response.BadRequest(c, err.Error())
		}
		return
	}

	m, err := h.svc.CreateTranscript(c.Request.Context(), doc)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Created(c, m)
}

// listTranscripts GET /transcripts
func (h *Handler) listTranscripts(c *gin.Context) {
	items, pag, err := h.svc.ListTranscripts(pagination.FromContext(c))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Paged(c, items, pag)
}

// getTranscript GET /transcripts/:id
func (h *Handler) getTranscript(c *gin.Context) {
	m, err := h.svc.GetTranscript(c.Param("id"))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if m == nil {
		response.NotFoundMsg(c, ErrTranscriptNotFound.Error())
		return
	}
	response.OK(c, m)
}

// deleteTranscript DELETE /transcripts/:id
func (h *Handler) deleteTranscript(c *gin.Context) {
	if err := h.svc.DeleteTranscript(c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	response.NoContent(c)
}

type extractTopicsRequest struct {
	Goal string `json:"goal"`
}

// extractTopics POST /transcripts/:id/topics
func (h *Handler) extractTopics(c *gin.Context) {
	var req extractTopicsRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}
	}
	rows, ex, err := h.svc.ExtractTopics(c.Request.Context(), c.Param("id"), strings.TrimSpace(req.Goal))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, gin.H{
		"goal":      ex.Goal,
		"reasoning": ex.Reasoning,
		"mock":      ex.Mock,
		"topics":    rows,
		"selected":  ex.AutoSelect(h.svc.cfg.AutoSelect),
	})
}

// listTopics GET /transcripts/:id/topics
func (h *Handler) listTopics(c *gin.Context) {
	aligned, _ := strconv.ParseBool(c.Query("aligned"))
	rows, err := h.svc.ListTopics(c.Param("id"), aligned)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, rows)
}

type createRunRequest struct {
	TranscriptID     string                  `json:"transcript_id" binding:"required"`
	CompanyType      string                  `json:"company_type"`
	Goal             string                  `json:"goal"`
	BrandPersonality string                  `json:"brand_personality"`
	TrendContext     string                  `json:"trend_context"`
	URLs             []string                `json:"urls"          binding:"required"`
	Topics           []models.TopicSelection `json:"topics"`
	AutoSelect       bool                    `json:"auto_select"`
}

// createRun POST /runs
func (h *Handler) createRun(c *gin.Context) {
	var req createRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	in := Input{
		TranscriptID:     req.TranscriptID,
		CompanyType:      req.CompanyType,
		Goal:             req.Goal,
		BrandPersonality: req.BrandPersonality,
		TrendContext:     req.TrendContext,
		URLs:             req.URLs,
		Topics:           req.Topics,
	}
	if len(in.Topics) == 0 && req.AutoSelect {
		rows, err := h.svc.ListTopics(req.TranscriptID, true)
		if err != nil {
			response.InternalError(c, err)
			return
		}
		if n := h.svc.cfg.AutoSelect; n > 0 && len(rows) > n {
			rows = rows[:n]
		}
		in.Topics = Selections(rows)
	}

	r, task, err := h.svc.Enqueue(c.Request.Context(), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Created(c, gin.H{"run": r, "task": task})
}

// listRuns GET /runs
func (h *Handler) listRuns(c *gin.Context) {
	var lq ListQuery
	if err := c.ShouldBindQuery(&lq); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	runs, pag, err := h.svc.ListRuns(pagination.FromContext(c), lq)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Paged(c, runs, pag)
}

func (h *Handler) loadRun(c *gin.Context) *models.RunModel {
	r, err := h.svc.GetRun(c.Param("id"))
	if err != nil {
		response.InternalError(c, err)
		return nil
	}
	if r == nil {
		response.NotFoundMsg(c, ErrRunNotFound.Error())
		return nil
	}
	return r
}

// getRun GET /runs/:id
func (h *Handler) getRun(c *gin.Context) {
	if r := h.loadRun(c); r != nil {
		response.OK(c, r)
	}
}

// deleteRun DELETE /runs/:id
func (h *Handler) deleteRun(c *gin.Context) {
	if err := h.svc.DeleteRun(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	response.NoContent(c)
}

// events GET /runs/:id/events
func (h *Handler) events(c *gin.Context) {
	if r := h.loadRun(c); r != nil {
		h.svc.StreamEvents(c, r)
	}
}

// cancelRun POST /runs/:id/cancel
func (h *Handler) cancelRun(c *gin.Context) {
	if err := h.svc.Cancel(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	response.Accepted(c, gin.H{"message": "cancellation requested"})
}

// runPosts GET /runs/:id/posts
func (h *Handler) runPosts(c *gin.Context) {
	r := h.loadRun(c)
	if r == nil {
		return
	}
	posts, err := h.svc.PostsForRun(r.ID)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, posts)
}

// runHistory GET /runs/:id/history
func (h *Handler) runHistory(c *gin.Context) {
	r := h.loadRun(c)
	if r == nil {
		return
	}
	writeHistory(c, r.History)
}

// export GET /runs/:id/export
func (h *Handler) export(c *gin.Context) {
	r := h.loadRun(c)
	if r == nil {
		return
	}
	if r.Status != models.RunCompleted {
		response.Conflict(c, "run has not completed")
		return
	}
	report := Report(r)
	md := markdown.RunMarkdown(report)
	switch strings.ToLower(c.DefaultQuery("format", "markdown")) {
	case "markdown", "md":
		c.Header("Content-Disposition", `attachment; filename="`+markdown.Filename(report.Title, "md")+`"`)
		c.Data(http.StatusOK, "text/markdown; charset=utf-8", []byte(md))
	case "html":
		html := markdown.RenderHTML(md, markdown.DocumentOptions{Title: report.Title})
		c.Header("Content-Disposition", `attachment; filename="`+markdown.Filename(report.Title, "html")+`"`)
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(html))
	default:
		response.BadRequest(c, "format must be markdown or html")
	}
}

// getPost GET /posts/:id
func (h *Handler) getPost(c *gin.Context) {
	p, err := h.svc.GetPost(c.Param("id"))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if p == nil {
		response.NotFoundMsg(c, ErrPostNotFound.Error())
		return
	}
	response.OK(c, postView(p))
}

type refineRequest struct {
	Request string `json:"request" binding:"required"`
}

// refinePost POST /posts/:id/refine
func (h *Handler) refinePost(c *gin.Context) {
	var req refineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	p, res, err := h.svc.RefinePost(c.Request.Context(), c.Param("id"), req.Request)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, gin.H{"post": postView(p), "refinement": res})
}

// resetPost POST /posts/:id/reset
func (h *Handler) resetPost(c *gin.Context) {
	p, err := h.svc.ResetPost(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, postView(p))
}

// postHistory GET /posts/:id/history
func (h *Handler) postHistory(c *gin.Context) {
	hist, err := h.svc.PostHistory(c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	writeHistory(c, hist)
}

type postResponse struct {
	*models.PostModel
	Refinements []refine.Refinement `json:"refinement_history"`
}

func postView(p *models.PostModel) postResponse {
	view := postResponse{PostModel: p, Refinements: []refine.Refinement{}}
	if p.Context != nil && p.Context.Refinements != nil {
		view.Refinements = p.Context.Refinements
	}
	return view
}

func writeHistory(c *gin.Context, hist *history.History) {
	if hist == nil {
		hist = &history.History{}
	}
	switch c.DefaultQuery("format", "json") {
	case "text":
		c.String(http.StatusOK, hist.Text())
	case "file":
		c.Header("Content-Disposition", `attachment; filename="conversation_history.json"`)
		c.Header("Content-Type", "application/json; charset=utf-8")
		c.Status(http.StatusOK)
		_ = hist.Save(c.Writer)
	default:
		response.OK(c, hist)
	}
}

// fail maps service errors to HTTP responses.
func (h *Handler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrRunNotFound), errors.Is(err, ErrPostNotFound), errors.Is(err, ErrTranscriptNotFound):
		response.NotFoundMsg(c, err.Error())
	case errors.Is(err, ErrInvalidInput), errors.Is(err, refine.ErrEmptyRequest), errors.Is(err, transcript.ErrEmptyTranscript):
		response.UnprocessableEntity(c, err.Error())
	case errors.Is(err, ErrRunFinished):
		response.Conflict(c, err.Error())
	case errors.Is(err, llm.ErrNoLLMKey):
		response.Error(c, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, llm.ErrEmptyResponse):
		response.BadGateway(c, err)
	default:
		response.InternalError(c, err)
	}
}
