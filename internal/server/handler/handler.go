// Package handler implements the REST endpoints of the API surface.
package handler

import (
	"strconv"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/neurabytelabs/modus-forge/internal/grimoire"
	"github.com/neurabytelabs/modus-forge/internal/history"
	"github.com/neurabytelabs/modus-forge/internal/llm"
	"github.com/neurabytelabs/modus-forge/internal/pipeline"
	"github.com/neurabytelabs/modus-forge/internal/pkg/core"
	"github.com/neurabytelabs/modus-forge/internal/validate"
	"github.com/neurabytelabs/modus-forge/pkg/errorx"
)

// Handler bundles the API endpoints with their collaborators. Any
// collaborator may be nil; its endpoints then answer 501.
type Handler struct {
	Pipeline  *pipeline.Pipeline
	Router    *llm.Router
	Validator *validate.Validator
	History   *history.History
	Grimoire  *grimoire.Grimoire

	startedAt time.Time
	requests  atomic.Int64
}

// New creates a Handler.
func New() *Handler {
	return &Handler{
		Validator: validate.New(),
		startedAt: time.Now(),
	}
}

// CountRequests is middleware feeding the health counter.
func (h *Handler) CountRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		h.requests.Add(1)
		c.Next()
	}
}

// Health handles GET /api/health.
func (h *Handler) Health(c *gin.Context) {
	core.WriteResponse(c, nil, gin.H{
		"status":   "ok",
		"uptimeMs": time.Since(h.startedAt).Milliseconds(),
		"requests": h.requests.Load(),
	})
}

// Models handles GET /api/models.
func (h *Handler) Models(c *gin.Context) {
	if h.Router == nil {
		core.WriteResponse(c, errorx.WithCode(ErrNotConfigured, "router not configured"), nil)
		return
	}
	core.WriteResponse(c, nil, gin.H{
		"models":    h.Router.Models(),
		"available": h.Router.Available(),
	})
}

// GenerateRequest is the POST /api/generate body.
type GenerateRequest struct {
	Prompt    string   `json:"prompt"`
	Model     string   `json:"model"`
	Style     string   `json:"style"`
	Language  string   `json:"language"`
	Persona   string   `json:"persona"`
	Theme     string   `json:"theme"`
	Iterate   bool     `json:"iterate"`
	Threshold float64  `json:"threshold"`
	Tags      []string `json:"tags"`
	Inscribe  bool     `json:"inscribe"`
}

// Generate handles POST /api/generate.
func (h *Handler) Generate(c *gin.Context) {
	if h.Pipeline == nil {
		core.WriteResponse(c, errorx.WithCode(ErrNotConfigured, "generation pipeline not configured"), nil)
		return
	}

	var req GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		core.WriteResponse(c, errorx.WrapC(err, ErrBind, "bind generate request"), nil)
		return
	}
	if req.Prompt == "" {
		core.WriteResponse(c, errorx.WithCode(ErrEmptyPrompt, "prompt is required"), nil)
		return
	}

	result, err := h.Pipeline.Run(c.Request.Context(), req.Prompt, pipeline.RunOptions{
		Model:     req.Model,
		Style:     req.Style,
		Language:  req.Language,
		Persona:   req.Persona,
		Theme:     req.Theme,
		Iterate:   req.Iterate,
		Threshold: req.Threshold,
		Tags:      req.Tags,
		Inscribe:  req.Inscribe,
	})
	if err != nil {
		core.WriteResponse(c, errorx.WrapC(err, ErrPipelineRun, "pipeline run"), nil)
		return
	}
	core.WriteResponse(c, nil, result)
}

// ValidateRequest is the POST /api/validate body.
type ValidateRequest struct {
	HTML string `json:"html"`
}

// Validate handles POST /api/validate.
func (h *Handler) Validate(c *gin.Context) {
	var req ValidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		core.WriteResponse(c, errorx.WrapC(err, ErrBind, "bind validate request"), nil)
		return
	}
	if req.HTML == "" {
		core.WriteResponse(c, errorx.WithCode(ErrValidate, "html is required"), nil)
		return
	}
	core.WriteResponse(c, nil, h.Validator.Validate(req.HTML))
}

// GrimoireList handles GET /api/grimoire.
func (h *Handler) GrimoireList(c *gin.Context) {
	if h.Grimoire == nil {
		core.WriteResponse(c, errorx.WithCode(ErrNotConfigured, "grimoire not configured"), nil)
		return
	}
	limit, _ := strconv.Atoi(c.Query("limit"))
	entries, err := h.Grimoire.Search(grimoire.SearchOptions{
		Query: c.Query("q"),
		Tag:   c.Query("tag"),
		Limit: limit,
	})
	if err != nil {
		core.WriteResponse(c, errorx.WrapC(err, ErrSpellList, "search grimoire"), nil)
		return
	}
	core.WriteResponse(c, nil, gin.H{"entries": entries, "count": len(entries)})
}

// GrimoireSave handles POST /api/grimoire.
func (h *Handler) GrimoireSave(c *gin.Context) {
	if h.Grimoire == nil {
		core.WriteResponse(c, errorx.WithCode(ErrNotConfigured, "grimoire not configured"), nil)
		return
	}
	var entry grimoire.Entry
	if err := c.ShouldBindJSON(&entry); err != nil {
		core.WriteResponse(c, errorx.WrapC(err, ErrBind, "bind grimoire entry"), nil)
		return
	}
	id, err := h.Grimoire.Inscribe(entry)
	if err != nil {
		core.WriteResponse(c, errorx.WrapC(err, ErrSpellSave, "inscribe spell"), nil)
		return
	}
	core.WriteResponse(c, nil, gin.H{"id": id})
}

// GrimoireGet handles GET /api/grimoire/:id.
func (h *Handler) GrimoireGet(c *gin.Context) {
	if h.Grimoire == nil {
		core.WriteResponse(c, errorx.WithCode(ErrNotConfigured, "grimoire not configured"), nil)
		return
	}
	entry, err := h.Grimoire.Get(c.Param("id"))
	if err != nil {
		core.WriteResponse(c, errorx.WrapC(err, ErrSpellNotFound, "fetch spell %q", c.Param("id")), nil)
		return
	}
	core.WriteResponse(c, nil, entry)
}

// HistoryList handles GET /api/history.
func (h *Handler) HistoryList(c *gin.Context) {
	if h.History == nil {
		core.WriteResponse(c, errorx.WithCode(ErrNotConfigured, "history not configured"), nil)
		return
	}
	limit, _ := strconv.Atoi(c.Query("limit"))
	entries, err := h.History.List(history.ListOptions{
		Provider: c.Query("provider"),
		Limit:    limit,
	})
	if err != nil {
		core.WriteResponse(c, errorx.WrapC(err, ErrHistoryList, "list history"), nil)
		return
	}
	core.WriteResponse(c, nil, gin.H{"entries": entries, "count": len(entries)})
}
