package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/naksha/availability-core/internal/coreerr"
	"github.com/naksha/availability-core/internal/models"
	"github.com/naksha/availability-core/internal/patternengine"
	"github.com/naksha/availability-core/internal/store"
	"github.com/naksha/availability-core/pkg/logger"
)

// PatternHandler exposes the Pattern Engine over HTTP. Every route here
// depends on an identity already resolved by upstream auth middleware —
// this package never authenticates (SPEC_FULL.md §6a).
type PatternHandler struct {
	engine *patternengine.Engine
	log    logger.Logger
}

func NewPatternHandler(engine *patternengine.Engine, log logger.Logger) *PatternHandler {
	return &PatternHandler{engine: engine, log: logger.ComponentLogger(log, "pattern_handler")}
}

func consultantID(c *gin.Context) string {
	return c.GetString("consultant_id")
}

func consultantSlug(c *gin.Context) string {
	return c.GetString("consultant_slug")
}

// List handles GET /availability/patterns.
func (h *PatternHandler) List(c *gin.Context) {
	patterns, err := h.engine.List(c.Request.Context(), consultantID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, patterns)
}

type createPatternRequest struct {
	SessionType models.SessionType `json:"sessionType" binding:"required"`
	DayOfWeek   int                `json:"dayOfWeek"`
	StartTime   string             `json:"startTime" binding:"required"`
	EndTime     string             `json:"endTime" binding:"required"`
	Timezone    string             `json:"timezone"`
}

// Create handles POST /availability/patterns.
func (h *PatternHandler) Create(c *gin.Context) {
	var req createPatternRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, coreerr.Wrap(coreerr.BadInput, err, "invalid request body"))
		return
	}
	p, err := h.engine.Create(c.Request.Context(), consultantID(c), patternengine.CreateInput{
		SessionType: req.SessionType,
		DayOfWeek:   req.DayOfWeek,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		Timezone:    req.Timezone,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusCreated, p)
}

type updatePatternRequest struct {
	StartTime *string `json:"startTime"`
	EndTime   *string `json:"endTime"`
	IsActive  *bool   `json:"isActive"`
}

// Update handles PUT /availability/patterns/:id.
func (h *PatternHandler) Update(c *gin.Context) {
	var req updatePatternRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, coreerr.Wrap(coreerr.BadInput, err, "invalid request body"))
		return
	}
	p, err := h.engine.Update(c.Request.Context(), consultantID(c), c.Param("id"), store.PatternDelta{
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		IsActive:  req.IsActive,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, p)
}

// Delete handles DELETE /availability/patterns/:id.
func (h *PatternHandler) Delete(c *gin.Context) {
	if err := h.engine.Delete(c.Request.Context(), consultantID(c), consultantSlug(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"deleted": true})
}

type bulkReplacePatternRequest struct {
	Patterns []createPatternRequest `json:"patterns" binding:"required"`
}

// BulkReplace handles POST /availability/patterns/bulk.
func (h *PatternHandler) BulkReplace(c *gin.Context) {
	var req bulkReplacePatternRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, coreerr.Wrap(coreerr.BadInput, err, "invalid request body"))
		return
	}
	inputs := make([]patternengine.CreateInput, 0, len(req.Patterns))
	for _, p := range req.Patterns {
		inputs = append(inputs, patternengine.CreateInput{
			SessionType: p.SessionType,
			DayOfWeek:   p.DayOfWeek,
			StartTime:   p.StartTime,
			EndTime:     p.EndTime,
			Timezone:    p.Timezone,
		})
	}
	_, created, err := h.engine.BulkReplace(c.Request.Context(), consultantID(c), consultantSlug(c), inputs)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, created)
}
