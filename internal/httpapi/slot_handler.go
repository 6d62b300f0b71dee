package httpapi

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/naksha/availability-core/internal/coreerr"
	"github.com/naksha/availability-core/internal/models"
	"github.com/naksha/availability-core/internal/queryfacade"
	"github.com/naksha/availability-core/internal/slotgen"
	"github.com/naksha/availability-core/internal/timeutil"
	"github.com/naksha/availability-core/pkg/logger"
)

// SlotHandler exposes slot generation (authenticated) and the public slot
// listing (C5 and C8 respectively).
type SlotHandler struct {
	generator   *slotgen.Generator
	facade      *queryfacade.Facade
	horizonDays int
	log         logger.Logger
}

func NewSlotHandler(generator *slotgen.Generator, facade *queryfacade.Facade, horizonDays int, log logger.Logger) *SlotHandler {
	return &SlotHandler{generator: generator, facade: facade, horizonDays: horizonDays, log: logger.ComponentLogger(log, "slot_handler")}
}

type generateSlotsRequest struct {
	StartDate   string             `json:"startDate" binding:"required"`
	EndDate     string             `json:"endDate" binding:"required"`
	SessionType models.SessionType `json:"sessionType"`
}

// GenerateSlots handles POST /availability/generate-slots.
func (h *SlotHandler) GenerateSlots(c *gin.Context) {
	var req generateSlotsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, coreerr.Wrap(coreerr.BadInput, err, "invalid request body"))
		return
	}
	startDate, err := timeutil.ParseDate(req.StartDate)
	if err != nil {
		respondError(c, err)
		return
	}
	endDate, err := timeutil.ParseDate(req.EndDate)
	if err != nil {
		respondError(c, err)
		return
	}
	count, err := h.generator.Generate(c.Request.Context(), consultantID(c), startDate, endDate, req.SessionType, h.horizonDays)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"created": count})
}

// PublicSlots handles GET /availability/slots/:slug.
func (h *SlotHandler) PublicSlots(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	page, err := h.facade.ListSlots(c.Request.Context(), queryfacade.ListParams{
		ConsultantSlug: c.Param("slug"),
		SessionType:    models.SessionType(c.Query("sessionType")),
		DateFrom:       c.Query("dateFrom"),
		DateTo:         c.Query("dateTo"),
		Limit:          limit,
		Offset:         offset,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, page)
}
