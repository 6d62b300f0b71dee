package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/naksha/availability-core/internal/bookingengine"
	"github.com/naksha/availability-core/internal/coreerr"
	"github.com/naksha/availability-core/internal/models"
	"github.com/naksha/availability-core/pkg/logger"
)

// SessionHandler exposes the Booking Engine (C6) over HTTP: public booking
// admission, authenticated direct session creation, and cancellation.
type SessionHandler struct {
	engine *bookingengine.Engine
	log    logger.Logger
}

func NewSessionHandler(engine *bookingengine.Engine, log logger.Logger) *SessionHandler {
	return &SessionHandler{engine: engine, log: logger.ComponentLogger(log, "session_handler")}
}

type bookSessionRequest struct {
	ConsultantSlug  string             `json:"consultantSlug" binding:"required"`
	SessionType     models.SessionType `json:"sessionType" binding:"required"`
	Date            string             `json:"date" binding:"required"`
	Time            string             `json:"time" binding:"required"`
	DurationMinutes int                `json:"durationMinutes" binding:"required"`
	ClientFullName  string             `json:"clientFullName" binding:"required"`
	ClientEmail     string             `json:"clientEmail" binding:"required"`
	ClientPhone     string             `json:"clientPhone"`
	Amount          float64            `json:"amount"`
	Notes           string             `json:"notes"`
}

// Book handles POST /sessions/book, the public booking admission path.
func (h *SessionHandler) Book(c *gin.Context) {
	var req bookSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, coreerr.Wrap(coreerr.BadInput, err, "invalid request body"))
		return
	}
	session, err := h.engine.Book(c.Request.Context(), bookingengine.BookRequest{
		ConsultantSlug:  req.ConsultantSlug,
		SessionType:     req.SessionType,
		Date:            req.Date,
		Time:            req.Time,
		DurationMinutes: req.DurationMinutes,
		ClientFullName:  req.ClientFullName,
		ClientEmail:     req.ClientEmail,
		ClientPhone:     req.ClientPhone,
		Amount:          req.Amount,
		Notes:           req.Notes,
		BookingSource:   models.BookingSourcePublic,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusCreated, session)
}

// Create handles POST /sessions, authenticated manual session creation
// against an existing slot.
func (h *SessionHandler) Create(c *gin.Context) {
	var req bookSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, coreerr.Wrap(coreerr.BadInput, err, "invalid request body"))
		return
	}
	session, err := h.engine.Book(c.Request.Context(), bookingengine.BookRequest{
		ConsultantSlug:  req.ConsultantSlug,
		SessionType:     req.SessionType,
		Date:            req.Date,
		Time:            req.Time,
		DurationMinutes: req.DurationMinutes,
		ClientFullName:  req.ClientFullName,
		ClientEmail:     req.ClientEmail,
		ClientPhone:     req.ClientPhone,
		Amount:          req.Amount,
		Notes:           req.Notes,
		BookingSource:   models.BookingSourceManuallyAdded,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusCreated, session)
}

// Cancel handles DELETE /sessions/:id.
func (h *SessionHandler) Cancel(c *gin.Context) {
	if err := h.engine.Cancel(c.Request.Context(), c.Param("id"), consultantSlug(c)); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"cancelled": true})
}
