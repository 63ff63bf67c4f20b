package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/rowanlane/diligence-backend/internal/logger"
	"github.com/rowanlane/diligence-backend/internal/services"
)

type CorrectionHandler struct {
	log         *logger.Logger
	corrections services.CorrectionService
}

func NewCorrectionHandler(log *logger.Logger, corrections services.CorrectionService) *CorrectionHandler {
	return &CorrectionHandler{
		log:         log.With("handler", "CorrectionHandler"),
		corrections: corrections,
	}
}

// POST /api/corrections
func (h *CorrectionHandler) Create(c *gin.Context) {
	var input services.CorrectionInput
	if err := c.ShouldBindJSON(&input); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", err)
		return
	}

	correction, err := h.corrections.Create(c.Request.Context(), input)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"correction": correction})
}

type batchCreateRequest struct {
	Corrections []services.CorrectionInput `json:"corrections" binding:"required,min=1"`
}

// POST /api/corrections/batch
func (h *CorrectionHandler) CreateBatch(c *gin.Context) {
	var req batchCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", err)
		return
	}

	results, err := h.corrections.CreateBatch(c.Request.Context(), req.Corrections)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"results": results})
}

type reviewRequest struct {
	Approve    *bool     `json:"approve" binding:"required"`
	ReviewerID uuid.UUID `json:"reviewer_id" binding:"required"`
}

// POST /api/corrections/:id/review
func (h *CorrectionHandler) Review(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", errors.New("invalid correction id"))
		return
	}
	var req reviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", err)
		return
	}

	correction, err := h.corrections.Review(c.Request.Context(), id, *req.Approve, req.ReviewerID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"correction": correction})
}

// GET /api/reports/:id/corrections
func (h *CorrectionHandler) ListByReport(c *gin.Context) {
	reportID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", errors.New("invalid report id"))
		return
	}

	corrections, err := h.corrections.ListByReport(c.Request.Context(), reportID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"corrections": corrections})
}
