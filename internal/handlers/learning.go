package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/rowanlane/diligence-backend/internal/logger"
	"github.com/rowanlane/diligence-backend/internal/services"
)

type LearningHandler struct {
	log       *logger.Logger
	accuracy  services.AccuracyService
	gaps      services.GapDetectionService
	knowledge services.KnowledgeService
	prompts   services.PromptContextService
}

func NewLearningHandler(
	log *logger.Logger,
	accuracy services.AccuracyService,
	gaps services.GapDetectionService,
	knowledge services.KnowledgeService,
	prompts services.PromptContextService,
) *LearningHandler {
	return &LearningHandler{
		log:       log.With("handler", "LearningHandler"),
		accuracy:  accuracy,
		gaps:      gaps,
		knowledge: knowledge,
		prompts:   prompts,
	}
}

type refreshAccuracyRequest struct {
	SkipGapDetection bool `json:"skip_gap_detection"`
}

// POST /api/learning/refresh-accuracy
func (h *LearningHandler) RefreshAccuracy(c *gin.Context) {
	var req refreshAccuracyRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", err)
			return
		}
	}

	result, err := h.accuracy.Recompute(c.Request.Context(), req.SkipGapDetection)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, result)
}

// POST /api/learning/detect-gaps
func (h *LearningHandler) DetectGaps(c *gin.Context) {
	summary, err := h.gaps.DetectGaps(c.Request.Context())
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, summary)
}

type generateEntryRequest struct {
	CandidateID uuid.UUID `json:"candidate_id" binding:"required"`
}

// POST /api/learning/knowledge/generate
func (h *LearningHandler) GenerateEntry(c *gin.Context) {
	var req generateEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", err)
		return
	}

	entry, err := h.knowledge.GenerateEntry(c.Request.Context(), req.CandidateID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"entry": entry})
}

// POST /api/learning/knowledge/:id/review
func (h *LearningHandler) ReviewEntry(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", errors.New("invalid entry id"))
		return
	}
	var req reviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", err)
		return
	}

	entry, err := h.knowledge.ReviewEntry(c.Request.Context(), id, *req.Approve, req.ReviewerID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"entry": entry})
}

type learningExamplesRequest struct {
	Agencies       []string `json:"agencies"`
	ViolationTypes []string `json:"violation_types"`
}

// POST /api/learning/examples
func (h *LearningHandler) LearningExamples(c *gin.Context) {
	var req learningExamplesRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", err)
			return
		}
	}

	context, err := h.prompts.BuildContext(c.Request.Context(), req.Agencies, req.ViolationTypes)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, context)
}

// GET /api/learning/accuracy
func (h *LearningHandler) ListAccuracy(c *gin.Context) {
	stats, err := h.accuracy.ListStats(c.Request.Context())
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"stats": stats})
}

// GET /api/learning/candidates
func (h *LearningHandler) ListCandidates(c *gin.Context) {
	candidates, err := h.gaps.ListCandidates(c.Request.Context(), c.Query("status"))
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"candidates": candidates})
}

// GET /api/learning/entries
func (h *LearningHandler) ListEntries(c *gin.Context) {
	entries, err := h.knowledge.ListEntries(c.Request.Context(), c.Query("status"))
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"entries": entries})
}
