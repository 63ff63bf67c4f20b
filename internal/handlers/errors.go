package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rowanlane/diligence-backend/internal/services"
)

// RespondServiceError maps service sentinels onto HTTP statuses and stable
// error codes. Anything unrecognized is a 500 INTERNAL.
func RespondServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrNoSignal):
		RespondError(c, http.StatusBadRequest, "NO_SIGNAL", err)
	case errors.Is(err, services.ErrInvalidItemType),
		errors.Is(err, services.ErrInvalidErrorCategory):
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", err)
	case errors.Is(err, services.ErrCorrectionNotFound):
		RespondError(c, http.StatusNotFound, "CORRECTION_NOT_FOUND", err)
	case errors.Is(err, services.ErrCandidateNotFound):
		RespondError(c, http.StatusNotFound, "CANDIDATE_NOT_FOUND", err)
	case errors.Is(err, services.ErrEntryNotFound):
		RespondError(c, http.StatusNotFound, "ENTRY_NOT_FOUND", err)
	case errors.Is(err, services.ErrAlreadyReviewed):
		RespondError(c, http.StatusConflict, "ALREADY_REVIEWED", err)
	case errors.Is(err, services.ErrNoExemplars):
		RespondError(c, http.StatusUnprocessableEntity, "NO_EXEMPLARS", err)
	case errors.Is(err, services.ErrGenerationFailed):
		RespondError(c, http.StatusBadGateway, "GENERATION_FAILED", err)
	default:
		RespondError(c, http.StatusInternalServerError, "INTERNAL", err)
	}
}
