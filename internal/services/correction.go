package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rowanlane/diligence-backend/internal/logger"
	"github.com/rowanlane/diligence-backend/internal/repos"
	"github.com/rowanlane/diligence-backend/internal/types"
)

type CorrectionInput struct {
	ReportID       uuid.UUID `json:"report_id" binding:"required"`
	ItemType       string    `json:"item_type" binding:"required"`
	ItemIdentifier string    `json:"item_identifier" binding:"required"`
	Agency         string    `json:"agency" binding:"required"`
	OriginalNote   *string   `json:"original_note"`
	EditedNote     string    `json:"edited_note" binding:"required"`
	ErrorCategory  string    `json:"error_category" binding:"required"`
}

// BatchItemResult reports the outcome for one item of a batch create.
type BatchItemResult struct {
	Index int        `json:"index"`
	ID    *uuid.UUID `json:"id,omitempty"`
	Error string     `json:"error,omitempty"`
}

type CorrectionService interface {
	Create(ctx context.Context, input CorrectionInput) (*types.Correction, error)
	CreateBatch(ctx context.Context, inputs []CorrectionInput) ([]BatchItemResult, error)
	Review(ctx context.Context, id uuid.UUID, approve bool, reviewerID uuid.UUID) (*types.Correction, error)
	ListByReport(ctx context.Context, reportID uuid.UUID) ([]*types.Correction, error)
}

type correctionService struct {
	db          *gorm.DB
	log         *logger.Logger
	corrections repos.CorrectionRepo
}

func NewCorrectionService(db *gorm.DB, baseLog *logger.Logger, corrections repos.CorrectionRepo) CorrectionService {
	return &correctionService{
		db:          db,
		log:         baseLog.With("service", "CorrectionService"),
		corrections: corrections,
	}
}

func validateCorrectionInput(input CorrectionInput) error {
	validItem := false
	for _, t := range types.ItemTypes {
		if input.ItemType == t {
			validItem = true
			break
		}
	}
	if !validItem {
		return fmt.Errorf("%w: %q", ErrInvalidItemType, input.ItemType)
	}

	validCategory := false
	for _, c := range types.ErrorCategories {
		if input.ErrorCategory == c {
			validCategory = true
			break
		}
	}
	if !validCategory {
		return fmt.Errorf("%w: %q", ErrInvalidErrorCategory, input.ErrorCategory)
	}

	edited := strings.TrimSpace(input.EditedNote)
	if edited == "" {
		return fmt.Errorf("%w: empty edited note", ErrNoSignal)
	}
	if input.OriginalNote != nil && strings.TrimSpace(*input.OriginalNote) == edited {
		return ErrNoSignal
	}
	return nil
}

func (s *correctionService) Create(ctx context.Context, input CorrectionInput) (*types.Correction, error) {
	if err := validateCorrectionInput(input); err != nil {
		return nil, err
	}

	correction := &types.Correction{
		ID:             uuid.New(),
		ReportID:       input.ReportID,
		ItemType:       input.ItemType,
		ItemIdentifier: input.ItemIdentifier,
		Agency:         input.Agency,
		OriginalNote:   input.OriginalNote,
		EditedNote:     input.EditedNote,
		ErrorCategory:  input.ErrorCategory,
		Status:         types.CorrectionStatusPending,
		CreatedAt:      time.Now().UTC(),
	}

	created, err := s.corrections.Create(ctx, nil, []*types.Correction{correction})
	if err != nil {
		return nil, fmt.Errorf("create correction: %w", err)
	}
	return created[0], nil
}

func (s *correctionService) CreateBatch(ctx context.Context, inputs []CorrectionInput) ([]BatchItemResult, error) {
	results := make([]BatchItemResult, len(inputs))
	var valid []*types.Correction
	var validIdx []int

	for i, input := range inputs {
		results[i] = BatchItemResult{Index: i}
		if err := validateCorrectionInput(input); err != nil {
			results[i].Error = err.Error()
			continue
		}
		correction := &types.Correction{
			ID:             uuid.New(),
			ReportID:       input.ReportID,
			ItemType:       input.ItemType,
			ItemIdentifier: input.ItemIdentifier,
			Agency:         input.Agency,
			OriginalNote:   input.OriginalNote,
			EditedNote:     input.EditedNote,
			ErrorCategory:  input.ErrorCategory,
			Status:         types.CorrectionStatusPending,
			CreatedAt:      time.Now().UTC(),
		}
		valid = append(valid, correction)
		validIdx = append(validIdx, i)
	}

	if len(valid) > 0 {
		if _, err := s.corrections.Create(ctx, nil, valid); err != nil {
			return nil, fmt.Errorf("create corrections: %w", err)
		}
		for j, i := range validIdx {
			id := valid[j].ID
			results[i].ID = &id
		}
	}
	return results, nil
}

func (s *correctionService) Review(ctx context.Context, id uuid.UUID, approve bool, reviewerID uuid.UUID) (*types.Correction, error) {
	correction, err := s.corrections.GetByID(ctx, nil, id)
	if err != nil {
		return nil, fmt.Errorf("load correction: %w", err)
	}
	if correction == nil {
		return nil, ErrCorrectionNotFound
	}
	if correction.Status != types.CorrectionStatusPending {
		return nil, ErrAlreadyReviewed
	}

	status := types.CorrectionStatusRejected
	if approve {
		status = types.CorrectionStatusApproved
	}
	reviewedAt := time.Now().UTC()
	if err := s.corrections.UpdateReview(ctx, nil, id, status, reviewerID, reviewedAt); err != nil {
		return nil, fmt.Errorf("update correction review: %w", err)
	}

	correction.Status = status
	correction.ReviewedAt = &reviewedAt
	correction.ReviewerID = &reviewerID
	return correction, nil
}

func (s *correctionService) ListByReport(ctx context.Context, reportID uuid.UUID) ([]*types.Correction, error) {
	return s.corrections.ListByReportID(ctx, nil, reportID)
}
