package repos

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rowanlane/diligence-backend/internal/logger"
	"github.com/rowanlane/diligence-backend/internal/types"
)

type CorrectionRepo interface {
	Create(ctx context.Context, tx *gorm.DB, corrections []*types.Correction) ([]*types.Correction, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Correction, error)
	ListByReportID(ctx context.Context, tx *gorm.DB, reportID uuid.UUID) ([]*types.Correction, error)
	ListApproved(ctx context.Context, tx *gorm.DB) ([]*types.Correction, error)
	ListApprovedSince(ctx context.Context, tx *gorm.DB, since time.Time) ([]*types.Correction, error)
	ListApprovedByAgency(ctx context.Context, tx *gorm.DB, agency string, limit int) ([]*types.Correction, error)
	ListRecentApproved(ctx context.Context, tx *gorm.DB, limit int) ([]*types.Correction, error)
	UpdateReview(ctx context.Context, tx *gorm.DB, id uuid.UUID, status string, reviewerID uuid.UUID, reviewedAt time.Time) error
}

type correctionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCorrectionRepo(db *gorm.DB, baseLog *logger.Logger) CorrectionRepo {
	return &correctionRepo{db: db, log: baseLog.With("repo", "CorrectionRepo")}
}

func (r *correctionRepo) Create(ctx context.Context, tx *gorm.DB, corrections []*types.Correction) ([]*types.Correction, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(corrections) == 0 {
		return []*types.Correction{}, nil
	}

	if err := transaction.WithContext(ctx).Create(&corrections).Error; err != nil {
		return nil, err
	}
	return corrections, nil
}

func (r *correctionRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Correction, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var result types.Correction
	if err := transaction.WithContext(ctx).
		Where("id = ?", id).
		First(&result).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &result, nil
}

func (r *correctionRepo) ListByReportID(ctx context.Context, tx *gorm.DB, reportID uuid.UUID) ([]*types.Correction, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.Correction
	if reportID == uuid.Nil {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("report_id = ?", reportID).
		Order("created_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *correctionRepo) ListApproved(ctx context.Context, tx *gorm.DB) ([]*types.Correction, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.Correction
	if err := transaction.WithContext(ctx).
		Where("status = ?", types.CorrectionStatusApproved).
		Order("created_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *correctionRepo) ListApprovedSince(ctx context.Context, tx *gorm.DB, since time.Time) ([]*types.Correction, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.Correction
	if err := transaction.WithContext(ctx).
		Where("status = ? AND created_at >= ?", types.CorrectionStatusApproved, since).
		Order("created_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *correctionRepo) ListApprovedByAgency(ctx context.Context, tx *gorm.DB, agency string, limit int) ([]*types.Correction, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.Correction
	if agency == "" {
		return results, nil
	}

	q := transaction.WithContext(ctx).
		Where("status = ? AND agency = ?", types.CorrectionStatusApproved, agency).
		Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *correctionRepo) ListRecentApproved(ctx context.Context, tx *gorm.DB, limit int) ([]*types.Correction, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.Correction
	q := transaction.WithContext(ctx).
		Where("status = ?", types.CorrectionStatusApproved).
		Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *correctionRepo) UpdateReview(ctx context.Context, tx *gorm.DB, id uuid.UUID, status string, reviewerID uuid.UUID, reviewedAt time.Time) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if err := transaction.WithContext(ctx).
		Model(&types.Correction{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":      status,
			"reviewer_id": reviewerID,
			"reviewed_at": reviewedAt,
		}).Error; err != nil {
		return err
	}
	return nil
}
