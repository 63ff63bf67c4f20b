package repos

import (
	"context"

	"gorm.io/gorm"

	"github.com/rowanlane/diligence-backend/internal/logger"
	"github.com/rowanlane/diligence-backend/internal/types"
)

// ReportRepo is read-only here: report rows are owned by the report-generation
// pipeline and consumed for accuracy denominators.
type ReportRepo interface {
	ListWithNotes(ctx context.Context, tx *gorm.DB) ([]*types.Report, error)
}

type reportRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewReportRepo(db *gorm.DB, baseLog *logger.Logger) ReportRepo {
	return &reportRepo{db: db, log: baseLog.With("repo", "ReportRepo")}
}

func (r *reportRepo) ListWithNotes(ctx context.Context, tx *gorm.DB) ([]*types.Report, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.Report
	if err := transaction.WithContext(ctx).
		Where("line_item_notes IS NOT NULL").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
