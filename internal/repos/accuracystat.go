package repos

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/rowanlane/diligence-backend/internal/logger"
	"github.com/rowanlane/diligence-backend/internal/types"
)

type AccuracyStatRepo interface {
	Upsert(ctx context.Context, tx *gorm.DB, stat *types.AccuracyStat) error
	ListAll(ctx context.Context, tx *gorm.DB) ([]*types.AccuracyStat, error)
	ListByMinEditRate(ctx context.Context, tx *gorm.DB, minRate float64) ([]*types.AccuracyStat, error)
}

type accuracyStatRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAccuracyStatRepo(db *gorm.DB, baseLog *logger.Logger) AccuracyStatRepo {
	return &accuracyStatRepo{db: db, log: baseLog.With("repo", "AccuracyStatRepo")}
}

func (r *accuracyStatRepo) Upsert(ctx context.Context, tx *gorm.DB, stat *types.AccuracyStat) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if err := transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "agency"}, {Name: "item_type"}, {Name: "violation_type"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"total_notes_generated",
				"total_edits",
				"edit_rate",
				"denominator_estimated",
				"top_error_category",
				"last_updated",
			}),
		}).
		Create(stat).Error; err != nil {
		return err
	}
	return nil
}

func (r *accuracyStatRepo) ListAll(ctx context.Context, tx *gorm.DB) ([]*types.AccuracyStat, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.AccuracyStat
	if err := transaction.WithContext(ctx).
		Order("edit_rate DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *accuracyStatRepo) ListByMinEditRate(ctx context.Context, tx *gorm.DB, minRate float64) ([]*types.AccuracyStat, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.AccuracyStat
	if err := transaction.WithContext(ctx).
		Where("edit_rate > ?", minRate).
		Order("edit_rate DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
