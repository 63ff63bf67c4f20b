package repos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rowanlane/diligence-backend/internal/logger"
	"github.com/rowanlane/diligence-backend/internal/types"
)

type KnowledgeEntryRepo interface {
	Create(ctx context.Context, tx *gorm.DB, entry *types.KnowledgeEntry) (*types.KnowledgeEntry, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.KnowledgeEntry, error)
	List(ctx context.Context, tx *gorm.DB, status string) ([]*types.KnowledgeEntry, error)
	ListApprovedByUsage(ctx context.Context, tx *gorm.DB, limit int) ([]*types.KnowledgeEntry, error)
	IncrementUsage(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
	UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, fields map[string]interface{}) error
}

type knowledgeEntryRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewKnowledgeEntryRepo(db *gorm.DB, baseLog *logger.Logger) KnowledgeEntryRepo {
	return &knowledgeEntryRepo{db: db, log: baseLog.With("repo", "KnowledgeEntryRepo")}
}

func (r *knowledgeEntryRepo) Create(ctx context.Context, tx *gorm.DB, entry *types.KnowledgeEntry) (*types.KnowledgeEntry, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if err := transaction.WithContext(ctx).Create(entry).Error; err != nil {
		return nil, err
	}
	return entry, nil
}

func (r *knowledgeEntryRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.KnowledgeEntry, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var result types.KnowledgeEntry
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

func (r *knowledgeEntryRepo) List(ctx context.Context, tx *gorm.DB, status string) ([]*types.KnowledgeEntry, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.KnowledgeEntry
	q := transaction.WithContext(ctx).Order("created_at DESC")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	if err := q.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *knowledgeEntryRepo) ListApprovedByUsage(ctx context.Context, tx *gorm.DB, limit int) ([]*types.KnowledgeEntry, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.KnowledgeEntry
	q := transaction.WithContext(ctx).
		Where("status = ?", types.EntryStatusApproved).
		Order("usage_count DESC, created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *knowledgeEntryRepo) IncrementUsage(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if err := transaction.WithContext(ctx).
		Model(&types.KnowledgeEntry{}).
		Where("id = ?", id).
		UpdateColumn("usage_count", gorm.Expr("usage_count + 1")).Error; err != nil {
		return err
	}
	return nil
}

func (r *knowledgeEntryRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, fields map[string]interface{}) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(fields) == 0 {
		return nil
	}

	if err := transaction.WithContext(ctx).
		Model(&types.KnowledgeEntry{}).
		Where("id = ?", id).
		Updates(fields).Error; err != nil {
		return err
	}
	return nil
}
