package repos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rowanlane/diligence-backend/internal/logger"
	"github.com/rowanlane/diligence-backend/internal/types"
)

type KnowledgeCandidateRepo interface {
	Create(ctx context.Context, tx *gorm.DB, candidate *types.KnowledgeCandidate) (*types.KnowledgeCandidate, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.KnowledgeCandidate, error)
	List(ctx context.Context, tx *gorm.DB, status string) ([]*types.KnowledgeCandidate, error)
	ListByStatuses(ctx context.Context, tx *gorm.DB, statuses []string) ([]*types.KnowledgeCandidate, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, fields map[string]interface{}) error
}

type knowledgeCandidateRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewKnowledgeCandidateRepo(db *gorm.DB, baseLog *logger.Logger) KnowledgeCandidateRepo {
	return &knowledgeCandidateRepo{db: db, log: baseLog.With("repo", "KnowledgeCandidateRepo")}
}

func (r *knowledgeCandidateRepo) Create(ctx context.Context, tx *gorm.DB, candidate *types.KnowledgeCandidate) (*types.KnowledgeCandidate, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if err := transaction.WithContext(ctx).Create(candidate).Error; err != nil {
		return nil, err
	}
	return candidate, nil
}

func (r *knowledgeCandidateRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.KnowledgeCandidate, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var result types.KnowledgeCandidate
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

func (r *knowledgeCandidateRepo) List(ctx context.Context, tx *gorm.DB, status string) ([]*types.KnowledgeCandidate, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.KnowledgeCandidate
	q := transaction.WithContext(ctx).Order("demand_score DESC, created_at DESC")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	if err := q.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *knowledgeCandidateRepo) ListByStatuses(ctx context.Context, tx *gorm.DB, statuses []string) ([]*types.KnowledgeCandidate, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.KnowledgeCandidate
	if len(statuses) == 0 {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("status IN ?", statuses).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *knowledgeCandidateRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, fields map[string]interface{}) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(fields) == 0 {
		return nil
	}

	if err := transaction.WithContext(ctx).
		Model(&types.KnowledgeCandidate{}).
		Where("id = ?", id).
		Updates(fields).Error; err != nil {
		return err
	}
	return nil
}
