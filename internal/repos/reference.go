package repos

import (
	"context"

	"gorm.io/gorm"

	"github.com/OnChainFest/HRkey-App/internal/logger"
	"github.com/OnChainFest/HRkey-App/internal/types"
)

type ReferenceReviewRepo interface {
	ListAll(ctx context.Context, tx *gorm.DB) ([]*types.ReferenceReview, error)
}

type referenceReviewRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewReferenceReviewRepo(db *gorm.DB, baseLog *logger.Logger) ReferenceReviewRepo {
	return &referenceReviewRepo{
		db:  db,
		log: baseLog.With("repo", "ReferenceReviewRepo"),
	}
}

func (r *referenceReviewRepo) ListAll(ctx context.Context, tx *gorm.DB) ([]*types.ReferenceReview, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.ReferenceReview
	if err := transaction.WithContext(ctx).
		Order("subject_id, role_id, created_at").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
