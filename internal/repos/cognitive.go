package repos

import (
	"context"

	"gorm.io/gorm"

	"github.com/OnChainFest/HRkey-App/internal/logger"
	"github.com/OnChainFest/HRkey-App/internal/types"
)

type CognitiveScoreRepo interface {
	ListAll(ctx context.Context, tx *gorm.DB) ([]*types.CognitiveScore, error)
}

type cognitiveScoreRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCognitiveScoreRepo(db *gorm.DB, baseLog *logger.Logger) CognitiveScoreRepo {
	return &cognitiveScoreRepo{
		db:  db,
		log: baseLog.With("repo", "CognitiveScoreRepo"),
	}
}

func (r *cognitiveScoreRepo) ListAll(ctx context.Context, tx *gorm.DB) ([]*types.CognitiveScore, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.CognitiveScore
	if err := transaction.WithContext(ctx).
		Order("subject_id, game_type, created_at").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
