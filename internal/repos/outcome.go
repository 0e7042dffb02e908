package repos

import (
	"context"

	"gorm.io/gorm"

	"github.com/OnChainFest/HRkey-App/internal/logger"
	"github.com/OnChainFest/HRkey-App/internal/types"
)

type OutcomeRepo interface {
	ListVerified(ctx context.Context, tx *gorm.DB) ([]*types.JobOutcome, error)
}

type outcomeRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewOutcomeRepo(db *gorm.DB, baseLog *logger.Logger) OutcomeRepo {
	return &outcomeRepo{
		db:  db,
		log: baseLog.With("repo", "OutcomeRepo"),
	}
}

// ListVerified returns only verified outcomes; unverified ones never enter
// the target table.
func (r *outcomeRepo) ListVerified(ctx context.Context, tx *gorm.DB) ([]*types.JobOutcome, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.JobOutcome
	if err := transaction.WithContext(ctx).
		Where("verified = ?", true).
		Order("subject_id, role_id, created_at").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

type RoleRepo interface {
	ListAll(ctx context.Context, tx *gorm.DB) ([]*types.Role, error)
}

type roleRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRoleRepo(db *gorm.DB, baseLog *logger.Logger) RoleRepo {
	return &roleRepo{
		db:  db,
		log: baseLog.With("repo", "RoleRepo"),
	}
}

func (r *roleRepo) ListAll(ctx context.Context, tx *gorm.DB) ([]*types.Role, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Role
	if err := transaction.WithContext(ctx).
		Order("id").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
