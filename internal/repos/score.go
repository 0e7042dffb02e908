package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/OnChainFest/HRkey-App/internal/logger"
	"github.com/OnChainFest/HRkey-App/internal/types"
)

type HRKeyScoreRepo interface {
	ListLatestPerPair(ctx context.Context, tx *gorm.DB) ([]*types.HRKeyScore, error)
}

type hrkeyScoreRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewHRKeyScoreRepo(db *gorm.DB, baseLog *logger.Logger) HRKeyScoreRepo {
	return &hrkeyScoreRepo{
		db:  db,
		log: baseLog.With("repo", "HRKeyScoreRepo"),
	}
}

// ListLatestPerPair returns the most recent score for each (subject, role)
// pair. Ordering by computed_at descending and keeping the first occurrence
// makes "latest" deterministic even when timestamps collide.
func (r *hrkeyScoreRepo) ListLatestPerPair(ctx context.Context, tx *gorm.DB) ([]*types.HRKeyScore, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var rows []*types.HRKeyScore
	if err := transaction.WithContext(ctx).
		Order("subject_id, role_id, computed_at DESC, id").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	type pairKey struct {
		subject uuid.UUID
		role    uuid.UUID
	}
	seen := map[pairKey]bool{}
	out := make([]*types.HRKeyScore, 0, len(rows))
	for _, row := range rows {
		key := pairKey{subject: row.SubjectID, role: row.RoleID}
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, row)
	}
	return out, nil
}
