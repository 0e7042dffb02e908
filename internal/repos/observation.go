package repos

import (
	"context"

	"gorm.io/gorm"

	"github.com/OnChainFest/HRkey-App/internal/logger"
	"github.com/OnChainFest/HRkey-App/internal/types"
)

type ObservationRepo interface {
	ListAll(ctx context.Context, tx *gorm.DB) ([]*types.KpiObservation, error)
	CountAll(ctx context.Context, tx *gorm.DB) (int64, error)
}

type observationRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewObservationRepo(db *gorm.DB, baseLog *logger.Logger) ObservationRepo {
	return &observationRepo{
		db:  db,
		log: baseLog.With("repo", "ObservationRepo"),
	}
}

// ListAll returns every KPI observation in a deterministic order so that
// downstream aggregation is reproducible run to run.
func (r *observationRepo) ListAll(ctx context.Context, tx *gorm.DB) ([]*types.KpiObservation, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.KpiObservation
	if err := transaction.WithContext(ctx).
		Order("subject_id, role_id, kpi_name, created_at, observer_id").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *observationRepo) CountAll(ctx context.Context, tx *gorm.DB) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.KpiObservation{}).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
