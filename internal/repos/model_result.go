package repos

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/OnChainFest/HRkey-App/internal/logger"
	"github.com/OnChainFest/HRkey-App/internal/types"
)

type ModelResultRepo interface {
	ReplaceVersion(ctx context.Context, tx *gorm.DB, version string, rows []*types.ModelBaselineResult) error
	ListByVersion(ctx context.Context, tx *gorm.DB, version string) ([]*types.ModelBaselineResult, error)
	ListByTargetModel(ctx context.Context, tx *gorm.DB, target, modelType, version string) ([]*types.ModelBaselineResult, error)
	CountByVersion(ctx context.Context, tx *gorm.DB, version string) (int64, error)
}

type modelResultRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewModelResultRepo(db *gorm.DB, baseLog *logger.Logger) ModelResultRepo {
	return &modelResultRepo{
		db:  db,
		log: baseLog.With("repo", "ModelResultRepo"),
	}
}

func (r *modelResultRepo) ReplaceVersion(ctx context.Context, tx *gorm.DB, version string, rows []*types.ModelBaselineResult) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if version == "" {
		return fmt.Errorf("model results: missing version tag")
	}
	return transaction.WithContext(ctx).Transaction(func(txx *gorm.DB) error {
		res := txx.Where("model_version = ?", version).Delete(&types.ModelBaselineResult{})
		if res.Error != nil {
			return fmt.Errorf("delete model_baseline_results version %s: %w", version, res.Error)
		}
		r.log.Info("Deleted prior model results", "version", version, "deleted", res.RowsAffected)
		if len(rows) == 0 {
			return nil
		}
		if err := txx.CreateInBatches(&rows, 200).Error; err != nil {
			return fmt.Errorf("insert model_baseline_results version %s: %w", version, err)
		}
		r.log.Info("Inserted model results", "version", version, "inserted", len(rows))
		return nil
	})
}

func (r *modelResultRepo) ListByVersion(ctx context.Context, tx *gorm.DB, version string) ([]*types.ModelBaselineResult, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.ModelBaselineResult
	if err := transaction.WithContext(ctx).
		Where("model_version = ?", version).
		Order("target_name, model_type, metric_name").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *modelResultRepo) ListByTargetModel(ctx context.Context, tx *gorm.DB, target, modelType, version string) ([]*types.ModelBaselineResult, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	query := transaction.WithContext(ctx).
		Where("target_name = ? AND model_type = ?", target, modelType)
	if version != "" {
		query = query.Where("model_version = ?", version)
	}
	var out []*types.ModelBaselineResult
	if err := query.
		Order("metric_name").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *modelResultRepo) CountByVersion(ctx context.Context, tx *gorm.DB, version string) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.ModelBaselineResult{}).
		Where("model_version = ?", version).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
