package repos

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/OnChainFest/HRkey-App/internal/logger"
	"github.com/OnChainFest/HRkey-App/internal/types"
)

type CorrelationResultRepo interface {
	// ReplaceVersion deletes every row tagged with version and inserts rows in
	// a single transaction, so a retry after failure is safe and readers never
	// observe a partial state.
	ReplaceVersion(ctx context.Context, tx *gorm.DB, version string, rows []*types.CorrelationResult) error
	ListByVersion(ctx context.Context, tx *gorm.DB, version string) ([]*types.CorrelationResult, error)
	TopByTarget(ctx context.Context, tx *gorm.DB, target, metricType string, maxP float64, limit int) ([]*types.CorrelationResult, error)
	CountByVersion(ctx context.Context, tx *gorm.DB, version string) (int64, error)
}

type correlationResultRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCorrelationResultRepo(db *gorm.DB, baseLog *logger.Logger) CorrelationResultRepo {
	return &correlationResultRepo{
		db:  db,
		log: baseLog.With("repo", "CorrelationResultRepo"),
	}
}

func (r *correlationResultRepo) ReplaceVersion(ctx context.Context, tx *gorm.DB, version string, rows []*types.CorrelationResult) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if version == "" {
		return fmt.Errorf("correlation results: missing version tag")
	}
	return transaction.WithContext(ctx).Transaction(func(txx *gorm.DB) error {
		res := txx.Where("analysis_version = ?", version).Delete(&types.CorrelationResult{})
		if res.Error != nil {
			return fmt.Errorf("delete correlation_results version %s: %w", version, res.Error)
		}
		r.log.Info("Deleted prior correlation results", "version", version, "deleted", res.RowsAffected)
		if len(rows) == 0 {
			return nil
		}
		if err := txx.CreateInBatches(&rows, 200).Error; err != nil {
			return fmt.Errorf("insert correlation_results version %s: %w", version, err)
		}
		r.log.Info("Inserted correlation results", "version", version, "inserted", len(rows))
		return nil
	})
}

func (r *correlationResultRepo) ListByVersion(ctx context.Context, tx *gorm.DB, version string) ([]*types.CorrelationResult, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.CorrelationResult
	if err := transaction.WithContext(ctx).
		Where("analysis_version = ?", version).
		Order("target_name, feature_name, metric_type").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *correlationResultRepo) TopByTarget(ctx context.Context, tx *gorm.DB, target, metricType string, maxP float64, limit int) ([]*types.CorrelationResult, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if limit <= 0 {
		limit = 10
	}
	query := transaction.WithContext(ctx).
		Where("target_name = ?", target)
	if metricType != "" {
		query = query.Where("metric_type = ?", metricType)
	}
	if maxP > 0 {
		query = query.Where("p_value <= ?", maxP)
	}
	var out []*types.CorrelationResult
	if err := query.
		Order("ABS(correlation) DESC, p_value ASC, feature_name ASC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *correlationResultRepo) CountByVersion(ctx context.Context, tx *gorm.DB, version string) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.CorrelationResult{}).
		Where("analysis_version = ?", version).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
