package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// CorrelationResult is one computed (feature, target, estimator) association.
// Rows for a version are replaced wholesale on each pipeline run.
type CorrelationResult struct {
	ID              uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	FeatureName     string    `gorm:"column:feature_name;not null;index" json:"feature_name"`
	TargetName      string    `gorm:"column:target_name;not null;index" json:"target_name"`
	MetricType      string    `gorm:"column:metric_type;not null" json:"metric_type"`
	Correlation     float64   `gorm:"column:correlation;not null" json:"correlation"`
	PValue          float64   `gorm:"column:p_value;not null" json:"p_value"`
	NSamples        int       `gorm:"column:n_samples;not null" json:"n_samples"`
	AnalysisVersion string    `gorm:"column:analysis_version;not null;index" json:"analysis_version"`
	ComputedAt      time.Time `gorm:"column:computed_at;not null" json:"computed_at"`
}

func (CorrelationResult) TableName() string {
	return "correlation_results"
}

// ModelBaselineResult is one (target, model, metric) row from a training run.
// UsedFeatures and FeatureImportances are JSON so the query service can serve
// them without further joins.
type ModelBaselineResult struct {
	ID                 uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	TargetName         string         `gorm:"column:target_name;not null;index" json:"target_name"`
	ModelType          string         `gorm:"column:model_type;not null;index" json:"model_type"`
	ModelVersion       string         `gorm:"column:model_version;not null;index" json:"model_version"`
	MetricName         string         `gorm:"column:metric_name;not null" json:"metric_name"`
	MetricValue        float64        `gorm:"column:metric_value;not null" json:"metric_value"`
	UsedFeatures       datatypes.JSON `gorm:"type:jsonb;column:used_features" json:"used_features"`
	NTrain             int            `gorm:"column:n_train;not null" json:"n_train"`
	NTest              int            `gorm:"column:n_test;not null" json:"n_test"`
	SplitRatio         float64        `gorm:"column:split_ratio;not null" json:"split_ratio"`
	FeatureImportances datatypes.JSON `gorm:"type:jsonb;column:feature_importances" json:"feature_importances"`
	IsBest             bool           `gorm:"column:is_best;not null;default:false" json:"is_best"`
	ComputedAt         time.Time      `gorm:"column:computed_at;not null" json:"computed_at"`
}

func (ModelBaselineResult) TableName() string {
	return "model_baseline_results"
}
