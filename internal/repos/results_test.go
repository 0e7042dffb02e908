package repos

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/OnChainFest/HRkey-App/internal/logger"
	"github.com/OnChainFest/HRkey-App/internal/types"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("dev")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	return log
}

// testDB opens an in-memory sqlite database and creates the result tables by
// hand; the production defaults lean on postgres extensions sqlite lacks.
func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	ddl := []string{
		`CREATE TABLE correlation_results (
			id TEXT PRIMARY KEY,
			feature_name TEXT NOT NULL,
			target_name TEXT NOT NULL,
			metric_type TEXT NOT NULL,
			correlation REAL NOT NULL,
			p_value REAL NOT NULL,
			n_samples INTEGER NOT NULL,
			analysis_version TEXT NOT NULL,
			computed_at DATETIME NOT NULL
		)`,
		`CREATE TABLE model_baseline_results (
			id TEXT PRIMARY KEY,
			target_name TEXT NOT NULL,
			model_type TEXT NOT NULL,
			model_version TEXT NOT NULL,
			metric_name TEXT NOT NULL,
			metric_value REAL NOT NULL,
			used_features TEXT,
			n_train INTEGER NOT NULL,
			n_test INTEGER NOT NULL,
			split_ratio REAL NOT NULL,
			feature_importances TEXT,
			is_best INTEGER NOT NULL DEFAULT 0,
			computed_at DATETIME NOT NULL
		)`,
	}
	for _, stmt := range ddl {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("create table: %v", err)
		}
	}
	return db
}

func corrRow(feature, target, metric, version string, corr, p float64) *types.CorrelationResult {
	return &types.CorrelationResult{
		ID:              uuid.New(),
		FeatureName:     feature,
		TargetName:      target,
		MetricType:      metric,
		Correlation:     corr,
		PValue:          p,
		NSamples:        40,
		AnalysisVersion: version,
		ComputedAt:      time.Now().UTC(),
	}
}

func TestReplaceVersionIsIdempotent(t *testing.T) {
	repo := NewCorrelationResultRepo(testDB(t), testLogger(t))
	ctx := context.Background()

	rows := []*types.CorrelationResult{
		corrRow("kpi_a_avg_rating", "performance_score", "pearson", "v1.0", 0.8, 0.001),
		corrRow("kpi_b_avg_rating", "performance_score", "pearson", "v1.0", 0.5, 0.01),
	}
	if err := repo.ReplaceVersion(ctx, nil, "v1.0", rows); err != nil {
		t.Fatalf("first ReplaceVersion: %v", err)
	}
	rerun := []*types.CorrelationResult{
		corrRow("kpi_a_avg_rating", "performance_score", "pearson", "v1.0", 0.81, 0.001),
		corrRow("kpi_b_avg_rating", "performance_score", "pearson", "v1.0", 0.52, 0.01),
	}
	if err := repo.ReplaceVersion(ctx, nil, "v1.0", rerun); err != nil {
		t.Fatalf("second ReplaceVersion: %v", err)
	}
	count, err := repo.CountByVersion(ctx, nil, "v1.0")
	if err != nil {
		t.Fatalf("CountByVersion: %v", err)
	}
	if count != 2 {
		t.Fatalf("count after rerun = %d, want 2 (replace, not append)", count)
	}
	listed, err := repo.ListByVersion(ctx, nil, "v1.0")
	if err != nil {
		t.Fatalf("ListByVersion: %v", err)
	}
	if listed[0].Correlation != 0.81 {
		t.Fatalf("rerun values not stored: %v", listed[0].Correlation)
	}
}

func TestReplaceVersionLeavesOtherVersions(t *testing.T) {
	repo := NewCorrelationResultRepo(testDB(t), testLogger(t))
	ctx := context.Background()

	if err := repo.ReplaceVersion(ctx, nil, "v1.0",
		[]*types.CorrelationResult{corrRow("kpi_a_avg_rating", "hired", "pearson", "v1.0", 0.3, 0.04)}); err != nil {
		t.Fatalf("ReplaceVersion v1.0: %v", err)
	}
	if err := repo.ReplaceVersion(ctx, nil, "v2.0",
		[]*types.CorrelationResult{corrRow("kpi_a_avg_rating", "hired", "pearson", "v2.0", 0.4, 0.03)}); err != nil {
		t.Fatalf("ReplaceVersion v2.0: %v", err)
	}
	count, err := repo.CountByVersion(ctx, nil, "v1.0")
	if err != nil {
		t.Fatalf("CountByVersion: %v", err)
	}
	if count != 1 {
		t.Fatalf("v1.0 rows = %d after writing v2.0, want 1", count)
	}
}

func TestReplaceVersionRequiresTag(t *testing.T) {
	repo := NewCorrelationResultRepo(testDB(t), testLogger(t))
	if err := repo.ReplaceVersion(context.Background(), nil, "", nil); err == nil {
		t.Fatalf("expected error for empty version tag")
	}
}

func TestTopByTargetOrderingAndFilters(t *testing.T) {
	repo := NewCorrelationResultRepo(testDB(t), testLogger(t))
	ctx := context.Background()

	rows := []*types.CorrelationResult{
		corrRow("weak", "performance_score", "pearson", "v1.0", 0.2, 0.3),
		corrRow("strong_neg", "performance_score", "pearson", "v1.0", -0.9, 0.001),
		corrRow("strong_pos", "performance_score", "spearman", "v1.0", 0.7, 0.002),
		corrRow("other_target", "hired", "pearson", "v1.0", 0.95, 0.001),
	}
	if err := repo.ReplaceVersion(ctx, nil, "v1.0", rows); err != nil {
		t.Fatalf("ReplaceVersion: %v", err)
	}

	top, err := repo.TopByTarget(ctx, nil, "performance_score", "", 0, 10)
	if err != nil {
		t.Fatalf("TopByTarget: %v", err)
	}
	if len(top) != 3 {
		t.Fatalf("top = %d rows, want 3 for the target", len(top))
	}
	if top[0].FeatureName != "strong_neg" {
		t.Fatalf("first by |correlation| = %q, want strong_neg", top[0].FeatureName)
	}

	pearsonOnly, err := repo.TopByTarget(ctx, nil, "performance_score", "pearson", 0, 10)
	if err != nil {
		t.Fatalf("TopByTarget pearson: %v", err)
	}
	for _, r := range pearsonOnly {
		if r.MetricType != "pearson" {
			t.Fatalf("metric filter leaked %q", r.MetricType)
		}
	}

	significant, err := repo.TopByTarget(ctx, nil, "performance_score", "", 0.05, 10)
	if err != nil {
		t.Fatalf("TopByTarget maxP: %v", err)
	}
	if len(significant) != 2 {
		t.Fatalf("significant rows = %d, want 2", len(significant))
	}
}

func modelRow(target, modelType, version, metric string, value float64, best bool) *types.ModelBaselineResult {
	features, _ := json.Marshal([]string{"kpi_a_avg_rating"})
	importances, _ := json.Marshal(map[string]float64{"kpi_a_avg_rating": 1})
	return &types.ModelBaselineResult{
		ID:                 uuid.New(),
		TargetName:         target,
		ModelType:          modelType,
		ModelVersion:       version,
		MetricName:         metric,
		MetricValue:        value,
		UsedFeatures:       features,
		NTrain:             32,
		NTest:              8,
		SplitRatio:         0.2,
		FeatureImportances: importances,
		IsBest:             best,
		ComputedAt:         time.Now().UTC(),
	}
}

func TestModelResultReplaceAndQuery(t *testing.T) {
	repo := NewModelResultRepo(testDB(t), testLogger(t))
	ctx := context.Background()

	rows := []*types.ModelBaselineResult{
		modelRow("performance_score", "ridge_regression", "v1.0", "r2_test", 0.91, true),
		modelRow("performance_score", "ridge_regression", "v1.0", "mae_test", 2.1, true),
		modelRow("performance_score", "linear_regression", "v1.0", "r2_test", 0.90, false),
	}
	if err := repo.ReplaceVersion(ctx, nil, "v1.0", rows); err != nil {
		t.Fatalf("ReplaceVersion: %v", err)
	}
	if err := repo.ReplaceVersion(ctx, nil, "v1.0", rows); err != nil {
		t.Fatalf("rerun ReplaceVersion: %v", err)
	}
	count, err := repo.CountByVersion(ctx, nil, "v1.0")
	if err != nil {
		t.Fatalf("CountByVersion: %v", err)
	}
	if count != 3 {
		t.Fatalf("count after rerun = %d, want 3", count)
	}

	ridge, err := repo.ListByTargetModel(ctx, nil, "performance_score", "ridge_regression", "v1.0")
	if err != nil {
		t.Fatalf("ListByTargetModel: %v", err)
	}
	if len(ridge) != 2 {
		t.Fatalf("ridge rows = %d, want 2 metrics", len(ridge))
	}
	for _, r := range ridge {
		if !r.IsBest {
			t.Fatalf("ridge rows must be flagged best")
		}
		var imp map[string]float64
		if err := json.Unmarshal(r.FeatureImportances, &imp); err != nil {
			t.Fatalf("importances not valid JSON: %v", err)
		}
	}
}
