package services

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/OnChainFest/HRkey-App/internal/artifacts"
	"github.com/OnChainFest/HRkey-App/internal/dataset"
	"github.com/OnChainFest/HRkey-App/internal/logger"
	"github.com/OnChainFest/HRkey-App/internal/model"
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

type stubObservationRepo struct{ rows []*types.KpiObservation }

func (s *stubObservationRepo) ListAll(ctx context.Context, tx *gorm.DB) ([]*types.KpiObservation, error) {
	return s.rows, nil
}
func (s *stubObservationRepo) CountAll(ctx context.Context, tx *gorm.DB) (int64, error) {
	return int64(len(s.rows)), nil
}

type stubCognitiveRepo struct{ rows []*types.CognitiveScore }

func (s *stubCognitiveRepo) ListAll(ctx context.Context, tx *gorm.DB) ([]*types.CognitiveScore, error) {
	return s.rows, nil
}

type stubReferenceRepo struct{ rows []*types.ReferenceReview }

func (s *stubReferenceRepo) ListAll(ctx context.Context, tx *gorm.DB) ([]*types.ReferenceReview, error) {
	return s.rows, nil
}

type stubOutcomeRepo struct{ rows []*types.JobOutcome }

func (s *stubOutcomeRepo) ListVerified(ctx context.Context, tx *gorm.DB) ([]*types.JobOutcome, error) {
	return s.rows, nil
}

type stubRoleRepo struct{ rows []*types.Role }

func (s *stubRoleRepo) ListAll(ctx context.Context, tx *gorm.DB) ([]*types.Role, error) {
	return s.rows, nil
}

type stubScoreRepo struct{ rows []*types.HRKeyScore }

func (s *stubScoreRepo) ListLatestPerPair(ctx context.Context, tx *gorm.DB) ([]*types.HRKeyScore, error) {
	return s.rows, nil
}

type recordingCorrRepo struct {
	version string
	rows    []*types.CorrelationResult
	calls   int
}

func (r *recordingCorrRepo) ReplaceVersion(ctx context.Context, tx *gorm.DB, version string, rows []*types.CorrelationResult) error {
	r.version, r.rows = version, rows
	r.calls++
	return nil
}
func (r *recordingCorrRepo) ListByVersion(ctx context.Context, tx *gorm.DB, version string) ([]*types.CorrelationResult, error) {
	return r.rows, nil
}
func (r *recordingCorrRepo) TopByTarget(ctx context.Context, tx *gorm.DB, target, metricType string, maxP float64, limit int) ([]*types.CorrelationResult, error) {
	return r.rows, nil
}
func (r *recordingCorrRepo) CountByVersion(ctx context.Context, tx *gorm.DB, version string) (int64, error) {
	return int64(len(r.rows)), nil
}

type recordingModelRepo struct {
	version string
	rows    []*types.ModelBaselineResult
	calls   int
}

func (r *recordingModelRepo) ReplaceVersion(ctx context.Context, tx *gorm.DB, version string, rows []*types.ModelBaselineResult) error {
	r.version, r.rows = version, rows
	r.calls++
	return nil
}
func (r *recordingModelRepo) ListByVersion(ctx context.Context, tx *gorm.DB, version string) ([]*types.ModelBaselineResult, error) {
	return r.rows, nil
}
func (r *recordingModelRepo) ListByTargetModel(ctx context.Context, tx *gorm.DB, target, modelType, version string) ([]*types.ModelBaselineResult, error) {
	return r.rows, nil
}
func (r *recordingModelRepo) CountByVersion(ctx context.Context, tx *gorm.DB, version string) (int64, error) {
	return int64(len(r.rows)), nil
}

func subjectUUID(i int) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(fmt.Sprintf("subject-%03d", i)))
}

// fixture fabricates 40 hired subjects in one role with KPI ratings that
// drive performance, so correlations and models both have signal to find.
func fixture(t *testing.T) (*stubObservationRepo, *stubOutcomeRepo, *stubRoleRepo, *stubScoreRepo) {
	t.Helper()
	role := uuid.NewSHA1(uuid.NameSpaceOID, []byte("role-engineer"))
	observerA := uuid.NewSHA1(uuid.NameSpaceOID, []byte("observer-a"))
	observerB := uuid.NewSHA1(uuid.NameSpaceOID, []byte("observer-b"))
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	obs := &stubObservationRepo{}
	outcomes := &stubOutcomeRepo{}
	scores := &stubScoreRepo{}
	for i := 0; i < 40; i++ {
		subject := subjectUUID(i)
		skill := 1 + 4*float64(i)/39 // 1..5
		for _, signal := range []string{"leadership", "delivery"} {
			for rep := 0; rep < 3; rep++ {
				rating := skill + float64(rep%2)*0.5
				if rating > 5 {
					rating = 5
				}
				observer := observerA
				if rep == 1 {
					observer = observerB
				}
				obs.rows = append(obs.rows, &types.KpiObservation{
					SubjectID:   subject,
					RoleID:      role,
					KpiName:     signal,
					RatingValue: rating,
					ObserverID:  observer,
					Verified:    rep == 0,
					CreatedAt:   base.AddDate(0, 0, i+rep*30),
				})
			}
		}
		perf := 40 + 12*skill
		hired := skill >= 3
		outcomes.rows = append(outcomes.rows, &types.JobOutcome{
			SubjectID:        subject,
			RoleID:           role,
			Hired:            hired,
			PerformanceScore: &perf,
			Verified:         true,
			CreatedAt:        base,
		})
		scores.rows = append(scores.rows, &types.HRKeyScore{
			SubjectID:  subject,
			RoleID:     role,
			Score:      10 * skill,
			ComputedAt: base,
		})
	}
	roles := &stubRoleRepo{rows: []*types.Role{{ID: role, RoleName: "engineer", Industry: "tech", SeniorityLevel: "mid"}}}
	return obs, outcomes, roles, scores
}

func testConfig() AnalysisConfig {
	return AnalysisConfig{
		Version:       "v1.0",
		MissingPolicy: dataset.MissingMedian,
		Quality:       dataset.QualityFilters{MinObservers: 1, MinSignals: 2},
		MinSamples:    10,
		Significance:  0.05,
		Trainer:       model.TrainerConfig{CVFolds: 3, MinTrainingSamples: 20},
	}
}

func newTestService(t *testing.T, cfg AnalysisConfig, corr *recordingCorrRepo, models *recordingModelRepo) (AnalysisService, string) {
	t.Helper()
	obs, outcomes, roles, scores := fixture(t)
	log := testLogger(t)
	artifactRoot := t.TempDir()
	store := artifacts.NewStore(artifactRoot, log)
	return NewAnalysisService(cfg, log,
		obs, &stubCognitiveRepo{}, &stubReferenceRepo{},
		outcomes, roles, scores, corr, models, store), artifactRoot
}

func TestAnalysisRunEndToEnd(t *testing.T) {
	corr := &recordingCorrRepo{}
	models := &recordingModelRepo{}
	svc, artifactRoot := newTestService(t, testConfig(), corr, models)

	report, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.DatasetRows != 40 {
		t.Fatalf("dataset rows = %d, want 40", report.DatasetRows)
	}
	if report.CorrelationsComputed == 0 {
		t.Fatalf("no correlations computed")
	}
	if corr.calls != 1 || corr.version != "v1.0" {
		t.Fatalf("correlation storage: calls=%d version=%q", corr.calls, corr.version)
	}
	if len(corr.rows) != report.CorrelationsComputed {
		t.Fatalf("stored %d correlation rows, computed %d", len(corr.rows), report.CorrelationsComputed)
	}
	// performance_score, prior_score, and hired all have signal; promoted is
	// single-class and must be skipped, not failed.
	if report.TargetsTrained != 3 {
		t.Fatalf("targets trained = %d, want 3", report.TargetsTrained)
	}
	if report.TargetsSkipped != 1 {
		t.Fatalf("targets skipped = %d, want 1 (promoted)", report.TargetsSkipped)
	}
	if models.calls != 1 || len(models.rows) == 0 {
		t.Fatalf("model storage: calls=%d rows=%d", models.calls, len(models.rows))
	}
	bestByTarget := map[string]int{}
	for _, r := range models.rows {
		if r.IsBest {
			bestByTarget[r.TargetName]++
		}
		if r.ModelVersion != "v1.0" {
			t.Fatalf("row version = %q", r.ModelVersion)
		}
	}
	for _, target := range []string{"performance_score", "prior_score", "hired"} {
		if bestByTarget[target] == 0 {
			t.Fatalf("no best rows for %s", target)
		}
	}
	// 3 regression candidates for two targets plus 2 classifier candidates.
	if report.ArtifactsWritten != 8 {
		t.Fatalf("artifacts written = %d, want 8", report.ArtifactsWritten)
	}
	if len(report.Stages) == 0 {
		t.Fatalf("report carries no stage summaries")
	}

	// The bundle manifest must carry every dataset-shaping parameter, so a
	// bundle alone is enough to reproduce the matrix it was trained on.
	raw, err := os.ReadFile(filepath.Join(artifactRoot, "v1.0", "performance_score", "ridge_regression", "manifest.json"))
	if err != nil {
		t.Fatalf("read manifest: %v", err)
	}
	var manifest artifacts.Manifest
	if err := json.Unmarshal(raw, &manifest); err != nil {
		t.Fatalf("decode manifest: %v", err)
	}
	if manifest.QualityParams["missing_policy"] != "median" {
		t.Fatalf("manifest missing_policy = %v", manifest.QualityParams["missing_policy"])
	}
	if v, ok := manifest.QualityParams["min_observers"].(float64); !ok || v != 1 {
		t.Fatalf("manifest min_observers = %v", manifest.QualityParams["min_observers"])
	}
	if v, ok := manifest.QualityParams["min_signals"].(float64); !ok || v != 2 {
		t.Fatalf("manifest min_signals = %v", manifest.QualityParams["min_signals"])
	}
	minObs, ok := manifest.QualityParams["min_observations"].(map[string]any)
	if !ok {
		t.Fatalf("manifest min_observations = %v", manifest.QualityParams["min_observations"])
	}
	if v, ok := minObs["kpi_observations"].(float64); !ok || v != 3 {
		t.Fatalf("kpi_observations min = %v", minObs["kpi_observations"])
	}
}

func TestAnalysisRunSkipFlags(t *testing.T) {
	cfg := testConfig()
	cfg.SkipModels = true
	cfg.SkipStorage = true
	corr := &recordingCorrRepo{}
	models := &recordingModelRepo{}
	svc, _ := newTestService(t, cfg, corr, models)

	report, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if corr.calls != 0 || models.calls != 0 {
		t.Fatalf("storage must be skipped: corr=%d models=%d", corr.calls, models.calls)
	}
	if report.ResultsStored {
		t.Fatalf("report claims results stored")
	}
	if report.TargetsTrained != 0 || report.ArtifactsWritten != 0 {
		t.Fatalf("models must be skipped: trained=%d artifacts=%d",
			report.TargetsTrained, report.ArtifactsWritten)
	}
	if report.CorrelationsComputed == 0 {
		t.Fatalf("correlations must still run")
	}
}
