package services

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/OnChainFest/HRkey-App/internal/artifacts"
	"github.com/OnChainFest/HRkey-App/internal/dataset"
	"github.com/OnChainFest/HRkey-App/internal/logger"
	"github.com/OnChainFest/HRkey-App/internal/model"
	"github.com/OnChainFest/HRkey-App/internal/repos"
	"github.com/OnChainFest/HRkey-App/internal/stats"
	"github.com/OnChainFest/HRkey-App/internal/types"
)

// AnalysisConfig carries every knob of one pipeline run.
type AnalysisConfig struct {
	Version        string
	MissingPolicy  dataset.MissingPolicy
	Quality        dataset.QualityFilters
	MinSamples     int
	Significance   float64
	Trainer        model.TrainerConfig
	SourcesPath    string
	SkipModels     bool
	SkipStorage    bool
	SkipArtifacts  bool
}

// StageSummary is one line of the run report.
type StageSummary struct {
	Stage    string        `json:"stage"`
	Duration time.Duration `json:"duration"`
	Detail   string        `json:"detail"`
}

// RunReport is what one full pipeline run produced.
type RunReport struct {
	Version              string         `json:"version"`
	Stages               []StageSummary `json:"stages"`
	DatasetRows          int            `json:"dataset_rows"`
	FeatureCount         int            `json:"feature_count"`
	CorrelationsComputed int            `json:"correlations_computed"`
	TargetsTrained       int            `json:"targets_trained"`
	TargetsSkipped       int            `json:"targets_skipped"`
	ResultsStored        bool           `json:"results_stored"`
	ArtifactsWritten     int            `json:"artifacts_written"`
}

// AnalysisService runs the full pipeline: fetch, aggregate, assemble,
// correlate, train, persist.
type AnalysisService interface {
	Run(ctx context.Context) (*RunReport, error)
}

type analysisService struct {
	cfg AnalysisConfig
	log *logger.Logger

	observations repos.ObservationRepo
	cognitive    repos.CognitiveScoreRepo
	references   repos.ReferenceReviewRepo
	outcomes     repos.OutcomeRepo
	roles        repos.RoleRepo
	scores       repos.HRKeyScoreRepo
	corrResults  repos.CorrelationResultRepo
	modelResults repos.ModelResultRepo

	store *artifacts.Store
}

func NewAnalysisService(
	cfg AnalysisConfig,
	baseLog *logger.Logger,
	observations repos.ObservationRepo,
	cognitive repos.CognitiveScoreRepo,
	references repos.ReferenceReviewRepo,
	outcomes repos.OutcomeRepo,
	roles repos.RoleRepo,
	scores repos.HRKeyScoreRepo,
	corrResults repos.CorrelationResultRepo,
	modelResults repos.ModelResultRepo,
	store *artifacts.Store,
) AnalysisService {
	return &analysisService{
		cfg:          cfg,
		log:          baseLog.With("service", "AnalysisService", "version", cfg.Version),
		observations: observations,
		cognitive:    cognitive,
		references:   references,
		outcomes:     outcomes,
		roles:        roles,
		scores:       scores,
		corrResults:  corrResults,
		modelResults: modelResults,
		store:        store,
	}
}

var featurePrefixes = []string{"kpi", "cognitive", "reference"}

// trainedTargets lists the target columns in the assembled frame and how
// each one is modeled.
var trainedTargets = []model.TargetSpec{
	{Name: "performance_score", Kind: model.Regression},
	{Name: "prior_score", Kind: model.Regression},
	{Name: "hired", Kind: model.Classification},
	{Name: "promoted", Kind: model.Classification},
}

func targetNames() []string {
	out := make([]string, len(trainedTargets))
	for i, t := range trainedTargets {
		out[i] = t.Name
	}
	return out
}

func (s *analysisService) Run(ctx context.Context) (*RunReport, error) {
	report := &RunReport{Version: s.cfg.Version}
	stage := func(name string, started time.Time, detail string, args ...any) {
		report.Stages = append(report.Stages, StageSummary{
			Stage:    name,
			Duration: time.Since(started),
			Detail:   fmt.Sprintf(detail, args...),
		})
	}

	// Stage 1: build the feature matrix.
	started := time.Now()
	frame, manifest, specs, err := s.buildDataset(ctx)
	if err != nil {
		return report, fmt.Errorf("build dataset: %w", err)
	}
	report.DatasetRows = manifest.Rows
	report.FeatureCount = len(manifest.FeatureColumns)
	stage("dataset", started, "%d rows, %d features, %d targets",
		manifest.Rows, len(manifest.FeatureColumns), len(manifest.TargetColumns))

	// Stage 2: correlations.
	started = time.Now()
	engine := stats.NewEngine(s.log, s.cfg.MinSamples, s.cfg.Significance)
	correlations, err := engine.Analyze(frame, manifest.FeatureColumns, manifest.TargetColumns)
	if err != nil {
		return report, fmt.Errorf("correlation analysis: %w", err)
	}
	report.CorrelationsComputed = len(correlations)
	stage("correlations", started, "%d pairs computed, %d significant at %.3g",
		len(correlations), len(engine.Significant(correlations)), engine.SignificanceThreshold)

	// Stage 3: baseline models.
	var reports []*model.TargetReport
	if s.cfg.SkipModels {
		s.log.Info("model training skipped by flag")
	} else {
		started = time.Now()
		trainer := model.NewTrainer(s.log, s.cfg.Trainer)
		for _, target := range trainedTargets {
			if !frame.HasColumn(target.Name) {
				continue
			}
			tr, err := trainer.TrainTarget(ctx, frame, manifest.FeatureColumns, target, "subject_id")
			if err != nil {
				return report, fmt.Errorf("train target %q: %w", target.Name, err)
			}
			if tr.Skipped {
				report.TargetsSkipped++
			} else {
				report.TargetsTrained++
			}
			reports = append(reports, tr)
		}
		stage("models", started, "%d targets trained, %d skipped",
			report.TargetsTrained, report.TargetsSkipped)
	}

	// Stage 4: persist results, replacing any prior rows for this version.
	if s.cfg.SkipStorage {
		s.log.Info("result storage skipped by flag")
	} else {
		started = time.Now()
		if err := s.storeResults(ctx, correlations, reports); err != nil {
			return report, fmt.Errorf("store results: %w", err)
		}
		report.ResultsStored = true
		stage("storage", started, "version %s replaced", s.cfg.Version)
	}

	// Stage 5: artifact bundles for every trained candidate.
	if s.cfg.SkipArtifacts || s.cfg.SkipModels {
		s.log.Info("artifact writing skipped")
	} else {
		started = time.Now()
		n, err := s.writeArtifacts(reports, manifest, s.qualityParams(specs))
		if err != nil {
			return report, fmt.Errorf("write artifacts: %w", err)
		}
		report.ArtifactsWritten = n
		stage("artifacts", started, "%d bundles written", n)
	}

	s.log.Info("analysis run complete",
		"rows", report.DatasetRows,
		"correlations", report.CorrelationsComputed,
		"targets_trained", report.TargetsTrained,
		"targets_skipped", report.TargetsSkipped,
	)
	return report, nil
}

// buildDataset runs extract, aggregate, pivot, and assemble.
func (s *analysisService) buildDataset(ctx context.Context) (*dataset.Frame, *dataset.DatasetManifest, []dataset.SourceSpec, error) {
	specs, err := dataset.LoadSources(s.cfg.SourcesPath)
	if err != nil {
		return nil, nil, nil, err
	}

	agg := dataset.NewAggregator(s.log)
	piv := dataset.NewPivoter(s.log)

	var blocks []dataset.FeatureBlock
	for _, spec := range specs {
		obs, err := s.fetchSource(ctx, spec.Name)
		if err != nil {
			return nil, nil, nil, err
		}
		aggs, _, err := agg.Aggregate(obs, spec)
		if err != nil {
			return nil, nil, nil, err
		}
		frame, err := piv.Pivot(aggs, spec)
		if err != nil {
			return nil, nil, nil, err
		}
		keys := []string{"subject_id"}
		if spec.PerRole {
			keys = append(keys, "role_id")
		}
		blocks = append(blocks, dataset.FeatureBlock{Name: spec.Name, Frame: frame, JoinKeys: keys})

		// Coverage metadata comes from the primary evidence source.
		if spec.Name == "kpi_observations" {
			meta, err := piv.MetadataFrame(aggs, spec.PerRole)
			if err != nil {
				return nil, nil, nil, err
			}
			blocks = append(blocks, dataset.FeatureBlock{Name: "metadata", Frame: meta, JoinKeys: keys})
		}
	}

	targets, err := s.targetFrame(ctx)
	if err != nil {
		return nil, nil, nil, err
	}
	priors, err := s.priorScoreFrame(ctx)
	if err != nil {
		return nil, nil, nil, err
	}
	blocks = append(blocks, dataset.FeatureBlock{Name: "prior_scores", Frame: priors, JoinKeys: []string{"subject_id", "role_id"}})
	rolesFrame, err := s.roleFrame(ctx)
	if err != nil {
		return nil, nil, nil, err
	}
	blocks = append(blocks, dataset.FeatureBlock{Name: "roles", Frame: rolesFrame, JoinKeys: []string{"role_id"}})

	assembler := dataset.NewAssembler(s.log, dataset.AssembleConfig{
		MissingPolicy:   s.cfg.MissingPolicy,
		FeaturePrefixes: featurePrefixes,
		TargetColumns:   targetNames(),
		Quality:         s.cfg.Quality,
	})
	frame, manifest, err := assembler.Assemble(targets, blocks)
	if err != nil {
		return nil, nil, nil, err
	}
	return frame, manifest, specs, nil
}

// qualityParams captures every threshold that shaped the assembled matrix,
// so a bundle manifest alone is enough to reproduce the dataset.
func (s *analysisService) qualityParams(specs []dataset.SourceSpec) map[string]any {
	p := map[string]any{
		"missing_policy": string(s.cfg.MissingPolicy),
		"min_observers":  s.cfg.Quality.MinObservers,
		"min_signals":    s.cfg.Quality.MinSignals,
	}
	if s.cfg.Quality.MinVerifiedPct != nil {
		p["min_verified_pct"] = *s.cfg.Quality.MinVerifiedPct
	}
	if s.cfg.Quality.MinSpanDays != nil {
		p["min_span_days"] = *s.cfg.Quality.MinSpanDays
	}
	minObs := make(map[string]int, len(specs))
	for _, spec := range specs {
		minObs[spec.Name] = spec.MinObservations
	}
	p["min_observations"] = minObs
	return p
}

func (s *analysisService) fetchSource(ctx context.Context, name string) ([]dataset.Observation, error) {
	switch name {
	case "kpi_observations":
		rows, err := s.observations.ListAll(ctx, nil)
		if err != nil {
			return nil, err
		}
		out := make([]dataset.Observation, len(rows))
		for i, r := range rows {
			out[i] = dataset.Observation{
				SubjectID:  r.SubjectID,
				RoleID:     r.RoleID,
				Signal:     r.KpiName,
				Rating:     r.RatingValue,
				Observer:   r.ObserverID,
				Verified:   r.Verified,
				ObservedAt: r.CreatedAt,
			}
		}
		return out, nil
	case "cognitive_scores":
		rows, err := s.cognitive.ListAll(ctx, nil)
		if err != nil {
			return nil, err
		}
		out := make([]dataset.Observation, len(rows))
		for i, r := range rows {
			out[i] = dataset.Observation{
				SubjectID:  r.SubjectID,
				Signal:     r.GameType,
				Rating:     r.NormalizedScore,
				ObservedAt: r.CreatedAt,
			}
		}
		return out, nil
	case "reference_reviews":
		rows, err := s.references.ListAll(ctx, nil)
		if err != nil {
			return nil, err
		}
		out := make([]dataset.Observation, len(rows))
		for i, r := range rows {
			out[i] = dataset.Observation{
				SubjectID:  r.SubjectID,
				RoleID:     r.RoleID,
				Signal:     "overall",
				Rating:     r.OverallRating,
				Observer:   r.ReviewerID,
				Verified:   r.Verified,
				ObservedAt: r.CreatedAt,
			}
		}
		return out, nil
	}
	return nil, fmt.Errorf("unknown source %q", name)
}

// targetFrame keeps the latest verified outcome per (subject, role).
func (s *analysisService) targetFrame(ctx context.Context) (*dataset.Frame, error) {
	rows, err := s.outcomes.ListVerified(ctx, nil)
	if err != nil {
		return nil, err
	}
	type pair struct{ subject, role uuid.UUID }
	latest := map[pair]*types.JobOutcome{}
	var order []pair
	for _, r := range rows {
		k := pair{r.SubjectID, r.RoleID}
		if prev, ok := latest[k]; !ok {
			order = append(order, k)
			latest[k] = r
		} else if r.CreatedAt.After(prev.CreatedAt) {
			latest[k] = r
		}
	}

	f := dataset.NewFrame()
	subjects := make([]string, len(order))
	roles := make([]string, len(order))
	hired := make([]float64, len(order))
	promoted := make([]float64, len(order))
	perf := make([]float64, len(order))
	for i, k := range order {
		r := latest[k]
		subjects[i] = k.subject.String()
		roles[i] = k.role.String()
		if r.Hired {
			hired[i] = 1
		}
		if r.Promoted {
			promoted[i] = 1
		}
		if r.PerformanceScore != nil {
			perf[i] = *r.PerformanceScore
		} else {
			perf[i] = math.NaN()
		}
	}
	if err := f.AddString("subject_id", subjects); err != nil {
		return nil, err
	}
	if err := f.AddString("role_id", roles); err != nil {
		return nil, err
	}
	if err := f.AddNumeric("hired", hired); err != nil {
		return nil, err
	}
	if err := f.AddNumeric("promoted", promoted); err != nil {
		return nil, err
	}
	if err := f.AddNumeric("performance_score", perf); err != nil {
		return nil, err
	}
	return f, nil
}

func (s *analysisService) priorScoreFrame(ctx context.Context) (*dataset.Frame, error) {
	rows, err := s.scores.ListLatestPerPair(ctx, nil)
	if err != nil {
		return nil, err
	}
	f := dataset.NewFrame()
	subjects := make([]string, len(rows))
	roles := make([]string, len(rows))
	prior := make([]float64, len(rows))
	for i, r := range rows {
		subjects[i] = r.SubjectID.String()
		roles[i] = r.RoleID.String()
		prior[i] = r.Score
	}
	if err := f.AddString("subject_id", subjects); err != nil {
		return nil, err
	}
	if err := f.AddString("role_id", roles); err != nil {
		return nil, err
	}
	if err := f.AddNumeric("prior_score", prior); err != nil {
		return nil, err
	}
	return f, nil
}

func (s *analysisService) roleFrame(ctx context.Context) (*dataset.Frame, error) {
	rows, err := s.roles.ListAll(ctx, nil)
	if err != nil {
		return nil, err
	}
	f := dataset.NewFrame()
	ids := make([]string, len(rows))
	names := make([]string, len(rows))
	industries := make([]string, len(rows))
	seniorities := make([]string, len(rows))
	for i, r := range rows {
		ids[i] = r.ID.String()
		names[i] = r.RoleName
		industries[i] = r.Industry
		seniorities[i] = r.SeniorityLevel
	}
	if err := f.AddString("role_id", ids); err != nil {
		return nil, err
	}
	if err := f.AddString("role_name", names); err != nil {
		return nil, err
	}
	if err := f.AddString("industry", industries); err != nil {
		return nil, err
	}
	if err := f.AddString("seniority_level", seniorities); err != nil {
		return nil, err
	}
	return f, nil
}

func (s *analysisService) storeResults(ctx context.Context, correlations []stats.Result, reports []*model.TargetReport) error {
	now := time.Now().UTC()

	corrRows := make([]*types.CorrelationResult, len(correlations))
	for i, c := range correlations {
		corrRows[i] = &types.CorrelationResult{
			FeatureName:     c.Feature,
			TargetName:      c.Target,
			MetricType:      c.Metric,
			Correlation:     c.Correlation,
			PValue:          c.PValue,
			NSamples:        c.NSamples,
			AnalysisVersion: s.cfg.Version,
			ComputedAt:      now,
		}
	}
	if err := s.corrResults.ReplaceVersion(ctx, nil, s.cfg.Version, corrRows); err != nil {
		return err
	}

	var modelRows []*types.ModelBaselineResult
	for _, tr := range reports {
		if tr.Skipped {
			continue
		}
		for _, c := range tr.Candidates {
			features, err := json.Marshal(c.Pipeline.Features)
			if err != nil {
				return err
			}
			importances, err := json.Marshal(c.Importances)
			if err != nil {
				return err
			}
			isBest := tr.Best != nil && tr.Best.Model == c.Model
			for metric, value := range c.Metrics {
				if math.IsNaN(value) || math.IsInf(value, 0) {
					continue
				}
				modelRows = append(modelRows, &types.ModelBaselineResult{
					TargetName:         tr.Target,
					ModelType:          c.Model,
					ModelVersion:       s.cfg.Version,
					MetricName:         metric,
					MetricValue:        value,
					UsedFeatures:       datatypes.JSON(features),
					NTrain:             c.NTrain,
					NTest:              c.NTest,
					SplitRatio:         tr.SplitRatio,
					FeatureImportances: datatypes.JSON(importances),
					IsBest:             isBest,
					ComputedAt:         now,
				})
			}
		}
	}
	return s.modelResults.ReplaceVersion(ctx, nil, s.cfg.Version, modelRows)
}

func (s *analysisService) writeArtifacts(reports []*model.TargetReport, manifest *dataset.DatasetManifest, quality map[string]any) (int, error) {
	written := 0
	for _, tr := range reports {
		if tr.Skipped {
			continue
		}
		for _, c := range tr.Candidates {
			bundle := artifacts.Bundle{
				Manifest: artifacts.Manifest{
					Version:     s.cfg.Version,
					Target:      tr.Target,
					Model:       c.Model,
					Kind:        string(c.Kind),
					Hyperparams: c.Pipeline.Est.Params(),
					Features:    c.Pipeline.Features,
					SplitRatio:  tr.SplitRatio,
					Seed:        s.cfg.Trainer.Seed,
					Metrics:     c.Metrics,
					NTrain:      c.NTrain,
					NTest:       c.NTest,
					DatasetRows: manifest.Rows,
					QualityParams: quality,
					CreatedAt:     time.Now().UTC(),
				},
				Pipeline:    c.Pipeline,
				Importances: c.Importances,
			}
			if err := s.store.Write(bundle); err != nil {
				return written, err
			}
			written++
		}
		if tr.Best != nil {
			if err := s.store.MarkBest(s.cfg.Version, tr.Target, tr.Best.Model); err != nil {
				return written, err
			}
		}
	}
	return written, nil
}
