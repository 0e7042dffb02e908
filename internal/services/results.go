package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/OnChainFest/HRkey-App/internal/logger"
	"github.com/OnChainFest/HRkey-App/internal/repos"
	"github.com/OnChainFest/HRkey-App/internal/types"
)

var ErrNoResults = errors.New("no results for query")

// ModelSummaryEntry groups one (target, model) pair's metrics for the API.
type ModelSummaryEntry struct {
	TargetName   string             `json:"target_name"`
	ModelType    string             `json:"model_type"`
	ModelVersion string             `json:"model_version"`
	IsBest       bool               `json:"is_best"`
	NTrain       int                `json:"n_train"`
	NTest        int                `json:"n_test"`
	Metrics      map[string]float64 `json:"metrics"`
}

// ResultsService answers read-only queries over stored analysis output.
type ResultsService interface {
	TopCorrelations(ctx context.Context, target, metric string, maxP float64, limit int) ([]*types.CorrelationResult, error)
	ModelSummary(ctx context.Context, version string) ([]ModelSummaryEntry, error)
	FeatureImportances(ctx context.Context, target, modelType, version string) (map[string]float64, error)
}

type resultsService struct {
	log          *logger.Logger
	corrResults  repos.CorrelationResultRepo
	modelResults repos.ModelResultRepo
}

func NewResultsService(baseLog *logger.Logger, corrResults repos.CorrelationResultRepo, modelResults repos.ModelResultRepo) ResultsService {
	return &resultsService{
		log:          baseLog.With("service", "ResultsService"),
		corrResults:  corrResults,
		modelResults: modelResults,
	}
}

func (s *resultsService) TopCorrelations(ctx context.Context, target, metric string, maxP float64, limit int) ([]*types.CorrelationResult, error) {
	if target == "" {
		return nil, fmt.Errorf("target is required")
	}
	rows, err := s.corrResults.TopByTarget(ctx, nil, target, metric, maxP, limit)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *resultsService) ModelSummary(ctx context.Context, version string) ([]ModelSummaryEntry, error) {
	rows, err := s.modelResults.ListByVersion(ctx, nil, version)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: version %q", ErrNoResults, version)
	}

	type key struct{ target, model string }
	var order []key
	grouped := map[key]*ModelSummaryEntry{}
	for _, r := range rows {
		k := key{r.TargetName, r.ModelType}
		e, ok := grouped[k]
		if !ok {
			e = &ModelSummaryEntry{
				TargetName:   r.TargetName,
				ModelType:    r.ModelType,
				ModelVersion: r.ModelVersion,
				IsBest:       r.IsBest,
				NTrain:       r.NTrain,
				NTest:        r.NTest,
				Metrics:      map[string]float64{},
			}
			grouped[k] = e
			order = append(order, k)
		}
		e.Metrics[r.MetricName] = r.MetricValue
	}
	out := make([]ModelSummaryEntry, len(order))
	for i, k := range order {
		out[i] = *grouped[k]
	}
	return out, nil
}

func (s *resultsService) FeatureImportances(ctx context.Context, target, modelType, version string) (map[string]float64, error) {
	rows, err := s.modelResults.ListByTargetModel(ctx, nil, target, modelType, version)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: %s/%s version %q", ErrNoResults, target, modelType, version)
	}
	var out map[string]float64
	if err := json.Unmarshal(rows[0].FeatureImportances, &out); err != nil {
		return nil, fmt.Errorf("decode importances: %w", err)
	}
	return out, nil
}
