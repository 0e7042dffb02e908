package app

import (
	"github.com/OnChainFest/HRkey-App/internal/artifacts"
	"github.com/OnChainFest/HRkey-App/internal/logger"
	"github.com/OnChainFest/HRkey-App/internal/services"
)

type Services struct {
	Analysis services.AnalysisService
	Results  services.ResultsService
}

func wireServices(log *logger.Logger, cfg Config, reposet Repos) Services {
	log.Info("Wiring services...")
	store := artifacts.NewStore(cfg.ArtifactDir, log)
	return Services{
		Analysis: services.NewAnalysisService(
			cfg.AnalysisConfig(), log,
			reposet.Observation,
			reposet.CognitiveScore,
			reposet.ReferenceReview,
			reposet.Outcome,
			reposet.Role,
			reposet.HRKeyScore,
			reposet.CorrelationResult,
			reposet.ModelResult,
			store,
		),
		Results: services.NewResultsService(log, reposet.CorrelationResult, reposet.ModelResult),
	}
}

// NewAnalysisService builds a pipeline service over an initialized app with
// run-specific settings, for one-shot CLI runs with flag overrides.
func NewAnalysisService(a *App, cfg services.AnalysisConfig) services.AnalysisService {
	store := artifacts.NewStore(a.Cfg.ArtifactDir, a.Log)
	return services.NewAnalysisService(
		cfg, a.Log,
		a.Repos.Observation,
		a.Repos.CognitiveScore,
		a.Repos.ReferenceReview,
		a.Repos.Outcome,
		a.Repos.Role,
		a.Repos.HRKeyScore,
		a.Repos.CorrelationResult,
		a.Repos.ModelResult,
		store,
	)
}
