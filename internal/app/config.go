package app

import (
	"strings"

	"github.com/OnChainFest/HRkey-App/internal/dataset"
	"github.com/OnChainFest/HRkey-App/internal/logger"
	"github.com/OnChainFest/HRkey-App/internal/model"
	"github.com/OnChainFest/HRkey-App/internal/services"
	"github.com/OnChainFest/HRkey-App/internal/utils"
)

type Config struct {
	HTTPAddr        string
	AllowOrigins    []string
	AnalysisVersion string
	ArtifactDir     string
	SourcesPath     string

	MissingPolicy  dataset.MissingPolicy
	MinObservers   int
	MinSignals     int
	MinVerifiedPct float64
	MinSpanDays    float64

	MinSamples   int
	Significance float64

	TestSize           float64
	Seed               int
	CVFolds            int
	MinTrainingSamples int
}

func LoadConfig(log *logger.Logger) Config {
	cfg := Config{
		HTTPAddr:        utils.GetEnv("HTTP_ADDR", ":8080", log),
		AnalysisVersion: utils.GetEnv("ANALYSIS_VERSION", "v1.0", log),
		ArtifactDir:     utils.GetEnv("ARTIFACT_DIR", "artifacts", log),
		SourcesPath:     utils.GetEnv("SOURCES_CONFIG", "", log),

		MinObservers:   utils.GetEnvAsInt("QUALITY_MIN_OBSERVERS", 2, log),
		MinSignals:     utils.GetEnvAsInt("QUALITY_MIN_SIGNALS", 3, log),
		MinVerifiedPct: utils.GetEnvAsFloat("QUALITY_MIN_VERIFIED_PCT", -1, log),
		MinSpanDays:    utils.GetEnvAsFloat("QUALITY_MIN_SPAN_DAYS", -1, log),

		MinSamples:   utils.GetEnvAsInt("CORRELATION_MIN_SAMPLES", 30, log),
		Significance: utils.GetEnvAsFloat("CORRELATION_SIGNIFICANCE", 0.05, log),

		TestSize:           utils.GetEnvAsFloat("MODEL_TEST_SIZE", 0.2, log),
		Seed:               utils.GetEnvAsInt("MODEL_SEED", 42, log),
		CVFolds:            utils.GetEnvAsInt("MODEL_CV_FOLDS", 5, log),
		MinTrainingSamples: utils.GetEnvAsInt("MODEL_MIN_TRAINING_SAMPLES", 20, log),
	}

	origins := utils.GetEnv("CORS_ALLOW_ORIGINS", "http://localhost:3000", log)
	for _, o := range strings.Split(origins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			cfg.AllowOrigins = append(cfg.AllowOrigins, o)
		}
	}

	policy, err := dataset.ParseMissingPolicy(utils.GetEnv("MISSING_POLICY", "median", log))
	if err != nil {
		log.Warn("invalid MISSING_POLICY, using median", "error", err)
		policy = dataset.MissingMedian
	}
	cfg.MissingPolicy = policy
	return cfg
}

// AnalysisConfig translates env config into one pipeline run's settings.
func (c Config) AnalysisConfig() services.AnalysisConfig {
	quality := dataset.QualityFilters{
		MinObservers: c.MinObservers,
		MinSignals:   c.MinSignals,
	}
	if c.MinVerifiedPct >= 0 {
		v := c.MinVerifiedPct
		quality.MinVerifiedPct = &v
	}
	if c.MinSpanDays >= 0 {
		v := c.MinSpanDays
		quality.MinSpanDays = &v
	}
	return services.AnalysisConfig{
		Version:       c.AnalysisVersion,
		MissingPolicy: c.MissingPolicy,
		Quality:       quality,
		MinSamples:    c.MinSamples,
		Significance:  c.Significance,
		SourcesPath:   c.SourcesPath,
		Trainer: model.TrainerConfig{
			TestSize:           c.TestSize,
			Seed:               int64(c.Seed),
			CVFolds:            c.CVFolds,
			MinTrainingSamples: c.MinTrainingSamples,
		},
	}
}
