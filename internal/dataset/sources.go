package dataset

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// SourceSpec describes how one observational table is aggregated and pivoted.
type SourceSpec struct {
	Name            string   `yaml:"name"`
	Prefix          string   `yaml:"prefix"`
	PerRole         bool     `yaml:"per_role"`
	Stats           []string `yaml:"stats"`
	MinObservations int      `yaml:"min_observations"`
	RatingMin       float64  `yaml:"rating_min"`
	RatingMax       float64  `yaml:"rating_max"`
}

type SourcesConfig struct {
	Sources []SourceSpec `yaml:"sources"`
}

// LoadSources reads source descriptors from a YAML file. An empty path falls
// back to the built-in defaults.
func LoadSources(path string) ([]SourceSpec, error) {
	if path == "" {
		return DefaultSources(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sources config: %w", err)
	}
	var cfg SourcesConfig
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parse sources config: %w", err)
	}
	if len(cfg.Sources) == 0 {
		return nil, fmt.Errorf("sources config %q lists no sources", path)
	}
	seen := map[string]bool{}
	for i := range cfg.Sources {
		s := &cfg.Sources[i]
		if s.Name == "" || s.Prefix == "" {
			return nil, fmt.Errorf("source %d: name and prefix are required", i)
		}
		if seen[s.Prefix] {
			return nil, fmt.Errorf("duplicate source prefix %q", s.Prefix)
		}
		seen[s.Prefix] = true
		if s.MinObservations <= 0 {
			s.MinObservations = 1
		}
	}
	return cfg.Sources, nil
}

// DefaultSources matches the three observational tables the extractor feeds.
func DefaultSources() []SourceSpec {
	return []SourceSpec{
		{
			Name:            "kpi_observations",
			Prefix:          "kpi",
			PerRole:         true,
			Stats:           []string{StatAvgRating, StatNObs, StatNObservers, StatVerifiedPct},
			MinObservations: 3,
			RatingMin:       1,
			RatingMax:       5,
		},
		{
			Name:            "cognitive_scores",
			Prefix:          "cognitive",
			PerRole:         false,
			Stats:           []string{StatAvgRating, StatNObs},
			MinObservations: 1,
		},
		{
			Name:            "reference_reviews",
			Prefix:          "reference",
			PerRole:         true,
			Stats:           []string{StatAvgRating, StatNObs, StatVerifiedPct, StatMinRating, StatMaxRating},
			MinObservations: 1,
			RatingMin:       1,
			RatingMax:       5,
		},
	}
}
