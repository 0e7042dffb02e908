package artifacts

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/OnChainFest/HRkey-App/internal/logger"
	"github.com/OnChainFest/HRkey-App/internal/model"
)

var (
	// ErrVersionExists marks an attempt to write a bundle over an existing
	// one. Bundles are immutable; a new analysis needs a new version tag.
	ErrVersionExists = errors.New("artifact bundle already exists")

	ErrBundleNotFound = errors.New("artifact bundle not found")
)

// Manifest describes how a persisted model was produced, enough to audit or
// re-run the training that made it.
type Manifest struct {
	Version       string             `json:"version"`
	Target        string             `json:"target"`
	Model         string             `json:"model"`
	Kind          string             `json:"kind"`
	Hyperparams   map[string]any     `json:"hyperparams"`
	Features      []string           `json:"features"`
	SplitRatio    float64            `json:"split_ratio"`
	Seed          int64              `json:"seed"`
	Metrics       map[string]float64 `json:"metrics"`
	NTrain        int                `json:"n_train"`
	NTest         int                `json:"n_test"`
	DatasetRows   int                `json:"dataset_rows"`
	QualityParams map[string]any     `json:"quality_params,omitempty"`
	CreatedAt     time.Time          `json:"created_at"`
}

type modelFile struct {
	Features []string             `json:"features"`
	Imputer  *model.MeanImputer   `json:"imputer"`
	Scaler   *model.StandardScaler `json:"scaler,omitempty"`
	Estimator struct {
		Name   string          `json:"name"`
		Params map[string]any  `json:"params"`
		State  json.RawMessage `json:"state"`
	} `json:"estimator"`
}

// Bundle is everything persisted for one trained candidate.
type Bundle struct {
	Manifest    Manifest
	Pipeline    *model.Pipeline
	Importances map[string]float64
}

// Store lays bundles out as {root}/{version}/{target}/{model}/ with a
// LATEST_BEST pointer per (version, target). Written bundles are never
// touched again.
type Store struct {
	root string
	log  *logger.Logger
}

func NewStore(root string, baseLog *logger.Logger) *Store {
	return &Store{root: root, log: baseLog.With("component", "artifact_store")}
}

func (s *Store) bundleDir(version, target, modelName string) string {
	return filepath.Join(s.root, sanitize(version), sanitize(target), sanitize(modelName))
}

// Write persists one bundle. It fails with ErrVersionExists if the bundle
// directory already holds a model.
func (s *Store) Write(b Bundle) error {
	dir := s.bundleDir(b.Manifest.Version, b.Manifest.Target, b.Manifest.Model)
	if _, err := os.Stat(filepath.Join(dir, "model.json")); err == nil {
		return fmt.Errorf("%w: %s", ErrVersionExists, dir)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create bundle dir: %w", err)
	}

	var mf modelFile
	mf.Features = b.Pipeline.Features
	mf.Imputer = b.Pipeline.Imputer
	mf.Scaler = b.Pipeline.Scaler
	mf.Estimator.Name = b.Pipeline.Est.Name()
	mf.Estimator.Params = b.Pipeline.Est.Params()
	state, err := b.Pipeline.Est.State()
	if err != nil {
		return fmt.Errorf("serialize estimator: %w", err)
	}
	mf.Estimator.State = state

	files := map[string]any{
		"model.json":    mf,
		"manifest.json": b.Manifest,
		"metrics.json":  b.Manifest.Metrics,
	}
	if b.Importances != nil {
		files["feature_importance.json"] = b.Importances
	}
	for name, payload := range files {
		if err := writeJSON(filepath.Join(dir, name), payload); err != nil {
			return err
		}
	}
	s.log.Info("wrote artifact bundle",
		"version", b.Manifest.Version,
		"target", b.Manifest.Target,
		"model", b.Manifest.Model,
		"dir", dir,
	)
	return nil
}

// MarkBest records which model won for a (version, target).
func (s *Store) MarkBest(version, target, modelName string) error {
	dir := filepath.Join(s.root, sanitize(version), sanitize(target))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "LATEST_BEST"), []byte(modelName+"\n"), 0o644)
}

func (s *Store) BestModel(version, target string) (string, error) {
	raw, err := os.ReadFile(filepath.Join(s.root, sanitize(version), sanitize(target), "LATEST_BEST"))
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: no best pointer for %s/%s", ErrBundleNotFound, version, target)
		}
		return "", err
	}
	return strings.TrimSpace(string(raw)), nil
}

// Load rebuilds a fitted pipeline from a bundle. The restored feature order
// is authoritative; predict inputs must match it exactly.
func (s *Store) Load(version, target, modelName string) (*Bundle, error) {
	dir := s.bundleDir(version, target, modelName)
	var mf modelFile
	if err := readJSON(filepath.Join(dir, "model.json"), &mf); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrBundleNotFound, dir)
		}
		return nil, err
	}
	var manifest Manifest
	if err := readJSON(filepath.Join(dir, "manifest.json"), &manifest); err != nil {
		return nil, err
	}
	if len(manifest.Features) != len(mf.Features) {
		return nil, fmt.Errorf("%w: manifest lists %d features, model carries %d",
			model.ErrFeatureOrderMismatch, len(manifest.Features), len(mf.Features))
	}
	for i := range mf.Features {
		if mf.Features[i] != manifest.Features[i] {
			return nil, fmt.Errorf("%w: column %d is %q in model, %q in manifest",
				model.ErrFeatureOrderMismatch, i, mf.Features[i], manifest.Features[i])
		}
	}

	est, err := model.FromState(mf.Estimator.Name, mf.Estimator.State)
	if err != nil {
		return nil, err
	}
	pipe := &model.Pipeline{
		Features: mf.Features,
		Imputer:  mf.Imputer,
		Scaler:   mf.Scaler,
		Est:      est,
	}

	b := &Bundle{Manifest: manifest, Pipeline: pipe}
	var imp map[string]float64
	if err := readJSON(filepath.Join(dir, "feature_importance.json"), &imp); err == nil {
		b.Importances = imp
	}
	return b, nil
}

// LoadBest follows the LATEST_BEST pointer.
func (s *Store) LoadBest(version, target string) (*Bundle, error) {
	name, err := s.BestModel(version, target)
	if err != nil {
		return nil, err
	}
	return s.Load(version, target, name)
}

func writeJSON(path string, v any) error {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func readJSON(path string, v any) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}

// sanitize keeps bundle path segments filesystem-safe.
func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '-' || r == '_' || r == '.':
			return r
		}
		return '_'
	}, s)
}
