package artifacts

import (
	"errors"
	"math"
	"testing"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/OnChainFest/HRkey-App/internal/logger"
	"github.com/OnChainFest/HRkey-App/internal/model"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	log, err := logger.New("dev")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	return NewStore(t.TempDir(), log)
}

func fittedBundle(t *testing.T) Bundle {
	t.Helper()
	features := []string{"kpi_a_avg_rating", "kpi_b_avg_rating"}
	n := 30
	X := mat.NewDense(n, 2, nil)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		X.Set(i, 0, float64(i))
		X.Set(i, 1, float64(i%7))
		y[i] = 1 + 2*float64(i) - 0.5*float64(i%7)
	}
	pipe := model.NewPipeline(features, model.NewRidge(1.0))
	if err := pipe.Fit(X, y); err != nil {
		t.Fatalf("Fit: %v", err)
	}
	return Bundle{
		Manifest: Manifest{
			Version:    "v1.0",
			Target:     "performance_score",
			Model:      "ridge_regression",
			Kind:       "regression",
			Features:   features,
			SplitRatio: 0.2,
			Seed:       42,
			Metrics:    map[string]float64{"r2_test": 0.97},
			NTrain:     24,
			NTest:      6,
			CreatedAt:  time.Now().UTC(),
		},
		Pipeline:    pipe,
		Importances: pipe.FeatureImportances(),
	}
}

func TestWriteLoadRoundTrip(t *testing.T) {
	s := testStore(t)
	b := fittedBundle(t)
	if err := s.Write(b); err != nil {
		t.Fatalf("Write: %v", err)
	}
	loaded, err := s.Load("v1.0", "performance_score", "ridge_regression")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Manifest.Version != "v1.0" || loaded.Manifest.Metrics["r2_test"] != 0.97 {
		t.Fatalf("manifest round-trip lost data: %+v", loaded.Manifest)
	}

	X := mat.NewDense(3, 2, []float64{1, 2, 10, 3, 20, 5})
	want, err := b.Pipeline.Predict(X)
	if err != nil {
		t.Fatalf("Predict original: %v", err)
	}
	got, err := loaded.Pipeline.Predict(X)
	if err != nil {
		t.Fatalf("Predict loaded: %v", err)
	}
	for i := range want {
		if math.Abs(want[i]-got[i]) > 1e-9 {
			t.Fatalf("prediction %d differs after reload: %v vs %v", i, want[i], got[i])
		}
	}
	if len(loaded.Importances) != 2 {
		t.Fatalf("importances lost: %v", loaded.Importances)
	}
}

func TestWriteRefusesOverwrite(t *testing.T) {
	s := testStore(t)
	b := fittedBundle(t)
	if err := s.Write(b); err != nil {
		t.Fatalf("first Write: %v", err)
	}
	err := s.Write(b)
	if !errors.Is(err, ErrVersionExists) {
		t.Fatalf("second Write = %v, want ErrVersionExists", err)
	}
}

func TestBestPointer(t *testing.T) {
	s := testStore(t)
	b := fittedBundle(t)
	if err := s.Write(b); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := s.MarkBest("v1.0", "performance_score", "ridge_regression"); err != nil {
		t.Fatalf("MarkBest: %v", err)
	}
	name, err := s.BestModel("v1.0", "performance_score")
	if err != nil {
		t.Fatalf("BestModel: %v", err)
	}
	if name != "ridge_regression" {
		t.Fatalf("best = %q", name)
	}
	loaded, err := s.LoadBest("v1.0", "performance_score")
	if err != nil {
		t.Fatalf("LoadBest: %v", err)
	}
	if loaded.Manifest.Model != "ridge_regression" {
		t.Fatalf("LoadBest manifest = %+v", loaded.Manifest)
	}
}

func TestLoadMissingBundle(t *testing.T) {
	s := testStore(t)
	if _, err := s.Load("v9.9", "performance_score", "ridge_regression"); !errors.Is(err, ErrBundleNotFound) {
		t.Fatalf("err = %v, want ErrBundleNotFound", err)
	}
	if _, err := s.BestModel("v9.9", "performance_score"); !errors.Is(err, ErrBundleNotFound) {
		t.Fatalf("err = %v, want ErrBundleNotFound", err)
	}
}
