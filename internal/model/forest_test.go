package model

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func stepData(n int) (*mat.Dense, []float64) {
	X := mat.NewDense(n, 2, nil)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		x1 := float64(i % 10)
		x2 := float64((i * 7) % 10)
		X.Set(i, 0, x1)
		X.Set(i, 1, x2)
		if x1 >= 5 {
			y[i] = 10
		}
	}
	return X, y
}

func TestForestRegressorFitsStepFunction(t *testing.T) {
	X, y := stepData(60)
	rf := NewForestRegressor(ForestParams{NTrees: 20, Seed: 42})
	if err := rf.Fit(X, y); err != nil {
		t.Fatalf("Fit: %v", err)
	}
	pred, err := rf.Predict(X)
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if r2 := R2(y, pred); r2 < 0.9 {
		t.Fatalf("R2 = %v on a step function", r2)
	}
	imp := rf.FeatureImportances()
	if len(imp) != 2 {
		t.Fatalf("importances = %v", imp)
	}
	if imp[0] <= imp[1] {
		t.Fatalf("feature 0 drives the target but importances = %v", imp)
	}
	sum := imp[0] + imp[1]
	if math.Abs(sum-1) > 1e-9 {
		t.Fatalf("importances sum to %v, want 1", sum)
	}
}

func TestForestDeterministicForSeed(t *testing.T) {
	X, y := stepData(60)
	a := NewForestRegressor(ForestParams{NTrees: 10, Seed: 42})
	b := NewForestRegressor(ForestParams{NTrees: 10, Seed: 42})
	if err := a.Fit(X, y); err != nil {
		t.Fatalf("Fit a: %v", err)
	}
	if err := b.Fit(X, y); err != nil {
		t.Fatalf("Fit b: %v", err)
	}
	pa, _ := a.Predict(X)
	pb, _ := b.Predict(X)
	for i := range pa {
		if pa[i] != pb[i] {
			t.Fatalf("same seed gives different prediction at %d: %v vs %v", i, pa[i], pb[i])
		}
	}
}

func TestForestClassifierBalanced(t *testing.T) {
	n := 60
	X := mat.NewDense(n, 1, nil)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		X.Set(i, 0, float64(i))
		if i >= 50 {
			y[i] = 1
		}
	}
	rf := NewForestClassifier(ForestParams{NTrees: 20, Balanced: true, Seed: 42})
	if err := rf.Fit(X, y); err != nil {
		t.Fatalf("Fit: %v", err)
	}
	pred, err := rf.Predict(X)
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if rec := Recall(y, pred); rec < 0.9 {
		t.Fatalf("recall = %v on the minority class", rec)
	}
	for _, p := range pred {
		if p != 0 && p != 1 {
			t.Fatalf("classifier emitted non-binary label %v", p)
		}
	}
}

func TestForestStateRoundTrip(t *testing.T) {
	X, y := stepData(40)
	rf := NewForestRegressor(ForestParams{NTrees: 5, Seed: 42})
	if err := rf.Fit(X, y); err != nil {
		t.Fatalf("Fit: %v", err)
	}
	state, err := rf.State()
	if err != nil {
		t.Fatalf("State: %v", err)
	}
	restored, err := FromState("random_forest_regressor", state)
	if err != nil {
		t.Fatalf("FromState: %v", err)
	}
	want, _ := rf.Predict(X)
	got, err := restored.Predict(X)
	if err != nil {
		t.Fatalf("restored Predict: %v", err)
	}
	for i := range want {
		if want[i] != got[i] {
			t.Fatalf("prediction %d differs after restore", i)
		}
	}
}

func TestForestWidthMismatch(t *testing.T) {
	X, y := stepData(40)
	rf := NewForestRegressor(ForestParams{NTrees: 5, Seed: 42})
	if err := rf.Fit(X, y); err != nil {
		t.Fatalf("Fit: %v", err)
	}
	wrong := mat.NewDense(2, 3, nil)
	if _, err := rf.Predict(wrong); err == nil {
		t.Fatalf("expected feature mismatch error")
	}
}
