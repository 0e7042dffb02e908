package model

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestLinearRegressionRecoversCoefficients(t *testing.T) {
	// y = 3 + 2*x1 - x2, exactly.
	n := 20
	X := mat.NewDense(n, 2, nil)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		x1 := float64(i)
		x2 := float64(i % 5)
		X.Set(i, 0, x1)
		X.Set(i, 1, x2)
		y[i] = 3 + 2*x1 - x2
	}
	lr := NewLinearRegression()
	if err := lr.Fit(X, y); err != nil {
		t.Fatalf("Fit: %v", err)
	}
	pred, err := lr.Predict(X)
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if r2 := R2(y, pred); r2 < 1-1e-9 {
		t.Fatalf("R2 = %v, want ~1", r2)
	}
	if math.Abs(lr.intercept-3) > 1e-6 || math.Abs(lr.coef[0]-2) > 1e-6 || math.Abs(lr.coef[1]+1) > 1e-6 {
		t.Fatalf("coefficients = %v intercept = %v", lr.coef, lr.intercept)
	}
}

func TestRidgeShrinksTowardZero(t *testing.T) {
	n := 20
	X := mat.NewDense(n, 1, nil)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		X.Set(i, 0, float64(i))
		y[i] = 2 * float64(i)
	}
	ols := NewLinearRegression()
	if err := ols.Fit(X, y); err != nil {
		t.Fatalf("OLS Fit: %v", err)
	}
	ridge := NewRidge(100)
	if err := ridge.Fit(X, y); err != nil {
		t.Fatalf("Ridge Fit: %v", err)
	}
	if math.Abs(ridge.coef[0]) >= math.Abs(ols.coef[0]) {
		t.Fatalf("ridge coef %v not shrunk versus ols %v", ridge.coef[0], ols.coef[0])
	}
	if ridge.coef[0] <= 0 {
		t.Fatalf("ridge coef %v lost the sign", ridge.coef[0])
	}
}

func TestLinearStateRoundTrip(t *testing.T) {
	X := mat.NewDense(10, 1, nil)
	y := make([]float64, 10)
	for i := 0; i < 10; i++ {
		X.Set(i, 0, float64(i))
		y[i] = 1 + 4*float64(i)
	}
	lr := NewLinearRegression()
	if err := lr.Fit(X, y); err != nil {
		t.Fatalf("Fit: %v", err)
	}
	state, err := lr.State()
	if err != nil {
		t.Fatalf("State: %v", err)
	}
	restored, err := FromState("linear_regression", state)
	if err != nil {
		t.Fatalf("FromState: %v", err)
	}
	want, _ := lr.Predict(X)
	got, err := restored.Predict(X)
	if err != nil {
		t.Fatalf("restored Predict: %v", err)
	}
	for i := range want {
		if math.Abs(want[i]-got[i]) > 1e-12 {
			t.Fatalf("prediction %d differs after restore: %v vs %v", i, want[i], got[i])
		}
	}
}

func TestPredictBeforeFit(t *testing.T) {
	lr := NewLinearRegression()
	if _, err := lr.Predict(mat.NewDense(1, 1, []float64{1})); err == nil {
		t.Fatalf("expected ErrNotFitted")
	}
}

func TestLogisticSeparatesClasses(t *testing.T) {
	n := 40
	X := mat.NewDense(n, 1, nil)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		v := float64(i) / float64(n)
		X.Set(i, 0, v*4-2)
		if v >= 0.5 {
			y[i] = 1
		}
	}
	clf := NewLogisticRegression(LogisticParams{Balanced: true})
	if err := clf.Fit(X, y); err != nil {
		t.Fatalf("Fit: %v", err)
	}
	pred, err := clf.Predict(X)
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if acc := Accuracy(y, pred); acc < 0.95 {
		t.Fatalf("accuracy = %v on separable data", acc)
	}
	scores, err := clf.Scores(X)
	if err != nil {
		t.Fatalf("Scores: %v", err)
	}
	if auc := ROCAUC(y, scores); auc < 0.99 {
		t.Fatalf("AUC = %v on separable data", auc)
	}
}

func TestLogisticRejectsSingleClass(t *testing.T) {
	X := mat.NewDense(4, 1, []float64{1, 2, 3, 4})
	clf := NewLogisticRegression(LogisticParams{})
	if err := clf.Fit(X, []float64{1, 1, 1, 1}); err == nil {
		t.Fatalf("expected single-class error")
	}
}
