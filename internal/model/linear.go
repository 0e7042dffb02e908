package model

import (
	"encoding/json"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

type linearState struct {
	Coefficients []float64 `json:"coefficients"`
	Intercept    float64   `json:"intercept"`
}

// LinearRegression is ordinary least squares with an intercept, solved by QR.
type LinearRegression struct {
	coef      []float64
	intercept float64
	fitted    bool
}

func NewLinearRegression() *LinearRegression {
	return &LinearRegression{}
}

func (l *LinearRegression) Name() string       { return "linear_regression" }
func (l *LinearRegression) Kind() Kind         { return Regression }
func (l *LinearRegression) NeedsScaling() bool { return true }

func (l *LinearRegression) Fit(X *mat.Dense, y []float64) error {
	rows, cols := X.Dims()
	if rows != len(y) {
		return fmt.Errorf("X has %d rows, y has %d", rows, len(y))
	}
	if rows <= cols {
		return fmt.Errorf("%w: %d rows for %d features", ErrInsufficientSamples, rows, cols)
	}
	design := withIntercept(X)
	var qr mat.QR
	qr.Factorize(design)
	var beta mat.Dense
	if err := qr.SolveTo(&beta, false, mat.NewDense(rows, 1, y)); err != nil {
		return fmt.Errorf("least squares solve: %w", err)
	}
	l.intercept = beta.At(0, 0)
	l.coef = make([]float64, cols)
	for c := 0; c < cols; c++ {
		l.coef[c] = beta.At(c+1, 0)
	}
	l.fitted = true
	return nil
}

func (l *LinearRegression) Predict(X *mat.Dense) ([]float64, error) {
	return linearPredict(X, l.coef, l.intercept, l.fitted)
}

func (l *LinearRegression) FeatureImportances() []float64 {
	return absWeights(l.coef)
}

func (l *LinearRegression) Params() map[string]any {
	return map[string]any{"fit_intercept": true}
}

func (l *LinearRegression) State() (json.RawMessage, error) {
	if !l.fitted {
		return nil, ErrNotFitted
	}
	return json.Marshal(linearState{Coefficients: l.coef, Intercept: l.intercept})
}

func (l *LinearRegression) Restore(raw json.RawMessage) error {
	var st linearState
	if err := json.Unmarshal(raw, &st); err != nil {
		return err
	}
	l.coef = st.Coefficients
	l.intercept = st.Intercept
	l.fitted = true
	return nil
}

func (l *LinearRegression) Clone() Estimator {
	return NewLinearRegression()
}

// Ridge is L2-regularized least squares solved via the normal equations. The
// intercept is not penalized.
type Ridge struct {
	Alpha     float64
	coef      []float64
	intercept float64
	fitted    bool
}

func NewRidge(alpha float64) *Ridge {
	return &Ridge{Alpha: alpha}
}

func (r *Ridge) Name() string       { return "ridge_regression" }
func (r *Ridge) Kind() Kind         { return Regression }
func (r *Ridge) NeedsScaling() bool { return true }

func (r *Ridge) Fit(X *mat.Dense, y []float64) error {
	rows, cols := X.Dims()
	if rows != len(y) {
		return fmt.Errorf("X has %d rows, y has %d", rows, len(y))
	}
	design := withIntercept(X)
	p := cols + 1

	var xtx mat.Dense
	xtx.Mul(design.T(), design)
	for c := 1; c < p; c++ {
		xtx.Set(c, c, xtx.At(c, c)+r.Alpha)
	}
	var xty mat.Dense
	xty.Mul(design.T(), mat.NewDense(rows, 1, y))

	var beta mat.Dense
	if err := beta.Solve(&xtx, &xty); err != nil {
		return fmt.Errorf("ridge solve: %w", err)
	}
	r.intercept = beta.At(0, 0)
	r.coef = make([]float64, cols)
	for c := 0; c < cols; c++ {
		r.coef[c] = beta.At(c+1, 0)
	}
	r.fitted = true
	return nil
}

func (r *Ridge) Predict(X *mat.Dense) ([]float64, error) {
	return linearPredict(X, r.coef, r.intercept, r.fitted)
}

func (r *Ridge) FeatureImportances() []float64 {
	return absWeights(r.coef)
}

func (r *Ridge) Params() map[string]any {
	return map[string]any{"alpha": r.Alpha}
}

func (r *Ridge) State() (json.RawMessage, error) {
	if !r.fitted {
		return nil, ErrNotFitted
	}
	return json.Marshal(linearState{Coefficients: r.coef, Intercept: r.intercept})
}

func (r *Ridge) Restore(raw json.RawMessage) error {
	var st linearState
	if err := json.Unmarshal(raw, &st); err != nil {
		return err
	}
	r.coef = st.Coefficients
	r.intercept = st.Intercept
	r.fitted = true
	return nil
}

func (r *Ridge) Clone() Estimator {
	return NewRidge(r.Alpha)
}

func withIntercept(X *mat.Dense) *mat.Dense {
	rows, cols := X.Dims()
	out := mat.NewDense(rows, cols+1, nil)
	for r := 0; r < rows; r++ {
		out.Set(r, 0, 1)
		for c := 0; c < cols; c++ {
			out.Set(r, c+1, X.At(r, c))
		}
	}
	return out
}

func linearPredict(X *mat.Dense, coef []float64, intercept float64, fitted bool) ([]float64, error) {
	if !fitted {
		return nil, ErrNotFitted
	}
	rows, cols := X.Dims()
	if cols != len(coef) {
		return nil, fmt.Errorf("%w: fitted on %d features, got %d", ErrFeatureOrderMismatch, len(coef), cols)
	}
	out := make([]float64, rows)
	for r := 0; r < rows; r++ {
		v := intercept
		for c := 0; c < cols; c++ {
			v += coef[c] * X.At(r, c)
		}
		out[r] = v
	}
	return out, nil
}

func absWeights(coef []float64) []float64 {
	if coef == nil {
		return nil
	}
	out := make([]float64, len(coef))
	for i, c := range coef {
		out[i] = math.Abs(c)
	}
	return out
}
