package model

import (
	"encoding/json"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

type LogisticParams struct {
	LearningRate float64
	MaxIter      int
	Tolerance    float64
	L2           float64
	Balanced     bool
}

func (p LogisticParams) withDefaults() LogisticParams {
	if p.LearningRate <= 0 {
		p.LearningRate = 0.1
	}
	if p.MaxIter <= 0 {
		p.MaxIter = 1000
	}
	if p.Tolerance <= 0 {
		p.Tolerance = 1e-6
	}
	return p
}

// LogisticRegression is binary logistic regression fitted by gradient
// descent. With Balanced set, each class contributes equal total weight, so
// rare positives are not drowned out.
type LogisticRegression struct {
	params    LogisticParams
	coef      []float64
	intercept float64
	fitted    bool
}

func NewLogisticRegression(p LogisticParams) *LogisticRegression {
	return &LogisticRegression{params: p.withDefaults()}
}

func (l *LogisticRegression) Name() string       { return "logistic_regression" }
func (l *LogisticRegression) Kind() Kind         { return Classification }
func (l *LogisticRegression) NeedsScaling() bool { return true }

func (l *LogisticRegression) Fit(X *mat.Dense, y []float64) error {
	rows, cols := X.Dims()
	if rows != len(y) {
		return fmt.Errorf("X has %d rows, y has %d", rows, len(y))
	}
	nPos := 0
	for _, v := range y {
		if v != 0 && v != 1 {
			return fmt.Errorf("logistic regression needs y in {0,1}, got %v", v)
		}
		if v == 1 {
			nPos++
		}
	}
	if nPos == 0 || nPos == rows {
		return fmt.Errorf("%w: single-class target", ErrInsufficientSamples)
	}

	wPos, wNeg := 1.0, 1.0
	if l.params.Balanced {
		wPos = float64(rows) / (2 * float64(nPos))
		wNeg = float64(rows) / (2 * float64(rows-nPos))
	}

	l.coef = make([]float64, cols)
	l.intercept = 0
	gradW := make([]float64, cols)
	for iter := 0; iter < l.params.MaxIter; iter++ {
		for i := range gradW {
			gradW[i] = 0
		}
		gradB := 0.0
		for r := 0; r < rows; r++ {
			z := l.intercept
			for c := 0; c < cols; c++ {
				z += l.coef[c] * X.At(r, c)
			}
			w := wNeg
			if y[r] == 1 {
				w = wPos
			}
			err := w * (sigmoid(z) - y[r])
			gradB += err
			for c := 0; c < cols; c++ {
				gradW[c] += err * X.At(r, c)
			}
		}
		maxStep := 0.0
		scale := l.params.LearningRate / float64(rows)
		for c := 0; c < cols; c++ {
			step := scale * (gradW[c] + l.params.L2*l.coef[c])
			l.coef[c] -= step
			if s := math.Abs(step); s > maxStep {
				maxStep = s
			}
		}
		bStep := scale * gradB
		l.intercept -= bStep
		if s := math.Abs(bStep); s > maxStep {
			maxStep = s
		}
		if maxStep < l.params.Tolerance {
			break
		}
	}
	l.fitted = true
	return nil
}

func (l *LogisticRegression) Scores(X *mat.Dense) ([]float64, error) {
	raw, err := linearPredict(X, l.coef, l.intercept, l.fitted)
	if err != nil {
		return nil, err
	}
	for i, z := range raw {
		raw[i] = sigmoid(z)
	}
	return raw, nil
}

func (l *LogisticRegression) Predict(X *mat.Dense) ([]float64, error) {
	probs, err := l.Scores(X)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(probs))
	for i, p := range probs {
		if p >= 0.5 {
			out[i] = 1
		}
	}
	return out, nil
}

func (l *LogisticRegression) FeatureImportances() []float64 {
	return absWeights(l.coef)
}

func (l *LogisticRegression) Params() map[string]any {
	return map[string]any{
		"learning_rate": l.params.LearningRate,
		"max_iter":      l.params.MaxIter,
		"l2":            l.params.L2,
		"balanced":      l.params.Balanced,
	}
}

func (l *LogisticRegression) State() (json.RawMessage, error) {
	if !l.fitted {
		return nil, ErrNotFitted
	}
	return json.Marshal(linearState{Coefficients: l.coef, Intercept: l.intercept})
}

func (l *LogisticRegression) Restore(raw json.RawMessage) error {
	var st linearState
	if err := json.Unmarshal(raw, &st); err != nil {
		return err
	}
	l.coef = st.Coefficients
	l.intercept = st.Intercept
	l.fitted = true
	return nil
}

func (l *LogisticRegression) Clone() Estimator {
	return NewLogisticRegression(l.params)
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}
