package model

import (
	"encoding/json"
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

type Kind string

const (
	Regression     Kind = "regression"
	Classification Kind = "classification"
)

var (
	ErrNotFitted = errors.New("estimator is not fitted")

	// ErrFeatureOrderMismatch marks a prediction input whose width or column
	// order differs from what the pipeline was fitted on.
	ErrFeatureOrderMismatch = errors.New("feature order mismatch")

	// ErrInsufficientSamples marks a target with too few labeled rows to
	// train. Callers treat it as a skip, not a failure.
	ErrInsufficientSamples = errors.New("insufficient training samples")
)

// Estimator is a fittable model. Classifiers take y in {0, 1} and predict
// hard labels; those that can also rank expose Scorer.
type Estimator interface {
	Name() string
	Kind() Kind
	NeedsScaling() bool
	Fit(X *mat.Dense, y []float64) error
	Predict(X *mat.Dense) ([]float64, error)
	// FeatureImportances is nil when the estimator has no natural notion of
	// importance; otherwise one non-negative weight per input column.
	FeatureImportances() []float64
	Params() map[string]any
	State() (json.RawMessage, error)
	Clone() Estimator
}

// Scorer yields a continuous score per row, used for ROC AUC.
type Scorer interface {
	Scores(X *mat.Dense) ([]float64, error)
}

// FromState rebuilds a fitted estimator from its serialized name and state,
// as stored in an artifact bundle.
func FromState(name string, state json.RawMessage) (Estimator, error) {
	var est Estimator
	switch name {
	case "linear_regression":
		est = NewLinearRegression()
	case "ridge_regression":
		est = &Ridge{Alpha: 1.0}
	case "random_forest_regressor":
		est = NewForestRegressor(ForestParams{})
	case "logistic_regression":
		est = NewLogisticRegression(LogisticParams{})
	case "random_forest_classifier":
		est = NewForestClassifier(ForestParams{})
	default:
		return nil, fmt.Errorf("unknown estimator %q", name)
	}
	type restorer interface {
		Restore(json.RawMessage) error
	}
	r, ok := est.(restorer)
	if !ok {
		return nil, fmt.Errorf("estimator %q cannot be restored", name)
	}
	if err := r.Restore(state); err != nil {
		return nil, fmt.Errorf("restore %q: %w", name, err)
	}
	return est, nil
}
