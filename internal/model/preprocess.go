package model

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// MeanImputer replaces NaN cells with the column mean learned during Fit.
// Fitting on the training partition only keeps held-out rows out of the fill
// statistics.
type MeanImputer struct {
	Means []float64 `json:"means"`
}

func (m *MeanImputer) Fit(X *mat.Dense) error {
	rows, cols := X.Dims()
	m.Means = make([]float64, cols)
	for c := 0; c < cols; c++ {
		sum, n := 0.0, 0
		for r := 0; r < rows; r++ {
			if v := X.At(r, c); !math.IsNaN(v) {
				sum += v
				n++
			}
		}
		if n > 0 {
			m.Means[c] = sum / float64(n)
		}
	}
	return nil
}

func (m *MeanImputer) Transform(X *mat.Dense) (*mat.Dense, error) {
	rows, cols := X.Dims()
	if len(m.Means) == 0 {
		return nil, ErrNotFitted
	}
	if cols != len(m.Means) {
		return nil, fmt.Errorf("%w: imputer fitted on %d columns, got %d", ErrFeatureOrderMismatch, len(m.Means), cols)
	}
	out := mat.NewDense(rows, cols, nil)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			v := X.At(r, c)
			if math.IsNaN(v) {
				v = m.Means[c]
			}
			out.Set(r, c, v)
		}
	}
	return out, nil
}

// StandardScaler centers and scales columns to unit variance. Zero-variance
// columns keep a divisor of one so they pass through centered.
type StandardScaler struct {
	Mean []float64 `json:"mean"`
	Std  []float64 `json:"std"`
}

func (s *StandardScaler) Fit(X *mat.Dense) error {
	rows, cols := X.Dims()
	s.Mean = make([]float64, cols)
	s.Std = make([]float64, cols)
	for c := 0; c < cols; c++ {
		sum := 0.0
		for r := 0; r < rows; r++ {
			sum += X.At(r, c)
		}
		mean := sum / float64(rows)
		varSum := 0.0
		for r := 0; r < rows; r++ {
			d := X.At(r, c) - mean
			varSum += d * d
		}
		std := math.Sqrt(varSum / float64(rows))
		if std == 0 {
			std = 1
		}
		s.Mean[c] = mean
		s.Std[c] = std
	}
	return nil
}

func (s *StandardScaler) Transform(X *mat.Dense) (*mat.Dense, error) {
	rows, cols := X.Dims()
	if len(s.Mean) == 0 {
		return nil, ErrNotFitted
	}
	if cols != len(s.Mean) {
		return nil, fmt.Errorf("%w: scaler fitted on %d columns, got %d", ErrFeatureOrderMismatch, len(s.Mean), cols)
	}
	out := mat.NewDense(rows, cols, nil)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			out.Set(r, c, (X.At(r, c)-s.Mean[c])/s.Std[c])
		}
	}
	return out, nil
}
