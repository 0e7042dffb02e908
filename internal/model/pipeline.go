package model

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Pipeline is impute, optionally scale, then estimate. The feature order is
// frozen at construction; every matrix passed in must carry exactly those
// columns in that order.
type Pipeline struct {
	Features []string
	Imputer  *MeanImputer
	Scaler   *StandardScaler
	Est      Estimator
}

func NewPipeline(features []string, est Estimator) *Pipeline {
	p := &Pipeline{
		Features: append([]string(nil), features...),
		Imputer:  &MeanImputer{},
		Est:      est,
	}
	if est.NeedsScaling() {
		p.Scaler = &StandardScaler{}
	}
	return p
}

func (p *Pipeline) checkWidth(X *mat.Dense) error {
	_, cols := X.Dims()
	if cols != len(p.Features) {
		return fmt.Errorf("%w: pipeline carries %d features, matrix has %d columns",
			ErrFeatureOrderMismatch, len(p.Features), cols)
	}
	return nil
}

// Fit learns imputer, scaler, and estimator from the given rows only.
func (p *Pipeline) Fit(X *mat.Dense, y []float64) error {
	if err := p.checkWidth(X); err != nil {
		return err
	}
	if err := p.Imputer.Fit(X); err != nil {
		return err
	}
	Xt, err := p.Imputer.Transform(X)
	if err != nil {
		return err
	}
	if p.Scaler != nil {
		if err := p.Scaler.Fit(Xt); err != nil {
			return err
		}
		if Xt, err = p.Scaler.Transform(Xt); err != nil {
			return err
		}
	}
	return p.Est.Fit(Xt, y)
}

func (p *Pipeline) transform(X *mat.Dense) (*mat.Dense, error) {
	if err := p.checkWidth(X); err != nil {
		return nil, err
	}
	Xt, err := p.Imputer.Transform(X)
	if err != nil {
		return nil, err
	}
	if p.Scaler != nil {
		Xt, err = p.Scaler.Transform(Xt)
		if err != nil {
			return nil, err
		}
	}
	return Xt, nil
}

func (p *Pipeline) Predict(X *mat.Dense) ([]float64, error) {
	Xt, err := p.transform(X)
	if err != nil {
		return nil, err
	}
	return p.Est.Predict(Xt)
}

// Scores yields continuous scores when the estimator supports ranking,
// falling back to hard predictions.
func (p *Pipeline) Scores(X *mat.Dense) ([]float64, error) {
	Xt, err := p.transform(X)
	if err != nil {
		return nil, err
	}
	if s, ok := p.Est.(Scorer); ok {
		return s.Scores(Xt)
	}
	return p.Est.Predict(Xt)
}

// Clone returns an unfitted copy with the same feature order and estimator
// hyperparameters, for per-fold refits.
func (p *Pipeline) Clone() *Pipeline {
	return NewPipeline(p.Features, p.Est.Clone())
}

// FeatureImportances maps estimator importances back onto feature names.
func (p *Pipeline) FeatureImportances() map[string]float64 {
	raw := p.Est.FeatureImportances()
	if raw == nil {
		return nil
	}
	out := make(map[string]float64, len(p.Features))
	for i, name := range p.Features {
		if i < len(raw) {
			out[name] = raw[i]
		}
	}
	return out
}
