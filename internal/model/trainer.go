package model

import (
	"context"
	"errors"
	"fmt"
	"math"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"

	"github.com/OnChainFest/HRkey-App/internal/dataset"
	"github.com/OnChainFest/HRkey-App/internal/logger"
)

type TrainerConfig struct {
	TestSize           float64
	Seed               int64
	CVFolds            int
	MinTrainingSamples int
}

func (c TrainerConfig) withDefaults() TrainerConfig {
	if c.TestSize <= 0 || c.TestSize >= 1 {
		c.TestSize = 0.2
	}
	if c.Seed == 0 {
		c.Seed = 42
	}
	if c.CVFolds < 2 {
		c.CVFolds = 5
	}
	if c.MinTrainingSamples <= 0 {
		c.MinTrainingSamples = 20
	}
	return c
}

// TargetSpec names one target column and how it is modeled.
type TargetSpec struct {
	Name string
	Kind Kind
}

// CandidateResult is one fitted candidate with its evaluation.
type CandidateResult struct {
	Model       string
	Target      string
	Kind        Kind
	TrainScore  float64
	TestScore   float64
	CVMean      float64
	CVStd       float64
	Metrics     map[string]float64
	Importances map[string]float64
	Pipeline    *Pipeline
	NTrain      int
	NTest       int
}

// TargetReport is the outcome for one target: either a ranked candidate list
// with a best model, or a skip with its reason.
type TargetReport struct {
	Target     string
	Kind       Kind
	Candidates []CandidateResult
	Best       *CandidateResult
	Skipped    bool
	SkipReason string
	NTrain     int
	NTest      int
	SplitRatio float64
}

type Trainer struct {
	cfg TrainerConfig
	log *logger.Logger
}

func NewTrainer(baseLog *logger.Logger, cfg TrainerConfig) *Trainer {
	return &Trainer{cfg: cfg.withDefaults(), log: baseLog.With("component", "trainer")}
}

func regressionCandidates() []Estimator {
	return []Estimator{
		NewRidge(1.0),
		NewLinearRegression(),
		NewForestRegressor(ForestParams{NTrees: 100, MaxDepth: 10, MinSamplesSplit: 5, MinSamplesLeaf: 2}),
	}
}

func classificationCandidates() []Estimator {
	return []Estimator{
		NewLogisticRegression(LogisticParams{Balanced: true}),
		NewForestClassifier(ForestParams{NTrees: 100, MaxDepth: 5, MinSamplesSplit: 5, MinSamplesLeaf: 2, Balanced: true}),
	}
}

// TrainTarget extracts the labeled rows for one target, splits them grouped
// by subject, trains every candidate in parallel, cross-validates on the
// training partition, and ranks by held-out score. Targets with too few
// labeled rows are reported as skipped, not failed.
func (t *Trainer) TrainTarget(ctx context.Context, f *dataset.Frame, features []string, target TargetSpec, groupColumn string) (*TargetReport, error) {
	log := t.log.With("target", target.Name)
	report := &TargetReport{Target: target.Name, Kind: target.Kind, SplitRatio: t.cfg.TestSize}

	X, y, groups, err := extract(f, features, target.Name, groupColumn)
	if err != nil {
		return nil, err
	}
	n := len(y)
	if n < t.cfg.MinTrainingSamples {
		report.Skipped = true
		report.SkipReason = fmt.Sprintf("%d labeled rows, need %d", n, t.cfg.MinTrainingSamples)
		log.Warn("skipping target", "reason", report.SkipReason)
		return report, nil
	}
	if target.Kind == Classification {
		if err := checkBinary(y); err != nil {
			report.Skipped = true
			report.SkipReason = err.Error()
			log.Warn("skipping target", "reason", report.SkipReason)
			return report, nil
		}
	}

	opts := SplitOptions{TestSize: t.cfg.TestSize, Seed: t.cfg.Seed, Groups: groups}
	if len(groups) == 0 && target.Kind == Classification {
		opts.Stratify = y
	}
	trainIdx, testIdx, err := TrainTestSplit(n, opts)
	if err != nil {
		return nil, fmt.Errorf("split target %q: %w", target.Name, err)
	}
	Xtrain, ytrain := subset(X, y, trainIdx, len(features))
	Xtest, ytest := subset(X, y, testIdx, len(features))
	report.NTrain = len(ytrain)
	report.NTest = len(ytest)

	candidates := regressionCandidates()
	if target.Kind == Classification {
		candidates = classificationCandidates()
	}

	results := make([]*CandidateResult, len(candidates))
	g, ctx := errgroup.WithContext(ctx)
	for i, est := range candidates {
		i, est := i, est
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := t.evaluate(features, est, Xtrain, ytrain, Xtest, ytest, target)
			if err != nil {
				// A candidate that cannot be fit on this partition is a
				// warning, not a run failure. Siblings keep training.
				if errors.Is(err, ErrInsufficientSamples) {
					log.Warn("skipping candidate", "model", est.Name(), "reason", err.Error())
					return nil
				}
				return fmt.Errorf("candidate %s on %s: %w", est.Name(), target.Name, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var kept []CandidateResult
	for _, res := range results {
		if res != nil {
			kept = append(kept, *res)
		}
	}
	if len(kept) == 0 {
		report.Skipped = true
		report.SkipReason = "no candidate could be fit on the training partition"
		log.Warn("skipping target", "reason", report.SkipReason)
		return report, nil
	}

	best := 0
	for i := 1; i < len(kept); i++ {
		if kept[i].TestScore > kept[best].TestScore {
			best = i
		}
	}
	report.Candidates = kept
	report.Best = &kept[best]
	log.Info("trained target",
		"n_train", report.NTrain,
		"n_test", report.NTest,
		"best_model", report.Best.Model,
		"best_score", report.Best.TestScore,
	)
	return report, nil
}

func (t *Trainer) evaluate(features []string, est Estimator, Xtrain *mat.Dense, ytrain []float64, Xtest *mat.Dense, ytest []float64, target TargetSpec) (*CandidateResult, error) {
	pipe := NewPipeline(features, est)
	if err := pipe.Fit(Xtrain, ytrain); err != nil {
		return nil, err
	}
	trainPred, err := pipe.Predict(Xtrain)
	if err != nil {
		return nil, err
	}
	testPred, err := pipe.Predict(Xtest)
	if err != nil {
		return nil, err
	}

	res := &CandidateResult{
		Model:       est.Name(),
		Target:      target.Name,
		Kind:        target.Kind,
		Importances: pipe.FeatureImportances(),
		Pipeline:    pipe,
		NTrain:      len(ytrain),
		NTest:       len(ytest),
	}
	if target.Kind == Regression {
		res.TrainScore = R2(ytrain, trainPred)
		res.TestScore = R2(ytest, testPred)
		res.Metrics = map[string]float64{
			"r2_train":    res.TrainScore,
			"r2_test":     res.TestScore,
			"mae_test":    MAE(ytest, testPred),
			"rmse_test":   RMSE(ytest, testPred),
			"overfit_gap": res.TrainScore - res.TestScore,
		}
	} else {
		res.TrainScore = F1(ytrain, trainPred)
		res.TestScore = F1(ytest, testPred)
		res.Metrics = map[string]float64{
			"f1_train":       res.TrainScore,
			"f1_test":        res.TestScore,
			"accuracy_test":  Accuracy(ytest, testPred),
			"precision_test": Precision(ytest, testPred),
			"recall_test":    Recall(ytest, testPred),
			"overfit_gap":    res.TrainScore - res.TestScore,
		}
		if scores, err := pipe.Scores(Xtest); err == nil {
			res.Metrics["roc_auc_test"] = ROCAUC(ytest, scores)
		}
	}

	mean, std, err := t.crossValidate(features, est, Xtrain, ytrain, target.Kind)
	if err != nil {
		return nil, err
	}
	res.CVMean, res.CVStd = mean, std
	res.Metrics["cv_mean"] = mean
	res.Metrics["cv_std"] = std
	return res, nil
}

// crossValidate refits an unfitted clone per fold so no fold sees statistics
// learned from its own held-out rows.
func (t *Trainer) crossValidate(features []string, est Estimator, X *mat.Dense, y []float64, kind Kind) (float64, float64, error) {
	folds, err := KFold(len(y), t.cfg.CVFolds, t.cfg.Seed)
	if err != nil {
		return 0, 0, err
	}
	inFold := make([]bool, len(y))
	scores := make([]float64, 0, len(folds))
	for _, fold := range folds {
		for i := range inFold {
			inFold[i] = false
		}
		for _, i := range fold {
			inFold[i] = true
		}
		var trainIdx, testIdx []int
		for i := range inFold {
			if inFold[i] {
				testIdx = append(testIdx, i)
			} else {
				trainIdx = append(trainIdx, i)
			}
		}
		Xtr, ytr := subset(X, y, trainIdx, len(features))
		Xte, yte := subset(X, y, testIdx, len(features))

		pipe := NewPipeline(features, est.Clone())
		if err := pipe.Fit(Xtr, ytr); err != nil {
			return 0, 0, err
		}
		pred, err := pipe.Predict(Xte)
		if err != nil {
			return 0, 0, err
		}
		if kind == Regression {
			scores = append(scores, R2(yte, pred))
		} else {
			scores = append(scores, F1(yte, pred))
		}
	}
	mean := 0.0
	for _, s := range scores {
		mean += s
	}
	mean /= float64(len(scores))
	varSum := 0.0
	for _, s := range scores {
		d := s - mean
		varSum += d * d
	}
	return mean, math.Sqrt(varSum / float64(len(scores))), nil
}

// extract builds the labeled design matrix for one target, keeping only rows
// whose target cell is present. Feature NaNs stay and are imputed in-split.
func extract(f *dataset.Frame, features []string, target, groupColumn string) (*mat.Dense, []float64, []string, error) {
	ty, err := f.Numeric(target)
	if err != nil {
		return nil, nil, nil, err
	}
	var groupsAll []string
	if groupColumn != "" {
		if groupsAll, err = f.Strings(groupColumn); err != nil {
			return nil, nil, nil, err
		}
	}
	cols := make([][]float64, len(features))
	for i, name := range features {
		if cols[i], err = f.Numeric(name); err != nil {
			return nil, nil, nil, err
		}
	}

	var rows []int
	for r, v := range ty {
		if !math.IsNaN(v) {
			rows = append(rows, r)
		}
	}
	if len(rows) == 0 {
		return mat.NewDense(1, len(features), nil), nil, nil, nil
	}
	X := mat.NewDense(len(rows), len(features), nil)
	y := make([]float64, len(rows))
	var groups []string
	if groupsAll != nil {
		groups = make([]string, len(rows))
	}
	for out, r := range rows {
		for c := range features {
			X.Set(out, c, cols[c][r])
		}
		y[out] = ty[r]
		if groupsAll != nil {
			groups[out] = groupsAll[r]
		}
	}
	return X, y, groups, nil
}

func subset(X *mat.Dense, y []float64, idx []int, nFeatures int) (*mat.Dense, []float64) {
	out := mat.NewDense(len(idx), nFeatures, nil)
	oy := make([]float64, len(idx))
	for i, r := range idx {
		for c := 0; c < nFeatures; c++ {
			out.Set(i, c, X.At(r, c))
		}
		oy[i] = y[r]
	}
	return out, oy
}

func checkBinary(y []float64) error {
	nPos := 0
	for _, v := range y {
		if v != 0 && v != 1 {
			return fmt.Errorf("target has non-binary value %v", v)
		}
		if v == 1 {
			nPos++
		}
	}
	if nPos == 0 || nPos == len(y) {
		return fmt.Errorf("target has a single class")
	}
	return nil
}
