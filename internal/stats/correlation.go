package stats

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/OnChainFest/HRkey-App/internal/dataset"
	"github.com/OnChainFest/HRkey-App/internal/logger"
)

const (
	MetricPearson  = "pearson"
	MetricSpearman = "spearman"
)

// Result is one feature-target correlation after gating.
type Result struct {
	Feature     string
	Target      string
	Metric      string
	Correlation float64
	PValue      float64
	NSamples    int
}

// Engine computes pairwise-deleted feature-target correlations with sample
// size and degeneracy gates. Significance is a threshold applied at read
// time, never a filter on what gets computed.
type Engine struct {
	MinSamples            int
	SignificanceThreshold float64
	log                   *logger.Logger
}

func NewEngine(baseLog *logger.Logger, minSamples int, significance float64) *Engine {
	if minSamples <= 2 {
		minSamples = 30
	}
	if significance <= 0 || significance >= 1 {
		significance = 0.05
	}
	return &Engine{
		MinSamples:            minSamples,
		SignificanceThreshold: significance,
		log:                   baseLog.With("component", "correlation_engine"),
	}
}

// Analyze computes pearson and spearman for every (feature, target) pair in
// the frame. Pairs failing a gate are skipped with a logged gate name, never
// stored as zeros.
func (e *Engine) Analyze(f *dataset.Frame, features, targets []string) ([]Result, error) {
	var out []Result
	for _, target := range targets {
		ty, err := f.Numeric(target)
		if err != nil {
			return nil, err
		}
		for _, feature := range features {
			fx, err := f.Numeric(feature)
			if err != nil {
				return nil, err
			}
			x, y := pairwiseComplete(fx, ty)
			if len(x) < e.MinSamples {
				e.log.Warn("skipped pair", "gate", "min_samples",
					"feature", feature, "target", target, "n", len(x))
				continue
			}
			if isConstant(x) || isConstant(y) {
				e.log.Warn("skipped pair", "gate", "zero_variance",
					"feature", feature, "target", target)
				continue
			}
			for _, metric := range []string{MetricPearson, MetricSpearman} {
				var r float64
				if metric == MetricPearson {
					r = stat.Correlation(x, y, nil)
				} else {
					r = spearman(x, y)
				}
				if math.IsNaN(r) {
					e.log.Warn("skipped pair", "gate", "undefined_correlation",
						"feature", feature, "target", target, "metric", metric)
					continue
				}
				out = append(out, Result{
					Feature:     feature,
					Target:      target,
					Metric:      metric,
					Correlation: r,
					PValue:      pValue(r, len(x)),
					NSamples:    len(x),
				})
			}
		}
	}
	e.log.Info("correlation analysis complete", "pairs", len(out))
	return out, nil
}

// Significant filters results at the engine's significance threshold.
func (e *Engine) Significant(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if r.PValue <= e.SignificanceThreshold {
			out = append(out, r)
		}
	}
	return out
}

// TopN orders by absolute correlation descending, then p-value ascending,
// then feature name, and truncates.
func TopN(results []Result, n int) []Result {
	out := append([]Result(nil), results...)
	sort.SliceStable(out, func(i, j int) bool {
		ai, aj := math.Abs(out[i].Correlation), math.Abs(out[j].Correlation)
		if ai != aj {
			return ai > aj
		}
		if out[i].PValue != out[j].PValue {
			return out[i].PValue < out[j].PValue
		}
		return out[i].Feature < out[j].Feature
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// pairwiseComplete keeps only indexes where both series are present.
func pairwiseComplete(x, y []float64) ([]float64, []float64) {
	ox := make([]float64, 0, len(x))
	oy := make([]float64, 0, len(y))
	for i := range x {
		if math.IsNaN(x[i]) || math.IsNaN(y[i]) {
			continue
		}
		ox = append(ox, x[i])
		oy = append(oy, y[i])
	}
	return ox, oy
}

func isConstant(v []float64) bool {
	for i := 1; i < len(v); i++ {
		if v[i] != v[0] {
			return false
		}
	}
	return true
}

// spearman is pearson over average ranks, which handles ties the standard way.
func spearman(x, y []float64) float64 {
	return stat.Correlation(averageRanks(x), averageRanks(y), nil)
}

func averageRanks(v []float64) []float64 {
	idx := make([]int, len(v))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return v[idx[a]] < v[idx[b]] })
	ranks := make([]float64, len(v))
	for i := 0; i < len(idx); {
		j := i
		for j < len(idx) && v[idx[j]] == v[idx[i]] {
			j++
		}
		// Tied values share the mean of the ranks they span.
		avg := float64(i+j+1) / 2
		for k := i; k < j; k++ {
			ranks[idx[k]] = avg
		}
		i = j
	}
	return ranks
}

// pValue is the two-sided p for r under the t distribution with n-2 degrees
// of freedom. Perfect correlations short-circuit to zero.
func pValue(r float64, n int) float64 {
	if n <= 2 {
		return 1
	}
	if math.Abs(r) >= 1 {
		return 0
	}
	t := r * math.Sqrt(float64(n-2)/(1-r*r))
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(n - 2)}
	return 2 * dist.CDF(-math.Abs(t))
}
