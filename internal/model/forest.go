package model

import (
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/mat"
)

type ForestParams struct {
	NTrees          int
	MaxDepth        int
	MinSamplesSplit int
	MinSamplesLeaf  int
	Balanced        bool
	Seed            int64
}

func (p ForestParams) withDefaults(kind Kind) ForestParams {
	if p.NTrees <= 0 {
		p.NTrees = 100
	}
	if p.MaxDepth <= 0 {
		if kind == Classification {
			p.MaxDepth = 5
		} else {
			p.MaxDepth = 10
		}
	}
	if p.MinSamplesSplit <= 0 {
		p.MinSamplesSplit = 5
	}
	if p.MinSamplesLeaf <= 0 {
		p.MinSamplesLeaf = 2
	}
	if p.Seed == 0 {
		p.Seed = 42
	}
	return p
}

// treeNode is one CART node. Leaves carry Value; internal nodes carry the
// split. Exported fields keep the whole tree JSON-serializable for artifact
// bundles.
type treeNode struct {
	Feature   int       `json:"feature,omitempty"`
	Threshold float64   `json:"threshold,omitempty"`
	Left      *treeNode `json:"left,omitempty"`
	Right     *treeNode `json:"right,omitempty"`
	Leaf      bool      `json:"leaf,omitempty"`
	Value     float64   `json:"value"`
}

func (n *treeNode) predict(row []float64) float64 {
	for !n.Leaf {
		if row[n.Feature] <= n.Threshold {
			n = n.Left
		} else {
			n = n.Right
		}
	}
	return n.Value
}

type forestState struct {
	Trees       []*treeNode `json:"trees"`
	NFeatures   int         `json:"n_features"`
	Importances []float64   `json:"importances"`
}

// Forest is a bagged ensemble of CART trees. Regression trees minimize
// weighted variance; classification trees minimize Gini impurity, with
// balanced class weights applied as sample weights.
type Forest struct {
	params      ForestParams
	kind        Kind
	trees       []*treeNode
	nFeatures   int
	importances []float64
	fitted      bool
}

func NewForestRegressor(p ForestParams) *Forest {
	return &Forest{params: p.withDefaults(Regression), kind: Regression}
}

func NewForestClassifier(p ForestParams) *Forest {
	return &Forest{params: p.withDefaults(Classification), kind: Classification}
}

func (f *Forest) Name() string {
	if f.kind == Classification {
		return "random_forest_classifier"
	}
	return "random_forest_regressor"
}

func (f *Forest) Kind() Kind         { return f.kind }
func (f *Forest) NeedsScaling() bool { return false }

func (f *Forest) Fit(X *mat.Dense, y []float64) error {
	rows, cols := X.Dims()
	if rows != len(y) {
		return fmt.Errorf("X has %d rows, y has %d", rows, len(y))
	}
	if rows < f.params.MinSamplesSplit {
		return fmt.Errorf("%w: %d rows", ErrInsufficientSamples, rows)
	}

	weights := make([]float64, rows)
	for i := range weights {
		weights[i] = 1
	}
	if f.kind == Classification && f.params.Balanced {
		nPos := 0
		for _, v := range y {
			if v == 1 {
				nPos++
			}
		}
		if nPos == 0 || nPos == rows {
			return fmt.Errorf("%w: single-class target", ErrInsufficientSamples)
		}
		wPos := float64(rows) / (2 * float64(nPos))
		wNeg := float64(rows) / (2 * float64(rows-nPos))
		for i, v := range y {
			if v == 1 {
				weights[i] = wPos
			} else {
				weights[i] = wNeg
			}
		}
	}

	data := make([][]float64, rows)
	for r := 0; r < rows; r++ {
		data[r] = mat.Row(nil, r, X)
	}

	mtry := cols
	if f.kind == Classification {
		mtry = int(math.Max(1, math.Floor(math.Sqrt(float64(cols)))))
	}

	f.nFeatures = cols
	f.trees = make([]*treeNode, f.params.NTrees)
	f.importances = make([]float64, cols)
	for t := 0; t < f.params.NTrees; t++ {
		// Each tree seeds its own generator so results do not depend on
		// iteration order.
		rng := rand.New(rand.NewSource(f.params.Seed + int64(t)))
		idx := make([]int, rows)
		for i := range idx {
			idx[i] = rng.Intn(rows)
		}
		b := &treeBuilder{
			data:    data,
			y:       y,
			weights: weights,
			params:  f.params,
			kind:    f.kind,
			mtry:    mtry,
			rng:     rng,
			imp:     f.importances,
		}
		f.trees[t] = b.build(idx, 0)
	}
	normalize(f.importances)
	f.fitted = true
	return nil
}

func (f *Forest) Scores(X *mat.Dense) ([]float64, error) {
	if !f.fitted {
		return nil, ErrNotFitted
	}
	rows, cols := X.Dims()
	if cols != f.nFeatures {
		return nil, fmt.Errorf("%w: fitted on %d features, got %d", ErrFeatureOrderMismatch, f.nFeatures, cols)
	}
	out := make([]float64, rows)
	row := make([]float64, cols)
	for r := 0; r < rows; r++ {
		mat.Row(row, r, X)
		sum := 0.0
		for _, tree := range f.trees {
			sum += tree.predict(row)
		}
		out[r] = sum / float64(len(f.trees))
	}
	return out, nil
}

func (f *Forest) Predict(X *mat.Dense) ([]float64, error) {
	scores, err := f.Scores(X)
	if err != nil {
		return nil, err
	}
	if f.kind == Classification {
		for i, s := range scores {
			if s >= 0.5 {
				scores[i] = 1
			} else {
				scores[i] = 0
			}
		}
	}
	return scores, nil
}

func (f *Forest) FeatureImportances() []float64 {
	if !f.fitted {
		return nil
	}
	return append([]float64(nil), f.importances...)
}

func (f *Forest) Params() map[string]any {
	return map[string]any{
		"n_estimators":      f.params.NTrees,
		"max_depth":         f.params.MaxDepth,
		"min_samples_split": f.params.MinSamplesSplit,
		"min_samples_leaf":  f.params.MinSamplesLeaf,
		"balanced":          f.params.Balanced,
		"seed":              f.params.Seed,
	}
}

func (f *Forest) State() (json.RawMessage, error) {
	if !f.fitted {
		return nil, ErrNotFitted
	}
	return json.Marshal(forestState{Trees: f.trees, NFeatures: f.nFeatures, Importances: f.importances})
}

func (f *Forest) Restore(raw json.RawMessage) error {
	var st forestState
	if err := json.Unmarshal(raw, &st); err != nil {
		return err
	}
	f.trees = st.Trees
	f.nFeatures = st.NFeatures
	f.importances = st.Importances
	f.fitted = true
	return nil
}

func (f *Forest) Clone() Estimator {
	if f.kind == Classification {
		return NewForestClassifier(f.params)
	}
	return NewForestRegressor(f.params)
}

type treeBuilder struct {
	data    [][]float64
	y       []float64
	weights []float64
	params  ForestParams
	kind    Kind
	mtry    int
	rng     *rand.Rand
	imp     []float64
}

func (b *treeBuilder) build(idx []int, depth int) *treeNode {
	if depth >= b.params.MaxDepth || len(idx) < b.params.MinSamplesSplit || b.pure(idx) {
		return b.leaf(idx)
	}
	feature, threshold, gain, ok := b.bestSplit(idx)
	if !ok {
		return b.leaf(idx)
	}
	var left, right []int
	for _, i := range idx {
		if b.data[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	if len(left) < b.params.MinSamplesLeaf || len(right) < b.params.MinSamplesLeaf {
		return b.leaf(idx)
	}
	b.imp[feature] += gain * float64(len(idx))
	return &treeNode{
		Feature:   feature,
		Threshold: threshold,
		Left:      b.build(left, depth+1),
		Right:     b.build(right, depth+1),
	}
}

func (b *treeBuilder) pure(idx []int) bool {
	for _, i := range idx[1:] {
		if b.y[i] != b.y[idx[0]] {
			return false
		}
	}
	return true
}

func (b *treeBuilder) leaf(idx []int) *treeNode {
	sum, wsum := 0.0, 0.0
	for _, i := range idx {
		sum += b.weights[i] * b.y[i]
		wsum += b.weights[i]
	}
	return &treeNode{Leaf: true, Value: sum / wsum}
}

// impurity is weighted variance for regression and weighted Gini for
// classification.
func (b *treeBuilder) impurity(idx []int) float64 {
	wsum := 0.0
	mean := 0.0
	for _, i := range idx {
		wsum += b.weights[i]
		mean += b.weights[i] * b.y[i]
	}
	mean /= wsum
	if b.kind == Classification {
		// mean is the weighted positive fraction.
		return 2 * mean * (1 - mean)
	}
	v := 0.0
	for _, i := range idx {
		d := b.y[i] - mean
		v += b.weights[i] * d * d
	}
	return v / wsum
}

func (b *treeBuilder) bestSplit(idx []int) (int, float64, float64, bool) {
	parent := b.impurity(idx)
	features := b.rng.Perm(len(b.imp))[:b.mtry]

	bestGain := 0.0
	bestFeature, bestThreshold := -1, 0.0
	vals := make([]float64, 0, len(idx))
	for _, feature := range features {
		vals = vals[:0]
		for _, i := range idx {
			vals = append(vals, b.data[i][feature])
		}
		sort.Float64s(vals)
		for v := 1; v < len(vals); v++ {
			if vals[v] == vals[v-1] {
				continue
			}
			threshold := (vals[v] + vals[v-1]) / 2
			var left, right []int
			for _, i := range idx {
				if b.data[i][feature] <= threshold {
					left = append(left, i)
				} else {
					right = append(right, i)
				}
			}
			if len(left) < b.params.MinSamplesLeaf || len(right) < b.params.MinSamplesLeaf {
				continue
			}
			n := float64(len(idx))
			gain := parent -
				(float64(len(left))/n)*b.impurity(left) -
				(float64(len(right))/n)*b.impurity(right)
			if gain > bestGain {
				bestGain = gain
				bestFeature = feature
				bestThreshold = threshold
			}
		}
	}
	if bestFeature < 0 {
		return 0, 0, 0, false
	}
	return bestFeature, bestThreshold, bestGain, true
}

func normalize(v []float64) {
	sum := 0.0
	for _, x := range v {
		sum += x
	}
	if sum == 0 {
		return
	}
	for i := range v {
		v[i] /= sum
	}
}
