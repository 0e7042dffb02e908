package model

import (
	"fmt"
	"math/rand"
	"sort"
)

// SplitOptions controls the holdout split. When Groups is set, all rows of a
// group land on the same side so repeated measurements of one subject never
// straddle the boundary. Stratify keeps class balance; it is ignored when
// Groups takes over.
type SplitOptions struct {
	TestSize float64
	Seed     int64
	Stratify []float64
	Groups   []string
}

// TrainTestSplit returns train and test row indexes over n rows.
func TrainTestSplit(n int, opts SplitOptions) ([]int, []int, error) {
	if n < 2 {
		return nil, nil, fmt.Errorf("%w: %d rows", ErrInsufficientSamples, n)
	}
	if opts.TestSize <= 0 || opts.TestSize >= 1 {
		opts.TestSize = 0.2
	}
	rng := rand.New(rand.NewSource(opts.Seed))

	if len(opts.Groups) == n {
		return groupSplit(n, opts, rng)
	}
	if len(opts.Stratify) == n {
		return stratifiedSplit(n, opts, rng)
	}
	perm := rng.Perm(n)
	nTest := int(float64(n)*opts.TestSize + 0.5)
	if nTest < 1 {
		nTest = 1
	}
	if nTest >= n {
		nTest = n - 1
	}
	return sortedCopy(perm[nTest:]), sortedCopy(perm[:nTest]), nil
}

func groupSplit(n int, opts SplitOptions, rng *rand.Rand) ([]int, []int, error) {
	byGroup := map[string][]int{}
	var order []string
	for i, g := range opts.Groups {
		if _, ok := byGroup[g]; !ok {
			order = append(order, g)
		}
		byGroup[g] = append(byGroup[g], i)
	}
	if len(order) < 2 {
		return nil, nil, fmt.Errorf("%w: only %d group(s)", ErrInsufficientSamples, len(order))
	}
	rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })

	wantTest := int(float64(n)*opts.TestSize + 0.5)
	var test []int
	i := 0
	for ; i < len(order)-1 && len(test) < wantTest; i++ {
		test = append(test, byGroup[order[i]]...)
	}
	var train []int
	for ; i < len(order); i++ {
		train = append(train, byGroup[order[i]]...)
	}
	if len(test) == 0 || len(train) == 0 {
		return nil, nil, fmt.Errorf("%w: group split left a side empty", ErrInsufficientSamples)
	}
	return sortedCopy(train), sortedCopy(test), nil
}

func stratifiedSplit(n int, opts SplitOptions, rng *rand.Rand) ([]int, []int, error) {
	byClass := map[float64][]int{}
	var classes []float64
	for i, c := range opts.Stratify {
		if _, ok := byClass[c]; !ok {
			classes = append(classes, c)
		}
		byClass[c] = append(byClass[c], i)
	}
	sort.Float64s(classes)

	var train, test []int
	for _, c := range classes {
		idx := byClass[c]
		rng.Shuffle(len(idx), func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })
		nTest := int(float64(len(idx))*opts.TestSize + 0.5)
		if nTest < 1 && len(idx) > 1 {
			nTest = 1
		}
		test = append(test, idx[:nTest]...)
		train = append(train, idx[nTest:]...)
	}
	if len(test) == 0 || len(train) == 0 {
		return nil, nil, fmt.Errorf("%w: stratified split left a side empty", ErrInsufficientSamples)
	}
	return sortedCopy(train), sortedCopy(test), nil
}

// KFold splits n rows into k shuffled folds and returns the test indexes of
// each fold, sorted within the fold.
func KFold(n, k int, seed int64) ([][]int, error) {
	if k < 2 {
		return nil, fmt.Errorf("k-fold needs k >= 2, got %d", k)
	}
	if n < k {
		return nil, fmt.Errorf("%w: %d rows for %d folds", ErrInsufficientSamples, n, k)
	}
	perm := rand.New(rand.NewSource(seed)).Perm(n)
	folds := make([][]int, k)
	for i, idx := range perm {
		folds[i%k] = append(folds[i%k], idx)
	}
	for i := range folds {
		sort.Ints(folds[i])
	}
	return folds, nil
}

func sortedCopy(idx []int) []int {
	out := append([]int(nil), idx...)
	sort.Ints(out)
	return out
}
