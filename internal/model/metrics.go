package model

import (
	"math"
	"sort"
)

// R2 is the coefficient of determination. A constant truth vector yields
// zero rather than a division by zero.
func R2(truth, pred []float64) float64 {
	mean := 0.0
	for _, v := range truth {
		mean += v
	}
	mean /= float64(len(truth))
	ssRes, ssTot := 0.0, 0.0
	for i := range truth {
		d := truth[i] - pred[i]
		ssRes += d * d
		t := truth[i] - mean
		ssTot += t * t
	}
	if ssTot == 0 {
		return 0
	}
	return 1 - ssRes/ssTot
}

func MAE(truth, pred []float64) float64 {
	sum := 0.0
	for i := range truth {
		sum += math.Abs(truth[i] - pred[i])
	}
	return sum / float64(len(truth))
}

func RMSE(truth, pred []float64) float64 {
	sum := 0.0
	for i := range truth {
		d := truth[i] - pred[i]
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(truth)))
}

func Accuracy(truth, pred []float64) float64 {
	hits := 0
	for i := range truth {
		if truth[i] == pred[i] {
			hits++
		}
	}
	return float64(hits) / float64(len(truth))
}

func confusion(truth, pred []float64) (tp, fp, fn int) {
	for i := range truth {
		switch {
		case pred[i] == 1 && truth[i] == 1:
			tp++
		case pred[i] == 1 && truth[i] == 0:
			fp++
		case pred[i] == 0 && truth[i] == 1:
			fn++
		}
	}
	return
}

func Precision(truth, pred []float64) float64 {
	tp, fp, _ := confusion(truth, pred)
	if tp+fp == 0 {
		return 0
	}
	return float64(tp) / float64(tp+fp)
}

func Recall(truth, pred []float64) float64 {
	tp, _, fn := confusion(truth, pred)
	if tp+fn == 0 {
		return 0
	}
	return float64(tp) / float64(tp+fn)
}

func F1(truth, pred []float64) float64 {
	p, r := Precision(truth, pred), Recall(truth, pred)
	if p+r == 0 {
		return 0
	}
	return 2 * p * r / (p + r)
}

// ROCAUC computes the area under the ROC curve from continuous scores via
// the rank statistic, with tied scores sharing average ranks. Returns 0.5
// when only one class is present.
func ROCAUC(truth, scores []float64) float64 {
	n := len(truth)
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return scores[idx[a]] < scores[idx[b]] })

	ranks := make([]float64, n)
	for i := 0; i < n; {
		j := i
		for j < n && scores[idx[j]] == scores[idx[i]] {
			j++
		}
		avg := float64(i+j+1) / 2
		for k := i; k < j; k++ {
			ranks[idx[k]] = avg
		}
		i = j
	}

	nPos, rankSum := 0, 0.0
	for i := range truth {
		if truth[i] == 1 {
			nPos++
			rankSum += ranks[i]
		}
	}
	nNeg := n - nPos
	if nPos == 0 || nNeg == 0 {
		return 0.5
	}
	return (rankSum - float64(nPos)*float64(nPos+1)/2) / (float64(nPos) * float64(nNeg))
}
