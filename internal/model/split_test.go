package model

import (
	"testing"
)

func TestTrainTestSplitDeterministic(t *testing.T) {
	opts := SplitOptions{TestSize: 0.2, Seed: 42}
	train1, test1, err := TrainTestSplit(50, opts)
	if err != nil {
		t.Fatalf("TrainTestSplit: %v", err)
	}
	train2, test2, err := TrainTestSplit(50, opts)
	if err != nil {
		t.Fatalf("TrainTestSplit: %v", err)
	}
	if len(test1) != 10 {
		t.Fatalf("test size = %d, want 10", len(test1))
	}
	for i := range train1 {
		if train1[i] != train2[i] {
			t.Fatalf("train split not deterministic at %d", i)
		}
	}
	for i := range test1 {
		if test1[i] != test2[i] {
			t.Fatalf("test split not deterministic at %d", i)
		}
	}
	seen := map[int]bool{}
	for _, i := range append(append([]int{}, train1...), test1...) {
		if seen[i] {
			t.Fatalf("index %d appears twice", i)
		}
		seen[i] = true
	}
	if len(seen) != 50 {
		t.Fatalf("partition covers %d of 50 rows", len(seen))
	}
}

func TestGroupSplitKeepsGroupsTogether(t *testing.T) {
	groups := make([]string, 40)
	for i := range groups {
		groups[i] = string(rune('a' + i/4))
	}
	train, test, err := TrainTestSplit(40, SplitOptions{TestSize: 0.25, Seed: 7, Groups: groups})
	if err != nil {
		t.Fatalf("TrainTestSplit: %v", err)
	}
	side := map[string]string{}
	check := func(idx []int, name string) {
		for _, i := range idx {
			g := groups[i]
			if prev, ok := side[g]; ok && prev != name {
				t.Fatalf("group %q appears in both partitions", g)
			}
			side[g] = name
		}
	}
	check(train, "train")
	check(test, "test")
	if len(test) == 0 || len(train) == 0 {
		t.Fatalf("empty partition: train=%d test=%d", len(train), len(test))
	}
}

func TestStratifiedSplitKeepsClassBalance(t *testing.T) {
	y := make([]float64, 100)
	for i := 80; i < 100; i++ {
		y[i] = 1
	}
	train, test, err := TrainTestSplit(100, SplitOptions{TestSize: 0.2, Seed: 42, Stratify: y})
	if err != nil {
		t.Fatalf("TrainTestSplit: %v", err)
	}
	count := func(idx []int) (pos int) {
		for _, i := range idx {
			if y[i] == 1 {
				pos++
			}
		}
		return
	}
	if got := count(test); got != 4 {
		t.Fatalf("test positives = %d, want 4 of 20", got)
	}
	if got := count(train); got != 16 {
		t.Fatalf("train positives = %d, want 16 of 80", got)
	}
}

func TestKFoldPartitions(t *testing.T) {
	folds, err := KFold(23, 5, 42)
	if err != nil {
		t.Fatalf("KFold: %v", err)
	}
	if len(folds) != 5 {
		t.Fatalf("folds = %d, want 5", len(folds))
	}
	seen := map[int]bool{}
	for _, fold := range folds {
		for _, i := range fold {
			if seen[i] {
				t.Fatalf("index %d in two folds", i)
			}
			seen[i] = true
		}
	}
	if len(seen) != 23 {
		t.Fatalf("folds cover %d of 23 rows", len(seen))
	}
}
