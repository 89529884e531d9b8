package ml

import (
	"context"
	"errors"
	"testing"
)

func testTree(t *testing.T) *RegressionTree {
	t.Helper()
	nodes := []TreeNode{
		{FeatureIdx: 4, Threshold: 0.5, LeftChild: 1, RightChild: 4},
		{FeatureIdx: 0, Threshold: 40, LeftChild: 2, RightChild: 3},
		{FeatureIdx: -1, LeftChild: -1, RightChild: -1, Value: 5000, IsLeaf: true},
		{FeatureIdx: -1, LeftChild: -1, RightChild: -1, Value: 11000, IsLeaf: true},
		{FeatureIdx: 2, Threshold: 30, LeftChild: 5, RightChild: 6},
		{FeatureIdx: -1, LeftChild: -1, RightChild: -1, Value: 21000, IsLeaf: true},
		{FeatureIdx: -1, LeftChild: -1, RightChild: -1, Value: 42000, IsLeaf: true},
	}
	tree, err := NewRegressionTree(OneHotColumns(), nodes)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return tree
}

func TestRegressionTreePredict(t *testing.T) {
	tree := testTree(t)
	tests := []struct {
		age    int
		smoker Smoker
		bmi    float64
		want   float64
	}{
		{age: 30, smoker: SmokerNo, bmi: 24, want: 5000},
		{age: 55, smoker: SmokerNo, bmi: 24, want: 11000},
		{age: 30, smoker: SmokerYes, bmi: 24, want: 21000},
		{age: 30, smoker: SmokerYes, bmi: 35, want: 42000},
	}
	for _, tt := range tests {
		raw := RawInput{Age: tt.age, Sex: SexFemale, BMI: Float(tt.bmi), Smoker: tt.smoker, Region: RegionSouthwest}
		vector, err := Encode(raw, SchemeOneHot, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		got, err := tree.Predict(context.Background(), vector)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != tt.want {
			t.Fatalf("age=%d smoker=%s bmi=%v: expected %v, got %v", tt.age, tt.smoker, tt.bmi, tt.want, got)
		}
	}
	if tree.Depth() != 2 {
		t.Fatalf("expected depth 2, got %d", tree.Depth())
	}
}

func TestRegressionTreeRejectsForeignVector(t *testing.T) {
	tree := testTree(t)
	vector, err := Encode(referenceInput(), SchemeOneHot, Manifest{"age", "bmi"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := tree.Predict(context.Background(), vector); !errors.Is(err, ErrSchemaMismatch) {
		t.Fatalf("expected schema mismatch, got %v", err)
	}
}

func TestRegressionTreeValidatesNodes(t *testing.T) {
	cases := map[string][]TreeNode{
		"empty":         nil,
		"feature range": {{FeatureIdx: 20, LeftChild: 1, RightChild: 2}, {IsLeaf: true}, {IsLeaf: true}},
		"cycle":         {{FeatureIdx: 0, LeftChild: 0, RightChild: 1}, {IsLeaf: true}},
		"child range":   {{FeatureIdx: 0, LeftChild: 1, RightChild: 9}, {IsLeaf: true}},
	}
	for name, nodes := range cases {
		if _, err := NewRegressionTree(OneHotColumns(), nodes); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestRegressionTreeHonoursContext(t *testing.T) {
	tree := testTree(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	vector, _ := Encode(referenceInput(), SchemeOneHot, nil)
	if _, err := tree.Predict(ctx, vector); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
