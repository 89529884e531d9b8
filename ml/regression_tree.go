package ml

import (
	"context"
	"errors"
	"fmt"
	"slices"
)

// RegressionTree is a fitted CART regressor stored as a flat node array with
// the root at index 0.
type RegressionTree struct {
	columns []string
	nodes   []TreeNode
}

type TreeNode struct {
	FeatureIdx int     `json:"feature_idx"`
	Threshold  float64 `json:"threshold"`
	LeftChild  int     `json:"left_child"`
	RightChild int     `json:"right_child"`
	Value      float64 `json:"value"`
	IsLeaf     bool    `json:"is_leaf"`
}

func NewRegressionTree(columns []string, nodes []TreeNode) (*RegressionTree, error) {
	if err := Manifest(columns).Validate(); err != nil {
		return nil, fmt.Errorf("tree columns: %w", err)
	}
	if len(nodes) == 0 {
		return nil, errors.New("tree has no nodes")
	}
	for i, node := range nodes {
		if node.IsLeaf {
			continue
		}
		if node.FeatureIdx < 0 || node.FeatureIdx >= len(columns) {
			return nil, fmt.Errorf("node %d: feature index %d out of range", i, node.FeatureIdx)
		}
		// Children always follow their parent, which rules out cycles.
		if node.LeftChild <= i || node.LeftChild >= len(nodes) {
			return nil, fmt.Errorf("node %d: invalid left child %d", i, node.LeftChild)
		}
		if node.RightChild <= i || node.RightChild >= len(nodes) {
			return nil, fmt.Errorf("node %d: invalid right child %d", i, node.RightChild)
		}
	}
	return &RegressionTree{
		columns: slices.Clone(columns),
		nodes:   slices.Clone(nodes),
	}, nil
}

func (t *RegressionTree) Scheme() Scheme {
	return SchemeOneHot
}

func (t *RegressionTree) Columns() []string {
	return slices.Clone(t.columns)
}

func (t *RegressionTree) Predict(ctx context.Context, v FeatureVector) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if len(t.nodes) == 0 {
		return 0, errors.New("model not loaded")
	}
	if err := CheckSchema(v, t.columns); err != nil {
		return 0, err
	}
	features, err := v.Numbers()
	if err != nil {
		return 0, err
	}
	idx := 0
	for {
		node := t.nodes[idx]
		if node.IsLeaf {
			return node.Value, nil
		}
		if features[node.FeatureIdx] <= node.Threshold {
			idx = node.LeftChild
		} else {
			idx = node.RightChild
		}
	}
}

// Depth returns the number of edges on the longest root-to-leaf path.
func (t *RegressionTree) Depth() int {
	return t.depth(0)
}

func (t *RegressionTree) depth(idx int) int {
	node := t.nodes[idx]
	if node.IsLeaf {
		return 0
	}
	return 1 + max(t.depth(node.LeftChild), t.depth(node.RightChild))
}
