package ml

import (
	"context"
	"errors"
	"fmt"
	"slices"
)

// LinearModel is an ordinary least-squares regressor over numeric columns.
type LinearModel struct {
	columns   []string
	weights   []float64
	intercept float64
}

func NewLinearModel(columns []string, intercept float64, coefficients map[string]float64) (*LinearModel, error) {
	if err := Manifest(columns).Validate(); err != nil {
		return nil, fmt.Errorf("linear model columns: %w", err)
	}
	if len(coefficients) != len(columns) {
		return nil, fmt.Errorf("linear model has %d coefficients for %d columns", len(coefficients), len(columns))
	}
	weights := make([]float64, len(columns))
	for i, col := range columns {
		w, ok := coefficients[col]
		if !ok {
			return nil, fmt.Errorf("no coefficient for column %q", col)
		}
		weights[i] = w
	}
	return &LinearModel{
		columns:   slices.Clone(columns),
		weights:   weights,
		intercept: intercept,
	}, nil
}

func (m *LinearModel) Scheme() Scheme {
	return SchemeOneHot
}

func (m *LinearModel) Columns() []string {
	return slices.Clone(m.columns)
}

func (m *LinearModel) Predict(ctx context.Context, v FeatureVector) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if len(m.weights) == 0 {
		return 0, errors.New("model not loaded")
	}
	if err := CheckSchema(v, m.columns); err != nil {
		return 0, err
	}
	values, err := v.Numbers()
	if err != nil {
		return 0, err
	}
	sum := m.intercept
	for i, x := range values {
		sum += m.weights[i] * x
	}
	return sum, nil
}
