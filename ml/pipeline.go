package ml

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
)

// Pipeline is a model that bundles its own categorical encoder: it accepts
// SchemeCategorical vectors, expands each categorical column into one
// indicator per known category, and hands the numeric result to its
// estimator. A category the encoder never saw maps to all zeros.
type Pipeline struct {
	categories map[string][]string
	expanded   []string
	estimator  Predictor
}

// labelColumns are the SchemeCategorical columns that carry labels.
var labelColumns = []string{"sex", "smoker", "region"}

// NewPipeline checks that the bundled encoder output matches the estimator columns.
func NewPipeline(categories map[string][]string, estimator Predictor) (*Pipeline, error) {
	if estimator == nil {
		return nil, errors.New("pipeline estimator is nil")
	}
	if estimator.Scheme() != SchemeOneHot {
		return nil, errors.New("pipeline estimator must take numeric input")
	}
	cats := make(map[string][]string, len(categories))
	for col, values := range categories {
		if !slices.Contains(labelColumns, col) {
			return nil, fmt.Errorf("column %q is numeric and takes no categories", col)
		}
		if len(values) == 0 {
			return nil, fmt.Errorf("no categories for column %q", col)
		}
		cats[col] = slices.Clone(values)
	}
	for _, col := range labelColumns {
		if _, ok := cats[col]; !ok {
			return nil, fmt.Errorf("no categories for column %q", col)
		}
	}

	p := &Pipeline{categories: cats, estimator: estimator}
	p.expanded = p.expandColumns()
	if !slices.Equal(p.expanded, estimator.Columns()) {
		return nil, &SchemaMismatchError{
			Expected: estimator.Columns(),
			Got:      p.expanded,
			Reason:   "bundled encoder output does not match estimator columns",
		}
	}
	return p, nil
}

func (p *Pipeline) Scheme() Scheme {
	return SchemeCategorical
}

func (p *Pipeline) Columns() []string {
	return CategoricalColumns()
}

// ExpandedColumns returns the numeric columns the estimator receives.
func (p *Pipeline) ExpandedColumns() []string {
	return slices.Clone(p.expanded)
}

// Categories returns the known categories per column, keys sorted.
func (p *Pipeline) Categories() map[string][]string {
	keys := make([]string, 0, len(p.categories))
	for key := range p.categories {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	out := make(map[string][]string, len(keys))
	for _, key := range keys {
		out[key] = slices.Clone(p.categories[key])
	}
	return out
}

func (p *Pipeline) Predict(ctx context.Context, v FeatureVector) (float64, error) {
	if err := CheckSchema(v, CategoricalColumns()); err != nil {
		return 0, err
	}
	expanded, err := p.Transform(v)
	if err != nil {
		return 0, err
	}
	return p.estimator.Predict(ctx, expanded)
}

// Transform applies the bundled encoder.
func (p *Pipeline) Transform(v FeatureVector) (FeatureVector, error) {
	out := make([]Feature, 0, len(p.expanded))
	for _, f := range v.Features {
		cats, isCat := p.categories[f.Name]
		switch {
		case isCat && f.Kind == Categorical:
			for _, c := range cats {
				ind := 0.0
				if c == f.Label {
					ind = 1
				}
				out = append(out, num(f.Name+"_"+c, ind))
			}
		case isCat:
			return FeatureVector{}, fmt.Errorf("column %q: expected a category label", f.Name)
		case f.Kind == Categorical:
			return FeatureVector{}, fmt.Errorf("column %q: no categories for label %q", f.Name, f.Label)
		default:
			out = append(out, f)
		}
	}
	return FeatureVector{Scheme: SchemeOneHot, Features: out}, nil
}

func (p *Pipeline) expandColumns() []string {
	cols := make([]string, 0, len(CategoricalColumns())+8)
	for _, col := range CategoricalColumns() {
		cats, ok := p.categories[col]
		if !ok {
			cols = append(cols, col)
			continue
		}
		for _, c := range cats {
			cols = append(cols, col+"_"+c)
		}
	}
	return cols
}
