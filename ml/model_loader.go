package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"slices"
)

const (
	ModelTypeLinear   = "linear"
	ModelTypeTree     = "tree"
	ModelTypePipeline = "pipeline"
)

// artifact is the on-disk JSON form shared by every model type. Only the
// fields of the declared type are read.
type artifact struct {
	Type    string   `json:"type"`
	Name    string   `json:"name"`
	Version string   `json:"version"`
	Scheme  string   `json:"scheme"`
	Columns []string `json:"columns"`

	Intercept    float64            `json:"intercept"`
	Coefficients map[string]float64 `json:"coefficients"`

	Nodes []TreeNode `json:"nodes"`

	Categories map[string][]string `json:"categories"`
	Estimator  *artifact           `json:"estimator"`
}

// LoadModel reads a model artifact and builds the predictor for its type.
func LoadModel(path string) (Predictor, ModelInfo, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, ModelInfo{}, err
	}
	var a artifact
	if err := json.Unmarshal(payload, &a); err != nil {
		return nil, ModelInfo{}, fmt.Errorf("model %s: %w", path, err)
	}
	model, err := buildModel(&a)
	if err != nil {
		return nil, ModelInfo{}, fmt.Errorf("model %s: %w", path, err)
	}
	info := ModelInfo{
		Name:    a.Name,
		Type:    a.Type,
		Version: a.Version,
		Scheme:  model.Scheme(),
		Columns: model.Columns(),
		Path:    path,
	}
	return model, info, nil
}

func buildModel(a *artifact) (Predictor, error) {
	scheme, err := ParseScheme(a.Scheme)
	if err != nil {
		return nil, err
	}
	switch a.Type {
	case ModelTypeLinear:
		if scheme != SchemeOneHot {
			return nil, errors.New("linear model needs numeric input; wrap it in a pipeline for categorical input")
		}
		return NewLinearModel(a.Columns, a.Intercept, a.Coefficients)
	case ModelTypeTree:
		if scheme != SchemeOneHot {
			return nil, errors.New("tree model needs numeric input; wrap it in a pipeline for categorical input")
		}
		return NewRegressionTree(a.Columns, a.Nodes)
	case ModelTypePipeline:
		if scheme != SchemeCategorical {
			return nil, errors.New("pipeline model takes categorical input")
		}
		if a.Estimator == nil {
			return nil, errors.New("pipeline has no estimator")
		}
		inner, err := buildModel(a.Estimator)
		if err != nil {
			return nil, fmt.Errorf("estimator: %w", err)
		}
		columns := a.Columns
		if len(columns) == 0 {
			columns = CategoricalColumns()
		}
		if !slices.Equal(columns, CategoricalColumns()) {
			return nil, &SchemaMismatchError{Expected: CategoricalColumns(), Got: columns, Reason: "pipeline input columns"}
		}
		return NewPipeline(a.Categories, inner)
	default:
		return nil, fmt.Errorf("unsupported model type %q", a.Type)
	}
}
