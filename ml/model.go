package ml

import "context"

// Predictor is a loaded model artifact. It is read-only after load and safe
// for concurrent use.
type Predictor interface {
	// Scheme is the encoding the model expects its input in.
	Scheme() Scheme
	// Columns is the exact input column order the model was trained with.
	Columns() []string
	Predict(ctx context.Context, v FeatureVector) (float64, error)
}

// ModelInfo describes an artifact independent of its estimator type.
type ModelInfo struct {
	Name    string   `json:"name"`
	Type    string   `json:"type"`
	Version string   `json:"version"`
	Scheme  Scheme   `json:"scheme"`
	Columns []string `json:"columns"`
	Path    string   `json:"path,omitempty"`
}
