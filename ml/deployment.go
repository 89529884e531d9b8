package ml

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/Masterminds/semver/v3"

	"insurecast/policy"
)

// DeploymentSpec declares one served model. Scheme is mandatory: the
// encoding is never guessed from the artifact alone.
type DeploymentSpec struct {
	Name              string   `yaml:"name" json:"name"`
	Model             string   `yaml:"model" json:"model"`
	Manifest          string   `yaml:"manifest,omitempty" json:"manifest,omitempty"`
	Scheme            string   `yaml:"scheme" json:"scheme"`
	VersionConstraint string   `yaml:"version_constraint,omitempty" json:"version_constraint,omitempty"`
	Rules             []string `yaml:"rules,omitempty" json:"rules,omitempty"`
}

// Deployment pairs a loaded model with the one encoder that matches it.
// Immutable once built.
type Deployment struct {
	name    string
	info    ModelInfo
	encoder *Encoder
	model   Predictor
	policy  *policy.Policy
}

// Estimate is the result of one prediction.
type Estimate struct {
	Deployment string        `json:"deployment"`
	BMI        float64       `json:"bmi"`
	Charge     float64       `json:"charge"`
	Vector     FeatureVector `json:"features"`
}

// NewDeployment checks that encoder and model agree on scheme and columns.
func NewDeployment(name string, info ModelInfo, encoder *Encoder, model Predictor, p *policy.Policy) (*Deployment, error) {
	if name == "" {
		return nil, errors.New("deployment name is required")
	}
	if encoder == nil || model == nil {
		return nil, fmt.Errorf("deployment %s: encoder and model are required", name)
	}
	if encoder.Scheme() != model.Scheme() {
		return nil, &SchemaMismatchError{
			Reason: fmt.Sprintf("deployment %s: encoder scheme %s, model expects %s", name, encoder.Scheme(), model.Scheme()),
		}
	}
	if !slices.Equal(encoder.Columns(), model.Columns()) {
		return nil, &SchemaMismatchError{
			Expected: model.Columns(),
			Got:      encoder.Columns(),
			Reason:   fmt.Sprintf("deployment %s: manifest does not match model", name),
		}
	}
	info.Scheme = model.Scheme()
	info.Columns = model.Columns()
	return &Deployment{name: name, info: info, encoder: encoder, model: model, policy: p}, nil
}

// LoadDeployment reads the artifact and manifest named by spec.
func LoadDeployment(spec DeploymentSpec) (*Deployment, error) {
	scheme, err := ParseScheme(spec.Scheme)
	if err != nil {
		return nil, fmt.Errorf("deployment %s: %w", spec.Name, err)
	}
	model, info, err := LoadModel(spec.Model)
	if err != nil {
		return nil, fmt.Errorf("deployment %s: %w", spec.Name, err)
	}
	if info.Scheme != scheme {
		return nil, &SchemaMismatchError{
			Reason: fmt.Sprintf("deployment %s declares scheme %s but artifact %s expects %s", spec.Name, scheme, spec.Model, info.Scheme),
		}
	}
	if err := checkVersion(info.Version, spec.VersionConstraint); err != nil {
		return nil, fmt.Errorf("deployment %s: %w", spec.Name, err)
	}

	var manifest Manifest
	if spec.Manifest != "" {
		manifest, err = LoadManifest(spec.Manifest)
		if err != nil {
			return nil, fmt.Errorf("deployment %s: %w", spec.Name, err)
		}
	} else if scheme == SchemeOneHot {
		manifest = Manifest(model.Columns())
	}

	encoder, err := NewEncoder(scheme, manifest, WithRequiredManifest())
	if err != nil {
		return nil, fmt.Errorf("deployment %s: %w", spec.Name, err)
	}
	p, err := policy.Compile(spec.Rules)
	if err != nil {
		return nil, fmt.Errorf("deployment %s: %w", spec.Name, err)
	}
	return NewDeployment(spec.Name, info, encoder, model, p)
}

func checkVersion(version, constraint string) error {
	if constraint == "" {
		return nil
	}
	c, err := semver.NewConstraint(constraint)
	if err != nil {
		return fmt.Errorf("invalid version constraint %q: %w", constraint, err)
	}
	v, err := semver.NewVersion(version)
	if err != nil {
		return fmt.Errorf("artifact version %q: %w", version, err)
	}
	if !c.Check(v) {
		return fmt.Errorf("artifact version %s does not satisfy %s", v, constraint)
	}
	return nil
}

// Name returns the configured deployment name.
func (d *Deployment) Name() string {
	return d.name
}

// Info describes the loaded artifact.
func (d *Deployment) Info() ModelInfo {
	info := d.info
	info.Columns = slices.Clone(d.info.Columns)
	return info
}

// Scheme returns the encoding the model expects.
func (d *Deployment) Scheme() Scheme {
	return d.encoder.Scheme()
}

// Rules returns the admission rule sources.
func (d *Deployment) Rules() []string {
	return d.policy.Rules()
}

// Encode validates raw and returns the vector the model would receive.
func (d *Deployment) Encode(raw RawInput) (FeatureVector, float64, error) {
	if err := raw.Validate(); err != nil {
		return FeatureVector{}, 0, err
	}
	bmi, err := raw.ResolveBMI()
	if err != nil {
		return FeatureVector{}, 0, err
	}
	if err := d.policy.Check(raw.Attributes(bmi)); err != nil {
		return FeatureVector{}, 0, &ValidationError{Fields: []FieldError{{Field: "policy", Reason: err.Error()}}}
	}
	vector, err := d.encoder.EncodeWithBMI(raw, bmi)
	if err != nil {
		return FeatureVector{}, 0, err
	}
	if err := CheckSchema(vector, d.model.Columns()); err != nil {
		return FeatureVector{}, 0, err
	}
	return vector, bmi, nil
}

// Estimate runs validation, encoding and the model for one request.
func (d *Deployment) Estimate(ctx context.Context, raw RawInput) (Estimate, error) {
	vector, bmi, err := d.Encode(raw)
	if err != nil {
		return Estimate{}, err
	}
	charge, err := d.model.Predict(ctx, vector)
	if err != nil {
		return Estimate{}, fmt.Errorf("deployment %s: predict: %w", d.name, err)
	}
	return Estimate{Deployment: d.name, BMI: bmi, Charge: charge, Vector: vector}, nil
}
