package ml

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
)

// Scheme names one of the two mutually exclusive feature encodings.
type Scheme string

const (
	// SchemeCategorical leaves sex, smoker and region as labels for a model
	// that bundles its own categorical encoder.
	SchemeCategorical Scheme = "categorical"
	// SchemeOneHot label-encodes sex and smoker and expands region into four
	// indicator columns, ordered by a manifest.
	SchemeOneHot Scheme = "onehot"
)

// ParseScheme maps a config value to a Scheme.
func ParseScheme(s string) (Scheme, error) {
	switch Scheme(strings.ToLower(strings.TrimSpace(s))) {
	case SchemeCategorical:
		return SchemeCategorical, nil
	case SchemeOneHot:
		return SchemeOneHot, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownScheme, s)
}

// CategoricalColumns is the fixed column order of SchemeCategorical.
func CategoricalColumns() []string {
	return []string{"age", "sex", "bmi", "children", "smoker", "region"}
}

// OneHotColumns is the column order of SchemeOneHot when no manifest is given.
func OneHotColumns() []string {
	return []string{
		"age", "sex", "bmi", "children", "smoker",
		"region_northeast", "region_northwest", "region_southeast", "region_southwest",
	}
}

// FeatureKind tells numeric columns from categorical labels.
type FeatureKind int

const (
	Numeric FeatureKind = iota
	Categorical
)

// Feature is one named column of a FeatureVector.
type Feature struct {
	Name  string
	Kind  FeatureKind
	Num   float64
	Label string
}

func num(name string, v float64) Feature {
	return Feature{Name: name, Kind: Numeric, Num: v}
}

func label(name, v string) Feature {
	return Feature{Name: name, Kind: Categorical, Label: v}
}

// FeatureVector is the ordered record handed to a model.
type FeatureVector struct {
	Scheme   Scheme
	Features []Feature
}

// Names returns the column names in order.
func (v FeatureVector) Names() []string {
	names := make([]string, len(v.Features))
	for i, f := range v.Features {
		names[i] = f.Name
	}
	return names
}

// Get looks up a column by name.
func (v FeatureVector) Get(name string) (Feature, bool) {
	for _, f := range v.Features {
		if f.Name == name {
			return f, true
		}
	}
	return Feature{}, false
}

// Numbers returns the vector as plain floats. It fails if any column is
// still categorical.
func (v FeatureVector) Numbers() ([]float64, error) {
	out := make([]float64, len(v.Features))
	for i, f := range v.Features {
		if f.Kind != Numeric {
			return nil, fmt.Errorf("column %q is categorical", f.Name)
		}
		out[i] = f.Num
	}
	return out, nil
}

// MarshalJSON writes the vector as an object whose keys keep column order.
func (v FeatureVector) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range v.Features {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.Name)
		if err != nil {
			return nil, err
		}
		var val []byte
		if f.Kind == Categorical {
			val, err = json.Marshal(f.Label)
		} else {
			val, err = json.Marshal(f.Num)
		}
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Encode turns raw into the feature vector for scheme. BMI is resolved from
// raw; raw itself is never modified. Under SchemeOneHot the record is
// reindexed to manifest, or to OneHotColumns when manifest is empty.
func Encode(raw RawInput, scheme Scheme, manifest Manifest) (FeatureVector, error) {
	bmi, err := raw.ResolveBMI()
	if err != nil {
		return FeatureVector{}, err
	}
	return encodeWithBMI(raw, bmi, scheme, manifest)
}

func encodeWithBMI(raw RawInput, bmi float64, scheme Scheme, manifest Manifest) (FeatureVector, error) {
	switch scheme {
	case SchemeCategorical:
		return encodeCategorical(raw, bmi, manifest)
	case SchemeOneHot:
		return encodeOneHot(raw, bmi, manifest)
	}
	return FeatureVector{}, fmt.Errorf("%w: %q", ErrUnknownScheme, scheme)
}

func encodeCategorical(raw RawInput, bmi float64, manifest Manifest) (FeatureVector, error) {
	if len(manifest) > 0 && !slices.Equal(manifest, CategoricalColumns()) {
		return FeatureVector{}, &SchemaMismatchError{
			Expected: CategoricalColumns(),
			Got:      slices.Clone(manifest),
			Reason:   "categorical scheme has a fixed column order",
		}
	}
	return FeatureVector{
		Scheme: SchemeCategorical,
		Features: []Feature{
			num("age", float64(raw.Age)),
			label("sex", string(raw.Sex)),
			num("bmi", bmi),
			num("children", float64(raw.Children)),
			label("smoker", string(raw.Smoker)),
			label("region", string(raw.Region)),
		},
	}, nil
}

func encodeOneHot(raw RawInput, bmi float64, manifest Manifest) (FeatureVector, error) {
	sex, ok := sexCodes[raw.Sex]
	if !ok {
		return FeatureVector{}, &ValidationError{Fields: []FieldError{{Field: "sex", Reason: fmt.Sprintf("no code for %q", raw.Sex)}}}
	}
	smoker, ok := smokerCodes[raw.Smoker]
	if !ok {
		return FeatureVector{}, &ValidationError{Fields: []FieldError{{Field: "smoker", Reason: fmt.Sprintf("no code for %q", raw.Smoker)}}}
	}

	record := []Feature{
		num("age", float64(raw.Age)),
		num("sex", sex),
		num("bmi", bmi),
		num("children", float64(raw.Children)),
		num("smoker", smoker),
	}
	// An unknown region produces a column no manifest carries, so reindexing
	// leaves every known indicator at zero.
	regionCol, ok := regionColumns[raw.Region]
	if !ok {
		regionCol = "region_" + string(raw.Region)
	}
	for _, r := range Regions() {
		col := regionColumns[r]
		if col == regionCol {
			continue
		}
		record = append(record, num(col, 0))
	}
	record = append(record, num(regionCol, 1))

	columns := manifest
	if len(columns) == 0 {
		columns = OneHotColumns()
	}
	return FeatureVector{Scheme: SchemeOneHot, Features: Reindex(record, columns)}, nil
}

// Reindex orders features by columns. Columns missing from features get a
// numeric zero; features not named in columns are dropped.
func Reindex(features []Feature, columns []string) []Feature {
	byName := make(map[string]Feature, len(features))
	for _, f := range features {
		byName[f.Name] = f
	}
	out := make([]Feature, len(columns))
	for i, col := range columns {
		if f, ok := byName[col]; ok {
			out[i] = f
			continue
		}
		out[i] = num(col, 0)
	}
	return out
}

// CheckSchema compares the vector's columns, in order, with expected.
func CheckSchema(v FeatureVector, expected []string) error {
	got := v.Names()
	if slices.Equal(got, expected) {
		return nil
	}
	reason := "column order differs"
	if len(got) != len(expected) {
		reason = fmt.Sprintf("expected %d columns, got %d", len(expected), len(got))
	} else {
		for i := range got {
			if !slices.Contains(expected, got[i]) {
				reason = fmt.Sprintf("unexpected column %q", got[i])
				break
			}
		}
	}
	return &SchemaMismatchError{Expected: slices.Clone(expected), Got: got, Reason: reason}
}

// Encoder binds a scheme and manifest for one deployed model.
type Encoder struct {
	scheme          Scheme
	manifest        Manifest
	requireManifest bool
}

// EncoderOption configures NewEncoder.
type EncoderOption func(*Encoder)

// WithRequiredManifest makes a missing one-hot manifest an error instead of
// falling back to OneHotColumns.
func WithRequiredManifest() EncoderOption {
	return func(e *Encoder) {
		e.requireManifest = true
	}
}

// NewEncoder validates scheme and manifest and returns an Encoder bound to them.
func NewEncoder(scheme Scheme, manifest Manifest, opts ...EncoderOption) (*Encoder, error) {
	if _, err := ParseScheme(string(scheme)); err != nil {
		return nil, err
	}
	e := &Encoder{scheme: scheme, manifest: slices.Clone(manifest)}
	for _, opt := range opts {
		opt(e)
	}
	if err := e.checkManifest(); err != nil {
		return nil, err
	}
	if scheme == SchemeCategorical && len(manifest) > 0 && !slices.Equal(manifest, CategoricalColumns()) {
		return nil, &SchemaMismatchError{
			Expected: CategoricalColumns(),
			Got:      slices.Clone(manifest),
			Reason:   "categorical scheme has a fixed column order",
		}
	}
	return e, nil
}

// Scheme returns the encoding this encoder produces.
func (e *Encoder) Scheme() Scheme {
	return e.scheme
}

// Columns returns the column order this encoder produces.
func (e *Encoder) Columns() []string {
	switch {
	case e.scheme == SchemeCategorical:
		return CategoricalColumns()
	case len(e.manifest) > 0:
		return slices.Clone(e.manifest)
	}
	return OneHotColumns()
}

// Encode resolves BMI and encodes raw with the bound scheme and manifest.
func (e *Encoder) Encode(raw RawInput) (FeatureVector, error) {
	if err := e.checkManifest(); err != nil {
		return FeatureVector{}, err
	}
	return Encode(raw, e.scheme, e.manifest)
}

// EncodeWithBMI encodes raw with an already resolved BMI.
func (e *Encoder) EncodeWithBMI(raw RawInput, bmi float64) (FeatureVector, error) {
	if err := e.checkManifest(); err != nil {
		return FeatureVector{}, err
	}
	return encodeWithBMI(raw, bmi, e.scheme, e.manifest)
}

func (e *Encoder) checkManifest() error {
	if e.scheme == SchemeOneHot && e.requireManifest && len(e.manifest) == 0 {
		return &SchemaMismatchError{Reason: "one-hot encoding requires a column manifest and none was loaded"}
	}
	return nil
}
