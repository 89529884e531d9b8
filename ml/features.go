package ml

import (
	"fmt"
	"math"
	"strings"
)

const (
	MinAge      = 0
	MaxAge      = 100
	MinHeightCM = 100.0
	MaxHeightCM = 250.0
	MinWeightKG = 30.0
	MaxWeightKG = 200.0
	MinBMI      = 10.0
	MaxBMI      = 50.0
	MinChildren = 0
	MaxChildren = 10
)

type Sex string

const (
	SexMale   Sex = "male"
	SexFemale Sex = "female"
)

type Smoker string

const (
	SmokerYes Smoker = "yes"
	SmokerNo  Smoker = "no"
)

type Region string

const (
	RegionNortheast Region = "northeast"
	RegionNorthwest Region = "northwest"
	RegionSoutheast Region = "southeast"
	RegionSouthwest Region = "southwest"
)

// Closed lookup tables for the categorical attributes. Every encoding path
// goes through these; nothing branches on the raw strings.
var (
	sexCodes = map[Sex]float64{
		SexFemale: 0,
		SexMale:   1,
	}
	smokerCodes = map[Smoker]float64{
		SmokerNo:  0,
		SmokerYes: 1,
	}
	regionColumns = map[Region]string{
		RegionNortheast: "region_northeast",
		RegionNorthwest: "region_northwest",
		RegionSoutheast: "region_southeast",
		RegionSouthwest: "region_southwest",
	}
)

// Regions lists the known regions in indicator column order.
func Regions() []Region {
	return []Region{RegionNortheast, RegionNorthwest, RegionSoutheast, RegionSouthwest}
}

// ParseSex accepts a sex label in any case.
func ParseSex(s string) (Sex, error) {
	v := Sex(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := sexCodes[v]; !ok {
		return "", fmt.Errorf("unknown sex %q", s)
	}
	return v, nil
}

// ParseSmoker accepts yes or no in any case.
func ParseSmoker(s string) (Smoker, error) {
	v := Smoker(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := smokerCodes[v]; !ok {
		return "", fmt.Errorf("unknown smoker value %q", s)
	}
	return v, nil
}

// ParseRegion accepts one of the four regions in any case.
func ParseRegion(s string) (Region, error) {
	v := Region(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := regionColumns[v]; !ok {
		return "", fmt.Errorf("unknown region %q", s)
	}
	return v, nil
}

// Valid reports whether s has a code.
func (s Sex) Valid() bool {
	_, ok := sexCodes[s]
	return ok
}

// Valid reports whether s has a code.
func (s Smoker) Valid() bool {
	_, ok := smokerCodes[s]
	return ok
}

// Valid reports whether r has an indicator column.
func (r Region) Valid() bool {
	_, ok := regionColumns[r]
	return ok
}

// RawInput is one prediction request as collected from the user. The BMI is
// either supplied directly or derived from height and weight, never both.
type RawInput struct {
	Age      int      `json:"age" yaml:"age" jsonschema:"minimum=0,maximum=100"`
	Sex      Sex      `json:"sex" yaml:"sex" jsonschema:"enum=male,enum=female"`
	HeightCM *float64 `json:"height_cm,omitempty" yaml:"height_cm,omitempty" jsonschema:"minimum=100,maximum=250"`
	WeightKG *float64 `json:"weight_kg,omitempty" yaml:"weight_kg,omitempty" jsonschema:"minimum=30,maximum=200"`
	BMI      *float64 `json:"bmi,omitempty" yaml:"bmi,omitempty" jsonschema:"minimum=10,maximum=50"`
	Children int      `json:"children" yaml:"children" jsonschema:"minimum=0,maximum=10"`
	Smoker   Smoker   `json:"smoker" yaml:"smoker" jsonschema:"enum=yes,enum=no"`
	Region   Region   `json:"region" yaml:"region" jsonschema:"enum=northeast,enum=northwest,enum=southeast,enum=southwest"`
}

// ComputeBMI returns weight / height_m^2. Both arguments must be positive; the
// result is not rounded.
func ComputeBMI(heightCM, weightKG float64) float64 {
	heightM := heightCM / 100
	return weightKG / (heightM * heightM)
}

// Validate checks every field and reports all offending ones at once.
func (r RawInput) Validate() error {
	verr := &ValidationError{}

	if r.Age < MinAge || r.Age > MaxAge {
		verr.add("age", fmt.Sprintf("must be between %d and %d, got %d", MinAge, MaxAge, r.Age))
	}
	if !r.Sex.Valid() {
		verr.add("sex", fmt.Sprintf("must be male or female, got %q", r.Sex))
	}
	if r.Children < MinChildren || r.Children > MaxChildren {
		verr.add("children", fmt.Sprintf("must be between %d and %d, got %d", MinChildren, MaxChildren, r.Children))
	}
	if !r.Smoker.Valid() {
		verr.add("smoker", fmt.Sprintf("must be yes or no, got %q", r.Smoker))
	}
	if !r.Region.Valid() {
		verr.add("region", fmt.Sprintf("unknown region %q", r.Region))
	}

	switch {
	case r.BMI != nil && (r.HeightCM != nil || r.WeightKG != nil):
		verr.add("bmi", "supply either bmi or height_cm and weight_kg, not both")
	case r.BMI != nil:
		checkRange(verr, "bmi", *r.BMI, MinBMI, MaxBMI)
	case r.HeightCM == nil && r.WeightKG == nil:
		verr.add("bmi", "bmi or height_cm and weight_kg is required")
	case r.HeightCM == nil:
		verr.add("height_cm", "required when weight_kg is set")
	case r.WeightKG == nil:
		verr.add("weight_kg", "required when height_cm is set")
	default:
		checkRange(verr, "height_cm", *r.HeightCM, MinHeightCM, MaxHeightCM)
		checkRange(verr, "weight_kg", *r.WeightKG, MinWeightKG, MaxWeightKG)
	}

	if len(verr.Fields) > 0 {
		return verr
	}
	return nil
}

// ResolveBMI returns the BMI the model should see: the supplied value, or the
// one computed from height and weight.
func (r RawInput) ResolveBMI() (float64, error) {
	if r.BMI != nil {
		return *r.BMI, nil
	}
	if r.HeightCM == nil || r.WeightKG == nil {
		return 0, &ValidationError{Fields: []FieldError{{Field: "bmi", Reason: "no bmi source"}}}
	}
	if *r.HeightCM <= 0 || *r.WeightKG <= 0 {
		return 0, &ValidationError{Fields: []FieldError{{Field: "height_cm", Reason: "height and weight must be positive"}}}
	}
	return ComputeBMI(*r.HeightCM, *r.WeightKG), nil
}

// Attributes flattens the input into plain values, with the resolved BMI.
func (r RawInput) Attributes(bmi float64) map[string]any {
	return map[string]any{
		"age":      int64(r.Age),
		"sex":      string(r.Sex),
		"bmi":      bmi,
		"children": int64(r.Children),
		"smoker":   string(r.Smoker),
		"region":   string(r.Region),
	}
}

func checkRange(verr *ValidationError, field string, v, min, max float64) {
	if math.IsNaN(v) || v < min || v > max {
		verr.add(field, fmt.Sprintf("must be between %g and %g, got %g", min, max, v))
	}
}

// Float returns a pointer to v, for building optional RawInput fields.
func Float(v float64) *float64 {
	return &v
}
