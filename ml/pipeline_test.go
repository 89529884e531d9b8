package ml

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadPipeline(t *testing.T) *Pipeline {
	t.Helper()
	model, _, err := LoadModel("testdata/charges_pipeline.json")
	require.NoError(t, err)
	p, ok := model.(*Pipeline)
	require.True(t, ok, "expected *Pipeline, got %T", model)
	return p
}

func TestPipelineTransform(t *testing.T) {
	p := loadPipeline(t)
	vector, err := Encode(referenceInput(), SchemeCategorical, nil)
	require.NoError(t, err)

	expanded, err := p.Transform(vector)
	require.NoError(t, err)
	assert.Equal(t, p.ExpandedColumns(), expanded.Names())

	want := map[string]float64{
		"age": 30, "sex_female": 0, "sex_male": 1, "children": 0,
		"smoker_no": 1, "smoker_yes": 0,
		"region_northeast": 1, "region_northwest": 0, "region_southeast": 0, "region_southwest": 0,
	}
	for name, v := range want {
		f, ok := expanded.Get(name)
		require.True(t, ok, name)
		assert.Equal(t, v, f.Num, name)
	}
}

func TestPipelineUnknownCategoryIsAllZero(t *testing.T) {
	p := loadPipeline(t)
	raw := referenceInput()
	raw.Region = "midwest"
	vector, err := Encode(raw, SchemeCategorical, nil)
	require.NoError(t, err)

	expanded, err := p.Transform(vector)
	require.NoError(t, err)
	for _, r := range Regions() {
		f, _ := expanded.Get("region_" + string(r))
		assert.Equal(t, 0.0, f.Num)
	}
}

func TestPipelineMatchesOneHotLinear(t *testing.T) {
	p := loadPipeline(t)
	linear, _, err := LoadModel("testdata/charges_linear.json")
	require.NoError(t, err)

	ctx := context.Background()
	for _, region := range Regions() {
		raw := referenceInput()
		raw.Region = region
		raw.Smoker = SmokerYes

		cat, err := Encode(raw, SchemeCategorical, nil)
		require.NoError(t, err)
		hot, err := Encode(raw, SchemeOneHot, nil)
		require.NoError(t, err)

		a, err := p.Predict(ctx, cat)
		require.NoError(t, err)
		b, err := linear.Predict(ctx, hot)
		require.NoError(t, err)
		assert.InDelta(t, b, a, 1e-6, string(region))
	}
}

func TestPipelineRejectsOneHotVector(t *testing.T) {
	p := loadPipeline(t)
	vector, err := Encode(referenceInput(), SchemeOneHot, nil)
	require.NoError(t, err)
	_, err = p.Predict(context.Background(), vector)
	assert.ErrorIs(t, err, ErrSchemaMismatch)
}

func TestNewPipelineChecksEstimatorColumns(t *testing.T) {
	inner, err := NewLinearModel([]string{"age", "bmi"}, 0, map[string]float64{"age": 1, "bmi": 1})
	require.NoError(t, err)
	_, err = NewPipeline(map[string][]string{
		"sex":    {"female", "male"},
		"smoker": {"no", "yes"},
		"region": {"northeast"},
	}, inner)
	assert.ErrorIs(t, err, ErrSchemaMismatch)

	_, err = NewPipeline(map[string][]string{"sex": {"female", "male"}}, inner)
	assert.Error(t, err)
}

func TestNewPipelineRejectsNumericCategories(t *testing.T) {
	columns := []string{
		"age_30", "sex_female", "sex_male", "bmi", "children", "smoker_no", "smoker_yes", "region_northeast",
	}
	coefficients := make(map[string]float64, len(columns))
	for _, c := range columns {
		coefficients[c] = 1
	}
	inner, err := NewLinearModel(columns, 0, coefficients)
	require.NoError(t, err)

	_, err = NewPipeline(map[string][]string{
		"age":    {"30"},
		"sex":    {"female", "male"},
		"smoker": {"no", "yes"},
		"region": {"northeast"},
	}, inner)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"age"`)
}

func TestPipelineCategories(t *testing.T) {
	p := loadPipeline(t)
	cats := p.Categories()
	assert.Equal(t, []string{"female", "male"}, cats["sex"])
	assert.Len(t, cats["region"], 4)
}
