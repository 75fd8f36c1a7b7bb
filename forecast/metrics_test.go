package forecast

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMAE(t *testing.T) {
	assert.Equal(t, 2.0, MAE([]float64{10, 14}, []float64{12, 12}))
	assert.Zero(t, MAE(nil, nil))
	assert.Zero(t, MAE([]float64{1}, []float64{1, 2}))
}

func TestR2ZeroVariance(t *testing.T) {
	// Constant actuals would divide by zero; score 0 instead
	assert.Zero(t, R2([]float64{5, 5, 5}, []float64{7, 7, 7}))
}

func TestPrecisionClampsAtZero(t *testing.T) {
	// An error larger than the mean yields 0, never negative
	assert.Zero(t, PrecisionPct(200, 100))
	// A zero-mean holdout reports 0 instead of dividing by zero
	assert.Zero(t, PrecisionPct(5, 0))
	assert.InDelta(t, 90.0, PrecisionPct(10, 100), 1e-9)
}

func TestEvaluate(t *testing.T) {
	m := Evaluate([]float64{90, 110, 100}, []float64{100, 100, 100})
	assert.InDelta(t, 20.0/3.0, m.MAE, 1e-9)
	assert.InDelta(t, 100-(20.0/3.0), m.Precision, 1e-9)
}

func TestValidateFeatureNames(t *testing.T) {
	assert.NoError(t, ValidateFeatureNames([]string{"a", "b"}, []string{"a", "b"}))

	err := ValidateFeatureNames([]string{"a", "b"}, []string{"b", "a"})
	assert.Error(t, err)
	var drift *SchemaDriftError
	assert.ErrorAs(t, err, &drift)

	assert.Error(t, ValidateFeatureNames([]string{"a"}, []string{"a", "b"}))
}
