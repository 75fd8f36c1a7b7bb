package forecast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPredictor() *Predictor {
	return NewPredictor(NewAggregateFeatureBuilder(DefaultEventWeights()), 12, 1.08, 0.15, 0.85, testLogger())
}

// interceptModel predicts a constant regardless of features
func interceptModel(c float64) *LinearModel {
	return &LinearModel{
		Features:     AggregateFeatureNames(),
		Intercept:    c,
		Coefficients: make([]float64, len(AggregateFeatureNames())),
	}
}

func testMetadata() *Metadata {
	return &Metadata{
		Scope:       "global",
		Features:    AggregateFeatureNames(),
		Metrics:     Metrics{R2: 0.92, MAE: 10, Precision: 90},
		SampleCount: 72,
		FirstPeriod: "2019-01",
		LastPeriod:  "2024-12",
	}
}

func TestForecastStartsAfterLastTrainedPeriod(t *testing.T) {
	records, degraded, err := testPredictor().Forecast(interceptModel(100), testMetadata(), nil)
	require.NoError(t, err)
	assert.False(t, degraded)
	require.Len(t, records, 12)

	assert.Equal(t, "2025-01", records[0].Period)
	assert.Equal(t, "2025-12", records[11].Period)
	for i, r := range records {
		assert.Equal(t, 2025, r.Year)
		assert.Equal(t, i+1, r.Month)
		assert.Equal(t, 100.0, r.Quantity)
		assert.Equal(t, 90.0, r.Minimum)
		assert.Equal(t, 110.0, r.Maximum)
		assert.InDelta(t, 0.9, r.Confidence, 1e-9)
	}
}

func TestForecastClampsNegativePredictions(t *testing.T) {
	records, _, err := testPredictor().Forecast(interceptModel(-50), testMetadata(), nil)
	require.NoError(t, err)
	for _, r := range records {
		assert.Zero(t, r.Quantity)
		assert.Zero(t, r.Minimum)
		assert.Equal(t, 10.0, r.Maximum)
	}
}

func TestForecastSchemaDriftIsFatal(t *testing.T) {
	meta := testMetadata()
	meta.Features = meta.Features[:len(meta.Features)-1]

	_, _, err := testPredictor().Forecast(interceptModel(100), meta, nil)
	require.Error(t, err)
	var drift *SchemaDriftError
	assert.ErrorAs(t, err, &drift)
}

func TestForecastFallbackDeterministic(t *testing.T) {
	history := steadySeries(2024, 1, 12, func(i int) float64 { return 100 })

	first, degraded, err := testPredictor().Forecast(nil, nil, history)
	require.NoError(t, err)
	assert.True(t, degraded)
	require.Len(t, first, 12)

	second, _, _ := testPredictor().Forecast(nil, nil, history)
	assert.Equal(t, first, second)

	// History ends 2024-12, so the fallback covers calendar 2025 and
	// serves the fixed seasonal table with the configured spread
	assert.Equal(t, "2025-01", first[0].Period)
	assert.Equal(t, 500.0, first[0].Quantity)
	assert.Equal(t, 2000.0, first[11].Quantity)
	for _, r := range first {
		assert.InDelta(t, r.Quantity*0.85, r.Minimum, 1e-9)
		assert.InDelta(t, r.Quantity*1.15, r.Maximum, 1e-9)
		assert.Equal(t, 0.85, r.Confidence)
	}
}

func TestForecastUsesHistoryBaseline(t *testing.T) {
	// Model passes lag_12 straight through; the baseline for each
	// month comes from the history's monthly averages times growth.
	model := &LinearModel{
		Features:     AggregateFeatureNames(),
		Coefficients: make([]float64, len(AggregateFeatureNames())),
	}
	for i, name := range model.Features {
		if name == FeatLag12 {
			model.Coefficients[i] = 1
		}
	}

	history := steadySeries(2024, 1, 12, func(i int) float64 { return float64((i + 1) * 100) })
	records, degraded, err := testPredictor().Forecast(model, testMetadata(), history)
	require.NoError(t, err)
	assert.False(t, degraded)

	// January history was 100, so January's prediction is 100*1.08
	assert.InDelta(t, 108.0, records[0].Quantity, 1e-9)
	// December history was 1200
	assert.InDelta(t, 1296.0, records[11].Quantity, 1e-9)
}
