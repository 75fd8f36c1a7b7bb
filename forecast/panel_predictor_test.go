package forecast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/severitech/prueba-b/dataset"
)

// lagModel passes one named feature straight through
func lagModel(feature string) *LinearModel {
	m := &LinearModel{
		Features:     PanelFeatureNames(),
		Coefficients: make([]float64, len(PanelFeatureNames())),
	}
	for i, name := range m.Features {
		if name == feature {
			m.Coefficients[i] = 1
		}
	}
	return m
}

func testPanelMeta() *PanelMetadata {
	return &PanelMetadata{
		Scope:       ScopeProduct,
		Features:    PanelFeatureNames(),
		BaseYear:    2022,
		MeanMetrics: Metrics{R2: 0.8, MAE: 5, Precision: 80},
	}
}

func TestForecastEntityYearRollover(t *testing.T) {
	history := steadySeries(2023, 1, 24, func(i int) float64 { return 100 })
	p := NewPanelPredictor(NewPanelFeatureBuilder(), 12, testLogger())

	records, err := p.ForecastEntity(lagModel(FeatLag1), testPanelMeta(), ScopeProduct, "7", history)
	require.NoError(t, err)
	require.Len(t, records, 12)

	// History ends 2024-12: the horizon is exactly 2025-01..2025-12
	assert.Equal(t, "2025-01", records[0].Period)
	assert.Equal(t, "2025-12", records[11].Period)
	prevY, prevM := 2024, 12
	for _, r := range records {
		wantY, wantM := dataset.NextMonth(prevY, prevM)
		assert.Equal(t, wantY, r.Year)
		assert.Equal(t, wantM, r.Month)
		assert.Equal(t, ScopeProduct, r.Scope)
		assert.Equal(t, "7", r.Key)
		prevY, prevM = r.Year, r.Month
	}
}

func TestForecastEntityRecursiveLags(t *testing.T) {
	// With an identity model on lag_1, each step feeds the previous
	// prediction forward, so a flat history stays flat
	history := steadySeries(2023, 1, 24, func(i int) float64 { return 250 })
	p := NewPanelPredictor(NewPanelFeatureBuilder(), 12, testLogger())

	records, err := p.ForecastEntity(lagModel(FeatLag1), testPanelMeta(), ScopeProduct, "7", history)
	require.NoError(t, err)
	for _, r := range records {
		assert.InDelta(t, 250.0, r.Quantity, 1e-9)
		assert.InDelta(t, 245.0, r.Minimum, 1e-9)
		assert.InDelta(t, 255.0, r.Maximum, 1e-9)
		assert.InDelta(t, 0.8, r.Confidence, 1e-9)
	}
}

func TestForecastEntitySeasonalLag12(t *testing.T) {
	// lag_12 passthrough reproduces last year's seasonal shape
	history := steadySeries(2024, 1, 12, func(i int) float64 { return float64((i + 1) * 10) })
	p := NewPanelPredictor(NewPanelFeatureBuilder(), 12, testLogger())

	records, err := p.ForecastEntity(lagModel(FeatLag12), testPanelMeta(), ScopeProduct, "7", history)
	require.NoError(t, err)
	for i, r := range records {
		assert.InDelta(t, float64((i+1)*10), r.Quantity, 1e-9, "month %d", i+1)
	}
}

func TestForecastEntitySparseHistoryContinuesCalendarTrend(t *testing.T) {
	// A series active only January through June still sits on the
	// panel-wide calendar axis: 18 observed rows, but the month after
	// 2024-06 is index 31 counted from the 2022 base year, not row 19
	var history []dataset.MonthlyPoint
	for year := 2022; year <= 2024; year++ {
		for month := 1; month <= 6; month++ {
			history = append(history, monthly(year, month, 40))
		}
	}
	require.Len(t, history, 18)
	p := NewPanelPredictor(NewPanelFeatureBuilder(), 3, testLogger())

	records, err := p.ForecastEntity(lagModel(FeatTrend), testPanelMeta(), ScopeProduct, "7", history)
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, "2024-07", records[0].Period)
	assert.InDelta(t, float64(GlobalTrendIndex(2022, 2024, 7)), records[0].Quantity, 1e-9)
	assert.InDelta(t, 31.0, records[0].Quantity, 1e-9)
	assert.InDelta(t, 32.0, records[1].Quantity, 1e-9)
	assert.InDelta(t, 33.0, records[2].Quantity, 1e-9)
}

func TestForecastEntityNoHistory(t *testing.T) {
	p := NewPanelPredictor(NewPanelFeatureBuilder(), 12, testLogger())
	_, err := p.ForecastEntity(lagModel(FeatLag1), testPanelMeta(), ScopeProduct, "7", nil)
	assert.ErrorIs(t, err, ErrNoSeries)

	_, err = p.ForecastEntity(nil, nil, ScopeProduct, "7", steadySeries(2024, 1, 3, func(int) float64 { return 1 }))
	assert.ErrorIs(t, err, ErrNoSeries)
}

func TestForecastEntitySchemaDrift(t *testing.T) {
	meta := testPanelMeta()
	meta.Features = AggregateFeatureNames() // wrong schema entirely
	p := NewPanelPredictor(NewPanelFeatureBuilder(), 12, testLogger())

	_, err := p.ForecastEntity(lagModel(FeatLag1), meta, ScopeProduct, "7", steadySeries(2024, 1, 6, func(int) float64 { return 1 }))
	var drift *SchemaDriftError
	assert.ErrorAs(t, err, &drift)
}

func TestForecastBatchSkipsEmptyEntities(t *testing.T) {
	panel := &dataset.Panel{
		Scope:     ScopeProduct,
		KeyColumn: "producto_id",
		Series: map[string][]dataset.MonthlyPoint{
			"1": steadySeries(2024, 1, 12, func(int) float64 { return 10 }),
			"2": nil,
		},
	}
	p := NewPanelPredictor(NewPanelFeatureBuilder(), 12, testLogger())

	forecasts, err := p.ForecastBatch(lagModel(FeatLag1), testPanelMeta(), panel, []string{"1", "2", "missing"})
	require.NoError(t, err)
	require.Len(t, forecasts, 1)
	assert.Equal(t, "1", forecasts[0].Key)
	assert.Len(t, forecasts[0].Records, 12)
}

func TestForecastBatchAllEmpty(t *testing.T) {
	panel := &dataset.Panel{Scope: ScopeProduct, Series: map[string][]dataset.MonthlyPoint{}}
	p := NewPanelPredictor(NewPanelFeatureBuilder(), 12, testLogger())

	_, err := p.ForecastBatch(lagModel(FeatLag1), testPanelMeta(), panel, []string{"1", "2"})
	assert.ErrorIs(t, err, ErrNoSeries)
}
