package modelstore

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/severitech/prueba-b/forecast"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	store, err := New(t.TempDir(), log)
	require.NoError(t, err)
	return store
}

func sampleModel() *forecast.LinearModel {
	return &forecast.LinearModel{
		Features:     forecast.AggregateFeatureNames(),
		Intercept:    12.5,
		Coefficients: []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10},
		TrainR2:      0.91,
	}
}

func TestAggregateRoundTrip(t *testing.T) {
	store := testStore(t)
	meta := &forecast.Metadata{
		Scope:       "global",
		Features:    forecast.AggregateFeatureNames(),
		Metrics:     forecast.Metrics{R2: 0.91, MAE: 12, Precision: 88},
		SampleCount: 72,
		FirstPeriod: "2019-01",
		LastPeriod:  "2024-12",
		SeasonalStats: map[int]forecast.SeasonalStat{
			1:  {Mean: 500, StdDev: 40},
			12: {Mean: 2000, StdDev: 150},
		},
	}

	require.NoError(t, store.SaveAggregate(sampleModel(), meta))

	model, loaded, err := store.LoadAggregate()
	require.NoError(t, err)
	assert.Equal(t, sampleModel(), model)
	assert.Equal(t, meta.Metrics, loaded.Metrics)
	assert.Equal(t, meta.SeasonalStats, loaded.SeasonalStats)
	assert.Equal(t, meta.LastPeriod, loaded.LastPeriod)
}

func TestLoadAggregateMissing(t *testing.T) {
	store := testStore(t)
	_, _, err := store.LoadAggregate()
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPanelRoundTripPerScope(t *testing.T) {
	store := testStore(t)
	for _, scope := range forecast.Scopes() {
		meta := &forecast.PanelMetadata{
			Scope:       scope,
			Features:    forecast.PanelFeatureNames(),
			MeanMetrics: forecast.Metrics{MAE: 3},
		}
		model := &forecast.LinearModel{Features: forecast.PanelFeatureNames(), Intercept: 1}
		require.NoError(t, store.SavePanel(model, meta))
	}

	for _, scope := range forecast.Scopes() {
		model, meta, err := store.LoadPanel(scope)
		require.NoError(t, err)
		assert.Equal(t, scope, meta.Scope)
		assert.Equal(t, 1.0, model.Intercept)
	}

	_, _, err := store.LoadPanel("producto")
	require.NoError(t, err)
	_, _, err = store.LoadPanel("inexistente")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSaveOverwrites(t *testing.T) {
	store := testStore(t)
	meta := &forecast.Metadata{Scope: "global", Features: forecast.AggregateFeatureNames()}

	first := sampleModel()
	require.NoError(t, store.SaveAggregate(first, meta))

	second := sampleModel()
	second.Intercept = 99
	require.NoError(t, store.SaveAggregate(second, meta))

	model, _, err := store.LoadAggregate()
	require.NoError(t, err)
	assert.Equal(t, 99.0, model.Intercept)
}

func TestWritesLeaveNoTempFiles(t *testing.T) {
	store := testStore(t)
	meta := &forecast.Metadata{Scope: "global", Features: forecast.AggregateFeatureNames()}
	require.NoError(t, store.SaveAggregate(sampleModel(), meta))

	entries, err := os.ReadDir(store.Dir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		assert.False(t, strings.Contains(e.Name(), ".tmp-"), "leftover temp file %s", e.Name())
		names = append(names, e.Name())
	}
	assert.Contains(t, names, "modelo_cantidades.json")
	assert.Contains(t, names, "metadata_cantidades.json")

	// the artifact is valid JSON on disk
	data, err := os.ReadFile(filepath.Join(store.Dir, "modelo_cantidades.json"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(strings.TrimSpace(string(data)), "{"))
}
