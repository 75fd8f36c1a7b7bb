package forecast

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() logrus.FieldLogger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func TestSplitPolicy(t *testing.T) {
	p := DefaultSplitPolicy()

	// Long series hold out the fixed trailing window
	assert.Equal(t, 60, p.SplitIndex(72))
	assert.Equal(t, 24, p.SplitIndex(36))

	// Short series split proportionally with at least one test row
	assert.Equal(t, 17, p.SplitIndex(20)) // 20*0.85
	assert.Equal(t, 1, p.SplitIndex(2))
	assert.Equal(t, 2, p.SplitIndex(3))
}

func TestTrainerFitsSeasonalSeries(t *testing.T) {
	seasonal := []float64{100, 110, 160, 170, 180, 300, 320, 190, 200, 180, 360, 400}
	points := steadySeries(2019, 1, 72, func(i int) float64 {
		return 500 + 10*float64(i) + seasonal[i%12]
	})

	trainer := NewTrainer(NewAggregateFeatureBuilder(DefaultEventWeights()), DefaultSplitPolicy(), testLogger())
	result, err := trainer.Train("global", points)
	require.NoError(t, err)

	assert.Greater(t, result.Metadata.Metrics.R2, 0.8)
	assert.Greater(t, result.Metadata.Metrics.Precision, 80.0)
	assert.Contains(t, []string{TierObjectiveExceeded, TierHighQuality}, result.Tier)

	meta := result.Metadata
	assert.Equal(t, "global", meta.Scope)
	assert.Equal(t, 72, meta.SampleCount)
	assert.Equal(t, "2019-01", meta.FirstPeriod)
	assert.Equal(t, "2024-12", meta.LastPeriod)
	assert.Equal(t, AggregateFeatureNames(), meta.Features)
	assert.False(t, meta.TrainedAt.IsZero())

	require.Len(t, meta.SeasonalStats, 12)
	for month := 1; month <= 12; month++ {
		s, ok := meta.SeasonalStats[month]
		require.True(t, ok, "month %d missing", month)
		assert.Greater(t, s.Mean, 0.0)
		assert.Greater(t, s.StdDev, 0.0) // trending series varies within each month
	}
}

func TestTrainerIdempotent(t *testing.T) {
	points := steadySeries(2019, 1, 48, func(i int) float64 { return 200 + 5*float64(i%12) + 3*float64(i) })
	trainer := NewTrainer(NewAggregateFeatureBuilder(DefaultEventWeights()), DefaultSplitPolicy(), testLogger())

	first, err := trainer.Train("global", points)
	require.NoError(t, err)
	second, err := trainer.Train("global", points)
	require.NoError(t, err)

	assert.Equal(t, first.Model, second.Model)
	assert.Equal(t, first.Metadata.Metrics, second.Metadata.Metrics)
}

func TestTrainerRejectsTinySeries(t *testing.T) {
	trainer := NewTrainer(NewAggregateFeatureBuilder(DefaultEventWeights()), DefaultSplitPolicy(), testLogger())

	_, err := trainer.Train("global", nil)
	assert.ErrorIs(t, err, ErrInsufficientData)

	_, err = trainer.Train("global", steadySeries(2024, 1, 1, func(int) float64 { return 1 }))
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestQualityTierBoundaries(t *testing.T) {
	assert.Equal(t, TierObjectiveExceeded, qualityTier(0.95))
	assert.Equal(t, TierHighQuality, qualityTier(0.85))
	assert.Equal(t, TierAcceptable, qualityTier(0.8))
	assert.Equal(t, TierAcceptable, qualityTier(-1))
}
