package forecast

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat"

	"github.com/severitech/prueba-b/dataset"
)

// Quality tiers reported after training. Reporting only: training
// persists its model regardless of tier.
const (
	TierObjectiveExceeded = "objective exceeded"
	TierHighQuality       = "high quality"
	TierAcceptable        = "acceptable"
)

// SplitPolicy controls the temporal holdout. When a series has at
// least MinForHoldout periods the last HoldoutMonths are reserved for
// testing, simulating a realistic forecast; shorter series hold out
// the trailing (1 - ShortSplitRatio) fraction, at least one row.
type SplitPolicy struct {
	HoldoutMonths   int
	MinForHoldout   int
	ShortSplitRatio float64
}

// DefaultSplitPolicy mirrors the production configuration
func DefaultSplitPolicy() SplitPolicy {
	return SplitPolicy{HoldoutMonths: 12, MinForHoldout: 36, ShortSplitRatio: 0.85}
}

// SplitIndex returns the first test-row index for n periods
func (p SplitPolicy) SplitIndex(n int) int {
	if n >= p.MinForHoldout {
		return n - p.HoldoutMonths
	}
	idx := int(float64(n) * p.ShortSplitRatio)
	if idx < 1 {
		idx = 1
	}
	if idx > n-1 {
		idx = n - 1
	}
	return idx
}

// SeasonalStat is the per-month mean/stddev of the training history,
// persisted for use as a fallback seasonal base rate
type SeasonalStat struct {
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"stddev"`
}

// Metadata is the document persisted alongside a fitted aggregate
// model. Features holds the exact fit-order list; every prediction
// matrix must be built from it.
type Metadata struct {
	Scope         string               `json:"scope"`
	RunID         string               `json:"run_id,omitempty"`
	TrainedAt     time.Time            `json:"trained_at"`
	Features      []string             `json:"features"`
	Metrics       Metrics              `json:"metrics"`
	SampleCount   int                  `json:"sample_count"`
	FirstPeriod   string               `json:"first_period"`
	LastPeriod    string               `json:"last_period"`
	DateRange     string               `json:"date_range"`
	MeanQuantity  float64              `json:"mean_quantity"`
	SeasonalStats map[int]SeasonalStat `json:"seasonal_stats"`
}

// TrainingResult bundles the fitted model with its metadata
type TrainingResult struct {
	Model    *LinearModel
	Metadata *Metadata
	Tier     string
}

// Trainer fits the aggregate monthly demand model
type Trainer struct {
	Builder *FeatureBuilder
	Fitter  Fitter
	Split   SplitPolicy
	Log     logrus.FieldLogger
}

// NewTrainer wires a trainer with the default least-squares fitter
func NewTrainer(builder *FeatureBuilder, split SplitPolicy, log logrus.FieldLogger) *Trainer {
	return &Trainer{Builder: builder, Fitter: LeastSquares{}, Split: split, Log: log}
}

// Train fits on the chronological, gap-free monthly history and
// evaluates on the temporal holdout. Nothing is persisted here; the
// caller owns the artifact store so a failed run never leaves a
// partial model behind.
func (t *Trainer) Train(scope string, points []dataset.MonthlyPoint) (*TrainingResult, error) {
	n := len(points)
	if n < 2 {
		return nil, fmt.Errorf("%w: %d monthly points", ErrInsufficientData, n)
	}

	names := t.Builder.Names()
	trend := make([]int, n)
	for i := range trend {
		trend[i] = i + 1
	}
	vectors := t.Builder.Series(points, trend)
	matrix, err := Matrix(vectors, names)
	if err != nil {
		return nil, err
	}
	target := dataset.Quantities(points)

	split := t.Split.SplitIndex(n)
	model, err := t.Fitter.Fit(names, matrix[:split], target[:split])
	if err != nil {
		return nil, fmt.Errorf("fitting %s model: %w", scope, err)
	}

	predicted := make([]float64, n-split)
	for i := split; i < n; i++ {
		predicted[i-split] = model.Predict(matrix[i])
	}
	metrics := Evaluate(predicted, target[split:])

	tier := qualityTier(metrics.R2)
	t.Log.WithFields(logrus.Fields{
		"scope":     scope,
		"samples":   n,
		"train":     split,
		"test":      n - split,
		"r2":        metrics.R2,
		"mae":       metrics.MAE,
		"precision": metrics.Precision,
		"tier":      tier,
	}).Info("model trained")

	meta := &Metadata{
		Scope:         scope,
		TrainedAt:     time.Now().UTC(),
		Features:      names,
		Metrics:       metrics,
		SampleCount:   n,
		FirstPeriod:   points[0].Period,
		LastPeriod:    points[n-1].Period,
		DateRange:     fmt.Sprintf("%s a %s", points[0].Period, points[n-1].Period),
		MeanQuantity:  stat.Mean(target, nil),
		SeasonalStats: seasonalStats(points),
	}

	return &TrainingResult{Model: model, Metadata: meta, Tier: tier}, nil
}

func qualityTier(r2 float64) string {
	switch {
	case r2 > 0.9:
		return TierObjectiveExceeded
	case r2 > 0.8:
		return TierHighQuality
	default:
		return TierAcceptable
	}
}

// seasonalStats computes the per-month mean and stddev over the full
// training history
func seasonalStats(points []dataset.MonthlyPoint) map[int]SeasonalStat {
	byMonth := make(map[int][]float64)
	for _, p := range points {
		byMonth[p.Month] = append(byMonth[p.Month], p.Quantity)
	}

	stats := make(map[int]SeasonalStat, len(byMonth))
	for month, values := range byMonth {
		s := SeasonalStat{Mean: stat.Mean(values, nil)}
		if len(values) > 1 {
			s.StdDev = stat.StdDev(values, nil)
		}
		stats[month] = s
	}
	return stats
}
