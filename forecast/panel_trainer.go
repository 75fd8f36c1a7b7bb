package forecast

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat"

	"github.com/severitech/prueba-b/dataset"
)

// PanelThresholds filter which entities are individually evaluated.
// Series below the activity thresholds, or with no variance, still
// contribute rows to the pooled model but produce no per-entity
// metrics.
type PanelThresholds struct {
	TopK            int
	MinActiveMonths int
	MinTotalPoints  int
}

// SeriesSummary describes one entity's history, reported for every
// key in the panel regardless of eligibility
type SeriesSummary struct {
	Key          string  `json:"key"`
	Points       int     `json:"points"`
	ActiveMonths int     `json:"active_months"`
	Total        float64 `json:"total"`
	Mean         float64 `json:"mean"`
	StdDev       float64 `json:"stddev"`
	Eligible     bool    `json:"eligible"`
}

// EntityMetrics is the holdout evaluation of one eligible entity
type EntityMetrics struct {
	Key       string  `json:"key"`
	Points    int     `json:"points"`
	Train     int     `json:"train"`
	Test      int     `json:"test"`
	TestMean  float64 `json:"test_mean"`
	R2        float64 `json:"r2"`
	MAE       float64 `json:"mae"`
	Precision float64 `json:"precision"`
}

// PanelMetadata is persisted next to the pooled panel model
type PanelMetadata struct {
	Scope           string    `json:"scope"`
	RunID           string    `json:"run_id,omitempty"`
	TrainedAt       time.Time `json:"trained_at"`
	Features        []string  `json:"features"`
	BaseYear        int       `json:"base_year"`
	TotalSamples    int       `json:"total_samples"`
	SeriesTotal     int       `json:"series_total"`
	SeriesEvaluated int       `json:"series_evaluated"`
	MeanMetrics     Metrics   `json:"mean_metrics"`
}

// PanelTrainingResult bundles the pooled model with the per-entity
// evaluation and summary tables
type PanelTrainingResult struct {
	Model     *LinearModel
	Metadata  *PanelMetadata
	Entities  []EntityMetrics
	Summaries []SeriesSummary
}

// PanelTrainer fits one pooled model per scope over every entity's
// monthly series, then re-fits small per-entity models on each
// eligible entity's train split to measure holdout accuracy.
type PanelTrainer struct {
	Builder    *FeatureBuilder
	Fitter     Fitter
	Split      SplitPolicy
	Thresholds PanelThresholds
	Log        logrus.FieldLogger
}

// NewPanelTrainer wires a panel trainer with the default fitter
func NewPanelTrainer(builder *FeatureBuilder, split SplitPolicy, th PanelThresholds, log logrus.FieldLogger) *PanelTrainer {
	return &PanelTrainer{Builder: builder, Fitter: LeastSquares{}, Split: split, Thresholds: th, Log: log}
}

// Train fits the pooled model for a panel. The trend index is
// anchored at the earliest year in the whole panel so all series
// share one time axis during pooling.
func (t *PanelTrainer) Train(panel *dataset.Panel) (*PanelTrainingResult, error) {
	keys := panel.Keys()
	if len(keys) == 0 {
		return nil, fmt.Errorf("%w: empty %s panel", ErrNoSeries, panel.Scope)
	}

	baseYear := panelBaseYear(panel, keys)
	names := t.Builder.Names()

	var pooled [][]float64
	var target []float64
	for _, key := range keys {
		points := panel.Series[key]
		vectors := t.Builder.Series(points, panelTrend(points, baseYear))
		m, err := Matrix(vectors, names)
		if err != nil {
			return nil, err
		}
		pooled = append(pooled, m...)
		target = append(target, dataset.Quantities(points)...)
	}

	model, err := t.Fitter.Fit(names, pooled, target)
	if err != nil {
		return nil, fmt.Errorf("fitting pooled %s model: %w", panel.Scope, err)
	}

	summaries := t.summarize(panel, keys)
	entities := t.evaluate(panel, summaries, baseYear)

	mean := meanMetrics(entities)
	t.Log.WithFields(logrus.Fields{
		"scope":     panel.Scope,
		"samples":   len(target),
		"series":    len(keys),
		"evaluated": len(entities),
		"mean_mae":  mean.MAE,
		"mean_r2":   mean.R2,
	}).Info("panel model trained")

	meta := &PanelMetadata{
		Scope:           panel.Scope,
		TrainedAt:       time.Now().UTC(),
		Features:        names,
		BaseYear:        baseYear,
		TotalSamples:    len(target),
		SeriesTotal:     len(keys),
		SeriesEvaluated: len(entities),
		MeanMetrics:     mean,
	}

	return &PanelTrainingResult{Model: model, Metadata: meta, Entities: entities, Summaries: summaries}, nil
}

// summarize builds the full per-series table and marks eligibility
func (t *PanelTrainer) summarize(panel *dataset.Panel, keys []string) []SeriesSummary {
	summaries := make([]SeriesSummary, 0, len(keys))
	for _, key := range keys {
		points := panel.Series[key]
		quantities := dataset.Quantities(points)

		s := SeriesSummary{Key: key, Points: len(points)}
		for _, q := range quantities {
			s.Total += q
			if q > 0 {
				s.ActiveMonths++
			}
		}
		if len(quantities) > 0 {
			s.Mean = stat.Mean(quantities, nil)
		}
		if len(quantities) > 1 {
			s.StdDev = stat.StdDev(quantities, nil)
		}
		s.Eligible = s.Points >= t.Thresholds.MinTotalPoints &&
			s.ActiveMonths >= t.Thresholds.MinActiveMonths &&
			s.StdDev > 0
		summaries = append(summaries, s)
	}
	return summaries
}

// evaluate fits a holdout model per eligible entity, highest-volume
// first, capped at TopK. Entity features sit on the same panel-wide
// calendar axis as the pooled fit so reported metrics stay comparable.
func (t *PanelTrainer) evaluate(panel *dataset.Panel, summaries []SeriesSummary, baseYear int) []EntityMetrics {
	eligible := make([]SeriesSummary, 0, len(summaries))
	for _, s := range summaries {
		if s.Eligible {
			eligible = append(eligible, s)
		}
	}
	sort.SliceStable(eligible, func(i, j int) bool {
		if eligible[i].Total != eligible[j].Total {
			return eligible[i].Total > eligible[j].Total
		}
		return eligible[i].Key < eligible[j].Key
	})
	if t.Thresholds.TopK > 0 && len(eligible) > t.Thresholds.TopK {
		eligible = eligible[:t.Thresholds.TopK]
	}

	names := t.Builder.Names()
	entities := make([]EntityMetrics, 0, len(eligible))
	for _, s := range eligible {
		points := panel.Series[s.Key]
		n := len(points)
		vectors := t.Builder.Series(points, panelTrend(points, baseYear))
		matrix, err := Matrix(vectors, names)
		if err != nil {
			t.Log.WithField("key", s.Key).WithError(err).Warn("skipping entity evaluation")
			continue
		}
		target := dataset.Quantities(points)

		split := t.Split.SplitIndex(n)
		testMean := stat.Mean(target[split:], nil)
		if math.Abs(testMean) < meanEpsilon {
			t.Log.WithField("key", s.Key).Warn("holdout window has no demand, skipping evaluation")
			continue
		}

		model, err := t.Fitter.Fit(names, matrix[:split], target[:split])
		if err != nil {
			t.Log.WithField("key", s.Key).WithError(err).Warn("entity model fit failed")
			continue
		}

		predicted := make([]float64, n-split)
		for i := split; i < n; i++ {
			predicted[i-split] = model.Predict(matrix[i])
		}
		m := Evaluate(predicted, target[split:])

		entities = append(entities, EntityMetrics{
			Key:       s.Key,
			Points:    n,
			Train:     split,
			Test:      n - split,
			TestMean:  testMean,
			R2:        m.R2,
			MAE:       m.MAE,
			Precision: m.Precision,
		})
	}
	return entities
}

func meanMetrics(entities []EntityMetrics) Metrics {
	if len(entities) == 0 {
		return Metrics{}
	}
	var m Metrics
	for _, e := range entities {
		m.R2 += e.R2
		m.MAE += e.MAE
		m.Precision += e.Precision
	}
	n := float64(len(entities))
	m.R2 /= n
	m.MAE /= n
	m.Precision /= n
	return m
}

// panelBaseYear returns the earliest year across all series
func panelBaseYear(panel *dataset.Panel, keys []string) int {
	base := 0
	for _, key := range keys {
		for _, p := range panel.Series[key] {
			if base == 0 || p.Year < base {
				base = p.Year
			}
		}
	}
	return base
}

// panelTrend maps each point onto the shared panel time axis
func panelTrend(points []dataset.MonthlyPoint, baseYear int) []int {
	trend := make([]int, len(points))
	for i, p := range points {
		trend[i] = GlobalTrendIndex(baseYear, p.Year, p.Month)
	}
	return trend
}
