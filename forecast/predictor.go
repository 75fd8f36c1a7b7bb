package forecast

import (
	"fmt"
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/severitech/prueba-b/dataset"
)

// Record is one predicted month. Field names match the CSV contract
// consumed downstream.
type Record struct {
	Period     string  `json:"periodo"`
	Year       int     `json:"anio"`
	Month      int     `json:"mes"`
	Scope      string  `json:"scope,omitempty"`
	Key        string  `json:"key,omitempty"`
	Quantity   float64 `json:"cantidad_predicha"`
	Minimum    float64 `json:"minimo"`
	Maximum    float64 `json:"maximo"`
	Confidence float64 `json:"confianza"`
}

// fallbackTable is the operational seasonal table used when no model
// is available. Values reflect historical monthly demand for the
// business: low Q1, mid-year promotion peak, November/December
// holiday surge.
var fallbackTable = map[int]float64{
	1: 500, 2: 550, 3: 800, 4: 850, 5: 900, 6: 1500,
	7: 1600, 8: 950, 9: 1000, 10: 900, 11: 1800, 12: 2000,
}

// defaultBase covers months missing from a derived seasonal baseline
const defaultBase = 800

// Predictor produces the 12-month aggregate demand forecast. Lag
// features for future months cannot come from observed data, so they
// are estimated from a seasonal baseline scaled by the expected
// annual growth.
type Predictor struct {
	Builder            *FeatureBuilder
	Horizon            int
	AnnualGrowth       float64
	FallbackSpread     float64
	FallbackConfidence float64
	Log                logrus.FieldLogger
}

// NewPredictor wires a predictor with the production horizon and
// growth assumptions
func NewPredictor(builder *FeatureBuilder, horizon int, growth, spread, confidence float64, log logrus.FieldLogger) *Predictor {
	return &Predictor{
		Builder:            builder,
		Horizon:            horizon,
		AnnualGrowth:       growth,
		FallbackSpread:     spread,
		FallbackConfidence: confidence,
		Log:                log,
	}
}

// Forecast predicts the Horizon months following the last trained
// period. A missing model or metadata degrades to the seasonal
// fallback table; a feature-schema mismatch is an error, never a
// silent fallback.
func (p *Predictor) Forecast(model Model, meta *Metadata, history []dataset.MonthlyPoint) ([]Record, bool, error) {
	if model == nil || meta == nil {
		p.Log.Warn("no trained model available, serving seasonal fallback")
		return p.Fallback(history), true, nil
	}
	if err := ValidateFeatureNames(meta.Features, p.Builder.Names()); err != nil {
		return nil, false, err
	}

	year, month, err := startPeriod(meta, history)
	if err != nil {
		p.Log.WithError(err).Warn("cannot anchor forecast start, serving seasonal fallback")
		return p.Fallback(history), true, nil
	}

	baseline := p.seasonalBaseline(meta, history)
	growth := p.AnnualGrowth
	if growth <= 0 {
		growth = 1
	}

	records := make([]Record, 0, p.Horizon)
	for i := 0; i < p.Horizon; i++ {
		base, ok := baseline[month]
		if !ok {
			base = defaultBase
		}
		lag12 := base * growth
		lag1 := lag12 * 0.98
		avg3 := lag12 * 1.02

		vec := p.Builder.Step(month, meta.SampleCount+i+1, lag1, lag12, avg3)
		values, err := vec.Values(meta.Features)
		if err != nil {
			return nil, false, err
		}
		quantity := model.Predict(values)
		if quantity < 0 {
			quantity = 0
		}

		records = append(records, Record{
			Period:     dataset.PeriodLabel(year, month),
			Year:       year,
			Month:      month,
			Quantity:   quantity,
			Minimum:    math.Max(0, quantity-meta.Metrics.MAE),
			Maximum:    quantity + meta.Metrics.MAE,
			Confidence: meta.Metrics.Precision / 100,
		})
		year, month = dataset.NextMonth(year, month)
	}
	return records, false, nil
}

// Fallback serves the fixed seasonal table with a conservative
// spread. It is deterministic so degraded runs stay reproducible.
func (p *Predictor) Fallback(history []dataset.MonthlyPoint) []Record {
	year, month := fallbackStart(history)
	records := make([]Record, 0, p.Horizon)
	for i := 0; i < p.Horizon; i++ {
		quantity := fallbackTable[month]
		records = append(records, Record{
			Period:     dataset.PeriodLabel(year, month),
			Year:       year,
			Month:      month,
			Quantity:   quantity,
			Minimum:    math.Max(0, quantity*(1-p.FallbackSpread)),
			Maximum:    quantity * (1 + p.FallbackSpread),
			Confidence: p.FallbackConfidence,
		})
		year, month = dataset.NextMonth(year, month)
	}
	return records
}

// seasonalBaseline prefers monthly averages computed from the live
// history, then the persisted seasonal statistics, then the fixed
// operational table
func (p *Predictor) seasonalBaseline(meta *Metadata, history []dataset.MonthlyPoint) map[int]float64 {
	if len(history) > 0 {
		sums := make(map[int]float64)
		counts := make(map[int]int)
		for _, pt := range history {
			sums[pt.Month] += pt.Quantity
			counts[pt.Month]++
		}
		baseline := make(map[int]float64, len(sums))
		for month, sum := range sums {
			baseline[month] = sum / float64(counts[month])
		}
		return baseline
	}
	if meta != nil && len(meta.SeasonalStats) > 0 {
		baseline := make(map[int]float64, len(meta.SeasonalStats))
		for month, s := range meta.SeasonalStats {
			baseline[month] = s.Mean
		}
		return baseline
	}
	return fallbackTable
}

// startPeriod is the month immediately after the last trained period
func startPeriod(meta *Metadata, history []dataset.MonthlyPoint) (int, int, error) {
	if meta != nil && meta.LastPeriod != "" {
		year, month, ok := dataset.ParsePeriod(meta.LastPeriod)
		if !ok {
			return 0, 0, fmt.Errorf("malformed last trained period %q", meta.LastPeriod)
		}
		y, m := dataset.NextMonth(year, month)
		return y, m, nil
	}
	y, m := fallbackStart(history)
	return y, m, nil
}

// fallbackStart anchors a degraded forecast on the history tail when
// one exists, otherwise on the current clock
func fallbackStart(history []dataset.MonthlyPoint) (int, int) {
	if n := len(history); n > 0 {
		return dataset.NextMonth(history[n-1].Year, history[n-1].Month)
	}
	now := time.Now().UTC()
	return dataset.NextMonth(now.Year(), int(now.Month()))
}
