package forecast

import (
	"fmt"
	"math"

	"github.com/severitech/prueba-b/dataset"
)

// Feature names as persisted in model metadata. The names, not the
// positions, are the contract between training and prediction: every
// matrix handed to a model is built from a named list so fit order and
// predict order cannot drift apart.
const (
	FeatMonthSin     = "mes_sin"
	FeatMonthCos     = "mes_cos"
	FeatTrend        = "tendencia"
	FeatTrendSquared = "tendencia_cuad"
	FeatPeak         = "navidad"
	FeatMidYear      = "verano"
	FeatTrough       = "inicio_anio"
	FeatLag1         = "lag_1"
	FeatLag12        = "lag_12"
	FeatMovingAvg3   = "media_3m"
)

// AggregateFeatureNames returns the fit-order feature list for the
// aggregate monthly model
func AggregateFeatureNames() []string {
	return []string{
		FeatMonthSin, FeatMonthCos,
		FeatTrend, FeatTrendSquared,
		FeatPeak, FeatMidYear, FeatTrough,
		FeatLag1, FeatLag12,
		FeatMovingAvg3,
	}
}

// PanelFeatureNames returns the fit-order feature list for panel
// models. Panels skip the calendar-event indicators: entity series
// are too sparse for fixed event weights to help.
func PanelFeatureNames() []string {
	return []string{
		FeatMonthSin, FeatMonthCos,
		FeatTrend, FeatTrendSquared,
		FeatLag1, FeatLag12,
		FeatMovingAvg3,
	}
}

// FeatureVector is the derived predictor set for one time step
type FeatureVector struct {
	MonthSin     float64
	MonthCos     float64
	Trend        float64
	TrendSquared float64
	Peak         float64
	MidYear      float64
	Trough       float64
	Lag1         float64
	Lag12        float64
	MovingAvg3   float64
}

// Value returns the named feature
func (v *FeatureVector) Value(name string) (float64, error) {
	switch name {
	case FeatMonthSin:
		return v.MonthSin, nil
	case FeatMonthCos:
		return v.MonthCos, nil
	case FeatTrend:
		return v.Trend, nil
	case FeatTrendSquared:
		return v.TrendSquared, nil
	case FeatPeak:
		return v.Peak, nil
	case FeatMidYear:
		return v.MidYear, nil
	case FeatTrough:
		return v.Trough, nil
	case FeatLag1:
		return v.Lag1, nil
	case FeatLag12:
		return v.Lag12, nil
	case FeatMovingAvg3:
		return v.MovingAvg3, nil
	}
	return 0, fmt.Errorf("unknown feature %q", name)
}

func (v *FeatureVector) setValue(name string, x float64) {
	switch name {
	case FeatMonthSin:
		v.MonthSin = x
	case FeatMonthCos:
		v.MonthCos = x
	case FeatTrend:
		v.Trend = x
	case FeatTrendSquared:
		v.TrendSquared = x
	case FeatPeak:
		v.Peak = x
	case FeatMidYear:
		v.MidYear = x
	case FeatTrough:
		v.Trough = x
	case FeatLag1:
		v.Lag1 = x
	case FeatLag12:
		v.Lag12 = x
	case FeatMovingAvg3:
		v.MovingAvg3 = x
	}
}

// Values extracts the vector's entries in the order of names
func (v *FeatureVector) Values(names []string) ([]float64, error) {
	out := make([]float64, len(names))
	for i, name := range names {
		x, err := v.Value(name)
		if err != nil {
			return nil, err
		}
		out[i] = x
	}
	return out, nil
}

// Matrix builds a row-major feature matrix with columns in the order
// of names. Both training and prediction go through here, so column
// order is fixed by the named list alone.
func Matrix(vectors []FeatureVector, names []string) ([][]float64, error) {
	rows := make([][]float64, len(vectors))
	for i := range vectors {
		values, err := vectors[i].Values(names)
		if err != nil {
			return nil, err
		}
		rows[i] = values
	}
	return rows, nil
}

// EventWeights are the tunable seasonal-event indicator weights.
// They are calibration constants for the historical dataset, not
// learned parameters.
type EventWeights struct {
	Peak    float64 // December
	PrePeak float64 // November
	MidYear float64 // June, July
	Trough  float64 // January, February
}

// DefaultEventWeights mirrors the values the historical dataset was
// tuned against
func DefaultEventWeights() EventWeights {
	return EventWeights{Peak: 2.0, PrePeak: 1.8, MidYear: 1.5, Trough: 0.5}
}

// ForMonth returns the three event indicators for a calendar month.
// Training and prediction share this single definition.
func (w EventWeights) ForMonth(month int) (peak, midYear, trough float64) {
	switch month {
	case 12:
		peak = w.Peak
	case 11:
		peak = w.PrePeak
	}
	if month == 6 || month == 7 {
		midYear = w.MidYear
	}
	if month == 1 || month == 2 {
		trough = w.Trough
	}
	return peak, midYear, trough
}

// MonthEncoding returns the cyclical month-of-year encoding, placing
// December and January adjacent in feature space
func MonthEncoding(month int) (sin, cos float64) {
	angle := 2 * math.Pi * float64(month-1) / 12
	return math.Sin(angle), math.Cos(angle)
}

// GlobalTrendIndex converts (year, month) into the 1-based period
// index used as the trend feature, anchored at January of baseYear
func GlobalTrendIndex(baseYear, year, month int) int {
	return (year-baseYear)*12 + (month - 1) + 1
}

// FeatureBuilder derives feature vectors from monthly history
type FeatureBuilder struct {
	Events     EventWeights
	WithEvents bool
}

// NewAggregateFeatureBuilder builds the full aggregate schema
func NewAggregateFeatureBuilder(events EventWeights) *FeatureBuilder {
	return &FeatureBuilder{Events: events, WithEvents: true}
}

// NewPanelFeatureBuilder builds the event-free panel schema
func NewPanelFeatureBuilder() *FeatureBuilder {
	return &FeatureBuilder{WithEvents: false}
}

// Names returns the builder's fit-order feature list
func (b *FeatureBuilder) Names() []string {
	if b.WithEvents {
		return AggregateFeatureNames()
	}
	return PanelFeatureNames()
}

// Series derives one vector per point of a chronological series.
// trend[i] is the period index of points[i]. Lags undefined at the
// start of the series are left as NaN and resolved by FillEdges; this
// backward-then-forward fill is a documented approximation affecting
// only the first rows of a long series, not a bug.
func (b *FeatureBuilder) Series(points []dataset.MonthlyPoint, trend []int) []FeatureVector {
	vectors := make([]FeatureVector, len(points))
	for i, p := range points {
		v := &vectors[i]
		v.MonthSin, v.MonthCos = MonthEncoding(p.Month)
		v.Trend = float64(trend[i])
		v.TrendSquared = v.Trend * v.Trend
		if b.WithEvents {
			v.Peak, v.MidYear, v.Trough = b.Events.ForMonth(p.Month)
		}

		if i >= 1 {
			v.Lag1 = points[i-1].Quantity
		} else {
			v.Lag1 = math.NaN()
		}
		if i >= 12 {
			v.Lag12 = points[i-12].Quantity
		} else {
			v.Lag12 = math.NaN()
		}

		window := 3
		if i+1 < window {
			window = i + 1
		}
		sum := 0.0
		for j := i - window + 1; j <= i; j++ {
			sum += points[j].Quantity
		}
		v.MovingAvg3 = sum / float64(window)
	}

	FillEdges(vectors, b.Names())
	return vectors
}

// Step derives the vector for a single future month from externally
// supplied lag values
func (b *FeatureBuilder) Step(month, trend int, lag1, lag12, avg3 float64) FeatureVector {
	var v FeatureVector
	v.MonthSin, v.MonthCos = MonthEncoding(month)
	v.Trend = float64(trend)
	v.TrendSquared = v.Trend * v.Trend
	if b.WithEvents {
		v.Peak, v.MidYear, v.Trough = b.Events.ForMonth(month)
	}
	v.Lag1 = lag1
	v.Lag12 = lag12
	v.MovingAvg3 = avg3
	return v
}

// FillEdges resolves NaN entries per feature column by backward fill
// followed by forward fill over the whole matrix
func FillEdges(vectors []FeatureVector, names []string) {
	for _, name := range names {
		// backward fill: each NaN takes the next defined value
		next := math.NaN()
		for i := len(vectors) - 1; i >= 0; i-- {
			x, err := vectors[i].Value(name)
			if err != nil {
				return
			}
			if math.IsNaN(x) {
				if !math.IsNaN(next) {
					vectors[i].setValue(name, next)
				}
			} else {
				next = x
			}
		}
		// forward fill mops up trailing NaN runs
		prev := math.NaN()
		for i := range vectors {
			x, _ := vectors[i].Value(name)
			if math.IsNaN(x) {
				if !math.IsNaN(prev) {
					vectors[i].setValue(name, prev)
				}
			} else {
				prev = x
			}
		}
	}
}
