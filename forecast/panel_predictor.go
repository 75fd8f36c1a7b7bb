package forecast

import (
	"errors"
	"fmt"
	"math"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat"

	"github.com/severitech/prueba-b/dataset"
)

// EntityForecast holds one entity's predicted horizon
type EntityForecast struct {
	Key     string
	Records []Record
}

// PanelPredictor forecasts individual entities with the pooled panel
// model. Each step feeds the previous prediction back into the lag
// buffer so multi-month horizons stay internally consistent.
type PanelPredictor struct {
	Builder *FeatureBuilder
	Horizon int
	Log     logrus.FieldLogger
}

// NewPanelPredictor wires a panel predictor
func NewPanelPredictor(builder *FeatureBuilder, horizon int, log logrus.FieldLogger) *PanelPredictor {
	return &PanelPredictor{Builder: builder, Horizon: horizon, Log: log}
}

// ForecastEntity predicts the horizon for one entity from its own
// monthly history. The trend index continues the panel-wide calendar
// axis anchored at the metadata's base year, so sparse or
// late-starting series land on the same axis the pooled model was
// fitted on.
func (p *PanelPredictor) ForecastEntity(model Model, meta *PanelMetadata, scope, key string, history []dataset.MonthlyPoint) ([]Record, error) {
	if model == nil || meta == nil {
		return nil, fmt.Errorf("%w: no trained %s panel model", ErrNoSeries, scope)
	}
	if err := ValidateFeatureNames(meta.Features, p.Builder.Names()); err != nil {
		return nil, err
	}
	n := len(history)
	if n == 0 {
		return nil, fmt.Errorf("%w: entity %s has no history", ErrNoSeries, key)
	}

	buffer := dataset.Quantities(history)
	year, month := history[n-1].Year, history[n-1].Month

	records := make([]Record, 0, p.Horizon)
	for i := 0; i < p.Horizon; i++ {
		year, month = dataset.NextMonth(year, month)

		lag1 := buffer[len(buffer)-1]
		lag12 := lag1
		if len(buffer) >= 12 {
			lag12 = buffer[len(buffer)-12]
		}
		avg3 := lag1
		if len(buffer) >= 3 {
			avg3 = stat.Mean(buffer[len(buffer)-3:], nil)
		}

		vec := p.Builder.Step(month, GlobalTrendIndex(meta.BaseYear, year, month), lag1, lag12, avg3)
		values, err := vec.Values(meta.Features)
		if err != nil {
			return nil, err
		}
		quantity := model.Predict(values)
		if quantity < 0 {
			quantity = 0
		}
		buffer = append(buffer, quantity)

		records = append(records, Record{
			Period:     dataset.PeriodLabel(year, month),
			Year:       year,
			Month:      month,
			Scope:      scope,
			Key:        key,
			Quantity:   quantity,
			Minimum:    math.Max(0, quantity-meta.MeanMetrics.MAE),
			Maximum:    quantity + meta.MeanMetrics.MAE,
			Confidence: meta.MeanMetrics.Precision / 100,
		})
	}
	return records, nil
}

// ForecastBatch predicts every requested key. Entities without
// history are skipped with a warning; the run fails only when no
// entity could be forecast at all.
func (p *PanelPredictor) ForecastBatch(model Model, meta *PanelMetadata, panel *dataset.Panel, keys []string) ([]EntityForecast, error) {
	forecasts := make([]EntityForecast, 0, len(keys))
	for _, key := range keys {
		history := panel.Series[key]
		if len(history) == 0 {
			p.Log.WithFields(logrus.Fields{"scope": panel.Scope, "key": key}).
				Warn("no history for entity, skipping")
			continue
		}
		records, err := p.ForecastEntity(model, meta, panel.Scope, key, history)
		if err != nil {
			var drift *SchemaDriftError
			if errors.As(err, &drift) {
				return nil, err
			}
			p.Log.WithFields(logrus.Fields{"scope": panel.Scope, "key": key}).
				WithError(err).Warn("entity forecast failed, skipping")
			continue
		}
		forecasts = append(forecasts, EntityForecast{Key: key, Records: records})
	}
	if len(forecasts) == 0 {
		return nil, fmt.Errorf("%w: no %s entity could be forecast", ErrNoSeries, panel.Scope)
	}
	return forecasts, nil
}
