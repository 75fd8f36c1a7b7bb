// Package pipeline orchestrates the demand-forecasting runs: loading
// the sales exports, training models, persisting artifacts and
// writing the forecast CSVs consumed downstream.
package pipeline

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/severitech/prueba-b/config"
	"github.com/severitech/prueba-b/dataset"
	"github.com/severitech/prueba-b/forecast"
	"github.com/severitech/prueba-b/metrics"
	"github.com/severitech/prueba-b/modelstore"
)

// aggregateScope labels the single pooled model trained over all sales
const aggregateScope = "global"

// Pipeline carries the shared state of one process: configuration,
// the artifact store, metrics and a cache of loaded models so
// repeated forecasts within one invocation hit disk once.
type Pipeline struct {
	RunID    string
	Config   *config.Config
	Store    *modelstore.Store
	Recorder *metrics.Recorder
	Log      logrus.FieldLogger

	mu       sync.Mutex
	aggModel *forecast.LinearModel
	aggMeta  *forecast.Metadata
	panels   map[string]*panelArtifacts
}

type panelArtifacts struct {
	model *forecast.LinearModel
	meta  *forecast.PanelMetadata
}

// New builds a pipeline with a fresh run ID
func New(cfg *config.Config, recorder *metrics.Recorder, log logrus.FieldLogger) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	store, err := modelstore.New(cfg.Paths.ModelDir, log)
	if err != nil {
		return nil, err
	}
	runID := uuid.New().String()
	return &Pipeline{
		RunID:    runID,
		Config:   cfg,
		Store:    store,
		Recorder: recorder,
		Log:      log.WithField("run_id", runID),
		panels:   make(map[string]*panelArtifacts),
	}, nil
}

func (p *Pipeline) events() forecast.EventWeights {
	s := p.Config.Seasonality
	return forecast.EventWeights{
		Peak:    s.PeakWeight,
		PrePeak: s.PrePeakWeight,
		MidYear: s.MidYearWeight,
		Trough:  s.TroughWeight,
	}
}

func (p *Pipeline) splitPolicy() forecast.SplitPolicy {
	t := p.Config.Training
	return forecast.SplitPolicy{
		HoldoutMonths:   t.HoldoutMonths,
		MinForHoldout:   t.MinForHoldout,
		ShortSplitRatio: t.ShortSplitRatio,
	}
}

func (p *Pipeline) calendarRange() dataset.CalendarRange {
	c := p.Config.Calendar
	return dataset.CalendarRange{
		StartYear:  c.StartYear,
		StartMonth: c.StartMonth,
		EndYear:    c.EndYear,
		EndMonth:   c.EndMonth,
	}
}

// loadMonthlyHistory produces the gap-free aggregate monthly series
// over the configured calendar window
func (p *Pipeline) loadMonthlyHistory() ([]dataset.MonthlyPoint, error) {
	lines, err := dataset.LoadSales(p.Config.Paths.DataDir)
	if err != nil {
		return nil, err
	}
	kept, droppedTime := dataset.NormalizeSales(lines)
	points, skipped := dataset.AggregateMonthly(kept)
	points = dataset.ReindexCalendar(points, p.calendarRange(), p.Config.Seasonality.GapFillQuantity)

	p.Log.WithFields(logrus.Fields{
		"lines":        len(lines),
		"dropped_time": droppedTime,
		"skipped_rows": skipped,
		"months":       len(points),
	}).Info("monthly history loaded")
	return points, nil
}

// RunTraining trains and persists the aggregate demand model
func (p *Pipeline) RunTraining() (*forecast.TrainingResult, error) {
	start := time.Now()

	points, err := p.loadMonthlyHistory()
	if err != nil {
		p.Recorder.TrainingRuns.WithLabelValues(aggregateScope, metrics.StatusError).Inc()
		return nil, err
	}

	builder := forecast.NewAggregateFeatureBuilder(p.events())
	trainer := forecast.NewTrainer(builder, p.splitPolicy(), p.Log)
	result, err := trainer.Train(aggregateScope, points)
	if err != nil {
		p.Recorder.TrainingRuns.WithLabelValues(aggregateScope, metrics.StatusError).Inc()
		return nil, err
	}
	result.Metadata.RunID = p.RunID

	if err := p.Store.SaveAggregate(result.Model, result.Metadata); err != nil {
		p.Recorder.TrainingRuns.WithLabelValues(aggregateScope, metrics.StatusError).Inc()
		return nil, err
	}

	p.mu.Lock()
	p.aggModel, p.aggMeta = result.Model, result.Metadata
	p.mu.Unlock()

	p.Recorder.TrainingRuns.WithLabelValues(aggregateScope, metrics.StatusOK).Inc()
	p.Recorder.RunDuration.WithLabelValues("train").Observe(time.Since(start).Seconds())
	return result, nil
}

// RunForecast projects the configured horizon. A missing model
// degrades to the seasonal fallback; the CSV is written either way.
func (p *Pipeline) RunForecast() ([]forecast.Record, bool, error) {
	start := time.Now()

	history, err := p.loadMonthlyHistory()
	if err != nil {
		p.Log.WithError(err).Warn("sales history unavailable, forecasting without it")
		history = nil
	}

	loaded, meta := p.aggregateArtifacts()
	var model forecast.Model
	if loaded != nil {
		model = loaded
	}
	f := p.Config.Forecast
	builder := forecast.NewAggregateFeatureBuilder(p.events())
	predictor := forecast.NewPredictor(builder, f.Horizon, f.AnnualGrowth, f.FallbackSpread, f.FallbackConfidence, p.Log)

	records, degraded, err := predictor.Forecast(model, meta, history)
	if err != nil {
		p.Recorder.ForecastRuns.WithLabelValues(aggregateScope, metrics.StatusError).Inc()
		return nil, false, err
	}

	path := filepath.Join(p.Config.Paths.DataDir, "predicciones_cantidades_mensuales.csv")
	if err := WriteForecastCSV(path, records); err != nil {
		p.Recorder.ForecastRuns.WithLabelValues(aggregateScope, metrics.StatusError).Inc()
		return nil, false, err
	}

	status := metrics.StatusOK
	if degraded {
		status = metrics.StatusFallback
		p.Recorder.FallbackServed.Inc()
	}
	p.Recorder.ForecastRuns.WithLabelValues(aggregateScope, status).Inc()
	p.Recorder.RunDuration.WithLabelValues("predict").Observe(time.Since(start).Seconds())

	p.logExecutiveSummary(records, history, degraded, path)
	return records, degraded, nil
}

// aggregateArtifacts returns the cached model, loading from disk on
// first use. Missing artifacts yield nils so the predictor degrades.
func (p *Pipeline) aggregateArtifacts() (*forecast.LinearModel, *forecast.Metadata) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.aggModel != nil && p.aggMeta != nil {
		return p.aggModel, p.aggMeta
	}

	model, meta, err := p.Store.LoadAggregate()
	if err != nil {
		if !errors.Is(err, modelstore.ErrNotFound) {
			p.Log.WithError(err).Error("aggregate model unreadable, degrading to fallback")
		}
		return nil, nil
	}
	p.aggModel, p.aggMeta = model, meta
	return model, meta
}

// logExecutiveSummary emits the business-facing digest of a forecast
func (p *Pipeline) logExecutiveSummary(records []forecast.Record, history []dataset.MonthlyPoint, degraded bool, path string) {
	if len(records) == 0 {
		return
	}
	var total float64
	peak, trough := records[0], records[0]
	for _, r := range records {
		total += r.Quantity
		if r.Quantity > peak.Quantity {
			peak = r
		}
		if r.Quantity < trough.Quantity {
			trough = r
		}
	}
	mean := total / float64(len(records))

	fields := logrus.Fields{
		"months":          len(records),
		"total_units":     fmt.Sprintf("%.0f", total),
		"monthly_mean":    fmt.Sprintf("%.0f", mean),
		"peak_period":     peak.Period,
		"peak_quantity":   fmt.Sprintf("%.0f", peak.Quantity),
		"trough_period":   trough.Period,
		"trough_quantity": fmt.Sprintf("%.0f", trough.Quantity),
		"degraded":        degraded,
		"output":          path,
	}
	if len(history) > 0 {
		var histTotal float64
		for _, pt := range history {
			histTotal += pt.Quantity
		}
		histMean := histTotal / float64(len(history))
		if histMean > 0 {
			fields["growth_vs_history_pct"] = fmt.Sprintf("%+.1f", (mean-histMean)/histMean*100)
		}
	}
	p.Log.WithFields(fields).Info("forecast written")
}
