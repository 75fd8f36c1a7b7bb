package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/severitech/prueba-b/dataset"
	"github.com/severitech/prueba-b/forecast"
	"github.com/severitech/prueba-b/metrics"
)

// loadPanel produces the per-entity monthly series for a scope. A
// pre-aggregated export (cantidades_por_<scope>_mensual.csv) takes priority
// when present; otherwise the panel is derived from the raw sales.
func (p *Pipeline) loadPanel(scope string) (*dataset.Panel, error) {
	keyColumn, err := forecast.KeyColumn(scope)
	if err != nil {
		return nil, err
	}

	exportPath := filepath.Join(p.Config.Paths.DataDir, fmt.Sprintf("cantidades_por_%s_mensual.csv", scope))
	if _, statErr := os.Stat(exportPath); statErr == nil {
		return p.panelFromExport(scope, keyColumn, exportPath)
	}
	return p.panelFromSales(scope, keyColumn)
}

// panelFromExport reads a pre-aggregated monthly export and
// canonicalizes its keys for the scope
func (p *Pipeline) panelFromExport(scope, keyColumn, path string) (*dataset.Panel, error) {
	rows, column, err := dataset.LoadPanelRows(path)
	if err != nil {
		return nil, err
	}
	if column != keyColumn {
		p.Log.WithFields(logrus.Fields{"scope": scope, "column": column, "expected": keyColumn}).
			Warn("panel export key column differs from the scope's canonical column")
	}

	normalized := make([]dataset.PanelRow, 0, len(rows))
	skipped := 0
	for _, r := range rows {
		key, err := forecast.NormalizeKey(scope, r.Key)
		if err != nil {
			skipped++
			continue
		}
		r.Key = key
		normalized = append(normalized, r)
	}
	if skipped > 0 {
		p.Log.WithFields(logrus.Fields{"scope": scope, "skipped": skipped}).
			Warn("panel export rows without a usable entity key")
	}
	if len(normalized) == 0 {
		return nil, fmt.Errorf("%w: scope %s", dataset.ErrNoData, scope)
	}

	p.Log.WithFields(logrus.Fields{"scope": scope, "rows": len(normalized), "source": path}).
		Info("panel loaded from monthly export")
	return dataset.BuildPanel(scope, keyColumn, normalized), nil
}

// panelFromSales groups the joined sales lines into one monthly
// series per entity for the given scope
func (p *Pipeline) panelFromSales(scope, keyColumn string) (*dataset.Panel, error) {
	lines, err := dataset.LoadSales(p.Config.Paths.DataDir)
	if err != nil {
		return nil, err
	}
	kept, _ := dataset.NormalizeSales(lines)

	rows := make([]dataset.PanelRow, 0, len(kept))
	skipped := 0
	for _, line := range kept {
		raw := rawKey(scope, line)
		if raw == "" {
			skipped++
			continue
		}
		key, err := forecast.NormalizeKey(scope, raw)
		if err != nil {
			skipped++
			continue
		}
		rows = append(rows, dataset.PanelRow{
			Year:     line.Year,
			Month:    line.Month,
			Key:      key,
			Quantity: line.Quantity,
		})
	}
	if skipped > 0 {
		p.Log.WithFields(logrus.Fields{"scope": scope, "skipped": skipped}).
			Warn("sales lines without a usable entity key")
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: scope %s", dataset.ErrNoData, scope)
	}
	return dataset.BuildPanel(scope, keyColumn, rows), nil
}

func rawKey(scope string, line dataset.SalesLine) string {
	switch scope {
	case forecast.ScopeProduct:
		if line.ProductID <= 0 {
			return ""
		}
		return strconv.Itoa(line.ProductID)
	case forecast.ScopeCustomer:
		if line.CustomerID <= 0 {
			return ""
		}
		return strconv.Itoa(line.CustomerID)
	case forecast.ScopeCategory:
		return line.Category
	}
	return ""
}

// RunPanelTraining trains and persists the pooled model for one
// scope, plus the per-entity metrics and series-summary reports
func (p *Pipeline) RunPanelTraining(scope string) (*forecast.PanelTrainingResult, error) {
	start := time.Now()

	panel, err := p.loadPanel(scope)
	if err != nil {
		p.Recorder.TrainingRuns.WithLabelValues(scope, metrics.StatusError).Inc()
		return nil, err
	}

	th := p.Config.Panel
	trainer := forecast.NewPanelTrainer(
		forecast.NewPanelFeatureBuilder(),
		p.splitPolicy(),
		forecast.PanelThresholds{
			TopK:            th.TopK,
			MinActiveMonths: th.MinActiveMonths,
			MinTotalPoints:  th.MinTotalPoints,
		},
		p.Log,
	)
	result, err := trainer.Train(panel)
	if err != nil {
		p.Recorder.TrainingRuns.WithLabelValues(scope, metrics.StatusError).Inc()
		return nil, err
	}
	result.Metadata.RunID = p.RunID

	if err := p.Store.SavePanel(result.Model, result.Metadata); err != nil {
		p.Recorder.TrainingRuns.WithLabelValues(scope, metrics.StatusError).Inc()
		return nil, err
	}

	metricsPath := filepath.Join(p.Config.Paths.ModelDir, fmt.Sprintf("panel_%s_metrics.csv", scope))
	if err := WritePanelMetricsCSV(metricsPath, result.Entities); err != nil {
		return nil, err
	}
	summaryPath := filepath.Join(p.Config.Paths.ModelDir, fmt.Sprintf("panel_%s_series_summary.csv", scope))
	if err := WriteSeriesSummaryCSV(summaryPath, result.Summaries); err != nil {
		return nil, err
	}

	p.mu.Lock()
	p.panels[scope] = &panelArtifacts{model: result.Model, meta: result.Metadata}
	p.mu.Unlock()

	skipped := result.Metadata.SeriesTotal - result.Metadata.SeriesEvaluated
	if skipped > 0 {
		p.Recorder.EntitiesSkipped.WithLabelValues(scope).Add(float64(skipped))
	}
	p.Recorder.TrainingRuns.WithLabelValues(scope, metrics.StatusOK).Inc()
	p.Recorder.RunDuration.WithLabelValues("train-panel").Observe(time.Since(start).Seconds())
	return result, nil
}

// RunPanelForecast predicts the horizon for the requested entity
// keys, or the top entities by volume when none are given. Panel
// forecasting has no seasonal fallback: a missing model is an error.
func (p *Pipeline) RunPanelForecast(scope string, rawKeys []string) ([]forecast.EntityForecast, error) {
	start := time.Now()

	panel, err := p.loadPanel(scope)
	if err != nil {
		p.Recorder.ForecastRuns.WithLabelValues(scope, metrics.StatusError).Inc()
		return nil, err
	}

	art, err := p.panelArtifactsFor(scope)
	if err != nil {
		p.Recorder.ForecastRuns.WithLabelValues(scope, metrics.StatusError).Inc()
		return nil, err
	}

	keys := make([]string, 0, len(rawKeys))
	for _, raw := range rawKeys {
		key, err := forecast.NormalizeKey(scope, raw)
		if err != nil {
			p.Recorder.ForecastRuns.WithLabelValues(scope, metrics.StatusError).Inc()
			return nil, err
		}
		keys = append(keys, key)
	}
	if len(keys) == 0 {
		keys = panel.TopKeys(p.Config.Forecast.DefaultTopK)
	}

	predictor := forecast.NewPanelPredictor(forecast.NewPanelFeatureBuilder(), p.Config.Forecast.Horizon, p.Log)
	forecasts, err := predictor.ForecastBatch(art.model, art.meta, panel, keys)
	if err != nil {
		p.Recorder.ForecastRuns.WithLabelValues(scope, metrics.StatusError).Inc()
		return nil, err
	}
	if len(forecasts) < len(keys) {
		p.Recorder.EntitiesSkipped.WithLabelValues(scope).Add(float64(len(keys) - len(forecasts)))
	}

	keyColumn, err := forecast.KeyColumn(scope)
	if err != nil {
		return nil, err
	}
	var combined []forecast.Record
	for _, ef := range forecasts {
		path := filepath.Join(p.Config.Paths.DataDir, fmt.Sprintf("pred_%s_%s.csv", scope, ef.Key))
		if err := WritePanelForecastCSV(path, keyColumn, ef.Records); err != nil {
			return nil, err
		}
		combined = append(combined, ef.Records...)
	}
	allPath := filepath.Join(p.Config.Paths.DataDir, fmt.Sprintf("pred_%s_all.csv", scope))
	if err := WritePanelForecastCSV(allPath, keyColumn, combined); err != nil {
		return nil, err
	}

	p.Recorder.ForecastRuns.WithLabelValues(scope, metrics.StatusOK).Inc()
	p.Recorder.RunDuration.WithLabelValues("predict-panel").Observe(time.Since(start).Seconds())

	p.Log.WithFields(logrus.Fields{
		"scope":    scope,
		"entities": len(forecasts),
		"output":   allPath,
	}).Info("panel forecast written")
	return forecasts, nil
}

func (p *Pipeline) panelArtifactsFor(scope string) (*panelArtifacts, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if art, ok := p.panels[scope]; ok {
		return art, nil
	}
	model, meta, err := p.Store.LoadPanel(scope)
	if err != nil {
		return nil, fmt.Errorf("loading %s panel model: %w", scope, err)
	}
	art := &panelArtifacts{model: model, meta: meta}
	p.panels[scope] = art
	return art, nil
}
