package pipeline

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/severitech/prueba-b/forecast"
)

// forecastHeader is the column contract of the aggregate forecast CSV
var forecastHeader = []string{"periodo", "anio", "mes", "cantidad_predicha", "minimo", "maximo", "confianza"}

// WriteForecastCSV writes the aggregate forecast. Quantities are
// rounded to two decimals; the write is atomic.
func WriteForecastCSV(path string, records []forecast.Record) error {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, []string{
			r.Period,
			strconv.Itoa(r.Year),
			strconv.Itoa(r.Month),
			money(r.Quantity),
			money(r.Minimum),
			money(r.Maximum),
			money(r.Confidence),
		})
	}
	return writeCSV(path, forecastHeader, rows)
}

// WritePanelForecastCSV writes per-entity predictions with the
// scope's key column between the calendar and quantity columns
func WritePanelForecastCSV(path, keyColumn string, records []forecast.Record) error {
	header := []string{"periodo", "anio", "mes", keyColumn, "cantidad_predicha", "minimo", "maximo", "confianza"}
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, []string{
			r.Period,
			strconv.Itoa(r.Year),
			strconv.Itoa(r.Month),
			r.Key,
			money(r.Quantity),
			money(r.Minimum),
			money(r.Maximum),
			money(r.Confidence),
		})
	}
	return writeCSV(path, header, rows)
}

// WritePanelMetricsCSV reports the per-entity holdout evaluation
func WritePanelMetricsCSV(path string, entities []forecast.EntityMetrics) error {
	header := []string{"key", "points", "train", "test", "test_mean", "r2", "mae", "precision"}
	rows := make([][]string, 0, len(entities))
	for _, e := range entities {
		rows = append(rows, []string{
			e.Key,
			strconv.Itoa(e.Points),
			strconv.Itoa(e.Train),
			strconv.Itoa(e.Test),
			money(e.TestMean),
			strconv.FormatFloat(e.R2, 'f', 4, 64),
			money(e.MAE),
			money(e.Precision),
		})
	}
	return writeCSV(path, header, rows)
}

// WriteSeriesSummaryCSV reports every series in the panel
func WriteSeriesSummaryCSV(path string, summaries []forecast.SeriesSummary) error {
	header := []string{"key", "points", "active_months", "total", "mean", "stddev", "eligible"}
	rows := make([][]string, 0, len(summaries))
	for _, s := range summaries {
		rows = append(rows, []string{
			s.Key,
			strconv.Itoa(s.Points),
			strconv.Itoa(s.ActiveMonths),
			money(s.Total),
			money(s.Mean),
			money(s.StdDev),
			strconv.FormatBool(s.Eligible),
		})
	}
	return writeCSV(path, header, rows)
}

func money(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// writeCSV writes header+rows through a temp file and rename so
// partially written outputs are never visible
func writeCSV(path string, header []string, rows [][]string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file for %s: %w", path, err)
	}

	w := csv.NewWriter(tmp)
	if err := w.Write(header); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("writing %s: %w", path, err)
	}
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
			return fmt.Errorf("writing %s: %w", path, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("flushing %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("closing %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	return nil
}
