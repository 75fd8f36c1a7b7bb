package pipeline

import (
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/severitech/prueba-b/dataset"
)

// DatasetReport describes one source export
type DatasetReport struct {
	File    string   `json:"file"`
	Rows    int      `json:"rows"`
	Columns []string `json:"columns"`
	Missing []string `json:"missing_columns,omitempty"`
	Error   string   `json:"error,omitempty"`
}

// VerifyReport summarizes whether the data directory can feed a
// training run
type VerifyReport struct {
	Datasets    []DatasetReport `json:"datasets"`
	JoinedLines int             `json:"joined_lines"`
	DroppedTime int             `json:"dropped_time_rows"`
	Months      int             `json:"months"`
	FirstPeriod string          `json:"first_period,omitempty"`
	LastPeriod  string          `json:"last_period,omitempty"`
	LinesByYear map[int]int     `json:"lines_by_year,omitempty"`
	Ready       bool            `json:"ready"`
}

// requiredColumns per export; missing ones are reported but only the
// join keys are fatal for training
var requiredColumns = map[string][]string{
	"ventas.csv":         {"id", "fecha", "usuario_id"},
	"detalles_venta.csv": {"venta_id", "producto_id", "cantidad"},
}

// Verify inspects the source exports and reports shape, columns and
// whether the pipeline could train from them
func (p *Pipeline) Verify() *VerifyReport {
	report := &VerifyReport{}

	for _, file := range []string{"ventas.csv", "detalles_venta.csv"} {
		dr := DatasetReport{File: file}
		rows, columns, err := dataset.InspectCSV(filepath.Join(p.Config.Paths.DataDir, file))
		if err != nil {
			dr.Error = err.Error()
		} else {
			dr.Rows = rows
			dr.Columns = columns
			present := make(map[string]bool, len(columns))
			for _, c := range columns {
				present[c] = true
			}
			for _, want := range requiredColumns[file] {
				if !present[want] {
					dr.Missing = append(dr.Missing, want)
				}
			}
		}
		report.Datasets = append(report.Datasets, dr)

		fields := logrus.Fields{"file": file, "rows": dr.Rows, "columns": len(dr.Columns)}
		if dr.Error != "" {
			p.Log.WithFields(fields).WithField("error", dr.Error).Warn("dataset unreadable")
		} else if len(dr.Missing) > 0 {
			p.Log.WithFields(fields).WithField("missing", dr.Missing).Warn("dataset columns missing")
		} else {
			p.Log.WithFields(fields).Info("dataset verified")
		}
	}

	lines, err := dataset.LoadSales(p.Config.Paths.DataDir)
	if err != nil {
		p.Log.WithError(err).Warn("sales join failed")
		return report
	}
	kept, dropped := dataset.NormalizeSales(lines)
	points, _ := dataset.AggregateMonthly(kept)
	dataset.SortMonthly(points)

	report.JoinedLines = len(lines)
	report.DroppedTime = dropped
	report.Months = len(points)
	report.LinesByYear = make(map[int]int, 8)
	for _, l := range kept {
		report.LinesByYear[l.Year]++
	}
	if len(points) > 0 {
		report.FirstPeriod = points[0].Period
		report.LastPeriod = points[len(points)-1].Period
	}
	report.Ready = len(points) >= 2
	for _, dr := range report.Datasets {
		if dr.Error != "" || len(dr.Missing) > 0 {
			report.Ready = false
		}
	}

	p.Log.WithFields(logrus.Fields{
		"joined_lines": report.JoinedLines,
		"months":       report.Months,
		"from":         report.FirstPeriod,
		"to":           report.LastPeriod,
		"ready":        report.Ready,
	}).Info("dataset verification complete")
	return report
}
