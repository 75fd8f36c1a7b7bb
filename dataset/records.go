package dataset

import (
	"errors"
	"time"
)

// ErrNoData indicates that a tabular source produced no usable rows
var ErrNoData = errors.New("dataset: no rows loaded")

// Row carries the time fields a tabular source may populate in any
// combination. Zero values mean "unknown" until NormalizeTime runs.
type Row struct {
	Date   time.Time // canonical date, always UTC once normalized
	Year   int
	Month  int
	Period string // "YYYY-MM"
}

// HasTime reports whether the row resolved to a usable calendar month
func (r *Row) HasTime() bool {
	return r.Year > 0 && r.Month >= 1 && r.Month <= 12
}

// SalesLine represents one product line within a recorded sale.
// Produced by the order subsystem; this package only reads it.
type SalesLine struct {
	Row
	SaleID      int
	ProductID   int
	CustomerID  int
	Category    string
	Subcategory string
	Status      string
	Quantity    float64
	Subtotal    float64
	SaleTotal   float64
}

// MonthlyPoint is one aggregated row per calendar month
type MonthlyPoint struct {
	Year     int
	Month    int
	Period   string
	Date     time.Time
	Quantity float64
}

// PanelRow is one pre-aggregated monthly observation for a single
// entity within a panel scope (product, customer or category)
type PanelRow struct {
	Year     int
	Month    int
	Key      string // raw entity identifier as it appears in the source
	Quantity float64
}
