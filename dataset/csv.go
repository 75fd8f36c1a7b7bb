package dataset

import (
	"encoding/csv"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Column names as they appear in the sales-history exports. The
// loaders match headers case-insensitively and tolerate missing
// optional columns.
const (
	colID       = "id"
	colDate     = "fecha"
	colYear     = "anio"
	colMonth    = "mes"
	colPeriod   = "periodo"
	colQuantity = "cantidad"
	colSaleID   = "venta_id"
	colProduct  = "producto_id"
	colCustomer = "usuario_id"
	colTotal    = "total"
	colSubtotal = "subtotal"
	colStatus   = "estado"
	colCategory = "categoria"
	colSubcat   = "subcategoria"
)

// table is a header-indexed view over a parsed CSV file. columns keeps
// the original header order for loaders that care about position.
type table struct {
	header  map[string]int
	columns []string
	rows    [][]string
}

func readTable(path string) (*table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if len(records) < 1 {
		return nil, fmt.Errorf("%s: %w", path, ErrNoData)
	}

	header := make(map[string]int, len(records[0]))
	columns := make([]string, 0, len(records[0]))
	for i, name := range records[0] {
		col := strings.ToLower(strings.TrimSpace(name))
		header[col] = i
		columns = append(columns, col)
	}
	return &table{header: header, columns: columns, rows: records[1:]}, nil
}

func (t *table) has(col string) bool {
	_, ok := t.header[col]
	return ok
}

func (t *table) str(row []string, col string) string {
	idx, ok := t.header[col]
	if !ok || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func (t *table) intVal(row []string, col string) int {
	s := t.str(row, col)
	if s == "" {
		return 0
	}
	// Tolerate float-formatted integers ("25.0") coming out of
	// spreadsheet round-trips without letting them change the key.
	if v, err := strconv.Atoi(s); err == nil {
		return v
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f == float64(int(f)) {
		return int(f)
	}
	return 0
}

func (t *table) floatVal(row []string, col string) float64 {
	s := t.str(row, col)
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

func (t *table) dateVal(row []string, col string) time.Time {
	s := t.str(row, col)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{
		time.RFC3339,
		"2006-01-02 15:04:05",
		"2006-01-02",
	} {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts.UTC()
		}
	}
	return time.Time{}
}

// LoadSales reads the sales and line-detail exports from dataDir and
// joins them into one SalesLine per detail row. Detail rows without a
// matching sale are dropped. A missing quantity column defaults every
// line to one unit, matching the source exports.
func LoadSales(dataDir string) ([]SalesLine, error) {
	ventas, err := readTable(dataDir + "/ventas.csv")
	if err != nil {
		return nil, err
	}
	detalles, err := readTable(dataDir + "/detalles_venta.csv")
	if err != nil {
		return nil, err
	}

	type sale struct {
		row      Row
		total    float64
		status   string
		customer int
	}
	sales := make(map[int]sale, len(ventas.rows))
	for _, row := range ventas.rows {
		id := ventas.intVal(row, colID)
		if id == 0 {
			continue
		}
		sales[id] = sale{
			row: Row{
				Date:   ventas.dateVal(row, colDate),
				Year:   ventas.intVal(row, colYear),
				Month:  ventas.intVal(row, colMonth),
				Period: ventas.str(row, colPeriod),
			},
			total:    ventas.floatVal(row, colTotal),
			status:   ventas.str(row, colStatus),
			customer: ventas.intVal(row, colCustomer),
		}
	}

	hasQuantity := detalles.has(colQuantity)
	lines := make([]SalesLine, 0, len(detalles.rows))
	for _, row := range detalles.rows {
		saleID := detalles.intVal(row, colSaleID)
		s, ok := sales[saleID]
		if !ok {
			continue
		}
		quantity := 1.0
		if hasQuantity {
			quantity = detalles.floatVal(row, colQuantity)
		}
		lines = append(lines, SalesLine{
			Row:         s.row,
			SaleID:      saleID,
			ProductID:   detalles.intVal(row, colProduct),
			CustomerID:  s.customer,
			Category:    detalles.str(row, colCategory),
			Subcategory: detalles.str(row, colSubcat),
			Status:      s.status,
			Quantity:    quantity,
			Subtotal:    detalles.floatVal(row, colSubtotal),
			SaleTotal:   s.total,
		})
	}

	if len(lines) == 0 {
		return nil, fmt.Errorf("no joined sales lines in %s: %w", dataDir, ErrNoData)
	}
	return lines, nil
}

// LoadPanelRows reads a pre-aggregated panel export with columns
// (anio, mes, <key>, cantidad). The key column is the first column in
// header order that is not one of the three known ones, as in the
// source exports.
func LoadPanelRows(path string) ([]PanelRow, string, error) {
	t, err := readTable(path)
	if err != nil {
		return nil, "", err
	}

	keyColumn := ""
	for _, name := range t.columns {
		if name != colYear && name != colMonth && name != colQuantity {
			keyColumn = name
			break
		}
	}
	if keyColumn == "" {
		return nil, "", fmt.Errorf("%s: no entity key column found", path)
	}

	rows := make([]PanelRow, 0, len(t.rows))
	for _, row := range t.rows {
		year := t.intVal(row, colYear)
		month := t.intVal(row, colMonth)
		if year <= 0 || month < 1 || month > 12 {
			continue
		}
		key := t.str(row, keyColumn)
		if key == "" {
			continue
		}
		// Integer keys are kept in canonical integer form so a
		// "25.0" in the export never leaks into output naming.
		if v, err := strconv.ParseFloat(key, 64); err == nil && v == float64(int(v)) {
			key = strconv.Itoa(int(v))
		}
		rows = append(rows, PanelRow{
			Year:     year,
			Month:    month,
			Key:      key,
			Quantity: t.floatVal(row, colQuantity),
		})
	}

	if len(rows) == 0 {
		return nil, "", fmt.Errorf("%s: %w", path, ErrNoData)
	}
	return rows, keyColumn, nil
}

// InspectCSV reports the row count and lowercased column names of a
// CSV export without materializing it, for dataset verification
func InspectCSV(path string) (int, []string, error) {
	t, err := readTable(path)
	if err != nil {
		return 0, nil, err
	}
	columns := make([]string, 0, len(t.header))
	for name := range t.header {
		columns = append(columns, name)
	}
	sort.Strings(columns)
	return len(t.rows), columns, nil
}
