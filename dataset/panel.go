package dataset

import "sort"

// Panel holds one monthly series per entity for a panel scope.
// Series are chronological but intentionally sparse: entities may be
// missing months, and no calendar reindexing is performed per entity.
// Degenerate series are instead filtered out before model evaluation.
type Panel struct {
	Scope     string
	KeyColumn string
	Series    map[string][]MonthlyPoint
}

// BuildPanel groups panel rows by entity key, summing duplicates per
// (key, year, month) and sorting each series chronologically
func BuildPanel(scope, keyColumn string, rows []PanelRow) *Panel {
	type cell struct {
		key         string
		year, month int
	}
	sums := make(map[cell]float64)
	for _, r := range rows {
		if r.Year <= 0 || r.Month < 1 || r.Month > 12 {
			continue
		}
		sums[cell{r.Key, r.Year, r.Month}] += r.Quantity
	}

	series := make(map[string][]MonthlyPoint)
	for c, q := range sums {
		series[c.key] = append(series[c.key], MonthlyPoint{
			Year:     c.year,
			Month:    c.month,
			Period:   PeriodLabel(c.year, c.month),
			Date:     CanonicalDate(c.year, c.month),
			Quantity: q,
		})
	}
	for key := range series {
		SortMonthly(series[key])
	}

	return &Panel{Scope: scope, KeyColumn: keyColumn, Series: series}
}

// Keys returns all entity keys in deterministic order
func (p *Panel) Keys() []string {
	keys := make([]string, 0, len(p.Series))
	for k := range p.Series {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// TopKeys returns up to k entity keys ordered by total historical
// volume, largest first. Ties break on the key for reproducibility.
func (p *Panel) TopKeys(k int) []string {
	type total struct {
		key string
		sum float64
	}
	totals := make([]total, 0, len(p.Series))
	for key, points := range p.Series {
		sum := 0.0
		for _, pt := range points {
			sum += pt.Quantity
		}
		totals = append(totals, total{key, sum})
	}
	sort.Slice(totals, func(i, j int) bool {
		if totals[i].sum != totals[j].sum {
			return totals[i].sum > totals[j].sum
		}
		return totals[i].key < totals[j].key
	})

	if k > len(totals) {
		k = len(totals)
	}
	keys := make([]string, k)
	for i := 0; i < k; i++ {
		keys[i] = totals[i].key
	}
	return keys
}
