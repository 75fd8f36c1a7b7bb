package dataset

import (
	"math"
	"sort"
)

// CalendarRange is an inclusive span of calendar months
type CalendarRange struct {
	StartYear  int
	StartMonth int
	EndYear    int
	EndMonth   int
}

// Months expands the range into ordered (year, month) pairs
func (cr CalendarRange) Months() [][2]int {
	var months [][2]int
	y, m := cr.StartYear, cr.StartMonth
	for {
		months = append(months, [2]int{y, m})
		if y == cr.EndYear && m == cr.EndMonth {
			break
		}
		y, m = NextMonth(y, m)
	}
	return months
}

// AggregateMonthly collapses normalized sales lines into one point per
// (year, month), summing the quantity measure. Rows without resolved
// time fields are skipped and counted, never silently folded in.
func AggregateMonthly(lines []SalesLine) ([]MonthlyPoint, int) {
	sums := make(map[[2]int]float64)
	skipped := 0
	for i := range lines {
		if !lines[i].HasTime() {
			skipped++
			continue
		}
		sums[[2]int{lines[i].Year, lines[i].Month}] += lines[i].Quantity
	}

	points := make([]MonthlyPoint, 0, len(sums))
	for ym, q := range sums {
		points = append(points, MonthlyPoint{
			Year:     ym[0],
			Month:    ym[1],
			Period:   PeriodLabel(ym[0], ym[1]),
			Date:     CanonicalDate(ym[0], ym[1]),
			Quantity: q,
		})
	}
	SortMonthly(points)
	return points, skipped
}

// SortMonthly orders points chronologically
func SortMonthly(points []MonthlyPoint) {
	sort.Slice(points, func(i, j int) bool {
		if points[i].Year != points[j].Year {
			return points[i].Year < points[j].Year
		}
		return points[i].Month < points[j].Month
	})
}

// ReindexCalendar reindexes aggregated points against the full
// expected calendar range. Missing months become gaps which are then
// resolved by linear interpolation between neighboring values; edge
// gaps copy the nearest observed value, and months with no neighbors
// at all take the constant fallback. The result is guaranteed to hold
// exactly one point per month of the range with no gaps, so lag and
// trend computations downstream never see holes.
func ReindexCalendar(points []MonthlyPoint, cr CalendarRange, fallback float64) []MonthlyPoint {
	observed := make(map[[2]int]float64, len(points))
	for _, p := range points {
		observed[[2]int{p.Year, p.Month}] = p.Quantity
	}

	months := cr.Months()
	values := make([]float64, len(months))
	for i, ym := range months {
		if q, ok := observed[ym]; ok {
			values[i] = q
		} else {
			values[i] = math.NaN()
		}
	}

	fillGaps(values, fallback)

	full := make([]MonthlyPoint, len(months))
	for i, ym := range months {
		full[i] = MonthlyPoint{
			Year:     ym[0],
			Month:    ym[1],
			Period:   PeriodLabel(ym[0], ym[1]),
			Date:     CanonicalDate(ym[0], ym[1]),
			Quantity: values[i],
		}
	}
	return full
}

// fillGaps resolves NaN runs in place. Interior runs are linearly
// interpolated, leading/trailing runs copy the nearest value, and a
// fully empty series takes the fallback constant.
func fillGaps(values []float64, fallback float64) {
	n := len(values)
	i := 0
	for i < n {
		if !math.IsNaN(values[i]) {
			i++
			continue
		}
		start := i
		for i < n && math.IsNaN(values[i]) {
			i++
		}
		end := i // first index after the gap, n when trailing

		switch {
		case start == 0 && end == n:
			for j := range values {
				values[j] = fallback
			}
		case start == 0:
			for j := start; j < end; j++ {
				values[j] = values[end]
			}
		case end == n:
			for j := start; j < end; j++ {
				values[j] = values[start-1]
			}
		default:
			left, right := values[start-1], values[end]
			span := float64(end - start + 1)
			for j := start; j < end; j++ {
				frac := float64(j-start+1) / span
				values[j] = left + (right-left)*frac
			}
		}
	}
}

// Quantities extracts the quantity column in order
func Quantities(points []MonthlyPoint) []float64 {
	qs := make([]float64, len(points))
	for i, p := range points {
		qs[i] = p.Quantity
	}
	return qs
}
