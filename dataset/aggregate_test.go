package dataset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func line(year, month int, q float64) SalesLine {
	return SalesLine{
		Row:      Row{Year: year, Month: month, Period: PeriodLabel(year, month), Date: CanonicalDate(year, month)},
		Quantity: q,
	}
}

func TestAggregateMonthlySums(t *testing.T) {
	points, skipped := AggregateMonthly([]SalesLine{
		line(2024, 1, 10),
		line(2024, 1, 5),
		line(2024, 2, 7),
		{Quantity: 99}, // no time fields
	})
	assert.Equal(t, 1, skipped)
	require.Len(t, points, 2)
	assert.Equal(t, 15.0, points[0].Quantity)
	assert.Equal(t, "2024-01", points[0].Period)
	assert.Equal(t, 7.0, points[1].Quantity)
}

func TestCalendarRangeMonths(t *testing.T) {
	cr := CalendarRange{StartYear: 2023, StartMonth: 11, EndYear: 2024, EndMonth: 2}
	months := cr.Months()
	assert.Equal(t, [][2]int{{2023, 11}, {2023, 12}, {2024, 1}, {2024, 2}}, months)
}

func TestReindexCalendarInterpolatesInteriorGap(t *testing.T) {
	cr := CalendarRange{StartYear: 2024, StartMonth: 1, EndYear: 2024, EndMonth: 4}
	points := ReindexCalendar([]MonthlyPoint{
		{Year: 2024, Month: 1, Quantity: 100},
		{Year: 2024, Month: 4, Quantity: 400},
	}, cr, 500)

	require.Len(t, points, 4)
	assert.Equal(t, 100.0, points[0].Quantity)
	assert.InDelta(t, 200.0, points[1].Quantity, 1e-9)
	assert.InDelta(t, 300.0, points[2].Quantity, 1e-9)
	assert.Equal(t, 400.0, points[3].Quantity)
}

func TestReindexCalendarEdgeGapsCopyNearest(t *testing.T) {
	cr := CalendarRange{StartYear: 2024, StartMonth: 1, EndYear: 2024, EndMonth: 5}
	points := ReindexCalendar([]MonthlyPoint{
		{Year: 2024, Month: 3, Quantity: 300},
	}, cr, 500)

	require.Len(t, points, 5)
	assert.Equal(t, 300.0, points[0].Quantity)
	assert.Equal(t, 300.0, points[1].Quantity)
	assert.Equal(t, 300.0, points[3].Quantity)
	assert.Equal(t, 300.0, points[4].Quantity)
}

func TestReindexCalendarEmptyTakesFallback(t *testing.T) {
	cr := CalendarRange{StartYear: 2024, StartMonth: 1, EndYear: 2024, EndMonth: 3}
	points := ReindexCalendar(nil, cr, 500)

	require.Len(t, points, 3)
	for _, p := range points {
		assert.Equal(t, 500.0, p.Quantity)
	}
}

func TestReindexCalendarIsTemporallyComplete(t *testing.T) {
	// Whatever the input coverage, the output is one point per month
	// of the range, in order, with no gaps.
	cr := CalendarRange{StartYear: 2019, StartMonth: 1, EndYear: 2024, EndMonth: 12}
	points := ReindexCalendar([]MonthlyPoint{
		{Year: 2019, Month: 6, Quantity: 50},
		{Year: 2022, Month: 3, Quantity: 80},
	}, cr, 500)

	require.Len(t, points, 72)
	y, m := 2019, 1
	for _, p := range points {
		assert.Equal(t, y, p.Year)
		assert.Equal(t, m, p.Month)
		assert.False(t, p.Quantity != p.Quantity, "NaN at %s", p.Period)
		y, m = NextMonth(y, m)
	}
}
