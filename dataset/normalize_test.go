package dataset

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePeriod(t *testing.T) {
	year, month, ok := ParsePeriod("2024-03")
	require.True(t, ok)
	assert.Equal(t, 2024, year)
	assert.Equal(t, 3, month)

	for _, bad := range []string{"", "2024", "2024-13", "2024-00", "24-03", "2024/03", "abcd-ef"} {
		_, _, ok := ParsePeriod(bad)
		assert.False(t, ok, "label %q should not parse", bad)
	}
}

func TestPeriodLabelRoundTrip(t *testing.T) {
	label := PeriodLabel(2019, 7)
	assert.Equal(t, "2019-07", label)

	year, month, ok := ParsePeriod(label)
	require.True(t, ok)
	assert.Equal(t, 2019, year)
	assert.Equal(t, 7, month)
}

func TestNextMonthRollover(t *testing.T) {
	y, m := NextMonth(2024, 12)
	assert.Equal(t, 2025, y)
	assert.Equal(t, 1, m)

	y, m = NextMonth(2024, 5)
	assert.Equal(t, 2024, y)
	assert.Equal(t, 6, m)
}

func TestNormalizeTimeTimestampWins(t *testing.T) {
	// A timestamp contradicting the period label: the timestamp is
	// authoritative and every derived field follows it.
	r := Row{
		Date:   time.Date(2023, 11, 15, 10, 30, 0, 0, time.FixedZone("X", -5*3600)),
		Year:   2020,
		Month:  1,
		Period: "2020-01",
	}
	require.True(t, NormalizeTime(&r))
	assert.Equal(t, 2023, r.Year)
	assert.Equal(t, 11, r.Month)
	assert.Equal(t, "2023-11", r.Period)
	assert.Equal(t, time.UTC, r.Date.Location())
}

func TestNormalizeTimeFromPeriod(t *testing.T) {
	r := Row{Period: "2022-04"}
	require.True(t, NormalizeTime(&r))
	assert.Equal(t, 2022, r.Year)
	assert.Equal(t, 4, r.Month)
	assert.Equal(t, CanonicalDate(2022, 4), r.Date)
}

func TestNormalizeTimeFromYearMonth(t *testing.T) {
	r := Row{Year: 2021, Month: 9}
	require.True(t, NormalizeTime(&r))
	assert.Equal(t, "2021-09", r.Period)
	assert.Equal(t, CanonicalDate(2021, 9), r.Date)
}

func TestNormalizeTimeUnresolvable(t *testing.T) {
	r := Row{Year: 2021, Month: 13, Period: "garbage"}
	require.False(t, NormalizeTime(&r))
	assert.Zero(t, r.Year)
	assert.Zero(t, r.Month)
	assert.Empty(t, r.Period)
	assert.True(t, r.Date.IsZero())
}

func TestNormalizeSalesDropCount(t *testing.T) {
	lines := []SalesLine{
		{Row: Row{Period: "2024-01"}, Quantity: 5},
		{Row: Row{}, Quantity: 3},
		{Row: Row{Year: 2024, Month: 2}, Quantity: 7},
	}
	kept, dropped := NormalizeSales(lines)
	assert.Len(t, kept, 2)
	assert.Equal(t, 1, dropped)
	assert.Equal(t, "2024-01", kept[0].Period)
	assert.Equal(t, "2024-02", kept[1].Period)
}
