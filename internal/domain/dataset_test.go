package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func obs(series string, year int, month time.Month, value *float64) Observation {
	return Observation{Series: series, Period: Period{Year: year, Month: month}, Value: value}
}

func TestFromRows(t *testing.T) {
	t.Run("accepts unique keys", func(t *testing.T) {
		d, err := FromRows([]Observation{
			obs("unemployment_rate", 2020, time.January, Float64(3.6)),
			obs("unemployment_rate", 2020, time.February, Float64(3.5)),
			obs("nonfarm_employment", 2020, time.January, Float64(151786)),
		})
		require.NoError(t, err)
		assert.Equal(t, 3, d.Len())
	})

	t.Run("rejects duplicate keys", func(t *testing.T) {
		_, err := FromRows([]Observation{
			obs("unemployment_rate", 2020, time.January, Float64(3.6)),
			obs("unemployment_rate", 2020, time.January, Float64(3.7)),
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unemployment_rate|2020-01")
	})
}

func TestMerge_AppendOnly(t *testing.T) {
	d := NewDataset()

	first := []Observation{
		obs("unemployment_rate", 2020, time.January, Float64(3.6)),
		obs("unemployment_rate", 2020, time.February, Float64(3.5)),
	}
	result := d.Merge(first, MergeAppendOnly)
	assert.Len(t, result.Appended, 2)
	assert.Zero(t, result.Revised)
	assert.Equal(t, 2, d.Len())

	t.Run("existing keys are never overwritten", func(t *testing.T) {
		revised := []Observation{obs("unemployment_rate", 2020, time.January, Float64(9.9))}
		result := d.Merge(revised, MergeAppendOnly)
		assert.Empty(t, result.Appended)
		assert.Zero(t, result.Revised)

		rows := d.Rows()
		require.NotNil(t, rows[0].Value)
		assert.Equal(t, 3.6, *rows[0].Value)
	})

	t.Run("idempotent re-merge adds zero rows", func(t *testing.T) {
		result := d.Merge(first, MergeAppendOnly)
		assert.Empty(t, result.Appended)
		assert.Zero(t, result.Revised)
		assert.Equal(t, 2, d.Len())
	})
}

func TestMerge_Revise(t *testing.T) {
	d := NewDataset()
	d.Merge([]Observation{obs("avg_hourly_earnings", 2024, time.March, Float64(34.69))}, MergeAppendOnly)

	t.Run("changed value is updated in place", func(t *testing.T) {
		result := d.Merge([]Observation{obs("avg_hourly_earnings", 2024, time.March, Float64(34.72))}, MergeRevise)
		assert.Empty(t, result.Appended)
		assert.Equal(t, 1, result.Revised)
		assert.Equal(t, 1, d.Len())

		rows := d.Rows()
		assert.Equal(t, 34.72, *rows[0].Value)
	})

	t.Run("identical value counts as no revision", func(t *testing.T) {
		result := d.Merge([]Observation{obs("avg_hourly_earnings", 2024, time.March, Float64(34.72))}, MergeRevise)
		assert.Zero(t, result.Revised)
	})

	t.Run("new keys still append", func(t *testing.T) {
		result := d.Merge([]Observation{obs("avg_hourly_earnings", 2024, time.April, Float64(34.81))}, MergeRevise)
		assert.Len(t, result.Appended, 1)
		assert.Equal(t, 2, d.Len())
	})
}

func TestMerge_AbsentValueKept(t *testing.T) {
	d := NewDataset()
	result := d.Merge([]Observation{obs("avg_weekly_hours", 2025, time.January, nil)}, MergeAppendOnly)

	require.Len(t, result.Appended, 1)
	rows := d.Rows()
	require.Equal(t, 1, len(rows))
	assert.Nil(t, rows[0].Value, "suppressed value must be stored as absent, not zero")
}

func TestMerge_UniquenessInvariant(t *testing.T) {
	d := NewDataset()
	in := []Observation{
		obs("unemployment_rate", 2020, time.January, Float64(3.6)),
		obs("unemployment_rate", 2020, time.January, Float64(3.6)), // duplicate in one batch
		obs("nonfarm_employment", 2020, time.January, Float64(151786)),
	}
	d.Merge(in, MergeAppendOnly)

	seen := map[string]bool{}
	for _, row := range d.Rows() {
		assert.False(t, seen[row.Key()], "duplicate key %s", row.Key())
		seen[row.Key()] = true
	}
	assert.Equal(t, 2, d.Len())
}

func TestLatestPeriod(t *testing.T) {
	d := NewDataset()
	d.Merge([]Observation{
		obs("unemployment_rate", 2020, time.December, Float64(6.7)),
		obs("unemployment_rate", 2021, time.February, Float64(6.2)),
		obs("unemployment_rate", 2021, time.January, Float64(6.3)),
	}, MergeAppendOnly)

	latest, ok := d.LatestPeriod("unemployment_rate")
	require.True(t, ok)
	assert.Equal(t, Period{Year: 2021, Month: time.February}, latest)

	_, ok = d.LatestPeriod("labor_force_participation")
	assert.False(t, ok)
}

func TestFilter(t *testing.T) {
	d := NewDataset()
	d.Merge([]Observation{
		obs("labor_force_participation", 2020, time.June, Float64(61.5)),
		obs("labor_force_participation", 2021, time.June, Float64(61.6)),
		obs("labor_force_participation", 2022, time.June, Float64(62.2)),
		obs("labor_force_participation", 2023, time.June, Float64(62.6)),
		obs("unemployment_rate", 2021, time.June, Float64(5.9)),
	}, MergeAppendOnly)

	t.Run("series subset and year range", func(t *testing.T) {
		got := d.Filter([]string{"labor_force_participation"}, 2021, 2022)
		require.Len(t, got, 2)
		for _, row := range got {
			assert.Equal(t, "labor_force_participation", row.Series)
			assert.GreaterOrEqual(t, row.Period.Year, 2021)
			assert.LessOrEqual(t, row.Period.Year, 2022)
		}
	})

	t.Run("empty series selects all", func(t *testing.T) {
		got := d.Filter(nil, 2021, 2021)
		assert.Len(t, got, 2)
	})

	t.Run("unbounded upper year", func(t *testing.T) {
		got := d.Filter([]string{"labor_force_participation"}, 2022, 0)
		assert.Len(t, got, 2)
	})

	t.Run("sorted by period then series", func(t *testing.T) {
		got := d.Filter(nil, 0, 0)
		for i := 1; i < len(got); i++ {
			prev, cur := got[i-1], got[i]
			ordered := prev.Period.Before(cur.Period) ||
				(prev.Period == cur.Period && prev.Series < cur.Series)
			assert.True(t, ordered, "rows out of order at %d", i)
		}
	})
}

func TestLatestBySeries(t *testing.T) {
	d := NewDataset()
	d.Merge([]Observation{
		obs("unemployment_rate", 2024, time.January, Float64(3.7)),
		obs("unemployment_rate", 2024, time.February, Float64(3.9)),
		obs("nonfarm_employment", 2024, time.January, Float64(157733)),
	}, MergeAppendOnly)

	latest := d.LatestBySeries()
	require.Len(t, latest, 2)
	assert.Equal(t, Period{Year: 2024, Month: time.February}, latest["unemployment_rate"].Period)
	assert.Equal(t, Period{Year: 2024, Month: time.January}, latest["nonfarm_employment"].Period)
}

func TestParseMergeMode(t *testing.T) {
	for _, valid := range []string{"append", "revise"} {
		mode, err := ParseMergeMode(valid)
		require.NoError(t, err)
		assert.Equal(t, MergeMode(valid), mode)
	}
	_, err := ParseMergeMode("upsert")
	assert.Error(t, err)
}
