package domain

import (
	"fmt"
	"sort"
)

// MergeMode controls how observations for already-stored keys are handled.
type MergeMode string

const (
	// MergeAppendOnly adds rows for new (series, period) keys and leaves
	// existing rows untouched, even when the source republished a value.
	MergeAppendOnly MergeMode = "append"

	// MergeRevise additionally updates the stored value in place when the
	// source reports a different figure for an existing key.
	MergeRevise MergeMode = "revise"
)

// ParseMergeMode validates a merge mode string from configuration.
func ParseMergeMode(s string) (MergeMode, error) {
	switch MergeMode(s) {
	case MergeAppendOnly, MergeRevise:
		return MergeMode(s), nil
	default:
		return "", fmt.Errorf("invalid merge mode %q (want %q or %q)", s, MergeAppendOnly, MergeRevise)
	}
}

// MergeResult summarizes one merge pass.
type MergeResult struct {
	Appended []Observation // rows added for previously unseen keys
	Revised  int           // existing rows whose value changed (revise mode only)
}

// Dataset is a table of observations keyed by (series, period).
// The key is unique: no two rows represent the same series/month pair.
type Dataset struct {
	rows  []Observation
	index map[string]int // key -> position in rows
}

// NewDataset returns an empty dataset.
func NewDataset() *Dataset {
	return &Dataset{index: make(map[string]int)}
}

// FromRows builds a dataset from persisted rows, rejecting duplicate keys so
// a corrupted file is caught at load time instead of silently compounding.
func FromRows(rows []Observation) (*Dataset, error) {
	d := NewDataset()
	for _, row := range rows {
		key := row.Key()
		if _, exists := d.index[key]; exists {
			return nil, fmt.Errorf("duplicate dataset row for %s", key)
		}
		d.index[key] = len(d.rows)
		d.rows = append(d.rows, row)
	}
	return d, nil
}

// Len returns the number of rows.
func (d *Dataset) Len() int {
	return len(d.rows)
}

// Rows returns a copy of all rows sorted by period, then series name.
func (d *Dataset) Rows() []Observation {
	out := make([]Observation, len(d.rows))
	copy(out, d.rows)
	sortObservations(out)
	return out
}

// Merge folds incoming observations into the dataset. New keys are always
// appended; existing keys are skipped in append-only mode and value-updated
// in revise mode. Merging the same observations twice is a no-op, which makes
// an updater re-run against unchanged remote state add zero rows.
func (d *Dataset) Merge(obs []Observation, mode MergeMode) MergeResult {
	var result MergeResult
	for _, o := range obs {
		key := o.Key()
		pos, exists := d.index[key]
		if !exists {
			d.index[key] = len(d.rows)
			d.rows = append(d.rows, o)
			result.Appended = append(result.Appended, o)
			continue
		}
		if mode == MergeRevise && !valuesEqual(d.rows[pos].Value, o.Value) {
			d.rows[pos].Value = o.Value
			result.Revised++
		}
	}
	return result
}

// LatestPeriod returns the most recent period stored for a series,
// or ok=false when the series has no rows yet.
func (d *Dataset) LatestPeriod(series string) (Period, bool) {
	var latest Period
	found := false
	for _, row := range d.rows {
		if row.Series != series {
			continue
		}
		if !found || latest.Before(row.Period) {
			latest = row.Period
			found = true
		}
	}
	return latest, found
}

// Filter returns rows matching the series subset and inclusive year range,
// sorted by period then series. A nil or empty series slice selects all
// series; toYear <= 0 means unbounded upward.
func (d *Dataset) Filter(series []string, fromYear, toYear int) []Observation {
	var wanted map[string]bool
	if len(series) > 0 {
		wanted = make(map[string]bool, len(series))
		for _, s := range series {
			wanted[s] = true
		}
	}

	var out []Observation
	for _, row := range d.rows {
		if wanted != nil && !wanted[row.Series] {
			continue
		}
		if row.Period.Year < fromYear {
			continue
		}
		if toYear > 0 && row.Period.Year > toYear {
			continue
		}
		out = append(out, row)
	}
	sortObservations(out)
	return out
}

// LatestBySeries returns the most recent observation per series, used for
// the dashboard's headline figures.
func (d *Dataset) LatestBySeries() map[string]Observation {
	latest := make(map[string]Observation)
	for _, row := range d.rows {
		cur, ok := latest[row.Series]
		if !ok || cur.Period.Before(row.Period) {
			latest[row.Series] = row
		}
	}
	return latest
}

func sortObservations(obs []Observation) {
	sort.Slice(obs, func(i, j int) bool {
		if obs[i].Period != obs[j].Period {
			return obs[i].Period.Before(obs[j].Period)
		}
		return obs[i].Series < obs[j].Series
	})
}

func valuesEqual(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
