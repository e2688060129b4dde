// Package domain models U.S. Bureau of Labor Statistics (BLS) monthly time series.
//
// # Data Source
//
// Observations come from the BLS Public Data API v2 timeseries endpoint,
// https://api.bls.gov/publicAPI/v2/timeseries/data/. Each request names one
// series ID and a start/end year window; the response carries one data point
// per period, newest first. An API registration key is optional for
// low-volume use.
//
// # BLS Data Conventions
//
// Period encoding:
//
//	"M01".."M12" are calendar months; "M13" is the annual average and is
//	skipped during normalization. Quarterly ("Q01".."Q05") and semiannual
//	("S01".."S03") periods exist for other surveys and are ignored here.
//	A period is canonicalized to a (year, month) pair; its Date() is the
//	first of the month at midnight UTC, matching the dataset's date column.
//
// Values:
//
//	Values arrive as decimal strings ("3.9", "158942"). The BLS sentinel "-"
//	marks a suppressed or not-yet-released value; such observations are kept
//	with an absent value rather than dropped or coerced to zero, so the
//	dataset records that the period exists but has no published figure.
//
// Revisions:
//
//	BLS republishes revised figures for recent months (footnote code "P"
//	marks preliminary data). The dataset merge is append-only by default:
//	a (series, period) key already present is never overwritten. The
//	"revise" merge mode updates a stored value in place when the source
//	publishes a different figure for an existing key; the key set itself
//	only ever grows.
//
// # Dataset Invariants
//
//   - The composite key (series, period) is unique across all rows.
//   - Merging is idempotent: re-merging the same observations changes nothing.
//   - Rows are never removed; append-only mode never mutates them either.
package domain
