package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Period identifies the calendar month an observation applies to.
type Period struct {
	Year  int
	Month time.Month
}

// PeriodOf returns the period containing t (evaluated in UTC).
func PeriodOf(t time.Time) Period {
	u := t.UTC()
	return Period{Year: u.Year(), Month: u.Month()}
}

// ParsePeriod parses the canonical "YYYY-MM" form produced by String.
func ParsePeriod(s string) (Period, error) {
	parts := strings.SplitN(s, "-", 2)
	if len(parts) != 2 {
		return Period{}, fmt.Errorf("parse period %q: want YYYY-MM", s)
	}
	year, errY := strconv.Atoi(parts[0])
	month, errM := strconv.Atoi(parts[1])
	if errY != nil || errM != nil || year < 1 || month < 1 || month > 12 {
		return Period{}, fmt.Errorf("parse period %q: want YYYY-MM", s)
	}
	return Period{Year: year, Month: time.Month(month)}, nil
}

// Date returns the period normalized to the first of the month, midnight UTC.
func (p Period) Date() time.Time {
	return time.Date(p.Year, p.Month, 1, 0, 0, 0, 0, time.UTC)
}

// String formats the period as "YYYY-MM".
func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, int(p.Month))
}

// IsZero reports whether the period is unset.
func (p Period) IsZero() bool {
	return p.Year == 0 && p.Month == 0
}

// Before reports whether p is an earlier month than q.
func (p Period) Before(q Period) bool {
	if p.Year != q.Year {
		return p.Year < q.Year
	}
	return p.Month < q.Month
}

// Observation is a single (series, period, value) data point.
// Series is the logical catalog name, not the raw BLS series ID.
// A nil Value records a suppressed or not-yet-released figure.
type Observation struct {
	Series string
	Period Period
	Value  *float64
}

// Key returns the composite dataset key.
func (o Observation) Key() string {
	return o.Series + "|" + o.Period.String()
}

// MarshalJSON emits the wire form used by the viewer API and the Kafka
// announcer: the period as a first-of-month date, a null for absent values.
func (o Observation) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Date   string   `json:"date"`
		Series string   `json:"series"`
		Value  *float64 `json:"value"`
	}{
		Date:   o.Period.Date().Format("2006-01-02"),
		Series: o.Series,
		Value:  o.Value,
	})
}

// Float64 is a convenience for building observation values in call sites and tests.
func Float64(v float64) *float64 {
	return &v
}
