// Package csvstore persists the labor dataset as a flat CSV file.
//
// The file stays human-inspectable: a date,series,value header followed by
// one row per observation, sorted by date then series. An absent value is an
// empty field. Replacement is atomic (write-to-temp then rename) so readers
// never observe a half-written dataset.
package csvstore

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/couchcryptid/labor-stats-etl/internal/domain"
)

const dateLayout = "2006-01-02"

var header = []string{"date", "series", "value"}

// Store reads and writes the dataset file at a fixed path.
type Store struct {
	path string
}

// New creates a store for the given dataset path.
func New(path string) *Store {
	return &Store{path: path}
}

// Path returns the dataset file location.
func (s *Store) Path() string {
	return s.path
}

// Load reads the persisted dataset. A missing file yields an empty dataset,
// which is the normal first-run state; any other failure is an error.
func (s *Store) Load() (*domain.Dataset, error) {
	f, err := os.Open(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return domain.NewDataset(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read dataset: %w", err)
	}
	if len(records) == 0 {
		return domain.NewDataset(), nil
	}

	if len(records[0]) != 3 || records[0][0] != header[0] || records[0][1] != header[1] || records[0][2] != header[2] {
		return nil, fmt.Errorf("dataset %s: missing date,series,value header", s.path)
	}

	rows := make([]domain.Observation, 0, len(records)-1)
	for i, rec := range records[1:] {
		row, err := parseRow(rec)
		if err != nil {
			return nil, fmt.Errorf("dataset %s row %d: %w", s.path, i+2, err)
		}
		rows = append(rows, row)
	}

	ds, err := domain.FromRows(rows)
	if err != nil {
		return nil, fmt.Errorf("dataset %s: %w", s.path, err)
	}
	return ds, nil
}

// Save atomically replaces the dataset file. The new content is written to a
// temp file in the same directory, synced, then renamed over the old file, so
// a crash mid-write leaves the previous dataset intact.
func (s *Store) Save(ds *domain.Dataset) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create dataset directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp dataset: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op after successful rename

	if err := writeRows(tmp, ds.Rows()); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp dataset: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp dataset: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp dataset: %w", err)
	}

	if err := os.Chmod(tmpPath, 0o644); err != nil {
		return fmt.Errorf("chmod temp dataset: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("replace dataset: %w", err)
	}
	return nil
}

func parseRow(rec []string) (domain.Observation, error) {
	if len(rec) != 3 {
		return domain.Observation{}, fmt.Errorf("want 3 fields, got %d", len(rec))
	}

	date, err := time.Parse(dateLayout, rec[0])
	if err != nil {
		return domain.Observation{}, fmt.Errorf("parse date %q: %w", rec[0], err)
	}
	if rec[1] == "" {
		return domain.Observation{}, errors.New("empty series name")
	}

	var value *float64
	if rec[2] != "" {
		v, err := strconv.ParseFloat(rec[2], 64)
		if err != nil {
			return domain.Observation{}, fmt.Errorf("parse value %q: %w", rec[2], err)
		}
		value = &v
	}

	return domain.Observation{
		Series: rec[1],
		Period: domain.PeriodOf(date),
		Value:  value,
	}, nil
}

func writeRows(f *os.File, rows []domain.Observation) error {
	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return err
	}
	for _, row := range rows {
		value := ""
		if row.Value != nil {
			value = strconv.FormatFloat(*row.Value, 'f', -1, 64)
		}
		rec := []string{row.Period.Date().Format(dateLayout), row.Series, value}
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
