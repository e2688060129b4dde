// Package catalog defines the fixed mapping from logical indicator names to
// BLS series identifiers. The catalog is loaded once at startup and immutable
// for the lifetime of a run, keeping the updater's merge logic decoupled from
// the remote schema.
package catalog

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Entry maps one logical series name to its remote identity and display label.
type Entry struct {
	Name  string `yaml:"name"`  // logical name stored in the dataset, e.g. "unemployment_rate"
	ID    string `yaml:"id"`    // BLS series ID, e.g. "LNS14000000"
	Label string `yaml:"label"` // human-readable label for the dashboard
}

// Catalog is an immutable set of series entries.
type Catalog struct {
	entries []Entry
	byName  map[string]Entry
}

// New builds a catalog, rejecting empty or duplicate names and IDs.
func New(entries []Entry) (*Catalog, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("catalog has no series")
	}

	byName := make(map[string]Entry, len(entries))
	byID := make(map[string]bool, len(entries))
	for _, e := range entries {
		if e.Name == "" || e.ID == "" {
			return nil, fmt.Errorf("catalog entry missing name or id: %+v", e)
		}
		if _, dup := byName[e.Name]; dup {
			return nil, fmt.Errorf("duplicate catalog series name %q", e.Name)
		}
		if byID[e.ID] {
			return nil, fmt.Errorf("duplicate catalog series id %q", e.ID)
		}
		byName[e.Name] = e
		byID[e.ID] = true
	}

	copied := make([]Entry, len(entries))
	copy(copied, entries)
	return &Catalog{entries: copied, byName: byName}, nil
}

// Default returns the built-in labor statistics catalog.
func Default() *Catalog {
	c, err := New([]Entry{
		{Name: "nonfarm_employment", ID: "CES0000000001", Label: "Nonfarm Employment (Thousands)"},
		{Name: "unemployment_rate", ID: "LNS14000000", Label: "Unemployment Rate (%)"},
		{Name: "labor_force_participation", ID: "LNS11300000", Label: "Labor Force Participation Rate (%)"},
		{Name: "avg_hourly_earnings", ID: "CES0500000003", Label: "Average Hourly Earnings ($)"},
		{Name: "avg_weekly_hours", ID: "CES0500000002", Label: "Average Weekly Hours"},
	})
	if err != nil {
		panic(err) // built-in catalog is validated by tests
	}
	return c
}

// catalogFile is the YAML document shape for LoadFile.
type catalogFile struct {
	Series []Entry `yaml:"series"`
}

// LoadFile reads a catalog override from a YAML file.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog file: %w", err)
	}

	var doc catalogFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse catalog yaml: %w", err)
	}
	return New(doc.Series)
}

// Entries returns the catalog entries in declaration order.
func (c *Catalog) Entries() []Entry {
	out := make([]Entry, len(c.entries))
	copy(out, c.entries)
	return out
}

// Lookup finds an entry by logical name.
func (c *Catalog) Lookup(name string) (Entry, bool) {
	e, ok := c.byName[name]
	return e, ok
}

// Names returns all logical series names, sorted.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.entries))
	for _, e := range c.entries {
		names = append(names, e.Name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of series.
func (c *Catalog) Len() int {
	return len(c.entries)
}
