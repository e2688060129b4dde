// Package updater orchestrates the fetch-merge-persist cycle that keeps the
// labor dataset current.
package updater

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/couchcryptid/labor-stats-etl/internal/catalog"
	"github.com/couchcryptid/labor-stats-etl/internal/domain"
	"github.com/couchcryptid/labor-stats-etl/internal/observability"
)

// SeriesSource fetches observations for one catalog series over an inclusive
// year window.
type SeriesSource interface {
	FetchObservations(ctx context.Context, entry catalog.Entry, startYear, endYear int) ([]domain.Observation, error)
}

// DatasetStore loads and persists the dataset.
type DatasetStore interface {
	Load() (*domain.Dataset, error)
	Save(ds *domain.Dataset) error
}

// Announcer publishes newly appended observations. Announce failures are
// logged and counted but never fail a run; the dataset is already persisted.
type Announcer interface {
	Announce(ctx context.Context, obs []domain.Observation) error
}

// Result summarizes one update run.
type Result struct {
	Appended     int
	Revised      int
	DatasetRows  int
	FailedSeries []string
}

// Updater runs the update cycle: load the dataset, fetch each catalog series
// from its last stored year forward, merge, and persist when anything changed.
//
// A failed series fetch is recoverable: the run continues with the remaining
// series and the dataset keeps its prior rows for the failed one. Load and
// save failures are fatal to the run.
type Updater struct {
	source    SeriesSource
	store     DatasetStore
	announcer Announcer // nil when announcing is disabled
	catalog   *catalog.Catalog

	startYear int
	mode      domain.MergeMode

	metrics *observability.Metrics
	logger  *slog.Logger

	ready atomic.Bool
}

// New creates an updater. announcer may be nil.
func New(
	source SeriesSource,
	store DatasetStore,
	announcer Announcer,
	cat *catalog.Catalog,
	startYear int,
	mode domain.MergeMode,
	metrics *observability.Metrics,
	logger *slog.Logger,
) *Updater {
	return &Updater{
		source:    source,
		store:     store,
		announcer: announcer,
		catalog:   cat,
		startYear: startYear,
		mode:      mode,
		metrics:   metrics,
		logger:    logger,
	}
}

// Ready reports whether at least one run has completed successfully.
func (u *Updater) Ready() bool {
	return u.ready.Load()
}

// CheckReadiness implements the HTTP readiness probe: the service advertises
// itself only once it has completed an update run and has a dataset to serve.
func (u *Updater) CheckReadiness(_ context.Context) error {
	if !u.ready.Load() {
		return errors.New("no successful update run yet")
	}
	return nil
}

// Run executes one complete update cycle.
func (u *Updater) Run(ctx context.Context) (Result, error) {
	u.metrics.UpdateRuns.Inc()
	u.metrics.UpdaterRunning.Set(1)
	defer u.metrics.UpdaterRunning.Set(0)
	timer := u.metrics.UpdateDuration
	start := domain.Now()

	result, err := u.run(ctx)
	timer.Observe(domain.Now().Sub(start).Seconds())
	if err != nil {
		u.metrics.UpdateFailures.Inc()
		return Result{}, err
	}

	u.metrics.RowsAppended.Add(float64(result.Appended))
	u.metrics.RowsRevised.Add(float64(result.Revised))
	u.metrics.DatasetRows.Set(float64(result.DatasetRows))
	u.metrics.LastUpdate.Set(float64(domain.Now().Unix()))
	u.ready.Store(true)

	u.logger.Info("update run complete",
		"appended", result.Appended,
		"revised", result.Revised,
		"dataset_rows", result.DatasetRows,
		"failed_series", result.FailedSeries,
	)
	return result, nil
}

func (u *Updater) run(ctx context.Context) (Result, error) {
	ds, err := u.store.Load()
	if err != nil {
		return Result{}, fmt.Errorf("load dataset: %w", err)
	}

	endYear := domain.CurrentPeriod().Year

	var result Result
	var appended []domain.Observation
	for _, entry := range u.catalog.Entries() {
		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}

		startYear := u.startYear
		// Refetch the latest stored year too: late months of that year may
		// not have been published when it was last fetched.
		if latest, ok := ds.LatestPeriod(entry.Name); ok {
			startYear = latest.Year
		}
		if startYear > endYear {
			startYear = endYear
		}

		obs, err := u.source.FetchObservations(ctx, entry, startYear, endYear)
		if err != nil {
			u.metrics.SeriesFetches.WithLabelValues(entry.Name, "error").Inc()
			u.logger.Warn("series fetch failed, skipping",
				"series", entry.Name, "series_id", entry.ID, "error", err)
			result.FailedSeries = append(result.FailedSeries, entry.Name)
			continue
		}
		outcome := "success"
		if len(obs) == 0 {
			outcome = "empty"
		}
		u.metrics.SeriesFetches.WithLabelValues(entry.Name, outcome).Inc()

		merged := ds.Merge(obs, u.mode)
		appended = append(appended, merged.Appended...)
		result.Revised += merged.Revised
	}

	result.Appended = len(appended)
	result.DatasetRows = ds.Len()

	if result.Appended > 0 || result.Revised > 0 {
		if err := u.store.Save(ds); err != nil {
			return Result{}, fmt.Errorf("persist dataset: %w", err)
		}
	}

	u.announce(ctx, appended)
	return result, nil
}

func (u *Updater) announce(ctx context.Context, appended []domain.Observation) {
	if u.announcer == nil || len(appended) == 0 {
		return
	}
	if err := u.announcer.Announce(ctx, appended); err != nil {
		u.metrics.AnnounceErrors.Inc()
		u.logger.Warn("announce failed", "observations", len(appended), "error", err)
		return
	}
	u.metrics.ObservationsAnnounced.Add(float64(len(appended)))
}
