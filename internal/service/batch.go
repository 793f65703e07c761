package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/Houeta/geobatch/internal/cache"
	"github.com/Houeta/geobatch/internal/geocoding"
	"github.com/Houeta/geobatch/internal/metrics"
	"github.com/Houeta/geobatch/internal/models"
)

// defaultFlushEvery bounds how much fetched work a crash can lose: the cache
// is rewritten to disk after this many new entries.
const defaultFlushEvery = 50

// Batch drives one geocoding run: cache lookup, sequential fetch of the
// misses, periodic persistence, and the final join. It exclusively owns the
// in-memory cache while running.
type Batch struct {
	log        *slog.Logger       // Logger for logging batch activities
	provider   geocoding.Provider // Geocoding provider for external lookups
	metrics    *metrics.Metrics   // Metrics for tracking run outcomes
	retry      geocoding.RetryConfig
	cachePath  string        // Path of the persisted lookup cache
	sleep      time.Duration // Pause between successive provider calls
	flushEvery int
}

// NewBatch creates a new batch driver. All collaborators and paths are
// passed in explicitly; the driver reads nothing from the environment.
func NewBatch(
	log *slog.Logger,
	provider geocoding.Provider,
	appMetrics *metrics.Metrics,
	cachePath string,
	sleep time.Duration,
) *Batch {
	return &Batch{
		log:        log,
		provider:   provider,
		metrics:    appMetrics,
		retry:      geocoding.DefaultRetryConfig(),
		cachePath:  cachePath,
		sleep:      sleep,
		flushEvery: defaultFlushEvery,
	}
}

// Run processes the records against the persisted cache: already resolved
// records are kept as-is, everything else is fetched sequentially from the
// provider. On provider quota exhaustion all progress is flushed to the
// cache and geocoding.ErrRateLimited is returned so the caller can signal
// the operator to resume later. Per-record failures are recorded in the
// cache and do not stop the run.
func (b *Batch) Run(ctx context.Context, records []models.AddressRecord) ([]models.Row, error) {
	cch := cache.Load(b.cachePath)
	b.log.InfoContext(ctx, "Cache loaded", "path", b.cachePath, "entries", cch.Len())

	hits, misses := cch.Partition(records)
	b.metrics.CacheHits.Add(float64(len(hits)))
	b.metrics.CacheMisses.Add(float64(len(misses)))
	b.log.InfoContext(ctx, "Records partitioned",
		"total", len(records), "cached", len(hits), "to_fetch", len(misses))

	if err := b.fetchMisses(ctx, cch, misses); err != nil {
		return nil, err
	}

	if err := cch.Save(b.cachePath); err != nil {
		return nil, err
	}

	return join(records, cch), nil
}

// fetchMisses resolves the missing records one at a time, strictly
// sequentially: one lookup, including all its retries, completes before the
// next begins.
func (b *Batch) fetchMisses(ctx context.Context, cch *cache.Cache, misses []models.AddressRecord) error {
	retryCfg := b.retry
	retryCfg.OnRetry = func(attempt int, wait time.Duration, err error) {
		b.log.WarnContext(ctx, "Rate limited, backing off", "attempt", attempt, "wait", wait, "error", err)
	}

	sinceFlush := 0
	for _, record := range misses {
		query := record.QueryString()

		start := time.Now()
		result, err := geocoding.GeocodeWithRetry(ctx, b.provider, retryCfg, query)
		b.metrics.RequestSeconds.Observe(time.Since(start).Seconds())

		switch {
		case geocoding.IsRateLimited(err):
			// The quota is gone for this run. Persist everything fetched so
			// far so the operator can resume later without losing work.
			b.metrics.APIErrors.Inc()
			b.log.ErrorContext(ctx, "Provider quota exhausted, aborting run", "store", record.Code)
			if saveErr := cch.Save(b.cachePath); saveErr != nil {
				b.log.ErrorContext(ctx, "Failed to save cache during abort", "error", saveErr)
			}
			return err
		case err != nil:
			b.metrics.APIErrors.Inc()
			b.metrics.LookupsProcessed.WithLabelValues("error").Inc()
			b.log.ErrorContext(ctx, "Failed to geocode", "store", record.Code, "error", err)
			cch.Put(models.CacheEntry{Query: query, Status: models.ErrorStatus(err.Error())})
		case result == nil:
			b.metrics.LookupsProcessed.WithLabelValues("not_found").Inc()
			b.log.WarnContext(ctx, "No result for address", "store", record.Code, "query", query)
			cch.Put(models.CacheEntry{Query: query, Status: models.StatusNotFound})
		default:
			b.metrics.LookupsProcessed.WithLabelValues("ok").Inc()
			b.log.DebugContext(ctx, "Geocoded address", "store", record.Code, "place_id", result.PlaceID)
			cch.Put(models.CacheEntry{
				Query:     query,
				Latitude:  &result.Latitude,
				Longitude: &result.Longitude,
				PlaceID:   result.PlaceID,
				Status:    models.StatusOK,
			})
		}

		sinceFlush++
		if b.flushEvery > 0 && sinceFlush >= b.flushEvery {
			if saveErr := cch.Save(b.cachePath); saveErr != nil {
				b.log.ErrorContext(ctx, "Failed to flush cache", "error", saveErr)
			}
			sinceFlush = 0
		}

		time.Sleep(b.sleep)
	}

	return nil
}

// join builds the final result set: every record paired with whatever the
// cache now holds for its query string.
func join(records []models.AddressRecord, cch *cache.Cache) []models.Row {
	rows := make([]models.Row, 0, len(records))
	for _, record := range records {
		row := models.Row{AddressRecord: record}
		if entry, ok := cch.Get(record.QueryString()); ok {
			row.Entry = &entry
		}
		rows = append(rows, row)
	}

	return rows
}
