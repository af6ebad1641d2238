package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/couchcryptid/ca-cities-import/internal/domain"
	"github.com/couchcryptid/ca-cities-import/internal/observability"
)

// DefaultBatchSize keeps each commit well under Firestore's 500-write limit.
const DefaultBatchSize = 400

// Announcer publishes records after they are committed.
type Announcer interface {
	Announce(ctx context.Context, runID string, records []domain.CityRecord) error
}

// WriteStats summarizes one Write call.
type WriteStats struct {
	Records int
	Commits int
}

// Writer turns city names into pending records and commits them in bounded batches.
type Writer struct {
	store     domain.CityStore
	batchSize int
	announcer Announcer
	logger    *slog.Logger
	metrics   *observability.Metrics
}

// NewWriter creates a Writer. announcer may be nil.
func NewWriter(store domain.CityStore, batchSize int, announcer Announcer, logger *slog.Logger, metrics *observability.Metrics) *Writer {
	if batchSize < 1 {
		batchSize = DefaultBatchSize
	}
	return &Writer{
		store:     store,
		batchSize: batchSize,
		announcer: announcer,
		logger:    logger,
		metrics:   metrics,
	}
}

// openBatch is the accumulator of writes not yet committed.
type openBatch struct {
	batch   domain.CityBatch
	records []domain.CityRecord
}

func (w *Writer) newOpenBatch() *openBatch {
	return &openBatch{
		batch:   w.store.NewBatch(),
		records: make([]domain.CityRecord, 0, w.batchSize),
	}
}

func (b *openBatch) add(rec domain.CityRecord) {
	b.batch.Set(rec)
	b.records = append(b.records, rec)
}

// Write upserts one record per city. A batch is committed each time it
// reaches the batch size, and once more at the end if anything is left.
// The first commit error aborts the write; earlier batches stay committed.
func (w *Writer) Write(ctx context.Context, runID string, cities []string) (WriteStats, error) {
	var stats WriteStats
	open := w.newOpenBatch()

	for _, city := range cities {
		open.add(domain.NewCityRecord(city))
		stats.Records++

		if len(open.records) == w.batchSize {
			if err := w.commit(ctx, runID, open); err != nil {
				return stats, err
			}
			stats.Commits++
			w.logger.Info("committed cities", "total", stats.Records)
			open = w.newOpenBatch()
		}
	}

	if len(open.records) > 0 {
		if err := w.commit(ctx, runID, open); err != nil {
			return stats, err
		}
		stats.Commits++
	}

	return stats, nil
}

func (w *Writer) commit(ctx context.Context, runID string, open *openBatch) error {
	start := time.Now()
	if err := open.batch.Commit(ctx); err != nil {
		w.logger.Error("batch commit failed", "error", err, "batch_size", len(open.records))
		return err
	}

	w.metrics.CommitDuration.Observe(time.Since(start).Seconds())
	w.metrics.BatchSize.Observe(float64(len(open.records)))
	w.metrics.BatchCommits.Inc()
	w.metrics.RecordsWritten.Add(float64(len(open.records)))

	if w.announcer != nil {
		if err := w.announcer.Announce(ctx, runID, open.records); err != nil {
			w.metrics.AnnounceErrors.Inc()
			w.logger.Error("announce committed cities failed", "error", err, "batch_size", len(open.records))
		}
	}
	return nil
}
