package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/ca-cities-import/internal/domain"
	"github.com/couchcryptid/ca-cities-import/internal/observability"
)

// Archiver keeps a copy of the raw source behind an import.
type Archiver interface {
	Archive(ctx context.Context, runID string, src domain.Source) (string, error)
}

// Result summarizes a completed import.
type Result struct {
	RunID    string
	Tier     domain.Tier
	Origin   string
	Cities   int
	Commits  int
	Duration time.Duration
}

// Importer orchestrates resolve, normalize, and batch write.
type Importer struct {
	resolver   *Resolver
	writer     *Writer
	archiver   Archiver
	collection string
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// New creates an Importer. archiver may be nil.
func New(r *Resolver, w *Writer, a Archiver, collection string, logger *slog.Logger, metrics *observability.Metrics) *Importer {
	return &Importer{
		resolver:   r,
		writer:     w,
		archiver:   a,
		collection: collection,
		logger:     logger,
		metrics:    metrics,
	}
}

// Run executes one import. Nothing is written unless the source has a CITY column.
func (i *Importer) Run(ctx context.Context, runID string) (Result, error) {
	start := time.Now()
	result := Result{RunID: runID}

	src, err := i.resolver.Resolve(ctx)
	if err != nil {
		return result, fmt.Errorf("resolve source: %w", err)
	}
	result.Tier = src.Tier
	result.Origin = src.Origin

	cities, err := domain.UniqueCities(src.Table)
	if err != nil {
		var missing *domain.MissingColumnError
		if errors.As(err, &missing) {
			i.logger.Error("expected CITY column not found",
				"available_columns", missing.Available, "tier", src.Tier, "origin", src.Origin)
		}
		return result, fmt.Errorf("normalize %s source: %w", src.Tier, err)
	}
	result.Cities = len(cities)
	i.metrics.CitiesResolved.Set(float64(len(cities)))
	i.logger.Info("found California cities", "count", len(cities), "tier", src.Tier, "origin", src.Origin)

	i.archive(ctx, runID, src)

	i.logger.Info("starting batch upload to Firestore", "collection", i.collection, "cities", len(cities))
	stats, err := i.writer.Write(ctx, runID, cities)
	result.Commits = stats.Commits
	if err != nil {
		return result, fmt.Errorf("write cities (%d enqueued, %d batches committed): %w", stats.Records, stats.Commits, err)
	}

	result.Duration = time.Since(start)
	i.metrics.ImportDuration.Observe(result.Duration.Seconds())
	i.metrics.LastSuccess.SetToCurrentTime()
	i.logger.Info("imported California cities",
		"count", stats.Records, "commits", stats.Commits, "collection", i.collection, "duration", result.Duration)
	return result, nil
}

func (i *Importer) archive(ctx context.Context, runID string, src domain.Source) {
	if i.archiver == nil {
		return
	}
	if _, err := i.archiver.Archive(ctx, runID, src); err != nil {
		i.metrics.SnapshotFailures.Inc()
		i.logger.Warn("source snapshot failed", "error", err, "tier", src.Tier)
	}
}
