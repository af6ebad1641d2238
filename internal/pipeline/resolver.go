package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/ca-cities-import/internal/domain"
	"github.com/couchcryptid/ca-cities-import/internal/observability"
)

// Fetcher downloads the remote cities CSV.
type Fetcher interface {
	URL() string
	Fetch(ctx context.Context) (domain.Table, []byte, error)
}

// Resolver picks the city table from the first fallback tier that works:
// remote download, then a local CSV file, then the builtin list.
type Resolver struct {
	fetcher   Fetcher
	localPath string
	attempts  int
	clock     clockwork.Clock
	logger    *slog.Logger
	metrics   *observability.Metrics
}

// NewResolver creates a Resolver. attempts bounds the remote tier; clock
// drives the waits between attempts.
func NewResolver(f Fetcher, localPath string, attempts int, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Resolver {
	if attempts < 1 {
		attempts = 1
	}
	return &Resolver{
		fetcher:   f,
		localPath: localPath,
		attempts:  attempts,
		clock:     clock,
		logger:    logger,
		metrics:   metrics,
	}
}

// Resolve returns the winning source. Remote failures only demote to the next
// tier; an existing but unreadable local file is an error.
func (r *Resolver) Resolve(ctx context.Context) (domain.Source, error) {
	src, err := r.fetchRemote(ctx)
	if err == nil {
		return r.chosen(src), nil
	}
	if ctx.Err() != nil {
		return domain.Source{}, ctx.Err()
	}
	r.logger.Warn("remote source unavailable", "url", r.fetcher.URL(), "error", err)

	src, found, err := r.readLocal()
	if err != nil {
		r.metrics.SourceAttempts.WithLabelValues(string(domain.TierLocal), "failure").Inc()
		return domain.Source{}, err
	}
	if found {
		r.metrics.SourceAttempts.WithLabelValues(string(domain.TierLocal), "success").Inc()
		return r.chosen(src), nil
	}

	r.logger.Error("error downloading CSV and no local fallback found", "path", r.localPath)
	r.logger.Info("the CSV can be downloaded manually and placed at the local fallback path",
		"url", r.fetcher.URL(), "path", r.localPath)
	r.logger.Warn("seeding from builtin list of major California cities")

	r.metrics.SourceAttempts.WithLabelValues(string(domain.TierBuiltin), "success").Inc()
	return r.chosen(domain.Source{
		Tier:   domain.TierBuiltin,
		Origin: string(domain.TierBuiltin),
		Table:  domain.TableFromCities(domain.BuiltinCities()),
	}), nil
}

func (r *Resolver) chosen(src domain.Source) domain.Source {
	r.metrics.SourceTier.WithLabelValues(string(src.Tier)).Set(1)
	return src
}

// fetchRemote tries the download up to r.attempts times, waiting 2s, 4s, ...
// between attempts.
func (r *Resolver) fetchRemote(ctx context.Context) (domain.Source, error) {
	var lastErr error
	for attempt := 1; attempt <= r.attempts; attempt++ {
		r.logger.Info("downloading city data from California Open Data",
			"url", r.fetcher.URL(), "attempt", attempt, "max_attempts", r.attempts)

		table, raw, err := r.fetcher.Fetch(ctx)
		if err == nil {
			r.metrics.SourceAttempts.WithLabelValues(string(domain.TierRemote), "success").Inc()
			return domain.Source{Tier: domain.TierRemote, Origin: r.fetcher.URL(), Table: table, Raw: raw}, nil
		}

		lastErr = err
		r.metrics.SourceAttempts.WithLabelValues(string(domain.TierRemote), "failure").Inc()
		r.logger.Warn("download attempt failed", "attempt", attempt, "max_attempts", r.attempts, "error", err)

		if attempt < r.attempts && !sleepWithContext(ctx, r.clock, retryDelay(attempt)) {
			return domain.Source{}, ctx.Err()
		}
	}
	return domain.Source{}, fmt.Errorf("download failed after %d attempts: %w", r.attempts, lastErr)
}

// readLocal parses the fallback file. found is false only when the file does not exist.
func (r *Resolver) readLocal() (src domain.Source, found bool, err error) {
	if _, statErr := os.Stat(r.localPath); errors.Is(statErr, fs.ErrNotExist) {
		return domain.Source{}, false, nil
	}

	r.logger.Info("using local CSV fallback", "path", r.localPath)

	raw, err := os.ReadFile(r.localPath)
	if err != nil {
		return domain.Source{}, true, fmt.Errorf("failed to read local CSV %s: %w", r.localPath, err)
	}
	table, err := domain.ParseCSV(bytes.NewReader(raw))
	if err != nil {
		return domain.Source{}, true, fmt.Errorf("failed to read local CSV %s: %w", r.localPath, err)
	}
	return domain.Source{Tier: domain.TierLocal, Origin: r.localPath, Table: table, Raw: raw}, true, nil
}

func retryDelay(attempt int) time.Duration {
	return time.Duration(2*attempt) * time.Second
}

func sleepWithContext(ctx context.Context, clock clockwork.Clock, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	select {
	case <-ctx.Done():
		return false
	case <-clock.After(d):
		return true
	}
}
