package pipeline_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/ca-cities-import/internal/domain"
	"github.com/couchcryptid/ca-cities-import/internal/observability"
	"github.com/couchcryptid/ca-cities-import/internal/pipeline"
)

const localCSV = "CITY,COUNTY\nEureka,Humboldt\nArcata,Humboldt\n"

func writeLocalCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "california-incorporated-cities.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func missingPath(t *testing.T) string {
	return filepath.Join(t.TempDir(), "california-incorporated-cities.csv")
}

func TestResolver_RemoteFirstAttempt(t *testing.T) {
	f := &fakeFetcher{table: domain.TableFromCities([]string{"Irvine"}), raw: []byte("CITY\nIrvine\n")}
	metrics := observability.NewMetricsForTesting()
	r := pipeline.NewResolver(f, missingPath(t), 3, clockwork.NewFakeClock(), discardLogger(), metrics)

	src, err := r.Resolve(context.Background())
	require.NoError(t, err)

	assert.Equal(t, domain.TierRemote, src.Tier)
	assert.Equal(t, f.URL(), src.Origin)
	assert.Equal(t, []byte("CITY\nIrvine\n"), src.Raw)
	assert.EqualValues(t, 1, f.calls.Load())
	assert.InDelta(t, 1.0, testutil.ToFloat64(metrics.SourceTier.WithLabelValues("remote")), 0.0001)
}

func TestResolver_RemoteRetriesWithGrowingDelay(t *testing.T) {
	f := &fakeFetcher{table: domain.TableFromCities([]string{"Irvine"}), fails: 2}
	fc := clockwork.NewFakeClock()
	metrics := observability.NewMetricsForTesting()
	r := pipeline.NewResolver(f, missingPath(t), 3, fc, discardLogger(), metrics)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	type outcome struct {
		src domain.Source
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		src, err := r.Resolve(ctx)
		done <- outcome{src, err}
	}()

	// First wait is 2s: nothing happens a millisecond early.
	require.NoError(t, fc.BlockUntilContext(ctx, 1))
	fc.Advance(2*time.Second - time.Millisecond)
	assert.Never(t, func() bool { return f.calls.Load() > 1 }, 50*time.Millisecond, 5*time.Millisecond)
	fc.Advance(time.Millisecond)
	require.Eventually(t, func() bool { return f.calls.Load() == 2 }, time.Second, 5*time.Millisecond)

	// Second wait is 4s.
	require.NoError(t, fc.BlockUntilContext(ctx, 1))
	fc.Advance(4 * time.Second)

	got := <-done
	require.NoError(t, got.err)
	assert.Equal(t, domain.TierRemote, got.src.Tier)
	assert.EqualValues(t, 3, f.calls.Load())
	assert.InDelta(t, 2.0, testutil.ToFloat64(metrics.SourceAttempts.WithLabelValues("remote", "failure")), 0.0001)
	assert.InDelta(t, 1.0, testutil.ToFloat64(metrics.SourceAttempts.WithLabelValues("remote", "success")), 0.0001)
}

func TestResolver_LocalFallback(t *testing.T) {
	f := &fakeFetcher{fails: -1}
	fc := clockwork.NewFakeClock()
	autoAdvance(t, fc)
	path := writeLocalCSV(t, localCSV)
	r := pipeline.NewResolver(f, path, 3, fc, discardLogger(), observability.NewMetricsForTesting())

	src, err := r.Resolve(context.Background())
	require.NoError(t, err)

	assert.Equal(t, domain.TierLocal, src.Tier)
	assert.Equal(t, path, src.Origin)
	assert.Equal(t, []byte(localCSV), src.Raw)
	assert.EqualValues(t, 3, f.calls.Load())

	cities, err := domain.UniqueCities(src.Table)
	require.NoError(t, err)
	assert.Equal(t, []string{"Eureka", "Arcata"}, cities)
}

func TestResolver_BuiltinFallback(t *testing.T) {
	f := &fakeFetcher{fails: -1}
	fc := clockwork.NewFakeClock()
	autoAdvance(t, fc)
	metrics := observability.NewMetricsForTesting()
	r := pipeline.NewResolver(f, missingPath(t), 3, fc, discardLogger(), metrics)

	src, err := r.Resolve(context.Background())
	require.NoError(t, err)

	assert.Equal(t, domain.TierBuiltin, src.Tier)
	assert.Nil(t, src.Raw)
	assert.Len(t, src.Table.Rows, 41)
	assert.EqualValues(t, 3, f.calls.Load())
	assert.InDelta(t, 1.0, testutil.ToFloat64(metrics.SourceTier.WithLabelValues("builtin")), 0.0001)
}

func TestResolver_MalformedLocalFileIsFatal(t *testing.T) {
	f := &fakeFetcher{fails: -1}
	path := writeLocalCSV(t, "CITY\n\"Eureka\n")
	r := pipeline.NewResolver(f, path, 1, clockwork.NewFakeClock(), discardLogger(), observability.NewMetricsForTesting())

	_, err := r.Resolve(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read local CSV")
}

func TestResolver_UnreadableLocalPathIsFatal(t *testing.T) {
	f := &fakeFetcher{fails: -1}
	dir := t.TempDir() // a directory exists but cannot be read as a file
	r := pipeline.NewResolver(f, dir, 1, clockwork.NewFakeClock(), discardLogger(), observability.NewMetricsForTesting())

	_, err := r.Resolve(context.Background())
	require.Error(t, err)
}

func TestResolver_CancelledDuringBackoff(t *testing.T) {
	f := &fakeFetcher{fails: -1}
	fc := clockwork.NewFakeClock()
	r := pipeline.NewResolver(f, missingPath(t), 3, fc, discardLogger(), observability.NewMetricsForTesting())

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, err := r.Resolve(ctx)
		errCh <- err
	}()

	require.NoError(t, fc.BlockUntilContext(context.Background(), 1))
	cancel()

	err := <-errCh
	require.ErrorIs(t, err, context.Canceled)
	assert.EqualValues(t, 1, f.calls.Load())
}

func TestResolver_RemoteWithoutCityColumnStillResolves(t *testing.T) {
	// The column check belongs to normalization; the resolver does not retry on it.
	f := &fakeFetcher{table: domain.Table{Header: []string{"NAME"}, Rows: [][]string{{"Irvine"}}}}
	r := pipeline.NewResolver(f, missingPath(t), 3, clockwork.NewFakeClock(), discardLogger(), observability.NewMetricsForTesting())

	src, err := r.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.TierRemote, src.Tier)
	assert.EqualValues(t, 1, f.calls.Load())
}
