package pipeline_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/ca-cities-import/internal/domain"
)

// --- fetcher ---

type fakeFetcher struct {
	table domain.Table
	raw   []byte
	fails int // calls that fail before one succeeds; -1 fails forever
	calls atomic.Int64
}

func (f *fakeFetcher) URL() string { return "https://data.example.test/cities.csv" }

func (f *fakeFetcher) Fetch(ctx context.Context) (domain.Table, []byte, error) {
	n := int(f.calls.Add(1))
	if err := ctx.Err(); err != nil {
		return domain.Table{}, nil, err
	}
	if f.fails < 0 || n <= f.fails {
		return domain.Table{}, nil, fmt.Errorf("dial tcp: connection refused (call %d)", n)
	}
	return f.table, f.raw, nil
}

// --- store ---

// memoryStore applies committed batches to an in-memory collection.
type memoryStore struct {
	mu        sync.Mutex
	docs      map[string]domain.CityRecord
	commits   [][]domain.CityRecord
	failAfter int // commits that succeed before every later one fails; 0 never fails
}

func newMemoryStore() *memoryStore {
	return &memoryStore{docs: make(map[string]domain.CityRecord)}
}

func (s *memoryStore) NewBatch() domain.CityBatch {
	return &memoryBatch{store: s}
}

func (s *memoryStore) commitSizes() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	sizes := make([]int, len(s.commits))
	for i, c := range s.commits {
		sizes[i] = len(c)
	}
	return sizes
}

type memoryBatch struct {
	store   *memoryStore
	pending []domain.CityRecord
}

func (b *memoryBatch) Set(rec domain.CityRecord) {
	b.pending = append(b.pending, rec)
}

func (b *memoryBatch) Commit(_ context.Context) error {
	s := b.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAfter > 0 && len(s.commits) >= s.failAfter {
		return errors.New("rpc error: code = Unavailable")
	}
	for _, rec := range b.pending {
		s.docs[rec.DocID] = rec
	}
	s.commits = append(s.commits, b.pending)
	return nil
}

// --- announcer / archiver ---

type recordingAnnouncer struct {
	batches [][]domain.CityRecord
	err     error
}

func (a *recordingAnnouncer) Announce(_ context.Context, _ string, records []domain.CityRecord) error {
	a.batches = append(a.batches, append([]domain.CityRecord(nil), records...))
	return a.err
}

type recordingArchiver struct {
	sources []domain.Source
	err     error
}

func (a *recordingArchiver) Archive(_ context.Context, runID string, src domain.Source) (string, error) {
	a.sources = append(a.sources, src)
	return "snapshots/" + runID, a.err
}

// --- helpers ---

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// autoAdvance fires every pending timer on fc until the test ends.
func autoAdvance(t *testing.T, fc *clockwork.FakeClock) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() {
		for {
			if err := fc.BlockUntilContext(ctx, 1); err != nil {
				return
			}
			fc.Advance(time.Minute)
		}
	}()
}

func cityNames(n int) []string {
	names := make([]string, n)
	for i := range names {
		names[i] = fmt.Sprintf("City %04d", i)
	}
	return names
}
