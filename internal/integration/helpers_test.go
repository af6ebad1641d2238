//go:build integration

package integration_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"

	"github.com/couchcryptid/ca-cities-import/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startKafka runs a single-node broker for the lifetime of the test.
func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()

	container, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0",
		tckafka.WithClusterID("city-import-test"),
	)
	require.NoError(t, err, "start kafka container")
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

// createTopic creates a single-partition topic through the cluster controller.
func createTopic(t *testing.T, broker, topic string) {
	t.Helper()

	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)

	ctrlConn, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer ctrlConn.Close()

	require.NoError(t, ctrlConn.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}

// serveCSV exposes body as the remote cities export.
func serveCSV(t *testing.T, body string) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/csv")
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv.URL
}

func citiesCSV(names ...string) string {
	var b strings.Builder
	b.WriteString("CITY,COUNTY\n")
	for _, n := range names {
		fmt.Fprintf(&b, "%s,Somewhere\n", n)
	}
	return b.String()
}

// memoryStore keeps committed records so Kafka tests need no Firestore.
type memoryStore struct {
	mu   sync.Mutex
	docs map[string]domain.CityRecord
}

func newMemoryStore() *memoryStore {
	return &memoryStore{docs: make(map[string]domain.CityRecord)}
}

func (s *memoryStore) NewBatch() domain.CityBatch {
	return &memoryBatch{store: s}
}

type memoryBatch struct {
	store   *memoryStore
	pending []domain.CityRecord
}

func (b *memoryBatch) Set(rec domain.CityRecord) {
	b.pending = append(b.pending, rec)
}

func (b *memoryBatch) Commit(context.Context) error {
	b.store.mu.Lock()
	defer b.store.mu.Unlock()
	for _, rec := range b.pending {
		b.store.docs[rec.DocID] = rec
	}
	return nil
}
