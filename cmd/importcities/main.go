// Command importcities seeds the config_cities Firestore collection with one
// pending record per California incorporated city.
//
// Usage:
//
//	GOOGLE_APPLICATION_CREDENTIALS=./service-account-key.json go run ./cmd/importcities
//
// The local fallback california-incorporated-cities.csv is looked up next to
// a built binary, then in the working directory; under go run only the
// working directory is used. See internal/config for the full list of
// environment variables. A .env file in the working directory is loaded first
// when present.
package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"

	firestoreadapter "github.com/couchcryptid/ca-cities-import/internal/adapter/firestore"
	kafkaadapter "github.com/couchcryptid/ca-cities-import/internal/adapter/kafka"
	"github.com/couchcryptid/ca-cities-import/internal/adapter/opendata"
	"github.com/couchcryptid/ca-cities-import/internal/adapter/snapshot"
	"github.com/couchcryptid/ca-cities-import/internal/config"
	"github.com/couchcryptid/ca-cities-import/internal/domain"
	"github.com/couchcryptid/ca-cities-import/internal/observability"
	"github.com/couchcryptid/ca-cities-import/internal/pipeline"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using process environment")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()
	runID := uuid.NewString()
	logger = logger.With("run_id", runID)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, cfg, runID, logger, metrics, openFirestore)
	stop()

	if cfg.PushgatewayURL != "" {
		pushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if pushErr := observability.Push(pushCtx, cfg.PushgatewayURL, runID, prometheus.DefaultGatherer); pushErr != nil {
			logger.Warn("metrics push failed", "error", pushErr)
		}
		cancel()
	}

	os.Exit(code)
}

// storeOpener connects the city store and returns a func that releases it.
type storeOpener func(ctx context.Context, cfg *config.Config, logger *slog.Logger) (domain.CityStore, func() error, error)

func openFirestore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (domain.CityStore, func() error, error) {
	client, err := firestoreadapter.NewClient(ctx, cfg.FirestoreProjectID, cfg.CredentialsFile, cfg.FirestoreEmulator, logger)
	if err != nil {
		return nil, nil, err
	}
	return firestoreadapter.NewStore(client, cfg.FirestoreCollection), client.Close, nil
}

// run performs one import and returns the process exit code.
func run(ctx context.Context, cfg *config.Config, runID string, logger *slog.Logger, metrics *observability.Metrics, openStore storeOpener) int {
	if err := importCities(ctx, cfg, runID, logger, metrics, openStore); err != nil {
		logger.Error("city import failed", "error", err)
		return 1
	}
	return 0
}

func importCities(ctx context.Context, cfg *config.Config, runID string, logger *slog.Logger, metrics *observability.Metrics, openStore storeOpener) error {
	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeStore(); err != nil {
			logger.Error("store close error", "error", err)
		}
	}()

	fetcher, err := opendata.NewClient(cfg.CSVURL, cfg.FetchTimeout, cfg.CABundle, logger)
	if err != nil {
		return err
	}

	var announcer pipeline.Announcer
	if cfg.AnnounceEnabled() {
		writer := kafkaadapter.NewWriter(cfg, logger)
		defer func() {
			if err := writer.Close(); err != nil {
				logger.Error("kafka writer close error", "error", err)
			}
		}()
		announcer = writer
		logger.Info("kafka announcements enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	}

	var archiver pipeline.Archiver
	if cfg.SnapshotEnabled() {
		a, err := snapshot.NewArchiver(cfg, logger)
		if err != nil {
			return err
		}
		archiver = a
		logger.Info("source snapshots enabled", "endpoint", cfg.MinioEndpoint, "bucket", cfg.SnapshotBucket)
	}

	resolver := pipeline.NewResolver(fetcher, cfg.LocalCSVPath, cfg.FetchAttempts, clockwork.NewRealClock(), logger, metrics)
	writer := pipeline.NewWriter(store, cfg.BatchSize, announcer, logger, metrics)
	importer := pipeline.New(resolver, writer, archiver, cfg.FirestoreCollection, logger, metrics)

	res, err := importer.Run(ctx, runID)
	if err != nil {
		return err
	}

	logger.Info("discovery can now iterate through the seeded cities",
		"collection", cfg.FirestoreCollection, "cities", res.Cities, "tier", res.Tier)
	return nil
}
