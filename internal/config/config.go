package config

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

const (
	// DefaultCSVURL is the California Open Data export of incorporated cities.
	DefaultCSVURL = "https://data.ca.gov/dataset/e21184f6-6ef0-4f33-96cb-75179462a48a/" +
		"resource/03433a04-5178-4394-a1f9-93666f91605e/download/california-incorporated-cities.csv"

	// LocalCSVName is the file name looked up next to the executable when the download fails.
	LocalCSVName = "california-incorporated-cities.csv"

	// MaxBatchSize is Firestore's hard limit on writes per batch.
	MaxBatchSize = 500
)

// Config holds all job settings, populated from environment variables.
type Config struct {
	CSVURL        string
	LocalCSVPath  string
	FetchTimeout  time.Duration
	FetchAttempts int
	CABundle      string

	CredentialsFile     string
	FirestoreProjectID  string
	FirestoreCollection string
	FirestoreEmulator   string
	BatchSize           int

	LogLevel  string
	LogFormat string

	// Optional announcer; disabled when KafkaBrokers is empty.
	KafkaBrokers []string
	KafkaTopic   string

	// Optional metrics push; disabled when empty.
	PushgatewayURL string

	// Optional raw CSV archive; disabled unless bucket and endpoint are set.
	SnapshotBucket string
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioUseSSL    bool
}

// AnnounceEnabled reports whether seeded cities should be published to Kafka.
func (c *Config) AnnounceEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

// SnapshotEnabled reports whether raw source bytes should be archived.
func (c *Config) SnapshotEnabled() bool {
	return c.SnapshotBucket != "" && c.MinioEndpoint != ""
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	fetchTimeout, err := time.ParseDuration(sharedcfg.EnvOrDefault("FETCH_TIMEOUT", "30s"))
	if err != nil || fetchTimeout <= 0 {
		return nil, errors.New("invalid FETCH_TIMEOUT")
	}

	fetchAttempts, err := strconv.Atoi(sharedcfg.EnvOrDefault("FETCH_ATTEMPTS", "3"))
	if err != nil || fetchAttempts < 1 {
		return nil, errors.New("invalid FETCH_ATTEMPTS")
	}

	// Firestore caps a batch at 500 writes, narrower than sharedcfg.ParseBatchSize allows.
	batchSize, err := strconv.Atoi(sharedcfg.EnvOrDefault("BATCH_SIZE", "400"))
	if err != nil || batchSize < 1 || batchSize > MaxBatchSize {
		return nil, errors.New("invalid BATCH_SIZE: must be between 1 and 500")
	}

	cfg := &Config{
		CSVURL:        sharedcfg.EnvOrDefault("CITIES_CSV_URL", DefaultCSVURL),
		LocalCSVPath:  sharedcfg.EnvOrDefault("CITIES_LOCAL_CSV", defaultLocalCSVPath()),
		FetchTimeout:  fetchTimeout,
		FetchAttempts: fetchAttempts,
		CABundle:      os.Getenv("CA_BUNDLE"),

		CredentialsFile:     sharedcfg.EnvOrDefault("GOOGLE_APPLICATION_CREDENTIALS", "./service-account-key.json"),
		FirestoreProjectID:  os.Getenv("FIRESTORE_PROJECT_ID"),
		FirestoreCollection: sharedcfg.EnvOrDefault("FIRESTORE_COLLECTION", "config_cities"),
		FirestoreEmulator:   os.Getenv("FIRESTORE_EMULATOR_HOST"),
		BatchSize:           batchSize,

		LogLevel:  sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat: sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),

		KafkaBrokers: sharedcfg.ParseBrokers(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:   sharedcfg.EnvOrDefault("KAFKA_TOPIC", "pending-cities"),

		PushgatewayURL: os.Getenv("PUSHGATEWAY_URL"),

		SnapshotBucket: os.Getenv("SNAPSHOT_BUCKET"),
		MinioEndpoint:  os.Getenv("MINIO_ENDPOINT"),
		MinioAccessKey: os.Getenv("MINIO_ACCESS_KEY"),
		MinioSecretKey: os.Getenv("MINIO_SECRET_KEY"),
		MinioUseSSL:    os.Getenv("MINIO_USE_SSL") == "true",
	}

	if cfg.CSVURL == "" {
		return nil, errors.New("CITIES_CSV_URL is required")
	}
	if cfg.FirestoreCollection == "" {
		return nil, errors.New("FIRESTORE_COLLECTION is required")
	}
	if cfg.FirestoreEmulator != "" && cfg.FirestoreProjectID == "" {
		return nil, errors.New("FIRESTORE_PROJECT_ID is required with FIRESTORE_EMULATOR_HOST")
	}
	if cfg.AnnounceEnabled() && cfg.KafkaTopic == "" {
		return nil, errors.New("KAFKA_BROKERS is set but KAFKA_TOPIC is empty")
	}
	if cfg.SnapshotEnabled() && (cfg.MinioAccessKey == "" || cfg.MinioSecretKey == "") {
		return nil, errors.New("SNAPSHOT_BUCKET is set but MINIO_ACCESS_KEY or MINIO_SECRET_KEY is not")
	}

	return cfg, nil
}

// defaultLocalCSVPath looks for the fallback file next to the running
// executable, then in the working directory. Binaries built by `go run` live
// in a temporary go-build directory and are skipped. When no candidate exists
// the first one is returned so the log names where the file was expected.
func defaultLocalCSVPath() string {
	var dirs []string
	if exe, err := os.Executable(); err == nil && !isGoRunBinary(exe) {
		dirs = append(dirs, filepath.Dir(exe))
	}
	if wd, err := os.Getwd(); err == nil {
		dirs = append(dirs, wd)
	}
	return firstLocalCSV(dirs)
}

func firstLocalCSV(dirs []string) string {
	if len(dirs) == 0 {
		return LocalCSVName
	}
	for _, dir := range dirs {
		p := filepath.Join(dir, LocalCSVName)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return filepath.Join(dirs[0], LocalCSVName)
}

func isGoRunBinary(exe string) bool {
	return strings.Contains(filepath.ToSlash(exe), "/go-build")
}
