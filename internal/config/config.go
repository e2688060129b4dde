package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/couchcryptid/labor-stats-etl/internal/domain"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// BLS API client configuration.
	BLSAPIKey  string
	BLSBaseURL string
	BLSTimeout time.Duration

	// Dataset and catalog locations.
	DatasetPath string
	CatalogPath string // optional YAML override; empty selects the built-in catalog

	// Updater behavior.
	StartYear      int              // earliest year fetched for an empty dataset
	UpdateSchedule string           // cron spec for scheduled runs
	UpdateOnStart  bool             // run the updater once at startup
	RevisionMode   domain.MergeMode // append (default) or revise

	// Kafka announce configuration (feature-flagged via KAFKA_ENABLED / KAFKA_BROKERS).
	KafkaEnabled bool
	KafkaBrokers []string
	KafkaTopic   string
}

// Load reads configuration from the environment, applying defaults where
// unset. A .env file in the working directory is honored when present.
func Load() (*Config, error) {
	_ = godotenv.Load() // optional; absence is not an error

	shutdownTimeout, err := parsePositiveDuration("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}

	blsTimeout, err := parsePositiveDuration("BLS_TIMEOUT", "15s")
	if err != nil {
		return nil, err
	}

	startYear, err := parseStartYear()
	if err != nil {
		return nil, err
	}

	revisionMode, err := domain.ParseMergeMode(envOrDefault("REVISION_MODE", string(domain.MergeAppendOnly)))
	if err != nil {
		return nil, fmt.Errorf("invalid REVISION_MODE: %w", err)
	}

	updateOnStart, err := parseOptionalBool("UPDATE_ON_START", true)
	if err != nil {
		return nil, err
	}

	kafkaBrokers := parseBrokers(os.Getenv("KAFKA_BROKERS"))
	kafkaEnabled, err := parseOptionalBool("KAFKA_ENABLED", len(kafkaBrokers) > 0)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		BLSAPIKey:  os.Getenv("BLS_API_KEY"),
		BLSBaseURL: envOrDefault("BLS_BASE_URL", "https://api.bls.gov/publicAPI/v2/timeseries/data/"),
		BLSTimeout: blsTimeout,

		DatasetPath: envOrDefault("DATASET_PATH", "data/bls_data.csv"),
		CatalogPath: os.Getenv("CATALOG_PATH"),

		StartYear:      startYear,
		UpdateSchedule: envOrDefault("UPDATE_SCHEDULE", "0 12 5 * *"),
		UpdateOnStart:  updateOnStart,
		RevisionMode:   revisionMode,

		KafkaEnabled: kafkaEnabled,
		KafkaBrokers: kafkaBrokers,
		KafkaTopic:   envOrDefault("KAFKA_TOPIC", "labor-observations"),
	}

	if cfg.DatasetPath == "" {
		return nil, errors.New("DATASET_PATH is required")
	}
	if cfg.BLSBaseURL == "" {
		return nil, errors.New("BLS_BASE_URL is required")
	}
	if cfg.UpdateSchedule == "" {
		return nil, errors.New("UPDATE_SCHEDULE is required")
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is not set")
	}

	return cfg, nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parsePositiveDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(envOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parseOptionalBool(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}

func parseStartYear() (int, error) {
	s := envOrDefault("START_YEAR", "2020")
	year, err := strconv.Atoi(s)
	if err != nil || year < 1900 || year > 9999 {
		return 0, errors.New("invalid START_YEAR")
	}
	return year, nil
}

func parseBrokers(s string) []string {
	var brokers []string
	for _, b := range strings.Split(s, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}
