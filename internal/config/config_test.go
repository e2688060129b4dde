package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/labor-stats-etl/internal/domain"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Empty(t, cfg.BLSAPIKey)
	assert.Equal(t, "https://api.bls.gov/publicAPI/v2/timeseries/data/", cfg.BLSBaseURL)
	assert.Equal(t, 15*time.Second, cfg.BLSTimeout)
	assert.Equal(t, "data/bls_data.csv", cfg.DatasetPath)
	assert.Empty(t, cfg.CatalogPath)
	assert.Equal(t, 2020, cfg.StartYear)
	assert.Equal(t, "0 12 5 * *", cfg.UpdateSchedule)
	assert.True(t, cfg.UpdateOnStart)
	assert.Equal(t, domain.MergeAppendOnly, cfg.RevisionMode)
	assert.False(t, cfg.KafkaEnabled)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.Equal(t, "labor-observations", cfg.KafkaTopic)
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")
	t.Setenv("BLS_API_KEY", "test-key")
	t.Setenv("BLS_BASE_URL", "http://localhost:9999/timeseries/")
	t.Setenv("BLS_TIMEOUT", "5s")
	t.Setenv("DATASET_PATH", "/tmp/labor.csv")
	t.Setenv("CATALOG_PATH", "/tmp/catalog.yaml")
	t.Setenv("START_YEAR", "2015")
	t.Setenv("UPDATE_SCHEDULE", "30 9 1 * *")
	t.Setenv("UPDATE_ON_START", "false")
	t.Setenv("REVISION_MODE", "revise")
	t.Setenv("KAFKA_BROKERS", "broker1:9092, broker2:9092")
	t.Setenv("KAFKA_TOPIC", "custom-topic")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "test-key", cfg.BLSAPIKey)
	assert.Equal(t, "http://localhost:9999/timeseries/", cfg.BLSBaseURL)
	assert.Equal(t, 5*time.Second, cfg.BLSTimeout)
	assert.Equal(t, "/tmp/labor.csv", cfg.DatasetPath)
	assert.Equal(t, "/tmp/catalog.yaml", cfg.CatalogPath)
	assert.Equal(t, 2015, cfg.StartYear)
	assert.Equal(t, "30 9 1 * *", cfg.UpdateSchedule)
	assert.False(t, cfg.UpdateOnStart)
	assert.Equal(t, domain.MergeRevise, cfg.RevisionMode)
	assert.True(t, cfg.KafkaEnabled)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "custom-topic", cfg.KafkaTopic)
}

func TestLoad_InvalidShutdownTimeout(t *testing.T) {
	t.Setenv("SHUTDOWN_TIMEOUT", "not-a-duration")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SHUTDOWN_TIMEOUT")
}

func TestLoad_NegativeBLSTimeout(t *testing.T) {
	t.Setenv("BLS_TIMEOUT", "-1s")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BLS_TIMEOUT")
}

func TestLoad_InvalidStartYear(t *testing.T) {
	for _, v := range []string{"abc", "0", "1776"} {
		t.Setenv("START_YEAR", v)
		_, err := Load()
		require.Error(t, err, "START_YEAR=%s", v)
		assert.Contains(t, err.Error(), "START_YEAR")
	}
}

func TestLoad_InvalidRevisionMode(t *testing.T) {
	t.Setenv("REVISION_MODE", "overwrite")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "REVISION_MODE")
}

func TestLoad_KafkaBrokersImplyEnabled(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "localhost:9092")
	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.KafkaEnabled)
}

func TestLoad_KafkaExplicitlyDisabled(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "localhost:9092")
	t.Setenv("KAFKA_ENABLED", "false")
	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.KafkaEnabled)
}

func TestLoad_KafkaEnabledWithoutBrokers(t *testing.T) {
	t.Setenv("KAFKA_ENABLED", "true")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "KAFKA_BROKERS")
}

func TestLoad_BoolEnvAcceptsParseBoolForms(t *testing.T) {
	for _, v := range []string{"1", "TRUE", "True", "t"} {
		t.Setenv("UPDATE_ON_START", v)
		cfg, err := Load()
		require.NoError(t, err, "UPDATE_ON_START=%s", v)
		assert.True(t, cfg.UpdateOnStart, "UPDATE_ON_START=%s", v)
	}
	for _, v := range []string{"0", "FALSE", "f"} {
		t.Setenv("UPDATE_ON_START", v)
		cfg, err := Load()
		require.NoError(t, err, "UPDATE_ON_START=%s", v)
		assert.False(t, cfg.UpdateOnStart, "UPDATE_ON_START=%s", v)
	}
}

func TestLoad_InvalidBoolEnvRejected(t *testing.T) {
	t.Setenv("UPDATE_ON_START", "yes")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "UPDATE_ON_START")

	t.Setenv("UPDATE_ON_START", "true")
	t.Setenv("KAFKA_BROKERS", "localhost:9092")
	t.Setenv("KAFKA_ENABLED", "enabled")
	_, err = Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "KAFKA_ENABLED")
}
