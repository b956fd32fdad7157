package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"DATABASE_URL", "CATALOG_TIMEOUT_SECONDS", "CACHE_TTL_MINUTES", "OCR_LANGUAGES", "SESSION_STORE", "SIGNOZ_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 10*time.Second, cfg.Catalog.Timeout)
	assert.Equal(t, time.Hour, cfg.Catalog.CacheTTL)
	assert.Equal(t, 3, cfg.Catalog.MaxListings)
	assert.Equal(t, "Новосибирск", cfg.Catalog.DefaultCity)
	assert.Equal(t, []string{"eng", "rus"}, cfg.OCR.Languages)
	assert.Equal(t, 5, cfg.OCR.MinTokenLength)
	assert.Equal(t, "memory", cfg.Session.Store)
	assert.Empty(t, cfg.Telemetry.Endpoint)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("CATALOG_TIMEOUT_SECONDS", "4")
	t.Setenv("CATALOG_MAX_LISTINGS", "-1")
	t.Setenv("OCR_MIN_TOKEN_LENGTH", "abc")
	t.Setenv("HEADLESS", "0")
	t.Setenv("SIGNOZ_ENDPOINT", "")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "otel:4318")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 4*time.Second, cfg.Catalog.Timeout)
	assert.Equal(t, 3, cfg.Catalog.MaxListings)
	assert.Equal(t, 5, cfg.OCR.MinTokenLength)
	assert.False(t, cfg.Catalog.Headless)
	assert.Equal(t, "otel:4318", cfg.Telemetry.Endpoint)
}

func TestDatabaseURL(t *testing.T) {
	d := DatabaseConfig{User: "u", Password: "p", Host: "db", Port: "5432", DBName: "parts", SSLMode: "disable"}
	assert.Equal(t, "postgres://u:p@db:5432/parts?sslmode=disable", d.URL())

	d.URLOverride = "postgres://other/db"
	assert.Equal(t, "postgres://other/db", d.URL())
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"eng", "rus"}, splitList("eng+rus"))
	assert.Equal(t, []string{"eng", "rus", "deu"}, splitList("eng, rus,deu"))
	assert.Empty(t, splitList(""))
}
