package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("COUNTRY_CODE", "")
	t.Setenv("NOTIFY_DISPATCH_DELAY", "")
	t.Setenv("STORAGE_DRIVER", "")

	cfg := Load()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "964", cfg.CountryCode)
	assert.Equal(t, "local", cfg.StorageDriver)
	assert.Equal(t, 200*time.Millisecond, cfg.DispatchDelay)
	assert.Equal(t, 587, cfg.SMTP.Port)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("ADMIN_PHONE", "+9647700000000")
	t.Setenv("NOTIFY_DISPATCH_DELAY", "0s")
	t.Setenv("LOG_PRETTY", "true")
	t.Setenv("APP_ENV", "Production")

	cfg := Load()

	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, "+9647700000000", cfg.AdminPhone)
	assert.Equal(t, time.Duration(0), cfg.DispatchDelay)
	assert.True(t, cfg.LogPretty)
	assert.True(t, cfg.IsProduction())
}

func TestLoad_InvalidNumbersFallBack(t *testing.T) {
	t.Setenv("SMTP_PORT", "not-a-port")
	t.Setenv("MAX_UPLOAD_SIZE", "big")

	cfg := Load()

	assert.Equal(t, 587, cfg.SMTP.Port)
	assert.Equal(t, int64(10*1024*1024), cfg.MaxUploadSize)
}
