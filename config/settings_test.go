package config

import (
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestLoadSettingsDefaults(t *testing.T) {
	t.Setenv("ENVIRONMENT", "development")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("STORAGE_BACKEND", "local")
	t.Setenv("APP_BASE_URL", "http://journal.test/")
	t.Setenv("ALLOWED_ORIGINS", "http://a.test, http://b.test")

	s, err := LoadSettings()
	require.NoError(t, err)
	assert.Equal(t, "http://journal.test", s.BaseURL)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, s.AllowedOrigins)
	assert.NotEmpty(t, s.JWTSecret)
	assert.Equal(t, 10, s.LoginTokenDays)
	assert.Equal(t, 24*time.Hour, s.JWTExpiration())
	assert.Equal(t, 25, s.DBMaxOpenConns)
	assert.Equal(t, 10, s.DBMaxIdleConns)
	assert.Equal(t, 5, s.PasswordResetRatePerMinute)
}

func TestConfigurePool(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	configurePool(sqlDB, &Settings{DBDriver: "mysql", DBMaxOpenConns: 25, DBMaxIdleConns: 10, DBConnMaxLifetimeMin: 30})
	assert.Equal(t, 25, sqlDB.Stats().MaxOpenConnections)

	configurePool(sqlDB, &Settings{DBDriver: "sqlite", DBMaxOpenConns: 25})
	assert.Equal(t, 1, sqlDB.Stats().MaxOpenConnections)
}

func TestValidateSettings(t *testing.T) {
	s := &Settings{Environment: "production", StorageBackend: "local"}
	assert.Error(t, s.Validate())

	s = &Settings{Environment: "production", JWTSecret: "secret", StorageBackend: "s3"}
	assert.Error(t, s.Validate())

	s = &Settings{StorageBackend: "minio"}
	require.NoError(t, s.Validate())
	assert.Equal(t, "development-only-secret", s.JWTSecret)
	assert.EqualValues(t, 50*1024*1024, s.MaxUploadBytes())
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, "debug", parseLogLevel("DEBUG").String())
	assert.Equal(t, "info", parseLogLevel("nonsense").String())
}
