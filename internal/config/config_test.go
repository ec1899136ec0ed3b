package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Database.Type)
	assert.Equal(t, "memory", cfg.Cache.Type)
	assert.Equal(t, 80, cfg.Game.ReelLength)
	assert.Equal(t, 25, cfg.Game.ReelMarginStart)
	assert.Equal(t, 7, cfg.Game.ReelMarginEnd)
	assert.Equal(t, 25, cfg.History.RecentLimit)
	assert.Equal(t, 24*time.Hour, cfg.App.SessionTTL)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("DB_TYPE", "postgres")
	t.Setenv("DB_POSTGRES_DRIVER", "pgx")
	t.Setenv("REEL_LENGTH", "40")
	t.Setenv("SERVER_CORS_ORIGINS", "https://a.example,https://b.example")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:9090", cfg.Server.Address())
	assert.Equal(t, "postgres", cfg.Database.Type)
	assert.Equal(t, "pgx", cfg.Database.PostgresDriver)
	assert.Equal(t, 40, cfg.Game.ReelLength)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.CORSOrigins)
}

func TestValidate(t *testing.T) {
	t.Setenv("DB_TYPE", "mongodb")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("DB_TYPE", "sqlite")
	t.Setenv("HISTORY_BUFFERED", "true")
	_, err = Load()
	assert.Error(t, err)

	t.Setenv("CACHE_TYPE", "redis")
	_, err = Load()
	assert.NoError(t, err)
}

func TestDSNs(t *testing.T) {
	d := DatabaseConfig{Host: "db", Name: "caseopener", User: "app", Password: "p@ss", SSLMode: "disable"}
	assert.Equal(t, "postgres://app:p%40ss@db:5432/caseopener?sslmode=disable", d.PostgresDSN())
	assert.Contains(t, d.MySQLDSN(), "app:p@ss@tcp(db:3306)/caseopener")
	assert.Contains(t, d.MySQLDSN(), "parseTime=true")

	d.Port = 6543
	assert.Contains(t, d.PostgresDSN(), "db:6543")
}
