package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"PORT", "STORE", "JWT_ACCESS_EXPIRY", "STORAGE_TYPE", "ENV", "DB_MAX_CONNS", "DB_MIN_CONNS", "RECONCILE_INTERVAL", "CORS_ALLOWED_ORIGINS"} {
		t.Setenv(key, "")
	}
	t.Setenv("PORT", "8080")
	t.Setenv("STORE", "postgres")
	t.Setenv("STORAGE_TYPE", "local")
	t.Setenv("ENV", "development")
	t.Setenv("DATABASE_URL", "postgres://localhost/panglobal")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, ,https://b.example")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, StorePostgres, cfg.Server.Store)
	assert.Equal(t, time.Hour, cfg.JWT.AccessExpiry)
	assert.Equal(t, int32(25), cfg.Database.MaxConns)
	assert.Equal(t, int32(5), cfg.Database.MinConns)
	assert.Zero(t, cfg.Reconcile.Interval)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
}

func TestLoad_InvalidDuration(t *testing.T) {
	t.Setenv("JWT_ACCESS_EXPIRY", "soon")
	_, err := Load()
	assert.ErrorContains(t, err, "JWT_ACCESS_EXPIRY")
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Server:   ServerConfig{Env: "development", Store: StoreMemory},
			Database: DatabaseConfig{MaxConns: 10, MinConns: 2},
			JWT:      JWTConfig{Secret: defaultJWTSecret},
			Storage:  StorageConfig{Type: "local"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "memory store is valid", mutate: func(c *Config) {}},
		{name: "unknown store", mutate: func(c *Config) { c.Server.Store = "mongo" }, wantErr: "unknown STORE"},
		{name: "postgres without url", mutate: func(c *Config) { c.Server.Store = StorePostgres }, wantErr: "DATABASE_URL"},
		{name: "default secret in production", mutate: func(c *Config) { c.Server.Env = "production" }, wantErr: "JWT_SECRET"},
		{name: "r2 without bucket", mutate: func(c *Config) { c.Storage.Type = "r2" }, wantErr: "R2_BUCKET_NAME"},
		{name: "min above max", mutate: func(c *Config) { c.Database.MinConns = 20 }, wantErr: "DB_MIN_CONNS"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}
