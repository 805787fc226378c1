package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_DefaultsAndEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
server:
  host: 127.0.0.1
  port: 8080
  grpc_port: 9090
database:
  host: db.internal
  user: rentloop
  database: rentloop
jwt:
  secret: `+testSecret+`
`)
	t.Setenv("DB_HOST", "db.override")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, DriverPostgres, cfg.Database.Driver)
	assert.Equal(t, "db.override", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "disable", cfg.Database.SSLMode)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, EmailProviderLog, cfg.Email.Provider)
	assert.Equal(t, time.Hour, cfg.AccessTokenTTL())
	assert.Equal(t, "0 */15 * * * *", cfg.Scheduler.ReconcileAvailability)
	assert.Equal(t, "127.0.0.1:8080", cfg.GetServerAddress())
	assert.Equal(t, "127.0.0.1:9090", cfg.GetGRPCAddress())
	assert.Equal(t, "postgres://rentloop:@db.override:5432/rentloop?sslmode=disable", cfg.GetDatabaseConnectionString())
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server:   ServerConfig{Port: 8080},
			Database: DatabaseConfig{Driver: DriverMemory},
			JWT:      JWTConfig{Secret: testSecret},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"memory needs no host", func(c *Config) {}, ""},
		{"bad port", func(c *Config) { c.Server.Port = 0 }, "invalid server port"},
		{"same ports", func(c *Config) { c.Server.GRPCPort = 8080 }, "must differ"},
		{"postgres needs host", func(c *Config) { c.Database.Driver = DriverPostgres }, "database host is required"},
		{"unknown driver", func(c *Config) { c.Database.Driver = "sqlite" }, "unknown database driver"},
		{"short secret", func(c *Config) { c.JWT.Secret = "short" }, "at least 32"},
		{"sendgrid needs key", func(c *Config) { c.Email.Provider = EmailProviderSendGrid }, "api key"},
		{"smtp needs host", func(c *Config) { c.Email.Provider = EmailProviderSMTP }, "smtp host"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestGetSecurityLevel(t *testing.T) {
	assert.Equal(t, SecurityPublic, GetSecurityLevel(RouteLogin))
	assert.Equal(t, SecurityPublic, GetSecurityLevel(RouteListItems))
	assert.Equal(t, SecurityAccess, GetSecurityLevel(RouteApproveRental))
	assert.Equal(t, SecurityPublic, GetSecurityLevel(RouteGetCategory))
	assert.Equal(t, SecurityAccess, GetSecurityLevel(RouteUpdateCart))
	assert.Equal(t, SecurityAccess, GetSecurityLevel("SomethingNew"))
}
