package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		App:     AppConfig{Environment: "development"},
		Logger:  LoggerConfig{Level: "info"},
		Storage: StorageConfig{Driver: DriverMemory, Seed: true},
		RateLimit: RateLimitConfig{
			Enabled:  true,
			Requests: 30,
			Interval: time.Minute,
			Burst:    10,
		},
	}
}

func TestValidate_ValidConfig(t *testing.T) {
	assert.NoError(t, validConfig().Validate())
}

func TestValidate_AllEnvironments(t *testing.T) {
	tests := []struct {
		env   string
		valid bool
	}{
		{"development", true},
		{"staging", true},
		{"production", true},
		{"test", false},
		{"", false},
		{"DEVELOPMENT", false}, // case sensitive
	}

	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			cfg := validConfig()
			cfg.App.Environment = tt.env

			err := cfg.Validate()
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestValidate_AllLogLevels(t *testing.T) {
	tests := []struct {
		level string
		valid bool
	}{
		{"debug", true},
		{"info", true},
		{"warn", true},
		{"error", true},
		{"DEBUG", true}, // case insensitive
		{"trace", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			cfg := validConfig()
			cfg.Logger.Level = tt.level

			err := cfg.Validate()
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestValidate_StorageDrivers(t *testing.T) {
	tests := []struct {
		name   string
		driver string
		path   string
		valid  bool
	}{
		{"memory without path", DriverMemory, "", true},
		{"badger with path", DriverBadger, "/data", true},
		{"sqlite with path", DriverSQLite, "/data/library.db", true},
		{"badger without path", DriverBadger, "", false},
		{"sqlite without path", DriverSQLite, "", false},
		{"unknown driver", "postgres", "/data", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			cfg.Storage.Driver = tt.driver
			cfg.Storage.Path = tt.path

			err := cfg.Validate()
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestValidate_RateLimit(t *testing.T) {
	cfg := validConfig()
	cfg.RateLimit.Requests = 0
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.RateLimit.Burst = -1
	assert.Error(t, cfg.Validate())

	// Limits are ignored when rate limiting is off.
	cfg.RateLimit.Enabled = false
	assert.NoError(t, cfg.Validate())
}

func TestExpandStoragePath(t *testing.T) {
	homeDir, err := os.UserHomeDir()
	require.NoError(t, err)

	tests := []struct {
		name   string
		driver string
		path   string
		want   string
	}{
		{"memory ignores path", DriverMemory, "", ""},
		{"badger default", DriverBadger, "", filepath.Join(homeDir, "Library", "data")},
		{"sqlite default", DriverSQLite, "", filepath.Join(homeDir, "Library", "library.db")},
		{"tilde expansion", DriverBadger, "~/lib-data", filepath.Join(homeDir, "lib-data")},
		{"absolute path", DriverSQLite, "/var/lib/library.db", "/var/lib/library.db"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			cfg.Storage.Driver = tt.driver
			cfg.Storage.Path = tt.path

			require.NoError(t, cfg.expandStoragePath())
			assert.Equal(t, tt.want, cfg.Storage.Path)
		})
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	t.Chdir(t.TempDir()) // no stray .env

	cfg, err := LoadConfig(nil)
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.App.Environment)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 60*time.Second, cfg.Server.IdleTimeout)
	assert.Equal(t, []string{"*"}, cfg.Server.CORSOrigins)
	assert.Equal(t, DriverMemory, cfg.Storage.Driver)
	assert.True(t, cfg.Storage.Seed)
	assert.True(t, cfg.RateLimit.Enabled)
	assert.Equal(t, time.Minute, cfg.RateLimit.Interval)
}

func TestLoadConfig_FlagsOverrideEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("SERVER_PORT", "9000")
	t.Setenv("LIBRARY_SEED", "false")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")

	dbPath := filepath.Join(t.TempDir(), "library.db")
	cfg, err := LoadConfig([]string{"--port", "9100", "--storage-driver", "SQLite", "--storage-path", dbPath})
	require.NoError(t, err)

	assert.Equal(t, "9100", cfg.Server.Port)
	assert.Equal(t, DriverSQLite, cfg.Storage.Driver)
	assert.Equal(t, dbPath, cfg.Storage.Path)
	assert.False(t, cfg.Storage.Seed)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.CORSOrigins)
}

func TestLoadConfig_InvalidDuration(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("SERVER_READ_TIMEOUT", "soon")

	_, err := LoadConfig(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read timeout")
}

func TestGetConfigValue_Precedence(t *testing.T) {
	// Test flag value takes priority.
	result := getConfigValue("flag-value", "ENV_KEY", "default-value")
	assert.Equal(t, "flag-value", result)

	t.Setenv("TEST_ENV_KEY", "env-value")
	result = getConfigValue("", "TEST_ENV_KEY", "default-value")
	assert.Equal(t, "env-value", result)

	result = getConfigValue("", "NONEXISTENT_KEY", "default-value")
	assert.Equal(t, "default-value", result)
}

func TestLoadEnvFile_ValidFile(t *testing.T) {
	envFile := filepath.Join(t.TempDir(), ".env")

	content := `# Test env file
ENV=staging
LOG_LEVEL=debug
# Comment line
QUOTED_VALUE="some value"
SINGLE_QUOTED='another value'
`
	require.NoError(t, os.WriteFile(envFile, []byte(content), 0o644))

	// t.Setenv registers cleanup; Unsetenv clears the value for the loader.
	for _, key := range []string{"ENV", "LOG_LEVEL", "QUOTED_VALUE", "SINGLE_QUOTED"} {
		t.Setenv(key, "")
		os.Unsetenv(key) //nolint:errcheck // Test setup
	}

	require.NoError(t, loadEnvFile(envFile))

	assert.Equal(t, "staging", os.Getenv("ENV"))
	assert.Equal(t, "debug", os.Getenv("LOG_LEVEL"))
	assert.Equal(t, "some value", os.Getenv("QUOTED_VALUE"))
	assert.Equal(t, "another value", os.Getenv("SINGLE_QUOTED"))
}

func TestLoadEnvFile_InvalidFormat(t *testing.T) {
	envFile := filepath.Join(t.TempDir(), ".env")

	content := `VALID_KEY=valid_value
INVALID LINE WITHOUT EQUALS
ANOTHER_VALID=value
`
	require.NoError(t, os.WriteFile(envFile, []byte(content), 0o644))

	err := loadEnvFile(envFile)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestLoadEnvFile_NonExistentFile(t *testing.T) {
	err := loadEnvFile("/nonexistent/file/.env")
	assert.Error(t, err)
}

func TestLoadEnvFile_ExistingEnvVarsNotOverwritten(t *testing.T) {
	t.Setenv("TEST_VAR", "original-value")

	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte(`TEST_VAR=new-value`), 0o644))

	require.NoError(t, loadEnvFile(envFile))

	assert.Equal(t, "original-value", os.Getenv("TEST_VAR"))
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, splitList(" a, ,b "))
	assert.Nil(t, splitList(""))
}
