package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFlags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("config", "", "")
	fs.String("instance", "", "")
	fs.String("api-key", "", "")
	fs.String("login", "", "")
	fs.Bool("restrict-login", false, "")
	fs.Duration("timeout", 0, "")
	fs.StringP("output", "o", "", "")
	return fs
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bugzilla.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, OutputTable, cfg.Output)
	assert.Equal(t, "en", cfg.Lang)
	assert.Empty(t, cfg.File)
	assert.Empty(t, cfg.Instance)
}

func TestLoad_Precedence(t *testing.T) {
	path := writeFile(t, `
instance: https://file.example.com
login: file@example.com
password: filepass
timeout: 5s
output: yaml
`)

	cfg, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "https://file.example.com", cfg.Instance)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
	assert.Equal(t, path, cfg.File)

	t.Setenv("BUGZILLA_INSTANCE", "https://env.example.com")
	t.Setenv("BUGZILLA_LOG_LEVEL", "debug")
	t.Setenv("BUGZILLA_LANG", "ja")
	cfg, err = Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "https://env.example.com", cfg.Instance)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "ja", cfg.Lang)
	assert.Equal(t, "file@example.com", cfg.Login)

	fs := testFlags()
	require.NoError(t, fs.Parse([]string{"--instance", "https://flag.example.com", "--timeout", "1m", "-o", "json", "--restrict-login"}))
	cfg, err = Load(path, fs)
	require.NoError(t, err)
	assert.Equal(t, "https://flag.example.com", cfg.Instance)
	assert.Equal(t, time.Minute, cfg.Timeout)
	assert.Equal(t, OutputJSON, cfg.Output)
	assert.True(t, cfg.RestrictLogin)
	assert.Equal(t, "debug", cfg.LogLevel, "unset flags must not override env")
	assert.Equal(t, "filepass", cfg.Password)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), nil)
	assert.ErrorContains(t, err, "read config file")
}

func TestValidate(t *testing.T) {
	base := Config{Instance: "https://bugzilla.example.com", Output: OutputTable, LogLevel: "info", Timeout: time.Second}
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "no instance", mutate: func(c *Config) { c.Instance = "" }, wantErr: "instance is required"},
		{name: "bad output", mutate: func(c *Config) { c.Output = "xml" }, wantErr: `unknown output format "xml"`},
		{name: "bad level", mutate: func(c *Config) { c.LogLevel = "loud" }, wantErr: "log_level"},
		{name: "negative timeout", mutate: func(c *Config) { c.Timeout = -time.Second }, wantErr: "timeout must not be negative"},
		{name: "key and login", mutate: func(c *Config) { c.APIKey, c.Login = "k", "l" }, wantErr: "mutually exclusive"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestAuth(t *testing.T) {
	assert.Equal(t, "api_key", (&Config{APIKey: "k"}).Auth().Kind())
	assert.Equal(t, "password", (&Config{Login: "l", Password: "p"}).Auth().Kind())
	assert.Equal(t, "anonymous", (&Config{}).Auth().Kind())

	assert.True(t, (&Config{Login: "l"}).NeedsPassword())
	assert.False(t, (&Config{Login: "l", Password: "p"}).NeedsPassword())
}

func TestLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, (&Config{LogLevel: "debug"}).Level())
	assert.Equal(t, zerolog.WarnLevel, (&Config{LogLevel: ""}).Level())
	assert.Equal(t, zerolog.WarnLevel, (&Config{LogLevel: "bogus"}).Level())
}
