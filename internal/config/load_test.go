package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parsedFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	flags := pflag.NewFlagSet("joinpath-test", pflag.ContinueOnError)
	DefineFlags(flags)
	require.NoError(t, flags.Parse(args))
	return flags
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadFlags_Defaults(t *testing.T) {
	cfg, err := LoadFlags(parsedFlags(t))
	require.NoError(t, err)

	assert.Equal(t, ModelSourceFile, cfg.Model.Source)
	assert.True(t, cfg.Model.Validate)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 100, cfg.Server.DefaultLimit)
	assert.Equal(t, 30*time.Second, cfg.Database.QueryTimeout)
	assert.Equal(t, "joinpath", cfg.Observability.ServiceName)
	assert.Equal(t, []string{"GET", "POST", "OPTIONS"}, cfg.Server.CORSAllowedMethods)
	assert.False(t, cfg.UsesDatabase())
	assert.False(t, cfg.Validate().HasErrors())
}

func TestLoadFlags_Precedence(t *testing.T) {
	cfgPath := writeFile(t, "joinpath.yaml", `
model:
  path: models/retail.yaml
  max_path_length: 4
server:
  port: 7000
  max_limit: 250
  read_timeout: 3s
observability:
  logging:
    level: debug
`)
	t.Setenv("JOINPATH_SERVER_MAX_LIMIT", "500")
	t.Setenv("JOINPATH_SERVER_CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")

	cfg, err := LoadFlags(parsedFlags(t, "-c", cfgPath, "--server.port", "9090"))
	require.NoError(t, err)

	assert.Equal(t, "models/retail.yaml", cfg.Model.Path)
	assert.Equal(t, 4, cfg.Model.MaxPathLength)
	assert.Equal(t, 9090, cfg.Server.Port, "flag beats file")
	assert.Equal(t, 500, cfg.Server.MaxLimit, "env beats file")
	assert.Equal(t, 3*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "debug", cfg.Observability.Logging.Level)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.CORSAllowedOrigins)
}

func TestLoadFlags_UnknownKeyRejected(t *testing.T) {
	cfgPath := writeFile(t, "joinpath.yaml", "server:\n  graphql_max_depth: 5\n")

	_, err := LoadFlags(parsedFlags(t, "--config", cfgPath))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to unmarshal config")
}

func TestLoadFlags_MissingExplicitConfigFile(t *testing.T) {
	_, err := LoadFlags(parsedFlags(t, "--config", filepath.Join(t.TempDir(), "absent.yaml")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoadFlags_SecretFiles(t *testing.T) {
	passwordPath := writeFile(t, "password", "s3cret\n")
	tokenPath := writeFile(t, "token", "  reload-token  ")

	cfg, err := LoadFlags(parsedFlags(t,
		"--database.host", "db",
		"--database.password_file", passwordPath,
		"--server.admin_token_file", tokenPath,
	))
	require.NoError(t, err)

	assert.Equal(t, "s3cret", cfg.Database.Password)
	assert.Equal(t, "reload-token", cfg.Server.AdminToken)
	assert.True(t, cfg.UsesDatabase())
}

func TestLoadFlags_EmptyAdminTokenFile(t *testing.T) {
	tokenPath := writeFile(t, "token", "\n")

	_, err := LoadFlags(parsedFlags(t, "--server.admin_token_file", tokenPath))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "is empty")
}

func TestValidateSingleStdinSource(t *testing.T) {
	t.Run("one stdin source", func(t *testing.T) {
		v := viper.New()
		v.Set("database.dsn_file", "@-")
		v.Set("database.password_file", "/tmp/password")
		assert.NoError(t, validateSingleStdinSource(v))
	})

	t.Run("multiple stdin sources", func(t *testing.T) {
		v := viper.New()
		v.Set("database.dsn_file", "@-")
		v.Set("server.admin_token_file", " @- ")

		err := validateSingleStdinSource(v)
		require.Error(t, err)
		assert.True(t, strings.Contains(err.Error(), "database.dsn_file, server.admin_token_file"))
	})
}
