package config

import (
	"fmt"
	"io"
	"os"
	"reflect"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"golang.org/x/term"
)

// EnvPrefix is prepended to every environment variable key.
const EnvPrefix = "JOINPATH"

var defineFlagsOnce sync.Once

// Load loads configuration from multiple sources with the following precedence:
// 1. Explicit overrides (v.Set) for the password prompt and secret files
// 2. Command line flags
// 3. Environment variables
// 4. Config file
// 5. Default values
func Load() (*Config, error) {
	defineFlagsOnce.Do(func() { DefineFlags(pflag.CommandLine) })
	if !pflag.Parsed() {
		pflag.Parse()
	}
	return LoadFlags(pflag.CommandLine)
}

// LoadFlags loads configuration using an already parsed flag set.
func LoadFlags(flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	cfgPath, _ := flags.GetString("config")
	if cfgPath != "" {
		v.SetConfigFile(cfgPath)
	} else {
		v.SetConfigName("joinpath")
		v.SetConfigType("yaml")
		v.AddConfigPath("/etc/joinpath/")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		if cfgPath != "" {
			return nil, fmt.Errorf("failed to read config file %q: %w", cfgPath, err)
		}
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Env vars: JOINPATH_DATABASE_POOL_MAX_OPEN
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	bindChangedFlags(v, flags)
	if err := validateSingleStdinSource(v); err != nil {
		return nil, err
	}

	if err := resolveSecrets(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.UnmarshalExact(
		&cfg,
		viper.DecodeHook(
			mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				stringToStringSliceHookFunc(","),
			),
		),
	); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// resolveSecrets fills DSN, password and admin token values from their file
// or prompt sources when the value itself is unset.
func resolveSecrets(v *viper.Viper) error {
	if v.GetString("database.dsn") == "" && v.GetString("database.dsn_file") != "" {
		dsn, err := readSecretFile(v.GetString("database.dsn_file"))
		if err != nil {
			return fmt.Errorf("failed to read database DSN file: %w", err)
		}
		v.Set("database.dsn", dsn)
	}

	if v.GetString("database.password") == "" && v.GetString("database.password_file") != "" {
		pwd, err := readSecretFile(v.GetString("database.password_file"))
		if err != nil {
			return fmt.Errorf("failed to read database password file: %w", err)
		}
		v.Set("database.password", pwd)
	}
	if v.GetString("database.password") == "" && v.GetBool("database.password_prompt") {
		pwd, err := promptPassword()
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
		v.Set("database.password", pwd)
	}

	if v.GetString("server.admin_token") == "" && v.GetString("server.admin_token_file") != "" {
		tokenPath := v.GetString("server.admin_token_file")
		token, err := readSecretFile(tokenPath)
		if err != nil {
			return fmt.Errorf("failed to read admin token file: %w", err)
		}
		if token == "" {
			return fmt.Errorf("admin token file %q is empty", tokenPath)
		}
		v.Set("server.admin_token", token)
	}
	return nil
}

// bindChangedFlags copies only explicitly-set flags into Viper,
// preserving precedence: flags > env > file > defaults.
func bindChangedFlags(v *viper.Viper, flags *pflag.FlagSet) {
	flags.Visit(func(f *pflag.Flag) {
		if f.Name == "config" || f.Name == "version" {
			return
		}

		switch f.Value.Type() {
		case "string":
			val, _ := flags.GetString(f.Name)
			v.Set(f.Name, val)
		case "int":
			val, _ := flags.GetInt(f.Name)
			v.Set(f.Name, val)
		case "bool":
			val, _ := flags.GetBool(f.Name)
			v.Set(f.Name, val)
		case "float64":
			val, _ := flags.GetFloat64(f.Name)
			v.Set(f.Name, val)
		case "duration":
			val, _ := flags.GetDuration(f.Name)
			v.Set(f.Name, val)
		case "stringSlice":
			val, _ := flags.GetStringSlice(f.Name)
			v.Set(f.Name, val)
		default:
			v.Set(f.Name, f.Value.String())
		}
	})
}

// DefineFlags registers every configuration flag on flags using canonical
// snake_case keys.
func DefineFlags(flags *pflag.FlagSet) {
	flags.StringP("config", "c", "", "Path to config file (default: joinpath.yaml in . or /etc/joinpath)")

	flags.String("model.source", "", "Model source (file, database)")
	flags.String("model.path", "", "Path to the YAML join model")
	flags.Bool("model.watch", false, "Reload the model when the file changes")
	flags.Duration("model.refresh_interval", 0, "Polling interval for model refresh (0 disables polling)")
	flags.Bool("model.validate", false, "Reject models with incomplete relationships")
	flags.Bool("model.singularize", false, "Singularize logical table names during introspection")
	flags.Int("model.max_path_length", 0, "Longest join path considered by the search (0 = unlimited)")

	flags.String("database.dsn", "", "Complete MySQL DSN (user:pass@tcp(host:port)/db)")
	flags.String("database.dsn_file", "", "Path to file containing database DSN (use @- for stdin)")
	flags.String("database.host", "", "Database host")
	flags.Int("database.port", 0, "Database port")
	flags.String("database.user", "", "Database user")
	flags.String("database.password", "", "Database password")
	flags.String("database.password_file", "", "Path to file containing database password (use @- for stdin)")
	flags.Bool("database.password_prompt", false, "Prompt for database password securely")
	flags.String("database.database", "", "Database name")
	flags.Int("database.pool.max_open", 0, "Maximum open database connections")
	flags.Int("database.pool.max_idle", 0, "Maximum idle connections in pool")
	flags.Duration("database.pool.max_lifetime", 0, "Connection max lifetime (e.g. 5m, 30s)")
	flags.Duration("database.connection_timeout", 0, "Max time to wait for database on startup (0 = fail immediately)")
	flags.Duration("database.query_timeout", 0, "Timeout applied to executed queries")

	flags.Int("server.port", 0, "HTTP server port")
	flags.Bool("server.graphiql_enabled", false, "Serve the GraphiQL UI on /graphql")
	flags.Int("server.max_limit", 0, "Maximum rows returned by execute")
	flags.Int("server.default_limit", 0, "Row limit used when execute has no limit")
	flags.Int("server.max_tables", 0, "Maximum tables a generated query may join (0 = unlimited)")
	flags.Duration("server.read_timeout", 0, "HTTP read timeout")
	flags.Duration("server.write_timeout", 0, "HTTP write timeout")
	flags.Duration("server.idle_timeout", 0, "HTTP idle timeout")
	flags.Duration("server.shutdown_timeout", 0, "Graceful shutdown timeout")
	flags.Duration("server.health_check_timeout", 0, "Database ping timeout for /health")
	flags.Bool("server.cors_enabled", false, "Enable CORS")
	flags.StringSlice("server.cors_allowed_origins", nil, "Allowed CORS origins")
	flags.StringSlice("server.cors_allowed_methods", nil, "Allowed CORS methods")
	flags.StringSlice("server.cors_allowed_headers", nil, "Allowed CORS headers")
	flags.Bool("server.cors_allow_credentials", false, "Allow credentialed CORS requests")
	flags.Int("server.cors_max_age", 0, "CORS preflight max age in seconds")
	flags.Bool("server.rate_limit_enabled", false, "Rate limit /graphql requests")
	flags.Float64("server.rate_limit_rps", 0, "Sustained /graphql requests per second")
	flags.Int("server.rate_limit_burst", 0, "Requests allowed in a burst above the sustained rate")
	flags.Bool("server.admin_reload_enabled", false, "Expose POST /admin/reload")
	flags.String("server.admin_token", "", "Bearer token required by /admin/reload")
	flags.String("server.admin_token_file", "", "Path to file containing the admin token (use @- for stdin)")

	flags.String("observability.service_name", "", "Service name reported to telemetry backends")
	flags.String("observability.service_version", "", "Service version reported to telemetry backends")
	flags.String("observability.environment", "", "Deployment environment")
	flags.Bool("observability.metrics_enabled", false, "Enable Prometheus metrics on /metrics")
	flags.Bool("observability.tracing_enabled", false, "Enable OTLP tracing")
	flags.Float64("observability.trace_sample_ratio", 0, "Trace sampling ratio (0..1)")
	flags.String("observability.logging.level", "", "Log level (debug, info, warn, error)")
	flags.String("observability.logging.format", "", "Log format (json, text)")
	flags.Bool("observability.logging.exports_enabled", false, "Export logs over OTLP")
	flags.String("observability.otlp.endpoint", "", "OTLP endpoint")
	flags.String("observability.otlp.protocol", "", "OTLP protocol (grpc, http/protobuf)")
	flags.Bool("observability.otlp.insecure", false, "Disable TLS for OTLP")

	flags.StringSlice("schema_filters.allow_tables", nil, "Table globs to keep")
	flags.StringSlice("schema_filters.deny_tables", nil, "Table globs to drop")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("model.source", ModelSourceFile)
	v.SetDefault("model.path", "joinpath-model.yaml")
	v.SetDefault("model.watch", false)
	v.SetDefault("model.refresh_interval", time.Duration(0))
	v.SetDefault("model.validate", true)
	v.SetDefault("model.singularize", false)
	v.SetDefault("model.max_path_length", 0)

	v.SetDefault("database.dsn", "")
	v.SetDefault("database.dsn_file", "")
	v.SetDefault("database.host", "")
	v.SetDefault("database.port", 3306)
	v.SetDefault("database.user", "root")
	v.SetDefault("database.password", "")
	v.SetDefault("database.password_file", "")
	v.SetDefault("database.password_prompt", false)
	v.SetDefault("database.database", "")
	v.SetDefault("database.pool.max_open", 10)
	v.SetDefault("database.pool.max_idle", 5)
	v.SetDefault("database.pool.max_lifetime", 5*time.Minute)
	v.SetDefault("database.connection_timeout", 30*time.Second)
	v.SetDefault("database.query_timeout", 30*time.Second)

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.graphiql_enabled", false)
	v.SetDefault("server.max_limit", 10000)
	v.SetDefault("server.default_limit", 100)
	v.SetDefault("server.max_tables", 0)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)
	v.SetDefault("server.shutdown_timeout", 30*time.Second)
	v.SetDefault("server.health_check_timeout", 2*time.Second)
	v.SetDefault("server.cors_enabled", false)
	v.SetDefault("server.cors_allowed_origins", []string{})
	v.SetDefault("server.cors_allowed_methods", []string{"GET", "POST", "OPTIONS"})
	v.SetDefault("server.cors_allowed_headers", []string{"Content-Type", "Authorization"})
	v.SetDefault("server.cors_allow_credentials", false)
	v.SetDefault("server.cors_max_age", 86400)
	v.SetDefault("server.rate_limit_enabled", false)
	v.SetDefault("server.rate_limit_rps", 0.0)
	v.SetDefault("server.rate_limit_burst", 0)
	v.SetDefault("server.admin_reload_enabled", false)
	v.SetDefault("server.admin_token", "")
	v.SetDefault("server.admin_token_file", "")

	v.SetDefault("observability.service_name", "joinpath")
	v.SetDefault("observability.service_version", "dev")
	v.SetDefault("observability.environment", "development")
	v.SetDefault("observability.metrics_enabled", true)
	v.SetDefault("observability.tracing_enabled", false)
	v.SetDefault("observability.trace_sample_ratio", 1.0)
	v.SetDefault("observability.logging.level", "info")
	v.SetDefault("observability.logging.format", "json")
	v.SetDefault("observability.logging.exports_enabled", false)
	v.SetDefault("observability.otlp.endpoint", "localhost:4317")
	v.SetDefault("observability.otlp.protocol", "grpc")
	v.SetDefault("observability.otlp.insecure", false)
	v.SetDefault("observability.otlp.tls_cert_file", "")
	v.SetDefault("observability.otlp.tls_client_cert_file", "")
	v.SetDefault("observability.otlp.tls_client_key_file", "")
	v.SetDefault("observability.otlp.headers", map[string]string{})
	v.SetDefault("observability.otlp.timeout", 10*time.Second)
	v.SetDefault("observability.otlp.compression", "gzip")
	v.SetDefault("observability.otlp.retry_enabled", true)

	v.SetDefault("schema_filters.allow_tables", []string{})
	v.SetDefault("schema_filters.deny_tables", []string{})
	v.SetDefault("schema_filters.allow_columns", map[string][]string{})
	v.SetDefault("schema_filters.deny_columns", map[string][]string{})
}

// promptPassword prompts the user for a password without echoing to terminal.
func promptPassword() (string, error) {
	fmt.Print("Enter database password: ")
	bytePassword, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", err
	}
	return string(bytePassword), nil
}

func readSecretFile(path string) (string, error) {
	var data []byte
	var err error

	if path == "@-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

func validateSingleStdinSource(v *viper.Viper) error {
	stdinBackedKeys := []string{
		"database.dsn_file",
		"database.password_file",
		"server.admin_token_file",
	}

	var configured []string
	for _, key := range stdinBackedKeys {
		if strings.TrimSpace(v.GetString(key)) == "@-" {
			configured = append(configured, key)
		}
	}

	if len(configured) > 1 {
		return fmt.Errorf(
			"multiple stdin-backed file settings use @- (%s); only one @- source is allowed",
			strings.Join(configured, ", "),
		)
	}
	return nil
}

func stringToStringSliceHookFunc(sep string) mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if from.Kind() != reflect.String || to != reflect.TypeOf([]string{}) {
			return data, nil
		}

		raw := strings.TrimSpace(data.(string))
		if raw == "" {
			return []string{}, nil
		}

		parts := strings.Split(raw, sep)
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts, nil
	}
}
