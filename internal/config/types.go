package config

import (
	"time"

	"joinpath/internal/schemafilter"
)

// Model sources.
const (
	ModelSourceFile     = "file"
	ModelSourceDatabase = "database"
)

// Config holds all configuration for the joinpath server.
type Config struct {
	Model         ModelConfig         `mapstructure:"model"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Server        ServerConfig        `mapstructure:"server"`
	Observability ObservabilityConfig `mapstructure:"observability"`
	SchemaFilters schemafilter.Config `mapstructure:"schema_filters"`
}

// ModelConfig controls where the join model comes from and how it is kept fresh.
type ModelConfig struct {
	Source          string        `mapstructure:"source"` // file, database
	Path            string        `mapstructure:"path"`
	Watch           bool          `mapstructure:"watch"`
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
	Validate        bool          `mapstructure:"validate"`
	Singularize     bool          `mapstructure:"singularize"`
	MaxPathLength   int           `mapstructure:"max_path_length"`
}

// DatabaseConfig holds database connection parameters.
// A database is optional when the model comes from a file; without one the
// execute query is not exposed.
type DatabaseConfig struct {
	DSN               string        `mapstructure:"dsn"`
	DSNFile           string        `mapstructure:"dsn_file"`
	Host              string        `mapstructure:"host"`
	Port              int           `mapstructure:"port"`
	User              string        `mapstructure:"user"`
	Password          string        `mapstructure:"password"`
	PasswordFile      string        `mapstructure:"password_file"`
	PasswordPrompt    bool          `mapstructure:"password_prompt"`
	Database          string        `mapstructure:"database"`
	Pool              PoolConfig    `mapstructure:"pool"`
	ConnectionTimeout time.Duration `mapstructure:"connection_timeout"`
	QueryTimeout      time.Duration `mapstructure:"query_timeout"`
}

// PoolConfig holds connection pool parameters.
type PoolConfig struct {
	MaxOpen     int           `mapstructure:"max_open"`
	MaxIdle     int           `mapstructure:"max_idle"`
	MaxLifetime time.Duration `mapstructure:"max_lifetime"`
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Port                 int           `mapstructure:"port"`
	GraphiQLEnabled      bool          `mapstructure:"graphiql_enabled"`
	MaxLimit             int           `mapstructure:"max_limit"`
	DefaultLimit         int           `mapstructure:"default_limit"`
	MaxTables            int           `mapstructure:"max_tables"`
	ReadTimeout          time.Duration `mapstructure:"read_timeout"`
	WriteTimeout         time.Duration `mapstructure:"write_timeout"`
	IdleTimeout          time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout      time.Duration `mapstructure:"shutdown_timeout"`
	HealthCheckTimeout   time.Duration `mapstructure:"health_check_timeout"`
	CORSEnabled          bool          `mapstructure:"cors_enabled"`
	CORSAllowedOrigins   []string      `mapstructure:"cors_allowed_origins"`
	CORSAllowedMethods   []string      `mapstructure:"cors_allowed_methods"`
	CORSAllowedHeaders   []string      `mapstructure:"cors_allowed_headers"`
	CORSAllowCredentials bool          `mapstructure:"cors_allow_credentials"`
	CORSMaxAge           int           `mapstructure:"cors_max_age"`
	RateLimitEnabled     bool          `mapstructure:"rate_limit_enabled"`
	RateLimitRPS         float64       `mapstructure:"rate_limit_rps"`
	RateLimitBurst       int           `mapstructure:"rate_limit_burst"`
	AdminReloadEnabled   bool          `mapstructure:"admin_reload_enabled"`
	AdminToken           string        `mapstructure:"admin_token"`
	AdminTokenFile       string        `mapstructure:"admin_token_file"`
}

// LoggingConfig holds logging parameters.
type LoggingConfig struct {
	Level          string `mapstructure:"level"`  // debug, info, warn, error
	Format         string `mapstructure:"format"` // json, text
	ExportsEnabled bool   `mapstructure:"exports_enabled"`
}

// ObservabilityConfig holds observability parameters.
type ObservabilityConfig struct {
	ServiceName      string        `mapstructure:"service_name"`
	ServiceVersion   string        `mapstructure:"service_version"`
	Environment      string        `mapstructure:"environment"`
	MetricsEnabled   bool          `mapstructure:"metrics_enabled"`
	TracingEnabled   bool          `mapstructure:"tracing_enabled"`
	TraceSampleRatio float64       `mapstructure:"trace_sample_ratio"`
	Logging          LoggingConfig `mapstructure:"logging"`
	OTLP             OTLPConfig    `mapstructure:"otlp"`
}

// OTLPConfig holds OTLP exporter configuration shared by traces and logs.
type OTLPConfig struct {
	Endpoint          string            `mapstructure:"endpoint"`
	Protocol          string            `mapstructure:"protocol"` // grpc, http/protobuf
	Insecure          bool              `mapstructure:"insecure"`
	TLSCertFile       string            `mapstructure:"tls_cert_file"`
	TLSClientCertFile string            `mapstructure:"tls_client_cert_file"`
	TLSClientKeyFile  string            `mapstructure:"tls_client_key_file"`
	Headers           map[string]string `mapstructure:"headers"`
	Timeout           time.Duration     `mapstructure:"timeout"`
	Compression       string            `mapstructure:"compression"` // none, gzip
	RetryEnabled      bool              `mapstructure:"retry_enabled"`
}

// UsesDatabase reports whether a database connection is configured or needed.
func (c *Config) UsesDatabase() bool {
	if c.Model.Source == ModelSourceDatabase {
		return true
	}
	return c.Database.DSN != "" || c.Database.Host != ""
}
