package serverapp

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/XSAM/otelsql"
	_ "github.com/go-sql-driver/mysql"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"joinpath/internal/config"
	"joinpath/internal/dbexec"
	"joinpath/internal/introspection"
	"joinpath/internal/logging"
	"joinpath/internal/middleware"
	"joinpath/internal/modelfile"
	"joinpath/internal/observability"
	"joinpath/internal/planner"
	"joinpath/internal/schema"
	"joinpath/internal/schemafilter"
	"joinpath/internal/schemarefresh"
)

const (
	reloadTimeout        = 15 * time.Second
	connectRetryInterval = time.Second
)

// InitLogger builds the process logger and installs it as the slog default.
// When log exports are enabled the returned provider must be shut down.
func InitLogger(cfg *config.Config) (*logging.Logger, *observability.LoggerProvider, error) {
	loggerCfg := logging.Config{
		Level:  cfg.Observability.Logging.Level,
		Format: cfg.Observability.Logging.Format,
	}
	logger := logging.NewLogger(loggerCfg)
	slog.SetDefault(logger.Logger)

	if !cfg.Observability.Logging.ExportsEnabled {
		return logger, nil, nil
	}

	logger.Info("initializing OpenTelemetry logging",
		slog.String("service_name", cfg.Observability.ServiceName),
		slog.String("otlp_endpoint", cfg.Observability.OTLP.Endpoint),
		slog.String("otlp_protocol", cfg.Observability.OTLP.Protocol),
	)
	loggerProvider, err := observability.InitLoggerProvider(otelConfig(cfg))
	if err != nil {
		return nil, nil, err
	}

	loggerCfg.LoggerProvider = loggerProvider.Provider()
	logger = logging.NewLogger(loggerCfg)
	slog.SetDefault(logger.Logger)
	return logger, loggerProvider, nil
}

func otelConfig(cfg *config.Config) observability.Config {
	otlp := cfg.Observability.OTLP
	return observability.Config{
		ServiceName:      cfg.Observability.ServiceName,
		ServiceVersion:   cfg.Observability.ServiceVersion,
		Environment:      cfg.Observability.Environment,
		TraceSampleRatio: cfg.Observability.TraceSampleRatio,
		OTLP: observability.OTLPExporterConfig{
			Endpoint:          otlp.Endpoint,
			Protocol:          otlp.Protocol,
			Insecure:          otlp.Insecure,
			TLSCertFile:       otlp.TLSCertFile,
			TLSClientCertFile: otlp.TLSClientCertFile,
			TLSClientKeyFile:  otlp.TLSClientKeyFile,
			Headers:           otlp.Headers,
			Timeout:           otlp.Timeout,
			Compression:       otlp.Compression,
			RetryEnabled:      otlp.RetryEnabled,
		},
	}
}

func initMetrics(cfg *config.Config, logger *logging.Logger) (*observability.MeterProvider, *observability.JoinMetrics, error) {
	if !cfg.Observability.MetricsEnabled {
		return nil, nil, nil
	}

	meterProvider, err := observability.InitMeterProvider(otelConfig(cfg))
	if err != nil {
		return nil, nil, err
	}
	joinMetrics, err := observability.InitJoinMetrics()
	if err != nil {
		return nil, nil, err
	}
	logger.Info("OpenTelemetry metrics initialized")
	return meterProvider, joinMetrics, nil
}

func initTracing(cfg *config.Config, logger *logging.Logger) (*observability.TracerProvider, error) {
	if !cfg.Observability.TracingEnabled {
		return nil, nil
	}

	tracerProvider, err := observability.InitTracerProvider(otelConfig(cfg))
	if err != nil {
		return nil, err
	}
	logger.Info("OpenTelemetry tracing initialized",
		slog.String("otlp_endpoint", cfg.Observability.OTLP.Endpoint),
		slog.String("otlp_protocol", cfg.Observability.OTLP.Protocol),
		slog.Float64("sample_ratio", cfg.Observability.TraceSampleRatio),
	)
	return tracerProvider, nil
}

// connectDB opens the database when one is configured. It returns a nil
// handle otherwise.
func connectDB(cfg *config.Config, logger *logging.Logger) (*sql.DB, interface{ Unregister() error }, error) {
	if !cfg.UsesDatabase() {
		logger.Info("no database configured, execute query disabled")
		return nil, nil, nil
	}

	dsn, err := cfg.Database.FormatDSN()
	if err != nil {
		return nil, nil, err
	}

	if !cfg.Observability.MetricsEnabled && !cfg.Observability.TracingEnabled {
		db, err := sql.Open("mysql", dsn)
		if err != nil {
			return nil, nil, err
		}
		return db, nil, nil
	}

	opts := []otelsql.Option{otelsql.WithAttributes(semconv.DBSystemMySQL)}
	if cfg.Observability.TracingEnabled {
		opts = append(opts, otelsql.WithSpanOptions(otelsql.SpanOptions{DisableErrSkip: true}))
	}
	db, err := otelsql.Open("mysql", dsn, opts...)
	if err != nil {
		return nil, nil, err
	}

	var dbStatsReg interface{ Unregister() error }
	if cfg.Observability.MetricsEnabled {
		dbStatsReg, err = otelsql.RegisterDBStatsMetrics(db, otelsql.WithAttributes(semconv.DBSystemMySQL))
		if err != nil {
			logger.Warn("failed to register DB stats metrics", slog.String("error", err.Error()))
		}
	}
	logger.Info("database instrumentation enabled",
		slog.Bool("metrics", cfg.Observability.MetricsEnabled),
		slog.Bool("tracing", cfg.Observability.TracingEnabled),
	)
	return db, dbStatsReg, nil
}

func configureDatabase(ctx context.Context, cfg *config.Config, logger *logging.Logger, db *sql.DB) error {
	db.SetMaxOpenConns(cfg.Database.Pool.MaxOpen)
	db.SetMaxIdleConns(cfg.Database.Pool.MaxIdle)
	db.SetConnMaxLifetime(cfg.Database.Pool.MaxLifetime)

	if err := waitForDatabase(ctx, cfg.Database.ConnectionTimeout, logger, db); err != nil {
		return err
	}
	logger.Info("connected to database",
		slog.String("database", cfg.Database.DatabaseName()),
		slog.Int("pool_max_open", cfg.Database.Pool.MaxOpen),
		slog.Int("pool_max_idle", cfg.Database.Pool.MaxIdle),
	)
	return nil
}

// waitForDatabase pings until the database answers or timeout elapses. A
// zero timeout tries once.
func waitForDatabase(ctx context.Context, timeout time.Duration, logger *logging.Logger, db *sql.DB) error {
	if timeout == 0 {
		return db.PingContext(ctx)
	}

	deadline := time.Now().Add(timeout)
	interval := connectRetryInterval
	for attempt := 1; ; attempt++ {
		err := db.PingContext(ctx)
		if err == nil {
			if attempt > 1 {
				logger.Info("database connection established", slog.Int("attempts", attempt))
			}
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("database not available after %v: %w", timeout, err)
		}

		logger.Warn("database not ready, retrying",
			slog.Int("attempt", attempt),
			slog.Duration("retry_in", interval),
			slog.String("error", err.Error()),
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
		interval = min(interval*2, 30*time.Second)
	}
}

func buildPlanLimits(cfg *config.Config) planner.PlanLimits {
	return planner.PlanLimits{
		MaxTables:   cfg.Server.MaxTables,
		MaxRows:     cfg.Server.MaxLimit,
		DefaultRows: cfg.Server.DefaultLimit,
	}
}

// modelLoader returns the loader for the configured model source. The
// filters, path cap and validation apply to every load.
func modelLoader(cfg *config.Config, db introspection.Queryer) schemarefresh.Loader {
	return func(ctx context.Context) (*schema.Schema, error) {
		var (
			s   *schema.Schema
			err error
		)
		switch cfg.Model.Source {
		case config.ModelSourceDatabase:
			if db == nil {
				return nil, fmt.Errorf("model source %q requires a database", config.ModelSourceDatabase)
			}
			s, err = introspection.IntrospectDatabaseContext(ctx, db, cfg.Database.DatabaseName(), introspection.Options{
				Singularize: cfg.Model.Singularize,
			})
		default:
			s, err = modelfile.LoadFile(cfg.Model.Path)
		}
		if err != nil {
			return nil, err
		}

		if !cfg.SchemaFilters.IsZero() {
			schemafilter.Apply(s, cfg.SchemaFilters)
		}
		if cfg.Model.MaxPathLength > 0 {
			s.MaxPathLength = cfg.Model.MaxPathLength
		}
		if cfg.Model.Validate {
			if err := validateModel(s); err != nil {
				return nil, err
			}
		}
		return s, nil
	}
}

// validateModel rejects models holding relationships that cannot be rendered.
func validateModel(s *schema.Schema) error {
	var errs []error
	for _, r := range s.Relationships {
		if err := r.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid model %s: %w", s.Name, errors.Join(errs...))
	}
	return nil
}

func startModelManager(ctx context.Context, cfg *config.Config, logger *logging.Logger, db *sql.DB, runner *dbexec.Runner, limits planner.PlanLimits, metrics *observability.JoinMetrics) (*schemarefresh.Manager, context.CancelFunc, error) {
	var queryer introspection.Queryer
	if db != nil {
		queryer = db
	}

	watchPath := ""
	if cfg.Model.Watch && cfg.Model.Source == config.ModelSourceFile {
		watchPath = cfg.Model.Path
	}

	manager, err := schemarefresh.NewManager(ctx, schemarefresh.Config{
		Loader: modelLoader(cfg, queryer),
		Build: schemarefresh.BuildConfig{
			Runner:   runner,
			Limits:   limits,
			Metrics:  metrics,
			GraphiQL: cfg.Server.GraphiQLEnabled,
		},
		Logger:    logger,
		Interval:  cfg.Model.RefreshInterval,
		WatchPath: watchPath,
	})
	if err != nil {
		return nil, nil, err
	}

	modelCtx, cancel := context.WithCancel(context.Background())
	if err := manager.Start(modelCtx); err != nil {
		cancel()
		return nil, nil, err
	}
	return manager, cancel, nil
}

func buildAdminHandler(cfg *config.Config, logger *logging.Logger, manager *schemarefresh.Manager) (http.Handler, error) {
	if !cfg.Server.AdminReloadEnabled {
		return nil, nil
	}

	var adminHandler http.Handler = modelReloadHandler(manager)
	if cfg.Server.AdminToken == "" {
		logger.Warn("admin reload endpoint is not authenticated, consider setting server.admin_token")
		return adminHandler, nil
	}
	auth, err := middleware.AdminTokenAuthMiddleware(cfg.Server.AdminToken)
	if err != nil {
		return nil, err
	}
	return auth(adminHandler), nil
}

func buildRouter(cfg *config.Config, logger *logging.Logger, manager *schemarefresh.Manager, db *sql.DB, adminHandler http.Handler, meterProvider *observability.MeterProvider) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/graphql", manager.Handler())
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" {
			http.Redirect(w, r, "/graphql", http.StatusFound)
			return
		}
		http.NotFound(w, r)
	})
	mux.HandleFunc("/health", healthHandler(manager, db, cfg.Server.HealthCheckTimeout))

	if adminHandler != nil {
		mux.Handle("/admin/reload", adminHandler)
		logger.Info("admin reload endpoint enabled", slog.String("path", "/admin/reload"))
	}
	if cfg.Observability.MetricsEnabled && meterProvider != nil {
		mux.Handle("/metrics", promhttp.Handler())
		logger.Info("metrics endpoint enabled", slog.String("path", "/metrics"))
	}
	return mux
}

// wrapHTTPHandler applies the middleware; the first listed is outermost.
func wrapHTTPHandler(cfg *config.Config, logger *logging.Logger, handler http.Handler) http.Handler {
	var mws []func(http.Handler) http.Handler
	if cfg.Observability.MetricsEnabled || cfg.Observability.TracingEnabled {
		mws = append(mws, func(next http.Handler) http.Handler {
			return otelhttp.NewHandler(next, "http.server",
				otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
					return httpRootSpanName(r)
				}),
			)
		})
	}
	mws = append(mws, middleware.LoggingMiddleware(logger))
	if cfg.Server.RateLimitEnabled {
		mws = append(mws, middleware.RateLimitMiddleware(middleware.RateLimitConfig{
			Enabled:     true,
			RPS:         cfg.Server.RateLimitRPS,
			Burst:       cfg.Server.RateLimitBurst,
			ExemptPaths: []string{"/health", "/metrics"},
		}))
		logger.Info("rate limiting enabled",
			slog.Float64("rps", cfg.Server.RateLimitRPS),
			slog.Int("burst", cfg.Server.RateLimitBurst),
		)
	}
	if cfg.Server.CORSEnabled {
		mws = append(mws, middleware.CORSMiddleware(middleware.CORSConfig{
			Enabled:          cfg.Server.CORSEnabled,
			AllowedOrigins:   cfg.Server.CORSAllowedOrigins,
			AllowedMethods:   cfg.Server.CORSAllowedMethods,
			AllowedHeaders:   cfg.Server.CORSAllowedHeaders,
			AllowCredentials: cfg.Server.CORSAllowCredentials,
			MaxAge:           cfg.Server.CORSMaxAge,
		}))
	}
	return middleware.Chain(handler, mws...)
}

func httpRootSpanName(r *http.Request) string {
	if r == nil {
		return "HTTP /*"
	}
	method := strings.TrimSpace(r.Method)
	if method == "" {
		method = "HTTP"
	}
	switch r.URL.Path {
	case "/", "/graphql", "/health", "/metrics", "/admin/reload":
		return method + " " + r.URL.Path
	default:
		return method + " /*"
	}
}

func buildServer(cfg *config.Config, handler http.Handler, serverAddr string) *http.Server {
	return &http.Server{
		Addr:         serverAddr,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
}

func startServer(cfg *config.Config, logger *logging.Logger, srv *http.Server, serverAddr string) chan error {
	serverErrors := make(chan error, 1)
	go func() {
		logAttrs := []any{
			slog.String("address", serverAddr),
			slog.String("graphql_endpoint", "/graphql"),
			slog.String("health_endpoint", "/health"),
			slog.Bool("graphiql", cfg.Server.GraphiQLEnabled),
			slog.String("model_source", cfg.Model.Source),
		}
		if cfg.Observability.MetricsEnabled {
			logAttrs = append(logAttrs, slog.String("metrics_endpoint", "/metrics"))
		}
		logger.Info("server starting", logAttrs...)

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
	}()
	return serverErrors
}

// healthHandler reports unhealthy until a model is loaded, and when a
// configured database stops answering.
func healthHandler(manager *schemarefresh.Manager, db *sql.DB, timeout time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reqLogger := logging.FromContext(r.Context())
		w.Header().Set("Content-Type", "application/json")

		snapshot := manager.CurrentSnapshot()
		if snapshot == nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = fmt.Fprint(w, `{"status":"unhealthy","model":"not loaded"}`)
			return
		}

		database := "none"
		if db != nil {
			ctx := r.Context()
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}
			if err := db.PingContext(ctx); err != nil {
				reqLogger.Error("health check failed",
					slog.String("error", err.Error()),
					slog.String("check", "database"),
				)
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = fmt.Fprint(w, `{"status":"unhealthy","model":"ok","database":"failed"}`)
				return
			}
			database = "ok"
		}

		reqLogger.Debug("health check passed")
		w.WriteHeader(http.StatusOK)
		_, _ = fmt.Fprintf(w, `{"status":"healthy","model":"ok","database":%q,"fingerprint":%q}`, database, snapshot.Fingerprint)
	}
}

func modelReloadHandler(manager *schemarefresh.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reqLogger := logging.FromContext(r.Context())
		w.Header().Set("Content-Type", "application/json")

		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			w.WriteHeader(http.StatusMethodNotAllowed)
			_, _ = fmt.Fprint(w, `{"error":"method not allowed"}`)
			return
		}

		reqLogger.Info("admin endpoint accessed",
			slog.String("operation", "model_reload"),
			slog.String("remote_addr", r.RemoteAddr),
		)

		ctx, cancel := context.WithTimeout(r.Context(), reloadTimeout)
		defer cancel()

		swapped, err := manager.RefreshNowContext(ctx)
		if err != nil {
			reqLogger.Error("model reload failed", slog.String("error", err.Error()))
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = fmt.Fprint(w, `{"status":"error","message":"model reload failed"}`)
			return
		}

		reqLogger.Info("model reload complete", slog.Bool("changed", swapped))
		w.WriteHeader(http.StatusOK)
		_, _ = fmt.Fprintf(w, `{"status":"ok","changed":%t}`, swapped)
	}
}
