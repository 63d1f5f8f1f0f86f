// Package schemarefresh keeps the served join model current. The active
// snapshot is swapped atomically when a reload produces a different model.
package schemarefresh

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/graphql-go/graphql"

	"joinpath/internal/logging"
	"joinpath/internal/observability"
	"joinpath/internal/schema"
)

// Refresh triggers.
const (
	TriggerStartup = "startup"
	TriggerPoll    = "poll"
	TriggerWatch   = "watch"
	TriggerManual  = "manual"
)

const watchDebounce = 200 * time.Millisecond

// Snapshot contains an immutable view of the served model.
type Snapshot struct {
	Schema        *schema.Schema
	GraphQLSchema *graphql.Schema
	Handler       http.Handler
	BuiltAt       time.Time
	Fingerprint   string
}

// Loader produces a fresh model, from a file or a database.
type Loader func(ctx context.Context) (*schema.Schema, error)

// Config controls refresh behavior.
type Config struct {
	Loader Loader
	Build  BuildConfig
	Logger *logging.Logger
	// Interval enables polling. Zero disables it.
	Interval time.Duration
	// WatchPath enables reloads when the file at the path is written.
	WatchPath string
}

// Manager maintains and refreshes model snapshots.
type Manager struct {
	loader    Loader
	build     BuildConfig
	logger    *logging.Logger
	metrics   *observability.JoinMetrics
	interval  time.Duration
	watchPath string

	active    atomic.Pointer[Snapshot]
	refreshMu sync.Mutex
	wg        sync.WaitGroup
}

// NewManager loads the initial snapshot and returns a manager.
func NewManager(ctx context.Context, cfg Config) (*Manager, error) {
	if cfg.Loader == nil {
		return nil, fmt.Errorf("schema refresh manager requires a loader")
	}
	if cfg.Logger == nil {
		cfg.Logger = &logging.Logger{Logger: slog.Default()}
	}
	m := &Manager{
		loader:    cfg.Loader,
		build:     cfg.Build,
		logger:    cfg.Logger.WithFields(slog.String("component", "schema_refresh")),
		metrics:   cfg.Build.Metrics,
		interval:  cfg.Interval,
		watchPath: cfg.WatchPath,
	}
	if _, err := m.refresh(ctx, TriggerStartup); err != nil {
		return nil, err
	}
	return m, nil
}

// Start begins background polling and file watching, when configured.
func (m *Manager) Start(ctx context.Context) error {
	if m.interval > 0 {
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			m.pollLoop(ctx)
		}()
	}
	if m.watchPath != "" {
		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			return fmt.Errorf("failed to create model watcher: %w", err)
		}
		// Watch the directory so that editors replacing the file are seen.
		if err := watcher.Add(filepath.Dir(m.watchPath)); err != nil {
			_ = watcher.Close()
			return fmt.Errorf("failed to watch %s: %w", m.watchPath, err)
		}
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			defer func() { _ = watcher.Close() }()
			m.watchLoop(ctx, watcher)
		}()
	}
	if m.interval <= 0 && m.watchPath == "" {
		m.logger.Info("model refresh disabled")
	}
	return nil
}

// Handler delegates each request to the active snapshot's handler.
func (m *Manager) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		snapshot := m.CurrentSnapshot()
		if snapshot == nil || snapshot.Handler == nil {
			http.Error(w, "model not ready", http.StatusServiceUnavailable)
			return
		}
		snapshot.Handler.ServeHTTP(w, r)
	})
}

// CurrentSnapshot returns the active snapshot.
func (m *Manager) CurrentSnapshot() *Snapshot {
	return m.active.Load()
}

// RefreshNowContext reloads the model and swaps the snapshot when it changed.
func (m *Manager) RefreshNowContext(ctx context.Context) (bool, error) {
	return m.refresh(ctx, TriggerManual)
}

// Wait blocks until the background loops exit or the context is canceled.
func (m *Manager) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// refresh reports whether the active snapshot was replaced. On failure the
// previous snapshot stays active.
func (m *Manager) refresh(ctx context.Context, trigger string) (swapped bool, err error) {
	m.refreshMu.Lock()
	defer m.refreshMu.Unlock()

	start := time.Now()
	defer func() {
		m.metrics.RecordRefresh(ctx, trigger, time.Since(start), err == nil)
	}()

	model, err := m.loader(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to load model: %w", err)
	}
	fingerprint, err := Fingerprint(model)
	if err != nil {
		return false, err
	}
	if current := m.active.Load(); current != nil && current.Fingerprint == fingerprint {
		m.logger.Debug("model unchanged", slog.String("trigger", trigger))
		return false, nil
	}

	snapshot, err := BuildSnapshot(model, m.build)
	if err != nil {
		return false, fmt.Errorf("failed to build snapshot: %w", err)
	}
	m.active.Store(snapshot)
	stats := model.Stats()
	m.logger.Info("model snapshot built",
		slog.String("trigger", trigger),
		slog.String("model", model.Name),
		slog.String("fingerprint", fingerprint),
		slog.Int("tables", stats.Tables),
		slog.Int("relationships", stats.Relationships),
		slog.Duration("duration", time.Since(start)),
	)
	return true, nil
}

func (m *Manager) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("model polling stopped")
			return
		case <-ticker.C:
			if _, err := m.refresh(ctx, TriggerPoll); err != nil {
				m.logger.Error("model refresh failed", slog.String("trigger", TriggerPoll), slog.String("error", err.Error()))
			}
		}
	}
}

func (m *Manager) watchLoop(ctx context.Context, watcher *fsnotify.Watcher) {
	target := filepath.Clean(m.watchPath)
	debounce := time.NewTimer(watchDebounce)
	if !debounce.Stop() {
		<-debounce.C
	}
	defer debounce.Stop()

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("model watcher stopped")
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target || !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			debounce.Reset(watchDebounce)
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			m.logger.Warn("model watcher error", slog.String("error", err.Error()))
		case <-debounce.C:
			if _, err := m.refresh(ctx, TriggerWatch); err != nil {
				m.logger.Error("model refresh failed", slog.String("trigger", TriggerWatch), slog.String("error", err.Error()))
			}
		}
	}
}
