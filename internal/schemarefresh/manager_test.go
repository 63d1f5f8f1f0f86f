package schemarefresh

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"joinpath/internal/logging"
	"joinpath/internal/modelfile"
	"joinpath/internal/schema"
)

func retailPath() string {
	return filepath.Join("..", "modelfile", "testdata", "retail.yaml")
}

func fileLoader(path string) Loader {
	return func(context.Context) (*schema.Schema, error) {
		return modelfile.LoadFile(path)
	}
}

func TestNewManagerRequiresLoader(t *testing.T) {
	_, err := NewManager(context.Background(), Config{})
	require.Error(t, err)
}

func TestNewManagerBuildsInitialSnapshot(t *testing.T) {
	manager, err := NewManager(context.Background(), Config{
		Loader: fileLoader(retailPath()),
		Logger: logging.Discard(),
	})
	require.NoError(t, err)

	snapshot := manager.CurrentSnapshot()
	require.NotNil(t, snapshot)
	assert.Equal(t, "retail", snapshot.Schema.Name)
	assert.Len(t, snapshot.Fingerprint, 64)
	assert.NotNil(t, snapshot.GraphQLSchema)
}

func TestNewManagerLoaderFailure(t *testing.T) {
	_, err := NewManager(context.Background(), Config{
		Loader: func(context.Context) (*schema.Schema, error) { return nil, errors.New("boom") },
		Logger: logging.Discard(),
	})
	require.ErrorContains(t, err, "boom")
}

func TestRefreshUnchangedKeepsSnapshot(t *testing.T) {
	manager, err := NewManager(context.Background(), Config{
		Loader: fileLoader(retailPath()),
		Logger: logging.Discard(),
	})
	require.NoError(t, err)
	before := manager.CurrentSnapshot()

	swapped, err := manager.RefreshNowContext(context.Background())
	require.NoError(t, err)
	assert.False(t, swapped)
	assert.Same(t, before, manager.CurrentSnapshot())
}

func TestRefreshFailureKeepsSnapshot(t *testing.T) {
	var fail atomic.Bool
	loader := fileLoader(retailPath())
	manager, err := NewManager(context.Background(), Config{
		Loader: func(ctx context.Context) (*schema.Schema, error) {
			if fail.Load() {
				return nil, errors.New("model file unreadable")
			}
			return loader(ctx)
		},
		Logger: logging.Discard(),
	})
	require.NoError(t, err)
	before := manager.CurrentSnapshot()

	fail.Store(true)
	swapped, err := manager.RefreshNowContext(context.Background())
	require.Error(t, err)
	assert.False(t, swapped)
	assert.Same(t, before, manager.CurrentSnapshot())
}

func TestRefreshSwapsChangedModel(t *testing.T) {
	var calls atomic.Int32
	manager, err := NewManager(context.Background(), Config{
		Loader: func(context.Context) (*schema.Schema, error) {
			s, err := modelfile.LoadFile(retailPath())
			if err != nil {
				return nil, err
			}
			if calls.Add(1) > 1 {
				s.Description = "changed"
			}
			return s, nil
		},
		Logger: logging.Discard(),
	})
	require.NoError(t, err)
	before := manager.CurrentSnapshot()

	swapped, err := manager.RefreshNowContext(context.Background())
	require.NoError(t, err)
	assert.True(t, swapped)
	after := manager.CurrentSnapshot()
	assert.NotEqual(t, before.Fingerprint, after.Fingerprint)
	assert.Equal(t, "changed", after.Schema.Description)
}

func TestHandlerServesActiveSnapshot(t *testing.T) {
	manager, err := NewManager(context.Background(), Config{
		Loader: fileLoader(retailPath()),
		Logger: logging.Discard(),
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/graphql", strings.NewReader(`{"query":"{ model { name } }"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	manager.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"name": "retail"`)
}

func TestHandlerNotReady(t *testing.T) {
	manager := &Manager{}
	rec := httptest.NewRecorder()
	manager.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/graphql", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestWatchReloadsOnWrite(t *testing.T) {
	original, err := os.ReadFile(retailPath())
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "model.yaml")
	require.NoError(t, os.WriteFile(path, original, 0o600))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	manager, err := NewManager(ctx, Config{
		Loader:    fileLoader(path),
		Logger:    logging.Discard(),
		WatchPath: path,
	})
	require.NoError(t, err)
	require.NoError(t, manager.Start(ctx))

	updated := strings.Replace(string(original), "Retail sales star schema", "Retail sales, revised", 1)
	require.NoError(t, os.WriteFile(path, []byte(updated), 0o600))

	require.Eventually(t, func() bool {
		return manager.CurrentSnapshot().Schema.Description == "Retail sales, revised"
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	waitCtx, waitCancel := context.WithTimeout(context.Background(), time.Second)
	defer waitCancel()
	require.NoError(t, manager.Wait(waitCtx))
}

func TestFingerprintStableAcrossLoads(t *testing.T) {
	a, err := modelfile.LoadFile(retailPath())
	require.NoError(t, err)
	b, err := modelfile.LoadFile(retailPath())
	require.NoError(t, err)

	fa, err := Fingerprint(a)
	require.NoError(t, err)
	fb, err := Fingerprint(b)
	require.NoError(t, err)
	assert.Equal(t, fa, fb)
}
