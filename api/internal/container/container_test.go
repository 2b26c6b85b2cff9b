package container

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"areca-grader/api/internal/config"
	"areca-grader/api/internal/store"
)

func stubConfig() *config.Config {
	return &config.Config{
		Port:           "8080",
		LLMName:        "stub",
		MaxUploadBytes: 5 << 20,
		CacheBackend:   "memory",
	}
}

func TestNewWithStub(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, err := New(context.Background(), stubConfig())
	require.NoError(t, err)
	defer c.Close()

	assert.Equal(t, "stub", c.Engine().Name())
	assert.NoError(t, c.Ping(context.Background()))

	w := httptest.NewRecorder()
	c.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestNewLoadsCachedImage(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cache")
	fs, err := store.NewFile(dir)
	require.NoError(t, err)
	require.NoError(t, fs.Set(context.Background(), store.ImageCacheKey, "data:image/png;base64,AAAA"))

	cfg := stubConfig()
	cfg.CacheBackend = "file"
	cfg.CacheDir = dir

	c, err := New(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, "data:image/png;base64,AAAA", c.Capture().Preview())
}

func TestNewWithSQLite(t *testing.T) {
	cfg := stubConfig()
	cfg.CacheBackend = "sqlite"
	cfg.SQLitePath = filepath.Join(t.TempDir(), "areca.db")

	c, err := New(context.Background(), cfg)
	require.NoError(t, err)
	assert.NoError(t, c.Ping(context.Background()))
	assert.NoError(t, c.Close())
}

func TestNewUnconfiguredEngine(t *testing.T) {
	cfg := stubConfig()
	cfg.LLMName = "gemini"

	_, err := New(context.Background(), cfg)
	assert.Error(t, err)
}

func TestNewUnknownBackend(t *testing.T) {
	cfg := stubConfig()
	cfg.CacheBackend = "redis"

	_, err := New(context.Background(), cfg)
	assert.ErrorContains(t, err, "unknown cache backend")
}
