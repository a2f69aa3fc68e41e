package health

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trendjack/core/internal/config"
	"github.com/trendjack/core/internal/database"
	"github.com/trendjack/core/internal/pkg/cron"
	"github.com/trendjack/core/internal/pkg/nativelog"
	redisc "github.com/trendjack/core/internal/pkg/redis"
	"gorm.io/gorm/logger"
)

func init() { gin.SetMode(gin.TestMode) }

func newRouter(t *testing.T, logDir string) *gin.Engine {
	t.Helper()
	db, err := database.Open(config.DriverSQLite, ":memory:", logger.Silent)
	require.NoError(t, err)
	mr := miniredis.RunT(t)
	rc, err := redisc.Connect("redis://" + mr.Addr() + "/0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = rc.Close() })

	sched := cron.New(time.UTC, nil)
	require.NoError(t, sched.Register(cron.Job{Name: "cleanup_runs", Spec: "@daily", Fn: func(context.Context) error { return nil }}))

	r := gin.New()
	RegisterRoutes(r.Group("/api"), Dependencies{
		DB:            db,
		Redis:         rc,
		Scheduler:     sched,
		LLMProvider:   "openrouter",
		LLMConfigured: true,
		StartedAt:     time.Now().Add(-2 * time.Hour),
		LogDir:        logDir,
	}, func(c *gin.Context) { c.Next() })
	return r
}

func get(r http.Handler, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w
}

func TestHealth(t *testing.T) {
	r := newRouter(t, t.TempDir())
	w := get(r, http.MethodGet, "/api/health")
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, true, body["database"])
	assert.Equal(t, true, body["redis"])
	assert.Equal(t, false, body["firecrawl"])
	assert.Equal(t, "2h0m0s", body["uptime"])
}

func TestCronRoutes(t *testing.T) {
	r := newRouter(t, t.TempDir())

	w := get(r, http.MethodGet, "/api/health/cron")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"cleanup_runs"`)

	assert.Equal(t, http.StatusAccepted, get(r, http.MethodPost, "/api/health/cron/run/cleanup_runs").Code)
	assert.Equal(t, http.StatusNotFound, get(r, http.MethodPost, "/api/health/cron/run/missing").Code)
	assert.Equal(t, http.StatusNotFound, get(r, http.MethodGet, "/api/health/cron/task/missing").Code)
}

func TestLogFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "stdout_1-2-25.log"), []byte("hello\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("skip"), 0o644))
	r := newRouter(t, dir)

	w := get(r, http.MethodGet, "/api/health/logs")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "stdout_1-2-25.log")
	assert.NotContains(t, w.Body.String(), "notes.txt")

	w = get(r, http.MethodGet, "/api/health/logs/file/stdout_1-2-25.log")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "hello\n", w.Body.String())

	assert.Equal(t, http.StatusUnprocessableEntity, get(r, http.MethodGet, "/api/health/logs/file/notes.txt").Code)
	assert.Equal(t, http.StatusNotFound, get(r, http.MethodGet, "/api/health/logs/file/missing.log").Code)

	assert.Equal(t, http.StatusNoContent, get(r, http.MethodDelete, "/api/health/logs/file/stdout_1-2-25.log").Code)
	_, err := os.Stat(filepath.Join(dir, "stdout_1-2-25.log"))
	assert.True(t, os.IsNotExist(err))
}

func TestLogStream(t *testing.T) {
	srv := httptest.NewServer(newRouter(t, t.TempDir()))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/health/logs/stream", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	nativelog.Publish("run completed\n")

	reader := bufio.NewReader(resp.Body)
	var lines []string
	for len(lines) < 2 {
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		lines = append(lines, strings.TrimRight(line, "\n"))
	}
	assert.Equal(t, []string{"event: log", "data: run completed"}, lines)
}
