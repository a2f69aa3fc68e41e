package artifact

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trendjack/core/internal/config"
)

func TestNormalizeKey(t *testing.T) {
	assert.Equal(t, "a/b/c.png", normalizeKey(` /a//b\c.png`))
	assert.Equal(t, "", normalizeKey("../etc/passwd"))
	assert.Equal(t, "", normalizeKey("  "))
}

func TestLocalPutDelete(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocal(dir, PublicPrefix, nil)
	require.NoError(t, err)

	url, err := store.Put(context.Background(), "screenshots/2026/02/03/abc.png", []byte("png"), "image/png")
	require.NoError(t, err)
	assert.Equal(t, "/artifacts/screenshots/2026/02/03/abc.png", url)

	data, err := os.ReadFile(filepath.Join(dir, "screenshots", "2026", "02", "03", "abc.png"))
	require.NoError(t, err)
	assert.Equal(t, "png", string(data))

	require.NoError(t, store.Delete(context.Background(), "screenshots/2026/02/03/abc.png"))
	require.NoError(t, store.Delete(context.Background(), "screenshots/2026/02/03/abc.png"))
	_, err = os.Stat(filepath.Join(dir, "screenshots", "2026", "02", "03", "abc.png"))
	assert.True(t, os.IsNotExist(err))

	_, err = store.Put(context.Background(), "../escape", []byte("x"), "")
	assert.Error(t, err)
}

func TestLocalCleanup(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocal(dir, PublicPrefix, nil)
	require.NoError(t, err)

	ctx := context.Background()
	_, err = store.Put(ctx, "old/a.png", []byte("a"), "")
	require.NoError(t, err)
	_, err = store.Put(ctx, "new/b.png", []byte("b"), "")
	require.NoError(t, err)

	past := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(dir, "old", "a.png"), past, past))

	removed, err := store.Cleanup(time.Now().Add(-24 * time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = os.Stat(filepath.Join(dir, "old"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(dir, "new", "b.png"))
	assert.NoError(t, err)
}

type recordedRequest struct {
	method string
	path   string
}

func fakeS3(t *testing.T) (*httptest.Server, func() []recordedRequest) {
	t.Helper()
	var (
		mu   sync.Mutex
		reqs []recordedRequest
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		mu.Lock()
		reqs = append(reqs, recordedRequest{method: r.Method, path: r.URL.Path})
		mu.Unlock()
		if r.Method == http.MethodDelete {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		w.Header().Set("ETag", `"etag"`)
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)
	return srv, func() []recordedRequest {
		mu.Lock()
		defer mu.Unlock()
		return append([]recordedRequest(nil), reqs...)
	}
}

func TestS3PutDelete(t *testing.T) {
	srv, requests := fakeS3(t)
	store, err := NewS3(config.S3Config{
		Bucket:          "shots",
		Region:          "us-east-1",
		Endpoint:        srv.URL,
		AccessKeyID:     "key",
		SecretAccessKey: "secret",
		Prefix:          "trendjack",
	}, nil)
	require.NoError(t, err)

	url, err := store.Put(context.Background(), "screenshots/a b.png", []byte("png"), "image/png")
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/shots/trendjack/screenshots/a%20b.png", url)

	require.NoError(t, store.Delete(context.Background(), "screenshots/a b.png"))

	reqs := requests()
	require.Len(t, reqs, 2)
	assert.Equal(t, http.MethodPut, reqs[0].method)
	assert.Equal(t, "/shots/trendjack/screenshots/a b.png", reqs[0].path)
	assert.Equal(t, http.MethodDelete, reqs[1].method)
}

func TestS3PublicURL(t *testing.T) {
	store, err := NewS3(config.S3Config{Bucket: "b", Region: "eu-west-1", AccessKeyID: "k", SecretAccessKey: "s"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "https://b.s3.eu-west-1.amazonaws.com/x.png", store.publicURL("x.png"))

	store.customDomain = "https://cdn.example.com"
	assert.Equal(t, "https://cdn.example.com/x.png", store.publicURL("x.png"))

	_, err = NewS3(config.S3Config{Bucket: "b"}, nil)
	assert.Error(t, err)
}

func TestNewSelectsDriver(t *testing.T) {
	cfg := &config.AppConfig{}
	cfg.Paths.Artifacts = t.TempDir()
	cfg.Artifacts.Driver = config.ArtifactLocal
	store, err := New(cfg, nil)
	require.NoError(t, err)
	assert.IsType(t, &Local{}, store)

	cfg.Artifacts.Driver = "ftp"
	_, err = New(cfg, nil)
	assert.Error(t, err)
}
