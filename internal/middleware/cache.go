package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

const (
	ResponseCachePrefix = "trendjack:response-cache:"
	cacheHeader         = "x-trendjack-cache"
)

// CacheOptions configures ResponseCache.
type CacheOptions struct {
	TTL          time.Duration // default 10 minutes
	MaxBodyBytes int           // default 4 MiB; larger bodies are not stored
	// PathSuffixes limits caching to GET paths ending in one of the suffixes.
	PathSuffixes []string
}

func (o CacheOptions) withDefaults() CacheOptions {
	if o.TTL <= 0 {
		o.TTL = 10 * time.Minute
	}
	if o.MaxBodyBytes <= 0 {
		o.MaxBodyBytes = 4 << 20
	}
	return o
}

func (o CacheOptions) applies(r *http.Request) bool {
	if r.Method != http.MethodGet {
		return false
	}
	if len(o.PathSuffixes) == 0 {
		return true
	}
	for _, s := range o.PathSuffixes {
		if s != "" && strings.HasSuffix(r.URL.Path, s) {
			return true
		}
	}
	return false
}

// storedResponse is what lands in redis.
type storedResponse struct {
	ContentType string `json:"content_type,omitempty"`
	Disposition string `json:"disposition,omitempty"`
	Body        []byte `json:"body"`
}

// teeWriter copies the body into buf until limit is exceeded.
type teeWriter struct {
	gin.ResponseWriter
	buf    bytes.Buffer
	limit  int
	tooBig bool
}

func (w *teeWriter) Write(p []byte) (int, error) {
	w.keep(p)
	return w.ResponseWriter.Write(p)
}

func (w *teeWriter) WriteString(s string) (int, error) {
	w.keep([]byte(s))
	return w.ResponseWriter.WriteString(s)
}

func (w *teeWriter) keep(p []byte) {
	if w.tooBig {
		return
	}
	if w.buf.Len()+len(p) > w.limit {
		w.tooBig = true
		w.buf.Reset()
		return
	}
	w.buf.Write(p)
}

// ResponseCache keeps 200 GET responses in redis keyed by request URI and
// replays them with an x-trendjack-cache: hit header.
func ResponseCache(rdb *redis.Client, opts CacheOptions) gin.HandlerFunc {
	opts = opts.withDefaults()
	return func(c *gin.Context) {
		if rdb == nil || !opts.applies(c.Request) {
			c.Next()
			return
		}
		ctx := c.Request.Context()
		key := ResponseCachePrefix + c.Request.URL.RequestURI()

		if hit, ok := loadResponse(ctx, rdb, key); ok {
			c.Header(cacheHeader, "hit")
			if hit.Disposition != "" {
				c.Header("Content-Disposition", hit.Disposition)
			}
			c.Data(http.StatusOK, hit.ContentType, hit.Body)
			c.Abort()
			return
		}

		tw := &teeWriter{ResponseWriter: c.Writer, limit: opts.MaxBodyBytes}
		c.Writer = tw
		c.Next()

		if tw.Status() != http.StatusOK || tw.tooBig || tw.buf.Len() == 0 {
			return
		}
		raw, err := json.Marshal(storedResponse{
			ContentType: tw.Header().Get("Content-Type"),
			Disposition: tw.Header().Get("Content-Disposition"),
			Body:        tw.buf.Bytes(),
		})
		if err == nil {
			rdb.Set(ctx, key, raw, opts.TTL)
		}
	}
}

func loadResponse(ctx context.Context, rdb *redis.Client, key string) (storedResponse, bool) {
	var r storedResponse
	raw, err := rdb.Get(ctx, key).Bytes()
	if err != nil || json.Unmarshal(raw, &r) != nil {
		return r, false
	}
	if r.ContentType == "" {
		r.ContentType = "application/octet-stream"
	}
	return r, true
}

// PurgeResponseCache drops cached responses whose URI starts with prefix,
// or all of them when prefix is empty.
func PurgeResponseCache(ctx context.Context, rdb *redis.Client, prefix string) (int64, error) {
	if rdb == nil {
		return 0, nil
	}
	var batch []string
	var deleted int64
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := rdb.Del(ctx, batch...).Result()
		deleted += n
		batch = batch[:0]
		return err
	}
	iter := rdb.Scan(ctx, 0, ResponseCachePrefix+prefix+"*", 200).Iterator()
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == 200 {
			if err := flush(); err != nil {
				return deleted, err
			}
		}
	}
	if err := iter.Err(); err != nil {
		return deleted, err
	}
	return deleted, flush()
}
