package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/trendjack/core/internal/pkg/response"
)

const (
	idempotenceHeader = "x-idempotence"
	idempotencePrefix = "trendjack:idempotence:"
	idempotenceTTL    = 60 * time.Second
)

const (
	markPending = "pending"
	markDone    = "done"
)

// repeatable lists path suffixes for conversational endpoints that may be
// posted twice with the same body.
var repeatable = []string{"/refine", "/reset"}

type idempotenceGuard struct {
	rdb *redis.Client
	ttl time.Duration
}

// Idempotence answers 409 to a repeated POST or PUT while the first request is
// still running and for a minute after it succeeded. The fingerprint is the
// x-idempotence header when sent, otherwise a hash of the request.
func Idempotence(rdb *redis.Client) gin.HandlerFunc {
	g := &idempotenceGuard{rdb: rdb, ttl: idempotenceTTL}
	return g.handle
}

func (g *idempotenceGuard) handle(c *gin.Context) {
	if !g.applies(c.Request) {
		c.Next()
		return
	}
	fp, ok := fingerprint(c)
	if !ok {
		c.Next()
		return
	}
	key := idempotencePrefix + fp
	ctx := c.Request.Context()

	claimed, err := g.rdb.SetNX(ctx, key, markPending, g.ttl).Result()
	if err != nil {
		// redis down: serve without protection
		c.Next()
		return
	}
	if !claimed {
		msg := "identical request already succeeded, retry after 60 seconds"
		if g.rdb.Get(ctx, key).Val() == markPending {
			msg = "identical request is still being processed"
		}
		response.Conflict(c, msg)
		return
	}

	c.Next()

	if s := c.Writer.Status(); s >= 200 && s < 300 {
		g.rdb.SetArgs(ctx, key, markDone, redis.SetArgs{KeepTTL: true})
		return
	}
	g.rdb.Del(ctx, key)
}

func (g *idempotenceGuard) applies(req *http.Request) bool {
	if req.Method != http.MethodPost && req.Method != http.MethodPut {
		return false
	}
	path := strings.ToLower(strings.TrimRight(strings.TrimSpace(req.URL.Path), "/"))
	for _, suffix := range repeatable {
		if strings.HasSuffix(path, suffix) {
			return false
		}
	}
	return true
}

// fingerprint returns the client key or a digest of method, URL, body, agent,
// client ip and token. Multipart uploads are not buffered.
func fingerprint(c *gin.Context) (string, bool) {
	if hdr := strings.TrimSpace(c.GetHeader(idempotenceHeader)); hdr != "" {
		return hdr, true
	}
	if c.Request.Body == nil || c.ContentType() == "multipart/form-data" {
		return "", false
	}
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return "", false
	}
	c.Request.Body = io.NopCloser(bytes.NewReader(body))

	h := sha256.New()
	for _, part := range []string{c.Request.Method, c.Request.URL.String(), c.Request.UserAgent(), c.ClientIP(), requestToken(c)} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil)), true
}
