package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/trendjack/core/internal/pkg/response"
	"go.uber.org/zap"
)

const (
	defaultRateLimit = 50
	rateLimitPrefix  = "trendjack:rate_limit:"
)

// RateLimit allows perSecond requests per client IP in each wall-clock
// second. Requests with a valid token bypass it, and so does everything when
// redis fails.
func RateLimit(rdb *redis.Client, perSecond int, log *zap.Logger) gin.HandlerFunc {
	if perSecond <= 0 {
		perSecond = defaultRateLimit
	}
	if log == nil {
		log = zap.NewNop()
	}
	limit := int64(perSecond)

	return func(c *gin.Context) {
		ip := c.ClientIP()
		if ip == "" || IsAuthenticated(c) {
			c.Next()
			return
		}

		window := time.Now().Unix()
		key := rateLimitPrefix + ip + ":" + strconv.FormatInt(window, 10)
		var incr *redis.IntCmd
		_, err := rdb.TxPipelined(c.Request.Context(), func(p redis.Pipeliner) error {
			incr = p.Incr(c.Request.Context(), key)
			p.Expire(c.Request.Context(), key, 2*time.Second)
			return nil
		})
		if err != nil {
			c.Next()
			return
		}

		switch n := incr.Val(); {
		case n <= limit:
			c.Next()
		default:
			if n == limit+1 {
				log.Warn("rate limit exceeded", zap.String("ip", ip), zap.String("path", c.Request.URL.Path))
			}
			c.Header("Retry-After", "1")
			response.TooManyRequests(c)
		}
	}
}
