package app

import (
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/trendjack/core/internal/config"
)

// newCORS allows any origin in development. Elsewhere a non-empty
// allowed_origins list restricts browsers to matching hosts.
func newCORS(cfg *config.AppConfig) gin.HandlerFunc {
	allow := func(string) bool { return true }
	if patterns := cfg.AllowedOrigins; len(patterns) > 0 && !cfg.IsDev() {
		allow = func(origin string) bool { return originAllowed(patterns, origin) }
	}
	return cors.New(cors.Config{
		AllowOriginFunc: allow,
		AllowMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPut,
			http.MethodPatch, http.MethodDelete, http.MethodOptions,
		},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "x-idempotence"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition", "Retry-After", "x-trendjack-cache", "X-Request-Id"},
		AllowCredentials: true,
	})
}

func originAllowed(patterns []string, origin string) bool {
	host := origin
	if u, err := url.Parse(origin); err == nil && u.Host != "" {
		host = u.Host
	}
	for _, p := range patterns {
		if matchOriginPattern(strings.TrimSpace(p), host) {
			return true
		}
	}
	return false
}

// matchOriginPattern matches host against a glob such as "*.example.com"
// or "localhost:*".
func matchOriginPattern(pattern, host string) bool {
	if pattern == "" {
		return false
	}
	ok, err := path.Match(pattern, host)
	return err == nil && ok
}
