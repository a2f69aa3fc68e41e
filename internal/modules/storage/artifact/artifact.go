// Package artifact stores generated binary artifacts such as page
// screenshots, on local disk or in an S3-compatible bucket.
package artifact

import (
	"context"
	"fmt"
	"strings"

	"github.com/trendjack/core/internal/config"
	"go.uber.org/zap"
)

// Store persists artifacts and returns a URL they can be fetched from.
type Store interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
}

// New builds the store selected by cfg.Artifacts.Driver.
func New(cfg *config.AppConfig, logger *zap.Logger) (Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch cfg.Artifacts.Driver {
	case config.ArtifactS3:
		return NewS3(cfg.Artifacts.S3, logger)
	case config.ArtifactLocal, "":
		return NewLocal(cfg.ArtifactDir(), PublicPrefix, logger)
	default:
		return nil, fmt.Errorf("unsupported artifact driver %q", cfg.Artifacts.Driver)
	}
}

// PublicPrefix is the HTTP path local artifacts are served under.
const PublicPrefix = "/artifacts"

func normalizeKey(key string) string {
	key = strings.TrimSpace(strings.ReplaceAll(key, "\\", "/"))
	key = strings.TrimPrefix(key, "/")
	for strings.Contains(key, "//") {
		key = strings.ReplaceAll(key, "//", "/")
	}
	parts := strings.Split(key, "/")
	for _, p := range parts {
		if p == ".." {
			return ""
		}
	}
	return key
}
