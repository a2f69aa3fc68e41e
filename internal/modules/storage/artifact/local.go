package artifact

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Local writes artifacts under a directory served over HTTP.
type Local struct {
	dir    string
	prefix string
	logger *zap.Logger
}

func NewLocal(dir, publicPrefix string, logger *zap.Logger) (*Local, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("artifact directory is empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create artifact dir: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Local{
		dir:    dir,
		prefix: "/" + strings.Trim(publicPrefix, "/"),
		logger: logger.Named("Artifacts"),
	}, nil
}

// Dir returns the root directory.
func (l *Local) Dir() string { return l.dir }

func (l *Local) Put(_ context.Context, key string, data []byte, _ string) (string, error) {
	key = normalizeKey(key)
	if key == "" {
		return "", fmt.Errorf("invalid artifact key")
	}
	target := filepath.Join(l.dir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", err
	}
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", err
	}
	if err := os.Rename(tmp, target); err != nil {
		_ = os.Remove(tmp)
		return "", err
	}
	return l.prefix + "/" + key, nil
}

func (l *Local) Delete(_ context.Context, key string) error {
	key = normalizeKey(key)
	if key == "" {
		return fmt.Errorf("invalid artifact key")
	}
	err := os.Remove(filepath.Join(l.dir, filepath.FromSlash(key)))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// Cleanup removes files last modified before cutoff and returns how many
// were deleted. Empty directories left behind are removed too.
func (l *Local) Cleanup(cutoff time.Time) (int, error) {
	removed := 0
	var dirs []string
	err := filepath.WalkDir(l.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != l.dir {
				dirs = append(dirs, path)
			}
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(path); err != nil {
				l.logger.Warn("remove artifact failed", zap.String("path", path), zap.Error(err))
				return nil
			}
			removed++
		}
		return nil
	})
	// deepest first so parents become empty
	for i := len(dirs) - 1; i >= 0; i-- {
		_ = os.Remove(dirs[i])
	}
	return removed, err
}
