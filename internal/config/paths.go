package config

import (
	"os"
	"path/filepath"
	"strings"
)

// EnvHome overrides the directory relative runtime paths resolve against.
const EnvHome = "TRENDJACK_HOME"

// HomeDir returns TRENDJACK_HOME, else the directory of the running binary,
// else the working directory.
func HomeDir() string {
	if v := strings.TrimSpace(os.Getenv(EnvHome)); v != "" {
		return filepath.Clean(v)
	}
	if exe, err := os.Executable(); err == nil {
		if resolved, err := filepath.EvalSymlinks(exe); err == nil {
			exe = resolved
		}
		return filepath.Dir(exe)
	}
	if wd, err := os.Getwd(); err == nil {
		return wd
	}
	return "."
}

// ResolveRuntimePath returns raw as an absolute path. Empty raw falls back to
// subdir; relative paths are joined to HomeDir.
func ResolveRuntimePath(raw, subdir string) string {
	target := orDefault(raw, strings.TrimSpace(subdir))
	if filepath.IsAbs(target) {
		return filepath.Clean(target)
	}
	return filepath.Join(HomeDir(), target)
}
