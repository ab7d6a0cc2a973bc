package scan

import (
	"os"
	"path"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
)

// Config controls workspace scanning performance and scope.
type Config struct {
	// Workers limits concurrent file parsers.
	Workers int
	// IgnorePatterns skips matching paths/dirs relative to the root.
	// Supports simple dir names ("node_modules") and glob patterns
	// ("vendor/*").
	IgnorePatterns []string
	// MaxFileBytes skips AST parsing for files larger than this size.
	MaxFileBytes int64
}

// DefaultConfig returns sane defaults for large repositories.
func DefaultConfig() Config {
	workers := runtime.NumCPU()
	if workers > 16 {
		workers = 16
	}
	if workers < 2 {
		workers = 2
	}
	if env := os.Getenv("ASTSCOPE_SCAN_WORKERS"); env != "" {
		if v, err := strconv.Atoi(env); err == nil && v > 0 {
			workers = v
		}
	}

	maxBytes := int64(2 * 1024 * 1024)
	if env := os.Getenv("ASTSCOPE_MAX_FILE_BYTES"); env != "" {
		if v, err := strconv.ParseInt(env, 10, 64); err == nil && v > 0 {
			maxBytes = v
		}
	}

	return Config{
		Workers: workers,
		IgnorePatterns: []string{
			".git",
			".astscope",
			"node_modules",
			"vendor",
			"dist",
			"build",
			".next",
			"target",
			"bin",
			"obj",
			".venv",
			".cache",
		},
		MaxFileBytes: maxBytes,
	}
}

func normalizePattern(p string) string {
	p = strings.TrimSpace(p)
	p = strings.TrimSuffix(p, "/")
	p = strings.TrimSuffix(p, "\\")
	return filepath.ToSlash(p)
}

// IsIgnored reports whether a root-relative path should be skipped.
func IsIgnored(rel, name string, patterns []string) bool {
	rel = filepath.ToSlash(rel)
	for _, raw := range patterns {
		p := normalizePattern(raw)
		if p == "" {
			continue
		}
		if strings.ContainsAny(p, "*?[]") {
			if ok, _ := path.Match(p, rel); ok {
				return true
			}
			// Directory globs like "vendor/*".
			if strings.HasSuffix(p, "/*") {
				prefix := strings.TrimSuffix(p, "/*")
				if strings.HasPrefix(rel, prefix+"/") {
					return true
				}
			}
			continue
		}
		if name == p {
			return true
		}
		if strings.HasPrefix(rel, p+"/") {
			return true
		}
	}
	return false
}
