// Package scan walks a workspace, routes source files through the
// language parsers, and aggregates elements and facts into a Report.
package scan

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"astscope/internal/lang"
	"astscope/internal/logging"
	"astscope/internal/rules"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// FileError records a non-fatal per-file failure. The scan continues.
type FileError struct {
	Path    string
	Message string
}

// Report is the aggregate result of one workspace scan.
type Report struct {
	ID         string
	Root       string
	StartedAt  time.Time
	Duration   time.Duration
	FileCount  int
	ByLanguage map[string]int
	Elements   []lang.Element
	Facts      []rules.Fact
	Errors     []FileError
}

// Scanner scans a workspace using a parser registry.
type Scanner struct {
	registry *lang.Registry
	config   Config
}

// NewScanner creates a scanner with the given registry and config.
func NewScanner(registry *lang.Registry, config Config) *Scanner {
	return &Scanner{registry: registry, config: config}
}

// Scan walks root and parses every supported file concurrently.
// Parse failures are recorded in Report.Errors, not returned.
func (s *Scanner) Scan(ctx context.Context, root string) (*Report, error) {
	start := time.Now()
	logging.Scan("Starting workspace scan: %s", root)

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	var files []string
	walkErr := filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		rel, _ := filepath.Rel(absRoot, path)
		name := d.Name()

		if d.IsDir() {
			if path != absRoot && IsIgnored(rel, name, s.config.IgnorePatterns) {
				return filepath.SkipDir
			}
			return nil
		}

		if IsIgnored(rel, name, s.config.IgnorePatterns) {
			return nil
		}
		if !s.registry.HasParser(path) {
			return nil
		}
		if info, err := d.Info(); err == nil && info.Size() > s.config.MaxFileBytes {
			logging.ScanDebug("Skipping oversized file: %s (%d bytes)", rel, info.Size())
			return nil
		}

		files = append(files, path)
		return nil
	})
	if walkErr != nil {
		return nil, walkErr
	}

	report := &Report{
		ID:         uuid.NewString(),
		Root:       absRoot,
		StartedAt:  start,
		ByLanguage: make(map[string]int),
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.config.Workers)

	for _, path := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			content, err := os.ReadFile(path)
			if err != nil {
				mu.Lock()
				report.Errors = append(report.Errors, FileError{Path: path, Message: err.Error()})
				mu.Unlock()
				return nil
			}

			result, err := s.registry.ParseWithFacts(path, content)
			if err != nil {
				mu.Lock()
				report.Errors = append(report.Errors, FileError{Path: path, Message: err.Error()})
				mu.Unlock()
				return nil
			}

			language := s.registry.ParserFor(path).Language()

			mu.Lock()
			report.FileCount++
			report.ByLanguage[language]++
			report.Elements = append(report.Elements, result.Elements...)
			report.Facts = append(report.Facts, result.Facts()...)
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Deterministic ordering for stable reports.
	sort.Slice(report.Elements, func(i, j int) bool {
		a, b := &report.Elements[i], &report.Elements[j]
		if a.File != b.File {
			return a.File < b.File
		}
		if a.StartLine != b.StartLine {
			return a.StartLine < b.StartLine
		}
		return a.Ref < b.Ref
	})

	report.Duration = time.Since(start)
	logging.Scan("Scan complete: %d files, %d elements, %d facts, %d errors in %v",
		report.FileCount, len(report.Elements), len(report.Facts), len(report.Errors), report.Duration)
	return report, nil
}
