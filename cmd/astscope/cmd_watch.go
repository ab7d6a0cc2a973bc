package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"astscope/cmd/astscope/ui"
	"astscope/internal/index"
	"astscope/internal/lang"
	"astscope/internal/scan"
	"astscope/internal/watch"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the workspace and keep the symbol index fresh",
	Long: `Runs an initial scan, then watches the workspace for source file
changes and incrementally re-indexes changed files until interrupted.`,
	RunE: runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	// Watch mode runs until interrupted; no timeout.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	registry := lang.DefaultRegistry()
	sc := scanConfig()

	store, err := index.Open(indexPath())
	if err != nil {
		return err
	}
	defer store.Close()

	scanner := scan.NewScanner(registry, sc)
	report, err := scanner.Scan(ctx, workspace)
	if err != nil {
		return fmt.Errorf("initial scan failed: %w", err)
	}
	if err := store.RecordScan(report); err != nil {
		return fmt.Errorf("failed to index initial scan: %w", err)
	}
	fmt.Println(ui.Success(fmt.Sprintf("Indexed %d symbols from %d files; watching %s",
		len(report.Elements), report.FileCount, workspace)))

	handler := func(ctx context.Context, paths []string) {
		for _, path := range paths {
			if err := reindexFile(ctx, registry, store, path); err != nil {
				logger.Warn("Re-index failed", zap.String("file", path), zap.Error(err))
				fmt.Println(ui.Error(fmt.Sprintf("  %s: %v", path, err)))
				continue
			}
			rel, relErr := filepath.Rel(workspace, path)
			if relErr != nil {
				rel = path
			}
			fmt.Println(ui.Muted("  updated " + rel))
		}
	}

	watcher, err := watch.New(workspace, registry, &sc, handler)
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := watcher.Start(ctx); err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}
	defer watcher.Stop()

	select {
	case <-sigCh:
		logger.Info("Received shutdown signal")
	case <-ctx.Done():
	}

	stats := watcher.GetStats()
	fmt.Println(ui.Muted(fmt.Sprintf("Watch stopped: %d created, %d modified, %d deleted, %d batch(es)",
		stats.FilesCreated, stats.FilesModified, stats.FilesDeleted, stats.Batches)))
	return nil
}

// reindexFile re-parses one file and replaces its index rows. Deleted
// files simply lose their rows. Paths stay absolute to match what the
// full scan indexed.
func reindexFile(ctx context.Context, registry *lang.Registry, store *index.Store, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	src, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return store.ReplaceFile(path, nil)
	}
	if err != nil {
		return err
	}

	result, err := registry.ParseWithFacts(path, src)
	if err != nil {
		return err
	}
	return store.ReplaceFile(path, result.Elements)
}
