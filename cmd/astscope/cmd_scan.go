package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"astscope/cmd/astscope/ui"
	"astscope/internal/index"
	"astscope/internal/lang"
	"astscope/internal/scan"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var scanNoIndex bool

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan the workspace and update the symbol index",
	Long: `Walks the workspace, parses every supported source file (Go, Python,
Rust), and writes the extracted symbols to the index database.

Parse failures are reported but do not abort the scan.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runScan,
}

func init() {
	scanCmd.Flags().BoolVar(&scanNoIndex, "no-index", false, "Skip writing results to the index database")
}

// scanConfig merges the workspace config into the scanner defaults.
func scanConfig() scan.Config {
	sc := scan.DefaultConfig()
	if cfg.Scanner.Workers > 0 {
		sc.Workers = cfg.Scanner.Workers
	}
	if len(cfg.Scanner.IgnorePatterns) > 0 {
		sc.IgnorePatterns = cfg.Scanner.IgnorePatterns
	}
	if cfg.Scanner.MaxFileBytes > 0 {
		sc.MaxFileBytes = cfg.Scanner.MaxFileBytes
	}
	return sc
}

// signalContext returns a context cancelled by SIGINT/SIGTERM and
// bounded by the global timeout.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			logger.Info("Received shutdown signal")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()

	return ctx, cancel
}

func runScan(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	root := workspace
	if len(args) == 1 {
		root = args[0]
	}

	scanner := scan.NewScanner(lang.DefaultRegistry(), scanConfig())
	report, err := scanner.Scan(ctx, root)
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	logger.Info("Scan complete",
		zap.String("scan_id", report.ID),
		zap.Int("files", report.FileCount),
		zap.Int("elements", len(report.Elements)),
		zap.Duration("duration", report.Duration))

	if !scanNoIndex {
		store, err := index.Open(indexPath())
		if err != nil {
			return err
		}
		defer store.Close()
		if err := store.RecordScan(report); err != nil {
			return fmt.Errorf("failed to index scan: %w", err)
		}
	}

	printScanReport(report)
	return nil
}

func printScanReport(report *scan.Report) {
	fmt.Println(ui.Title("Scan " + report.ID))
	fmt.Printf("  files:    %d\n", report.FileCount)
	fmt.Printf("  symbols:  %d\n", len(report.Elements))
	fmt.Printf("  facts:    %d\n", len(report.Facts))
	fmt.Printf("  duration: %s\n", report.Duration.Round(time.Millisecond))

	if len(report.ByLanguage) > 0 {
		langs := make([]string, 0, len(report.ByLanguage))
		for l := range report.ByLanguage {
			langs = append(langs, l)
		}
		sort.Strings(langs)
		table := ui.NewTable("By language", "Language", "Files")
		for _, l := range langs {
			table.AddRow(l, fmt.Sprintf("%d", report.ByLanguage[l]))
		}
		fmt.Print(table.Render())
	}

	for _, fe := range report.Errors {
		fmt.Println(ui.Error(fmt.Sprintf("  parse error: %s: %s", fe.Path, fe.Message)))
	}
	if len(report.Errors) == 0 {
		fmt.Println(ui.Success("  no parse errors"))
	}
}
