package main

import (
	"fmt"
	"os"
	"strings"

	"astscope/cmd/astscope/ui"
	"astscope/internal/lang"
	"astscope/internal/rules"
	"astscope/internal/scan"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var matchPattern string

var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Evaluate pattern rules over the workspace",
	Long: `Scans the workspace, loads the extracted facts into the Datalog
kernel, and reports derived pattern matches.

Built-in patterns:
  data_record          record shapes with fields and no methods
  service_type         record shapes with attached methods
  constructor_pattern  type/constructor pairs (NewX, fn new, __init__)
  free_function        public functions outside any type
  documented           elements carrying a doc comment
  undocumented_public  public elements without one
  cross_language_twin  same-named record shapes across languages

Extra rule files from the config (rules.extra_rule_paths) are layered
on top of the built-ins.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runMatch,
}

func init() {
	matchCmd.Flags().StringVarP(&matchPattern, "pattern", "p", "", "Report a single pattern predicate (default: all)")
}

func runMatch(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	scanner := scan.NewScanner(lang.DefaultRegistry(), scanConfig())
	report, err := scanner.Scan(ctx, workspace)
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	kernel := rules.NewKernel()
	for _, path := range cfg.Rules.ExtraRulePaths {
		src, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read extra rules %s: %w", path, err)
		}
		kernel.AddRules(string(src))
	}

	if err := kernel.LoadFacts(report.Facts); err != nil {
		return fmt.Errorf("failed to evaluate rules: %w", err)
	}
	logger.Info("Rules evaluated",
		zap.Int("facts", kernel.FactCount()),
		zap.Int("files", report.FileCount))

	pattern := matchPattern
	if len(args) == 1 {
		pattern = args[0]
	}
	predicates := rules.PatternPredicates
	if pattern != "" {
		predicates = []string{pattern}
	}

	total := 0
	for _, pred := range predicates {
		matches, err := kernel.Query(pred)
		if err != nil {
			return fmt.Errorf("query %s failed: %w", pred, err)
		}
		total += len(matches)
		printMatches(pred, matches)
	}
	fmt.Println(ui.Muted(fmt.Sprintf("%d match(es) across %d pattern(s)", total, len(predicates))))
	return nil
}

func printMatches(pred string, matches []rules.Fact) {
	table := ui.NewTable(pred, "Match")
	for _, m := range matches {
		parts := make([]string, 0, len(m.Args))
		for _, a := range m.Args {
			parts = append(parts, fmt.Sprintf("%v", a))
		}
		table.AddRow(strings.Join(parts, "  "))
	}
	fmt.Print(table.Render())
}
