package main

import (
	"fmt"

	"astscope/cmd/astscope/ui"
	"astscope/internal/index"

	"github.com/spf13/cobra"
)

var symbolsFilter struct {
	kind     string
	language string
	name     string
	public   bool
	limit    int
}

var symbolsCmd = &cobra.Command{
	Use:   "symbols",
	Short: "Query the symbol index",
	Long: `Lists symbols from the index database written by a previous scan.

Examples:
  astscope symbols --kind struct
  astscope symbols --lang py --public
  astscope symbols --name Greet`,
	RunE: runSymbols,
}

func init() {
	symbolsCmd.Flags().StringVar(&symbolsFilter.kind, "kind", "", "Filter by kind (struct, method, function, ...)")
	symbolsCmd.Flags().StringVar(&symbolsFilter.language, "lang", "", "Filter by language (go, py, rs)")
	symbolsCmd.Flags().StringVar(&symbolsFilter.name, "name", "", "Filter by name prefix")
	symbolsCmd.Flags().BoolVar(&symbolsFilter.public, "public", false, "Only public symbols")
	symbolsCmd.Flags().IntVar(&symbolsFilter.limit, "limit", 100, "Maximum rows")
}

func runSymbols(cmd *cobra.Command, args []string) error {
	store, err := index.Open(indexPath())
	if err != nil {
		return err
	}
	defer store.Close()

	id, _, ok, err := store.LastScan()
	if err != nil {
		return err
	}
	if !ok {
		fmt.Println(ui.Muted("Index is empty; run `astscope scan` first."))
		return nil
	}

	elements, err := store.Query(index.Filter{
		Kind:       symbolsFilter.kind,
		Language:   symbolsFilter.language,
		NamePrefix: symbolsFilter.name,
		PublicOnly: symbolsFilter.public,
		Limit:      symbolsFilter.limit,
	})
	if err != nil {
		return err
	}

	table := ui.NewTable(fmt.Sprintf("Symbols (scan %s)", id),
		"Ref", "Kind", "Lang", "Location", "Signature")
	for _, e := range elements {
		table.AddRow(e.Ref, string(e.Kind), e.Language,
			fmt.Sprintf("%s:%d", e.File, e.StartLine), e.Signature)
	}
	fmt.Print(table.Render())
	fmt.Println(ui.Muted(fmt.Sprintf("%d symbol(s)", len(elements))))
	return nil
}
