package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/terralytics/carbon-cli/internal/lulc"
	"github.com/terralytics/carbon-cli/internal/stock"
)

var sourcesFile string

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List the carbon stock tables",
	Long:  "Prints the built-in carbon stock tables, or the contents of a custom table file.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if sourcesFile != "" {
			table, err := stock.LoadFile(sourcesFile)
			if err != nil {
				return err
			}
			printTables(table)
			return nil
		}

		tables := make([]stock.Table, 0, len(stock.Sources()))
		for _, s := range stock.Sources() {
			table, err := stock.Lookup(s)
			if err != nil {
				return err
			}
			tables = append(tables, table)
		}
		printTables(tables...)
		return nil
	},
}

func printTables(tables ...stock.Table) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprint(w, "CLASS")
	for _, t := range tables {
		fmt.Fprintf(w, "\t%s", t.Source)
	}
	fmt.Fprintln(w)

	for _, class := range lulc.AccountableClasses() {
		fmt.Fprint(w, class)
		for _, t := range tables {
			fmt.Fprintf(w, "\t%.1f", t.Stock(class))
		}
		fmt.Fprintln(w)
	}
	_ = w.Flush()
}

func init() {
	sourcesCmd.Flags().StringVar(&sourcesFile, "file", "", "show a custom stock table file instead")
	rootCmd.AddCommand(sourcesCmd)
}
