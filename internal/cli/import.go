package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/retype/internal/excel"
)

var (
	importSheet    string
	importStartRow int
)

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import content sets from an Excel or CSV file",
	Long: `Import paragraphs and wisdom sections into the remote store. Rows use
the columns set_id, set_title, set_subtitle, kind, item_id, order, type,
title and content.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	importCmd.Flags().StringVar(&importSheet, "sheet", "Sheet1", "Sheet to read from an Excel file")
	importCmd.Flags().IntVar(&importStartRow, "start-row", 2, "First row to import (1-based)")
}

func runImport(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	config := excel.DefaultImportConfig()
	config.FilePath = args[0]
	config.SheetName = importSheet
	config.StartRow = importStartRow

	result, err := excel.NewImporter(s.Store).Import(cmd.Context(), config)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Processed %d rows: %d sets created, %d updated, %d paragraphs, %d wisdom sections, %d skipped\n",
		result.TotalProcessed, result.SetsCreated, result.SetsUpdated, result.Paragraphs, result.Wisdom, result.Skipped)
	for _, e := range result.Errors {
		fmt.Fprintln(out, "  "+e)
	}
	return nil
}
