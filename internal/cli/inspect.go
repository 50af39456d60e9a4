package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/xuri/excelize/v2"

	"github.com/JonMunkholm/sheetflow/internal/extract"
)

// NewInspectCommand creates the inspect command.
func NewInspectCommand() *cobra.Command {
	var minCells int

	cmd := &cobra.Command{
		Use:   "inspect <workbook.xlsx>",
		Short: "List the table blocks detected in a workbook",
		Long: `Scan every sheet and print the cell ranges that would be extracted as
tables. Nothing is validated and no LLM is called.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params := extract.DefaultDetectionParams()
			if cfg := getConfig(cmd); cfg.Pipeline.MinTableCells > 0 {
				params.MinNonemptyCells = cfg.Pipeline.MinTableCells
			}
			if minCells > 0 {
				params.MinNonemptyCells = minCells
			}

			f, err := excelize.OpenFile(args[0])
			if err != nil {
				return fmt.Errorf("open workbook: %w", err)
			}
			defer f.Close()

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "SHEET\tRANGE\tROWS\tCOLS")
			total := 0
			for _, sheet := range f.GetSheetList() {
				rows, err := f.GetRows(sheet)
				if err != nil {
					return fmt.Errorf("read sheet %q: %w", sheet, err)
				}
				for _, b := range extract.DetectBlocks(rows, params) {
					fmt.Fprintf(tw, "%s\t%s\t%d\t%d\n", sheet, b.Range(), b.MaxRow-b.MinRow+1, b.MaxCol-b.MinCol+1)
					total++
				}
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\n%d tables\n", total)
			return nil
		},
	}

	cmd.Flags().IntVar(&minCells, "min-cells", 0, "Minimum filled cells for a block to count as a table")
	return cmd
}
