package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/sheetflow/internal/application"
	"github.com/JonMunkholm/sheetflow/internal/core"
	"github.com/JonMunkholm/sheetflow/internal/workbook"
)

// cliSession is the session id used for the single CLI run.
const cliSession = "cli"

// offlineCredential satisfies the credential check when no LLM is called.
const offlineCredential = "offline"

// RunOptions holds options for the run command.
type RunOptions struct {
	APIKey    string
	Offline   bool
	Out       string
	ChartsDir string
	Warehouse bool
	JSON      bool
}

// NewRunCommand creates the run command.
func NewRunCommand() *cobra.Command {
	opts := &RunOptions{}

	cmd := &cobra.Command{
		Use:   "run <workbook.xlsx>",
		Short: "Run the pipeline on a workbook",
		Long: `Extract every table from the workbook, validate and transform it, then
print a summary. Optional flags write the result to a workbook, chart
images, or the configured warehouse.`,
		Example: `  # Titles from Gemini, result written to a workbook
  GEMINI_API_KEY=... sheetflow run book.xlsx --out tables.xlsx

  # No LLM, load into the configured warehouse
  sheetflow run book.xlsx --offline --warehouse`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVar(&opts.APIKey, "api-key", os.Getenv("GEMINI_API_KEY"), "Gemini API key (default: $GEMINI_API_KEY)")
	cmd.Flags().BoolVar(&opts.Offline, "offline", false, "Keep sheet-derived titles and skip the LLM")
	cmd.Flags().StringVarP(&opts.Out, "out", "o", "", "Write all tables to this xlsx file")
	cmd.Flags().StringVar(&opts.ChartsDir, "charts", "", "Write chart PNGs to this directory")
	cmd.Flags().BoolVar(&opts.Warehouse, "warehouse", false, "Load the tables into the configured warehouse")
	cmd.Flags().BoolVar(&opts.JSON, "json", false, "Print the summary as JSON")

	return cmd
}

func runPipeline(cmd *cobra.Command, path string, opts *RunOptions) error {
	ctx := cmd.Context()
	cfg := getConfig(cmd)

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read workbook: %w", err)
	}

	app, err := application.New(ctx, cfg, application.Options{
		Offline:       opts.Offline,
		SkipWarehouse: !opts.Warehouse,
	})
	if err != nil {
		return err
	}
	defer app.Close()

	key := opts.APIKey
	if opts.Offline && key == "" {
		key = offlineCredential
	}

	res, err := app.Service.Upload(ctx, cliSession, filepath.Base(path), data, key)
	if err != nil {
		return fmt.Errorf("process %s: %w", filepath.Base(path), err)
	}

	out := cmd.OutOrStdout()
	if opts.JSON {
		if err := printJSON(out, res); err != nil {
			return err
		}
	} else {
		printSummary(out, res)
	}

	if opts.Out != "" {
		if err := writeWorkbook(opts.Out, res.Tables); err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s\n", opts.Out)
	}

	if opts.ChartsDir != "" {
		if err := writeCharts(app.Service, opts.ChartsDir); err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "wrote charts to %s\n", opts.ChartsDir)
	}

	if opts.Warehouse {
		result := app.Service.LoadWarehouse(ctx, cliSession)
		fmt.Fprintln(cmd.ErrOrStderr(), result.Message)
		if !result.OK {
			return fmt.Errorf("warehouse load failed")
		}
	}
	return nil
}

// tableSummary is one row of the run summary.
type tableSummary struct {
	Label    string   `json:"label"`
	Title    string   `json:"title"`
	Sheet    string   `json:"sheet"`
	Range    string   `json:"range"`
	Rows     int      `json:"rows"`
	Columns  []string `json:"columns"`
	Warnings int      `json:"warnings"`
}

func summarize(res *core.RunResult) []tableSummary {
	var out []tableSummary
	_ = res.Tables.Each(func(label string, t *core.Table) error {
		warnings := 0
		for _, issue := range res.Report.ForTable(label) {
			if issue.Severity != core.SeverityInfo {
				warnings++
			}
		}
		out = append(out, tableSummary{
			Label:    label,
			Title:    t.Title,
			Sheet:    t.Sheet,
			Range:    t.Range,
			Rows:     t.NumRows(),
			Columns:  t.Columns,
			Warnings: warnings,
		})
		return nil
	})
	return out
}

func printSummary(w io.Writer, res *core.RunResult) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "LABEL\tTITLE\tSOURCE\tROWS\tCOLS\tWARNINGS")
	for _, s := range summarize(res) {
		fmt.Fprintf(tw, "%s\t%s\t%s!%s\t%d\t%d\t%d\n", s.Label, s.Title, s.Sheet, s.Range, s.Rows, len(s.Columns), s.Warnings)
	}
	_ = tw.Flush()
	fmt.Fprintf(w, "\n%d tables in %s\n", res.Tables.Len(), res.Duration)
}

func printJSON(w io.Writer, res *core.RunResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(map[string]any{
		"tables":      summarize(res),
		"issues":      res.Report.Issues,
		"duration_ms": res.Duration.Milliseconds(),
	})
}

func writeWorkbook(path string, tables *core.TableSet) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	if err := workbook.Write(f, tables); err != nil {
		_ = f.Close()
		return fmt.Errorf("write workbook: %w", err)
	}
	return f.Close()
}

func writeCharts(svc *core.Service, dir string) error {
	figs, err := svc.Charts(cliSession)
	if err != nil {
		return fmt.Errorf("render charts: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create charts dir: %w", err)
	}
	for _, fig := range figs {
		if err := os.WriteFile(filepath.Join(dir, fig.Name), fig.PNG, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", fig.Name, err)
		}
	}
	return nil
}
