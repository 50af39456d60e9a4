package rules

import (
	"context"
	"fmt"
	"strings"

	"github.com/JonMunkholm/sheetflow/internal/core"
)

// maxIssuesPerColumn caps row-level findings so one bad column cannot flood
// the report. The remainder is summarised in a single issue.
const maxIssuesPerColumn = 10

// Validator is the default validation stage.
//
// It never mutates its input: every table is copied, cleaned and returned
// under the same label. Findings go to the report; only cancellation is an
// error.
type Validator struct {
	Threshold float64
}

// NewValidator returns a validator using DefaultConsistency.
func NewValidator() *Validator {
	return &Validator{Threshold: DefaultConsistency}
}

// Validate implements core.Validator.
func (v *Validator) Validate(ctx context.Context, tables *core.TableSet) (*core.TableSet, *core.ValidationReport, error) {
	out := core.NewTableSet()
	report := core.NewValidationReport()

	err := tables.Each(func(label string, t *core.Table) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		cleaned, dropped := cleanTable(t)
		v.checkHeaders(label, t.Columns, cleaned.Columns, report)
		v.checkTypes(label, cleaned, report)

		if dropped > 0 {
			report.Add(core.Issue{
				Table:    label,
				Severity: core.SeverityInfo,
				Message:  fmt.Sprintf("dropped %d blank rows", dropped),
			})
		}
		if cleaned.NumRows() == 0 {
			report.Add(core.Issue{
				Table:    label,
				Severity: core.SeverityWarning,
				Message:  "table has no data rows",
			})
		}

		report.Summaries[label] = core.TableSummary{
			Rows:        cleaned.NumRows(),
			Columns:     len(cleaned.Columns),
			DroppedRows: dropped,
		}
		out.Set(label, cleaned)
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	return out, report, nil
}

func (v *Validator) threshold() float64 {
	if v.Threshold <= 0 || v.Threshold > 1 {
		return DefaultConsistency
	}
	return v.Threshold
}

// checkHeaders reports headers that had to be filled in or renamed.
func (v *Validator) checkHeaders(label string, before, after []string, report *core.ValidationReport) {
	for i, name := range after {
		orig := ""
		if i < len(before) {
			orig = CleanCell(before[i])
		}
		switch {
		case orig == "":
			report.Add(core.Issue{
				Table:    label,
				Column:   name,
				Severity: core.SeverityWarning,
				Message:  "blank header replaced",
			})
		case !strings.EqualFold(orig, name):
			report.Add(core.Issue{
				Table:    label,
				Column:   name,
				Severity: core.SeverityWarning,
				Message:  fmt.Sprintf("duplicate header %q renamed", orig),
			})
		}
	}
}

// checkTypes reports cells that disagree with their column's inferred type.
func (v *Validator) checkTypes(label string, t *core.Table, report *core.ValidationReport) {
	for col, name := range t.Columns {
		typ := InferColumn(t.Rows, col, v.threshold())
		if typ == TypeText || typ == TypeEmpty {
			continue
		}

		bad := 0
		for r, row := range t.Rows {
			if _, ok := Convert(row[col], typ); ok {
				continue
			}
			bad++
			if bad <= maxIssuesPerColumn {
				report.Add(core.Issue{
					Table:    label,
					Column:   name,
					Row:      r + 1,
					Severity: core.SeverityWarning,
					Message:  fmt.Sprintf("value %q is not a %s", asText(row[col]), typ),
				})
			}
		}
		if bad > maxIssuesPerColumn {
			report.Add(core.Issue{
				Table:    label,
				Column:   name,
				Severity: core.SeverityWarning,
				Message:  fmt.Sprintf("%d more values are not a %s", bad-maxIssuesPerColumn, typ),
			})
		}
	}
}

// cleanTable copies t with cleaned cells, fixed headers and blank rows
// removed. Rows are padded or cut to the header width.
func cleanTable(t *core.Table) (*core.Table, int) {
	width := len(t.Columns)
	for _, row := range t.Rows {
		if len(row) > width {
			width = len(row)
		}
	}

	out := &core.Table{
		Title:   strings.TrimSpace(t.Title),
		Sheet:   t.Sheet,
		Range:   t.Range,
		Columns: fixHeaders(t.Columns, width),
		Rows:    make([][]any, 0, len(t.Rows)),
	}

	dropped := 0
	for _, row := range t.Rows {
		cleaned := make([]any, width)
		blank := true
		for i := 0; i < width && i < len(row); i++ {
			cleaned[i] = cleanValue(row[i])
			if cleaned[i] != nil {
				blank = false
			}
		}
		if blank {
			dropped++
			continue
		}
		out.Rows = append(out.Rows, cleaned)
	}
	return out, dropped
}

// cleanValue trims strings and turns empty strings into nil.
func cleanValue(v any) any {
	s, ok := v.(string)
	if !ok {
		return v
	}
	s = CleanCell(s)
	if s == "" {
		return nil
	}
	return s
}

// fixHeaders fills blank headers with "Column N" and suffixes duplicates
// with " (2)", " (3)", ... so every column name is unique, case-insensitively.
func fixHeaders(headers []string, width int) []string {
	out := make([]string, width)
	used := make(map[string]bool, width)

	for i := 0; i < width; i++ {
		name := ""
		if i < len(headers) {
			name = CleanCell(headers[i])
		}
		if name == "" {
			name = fmt.Sprintf("Column %d", i+1)
		}

		candidate := name
		for n := 2; used[strings.ToLower(candidate)]; n++ {
			candidate = fmt.Sprintf("%s (%d)", name, n)
		}
		used[strings.ToLower(candidate)] = true
		out[i] = candidate
	}
	return out
}
