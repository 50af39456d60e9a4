package rules

import (
	"context"
	"fmt"
	"testing"

	"github.com/JonMunkholm/sheetflow/internal/core"
)

// BenchmarkParseNumber covers the number formats seen in finance exports.
func BenchmarkParseNumber(b *testing.B) {
	testCases := []string{
		"123",
		"-456.78",
		"$1,234.56",
		"(123.45)",
		"1,234,567.89",
		"  999.99  ",
		"12.5%",
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		for _, tc := range testCases {
			ParseNumber(tc)
		}
	}
}

// BenchmarkParseDate walks the layout list, so late matches cost the most.
func BenchmarkParseDate(b *testing.B) {
	testCases := []string{
		"2024-01-15",
		"01/15/2024",
		"Jan 15, 2024",
		"1/5/24",
		"not a date",
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		for _, tc := range testCases {
			ParseDate(tc)
		}
	}
}

func benchTables(tables, rows int) *core.TableSet {
	out := make([]*core.Table, tables)
	for t := range out {
		tbl := &core.Table{Columns: []string{"Region", "Revenue", "Booked", "Active"}}
		for r := 0; r < rows; r++ {
			tbl.Rows = append(tbl.Rows, []any{
				fmt.Sprintf("region-%d", r%7),
				fmt.Sprintf("$%d,%03d.50", r/1000, r%1000),
				"2024-01-15",
				"yes",
			})
		}
		out[t] = tbl
	}
	return core.Relabel(out)
}

// BenchmarkValidateTransform runs both stages over eight 1k-row tables.
func BenchmarkValidateTransform(b *testing.B) {
	tables := benchTables(8, 1000)
	v, tr := NewValidator(), NewTransformer()
	ctx := context.Background()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		validated, _, err := v.Validate(ctx, tables)
		if err != nil {
			b.Fatal(err)
		}
		if _, err := tr.Transform(ctx, validated); err != nil {
			b.Fatal(err)
		}
	}
}
