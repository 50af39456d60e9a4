package rules

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/sheetflow/internal/core"
)

func salesTable() *core.Table {
	return &core.Table{
		Title:   " Sales ",
		Sheet:   "Q1",
		Columns: []string{"Region", "Revenue", "", "Revenue"},
		Rows: [][]any{
			{"EU", "$1,200", "x", "1"},
			{"", " ", nil, ""},
			{"US", "900", "y", "2"},
			{"APAC", "n/a", "z", "3"},
			{"LATAM", "450", "w", "4"},
			{"MEA", "300", "v", "5"},
		},
	}
}

func TestValidator_KeepsLabelsAndDoesNotMutateInput(t *testing.T) {
	in := core.Relabel([]*core.Table{salesTable(), salesTable()})
	before := salesTable()

	out, report, err := NewValidator().Validate(context.Background(), in)
	require.NoError(t, err)
	require.NotNil(t, report)

	assert.Equal(t, in.Labels(), out.Labels())
	orig, _ := in.Get("Table 1")
	assert.Equal(t, before, orig)
}

func TestValidator_CleansTable(t *testing.T) {
	in := core.Relabel([]*core.Table{salesTable()})

	out, report, err := NewValidator().Validate(context.Background(), in)
	require.NoError(t, err)

	tbl, _ := out.Get("Table 1")
	assert.Equal(t, "Sales", tbl.Title)
	assert.Equal(t, []string{"Region", "Revenue", "Column 3", "Revenue (2)"}, tbl.Columns)
	assert.Equal(t, 5, tbl.NumRows())

	sum := report.Summaries["Table 1"]
	assert.Equal(t, core.TableSummary{Rows: 5, Columns: 4, DroppedRows: 1}, sum)
}

func TestFixHeaders(t *testing.T) {
	tests := []struct {
		name    string
		headers []string
		width   int
		want    []string
	}{
		{"blank and duplicate", []string{"Region", "", "region"}, 3, []string{"Region", "Column 2", "region (2)"}},
		{"suffix already taken", []string{"a", "a (2)", "a"}, 3, []string{"a", "a (2)", "a (3)"}},
		{"suffix taken later", []string{"a", "a", "a (2)"}, 3, []string{"a", "a (2)", "a (2) (2)"}},
		{"filler taken", []string{"Column 2", ""}, 2, []string{"Column 2", "Column 2 (2)"}},
		{"short header row", []string{"a"}, 2, []string{"a", "Column 2"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := fixHeaders(tt.headers, tt.width)
			assert.Equal(t, tt.want, got)

			seen := make(map[string]bool)
			for _, h := range got {
				key := strings.ToLower(h)
				assert.False(t, seen[key], "duplicate header %q", h)
				seen[key] = true
			}
		})
	}
}

func TestValidator_ReportsTypeMismatches(t *testing.T) {
	in := core.Relabel([]*core.Table{salesTable()})

	_, report, err := NewValidator().Validate(context.Background(), in)
	require.NoError(t, err)

	var found bool
	for _, issue := range report.ForTable("Table 1") {
		if issue.Column == "Revenue" && issue.Row == 3 {
			found = true
			assert.Equal(t, core.SeverityWarning, issue.Severity)
			assert.Contains(t, issue.Message, "n/a")
		}
	}
	assert.True(t, found, "expected a mismatch for the n/a revenue cell")
	assert.Equal(t, 1, report.Count(core.SeverityInfo))
}

func TestValidator_CapsIssuesPerColumn(t *testing.T) {
	tbl := &core.Table{Columns: []string{"Amount"}}
	for i := 0; i < 100; i++ {
		tbl.Rows = append(tbl.Rows, []any{"10"})
	}
	for i := 0; i < 15; i++ {
		tbl.Rows = append(tbl.Rows, []any{"oops"})
	}

	_, report, err := NewValidator().Validate(context.Background(), core.Relabel([]*core.Table{tbl}))
	require.NoError(t, err)
	assert.Len(t, report.ForTable("Table 1"), maxIssuesPerColumn+1)
}

func TestValidator_EmptyTableWarns(t *testing.T) {
	tbl := &core.Table{Columns: []string{"A"}, Rows: [][]any{{""}}}

	_, report, err := NewValidator().Validate(context.Background(), core.Relabel([]*core.Table{tbl}))
	require.NoError(t, err)
	assert.Equal(t, 1, report.Count(core.SeverityWarning))
}

func TestValidator_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := NewValidator().Validate(ctx, core.Relabel([]*core.Table{salesTable()}))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTransformer_ConvertsTypes(t *testing.T) {
	tbl := &core.Table{
		Columns: []string{"  Customer   Name ", "Amount", "Due", "Paid"},
		Rows: [][]any{
			{"Acme", "$1,000", "2024-01-15", "yes"},
			{"Globex", "(250)", "2024-02-01", "no"},
			{"Initech", "oops", "2024-03-01", "y"},
			{"Umbrella", "10", "2024-04-01", "n"},
			{"Hooli", "20", "2024-05-01", "true"},
		},
	}
	in := core.Relabel([]*core.Table{tbl})

	out, err := NewTransformer().Transform(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, in.Labels(), out.Labels())

	got, _ := out.Get("Table 1")
	assert.Equal(t, []string{"Customer Name", "Amount", "Due", "Paid"}, got.Columns)
	assert.Equal(t, []any{"Acme", 1000.0, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), true}, got.Rows[0])
	assert.Equal(t, -250.0, got.Rows[1][1])
	assert.Nil(t, got.Rows[2][1], "unparseable number becomes nil")
	assert.Equal(t, false, got.Rows[3][3])
}

func TestInferColumn(t *testing.T) {
	rows := func(vals ...any) [][]any {
		out := make([][]any, len(vals))
		for i, v := range vals {
			out[i] = []any{v}
		}
		return out
	}

	tests := []struct {
		name string
		rows [][]any
		want ColumnType
	}{
		{"empty", rows(nil, nil), TypeEmpty},
		{"numbers", rows("1", "2", "3.5"), TypeNumber},
		{"zero-one is numeric", rows("1", "0", "1"), TypeNumber},
		{"dates", rows("2024-01-01", "1/2/2024"), TypeDate},
		{"bools", rows("yes", "no", "Y"), TypeBool},
		{"mostly text", rows("a", "1", "b"), TypeText},
		{"typed floats", rows(1.5, 2.0), TypeNumber},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, InferColumn(tt.rows, 0, DefaultConsistency))
		})
	}
}
