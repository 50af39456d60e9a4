package templates

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/sheetflow/internal/core"
)

func TestFormatCell(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{nil, ""},
		{"EU", "EU"},
		{1250.5, "1250.5"},
		{float64(3), "3"},
		{time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC), "2025-01-31"},
		{time.Date(2025, 1, 31, 17, 45, 0, 0, time.UTC), "2025-01-31 17:45:00"},
		{true, "yes"},
		{false, "no"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatCell(tt.in))
	}
}

func TestPreview_EscapesAndCaps(t *testing.T) {
	tbl := &core.Table{
		Title:   "<b>Sales</b>",
		Sheet:   "Q1",
		Range:   "A1:B60",
		Columns: []string{"Region", "Amount"},
	}
	for i := 0; i < MaxPreviewRows+5; i++ {
		tbl.Rows = append(tbl.Rows, []any{"r", float64(i)})
	}

	var sb strings.Builder
	err := Preview("Table 1", tbl, []core.Issue{{Table: "Table 1", Severity: core.SeverityWarning, Message: "x"}}).
		Render(context.Background(), &sb)
	require.NoError(t, err)

	out := sb.String()
	assert.Contains(t, out, "&lt;b&gt;Sales&lt;/b&gt;")
	assert.NotContains(t, out, "<b>Sales")
	assert.Equal(t, MaxPreviewRows, strings.Count(out, "<tr>")-1)
	assert.Contains(t, out, "Showing 50 of 55 rows")
	assert.Contains(t, out, `<li class="warning">`)
}

func TestPage_ReadySession(t *testing.T) {
	tables := core.Relabel([]*core.Table{
		{Columns: []string{"A"}, Rows: [][]any{{"x"}}},
		{Columns: []string{"B"}, Rows: [][]any{{"y"}}},
	})
	first, _ := tables.Get("Table 1")

	data := PageData{
		Session: core.UploadSession{
			FileName:   "book.xlsx",
			Credential: "secret-key",
			Phase:      core.PhaseReady,
			Tables:     tables,
			Report:     core.NewValidationReport(),
		},
		Selected:         "Table 1",
		Table:            first,
		Flashes:          []Flash{{Kind: FlashSuccess, Text: "done"}},
		WarehouseEnabled: true,
		EmailTables:      []string{"Table 1", "Table 4"},
	}

	var sb strings.Builder
	require.NoError(t, Page(data).Render(context.Background(), &sb))
	out := sb.String()

	assert.Contains(t, out, `<option value="Table 1" selected>`)
	assert.Contains(t, out, `<option value="Table 2">`)
	assert.Contains(t, out, `action="/warehouse"`)
	assert.Contains(t, out, "Email Table 1, Table 4")
	assert.Contains(t, out, `class="flash success"`)
	assert.NotContains(t, out, "secret-key")
}

func TestPage_IdleHidesActions(t *testing.T) {
	var sb strings.Builder
	require.NoError(t, Page(PageData{}).Render(context.Background(), &sb))
	assert.NotContains(t, sb.String(), `action="/email"`)
	assert.Contains(t, sb.String(), `action="/upload"`)
}

func TestCharts(t *testing.T) {
	figs := []core.Figure{{Name: "chart-1.png", Title: "Table 1: A & B"}}
	var sb strings.Builder
	require.NoError(t, Charts(figs).Render(context.Background(), &sb))
	assert.Contains(t, sb.String(), `src="/charts/1.png"`)
	assert.Contains(t, sb.String(), "A &amp; B")
}
