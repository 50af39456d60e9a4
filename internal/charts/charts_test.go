package charts

import (
	"bytes"
	"image/png"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/sheetflow/internal/core"
)

func numericTable(title string, n int) *core.Table {
	t := &core.Table{Title: title, Columns: []string{"Facility", "Beds"}}
	for i := 0; i < n; i++ {
		t.Rows = append(t.Rows, []any{"F" + string(rune('A'+i)), float64(10 * (i + 1))})
	}
	return t
}

func textTable() *core.Table {
	return &core.Table{Columns: []string{"Note"}, Rows: [][]any{{"hello"}}}
}

func TestRender_AlwaysFiveFigures(t *testing.T) {
	tests := []struct {
		name   string
		tables []*core.Table
	}{
		{"no numeric tables", []*core.Table{textTable()}},
		{"two numeric tables", []*core.Table{numericTable("a", 3), textTable(), numericTable("b", 2)}},
		{"more than five", []*core.Table{
			numericTable("1", 2), numericTable("2", 2), numericTable("3", 2),
			numericTable("4", 2), numericTable("5", 2), numericTable("6", 2),
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			figs, err := New().Render(core.Relabel(tt.tables))
			require.NoError(t, err)
			require.Len(t, figs, FigureCount)

			for i, f := range figs {
				assert.Equal(t, "chart-"+string(rune('1'+i))+".png", f.Name)
				_, err := png.Decode(bytes.NewReader(f.PNG))
				assert.NoError(t, err, "figure %d is not a PNG", i+1)
			}
		})
	}
}

func TestRender_FigureOrderSkipsTablesWithoutNumbers(t *testing.T) {
	set := core.Relabel([]*core.Table{textTable(), numericTable("beds", 3), textTable(), numericTable("staff", 1)})

	figs, err := New().Render(set)
	require.NoError(t, err)

	assert.Equal(t, "Table 2: Beds by Facility (beds)", figs[0].Title)
	assert.Equal(t, "Table 4: Beds by Facility (staff)", figs[1].Title)
	assert.Equal(t, "No data", figs[2].Title)
}

func TestSeriesFor(t *testing.T) {
	tbl := &core.Table{
		Columns: []string{"When", "Name", "Count", "Total"},
		Rows: [][]any{
			{time.Now(), "alpha", 1.0, 5.0},
			{time.Now(), nil, 2.0, 6.0},
			{time.Now(), "gamma", nil, 7.0},
		},
	}

	s, ok := New().seriesFor("Table 1", tbl)
	require.True(t, ok)
	assert.Equal(t, "Count", s.ValueCol)
	assert.Equal(t, "Name", s.LabelCol)
	assert.Equal(t, []string{"alpha", "Row 2"}, s.Categories)
	assert.Equal(t, []float64{1, 2}, s.Values)
}

func TestSeriesFor_SingleValue(t *testing.T) {
	r := New()
	s, ok := r.seriesFor("Table 1", &core.Table{Columns: []string{"N"}, Rows: [][]any{{3.0}}})
	require.True(t, ok)
	assert.Equal(t, []string{"Row 1"}, s.Categories)

	// A constant series still renders.
	_, err := r.draw(s)
	assert.NoError(t, err)
}

func TestShorten(t *testing.T) {
	r := &Renderer{MaxLabel: 5}
	assert.Equal(t, "abc", r.shorten("abc"))
	assert.Equal(t, "abcd…", r.shorten("abcdefgh"))
}
