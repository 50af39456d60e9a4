package extract

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/JonMunkholm/sheetflow/internal/core"
)

// writeWorkbook saves sheets (name -> cell -> value) to a temp xlsx file.
func writeWorkbook(t *testing.T, sheets map[string]map[string]any, order ...string) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	for i, name := range order {
		if i == 0 {
			require.NoError(t, f.SetSheetName("Sheet1", name))
		} else {
			_, err := f.NewSheet(name)
			require.NoError(t, err)
		}
		for cell, v := range sheets[name] {
			require.NoError(t, f.SetCellValue(name, cell, v))
		}
	}

	path := filepath.Join(t.TempDir(), "book.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestExtract_FindsBlocksAcrossSheets(t *testing.T) {
	path := writeWorkbook(t, map[string]map[string]any{
		"Summary": {
			"A1": "Region", "B1": "Revenue",
			"A2": "EU", "B2": 1200,
			"A3": "US", "B3": 900,
			// blank row 4
			"A5": "Facility", "B5": "Beds", "C5": "Open",
			"A6": "North", "B6": 40, "C6": "yes",
		},
		"Detail": {
			"B2": "Quarterly detail",
			"B3": "Quarter", "C3": "Amount",
			"B4": "Q1", "C4": 10,
			"B5": "Q2", "C5": 20,
		},
	}, "Summary", "Detail")

	tables, err := New(nil, DefaultDetectionParams()).Extract(context.Background(), path, "book.xlsx", "key")
	require.NoError(t, err)
	require.Len(t, tables, 3)

	assert.Equal(t, []string{"Region", "Revenue"}, tables[0].Columns)
	assert.Equal(t, "Summary", tables[0].Sheet)
	assert.Equal(t, "A1:B3", tables[0].Range)
	assert.Equal(t, [][]any{{"EU", "1200"}, {"US", "900"}}, tables[0].Rows)

	assert.Equal(t, []string{"Facility", "Beds", "Open"}, tables[1].Columns)
	assert.Len(t, tables[1].Rows, 1)

	assert.Equal(t, "Quarterly detail", tables[2].Title)
	assert.Equal(t, []string{"Quarter", "Amount"}, tables[2].Columns)
	assert.Equal(t, "B3:C5", tables[2].Range)
}

func TestExtract_SideBySideBlocks(t *testing.T) {
	path := writeWorkbook(t, map[string]map[string]any{
		"Data": {
			"A1": "Name", "B1": "Qty",
			"A2": "bolt", "B2": 3,
			"D1": "City", "E1": "Pop",
			"D2": "Oslo", "E2": 700,
		},
	}, "Data")

	tables, err := New(nil, DefaultDetectionParams()).Extract(context.Background(), path, "book.xlsx", "key")
	require.NoError(t, err)
	require.Len(t, tables, 2)
	assert.Equal(t, []string{"Name", "Qty"}, tables[0].Columns)
	assert.Equal(t, []string{"City", "Pop"}, tables[1].Columns)
}

func TestExtract_AppliesTitles(t *testing.T) {
	path := writeWorkbook(t, map[string]map[string]any{
		"S": {"A1": "a", "B1": "b", "A2": 1, "B2": 2},
	}, "S")

	var gotKey string
	titler := TitlerFunc(func(ctx context.Context, apiKey, source string, tables []*core.Table) ([]string, error) {
		gotKey = apiKey
		return []string{"  Widget counts "}, nil
	})

	tables, err := New(titler, DefaultDetectionParams()).Extract(context.Background(), path, "book.xlsx", "secret")
	require.NoError(t, err)
	require.Len(t, tables, 1)
	assert.Equal(t, "Widget counts", tables[0].Title)
	assert.Equal(t, "secret", gotKey)
}

func TestExtract_TitlerFailureFails(t *testing.T) {
	path := writeWorkbook(t, map[string]map[string]any{
		"S": {"A1": "a", "B1": "b", "A2": 1, "B2": 2},
	}, "S")

	titler := TitlerFunc(func(context.Context, string, string, []*core.Table) ([]string, error) {
		return nil, errors.New("quota exceeded")
	})

	_, err := New(titler, DefaultDetectionParams()).Extract(context.Background(), path, "book.xlsx", "key")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestExtract_NotAWorkbook(t *testing.T) {
	_, err := New(nil, DefaultDetectionParams()).Extract(context.Background(), filepath.Join(t.TempDir(), "missing.xlsx"), "x.xlsx", "key")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open workbook")
}

func TestDetectBlocks(t *testing.T) {
	rows := [][]string{
		{"h1", "h2"},
		{"1", "2"},
		{},
		{"lonely"},
		{},
		{"", "", "x", "y"},
		{"", "", "3", "4"},
	}

	blocks := DetectBlocks(rows, DefaultDetectionParams())
	require.Len(t, blocks, 2)
	assert.Equal(t, "A1:B2", blocks[0].Range())
	assert.Equal(t, "C6:D7", blocks[1].Range())
}
