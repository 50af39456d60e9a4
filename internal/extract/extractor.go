// Package extract finds tables in uploaded workbooks.
//
// A workbook is opened with excelize and every sheet is scanned for table
// blocks (see DetectBlocks). The first row of a block is its header, unless
// the block opens with a lone caption cell, which becomes the title. A Titler
// may then name every table; the default one asks Gemini.
package extract

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/JonMunkholm/sheetflow/internal/core"
)

// Titler names extracted tables. It returns one title per table, in order;
// empty strings keep the default title.
type Titler interface {
	Titles(ctx context.Context, apiKey, sourceFilename string, tables []*core.Table) ([]string, error)
}

// TitlerFunc adapts a function to the Titler interface.
type TitlerFunc func(ctx context.Context, apiKey, sourceFilename string, tables []*core.Table) ([]string, error)

func (f TitlerFunc) Titles(ctx context.Context, apiKey, sourceFilename string, tables []*core.Table) ([]string, error) {
	return f(ctx, apiKey, sourceFilename, tables)
}

// Extractor is the default core.Extractor.
type Extractor struct {
	titler Titler
	params DetectionParams
}

// New creates an extractor. titler may be nil to keep default titles.
func New(titler Titler, params DetectionParams) *Extractor {
	return &Extractor{titler: titler, params: params}
}

// Extract implements core.Extractor.
func (e *Extractor) Extract(ctx context.Context, path, sourceFilename, apiKey string) ([]*core.Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	var tables []*core.Table
	for _, sheet := range f.GetSheetList() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
		}
		for _, b := range DetectBlocks(rows, e.params) {
			if t := buildTable(sheet, rows, b); t != nil {
				tables = append(tables, t)
			}
		}
	}

	slog.Debug("workbook scanned", "file", sourceFilename, "sheets", len(f.GetSheetList()), "tables", len(tables))

	if len(tables) == 0 || e.titler == nil {
		return tables, nil
	}

	titles, err := e.titler.Titles(ctx, apiKey, sourceFilename, tables)
	if err != nil {
		return nil, fmt.Errorf("generate titles: %w", err)
	}
	if len(titles) != len(tables) {
		slog.Warn("title count mismatch", "titles", len(titles), "tables", len(tables))
	}
	for i := range tables {
		if i < len(titles) && strings.TrimSpace(titles[i]) != "" {
			tables[i].Title = strings.TrimSpace(titles[i])
		}
	}
	return tables, nil
}

// buildTable turns a block into a table. A block whose first row has a single
// filled cell and is followed by a wider row uses that cell as its title.
func buildTable(sheet string, rows [][]string, b Block) *core.Table {
	title := ""
	headerRow := b.MinRow

	first := cells(rows, b, b.MinRow)
	if b.MaxRow-b.MinRow >= 2 && filledCount(first) == 1 && filledCount(cells(rows, b, b.MinRow+1)) > 1 {
		title = strings.TrimSpace(firstFilled(first))
		headerRow++
	}

	header := cells(rows, b, headerRow)
	t := &core.Table{
		Title:   title,
		Sheet:   sheet,
		Range:   Block{MinRow: headerRow, MaxRow: b.MaxRow, MinCol: b.MinCol, MaxCol: b.MaxCol}.Range(),
		Columns: header,
	}
	if t.Title == "" {
		t.Title = fmt.Sprintf("%s %s", sheet, t.Range)
	}

	for r := headerRow + 1; r <= b.MaxRow; r++ {
		raw := cells(rows, b, r)
		row := make([]any, len(raw))
		for i, v := range raw {
			if filled(v) {
				row[i] = v
			}
		}
		t.Rows = append(t.Rows, row)
	}
	if len(t.Rows) == 0 {
		return nil
	}
	return t
}

func filledCount(row []string) int {
	n := 0
	for _, c := range row {
		if filled(c) {
			n++
		}
	}
	return n
}

func firstFilled(row []string) string {
	for _, c := range row {
		if filled(c) {
			return c
		}
	}
	return ""
}
