// Package workbook renders a TableSet as an xlsx workbook, one sheet per
// table in label order.
package workbook

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/JonMunkholm/sheetflow/internal/core"
)

// MaxSheetNameLength is Excel's limit on worksheet names.
const MaxSheetNameLength = 31

// ContentType is the MIME type of xlsx files.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// SheetName returns the worksheet name for a label: invalid characters are
// replaced and the result is cut to MaxSheetNameLength runes.
func SheetName(label string) string {
	name := strings.Map(func(r rune) rune {
		switch r {
		case ':', '\\', '/', '?', '*', '[', ']':
			return '_'
		}
		return r
	}, label)
	name = strings.Trim(name, "'")
	if name == "" {
		name = "Sheet"
	}
	if r := []rune(name); len(r) > MaxSheetNameLength {
		name = string(r[:MaxSheetNameLength])
	}
	return name
}

// Build creates the workbook. The caller must Close it.
func Build(tables *core.TableSet) (*excelize.File, error) {
	if tables.Len() == 0 {
		return nil, core.ErrNoTables
	}

	f := excelize.NewFile()
	used := make(map[string]bool)
	first := true

	err := tables.Each(func(label string, t *core.Table) error {
		name := uniqueName(SheetName(label), used)
		if first {
			if err := f.SetSheetName(f.GetSheetName(0), name); err != nil {
				return fmt.Errorf("rename sheet: %w", err)
			}
			first = false
		} else if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("add sheet %q: %w", name, err)
		}
		return writeTable(f, name, t)
	})
	if err != nil {
		f.Close()
		return nil, err
	}

	f.SetActiveSheet(0)
	return f, nil
}

// Write renders the workbook to w.
func Write(w io.Writer, tables *core.TableSet) error {
	f, err := Build(tables)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// Bytes renders the workbook into memory.
func Bytes(tables *core.TableSet) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, tables); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// writeTable writes the header in row 1 followed by the data rows.
func writeTable(f *excelize.File, sheet string, t *core.Table) error {
	header := make([]any, len(t.Columns))
	for i, c := range t.Columns {
		header[i] = c
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for r, row := range t.Rows {
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		vals := make([]any, len(row))
		for i, v := range row {
			vals[i] = cellValue(v)
		}
		if err := f.SetSheetRow(sheet, cell, &vals); err != nil {
			return fmt.Errorf("write row %d: %w", r+1, err)
		}
	}
	return nil
}

// cellValue maps table cells to values excelize writes natively. Dates are
// written as ISO text so they read the same in every locale.
func cellValue(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case time.Time:
		return core.FormatTime(x)
	default:
		return x
	}
}

func uniqueName(name string, used map[string]bool) string {
	candidate := name
	for n := 2; used[strings.ToLower(candidate)]; n++ {
		suffix := fmt.Sprintf(" (%d)", n)
		base := []rune(name)
		if len(base)+len(suffix) > MaxSheetNameLength {
			base = base[:MaxSheetNameLength-len(suffix)]
		}
		candidate = string(base) + suffix
	}
	used[strings.ToLower(candidate)] = true
	return candidate
}
