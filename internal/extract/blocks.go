package extract

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// DetectionParams tunes table block detection.
type DetectionParams struct {
	MinNonemptyCells int // Blocks with fewer filled cells are ignored
	MinRows          int // Header plus at least this many rows minus one
}

// DefaultDetectionParams returns the default detection parameters.
func DefaultDetectionParams() DetectionParams {
	return DetectionParams{
		MinNonemptyCells: 4,
		MinRows:          2,
	}
}

// Block is a rectangular region of a sheet holding one table.
// Coordinates are 0-based and inclusive.
type Block struct {
	MinRow, MaxRow int
	MinCol, MaxCol int
}

// Range returns the block in Excel notation, e.g. "B3:F40".
func (b Block) Range() string {
	start, _ := excelize.CoordinatesToCellName(b.MinCol+1, b.MinRow+1)
	end, _ := excelize.CoordinatesToCellName(b.MaxCol+1, b.MaxRow+1)
	return fmt.Sprintf("%s:%s", start, end)
}

// DetectBlocks splits a sheet into table blocks. Fully blank rows separate
// blocks vertically; fully blank columns inside a band separate them
// horizontally.
func DetectBlocks(rows [][]string, params DetectionParams) []Block {
	var blocks []Block

	for _, band := range rowBands(rows) {
		for _, cols := range columnSpans(rows, band[0], band[1]) {
			b := trimBlock(rows, Block{MinRow: band[0], MaxRow: band[1], MinCol: cols[0], MaxCol: cols[1]})
			if b.MaxRow-b.MinRow+1 < params.MinRows {
				continue
			}
			if countNonEmpty(rows, b) < params.MinNonemptyCells {
				continue
			}
			blocks = append(blocks, b)
		}
	}
	return blocks
}

// rowBands returns [start, end] pairs of consecutive non-blank rows.
func rowBands(rows [][]string) [][2]int {
	var bands [][2]int
	start := -1
	for i, row := range rows {
		if rowBlank(row) {
			if start >= 0 {
				bands = append(bands, [2]int{start, i - 1})
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		bands = append(bands, [2]int{start, len(rows) - 1})
	}
	return bands
}

// columnSpans returns [start, end] pairs of columns that hold data somewhere
// between rows minRow and maxRow.
func columnSpans(rows [][]string, minRow, maxRow int) [][2]int {
	width := 0
	for r := minRow; r <= maxRow; r++ {
		if len(rows[r]) > width {
			width = len(rows[r])
		}
	}

	var spans [][2]int
	start := -1
	for c := 0; c < width; c++ {
		used := false
		for r := minRow; r <= maxRow; r++ {
			if c < len(rows[r]) && filled(rows[r][c]) {
				used = true
				break
			}
		}
		if !used {
			if start >= 0 {
				spans = append(spans, [2]int{start, c - 1})
				start = -1
			}
			continue
		}
		if start < 0 {
			start = c
		}
	}
	if start >= 0 {
		spans = append(spans, [2]int{start, width - 1})
	}
	return spans
}

// trimBlock shrinks b to the rows that have data inside its columns.
func trimBlock(rows [][]string, b Block) Block {
	used := func(r int) bool {
		for c := b.MinCol; c <= b.MaxCol && c < len(rows[r]); c++ {
			if filled(rows[r][c]) {
				return true
			}
		}
		return false
	}
	for b.MinRow < b.MaxRow && !used(b.MinRow) {
		b.MinRow++
	}
	for b.MaxRow > b.MinRow && !used(b.MaxRow) {
		b.MaxRow--
	}
	return b
}

func countNonEmpty(rows [][]string, b Block) int {
	n := 0
	for r := b.MinRow; r <= b.MaxRow && r < len(rows); r++ {
		for c := b.MinCol; c <= b.MaxCol && c < len(rows[r]); c++ {
			if filled(rows[r][c]) {
				n++
			}
		}
	}
	return n
}

// cells returns row r of the block, padded to the block width.
func cells(rows [][]string, b Block, r int) []string {
	out := make([]string, b.MaxCol-b.MinCol+1)
	for c := b.MinCol; c <= b.MaxCol && c < len(rows[r]); c++ {
		out[c-b.MinCol] = rows[r][c]
	}
	return out
}

func rowBlank(row []string) bool {
	for _, cell := range row {
		if filled(cell) {
			return false
		}
	}
	return true
}

func filled(s string) bool {
	return strings.TrimSpace(s) != ""
}
