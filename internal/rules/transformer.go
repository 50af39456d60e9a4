package rules

import (
	"context"
	"strconv"
	"strings"

	"github.com/JonMunkholm/sheetflow/internal/core"
)

// Transformer is the default transformation stage. It converts every cell to
// the typed value of its inferred column type (float64, time.Time, bool or
// string) and normalizes header whitespace. Cells that do not parse become nil.
type Transformer struct {
	Threshold float64
}

// NewTransformer returns a transformer using DefaultConsistency.
func NewTransformer() *Transformer {
	return &Transformer{Threshold: DefaultConsistency}
}

// Transform implements core.Transformer.
func (tr *Transformer) Transform(ctx context.Context, tables *core.TableSet) (*core.TableSet, error) {
	threshold := tr.Threshold
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultConsistency
	}

	out := core.NewTableSet()
	err := tables.Each(func(label string, t *core.Table) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		out.Set(label, transformTable(t, threshold))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ColumnTypes returns the inferred type of every column of t.
func ColumnTypes(t *core.Table, threshold float64) []ColumnType {
	types := make([]ColumnType, len(t.Columns))
	for i := range t.Columns {
		types[i] = InferColumn(t.Rows, i, threshold)
	}
	return types
}

func transformTable(t *core.Table, threshold float64) *core.Table {
	types := ColumnTypes(t, threshold)

	out := &core.Table{
		Title:   t.Title,
		Sheet:   t.Sheet,
		Range:   t.Range,
		Columns: make([]string, len(t.Columns)),
		Rows:    make([][]any, len(t.Rows)),
	}
	for i, c := range t.Columns {
		out.Columns[i] = normalizeHeader(c)
	}

	for r, row := range t.Rows {
		converted := make([]any, len(t.Columns))
		for c := range t.Columns {
			if c >= len(row) {
				continue
			}
			if v, ok := Convert(row[c], types[c]); ok {
				converted[c] = v
			}
		}
		out.Rows[r] = converted
	}
	return out
}

// normalizeHeader collapses internal whitespace.
func normalizeHeader(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func formatAny(v any) string {
	switch x := v.(type) {
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	}
	return ""
}
