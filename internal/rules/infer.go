package rules

import (
	"time"

	"github.com/JonMunkholm/sheetflow/internal/core"
)

// ColumnType is the inferred type of a column.
type ColumnType string

const (
	TypeEmpty  ColumnType = "empty"
	TypeNumber ColumnType = "number"
	TypeDate   ColumnType = "date"
	TypeBool   ColumnType = "bool"
	TypeText   ColumnType = "text"
)

// DefaultConsistency is the share of non-empty cells that must parse as a
// type for the column to be inferred as that type.
const DefaultConsistency = 0.8

// InferColumn infers the type of column col of rows. Numbers win over dates
// and dates over booleans; anything below the threshold is text.
func InferColumn(rows [][]any, col int, threshold float64) ColumnType {
	var filled, numbers, dates, bools int

	for _, row := range rows {
		if col >= len(row) || row[col] == nil {
			continue
		}
		filled++
		if _, ok := asNumber(row[col]); ok {
			numbers++
		}
		if _, ok := asDate(row[col]); ok {
			dates++
		}
		if _, ok := asBool(row[col]); ok {
			bools++
		}
	}

	if filled == 0 {
		return TypeEmpty
	}

	share := func(n int) float64 { return float64(n) / float64(filled) }
	switch {
	case share(numbers) >= threshold:
		return TypeNumber
	case share(dates) >= threshold:
		return TypeDate
	case share(bools) >= threshold:
		return TypeBool
	default:
		return TypeText
	}
}

// Convert returns v as the Go value for typ, or false when it does not parse.
func Convert(v any, typ ColumnType) (any, bool) {
	if v == nil {
		return nil, true
	}
	switch typ {
	case TypeNumber:
		f, ok := asNumber(v)
		return f, ok
	case TypeDate:
		t, ok := asDate(v)
		return t, ok
	case TypeBool:
		b, ok := asBool(v)
		return b, ok
	default:
		return asText(v), true
	}
}

func asNumber(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case string:
		return ParseNumber(x)
	}
	return 0, false
}

func asDate(v any) (time.Time, bool) {
	switch x := v.(type) {
	case time.Time:
		return x, true
	case string:
		return ParseDate(x)
	}
	return time.Time{}, false
}

func asBool(v any) (bool, bool) {
	switch x := v.(type) {
	case bool:
		return x, true
	case string:
		return ParseBool(x)
	}
	return false, false
}

func asText(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case time.Time:
		return core.FormatTime(x)
	case nil:
		return ""
	}
	return formatAny(v)
}
