// Package warehouse bulk-loads a TableSet into a SQL database.
//
// Every label becomes one table named <prefix><slug(label)>, e.g.
// "upload_table_1". Tables are dropped and recreated on each load, and the
// whole load runs in one transaction: either every table is replaced or none.
package warehouse

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/JonMunkholm/sheetflow/internal/core"
)

// Supported drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// DefaultTablePrefix is prepended to every table name.
const DefaultTablePrefix = "upload_"

// maxIdentifierLength is PostgreSQL's identifier limit.
const maxIdentifierLength = 63

// ErrUnknownDriver is returned by Open for unsupported drivers.
var ErrUnknownDriver = errors.New("unknown warehouse driver")

// Config selects and tunes the backend.
type Config struct {
	Driver          string
	URL             string
	TablePrefix     string
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// Warehouse is a loader that owns a connection pool.
type Warehouse interface {
	core.WarehouseLoader
	Close() error
}

// Open connects to the configured backend. It returns nil and no error when
// no driver is configured.
func Open(ctx context.Context, cfg Config) (Warehouse, error) {
	if cfg.TablePrefix == "" {
		cfg.TablePrefix = DefaultTablePrefix
	}

	switch cfg.Driver {
	case "":
		return nil, nil
	case DriverPostgres:
		l, err := NewPostgres(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return l, nil
	case DriverSQLite:
		l, err := OpenSQLite(ctx, cfg.URL, cfg.TablePrefix)
		if err != nil {
			return nil, err
		}
		return l, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}
}

var nonIdentChars = regexp.MustCompile(`[^a-z0-9]+`)

// Slug lowercases s and replaces every run of other characters with "_".
func Slug(s string) string {
	s = nonIdentChars.ReplaceAllString(strings.ToLower(s), "_")
	return strings.Trim(s, "_")
}

// TableName returns the warehouse table for a label.
func TableName(prefix, label string) string {
	name := prefix + Slug(label)
	if len(name) > maxIdentifierLength {
		name = name[:maxIdentifierLength]
	}
	return name
}

// ColumnNames turns headers into unique, identifier-safe column names.
// Duplicates get "_2", "_3", ... and a suffixed name never reuses one
// already emitted.
func ColumnNames(headers []string) []string {
	out := make([]string, len(headers))
	used := make(map[string]bool, len(headers))

	for i, h := range headers {
		name := Slug(h)
		if name == "" {
			name = "column_" + strconv.Itoa(i+1)
		}
		if name[0] >= '0' && name[0] <= '9' {
			name = "c_" + name
		}
		if len(name) > maxIdentifierLength-4 {
			name = name[:maxIdentifierLength-4]
		}

		candidate := name
		for n := 2; used[candidate]; n++ {
			candidate = name + "_" + strconv.Itoa(n)
		}
		used[candidate] = true
		out[i] = candidate
	}
	return out
}

// kind is the storage class of a column.
type kind int

const (
	kindText kind = iota
	kindNumber
	kindDate
	kindTimestamp
	kindBool
)

// columnKinds picks a storage class per column. A column is typed only when
// all of its non-nil cells share one Go type; otherwise it is stored as text.
// Dates and datetimes together make a timestamp column.
func columnKinds(t *core.Table) []kind {
	kinds := make([]kind, len(t.Columns))
	for c := range t.Columns {
		var seen *kind
		mixed := false
		for r := 0; r < t.NumRows(); r++ {
			v := t.Cell(r, c)
			if v == nil {
				continue
			}
			k := kindOf(v)
			if seen == nil {
				seen = &k
			} else if *seen != k && isTime(*seen) && isTime(k) {
				ts := kindTimestamp
				seen = &ts
			} else if *seen != k {
				mixed = true
				break
			}
		}
		if seen != nil && !mixed {
			kinds[c] = *seen
		}
	}
	return kinds
}

func kindOf(v any) kind {
	switch x := v.(type) {
	case float64, float32, int, int64:
		return kindNumber
	case time.Time:
		if core.HasClock(x) {
			return kindTimestamp
		}
		return kindDate
	case bool:
		return kindBool
	}
	return kindText
}

func isTime(k kind) bool {
	return k == kindDate || k == kindTimestamp
}

// textValue renders a cell for a text column.
func textValue(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case string:
		return x
	case time.Time:
		return core.FormatTime(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}

// plan is the resolved layout of one table load.
type plan struct {
	label   string
	name    string
	columns []string
	kinds   []kind
	table   *core.Table
}

func planLoad(prefix string, tables *core.TableSet) ([]plan, error) {
	var plans []plan
	used := make(map[string]string)

	err := tables.Each(func(label string, t *core.Table) error {
		name := TableName(prefix, label)
		if other, ok := used[name]; ok {
			return fmt.Errorf("tables %q and %q both map to %q", other, label, name)
		}
		used[name] = label
		if len(t.Columns) == 0 {
			return fmt.Errorf("table %q has no columns", label)
		}
		plans = append(plans, plan{
			label:   label,
			name:    name,
			columns: ColumnNames(t.Columns),
			kinds:   columnKinds(t),
			table:   t,
		})
		return nil
	})
	return plans, err
}

// row returns the values of row r ready for the driver. dates converts
// time values for date columns.
func (p plan) row(r int, dates func(time.Time) any) []any {
	vals := make([]any, len(p.columns))
	for c := range p.columns {
		v := p.table.Cell(r, c)
		if v == nil {
			continue
		}
		switch p.kinds[c] {
		case kindText:
			vals[c] = textValue(v)
		case kindDate, kindTimestamp:
			vals[c] = dates(v.(time.Time))
		case kindNumber:
			switch x := v.(type) {
			case float32:
				vals[c] = float64(x)
			case int:
				vals[c] = float64(x)
			case int64:
				vals[c] = float64(x)
			default:
				vals[c] = v
			}
		default:
			vals[c] = v
		}
	}
	return vals
}
