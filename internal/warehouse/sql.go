package warehouse

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	_ "modernc.org/sqlite"

	"github.com/JonMunkholm/sheetflow/internal/core"
)

// dialect holds the per-database DDL and value conventions.
type dialect struct {
	name        string
	types       map[kind]string
	placeholder func(n int) string
	date        func(time.Time) any
}

var sqliteDialect = dialect{
	name: DriverSQLite,
	types: map[kind]string{
		kindText:      "TEXT",
		kindNumber:    "REAL",
		kindDate:      "TEXT",
		kindTimestamp: "TEXT",
		kindBool:      "INTEGER",
	},
	placeholder: func(int) string { return "?" },
	date:        func(t time.Time) any { return core.FormatTime(t) },
}

var postgresDialect = dialect{
	name: DriverPostgres,
	types: map[kind]string{
		kindText:      "TEXT",
		kindNumber:    "DOUBLE PRECISION",
		kindDate:      "DATE",
		kindTimestamp: "TIMESTAMP",
		kindBool:      "BOOLEAN",
	},
	placeholder: func(n int) string { return fmt.Sprintf("$%d", n) },
	date:        func(t time.Time) any { return t },
}

func quote(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

func (d dialect) dropSQL(p plan) string {
	return "DROP TABLE IF EXISTS " + quote(p.name)
}

func (d dialect) createSQL(p plan) string {
	cols := make([]string, len(p.columns))
	for i, c := range p.columns {
		cols[i] = quote(c) + " " + d.types[p.kinds[i]]
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)", quote(p.name), strings.Join(cols, ", "))
}

func (d dialect) insertSQL(p plan) string {
	cols := make([]string, len(p.columns))
	marks := make([]string, len(p.columns))
	for i, c := range p.columns {
		cols[i] = quote(c)
		marks[i] = d.placeholder(i + 1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quote(p.name), strings.Join(cols, ", "), strings.Join(marks, ", "))
}

// SQLLoader loads tables through database/sql with row-by-row prepared
// inserts. It backs the SQLite warehouse.
type SQLLoader struct {
	db      *sql.DB
	dialect dialect
	prefix  string
}

// OpenSQLite opens (or creates) the SQLite database at path.
func OpenSQLite(ctx context.Context, path, prefix string) (*SQLLoader, error) {
	if path == "" {
		return nil, errors.New("sqlite warehouse requires a database path")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	return NewSQLLoader(db, DriverSQLite, prefix), nil
}

// NewSQLLoader wraps an open database. driver selects the SQL dialect.
func NewSQLLoader(db *sql.DB, driver, prefix string) *SQLLoader {
	d := sqliteDialect
	if driver == DriverPostgres {
		d = postgresDialect
	}
	if prefix == "" {
		prefix = DefaultTablePrefix
	}
	return &SQLLoader{db: db, dialect: d, prefix: prefix}
}

// Load replaces one table per label inside a single transaction.
func (l *SQLLoader) Load(ctx context.Context, tables *core.TableSet) error {
	if tables.Len() == 0 {
		return core.ErrNoTables
	}
	plans, err := planLoad(l.prefix, tables)
	if err != nil {
		return err
	}

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, p := range plans {
		if err := l.loadTable(ctx, tx, p); err != nil {
			return fmt.Errorf("load %s: %w", p.label, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (l *SQLLoader) loadTable(ctx context.Context, tx *sql.Tx, p plan) error {
	if _, err := tx.ExecContext(ctx, l.dialect.dropSQL(p)); err != nil {
		return fmt.Errorf("drop table: %w", err)
	}
	if _, err := tx.ExecContext(ctx, l.dialect.createSQL(p)); err != nil {
		return fmt.Errorf("create table: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, l.dialect.insertSQL(p))
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for r := 0; r < p.table.NumRows(); r++ {
		if _, err := stmt.ExecContext(ctx, p.row(r, l.dialect.date)...); err != nil {
			return fmt.Errorf("insert row %d: %w", r+1, err)
		}
	}
	return nil
}

// Close closes the underlying database.
func (l *SQLLoader) Close() error {
	return l.db.Close()
}
