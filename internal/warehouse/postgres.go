package warehouse

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/sheetflow/internal/core"
)

// txBeginner is the part of *pgxpool.Pool the loader needs.
type txBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// PostgresLoader loads tables into PostgreSQL using COPY.
type PostgresLoader struct {
	db     txBeginner
	pool   *pgxpool.Pool
	prefix string
}

// NewPostgres builds a connection pool from cfg and verifies it.
func NewPostgres(ctx context.Context, cfg Config) (*PostgresLoader, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse warehouse url: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = int32(cfg.MaxConns)
	}
	if cfg.MinConns > 0 {
		poolConfig.MinConns = int32(cfg.MinConns)
	}
	if cfg.MaxConnLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping warehouse: %w", err)
	}

	l := newPostgresLoader(pool, cfg.TablePrefix)
	l.pool = pool
	return l, nil
}

func newPostgresLoader(db txBeginner, prefix string) *PostgresLoader {
	if prefix == "" {
		prefix = DefaultTablePrefix
	}
	return &PostgresLoader{db: db, prefix: prefix}
}

// Load replaces one table per label inside a single transaction.
func (l *PostgresLoader) Load(ctx context.Context, tables *core.TableSet) error {
	if tables.Len() == 0 {
		return core.ErrNoTables
	}
	plans, err := planLoad(l.prefix, tables)
	if err != nil {
		return err
	}

	tx, err := l.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, p := range plans {
		if _, err := tx.Exec(ctx, postgresDialect.dropSQL(p)); err != nil {
			return fmt.Errorf("load %s: drop table: %w", p.label, err)
		}
		if _, err := tx.Exec(ctx, postgresDialect.createSQL(p)); err != nil {
			return fmt.Errorf("load %s: create table: %w", p.label, err)
		}

		rows := make([][]any, p.table.NumRows())
		for r := range rows {
			rows[r] = p.row(r, postgresDialect.date)
		}
		n, err := tx.CopyFrom(ctx, pgx.Identifier{p.name}, p.columns, pgx.CopyFromRows(rows))
		if err != nil {
			return fmt.Errorf("load %s: copy: %w", p.label, err)
		}
		if int(n) != len(rows) {
			return fmt.Errorf("load %s: copied %d of %d rows", p.label, n, len(rows))
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Close releases the pool.
func (l *PostgresLoader) Close() error {
	if l.pool != nil {
		l.pool.Close()
	}
	return nil
}
