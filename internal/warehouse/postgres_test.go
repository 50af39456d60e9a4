package warehouse

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTx records the statements and COPY calls of one transaction.
type fakeTx struct {
	pgx.Tx

	execs      []string
	copied     map[string][][]any
	copyCols   map[string][]string
	copyErr    error
	committed  bool
	rolledBack bool
}

func (f *fakeTx) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.execs = append(f.execs, sql)
	return pgconn.CommandTag{}, nil
}

func (f *fakeTx) CopyFrom(ctx context.Context, table pgx.Identifier, cols []string, src pgx.CopyFromSource) (int64, error) {
	if f.copyErr != nil {
		return 0, f.copyErr
	}
	var rows [][]any
	for src.Next() {
		vals, err := src.Values()
		if err != nil {
			return 0, err
		}
		rows = append(rows, vals)
	}
	f.copied[table[0]] = rows
	f.copyCols[table[0]] = cols
	return int64(len(rows)), nil
}

func (f *fakeTx) Commit(ctx context.Context) error {
	f.committed = true
	return nil
}

func (f *fakeTx) Rollback(ctx context.Context) error {
	if !f.committed {
		f.rolledBack = true
	}
	return nil
}

type fakeBeginner struct{ tx *fakeTx }

func (b *fakeBeginner) Begin(ctx context.Context) (pgx.Tx, error) {
	return b.tx, nil
}

func newFakeTx() *fakeTx {
	return &fakeTx{copied: map[string][][]any{}, copyCols: map[string][]string{}}
}

func TestPostgresLoader_CopiesEveryTable(t *testing.T) {
	tx := newFakeTx()
	loader := newPostgresLoader(&fakeBeginner{tx: tx}, "")

	require.NoError(t, loader.Load(context.Background(), salesTables()))

	assert.True(t, tx.committed)
	assert.False(t, tx.rolledBack)
	assert.Equal(t, []string{
		`DROP TABLE IF EXISTS "upload_table_1"`,
		`CREATE TABLE "upload_table_1" ("region" TEXT, "revenue" DOUBLE PRECISION, "booked" DATE, "active" BOOLEAN)`,
		`DROP TABLE IF EXISTS "upload_table_2"`,
		`CREATE TABLE "upload_table_2" ("note" TEXT, "value" TEXT)`,
	}, tx.execs)

	assert.Equal(t, []string{"region", "revenue", "booked", "active"}, tx.copyCols["upload_table_1"])
	require.Len(t, tx.copied["upload_table_1"], 2)
	assert.Equal(t, "EU", tx.copied["upload_table_1"][0][0])
	assert.Nil(t, tx.copied["upload_table_1"][1][1])
	assert.Equal(t, [][]any{{"mixed", "3"}, {"types", "n/a"}}, tx.copied["upload_table_2"])
}

func TestPostgresLoader_CopyFailureRollsBack(t *testing.T) {
	tx := newFakeTx()
	tx.copyErr = errors.New("connection reset by peer")
	loader := newPostgresLoader(&fakeBeginner{tx: tx}, "upload_")

	err := loader.Load(context.Background(), salesTables())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset by peer")
	assert.False(t, tx.committed)
	assert.True(t, tx.rolledBack)
}

func TestNewPostgres_BadURL(t *testing.T) {
	_, err := NewPostgres(context.Background(), Config{URL: "://not a url"})
	assert.Error(t, err)
}
