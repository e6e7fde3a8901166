package transaction

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *sql.DB {
	db, err := sql.Open("sqlite3", "file::memory:?_txlock=immediate")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`CREATE TABLE items (name TEXT PRIMARY KEY)`)
	require.NoError(t, err)
	return db
}

func countItems(t *testing.T, db *sql.DB) int {
	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM items`).Scan(&n))
	return n
}

func TestSQLiteTransactionManager_CommitsOnSuccess(t *testing.T) {
	db := setupTestDB(t)
	m := NewSQLiteTransactionManager(db)

	err := m.InTransaction(context.Background(), func(txCtx context.Context) error {
		tx, ok := GetTxFromContext(txCtx)
		require.True(t, ok)
		_, err := tx.ExecContext(txCtx, `INSERT INTO items (name) VALUES ('a')`)
		return err
	})

	require.NoError(t, err)
	assert.Equal(t, 1, countItems(t, db))
}

func TestSQLiteTransactionManager_RollsBackOnError(t *testing.T) {
	db := setupTestDB(t)
	m := NewSQLiteTransactionManager(db)
	boom := errors.New("boom")

	err := m.InTransaction(context.Background(), func(txCtx context.Context) error {
		tx, _ := GetTxFromContext(txCtx)
		if _, err := tx.ExecContext(txCtx, `INSERT INTO items (name) VALUES ('a')`); err != nil {
			return err
		}
		return boom
	})

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, countItems(t, db))
}

func TestSQLiteTransactionManager_NestedCallJoinsOuter(t *testing.T) {
	db := setupTestDB(t)
	m := NewSQLiteTransactionManager(db)

	err := m.InTransaction(context.Background(), func(outer context.Context) error {
		outerTx, _ := GetTxFromContext(outer)
		return m.InTransaction(outer, func(inner context.Context) error {
			innerTx, ok := GetTxFromContext(inner)
			require.True(t, ok)
			assert.Same(t, outerTx, innerTx)
			_, err := innerTx.ExecContext(inner, `INSERT INTO items (name) VALUES ('b')`)
			return err
		})
	})

	require.NoError(t, err)
	assert.Equal(t, 1, countItems(t, db))
}

func TestSQLiteTransactionManager_RollsBackOnPanic(t *testing.T) {
	db := setupTestDB(t)
	m := NewSQLiteTransactionManager(db)

	assert.PanicsWithValue(t, "boom", func() {
		_ = m.InTransaction(context.Background(), func(txCtx context.Context) error {
			tx, _ := GetTxFromContext(txCtx)
			_, err := tx.ExecContext(txCtx, `INSERT INTO items (name) VALUES ('c')`)
			require.NoError(t, err)
			panic("boom")
		})
	})

	assert.Equal(t, 0, countItems(t, db))
}

func TestPassthroughTransactionManager(t *testing.T) {
	m := NewPassthroughTransactionManager()
	ctx := context.Background()

	called := false
	err := m.InTransaction(ctx, func(txCtx context.Context) error {
		called = true
		_, ok := GetTxFromContext(txCtx)
		assert.False(t, ok)
		return nil
	})
	require.NoError(t, err)
	assert.True(t, called)

	boom := errors.New("boom")
	assert.ErrorIs(t, m.InTransaction(ctx, func(context.Context) error { return boom }), boom)
}
