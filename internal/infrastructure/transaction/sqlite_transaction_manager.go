package transaction

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/YoshitsuguKoike/rehearsal/internal/application/port/output"
)

var (
	_ output.TransactionManager = (*SQLiteTransactionManager)(nil)
	_ output.TransactionManager = (*PassthroughTransactionManager)(nil)
)

// txKey carries the active *sql.Tx in a context
type txKey struct{}

// SQLiteTransactionManager runs a turn's writes in one SQLite transaction.
// Repositories pick the *sql.Tx up from the context via GetTxFromContext.
type SQLiteTransactionManager struct {
	db *sql.DB
}

// NewSQLiteTransactionManager creates a new SQLite transaction manager
func NewSQLiteTransactionManager(db *sql.DB) *SQLiteTransactionManager {
	return &SQLiteTransactionManager{db: db}
}

// InTransaction commits when fn succeeds and rolls back when it errors or panics.
// A call made with a context that already carries a transaction joins it.
func (m *SQLiteTransactionManager) InTransaction(ctx context.Context, fn func(txCtx context.Context) error) (err error) {
	if _, ok := GetTxFromContext(ctx); ok {
		return fn(ctx)
	}

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin session transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err = fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback session transaction: %v (after: %w)", rbErr, err)
		}
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit session transaction: %w", err)
	}
	return nil
}

// GetTxFromContext returns the transaction InTransaction stored in ctx
func GetTxFromContext(ctx context.Context) (*sql.Tx, bool) {
	tx, ok := ctx.Value(txKey{}).(*sql.Tx)
	return tx, ok
}
