package transaction

import (
	"context"
)

// PassthroughTransactionManager runs the function directly.
// It backs stores that have no transactions, such as the in-memory session store;
// those stores check each write on their own.
type PassthroughTransactionManager struct{}

// NewPassthroughTransactionManager creates a new passthrough transaction manager
func NewPassthroughTransactionManager() *PassthroughTransactionManager {
	return &PassthroughTransactionManager{}
}

// InTransaction executes fn with the given context
func (m *PassthroughTransactionManager) InTransaction(ctx context.Context, fn func(txCtx context.Context) error) error {
	return fn(ctx)
}
