package output

import (
	"context"
)

// TransactionManager runs a unit of work against the session store atomically.
// A turn's delivery appends and session update commit together or not at all.
type TransactionManager interface {
	// InTransaction executes fn within a transaction carried by txCtx.
	// If fn returns an error (or panics) the transaction is rolled back.
	InTransaction(ctx context.Context, fn func(txCtx context.Context) error) error
}
