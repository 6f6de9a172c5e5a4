package repository

import "context"

// TxManager runs a function within a database transaction. The transaction
// is carried in the context; repository implementations pick it up so that
// every call made inside fn shares the same transaction.
type TxManager interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
