// Package txn provides the gorm-backed UnitOfWork and the context plumbing
// repositories use to join a caller-owned transaction.
package txn

import (
	"context"

	"gorm.io/gorm"
)

type ctxKey struct{}

// WithDB returns a ctx carrying tx. Repositories created over the base *gorm.DB
// will use tx instead for any call made with this ctx.
func WithDB(ctx context.Context, tx *gorm.DB) context.Context {
	return context.WithValue(ctx, ctxKey{}, tx)
}

// From resolves the connection for ctx: the transaction carried by ctx when
// present, otherwise fallback.
func From(ctx context.Context, fallback *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(ctxKey{}).(*gorm.DB); ok && tx != nil {
		return tx.WithContext(ctx)
	}
	return fallback.WithContext(ctx)
}

// UnitOfWork implements ports.UnitOfWork over a gorm connection.
type UnitOfWork struct{ db *gorm.DB }

func New(db *gorm.DB) *UnitOfWork { return &UnitOfWork{db: db} }

// Do runs fn inside one transaction. fn's ctx carries the tx, so repository
// calls made with it read and write the same transaction; any error rolls
// everything back.
func (u *UnitOfWork) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(WithDB(ctx, tx))
	})
}
