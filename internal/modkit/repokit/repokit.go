// Package repokit is what repositories import instead of the store: the sql
// seam types, transactions and binding a repo to a seam
package repokit

import (
	"context"
	"fmt"

	"visionkit/internal/platform/store"
)

type (
	// Queryer is the read and write surface a bound repo runs against
	Queryer = store.RowQuerier
	// TxRunner is a Queryer that can open transactions
	TxRunner = store.TxRunner

	// Row is a single row result
	Row = store.Row
	// Rows is a result set
	Rows = store.Rows
	// CommandTag reports what a statement changed
	CommandTag = store.CommandTag

	// Dialect names the sql flavour a Queryer speaks
	Dialect = store.Dialect
)

const (
	// DialectPG uses $n placeholders
	DialectPG = store.DialectPG
	// DialectLite uses ? placeholders
	DialectLite = store.DialectLite
)

// WithTx runs fn inside one transaction of tx
func WithTx(ctx context.Context, tx TxRunner, fn func(q Queryer) error) error {
	return tx.Tx(ctx, fn)
}

// Binder binds a repo to a Queryer
type Binder[T any] interface {
	Bind(Queryer) T
}

// MustBind binds b to q and panics when q is nil, a wiring mistake
func MustBind[T any](b Binder[T], q Queryer) T {
	if q == nil {
		panic("repokit: nil Queryer")
	}
	return b.Bind(q)
}

// MustGuard panics when any configured backend fails its readiness check
func MustGuard(ctx context.Context, st interface{ Guard(context.Context) error }) {
	if err := st.Guard(ctx); err != nil {
		panic(fmt.Errorf("dependency guard failed: %w", err))
	}
}
