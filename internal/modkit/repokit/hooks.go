package repokit

import "context"

// BeginHook runs first inside every transaction, e.g. to set lock_timeout
type BeginHook func(ctx context.Context, q Queryer) error

// WithBeginHooks returns tx with hooks run in order at the start of each Tx.
// Statements outside a transaction pass straight through.
func WithBeginHooks(tx TxRunner, hooks ...BeginHook) TxRunner {
	if len(hooks) == 0 {
		return tx
	}
	return hooked{TxRunner: tx, hooks: hooks}
}

type hooked struct {
	TxRunner
	hooks []BeginHook
}

func (h hooked) Tx(ctx context.Context, fn func(q Queryer) error) error {
	return h.TxRunner.Tx(ctx, func(q Queryer) error {
		for _, hook := range h.hooks {
			if err := hook(ctx, q); err != nil {
				return err
			}
		}
		return fn(q)
	})
}
