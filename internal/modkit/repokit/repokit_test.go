package repokit

import (
	"context"
	"errors"
	"strings"
	"testing"

	kit "visionkit/internal/platform/testkit"
)

type tag struct{}

func (tag) String() string      { return "OK" }
func (tag) RowsAffected() int64 { return 1 }

// logTx records every statement and whether it ran inside Tx
type logTx struct {
	log   []string
	inTx  bool
	txErr error
}

func (l *logTx) Exec(_ context.Context, sql string, _ ...any) (CommandTag, error) {
	if l.inTx {
		sql = "tx:" + sql
	}
	l.log = append(l.log, sql)
	return tag{}, nil
}
func (l *logTx) Query(context.Context, string, ...any) (Rows, error) { return nil, nil }
func (l *logTx) QueryRow(context.Context, string, ...any) Row        { return nil }

func (l *logTx) Tx(ctx context.Context, fn func(Queryer) error) error {
	l.inTx = true
	defer func() { l.inTx = false }()
	if err := fn(l); err != nil {
		return err
	}
	return l.txErr
}

func setting(name string) BeginHook {
	return func(ctx context.Context, q Queryer) error {
		_, err := q.Exec(ctx, "set local "+name)
		return err
	}
}

func TestWithTx(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	tx := &logTx{}
	if err := WithTx(ctx, tx, func(q Queryer) error {
		_, err := q.Exec(ctx, "insert run")
		return err
	}); err != nil {
		t.Fatalf("tx: %v", err)
	}
	if len(tx.log) != 1 || tx.log[0] != "tx:insert run" {
		t.Fatalf("log = %v", tx.log)
	}

	commitErr := errors.New("commit failed")
	tx.txErr = commitErr
	if err := WithTx(ctx, tx, func(Queryer) error { return nil }); !errors.Is(err, commitErr) {
		t.Fatalf("err = %v", err)
	}
}

func TestWithBeginHooks(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	tx := &logTx{}
	if got := WithBeginHooks(tx); got != TxRunner(tx) {
		t.Fatal("no hooks should return the runner unchanged")
	}

	h := WithBeginHooks(tx, setting("lock_timeout"), setting("statement_timeout"))
	if err := h.Tx(ctx, func(q Queryer) error {
		_, err := q.Exec(ctx, "insert run")
		return err
	}); err != nil {
		t.Fatalf("tx: %v", err)
	}
	_, _ = h.Exec(ctx, "select outside")

	want := []string{"tx:set local lock_timeout", "tx:set local statement_timeout", "tx:insert run", "select outside"}
	if strings.Join(tx.log, "|") != strings.Join(want, "|") {
		t.Fatalf("log = %v, want %v", tx.log, want)
	}
}

func TestWithBeginHooks_FailingHookSkipsFn(t *testing.T) {
	t.Parallel()
	boom := errors.New("boom")
	ran := false
	h := WithBeginHooks(&logTx{}, func(context.Context, Queryer) error { return boom })
	err := h.Tx(context.Background(), func(Queryer) error { ran = true; return nil })
	if !errors.Is(err, boom) || ran {
		t.Fatalf("err=%v ran=%v", err, ran)
	}
}

type repo struct{ q Queryer }

type binder struct{}

func (binder) Bind(q Queryer) repo { return repo{q: q} }

func TestMustBind(t *testing.T) {
	t.Parallel()
	tx := &logTx{}
	if r := MustBind[repo](binder{}, tx); r.q != tx {
		t.Fatal("bound to the wrong queryer")
	}
	kit.MustPanic(t, func() { MustBind[repo](binder{}, nil) })
}

type guard struct{ err error }

func (g guard) Guard(context.Context) error { return g.err }

func TestMustGuard(t *testing.T) {
	t.Parallel()
	kit.MustNotPanic(t, func() { MustGuard(context.Background(), guard{}) })
	kit.MustPanic(t, func() { MustGuard(context.Background(), guard{err: errors.New("pg: refused")}) })
}
