package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// pgConn is what *pgxpool.Pool and pgx.Tx have in common
type pgConn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type pgQuerier struct {
	c  pgConn
	tr trace
}

func (q pgQuerier) Exec(ctx context.Context, sql string, args ...any) (CommandTag, error) {
	start := time.Now()
	ct, err := q.c.Exec(ctx, sql, args...)
	q.tr.done(ctx, sql, args, start, err)
	if err != nil {
		return nil, err
	}
	return ct, nil
}

func (q pgQuerier) Query(ctx context.Context, sql string, args ...any) (Rows, error) {
	start := time.Now()
	rs, err := q.c.Query(ctx, sql, args...)
	q.tr.done(ctx, sql, args, start, err)
	if err != nil {
		return nil, err
	}
	return pgRows{rs}, nil
}

func (q pgQuerier) QueryRow(ctx context.Context, sql string, args ...any) Row {
	start := time.Now()
	r := q.c.QueryRow(ctx, sql, args...)
	return tracedRow{r: r, after: func(err error) { q.tr.done(ctx, sql, args, start, err) }}
}

type pgRows struct{ pgx.Rows }

func (r pgRows) Columns() []string {
	fds := r.FieldDescriptions()
	out := make([]string, len(fds))
	for i, fd := range fds {
		out[i] = fd.Name
	}
	return out
}

// pgAdapter is the postgres TxRunner
type pgAdapter struct {
	pgQuerier
	pool *pgxpool.Pool
}

func newPGAdapter(pool *pgxpool.Pool, tr trace) *pgAdapter {
	return &pgAdapter{pgQuerier: pgQuerier{c: pool, tr: tr}, pool: pool}
}

func (a *pgAdapter) Ping(ctx context.Context) error {
	if a == nil || a.pool == nil {
		return errors.New("pg: not open")
	}
	return a.pool.Ping(ctx)
}

func (a *pgAdapter) Close() error {
	a.pool.Close()
	return nil
}

func (a *pgAdapter) Tx(ctx context.Context, fn func(q RowQuerier) error) error {
	tx, err := a.pool.Begin(ctx)
	if err != nil {
		return err
	}
	return finish(fn(pgQuerier{c: tx, tr: a.tr}),
		func() error { return tx.Commit(ctx) },
		func() error { return tx.Rollback(ctx) })
}

// sqlConn is what *sql.DB and *sql.Tx have in common
type sqlConn interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type liteQuerier struct {
	c  sqlConn
	tr trace
}

func (q liteQuerier) Exec(ctx context.Context, query string, args ...any) (CommandTag, error) {
	start := time.Now()
	res, err := q.c.ExecContext(ctx, query, args...)
	q.tr.done(ctx, query, args, start, err)
	if err != nil {
		return nil, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	return liteTag(n), nil
}

func (q liteQuerier) Query(ctx context.Context, query string, args ...any) (Rows, error) {
	start := time.Now()
	rs, err := q.c.QueryContext(ctx, query, args...)
	q.tr.done(ctx, query, args, start, err)
	if err != nil {
		return nil, err
	}
	return liteRows{rs}, nil
}

func (q liteQuerier) QueryRow(ctx context.Context, query string, args ...any) Row {
	start := time.Now()
	r := q.c.QueryRowContext(ctx, query, args...)
	return tracedRow{r: r, after: func(err error) { q.tr.done(ctx, query, args, start, err) }}
}

type liteRows struct{ *sql.Rows }

func (r liteRows) Close() { _ = r.Rows.Close() }

func (r liteRows) Columns() []string {
	cols, _ := r.Rows.Columns()
	return cols
}

type liteTag int64

func (t liteTag) String() string      { return fmt.Sprintf("ROWS %d", int64(t)) }
func (t liteTag) RowsAffected() int64 { return int64(t) }

// liteAdapter is the sqlite TxRunner
type liteAdapter struct {
	liteQuerier
	db *sql.DB
}

func newLiteAdapter(db *sql.DB, tr trace) *liteAdapter {
	return &liteAdapter{liteQuerier: liteQuerier{c: db, tr: tr}, db: db}
}

func (a *liteAdapter) Ping(ctx context.Context) error {
	if a == nil || a.db == nil {
		return errors.New("sqlite: not open")
	}
	return a.db.PingContext(ctx)
}

func (a *liteAdapter) Close() error { return a.db.Close() }

func (a *liteAdapter) Tx(ctx context.Context, fn func(q RowQuerier) error) error {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	return finish(fn(liteQuerier{c: tx, tr: a.tr}), tx.Commit, tx.Rollback)
}

// finish commits when err is nil and rolls back otherwise
func finish(err error, commit, rollback func() error) error {
	if err != nil {
		_ = rollback()
		return err
	}
	return commit()
}
