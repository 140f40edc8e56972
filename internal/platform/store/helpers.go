package store

import (
	"context"
	"fmt"
)

// ExecAll runs stmts in order, naming the 1-based index of the one that fails
func ExecAll(ctx context.Context, q RowQuerier, stmts ...string) error {
	for i := range stmts {
		if _, err := q.Exec(ctx, stmts[i]); err != nil {
			return fmt.Errorf("statement %d: %w", i+1, err)
		}
	}
	return nil
}

// Many scans every row of the query with scan. No rows is an empty slice, not nil.
func Many[T any](ctx context.Context, q RowQuerier, scan func(Row) (T, error), sql string, args ...any) (out []T, err error) {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out = make([]T, 0, 8)
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan row %d: %w", len(out)+1, err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
