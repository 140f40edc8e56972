// Package repo persists detection runs for the detect service
package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"visionkit/internal/modkit/repokit"
	perr "visionkit/internal/platform/errors"
	"visionkit/internal/platform/store"
	"visionkit/internal/services/detect/domain"
)

// Repo is the run journal plus its schema bootstrap
type Repo interface {
	domain.JournalPort
	Migrate(ctx context.Context) error
}

// dialect carries the statements that differ between backends
type dialect struct {
	schema []string
	insert string
	recent string
	// begin runs first in the migration transaction
	begin []repokit.BeginHook
}

// lockTimeout keeps DDL from queueing forever behind a long running query
func lockTimeout(ctx context.Context, q repokit.Queryer) error {
	_, err := q.Exec(ctx, `set local lock_timeout = '5s'`)
	return err
}

var dialects = map[repokit.Dialect]dialect{
	repokit.DialectPG: {
		schema: []string{
			`create table if not exists detection_runs (
id text primary key,
op text not null,
kinds jsonb not null,
identities jsonb not null,
inputs integer not null,
result_count integer not null,
status text not null,
error_code text not null default '',
error text not null default '',
started_at_ns bigint not null,
duration_ns bigint not null
)`,
			`create index if not exists detection_runs_started_idx on detection_runs (started_at_ns desc)`,
		},
		insert: `
insert into detection_runs (id, op, kinds, identities, inputs, result_count, status, error_code, error, started_at_ns, duration_ns)
values ($1, $2, $3::jsonb, $4::jsonb, $5, $6, $7, $8, $9, $10, $11)
on conflict (id) do nothing
`,
		recent: `
select id, op, kinds::text, identities::text, inputs, result_count, status, error_code, error, started_at_ns, duration_ns
from detection_runs
order by started_at_ns desc
limit $1
`,
		begin: []repokit.BeginHook{lockTimeout},
	},
	repokit.DialectLite: {
		schema: []string{
			`create table if not exists detection_runs (
id text primary key,
op text not null,
kinds text not null,
identities text not null,
inputs integer not null,
result_count integer not null,
status text not null,
error_code text not null default '',
error text not null default '',
started_at_ns integer not null,
duration_ns integer not null
)`,
			`create index if not exists detection_runs_started_idx on detection_runs (started_at_ns desc)`,
		},
		insert: `
insert or ignore into detection_runs (id, op, kinds, identities, inputs, result_count, status, error_code, error, started_at_ns, duration_ns)
values (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`,
		recent: `
select id, op, kinds, identities, inputs, result_count, status, error_code, error, started_at_ns, duration_ns
from detection_runs
order by started_at_ns desc
limit ?
`,
	},
}

type (
	// Binder binds a Repo for one sql dialect
	Binder struct{ d dialect }

	// queries holds the database query methods
	queries struct {
		q repokit.Queryer
		d dialect
	}
)

// NewPG creates a postgres journal binder
func NewPG() repokit.Binder[Repo] { return New(repokit.DialectPG) }

// NewLite creates a sqlite journal binder
func NewLite() repokit.Binder[Repo] { return New(repokit.DialectLite) }

// New creates a journal binder for the given dialect; unknown dialects panic
func New(d repokit.Dialect) repokit.Binder[Repo] {
	dd, ok := dialects[d]
	if !ok {
		panic("detect repo: unsupported dialect " + string(d))
	}
	return Binder{d: dd}
}

// Bind binds a queryer to the Repo implementation
func (b Binder) Bind(q repokit.Queryer) Repo { return &queries{q: q, d: b.d} }

// Migrate creates the schema, inside one transaction when the queryer can run one
func (r *queries) Migrate(ctx context.Context) error {
	var err error
	if tx, ok := r.q.(repokit.TxRunner); ok {
		err = repokit.WithTx(ctx, repokit.WithBeginHooks(tx, r.d.begin...), func(q repokit.Queryer) error {
			return store.ExecAll(ctx, q, r.d.schema...)
		})
	} else {
		err = store.ExecAll(ctx, r.q, r.d.schema...)
	}
	if err != nil {
		return perr.Wrap(err, perr.ErrorCodeDB, "migrate detection_runs")
	}
	return nil
}

func (r *queries) Record(ctx context.Context, run domain.Run) error {
	kinds, err := json.Marshal(nonNil(run.Kinds))
	if err != nil {
		return perr.Wrap(err, perr.ErrorCodeDB, "encode kinds")
	}
	ids, err := json.Marshal(nonNil(run.Identities))
	if err != nil {
		return perr.Wrap(err, perr.ErrorCodeDB, "encode identities")
	}
	_, err = r.q.Exec(ctx, r.d.insert,
		run.ID,
		string(run.Op),
		string(kinds),
		string(ids),
		run.Inputs,
		run.Count,
		run.Status,
		run.ErrorCode,
		run.Error,
		run.StartedAt.UnixNano(),
		run.Duration.Nanoseconds(),
	)
	if err != nil {
		return perr.Wrap(err, perr.ErrorCodeDB, "insert detection run")
	}
	return nil
}

const (
	defaultRecent = 50
	maxRecent     = 500
)

// Recent lists runs newest first; limit defaults to 50 and is capped at 500
func (r *queries) Recent(ctx context.Context, limit int) ([]domain.Run, error) {
	if limit <= 0 {
		limit = defaultRecent
	}
	if limit > maxRecent {
		limit = maxRecent
	}
	out, err := store.Many(ctx, r.q, scanRun, r.d.recent, limit)
	if err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeDB, "list detection runs")
	}
	return out, nil
}

func scanRun(row repokit.Row) (domain.Run, error) {
	var (
		rr             domain.Run
		op, kinds, ids string
		startNs, durNs int64
	)
	if err := row.Scan(
		&rr.ID,
		&op,
		&kinds,
		&ids,
		&rr.Inputs,
		&rr.Count,
		&rr.Status,
		&rr.ErrorCode,
		&rr.Error,
		&startNs,
		&durNs,
	); err != nil {
		return rr, err
	}
	rr.Op = domain.Op(op)
	if err := json.Unmarshal([]byte(kinds), &rr.Kinds); err != nil {
		return rr, fmt.Errorf("decode kinds: %w", err)
	}
	if err := json.Unmarshal([]byte(ids), &rr.Identities); err != nil {
		return rr, fmt.Errorf("decode identities: %w", err)
	}
	rr.StartedAt = time.Unix(0, startNs).UTC()
	rr.Duration = time.Duration(durNs)
	return rr, nil
}

func nonNil(xs []string) []string {
	if xs == nil {
		return []string{}
	}
	return xs
}
