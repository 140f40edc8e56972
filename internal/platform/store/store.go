// Package store opens the optional sql backends the run journal lives in
package store

import (
	"context"
	"errors"
	"fmt"

	"visionkit/internal/platform/logger"
)

// Store holds the sql seams that were enabled; the zero value has none
type Store struct {
	Log logger.Logger

	// PG is the postgres seam, nil when disabled
	PG TxRunner
	// Lite is the embedded sqlite seam, nil when disabled
	Lite TxRunner
}

// Row is a single row result
type Row interface {
	Scan(dest ...any) error
}

// Rows is a result set
type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close()
	Columns() []string
}

// CommandTag reports what a statement changed
type CommandTag interface {
	String() string
	RowsAffected() int64
}

// RowQuerier is the read and write surface repos use
type RowQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) Row
}

// TxRunner is a RowQuerier that can also run fn in a transaction
type TxRunner interface {
	RowQuerier
	Tx(ctx context.Context, fn func(q RowQuerier) error) error
}

// Pinger reports readiness
type Pinger interface{ Ping(context.Context) error }

// Option mutates the Store during Open
type Option func(*Store) error

// WithLogger sets the logger used for query tracing and boot messages
func WithLogger(log logger.Logger) Option {
	return func(s *Store) error {
		s.Log = log
		return nil
	}
}

// Open opens every backend cfg enables; on error nothing stays open
func Open(ctx context.Context, cfg Config, opts ...Option) (*Store, error) {
	s := &Store{}
	for _, o := range opts {
		if err := o(s); err != nil {
			return nil, err
		}
	}

	if cfg.PG.Enabled {
		a, err := openPG(ctx, cfg.AppName, cfg.PG, s.Log)
		if err != nil {
			return nil, fmt.Errorf("pg: %w", err)
		}
		s.PG = a
		s.Log.Info().Str("component", "store").Msg("postgres ready")
	}

	if cfg.Lite.Enabled {
		a, err := openLite(ctx, cfg.Lite, s.Log)
		if err != nil {
			_ = s.Close(ctx)
			return nil, fmt.Errorf("sqlite: %w", err)
		}
		s.Lite = a
		s.Log.Info().Str("component", "store").Str("path", cfg.Lite.Path).Msg("sqlite ready")
	}
	return s, nil
}

type seam struct {
	name string
	tx   TxRunner
}

// seams lists the enabled backends, postgres first
func (s *Store) seams() []seam {
	var out []seam
	if s.PG != nil {
		out = append(out, seam{"pg", s.PG})
	}
	if s.Lite != nil {
		out = append(out, seam{"lite", s.Lite})
	}
	return out
}

// Guard pings every enabled backend that can answer
func (s *Store) Guard(ctx context.Context) error {
	if s == nil {
		return errors.New("nil store")
	}
	var errs []error
	for _, sm := range s.seams() {
		p, ok := sm.tx.(Pinger)
		if !ok {
			continue
		}
		if err := p.Ping(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", sm.name, err))
		}
	}
	return errors.Join(errs...)
}

// Journal returns the seam the run journal should use, postgres first
func (s *Store) Journal() (TxRunner, Dialect) {
	if s == nil {
		return nil, ""
	}
	if s.PG != nil {
		return s.PG, DialectPG
	}
	if s.Lite != nil {
		return s.Lite, DialectLite
	}
	return nil, ""
}

// Close closes every enabled backend
func (s *Store) Close(context.Context) error {
	var errs []error
	for _, sm := range s.seams() {
		if c, ok := sm.tx.(interface{ Close() error }); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", sm.name, err))
			}
		}
	}
	return errors.Join(errs...)
}

// Dialect names the sql flavour behind a seam so repos can pick placeholders
type Dialect string

const (
	// DialectPG uses $n placeholders
	DialectPG Dialect = "pg"
	// DialectLite uses ? placeholders
	DialectLite Dialect = "sqlite"
)
