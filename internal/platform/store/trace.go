package store

import (
	"context"
	"strings"
	"time"

	"visionkit/internal/platform/logger"

	"github.com/rs/zerolog"
)

// QueryEvent describes one executed statement
type QueryEvent struct {
	SQL     string
	Args    []any
	Elapsed time.Duration
	Err     error
	Slow    bool
}

// QueryTracer receives one event per statement
type QueryTracer interface {
	OnQuery(ctx context.Context, ev QueryEvent)
}

// LogTracer logs every statement under component, slow ones at warn.
// It logs regardless of the process level since LOG_SQL asked for it.
func LogTracer(log logger.Logger, component string) QueryTracer {
	l := log.Level(zerolog.DebugLevel).With().Str("component", component).Logger()
	return logTracer{log: l, msg: component + " query"}
}

type logTracer struct {
	log logger.Logger
	msg string
}

func (t logTracer) OnQuery(_ context.Context, ev QueryEvent) {
	e := t.log.Debug()
	if ev.Slow {
		e = t.log.Warn()
	}
	e.Dur("elapsed", ev.Elapsed).
		Bool("slow", ev.Slow).
		Str("sql", squash(ev.SQL)).
		Interface("args", ev.Args).
		Err(ev.Err).
		Msg(t.msg)
}

// squash folds runs of whitespace so multi line statements log on one line
func squash(s string) string { return strings.Join(strings.Fields(s), " ") }

// trace times statements for an optional tracer; zero slow disables the flag
type trace struct {
	tracer QueryTracer
	slow   time.Duration
}

func newTrace(log logger.Logger, component string, on bool, slowMs int) trace {
	if !on {
		return trace{}
	}
	return trace{tracer: LogTracer(log, component), slow: time.Duration(slowMs) * time.Millisecond}
}

func (t trace) done(ctx context.Context, sql string, args []any, start time.Time, err error) {
	if t.tracer == nil {
		return
	}
	el := time.Since(start)
	t.tracer.OnQuery(ctx, QueryEvent{
		SQL:     sql,
		Args:    args,
		Elapsed: el,
		Err:     err,
		Slow:    t.slow > 0 && el >= t.slow,
	})
}

// tracedRow reports once Scan has run, so scan errors are traced too
type tracedRow struct {
	r     Row
	after func(error)
}

func (x tracedRow) Scan(dst ...any) error {
	err := x.r.Scan(dst...)
	x.after(err)
	return err
}
