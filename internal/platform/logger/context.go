package logger

import "context"

type field uint8

const (
	fieldRequest field = iota
	fieldRun
)

var fieldNames = [...]string{fieldRequest: "request_id", fieldRun: "run_id"}

func with(ctx context.Context, f field, v string) context.Context {
	if v == "" {
		return ctx
	}
	return context.WithValue(ctx, f, v)
}

// WithRequest tags ctx with the transport request id
func WithRequest(ctx context.Context, id string) context.Context { return with(ctx, fieldRequest, id) }

// WithRun tags ctx with the detection run id
func WithRun(ctx context.Context, id string) context.Context { return with(ctx, fieldRun, id) }

// From is base plus the ids carried by ctx
func From(ctx context.Context, base *Logger) *Logger {
	b := base.With()
	for f, name := range fieldNames {
		if v, _ := ctx.Value(field(f)).(string); v != "" {
			b = b.Str(name, v)
		}
	}
	l := b.Logger()
	return &l
}

// C is From over the process root
func C(ctx context.Context) *Logger { return From(ctx, Get()) }
