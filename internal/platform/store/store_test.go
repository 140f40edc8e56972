package store

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"visionkit/internal/platform/config"

	"github.com/rs/zerolog"
)

// seamStub is a TxRunner that optionally pings and closes
type seamStub struct {
	fakeRowQuerier
	pingErr error
	pings   int
	closed  bool
}

func (s *seamStub) Tx(_ context.Context, fn func(RowQuerier) error) error { return fn(s) }

type pingingSeam struct{ *seamStub }

func (p pingingSeam) Ping(context.Context) error { p.pings++; return p.pingErr }
func (p pingingSeam) Close() error               { p.closed = true; return nil }

func openMem(t *testing.T, opts ...Option) *Store {
	t.Helper()
	s, err := Open(context.Background(), Config{Lite: LiteConfig{Enabled: true, Path: ":memory:"}}, opts...)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = s.Close(context.Background()) })
	return s
}

func TestOpen_LiteOnly(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := openMem(t)

	if s.PG != nil {
		t.Fatalf("PG = %T, want nil", s.PG)
	}
	if err := s.Guard(ctx); err != nil {
		t.Fatalf("guard: %v", err)
	}
	if q, d := s.Journal(); q != s.Lite || d != DialectLite {
		t.Fatalf("journal = %T %q", q, d)
	}
}

func TestOpen_NothingEnabled(t *testing.T) {
	t.Parallel()
	s, err := Open(context.Background(), Config{})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if q, _ := s.Journal(); q != nil {
		t.Fatalf("journal = %T, want none", q)
	}
	if err := s.Guard(context.Background()); err != nil {
		t.Fatalf("guard: %v", err)
	}
	if err := s.Close(context.Background()); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestOpen_BadPGURLFailsBeforeLite(t *testing.T) {
	t.Parallel()
	s, err := Open(context.Background(), Config{
		PG:   PGConfig{Enabled: true, URL: "://bad"},
		Lite: LiteConfig{Enabled: true, Path: ":memory:"},
	})
	if err == nil || s != nil {
		t.Fatalf("want error and nil store, got %v %v", s, err)
	}
	if !strings.HasPrefix(err.Error(), "pg: ") {
		t.Fatalf("err = %v", err)
	}
}

func TestOpen_OptionError(t *testing.T) {
	t.Parallel()
	boom := errors.New("boom")
	_, err := Open(context.Background(), Config{}, func(*Store) error { return boom })
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
}

func TestOpen_WithLoggerTracesSQL(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	s, err := Open(context.Background(),
		Config{Lite: LiteConfig{Enabled: true, Path: ":memory:", LogSQL: true}},
		WithLogger(zerolog.New(&buf).Level(zerolog.ErrorLevel)))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer func() { _ = s.Close(context.Background()) }()

	if _, err := s.Lite.Exec(context.Background(), "create table\n  t (x integer)"); err != nil {
		t.Fatalf("exec: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, `"sql":"create table t (x integer)"`) || !strings.Contains(out, `"component":"lite"`) {
		t.Fatalf("trace output = %s", out)
	}
}

func TestGuard(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	var nilStore *Store
	if err := nilStore.Guard(ctx); err == nil {
		t.Fatal("nil store must fail")
	}

	quiet := &seamStub{}
	if err := (&Store{PG: quiet}).Guard(ctx); err != nil {
		t.Fatalf("seams without Ping are skipped: %v", err)
	}

	down := pingingSeam{&seamStub{pingErr: errors.New("refused")}}
	up := pingingSeam{&seamStub{}}
	err := (&Store{PG: down, Lite: up}).Guard(ctx)
	if err == nil || !strings.Contains(err.Error(), "pg: refused") {
		t.Fatalf("err = %v", err)
	}
	if down.pings != 1 || up.pings != 1 {
		t.Fatalf("pings pg=%d lite=%d", down.pings, up.pings)
	}
}

func TestJournal_PrefersPG(t *testing.T) {
	t.Parallel()
	pg, lite := &seamStub{}, &seamStub{}
	if q, d := (&Store{PG: pg, Lite: lite}).Journal(); q != pg || d != DialectPG {
		t.Fatalf("journal = %T %q", q, d)
	}
	var nilStore *Store
	if q, d := nilStore.Journal(); q != nil || d != "" {
		t.Fatalf("nil store journal = %T %q", q, d)
	}
}

func TestClose_ClosesEverySeam(t *testing.T) {
	t.Parallel()
	a, b := pingingSeam{&seamStub{}}, pingingSeam{&seamStub{}}
	if err := (&Store{PG: a, Lite: b}).Close(context.Background()); err != nil {
		t.Fatalf("close: %v", err)
	}
	if !a.closed || !b.closed {
		t.Fatalf("closed pg=%v lite=%v", a.closed, b.closed)
	}
}

func TestConfigFrom(t *testing.T) {
	t.Setenv("STORE_CFG_SERVICE_PGSQL_DBURL", "postgres://x@db/journal")
	t.Setenv("STORE_CFG_SERVICE_PGSQL_CONNECT_RETRIES", "2")
	t.Setenv("STORE_CFG_SERVICE_LITE_SLOW_MS", "50")

	c := ConfigFrom(config.New().Prefix("STORE_CFG_"), "visionkit-api")
	if c.AppName != "visionkit-api" || !c.PG.Enabled || c.PG.URL != "postgres://x@db/journal" {
		t.Fatalf("pg = %+v", c.PG)
	}
	if c.PG.ConnectRetries != 2 || c.PG.PingTimeout != 5*time.Second || c.PG.MaxConns != 4 {
		t.Fatalf("pg knobs = %+v", c.PG)
	}
	if c.Lite.Enabled || c.Lite.SlowQueryMs != 50 {
		t.Fatalf("lite = %+v", c.Lite)
	}
}
