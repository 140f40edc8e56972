// Package logger wraps zerolog. The process root is configured from LOG_*
// variables on first use; executors and adapters take their own *Logger so
// tests can capture output.
package logger

import (
	"io"
	"os"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"visionkit/internal/platform/config/raw"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/pkgerrors"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger is the project-wide logging type
type Logger = zerolog.Logger

// Options configures a logger. Zero values mean: debug level, json to stdout.
type Options struct {
	Level        string
	Format       string // "console" or "json"
	Service      string
	Component    string
	Writer       io.Writer
	WithCaller   bool
	SampleEvery  int
	StaticFields map[string]string
	File         FileSink
}

// FileSink tees json lines into a size-rotated file when Path is set
type FileSink struct {
	Path       string
	MaxMB      int
	MaxBackups int
	MaxAgeDays int
}

// FromEnv reads LOG_* through raw so config can log without a cycle
func FromEnv() Options {
	env := raw.New().Prefix("LOG_")
	return Options{
		Level:       env.Get("LEVEL", "debug"),
		Format:      strings.ToLower(env.Get("FORMAT", "console")),
		Service:     env.Get("SERVICE", ""),
		Component:   env.Get("COMPONENT", ""),
		WithCaller:  env.GetBool("CALLER", false),
		SampleEvery: env.GetInt("SAMPLE_EVERY", 0),
		File: FileSink{
			Path:       env.Get("FILE", ""),
			MaxMB:      env.GetInt("FILE_MAX_MB", 100),
			MaxBackups: env.GetInt("FILE_MAX_BACKUPS", 3),
			MaxAgeDays: env.GetInt("FILE_MAX_AGE_DAYS", 7),
		},
	}
}

var (
	rootOnce sync.Once
	root     *Logger
)

// Init sets the process root from opt. Only the first call, or the first
// Get, has any effect.
func Init(opt Options) {
	rootOnce.Do(func() {
		zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack
		zerolog.TimeFieldFormat = time.RFC3339Nano
		l := New(opt)
		root = &l
	})
}

// Get returns the process root, building it from the environment if needed
func Get() *Logger {
	Init(FromEnv())
	return root
}

// Named is the root with a component field
func Named(component string) *Logger {
	if component == "" {
		return Get()
	}
	l := Get().With().Str("component", component).Logger()
	return &l
}

// Nop discards everything
func Nop() *Logger {
	l := zerolog.Nop()
	return &l
}

// New builds a logger from opt without touching the root
func New(opt Options) Logger {
	out := opt.Writer
	if out == nil {
		out = os.Stdout
	}
	if opt.Format == "console" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}
	if f := opt.File.writer(); f != nil {
		out = zerolog.MultiLevelWriter(out, f)
	}

	fields := zerolog.New(out).Level(level(opt.Level)).With().Timestamp()
	if bi, ok := debug.ReadBuildInfo(); ok {
		fields = fields.Str("go_version", bi.GoVersion)
	}
	if opt.Service != "" {
		fields = fields.Str("service", opt.Service)
	}
	if opt.Component != "" {
		fields = fields.Str("component", opt.Component)
	}
	for k, v := range opt.StaticFields {
		fields = fields.Str(k, v)
	}
	if opt.WithCaller {
		fields = fields.Caller()
	}

	l := fields.Logger()
	if opt.SampleEvery > 1 {
		l = l.Sample(&zerolog.BasicSampler{N: uint32(opt.SampleEvery)})
	}
	return l
}

// level falls back to debug for blank or unknown names
func level(name string) zerolog.Level {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "warning" {
		name = "warn"
	}
	lvl, err := zerolog.ParseLevel(name)
	if err != nil || name == "" || lvl == zerolog.NoLevel {
		return zerolog.DebugLevel
	}
	return lvl
}

func (f FileSink) writer() io.Writer {
	if strings.TrimSpace(f.Path) == "" {
		return nil
	}
	size := f.MaxMB
	if size <= 0 {
		size = 100
	}
	return &lumberjack.Logger{
		Filename:   f.Path,
		MaxSize:    size,
		MaxBackups: f.MaxBackups,
		MaxAge:     f.MaxAgeDays,
		LocalTime:  true,
		Compress:   true,
	}
}
