// Package cli implements the visionkit command line: one-shot detections,
// batches and tracking against the remote framework, with an optional
// sqlite run journal
package cli

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"time"

	"visionkit/internal/adapters/native/remote"
	"visionkit/internal/core/imageinput"
	"visionkit/internal/core/native"
	"visionkit/internal/core/vision"
	"visionkit/internal/modkit/repokit"
	"visionkit/internal/platform/config"
	perr "visionkit/internal/platform/errors"
	"visionkit/internal/platform/logger"
	pnet "visionkit/internal/platform/net"
	"visionkit/internal/platform/store"
	"visionkit/internal/services/detect/domain"
	"visionkit/internal/services/detect/repo"
	"visionkit/internal/services/detect/service"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// Options wires the command tree; zero values use process defaults
type Options struct {
	Out    io.Writer
	Err    io.Writer
	Config config.Conf
	// Framework opens the detection framework for a base url
	Framework func(url string) (native.Framework, error)
}

type app struct {
	opts Options

	remoteURL string
	journal   string
	maxFrames int
	logLevel  string
	timeout   time.Duration
}

// NewRoot builds the visionkit command tree
func NewRoot(o Options) *cobra.Command {
	if o.Out == nil {
		o.Out = os.Stdout
	}
	if o.Err == nil {
		o.Err = os.Stderr
	}
	if o.Framework == nil {
		o.Framework = remoteFramework(o.Config)
	}
	a := &app{opts: o}

	root := &cobra.Command{
		Use:           "visionkit",
		Short:         "Run detection requests against a vision framework",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(o.Out)
	root.SetErr(o.Err)

	pf := root.PersistentFlags()
	pf.StringVar(&a.remoteURL, "remote", o.Config.MayString("NATIVE_REMOTE_URL", ""), "inference sidecar base url (env NATIVE_REMOTE_URL)")
	pf.StringVar(&a.journal, "journal", o.Config.MayString("SERVICE_LITE_PATH", ""), "sqlite file to journal runs into (env SERVICE_LITE_PATH), empty disables")
	pf.IntVar(&a.maxFrames, "max-frames", o.Config.MayInt("CORE_DETECT_MAX_FRAMES", 240), "frame cap for track, 0 is unlimited")
	pf.StringVar(&a.logLevel, "log-level", o.Config.MayString("LOG_LEVEL", "warn"), "stderr log level")
	pf.DurationVar(&a.timeout, "timeout", 2*time.Minute, "overall deadline for one command")

	root.AddCommand(
		a.detectCmd(),
		a.batchCmd(),
		a.trackCmd(),
		a.kindsCmd(),
		a.runsCmd(),
		versionCmd(),
	)
	return root
}

// Execute runs the command line and returns the process exit code
func Execute(ctx context.Context, args []string) int {
	root := NewRoot(Options{Config: config.New()})
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	if err != nil {
		_, _ = io.WriteString(root.ErrOrStderr(), "visionkit: "+err.Error()+"\n")
	}
	return exitCode(err)
}

// exitCode is 2 for usage and configuration mistakes, 1 for any other failure
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case perr.IsCode(err, perr.ErrorCodeConfiguration),
		perr.IsCode(err, perr.ErrorCodeValidation),
		perr.IsCode(err, perr.ErrorCodeJSON):
		return 2
	default:
		return 1
	}
}

// remoteFramework builds the sidecar client from NATIVE_REMOTE_*; the
// address comes from --remote, which defaults to NATIVE_REMOTE_URL
func remoteFramework(cfg config.Conf) func(string) (native.Framework, error) {
	return func(url string) (native.Framework, error) {
		o := remote.Tuning(cfg)
		o.BaseURL = url
		return remote.New(o), nil
	}
}

// session is one command's service plus what must be released after it
type session struct {
	svc   *service.Service
	store *store.Store
}

func (s *session) Close() {
	if s.store != nil {
		_ = s.store.Close(context.Background())
	}
}

func (a *app) logger() *logger.Logger {
	l := logger.New(logger.Options{Level: a.logLevel, Format: "console", Writer: a.opts.Err, Component: "cli"})
	return &l
}

// open builds the service; needFramework is false for journal-only commands
func (a *app) open(ctx context.Context, needFramework bool) (*session, error) {
	log := a.logger()

	var fw native.Framework = noFramework{}
	if needFramework {
		if a.remoteURL == "" {
			return nil, perr.WithField(perr.Configurationf("no framework: pass --remote or set NATIVE_REMOTE_URL"), "remote")
		}
		f, err := a.opts.Framework(a.remoteURL)
		if err != nil {
			return nil, err
		}
		fw = f
	}

	s := &session{}
	var journal domain.JournalPort
	if a.journal != "" {
		st, err := store.Open(ctx, store.Config{
			AppName: "visionkit",
			Lite:    store.LiteConfig{Enabled: true, Path: a.journal},
		}, store.WithLogger(*log))
		if err != nil {
			return nil, err
		}
		s.store = st
		r := repokit.MustBind(repo.NewLite(), st.Lite)
		if err := r.Migrate(ctx); err != nil {
			s.Close()
			return nil, err
		}
		journal = r
	}

	ex := vision.New(fw, vision.Options{Logger: log})
	s.svc = service.New(ex, journal, service.Config{MaxFrames: a.maxFrames}, log)
	return s, nil
}

// context bounds one command and tags it with a request id the sidecar logs
func (a *app) context(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = pnet.WithRequestID(ctx, "cli-"+uuid.NewString())
	if a.timeout > 0 {
		return context.WithTimeout(ctx, a.timeout)
	}
	return context.WithCancel(ctx)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func readImage(path string) (imageinput.Input, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, perr.WithField(perr.Wrapf(err, perr.ErrorCodeInvalidInput, "read image %s", path), "image")
	}
	return imageinput.Encoded{Data: b}, nil
}

// noFramework backs journal-only commands
type noFramework struct{}

func (noFramework) Perform(context.Context, imageinput.Handle, []*native.Request) error {
	return perr.Unavailablef("no framework configured")
}
