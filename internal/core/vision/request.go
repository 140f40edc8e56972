package vision

import (
	"visionkit/internal/core/geometry"
	"visionkit/internal/core/native"
	perr "visionkit/internal/platform/errors"
	"visionkit/internal/platform/validate"
)

// Descriptor is a configured request with its result type erased.
// Batches and dynamic transports hold descriptors; Request[R] is one.
type Descriptor interface {
	Kind() native.Kind
	// Sequential reports whether the kind needs a sequence tracker
	Sequential() bool
	Config() Config
	Options() any
	// Validate checks config and options without touching the framework
	Validate() error

	convertAny(obs []native.Observation, size geometry.Size) (any, int, conversion)
}

// conversion describes how an observation list mapped to results
type conversion struct {
	nilList  bool
	expected string
	mismatch string // observed type when the list did not match the kind
}

// Request is a typed detection of kind producing R values
type Request[R any] struct {
	kind       native.Kind
	cfg        Config
	opts       any
	sequential bool
	convert    func(obs []native.Observation, size geometry.Size) ([]R, conversion)
}

// Kind returns the detection kind
func (r Request[R]) Kind() native.Kind { return r.kind }

// Config returns the shared settings
func (r Request[R]) Config() Config { return r.cfg }

// Options returns the kind options (nil for kinds without options)
func (r Request[R]) Options() any { return r.opts }

// Sequential reports whether the kind runs on a sequence tracker
func (r Request[R]) Sequential() bool { return r.sequential }

// Validate checks config and options
func (r Request[R]) Validate() error {
	if r.convert == nil {
		return perr.Configurationf("request has no kind")
	}
	if err := r.cfg.Validate(); err != nil {
		return err
	}
	if r.opts == nil {
		return nil
	}
	if v, ok := r.opts.(interface{ check() error }); ok {
		if err := v.check(); err != nil {
			return err
		}
	}
	return validate.Struct(r.opts, perr.ErrorCodeConfiguration)
}

func (r Request[R]) convertAny(obs []native.Observation, size geometry.Size) (any, int, conversion) {
	out, c := r.convert(obs, size)
	return out, len(out), c
}

// nativeRequest builds the framework request; the caller installs the completion
func nativeRequest(d Descriptor) (*native.Request, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	nr := &native.Request{Kind: d.Kind(), Options: d.Options()}
	d.Config().apply(nr)
	return nr, nil
}

// newRequest maps each observation of type O to at most one R; ok=false skips it
func newRequest[O native.Observation, R any](kind native.Kind, cfg Config, opts any, fn func(O, geometry.Size) (R, bool)) Request[R] {
	return newExpanding(kind, cfg, opts, func(o O, size geometry.Size) []R {
		if r, ok := fn(o, size); ok {
			return []R{r}
		}
		return nil
	})
}

// newExpanding maps each observation of type O to any number of R values
func newExpanding[O native.Observation, R any](kind native.Kind, cfg Config, opts any, fn func(O, geometry.Size) []R) Request[R] {
	return Request[R]{
		kind: kind,
		cfg:  cfg,
		opts: opts,
		convert: func(obs []native.Observation, size geometry.Size) ([]R, conversion) {
			if obs == nil {
				return []R{}, conversion{nilList: true}
			}
			typed := make([]O, 0, len(obs))
			for _, o := range obs {
				t, ok := o.(O)
				if !ok {
					got := "nil"
					if o != nil {
						got = o.ObservationType()
					}
					var want O
					return []R{}, conversion{expected: want.ObservationType(), mismatch: got}
				}
				typed = append(typed, t)
			}
			out := make([]R, 0, len(typed))
			for _, t := range typed {
				out = append(out, fn(t, size)...)
			}
			return out, conversion{}
		},
	}
}
