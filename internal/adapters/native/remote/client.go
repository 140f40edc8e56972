// Package remote implements the detection framework port against an HTTP
// inference sidecar. Every Perform is one POST carrying the image and the
// request list; the reply holds one observation list or error per request.
package remote

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"visionkit/internal/core/imageinput"
	"visionkit/internal/core/native"
	"visionkit/internal/core/version"
	"visionkit/internal/platform/config"
	perr "visionkit/internal/platform/errors"
	"visionkit/internal/platform/logger"
	pnet "visionkit/internal/platform/net"
)

const (
	defaultTimeout   = 30 * time.Second
	defaultUA        = "visionkit-remote"
	defaultMaxRetry  = 2
	defaultRetryBase = 250 * time.Millisecond
	maxReplyBytes    = 32 << 20
)

// HeaderWireVersion carries version.WireVersion on every sidecar call
const HeaderWireVersion = "X-Visionkit-Wire"

// Options configures the Client
type Options struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration

	// Retries apply to still-image calls only; tracker frames are sent once
	MaxRetries int
	RetryBase  time.Duration

	// HTTPClient overrides the transport (tests); Timeout is ignored when set
	HTTPClient *http.Client
	Logger     *logger.Logger
}

// FromConfig reads NATIVE_REMOTE_* keys; URL is required
func FromConfig(cfg config.Conf) Options {
	o := Tuning(cfg)
	o.BaseURL = cfg.Prefix("NATIVE_REMOTE_").MustString("URL")
	return o
}

// Tuning reads every NATIVE_REMOTE_* key except URL, for callers that take
// the address from elsewhere
func Tuning(cfg config.Conf) Options {
	rc := cfg.Prefix("NATIVE_REMOTE_")
	return Options{
		UserAgent:  rc.MayString("USER_AGENT", defaultUA),
		Timeout:    rc.MayDuration("TIMEOUT", defaultTimeout),
		MaxRetries: rc.MayInt("MAX_RETRIES", defaultMaxRetry),
		RetryBase:  rc.MayDuration("RETRY_BASE", defaultRetryBase),
	}
}

// Client implements native.Framework and native.SequenceFramework
type Client struct {
	http  *http.Client
	opts  Options
	log   logger.Logger
	sleep func(time.Duration)
}

var (
	_ native.Framework         = (*Client)(nil)
	_ native.SequenceFramework = (*Client)(nil)
)

// New creates a Client with sane defaults
func New(o Options) *Client {
	o.BaseURL = strings.TrimRight(o.BaseURL, "/")
	if o.UserAgent == "" {
		o.UserAgent = defaultUA
	}
	if o.Timeout <= 0 {
		o.Timeout = defaultTimeout
	}
	if o.MaxRetries < 0 {
		o.MaxRetries = 0
	}
	if o.RetryBase <= 0 {
		o.RetryBase = defaultRetryBase
	}
	hc := o.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: o.Timeout}
	}
	log := o.Logger
	if log == nil {
		log = logger.Named("remote")
	}
	return &Client{
		http:  hc,
		opts:  o,
		log:   log.With().Str("remote", o.BaseURL).Logger(),
		sleep: time.Sleep,
	}
}

// Perform implements native.Framework. Completions fire before it returns.
func (c *Client) Perform(ctx context.Context, h imageinput.Handle, reqs []*native.Request) error {
	return c.perform(ctx, "", h, reqs, true)
}

func (c *Client) perform(ctx context.Context, seqID string, h imageinput.Handle, reqs []*native.Request, retry bool) error {
	img, err := encodeImage(h)
	if err != nil {
		return err
	}
	body, err := marshalPerform(seqID, img, reqs)
	if err != nil {
		return err
	}

	resp, err := c.do(ctx, http.MethodPost, "/v1/perform", body, retry)
	if err != nil {
		return err
	}
	defer func() { _ = drainAndClose(resp.Body) }()

	reply, err := decodeReply(io.LimitReader(resp.Body, maxReplyBytes))
	if err != nil {
		return err
	}
	if len(reply.Results) != len(reqs) {
		return perr.Newf(perr.ErrorCodeNative, "remote replied %d results for %d requests", len(reply.Results), len(reqs))
	}
	for i, r := range reqs {
		obs, err := reply.Results[i].observations(r.Kind)
		r.Completion(obs, err)
	}
	return nil
}

// Ping checks the sidecar health endpoint once, without retries
func (c *Client) Ping(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodGet, "/v1/health", nil, false)
	if perr.IsCode(err, perr.ErrorCodeNative) {
		return perr.Wrap(err, perr.ErrorCodeUnavailable, "remote unhealthy")
	}
	if err != nil {
		return err
	}
	return drainAndClose(resp.Body)
}

// do issues one call, retrying transport errors and transient statuses when
// retry is set. A done ctx fails with ErrorCodeCanceled; an unreachable or
// failing sidecar with ErrorCodeNative.
func (c *Client) do(ctx context.Context, method, path string, body []byte, retry bool) (*http.Response, error) {
	url := c.opts.BaseURL + path
	attempts := 0
	for {
		if err := ctx.Err(); err != nil {
			return nil, canceled(err, method, path)
		}

		var rd io.Reader
		if body != nil {
			rd = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, url, rd)
		if err != nil {
			return nil, perr.Wrapf(err, perr.ErrorCodeConfiguration, "remote new request failed")
		}
		req.Header.Set("User-Agent", c.opts.UserAgent)
		req.Header.Set("Accept", "application/json")
		req.Header.Set(HeaderWireVersion, strconv.Itoa(version.WireVersion))
		if id := pnet.RequestID(ctx); id != "" {
			req.Header.Set(pnet.HeaderRequestID, id)
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		start := time.Now()
		resp, err := c.http.Do(req)
		lat := time.Since(start)

		if err != nil {
			if ctx.Err() != nil {
				return nil, canceled(ctx.Err(), method, path)
			}
			if !retry || attempts >= c.opts.MaxRetries {
				return nil, perr.Wrapf(err, perr.ErrorCodeNative, "remote %s %s failed", method, path)
			}
			back := c.backoff(attempts)
			c.log.Warn().Err(err).Dur("retry_in", back).Int("attempt", attempts).Msg("remote transport error retrying")
			c.sleep(back)
			attempts++
			continue
		}

		c.log.Debug().
			Str("method", method).
			Str("path", path).
			Int("status", resp.StatusCode).
			Int("attempt", attempts).
			Dur("latency", lat).
			Msg("remote http response")

		switch resp.StatusCode {
		case http.StatusOK, http.StatusCreated, http.StatusNoContent:
			return resp, nil
		case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			_ = drainAndClose(resp.Body)
			if !retry || attempts >= c.opts.MaxRetries {
				return nil, perr.Newf(perr.ErrorCodeNative, "remote unavailable (status %d)", resp.StatusCode)
			}
			back := c.backoff(attempts)
			c.log.Warn().Dur("retry_in", back).Int("attempt", attempts).Msg("remote transient error retrying")
			c.sleep(back)
			attempts++
			continue
		case http.StatusBadRequest, http.StatusUnprocessableEntity:
			tail := readTail(resp.Body)
			return nil, perr.Newf(perr.ErrorCodeConfiguration, "remote rejected request: %s", tail)
		case http.StatusNotFound:
			tail := readTail(resp.Body)
			return nil, perr.Newf(perr.ErrorCodeNotFound, "remote %s not found: %s", path, tail)
		default:
			tail := readTail(resp.Body)
			return nil, perr.Newf(perr.ErrorCodeNative, "remote unexpected status %d body %s", resp.StatusCode, tail)
		}
	}
}

func canceled(err error, method, path string) error {
	return perr.Wrapf(err, perr.ErrorCodeCanceled, "remote %s %s canceled", method, path)
}

func (c *Client) backoff(attempt int) time.Duration {
	d := c.opts.RetryBase << uint(attempt)
	if ceiling := 5 * time.Second; d > ceiling {
		return ceiling
	}
	return d
}

func readTail(rc io.ReadCloser) string {
	b, _ := io.ReadAll(io.LimitReader(rc, 2048))
	_ = rc.Close()
	return strings.TrimSpace(string(b))
}

func drainAndClose(rc io.ReadCloser) error {
	_, _ = io.Copy(io.Discard, io.LimitReader(rc, 64<<10))
	return rc.Close()
}
