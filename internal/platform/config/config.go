// Package config reads typed settings from prefixed environment variables.
// Must* panics on a missing value; May* warns and falls back on a bad one.
package config

import (
	"strconv"
	"strings"
	"time"

	"visionkit/internal/platform/config/raw"
	"visionkit/internal/platform/logger"
)

// Conf is a prefixed view, e.g. New().Prefix("CORE_API_")
type Conf struct{ env raw.Conf }

func New() Conf { return Conf{} }

// Prefix scopes a child view
func (c Conf) Prefix(p string) Conf { return Conf{env: c.env.Prefix(p)} }

// Key is the full variable name for key
func (c Conf) Key(key string) string { return c.env.Key(key) }

// MustString panics when key is unset or blank
func (c Conf) MustString(key string) string {
	v, ok := c.env.Lookup(key)
	if !ok {
		logger.Get().Panic().Str("key", c.Key(key)).Msg("missing required env")
	}
	return v
}

// may parses key with parse, returning def when unset or unparsable
func may[T any](c Conf, key string, def T, parse func(string) (T, error)) T {
	s, ok := c.env.Lookup(key)
	if !ok {
		return def
	}
	v, err := parse(s)
	if err != nil {
		logger.Get().Warn().Str("key", c.Key(key)).Str("value", s).Interface("default", def).Msg("invalid value; using default")
		return def
	}
	return v
}

func (c Conf) MayString(key, def string) string { return c.env.Get(key, def) }

func (c Conf) MayInt(key string, def int) int { return may(c, key, def, strconv.Atoi) }

func (c Conf) MayBool(key string, def bool) bool { return may(c, key, def, strconv.ParseBool) }

func (c Conf) MayDuration(key string, def time.Duration) time.Duration {
	return may(c, key, def, time.ParseDuration)
}

// MayCSV splits on commas, dropping blanks; def when nothing is left
func (c Conf) MayCSV(key string, def []string) []string {
	var out []string
	for _, p := range strings.Split(c.env.Get(key, ""), ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}

// MaySizeMB reads a positive megabyte count and returns bytes; def is in MB
func (c Conf) MaySizeMB(key string, def int) int64 {
	mb := c.MayInt(key, def)
	if mb <= 0 {
		logger.Get().Warn().Str("key", c.Key(key)).Int("value", mb).Int("default", def).Msg("size must be positive; using default")
		mb = def
	}
	return int64(mb) << 20
}
