package module

import (
	"visionkit/internal/platform/config"
)

// Options controls the detect module
type Options struct {
	MaxUploadBytes int64
	MaxFrames      int
	Journal        bool
}

// FromConfig reads with CORE_DETECT_ prefix
func FromConfig(cfg config.Conf) Options {
	c := cfg.Prefix("CORE_DETECT_")
	return Options{
		MaxUploadBytes: c.MaySizeMB("MAX_UPLOAD_MB", 20),
		MaxFrames:      c.MayInt("MAX_FRAMES", 240),
		Journal:        c.MayBool("JOURNAL", true),
	}
}
