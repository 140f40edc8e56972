package store

import (
	"time"

	"visionkit/internal/platform/config"
)

// Config selects and tunes the backends
type Config struct {
	AppName string

	PG   PGConfig
	Lite LiteConfig
}

// PGConfig configures postgres
type PGConfig struct {
	Enabled  bool
	URL      string
	MaxConns int32

	LogSQL      bool
	SlowQueryMs int

	// ConnectRetries bounds the readiness pings at boot, default 6
	ConnectRetries int
	// PingTimeout bounds one readiness ping, default 5s
	PingTimeout time.Duration
}

// LiteConfig configures the embedded sqlite file
type LiteConfig struct {
	Enabled     bool
	Path        string // file path or ":memory:"
	BusyTimeout time.Duration

	LogSQL      bool
	SlowQueryMs int
}

// ConfigFrom reads SERVICE_PGSQL_* and SERVICE_LITE_*; a backend is enabled
// when its DBURL or PATH is set
func ConfigFrom(root config.Conf, appName string) Config {
	pc := root.Prefix("SERVICE_PGSQL_")
	lc := root.Prefix("SERVICE_LITE_")

	url := pc.MayString("DBURL", "")
	path := lc.MayString("PATH", "")
	return Config{
		AppName: appName,
		PG: PGConfig{
			Enabled:        url != "",
			URL:            url,
			MaxConns:       int32(pc.MayInt("MAX_CONNS", 4)),
			LogSQL:         pc.MayBool("LOG_SQL", false),
			SlowQueryMs:    pc.MayInt("SLOW_MS", 500),
			ConnectRetries: pc.MayInt("CONNECT_RETRIES", 6),
			PingTimeout:    pc.MayDuration("PING_TIMEOUT", 5*time.Second),
		},
		Lite: LiteConfig{
			Enabled:     path != "",
			Path:        path,
			BusyTimeout: lc.MayDuration("BUSY_TIMEOUT", 0),
			LogSQL:      lc.MayBool("LOG_SQL", false),
			SlowQueryMs: lc.MayInt("SLOW_MS", 200),
		},
	}
}
