package config

import (
	"io"
	"time"
)

// Config reads typed values by dotted key, for example "totp.interval_seconds".
// Missing keys yield the zero value unless a default is registered.
type Config interface {
	io.Closer

	GetBool(key string) bool
	GetString(key string) string
	GetInt(key string) int
	GetUint(key string) uint
	GetUint64(key string) uint64
	GetFloat64(key string) float64

	// GetSecond reads an integer number of seconds.
	GetSecond(key string) time.Duration

	// GetArray reads a list. Both YAML sequences and "a,b,c" strings are accepted.
	GetArray(key string) []string
}

// Defaults are applied before the file is read, so a minimal file still
// yields a working verifier.
var Defaults = map[string]any{
	"app.name":                                    "totpguard",
	"app.server.http.address":                     ":8080",
	"app.server.http.read_timeout_seconds":        10,
	"app.server.http.read_header_timeout_seconds": 5,
	"app.server.http.write_timeout_seconds":       10,
	"app.server.http.idle_timeout_seconds":        60,
	"app.server.http.trusted_proxies":             []string{},
	"app.server.max_goroutine":                    100,

	"instrument.enabled":                 false,
	"instrument.log_level":               "info",
	"instrument.trace_sample_ratio":      1.0,
	"instrument.metric_interval_seconds": 60,

	"totp.interval_seconds": 30,
	"totp.digits":           6,
	"totp.algorithm":        "SHA1",
	"totp.check_back":       5,
	"totp.check_forward":    5,
	"totp.expose_generate":  false,

	"replay.driver":             "memory",
	"replay.redis.prefix":       "totp:used:",
	"replay.postgres.table":     "totp_used_codes",
	"replay.postgres.max_conns": 10,
	"replay.prune_every":        60,
	"replay.connect_attempts":   5,

	"audit.enabled": false,
	"audit.driver":  "noop",
	"audit.topic":   "totp.verification",
}
