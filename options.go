package evloop

import (
	"time"

	"github.com/jursonmo/evloop/log"
)

// LockFunc is the admission predicate consulted at most once per iteration (§4.3).
// isEmpty reports whether the connection registry is currently empty.
type LockFunc func(isEmpty bool) bool

// UnlockFunc runs immediately after an accept, releasing whatever the lock
// predicate holds (e.g. an inter-process file lock).
type UnlockFunc func()

func alwaysAdmit(bool) bool { return true }
func noopUnlock()           {}

// Config holds the Loop's tunables (§6 "Configuration options"). Build one
// with the With* options below, or hydrate it from a *viper.Viper via
// ConfigFromViper in config.go.
type Config struct {
	AcceptTimeout  time.Duration
	ConnectTimeout time.Duration
	IdleTimeout    time.Duration
	PollTimeout    time.Duration
	MaxClients     int
	ChunkSize      int

	Lock   LockFunc
	Unlock UnlockFunc

	Logger  log.Logger
	metrics *metrics
}

// DefaultConfig matches the defaults spelled out in spec.md §3 and §6.
func DefaultConfig() Config {
	return Config{
		AcceptTimeout:  5 * time.Second,
		ConnectTimeout: 5 * time.Second,
		IdleTimeout:    15 * time.Second,
		PollTimeout:    250 * time.Millisecond,
		MaxClients:     1000,
		ChunkSize:      defaultChunkSize(),
		Lock:           alwaysAdmit,
		Unlock:         noopUnlock,
		Logger:         log.Noop(),
	}
}

// Option mutates a Config, following the functional-options pattern used
// throughout nabbar-golib/httpserver's serverOpt.go.
type Option func(*Config)

func WithAcceptTimeout(d time.Duration) Option  { return func(c *Config) { c.AcceptTimeout = d } }
func WithConnectTimeout(d time.Duration) Option { return func(c *Config) { c.ConnectTimeout = d } }
func WithIdleTimeout(d time.Duration) Option    { return func(c *Config) { c.IdleTimeout = d } }
func WithPollTimeout(d time.Duration) Option    { return func(c *Config) { c.PollTimeout = d } }
func WithMaxClients(n int) Option               { return func(c *Config) { c.MaxClients = n } }
func WithChunkSize(n int) Option                { return func(c *Config) { c.ChunkSize = n } }
func WithLock(f LockFunc) Option {
	return func(c *Config) {
		if f != nil {
			c.Lock = f
		}
	}
}
func WithUnlock(f UnlockFunc) Option {
	return func(c *Config) {
		if f != nil {
			c.Unlock = f
		}
	}
}

// WithLogger attaches a structured logger; defaults to log.Noop().
func WithLogger(l log.Logger) Option {
	return func(c *Config) {
		if l != nil {
			c.Logger = l
		}
	}
}
