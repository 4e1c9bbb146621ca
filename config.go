package evloop

import (
	"time"

	"github.com/spf13/viper"
)

// ConfigFromViper hydrates a Config from a *viper.Viper instance the host
// application already owns. Parsing configuration files is explicitly out of
// scope for the engine itself (spec.md §1); this is only a convenience
// mapping from keys a host's own config layer may already expose, following
// nabbar-golib's convention of every component accepting a *viper.Viper
// rather than reading files directly.
func ConfigFromViper(v *viper.Viper) Config {
	cfg := DefaultConfig()
	if v == nil {
		return cfg
	}

	if v.IsSet("accept_timeout") {
		if d := v.GetDuration("accept_timeout"); d > 0 {
			cfg.AcceptTimeout = d
		} else if s := v.GetInt("accept_timeout"); s > 0 {
			cfg.AcceptTimeout = time.Duration(s) * time.Second
		}
	}
	if v.IsSet("connect_timeout") {
		if d := v.GetDuration("connect_timeout"); d > 0 {
			cfg.ConnectTimeout = d
		} else if s := v.GetInt("connect_timeout"); s > 0 {
			cfg.ConnectTimeout = time.Duration(s) * time.Second
		}
	}
	if v.IsSet("timeout") {
		if d := v.GetDuration("timeout"); d > 0 {
			cfg.PollTimeout = d
		}
	}
	if v.IsSet("max_clients") {
		cfg.MaxClients = v.GetInt("max_clients")
	}
	if v.IsSet("connection_timeout") {
		if s := v.GetInt("connection_timeout"); s > 0 {
			cfg.IdleTimeout = time.Duration(s) * time.Second
		}
	}
	return cfg
}
