package config

import (
	ncerr "mininet/internal/errors"
	"mininet/util"
)

// Validate checks that the configuration is internally consistent.  The
// first problem found is returned as a *errors.ConfigError with a hint.
func (c *Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return &ncerr.ConfigError{
			Field: "port", Value: c.Port,
			Message: "out of range 0-65535",
			Hint:    "use a port between 1 and 65535",
		}
	}

	if c.Listen {
		if c.Port == 0 {
			return &ncerr.ConfigError{
				Field:   "port",
				Message: "required in listen mode",
				Hint:    "mininet -l -p 9000",
			}
		}
	} else {
		if c.Host == "" {
			return &ncerr.ConfigError{
				Field:   "host",
				Message: "required in connect mode",
				Hint:    "mininet 127.0.0.1 9000",
			}
		}
		if err := util.RequireIPv4(c.Host); err != nil {
			return &ncerr.ConfigError{
				Field: "host", Value: c.Host,
				Message: "not an IPv4 address",
				Hint:    "host names are not resolved; use a dotted-decimal address such as 127.0.0.1",
			}
		}
		if c.Port == 0 {
			return &ncerr.ConfigError{
				Field:   "port",
				Message: "required in connect mode",
				Hint:    "give the port after the host: mininet 127.0.0.1 9000",
			}
		}
		if c.Echo {
			return &ncerr.ConfigError{
				Field:   "echo",
				Message: "only valid in listen mode",
				Hint:    "add -l -p PORT",
			}
		}
		if c.KeepOpen {
			return &ncerr.ConfigError{
				Field:   "keep-open",
				Message: "only valid in listen mode",
			}
		}
	}

	if c.NonBlocking && (!c.Listen || c.UDP) {
		return &ncerr.ConfigError{
			Field:   "nonblock",
			Message: "only applies to the TCP listening socket",
			Hint:    "use --nonblock with -l and without -u",
		}
	}
	if c.ReuseSlots && (!c.Listen || c.UDP) {
		return &ncerr.ConfigError{
			Field:   "reuse-slots",
			Message: "only applies to TCP listen mode",
		}
	}
	if c.Backlog <= 0 {
		return &ncerr.ConfigError{
			Field: "backlog", Value: c.Backlog,
			Message: "must be positive",
			Hint:    "the default is 5",
		}
	}
	if c.BufSize <= 0 {
		return &ncerr.ConfigError{
			Field: "buf-size", Value: c.BufSize,
			Message: "must be positive",
		}
	}
	return nil
}
