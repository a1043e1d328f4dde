// Package config defines the runtime configuration for mininet and the
// helpers that fill it from defaults, a TOML file and the environment.
package config

import (
	"fmt"
	"strconv"
)

// Config holds every tuneable for a single mininet run.
type Config struct {
	// ── Connection ───────────────────────────────────────────────────
	Host     string `toml:"host"`
	Port     int    `toml:"port"` // remote port (connect) or local port (listen)
	Listen   bool   `toml:"listen"`
	UDP      bool   `toml:"udp"`
	KeepOpen bool   `toml:"keep_open"`

	// ── Behaviour ────────────────────────────────────────────────────
	Echo        bool `toml:"echo"`
	NonBlocking bool `toml:"nonblock"`
	ReuseSlots  bool `toml:"reuse_slots"`
	Backlog     int  `toml:"backlog"`
	BufSize     int  `toml:"buf_size"`

	// ── Output ───────────────────────────────────────────────────────
	Stats   bool `toml:"stats"`
	Verbose int  `toml:"verbose"`

	ConfigFile string `toml:"-"`
}

// Mode names the operating mode for log lines.
func (c *Config) Mode() string {
	proto := "tcp"
	if c.UDP {
		proto = "udp"
	}
	if c.Listen {
		return "listen/" + proto
	}
	return "connect/" + proto
}

// ── Port helpers ─────────────────────────────────────────────────────

// ParsePort accepts a decimal port number in 0-65535.
func ParsePort(spec string) (int, error) {
	port, err := strconv.Atoi(spec)
	if err != nil {
		return 0, fmt.Errorf("invalid port %q", spec)
	}
	if port < 0 || port > 65535 {
		return 0, fmt.Errorf("port %d out of range 0-65535", port)
	}
	return port, nil
}
