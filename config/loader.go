package config

// loader.go - configuration loading from a TOML file and environment
// variables.
//
// Precedence order (highest wins):
//   1. CLI flags  (handled by cmd/root.go)
//   2. Environment variables  (LoadFromEnv)
//   3. Config file  (LoadFile)
//   4. Defaults   (defaults.go)

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

// LoadFile overlays the TOML file at path onto cfg.  Keys absent from
// the file keep their current value.  Keys the file sets but Config does
// not know are returned so the caller can warn about them.
func LoadFile(path string, cfg *Config) (unknown []string, err error) {
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}
	for _, key := range md.Undecoded() {
		unknown = append(unknown, key.String())
	}
	return unknown, nil
}

// ── Environment variable mapping ─────────────────────────────────────
//
// Every supported env var uses the MININET_ prefix.  Boolean values
// accept "1", "true", "yes" (case-insensitive).

// LoadFromEnv overlays environment variables onto cfg.  Only non-empty
// env vars override the existing value.  Call it after LoadFile and
// before applying CLI flags.
func LoadFromEnv(cfg *Config) {
	if v := os.Getenv(EnvPrefix + "HOST"); v != "" {
		cfg.Host = v
	}
	if v := envInt(EnvPrefix + "PORT"); v > 0 {
		cfg.Port = v
	}
	if envBool(EnvPrefix + "LISTEN") {
		cfg.Listen = true
	}
	if envBool(EnvPrefix + "UDP") {
		cfg.UDP = true
	}
	if envBool(EnvPrefix + "KEEP_OPEN") {
		cfg.KeepOpen = true
	}

	// Behaviour
	if envBool(EnvPrefix + "ECHO") {
		cfg.Echo = true
	}
	if envBool(EnvPrefix + "NONBLOCK") {
		cfg.NonBlocking = true
	}
	if envBool(EnvPrefix + "REUSE_SLOTS") {
		cfg.ReuseSlots = true
	}
	if v := envInt(EnvPrefix + "BACKLOG"); v > 0 {
		cfg.Backlog = v
	}
	if v := envInt(EnvPrefix + "BUF_SIZE"); v > 0 {
		cfg.BufSize = v
	}

	// Output
	if envBool(EnvPrefix + "STATS") {
		cfg.Stats = true
	}
	if v := envInt(EnvPrefix + "VERBOSE"); v > 0 {
		cfg.Verbose = v
	}
	if v := os.Getenv(EnvPrefix + "CONFIG"); v != "" {
		cfg.ConfigFile = v
	}
}

// ── helpers ──────────────────────────────────────────────────────────

func envInt(key string) int {
	v := os.Getenv(key)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}

func envBool(key string) bool {
	v := strings.ToLower(os.Getenv(key))
	return v == "1" || v == "true" || v == "yes"
}
