package config

// ── Default values ───────────────────────────────────────────────────
//
// All tuneable defaults live here so they are easy to audit and reuse
// across CLI flags, config file parsing, and environment variable
// loading.

const (
	// DefaultBacklog is the listen queue length for stream servers.
	DefaultBacklog = 5

	// DefaultBufSize is the echo receive buffer size (32 KiB).
	DefaultBufSize = 32 * 1024

	// EnvPrefix starts every supported environment variable.
	EnvPrefix = "MININET_"
)

// Default returns a Config populated with the defaults above.
func Default() *Config {
	return &Config{
		Backlog: DefaultBacklog,
		BufSize: DefaultBufSize,
	}
}
