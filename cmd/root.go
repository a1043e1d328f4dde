// Package cmd wires up the CLI flags and dispatches to the core modes.
package cmd

import (
	"context"
	"fmt"
	"os"

	flag "github.com/spf13/pflag"
	"golang.org/x/term"

	"mininet/config"
	"mininet/internal/core"
	"mininet/internal/metrics"
	"mininet/util"
)

// version is overridable at link time:
//
//	go build -ldflags "-X mininet/cmd.version=2.0.0"
var version = "0.1.0" //nolint:gochecknoglobals

// Execute parses args and runs the selected mininet mode.
func Execute(ctx context.Context, args []string) error {
	flags := config.Default()
	fs := flag.NewFlagSet("mininet", flag.ContinueOnError)

	// ── connection ───────────────────────────────────────────────
	fs.BoolVarP(&flags.Listen, "listen", "l", false, "Listen mode")
	fs.IntVarP(&flags.Port, "port", "p", 0, "Local port number (with -l)")
	fs.BoolVarP(&flags.UDP, "udp", "u", false, "UDP mode")
	fs.BoolVarP(&flags.KeepOpen, "keep-open", "k", false, "Accept multiple connections (with -l)")

	// ── behaviour ────────────────────────────────────────────────
	fs.BoolVar(&flags.Echo, "echo", false, "Echo received data back to the peer (with -l)")
	fs.BoolVar(&flags.NonBlocking, "nonblock", false, "Poll a non-blocking listener instead of blocking in accept")
	fs.BoolVar(&flags.ReuseSlots, "reuse-slots", false, "Hand out indices of closed connections again")
	fs.IntVar(&flags.Backlog, "backlog", config.DefaultBacklog, "Pending connection queue length")
	fs.IntVar(&flags.BufSize, "buf-size", config.DefaultBufSize, "Echo buffer size in bytes")

	// ── output ───────────────────────────────────────────────────
	fs.BoolVar(&flags.Stats, "stats", false, "Print traffic counters as JSON on exit")
	fs.StringVar(&flags.ConfigFile, "config", "", "TOML configuration file")
	fs.CountVarP(&flags.Verbose, "verbose", "v", "Increase verbosity (repeatable)")

	var showVersion, showHelp bool
	fs.BoolVar(&showVersion, "version", false, "Print version and exit")
	fs.BoolVarP(&showHelp, "help", "h", false, "Show this help")

	fs.Usage = func() { printUsage(fs) }

	// ── parse ────────────────────────────────────────────────────
	if err := fs.Parse(args); err != nil {
		return err
	}

	if showHelp || len(args) == 0 {
		printUsage(fs)
		return nil
	}
	if showVersion {
		fmt.Printf("mininet %s\n", version)
		return nil
	}

	// ── layer: defaults < file < env < flags ─────────────────────
	cfg := config.Default()

	path := os.Getenv(config.EnvPrefix + "CONFIG")
	if fs.Changed("config") {
		path = flags.ConfigFile
	}
	var unknown []string
	if path != "" {
		var err error
		if unknown, err = config.LoadFile(path, cfg); err != nil {
			return err
		}
		cfg.ConfigFile = path
	}
	config.LoadFromEnv(cfg)
	applyFlags(fs, flags, cfg)

	// ── positional arguments ─────────────────────────────────────
	if err := parsePositional(cfg, fs.Args()); err != nil {
		return err
	}

	// ── validate ─────────────────────────────────────────────────
	if err := cfg.Validate(); err != nil {
		return err
	}

	// ── build components ─────────────────────────────────────────
	logger := util.NewLogger(cfg.Verbose)
	for _, key := range unknown {
		logger.Warn("config %s: unknown key %q ignored", cfg.ConfigFile, key)
	}
	logger.Debug("mode %s, backlog %d, buf-size %d", cfg.Mode(), cfg.Backlog, cfg.BufSize)

	if !cfg.Listen && term.IsTerminal(int(os.Stdin.Fd())) {
		logger.Info("interactive: Ctrl-D closes the sending side, Ctrl-C quits")
	}

	var met *metrics.Collector
	if cfg.Stats {
		met = metrics.New()
	}

	mode, err := core.Build(cfg, logger, met)
	if err != nil {
		return err
	}
	err = mode.Run(ctx)

	if met != nil {
		fmt.Fprintln(os.Stderr, met.JSON())
	}
	return err
}

// ── helpers ──────────────────────────────────────────────────────────

// applyFlags copies every flag the user actually set from flags to cfg.
func applyFlags(fs *flag.FlagSet, flags, cfg *config.Config) {
	set := func(name string, apply func()) {
		if fs.Changed(name) {
			apply()
		}
	}
	set("listen", func() { cfg.Listen = flags.Listen })
	set("port", func() { cfg.Port = flags.Port })
	set("udp", func() { cfg.UDP = flags.UDP })
	set("keep-open", func() { cfg.KeepOpen = flags.KeepOpen })
	set("echo", func() { cfg.Echo = flags.Echo })
	set("nonblock", func() { cfg.NonBlocking = flags.NonBlocking })
	set("reuse-slots", func() { cfg.ReuseSlots = flags.ReuseSlots })
	set("backlog", func() { cfg.Backlog = flags.Backlog })
	set("buf-size", func() { cfg.BufSize = flags.BufSize })
	set("stats", func() { cfg.Stats = flags.Stats })
	set("verbose", func() { cfg.Verbose = flags.Verbose })
}

func parsePositional(cfg *config.Config, remaining []string) error {
	if cfg.Listen {
		switch len(remaining) {
		case 0: // mininet -l -p PORT
		case 1: // mininet -l PORT
			port, err := config.ParsePort(remaining[0])
			if err != nil {
				return fmt.Errorf("port: %w", err)
			}
			cfg.Port = port
		default:
			return fmt.Errorf("too many arguments for listen mode")
		}
		return nil
	}

	// Connect mode: host port
	switch len(remaining) {
	case 0:
		if cfg.Host == "" {
			return fmt.Errorf("host required (use --help for usage)")
		}
		return nil
	case 2:
	default:
		return fmt.Errorf("expected HOST PORT, got %d arguments", len(remaining))
	}
	cfg.Host = remaining[0]
	port, err := config.ParsePort(remaining[1])
	if err != nil {
		return fmt.Errorf("port: %w", err)
	}
	cfg.Port = port
	return nil
}

func printUsage(fs *flag.FlagSet) {
	fmt.Fprintf(os.Stderr, `mininet - minimal TCP/UDP socket tool v%s

Usage:
  mininet [options] <host> <port>             Connect
  mininet -l -p <port> [options]              Listen

Options:
`, version)
	fs.PrintDefaults()
	fmt.Fprintf(os.Stderr, `
Environment:
  MININET_HOST, MININET_PORT, MININET_LISTEN, MININET_UDP, ...
  MININET_CONFIG names a TOML file; flags override both.

Examples:
  mininet 127.0.0.1 80                        TCP connect
  mininet -l -p 8080                          Listen on 8080
  mininet -lk -p 7 --echo                     Echo server for many clients
  mininet -u 127.0.0.1 53                     UDP connect
  echo "hello" | mininet 10.0.0.5 9000        Pipe data
`)
}
