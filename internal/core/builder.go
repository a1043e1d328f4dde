package core

import (
	"fmt"

	"mininet/config"
	"mininet/endpoint"
	"mininet/internal/capability"
	"mininet/internal/metrics"
	"mininet/util"
)

// Build constructs the appropriate Mode from the given configuration.
// Endpoints created by the mode log through logger and record into met;
// both may be nil.
func Build(cfg *config.Config, logger *util.Logger, met *metrics.Collector) (Mode, error) {
	if cfg.Port < 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("port %d out of range 0-65535", cfg.Port)
	}

	opts := []endpoint.Option{
		endpoint.WithLogger(logger),
		endpoint.WithMetrics(met),
		endpoint.WithBacklog(cfg.Backlog),
	}
	if cfg.ReuseSlots {
		opts = append(opts, endpoint.WithSlotReuse())
	}

	if cfg.Listen {
		return buildListen(cfg, logger, opts), nil
	}
	return buildConnect(cfg, logger, opts)
}

// ── mode builders ────────────────────────────────────────────────────

func buildConnect(cfg *config.Config, logger *util.Logger, opts []endpoint.Option) (Mode, error) {
	if err := util.RequireIPv4(cfg.Host); err != nil {
		return nil, err
	}
	return &ConnectMode{
		Host:       cfg.Host,
		Port:       uint16(cfg.Port),
		UDP:        cfg.UDP,
		Options:    opts,
		Capability: buildCapability(cfg),
		Logger:     logger,
	}, nil
}

func buildListen(cfg *config.Config, logger *util.Logger, opts []endpoint.Option) Mode {
	return &ListenMode{
		Port:        uint16(cfg.Port),
		UDP:         cfg.UDP,
		KeepOpen:    cfg.KeepOpen,
		NonBlocking: cfg.NonBlocking,
		Options:     opts,
		Capability:  buildCapability(cfg),
		Logger:      logger,
	}
}

// buildCapability selects the per-connection behaviour.
func buildCapability(cfg *config.Config) capability.Capability {
	if cfg.Echo {
		return &capability.Echo{BufSize: cfg.BufSize}
	}
	return &capability.Relay{}
}
