package core

import (
	"context"
	"fmt"
	"io"
	"os"

	"mininet/endpoint"
	"mininet/internal/capability"
	ncerr "mininet/internal/errors"
	"mininet/internal/session"
	"mininet/util"
)

// ConnectMode opens a client endpoint to a remote address and runs a
// capability on it, the default client mode.
type ConnectMode struct {
	Host       string // IPv4 literal
	Port       uint16
	UDP        bool
	Options    []endpoint.Option
	Capability capability.Capability
	Logger     *util.Logger

	// Stdin/Stdout default to os.Stdin/os.Stdout when nil.
	// Override in tests for deterministic I/O.
	Stdin  io.Reader
	Stdout io.Writer
}

func (m *ConnectMode) stdin() io.Reader {
	if m.Stdin != nil {
		return m.Stdin
	}
	return os.Stdin
}

func (m *ConnectMode) stdout() io.Writer {
	if m.Stdout != nil {
		return m.Stdout
	}
	return os.Stdout
}

// Run starts the client, creates a session, and hands it to the
// capability.  The endpoint is closed when Run returns; cancelling ctx
// also aborts a connect in progress.
func (m *ConnectMode) Run(ctx context.Context) error {
	address := util.FormatAddr(m.Host, int(m.Port))
	network := "tcp"
	if m.UDP {
		network = "udp"
	}
	m.Logger.Verbose("connecting to %s (%s)", address, network)

	var conn util.Duplex
	if m.UDP {
		cl := endpoint.NewDatagramClient(m.Options...)
		if err := cl.Start(m.Host, m.Port); err != nil {
			return fmt.Errorf("connect to %s: %w", address, err)
		}
		conn = cl
	} else {
		cl := endpoint.NewStreamClient(m.Options...)
		stop := closeOnDone(ctx, cl.Close)
		defer stop()
		if err := cl.Start(m.Host, m.Port); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("connect to %s: %w", address, err)
		}
		m.Logger.Verbose("connected to %s", address)
		conn = cl
	}
	defer conn.Close()

	stop := closeOnDone(ctx, conn.Close)
	defer stop()

	sess := session.New(conn, address, m.stdin(), m.stdout(), m.Logger)
	err := m.Capability.Handle(ctx, sess)
	if ncerr.Is(err, ncerr.ErrClosed) {
		return nil
	}
	return err
}
