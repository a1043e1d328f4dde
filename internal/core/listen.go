package core

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"mininet/endpoint"
	"mininet/internal/capability"
	ncerr "mininet/internal/errors"
	"mininet/internal/poll"
	"mininet/internal/session"
	"mininet/util"
)

// ListenMode binds a server endpoint and runs a capability on what
// arrives.  Over TCP, KeepOpen=true serves every accepted connection
// concurrently; otherwise the first connection is handled and Run
// returns.  Over UDP the capability talks to whoever sent last.
type ListenMode struct {
	Port        uint16
	UDP         bool
	KeepOpen    bool
	NonBlocking bool // accept on a non-blocking listener, pacing with Poll
	Poll        *poll.Backoff
	Options     []endpoint.Option
	Capability  capability.Capability
	Logger      *util.Logger

	// OnReady, when set, is called with the bound address before the
	// first accept or receive.
	OnReady func(endpoint.Addr)

	// Stdin/Stdout default to os.Stdin/os.Stdout when nil.
	Stdin  io.Reader
	Stdout io.Writer
}

func (m *ListenMode) stdin() io.Reader {
	if m.Stdin != nil {
		return m.Stdin
	}
	return os.Stdin
}

func (m *ListenMode) stdout() io.Writer {
	if m.Stdout != nil {
		return m.Stdout
	}
	return os.Stdout
}

// Run starts the server and dispatches traffic to the capability until
// the context is cancelled or, without KeepOpen, the first connection
// ends.
func (m *ListenMode) Run(ctx context.Context) error {
	if m.UDP {
		return m.listenDatagram(ctx)
	}
	return m.listenStream(ctx)
}

// ── TCP ──────────────────────────────────────────────────────────────

func (m *ListenMode) listenStream(ctx context.Context) error {
	srv := endpoint.NewStreamServer(m.Options...)
	stop := closeOnDone(ctx, srv.Stop)
	defer stop()

	if err := srv.Start(m.Port); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("listen on port %d: %w", m.Port, err)
	}

	var wg sync.WaitGroup
	defer wg.Wait()
	defer srv.Stop() //nolint:errcheck // also ends KeepOpen handlers

	local, _ := srv.LocalAddr()
	m.Logger.Verbose("listening on %s (tcp)", local)
	if m.NonBlocking {
		if err := srv.SetBlocking(false); err != nil {
			return err
		}
	}
	if m.OnReady != nil {
		m.OnReady(local)
	}

	for {
		idx, err := m.accept(ctx, srv)
		if err != nil {
			if ctx.Err() != nil || ncerr.Is(err, ncerr.ErrClosed) {
				return nil
			}
			return fmt.Errorf("accept: %w", err)
		}

		peer, _ := srv.Peer(idx)
		m.Logger.Verbose("connection from %s (conn=%d)", peer, idx)

		if !m.KeepOpen {
			return m.serve(ctx, srv, idx, peer)
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := m.serve(ctx, srv, idx, peer); err != nil {
				m.Logger.Warn("conn=%d: %v", idx, err)
			}
		}()
	}
}

// accept waits for the next connection.  A non-blocking listener is
// polled with backoff until something arrives or ctx is cancelled.
func (m *ListenMode) accept(ctx context.Context, srv *endpoint.StreamServer) (int, error) {
	if !m.NonBlocking {
		return srv.Accept()
	}

	b := m.Poll
	if b == nil {
		b = poll.DefaultBackoff()
	}
	idx := -1
	err := b.Do(ctx, func(attempt int) error {
		var err error
		idx, err = srv.Accept()
		if err == nil && attempt > 1 {
			m.Logger.Debug("accepted after %d polls", attempt)
		}
		return err
	})
	if err != nil {
		return -1, err
	}
	// Some platforms hand out accepted sockets in the listener's mode.
	if err := srv.SetConnBlocking(idx, true); err != nil {
		srv.CloseConn(idx) //nolint:errcheck
		return -1, err
	}
	return idx, nil
}

// ── UDP ──────────────────────────────────────────────────────────────

func (m *ListenMode) listenDatagram(ctx context.Context) error {
	srv := endpoint.NewDatagramServer(m.Options...)
	if err := srv.Start(m.Port); err != nil {
		return fmt.Errorf("listen on port %d (udp): %w", m.Port, err)
	}
	defer srv.Close()

	local, _ := srv.LocalAddr()
	m.Logger.Verbose("listening on %s (udp)", local)
	if m.OnReady != nil {
		m.OnReady(local)
	}

	peer := newDatagramPeer(srv)
	stop := closeOnDone(ctx, peer.Close)
	defer stop()

	sess := session.New(peer, "udp "+local.String(), m.stdin(), m.stdout(), m.Logger)
	err := m.Capability.Handle(ctx, sess)
	if ncerr.Is(err, ncerr.ErrClosed) || ncerr.Is(err, errNoPeer) {
		return nil
	}
	return err
}

// ── Shared ───────────────────────────────────────────────────────────

func (m *ListenMode) serve(ctx context.Context, srv *endpoint.StreamServer, idx int, peer endpoint.Addr) error {
	conn := &streamConn{srv: srv, idx: idx}
	defer conn.Close()

	sess := session.New(conn, peer.String(), m.stdin(), m.stdout(), m.Logger)
	err := m.Capability.Handle(ctx, sess)
	if ncerr.Is(err, ncerr.ErrClosed) || ncerr.Is(err, ncerr.ErrConnClosed) {
		return nil
	}
	return err
}
