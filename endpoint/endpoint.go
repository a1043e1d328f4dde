package endpoint

import (
	"fmt"
	"io"
	"sync"

	"github.com/google/uuid"

	ncerr "mininet/internal/errors"
	"mininet/internal/transport"
	"mininet/util"
)

// State is the lifecycle position of an endpoint.
type State int

const (
	Uninitialized State = iota
	Started
	Closed
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Started:
		return "started"
	case Closed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// base carries what every endpoint variant shares: identity, options,
// the owned handle and the lifecycle state.
type base struct {
	id   uuid.UUID
	opts options
	log  *util.Logger

	mu       sync.Mutex
	state    State
	starting bool // a Start call is in flight
	h        transport.Handle
}

func (b *base) setup(kind string, opts []Option) {
	b.id = uuid.New()
	b.opts = buildOptions(opts)
	b.log = b.opts.log.With(fmt.Sprintf("[%s %s]", kind, b.id.String()[:8]))
	b.h = transport.InvalidHandle
}

// ID returns the endpoint's unique identifier.
func (b *base) ID() string { return b.id.String() }

// State returns the current lifecycle state.
func (b *base) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// begin reserves the endpoint for one Start call, runs the network
// initializer and creates the handle.  On success the handle is already
// owned by the endpoint, so a concurrent Close releases it.
func (b *base) begin(kind transport.Kind) (transport.Handle, error) {
	b.mu.Lock()
	switch {
	case b.state == Closed:
		b.mu.Unlock()
		return transport.InvalidHandle, ncerr.ErrClosed
	case b.state == Started || b.starting:
		b.mu.Unlock()
		return transport.InvalidHandle, ncerr.ErrAlreadyStarted
	}
	b.starting = true
	b.mu.Unlock()

	if err := b.opts.initNet(); err != nil {
		return transport.InvalidHandle, b.fail(ncerr.Wrap("startup", "", err))
	}

	h, err := b.opts.tr.Socket(kind)
	if err != nil {
		return transport.InvalidHandle, b.fail(ncerr.Wrap("socket", "", err))
	}

	b.mu.Lock()
	if b.state == Closed {
		b.starting = false
		b.mu.Unlock()
		b.opts.tr.Close(h) //nolint:errcheck
		return transport.InvalidHandle, ncerr.ErrClosed
	}
	b.h = h
	b.mu.Unlock()

	b.log.Debug("socket %s handle=%d", kind, h)
	return h, nil
}

// fail aborts an in-flight Start: the handle is released and the
// endpoint returns to Uninitialized.
func (b *base) fail(err error) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.starting = false
	if b.state == Closed {
		// Close ran concurrently and already released the handle.
		return ncerr.ErrClosed
	}
	if b.h != transport.InvalidHandle {
		b.opts.tr.Close(b.h) //nolint:errcheck
		b.h = transport.InvalidHandle
	}
	op := "start"
	var ne *ncerr.NetworkError
	if ncerr.As(err, &ne) {
		op = ne.Op
	}
	b.opts.met.RecordError(op, err.Error())
	return err
}

// commit completes an in-flight Start.
func (b *base) commit() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.starting = false
	if b.state == Closed {
		return ncerr.ErrClosed
	}
	b.state = Started
	b.opts.met.EndpointStarted()
	return nil
}

// live returns the owned handle if the endpoint is Started.
func (b *base) live() (transport.Handle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.liveLocked()
}

func (b *base) liveLocked() (transport.Handle, error) {
	switch b.state {
	case Started:
		return b.h, nil
	case Closed:
		return transport.InvalidHandle, ncerr.ErrClosed
	default:
		return transport.InvalidHandle, ncerr.ErrNotStarted
	}
}

// shut moves the endpoint to Closed and hands back the handle to
// release.  It returns the previous state; prev == Closed means another
// call already did the work.  The caller holds b.mu.
func (b *base) shut() (h transport.Handle, prev State) {
	prev = b.state
	if prev == Closed {
		return transport.InvalidHandle, prev
	}
	if prev == Started {
		b.opts.met.EndpointClosed()
	}
	b.state = Closed
	h, b.h = b.h, transport.InvalidHandle
	return h, prev
}

// release closes h if it is valid.
func (b *base) release(h transport.Handle) error {
	if h == transport.InvalidHandle {
		return nil
	}
	b.log.Debug("close handle=%d", h)
	return ncerr.Wrap("close", "", b.opts.tr.Close(h))
}

// fault converts a failed socket call into the error returned to the
// caller.  Failures caused by a concurrent Close surface as ErrClosed.
func (b *base) fault(op, addr string, err error) error {
	if b.State() == Closed {
		return ncerr.ErrClosed
	}
	werr := ncerr.Wrap(op, addr, err)
	if !ncerr.IsWouldBlock(err) {
		b.opts.met.RecordError(op, werr.Error())
		b.log.Debug("%v", werr)
	}
	return werr
}

// setBlocking toggles the mode of h.
func (b *base) setBlocking(h transport.Handle, blocking bool) error {
	if err := b.opts.tr.SetBlocking(h, blocking); err != nil {
		return b.fault("setblocking", "", err)
	}
	b.log.Debug("handle=%d blocking=%t", h, blocking)
	return nil
}

// localAddr asks the kernel for the address h is bound to.
func (b *base) localAddr(h transport.Handle) (Addr, error) {
	a, err := b.opts.tr.LocalAddr(h)
	if err != nil {
		return Addr{}, b.fault("getsockname", "", err)
	}
	return a, nil
}

// ── stream helpers ───────────────────────────────────────────────────

// sendAll writes p in full, looping over short writes.
func sendAll(tr transport.Transport, h transport.Handle, p []byte) (int, error) {
	total := 0
	for total < len(p) {
		n, err := tr.Send(h, p[total:])
		total += n
		if err != nil {
			return total, err
		}
		if n == 0 {
			return total, io.ErrShortWrite
		}
	}
	return total, nil
}

// recvStream reads once from a stream handle.  A zero-byte read on a
// non-empty buffer is the peer's orderly close and becomes io.EOF.
func recvStream(tr transport.Transport, h transport.Handle, p []byte) (int, error) {
	n, err := tr.Recv(h, p)
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, io.EOF
	}
	return n, nil
}
