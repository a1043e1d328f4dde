package core

import (
	"context"
	"errors"
	"sync"

	"mininet/endpoint"
	ncerr "mininet/internal/errors"
)

// errNoPeer is returned by a datagram peer closed before anyone wrote.
var errNoPeer = errors.New("no datagram peer yet")

// streamConn presents one accepted connection of a StreamServer as a
// duplex.  Close releases only that connection.
type streamConn struct {
	srv *endpoint.StreamServer
	idx int
}

func (c *streamConn) Send(p []byte) (int, error) { return c.srv.Send(c.idx, p) }
func (c *streamConn) Recv(p []byte) (int, error) { return c.srv.Recv(c.idx, p) }
func (c *streamConn) CloseWrite() error          { return c.srv.CloseWrite(c.idx) }

func (c *streamConn) Close() error {
	err := c.srv.CloseConn(c.idx)
	if ncerr.Is(err, ncerr.ErrConnClosed) || ncerr.Is(err, ncerr.ErrClosed) {
		return nil
	}
	return err
}

// datagramPeer presents a DatagramServer as a duplex the way netcat
// does in UDP listen mode: replies go to whoever sent last.  Sends wait
// until the first datagram has named a peer.
type datagramPeer struct {
	srv *endpoint.DatagramServer

	mu     sync.Mutex
	last   endpoint.Addr
	known  chan struct{} // closed once last is set
	closed chan struct{}
	once   sync.Once
	heard  bool
}

func newDatagramPeer(srv *endpoint.DatagramServer) *datagramPeer {
	return &datagramPeer{
		srv:    srv,
		known:  make(chan struct{}),
		closed: make(chan struct{}),
	}
}

func (d *datagramPeer) Recv(p []byte) (int, error) {
	n, from, err := d.srv.Recv(p)
	if err != nil {
		return 0, err
	}
	d.mu.Lock()
	d.last = from
	if !d.heard {
		d.heard = true
		close(d.known)
	}
	d.mu.Unlock()
	return n, nil
}

func (d *datagramPeer) Send(p []byte) (int, error) {
	select {
	case <-d.known:
	case <-d.closed:
		return 0, errNoPeer
	}
	to, _ := d.Peer()
	return d.srv.Send(to, p)
}

// Peer returns the most recent sender.
func (d *datagramPeer) Peer() (endpoint.Addr, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.last, d.heard
}

func (d *datagramPeer) Close() error {
	d.once.Do(func() { close(d.closed) })
	return d.srv.Close()
}

// closeOnDone runs shut when ctx is cancelled, unblocking any pending
// accept or receive.  The returned func stops the watch.
func closeOnDone(ctx context.Context, shut func() error) (stop func() bool) {
	return context.AfterFunc(ctx, func() { shut() }) //nolint:errcheck
}
