package endpoint

import (
	ncerr "mininet/internal/errors"
	"mininet/internal/transport"
)

// DatagramClient owns one datagram socket aimed at a fixed target.  No
// connect is issued, so replies are accepted from any sender; the most
// recent one is kept apart from the target and never redirects sends.
type DatagramClient struct {
	base

	target     Addr
	lastSender Addr
	heard      bool
}

// NewDatagramClient returns an unstarted client.
func NewDatagramClient(opts ...Option) *DatagramClient {
	c := &DatagramClient{}
	c.setup("datagram-client", opts)
	return c
}

// DialDatagram creates a client whose sends go to address:port.
func DialDatagram(address string, port uint16, opts ...Option) (*DatagramClient, error) {
	c := NewDatagramClient(opts...)
	if err := c.Start(address, port); err != nil {
		return nil, err
	}
	return c, nil
}

// Start opens the socket on an ephemeral local port and records
// address:port as the target.  Recv may be called before the first
// Send.
func (c *DatagramClient) Start(address string, port uint16) error {
	h, err := c.begin(transport.Datagram)
	if err != nil {
		return err
	}

	target, err := transport.ParseAddr(address, port)
	if err != nil {
		return c.fail(err)
	}
	if err := c.opts.tr.Bind(h, transport.Any(0)); err != nil {
		return c.fail(ncerr.Wrap("bind", transport.Any(0).String(), err))
	}

	c.mu.Lock()
	c.target = target
	c.mu.Unlock()
	if err := c.commit(); err != nil {
		return err
	}

	c.log.Verbose("target %s", target)
	return nil
}

// Target returns the fixed destination of Send.
func (c *DatagramClient) Target() Addr {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.target
}

// LastSender returns the source of the most recent datagram received.
// ok is false until something has been received.
func (c *DatagramClient) LastSender() (addr Addr, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastSender, c.heard
}

// Send transmits p as one datagram to the target.
func (c *DatagramClient) Send(p []byte) (int, error) {
	h, err := c.live()
	if err != nil {
		return 0, err
	}
	to := c.Target()
	n, err := c.opts.tr.SendTo(h, p, to)
	if err != nil {
		return 0, c.fault("sendto", to.String(), err)
	}
	c.opts.met.DatagramSent(int64(n))
	return n, nil
}

// SendString transmits s as one datagram to the target.
func (c *DatagramClient) SendString(s string) (int, error) {
	return c.Send([]byte(s))
}

// Recv waits for one datagram from any sender.  The sender is available
// from LastSender afterwards.
func (c *DatagramClient) Recv(p []byte) (int, error) {
	n, _, err := c.RecvFrom(p)
	return n, err
}

// RecvFrom is Recv that also returns the sender.
func (c *DatagramClient) RecvFrom(p []byte) (int, Addr, error) {
	h, err := c.live()
	if err != nil {
		return 0, Addr{}, err
	}
	n, from, err := c.opts.tr.RecvFrom(h, p)
	if err != nil {
		return 0, Addr{}, c.fault("recvfrom", "", err)
	}

	c.mu.Lock()
	if c.state == Closed {
		c.mu.Unlock()
		return 0, Addr{}, ncerr.ErrClosed
	}
	c.lastSender = from
	c.heard = true
	c.mu.Unlock()

	c.opts.met.DatagramReceived(int64(n))
	c.log.Debug("%d bytes from %s", n, from)
	return n, from, nil
}

// SetBlocking switches the socket between blocking and non-blocking I/O.
func (c *DatagramClient) SetBlocking(blocking bool) error {
	h, err := c.live()
	if err != nil {
		return err
	}
	return c.setBlocking(h, blocking)
}

// LocalAddr returns the address the kernel bound the socket to.  The
// IP stays 0.0.0.0; the port is fixed from Start on.
func (c *DatagramClient) LocalAddr() (Addr, error) {
	h, err := c.live()
	if err != nil {
		return Addr{}, err
	}
	return c.localAddr(h)
}

// Close releases the socket.  It is safe to call more than once.
func (c *DatagramClient) Close() error {
	c.mu.Lock()
	h, prev := c.shut()
	c.mu.Unlock()
	if prev == Closed {
		return nil
	}
	if prev == Started {
		c.log.Verbose("closed")
	}
	return c.release(h)
}
