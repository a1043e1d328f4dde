package endpoint

import (
	"io"

	ncerr "mininet/internal/errors"
	"mininet/internal/transport"
)

// StreamClient owns one connected stream socket.
type StreamClient struct {
	base

	remote Addr
}

// NewStreamClient returns an unstarted client.
func NewStreamClient(opts ...Option) *StreamClient {
	c := &StreamClient{}
	c.setup("stream-client", opts)
	return c
}

// DialStream creates a client connected to address:port.  address must
// be a dotted-decimal IPv4 literal.
func DialStream(address string, port uint16, opts ...Option) (*StreamClient, error) {
	c := NewStreamClient(opts...)
	if err := c.Start(address, port); err != nil {
		return nil, err
	}
	return c, nil
}

// Start connects to address:port.  A malformed address or a refused
// connection is returned as an error and leaves the client unstarted.
func (c *StreamClient) Start(address string, port uint16) error {
	h, err := c.begin(transport.Stream)
	if err != nil {
		return err
	}

	remote, err := transport.ParseAddr(address, port)
	if err != nil {
		return c.fail(err)
	}

	c.log.Debug("connecting to %s", remote)
	if err := c.opts.tr.Connect(h, remote); err != nil {
		return c.fail(ncerr.Wrap("connect", remote.String(), err))
	}

	c.mu.Lock()
	c.remote = remote
	c.mu.Unlock()
	if err := c.commit(); err != nil {
		return err
	}

	c.opts.met.ConnectionOpened()
	c.log.Verbose("connected to %s", remote)
	return nil
}

// Recv reads up to len(p) bytes.  It returns (0, io.EOF) once the peer
// has closed its side.
func (c *StreamClient) Recv(p []byte) (int, error) {
	h, err := c.live()
	if err != nil {
		return 0, err
	}
	if len(p) == 0 {
		return 0, nil
	}
	n, err := recvStream(c.opts.tr, h, p)
	if err != nil {
		if err == io.EOF {
			if c.State() == Closed {
				return 0, ncerr.ErrClosed
			}
			c.log.Debug("peer closed")
			return 0, err
		}
		return 0, c.fault("recv", c.remoteString(), err)
	}
	c.opts.met.BytesReceived(int64(n))
	return n, nil
}

// Send writes all of p.
func (c *StreamClient) Send(p []byte) (int, error) {
	h, err := c.live()
	if err != nil {
		return 0, err
	}
	n, err := sendAll(c.opts.tr, h, p)
	c.opts.met.BytesSent(int64(n))
	if err != nil {
		return n, c.fault("send", c.remoteString(), err)
	}
	return n, nil
}

// SendString writes s.
func (c *StreamClient) SendString(s string) (int, error) {
	return c.Send([]byte(s))
}

// SetBlocking switches the connection between blocking and non-blocking I/O.
func (c *StreamClient) SetBlocking(blocking bool) error {
	h, err := c.live()
	if err != nil {
		return err
	}
	return c.setBlocking(h, blocking)
}

// CloseWrite shuts down the sending side.  The peer sees end-of-stream;
// receiving continues to work.
func (c *StreamClient) CloseWrite() error {
	h, err := c.live()
	if err != nil {
		return err
	}
	if err := c.opts.tr.CloseWrite(h); err != nil {
		return c.fault("shutdown", c.remoteString(), err)
	}
	return nil
}

// LocalAddr returns the client's side of the connection.
func (c *StreamClient) LocalAddr() (Addr, error) {
	h, err := c.live()
	if err != nil {
		return Addr{}, err
	}
	return c.localAddr(h)
}

// RemoteAddr returns the address the client connected to.
func (c *StreamClient) RemoteAddr() (Addr, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := c.liveLocked(); err != nil {
		return Addr{}, err
	}
	return c.remote, nil
}

// Close releases the connection.  It is safe to call more than once.
func (c *StreamClient) Close() error {
	c.mu.Lock()
	h, prev := c.shut()
	c.mu.Unlock()
	if prev == Closed {
		return nil
	}
	if prev == Started {
		c.opts.met.ConnectionClosed()
		c.log.Verbose("closed")
	}
	return c.release(h)
}

func (c *StreamClient) remoteString() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remote.String()
}
