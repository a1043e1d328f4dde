package endpoint

import (
	ncerr "mininet/internal/errors"
	"mininet/internal/transport"
)

// DatagramServer owns one bound, unconnected datagram socket.  It keeps
// no peer: every Recv reports its sender and every Send names its
// destination.
type DatagramServer struct {
	base

	local Addr
}

// NewDatagramServer returns an unstarted server.
func NewDatagramServer(opts ...Option) *DatagramServer {
	s := &DatagramServer{}
	s.setup("datagram-server", opts)
	return s
}

// ListenDatagram creates a server bound to every interface at port.
func ListenDatagram(port uint16, opts ...Option) (*DatagramServer, error) {
	s := NewDatagramServer(opts...)
	if err := s.Start(port); err != nil {
		return nil, err
	}
	return s, nil
}

// Start binds to 0.0.0.0:port.
func (s *DatagramServer) Start(port uint16) error {
	h, err := s.begin(transport.Datagram)
	if err != nil {
		return err
	}

	bindAddr := transport.Any(port)
	if err := s.opts.tr.Bind(h, bindAddr); err != nil {
		return s.fail(ncerr.Wrap("bind", bindAddr.String(), err))
	}
	local, err := s.opts.tr.LocalAddr(h)
	if err != nil {
		return s.fail(ncerr.Wrap("getsockname", bindAddr.String(), err))
	}

	s.mu.Lock()
	s.local = local
	s.mu.Unlock()
	if err := s.commit(); err != nil {
		return err
	}

	s.log.Verbose("bound to %s", local)
	return nil
}

// Recv waits for one datagram, copies up to len(p) bytes of it into p
// and returns the sender's address.  Bytes beyond len(p) are dropped.
func (s *DatagramServer) Recv(p []byte) (int, Addr, error) {
	h, err := s.live()
	if err != nil {
		return 0, Addr{}, err
	}
	n, from, err := s.opts.tr.RecvFrom(h, p)
	if err != nil {
		return 0, Addr{}, s.fault("recvfrom", s.addrString(), err)
	}
	if s.State() == Closed {
		// Close woke the receive with an empty read.
		return 0, Addr{}, ncerr.ErrClosed
	}
	s.opts.met.DatagramReceived(int64(n))
	s.log.Debug("%d bytes from %s", n, from)
	return n, from, nil
}

// Send transmits p as one datagram to to.  Delivery is not guaranteed.
func (s *DatagramServer) Send(to Addr, p []byte) (int, error) {
	h, err := s.live()
	if err != nil {
		return 0, err
	}
	n, err := s.opts.tr.SendTo(h, p, to)
	if err != nil {
		return 0, s.fault("sendto", to.String(), err)
	}
	s.opts.met.DatagramSent(int64(n))
	return n, nil
}

// SendString transmits str as one datagram to to.
func (s *DatagramServer) SendString(to Addr, str string) (int, error) {
	return s.Send(to, []byte(str))
}

// SetBlocking switches the socket between blocking and non-blocking I/O.
func (s *DatagramServer) SetBlocking(blocking bool) error {
	h, err := s.live()
	if err != nil {
		return err
	}
	return s.setBlocking(h, blocking)
}

// LocalAddr returns the bound address.
func (s *DatagramServer) LocalAddr() (Addr, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.liveLocked(); err != nil {
		return Addr{}, err
	}
	return s.local, nil
}

// Close releases the socket.  It is safe to call more than once.
func (s *DatagramServer) Close() error {
	s.mu.Lock()
	h, prev := s.shut()
	s.mu.Unlock()
	if prev == Closed {
		return nil
	}
	if prev == Started {
		s.log.Verbose("closed")
	}
	return s.release(h)
}

func (s *DatagramServer) addrString() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.local.String()
}
